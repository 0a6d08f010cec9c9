package http

import (
	"log/slog"

	"github.com/cmlabs-hris/taskflow-backend-go/internal/config"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Invitation   InvitationHandler
	Organisation OrganisationHandler
	Member       MemberHandler
	Verification VerificationHandler
	Audit        AuditHandler
}

type RouterConfig struct {
	AllowedOrigins []string
	RateLimit      config.RateLimitConfig
}

func NewRouter(logger *slog.Logger, cfg RouterConfig, JWTService jwt.Service, membership *middleware.MembershipMiddleware, h Handlers) *chi.Mux {
	r := chi.NewRouter()

	if cfg.RateLimit.TrustProxy {
		r.Use(chiMiddleware.RealIP)
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))

	r.Use(middleware.Prometheus)
	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Handle("/metrics", promhttp.Handler())

	publicLimit := middleware.RateLimitByIP(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
	verifyLimit := middleware.RateLimit(cfg.RateLimit.VerifyRequestsPerMinute, cfg.RateLimit.VerifyBurst, middleware.JSONFieldKey("email"))

	r.Route("/api/v1", func(r chi.Router) {

		// Public, rate limited
		r.Group(func(r chi.Router) {
			r.Use(publicLimit)
			r.Get("/invitations/validate", h.Invitation.Validate)
			r.Post("/verification/otp", h.Verification.SendCode)
			r.With(verifyLimit).Post("/verification/otp/verify", h.Verification.VerifyCode)
		})

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired)
			r.Use(membership.Provision)

			r.Get("/invitations/my", h.Invitation.ListMine)
			r.Post("/invitations/{token}/accept", h.Invitation.Accept)

			r.Route("/organisations", func(r chi.Router) {
				r.Get("/my", h.Organisation.ListMine)
				r.Post("/", h.Organisation.Create)
				r.Put("/current", h.Organisation.SwitchCurrent)

				r.Route("/{"+middleware.OrganisationIDParam+"}", func(r chi.Router) {
					r.Use(membership.RequireMember)

					r.Get("/", h.Organisation.Get)
					r.Get("/permissions", h.Organisation.Permissions)
					r.Get("/members", h.Member.List)

					r.Group(func(r chi.Router) {
						r.Use(middleware.RequireCapability(user.CapabilityManageOrganisation))
						r.Put("/", h.Organisation.Update)
						r.Delete("/", h.Organisation.Delete)
					})

					r.Route("/invitations", func(r chi.Router) {
						r.Use(middleware.RequireCapability(user.CapabilityInviteMembers))
						r.Get("/", h.Invitation.ListPending)
						r.Post("/", h.Invitation.Create)
						r.Post("/{token}/resend", h.Invitation.Resend)
						r.Delete("/{token}", h.Invitation.Revoke)
					})

					r.Route("/members/{userID}", func(r chi.Router) {
						r.Use(middleware.RequireCapability(user.CapabilityManageMembers))
						r.Put("/role", h.Member.ChangeRole)
						r.Delete("/", h.Member.Remove)
						r.Post("/ban", h.Member.Ban)
						r.Delete("/ban", h.Member.Unban)
					})

					r.With(middleware.RequireCapability(user.CapabilityViewAuditLog)).Get("/audit-logs", h.Audit.List)
				})
			})
		})
	})
	return r
}
