package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/taskflow-backend-go/internal/config"
	appHTTP "github.com/cmlabs-hris/taskflow-backend-go/internal/handler/http"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/email"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/sealer"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/repository/postgresql"
	auditService "github.com/cmlabs-hris/taskflow-backend-go/internal/service/audit"
	invitationService "github.com/cmlabs-hris/taskflow-backend-go/internal/service/invitation"
	membershipService "github.com/cmlabs-hris/taskflow-backend-go/internal/service/membership"
	organisationService "github.com/cmlabs-hris/taskflow-backend-go/internal/service/organisation"
	verificationService "github.com/cmlabs-hris/taskflow-backend-go/internal/service/verification"
	"github.com/go-chi/httplog/v3"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.AppConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	logFormat := httplog.SchemaECS.Concise(cfg.Env != "production")
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "taskflow"),
		slog.String("env", cfg.Env),
	)
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	logger := newLogger(cfg.App)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dsn := cfg.DatabaseURL()
	if err := database.Migrate(dsn); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	db, err := database.NewPostgreSQLDB(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	tx := postgresql.NewTransactor(db)
	userRepo := postgresql.NewUserRepository(db)
	membershipRepo := postgresql.NewMembershipRepository(db)
	invitationRepo := postgresql.NewInvitationRepository(db)
	organisationRepo := postgresql.NewOrganisationRepository(db)
	projectRepo := postgresql.NewProjectRepository(db)
	auditRepo := postgresql.NewAuditRepository(db)

	JWTService, err := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	if err != nil {
		return fmt.Errorf("initializing jwt: %w", err)
	}
	dispatcher, err := email.NewDispatcher(cfg.SMTP)
	if err != nil {
		return fmt.Errorf("initializing email dispatcher: %w", err)
	}
	otpSealer, err := sealer.New(cfg.OTP.EncryptionKey)
	if err != nil {
		return fmt.Errorf("initializing otp sealer: %w", err)
	}

	auditSvc := auditService.NewAuditService(auditRepo)
	membershipSvc := membershipService.NewMembershipService(tx, userRepo, membershipRepo, auditSvc)
	invitationSvc := invitationService.NewInvitationService(
		tx,
		invitationRepo,
		organisationRepo,
		userRepo,
		membershipRepo,
		membershipSvc,
		auditSvc,
		cfg.Invitation.TTL,
	)
	organisationSvc := organisationService.NewOrganisationService(
		tx,
		organisationRepo,
		userRepo,
		membershipRepo,
		membershipSvc,
		projectRepo,
		invitationRepo,
		auditSvc,
	)
	verificationSvc := verificationService.NewVerificationService(userRepo, dispatcher, otpSealer, cfg.OTP.Issuer, cfg.OTP.TTL, cfg.OTP.MaxAttempts)

	router := appHTTP.NewRouter(
		logger,
		appHTTP.RouterConfig{
			AllowedOrigins: cfg.App.AllowedOrigins,
			RateLimit:      cfg.RateLimit,
		},
		JWTService,
		middleware.NewMembershipMiddleware(membershipSvc),
		appHTTP.Handlers{
			Invitation:   appHTTP.NewInvitationHandler(invitationSvc, dispatcher, cfg.Invitation.BaseURL, cfg.App.FrontendURL+"/dashboard"),
			Organisation: appHTTP.NewOrganisationHandler(organisationSvc, membershipSvc),
			Member:       appHTTP.NewMemberHandler(membershipSvc),
			Verification: appHTTP.NewVerificationHandler(verificationSvc),
			Audit:        appHTTP.NewAuditHandler(auditSvc),
		},
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}
