package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

// OrganisationIDParam is the chi URL parameter naming the tenant.
const OrganisationIDParam = "organisationID"

type roleKey struct{}

// RoleFromContext returns the caller's role set by RequireMember.
func RoleFromContext(ctx context.Context) (user.Role, bool) {
	role, ok := ctx.Value(roleKey{}).(user.Role)
	return role, ok
}

// MembershipMiddleware resolves the caller's role from their active association
// instead of trusting a role claim in the token.
type MembershipMiddleware struct {
	membership user.MembershipService
}

func NewMembershipMiddleware(membership user.MembershipService) *MembershipMiddleware {
	return &MembershipMiddleware{membership: membership}
}

// RequireMember allows callers with an active, unbanned association to the
// organisation in the URL.
func (m *MembershipMiddleware) RequireMember(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := jwt.ClaimsFromContext(r.Context())
		if err != nil {
			response.HandleError(w, err)
			return
		}

		organisationID := chi.URLParam(r, OrganisationIDParam)
		if !validator.IsValidUUID(organisationID) {
			response.HandleError(w, user.ErrForbidden)
			return
		}

		role, err := m.membership.Role(r.Context(), claims.UserID, organisationID)
		if err != nil {
			switch {
			case errors.Is(err, user.ErrAssociationNotFound), errors.Is(err, user.ErrMemberBanned):
				// Non-members must not learn whether the organisation exists.
				response.HandleError(w, user.ErrForbidden)
			default:
				response.HandleError(w, err)
			}
			return
		}

		ctx := context.WithValue(r.Context(), roleKey{}, role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Provision creates the local user for the verified caller. It runs after AuthRequired.
func (m *MembershipMiddleware) Provision(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := jwt.ClaimsFromContext(r.Context())
		if err != nil {
			response.HandleError(w, err)
			return
		}
		if !validator.IsUUID(claims.UserID) || !validator.IsValidEmail(validator.NormalizeEmail(claims.Email)) {
			response.HandleError(w, jwt.ErrInvalidToken)
			return
		}

		if err := m.membership.Provision(r.Context(), claims.UserID, claims.Email); err != nil {
			response.HandleError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireCapability checks the role stored by RequireMember against the permission table.
func RequireCapability(c user.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := RoleFromContext(r.Context())
			if !ok {
				response.HandleError(w, user.ErrForbidden)
				return
			}
			if err := user.Authorize(role, c); err != nil {
				response.HandleError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
