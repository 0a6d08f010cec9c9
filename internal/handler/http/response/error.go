package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/invitation"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/organisation"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/verification"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Auth errors
	case errors.Is(err, jwt.ErrInvalidToken), errors.Is(err, jwt.ErrMissingClaim):
		Unauthorized(w, "Invalid or missing access token")

	// Invitation domain errors
	case errors.Is(err, invitation.ErrDuplicateInvitation):
		Conflict(w, "A pending invitation already exists for this email")
	case errors.Is(err, invitation.ErrAlreadyMember):
		Conflict(w, "User is already a member of this organisation")
	case errors.Is(err, invitation.ErrNotFoundOrProcessed):
		NotFound(w, "Invitation not found or already processed")
	case errors.Is(err, invitation.ErrInvitationNotFound):
		NotFound(w, "Invitation not found")
	case errors.Is(err, invitation.ErrExpired):
		Gone(w, "Invitation has expired")
	case errors.Is(err, invitation.ErrInvalidOrganization):
		NotFound(w, "Organisation not found")
	case errors.Is(err, invitation.ErrInvalidInviteLink):
		BadRequest(w, "Invite link is malformed", nil)

	// Membership errors
	case errors.Is(err, user.ErrForbidden):
		Forbidden(w, "Insufficient permissions")
	case errors.Is(err, user.ErrMemberBanned):
		Forbidden(w, "User is banned from this organisation")
	case errors.Is(err, user.ErrCannotModifySelf):
		Forbidden(w, "You cannot change your own membership")
	case errors.Is(err, user.ErrLastAdmin):
		Conflict(w, "Organisation must keep at least one active admin")
	case errors.Is(err, user.ErrAssociationNotFound):
		NotFound(w, "Member not found")
	case errors.Is(err, user.ErrUserNotFound):
		NotFound(w, "User not found")

	// Organisation errors
	case errors.Is(err, organisation.ErrOrganisationNotFound):
		NotFound(w, "Organisation not found")
	case errors.Is(err, organisation.ErrSlugExists):
		Conflict(w, "Slug is already taken")

	// Verification errors
	case errors.Is(err, verification.ErrOTPExpired):
		Gone(w, "Verification code has expired")
	case errors.Is(err, verification.ErrOTPInvalid):
		BadRequest(w, "Verification code is invalid", nil)
	case errors.Is(err, verification.ErrAlreadyVerified):
		Conflict(w, "Email is already verified")
	case errors.Is(err, verification.ErrOTPAttemptsExceeded):
		TooManyRequests(w, "Too many failed attempts. Request a new verification code.")

	// Audit errors
	case errors.Is(err, audit.ErrInvalidCursor):
		ValidationError(w, map[string]string{"before": "before must be an audit entry id"})

	// Default
	default:
		slog.Error("unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
