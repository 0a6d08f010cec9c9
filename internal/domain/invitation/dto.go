package invitation

import (
	"time"

	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/token"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/validator"
)

// CreateRequest - POST /organisations/{id}/invitations
type CreateRequest struct {
	OrganisationID string  `json:"-"` // From Chi URL param
	InviterID      string  `json:"-"` // From JWT
	Email          string  `json:"email"`
	Name           string  `json:"name"`
	Role           string  `json:"role"`
	CustomMessage  *string `json:"custom_message,omitempty"`
	Department     *string `json:"department,omitempty"` // For email template only
}

func (r *CreateRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.OrganisationID) {
		errs = append(errs, validator.ValidationError{
			Field:   "organisation_id",
			Message: "organisation_id is required",
		})
	}

	if validator.IsEmpty(r.InviterID) {
		errs = append(errs, validator.ValidationError{
			Field:   "inviter_id",
			Message: "inviter_id is required",
		})
	}

	if validator.IsEmpty(r.Email) {
		errs = append(errs, validator.ValidationError{
			Field:   "email",
			Message: "email is required",
		})
	} else if !validator.IsValidEmail(validator.NormalizeEmail(r.Email)) {
		errs = append(errs, validator.ValidationError{
			Field:   "email",
			Message: "email format is invalid",
		})
	}

	if validator.IsEmpty(r.Name) {
		errs = append(errs, validator.ValidationError{
			Field:   "name",
			Message: "name is required",
		})
	} else if !validator.MaxLength(r.Name, 100) {
		errs = append(errs, validator.ValidationError{
			Field:   "name",
			Message: "name must not exceed 100 characters",
		})
	} else if validator.HasControlChars(r.Name) {
		errs = append(errs, validator.ValidationError{
			Field:   "name",
			Message: "name must not contain control characters",
		})
	}

	if r.Role == "" {
		r.Role = string(user.RoleEmployee)
	}
	if !isInvitable(user.Role(r.Role)) {
		errs = append(errs, validator.ValidationError{
			Field:   "role",
			Message: "only the employee role can be assigned through an invitation",
		})
	}

	if r.CustomMessage != nil && !validator.MaxLength(*r.CustomMessage, MaxCustomMessageLength) {
		errs = append(errs, validator.ValidationError{
			Field:   "custom_message",
			Message: "custom_message must not exceed 500 characters",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

func isInvitable(role user.Role) bool {
	for _, r := range InvitableRoles {
		if r == role {
			return true
		}
	}
	return false
}

// ValidateRequest - GET /invitations/validate?token=&email=&org=
type ValidateRequest struct {
	Token          string
	Email          string // optional
	OrganisationID string // optional
}

func (r *ValidateRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Token) {
		errs = append(errs, validator.ValidationError{
			Field:   "token",
			Message: "token is required",
		})
	}

	if r.Email != "" && !validator.IsValidEmail(validator.NormalizeEmail(r.Email)) {
		errs = append(errs, validator.ValidationError{
			Field:   "email",
			Message: "email format is invalid",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// ValidationResult is the outcome of Validate. Invitation is set only when Valid.
type ValidationResult struct {
	Valid      bool
	Reason     string
	Invitation *Invitation
}

// AcceptRequest for accepting an invitation
type AcceptRequest struct {
	Token  string  `json:"-"` // From Chi URL param
	Email  string  `json:"-"` // From JWT
	UserID *string `json:"-"` // From JWT; nil leaves membership untouched
}

func (r *AcceptRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Token) {
		errs = append(errs, validator.ValidationError{
			Field:   "token",
			Message: "token is required",
		})
	} else if !token.IsWellFormed(r.Token) {
		errs = append(errs, validator.ValidationError{
			Field:   "token",
			Message: "token is malformed",
		})
	}

	if validator.IsEmpty(r.Email) {
		errs = append(errs, validator.ValidationError{
			Field:   "email",
			Message: "email is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// AcceptResponse - POST /invitations/{token}/accept
type AcceptResponse struct {
	Message          string `json:"message"`
	OrganisationID   string `json:"organisation_id"`
	OrganisationName string `json:"organisation_name"`
	Role             string `json:"role"`
	MembershipAdded  bool   `json:"membership_added"`
	InviteeName      string `json:"-"`
	InviteeEmail     string `json:"-"`
}

// InvitationResponse - GET /organisations/{id}/invitations
type InvitationResponse struct {
	Token         string  `json:"token"`
	Email         string  `json:"email"`
	Name          string  `json:"name"`
	Role          string  `json:"role"`
	Status        string  `json:"status"`
	InviterName   string  `json:"inviter_name"`
	InviterEmail  string  `json:"inviter_email"`
	IsNewUser     bool    `json:"is_new_user"`
	CustomMessage *string `json:"custom_message,omitempty"`
	ExpiresAt     string  `json:"expires_at"`
	CreatedAt     string  `json:"created_at"`
}

func NewInvitationResponse(inv Invitation) InvitationResponse {
	return InvitationResponse{
		Token:         inv.Token,
		Email:         inv.Email,
		Name:          inv.Name,
		Role:          string(inv.Role),
		Status:        string(inv.Status),
		InviterName:   inv.InviterName,
		InviterEmail:  inv.InviterEmail,
		IsNewUser:     inv.IsNewUser,
		CustomMessage: inv.CustomMessage,
		ExpiresAt:     inv.ExpiresAt.Format(time.RFC3339),
		CreatedAt:     inv.CreatedAt.Format(time.RFC3339),
	}
}

// MyInvitationResponse - GET /invitations/my
type MyInvitationResponse struct {
	Token            string `json:"token"`
	OrganisationID   string `json:"organisation_id"`
	OrganisationName string `json:"organisation_name"`
	Role             string `json:"role"`
	InviterName      string `json:"inviter_name"`
	ExpiresAt        string `json:"expires_at"`
	CreatedAt        string `json:"created_at"`
}

// ValidationResponse - GET /invitations/validate
type ValidationResponse struct {
	Valid          bool   `json:"valid"`
	Reason         string `json:"reason,omitempty"`
	Email          string `json:"email,omitempty"`
	Name           string `json:"name,omitempty"`
	Role           string `json:"role,omitempty"`
	OrganisationID string `json:"organisation_id,omitempty"`
	InviterName    string `json:"inviter_name,omitempty"`
	IsNewUser      bool   `json:"is_new_user,omitempty"`
	ExpiresAt      string `json:"expires_at,omitempty"`
}

func NewValidationResponse(res ValidationResult) ValidationResponse {
	if !res.Valid || res.Invitation == nil {
		return ValidationResponse{Valid: false, Reason: res.Reason}
	}
	inv := res.Invitation
	return ValidationResponse{
		Valid:          true,
		Email:          inv.Email,
		Name:           inv.Name,
		Role:           string(inv.Role),
		OrganisationID: inv.OrganisationID,
		InviterName:    inv.InviterName,
		IsNewUser:      inv.IsNewUser,
		ExpiresAt:      inv.ExpiresAt.Format(time.RFC3339),
	}
}
