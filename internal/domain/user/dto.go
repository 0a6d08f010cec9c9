package user

import (
	"time"

	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/validator"
)

// MemberResponse - GET /organisations/{id}/members
type MemberResponse struct {
	UserID       string     `json:"user_id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Role         string     `json:"role"`
	IsActive     bool       `json:"is_active"`
	JoinedAt     time.Time  `json:"joined_at"`
	Banned       bool       `json:"banned"`
	BanReason    *string    `json:"ban_reason,omitempty"`
	BanExpiresAt *time.Time `json:"ban_expires_at,omitempty"`
}

func NewMemberResponse(m Member) MemberResponse {
	return MemberResponse{
		UserID:       m.UserID,
		Email:        m.Email,
		Name:         m.Name,
		Role:         string(m.Role),
		IsActive:     m.IsActive,
		JoinedAt:     m.JoinedAt,
		Banned:       m.Banned,
		BanReason:    m.BanReason,
		BanExpiresAt: m.BanExpiresAt,
	}
}

type ChangeRoleRequest struct {
	OrganisationID string `json:"-"`
	UserID         string `json:"-"`
	ActorID        string `json:"-"`
	Role           string `json:"role"`
}

func (r *ChangeRoleRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Role) {
		errs = append(errs, validator.ValidationError{
			Field:   "role",
			Message: "role is required",
		})
	} else if !Role(r.Role).IsValid() {
		errs = append(errs, validator.ValidationError{
			Field:   "role",
			Message: "role must be one of admin, manager, employee",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type BanRequest struct {
	OrganisationID string     `json:"-"`
	UserID         string     `json:"-"`
	BannedBy       string     `json:"-"`
	Reason         *string    `json:"reason,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

func (r *BanRequest) Validate(now time.Time) error {
	var errs validator.ValidationErrors

	if r.Reason != nil && !validator.MaxLength(*r.Reason, 500) {
		errs = append(errs, validator.ValidationError{
			Field:   "reason",
			Message: "reason must not exceed 500 characters",
		})
	}

	if r.ExpiresAt != nil && !r.ExpiresAt.After(now) {
		errs = append(errs, validator.ValidationError{
			Field:   "expires_at",
			Message: "expires_at must be in the future",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// SwitchOrganisationRequest - PUT /organisations/current
type SwitchOrganisationRequest struct {
	OrganisationID string `json:"organisation_id"`
}

func (r *SwitchOrganisationRequest) Validate() error {
	if validator.IsEmpty(r.OrganisationID) {
		return validator.ValidationErrors{{
			Field:   "organisation_id",
			Message: "organisation_id is required",
		}}
	}
	if !validator.IsValidUUID(r.OrganisationID) {
		return validator.ValidationErrors{{
			Field:   "organisation_id",
			Message: "organisation_id must be a valid id",
		}}
	}
	return nil
}
