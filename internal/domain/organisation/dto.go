package organisation

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/validator"
)

type OrganisationResponse struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Slug             string         `json:"slug"`
	Description      *string        `json:"description,omitempty"`
	ContactEmail     *string        `json:"contact_email,omitempty"`
	Website          *string        `json:"website,omitempty"`
	SubscriptionTier string         `json:"subscription_tier"`
	Settings         map[string]any `json:"settings"`
	OwnerID          string         `json:"owner_id"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

func NewOrganisationResponse(o Organisation) OrganisationResponse {
	settings := o.Settings
	if settings == nil {
		settings = map[string]any{}
	}
	return OrganisationResponse{
		ID:               o.ID,
		Name:             o.Name,
		Slug:             o.Slug,
		Description:      o.Description,
		ContactEmail:     o.ContactEmail,
		Website:          o.Website,
		SubscriptionTier: string(o.SubscriptionTier),
		Settings:         settings,
		OwnerID:          o.OwnerID,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
}

// MyOrganisationResponse - GET /organisations/my
type MyOrganisationResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Role      string    `json:"role"`
	JoinedAt  time.Time `json:"joined_at"`
	IsCurrent bool      `json:"is_current"`
}

type CreateRequest struct {
	CreatorID    string         `json:"-"` // From JWT
	Name         string         `json:"name"`
	Slug         string         `json:"slug"`
	Description  *string        `json:"description,omitempty"`
	ContactEmail *string        `json:"contact_email,omitempty"`
	Website      *string        `json:"website,omitempty"`
	Settings     map[string]any `json:"settings,omitempty"`
}

func (r *CreateRequest) Validate() error {
	var errs validator.ValidationErrors

	r.Name = strings.TrimSpace(r.Name)
	r.Slug = strings.ToLower(strings.TrimSpace(r.Slug))

	if validator.IsEmpty(r.CreatorID) {
		errs = append(errs, validator.ValidationError{
			Field:   "creator_id",
			Message: "creator_id is required",
		})
	}

	if r.Name == "" {
		errs = append(errs, validator.ValidationError{
			Field:   "name",
			Message: "name is required",
		})
	} else if !validator.MaxLength(r.Name, 255) {
		errs = append(errs, validator.ValidationError{
			Field:   "name",
			Message: "name must not exceed 255 characters",
		})
	} else if validator.HasControlChars(r.Name) {
		errs = append(errs, validator.ValidationError{
			Field:   "name",
			Message: "name must not contain control characters",
		})
	}

	if !validator.IsValidSlug(r.Slug) {
		errs = append(errs, validator.ValidationError{
			Field:   "slug",
			Message: "slug must be 3-50 lowercase letters, digits or dashes",
		})
	}

	errs = append(errs, validateContact(r.ContactEmail, r.Website)...)

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// UpdateRequest is a partial update; nil fields are left unchanged.
type UpdateRequest struct {
	Name             *string        `json:"name,omitempty"`
	Description      *string        `json:"description,omitempty"`
	ContactEmail     *string        `json:"contact_email,omitempty"`
	Website          *string        `json:"website,omitempty"`
	SubscriptionTier *string        `json:"subscription_tier,omitempty"`
	Settings         map[string]any `json:"settings,omitempty"`
}

func (r *UpdateRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.Name != nil {
		if validator.IsEmpty(*r.Name) {
			errs = append(errs, validator.ValidationError{
				Field:   "name",
				Message: "name cannot be empty",
			})
		} else if !validator.MaxLength(*r.Name, 255) {
			errs = append(errs, validator.ValidationError{
				Field:   "name",
				Message: "name must not exceed 255 characters",
			})
		} else if validator.HasControlChars(*r.Name) {
			errs = append(errs, validator.ValidationError{
				Field:   "name",
				Message: "name must not contain control characters",
			})
		}
	}

	if r.SubscriptionTier != nil && !SubscriptionTier(*r.SubscriptionTier).IsValid() {
		errs = append(errs, validator.ValidationError{
			Field:   "subscription_tier",
			Message: "subscription_tier must be one of free, pro, enterprise",
		})
	}

	errs = append(errs, validateContact(r.ContactEmail, r.Website)...)

	if len(errs) > 0 {
		return errs
	}

	return nil
}

func validateContact(email, website *string) validator.ValidationErrors {
	var errs validator.ValidationErrors
	if email != nil && !validator.IsValidEmail(*email) {
		errs = append(errs, validator.ValidationError{
			Field:   "contact_email",
			Message: "contact_email format is invalid",
		})
	}
	if website != nil && !validator.IsValidURL(*website) {
		errs = append(errs, validator.ValidationError{
			Field:   "website",
			Message: "website must be an http(s) URL",
		})
	}
	return errs
}
