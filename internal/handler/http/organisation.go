package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/organisation"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
)

type OrganisationHandler interface {
	ListMine(w http.ResponseWriter, r *http.Request)
	Create(w http.ResponseWriter, r *http.Request)
	SwitchCurrent(w http.ResponseWriter, r *http.Request)

	// Tenant endpoints
	Get(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
	Permissions(w http.ResponseWriter, r *http.Request)
}

type organisationHandlerImpl struct {
	organisationService organisation.OrganisationService
	membershipService   user.MembershipService
}

func NewOrganisationHandler(organisationService organisation.OrganisationService, membershipService user.MembershipService) OrganisationHandler {
	return &organisationHandlerImpl{
		organisationService: organisationService,
		membershipService:   membershipService,
	}
}

// ListMine implements OrganisationHandler
func (h *organisationHandlerImpl) ListMine(w http.ResponseWriter, r *http.Request) {
	claims, err := jwt.ClaimsFromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	results, err := h.organisationService.ListMine(r.Context(), claims.UserID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, results)
}

// Create implements OrganisationHandler
func (h *organisationHandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	claims, err := jwt.ClaimsFromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	var req organisation.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.CreatorID = claims.UserID

	created, err := h.organisationService.Create(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Organisation created successfully", organisation.NewOrganisationResponse(created))
}

// SwitchCurrent implements OrganisationHandler
func (h *organisationHandlerImpl) SwitchCurrent(w http.ResponseWriter, r *http.Request) {
	claims, err := jwt.ClaimsFromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	var req user.SwitchOrganisationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	if err := h.membershipService.SwitchOrganisation(r.Context(), claims.UserID, req.OrganisationID); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Current organisation updated", map[string]string{"organisation_id": req.OrganisationID})
}

// Get implements OrganisationHandler
func (h *organisationHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	result, err := h.organisationService.GetByID(r.Context(), chi.URLParam(r, middleware.OrganisationIDParam))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Update implements OrganisationHandler
func (h *organisationHandlerImpl) Update(w http.ResponseWriter, r *http.Request) {
	claims, err := jwt.ClaimsFromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	var req organisation.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	result, err := h.organisationService.Update(r.Context(), chi.URLParam(r, middleware.OrganisationIDParam), claims.UserID, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Organisation updated successfully", result)
}

// Delete implements OrganisationHandler
func (h *organisationHandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	claims, err := jwt.ClaimsFromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.organisationService.Delete(r.Context(), chi.URLParam(r, middleware.OrganisationIDParam), claims.UserID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Organisation deleted successfully", map[string]int64{
		"members_removed":     result.MembersRemoved,
		"projects_archived":   result.ProjectsArchived,
		"teams_archived":      result.TeamsArchived,
		"invitations_revoked": result.InvitationsRevoked,
	})
}

// Permissions implements OrganisationHandler - the caller's capability record
func (h *organisationHandlerImpl) Permissions(w http.ResponseWriter, r *http.Request) {
	role, ok := middleware.RoleFromContext(r.Context())
	if !ok {
		response.HandleError(w, user.ErrForbidden)
		return
	}

	response.Success(w, map[string]any{
		"role":        role,
		"permissions": user.GetRolePermissions(role),
	})
}
