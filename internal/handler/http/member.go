package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

type MemberHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	ChangeRole(w http.ResponseWriter, r *http.Request)
	Remove(w http.ResponseWriter, r *http.Request)
	Ban(w http.ResponseWriter, r *http.Request)
	Unban(w http.ResponseWriter, r *http.Request)
}

type memberHandlerImpl struct {
	membershipService user.MembershipService
}

func NewMemberHandler(membershipService user.MembershipService) MemberHandler {
	return &memberHandlerImpl{membershipService: membershipService}
}

// List implements MemberHandler
func (h *memberHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	results, err := h.membershipService.ListMembers(r.Context(), chi.URLParam(r, middleware.OrganisationIDParam))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, results)
}

// ChangeRole implements MemberHandler
func (h *memberHandlerImpl) ChangeRole(w http.ResponseWriter, r *http.Request) {
	claims, err := jwt.ClaimsFromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	var req user.ChangeRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.OrganisationID = chi.URLParam(r, middleware.OrganisationIDParam)
	req.UserID, err = targetUserID(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	req.ActorID = claims.UserID

	if err := h.membershipService.ChangeRole(r.Context(), req); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Member role updated successfully", nil)
}

// Remove implements MemberHandler
func (h *memberHandlerImpl) Remove(w http.ResponseWriter, r *http.Request) {
	claims, err := jwt.ClaimsFromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	userID, err := targetUserID(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	err = h.membershipService.Remove(r.Context(), chi.URLParam(r, middleware.OrganisationIDParam), userID, claims.UserID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Member removed successfully", nil)
}

// Ban implements MemberHandler. The body is optional.
func (h *memberHandlerImpl) Ban(w http.ResponseWriter, r *http.Request) {
	claims, err := jwt.ClaimsFromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	var req user.BanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.OrganisationID = chi.URLParam(r, middleware.OrganisationIDParam)
	req.UserID, err = targetUserID(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	req.BannedBy = claims.UserID

	if err := h.membershipService.Ban(r.Context(), req); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Member banned successfully", nil)
}

// Unban implements MemberHandler
func (h *memberHandlerImpl) Unban(w http.ResponseWriter, r *http.Request) {
	claims, err := jwt.ClaimsFromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	userID, err := targetUserID(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	err = h.membershipService.Unban(r.Context(), chi.URLParam(r, middleware.OrganisationIDParam), userID, claims.UserID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Member unbanned successfully", nil)
}

// targetUserID reads the {userID} path parameter.
func targetUserID(r *http.Request) (string, error) {
	userID := chi.URLParam(r, "userID")
	if !validator.IsUUID(userID) {
		return "", validator.ValidationErrors{{
			Field:   "userID",
			Message: "userID must be a valid id",
		}}
	}
	return userID, nil
}
