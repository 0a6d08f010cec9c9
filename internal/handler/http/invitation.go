package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/invitation"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/email"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
)

type InvitationHandler interface {
	// Public endpoint - checks an invite link before sign-up
	Validate(w http.ResponseWriter, r *http.Request)

	// Authenticated endpoints
	ListMine(w http.ResponseWriter, r *http.Request)
	Accept(w http.ResponseWriter, r *http.Request)

	// Tenant endpoints
	Create(w http.ResponseWriter, r *http.Request)
	ListPending(w http.ResponseWriter, r *http.Request)
	Resend(w http.ResponseWriter, r *http.Request)
	Revoke(w http.ResponseWriter, r *http.Request)
}

type invitationHandlerImpl struct {
	invitationService invitation.InvitationService
	dispatcher        email.Dispatcher
	inviteBaseURL     string
	dashboardURL      string
}

func NewInvitationHandler(invitationService invitation.InvitationService, dispatcher email.Dispatcher, inviteBaseURL, dashboardURL string) InvitationHandler {
	return &invitationHandlerImpl{
		invitationService: invitationService,
		dispatcher:        dispatcher,
		inviteBaseURL:     inviteBaseURL,
		dashboardURL:      dashboardURL,
	}
}

// Validate implements InvitationHandler. Accepts either token/email/org query
// values or a full invite link in ?link=.
func (h *invitationHandlerImpl) Validate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	req := invitation.ValidateRequest{
		Token:          q.Get("token"),
		Email:          q.Get("email"),
		OrganisationID: q.Get("org"),
	}
	if link := q.Get("link"); link != "" {
		parsed, err := invitation.ParseInviteLink(link)
		if err != nil {
			response.HandleError(w, err)
			return
		}
		req = parsed
	}

	result, err := h.invitationService.Validate(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, invitation.NewValidationResponse(result))
}

// ListMine implements InvitationHandler - pending invitations addressed to the caller
func (h *invitationHandlerImpl) ListMine(w http.ResponseWriter, r *http.Request) {
	claims, err := jwt.ClaimsFromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	results, err := h.invitationService.ListMine(r.Context(), claims.Email)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, results)
}

// Accept implements InvitationHandler
func (h *invitationHandlerImpl) Accept(w http.ResponseWriter, r *http.Request) {
	claims, err := jwt.ClaimsFromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	req := invitation.AcceptRequest{
		Token:  chi.URLParam(r, "token"),
		Email:  claims.Email,
		UserID: &claims.UserID,
	}

	result, err := h.invitationService.Accept(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	res := h.dispatcher.SendWelcome(r.Context(), email.WelcomeEmail{
		Name:             result.InviteeName,
		Email:            result.InviteeEmail,
		OrganisationName: result.OrganisationName,
		Role:             result.Role,
		DashboardLink:    h.dashboardURL,
	})
	if !res.Success {
		slog.WarnContext(r.Context(), "failed to send welcome email", "organisation_id", result.OrganisationID, "error", res.Error)
	}

	response.SuccessWithMessage(w, "Invitation accepted successfully", result)
}

// Create implements InvitationHandler
func (h *invitationHandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	claims, err := jwt.ClaimsFromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	var req invitation.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.OrganisationID = chi.URLParam(r, middleware.OrganisationIDParam)
	req.InviterID = claims.UserID

	created, err := h.invitationService.Create(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	h.sendInvitation(r, created, req.Department)
	response.Created(w, "Invitation sent successfully", invitation.NewInvitationResponse(created.Invitation))
}

// sendInvitation dispatches the invitation email. Failures are logged and the
// invitation stays pending.
func (h *invitationHandlerImpl) sendInvitation(r *http.Request, inv invitation.InvitationWithOrganisation, department *string) {
	res := h.dispatcher.SendInvitation(r.Context(), email.InvitationEmail{
		InviterName:      inv.InviterName,
		InviterEmail:     inv.InviterEmail,
		InviteeName:      inv.Name,
		InviteeEmail:     inv.Email,
		Role:             string(inv.Role),
		Department:       department,
		InviteLink:       invitation.BuildInviteLink(h.inviteBaseURL, inv.Token, inv.Email, inv.OrganisationID),
		CustomMessage:    inv.CustomMessage,
		IsNewUser:        inv.IsNewUser,
		OrganisationName: inv.OrganisationName,
	})
	if !res.Success {
		slog.WarnContext(r.Context(), "failed to send invitation email",
			"invitation_id", inv.ID,
			"organisation_id", inv.OrganisationID,
			"error", res.Error,
		)
	}
}

// ListPending implements InvitationHandler
func (h *invitationHandlerImpl) ListPending(w http.ResponseWriter, r *http.Request) {
	results, err := h.invitationService.ListPending(r.Context(), chi.URLParam(r, middleware.OrganisationIDParam))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, results)
}

// Resend implements InvitationHandler
func (h *invitationHandlerImpl) Resend(w http.ResponseWriter, r *http.Request) {
	claims, err := jwt.ClaimsFromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	resent, err := h.invitationService.Resend(r.Context(), chi.URLParam(r, "token"), chi.URLParam(r, middleware.OrganisationIDParam), claims.UserID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	h.sendInvitation(r, resent, nil)
	response.SuccessWithMessage(w, "Invitation resent successfully", invitation.NewInvitationResponse(resent.Invitation))
}

// Revoke implements InvitationHandler
func (h *invitationHandlerImpl) Revoke(w http.ResponseWriter, r *http.Request) {
	claims, err := jwt.ClaimsFromContext(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	if err := h.invitationService.Revoke(r.Context(), chi.URLParam(r, "token"), chi.URLParam(r, middleware.OrganisationIDParam), claims.UserID); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Invitation revoked successfully", nil)
}
