package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/verification"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/handler/http/response"
)

type VerificationHandler interface {
	SendCode(w http.ResponseWriter, r *http.Request)
	VerifyCode(w http.ResponseWriter, r *http.Request)
}

type verificationHandlerImpl struct {
	verificationService verification.VerificationService
}

func NewVerificationHandler(verificationService verification.VerificationService) VerificationHandler {
	return &verificationHandlerImpl{verificationService: verificationService}
}

// SendCode implements VerificationHandler
func (h *verificationHandlerImpl) SendCode(w http.ResponseWriter, r *http.Request) {
	var req verification.SendCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	if err := h.verificationService.SendCode(r.Context(), req); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Verification code sent", nil)
}

// VerifyCode implements VerificationHandler
func (h *verificationHandlerImpl) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req verification.VerifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	if err := h.verificationService.VerifyCode(r.Context(), req); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Email verified successfully", nil)
}
