package http

import (
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type AuditHandler interface {
	List(w http.ResponseWriter, r *http.Request)
}

type auditHandlerImpl struct {
	auditService audit.AuditService
}

func NewAuditHandler(auditService audit.AuditService) AuditHandler {
	return &auditHandlerImpl{auditService: auditService}
}

// List implements AuditHandler. ?before=<entry id>&limit=<n> pages backwards.
func (h *auditHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.ValidationError(w, map[string]string{"limit": "limit must be a number"})
			return
		}
		limit = n
	}

	entries, err := h.auditService.List(r.Context(), chi.URLParam(r, middleware.OrganisationIDParam), q.Get("before"), limit)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	meta := &response.Meta{Limit: limit}
	if len(entries) > 0 {
		meta.NextCursor = entries[len(entries)-1].ID
	}
	response.SuccessWithMeta(w, entries, meta)
}
