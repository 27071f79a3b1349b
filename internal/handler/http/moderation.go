package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/httputil"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/middleware"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/pagination"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/validator"
)

// ModerationHandler handles the moderator endpoints.
type ModerationHandler struct {
	service ModerationService
	logger  *slog.Logger
}

// NewModerationHandler creates a new moderation HTTP handler.
func NewModerationHandler(svc ModerationService, logger *slog.Logger) *ModerationHandler {
	return &ModerationHandler{
		service: svc,
		logger:  logger,
	}
}

// DecisionRequest is the JSON request body for a moderation decision.
type DecisionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
	Reason   string `json:"reason" validate:"max=1000"`
}

// RemoveRequest is the JSON request body for removing a review.
type RemoveRequest struct {
	Reason string `json:"reason" validate:"required,notblank,max=1000"`
}

// ListFlagged handles GET /api/v1/admin/moderation/flagged
func (h *ModerationHandler) ListFlagged(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ListFlagged(r.Context(), pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// Decide handles POST /api/v1/admin/moderation/reviews/{id}/decision
func (h *ModerationHandler) Decide(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req DecisionRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	review, err := h.service.Decide(r.Context(), id.String(), middleware.UserIDFromContext(r.Context()), req.Decision, req.Reason)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, review)
}

// Remove handles POST /api/v1/admin/moderation/reviews/{id}/remove
func (h *ModerationHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req RemoveRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	review, err := h.service.Remove(r.Context(), id.String(), middleware.UserIDFromContext(r.Context()), req.Reason)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, review)
}

// Audit handles GET /api/v1/admin/moderation/reviews/{id}/audit
func (h *ModerationHandler) Audit(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	entries, err := h.service.Audit(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, entries)
}
