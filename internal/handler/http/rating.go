package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/domain"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/httputil"
)

// RatingHandler serves subject ratings.
type RatingHandler struct {
	service RatingService
	logger  *slog.Logger
}

// NewRatingHandler creates a new rating HTTP handler.
func NewRatingHandler(svc RatingService, logger *slog.Logger) *RatingHandler {
	return &RatingHandler{
		service: svc,
		logger:  logger,
	}
}

// GetRating handles GET /api/v1/subjects/{kind}/{subjectId}/rating
func (h *RatingHandler) GetRating(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseSubjectKind(chi.URLParam(r, "kind"))
	if err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	agg, err := h.service.Get(r.Context(), chi.URLParam(r, "subjectId"), kind)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, agg)
}

// Recompute handles POST /api/v1/admin/subjects/{subjectId}/recompute. The
// optional kind query parameter names the subject kind when the subject has
// no stored rating yet.
func (h *RatingHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	var kind domain.SubjectKind
	if v := r.URL.Query().Get("kind"); v != "" {
		k, err := domain.ParseSubjectKind(v)
		if err != nil {
			httputil.WriteValidationError(w, err)
			return
		}
		kind = k
	}

	agg, err := h.service.Recompute(r.Context(), chi.URLParam(r, "subjectId"), kind)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.logger.InfoContext(r.Context(), "rating recompute requested",
		slog.String("subject_id", agg.SubjectID),
	)
	httputil.WriteData(w, http.StatusOK, agg)
}
