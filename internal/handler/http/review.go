package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/domain"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/service"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/httputil"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/middleware"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/pagination"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/validator"
)

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	service ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CategoryRatingRequest is one rated category in a review body.
type CategoryRatingRequest struct {
	Category string `json:"category" validate:"required"`
	Rating   int    `json:"rating" validate:"required,min=1,max=5"`
}

// SubmitReviewRequest is the JSON request body for submitting a review.
type SubmitReviewRequest struct {
	SubjectID     string                  `json:"subject_id" validate:"required,max=100"`
	SubjectKind   string                  `json:"subject_kind" validate:"required"`
	OverallRating int                     `json:"overall_rating" validate:"required,min=1,max=5"`
	Categories    []CategoryRatingRequest `json:"categories" validate:"max=6,dive"`
	Title         string                  `json:"title" validate:"max=200"`
	Body          string                  `json:"body" validate:"required,notblank,max=5000"`
}

// UpdateReviewRequest is the JSON request body for editing a review.
// Omitted fields are left unchanged.
type UpdateReviewRequest struct {
	OverallRating *int                     `json:"overall_rating" validate:"omitempty,min=1,max=5"`
	Categories    *[]CategoryRatingRequest `json:"categories"`
	Title         *string                  `json:"title" validate:"omitempty,max=200"`
	Body          *string                  `json:"body" validate:"omitempty,max=5000"`
}

// RespondRequest is the JSON request body for an owner response.
type RespondRequest struct {
	Body string `json:"body" validate:"required,notblank,max=5000"`
}

// VoteRequest is the JSON request body for a helpfulness vote.
type VoteRequest struct {
	Helpful *bool `json:"helpful" validate:"required"`
}

// ReportRequest is the JSON request body for reporting a review.
type ReportRequest struct {
	Reason string `json:"reason" validate:"required,notblank,max=1000"`
}

func toCategories(in []CategoryRatingRequest) []domain.CategoryRating {
	out := make([]domain.CategoryRating, 0, len(in))
	for _, c := range in {
		out = append(out, domain.CategoryRating{Category: domain.Category(c.Category), Rating: c.Rating})
	}
	return out
}

// --- Handlers ---

// SubmitReview handles POST /api/v1/reviews
func (h *ReviewHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	var req SubmitReviewRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	kind, err := domain.ParseSubjectKind(req.SubjectKind)
	if err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	review, err := h.service.Submit(r.Context(), &service.SubmitReviewInput{
		ReviewerID:    middleware.UserIDFromContext(r.Context()),
		SubjectID:     req.SubjectID,
		SubjectKind:   kind,
		OverallRating: req.OverallRating,
		Categories:    toCategories(req.Categories),
		Title:         req.Title,
		Body:          req.Body,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, review)
}

// GetReview handles GET /api/v1/reviews/{id}
func (h *ReviewHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	review, err := h.service.Get(r.Context(), id.String(), viewerFrom(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, review)
}

// UpdateReview handles PATCH /api/v1/reviews/{id}
func (h *ReviewHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateReviewRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	input := &service.UpdateReviewInput{
		OverallRating: req.OverallRating,
		Title:         req.Title,
		Body:          req.Body,
	}
	if req.Categories != nil {
		cats := toCategories(*req.Categories)
		input.Categories = &cats
	}

	review, err := h.service.Update(r.Context(), id.String(), middleware.UserIDFromContext(r.Context()), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, review)
}

// RespondToReview handles POST /api/v1/reviews/{id}/response
func (h *ReviewHandler) RespondToReview(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req RespondRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	resp, err := h.service.Respond(r.Context(), id.String(), middleware.UserIDFromContext(r.Context()), req.Body)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, resp)
}

// VoteReview handles PUT /api/v1/reviews/{id}/vote
func (h *ReviewHandler) VoteReview(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req VoteRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	review, err := h.service.Vote(r.Context(), id.String(), middleware.UserIDFromContext(r.Context()), *req.Helpful)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, map[string]int{
		"helpful_count":     review.HelpfulCount,
		"unhelpful_count":   review.UnhelpfulCount,
		"helpfulness_score": review.HelpfulnessScore,
	})
}

// ReportReview handles POST /api/v1/reviews/{id}/reports
func (h *ReviewHandler) ReportReview(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req ReportRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if _, err := h.service.Report(r.Context(), id.String(), middleware.UserIDFromContext(r.Context()), req.Reason); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// ListSubjectReviews handles GET /api/v1/subjects/{kind}/{subjectId}/reviews
func (h *ReviewHandler) ListSubjectReviews(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseSubjectKind(chi.URLParam(r, "kind"))
	if err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	params := pagination.FromRequest(r, domain.SortRecent, domain.SortHelpful)
	result, err := h.service.ListBySubject(r.Context(), chi.URLParam(r, "subjectId"), kind, params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// ListReviewerReviews handles GET /api/v1/reviewers/{reviewerId}/reviews
func (h *ReviewHandler) ListReviewerReviews(w http.ResponseWriter, r *http.Request) {
	reviewerID := chi.URLParam(r, "reviewerId")
	if reviewerID == "me" {
		reviewerID = middleware.UserIDFromContext(r.Context())
	}

	result, err := h.service.ListByReviewer(r.Context(), reviewerID, viewerFrom(r), pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}
