package http

import (
	"context"
	"net/http"

	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/domain"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/service"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/middleware"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/pagination"
)

// ReviewService is the review lifecycle used by the handlers.
type ReviewService interface {
	Submit(ctx context.Context, input *service.SubmitReviewInput) (*domain.Review, error)
	Update(ctx context.Context, reviewID, authorID string, input *service.UpdateReviewInput) (*domain.Review, error)
	Respond(ctx context.Context, reviewID, responderID, body string) (*domain.ReviewResponse, error)
	Vote(ctx context.Context, reviewID, voterID string, helpful bool) (*domain.Review, error)
	Report(ctx context.Context, reviewID, reporterID, reason string) (*domain.Review, error)
	Get(ctx context.Context, reviewID string, viewer service.Viewer) (*domain.Review, error)
	ListBySubject(ctx context.Context, subjectID string, kind domain.SubjectKind, params pagination.Params) (pagination.Result[domain.Review], error)
	ListByReviewer(ctx context.Context, reviewerID string, viewer service.Viewer, params pagination.Params) (pagination.Result[domain.Review], error)
}

// ModerationService applies moderator decisions.
type ModerationService interface {
	Decide(ctx context.Context, reviewID, moderatorID, decision, reason string) (*domain.Review, error)
	Remove(ctx context.Context, reviewID, moderatorID, reason string) (*domain.Review, error)
	ListFlagged(ctx context.Context, params pagination.Params) (pagination.Result[domain.Review], error)
	Audit(ctx context.Context, reviewID string) ([]domain.AuditEntry, error)
}

// RatingService serves and rebuilds subject ratings.
type RatingService interface {
	Get(ctx context.Context, subjectID string, kind domain.SubjectKind) (*domain.AggregatedRating, error)
	Recompute(ctx context.Context, subjectID string, kind domain.SubjectKind) (*domain.AggregatedRating, error)
}

func viewerFrom(r *http.Request) service.Viewer {
	return service.Viewer{
		UserID: middleware.UserIDFromContext(r.Context()),
		Role:   middleware.RoleFromContext(r.Context()),
	}
}
