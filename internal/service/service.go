// Package service implements the review lifecycle, moderation decisions and
// subject ratings on top of the repositories.
package service

import (
	"context"
	"time"

	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/domain"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/eligibility"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/moderation"
)

// Audit check names for decisions taken outside the automatic pipeline.
const (
	CheckHumanReview = "human_review"
	CheckRemoval     = "removal"
	CheckReports     = "reports"
)

// ActorSystem is the audit actor of automatic decisions.
const ActorSystem = "system"

// EventPublisher publishes review domain events.
type EventPublisher interface {
	PublishReviewSubmitted(ctx context.Context, r *domain.Review) error
	PublishReviewUpdated(ctx context.Context, r *domain.Review) error
	PublishReviewModerated(ctx context.Context, r *domain.Review, actor string) error
	PublishReviewResponded(ctx context.Context, r *domain.Review, resp *domain.ReviewResponse) error
	PublishRatingRecomputed(ctx context.Context, agg *domain.AggregatedRating) error
}

// EligibilityChecker decides whether a reviewer may review a subject.
type EligibilityChecker interface {
	CanReview(ctx context.Context, reviewerID, subjectID string, kind domain.SubjectKind) (eligibility.Decision, error)
}

// Moderator screens a review. *moderation.Pipeline implements it.
type Moderator interface {
	Moderate(ctx context.Context, review *domain.Review, history domain.ReviewerHistory, now time.Time) moderation.Result
}

// RatingRecomputer rebuilds a subject rating.
type RatingRecomputer interface {
	Recompute(ctx context.Context, subjectID string, kind domain.SubjectKind) (*domain.AggregatedRating, error)
}

// Viewer is the caller on whose behalf reviews are read.
type Viewer struct {
	UserID string
	Role   string
}

// Moderates reports whether the viewer may see reviews in any status.
func (v Viewer) Moderates() bool {
	return v.Role == "moderator" || v.Role == "admin"
}

// canSee reports whether the viewer may read the review: published reviews
// are public, others only to their author and moderators.
func (v Viewer) canSee(r *domain.Review) bool {
	return r.Status.AggregationEligible() || v.UserID == r.ReviewerID || v.Moderates()
}
