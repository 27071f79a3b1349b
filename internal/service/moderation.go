package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/domain"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/repository"
	apperrors "github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/errors"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/pagination"
)

// Human moderation decisions on flagged reviews.
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

// ModerationService applies moderator decisions.
type ModerationService struct {
	reviews repository.ReviewRepository
	audit   repository.AuditRepository
	reports repository.ReportRepository
	ratings RatingRecomputer
	events  EventPublisher
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

// NewModerationService creates a new moderation service. ratings and events may be nil.
func NewModerationService(
	reviews repository.ReviewRepository,
	audit repository.AuditRepository,
	reports repository.ReportRepository,
	ratings RatingRecomputer,
	events EventPublisher,
	logger *slog.Logger,
) *ModerationService {
	return &ModerationService{
		reviews: reviews,
		audit:   audit,
		reports: reports,
		ratings: ratings,
		events:  events,
		logger:  logger,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
}

// WithClock replaces the time source, for tests.
func (s *ModerationService) WithClock(now func() time.Time) *ModerationService {
	s.now = now
	return s
}

// Decide approves or rejects a flagged review.
func (s *ModerationService) Decide(ctx context.Context, reviewID, moderatorID, decision, reason string) (*domain.Review, error) {
	var target domain.ModerationStatus
	var outcome string
	switch decision {
	case DecisionApprove:
		target, outcome = domain.StatusApproved, domain.OutcomePass
	case DecisionReject:
		target, outcome = domain.StatusRejected, domain.OutcomeReject
	default:
		return nil, apperrors.InvalidInput(fmt.Sprintf("decision must be %q or %q", DecisionApprove, DecisionReject))
	}

	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	if review.Status != domain.StatusFlagged {
		return nil, apperrors.Conflict(fmt.Sprintf("review %s is %s, not flagged", review.ID, review.Status))
	}

	return s.apply(ctx, review, target, CheckHumanReview, outcome, moderatorID, reason)
}

// Remove takes a published review down.
func (s *ModerationService) Remove(ctx context.Context, reviewID, moderatorID, reason string) (*domain.Review, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, apperrors.InvalidInput("removal reason is required")
	}

	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	return s.apply(ctx, review, domain.StatusRemoved, CheckRemoval, domain.OutcomeReject, moderatorID, reason)
}

func (s *ModerationService) apply(ctx context.Context, review *domain.Review, target domain.ModerationStatus, check, outcome, actor, reason string) (*domain.Review, error) {
	now := s.now().UTC()
	reason = strings.TrimSpace(reason)

	summary := check + ": " + outcome
	if reason != "" {
		summary += " (" + reason + ")"
	}
	from := review.Status
	if err := review.TransitionTo(target, summary, now); err != nil {
		return nil, err
	}

	audit := []domain.AuditEntry{{
		ID:        s.newID(),
		ReviewID:  review.ID,
		Check:     check,
		Outcome:   outcome,
		Detail:    reason,
		Actor:     actor,
		CreatedAt: now,
	}}
	if err := s.reviews.Update(ctx, review, from, audit); err != nil {
		return nil, fmt.Errorf("update review status: %w", err)
	}

	if err := s.reports.ResolveAll(ctx, review.ID); err != nil {
		s.logger.WarnContext(ctx, "failed to resolve reports",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review moderated",
		slog.String("review_id", review.ID),
		slog.String("status", string(review.Status)),
		slog.String("moderator_id", actor),
	)

	if s.events != nil {
		if err := s.events.PublishReviewModerated(ctx, review, actor); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish review.moderated event",
				slog.String("review_id", review.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	recomputeQuietly(ctx, s.ratings, s.logger, review)
	return review, nil
}

// ListFlagged returns the moderation queue, oldest first.
func (s *ModerationService) ListFlagged(ctx context.Context, params pagination.Params) (pagination.Result[domain.Review], error) {
	reviews, total, err := s.reviews.List(ctx, repository.ReviewFilter{
		Statuses: []domain.ModerationStatus{domain.StatusFlagged},
		Sort:     domain.SortOldest,
		Page:     params.Page,
		PerPage:  params.PerPage,
	})
	if err != nil {
		return pagination.Result[domain.Review]{}, fmt.Errorf("list flagged reviews: %w", err)
	}
	return pagination.NewResult(reviews, total, params), nil
}

// Audit returns the audit trail of a review.
func (s *ModerationService) Audit(ctx context.Context, reviewID string) ([]domain.AuditEntry, error) {
	if _, err := s.reviews.GetByID(ctx, reviewID); err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	entries, err := s.audit.ListByReview(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}
