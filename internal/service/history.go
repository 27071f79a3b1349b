package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/domain"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/repository"
)

// AccountLookup returns when a user account was created.
type AccountLookup interface {
	AccountCreatedAt(ctx context.Context, userID string) (time.Time, error)
}

// ReviewerActivity is the read side of the review store used for history.
type ReviewerActivity interface {
	CountSince(ctx context.Context, reviewerID string, since time.Time) (int, error)
	ReviewerStats(ctx context.Context, reviewerID string, kind domain.SubjectKind) (float64, int, error)
}

// HistoryCollector assembles the reviewer history moderation needs.
type HistoryCollector struct {
	reviews  ReviewerActivity
	velocity repository.VelocityCounter
	accounts AccountLookup
	window   time.Duration
	logger   *slog.Logger
}

// NewHistoryCollector creates a collector. velocity and accounts may be nil:
// submissions are then counted in the database and account age is unknown.
func NewHistoryCollector(reviews ReviewerActivity, velocity repository.VelocityCounter, accounts AccountLookup, window time.Duration, logger *slog.Logger) *HistoryCollector {
	return &HistoryCollector{
		reviews:  reviews,
		velocity: velocity,
		accounts: accounts,
		window:   window,
		logger:   logger,
	}
}

// Collect builds the history of reviewerID at now. A new submission is
// counted towards velocity; an edit is not.
func (h *HistoryCollector) Collect(ctx context.Context, reviewerID string, kind domain.SubjectKind, now time.Time, newSubmission bool) (domain.ReviewerHistory, error) {
	var hist domain.ReviewerHistory

	n, err := h.recentSubmissions(ctx, reviewerID, now, newSubmission)
	if err != nil {
		return hist, err
	}
	hist.RecentSubmissions = n

	mean, count, err := h.reviews.ReviewerStats(ctx, reviewerID, kind)
	if err != nil {
		return hist, fmt.Errorf("reviewer stats: %w", err)
	}
	hist.MeanRating = mean
	hist.RatedCount = count

	if h.accounts != nil {
		created, err := h.accounts.AccountCreatedAt(ctx, reviewerID)
		if err != nil {
			h.logger.WarnContext(ctx, "account lookup failed",
				slog.String("reviewer_id", reviewerID),
				slog.String("error", err.Error()),
			)
			hist.AccountLookupFailed = true
		} else {
			hist.AccountCreatedAt = created
		}
	}
	return hist, nil
}

func (h *HistoryCollector) recentSubmissions(ctx context.Context, reviewerID string, now time.Time, newSubmission bool) (int, error) {
	if newSubmission && h.velocity != nil {
		n, err := h.velocity.Increment(ctx, reviewerID)
		if err == nil {
			return n, nil
		}
		h.logger.WarnContext(ctx, "velocity counter unavailable, counting in database",
			slog.String("reviewer_id", reviewerID),
			slog.String("error", err.Error()),
		)
	}

	n, err := h.reviews.CountSince(ctx, reviewerID, now.Add(-h.window))
	if err != nil {
		return 0, fmt.Errorf("count recent submissions: %w", err)
	}
	if newSubmission {
		n++
	}
	return n, nil
}
