// Package eligibility decides whether a reviewer may review a subject.
package eligibility

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/domain"
	apperrors "github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/errors"
)

// Reasons reported for ineligible reviewers.
const (
	ReasonNoCompletion    = "no_completion"
	ReasonDuplicateReview = "duplicate_review"
	ReasonWindowExpired   = "window_expired"
)

// Decision is the outcome of CanReview.
type Decision struct {
	Eligible   bool
	Reason     string
	Completion *domain.CompletionFact
}

// Err converts an ineligible decision to the matching application error.
func (d Decision) Err(reviewerID, subjectID string) error {
	switch {
	case d.Eligible:
		return nil
	case d.Reason == ReasonDuplicateReview:
		return apperrors.DuplicateReview(reviewerID, subjectID)
	default:
		return apperrors.NotEligible(d.Reason)
	}
}

// CompletionFinder returns the latest completion of a subject by a reviewer,
// or apperrors.ErrNotFound.
type CompletionFinder interface {
	Latest(ctx context.Context, reviewerID, subjectID string) (*domain.CompletionFact, error)
}

// LiveReviewFinder reports whether a non-removed review exists for the pair.
type LiveReviewFinder interface {
	ExistsLive(ctx context.Context, reviewerID, subjectID string) (bool, error)
}

// Checker applies the eligibility rules. It only reads.
type Checker struct {
	completions CompletionFinder
	reviews     LiveReviewFinder
	window      time.Duration
	now         func() time.Time
}

// NewChecker creates a Checker that accepts completions no older than window.
func NewChecker(completions CompletionFinder, reviews LiveReviewFinder, window time.Duration) *Checker {
	return &Checker{
		completions: completions,
		reviews:     reviews,
		window:      window,
		now:         time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (c *Checker) WithClock(now func() time.Time) *Checker {
	c.now = now
	return c
}

// CanReview fails closed: lookup errors are returned together with an
// ineligible decision.
func (c *Checker) CanReview(ctx context.Context, reviewerID, subjectID string, kind domain.SubjectKind) (Decision, error) {
	fact, err := c.completions.Latest(ctx, reviewerID, subjectID)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return Decision{Reason: ReasonNoCompletion}, nil
	case err != nil:
		return Decision{Reason: ReasonNoCompletion}, fmt.Errorf("lookup completion: %w", err)
	}
	if fact.SubjectKind != kind {
		return Decision{Reason: ReasonNoCompletion}, nil
	}

	exists, err := c.reviews.ExistsLive(ctx, reviewerID, subjectID)
	if err != nil {
		return Decision{Reason: ReasonDuplicateReview}, fmt.Errorf("lookup existing review: %w", err)
	}
	if exists {
		return Decision{Reason: ReasonDuplicateReview, Completion: fact}, nil
	}

	if c.now().Sub(fact.CompletedAt) > c.window {
		return Decision{Reason: ReasonWindowExpired, Completion: fact}, nil
	}

	return Decision{Eligible: true, Completion: fact}, nil
}
