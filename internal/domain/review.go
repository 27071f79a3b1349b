package domain

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/errors"
)

// Rating bounds shared by overall and category ratings.
const (
	MinRating = 1
	MaxRating = 5
)

// Text limits for reviews and responses.
const (
	MaxTitleLength = 200
	MaxBodyLength  = 5000
)

// Review sort orders for subject listings.
const (
	SortRecent  = "recent"
	SortHelpful = "helpful"
	SortOldest  = "oldest"
)

// CategoryRating is one rated dimension of a review.
type CategoryRating struct {
	Category Category `json:"category"`
	Rating   int      `json:"rating"`
}

// Review is a reviewer's assessment of one tutor or course.
type Review struct {
	ID               string           `json:"id"`
	ReviewerID       string           `json:"reviewer_id"`
	SubjectID        string           `json:"subject_id"`
	SubjectKind      SubjectKind      `json:"subject_kind"`
	OverallRating    int              `json:"overall_rating"`
	Categories       []CategoryRating `json:"categories"`
	Title            string           `json:"title"`
	Body             string           `json:"body"`
	HelpfulCount     int              `json:"helpful_count"`
	UnhelpfulCount   int              `json:"unhelpful_count"`
	HelpfulnessScore int              `json:"helpfulness_score"`
	Status           ModerationStatus `json:"status"`
	ModerationReason string           `json:"moderation_reason,omitempty"`
	Response         *ReviewResponse  `json:"response,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// Validate checks the rating bounds and that every category belongs to the
// subject kind, at most once.
func (r *Review) Validate() error {
	if !r.SubjectKind.Valid() {
		return apperrors.InvalidInput(fmt.Sprintf("unknown subject kind %q", r.SubjectKind))
	}
	if !validRating(r.OverallRating) {
		return apperrors.InvalidInput(fmt.Sprintf("overall rating must be between %d and %d", MinRating, MaxRating))
	}
	if strings.TrimSpace(r.Body) == "" {
		return apperrors.InvalidInput("review body is required")
	}
	if len(r.Title) > MaxTitleLength || len(r.Body) > MaxBodyLength {
		return apperrors.InvalidInput("review title or body is too long")
	}

	seen := make(map[Category]struct{}, len(r.Categories))
	for _, c := range r.Categories {
		if !r.SubjectKind.Allows(c.Category) {
			return apperrors.InvalidInput(fmt.Sprintf("category %q is not valid for %s reviews", c.Category, r.SubjectKind))
		}
		if _, dup := seen[c.Category]; dup {
			return apperrors.InvalidInput(fmt.Sprintf("category %q is rated more than once", c.Category))
		}
		seen[c.Category] = struct{}{}
		if !validRating(c.Rating) {
			return apperrors.InvalidInput(fmt.Sprintf("rating for %q must be between %d and %d", c.Category, MinRating, MaxRating))
		}
	}
	return nil
}

// CategoryRating returns the rating given for c, if any.
func (r *Review) CategoryRating(c Category) (int, bool) {
	for _, cr := range r.Categories {
		if cr.Category == c {
			return cr.Rating, true
		}
	}
	return 0, false
}

// CheckEditable returns nil when the author may still change the review at
// now: within window of creation and not rejected or removed.
func (r *Review) CheckEditable(now time.Time, window time.Duration) error {
	if !r.Status.Editable() {
		return apperrors.PolicyViolation(fmt.Sprintf("review in status %s cannot be edited", r.Status))
	}
	if now.Sub(r.CreatedAt) > window {
		return apperrors.WindowExpired(r.ID)
	}
	return nil
}

// TransitionTo moves the review to target, recording reason.
func (r *Review) TransitionTo(target ModerationStatus, reason string, now time.Time) error {
	if !r.Status.CanTransitionTo(target) {
		return apperrors.Conflict(fmt.Sprintf("review %s cannot move from %s to %s", r.ID, r.Status, target))
	}
	r.Status = target
	r.ModerationReason = reason
	r.UpdatedAt = now
	return nil
}

// ApplyVoteCounts sets the vote counters and the derived helpfulness score.
func (r *Review) ApplyVoteCounts(helpful, unhelpful int) {
	r.HelpfulCount = helpful
	r.UnhelpfulCount = unhelpful
	r.HelpfulnessScore = helpful - unhelpful
}

// Text returns title and body joined, for content checks.
func (r *Review) Text() string {
	if r.Title == "" {
		return r.Body
	}
	return r.Title + "\n" + r.Body
}

func validRating(v int) bool {
	return v >= MinRating && v <= MaxRating
}
