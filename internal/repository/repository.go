package repository

import (
	"context"
	"time"

	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/domain"
)

// ReviewFilter defines filter criteria for listing reviews.
type ReviewFilter struct {
	SubjectID   string
	SubjectKind domain.SubjectKind
	ReviewerID  string
	Statuses    []domain.ModerationStatus
	Sort        string
	Page        int
	PerPage     int
}

// ReviewRepository defines persistence for reviews. Create and Update write
// the review and its audit entries in one transaction.
type ReviewRepository interface {
	// Create inserts a review. A second live review for the same reviewer
	// and subject fails with apperrors.ErrDuplicateReview.
	Create(ctx context.Context, review *domain.Review, audit []domain.AuditEntry) error

	// GetByID returns apperrors.ErrNotFound when no review has id.
	GetByID(ctx context.Context, id string) (*domain.Review, error)

	// Update stores content, status and reason of an existing review whose
	// stored status is still from. A review that moved to another status in
	// the meantime fails with apperrors.ErrConflict and nothing is written.
	Update(ctx context.Context, review *domain.Review, from domain.ModerationStatus, audit []domain.AuditEntry) error

	// ExistsLive reports whether the reviewer has a non-removed review of the subject.
	ExistsLive(ctx context.Context, reviewerID, subjectID string) (bool, error)

	// List returns one page of reviews matching filter and the total count.
	List(ctx context.Context, filter ReviewFilter) ([]domain.Review, int, error)

	// ListEligible returns every aggregation-eligible review of a subject.
	ListEligible(ctx context.Context, subjectID string) ([]domain.Review, error)

	// CountSince counts reviews the reviewer created at or after since.
	CountSince(ctx context.Context, reviewerID string, since time.Time) (int, error)

	// ReviewerStats returns the mean overall rating and count of the
	// reviewer's non-rejected, non-removed reviews of subjects of kind.
	ReviewerStats(ctx context.Context, reviewerID string, kind domain.SubjectKind) (mean float64, count int, err error)
}

// AuditRepository reads and appends moderation audit entries.
type AuditRepository interface {
	Append(ctx context.Context, entries ...domain.AuditEntry) error
	ListByReview(ctx context.Context, reviewID string) ([]domain.AuditEntry, error)
}

// CompletionRepository stores completion facts from lesson and course events.
type CompletionRepository interface {
	// Upsert keeps the latest completion per reviewer and subject.
	Upsert(ctx context.Context, fact *domain.CompletionFact) error

	// Latest returns apperrors.ErrNotFound when the reviewer never completed
	// anything with the subject.
	Latest(ctx context.Context, reviewerID, subjectID string) (*domain.CompletionFact, error)

	// OwnerOf returns the owner recorded for a subject, or apperrors.ErrNotFound.
	OwnerOf(ctx context.Context, subjectID string) (string, error)
}

// VoteRepository stores helpfulness votes.
type VoteRepository interface {
	// Upsert records the vote, replacing any earlier vote of the same voter,
	// and refreshes the review's counters atomically. It returns the new counts.
	Upsert(ctx context.Context, vote *domain.Vote) (helpful, unhelpful int, err error)
}

// ResponseRepository stores owner responses.
type ResponseRepository interface {
	Upsert(ctx context.Context, resp *domain.ReviewResponse) error
	GetByReview(ctx context.Context, reviewID string) (*domain.ReviewResponse, error)
}

// ReportRepository stores user reports against reviews.
type ReportRepository interface {
	// Create records a report, ignoring repeats by the same reporter, and
	// returns the number of open reports on the review.
	Create(ctx context.Context, report *domain.Report) (open int, err error)

	// ResolveAll closes every open report on a review.
	ResolveAll(ctx context.Context, reviewID string) error
}

// BuildFunc computes a rating from the eligible reviews of a subject.
type BuildFunc func(reviews []domain.Review) (*domain.AggregatedRating, error)

// AggregateRepository persists computed ratings.
type AggregateRepository interface {
	// Rebuild reads the eligible reviews of a subject, passes them to build
	// and stores the result with the next version. Rebuilds of one subject
	// are serialized across every instance sharing the database.
	Rebuild(ctx context.Context, subjectID string, build BuildFunc) (*domain.AggregatedRating, error)

	// Get returns apperrors.ErrNotFound when the subject was never computed.
	Get(ctx context.Context, subjectID string) (*domain.AggregatedRating, error)
}

// AggregateCache is a read-through cache in front of AggregateRepository.
type AggregateCache interface {
	// Get returns (nil, nil) on a miss.
	Get(ctx context.Context, subjectID string) (*domain.AggregatedRating, error)

	// Set stores agg unless the cache already holds a higher version.
	Set(ctx context.Context, agg *domain.AggregatedRating) error
	Delete(ctx context.Context, subjectID string) error
}

// VelocityCounter counts a reviewer's submissions in the current window.
type VelocityCounter interface {
	// Increment records one submission and returns the count in the window,
	// including this one.
	Increment(ctx context.Context, reviewerID string) (int, error)
}
