package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/domain"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/repository"
)

// --- Mock Repositories ---

type mockReviewRepository struct {
	mock.Mock
}

func (m *mockReviewRepository) Create(ctx context.Context, review *domain.Review, audit []domain.AuditEntry) error {
	args := m.Called(ctx, review, audit)
	return args.Error(0)
}

func (m *mockReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) Update(ctx context.Context, review *domain.Review, from domain.ModerationStatus, audit []domain.AuditEntry) error {
	args := m.Called(ctx, review, from, audit)
	return args.Error(0)
}

func (m *mockReviewRepository) ExistsLive(ctx context.Context, reviewerID, subjectID string) (bool, error) {
	args := m.Called(ctx, reviewerID, subjectID)
	return args.Bool(0), args.Error(1)
}

func (m *mockReviewRepository) List(ctx context.Context, filter repository.ReviewFilter) ([]domain.Review, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Review), args.Int(1), args.Error(2)
}

func (m *mockReviewRepository) ListEligible(ctx context.Context, subjectID string) ([]domain.Review, error) {
	args := m.Called(ctx, subjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Review), args.Error(1)
}

func (m *mockReviewRepository) CountSince(ctx context.Context, reviewerID string, since time.Time) (int, error) {
	args := m.Called(ctx, reviewerID, since)
	return args.Int(0), args.Error(1)
}

func (m *mockReviewRepository) ReviewerStats(ctx context.Context, reviewerID string, kind domain.SubjectKind) (float64, int, error) {
	args := m.Called(ctx, reviewerID, kind)
	return args.Get(0).(float64), args.Int(1), args.Error(2)
}

type mockAuditRepository struct {
	mock.Mock
}

func (m *mockAuditRepository) Append(ctx context.Context, entries ...domain.AuditEntry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *mockAuditRepository) ListByReview(ctx context.Context, reviewID string) ([]domain.AuditEntry, error) {
	args := m.Called(ctx, reviewID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AuditEntry), args.Error(1)
}

type mockCompletionRepository struct {
	mock.Mock
}

func (m *mockCompletionRepository) Upsert(ctx context.Context, fact *domain.CompletionFact) error {
	args := m.Called(ctx, fact)
	return args.Error(0)
}

func (m *mockCompletionRepository) Latest(ctx context.Context, reviewerID, subjectID string) (*domain.CompletionFact, error) {
	args := m.Called(ctx, reviewerID, subjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CompletionFact), args.Error(1)
}

func (m *mockCompletionRepository) OwnerOf(ctx context.Context, subjectID string) (string, error) {
	args := m.Called(ctx, subjectID)
	return args.String(0), args.Error(1)
}

type mockVoteRepository struct {
	mock.Mock
}

func (m *mockVoteRepository) Upsert(ctx context.Context, vote *domain.Vote) (int, int, error) {
	args := m.Called(ctx, vote)
	return args.Int(0), args.Int(1), args.Error(2)
}

type mockResponseRepository struct {
	mock.Mock
}

func (m *mockResponseRepository) Upsert(ctx context.Context, resp *domain.ReviewResponse) error {
	args := m.Called(ctx, resp)
	return args.Error(0)
}

func (m *mockResponseRepository) GetByReview(ctx context.Context, reviewID string) (*domain.ReviewResponse, error) {
	args := m.Called(ctx, reviewID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReviewResponse), args.Error(1)
}

type mockReportRepository struct {
	mock.Mock
}

func (m *mockReportRepository) Create(ctx context.Context, report *domain.Report) (int, error) {
	args := m.Called(ctx, report)
	return args.Int(0), args.Error(1)
}

func (m *mockReportRepository) ResolveAll(ctx context.Context, reviewID string) error {
	args := m.Called(ctx, reviewID)
	return args.Error(0)
}

type mockAggregateRepository struct {
	mock.Mock
}

// Rebuild hands the configured reviews to build; a configured error stands
// for a failed read or save.
func (m *mockAggregateRepository) Rebuild(ctx context.Context, subjectID string, build repository.BuildFunc) (*domain.AggregatedRating, error) {
	args := m.Called(ctx, subjectID)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	return build(args.Get(0).([]domain.Review))
}

func (m *mockAggregateRepository) Get(ctx context.Context, subjectID string) (*domain.AggregatedRating, error) {
	args := m.Called(ctx, subjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AggregatedRating), args.Error(1)
}

type mockAggregateCache struct {
	mock.Mock
}

func (m *mockAggregateCache) Get(ctx context.Context, subjectID string) (*domain.AggregatedRating, error) {
	args := m.Called(ctx, subjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AggregatedRating), args.Error(1)
}

func (m *mockAggregateCache) Set(ctx context.Context, agg *domain.AggregatedRating) error {
	args := m.Called(ctx, agg)
	return args.Error(0)
}

func (m *mockAggregateCache) Delete(ctx context.Context, subjectID string) error {
	args := m.Called(ctx, subjectID)
	return args.Error(0)
}

type mockVelocityCounter struct {
	mock.Mock
}

func (m *mockVelocityCounter) Increment(ctx context.Context, reviewerID string) (int, error) {
	args := m.Called(ctx, reviewerID)
	return args.Int(0), args.Error(1)
}

// --- Mock Collaborators ---

type mockAccounts struct {
	mock.Mock
}

func (m *mockAccounts) AccountCreatedAt(ctx context.Context, userID string) (time.Time, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(time.Time), args.Error(1)
}

type mockRatings struct {
	mock.Mock
}

func (m *mockRatings) Recompute(ctx context.Context, subjectID string, kind domain.SubjectKind) (*domain.AggregatedRating, error) {
	args := m.Called(ctx, subjectID, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AggregatedRating), args.Error(1)
}

type mockEvents struct {
	mock.Mock
}

func (m *mockEvents) PublishReviewSubmitted(ctx context.Context, r *domain.Review) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockEvents) PublishReviewUpdated(ctx context.Context, r *domain.Review) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockEvents) PublishReviewModerated(ctx context.Context, r *domain.Review, actor string) error {
	return m.Called(ctx, r, actor).Error(0)
}

func (m *mockEvents) PublishReviewResponded(ctx context.Context, r *domain.Review, resp *domain.ReviewResponse) error {
	return m.Called(ctx, r, resp).Error(0)
}

func (m *mockEvents) PublishRatingRecomputed(ctx context.Context, agg *domain.AggregatedRating) error {
	return m.Called(ctx, agg).Error(0)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
