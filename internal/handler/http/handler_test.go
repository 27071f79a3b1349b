package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/domain"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/service"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/health"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/httputil"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/middleware"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/pagination"
)

// --- Mock Services ---

type mockReviewService struct {
	mock.Mock
}

func (m *mockReviewService) Submit(ctx context.Context, input *service.SubmitReviewInput) (*domain.Review, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewService) Update(ctx context.Context, reviewID, authorID string, input *service.UpdateReviewInput) (*domain.Review, error) {
	args := m.Called(ctx, reviewID, authorID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewService) Respond(ctx context.Context, reviewID, responderID, body string) (*domain.ReviewResponse, error) {
	args := m.Called(ctx, reviewID, responderID, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReviewResponse), args.Error(1)
}

func (m *mockReviewService) Vote(ctx context.Context, reviewID, voterID string, helpful bool) (*domain.Review, error) {
	args := m.Called(ctx, reviewID, voterID, helpful)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewService) Report(ctx context.Context, reviewID, reporterID, reason string) (*domain.Review, error) {
	args := m.Called(ctx, reviewID, reporterID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewService) Get(ctx context.Context, reviewID string, viewer service.Viewer) (*domain.Review, error) {
	args := m.Called(ctx, reviewID, viewer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewService) ListBySubject(ctx context.Context, subjectID string, kind domain.SubjectKind, params pagination.Params) (pagination.Result[domain.Review], error) {
	args := m.Called(ctx, subjectID, kind, params)
	return args.Get(0).(pagination.Result[domain.Review]), args.Error(1)
}

func (m *mockReviewService) ListByReviewer(ctx context.Context, reviewerID string, viewer service.Viewer, params pagination.Params) (pagination.Result[domain.Review], error) {
	args := m.Called(ctx, reviewerID, viewer, params)
	return args.Get(0).(pagination.Result[domain.Review]), args.Error(1)
}

type mockModerationService struct {
	mock.Mock
}

func (m *mockModerationService) Decide(ctx context.Context, reviewID, moderatorID, decision, reason string) (*domain.Review, error) {
	args := m.Called(ctx, reviewID, moderatorID, decision, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockModerationService) Remove(ctx context.Context, reviewID, moderatorID, reason string) (*domain.Review, error) {
	args := m.Called(ctx, reviewID, moderatorID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockModerationService) ListFlagged(ctx context.Context, params pagination.Params) (pagination.Result[domain.Review], error) {
	args := m.Called(ctx, params)
	return args.Get(0).(pagination.Result[domain.Review]), args.Error(1)
}

func (m *mockModerationService) Audit(ctx context.Context, reviewID string) ([]domain.AuditEntry, error) {
	args := m.Called(ctx, reviewID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AuditEntry), args.Error(1)
}

type mockRatingService struct {
	mock.Mock
}

func (m *mockRatingService) Get(ctx context.Context, subjectID string, kind domain.SubjectKind) (*domain.AggregatedRating, error) {
	args := m.Called(ctx, subjectID, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AggregatedRating), args.Error(1)
}

func (m *mockRatingService) Recompute(ctx context.Context, subjectID string, kind domain.SubjectKind) (*domain.AggregatedRating, error) {
	args := m.Called(ctx, subjectID, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AggregatedRating), args.Error(1)
}

// --- Test Helpers ---

const (
	testSecret = "handler-test-secret"
	reviewID   = "550e8400-e29b-41d4-a716-446655440001"
)

type testServer struct {
	reviews    *mockReviewService
	moderation *mockModerationService
	ratings    *mockRatingService
	handler    http.Handler
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, limiter *middleware.RateLimiter) *testServer {
	t.Helper()
	s := &testServer{
		reviews:    new(mockReviewService),
		moderation: new(mockModerationService),
		ratings:    new(mockRatingService),
	}
	s.handler = NewRouter(s.reviews, s.moderation, s.ratings, Deps{
		Health:        health.NewHandler(),
		Tokens:        middleware.NewJWTValidator(testSecret),
		SubmitLimiter: limiter,
		Logger:        testLogger(),
	})
	t.Cleanup(func() {
		s.reviews.AssertExpectations(t)
		s.moderation.AssertExpectations(t)
		s.ratings.AssertExpectations(t)
	})
	return s
}

func token(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return tok
}

// do sends a request as userID with role. An empty userID sends no token.
func (s *testServer) do(t *testing.T, method, path, userID, role string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, userID, role))
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func sampleReview(status domain.ModerationStatus) *domain.Review {
	now := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
	return &domain.Review{
		ID:            reviewID,
		ReviewerID:    "learner-a",
		SubjectID:     "tutor-t",
		SubjectKind:   domain.SubjectKindTutor,
		OverallRating: 5,
		Categories:    []domain.CategoryRating{{Category: domain.CategoryPatience, Rating: 5}},
		Body:          "Very patient.",
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
