package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/domain"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/eligibility"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/moderation"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/repository"
	apperrors "github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/errors"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/pagination"
)

const day = 24 * time.Hour

var now = time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	reviews     *mockReviewRepository
	audit       *mockAuditRepository
	completions *mockCompletionRepository
	votes       *mockVoteRepository
	responses   *mockResponseRepository
	reports     *mockReportRepository
	velocity    *mockVelocityCounter
	accounts    *mockAccounts
	ratings     *mockRatings
	events      *mockEvents
	svc         *ReviewService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		reviews:     new(mockReviewRepository),
		audit:       new(mockAuditRepository),
		completions: new(mockCompletionRepository),
		votes:       new(mockVoteRepository),
		responses:   new(mockResponseRepository),
		reports:     new(mockReportRepository),
		velocity:    new(mockVelocityCounter),
		accounts:    new(mockAccounts),
		ratings:     new(mockRatings),
		events:      new(mockEvents),
	}
	logger := newTestLogger()
	clock := func() time.Time { return now }

	checker := eligibility.NewChecker(f.completions, f.reviews, 90*day).WithClock(clock)
	history := NewHistoryCollector(f.reviews, f.velocity, f.accounts, day, logger)
	pipeline := moderation.NewDefault(moderation.Config{
		ProfanityWords:     []string{"damn"},
		VelocityLimit:      5,
		MinAccountAge:      7 * day,
		DeviationThreshold: 3.0,
		ScreeningTimeout:   time.Second,
	}, nil, logger)

	f.svc = NewReviewService(
		Stores{
			Reviews:     f.reviews,
			Audit:       f.audit,
			Completions: f.completions,
			Votes:       f.votes,
			Responses:   f.responses,
			Reports:     f.reports,
		},
		checker, history, pipeline, f.ratings, f.events,
		Policy{UpdateWindow: 30 * day, ReportFlagThreshold: 3},
		logger,
	).WithClock(clock)

	t.Cleanup(func() {
		f.reviews.AssertExpectations(t)
		f.events.AssertExpectations(t)
		f.ratings.AssertExpectations(t)
	})
	return f
}

func (f *fixture) eligible() {
	f.completions.On("Latest", mock.Anything, "learner-a", "tutor-t").Return(&domain.CompletionFact{
		ReviewerID:  "learner-a",
		SubjectID:   "tutor-t",
		SubjectKind: domain.SubjectKindTutor,
		OwnerID:     "tutor-t",
		CompletedAt: now.Add(-10 * day),
	}, nil)
	f.reviews.On("ExistsLive", mock.Anything, "learner-a", "tutor-t").Return(false, nil)
}

func (f *fixture) reviewerWith(submissions int) {
	f.velocity.On("Increment", mock.Anything, "learner-a").Return(submissions, nil)
	f.reviews.On("ReviewerStats", mock.Anything, "learner-a", domain.SubjectKindTutor).Return(0.0, 0, nil)
	f.accounts.On("AccountCreatedAt", mock.Anything, "learner-a").Return(now.Add(-400*day), nil)
}

func submitInput(body string) *SubmitReviewInput {
	return &SubmitReviewInput{
		ReviewerID:    "learner-a",
		SubjectID:     "tutor-t",
		SubjectKind:   domain.SubjectKindTutor,
		OverallRating: 5,
		Categories: []domain.CategoryRating{
			{Category: domain.CategorySubjectExpertise, Rating: 5},
			{Category: domain.CategoryTeachingClarity, Rating: 4},
		},
		Body: body,
	}
}

func storedReview(status domain.ModerationStatus, createdAt time.Time) *domain.Review {
	return &domain.Review{
		ID:            "rev-1",
		ReviewerID:    "learner-a",
		SubjectID:     "tutor-t",
		SubjectKind:   domain.SubjectKindTutor,
		OverallRating: 4,
		Categories:    []domain.CategoryRating{{Category: domain.CategoryPatience, Rating: 4}},
		Body:          "Solid lessons.",
		Status:        status,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
}

func assertAppCode(t *testing.T, err error, code string) *apperrors.AppError {
	t.Helper()
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

// --- Submit ---

func TestSubmit_AutoApproved(t *testing.T) {
	f := newFixture(t)
	f.eligible()
	f.reviewerWith(1)

	f.reviews.On("Create", mock.Anything, mock.AnythingOfType("*domain.Review"),
		mock.MatchedBy(func(a []domain.AuditEntry) bool {
			for _, e := range a {
				if e.Outcome != domain.OutcomePass || e.Actor != ActorSystem {
					return false
				}
			}
			return len(a) == 4
		})).Return(nil)
	f.events.On("PublishReviewSubmitted", mock.Anything, mock.AnythingOfType("*domain.Review")).Return(nil)
	f.ratings.On("Recompute", mock.Anything, "tutor-t", domain.SubjectKindTutor).Return(&domain.AggregatedRating{}, nil)

	review, err := f.svc.Submit(context.Background(), submitInput("Explains recursion very clearly."))

	require.NoError(t, err)
	assert.NotEmpty(t, review.ID)
	assert.Equal(t, domain.StatusAutoApproved, review.Status)
	assert.Empty(t, review.ModerationReason)
	assert.Equal(t, now, review.CreatedAt)
}

func TestSubmit_SixthSubmissionFlagged(t *testing.T) {
	f := newFixture(t)
	f.eligible()
	f.reviewerWith(6)

	f.reviews.On("Create", mock.Anything, mock.AnythingOfType("*domain.Review"), mock.Anything).Return(nil)
	f.events.On("PublishReviewSubmitted", mock.Anything, mock.Anything).Return(nil)

	review, err := f.svc.Submit(context.Background(), submitInput("Great tutor."))

	require.NoError(t, err)
	assert.Equal(t, domain.StatusFlagged, review.Status)
	assert.Contains(t, review.ModerationReason, moderation.CheckVelocity)
	f.ratings.AssertNotCalled(t, "Recompute", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_RejectedIsStoredAndReported(t *testing.T) {
	f := newFixture(t)
	f.eligible()
	f.reviewerWith(1)

	f.reviews.On("Create", mock.Anything,
		mock.MatchedBy(func(r *domain.Review) bool { return r.Status == domain.StatusRejected }),
		mock.MatchedBy(func(a []domain.AuditEntry) bool {
			return len(a) == 1 && a[0].Check == moderation.CheckProfanity && a[0].Outcome == domain.OutcomeReject
		})).Return(nil)
	f.events.On("PublishReviewSubmitted", mock.Anything, mock.Anything).Return(nil)

	review, err := f.svc.Submit(context.Background(), submitInput("What a damn waste of time."))

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrPolicyViolation))
	appErr := assertAppCode(t, err, "POLICY_VIOLATION")
	assert.Equal(t, moderation.CheckProfanity, appErr.Details["checks"])
	require.NotNil(t, review)
	assert.Equal(t, domain.StatusRejected, review.Status)
	f.ratings.AssertNotCalled(t, "Recompute", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_NoCompletion(t *testing.T) {
	f := newFixture(t)
	f.completions.On("Latest", mock.Anything, "learner-a", "tutor-t").
		Return(nil, apperrors.NotFound("completion", "learner-a/tutor-t"))

	_, err := f.svc.Submit(context.Background(), submitInput("Never met them."))

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotEligible))
	f.reviews.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_DuplicateReview(t *testing.T) {
	f := newFixture(t)
	f.completions.On("Latest", mock.Anything, "learner-a", "tutor-t").Return(&domain.CompletionFact{
		SubjectKind: domain.SubjectKindTutor,
		CompletedAt: now.Add(-day),
	}, nil)
	f.reviews.On("ExistsLive", mock.Anything, "learner-a", "tutor-t").Return(true, nil)

	_, err := f.svc.Submit(context.Background(), submitInput("Second try."))

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrDuplicateReview))
}

func TestSubmit_InvalidCategory(t *testing.T) {
	f := newFixture(t)
	input := submitInput("Good course content.")
	input.Categories = []domain.CategoryRating{{Category: domain.CategoryValueForMoney, Rating: 4}}

	_, err := f.svc.Submit(context.Background(), input)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestSubmit_AccountLookupFailureFlags(t *testing.T) {
	f := newFixture(t)
	f.eligible()
	f.velocity.On("Increment", mock.Anything, "learner-a").Return(1, nil)
	f.reviews.On("ReviewerStats", mock.Anything, "learner-a", domain.SubjectKindTutor).Return(0.0, 0, nil)
	f.accounts.On("AccountCreatedAt", mock.Anything, "learner-a").
		Return(time.Time{}, apperrors.DependencyUnavailable("identity", errors.New("timeout")))
	f.reviews.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.events.On("PublishReviewSubmitted", mock.Anything, mock.Anything).Return(nil)

	review, err := f.svc.Submit(context.Background(), submitInput("Helpful sessions."))

	require.NoError(t, err)
	assert.Equal(t, domain.StatusFlagged, review.Status)
	assert.Contains(t, review.ModerationReason, domain.OutcomeSkipped)
}

func TestSubmit_VelocityFallsBackToDatabase(t *testing.T) {
	f := newFixture(t)
	f.eligible()
	f.velocity.On("Increment", mock.Anything, "learner-a").Return(0, errors.New("redis down"))
	f.reviews.On("CountSince", mock.Anything, "learner-a", now.Add(-day)).Return(5, nil)
	f.reviews.On("ReviewerStats", mock.Anything, "learner-a", domain.SubjectKindTutor).Return(0.0, 0, nil)
	f.accounts.On("AccountCreatedAt", mock.Anything, "learner-a").Return(now.Add(-400*day), nil)
	f.reviews.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.events.On("PublishReviewSubmitted", mock.Anything, mock.Anything).Return(nil)

	review, err := f.svc.Submit(context.Background(), submitInput("Patient and kind."))

	require.NoError(t, err)
	assert.Equal(t, domain.StatusFlagged, review.Status, "five earlier submissions plus this one exceed the limit")
}

func TestSubmit_EventFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	f.eligible()
	f.reviewerWith(1)
	f.reviews.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.events.On("PublishReviewSubmitted", mock.Anything, mock.Anything).Return(errors.New("broker down"))
	f.ratings.On("Recompute", mock.Anything, "tutor-t", domain.SubjectKindTutor).Return(nil, errors.New("db down"))

	review, err := f.svc.Submit(context.Background(), submitInput("Clear explanations."))

	require.NoError(t, err)
	assert.Equal(t, domain.StatusAutoApproved, review.Status)
}

// --- Update ---

func TestUpdate_WithinWindow(t *testing.T) {
	f := newFixture(t)
	f.reviews.On("GetByID", mock.Anything, "rev-1").Return(storedReview(domain.StatusAutoApproved, now.Add(-29*day)), nil)
	f.reviews.On("CountSince", mock.Anything, "learner-a", now.Add(-day)).Return(0, nil)
	f.reviews.On("ReviewerStats", mock.Anything, "learner-a", domain.SubjectKindTutor).Return(0.0, 0, nil)
	f.accounts.On("AccountCreatedAt", mock.Anything, "learner-a").Return(now.Add(-400*day), nil)
	f.reviews.On("Update", mock.Anything,
		mock.MatchedBy(func(r *domain.Review) bool { return r.OverallRating == 2 && r.Body == "Changed my mind." }),
		domain.StatusAutoApproved, mock.Anything).Return(nil)
	f.events.On("PublishReviewUpdated", mock.Anything, mock.Anything).Return(nil)
	f.ratings.On("Recompute", mock.Anything, "tutor-t", domain.SubjectKindTutor).Return(&domain.AggregatedRating{}, nil)

	rating, body := 2, "Changed my mind."
	review, err := f.svc.Update(context.Background(), "rev-1", "learner-a", &UpdateReviewInput{
		OverallRating: &rating,
		Body:          &body,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusAutoApproved, review.Status)
	assert.Equal(t, now, review.UpdatedAt)
	f.velocity.AssertNotCalled(t, "Increment", mock.Anything, mock.Anything)
}

func TestUpdate_WindowExpired(t *testing.T) {
	f := newFixture(t)
	f.reviews.On("GetByID", mock.Anything, "rev-1").Return(storedReview(domain.StatusAutoApproved, now.Add(-31*day)), nil)

	body := "Too late."
	_, err := f.svc.Update(context.Background(), "rev-1", "learner-a", &UpdateReviewInput{Body: &body})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrWindowExpired))
	f.reviews.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdate_NotAuthor(t *testing.T) {
	f := newFixture(t)
	f.reviews.On("GetByID", mock.Anything, "rev-1").Return(storedReview(domain.StatusAutoApproved, now.Add(-day)), nil)

	body := "Hijack."
	_, err := f.svc.Update(context.Background(), "rev-1", "learner-b", &UpdateReviewInput{Body: &body})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))
}

func TestUpdate_RemovedReview(t *testing.T) {
	f := newFixture(t)
	f.reviews.On("GetByID", mock.Anything, "rev-1").Return(storedReview(domain.StatusRemoved, now.Add(-day)), nil)

	body := "Restore."
	_, err := f.svc.Update(context.Background(), "rev-1", "learner-a", &UpdateReviewInput{Body: &body})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrPolicyViolation))
}

func TestUpdate_RejectedEditIsAuditedAndRefused(t *testing.T) {
	f := newFixture(t)
	f.reviews.On("GetByID", mock.Anything, "rev-1").Return(storedReview(domain.StatusApproved, now.Add(-day)), nil)
	f.reviews.On("CountSince", mock.Anything, "learner-a", now.Add(-day)).Return(1, nil)
	f.reviews.On("ReviewerStats", mock.Anything, "learner-a", domain.SubjectKindTutor).Return(0.0, 0, nil)
	f.accounts.On("AccountCreatedAt", mock.Anything, "learner-a").Return(now.Add(-400*day), nil)
	f.audit.On("Append", mock.Anything, mock.MatchedBy(func(a []domain.AuditEntry) bool {
		return len(a) == 1 && a[0].Outcome == domain.OutcomeReject
	})).Return(nil)

	body := "Call me at +1 555 123 4567, this is damn good."
	_, err := f.svc.Update(context.Background(), "rev-1", "learner-a", &UpdateReviewInput{Body: &body})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrPolicyViolation))
	f.reviews.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.audit.AssertExpectations(t)
}

func TestUpdate_FlaggedEditMovesToFlagged(t *testing.T) {
	f := newFixture(t)
	f.reviews.On("GetByID", mock.Anything, "rev-1").Return(storedReview(domain.StatusApproved, now.Add(-day)), nil)
	f.reviews.On("CountSince", mock.Anything, "learner-a", now.Add(-day)).Return(1, nil)
	f.reviews.On("ReviewerStats", mock.Anything, "learner-a", domain.SubjectKindTutor).Return(4.5, 10, nil)
	f.accounts.On("AccountCreatedAt", mock.Anything, "learner-a").Return(now.Add(-400*day), nil)
	f.reviews.On("Update", mock.Anything,
		mock.MatchedBy(func(r *domain.Review) bool { return r.Status == domain.StatusFlagged }),
		domain.StatusApproved, mock.Anything).Return(nil)
	f.events.On("PublishReviewUpdated", mock.Anything, mock.Anything).Return(nil)
	f.ratings.On("Recompute", mock.Anything, "tutor-t", domain.SubjectKindTutor).Return(&domain.AggregatedRating{}, nil)

	rating := 1
	review, err := f.svc.Update(context.Background(), "rev-1", "learner-a", &UpdateReviewInput{OverallRating: &rating})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusFlagged, review.Status)
	assert.Contains(t, review.ModerationReason, moderation.CheckAuthenticity)
}

// --- Respond ---

func TestRespond_Owner(t *testing.T) {
	f := newFixture(t)
	f.reviews.On("GetByID", mock.Anything, "rev-1").Return(storedReview(domain.StatusAutoApproved, now.Add(-day)), nil)
	f.completions.On("OwnerOf", mock.Anything, "tutor-t").Return("owner-1", nil)
	f.responses.On("Upsert", mock.Anything, mock.AnythingOfType("*domain.ReviewResponse")).Return(nil)
	f.events.On("PublishReviewResponded", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	resp, err := f.svc.Respond(context.Background(), "rev-1", "owner-1", "  Thank you!  ")

	require.NoError(t, err)
	assert.Equal(t, "Thank you!", resp.Body)
	assert.Equal(t, "owner-1", resp.ResponderID)
}

func TestRespond_KeepsOriginalCreatedAt(t *testing.T) {
	f := newFixture(t)
	stored := storedReview(domain.StatusApproved, now.Add(-5*day))
	stored.Response = &domain.ReviewResponse{ReviewID: "rev-1", ResponderID: "owner-1", CreatedAt: now.Add(-4 * day)}
	f.reviews.On("GetByID", mock.Anything, "rev-1").Return(stored, nil)
	f.completions.On("OwnerOf", mock.Anything, "tutor-t").Return("owner-1", nil)
	f.responses.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	f.events.On("PublishReviewResponded", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	resp, err := f.svc.Respond(context.Background(), "rev-1", "owner-1", "Updated reply")

	require.NoError(t, err)
	assert.Equal(t, now.Add(-4*day), resp.CreatedAt)
	assert.Equal(t, now, resp.UpdatedAt)
}

func TestRespond_NotOwner(t *testing.T) {
	f := newFixture(t)
	f.reviews.On("GetByID", mock.Anything, "rev-1").Return(storedReview(domain.StatusAutoApproved, now.Add(-day)), nil)
	f.completions.On("OwnerOf", mock.Anything, "tutor-t").Return("owner-1", nil)

	_, err := f.svc.Respond(context.Background(), "rev-1", "someone-else", "Hi")

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))
	f.responses.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestRespond_EmptyBody(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Respond(context.Background(), "rev-1", "owner-1", "   ")

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

// --- Vote ---

func TestVote_AppliesCounts(t *testing.T) {
	f := newFixture(t)
	f.reviews.On("GetByID", mock.Anything, "rev-1").Return(storedReview(domain.StatusAutoApproved, now.Add(-day)), nil)
	f.votes.On("Upsert", mock.Anything, mock.MatchedBy(func(v *domain.Vote) bool {
		return v.VoterID == "reader-1" && !v.Helpful
	})).Return(3, 1, nil)

	review, err := f.svc.Vote(context.Background(), "rev-1", "reader-1", false)

	require.NoError(t, err)
	assert.Equal(t, 3, review.HelpfulCount)
	assert.Equal(t, 1, review.UnhelpfulCount)
	assert.Equal(t, 2, review.HelpfulnessScore)
}

func TestVote_OwnReview(t *testing.T) {
	f := newFixture(t)
	f.reviews.On("GetByID", mock.Anything, "rev-1").Return(storedReview(domain.StatusAutoApproved, now.Add(-day)), nil)

	_, err := f.svc.Vote(context.Background(), "rev-1", "learner-a", true)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))
}

func TestVote_UnpublishedReview(t *testing.T) {
	f := newFixture(t)
	f.reviews.On("GetByID", mock.Anything, "rev-1").Return(storedReview(domain.StatusFlagged, now.Add(-day)), nil)

	_, err := f.svc.Vote(context.Background(), "rev-1", "reader-1", true)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

// --- Report ---

func TestReport_BelowThreshold(t *testing.T) {
	f := newFixture(t)
	f.reviews.On("GetByID", mock.Anything, "rev-1").Return(storedReview(domain.StatusApproved, now.Add(-day)), nil)
	f.reports.On("Create", mock.Anything, mock.AnythingOfType("*domain.Report")).Return(2, nil)

	review, err := f.svc.Report(context.Background(), "rev-1", "reader-1", "spam")

	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, review.Status)
	f.reviews.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReport_ThresholdFlagsReview(t *testing.T) {
	f := newFixture(t)
	f.reviews.On("GetByID", mock.Anything, "rev-1").Return(storedReview(domain.StatusApproved, now.Add(-day)), nil)
	f.reports.On("Create", mock.Anything, mock.Anything).Return(3, nil)
	f.reviews.On("Update", mock.Anything,
		mock.MatchedBy(func(r *domain.Review) bool { return r.Status == domain.StatusFlagged }),
		domain.StatusApproved,
		mock.MatchedBy(func(a []domain.AuditEntry) bool {
			return len(a) == 1 && a[0].Check == CheckReports && a[0].Outcome == domain.OutcomeFlag
		})).Return(nil)
	f.events.On("PublishReviewModerated", mock.Anything, mock.Anything, ActorSystem).Return(nil)
	f.ratings.On("Recompute", mock.Anything, "tutor-t", domain.SubjectKindTutor).Return(&domain.AggregatedRating{}, nil)

	review, err := f.svc.Report(context.Background(), "rev-1", "reader-3", "offensive")

	require.NoError(t, err)
	assert.Equal(t, domain.StatusFlagged, review.Status)
	assert.Equal(t, "reports: flag (3 open reports)", review.ModerationReason)
}

func TestReport_OwnReview(t *testing.T) {
	f := newFixture(t)
	f.reviews.On("GetByID", mock.Anything, "rev-1").Return(storedReview(domain.StatusApproved, now.Add(-day)), nil)

	_, err := f.svc.Report(context.Background(), "rev-1", "learner-a", "oops")

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))
}

// --- Reads ---

func TestGet_Visibility(t *testing.T) {
	tests := []struct {
		name    string
		status  domain.ModerationStatus
		viewer  Viewer
		visible bool
	}{
		{"published to anyone", domain.StatusAutoApproved, Viewer{UserID: "reader-1", Role: "user"}, true},
		{"flagged hidden from others", domain.StatusFlagged, Viewer{UserID: "reader-1", Role: "user"}, false},
		{"flagged visible to author", domain.StatusFlagged, Viewer{UserID: "learner-a", Role: "user"}, true},
		{"rejected visible to moderator", domain.StatusRejected, Viewer{UserID: "mod-1", Role: "moderator"}, true},
		{"removed hidden from anonymous", domain.StatusRemoved, Viewer{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.reviews.On("GetByID", mock.Anything, "rev-1").Return(storedReview(tt.status, now.Add(-day)), nil)

			review, err := f.svc.Get(context.Background(), "rev-1", tt.viewer)

			if tt.visible {
				require.NoError(t, err)
				assert.Equal(t, "rev-1", review.ID)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrNotFound))
		})
	}
}

func TestListBySubject_OnlyPublished(t *testing.T) {
	f := newFixture(t)
	params := pagination.Params{Page: 2, PerPage: 10, Sort: domain.SortHelpful, Offset: 10}
	f.reviews.On("List", mock.Anything, repository.ReviewFilter{
		SubjectID:   "tutor-t",
		SubjectKind: domain.SubjectKindTutor,
		Statuses:    domain.AggregationEligibleStatuses(),
		Sort:        domain.SortHelpful,
		Page:        2,
		PerPage:     10,
	}).Return([]domain.Review{*storedReview(domain.StatusApproved, now)}, 11, nil)

	result, err := f.svc.ListBySubject(context.Background(), "tutor-t", domain.SubjectKindTutor, params)

	require.NoError(t, err)
	assert.Len(t, result.Data, 1)
	assert.Equal(t, 11, result.TotalCount)
	assert.Equal(t, 2, result.TotalPages)
	assert.False(t, result.HasNext)
	assert.True(t, result.HasPrev)
}

func TestListByReviewer_OwnerSeesAll(t *testing.T) {
	f := newFixture(t)
	params := pagination.DefaultParams()
	f.reviews.On("List", mock.Anything, repository.ReviewFilter{
		ReviewerID: "learner-a",
		Sort:       domain.SortRecent,
		Page:       1,
		PerPage:    20,
	}).Return([]domain.Review{}, 0, nil)

	result, err := f.svc.ListByReviewer(context.Background(), "learner-a", Viewer{UserID: "learner-a"}, params)

	require.NoError(t, err)
	assert.Empty(t, result.Data)
}

func TestListByReviewer_OthersSeePublished(t *testing.T) {
	f := newFixture(t)
	params := pagination.DefaultParams()
	f.reviews.On("List", mock.Anything, mock.MatchedBy(func(filter repository.ReviewFilter) bool {
		return filter.ReviewerID == "learner-a" && len(filter.Statuses) == 2
	})).Return([]domain.Review{}, 0, nil)

	_, err := f.svc.ListByReviewer(context.Background(), "learner-a", Viewer{UserID: "reader-1"}, params)

	require.NoError(t, err)
}
