package service

import (
	"context"
	"errors"
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

// Stores groups the repositories the review service writes to.
type Stores struct {
	Reviews     repository.ReviewRepository
	Audit       repository.AuditRepository
	Completions repository.CompletionRepository
	Votes       repository.VoteRepository
	Responses   repository.ResponseRepository
	Reports     repository.ReportRepository
}

// Policy holds the lifecycle limits.
type Policy struct {
	UpdateWindow        time.Duration
	ReportFlagThreshold int
}

// SubmitReviewInput holds the parameters for submitting a review.
type SubmitReviewInput struct {
	ReviewerID    string
	SubjectID     string
	SubjectKind   domain.SubjectKind
	OverallRating int
	Categories    []domain.CategoryRating
	Title         string
	Body          string
}

// UpdateReviewInput holds the fields of a partial review update. Nil fields
// are left unchanged.
type UpdateReviewInput struct {
	OverallRating *int
	Categories    *[]domain.CategoryRating
	Title         *string
	Body          *string
}

// ReviewService implements the review lifecycle.
type ReviewService struct {
	stores    Stores
	checker   EligibilityChecker
	history   *HistoryCollector
	moderator Moderator
	ratings   RatingRecomputer
	events    EventPublisher
	policy    Policy
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// NewReviewService creates a new review service. ratings and events may be nil.
func NewReviewService(
	stores Stores,
	checker EligibilityChecker,
	history *HistoryCollector,
	moderator Moderator,
	ratings RatingRecomputer,
	events EventPublisher,
	policy Policy,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		stores:    stores,
		checker:   checker,
		history:   history,
		moderator: moderator,
		ratings:   ratings,
		events:    events,
		policy:    policy,
		logger:    logger,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

// WithClock replaces the time source, for tests.
func (s *ReviewService) WithClock(now func() time.Time) *ReviewService {
	s.now = now
	return s
}

// Submit validates, checks eligibility, moderates and stores a new review.
// A rejected review is stored for the appeals trail and the call fails with
// a policy violation naming the rejecting checks.
func (s *ReviewService) Submit(ctx context.Context, input *SubmitReviewInput) (*domain.Review, error) {
	if input.ReviewerID == "" {
		return nil, apperrors.InvalidInput("reviewer_id is required")
	}
	if input.SubjectID == "" {
		return nil, apperrors.InvalidInput("subject_id is required")
	}

	now := s.now().UTC()
	review := &domain.Review{
		ID:            s.newID(),
		ReviewerID:    input.ReviewerID,
		SubjectID:     input.SubjectID,
		SubjectKind:   input.SubjectKind,
		OverallRating: input.OverallRating,
		Categories:    input.Categories,
		Title:         strings.TrimSpace(input.Title),
		Body:          strings.TrimSpace(input.Body),
		Status:        domain.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if review.Categories == nil {
		review.Categories = []domain.CategoryRating{}
	}
	if err := review.Validate(); err != nil {
		return nil, err
	}

	decision, err := s.checker.CanReview(ctx, review.ReviewerID, review.SubjectID, review.SubjectKind)
	if err != nil {
		return nil, fmt.Errorf("check eligibility: %w", err)
	}
	if err := decision.Err(review.ReviewerID, review.SubjectID); err != nil {
		return nil, err
	}

	hist, err := s.history.Collect(ctx, review.ReviewerID, review.SubjectKind, now, true)
	if err != nil {
		return nil, fmt.Errorf("collect reviewer history: %w", err)
	}

	result := s.moderator.Moderate(ctx, review, hist, now)
	review.Status = result.Status
	review.ModerationReason = result.Reason()

	audit := result.AuditEntries(review.ID, ActorSystem, now, s.newID)
	if err := s.stores.Reviews.Create(ctx, review, audit); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}
	reviewsSubmitted.WithLabelValues(string(review.SubjectKind), string(review.Status)).Inc()

	s.logger.InfoContext(ctx, "review submitted",
		slog.String("review_id", review.ID),
		slog.String("subject_id", review.SubjectID),
		slog.String("reviewer_id", review.ReviewerID),
		slog.String("status", string(review.Status)),
	)

	if s.events != nil {
		if err := s.events.PublishReviewSubmitted(ctx, review); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish review.submitted event",
				slog.String("review_id", review.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if review.Status == domain.StatusRejected {
		return review, apperrors.PolicyViolation("review rejected by moderation", result.Checks(domain.OutcomeReject)...)
	}
	if review.Status.AggregationEligible() {
		recomputeQuietly(ctx, s.ratings, s.logger, review)
	}
	return review, nil
}

// Update changes the content of a review on behalf of its author. Edited
// content is moderated again without counting as a new submission.
func (s *ReviewService) Update(ctx context.Context, reviewID, authorID string, input *UpdateReviewInput) (*domain.Review, error) {
	review, err := s.stores.Reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	if review.ReviewerID != authorID {
		return nil, apperrors.Forbidden("only the author can edit a review")
	}

	now := s.now().UTC()
	if err := review.CheckEditable(now, s.policy.UpdateWindow); err != nil {
		return nil, err
	}
	from := review.Status
	wasEligible := from.AggregationEligible()

	if input.OverallRating != nil {
		review.OverallRating = *input.OverallRating
	}
	if input.Categories != nil {
		review.Categories = *input.Categories
	}
	if input.Title != nil {
		review.Title = strings.TrimSpace(*input.Title)
	}
	if input.Body != nil {
		review.Body = strings.TrimSpace(*input.Body)
	}
	if review.Categories == nil {
		review.Categories = []domain.CategoryRating{}
	}
	if err := review.Validate(); err != nil {
		return nil, err
	}

	hist, err := s.history.Collect(ctx, review.ReviewerID, review.SubjectKind, now, false)
	if err != nil {
		return nil, fmt.Errorf("collect reviewer history: %w", err)
	}

	result := s.moderator.Moderate(ctx, review, hist, now)
	audit := result.AuditEntries(review.ID, ActorSystem, now, s.newID)

	switch result.Status {
	case domain.StatusRejected:
		if err := s.stores.Audit.Append(ctx, audit...); err != nil {
			s.logger.ErrorContext(ctx, "failed to record rejected edit",
				slog.String("review_id", review.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, apperrors.PolicyViolation("edit rejected by moderation", result.Checks(domain.OutcomeReject)...)
	case domain.StatusFlagged:
		if review.Status != domain.StatusFlagged {
			if err := review.TransitionTo(domain.StatusFlagged, result.Reason(), now); err != nil {
				return nil, err
			}
		}
	}
	review.UpdatedAt = now

	if err := s.stores.Reviews.Update(ctx, review, from, audit); err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}

	s.logger.InfoContext(ctx, "review updated",
		slog.String("review_id", review.ID),
		slog.String("status", string(review.Status)),
	)

	if s.events != nil {
		if err := s.events.PublishReviewUpdated(ctx, review); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish review.updated event",
				slog.String("review_id", review.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if wasEligible || review.Status.AggregationEligible() {
		recomputeQuietly(ctx, s.ratings, s.logger, review)
	}
	return review, nil
}

// Respond stores the subject owner's reply to a review, replacing an
// earlier reply by the same owner.
func (s *ReviewService) Respond(ctx context.Context, reviewID, responderID, body string) (*domain.ReviewResponse, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.InvalidInput("response body is required")
	}
	if len(body) > domain.MaxBodyLength {
		return nil, apperrors.InvalidInput("response body is too long")
	}

	review, err := s.stores.Reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	if !review.Status.Editable() {
		return nil, apperrors.Conflict(fmt.Sprintf("review in status %s cannot be answered", review.Status))
	}

	owner, err := s.stores.Completions.OwnerOf(ctx, review.SubjectID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Forbidden("only the subject owner can respond")
		}
		return nil, fmt.Errorf("lookup subject owner: %w", err)
	}
	if owner != responderID {
		return nil, apperrors.Forbidden("only the subject owner can respond")
	}

	now := s.now().UTC()
	resp := &domain.ReviewResponse{
		ReviewID:    review.ID,
		ResponderID: responderID,
		Body:        body,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if review.Response != nil {
		resp.CreatedAt = review.Response.CreatedAt
	}

	if err := s.stores.Responses.Upsert(ctx, resp); err != nil {
		return nil, fmt.Errorf("save response: %w", err)
	}

	s.logger.InfoContext(ctx, "review response saved",
		slog.String("review_id", review.ID),
		slog.String("responder_id", responderID),
	)

	if s.events != nil {
		if err := s.events.PublishReviewResponded(ctx, review, resp); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish review.responded event",
				slog.String("review_id", review.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	return resp, nil
}

// Vote records a helpfulness vote. A voter's later vote replaces the earlier.
func (s *ReviewService) Vote(ctx context.Context, reviewID, voterID string, helpful bool) (*domain.Review, error) {
	review, err := s.stores.Reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	if review.ReviewerID == voterID {
		return nil, apperrors.Forbidden("authors cannot vote on their own review")
	}
	if !review.Status.AggregationEligible() {
		return nil, apperrors.NotFound("review", reviewID)
	}

	vote := &domain.Vote{
		ReviewID:  review.ID,
		VoterID:   voterID,
		Helpful:   helpful,
		UpdatedAt: s.now().UTC(),
	}
	up, down, err := s.stores.Votes.Upsert(ctx, vote)
	if err != nil {
		return nil, fmt.Errorf("save vote: %w", err)
	}
	review.ApplyVoteCounts(up, down)

	s.logger.DebugContext(ctx, "review vote recorded",
		slog.String("review_id", review.ID),
		slog.String("voter_id", voterID),
		slog.Bool("helpful", helpful),
	)
	return review, nil
}

// Report records a complaint against a review. Once the open reports reach
// the threshold a published review goes back to human review.
func (s *ReviewService) Report(ctx context.Context, reviewID, reporterID, reason string) (*domain.Review, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.InvalidInput("report reason is required")
	}

	review, err := s.stores.Reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	if review.ReviewerID == reporterID {
		return nil, apperrors.Forbidden("authors cannot report their own review")
	}

	now := s.now().UTC()
	open, err := s.stores.Reports.Create(ctx, &domain.Report{
		ID:         s.newID(),
		ReviewID:   review.ID,
		ReporterID: reporterID,
		Reason:     reason,
		CreatedAt:  now,
	})
	if err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}

	s.logger.InfoContext(ctx, "review reported",
		slog.String("review_id", review.ID),
		slog.String("reporter_id", reporterID),
		slog.Int("open_reports", open),
	)

	if open < s.policy.ReportFlagThreshold || !review.Status.AggregationEligible() {
		return review, nil
	}

	detail := fmt.Sprintf("%d open reports", open)
	from := review.Status
	if err := review.TransitionTo(domain.StatusFlagged, CheckReports+": "+domain.OutcomeFlag+" ("+detail+")", now); err != nil {
		return nil, err
	}
	audit := []domain.AuditEntry{{
		ID:        s.newID(),
		ReviewID:  review.ID,
		Check:     CheckReports,
		Outcome:   domain.OutcomeFlag,
		Detail:    detail,
		Actor:     ActorSystem,
		CreatedAt: now,
	}}
	if err := s.stores.Reviews.Update(ctx, review, from, audit); err != nil {
		return nil, fmt.Errorf("flag reported review: %w", err)
	}

	s.logger.WarnContext(ctx, "review flagged by reports",
		slog.String("review_id", review.ID),
		slog.Int("open_reports", open),
	)

	if s.events != nil {
		if err := s.events.PublishReviewModerated(ctx, review, ActorSystem); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish review.moderated event",
				slog.String("review_id", review.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	recomputeQuietly(ctx, s.ratings, s.logger, review)
	return review, nil
}

// Get returns a review visible to viewer. Unpublished reviews are reported
// as missing to everyone except their author and moderators.
func (s *ReviewService) Get(ctx context.Context, reviewID string, viewer Viewer) (*domain.Review, error) {
	review, err := s.stores.Reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	if !viewer.canSee(review) {
		return nil, apperrors.NotFound("review", reviewID)
	}
	return review, nil
}

// ListBySubject returns the published reviews of a subject.
func (s *ReviewService) ListBySubject(ctx context.Context, subjectID string, kind domain.SubjectKind, params pagination.Params) (pagination.Result[domain.Review], error) {
	reviews, total, err := s.stores.Reviews.List(ctx, repository.ReviewFilter{
		SubjectID:   subjectID,
		SubjectKind: kind,
		Statuses:    domain.AggregationEligibleStatuses(),
		Sort:        params.Sort,
		Page:        params.Page,
		PerPage:     params.PerPage,
	})
	if err != nil {
		return pagination.Result[domain.Review]{}, fmt.Errorf("list subject reviews: %w", err)
	}
	return pagination.NewResult(reviews, total, params), nil
}

// ListByReviewer returns a reviewer's reviews. Other viewers only see the
// published ones.
func (s *ReviewService) ListByReviewer(ctx context.Context, reviewerID string, viewer Viewer, params pagination.Params) (pagination.Result[domain.Review], error) {
	filter := repository.ReviewFilter{
		ReviewerID: reviewerID,
		Sort:       domain.SortRecent,
		Page:       params.Page,
		PerPage:    params.PerPage,
	}
	if viewer.UserID != reviewerID && !viewer.Moderates() {
		filter.Statuses = domain.AggregationEligibleStatuses()
	}

	reviews, total, err := s.stores.Reviews.List(ctx, filter)
	if err != nil {
		return pagination.Result[domain.Review]{}, fmt.Errorf("list reviewer reviews: %w", err)
	}
	return pagination.NewResult(reviews, total, params), nil
}
