package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/aggregation"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/domain"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/repository"
	apperrors "github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/errors"
)

// RatingService computes, stores and serves subject ratings. Recomputes of
// one subject run one at a time, in this process through locks and across
// processes through the repository; different subjects run in parallel.
type RatingService struct {
	aggregates repository.AggregateRepository
	cache      repository.AggregateCache
	aggregator *aggregation.Aggregator
	events     EventPublisher
	locks      *keyedMutex
	logger     *slog.Logger
	now        func() time.Time
}

// NewRatingService creates a new rating service. cache and events may be nil.
func NewRatingService(
	aggregates repository.AggregateRepository,
	cache repository.AggregateCache,
	aggregator *aggregation.Aggregator,
	events EventPublisher,
	logger *slog.Logger,
) *RatingService {
	return &RatingService{
		aggregates: aggregates,
		cache:      cache,
		aggregator: aggregator,
		events:     events,
		locks:      newKeyedMutex(),
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (s *RatingService) WithClock(now func() time.Time) *RatingService {
	s.now = now
	return s
}

// Recompute rebuilds the rating of a subject from its eligible reviews and
// replaces the stored and cached copies. An empty kind is taken from the
// reviews or from the stored rating.
func (s *RatingService) Recompute(ctx context.Context, subjectID string, kind domain.SubjectKind) (agg *domain.AggregatedRating, err error) {
	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		recomputeDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	}()

	unlock := s.locks.Lock(subjectID)
	defer unlock()

	agg, err = s.aggregates.Rebuild(ctx, subjectID, func(reviews []domain.Review) (*domain.AggregatedRating, error) {
		if kind == "" && len(reviews) > 0 {
			kind = reviews[0].SubjectKind
		}
		if kind == "" {
			stored, err := s.aggregates.Get(ctx, subjectID)
			if err != nil {
				return nil, err
			}
			kind = stored.SubjectKind
		}
		return s.aggregator.Compute(subjectID, kind, reviews, s.now().UTC()), nil
	})
	if err != nil {
		return nil, fmt.Errorf("recompute rating: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, agg); err != nil {
			cacheFallbacks.Inc()
			s.logger.WarnContext(ctx, "failed to cache rating",
				slog.String("subject_id", subjectID),
				slog.String("error", err.Error()),
			)
			// A stale entry must not outlive the stored rating.
			_ = s.cache.Delete(ctx, subjectID)
		}
	}

	if s.events != nil {
		if err := s.events.PublishRatingRecomputed(ctx, agg); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish rating.recomputed event",
				slog.String("subject_id", subjectID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "rating recomputed",
		slog.String("subject_id", subjectID),
		slog.Int64("version", agg.Version),
		slog.Int("sample_count", agg.SampleCount),
		slog.Bool("low_sample", agg.LowSample),
	)
	return agg, nil
}

// Get returns the rating of a subject: cache first, then the database. A
// subject that was never computed has the empty low-sample rating.
func (s *RatingService) Get(ctx context.Context, subjectID string, kind domain.SubjectKind) (*domain.AggregatedRating, error) {
	if s.cache != nil {
		agg, err := s.cache.Get(ctx, subjectID)
		switch {
		case err != nil:
			cacheFallbacks.Inc()
			s.logger.WarnContext(ctx, "rating cache unavailable, reading database",
				slog.String("subject_id", subjectID),
				slog.String("error", err.Error()),
			)
		case agg != nil && agg.SubjectKind == kind:
			return agg, nil
		}
	}

	agg, err := s.aggregates.Get(ctx, subjectID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.EmptyAggregate(subjectID, kind, s.aggregator.Config().ConfidenceLevel, s.now().UTC()), nil
		}
		return nil, fmt.Errorf("get rating: %w", err)
	}
	if agg.SubjectKind != kind {
		return nil, apperrors.NotFound("rating", string(kind)+"/"+subjectID)
	}

	// Set leaves a newer entry from a concurrent recompute in place.
	if s.cache != nil {
		if err := s.cache.Set(ctx, agg); err != nil {
			s.logger.WarnContext(ctx, "failed to cache rating",
				slog.String("subject_id", subjectID),
				slog.String("error", err.Error()),
			)
		}
	}
	return agg, nil
}

// recomputeQuietly is called after review mutations. Its failure is logged
// and never fails the mutation.
func recomputeQuietly(ctx context.Context, ratings RatingRecomputer, logger *slog.Logger, review *domain.Review) {
	if ratings == nil {
		return
	}
	if _, err := ratings.Recompute(ctx, review.SubjectID, review.SubjectKind); err != nil {
		logger.ErrorContext(ctx, "rating recompute failed",
			slog.String("subject_id", review.SubjectID),
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}
}
