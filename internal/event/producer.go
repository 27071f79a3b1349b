package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/domain"
	pkgkafka "github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/kafka"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/logger"
)

// Kafka topics for review domain events.
var (
	TopicReviewSubmitted  = pkgkafka.Topic("review", "submitted")
	TopicReviewUpdated    = pkgkafka.Topic("review", "updated")
	TopicReviewModerated  = pkgkafka.Topic("review", "moderated")
	TopicReviewResponded  = pkgkafka.Topic("review", "responded")
	TopicRatingRecomputed = pkgkafka.Topic("rating", "recomputed")
)

// Aggregate types.
const (
	AggregateTypeReview = "review"
	AggregateTypeRating = "rating"
)

// SourceReviewService identifies events originating from this service.
const SourceReviewService = "review-service"

// ReviewData is the payload of review.submitted and review.updated events.
type ReviewData struct {
	ID            string                  `json:"id"`
	ReviewerID    string                  `json:"reviewer_id"`
	SubjectID     string                  `json:"subject_id"`
	SubjectKind   string                  `json:"subject_kind"`
	OverallRating int                     `json:"overall_rating"`
	Categories    []domain.CategoryRating `json:"categories"`
	Status        string                  `json:"status"`
	CreatedAt     time.Time               `json:"created_at"`
}

// ModeratedData is the payload of a review.moderated event.
type ModeratedData struct {
	ID         string `json:"id"`
	ReviewerID string `json:"reviewer_id"`
	SubjectID  string `json:"subject_id"`
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
	Actor      string `json:"actor"`
}

// RespondedData is the payload of a review.responded event.
type RespondedData struct {
	ReviewID    string `json:"review_id"`
	ReviewerID  string `json:"reviewer_id"`
	SubjectID   string `json:"subject_id"`
	ResponderID string `json:"responder_id"`
}

// RatingData is the payload of a rating.recomputed event.
type RatingData struct {
	SubjectID   string   `json:"subject_id"`
	SubjectKind string   `json:"subject_kind"`
	Overall     *float64 `json:"overall"`
	SampleCount int      `json:"sample_count"`
	LowSample   bool     `json:"low_sample"`
}

// Publisher is the write side of pkgkafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes review domain events to Kafka.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer for the review service.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

func reviewData(r *domain.Review) ReviewData {
	return ReviewData{
		ID:            r.ID,
		ReviewerID:    r.ReviewerID,
		SubjectID:     r.SubjectID,
		SubjectKind:   string(r.SubjectKind),
		OverallRating: r.OverallRating,
		Categories:    r.Categories,
		Status:        string(r.Status),
		CreatedAt:     r.CreatedAt,
	}
}

// PublishReviewSubmitted publishes a review.submitted event.
func (p *Producer) PublishReviewSubmitted(ctx context.Context, r *domain.Review) error {
	return p.publish(ctx, TopicReviewSubmitted, r.ID, AggregateTypeReview, reviewData(r))
}

// PublishReviewUpdated publishes a review.updated event.
func (p *Producer) PublishReviewUpdated(ctx context.Context, r *domain.Review) error {
	return p.publish(ctx, TopicReviewUpdated, r.ID, AggregateTypeReview, reviewData(r))
}

// PublishReviewModerated publishes a review.moderated event after a human
// decision or a removal.
func (p *Producer) PublishReviewModerated(ctx context.Context, r *domain.Review, actor string) error {
	data := ModeratedData{
		ID:         r.ID,
		ReviewerID: r.ReviewerID,
		SubjectID:  r.SubjectID,
		Status:     string(r.Status),
		Reason:     r.ModerationReason,
		Actor:      actor,
	}
	return p.publish(ctx, TopicReviewModerated, r.ID, AggregateTypeReview, data)
}

// PublishReviewResponded publishes a review.responded event.
func (p *Producer) PublishReviewResponded(ctx context.Context, r *domain.Review, resp *domain.ReviewResponse) error {
	data := RespondedData{
		ReviewID:    r.ID,
		ReviewerID:  r.ReviewerID,
		SubjectID:   r.SubjectID,
		ResponderID: resp.ResponderID,
	}
	return p.publish(ctx, TopicReviewResponded, r.ID, AggregateTypeReview, data)
}

// PublishRatingRecomputed publishes a rating.recomputed event.
func (p *Producer) PublishRatingRecomputed(ctx context.Context, agg *domain.AggregatedRating) error {
	data := RatingData{
		SubjectID:   agg.SubjectID,
		SubjectKind: string(agg.SubjectKind),
		Overall:     agg.Overall,
		SampleCount: agg.SampleCount,
		LowSample:   agg.LowSample,
	}
	return p.publish(ctx, TopicRatingRecomputed, agg.SubjectID, AggregateTypeRating, data)
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceReviewService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}
