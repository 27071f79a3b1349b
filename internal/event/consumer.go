package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/domain"
	pkgkafka "github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/kafka"
)

// Topics consumed from the learning services.
var (
	TopicLessonCompleted = pkgkafka.Topic("lesson", "completed")
	TopicCourseCompleted = pkgkafka.Topic("course", "completed")
)

// ConsumerGroupID is the consumer group of the review service.
const ConsumerGroupID = "review-service"

type lessonCompletedPayload struct {
	LessonID    string    `json:"lesson_id"`
	LearnerID   string    `json:"learner_id"`
	TutorID     string    `json:"tutor_id"`
	CompletedAt time.Time `json:"completed_at"`
}

type courseCompletedPayload struct {
	CourseID     string    `json:"course_id"`
	LearnerID    string    `json:"learner_id"`
	InstructorID string    `json:"instructor_id"`
	CompletedAt  time.Time `json:"completed_at"`
}

// CompletionStore records completion facts.
type CompletionStore interface {
	Upsert(ctx context.Context, fact *domain.CompletionFact) error
}

// ConsumerHandler turns completion events into eligibility facts.
type ConsumerHandler struct {
	completions CompletionStore
	logger      *slog.Logger
}

// NewConsumerHandler creates a new event consumer handler.
func NewConsumerHandler(completions CompletionStore, logger *slog.Logger) *ConsumerHandler {
	return &ConsumerHandler{
		completions: completions,
		logger:      logger,
	}
}

// Handle processes an incoming Kafka event based on its event type.
func (h *ConsumerHandler) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicLessonCompleted:
		return h.handleLessonCompleted(ctx, event)
	case TopicCourseCompleted:
		return h.handleCourseCompleted(ctx, event)
	default:
		h.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

// handleLessonCompleted records that a learner finished a lesson with a tutor.
// The tutor is both the subject and its owner.
func (h *ConsumerHandler) handleLessonCompleted(ctx context.Context, event *pkgkafka.Event) error {
	var p lessonCompletedPayload
	if err := event.UnmarshalData(&p); err != nil {
		return fmt.Errorf("decode lesson.completed payload: %w", err)
	}
	if p.LearnerID == "" || p.TutorID == "" {
		return fmt.Errorf("lesson.completed %s: learner_id and tutor_id are required", event.EventID)
	}

	return h.record(ctx, &domain.CompletionFact{
		ReviewerID:    p.LearnerID,
		SubjectID:     p.TutorID,
		SubjectKind:   domain.SubjectKindTutor,
		OwnerID:       p.TutorID,
		CompletedAt:   completedAt(p.CompletedAt, event),
		SourceEventID: event.EventID,
	})
}

func (h *ConsumerHandler) handleCourseCompleted(ctx context.Context, event *pkgkafka.Event) error {
	var p courseCompletedPayload
	if err := event.UnmarshalData(&p); err != nil {
		return fmt.Errorf("decode course.completed payload: %w", err)
	}
	if p.LearnerID == "" || p.CourseID == "" {
		return fmt.Errorf("course.completed %s: learner_id and course_id are required", event.EventID)
	}

	return h.record(ctx, &domain.CompletionFact{
		ReviewerID:    p.LearnerID,
		SubjectID:     p.CourseID,
		SubjectKind:   domain.SubjectKindCourse,
		OwnerID:       p.InstructorID,
		CompletedAt:   completedAt(p.CompletedAt, event),
		SourceEventID: event.EventID,
	})
}

func (h *ConsumerHandler) record(ctx context.Context, fact *domain.CompletionFact) error {
	if err := h.completions.Upsert(ctx, fact); err != nil {
		return fmt.Errorf("record completion: %w", err)
	}
	h.logger.InfoContext(ctx, "completion recorded",
		slog.String("reviewer_id", fact.ReviewerID),
		slog.String("subject_id", fact.SubjectID),
		slog.String("subject_kind", string(fact.SubjectKind)),
		slog.String("event_id", fact.SourceEventID),
	)
	return nil
}

// completedAt falls back to the envelope timestamp when the payload has none.
func completedAt(t time.Time, event *pkgkafka.Event) time.Time {
	if t.IsZero() {
		return event.Timestamp.UTC()
	}
	return t.UTC()
}

// ConsumerTopics lists the topics the review service subscribes to.
func ConsumerTopics() []string {
	return []string{TopicLessonCompleted, TopicCourseCompleted}
}

// NewConsumers creates one consumer per subscribed topic. Each event is
// handled at most once per idempotency window; messages that keep failing
// go to the dead-letter topic.
func NewConsumers(brokers []string, groupID string, handler *ConsumerHandler, store pkgkafka.IdempotencyStore, dlq pkgkafka.DeadLetterPublisher, logger *slog.Logger) []*pkgkafka.Consumer {
	if groupID == "" {
		groupID = ConsumerGroupID
	}
	handle := pkgkafka.IdempotentHandler(store, handler.Handle, logger)

	topics := ConsumerTopics()
	consumers := make([]*pkgkafka.Consumer, 0, len(topics))
	for _, topic := range topics {
		cfg := pkgkafka.ConsumerConfig{
			Brokers:  brokers,
			GroupID:  groupID,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		}
		consumers = append(consumers, pkgkafka.NewConsumer(cfg, handle, dlq, logger))
	}
	return consumers
}
