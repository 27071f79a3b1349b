package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/domain"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/database"
	apperrors "github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/errors"
)

// CompletionRepository implements repository.CompletionRepository using PostgreSQL.
type CompletionRepository struct {
	pool database.DBTX
}

// NewCompletionRepository creates a new PostgreSQL-backed completion repository.
func NewCompletionRepository(pool database.DBTX) *CompletionRepository {
	return &CompletionRepository{pool: pool}
}

// Upsert stores a completion fact. An older completion never replaces a newer one.
func (r *CompletionRepository) Upsert(ctx context.Context, fact *domain.CompletionFact) error {
	query := `
		INSERT INTO completion_facts (reviewer_id, subject_id, subject_kind, owner_id, completed_at, source_event_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (reviewer_id, subject_id) DO UPDATE
		SET subject_kind = EXCLUDED.subject_kind,
		    owner_id = COALESCE(NULLIF(EXCLUDED.owner_id, ''), completion_facts.owner_id),
		    completed_at = EXCLUDED.completed_at,
		    source_event_id = EXCLUDED.source_event_id
		WHERE completion_facts.completed_at <= EXCLUDED.completed_at`

	_, err := r.pool.Exec(ctx, query,
		fact.ReviewerID,
		fact.SubjectID,
		fact.SubjectKind,
		fact.OwnerID,
		fact.CompletedAt,
		fact.SourceEventID,
	)
	if err != nil {
		return fmt.Errorf("upsert completion fact: %w", err)
	}
	return nil
}

// Latest returns the most recent completion of the subject by the reviewer.
func (r *CompletionRepository) Latest(ctx context.Context, reviewerID, subjectID string) (*domain.CompletionFact, error) {
	query := `
		SELECT reviewer_id, subject_id, subject_kind, owner_id, completed_at, source_event_id
		FROM completion_facts
		WHERE reviewer_id = $1 AND subject_id = $2`

	var f domain.CompletionFact
	err := r.pool.QueryRow(ctx, query, reviewerID, subjectID).Scan(
		&f.ReviewerID,
		&f.SubjectID,
		&f.SubjectKind,
		&f.OwnerID,
		&f.CompletedAt,
		&f.SourceEventID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("completion", reviewerID+"/"+subjectID)
		}
		return nil, fmt.Errorf("get completion fact: %w", err)
	}
	return &f, nil
}

// OwnerOf returns the tutor or course owner recorded for a subject.
func (r *CompletionRepository) OwnerOf(ctx context.Context, subjectID string) (string, error) {
	query := `
		SELECT owner_id
		FROM completion_facts
		WHERE subject_id = $1 AND owner_id <> ''
		ORDER BY completed_at DESC
		LIMIT 1`

	var owner string
	if err := r.pool.QueryRow(ctx, query, subjectID).Scan(&owner); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.NotFound("subject owner", subjectID)
		}
		return "", fmt.Errorf("get subject owner: %w", err)
	}
	return owner, nil
}
