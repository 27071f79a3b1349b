package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/domain"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/repository"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/database"
	apperrors "github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/errors"
)

// AggregateRepository implements repository.AggregateRepository using PostgreSQL.
// The computed rating is stored whole as JSONB.
type AggregateRepository struct {
	pool database.DBTX
}

// NewAggregateRepository creates a new PostgreSQL-backed aggregate repository.
func NewAggregateRepository(pool database.DBTX) *AggregateRepository {
	return &AggregateRepository{pool: pool}
}

// Rebuild holds a transaction-scoped advisory lock on the subject while it
// reads the eligible reviews and saves the rating built from them.
func (r *AggregateRepository) Rebuild(ctx context.Context, subjectID string, build repository.BuildFunc) (agg *domain.AggregatedRating, err error) {
	ctx, end := database.TraceQuery(ctx, "RebuildAggregate", "pg_advisory_xact_lock")
	defer func() { end(err) }()

	err = database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, subjectID); err != nil {
			return fmt.Errorf("lock subject %s: %w", subjectID, err)
		}

		reviews, err := NewReviewRepository(tx).ListEligible(ctx, subjectID)
		if err != nil {
			return err
		}

		built, err := build(reviews)
		if err != nil {
			return err
		}
		if err := saveAggregate(ctx, tx, built); err != nil {
			return err
		}
		agg = built
		return nil
	})
	if err != nil {
		return nil, err
	}
	return agg, nil
}

func saveAggregate(ctx context.Context, db database.DBTX, agg *domain.AggregatedRating) error {
	var version int64
	err := db.QueryRow(ctx,
		`SELECT version FROM review_aggregates WHERE subject_id = $1`, agg.SubjectID,
	).Scan(&version)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("read aggregate version: %w", err)
	}
	agg.Version = version + 1

	payload, err := json.Marshal(agg)
	if err != nil {
		return fmt.Errorf("marshal aggregate: %w", err)
	}

	query := `
		INSERT INTO review_aggregates (subject_id, subject_kind, payload, computed_at, version)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (subject_id) DO UPDATE
		SET subject_kind = EXCLUDED.subject_kind, payload = EXCLUDED.payload,
		    computed_at = EXCLUDED.computed_at, version = EXCLUDED.version`

	if _, err := db.Exec(ctx, query, agg.SubjectID, agg.SubjectKind, payload, agg.ComputedAt, agg.Version); err != nil {
		return fmt.Errorf("save aggregate: %w", err)
	}
	return nil
}

// Get returns the stored rating of the subject.
func (r *AggregateRepository) Get(ctx context.Context, subjectID string) (*domain.AggregatedRating, error) {
	var payload []byte
	var version int64
	err := r.pool.QueryRow(ctx,
		`SELECT payload, version FROM review_aggregates WHERE subject_id = $1`, subjectID,
	).Scan(&payload, &version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("rating", subjectID)
		}
		return nil, fmt.Errorf("get aggregate: %w", err)
	}

	var agg domain.AggregatedRating
	if err := json.Unmarshal(payload, &agg); err != nil {
		return nil, fmt.Errorf("unmarshal aggregate: %w", err)
	}
	agg.Version = version
	return &agg, nil
}
