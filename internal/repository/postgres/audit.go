package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/domain"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/database"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const insertAudit = `
		INSERT INTO review_audit (id, review_id, check_name, outcome, detail, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

func appendAudit(ctx context.Context, db execer, entries []domain.AuditEntry) error {
	for _, e := range entries {
		if _, err := db.Exec(ctx, insertAudit,
			e.ID, e.ReviewID, e.Check, e.Outcome, e.Detail, e.Actor, e.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert audit entry %s: %w", e.Check, err)
		}
	}
	return nil
}

// AuditRepository implements repository.AuditRepository using PostgreSQL.
// Entries are never updated or deleted.
type AuditRepository struct {
	pool database.DBTX
}

// NewAuditRepository creates a new PostgreSQL-backed audit repository.
func NewAuditRepository(pool database.DBTX) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Append inserts entries atomically.
func (r *AuditRepository) Append(ctx context.Context, entries ...domain.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return appendAudit(ctx, tx, entries)
	})
}

// ListByReview returns the audit trail of a review, oldest first.
func (r *AuditRepository) ListByReview(ctx context.Context, reviewID string) ([]domain.AuditEntry, error) {
	query := `
		SELECT id, review_id, check_name, outcome, detail, actor, created_at
		FROM review_audit
		WHERE review_id = $1
		ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, reviewID)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	entries := []domain.AuditEntry{}
	for rows.Next() {
		var e domain.AuditEntry
		if err := rows.Scan(&e.ID, &e.ReviewID, &e.Check, &e.Outcome, &e.Detail, &e.Actor, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit rows: %w", err)
	}
	return entries, nil
}
