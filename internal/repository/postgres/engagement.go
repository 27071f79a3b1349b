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

// VoteRepository implements repository.VoteRepository using PostgreSQL.
type VoteRepository struct {
	pool database.DBTX
}

// NewVoteRepository creates a new PostgreSQL-backed vote repository.
func NewVoteRepository(pool database.DBTX) *VoteRepository {
	return &VoteRepository{pool: pool}
}

// Upsert records the vote and recounts the review's counters in the same
// transaction, so concurrent votes never lose an update.
func (r *VoteRepository) Upsert(ctx context.Context, vote *domain.Vote) (helpful, unhelpful int, err error) {
	upsert := `
		INSERT INTO review_votes (review_id, voter_id, helpful, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (review_id, voter_id) DO UPDATE
		SET helpful = EXCLUDED.helpful, updated_at = EXCLUDED.updated_at`

	recount := `
		UPDATE reviews
		SET helpful_count = (SELECT COUNT(*) FROM review_votes WHERE review_id = $1 AND helpful),
		    unhelpful_count = (SELECT COUNT(*) FROM review_votes WHERE review_id = $1 AND NOT helpful)
		WHERE id = $1
		RETURNING helpful_count, unhelpful_count`

	err = database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, upsert, vote.ReviewID, vote.VoterID, vote.Helpful, vote.UpdatedAt); err != nil {
			return fmt.Errorf("upsert vote: %w", err)
		}
		if err := tx.QueryRow(ctx, recount, vote.ReviewID).Scan(&helpful, &unhelpful); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NotFound("review", vote.ReviewID)
			}
			return fmt.Errorf("recount votes: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return helpful, unhelpful, nil
}

// ResponseRepository implements repository.ResponseRepository using PostgreSQL.
type ResponseRepository struct {
	pool database.DBTX
}

// NewResponseRepository creates a new PostgreSQL-backed response repository.
func NewResponseRepository(pool database.DBTX) *ResponseRepository {
	return &ResponseRepository{pool: pool}
}

// Upsert creates the response of a review or replaces its body.
func (r *ResponseRepository) Upsert(ctx context.Context, resp *domain.ReviewResponse) error {
	query := `
		INSERT INTO review_responses (review_id, responder_id, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (review_id) DO UPDATE
		SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, query, resp.ReviewID, resp.ResponderID, resp.Body, resp.CreatedAt, resp.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert response: %w", err)
	}
	return nil
}

// GetByReview returns the response to a review.
func (r *ResponseRepository) GetByReview(ctx context.Context, reviewID string) (*domain.ReviewResponse, error) {
	query := `
		SELECT review_id, responder_id, body, created_at, updated_at
		FROM review_responses
		WHERE review_id = $1`

	var resp domain.ReviewResponse
	err := r.pool.QueryRow(ctx, query, reviewID).Scan(
		&resp.ReviewID,
		&resp.ResponderID,
		&resp.Body,
		&resp.CreatedAt,
		&resp.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("response", reviewID)
		}
		return nil, fmt.Errorf("get response: %w", err)
	}
	return &resp, nil
}

// ReportRepository implements repository.ReportRepository using PostgreSQL.
type ReportRepository struct {
	pool database.DBTX
}

// NewReportRepository creates a new PostgreSQL-backed report repository.
func NewReportRepository(pool database.DBTX) *ReportRepository {
	return &ReportRepository{pool: pool}
}

// Create stores the report unless the reporter already has an open one on
// the review, and returns the number of open reports.
func (r *ReportRepository) Create(ctx context.Context, report *domain.Report) (open int, err error) {
	insert := `
		INSERT INTO review_reports (id, review_id, reporter_id, reason, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (review_id, reporter_id) WHERE NOT resolved DO NOTHING`

	count := `SELECT COUNT(*) FROM review_reports WHERE review_id = $1 AND NOT resolved`

	err = database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insert, report.ID, report.ReviewID, report.ReporterID, report.Reason, report.CreatedAt); err != nil {
			return fmt.Errorf("insert report: %w", err)
		}
		if err := tx.QueryRow(ctx, count, report.ReviewID).Scan(&open); err != nil {
			return fmt.Errorf("count open reports: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return open, nil
}

// ResolveAll closes every open report on the review.
func (r *ReportRepository) ResolveAll(ctx context.Context, reviewID string) error {
	_, err := r.pool.Exec(ctx, `UPDATE review_reports SET resolved = TRUE WHERE review_id = $1 AND NOT resolved`, reviewID)
	if err != nil {
		return fmt.Errorf("resolve reports: %w", err)
	}
	return nil
}
