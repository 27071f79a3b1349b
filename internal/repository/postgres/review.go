package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/domain"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/repository"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/database"
	apperrors "github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/errors"
)

// livePairIndex enforces one non-removed review per reviewer and subject.
const livePairIndex = "reviews_live_pair_idx"

const reviewColumns = `
		r.id, r.reviewer_id, r.subject_id, r.subject_kind, r.overall_rating, r.categories,
		r.title, r.body, r.helpful_count, r.unhelpful_count, r.status, r.moderation_reason,
		r.created_at, r.updated_at,
		resp.responder_id, resp.body, resp.created_at, resp.updated_at`

const reviewFrom = `
		FROM reviews r
		LEFT JOIN review_responses resp ON resp.review_id = r.id`

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Create inserts a review and its moderation audit trail in one transaction.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review, audit []domain.AuditEntry) (err error) {
	query := `
		INSERT INTO reviews (id, reviewer_id, subject_id, subject_kind, overall_rating, categories,
		                     title, body, status, moderation_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	ctx, end := database.TraceQuery(ctx, "CreateReview", query)
	defer func() { end(err) }()

	categoriesJSON, err := json.Marshal(review.Categories)
	if err != nil {
		return fmt.Errorf("marshal categories: %w", err)
	}

	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, query,
			review.ID,
			review.ReviewerID,
			review.SubjectID,
			review.SubjectKind,
			review.OverallRating,
			categoriesJSON,
			review.Title,
			review.Body,
			review.Status,
			review.ModerationReason,
			review.CreatedAt,
			review.UpdatedAt,
		)
		if err != nil {
			if database.IsUniqueViolation(err, livePairIndex) {
				return apperrors.DuplicateReview(review.ReviewerID, review.SubjectID)
			}
			return fmt.Errorf("insert review: %w", err)
		}
		return appendAudit(ctx, tx, audit)
	})
}

// GetByID retrieves a review with its owner response, if any.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	query := `SELECT` + reviewColumns + reviewFrom + `
		WHERE r.id = $1`

	rv, err := scanReview(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("review", id)
		}
		return nil, fmt.Errorf("get review by id: %w", err)
	}
	return rv, nil
}

// Update stores the mutable fields of a review and appends audit entries.
// The write only applies while the stored status is still from.
func (r *ReviewRepository) Update(ctx context.Context, review *domain.Review, from domain.ModerationStatus, audit []domain.AuditEntry) error {
	categoriesJSON, err := json.Marshal(review.Categories)
	if err != nil {
		return fmt.Errorf("marshal categories: %w", err)
	}

	query := `
		UPDATE reviews
		SET overall_rating = $1, categories = $2, title = $3, body = $4,
		    status = $5, moderation_reason = $6, updated_at = $7
		WHERE id = $8 AND status = $9`

	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, query,
			review.OverallRating,
			categoriesJSON,
			review.Title,
			review.Body,
			review.Status,
			review.ModerationReason,
			review.UpdatedAt,
			review.ID,
			from,
		)
		if err != nil {
			return fmt.Errorf("update review: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return staleUpdate(ctx, tx, review.ID, from)
		}
		return appendAudit(ctx, tx, audit)
	})
}

// staleUpdate explains an update that matched no row.
func staleUpdate(ctx context.Context, tx pgx.Tx, id string, from domain.ModerationStatus) error {
	var current domain.ModerationStatus
	err := tx.QueryRow(ctx, `SELECT status FROM reviews WHERE id = $1`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("review", id)
		}
		return fmt.Errorf("read review status: %w", err)
	}
	return apperrors.Conflict(fmt.Sprintf("review %s changed from %s to %s concurrently", id, from, current))
}

// ExistsLive reports whether the reviewer has a non-removed review of the subject.
func (r *ReviewRepository) ExistsLive(ctx context.Context, reviewerID, subjectID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM reviews
			WHERE reviewer_id = $1 AND subject_id = $2 AND status <> 'removed'
		)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, reviewerID, subjectID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check live review: %w", err)
	}
	return exists, nil
}

// List returns a page of reviews matching the filter along with the total count.
func (r *ReviewRepository) List(ctx context.Context, filter repository.ReviewFilter) (reviews []domain.Review, total int, err error) {
	var (
		conditions []string
		args       []any
		argIdx     = 1
	)

	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("r.subject_id = $%d", argIdx))
		args = append(args, filter.SubjectID)
		argIdx++
	}
	if filter.SubjectKind != "" {
		conditions = append(conditions, fmt.Sprintf("r.subject_kind = $%d", argIdx))
		args = append(args, string(filter.SubjectKind))
		argIdx++
	}
	if filter.ReviewerID != "" {
		conditions = append(conditions, fmt.Sprintf("r.reviewer_id = $%d", argIdx))
		args = append(args, filter.ReviewerID)
		argIdx++
	}
	if len(filter.Statuses) > 0 {
		conditions = append(conditions, fmt.Sprintf("r.status = ANY($%d)", argIdx))
		args = append(args, statusStrings(filter.Statuses))
		argIdx++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	query := fmt.Sprintf(`SELECT %s, count(*) OVER() AS total_count %s
		%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`,
		reviewColumns, reviewFrom, where, orderBy(filter.Sort), argIdx, argIdx+1)
	args = append(args, limit, offset)

	ctx, end := database.TraceQuery(ctx, "ListReviews", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rv, err := scanReview(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, *rv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate review rows: %w", err)
	}

	if reviews == nil {
		reviews = []domain.Review{}
	}
	return reviews, total, nil
}

// ListEligible returns every review of the subject that counts towards its rating.
func (r *ReviewRepository) ListEligible(ctx context.Context, subjectID string) (reviews []domain.Review, err error) {
	query := `SELECT` + reviewColumns + reviewFrom + `
		WHERE r.subject_id = $1 AND r.status = ANY($2)
		ORDER BY r.created_at, r.id`

	ctx, end := database.TraceQuery(ctx, "ListEligibleReviews", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, subjectID, statusStrings(domain.AggregationEligibleStatuses()))
	if err != nil {
		return nil, fmt.Errorf("list eligible reviews: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, *rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}
	return reviews, nil
}

// CountSince counts the reviewer's reviews created at or after since.
func (r *ReviewRepository) CountSince(ctx context.Context, reviewerID string, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM reviews WHERE reviewer_id = $1 AND created_at >= $2`

	var n int
	if err := r.pool.QueryRow(ctx, query, reviewerID, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("count recent reviews: %w", err)
	}
	return n, nil
}

// ReviewerStats returns the reviewer's mean overall rating over subjects of kind.
func (r *ReviewRepository) ReviewerStats(ctx context.Context, reviewerID string, kind domain.SubjectKind) (float64, int, error) {
	query := `
		SELECT COALESCE(AVG(overall_rating), 0)::float8, COUNT(*)
		FROM reviews
		WHERE reviewer_id = $1 AND subject_kind = $2 AND status NOT IN ('rejected', 'removed')`

	var (
		mean  float64
		count int
	)
	if err := r.pool.QueryRow(ctx, query, reviewerID, kind).Scan(&mean, &count); err != nil {
		return 0, 0, fmt.Errorf("get reviewer stats: %w", err)
	}
	return mean, count, nil
}

func orderBy(sort string) string {
	switch sort {
	case domain.SortHelpful:
		return "(r.helpful_count - r.unhelpful_count) DESC, r.created_at DESC, r.id"
	case domain.SortOldest:
		return "r.created_at ASC, r.id"
	default:
		return "r.created_at DESC, r.id"
	}
}

func statusStrings(statuses []domain.ModerationStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// scanReview reads one review row. Extra destinations, such as a window
// count, are scanned after the review columns.
func scanReview(row pgx.Row, extra ...any) (*domain.Review, error) {
	var (
		rv             domain.Review
		categoriesJSON []byte
		responderID    *string
		responseBody   *string
		respCreatedAt  *time.Time
		respUpdatedAt  *time.Time
	)

	dest := []any{
		&rv.ID,
		&rv.ReviewerID,
		&rv.SubjectID,
		&rv.SubjectKind,
		&rv.OverallRating,
		&categoriesJSON,
		&rv.Title,
		&rv.Body,
		&rv.HelpfulCount,
		&rv.UnhelpfulCount,
		&rv.Status,
		&rv.ModerationReason,
		&rv.CreatedAt,
		&rv.UpdatedAt,
		&responderID,
		&responseBody,
		&respCreatedAt,
		&respUpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	if len(categoriesJSON) > 0 {
		if err := json.Unmarshal(categoriesJSON, &rv.Categories); err != nil {
			return nil, fmt.Errorf("unmarshal categories: %w", err)
		}
	}
	rv.ApplyVoteCounts(rv.HelpfulCount, rv.UnhelpfulCount)

	if responderID != nil {
		rv.Response = &domain.ReviewResponse{
			ReviewID:    rv.ID,
			ResponderID: *responderID,
		}
		if responseBody != nil {
			rv.Response.Body = *responseBody
		}
		if respCreatedAt != nil {
			rv.Response.CreatedAt = *respCreatedAt
		}
		if respUpdatedAt != nil {
			rv.Response.UpdatedAt = *respUpdatedAt
		}
	}
	return &rv, nil
}
