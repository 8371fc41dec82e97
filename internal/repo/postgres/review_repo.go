package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/diagnosis/medcv-review/internal/domain"
	"github.com/diagnosis/medcv-review/internal/repo"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const reviewColumns = `id, cv_id, user_id, COALESCE(reviewer_id, ''), review_type, sections, global_summary,
rewritten_cv, meta, status, completed_at, delivered_at, additional_notes, user_rating, user_feedback,
created_at, updated_at`

type ReviewsRepo struct{ pool *pgxpool.Pool }

func NewReviewsRepo(pool *pgxpool.Pool) *ReviewsRepo { return &ReviewsRepo{pool: pool} }

// jsonb marshals v, keeping nil pointers as SQL NULL.
func jsonb[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func unjsonb[T any](raw []byte) (*T, error) {
	if raw == nil {
		return nil, nil
	}
	v := new(T)
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, err
	}
	return v, nil
}

func scanReview(row pgx.Row) (*domain.Review, error) {
	var (
		rv                          domain.Review
		sections, summary, cv, meta []byte
	)
	if err := row.Scan(
		&rv.ID, &rv.CVID, &rv.UserID, &rv.ReviewerID, &rv.ReviewType, &sections, &summary,
		&cv, &meta, &rv.Status, &rv.CompletedAt, &rv.DeliveredAt, &rv.AdditionalNotes, &rv.UserRating,
		&rv.UserFeedback, &rv.CreatedAt, &rv.UpdatedAt,
	); err != nil {
		return nil, notFound(err)
	}
	var err error
	if err = json.Unmarshal(sections, &rv.Sections); err != nil {
		return nil, fmt.Errorf("decode sections: %w", err)
	}
	if rv.GlobalSummary, err = unjsonb[domain.GlobalSummary](summary); err != nil {
		return nil, fmt.Errorf("decode global summary: %w", err)
	}
	if rv.RewrittenCV, err = unjsonb[domain.RewrittenCV](cv); err != nil {
		return nil, fmt.Errorf("decode rewritten cv: %w", err)
	}
	if rv.Meta, err = unjsonb[domain.ReviewMeta](meta); err != nil {
		return nil, fmt.Errorf("decode meta: %w", err)
	}
	return &rv, nil
}

func (r *ReviewsRepo) Create(ctx context.Context, rv *domain.Review) error {
	const q = `
INSERT INTO reviews (id, cv_id, user_id, reviewer_id, review_type, sections, global_summary, rewritten_cv, meta,
	status, completed_at, delivered_at, additional_notes, user_rating, user_feedback, created_at, updated_at)
VALUES ($1,$2,$3,NULLIF($4, ''),$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`
	if rv.ID == "" {
		rv.ID = uuid.NewString()
	}
	sections, err := json.Marshal(rv.Sections)
	if err != nil {
		return fmt.Errorf("encode sections: %w", err)
	}
	summary, err := jsonb(rv.GlobalSummary)
	if err != nil {
		return fmt.Errorf("encode global summary: %w", err)
	}
	rewritten, err := jsonb(rv.RewrittenCV)
	if err != nil {
		return fmt.Errorf("encode rewritten cv: %w", err)
	}
	meta, err := jsonb(rv.Meta)
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err = r.pool.Exec(ctx, q, rv.ID, rv.CVID, rv.UserID, rv.ReviewerID, rv.ReviewType, sections, summary,
		rewritten, meta, rv.Status, rv.CompletedAt, rv.DeliveredAt, rv.AdditionalNotes, rv.UserRating,
		rv.UserFeedback, rv.CreatedAt, rv.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (r *ReviewsRepo) FindByID(ctx context.Context, id string) (*domain.Review, error) {
	q := `SELECT ` + reviewColumns + ` FROM reviews WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return scanReview(r.pool.QueryRow(ctx, q, id))
}

func (r *ReviewsRepo) FindByCVID(ctx context.Context, cvID string) (*domain.Review, error) {
	q := `SELECT ` + reviewColumns + ` FROM reviews WHERE cv_id=$1`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return scanReview(r.pool.QueryRow(ctx, q, cvID))
}

func (r *ReviewsRepo) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM reviews`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count reviews: %w", err)
	}
	return n, nil
}

func (r *ReviewsRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	if _, err := r.pool.Exec(ctx, `DELETE FROM reviews WHERE id=$1`, id); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	return nil
}

var _ repo.ReviewRepository = (*ReviewsRepo)(nil)
