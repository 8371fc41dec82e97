package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diagnosis/medcv-review/internal/domain"
	"github.com/diagnosis/medcv-review/internal/repo"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const queryTimeout = 3 * time.Second

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

const userColumns = `id, first_name, last_name, email, phone_number, role, active, password_hash,
password_changed_at, COALESCE(password_reset_link, ''), password_expires_at, created_at, updated_at`

type UsersRepo struct{ pool *pgxpool.Pool }

func NewUsersRepo(pool *pgxpool.Pool) *UsersRepo { return &UsersRepo{pool: pool} }

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PhoneNumber, &u.Role, &u.Active, &u.PasswordHash,
		&u.PasswordChangedAt, &u.PasswordResetLink, &u.PasswordExpiresAt, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *UsersRepo) Create(ctx context.Context, u *domain.User) error {
	const q = `
INSERT INTO users (id, first_name, last_name, email, phone_number, role, active, password_hash, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err := r.pool.Exec(ctx, q, u.ID, u.FirstName, u.LastName, u.Email, u.PhoneNumber, u.Role, u.Active,
		u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UsersRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE lower(email)=lower($1) AND active`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return scanUser(r.pool.QueryRow(ctx, q, email))
}

func (r *UsersRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id=$1 AND active`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return scanUser(r.pool.QueryRow(ctx, q, id))
}

func (r *UsersRepo) FindByResetToken(ctx context.Context, hash string, now time.Time) (*domain.User, error) {
	q := `SELECT ` + userColumns + ` FROM users
WHERE password_reset_link=$1 AND password_expires_at > $2 AND active`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return scanUser(r.pool.QueryRow(ctx, q, hash, now))
}

func (r *UsersRepo) UpdateCredentials(ctx context.Context, u *domain.User) error {
	const q = `
UPDATE users SET password_hash=$2, password_changed_at=$3, password_reset_link=NULLIF($4, ''),
	password_expires_at=$5, updated_at=$6
WHERE id=$1 AND active`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	tag, err := r.pool.Exec(ctx, q, u.ID, u.PasswordHash, u.PasswordChangedAt, u.PasswordResetLink,
		u.PasswordExpiresAt, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update credentials: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UsersRepo) FindSummaries(ctx context.Context, ids []string) (map[string]*domain.UserSummary, error) {
	out := make(map[string]*domain.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	const q = `SELECT id, first_name, last_name, email FROM users WHERE id = ANY($1) AND active`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, ids)
	if err != nil {
		return nil, fmt.Errorf("query user summaries: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var s domain.UserSummary
		if err := rows.Scan(&s.ID, &s.FirstName, &s.LastName, &s.Email); err != nil {
			return nil, err
		}
		out[s.ID] = &s
	}
	return out, rows.Err()
}

var _ repo.UserRepository = (*UsersRepo)(nil)
