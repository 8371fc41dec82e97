package postgres

import (
	"github.com/diagnosis/medcv-review/internal/repo"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewStore wires the pgx repositories over one pool. Close closes the pool.
func NewStore(pool *pgxpool.Pool) *repo.Store {
	return &repo.Store{
		Users:   NewUsersRepo(pool),
		CVs:     NewCVsRepo(pool),
		Reviews: NewReviewsRepo(pool),
		Close:   pool.Close,
	}
}
