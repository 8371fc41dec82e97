package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/diagnosis/medcv-review/internal/domain"
	"github.com/diagnosis/medcv-review/internal/repo"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const cvColumns = `id, user_id, first_name, last_name, year_of_birth, year_of_medical_graduation,
applying_for_job_role, target_markets, previous_experiences, research_experience, teaching_experience,
leadership_management_experience, audit_quality_improvement_experience, clinical_skills_procedure_competency,
personal_statement, service_level, status, COALESCE(review_id, ''), submitted_at, reviewed_at, created_at, updated_at`

type CVsRepo struct{ pool *pgxpool.Pool }

func NewCVsRepo(pool *pgxpool.Pool) *CVsRepo { return &CVsRepo{pool: pool} }

func scanCV(row pgx.Row) (*domain.CV, error) {
	var (
		cv   domain.CV
		exps []byte
	)
	if err := row.Scan(
		&cv.ID, &cv.UserID, &cv.FirstName, &cv.LastName, &cv.YearOfBirth, &cv.YearOfMedicalGraduation,
		&cv.ApplyingForJobRole, &cv.TargetMarkets, &exps, &cv.ResearchExperience, &cv.TeachingExperience,
		&cv.LeadershipManagementExperience, &cv.AuditQualityImprovementExperience, &cv.ClinicalSkillsProcedureCompetency,
		&cv.PersonalStatement, &cv.ServiceLevel, &cv.Status, &cv.ReviewID, &cv.SubmittedAt, &cv.ReviewedAt,
		&cv.CreatedAt, &cv.UpdatedAt,
	); err != nil {
		return nil, notFound(err)
	}
	if err := json.Unmarshal(exps, &cv.PreviousExperiences); err != nil {
		return nil, fmt.Errorf("decode previous experiences: %w", err)
	}
	return &cv, nil
}

func (r *CVsRepo) Create(ctx context.Context, cv *domain.CV) error {
	const q = `
INSERT INTO cvs (id, user_id, first_name, last_name, year_of_birth, year_of_medical_graduation,
	applying_for_job_role, target_markets, previous_experiences, research_experience, teaching_experience,
	leadership_management_experience, audit_quality_improvement_experience, clinical_skills_procedure_competency,
	personal_statement, service_level, status, submitted_at, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`
	if cv.ID == "" {
		cv.ID = uuid.NewString()
	}
	exps, err := json.Marshal(cv.PreviousExperiences)
	if err != nil {
		return fmt.Errorf("encode previous experiences: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err = r.pool.Exec(ctx, q, cv.ID, cv.UserID, cv.FirstName, cv.LastName, cv.YearOfBirth, cv.YearOfMedicalGraduation,
		cv.ApplyingForJobRole, cv.TargetMarkets, exps, cv.ResearchExperience, cv.TeachingExperience,
		cv.LeadershipManagementExperience, cv.AuditQualityImprovementExperience, cv.ClinicalSkillsProcedureCompetency,
		cv.PersonalStatement, cv.ServiceLevel, cv.Status, cv.SubmittedAt, cv.CreatedAt, cv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert cv: %w", err)
	}
	return nil
}

func (r *CVsRepo) FindByID(ctx context.Context, id string) (*domain.CV, error) {
	q := `SELECT ` + cvColumns + ` FROM cvs WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return scanCV(r.pool.QueryRow(ctx, q, id))
}

func (r *CVsRepo) UpdateStatus(ctx context.Context, cv *domain.CV) error {
	const q = `UPDATE cvs SET status=$2, review_id=NULLIF($3, ''), reviewed_at=$4, updated_at=$5 WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	tag, err := r.pool.Exec(ctx, q, cv.ID, cv.Status, cv.ReviewID, cv.ReviewedAt, cv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update cv status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// whereClause renders f as SQL conditions with positional args.
func whereClause(f repo.CVFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, strings.Replace(cond, "?", "$"+strconv.Itoa(len(args)), 1))
	}
	if f.UserID != "" {
		add("user_id = ?", f.UserID)
	}
	if f.Status != "" {
		add("status = ?", f.Status)
	}
	if f.NotStatus != "" {
		add("status <> ?", f.NotStatus)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *CVsRepo) List(ctx context.Context, f repo.CVFilter) ([]*domain.CV, error) {
	where, args := whereClause(f)
	q := `SELECT ` + cvColumns + ` FROM cvs` + where + ` ORDER BY created_at DESC, id`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list cvs: %w", err)
	}
	defer rows.Close()
	out := []*domain.CV{}
	for rows.Next() {
		cv, err := scanCV(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cv)
	}
	return out, rows.Err()
}

func (r *CVsRepo) Count(ctx context.Context, f repo.CVFilter) (int64, error) {
	where, args := whereClause(f)
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM cvs`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count cvs: %w", err)
	}
	return n, nil
}

var _ repo.CVRepository = (*CVsRepo)(nil)
