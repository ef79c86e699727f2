package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-crm-api/internal/models"
)

// GradeRepository handles daily and final grade persistence.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository creates a new grade repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// Upsert writes a daily grade keyed by (student_id, subject_id, date).
func (r *GradeRepository) Upsert(ctx context.Context, grade *models.GradeEntry) (*models.GradeEntry, error) {
	now := time.Now().UTC()
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	if grade.CreatedAt.IsZero() {
		grade.CreatedAt = now
	}
	grade.UpdatedAt = now
	const query = `INSERT INTO grade_entries (id, student_id, subject_id, date, value, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (student_id, subject_id, date)
DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
RETURNING id, student_id, subject_id, date, value, created_at, updated_at`
	var stored models.GradeEntry
	if err := r.db.GetContext(ctx, &stored, query, grade.ID, grade.StudentID, grade.SubjectID, grade.Date, grade.Value, grade.CreatedAt, grade.UpdatedAt); err != nil {
		return nil, fmt.Errorf("upsert grade entry: %w", err)
	}
	return &stored, nil
}

// UpsertFinal writes a period grade keyed by (student_id, subject_id, period_name).
func (r *GradeRepository) UpsertFinal(ctx context.Context, final *models.FinalGradeEntry) (*models.FinalGradeEntry, error) {
	now := time.Now().UTC()
	if final.ID == "" {
		final.ID = uuid.NewString()
	}
	if final.CreatedAt.IsZero() {
		final.CreatedAt = now
	}
	final.UpdatedAt = now
	const query = `INSERT INTO final_grade_entries (id, student_id, subject_id, period_name, value, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (student_id, subject_id, period_name)
DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
RETURNING id, student_id, subject_id, period_name, value, created_at, updated_at`
	var stored models.FinalGradeEntry
	if err := r.db.GetContext(ctx, &stored, query, final.ID, final.StudentID, final.SubjectID, final.PeriodName, final.Value, final.CreatedAt, final.UpdatedAt); err != nil {
		return nil, fmt.Errorf("upsert final grade entry: %w", err)
	}
	return &stored, nil
}

// ListBySubject returns every daily grade for a subject, newest date last.
func (r *GradeRepository) ListBySubject(ctx context.Context, subjectID string) ([]models.GradeEntry, error) {
	const query = `SELECT id, student_id, subject_id, date, value, created_at, updated_at FROM grade_entries WHERE subject_id = $1 ORDER BY date`
	var grades []models.GradeEntry
	if err := r.db.SelectContext(ctx, &grades, query, subjectID); err != nil {
		return nil, fmt.Errorf("list grades by subject: %w", err)
	}
	return grades, nil
}

// ListFinalsByPeriod returns final grades for a subject and period.
func (r *GradeRepository) ListFinalsByPeriod(ctx context.Context, subjectID, periodName string) ([]models.FinalGradeEntry, error) {
	const query = `SELECT id, student_id, subject_id, period_name, value, created_at, updated_at FROM final_grade_entries WHERE subject_id = $1 AND period_name = $2`
	var finals []models.FinalGradeEntry
	if err := r.db.SelectContext(ctx, &finals, query, subjectID, periodName); err != nil {
		return nil, fmt.Errorf("list final grades: %w", err)
	}
	return finals, nil
}

// RangeStats aggregates average and count per student of a class over an
// inclusive date range.
func (r *GradeRepository) RangeStats(ctx context.Context, classGroupID string, startDate, endDate time.Time) ([]models.GradeRangeStats, error) {
	const query = `SELECT st.id AS student_id,
        COALESCE(ROUND(AVG(ge.value)::numeric, 2), 0) AS average,
        COUNT(ge.id) AS count
        FROM students st
        LEFT JOIN grade_entries ge ON ge.student_id = st.id AND ge.date >= $2 AND ge.date <= $3
        WHERE st.class_group_id = $1
        GROUP BY st.id`
	var stats []models.GradeRangeStats
	if err := r.db.SelectContext(ctx, &stats, query, classGroupID, startDate, endDate); err != nil {
		return nil, fmt.Errorf("grade range stats: %w", err)
	}
	return stats, nil
}
