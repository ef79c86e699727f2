package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-crm-api/internal/models"
)

// AttendanceRepository handles attendance mark persistence.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository creates a new attendance repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Upsert writes a mark keyed by (student_id, date): an existing row has its
// status overwritten, otherwise a new row is created. Single statement, so
// concurrent marks for the same key cannot duplicate rows.
func (r *AttendanceRepository) Upsert(ctx context.Context, mark *models.AttendanceMark) (*models.AttendanceMark, error) {
	now := time.Now().UTC()
	if mark.ID == "" {
		mark.ID = uuid.NewString()
	}
	if mark.CreatedAt.IsZero() {
		mark.CreatedAt = now
	}
	mark.UpdatedAt = now
	const query = `INSERT INTO attendance_marks (id, student_id, date, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (student_id, date)
DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
RETURNING id, student_id, date, status, created_at, updated_at`
	var stored models.AttendanceMark
	if err := r.db.GetContext(ctx, &stored, query, mark.ID, mark.StudentID, mark.Date, mark.Status, mark.CreatedAt, mark.UpdatedAt); err != nil {
		return nil, fmt.Errorf("upsert attendance mark: %w", err)
	}
	return &stored, nil
}

// List returns marks filtered by class and/or date. The class filter joins
// through students because marks carry no class id themselves.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceMark, error) {
	query := `SELECT am.id, am.student_id, am.date, am.status, am.created_at, am.updated_at FROM attendance_marks am`
	var args []interface{}
	if filter.ClassGroupID != "" {
		query += ` JOIN students st ON st.id = am.student_id`
	}
	query += ` WHERE 1=1`
	if filter.ClassGroupID != "" {
		query += fmt.Sprintf(" AND st.class_group_id = $%d", len(args)+1)
		args = append(args, filter.ClassGroupID)
	}
	if filter.Date != nil {
		query += fmt.Sprintf(" AND am.date = $%d", len(args)+1)
		args = append(args, *filter.Date)
	}
	query += " ORDER BY am.date DESC, am.student_id"

	var marks []models.AttendanceMark
	if err := r.db.SelectContext(ctx, &marks, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance marks: %w", err)
	}
	return marks, nil
}

// RangeCounts aggregates absent/late counts per student of a class over an
// inclusive date range.
func (r *AttendanceRepository) RangeCounts(ctx context.Context, classGroupID string, startDate, endDate time.Time) ([]models.AttendanceRangeCounts, error) {
	const query = `SELECT st.id AS student_id,
        COUNT(*) FILTER (WHERE am.status = 'ABSENT') AS absent,
        COUNT(*) FILTER (WHERE am.status = 'LATE') AS late
        FROM students st
        LEFT JOIN attendance_marks am ON am.student_id = st.id AND am.date >= $2 AND am.date <= $3
        WHERE st.class_group_id = $1
        GROUP BY st.id`
	var counts []models.AttendanceRangeCounts
	if err := r.db.SelectContext(ctx, &counts, query, classGroupID, startDate, endDate); err != nil {
		return nil, fmt.Errorf("attendance range counts: %w", err)
	}
	return counts, nil
}
