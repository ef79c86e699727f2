package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-crm-api/internal/models"
)

// StudentRepository manages persistence for students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a new student repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID loads a student by id.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, full_name, class_group_id, created_at FROM students WHERE id = $1 LIMIT 1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by id: %w", err)
	}
	return &student, nil
}

// List returns students, optionally scoped to a class, ordered by name.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	query := `SELECT id, full_name, class_group_id, created_at FROM students`
	var args []interface{}
	if filter.ClassGroupID != "" {
		query += ` WHERE class_group_id = $1`
		args = append(args, filter.ClassGroupID)
	}
	query += ` ORDER BY full_name`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// Create inserts a new student.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	student.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO students (id, full_name, class_group_id, created_at) VALUES (:id, :full_name, :class_group_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// BulkCreate inserts many students in one transaction.
func (r *StudentRepository) BulkCreate(ctx context.Context, students []models.Student) error {
	if len(students) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk students: %w", err)
	}
	const query = `INSERT INTO students (id, full_name, class_group_id, created_at) VALUES (:id, :full_name, :class_group_id, :created_at)`
	now := time.Now().UTC()
	for i := range students {
		if students[i].ID == "" {
			students[i].ID = uuid.NewString()
		}
		students[i].CreatedAt = now
		if _, err := tx.NamedExecContext(ctx, query, students[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("bulk create students: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk students: %w", err)
	}
	return nil
}

// UpdateClassGroup moves a student to another class.
func (r *StudentRepository) UpdateClassGroup(ctx context.Context, studentID, classGroupID string) error {
	const query = `UPDATE students SET class_group_id = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, studentID, classGroupID); err != nil {
		return fmt.Errorf("update student class: %w", err)
	}
	return nil
}
