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

// ClassGroupRepository manages persistence for class groups.
type ClassGroupRepository struct {
	db *sqlx.DB
}

// NewClassGroupRepository constructs a new class group repository.
func NewClassGroupRepository(db *sqlx.DB) *ClassGroupRepository {
	return &ClassGroupRepository{db: db}
}

// FindByID loads a class group by id.
func (r *ClassGroupRepository) FindByID(ctx context.Context, id string) (*models.ClassGroup, error) {
	const query = `SELECT id, name, created_at FROM class_groups WHERE id = $1 LIMIT 1`
	var class models.ClassGroup
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find class group by id: %w", err)
	}
	return &class, nil
}

// FindByName loads a class group by its unique name.
func (r *ClassGroupRepository) FindByName(ctx context.Context, name string) (*models.ClassGroup, error) {
	const query = `SELECT id, name, created_at FROM class_groups WHERE name = $1 LIMIT 1`
	var class models.ClassGroup
	if err := r.db.GetContext(ctx, &class, query, name); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find class group by name: %w", err)
	}
	return &class, nil
}

// List returns all class groups ordered by name.
func (r *ClassGroupRepository) List(ctx context.Context) ([]models.ClassGroup, error) {
	const query = `SELECT id, name, created_at FROM class_groups ORDER BY name`
	var classes []models.ClassGroup
	if err := r.db.SelectContext(ctx, &classes, query); err != nil {
		return nil, fmt.Errorf("list class groups: %w", err)
	}
	return classes, nil
}

// Create inserts a new class group.
func (r *ClassGroupRepository) Create(ctx context.Context, class *models.ClassGroup) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	class.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO class_groups (id, name, created_at) VALUES (:id, :name, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class group: %w", err)
	}
	return nil
}

// Delete removes a class group.
func (r *ClassGroupRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM class_groups WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete class group: %w", err)
	}
	return nil
}

// SubjectRepository manages persistence for subjects.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs a new subject repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// FindByID loads a subject by id.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	const query = `SELECT id, name, created_at FROM subjects WHERE id = $1 LIMIT 1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find subject by id: %w", err)
	}
	return &subject, nil
}

// List returns all subjects ordered by name.
func (r *SubjectRepository) List(ctx context.Context) ([]models.Subject, error) {
	const query = `SELECT id, name, created_at FROM subjects ORDER BY name`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// Create inserts a new subject.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	subject.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO subjects (id, name, created_at) VALUES (:id, :name, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// BellRepository manages the bell schedule.
type BellRepository struct {
	db *sqlx.DB
}

// NewBellRepository constructs a new bell repository.
func NewBellRepository(db *sqlx.DB) *BellRepository {
	return &BellRepository{db: db}
}

// List returns bell periods ordered by lesson number.
func (r *BellRepository) List(ctx context.Context) ([]models.BellPeriod, error) {
	const query = `SELECT id, lesson_order, start_time, end_time FROM bell_periods ORDER BY lesson_order`
	var bells []models.BellPeriod
	if err := r.db.SelectContext(ctx, &bells, query); err != nil {
		return nil, fmt.Errorf("list bell periods: %w", err)
	}
	return bells, nil
}

// FindByOrder loads the bell period for a lesson number.
func (r *BellRepository) FindByOrder(ctx context.Context, order int) (*models.BellPeriod, error) {
	const query = `SELECT id, lesson_order, start_time, end_time FROM bell_periods WHERE lesson_order = $1 LIMIT 1`
	var bell models.BellPeriod
	if err := r.db.GetContext(ctx, &bell, query, order); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find bell period by order: %w", err)
	}
	return &bell, nil
}

// Create inserts a new bell period.
func (r *BellRepository) Create(ctx context.Context, bell *models.BellPeriod) error {
	if bell.ID == "" {
		bell.ID = uuid.NewString()
	}
	const query = `INSERT INTO bell_periods (id, lesson_order, start_time, end_time) VALUES (:id, :lesson_order, :start_time, :end_time)`
	if _, err := r.db.NamedExecContext(ctx, query, bell); err != nil {
		return fmt.Errorf("create bell period: %w", err)
	}
	return nil
}

// Delete removes a bell period.
func (r *BellRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM bell_periods WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete bell period: %w", err)
	}
	return nil
}
