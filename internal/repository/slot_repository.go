package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/school-crm-api/internal/models"
)

// Sentinels for unique-index violations raised by the insert itself. The
// validator checks first, but two concurrent submissions can both pass the
// read; the indexes in schema.sql are the backstop and these errors let
// the service report the same conflict dimension either way.
var (
	ErrSlotRoomTaken   = errors.New("room already taken at this slot")
	ErrSlotTeacherBusy = errors.New("teacher already booked at this slot")
	ErrSlotClassBusy   = errors.New("class already booked at this slot")
)

const (
	uniqueSlotRoomIdx    = "uq_lesson_slots_room"
	uniqueSlotTeacherIdx = "uq_lesson_slots_teacher"
	uniqueSlotClassIdx   = "uq_lesson_slots_class"
)

const slotColumns = `id, day_of_week, start_time, end_time, room_number, class_group_id, subject_id, teacher_id, created_at`

// SlotRepository provides persistence for lesson slots.
type SlotRepository struct {
	db *sqlx.DB
}

// NewSlotRepository creates a new slot repository.
func NewSlotRepository(db *sqlx.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

// List returns slots decorated with display names, optionally filtered by
// class, teacher and day.
func (r *SlotRepository) List(ctx context.Context, filter models.LessonSlotFilter) ([]models.LessonSlotView, error) {
	base := `SELECT ls.id, ls.day_of_week, ls.start_time, ls.end_time, ls.room_number,
        ls.class_group_id, ls.subject_id, ls.teacher_id, ls.created_at,
        s.name AS subject_name, cg.name AS class_group_name, u.email AS teacher_name
        FROM lesson_slots ls
        JOIN subjects s ON s.id = ls.subject_id
        JOIN class_groups cg ON cg.id = ls.class_group_id
        JOIN users u ON u.id = ls.teacher_id
        WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.ClassGroupID != "" {
		conditions = append(conditions, fmt.Sprintf("ls.class_group_id = $%d", len(args)+1))
		args = append(args, filter.ClassGroupID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("ls.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.DayOfWeek != "" {
		conditions = append(conditions, fmt.Sprintf("ls.day_of_week = $%d", len(args)+1))
		args = append(args, filter.DayOfWeek)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}
	base += " ORDER BY ls.day_of_week, ls.start_time"

	var slots []models.LessonSlotView
	if err := r.db.SelectContext(ctx, &slots, base, args...); err != nil {
		return nil, fmt.Errorf("list lesson slots: %w", err)
	}
	return slots, nil
}

// FindByID loads a slot by id.
func (r *SlotRepository) FindByID(ctx context.Context, id string) (*models.LessonSlot, error) {
	query := fmt.Sprintf(`SELECT %s FROM lesson_slots WHERE id = $1 LIMIT 1`, slotColumns)
	var slot models.LessonSlot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find lesson slot by id: %w", err)
	}
	return &slot, nil
}

// FindByRoomAt returns the slot occupying a room at an exact day/start time,
// or sql.ErrNoRows when the room is free.
func (r *SlotRepository) FindByRoomAt(ctx context.Context, dayOfWeek, startTime, roomNumber string) (*models.LessonSlot, error) {
	query := fmt.Sprintf(`SELECT %s FROM lesson_slots WHERE day_of_week = $1 AND start_time = $2 AND room_number = $3 LIMIT 1`, slotColumns)
	var slot models.LessonSlot
	if err := r.db.GetContext(ctx, &slot, query, dayOfWeek, startTime, roomNumber); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find slot by room: %w", err)
	}
	return &slot, nil
}

// FindByTeacherAt returns the slot a teacher holds at an exact day/start
// time, or sql.ErrNoRows when the teacher is free.
func (r *SlotRepository) FindByTeacherAt(ctx context.Context, dayOfWeek, startTime, teacherID string) (*models.LessonSlot, error) {
	query := fmt.Sprintf(`SELECT %s FROM lesson_slots WHERE day_of_week = $1 AND start_time = $2 AND teacher_id = $3 LIMIT 1`, slotColumns)
	var slot models.LessonSlot
	if err := r.db.GetContext(ctx, &slot, query, dayOfWeek, startTime, teacherID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find slot by teacher: %w", err)
	}
	return &slot, nil
}

// FindByClassAt returns the slot a class attends at an exact day/start time,
// or sql.ErrNoRows when the class is free.
func (r *SlotRepository) FindByClassAt(ctx context.Context, dayOfWeek, startTime, classGroupID string) (*models.LessonSlot, error) {
	query := fmt.Sprintf(`SELECT %s FROM lesson_slots WHERE day_of_week = $1 AND start_time = $2 AND class_group_id = $3 LIMIT 1`, slotColumns)
	var slot models.LessonSlot
	if err := r.db.GetContext(ctx, &slot, query, dayOfWeek, startTime, classGroupID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find slot by class: %w", err)
	}
	return &slot, nil
}

// ListForTeacherClassDay returns all slots a teacher has with a class on a
// given weekday. Used by the attendance gate.
func (r *SlotRepository) ListForTeacherClassDay(ctx context.Context, teacherID, classGroupID, dayOfWeek string) ([]models.LessonSlot, error) {
	query := fmt.Sprintf(`SELECT %s FROM lesson_slots WHERE teacher_id = $1 AND class_group_id = $2 AND day_of_week = $3 ORDER BY start_time`, slotColumns)
	var slots []models.LessonSlot
	if err := r.db.SelectContext(ctx, &slots, query, teacherID, classGroupID, dayOfWeek); err != nil {
		return nil, fmt.Errorf("list slots for teacher/class/day: %w", err)
	}
	return slots, nil
}

// Create inserts a lesson slot.
func (r *SlotRepository) Create(ctx context.Context, slot *models.LessonSlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	slot.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO lesson_slots (id, day_of_week, start_time, end_time, room_number, class_group_id, subject_id, teacher_id, created_at)
VALUES (:id, :day_of_week, :start_time, :end_time, :room_number, :class_group_id, :subject_id, :teacher_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			switch pqErr.Constraint {
			case uniqueSlotRoomIdx:
				return ErrSlotRoomTaken
			case uniqueSlotTeacherIdx:
				return ErrSlotTeacherBusy
			case uniqueSlotClassIdx:
				return ErrSlotClassBusy
			}
		}
		return fmt.Errorf("create lesson slot: %w", err)
	}
	return nil
}

// Delete removes a lesson slot.
func (r *SlotRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM lesson_slots WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete lesson slot: %w", err)
	}
	return nil
}
