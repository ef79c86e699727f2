package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-crm-api/internal/models"
	"github.com/noah-isme/school-crm-api/internal/repository"
	appErrors "github.com/noah-isme/school-crm-api/pkg/errors"
)

type slotRepository interface {
	List(ctx context.Context, filter models.LessonSlotFilter) ([]models.LessonSlotView, error)
	FindByID(ctx context.Context, id string) (*models.LessonSlot, error)
	FindByRoomAt(ctx context.Context, dayOfWeek, startTime, roomNumber string) (*models.LessonSlot, error)
	FindByTeacherAt(ctx context.Context, dayOfWeek, startTime, teacherID string) (*models.LessonSlot, error)
	FindByClassAt(ctx context.Context, dayOfWeek, startTime, classGroupID string) (*models.LessonSlot, error)
	Create(ctx context.Context, slot *models.LessonSlot) error
	Delete(ctx context.Context, id string) error
}

type classGroupReader interface {
	FindByID(ctx context.Context, id string) (*models.ClassGroup, error)
}

type subjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// CreateLessonSlotRequest describes payload for creating a lesson slot.
type CreateLessonSlotRequest struct {
	DayOfWeek    string `json:"day_of_week" validate:"required,weekday"`
	StartTime    string `json:"start_time" validate:"required,clock_time"`
	EndTime      string `json:"end_time" validate:"required,clock_time"`
	RoomNumber   string `json:"room_number" validate:"required"`
	ClassGroupID string `json:"class_group_id" validate:"required"`
	SubjectID    string `json:"subject_id" validate:"required"`
	TeacherID    string `json:"teacher_id" validate:"required"`
}

// ScheduleService coordinates timetable reads and validated slot creation.
type ScheduleService struct {
	slots     slotRepository
	classes   classGroupReader
	subjects  subjectReader
	users     userReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService instantiates ScheduleService.
func NewScheduleService(slots slotRepository, classes classGroupReader, subjects subjectReader, users userReader, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ScheduleService{slots: slots, classes: classes, subjects: subjects, users: users, validator: validate, logger: logger}
	svc.validator.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
		return models.ValidWeekday(fl.Field().String())
	})
	svc.validator.RegisterValidation("clock_time", func(fl validator.FieldLevel) bool {
		return models.ValidClockTime(fl.Field().String())
	})
	return svc
}

// List returns timetable entries matching the filter.
func (s *ScheduleService) List(ctx context.Context, filter models.LessonSlotFilter) ([]models.LessonSlotView, error) {
	slots, err := s.slots.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lesson slots")
	}
	return slots, nil
}

// Create inserts a lesson slot after reference and conflict validation.
// Conflicts are checked per dimension in a fixed order: room, then teacher,
// then class. A collision exists only when day_of_week and start_time both
// match exactly; adjacent or overlapping intervals are not considered.
func (s *ScheduleService) Create(ctx context.Context, req CreateLessonSlotRequest) (*models.LessonSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson slot payload")
	}

	class, err := s.classes.FindByID(ctx, req.ClassGroupID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class group")
	}

	if _, err := s.subjects.FindByID(ctx, req.SubjectID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	// A missing user and a user with the wrong role are the same mistake
	// from the caller's point of view: teacher_id does not name a teacher.
	teacher, err := s.users.FindByID(ctx, req.TeacherID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrInvalidRole, "teacher_id does not reference a teacher")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if teacher.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrInvalidRole, "teacher_id does not reference a teacher")
	}

	if existing, err := s.slots.FindByRoomAt(ctx, req.DayOfWeek, req.StartTime, req.RoomNumber); err != sql.ErrNoRows {
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check room availability")
		}
		return nil, s.wrapConflict(appErrors.ErrRoomConflict, "ROOM",
			fmt.Sprintf("room %s is already booked on %s at %s", req.RoomNumber, req.DayOfWeek, req.StartTime), existing)
	}

	if existing, err := s.slots.FindByTeacherAt(ctx, req.DayOfWeek, req.StartTime, req.TeacherID); err != sql.ErrNoRows {
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher availability")
		}
		return nil, s.wrapConflict(appErrors.ErrTeacherConflict, "TEACHER",
			fmt.Sprintf("teacher %s is already scheduled on %s at %s", teacher.Email, req.DayOfWeek, req.StartTime), existing)
	}

	if existing, err := s.slots.FindByClassAt(ctx, req.DayOfWeek, req.StartTime, req.ClassGroupID); err != sql.ErrNoRows {
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class availability")
		}
		return nil, s.wrapConflict(appErrors.ErrClassConflict, "CLASS",
			fmt.Sprintf("class %s is already scheduled on %s at %s", class.Name, req.DayOfWeek, req.StartTime), existing)
	}

	slot := models.LessonSlot{
		DayOfWeek:    req.DayOfWeek,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		RoomNumber:   req.RoomNumber,
		ClassGroupID: req.ClassGroupID,
		SubjectID:    req.SubjectID,
		TeacherID:    req.TeacherID,
	}

	if err := s.slots.Create(ctx, &slot); err != nil {
		// The checks above raced another writer; the unique indexes caught
		// it, so report the same conflict the check would have reported.
		switch {
		case errors.Is(err, repository.ErrSlotRoomTaken):
			return nil, appErrors.Clone(appErrors.ErrRoomConflict,
				fmt.Sprintf("room %s is already booked on %s at %s", req.RoomNumber, req.DayOfWeek, req.StartTime))
		case errors.Is(err, repository.ErrSlotTeacherBusy):
			return nil, appErrors.Clone(appErrors.ErrTeacherConflict,
				fmt.Sprintf("teacher %s is already scheduled on %s at %s", teacher.Email, req.DayOfWeek, req.StartTime))
		case errors.Is(err, repository.ErrSlotClassBusy):
			return nil, appErrors.Clone(appErrors.ErrClassConflict,
				fmt.Sprintf("class %s is already scheduled on %s at %s", class.Name, req.DayOfWeek, req.StartTime))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lesson slot")
	}

	s.logger.Info("lesson slot created",
		zap.String("slot_id", slot.ID),
		zap.String("day_of_week", slot.DayOfWeek),
		zap.String("start_time", slot.StartTime))
	return &slot, nil
}

// Delete removes a lesson slot.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	if _, err := s.slots.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "lesson slot not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson slot")
	}
	if err := s.slots.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete lesson slot")
	}
	return nil
}

func (s *ScheduleService) wrapConflict(sentinel *appErrors.Error, dimension, message string, existing *models.LessonSlot) error {
	conflict := models.SlotConflict{
		SlotID:       existing.ID,
		DayOfWeek:    existing.DayOfWeek,
		StartTime:    existing.StartTime,
		RoomNumber:   existing.RoomNumber,
		ClassGroupID: existing.ClassGroupID,
		TeacherID:    existing.TeacherID,
		Dimension:    dimension,
	}
	domainErr := &models.SlotConflictError{Dimension: dimension, Message: message, Conflict: conflict}
	return appErrors.Wrap(domainErr, sentinel.Code, sentinel.Status, message)
}
