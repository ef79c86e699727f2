package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-crm-api/internal/models"
	appErrors "github.com/noah-isme/school-crm-api/pkg/errors"
)

// Clock supplies the current instant. Injected so gate decisions can be
// tested against fixed times.
type Clock func() time.Time

type attendanceRepository interface {
	Upsert(ctx context.Context, mark *models.AttendanceMark) (*models.AttendanceMark, error)
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceMark, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type teacherSlotReader interface {
	ListForTeacherClassDay(ctx context.Context, teacherID, classGroupID, dayOfWeek string) ([]models.LessonSlot, error)
}

// MarkAttendanceRequest describes payload for recording one student's status.
type MarkAttendanceRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Status    string `json:"status" validate:"required,attendance_status"`
}

// AttendanceService records attendance marks behind a time gate.
type AttendanceService struct {
	marks     attendanceRepository
	students  studentReader
	slots     teacherSlotReader
	validator *validator.Validate
	logger    *zap.Logger
	clock     Clock
}

// NewAttendanceService instantiates AttendanceService. A nil clock falls back
// to time.Now.
func NewAttendanceService(marks attendanceRepository, students studentReader, slots teacherSlotReader, validate *validator.Validate, logger *zap.Logger, clock Clock) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = time.Now
	}
	svc := &AttendanceService{marks: marks, students: students, slots: slots, validator: validate, logger: logger, clock: clock}
	svc.validator.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		status := models.AttendanceStatus(strings.ToUpper(fl.Field().String()))
		return status.Valid()
	})
	return svc
}

// Mark records a status for one student and date, overwriting any earlier
// mark for the same pair. Teachers pass a gate first: the date must be the
// current day, they must have a lesson with the student's class on that
// weekday, and the earliest such lesson must already have started. There is
// no upper bound; once the first lesson starts, marking stays open for the
// rest of the day. Admins skip the gate entirely.
func (s *AttendanceService) Mark(ctx context.Context, actorID string, actorRole models.UserRole, req MarkAttendanceRequest) (*models.AttendanceMark, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance date")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	if actorRole != models.RoleAdmin {
		if err := s.gate(ctx, actorID, student.ClassGroupID, req.Date); err != nil {
			return nil, err
		}
	}

	mark := &models.AttendanceMark{
		StudentID: req.StudentID,
		Date:      date,
		Status:    models.AttendanceStatus(strings.ToUpper(req.Status)),
	}
	stored, err := s.marks.Upsert(ctx, mark)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}

	s.logger.Info("attendance recorded",
		zap.String("student_id", stored.StudentID),
		zap.String("date", req.Date),
		zap.String("status", string(stored.Status)))
	return stored, nil
}

// List returns marks filtered by class and/or date.
func (s *AttendanceService) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceMark, error) {
	marks, err := s.marks.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return marks, nil
}

// gate applies the teacher-side checks in order: current day first, then
// lesson existence, then lesson start. The first failing check is the one
// reported.
func (s *AttendanceService) gate(ctx context.Context, teacherID, classGroupID, date string) error {
	now := s.clock()

	if date != now.Format("2006-01-02") {
		return appErrors.Clone(appErrors.ErrNotToday, "")
	}

	slots, err := s.slots.ListForTeacherClassDay(ctx, teacherID, classGroupID, models.WeekdayName(now))
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load today's lessons")
	}
	if len(slots) == 0 {
		return appErrors.Clone(appErrors.ErrNoLessonToday, "")
	}

	wallClock := models.ClockTimeOf(now)
	for _, slot := range slots {
		if slot.StartTime <= wallClock {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrLessonNotStarted, "")
}
