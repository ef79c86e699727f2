package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-crm-api/internal/models"
	appErrors "github.com/noah-isme/school-crm-api/pkg/errors"
)

type mockAttendanceRepo struct {
	marks map[string]models.AttendanceMark
}

func (m *mockAttendanceRepo) Upsert(ctx context.Context, mark *models.AttendanceMark) (*models.AttendanceMark, error) {
	if m.marks == nil {
		m.marks = make(map[string]models.AttendanceMark)
	}
	key := mark.StudentID + "|" + mark.Date.Format("2006-01-02")
	stored, ok := m.marks[key]
	if ok {
		stored.Status = mark.Status
	} else {
		stored = *mark
		stored.ID = "mark-" + key
	}
	m.marks[key] = stored
	return &stored, nil
}

func (m *mockAttendanceRepo) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceMark, error) {
	var out []models.AttendanceMark
	for _, mk := range m.marks {
		out = append(out, mk)
	}
	return out, nil
}

type mockStudentDir struct {
	students map[string]*models.Student
}

func (m *mockStudentDir) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type mockTeacherSlots struct {
	slots []models.LessonSlot
}

func (m *mockTeacherSlots) ListForTeacherClassDay(ctx context.Context, teacherID, classGroupID, dayOfWeek string) ([]models.LessonSlot, error) {
	var out []models.LessonSlot
	for _, s := range m.slots {
		if s.TeacherID == teacherID && s.ClassGroupID == classGroupID && s.DayOfWeek == dayOfWeek {
			out = append(out, s)
		}
	}
	return out, nil
}

// 2026-01-05 is a Monday.
func mondayAt(hour, minute int) Clock {
	return func() time.Time {
		return time.Date(2026, time.January, 5, hour, minute, 0, 0, time.UTC)
	}
}

func newAttendanceFixture(clock Clock) (*AttendanceService, *mockAttendanceRepo) {
	marks := &mockAttendanceRepo{}
	students := &mockStudentDir{students: map[string]*models.Student{
		"student-1": {ID: "student-1", FullName: "Anna K", ClassGroupID: "class-9b"},
	}}
	slots := &mockTeacherSlots{slots: []models.LessonSlot{{
		ID: "slot-1", DayOfWeek: "Monday", StartTime: "09:00", EndTime: "09:45",
		ClassGroupID: "class-9b", TeacherID: "teacher-1",
	}}}
	return NewAttendanceService(marks, students, slots, nil, nil, clock), marks
}

func TestAttendanceMarkDuringLesson(t *testing.T) {
	svc, marks := newAttendanceFixture(mondayAt(9, 10))

	mark, err := svc.Mark(context.Background(), "teacher-1", models.RoleTeacher, MarkAttendanceRequest{
		StudentID: "student-1", Date: "2026-01-05", Status: "PRESENT",
	})
	require.NoError(t, err)
	assert.Equal(t, models.AttendancePresent, mark.Status)
	assert.Len(t, marks.marks, 1)
}

func TestAttendanceMarkBeforeLessonStart(t *testing.T) {
	svc, _ := newAttendanceFixture(mondayAt(8, 50))

	_, err := svc.Mark(context.Background(), "teacher-1", models.RoleTeacher, MarkAttendanceRequest{
		StudentID: "student-1", Date: "2026-01-05", Status: "PRESENT",
	})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrLessonNotStarted))
}

func TestAttendanceMarkStaysOpenAfterLessonEnd(t *testing.T) {
	// No upper bound: the lesson ended at 09:45 but marking is still allowed
	// for the rest of the day.
	svc, _ := newAttendanceFixture(mondayAt(17, 30))

	_, err := svc.Mark(context.Background(), "teacher-1", models.RoleTeacher, MarkAttendanceRequest{
		StudentID: "student-1", Date: "2026-01-05", Status: "LATE",
	})
	require.NoError(t, err)
}

func TestAttendanceMarkNoLessonToday(t *testing.T) {
	// Tuesday: the only slot with this class is on Monday.
	tuesday := func() time.Time {
		return time.Date(2026, time.January, 6, 9, 10, 0, 0, time.UTC)
	}
	svc, _ := newAttendanceFixture(tuesday)

	_, err := svc.Mark(context.Background(), "teacher-1", models.RoleTeacher, MarkAttendanceRequest{
		StudentID: "student-1", Date: "2026-01-06", Status: "PRESENT",
	})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNoLessonToday))
}

func TestAttendanceMarkNotToday(t *testing.T) {
	svc, _ := newAttendanceFixture(mondayAt(9, 10))

	_, err := svc.Mark(context.Background(), "teacher-1", models.RoleTeacher, MarkAttendanceRequest{
		StudentID: "student-1", Date: "2026-01-04", Status: "ABSENT",
	})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotToday))
}

func TestAttendanceGateOrderNotTodayFirst(t *testing.T) {
	// A back-dated mark on a day with no lesson must report NOT_TODAY, not
	// NO_LESSON_TODAY; the day check runs before the slot lookup.
	svc, _ := newAttendanceFixture(mondayAt(8, 0))

	_, err := svc.Mark(context.Background(), "teacher-1", models.RoleTeacher, MarkAttendanceRequest{
		StudentID: "student-1", Date: "2025-12-31", Status: "PRESENT",
	})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotToday))
}

func TestAttendanceAdminBypassesGate(t *testing.T) {
	svc, _ := newAttendanceFixture(mondayAt(6, 0))

	// Back-dated, before any lesson, no slot for the admin: all ignored.
	mark, err := svc.Mark(context.Background(), "admin-1", models.RoleAdmin, MarkAttendanceRequest{
		StudentID: "student-1", Date: "2025-12-20", Status: "ABSENT",
	})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceAbsent, mark.Status)
}

func TestAttendanceMarkOverwritesSameKey(t *testing.T) {
	svc, marks := newAttendanceFixture(mondayAt(9, 10))

	first, err := svc.Mark(context.Background(), "teacher-1", models.RoleTeacher, MarkAttendanceRequest{
		StudentID: "student-1", Date: "2026-01-05", Status: "ABSENT",
	})
	require.NoError(t, err)

	second, err := svc.Mark(context.Background(), "teacher-1", models.RoleTeacher, MarkAttendanceRequest{
		StudentID: "student-1", Date: "2026-01-05", Status: "LATE",
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.AttendanceLate, second.Status)
	assert.Len(t, marks.marks, 1)
}

func TestAttendanceMarkStudentNotFound(t *testing.T) {
	svc, _ := newAttendanceFixture(mondayAt(9, 10))

	_, err := svc.Mark(context.Background(), "teacher-1", models.RoleTeacher, MarkAttendanceRequest{
		StudentID: "ghost", Date: "2026-01-05", Status: "PRESENT",
	})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestAttendanceMarkRejectsUnknownStatus(t *testing.T) {
	svc, _ := newAttendanceFixture(mondayAt(9, 10))

	_, err := svc.Mark(context.Background(), "teacher-1", models.RoleTeacher, MarkAttendanceRequest{
		StudentID: "student-1", Date: "2026-01-05", Status: "SLEEPING",
	})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}
