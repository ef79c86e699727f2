package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-crm-api/internal/models"
)

func newSlotMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func slotRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "day_of_week", "start_time", "end_time", "room_number", "class_group_id", "subject_id", "teacher_id", "created_at"})
}

func TestSlotRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newSlotMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectExec("INSERT INTO lesson_slots").
		WithArgs(sqlmock.AnyArg(), "Monday", "09:00", "09:45", "101", "class-9b", "subj-math", "teacher-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	slot := &models.LessonSlot{
		DayOfWeek: "Monday", StartTime: "09:00", EndTime: "09:45", RoomNumber: "101",
		ClassGroupID: "class-9b", SubjectID: "subj-math", TeacherID: "teacher-1",
	}
	err := repo.Create(context.Background(), slot)
	require.NoError(t, err)
	assert.NotEmpty(t, slot.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryCreateMapsUniqueViolations(t *testing.T) {
	cases := []struct {
		constraint string
		want       error
	}{
		{"uq_lesson_slots_room", ErrSlotRoomTaken},
		{"uq_lesson_slots_teacher", ErrSlotTeacherBusy},
		{"uq_lesson_slots_class", ErrSlotClassBusy},
	}
	for _, tc := range cases {
		t.Run(tc.constraint, func(t *testing.T) {
			db, mock, cleanup := newSlotMock(t)
			defer cleanup()
			repo := NewSlotRepository(db)

			mock.ExpectExec("INSERT INTO lesson_slots").
				WillReturnError(&pq.Error{Code: "23505", Constraint: tc.constraint})

			err := repo.Create(context.Background(), &models.LessonSlot{
				DayOfWeek: "Monday", StartTime: "09:00", EndTime: "09:45", RoomNumber: "101",
				ClassGroupID: "class-9b", SubjectID: "subj-math", TeacherID: "teacher-1",
			})
			assert.ErrorIs(t, err, tc.want)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSlotRepositoryFindByRoomAt(t *testing.T) {
	db, mock, cleanup := newSlotMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, day_of_week, start_time, end_time, room_number, class_group_id, subject_id, teacher_id, created_at FROM lesson_slots WHERE day_of_week = $1 AND start_time = $2 AND room_number = $3 LIMIT 1")).
		WithArgs("Monday", "09:00", "101").
		WillReturnRows(slotRows().AddRow("slot-1", "Monday", "09:00", "09:45", "101", "class-9b", "subj-math", "teacher-1", time.Now()))

	slot, err := repo.FindByRoomAt(context.Background(), "Monday", "09:00", "101")
	require.NoError(t, err)
	assert.Equal(t, "slot-1", slot.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryFindByRoomAtFree(t *testing.T) {
	db, mock, cleanup := newSlotMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectQuery("SELECT .+ FROM lesson_slots WHERE day_of_week").
		WithArgs("Monday", "09:00", "101").
		WillReturnRows(slotRows())

	_, err := repo.FindByRoomAt(context.Background(), "Monday", "09:00", "101")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryListForTeacherClassDay(t *testing.T) {
	db, mock, cleanup := newSlotMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, day_of_week, start_time, end_time, room_number, class_group_id, subject_id, teacher_id, created_at FROM lesson_slots WHERE teacher_id = $1 AND class_group_id = $2 AND day_of_week = $3 ORDER BY start_time")).
		WithArgs("teacher-1", "class-9b", "Monday").
		WillReturnRows(slotRows().
			AddRow("slot-1", "Monday", "09:00", "09:45", "101", "class-9b", "subj-math", "teacher-1", time.Now()).
			AddRow("slot-2", "Monday", "10:00", "10:45", "101", "class-9b", "subj-math", "teacher-1", time.Now()))

	slots, err := repo.ListForTeacherClassDay(context.Background(), "teacher-1", "class-9b", "Monday")
	require.NoError(t, err)
	assert.Len(t, slots, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newSlotMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM lesson_slots WHERE id = $1")).
		WithArgs("slot-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "slot-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
