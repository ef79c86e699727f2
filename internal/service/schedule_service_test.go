package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-crm-api/internal/models"
	"github.com/noah-isme/school-crm-api/internal/repository"
	appErrors "github.com/noah-isme/school-crm-api/pkg/errors"
)

type mockSlotRepo struct {
	slots   []models.LessonSlot
	created []models.LessonSlot
	deleted []string
}

func (m *mockSlotRepo) List(ctx context.Context, filter models.LessonSlotFilter) ([]models.LessonSlotView, error) {
	var views []models.LessonSlotView
	for _, s := range m.slots {
		if filter.TeacherID != "" && s.TeacherID != filter.TeacherID {
			continue
		}
		if filter.ClassGroupID != "" && s.ClassGroupID != filter.ClassGroupID {
			continue
		}
		views = append(views, models.LessonSlotView{LessonSlot: s})
	}
	return views, nil
}

func (m *mockSlotRepo) FindByID(ctx context.Context, id string) (*models.LessonSlot, error) {
	for _, s := range m.slots {
		if s.ID == id {
			slot := s
			return &slot, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockSlotRepo) FindByRoomAt(ctx context.Context, dayOfWeek, startTime, roomNumber string) (*models.LessonSlot, error) {
	for _, s := range m.slots {
		if s.DayOfWeek == dayOfWeek && s.StartTime == startTime && s.RoomNumber == roomNumber {
			slot := s
			return &slot, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockSlotRepo) FindByTeacherAt(ctx context.Context, dayOfWeek, startTime, teacherID string) (*models.LessonSlot, error) {
	for _, s := range m.slots {
		if s.DayOfWeek == dayOfWeek && s.StartTime == startTime && s.TeacherID == teacherID {
			slot := s
			return &slot, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockSlotRepo) FindByClassAt(ctx context.Context, dayOfWeek, startTime, classGroupID string) (*models.LessonSlot, error) {
	for _, s := range m.slots {
		if s.DayOfWeek == dayOfWeek && s.StartTime == startTime && s.ClassGroupID == classGroupID {
			slot := s
			return &slot, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockSlotRepo) Create(ctx context.Context, slot *models.LessonSlot) error {
	if slot.ID == "" {
		slot.ID = "slot-new"
	}
	m.slots = append(m.slots, *slot)
	m.created = append(m.created, *slot)
	return nil
}

func (m *mockSlotRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

type mockClassDir struct {
	classes map[string]*models.ClassGroup
}

func (m *mockClassDir) FindByID(ctx context.Context, id string) (*models.ClassGroup, error) {
	if c, ok := m.classes[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

type mockSubjectDir struct {
	subjects map[string]*models.Subject
}

func (m *mockSubjectDir) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if s, ok := m.subjects[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type mockUserDir struct {
	users map[string]*models.User
}

func (m *mockUserDir) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func newScheduleFixture(slots slotRepository) *ScheduleService {
	classes := &mockClassDir{classes: map[string]*models.ClassGroup{
		"class-9b": {ID: "class-9b", Name: "9-B"},
		"class-7a": {ID: "class-7a", Name: "7-A"},
	}}
	subjects := &mockSubjectDir{subjects: map[string]*models.Subject{
		"subj-math": {ID: "subj-math", Name: "Mathematics"},
	}}
	users := &mockUserDir{users: map[string]*models.User{
		"teacher-1": {ID: "teacher-1", Email: "ivanova@school.test", Role: models.RoleTeacher},
		"teacher-2": {ID: "teacher-2", Email: "petrov@school.test", Role: models.RoleTeacher},
		"student-1": {ID: "student-1", Email: "kid@school.test", Role: models.RoleStudent},
	}}
	return NewScheduleService(slots, classes, subjects, users, nil, nil)
}

func validSlotRequest() CreateLessonSlotRequest {
	return CreateLessonSlotRequest{
		DayOfWeek:    "Monday",
		StartTime:    "09:00",
		EndTime:      "09:45",
		RoomNumber:   "101",
		ClassGroupID: "class-9b",
		SubjectID:    "subj-math",
		TeacherID:    "teacher-1",
	}
}

func TestScheduleServiceCreateSuccess(t *testing.T) {
	repo := &mockSlotRepo{}
	svc := newScheduleFixture(repo)

	slot, err := svc.Create(context.Background(), validSlotRequest())
	require.NoError(t, err)
	require.NotNil(t, slot)
	assert.Equal(t, "Monday", slot.DayOfWeek)
	assert.Equal(t, "09:00", slot.StartTime)
	assert.Len(t, repo.created, 1)
}

func TestScheduleServiceCreateRejectsMalformedDayAndTime(t *testing.T) {
	svc := newScheduleFixture(&mockSlotRepo{})

	req := validSlotRequest()
	req.DayOfWeek = "monday"
	_, err := svc.Create(context.Background(), req)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))

	req = validSlotRequest()
	req.StartTime = "9:00"
	_, err = svc.Create(context.Background(), req)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))

	req = validSlotRequest()
	req.EndTime = "24:00"
	_, err = svc.Create(context.Background(), req)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestScheduleServiceCreateMissingReferences(t *testing.T) {
	svc := newScheduleFixture(&mockSlotRepo{})

	req := validSlotRequest()
	req.ClassGroupID = "class-missing"
	_, err := svc.Create(context.Background(), req)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))

	req = validSlotRequest()
	req.SubjectID = "subj-missing"
	_, err = svc.Create(context.Background(), req)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestScheduleServiceCreateTeacherRole(t *testing.T) {
	svc := newScheduleFixture(&mockSlotRepo{})

	// A user id that does not exist and a user with a non-teacher role are
	// the same denial.
	req := validSlotRequest()
	req.TeacherID = "nobody"
	_, err := svc.Create(context.Background(), req)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidRole))

	req = validSlotRequest()
	req.TeacherID = "student-1"
	_, err = svc.Create(context.Background(), req)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidRole))
}

func TestScheduleServiceCreateRoomConflict(t *testing.T) {
	repo := &mockSlotRepo{slots: []models.LessonSlot{{
		ID: "slot-1", DayOfWeek: "Monday", StartTime: "09:00", EndTime: "09:45",
		RoomNumber: "101", ClassGroupID: "class-7a", SubjectID: "subj-math", TeacherID: "teacher-2",
	}}}
	svc := newScheduleFixture(repo)

	_, err := svc.Create(context.Background(), validSlotRequest())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrRoomConflict))

	var conflictErr *models.SlotConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.Equal(t, "ROOM", conflictErr.Dimension)
	assert.Equal(t, "slot-1", conflictErr.Conflict.SlotID)
}

func TestScheduleServiceCreateTeacherConflict(t *testing.T) {
	repo := &mockSlotRepo{slots: []models.LessonSlot{{
		ID: "slot-1", DayOfWeek: "Monday", StartTime: "09:00", EndTime: "09:45",
		RoomNumber: "202", ClassGroupID: "class-7a", SubjectID: "subj-math", TeacherID: "teacher-1",
	}}}
	svc := newScheduleFixture(repo)

	_, err := svc.Create(context.Background(), validSlotRequest())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrTeacherConflict))
}

func TestScheduleServiceCreateClassConflict(t *testing.T) {
	repo := &mockSlotRepo{slots: []models.LessonSlot{{
		ID: "slot-1", DayOfWeek: "Monday", StartTime: "09:00", EndTime: "09:45",
		RoomNumber: "202", ClassGroupID: "class-9b", SubjectID: "subj-math", TeacherID: "teacher-2",
	}}}
	svc := newScheduleFixture(repo)

	_, err := svc.Create(context.Background(), validSlotRequest())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrClassConflict))
}

func TestScheduleServiceConflictPrecedence(t *testing.T) {
	// The existing slot collides on every dimension; the room check runs
	// first and wins.
	repo := &mockSlotRepo{slots: []models.LessonSlot{{
		ID: "slot-1", DayOfWeek: "Monday", StartTime: "09:00", EndTime: "09:45",
		RoomNumber: "101", ClassGroupID: "class-9b", SubjectID: "subj-math", TeacherID: "teacher-1",
	}}}
	svc := newScheduleFixture(repo)

	_, err := svc.Create(context.Background(), validSlotRequest())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrRoomConflict))

	// Room free, teacher and class both busy: teacher outranks class.
	repo = &mockSlotRepo{slots: []models.LessonSlot{{
		ID: "slot-2", DayOfWeek: "Monday", StartTime: "09:00", EndTime: "09:45",
		RoomNumber: "303", ClassGroupID: "class-9b", SubjectID: "subj-math", TeacherID: "teacher-1",
	}}}
	svc = newScheduleFixture(repo)

	_, err = svc.Create(context.Background(), validSlotRequest())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrTeacherConflict))
}

func TestScheduleServiceExactStartTimeMatchOnly(t *testing.T) {
	// An overlapping interval with a different start minute is not a
	// conflict; only identical day and start time collide.
	repo := &mockSlotRepo{slots: []models.LessonSlot{{
		ID: "slot-1", DayOfWeek: "Monday", StartTime: "09:00", EndTime: "09:45",
		RoomNumber: "101", ClassGroupID: "class-9b", SubjectID: "subj-math", TeacherID: "teacher-1",
	}}}
	svc := newScheduleFixture(repo)

	req := validSlotRequest()
	req.StartTime = "09:30"
	req.EndTime = "10:15"
	slot, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "09:30", slot.StartTime)

	// Same start time on another weekday is also fine.
	req = validSlotRequest()
	req.DayOfWeek = "Tuesday"
	_, err = svc.Create(context.Background(), req)
	require.NoError(t, err)
}

func TestScheduleServiceDeleteNotFound(t *testing.T) {
	svc := newScheduleFixture(&mockSlotRepo{})
	err := svc.Delete(context.Background(), "missing")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestScheduleServiceListScopesToFilter(t *testing.T) {
	repo := &mockSlotRepo{slots: []models.LessonSlot{
		{ID: "slot-1", DayOfWeek: "Monday", StartTime: "09:00", TeacherID: "teacher-1", ClassGroupID: "class-9b"},
		{ID: "slot-2", DayOfWeek: "Monday", StartTime: "10:00", TeacherID: "teacher-2", ClassGroupID: "class-7a"},
	}}
	svc := newScheduleFixture(repo)

	views, err := svc.List(context.Background(), models.LessonSlotFilter{TeacherID: "teacher-1"})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "slot-1", views[0].ID)
}

// racySlotRepo simulates the stale-read window: availability checks always
// report free, so concurrent creates both reach the insert. Uniqueness is
// enforced at insert time the way the database indexes do it.
type racySlotRepo struct {
	mu    sync.Mutex
	slots []models.LessonSlot
}

func (m *racySlotRepo) List(ctx context.Context, filter models.LessonSlotFilter) ([]models.LessonSlotView, error) {
	return nil, nil
}

func (m *racySlotRepo) FindByID(ctx context.Context, id string) (*models.LessonSlot, error) {
	return nil, sql.ErrNoRows
}

func (m *racySlotRepo) FindByRoomAt(ctx context.Context, dayOfWeek, startTime, roomNumber string) (*models.LessonSlot, error) {
	return nil, sql.ErrNoRows
}

func (m *racySlotRepo) FindByTeacherAt(ctx context.Context, dayOfWeek, startTime, teacherID string) (*models.LessonSlot, error) {
	return nil, sql.ErrNoRows
}

func (m *racySlotRepo) FindByClassAt(ctx context.Context, dayOfWeek, startTime, classGroupID string) (*models.LessonSlot, error) {
	return nil, sql.ErrNoRows
}

func (m *racySlotRepo) Create(ctx context.Context, slot *models.LessonSlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.slots {
		if s.DayOfWeek == slot.DayOfWeek && s.StartTime == slot.StartTime && s.RoomNumber == slot.RoomNumber {
			return repository.ErrSlotRoomTaken
		}
	}
	slot.ID = "slot-racy"
	m.slots = append(m.slots, *slot)
	return nil
}

func (m *racySlotRepo) Delete(ctx context.Context, id string) error {
	return nil
}

func TestScheduleServiceConcurrentCreateRace(t *testing.T) {
	repo := &racySlotRepo{}
	svc := newScheduleFixture(repo)

	const writers = 8
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(context.Background(), validSlotRequest())
		}(i)
	}
	wg.Wait()

	var succeeded, conflicted int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case appErrors.HasCode(err, appErrors.ErrRoomConflict):
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one writer may win the slot")
	assert.Equal(t, writers-1, conflicted)
	assert.Len(t, repo.slots, 1)
}
