package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-crm-api/internal/models"
	appErrors "github.com/noah-isme/school-crm-api/pkg/errors"
)

type mockGradeRepo struct {
	grades map[string]models.GradeEntry
	finals map[string]models.FinalGradeEntry
}

func gradeKey(studentID, subjectID string, date time.Time) string {
	return studentID + "|" + subjectID + "|" + date.Format("2006-01-02")
}

func (m *mockGradeRepo) Upsert(ctx context.Context, grade *models.GradeEntry) (*models.GradeEntry, error) {
	if m.grades == nil {
		m.grades = make(map[string]models.GradeEntry)
	}
	key := gradeKey(grade.StudentID, grade.SubjectID, grade.Date)
	stored, ok := m.grades[key]
	if ok {
		stored.Value = grade.Value
	} else {
		stored = *grade
		stored.ID = "grade-" + key
	}
	m.grades[key] = stored
	return &stored, nil
}

func (m *mockGradeRepo) UpsertFinal(ctx context.Context, final *models.FinalGradeEntry) (*models.FinalGradeEntry, error) {
	if m.finals == nil {
		m.finals = make(map[string]models.FinalGradeEntry)
	}
	key := final.StudentID + "|" + final.SubjectID + "|" + final.PeriodName
	stored, ok := m.finals[key]
	if ok {
		stored.Value = final.Value
	} else {
		stored = *final
		stored.ID = "final-" + key
	}
	m.finals[key] = stored
	return &stored, nil
}

func (m *mockGradeRepo) ListBySubject(ctx context.Context, subjectID string) ([]models.GradeEntry, error) {
	var out []models.GradeEntry
	for _, g := range m.grades {
		if g.SubjectID == subjectID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *mockGradeRepo) ListFinalsByPeriod(ctx context.Context, subjectID, periodName string) ([]models.FinalGradeEntry, error) {
	var out []models.FinalGradeEntry
	for _, f := range m.finals {
		if f.SubjectID == subjectID && f.PeriodName == periodName {
			out = append(out, f)
		}
	}
	return out, nil
}

type mockStudentRoster struct {
	students []models.Student
}

func (m *mockStudentRoster) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	var out []models.Student
	for _, s := range m.students {
		if filter.ClassGroupID == "" || s.ClassGroupID == filter.ClassGroupID {
			out = append(out, s)
		}
	}
	return out, nil
}

func newGradeFixture(repo *mockGradeRepo) *GradeService {
	roster := &mockStudentRoster{students: []models.Student{
		{ID: "student-1", FullName: "Anna K", ClassGroupID: "class-9b"},
		{ID: "student-2", FullName: "Boris L", ClassGroupID: "class-9b"},
	}}
	students := &mockStudentDir{students: map[string]*models.Student{
		"student-1": {ID: "student-1", FullName: "Anna K", ClassGroupID: "class-9b"},
		"student-2": {ID: "student-2", FullName: "Boris L", ClassGroupID: "class-9b"},
	}}
	subjects := &mockSubjectDir{subjects: map[string]*models.Subject{
		"subj-math": {ID: "subj-math", Name: "Mathematics"},
	}}
	return NewGradeService(repo, roster, students, subjects, nil, nil)
}

func TestGradeUpsertIdempotence(t *testing.T) {
	repo := &mockGradeRepo{}
	svc := newGradeFixture(repo)

	req := UpsertGradeRequest{StudentID: "student-1", SubjectID: "subj-math", Date: "2026-01-05", Value: 4}
	first, err := svc.Upsert(context.Background(), req)
	require.NoError(t, err)

	req.Value = 5
	second, err := svc.Upsert(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5, second.Value)
	assert.Len(t, repo.grades, 1)
}

func TestGradeUpsertFinalOverwrites(t *testing.T) {
	repo := &mockGradeRepo{}
	svc := newGradeFixture(repo)

	req := UpsertFinalGradeRequest{StudentID: "student-1", SubjectID: "subj-math", PeriodName: "Q1", Value: 4}
	_, err := svc.UpsertFinal(context.Background(), req)
	require.NoError(t, err)

	req.Value = 3
	final, err := svc.UpsertFinal(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 3, final.Value)
	assert.Len(t, repo.finals, 1)
}

func TestGradeUpsertRejectsOutOfRangeValue(t *testing.T) {
	svc := newGradeFixture(&mockGradeRepo{})

	for _, value := range []int{0, 6, -1} {
		_, err := svc.Upsert(context.Background(), UpsertGradeRequest{
			StudentID: "student-1", SubjectID: "subj-math", Date: "2026-01-05", Value: value,
		})
		assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation), "value %d", value)
	}

	_, err := svc.UpsertFinal(context.Background(), UpsertFinalGradeRequest{
		StudentID: "student-1", SubjectID: "subj-math", PeriodName: "Q1", Value: 6,
	})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestGradeUpsertUnknownReferences(t *testing.T) {
	svc := newGradeFixture(&mockGradeRepo{})

	_, err := svc.Upsert(context.Background(), UpsertGradeRequest{
		StudentID: "ghost", SubjectID: "subj-math", Date: "2026-01-05", Value: 4,
	})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))

	_, err = svc.Upsert(context.Background(), UpsertGradeRequest{
		StudentID: "student-1", SubjectID: "subj-ghost", Date: "2026-01-05", Value: 4,
	})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestGradeMatrix(t *testing.T) {
	repo := &mockGradeRepo{}
	svc := newGradeFixture(repo)
	ctx := context.Background()

	for _, g := range []UpsertGradeRequest{
		{StudentID: "student-1", SubjectID: "subj-math", Date: "2026-01-05", Value: 5},
		{StudentID: "student-1", SubjectID: "subj-math", Date: "2026-01-06", Value: 4},
		{StudentID: "student-2", SubjectID: "subj-math", Date: "2026-01-05", Value: 3},
	} {
		_, err := svc.Upsert(ctx, g)
		require.NoError(t, err)
	}
	_, err := svc.UpsertFinal(ctx, UpsertFinalGradeRequest{
		StudentID: "student-1", SubjectID: "subj-math", PeriodName: "Q1", Value: 5,
	})
	require.NoError(t, err)

	matrix, err := svc.Matrix(ctx, "class-9b", "subj-math", "Q1")
	require.NoError(t, err)

	assert.Equal(t, []string{"2026-01-05", "2026-01-06"}, matrix.Dates)
	require.Len(t, matrix.Students, 2)

	anna := matrix.Students[0]
	assert.Equal(t, "student-1", anna.StudentID)
	assert.Equal(t, map[string]int{"2026-01-05": 5, "2026-01-06": 4}, anna.Grades)
	assert.InDelta(t, 4.5, anna.Average, 0.001)
	require.NotNil(t, anna.FinalGrade)
	assert.Equal(t, 5, *anna.FinalGrade)

	boris := matrix.Students[1]
	assert.Equal(t, map[string]int{"2026-01-05": 3}, boris.Grades)
	assert.InDelta(t, 3.0, boris.Average, 0.001)
	assert.Nil(t, boris.FinalGrade)
}

func TestGradeMatrixEmptyClassHasNoRows(t *testing.T) {
	svc := newGradeFixture(&mockGradeRepo{})

	matrix, err := svc.Matrix(context.Background(), "class-empty", "subj-math", "Q1")
	require.NoError(t, err)
	assert.Empty(t, matrix.Dates)
	assert.Empty(t, matrix.Students)
}
