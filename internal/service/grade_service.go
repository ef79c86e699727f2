package service

import (
	"context"
	"database/sql"
	"math"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-crm-api/internal/models"
	appErrors "github.com/noah-isme/school-crm-api/pkg/errors"
)

type gradeRepository interface {
	Upsert(ctx context.Context, grade *models.GradeEntry) (*models.GradeEntry, error)
	UpsertFinal(ctx context.Context, final *models.FinalGradeEntry) (*models.FinalGradeEntry, error)
	ListBySubject(ctx context.Context, subjectID string) ([]models.GradeEntry, error)
	ListFinalsByPeriod(ctx context.Context, subjectID, periodName string) ([]models.FinalGradeEntry, error)
}

type studentLister interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
}

// UpsertGradeRequest describes payload for writing a daily grade.
type UpsertGradeRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	SubjectID string `json:"subject_id" validate:"required"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Value     int    `json:"value" validate:"required,min=1,max=5"`
}

// UpsertFinalGradeRequest describes payload for writing a period grade.
type UpsertFinalGradeRequest struct {
	StudentID  string `json:"student_id" validate:"required"`
	SubjectID  string `json:"subject_id" validate:"required"`
	PeriodName string `json:"period_name" validate:"required"`
	Value      int    `json:"value" validate:"required,min=1,max=5"`
}

// GradeService writes daily and period grades and assembles the gradebook
// matrix.
type GradeService struct {
	grades    gradeRepository
	students  studentLister
	student   studentReader
	subjects  subjectReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradeService instantiates GradeService.
func NewGradeService(grades gradeRepository, students studentLister, student studentReader, subjects subjectReader, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{grades: grades, students: students, student: student, subjects: subjects, validator: validate, logger: logger}
}

// Upsert writes a daily grade. The natural key is (student, subject, date);
// repeating a key overwrites the value.
func (s *GradeService) Upsert(ctx context.Context, req UpsertGradeRequest) (*models.GradeEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade date")
	}
	if err := s.checkRefs(ctx, req.StudentID, req.SubjectID); err != nil {
		return nil, err
	}

	stored, err := s.grades.Upsert(ctx, &models.GradeEntry{
		StudentID: req.StudentID,
		SubjectID: req.SubjectID,
		Date:      date,
		Value:     req.Value,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write grade")
	}
	return stored, nil
}

// UpsertFinal writes a period grade such as "Q1" or "YEAR".
func (s *GradeService) UpsertFinal(ctx context.Context, req UpsertFinalGradeRequest) (*models.FinalGradeEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid final grade payload")
	}
	if err := s.checkRefs(ctx, req.StudentID, req.SubjectID); err != nil {
		return nil, err
	}

	stored, err := s.grades.UpsertFinal(ctx, &models.FinalGradeEntry{
		StudentID:  req.StudentID,
		SubjectID:  req.SubjectID,
		PeriodName: req.PeriodName,
		Value:      req.Value,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write final grade")
	}
	return stored, nil
}

// Matrix builds the gradebook for one class and subject: every distinct
// lesson date as a column, one row per student with their grades by date,
// running average and the final grade for the requested period.
func (s *GradeService) Matrix(ctx context.Context, classGroupID, subjectID, periodName string) (*models.GradeMatrix, error) {
	students, err := s.students.List(ctx, models.StudentFilter{ClassGroupID: classGroupID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}

	grades, err := s.grades.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}

	finals, err := s.grades.ListFinalsByPeriod(ctx, subjectID, periodName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list final grades")
	}

	seen := make(map[string]bool)
	var dates []string
	byStudent := make(map[string][]models.GradeEntry)
	for _, g := range grades {
		day := g.Date.Format("2006-01-02")
		if !seen[day] {
			seen[day] = true
			dates = append(dates, day)
		}
		byStudent[g.StudentID] = append(byStudent[g.StudentID], g)
	}
	sort.Strings(dates)

	finalByStudent := make(map[string]int, len(finals))
	for _, f := range finals {
		finalByStudent[f.StudentID] = f.Value
	}

	rows := make([]models.GradeMatrixRow, 0, len(students))
	for _, st := range students {
		row := models.GradeMatrixRow{
			StudentID: st.ID,
			FullName:  st.FullName,
			Grades:    make(map[string]int),
		}
		sum := 0
		for _, g := range byStudent[st.ID] {
			row.Grades[g.Date.Format("2006-01-02")] = g.Value
			sum += g.Value
		}
		if n := len(row.Grades); n > 0 {
			row.Average = math.Round(float64(sum)/float64(n)*100) / 100
		}
		if v, ok := finalByStudent[st.ID]; ok {
			final := v
			row.FinalGrade = &final
		}
		rows = append(rows, row)
	}

	return &models.GradeMatrix{Dates: dates, Students: rows}, nil
}

func (s *GradeService) checkRefs(ctx context.Context, studentID, subjectID string) error {
	if _, err := s.student.FindByID(ctx, studentID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if _, err := s.subjects.FindByID(ctx, subjectID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	return nil
}
