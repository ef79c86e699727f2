package service

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/school-crm-api/internal/models"
	appErrors "github.com/noah-isme/school-crm-api/pkg/errors"
)

type studentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	BulkCreate(ctx context.Context, students []models.Student) error
	UpdateClassGroup(ctx context.Context, studentID, classGroupID string) error
}

// CreateStudentRequest describes payload for enrolling one student.
type CreateStudentRequest struct {
	FullName     string `json:"full_name" validate:"required"`
	ClassGroupID string `json:"class_group_id" validate:"required"`
}

// ImportResult summarises a bulk roster import.
type ImportResult struct {
	Imported       int    `json:"imported"`
	ClassGroupName string `json:"class_group_name"`
}

// StudentService manages the student roster.
type StudentService struct {
	students  studentRepository
	classes   classGroupReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService instantiates StudentService.
func NewStudentService(students studentRepository, classes classGroupReader, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{students: students, classes: classes, validator: validate, logger: logger}
}

// Create enrolls one student into a class.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if _, err := s.classes.FindByID(ctx, req.ClassGroupID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class group")
	}

	student := models.Student{FullName: req.FullName, ClassGroupID: req.ClassGroupID}
	if err := s.students.Create(ctx, &student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return &student, nil
}

// List returns students, optionally filtered by class.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	students, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, nil
}

// ImportFromExcel reads student names from column A of the first sheet and
// enrolls every non-empty row into the given class. Rows with an empty first
// cell are skipped.
func (s *StudentService) ImportFromExcel(ctx context.Context, classGroupID string, file io.Reader) (*ImportResult, error) {
	class, err := s.classes.FindByID(ctx, classGroupID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class group")
	}

	wb, err := excelize.OpenReader(file)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read workbook")
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "workbook has no sheets")
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read sheet rows")
	}

	var students []models.Student
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		name := strings.TrimSpace(row[0])
		if name == "" {
			continue
		}
		students = append(students, models.Student{FullName: name, ClassGroupID: classGroupID})
	}
	if len(students) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no student names found in column A")
	}

	if err := s.students.BulkCreate(ctx, students); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to import students")
	}

	s.logger.Info("students imported",
		zap.Int("count", len(students)),
		zap.String("class_group_id", classGroupID))
	return &ImportResult{Imported: len(students), ClassGroupName: class.Name}, nil
}

// Transfer moves a student to another class.
func (s *StudentService) Transfer(ctx context.Context, studentID, newClassGroupID string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	class, err := s.classes.FindByID(ctx, newClassGroupID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "target class group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class group")
	}

	if err := s.students.UpdateClassGroup(ctx, studentID, newClassGroupID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to transfer student")
	}

	s.logger.Info("student transferred",
		zap.String("student_id", studentID),
		zap.String("class_group", fmt.Sprintf("%s -> %s", student.ClassGroupID, class.ID)))
	student.ClassGroupID = newClassGroupID
	return student, nil
}
