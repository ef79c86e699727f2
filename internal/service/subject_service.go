package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-crm-api/internal/models"
	appErrors "github.com/noah-isme/school-crm-api/pkg/errors"
)

type subjectRepository interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	List(ctx context.Context) ([]models.Subject, error)
	Create(ctx context.Context, subject *models.Subject) error
}

// CreateSubjectRequest describes payload for creating a subject.
type CreateSubjectRequest struct {
	Name string `json:"name" validate:"required,max=64"`
}

// SubjectService manages taught subjects.
type SubjectService struct {
	repo      subjectRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService instantiates SubjectService.
func NewSubjectService(repo subjectRepository, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{repo: repo, validator: validate, logger: logger}
}

// List returns all subjects.
func (s *SubjectService) List(ctx context.Context) ([]models.Subject, error) {
	subjects, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, nil
}

// Create adds a subject.
func (s *SubjectService) Create(ctx context.Context, req CreateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}

	subject := models.Subject{Name: req.Name}
	if err := s.repo.Create(ctx, &subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}
	return &subject, nil
}
