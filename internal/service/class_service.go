package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-crm-api/internal/models"
	appErrors "github.com/noah-isme/school-crm-api/pkg/errors"
)

type classGroupRepository interface {
	FindByID(ctx context.Context, id string) (*models.ClassGroup, error)
	FindByName(ctx context.Context, name string) (*models.ClassGroup, error)
	List(ctx context.Context) ([]models.ClassGroup, error)
	Create(ctx context.Context, class *models.ClassGroup) error
	Delete(ctx context.Context, id string) error
}

// CreateClassGroupRequest describes payload for creating a class group.
type CreateClassGroupRequest struct {
	Name string `json:"name" validate:"required,max=32"`
}

// ClassService manages class groups.
type ClassService struct {
	repo      classGroupRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService instantiates ClassService.
func NewClassService(repo classGroupRepository, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, validator: validate, logger: logger}
}

// List returns all class groups.
func (s *ClassService) List(ctx context.Context) ([]models.ClassGroup, error) {
	classes, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class groups")
	}
	return classes, nil
}

// Create adds a class group. Names are unique.
func (s *ClassService) Create(ctx context.Context, req CreateClassGroupRequest) (*models.ClassGroup, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class group payload")
	}

	if _, err := s.repo.FindByName(ctx, req.Name); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "class group with this name already exists")
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class group name")
	}

	class := models.ClassGroup{Name: req.Name}
	if err := s.repo.Create(ctx, &class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class group")
	}
	return &class, nil
}

// Delete removes a class group.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "class group not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class group")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class group")
	}
	return nil
}
