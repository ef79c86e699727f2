package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-crm-api/internal/models"
	appErrors "github.com/noah-isme/school-crm-api/pkg/errors"
)

type bellRepository interface {
	List(ctx context.Context) ([]models.BellPeriod, error)
	FindByOrder(ctx context.Context, order int) (*models.BellPeriod, error)
	Create(ctx context.Context, bell *models.BellPeriod) error
	Delete(ctx context.Context, id string) error
}

// CreateBellRequest describes payload for one bell schedule entry.
type CreateBellRequest struct {
	Order     int    `json:"order" validate:"required,min=1,max=12"`
	StartTime string `json:"start_time" validate:"required,clock_time"`
	EndTime   string `json:"end_time" validate:"required,clock_time"`
}

// BellService manages the school bell schedule.
type BellService struct {
	repo      bellRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBellService instantiates BellService. It relies on the clock_time
// validation registered by the schedule service on the shared validator; a
// standalone validator gets its own registration.
func NewBellService(repo bellRepository, validate *validator.Validate, logger *zap.Logger) *BellService {
	if validate == nil {
		validate = validator.New()
		validate.RegisterValidation("clock_time", func(fl validator.FieldLevel) bool {
			return models.ValidClockTime(fl.Field().String())
		})
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BellService{repo: repo, validator: validate, logger: logger}
}

// List returns the bell schedule ordered by lesson number.
func (s *BellService) List(ctx context.Context) ([]models.BellPeriod, error) {
	bells, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bell schedule")
	}
	return bells, nil
}

// Create adds one bell schedule entry. Lesson numbers are unique.
func (s *BellService) Create(ctx context.Context, req CreateBellRequest) (*models.BellPeriod, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bell payload")
	}

	if _, err := s.repo.FindByOrder(ctx, req.Order); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "lesson number already has a bell entry")
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check lesson number")
	}

	bell := models.BellPeriod{Order: req.Order, StartTime: req.StartTime, EndTime: req.EndTime}
	if err := s.repo.Create(ctx, &bell); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create bell entry")
	}
	return &bell, nil
}

// Delete removes one bell schedule entry.
func (s *BellService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete bell entry")
	}
	return nil
}
