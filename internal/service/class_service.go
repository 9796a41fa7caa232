package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/artventure/academy-server/internal/models"
	appErrors "github.com/artventure/academy-server/pkg/errors"
)

type classRepository interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	Create(ctx context.Context, class *models.Class) error
	SetStatus(ctx context.Context, id string, status models.ClassStatus, feedback *string) error
}

// CreateClassRequest describes an instructor's class proposal.
type CreateClassRequest struct {
	Title          string          `json:"title" validate:"required"`
	ImageURL       string          `json:"image_url"`
	Price          decimal.Decimal `json:"price"`
	AvailableSeats int             `json:"available_seats" validate:"required,gt=0"`
}

// ModerateClassRequest carries optional admin feedback for a status change.
type ModerateClassRequest struct {
	Feedback string `json:"feedback"`
}

// ClassService manages class proposals and their moderation lifecycle.
type ClassService struct {
	repo      classRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs ClassService.
func NewClassService(repo classRepository, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, validator: validate, logger: logger}
}

// List returns classes with pagination metadata.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, *models.Pagination, error) {
	classes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return classes, pagination, nil
}

// Create registers a new class proposal for an instructor. Every proposal
// starts out pending moderation.
func (s *ClassService) Create(ctx context.Context, instructorID string, req CreateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	if req.Price.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "price must not be negative")
	}

	class := &models.Class{
		Title:          req.Title,
		ImageURL:       req.ImageURL,
		InstructorID:   instructorID,
		Price:          req.Price,
		AvailableSeats: req.AvailableSeats,
	}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	return class, nil
}

// SetStatus overwrites a class's moderation status. Re-applying the same
// status is allowed.
func (s *ClassService) SetStatus(ctx context.Context, id string, status models.ClassStatus, feedback string) (*models.Class, error) {
	var fb *string
	if feedback != "" {
		fb = &feedback
	}
	if err := s.repo.SetStatus(ctx, id, status, fb); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class status")
	}
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}
