package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/artventure/academy-server/internal/models"
	appErrors "github.com/artventure/academy-server/pkg/errors"
)

type selectionRepository interface {
	Create(ctx context.Context, selection *models.Selection) error
	FindByID(ctx context.Context, id string) (*models.Selection, error)
	Exists(ctx context.Context, studentID, classID string) (bool, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.SelectionDetail, error)
	DeleteByID(ctx context.Context, id string) (bool, error)
}

type selectionClassReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// SelectClassRequest records a student's intent to enroll.
type SelectClassRequest struct {
	ClassID string `json:"class_id" validate:"required"`
}

// SelectionService manages a student's pending class selections.
type SelectionService struct {
	repo      selectionRepository
	classes   selectionClassReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSelectionService constructs SelectionService.
func NewSelectionService(repo selectionRepository, classes selectionClassReader, validate *validator.Validate, logger *zap.Logger) *SelectionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SelectionService{repo: repo, classes: classes, validator: validate, logger: logger}
}

// Select records interest in an approved class.
func (s *SelectionService) Select(ctx context.Context, studentID string, req SelectClassRequest) (*models.Selection, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid selection payload")
	}

	class, err := s.classes.FindByID(ctx, req.ClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if class.Status != models.ClassStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "class is not approved")
	}
	if class.AvailableSeats <= 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "class is full")
	}

	exists, err := s.repo.Exists(ctx, studentID, req.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check selection")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "class already selected")
	}

	selection := &models.Selection{StudentID: studentID, ClassID: req.ClassID}
	if err := s.repo.Create(ctx, selection); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create selection")
	}
	return selection, nil
}

// List returns the student's pending selections, newest first.
func (s *SelectionService) List(ctx context.Context, studentID string) ([]models.SelectionDetail, error) {
	selections, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list selections")
	}
	return selections, nil
}

// Remove deletes one of the caller's own selections.
func (s *SelectionService) Remove(ctx context.Context, studentID, id string) error {
	selection, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "selection not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load selection")
	}
	if selection.StudentID != studentID {
		return appErrors.Clone(appErrors.ErrNotFound, "selection not found")
	}
	if _, err := s.repo.DeleteByID(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete selection")
	}
	return nil
}
