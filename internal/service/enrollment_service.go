package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/artventure/academy-server/internal/models"
	appErrors "github.com/artventure/academy-server/pkg/errors"
	"github.com/artventure/academy-server/pkg/export"
)

type enrollmentLedgerReader interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.PaymentDetail, error)
	FindDetailByID(ctx context.Context, id string) (*models.PaymentDetail, error)
}

type enrollmentCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type receiptRenderer interface {
	Render(r export.Receipt) ([]byte, error)
}

// EnrollmentService is the read side of the enrollment ledger: listings for
// the student dashboard and PDF receipts.
type EnrollmentService struct {
	ledger   enrollmentLedgerReader
	cache    enrollmentCache
	receipts receiptRenderer
	logger   *zap.Logger
	cacheTTL time.Duration
	currency string
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(ledger enrollmentLedgerReader, cache enrollmentCache, receipts receiptRenderer, logger *zap.Logger, cacheTTL time.Duration, currency string) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	if currency == "" {
		currency = "USD"
	}
	return &EnrollmentService{ledger: ledger, cache: cache, receipts: receipts, logger: logger, cacheTTL: cacheTTL, currency: currency}
}

// List returns the student's enrollment records, newest first. Results are
// cached per student; the settlement coordinator invalidates on settle.
func (s *EnrollmentService) List(ctx context.Context, studentID string) ([]models.PaymentDetail, error) {
	key := enrollmentCacheKey(studentID)
	if s.cache != nil {
		var cached []models.PaymentDetail
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	enrollments, err := s.ledger.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, enrollments, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache enrollments", zap.String("student_id", studentID), zap.Error(err))
		}
	}
	return enrollments, nil
}

// Receipt renders a PDF receipt for one of the caller's own payments.
func (s *EnrollmentService) Receipt(ctx context.Context, studentID, paymentID, studentEmail string) ([]byte, error) {
	detail, err := s.ledger.FindDetailByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	if detail.StudentID != studentID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
	}

	receipt := export.Receipt{
		PaymentID:    detail.ID,
		Confirmation: detail.Confirmation,
		StudentEmail: studentEmail,
		ClassTitle:   detail.ClassTitle,
		Instructor:   detail.InstructorName,
		Amount:       detail.Amount.StringFixed(2),
		Currency:     s.currency,
		PaidAt:       detail.CreatedAt.UTC().Format(time.RFC3339),
	}
	rendered, err := s.receipts.Render(receipt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}
	return rendered, nil
}
