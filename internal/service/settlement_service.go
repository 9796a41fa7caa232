package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/artventure/academy-server/internal/models"
	"github.com/artventure/academy-server/internal/payment"
	appErrors "github.com/artventure/academy-server/pkg/errors"
)

type settlementSelectionStore interface {
	FindByID(ctx context.Context, id string) (*models.Selection, error)
	DeleteByID(ctx context.Context, id string) (bool, error)
}

type settlementClassStore interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	TryReserve(ctx context.Context, id string) (bool, error)
	Release(ctx context.Context, id string) error
}

type settlementLedger interface {
	Append(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	FindDetailByID(ctx context.Context, id string) (*models.PaymentDetail, error)
	MarkFinalized(ctx context.Context, confirmation string) (bool, error)
}

type finalizeScheduler interface {
	Schedule(payment models.Payment)
}

type cacheInvalidator interface {
	Delete(ctx context.Context, key string) error
}

// SettleRequest describes a settlement attempt for a held selection.
type SettleRequest struct {
	SelectionID string          `json:"selection_id" validate:"required"`
	ClassID     string          `json:"class_id" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
}

// Settlement outcome labels for metrics.
const (
	settlementResultSettled      = "settled"
	settlementResultPrecondition = "precondition_failed"
	settlementResultDeclined     = "declined"
	settlementResultGatewayError = "gateway_error"
	settlementResultPending      = "pending_finalization"
)

// SettlementService moves a student's selection through payment to a
// confirmed seat. The flow has one point of mutual exclusion (the atomic
// seat reservation) and one point of no return (the gateway charge): before
// the charge every failure unwinds completely, after it the enrollment is
// authoritative and the remaining writes always converge, via the reconciler
// if necessary.
type SettlementService struct {
	selections settlementSelectionStore
	classes    settlementClassStore
	ledger     settlementLedger
	gateway    payment.Gateway
	scheduler  finalizeScheduler
	cache      cacheInvalidator
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	currency   string
}

// NewSettlementService constructs the settlement coordinator.
func NewSettlementService(
	selections settlementSelectionStore,
	classes settlementClassStore,
	ledger settlementLedger,
	gateway payment.Gateway,
	scheduler finalizeScheduler,
	cache cacheInvalidator,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	currency string,
) *SettlementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if currency == "" {
		currency = "USD"
	}
	return &SettlementService{
		selections: selections,
		classes:    classes,
		ledger:     ledger,
		gateway:    gateway,
		scheduler:  scheduler,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		currency:   currency,
	}
}

// SetScheduler wires the reconciliation scheduler. The reconciler replays
// finalizations through this service, so the two are constructed in sequence
// and linked here.
func (s *SettlementService) SetScheduler(scheduler finalizeScheduler) {
	s.scheduler = scheduler
}

// Settle validates the selection and class, reserves a seat, charges the
// student, and finalizes the enrollment bookkeeping. It returns the created
// enrollment record plus the updated class capacity snapshot.
func (s *SettlementService) Settle(ctx context.Context, studentID string, req SettleRequest) (*models.SettlementResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid settlement payload")
	}
	if !req.Amount.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount must be positive")
	}

	selection, err := s.selections.FindByID(ctx, req.SelectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "selection not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load selection")
	}
	if selection.StudentID != studentID {
		// Another student's selection is indistinguishable from a missing one.
		return nil, appErrors.Clone(appErrors.ErrNotFound, "selection not found")
	}
	if selection.ClassID != req.ClassID {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "selection does not match class")
	}

	class, err := s.classes.FindByID(ctx, req.ClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if class.Status != models.ClassStatusApproved {
		s.observe(settlementResultPrecondition)
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "class is not approved")
	}
	if !req.Amount.Equal(class.Price) {
		s.observe(settlementResultPrecondition)
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "amount does not match class price")
	}

	reserved, err := s.classes.TryReserve(ctx, class.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reserve seat")
	}
	if !reserved {
		s.observe(settlementResultPrecondition)
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "class is full")
	}

	chargeStart := time.Now()
	confirmation, err := s.gateway.Charge(ctx, payment.ChargeRequest{
		Amount:     req.Amount,
		Currency:   s.currency,
		CustomerID: studentID,
		Reference:  selection.ID,
	})
	if s.metrics != nil {
		s.metrics.ObserveGatewayCharge(time.Since(chargeStart))
	}
	if err != nil {
		// No charge was made: give the seat back and surface a typed error.
		// The selection survives so the student can retry.
		s.releaseSeat(ctx, class.ID)
		switch {
		case errors.Is(err, payment.ErrDeclined):
			s.observe(settlementResultDeclined)
			return nil, appErrors.Wrap(err, appErrors.ErrPaymentDeclined.Code, appErrors.ErrPaymentDeclined.Status, appErrors.ErrPaymentDeclined.Message)
		case errors.Is(err, payment.ErrGateway):
			s.observe(settlementResultGatewayError)
			return nil, appErrors.Wrap(err, appErrors.ErrPaymentGatewayError.Code, appErrors.ErrPaymentGatewayError.Status, appErrors.ErrPaymentGatewayError.Message)
		default:
			s.observe(settlementResultGatewayError)
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "charge failed")
		}
	}

	// Point of no return. The student has been charged: from here on the
	// caller's cancellation must not abort the bookkeeping, and no write
	// failure may be surfaced as a failed charge.
	finCtx := context.WithoutCancel(ctx)

	record := models.Payment{
		StudentID:    studentID,
		ClassID:      class.ID,
		SelectionID:  selection.ID,
		Amount:       req.Amount,
		Confirmation: confirmation.Token,
		CreatedAt:    confirmation.ChargedAt,
	}

	stored, err := s.Finalize(finCtx, record)
	pending := false
	if err != nil {
		pending = true
		s.logger.Warn("settlement finalization incomplete, scheduling reconciliation",
			zap.String("confirmation", confirmation.Token),
			zap.String("selection_id", selection.ID),
			zap.Error(err))
		if s.scheduler != nil {
			s.scheduler.Schedule(record)
		}
	}
	if stored == nil {
		stored = &record
	}

	s.invalidateEnrollments(finCtx, studentID)

	detail := s.loadDetail(finCtx, stored, class)
	snapshot := s.loadSnapshot(finCtx, class)

	if pending {
		s.observe(settlementResultPending)
	} else {
		s.observe(settlementResultSettled)
	}

	return &models.SettlementResult{
		Enrollment:          *detail,
		Class:               *snapshot,
		PendingFinalization: pending,
	}, nil
}

// Finalize performs the post-charge writes: append the ledger record keyed
// by the confirmation token, delete the consumed selection, and flip the
// finalized flag. Every step is idempotent, so the whole sequence can be
// replayed with the same confirmation token and converge to the same state.
func (s *SettlementService) Finalize(ctx context.Context, record models.Payment) (*models.Payment, error) {
	stored, err := s.ledger.Append(ctx, &record)
	if err != nil {
		return nil, fmt.Errorf("append enrollment: %w", err)
	}
	if stored.Finalized {
		return stored, nil
	}
	if _, err := s.selections.DeleteByID(ctx, stored.SelectionID); err != nil {
		return stored, fmt.Errorf("delete selection: %w", err)
	}
	if _, err := s.ledger.MarkFinalized(ctx, stored.Confirmation); err != nil {
		return stored, fmt.Errorf("finalize enrollment: %w", err)
	}
	stored.Finalized = true
	return stored, nil
}

func (s *SettlementService) releaseSeat(ctx context.Context, classID string) {
	// The caller may already be gone; the release must still happen.
	detached := context.WithoutCancel(ctx)
	if err := s.classes.Release(detached, classID); err != nil {
		s.logger.Error("failed to release reserved seat", zap.String("class_id", classID), zap.Error(err))
	}
}

func (s *SettlementService) invalidateEnrollments(ctx context.Context, studentID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, enrollmentCacheKey(studentID)); err != nil {
		s.logger.Warn("failed to invalidate enrollment cache", zap.String("student_id", studentID), zap.Error(err))
	}
}

func (s *SettlementService) loadDetail(ctx context.Context, stored *models.Payment, class *models.Class) *models.PaymentDetail {
	if detail, err := s.ledger.FindDetailByID(ctx, stored.ID); err == nil {
		return detail
	}
	return &models.PaymentDetail{Payment: *stored, ClassTitle: class.Title}
}

func (s *SettlementService) loadSnapshot(ctx context.Context, class *models.Class) *models.Class {
	if snapshot, err := s.classes.FindByID(ctx, class.ID); err == nil {
		return snapshot
	}
	local := *class
	local.AvailableSeats--
	local.EnrolledStudents++
	return &local
}

func (s *SettlementService) observe(result string) {
	if s.metrics != nil {
		s.metrics.ObserveSettlement(result)
	}
}

func enrollmentCacheKey(studentID string) string {
	return "enrollments:" + studentID
}
