package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/artventure/academy-server/internal/models"
	"github.com/artventure/academy-server/pkg/jobs"
)

type unfinalizedLister interface {
	ListUnfinalized(ctx context.Context) ([]models.Payment, error)
}

type paymentFinalizer interface {
	Finalize(ctx context.Context, record models.Payment) (*models.Payment, error)
}

// ReconciliationService replays incomplete settlement finalizations. Charges
// are authoritative: any ledger row whose post-charge bookkeeping did not
// complete is re-driven through the same idempotent finalization steps until
// selection and flag state match what the ledger says happened.
type ReconciliationService struct {
	ledger    unfinalizedLister
	finalizer paymentFinalizer
	metrics   *MetricsService
	logger    *zap.Logger
	interval  time.Duration
	queue     *jobs.Queue
}

// NewReconciliationService constructs the reconciler. The finalizer is
// normally the settlement service itself.
func NewReconciliationService(ledger unfinalizedLister, finalizer paymentFinalizer, metrics *MetricsService, logger *zap.Logger, interval time.Duration, queueCfg jobs.QueueConfig) *ReconciliationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	s := &ReconciliationService{
		ledger:    ledger,
		finalizer: finalizer,
		metrics:   metrics,
		logger:    logger,
		interval:  interval,
	}
	queueCfg.Logger = logger
	s.queue = jobs.NewQueue("settlement-reconcile", s.handleJob, queueCfg)
	return s
}

// Start launches the worker queue, runs an immediate recovery scan, and
// keeps re-scanning on the configured interval until ctx is cancelled.
func (s *ReconciliationService) Start(ctx context.Context) {
	s.queue.Start(ctx)

	go func() {
		s.scan(ctx)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.scan(ctx)
			}
		}
	}()
}

// Stop drains the worker queue.
func (s *ReconciliationService) Stop() {
	s.queue.Stop()
}

// Schedule enqueues a single stranded finalization. Called by the settlement
// coordinator when a post-charge write fails in-line.
func (s *ReconciliationService) Schedule(record models.Payment) {
	job := jobs.Job{ID: record.Confirmation, Type: "finalize", Payload: record}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Error("failed to enqueue finalization", zap.String("confirmation", record.Confirmation), zap.Error(err))
	}
}

func (s *ReconciliationService) scan(ctx context.Context) {
	stranded, err := s.ledger.ListUnfinalized(ctx)
	if err != nil {
		s.logger.Error("reconciliation scan failed", zap.Error(err))
		return
	}
	for _, record := range stranded {
		s.Schedule(record)
	}
	if len(stranded) > 0 {
		s.logger.Info("reconciliation scan queued stranded settlements", zap.Int("count", len(stranded)))
	}
}

func (s *ReconciliationService) handleJob(ctx context.Context, job jobs.Job) error {
	record, ok := job.Payload.(models.Payment)
	if !ok {
		s.logger.Error("unexpected reconciliation payload", zap.String("job_id", job.ID))
		return nil
	}
	if _, err := s.finalizer.Finalize(ctx, record); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.ObserveReconciliation()
	}
	s.logger.Info("settlement finalization reconciled", zap.String("confirmation", record.Confirmation))
	return nil
}
