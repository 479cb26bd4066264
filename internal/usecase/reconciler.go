package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"flightledger-service/internal/domain/entity"
	"flightledger-service/internal/domain/repository"
	"flightledger-service/pkg/logger"
	"flightledger-service/pkg/metrics"
)

// Reconciler repairs records whose ledger commit previously failed. It
// re-derives the payload from the stored snapshot (no provider re-fetch) and
// retries with exponential backoff; after maxAttempts the record moves to
// the dead-letter state and is no longer retried.
type Reconciler struct {
	flightRepo  repository.FlightRecordRepository
	ledger      repository.LedgerRepository
	transformer PayloadBuilder
	locks       *KeyMutex
	metrics     *metrics.Metrics
	logger      logger.Logger
	callTimeout time.Duration
	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	batchSize   int
	now         func() time.Time
}

// ReconcilerConfig bounds the retry policy.
type ReconcilerConfig struct {
	CallTimeout time.Duration
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	BatchSize   int
}

// NewReconciler creates a reconciliation sweeper sharing locks with the
// status syncer.
func NewReconciler(
	flightRepo repository.FlightRecordRepository,
	ledgerRepo repository.LedgerRepository,
	transformer PayloadBuilder,
	locks *KeyMutex,
	m *metrics.Metrics,
	log logger.Logger,
	cfg ReconcilerConfig,
) *Reconciler {
	return &Reconciler{
		flightRepo:  flightRepo,
		ledger:      ledgerRepo,
		transformer: transformer,
		locks:       locks,
		metrics:     m,
		logger:      log,
		callTimeout: cfg.CallTimeout,
		maxAttempts: cfg.MaxAttempts,
		baseBackoff: cfg.BaseBackoff,
		maxBackoff:  cfg.MaxBackoff,
		batchSize:   cfg.BatchSize,
		now:         time.Now,
	}
}

// RunSweep retries every uncommitted record that is due. Failures are
// isolated per record.
func (r *Reconciler) RunSweep(ctx context.Context) error {
	now := r.now().UTC()
	records, err := r.flightRepo.FindUncommitted(ctx, now, r.batchSize)
	if err != nil {
		r.logger.Error("Failed to scan for uncommitted records", "error", err)
		return err
	}
	if len(records) == 0 {
		return nil
	}

	r.logger.Info("Starting reconciliation sweep", "due", len(records))

	repaired := 0
	for _, rec := range records {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := r.retryRecord(ctx, rec); err != nil {
			r.logger.Warn("Reconciliation attempt failed",
				"key", rec.Key(),
				"attempts", rec.CommitAttempts,
				"error", err)
		} else {
			repaired++
		}
	}

	r.logger.Info("Reconciliation sweep completed",
		"due", len(records),
		"repaired", repaired)
	return nil
}

// retryRecord re-derives the payload from the stored snapshot and retries
// the ledger commit for one record.
func (r *Reconciler) retryRecord(ctx context.Context, rec *entity.FlightRecord) error {
	unlock := r.locks.Lock(rec.Key())
	defer unlock()

	r.metrics.ReconcileRetries.Inc()

	var snap entity.FlightSnapshot
	if err := json.Unmarshal(rec.RawSnapshot, &snap); err != nil {
		// Nothing to re-derive from; retrying cannot succeed.
		r.metrics.DeadLetters.Inc()
		if derr := r.flightRepo.MarkDeadLetter(ctx, rec.Key()); derr != nil {
			return derr
		}
		return fmt.Errorf("stored snapshot unreadable: %w", err)
	}

	payload, err := r.transformer.Build(&snap)
	if err != nil {
		return err
	}

	commitCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	receipt, err := commitPayload(commitCtx, r.logger, r.ledger, rec, payload)
	cancel()
	if err != nil {
		r.metrics.LedgerFailures.WithLabelValues(commitFailureReason(err)).Inc()
		attempts := rec.CommitAttempts + 1
		rec.CommitAttempts = attempts

		if attempts >= r.maxAttempts {
			r.metrics.DeadLetters.Inc()
			r.logger.Error("Retry budget exhausted, dead-lettering record",
				"key", rec.Key(),
				"attempts", attempts)
			if derr := r.flightRepo.MarkDeadLetter(ctx, rec.Key()); derr != nil {
				return derr
			}
			return err
		}

		nextRetry := r.now().UTC().Add(r.backoff(attempts))
		if uerr := r.flightRepo.UpdateCommitFailure(ctx, rec.Key(), attempts, nextRetry); uerr != nil {
			return uerr
		}
		return err
	}

	r.metrics.LedgerCommits.Inc()
	r.logger.Info("Record reconciled",
		"key", rec.Key(),
		"txRef", receipt.TxRef,
		"block", receipt.BlockNumber)
	return r.flightRepo.UpdateCommitResult(ctx, rec.Key(), receipt)
}

// backoff doubles the delay per attempt up to the configured ceiling.
func (r *Reconciler) backoff(attempts int) time.Duration {
	d := r.baseBackoff
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= r.maxBackoff {
			return r.maxBackoff
		}
	}
	if d > r.maxBackoff {
		return r.maxBackoff
	}
	return d
}
