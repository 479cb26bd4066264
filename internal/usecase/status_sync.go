package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"flightledger-service/internal/domain/entity"
	"flightledger-service/internal/domain/repository"
	"flightledger-service/pkg/logger"
	"flightledger-service/pkg/metrics"
)

// PayloadBuilder prepares the selectively-encrypted ledger payload for a
// snapshot. A key misconfiguration surfaces here, before any ledger call.
type PayloadBuilder interface {
	Build(snap *entity.FlightSnapshot) (*entity.LedgerPayload, error)
}

// StatusSyncer drives the poll-and-commit cycle: fetch a snapshot for each
// tracked flight, validate the status transition, prepare the encrypted
// payload and commit it to the ledger, then bring the mirror record up to
// date.
type StatusSyncer struct {
	flightRepo  repository.FlightRecordRepository
	flightData  repository.FlightDataRepository
	ledger      repository.LedgerRepository
	transformer PayloadBuilder
	validator   *TransitionValidator
	locks       *KeyMutex
	metrics     *metrics.Metrics
	logger      logger.Logger
	callTimeout time.Duration
	now         func() time.Time
}

// NewStatusSyncer creates a status syncer. locks must be the same instance
// the reconciler uses so commits for one key never overlap.
func NewStatusSyncer(
	flightRepo repository.FlightRecordRepository,
	flightData repository.FlightDataRepository,
	ledgerRepo repository.LedgerRepository,
	transformer PayloadBuilder,
	validator *TransitionValidator,
	locks *KeyMutex,
	m *metrics.Metrics,
	log logger.Logger,
	callTimeout time.Duration,
) *StatusSyncer {
	return &StatusSyncer{
		flightRepo:  flightRepo,
		flightData:  flightData,
		ledger:      ledgerRepo,
		transformer: transformer,
		validator:   validator,
		locks:       locks,
		metrics:     m,
		logger:      log,
		callTimeout: callTimeout,
		now:         time.Now,
	}
}

// RunCycle processes every tracked flight once. A single flight's failure
// never aborts the rest of the tick.
func (s *StatusSyncer) RunCycle(ctx context.Context) error {
	start := time.Now()
	defer func() {
		s.metrics.PollCycleDuration.Observe(time.Since(start).Seconds())
	}()

	records, err := s.flightRepo.FindActive(ctx)
	if err != nil {
		s.logger.Error("Failed to enumerate tracked flights", "error", err)
		return err
	}

	s.logger.Info("Starting poll cycle", "tracked", len(records))

	successCount := 0
	failCount := 0
	for _, rec := range records {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.ProcessFlight(ctx, rec); err != nil {
			s.logger.Error("Failed to process flight", "key", rec.Key(), "error", err)
			failCount++
		} else {
			successCount++
		}
	}

	s.logger.Info("Poll cycle completed",
		"tracked", len(records),
		"success", successCount,
		"failed", failCount)
	return nil
}

// ProcessFlight runs the full pipeline for one tracked flight.
func (s *StatusSyncer) ProcessFlight(ctx context.Context, rec *entity.FlightRecord) error {
	fetchCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	snap, err := s.flightData.FetchStatus(fetchCtx, rec.CarrierCode, rec.FlightNumber, rec.DepartureDate, rec.DepartureAirport)
	cancel()
	if err != nil {
		if errors.Is(err, repository.ErrFlightNotFound) {
			s.logger.Info("Flight not found at provider", "key", rec.Key())
			return nil
		}
		return fmt.Errorf("adapter fetch failed: %w", err)
	}
	s.metrics.FlightsPolled.Inc()

	// Reject before any mutation; no partial write.
	if err := snap.Validate(); err != nil {
		s.logger.Warn("Snapshot rejected", "key", rec.Key(), "error", err)
		return err
	}

	allowed, reason := s.validator.Validate(rec.Status, snap.StatusCode)
	if !allowed {
		s.metrics.TransitionsDenied.Inc()
		s.logger.Debug("Transition denied",
			"key", rec.Key(),
			"from", rec.Status,
			"to", snap.StatusCode,
			"reason", reason)
		return nil
	}

	unlock := s.locks.Lock(rec.Key())
	defer unlock()

	now := s.now().UTC()

	// A flight first sighted as OUT may carry no OUT timestamp yet.
	if snap.StatusCode == entity.StatusOut && snap.OutUTC == nil {
		snap.OutUTC = &now
	}

	// A key or transform failure must surface before any ledger call.
	payload, err := s.transformer.Build(snap)
	if err != nil {
		s.logger.Error("Payload transform failed", "key", rec.Key(), "error", err)
		return err
	}

	commitStart := time.Now()
	commitCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	receipt, commitErr := commitPayload(commitCtx, s.logger, s.ledger, rec, payload)
	cancel()
	s.metrics.LedgerCommitTiming.Observe(time.Since(commitStart).Seconds())

	s.applySnapshot(rec, snap, now)

	if commitErr != nil {
		s.metrics.LedgerFailures.WithLabelValues(commitFailureReason(commitErr)).Inc()
		rec.Committed = false
		rec.CommitState = entity.CommitPending
		rec.NextRetryAt = &now
		s.logger.Error("Ledger commit failed, record left for reconciliation",
			"key", rec.Key(),
			"status", rec.Status,
			"error", commitErr)
	} else {
		s.metrics.LedgerCommits.Inc()
		rec.Committed = true
		rec.CommitState = entity.CommitConfirmed
		rec.CommitAttempts = 0
		rec.NextRetryAt = nil
		rec.LedgerTxRef = receipt.TxRef
		rec.LedgerBlock = receipt.BlockNumber
		s.logger.Info("Status change committed",
			"key", rec.Key(),
			"status", rec.Status,
			"txRef", receipt.TxRef,
			"block", receipt.BlockNumber)
	}

	if err := s.flightRepo.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("mirror update failed: %w", err)
	}
	return commitErr
}

// Subscribe starts tracking a flight and registers the subscription on the
// ledger. Idempotent per tracking key.
func (s *StatusSyncer) Subscribe(ctx context.Context, carrier, flightNumber, departureDate, from, to string) (*entity.FlightRecord, error) {
	key := entity.BuildTrackingKey(carrier, flightNumber, departureDate, from, to)

	existing, err := s.flightRepo.FindByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := s.now().UTC()
	rec := &entity.FlightRecord{
		TrackingKey:      key,
		FlightNumber:     flightNumber,
		CarrierCode:      carrier,
		DepartureDate:    departureDate,
		DepartureAirport: from,
		ArrivalAirport:   to,
		CommitState:      entity.CommitPending,
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	subCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	err = s.ledger.AddSubscription(subCtx, key)
	cancel()
	if err != nil {
		// Tracking starts regardless; the first commit anchors the flight.
		s.logger.Warn("Ledger subscription failed", "key", key, "error", err)
	}

	if err := s.flightRepo.Upsert(ctx, rec); err != nil {
		return nil, err
	}
	s.logger.Info("Flight subscribed", "key", key)
	return rec, nil
}

// Unsubscribe stops tracking a batch of flights and removes their ledger
// subscriptions.
func (s *StatusSyncer) Unsubscribe(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	subCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	err := s.ledger.RemoveSubscriptions(subCtx, keys)
	cancel()
	if err != nil {
		s.logger.Warn("Ledger unsubscription failed", "keys", len(keys), "error", err)
	}

	for _, key := range keys {
		if err := s.flightRepo.DeleteByKey(ctx, key); err != nil {
			s.logger.Error("Failed to delete mirror record", "key", key, "error", err)
			return err
		}
	}
	s.logger.Info("Flights unsubscribed", "count", len(keys))
	return nil
}

// applySnapshot copies the accepted snapshot into the mirror record.
func (s *StatusSyncer) applySnapshot(rec *entity.FlightRecord, snap *entity.FlightSnapshot, now time.Time) {
	rec.Status = snap.StatusCode
	rec.OutUTC = snap.OutUTC
	rec.OffUTC = snap.OffUTC
	rec.OnUTC = snap.OnUTC
	rec.InUTC = snap.InUTC
	rec.DepartureDelay = snap.DepartureDelayMinutes
	rec.ArrivalDelay = snap.ArrivalDelayMinutes
	rec.UpdatedAt = now

	if raw, err := json.Marshal(snap); err == nil {
		rec.RawSnapshot = raw
	}

	if rec.Terminal() {
		rec.Active = false
	}
}
