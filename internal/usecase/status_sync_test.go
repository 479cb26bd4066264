package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"flightledger-service/internal/domain/entity"
	"flightledger-service/internal/domain/repository"
	"flightledger-service/pkg/logger"
	"flightledger-service/pkg/metrics"
	"flightledger-service/pkg/secure"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

func newTestSyncer(repo *fakeFlightRepo, data *fakeFlightData, led *fakeLedger, m *metrics.Metrics) *StatusSyncer {
	s := NewStatusSyncer(repo, data, led, testTransformer(), NewTransitionValidator(), NewKeyMutex(), m, logger.NewNop(), time.Second)
	s.now = func() time.Time { return fixedNow }
	return s
}

func trackedRecord() *entity.FlightRecord {
	return &entity.FlightRecord{
		TrackingKey:      "AA1234:2026-08-28:DFW:ORD",
		FlightNumber:     "1234",
		CarrierCode:      "AA",
		DepartureDate:    "2026-08-28",
		DepartureAirport: "DFW",
		ArrivalAirport:   "ORD",
		CommitState:      entity.CommitPending,
		Active:           true,
	}
}

func statusSnapshot(status string) *entity.FlightSnapshot {
	return &entity.FlightSnapshot{
		FlightNumber:     "1234",
		CarrierCode:      "AA",
		DepartureDate:    "2026-08-28",
		DepartureAirport: "DFW",
		ArrivalAirport:   "ORD",
		StatusCode:       status,
	}
}

func TestProcessFlightFirstCommit(t *testing.T) {
	repo := newFakeFlightRepo()
	data := &fakeFlightData{snapshot: statusSnapshot(entity.StatusOut)}
	led := &fakeLedger{submitReceipt: &entity.LedgerReceipt{TxRef: "0xabc", BlockNumber: 42}}
	s := newTestSyncer(repo, data, led, testMetrics())

	rec := trackedRecord()
	require.NoError(t, s.ProcessFlight(context.Background(), rec))

	assert.Equal(t, 1, led.existsCalls)
	assert.Equal(t, 1, led.submitCalls)
	assert.Equal(t, 0, led.updateCalls)

	require.Len(t, repo.upserts, 1)
	got := repo.upserts[0]
	assert.Equal(t, entity.StatusOut, got.Status)
	assert.True(t, got.Committed)
	assert.Equal(t, entity.CommitConfirmed, got.CommitState)
	assert.True(t, got.Anchored)
	assert.Equal(t, "0xabc", got.LedgerTxRef)
	assert.Equal(t, int64(42), got.LedgerBlock)
	assert.Nil(t, got.NextRetryAt)
	assert.NotEmpty(t, got.RawSnapshot)
}

func TestProcessFlightSeedsMissingOutTimestamp(t *testing.T) {
	repo := newFakeFlightRepo()
	data := &fakeFlightData{snapshot: statusSnapshot(entity.StatusOut)}
	led := &fakeLedger{submitReceipt: &entity.LedgerReceipt{TxRef: "0xabc", BlockNumber: 1}}
	s := newTestSyncer(repo, data, led, testMetrics())

	require.NoError(t, s.ProcessFlight(context.Background(), trackedRecord()))

	require.Len(t, repo.upserts, 1)
	got := repo.upserts[0]
	require.NotNil(t, got.OutUTC)
	assert.True(t, got.OutUTC.Equal(fixedNow))
}

func TestProcessFlightKeepsProvidedOutTimestamp(t *testing.T) {
	repo := newFakeFlightRepo()
	out := fixedNow.Add(-30 * time.Minute)
	snap := statusSnapshot(entity.StatusOut)
	snap.OutUTC = &out
	data := &fakeFlightData{snapshot: snap}
	led := &fakeLedger{submitReceipt: &entity.LedgerReceipt{TxRef: "0xabc", BlockNumber: 1}}
	s := newTestSyncer(repo, data, led, testMetrics())

	require.NoError(t, s.ProcessFlight(context.Background(), trackedRecord()))

	require.Len(t, repo.upserts, 1)
	require.NotNil(t, repo.upserts[0].OutUTC)
	assert.True(t, repo.upserts[0].OutUTC.Equal(out))
}

func TestProcessFlightDeniedTransitionWritesNothing(t *testing.T) {
	repo := newFakeFlightRepo()
	data := &fakeFlightData{snapshot: statusSnapshot(entity.StatusOut)}
	led := &fakeLedger{}
	m := testMetrics()
	s := newTestSyncer(repo, data, led, m)

	rec := trackedRecord()
	rec.Status = entity.StatusOut // no change

	require.NoError(t, s.ProcessFlight(context.Background(), rec))

	assert.Equal(t, 0, led.existsCalls)
	assert.Equal(t, 0, led.submitCalls)
	assert.Equal(t, 0, led.updateCalls)
	assert.Empty(t, repo.upserts)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.TransitionsDenied))
}

func TestProcessFlightNotFoundIsQuiet(t *testing.T) {
	repo := newFakeFlightRepo()
	data := &fakeFlightData{err: repository.ErrFlightNotFound}
	led := &fakeLedger{}
	s := newTestSyncer(repo, data, led, testMetrics())

	require.NoError(t, s.ProcessFlight(context.Background(), trackedRecord()))

	assert.Equal(t, 0, led.submitCalls)
	assert.Empty(t, repo.upserts)
}

func TestProcessFlightRejectsInvalidSnapshot(t *testing.T) {
	repo := newFakeFlightRepo()
	snap := statusSnapshot(entity.StatusOut)
	snap.StatusCode = ""
	data := &fakeFlightData{snapshot: snap}
	led := &fakeLedger{}
	s := newTestSyncer(repo, data, led, testMetrics())

	err := s.ProcessFlight(context.Background(), trackedRecord())
	var verr *entity.ValidationError
	assert.ErrorAs(t, err, &verr)

	assert.Equal(t, 0, led.submitCalls)
	assert.Empty(t, repo.upserts)
}

func TestProcessFlightCommitFailureLeavesRecordForReconciliation(t *testing.T) {
	repo := newFakeFlightRepo()
	data := &fakeFlightData{snapshot: statusSnapshot(entity.StatusOut)}
	led := &fakeLedger{submitErr: repository.ErrReverted}
	s := newTestSyncer(repo, data, led, testMetrics())

	rec := trackedRecord()
	err := s.ProcessFlight(context.Background(), rec)
	assert.ErrorIs(t, err, repository.ErrReverted)

	// The mirror still reflects the observed status; only the commit flags
	// mark the record as unreconciled.
	require.Len(t, repo.upserts, 1)
	got := repo.upserts[0]
	assert.Equal(t, entity.StatusOut, got.Status)
	assert.False(t, got.Committed)
	assert.Equal(t, entity.CommitPending, got.CommitState)
	require.NotNil(t, got.NextRetryAt)
	assert.True(t, got.NextRetryAt.Equal(fixedNow))
	assert.Empty(t, got.LedgerTxRef)
}

func TestProcessFlightKeyErrorNeverReachesLedger(t *testing.T) {
	repo := newFakeFlightRepo()
	data := &fakeFlightData{snapshot: statusSnapshot(entity.StatusOut)}
	led := &fakeLedger{}
	builder := failingBuilder{err: fmt.Errorf("transform: %w (got 31)", secure.ErrKeySize)}
	s := NewStatusSyncer(repo, data, led, builder, NewTransitionValidator(), NewKeyMutex(), testMetrics(), logger.NewNop(), time.Second)
	s.now = func() time.Time { return fixedNow }

	err := s.ProcessFlight(context.Background(), trackedRecord())
	assert.ErrorIs(t, err, secure.ErrKeySize)

	// The configuration error surfaces before any ledger traffic
	assert.Equal(t, 0, led.existsCalls)
	assert.Equal(t, 0, led.submitCalls)
	assert.Equal(t, 0, led.updateCalls)
	assert.Empty(t, repo.upserts)
}

func TestProcessFlightAnchoredRecordUpdates(t *testing.T) {
	repo := newFakeFlightRepo()
	data := &fakeFlightData{snapshot: statusSnapshot(entity.StatusOff)}
	led := &fakeLedger{updateReceipt: &entity.LedgerReceipt{TxRef: "0xdef", BlockNumber: 43}}
	s := newTestSyncer(repo, data, led, testMetrics())

	rec := trackedRecord()
	rec.Status = entity.StatusOut
	rec.Anchored = true

	require.NoError(t, s.ProcessFlight(context.Background(), rec))

	assert.Equal(t, 0, led.existsCalls)
	assert.Equal(t, 0, led.submitCalls)
	assert.Equal(t, 1, led.updateCalls)
	require.Len(t, repo.upserts, 1)
	assert.Equal(t, "0xdef", repo.upserts[0].LedgerTxRef)
}

func TestProcessFlightExistingLedgerRecordSkipsInsert(t *testing.T) {
	repo := newFakeFlightRepo()
	data := &fakeFlightData{snapshot: statusSnapshot(entity.StatusOut)}
	led := &fakeLedger{
		existsResult:  true,
		updateReceipt: &entity.LedgerReceipt{TxRef: "0xdef", BlockNumber: 2},
	}
	s := newTestSyncer(repo, data, led, testMetrics())

	require.NoError(t, s.ProcessFlight(context.Background(), trackedRecord()))

	assert.Equal(t, 1, led.existsCalls)
	assert.Equal(t, 0, led.submitCalls)
	assert.Equal(t, 1, led.updateCalls)
}

func TestProcessFlightExistenceCheckErrorStillInserts(t *testing.T) {
	repo := newFakeFlightRepo()
	data := &fakeFlightData{snapshot: statusSnapshot(entity.StatusOut)}
	led := &fakeLedger{
		existsErr:     errors.New("gateway unreachable"),
		submitReceipt: &entity.LedgerReceipt{TxRef: "0xabc", BlockNumber: 3},
	}
	s := newTestSyncer(repo, data, led, testMetrics())

	require.NoError(t, s.ProcessFlight(context.Background(), trackedRecord()))

	assert.Equal(t, 1, led.existsCalls)
	assert.Equal(t, 1, led.submitCalls)
}

func TestProcessFlightTerminalStatusDeactivates(t *testing.T) {
	repo := newFakeFlightRepo()
	data := &fakeFlightData{snapshot: statusSnapshot(entity.StatusIn)}
	led := &fakeLedger{updateReceipt: &entity.LedgerReceipt{TxRef: "0xfin", BlockNumber: 9}}
	s := newTestSyncer(repo, data, led, testMetrics())

	rec := trackedRecord()
	rec.Status = entity.StatusOn
	rec.Anchored = true

	require.NoError(t, s.ProcessFlight(context.Background(), rec))

	require.Len(t, repo.upserts, 1)
	assert.False(t, repo.upserts[0].Active)
}

func TestProcessFlightMirrorUpdateFailure(t *testing.T) {
	repo := newFakeFlightRepo()
	repo.upsertErr = errors.New("mongo unavailable")
	data := &fakeFlightData{snapshot: statusSnapshot(entity.StatusOut)}
	led := &fakeLedger{submitReceipt: &entity.LedgerReceipt{TxRef: "0xabc", BlockNumber: 1}}
	s := newTestSyncer(repo, data, led, testMetrics())

	err := s.ProcessFlight(context.Background(), trackedRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mirror update failed")
}

func TestRunCycleIsIdempotentAcrossTicks(t *testing.T) {
	repo := newFakeFlightRepo()
	data := &fakeFlightData{snapshot: statusSnapshot(entity.StatusOut)}
	led := &fakeLedger{submitReceipt: &entity.LedgerReceipt{TxRef: "0xabc", BlockNumber: 1}}
	s := newTestSyncer(repo, data, led, testMetrics())

	rec := trackedRecord()
	repo.active = []*entity.FlightRecord{rec}

	require.NoError(t, s.RunCycle(context.Background()))
	assert.Equal(t, 1, led.submitCalls)

	// The provider reports the same status on the next tick; the validator
	// denies the no-change transition so nothing is written twice.
	require.NoError(t, s.RunCycle(context.Background()))
	assert.Equal(t, 1, led.submitCalls)
	assert.Equal(t, 0, led.updateCalls)
	assert.Len(t, repo.upserts, 1)
}

func TestRunCycleIsolatesPerFlightFailures(t *testing.T) {
	repo := newFakeFlightRepo()
	data := &fakeFlightData{snapshot: statusSnapshot(entity.StatusOut)}
	led := &fakeLedger{submitErr: repository.ErrInsufficientFunds}
	s := newTestSyncer(repo, data, led, testMetrics())

	repo.active = []*entity.FlightRecord{trackedRecord(), func() *entity.FlightRecord {
		r := trackedRecord()
		r.TrackingKey = "AA5678:2026-08-28:DFW:ORD"
		r.FlightNumber = "5678"
		return r
	}()}

	// Both flights fail to commit; the cycle itself still completes.
	require.NoError(t, s.RunCycle(context.Background()))
	assert.Equal(t, 2, led.submitCalls)
	assert.Len(t, repo.upserts, 2)
}

func TestSubscribeCreatesRecord(t *testing.T) {
	repo := newFakeFlightRepo()
	led := &fakeLedger{}
	s := newTestSyncer(repo, &fakeFlightData{}, led, testMetrics())

	rec, err := s.Subscribe(context.Background(), "AA", "1234", "2026-08-28", "DFW", "ORD")
	require.NoError(t, err)

	assert.Equal(t, "AA1234:2026-08-28:DFW:ORD", rec.TrackingKey)
	assert.True(t, rec.Active)
	assert.Equal(t, entity.CommitPending, rec.CommitState)
	assert.Equal(t, []string{"AA1234:2026-08-28:DFW:ORD"}, led.subscribed)
	assert.Len(t, repo.upserts, 1)
}

func TestSubscribeIsIdempotent(t *testing.T) {
	repo := newFakeFlightRepo()
	led := &fakeLedger{}
	s := newTestSyncer(repo, &fakeFlightData{}, led, testMetrics())

	first, err := s.Subscribe(context.Background(), "AA", "1234", "2026-08-28", "DFW", "ORD")
	require.NoError(t, err)
	second, err := s.Subscribe(context.Background(), "AA", "1234", "2026-08-28", "DFW", "ORD")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Len(t, led.subscribed, 1)
	assert.Len(t, repo.upserts, 1)
}

func TestSubscribeToleratesLedgerFailure(t *testing.T) {
	repo := newFakeFlightRepo()
	led := &fakeLedger{subscribeErr: errors.New("gateway unreachable")}
	s := newTestSyncer(repo, &fakeFlightData{}, led, testMetrics())

	rec, err := s.Subscribe(context.Background(), "AA", "1234", "2026-08-28", "DFW", "ORD")
	require.NoError(t, err)

	// Tracking starts regardless; the first commit anchors the flight.
	assert.True(t, rec.Active)
	assert.Len(t, repo.upserts, 1)
}

func TestUnsubscribeRemovesRecords(t *testing.T) {
	repo := newFakeFlightRepo()
	led := &fakeLedger{}
	s := newTestSyncer(repo, &fakeFlightData{}, led, testMetrics())

	_, err := s.Subscribe(context.Background(), "AA", "1234", "2026-08-28", "DFW", "ORD")
	require.NoError(t, err)

	keys := []string{"AA1234:2026-08-28:DFW:ORD"}
	require.NoError(t, s.Unsubscribe(context.Background(), keys))

	assert.Equal(t, [][]string{keys}, led.removed)
	assert.Equal(t, keys, repo.deleted)

	// Empty batch is a no-op
	require.NoError(t, s.Unsubscribe(context.Background(), nil))
	assert.Len(t, led.removed, 1)
}
