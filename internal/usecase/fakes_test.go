package usecase

import (
	"context"
	"time"

	"flightledger-service/internal/domain/entity"
	"flightledger-service/pkg/metrics"
	"flightledger-service/pkg/utils"

	"github.com/prometheus/client_golang/prometheus"
)

var testEncryptionKey = []byte("0123456789abcdef0123456789abcdef")

func testMetrics() *metrics.Metrics {
	return metrics.NewMetrics("test", prometheus.NewRegistry())
}

func testTransformer() *utils.LedgerTransformer {
	tr, err := utils.NewLedgerTransformer(testEncryptionKey)
	if err != nil {
		panic(err)
	}
	return tr
}

// failingBuilder simulates a payload pipeline with a misconfigured key.
type failingBuilder struct {
	err error
}

func (f failingBuilder) Build(_ *entity.FlightSnapshot) (*entity.LedgerPayload, error) {
	return nil, f.err
}

type fakeFlightRepo struct {
	records     map[string]*entity.FlightRecord
	active      []*entity.FlightRecord
	uncommitted []*entity.FlightRecord

	upserts      []*entity.FlightRecord
	deleted      []string
	deadLettered []string

	commitResults  map[string]*entity.LedgerReceipt
	commitFailures map[string]failureUpdate

	upsertErr error
}

type failureUpdate struct {
	attempts    int
	nextRetryAt time.Time
}

func newFakeFlightRepo() *fakeFlightRepo {
	return &fakeFlightRepo{
		records:        make(map[string]*entity.FlightRecord),
		commitResults:  make(map[string]*entity.LedgerReceipt),
		commitFailures: make(map[string]failureUpdate),
	}
}

func (f *fakeFlightRepo) FindByKey(_ context.Context, key string) (*entity.FlightRecord, error) {
	return f.records[key], nil
}

func (f *fakeFlightRepo) FindActive(_ context.Context) ([]*entity.FlightRecord, error) {
	return f.active, nil
}

func (f *fakeFlightRepo) FindUncommitted(_ context.Context, _ time.Time, _ int) ([]*entity.FlightRecord, error) {
	return f.uncommitted, nil
}

func (f *fakeFlightRepo) Upsert(_ context.Context, record *entity.FlightRecord) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts = append(f.upserts, record)
	f.records[record.Key()] = record
	return nil
}

func (f *fakeFlightRepo) UpdateCommitResult(_ context.Context, key string, receipt *entity.LedgerReceipt) error {
	f.commitResults[key] = receipt
	return nil
}

func (f *fakeFlightRepo) UpdateCommitFailure(_ context.Context, key string, attempts int, nextRetryAt time.Time) error {
	f.commitFailures[key] = failureUpdate{attempts: attempts, nextRetryAt: nextRetryAt}
	return nil
}

func (f *fakeFlightRepo) MarkDeadLetter(_ context.Context, key string) error {
	f.deadLettered = append(f.deadLettered, key)
	return nil
}

func (f *fakeFlightRepo) Deactivate(_ context.Context, key string) error {
	if rec, ok := f.records[key]; ok {
		rec.Active = false
	}
	return nil
}

func (f *fakeFlightRepo) DeleteByKey(_ context.Context, key string) error {
	delete(f.records, key)
	f.deleted = append(f.deleted, key)
	return nil
}

type fakeFlightData struct {
	snapshot *entity.FlightSnapshot
	err      error
	calls    int
}

func (f *fakeFlightData) FetchStatus(_ context.Context, _, _, _, _ string) (*entity.FlightSnapshot, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.snapshot, nil
}

type fakeLedger struct {
	existsResult bool
	existsErr    error
	existsCalls  int

	submitReceipt *entity.LedgerReceipt
	submitErr     error
	submitCalls   int

	updateReceipt *entity.LedgerReceipt
	updateErr     error
	updateCalls   int

	subscribeErr error
	subscribed   []string
	removed      [][]string

	currentStatus []string
	historyBlobs  []string
}

func (f *fakeLedger) Exists(_ context.Context, _ string) (bool, error) {
	f.existsCalls++
	return f.existsResult, f.existsErr
}

func (f *fakeLedger) SubmitRecord(_ context.Context, _ *entity.LedgerPayload) (*entity.LedgerReceipt, error) {
	f.submitCalls++
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return f.submitReceipt, nil
}

func (f *fakeLedger) UpdateStatus(_ context.Context, _ string, _ []string) (*entity.LedgerReceipt, error) {
	f.updateCalls++
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return f.updateReceipt, nil
}

func (f *fakeLedger) AddSubscription(_ context.Context, key string) error {
	if f.subscribeErr != nil {
		return f.subscribeErr
	}
	f.subscribed = append(f.subscribed, key)
	return nil
}

func (f *fakeLedger) RemoveSubscriptions(_ context.Context, keys []string) error {
	f.removed = append(f.removed, keys)
	return nil
}

func (f *fakeLedger) CurrentStatus(_ context.Context, _ string) ([]string, error) {
	return f.currentStatus, nil
}

func (f *fakeLedger) History(_ context.Context, _ string, _, _ time.Time) ([]string, error) {
	return f.historyBlobs, nil
}
