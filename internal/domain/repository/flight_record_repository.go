package repository

import (
	"context"
	"time"

	"flightledger-service/internal/domain/entity"
)

// FlightRecordRepository defines the mirror-store operations for tracked
// flight records.
type FlightRecordRepository interface {
	FindByKey(ctx context.Context, key string) (*entity.FlightRecord, error)
	FindActive(ctx context.Context) ([]*entity.FlightRecord, error)
	// FindUncommitted returns records whose last commit attempt did not
	// reach the ledger and that are due for another try.
	FindUncommitted(ctx context.Context, now time.Time, limit int) ([]*entity.FlightRecord, error)
	Upsert(ctx context.Context, record *entity.FlightRecord) error
	UpdateCommitResult(ctx context.Context, key string, receipt *entity.LedgerReceipt) error
	UpdateCommitFailure(ctx context.Context, key string, attempts int, nextRetryAt time.Time) error
	MarkDeadLetter(ctx context.Context, key string) error
	Deactivate(ctx context.Context, key string) error
	DeleteByKey(ctx context.Context, key string) error
}
