package repository

import (
	"context"
	"errors"
	"time"

	"flightledger-service/internal/domain/entity"
)

// Ledger failure taxonomy. Callers classify with errors.Is; every failure is
// per-flight and none terminates the process.
var (
	// ErrInsufficientFunds means the signing account cannot cover the
	// estimated transaction cost.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrNoncesOutOfOrder means a transaction was submitted with a stale
	// or skipped nonce.
	ErrNoncesOutOfOrder = errors.New("nonces out of order")
	// ErrUnderpriced means the offered cost was below what the ledger
	// currently accepts.
	ErrUnderpriced = errors.New("transaction underpriced")
	// ErrEstimationFailed means pre-flight cost estimation failed; the
	// transaction is never submitted.
	ErrEstimationFailed = errors.New("cost estimation failed")
	// ErrReverted means the ledger rejected the payload (duplicate,
	// malformed array length, unauthorized signer).
	ErrReverted = errors.New("transaction reverted")
)

// LedgerRepository defines the operations the service performs against the
// external append-only flight ledger. Writes are not idempotent at the
// ledger layer; Exists is a best-effort duplicate guard only.
type LedgerRepository interface {
	Exists(ctx context.Context, key string) (bool, error)
	SubmitRecord(ctx context.Context, payload *entity.LedgerPayload) (*entity.LedgerReceipt, error)
	UpdateStatus(ctx context.Context, key string, statusFields []string) (*entity.LedgerReceipt, error)
	AddSubscription(ctx context.Context, key string) error
	RemoveSubscriptions(ctx context.Context, keys []string) error
	CurrentStatus(ctx context.Context, key string) ([]string, error)
	// History returns compressed snapshot blobs for the key in the date
	// range, newest last. Decompression is the caller's concern.
	History(ctx context.Context, key string, from, to time.Time) ([]string, error)
}
