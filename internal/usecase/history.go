package usecase

import (
	"context"
	"encoding/json"
	"time"

	"flightledger-service/internal/domain/entity"
	"flightledger-service/internal/domain/repository"
	"flightledger-service/pkg/logger"
	"flightledger-service/pkg/secure"
)

// FieldDecrypter restores encrypted ledger field values to cleartext.
type FieldDecrypter interface {
	DecryptFields(values []string) ([]string, error)
}

// HistoryService answers read queries against the ledger: the decrypted
// current status of a flight and its full anchored history.
type HistoryService struct {
	ledger      repository.LedgerRepository
	transformer FieldDecrypter
	logger      logger.Logger
}

// NewHistoryService creates a history query service.
func NewHistoryService(ledgerRepo repository.LedgerRepository, transformer FieldDecrypter, log logger.Logger) *HistoryService {
	return &HistoryService{
		ledger:      ledgerRepo,
		transformer: transformer,
		logger:      log,
	}
}

// FlightHistory returns the snapshots anchored for the key in the date
// range. A corrupt blob is logged and skipped, never fatal for the rest of
// the result.
func (h *HistoryService) FlightHistory(ctx context.Context, key string, from, to time.Time) ([]*entity.FlightSnapshot, error) {
	blobs, err := h.ledger.History(ctx, key, from, to)
	if err != nil {
		return nil, err
	}

	snapshots := make([]*entity.FlightSnapshot, 0, len(blobs))
	for i, blob := range blobs {
		raw, err := secure.DecompressSnapshot(blob)
		if err != nil {
			h.logger.Warn("Skipping unreadable history blob", "key", key, "index", i, "error", err)
			continue
		}
		var snap entity.FlightSnapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			h.logger.Warn("Skipping malformed history snapshot", "key", key, "index", i, "error", err)
			continue
		}
		snapshots = append(snapshots, &snap)
	}
	return snapshots, nil
}

// CurrentStatus returns the flight's anchored status fields in cleartext.
func (h *HistoryService) CurrentStatus(ctx context.Context, key string) ([]string, error) {
	fields, err := h.ledger.CurrentStatus(ctx, key)
	if err != nil {
		return nil, err
	}
	return h.transformer.DecryptFields(fields)
}
