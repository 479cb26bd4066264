package usecase

import (
	"context"
	"errors"

	"flightledger-service/internal/domain/entity"
	"flightledger-service/internal/domain/repository"
	"flightledger-service/pkg/logger"
)

// commitPayload runs one ledger write for a record: a best-effort existence
// check guards against duplicate inserts, then the record is inserted or its
// status fields updated. Callers must hold the record's key mutex.
func commitPayload(ctx context.Context, log logger.Logger, ledgerRepo repository.LedgerRepository, rec *entity.FlightRecord, payload *entity.LedgerPayload) (*entity.LedgerReceipt, error) {
	if !rec.Anchored {
		exists, err := ledgerRepo.Exists(ctx, rec.Key())
		if err != nil {
			// Best effort only; a duplicate insert surfaces as Reverted
			// and is tolerated.
			log.Warn("Ledger existence check failed, proceeding with insert",
				"key", rec.Key(), "error", err)
		} else if exists {
			rec.Anchored = true
		}
	}

	if rec.Anchored {
		return ledgerRepo.UpdateStatus(ctx, rec.Key(), payload.StatusFields)
	}

	receipt, err := ledgerRepo.SubmitRecord(ctx, payload)
	if err != nil {
		return nil, err
	}
	rec.Anchored = true
	return receipt, nil
}

// commitFailureReason maps a ledger error to a metrics label.
func commitFailureReason(err error) string {
	switch {
	case errors.Is(err, repository.ErrEstimationFailed):
		return "estimation_failed"
	case errors.Is(err, repository.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, repository.ErrNoncesOutOfOrder):
		return "nonce_out_of_order"
	case errors.Is(err, repository.ErrUnderpriced):
		return "underpriced"
	case errors.Is(err, repository.ErrReverted):
		return "reverted"
	default:
		return "network"
	}
}
