package ledger

import (
	"fmt"

	"flightledger-service/internal/domain/repository"
)

// Gateway JSON-RPC error codes.
const (
	codeInsufficientFunds = -32001
	codeNonceOutOfOrder   = -32002
	codeUnderpriced       = -32003
	codeReverted          = -32004
)

// NetworkError wraps transport-level failures and timeouts; they are
// retryable.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("ledger: network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// classifyRPCError maps a gateway error code to the failure taxonomy.
func classifyRPCError(code int, message string) error {
	switch code {
	case codeInsufficientFunds:
		return fmt.Errorf("ledger: %w: %s", repository.ErrInsufficientFunds, message)
	case codeNonceOutOfOrder:
		return fmt.Errorf("ledger: %w: %s", repository.ErrNoncesOutOfOrder, message)
	case codeUnderpriced:
		return fmt.Errorf("ledger: %w: %s", repository.ErrUnderpriced, message)
	case codeReverted:
		return fmt.Errorf("ledger: %w: %s", repository.ErrReverted, message)
	default:
		return fmt.Errorf("ledger: gateway error %d: %s", code, message)
	}
}
