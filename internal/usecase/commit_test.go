package usecase

import (
	"errors"
	"fmt"
	"testing"

	"flightledger-service/internal/domain/repository"

	"github.com/stretchr/testify/assert"
)

func TestCommitFailureReason(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{repository.ErrEstimationFailed, "estimation_failed"},
		{repository.ErrInsufficientFunds, "insufficient_funds"},
		{repository.ErrNoncesOutOfOrder, "nonce_out_of_order"},
		{repository.ErrUnderpriced, "underpriced"},
		{repository.ErrReverted, "reverted"},
		{errors.New("connection refused"), "network"},
		// Wrapped sentinels classify the same way
		{fmt.Errorf("ledger: %w: account empty", repository.ErrInsufficientFunds), "insufficient_funds"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, commitFailureReason(tc.err))
	}
}
