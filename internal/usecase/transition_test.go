package usecase

import (
	"testing"

	"flightledger-service/internal/domain/entity"

	"github.com/stretchr/testify/assert"
)

var allStatuses = []string{
	entity.StatusNotDeparted,
	entity.StatusOut,
	entity.StatusOff,
	entity.StatusOn,
	entity.StatusIn,
	entity.StatusCancelled,
	entity.StatusReturnGate,
	entity.StatusReturnField,
	entity.StatusDiverted,
}

func TestValidateAllowsEveryTableEdge(t *testing.T) {
	v := NewTransitionValidator()

	for from, tos := range transitionGraph {
		for _, to := range tos {
			allowed, reason := v.Validate(from, to)
			assert.True(t, allowed, "expected %s -> %s to be allowed (%s)", from, to, reason)
		}
	}
}

func TestValidateDeniesEveryPairOutsideTable(t *testing.T) {
	v := NewTransitionValidator()

	inTable := func(from, to string) bool {
		for _, allowed := range transitionGraph[from] {
			if allowed == to {
				return true
			}
		}
		return false
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			if from == to || inTable(from, to) {
				continue
			}
			allowed, _ := v.Validate(from, to)
			assert.False(t, allowed, "expected %s -> %s to be denied", from, to)
		}
	}
}

func TestValidateSeedTransition(t *testing.T) {
	v := NewTransitionValidator()

	allowed, reason := v.Validate("", entity.StatusOut)
	assert.True(t, allowed)
	assert.Equal(t, "seed transition", reason)

	// Whitespace-only previous is still a first sighting
	allowed, _ = v.Validate("   ", entity.StatusIn)
	assert.True(t, allowed)
}

func TestValidateNoChange(t *testing.T) {
	v := NewTransitionValidator()

	allowed, reason := v.Validate(entity.StatusIn, entity.StatusIn)
	assert.False(t, allowed)
	assert.Equal(t, "no change", reason)

	// Trimming applies before comparison
	allowed, reason = v.Validate(" IN ", "IN")
	assert.False(t, allowed)
	assert.Equal(t, "no change", reason)
}

func TestValidateUnknownStatus(t *testing.T) {
	v := NewTransitionValidator()

	allowed, _ := v.Validate("BOGUS", entity.StatusOut)
	assert.False(t, allowed)

	allowed, _ = v.Validate(entity.StatusOut, "BOGUS")
	assert.False(t, allowed)
}
