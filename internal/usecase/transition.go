package usecase

import (
	"fmt"
	"strings"

	"flightledger-service/internal/domain/entity"
)

// transitionGraph is the static table of permitted status-code changes.
// Loaded once, read-only at runtime.
var transitionGraph = map[string][]string{
	entity.StatusNotDeparted: {entity.StatusOut, entity.StatusOff, entity.StatusOn, entity.StatusIn, entity.StatusCancelled},
	entity.StatusOut:         {entity.StatusOff, entity.StatusOn, entity.StatusIn, entity.StatusReturnGate},
	entity.StatusOff:         {entity.StatusOn, entity.StatusIn, entity.StatusDiverted},
	entity.StatusOn:          {entity.StatusIn, entity.StatusReturnField},
	entity.StatusIn:          {entity.StatusOn, entity.StatusNotDeparted},
	entity.StatusCancelled:   {entity.StatusOut, entity.StatusOff, entity.StatusOn, entity.StatusIn},
	entity.StatusReturnGate:  {entity.StatusOut, entity.StatusCancelled},
	entity.StatusReturnField: {entity.StatusOut},
	entity.StatusDiverted:    {entity.StatusOn},
}

// TransitionValidator decides whether a status change is authoritative.
// Pure and deterministic; no side effects.
type TransitionValidator struct{}

// NewTransitionValidator creates a new transition validator.
func NewTransitionValidator() *TransitionValidator {
	return &TransitionValidator{}
}

// Validate reports whether moving from previous to next is permitted.
// An empty previous status is the first sighting and is always allowed.
func (v *TransitionValidator) Validate(previous, next string) (bool, string) {
	prev := strings.TrimSpace(previous)
	curr := strings.TrimSpace(next)

	if prev == "" {
		return true, "seed transition"
	}
	if prev == curr {
		return false, "no change"
	}

	for _, allowed := range transitionGraph[prev] {
		if allowed == curr {
			return true, fmt.Sprintf("%s -> %s permitted", prev, curr)
		}
	}
	return false, fmt.Sprintf("%s -> %s not in transition table", prev, curr)
}
