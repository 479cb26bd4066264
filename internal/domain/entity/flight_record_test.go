package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildTrackingKey(t *testing.T) {
	key := BuildTrackingKey("aa", "1234", "2026-08-28", "dfw", "ord")
	assert.Equal(t, "AA1234:2026-08-28:DFW:ORD", key)

	// Whitespace in any component is trimmed
	key = BuildTrackingKey(" AA ", " 1234 ", " 2026-08-28 ", " DFW ", " ORD ")
	assert.Equal(t, "AA1234:2026-08-28:DFW:ORD", key)
}

func TestRecordKeyDerivesWhenEmpty(t *testing.T) {
	rec := &FlightRecord{
		CarrierCode:      "AA",
		FlightNumber:     "1234",
		DepartureDate:    "2026-08-28",
		DepartureAirport: "DFW",
		ArrivalAirport:   "ORD",
	}
	assert.Equal(t, "AA1234:2026-08-28:DFW:ORD", rec.Key())

	rec.TrackingKey = "stored-key"
	assert.Equal(t, "stored-key", rec.Key())
}

func TestTerminal(t *testing.T) {
	assert.True(t, (&FlightRecord{Status: StatusIn}).Terminal())
	assert.True(t, (&FlightRecord{Status: StatusCancelled}).Terminal())

	for _, status := range []string{StatusNotDeparted, StatusOut, StatusOff, StatusOn, StatusReturnGate, StatusReturnField, StatusDiverted} {
		assert.False(t, (&FlightRecord{Status: status}).Terminal(), "status %s is not terminal", status)
	}
}
