// internal/domain/entity/flight_record.go
package entity

import (
	"fmt"
	"strings"
	"time"
)

// Flight status codes as reported by the flight-data provider.
const (
	StatusNotDeparted = "NDPT"
	StatusOut         = "OUT"
	StatusOff         = "OFF"
	StatusOn          = "ON"
	StatusIn          = "IN"
	StatusCancelled   = "CNCL"
	StatusReturnGate  = "RTBL"
	StatusReturnField = "RTFL"
	StatusDiverted    = "DVRT"
)

// CommitState tracks where a record sits in the ledger-commit lifecycle.
type CommitState string

const (
	CommitPending    CommitState = "PENDING"
	CommitConfirmed  CommitState = "CONFIRMED"
	CommitDeadLetter CommitState = "DEAD_LETTER"
)

// FlightRecord is the mirror-store record for a tracked flight. The identity
// tuple (carrier, flight number, departure date, departure airport, arrival
// airport) forms the tracking key; a new departure date starts a new
// lifecycle for the same flight number.
type FlightRecord struct {
	ID               string      `bson:"_id,omitempty"`
	TrackingKey      string      `bson:"trackingKey"` // {carrier}{number}:{date}:{from}:{to} - unique index
	FlightNumber     string      `bson:"flightNumber"`
	CarrierCode      string      `bson:"carrierCode"`
	DepartureDate    string      `bson:"departureDate"` // YYYY-MM-DD
	DepartureAirport string      `bson:"departureAirport"`
	ArrivalAirport   string      `bson:"arrivalAirport"`
	Status           string      `bson:"status"`
	OutUTC           *time.Time  `bson:"outUtc,omitempty"`
	OffUTC           *time.Time  `bson:"offUtc,omitempty"`
	OnUTC            *time.Time  `bson:"onUtc,omitempty"`
	InUTC            *time.Time  `bson:"inUtc,omitempty"`
	DepartureDelay   int         `bson:"departureDelayMinutes"`
	ArrivalDelay     int         `bson:"arrivalDelayMinutes"`
	Committed        bool        `bson:"committed"`
	CommitState      CommitState `bson:"commitState"`
	CommitAttempts   int         `bson:"commitAttempts"`
	NextRetryAt      *time.Time  `bson:"nextRetryAt,omitempty"`
	Anchored         bool        `bson:"anchored"` // insert accepted by the ledger at least once
	LedgerTxRef      string      `bson:"ledgerTxRef,omitempty"`
	LedgerBlock      int64       `bson:"ledgerBlock,omitempty"`
	RawSnapshot      []byte      `bson:"rawSnapshot,omitempty"`
	Active           bool        `bson:"active"`
	CreatedAt        time.Time   `bson:"createdAt"`
	UpdatedAt        time.Time   `bson:"updatedAt"`
}

// BuildTrackingKey builds the canonical mirror-store key for a flight
// identity tuple.
func BuildTrackingKey(carrier, number, departureDate, from, to string) string {
	return fmt.Sprintf("%s%s:%s:%s:%s",
		strings.ToUpper(strings.TrimSpace(carrier)),
		strings.TrimSpace(number),
		strings.TrimSpace(departureDate),
		strings.ToUpper(strings.TrimSpace(from)),
		strings.ToUpper(strings.TrimSpace(to)))
}

// Key returns the record's tracking key, deriving it from the identity
// fields when the stored key is empty.
func (r *FlightRecord) Key() string {
	if r.TrackingKey != "" {
		return r.TrackingKey
	}
	return BuildTrackingKey(r.CarrierCode, r.FlightNumber, r.DepartureDate, r.DepartureAirport, r.ArrivalAirport)
}

// Terminal reports whether the record reached a phase after which tracking
// stops. A later departure date starts a fresh record.
func (r *FlightRecord) Terminal() bool {
	return r.Status == StatusIn || r.Status == StatusCancelled
}
