// internal/domain/entity/snapshot.go
package entity

import (
	"time"
)

// MarketingSegment is one marketing (codeshare) flight sold on top of the
// operating flight.
type MarketingSegment struct {
	AirlineCode  string `json:"airlineCode"`
	FlightNumber string `json:"flightNumber"`
}

// FlightSnapshot is the normalized status snapshot returned by the external
// flight-data provider. The provider response is parsed into this struct
// exactly once at the adapter boundary; everything downstream consumes only
// this shape.
type FlightSnapshot struct {
	FlightNumber     string `json:"flightNumber"`
	CarrierCode      string `json:"carrierCode"`
	DepartureDate    string `json:"departureDate"` // YYYY-MM-DD
	DepartureAirport string `json:"departureAirport"`
	ArrivalAirport   string `json:"arrivalAirport"`
	DepartureCity    string `json:"departureCity"`
	ArrivalCity      string `json:"arrivalCity"`
	DepartureGate    string `json:"departureGate"`
	ArrivalGate      string `json:"arrivalGate"`
	DepartureState   string `json:"departureState"`
	ArrivalState     string `json:"arrivalState"`
	OperatingAirline string `json:"operatingAirline"`
	EquipmentModel   string `json:"equipmentModel"`
	BaggageClaim     string `json:"baggageClaim"`

	StatusCode        string `json:"statusCode"`
	StatusDescription string `json:"statusDescription"`

	OutUTC *time.Time `json:"outUtc,omitempty"`
	OffUTC *time.Time `json:"offUtc,omitempty"`
	OnUTC  *time.Time `json:"onUtc,omitempty"`
	InUTC  *time.Time `json:"inUtc,omitempty"`

	ScheduledDeparture *time.Time `json:"scheduledDeparture,omitempty"`
	ScheduledArrival   *time.Time `json:"scheduledArrival,omitempty"`
	EstimatedDeparture *time.Time `json:"estimatedDeparture,omitempty"`
	EstimatedArrival   *time.Time `json:"estimatedArrival,omitempty"`
	ActualDeparture    *time.Time `json:"actualDeparture,omitempty"`
	ActualArrival      *time.Time `json:"actualArrival,omitempty"`

	DepartureDelayMinutes int `json:"departureDelayMinutes"`
	ArrivalDelayMinutes   int `json:"arrivalDelayMinutes"`

	MarketingSegments []MarketingSegment `json:"marketingSegments,omitempty"`
}

// Validate checks the fields every downstream component depends on. A
// snapshot failing validation is rejected before any mutation or ledger call.
func (s *FlightSnapshot) Validate() error {
	switch {
	case s.FlightNumber == "":
		return &ValidationError{Field: "flightNumber"}
	case s.CarrierCode == "":
		return &ValidationError{Field: "carrierCode"}
	case s.DepartureDate == "":
		return &ValidationError{Field: "departureDate"}
	case s.DepartureAirport == "":
		return &ValidationError{Field: "departureAirport"}
	case s.StatusCode == "":
		return &ValidationError{Field: "statusCode"}
	}
	return nil
}

// TrackingKey returns the mirror-store key for the snapshot's identity tuple.
func (s *FlightSnapshot) TrackingKey() string {
	return BuildTrackingKey(s.CarrierCode, s.FlightNumber, s.DepartureDate, s.DepartureAirport, s.ArrivalAirport)
}
