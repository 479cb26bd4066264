package repository

import (
	"context"
	"errors"

	"flightledger-service/internal/domain/entity"
)

// ErrFlightNotFound is the defined outcome when the provider response has no
// operational segment for the requested flight.
var ErrFlightNotFound = errors.New("flight not found")

// FlightDataRepository defines the interface for the external flight-data
// provider. FetchStatus returns a normalized snapshot for the flight on the
// given departure date.
type FlightDataRepository interface {
	FetchStatus(ctx context.Context, carrier, flightNumber, departureDate, departureAirport string) (*entity.FlightSnapshot, error)
}
