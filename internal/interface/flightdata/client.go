// Package flightdata implements the client for the external flight-status
// provider. The provider response is parsed into the typed snapshot here and
// nowhere else.
package flightdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"flightledger-service/internal/domain/entity"
	"flightledger-service/internal/domain/repository"
	"flightledger-service/pkg/logger"

	"golang.org/x/oauth2/clientcredentials"
)

// AdapterError reports an unreachable or failing provider. The record is
// left untouched and the flight retried on the next poll tick.
type AdapterError struct {
	StatusCode int
	Message    string
}

func (e *AdapterError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("flightdata: provider returned status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("flightdata: %s", e.Message)
}

// Client fetches flight status snapshots over HTTP with OAuth2
// client-credentials auth.
type Client struct {
	logger      logger.Logger
	httpClient  *http.Client
	baseURL     string
	airportRepo repository.AirportRepository
	airlineRepo repository.AirlineRepository
}

// Config carries the provider endpoint and credentials.
type Config struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	CallTimeout  time.Duration
}

// NewClient creates a flight-data client. airportRepo and airlineRepo enrich
// snapshots with city and airline names the provider omits; either may be
// nil.
func NewClient(cfg Config, airportRepo repository.AirportRepository, airlineRepo repository.AirlineRepository, log logger.Logger) repository.FlightDataRepository {
	cc := clientcredentials.Config{
		TokenURL:     cfg.TokenURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
	}
	httpClient := cc.Client(context.Background())
	httpClient.Timeout = cfg.CallTimeout

	return &Client{
		logger:      log,
		httpClient:  httpClient,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		airportRepo: airportRepo,
		airlineRepo: airlineRepo,
	}
}

// NewClientWithHTTP creates a client over a prebuilt http.Client. Used by
// tests and deployments without an OAuth2 token endpoint.
func NewClientWithHTTP(baseURL string, httpClient *http.Client, airportRepo repository.AirportRepository, airlineRepo repository.AirlineRepository, log logger.Logger) repository.FlightDataRepository {
	return &Client{
		logger:      log,
		httpClient:  httpClient,
		baseURL:     strings.TrimRight(baseURL, "/"),
		airportRepo: airportRepo,
		airlineRepo: airlineRepo,
	}
}

type apiTime struct {
	DateUTC string `json:"dateUtc"`
}

type operationalSegment struct {
	CarrierCode        string `json:"carrierCode"`
	FlightNumber       string `json:"flightNumber"`
	DepartureAirport   string `json:"departureAirport"`
	ArrivalAirport     string `json:"arrivalAirport"`
	OperatingCarrier   string `json:"operatingCarrier"`
	Status             string `json:"status"`
	StatusDescription  string `json:"statusDescription"`
	DepartureStateCode string `json:"departureState"`
	ArrivalStateCode   string `json:"arrivalState"`

	OperationalTimes struct {
		GateDeparture      *apiTime `json:"actualGateDeparture"`
		Takeoff            *apiTime `json:"actualTakeoff"`
		Touchdown          *apiTime `json:"actualTouchdown"`
		GateArrival        *apiTime `json:"actualGateArrival"`
		ScheduledDeparture *apiTime `json:"scheduledGateDeparture"`
		EstimatedDeparture *apiTime `json:"estimatedGateDeparture"`
		ScheduledArrival   *apiTime `json:"scheduledGateArrival"`
		EstimatedArrival   *apiTime `json:"estimatedGateArrival"`
	} `json:"operationalTimes"`

	Delays struct {
		DepartureGateDelayMinutes int `json:"departureGateDelayMinutes"`
		ArrivalGateDelayMinutes   int `json:"arrivalGateDelayMinutes"`
	} `json:"delays"`

	AirportResources struct {
		DepartureGate string `json:"departureGate"`
		ArrivalGate   string `json:"arrivalGate"`
		Baggage       string `json:"baggage"`
	} `json:"airportResources"`

	FlightEquipment struct {
		ScheduledEquipment string `json:"scheduledEquipment"`
	} `json:"flightEquipment"`

	Codeshares []struct {
		CarrierCode  string `json:"carrierCode"`
		FlightNumber string `json:"flightNumber"`
	} `json:"codeshares"`
}

type statusResponse struct {
	OperationalSegments []operationalSegment `json:"operationalSegments"`
}

// FetchStatus requests the flight's current status snapshot for the given
// departure date.
func (c *Client) FetchStatus(ctx context.Context, carrier, flightNumber, departureDate, departureAirport string) (*entity.FlightSnapshot, error) {
	url := fmt.Sprintf("%s/v2/flight/status/%s/%s/dep/%s?airport=%s",
		c.baseURL, carrier, flightNumber, departureDate, departureAirport)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, &AdapterError{Message: fmt.Sprintf("failed to create request: %v", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &AdapterError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errorBody map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errorBody)
		return nil, &AdapterError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("%v", errorBody)}
	}

	var response statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, &AdapterError{Message: fmt.Sprintf("failed to decode response: %v", err)}
	}

	// No operational segment is a defined outcome, not a crash.
	if len(response.OperationalSegments) == 0 {
		return nil, repository.ErrFlightNotFound
	}

	snap := c.toSnapshot(ctx, &response.OperationalSegments[0], departureDate)
	c.logger.Debug("Fetched flight status",
		"key", snap.TrackingKey(),
		"status", snap.StatusCode)
	return snap, nil
}

// toSnapshot converts the provider segment into the typed snapshot and
// enriches it from the reference repositories.
func (c *Client) toSnapshot(ctx context.Context, seg *operationalSegment, departureDate string) *entity.FlightSnapshot {
	snap := &entity.FlightSnapshot{
		FlightNumber:          seg.FlightNumber,
		CarrierCode:           seg.CarrierCode,
		DepartureDate:         departureDate,
		DepartureAirport:      seg.DepartureAirport,
		ArrivalAirport:        seg.ArrivalAirport,
		DepartureGate:         seg.AirportResources.DepartureGate,
		ArrivalGate:           seg.AirportResources.ArrivalGate,
		DepartureState:        seg.DepartureStateCode,
		ArrivalState:          seg.ArrivalStateCode,
		OperatingAirline:      seg.OperatingCarrier,
		EquipmentModel:        seg.FlightEquipment.ScheduledEquipment,
		BaggageClaim:          seg.AirportResources.Baggage,
		StatusCode:            strings.ToUpper(strings.TrimSpace(seg.Status)),
		StatusDescription:     seg.StatusDescription,
		OutUTC:                parseUTC(seg.OperationalTimes.GateDeparture),
		OffUTC:                parseUTC(seg.OperationalTimes.Takeoff),
		OnUTC:                 parseUTC(seg.OperationalTimes.Touchdown),
		InUTC:                 parseUTC(seg.OperationalTimes.GateArrival),
		ScheduledDeparture:    parseUTC(seg.OperationalTimes.ScheduledDeparture),
		ScheduledArrival:      parseUTC(seg.OperationalTimes.ScheduledArrival),
		EstimatedDeparture:    parseUTC(seg.OperationalTimes.EstimatedDeparture),
		EstimatedArrival:      parseUTC(seg.OperationalTimes.EstimatedArrival),
		ActualDeparture:       parseUTC(seg.OperationalTimes.GateDeparture),
		ActualArrival:         parseUTC(seg.OperationalTimes.GateArrival),
		DepartureDelayMinutes: seg.Delays.DepartureGateDelayMinutes,
		ArrivalDelayMinutes:   seg.Delays.ArrivalGateDelayMinutes,
	}

	for _, cs := range seg.Codeshares {
		snap.MarketingSegments = append(snap.MarketingSegments, entity.MarketingSegment{
			AirlineCode:  cs.CarrierCode,
			FlightNumber: cs.FlightNumber,
		})
	}

	if c.airportRepo != nil {
		if dep, err := c.airportRepo.GetByCode(ctx, seg.DepartureAirport); err == nil {
			snap.DepartureCity = dep.CityName
			if snap.DepartureState == "" {
				snap.DepartureState = dep.State
			}
		}
		if arr, err := c.airportRepo.GetByCode(ctx, seg.ArrivalAirport); err == nil {
			snap.ArrivalCity = arr.CityName
			if snap.ArrivalState == "" {
				snap.ArrivalState = arr.State
			}
		}
	}
	if c.airlineRepo != nil && snap.OperatingAirline != "" {
		if airline, err := c.airlineRepo.GetByCode(ctx, snap.OperatingAirline); err == nil {
			snap.OperatingAirline = airline.Name
		}
	}

	return snap
}

func parseUTC(t *apiTime) *time.Time {
	if t == nil || t.DateUTC == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, t.DateUTC)
	if err != nil {
		return nil
	}
	utc := parsed.UTC()
	return &utc
}
