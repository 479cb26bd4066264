// Package httpapi exposes the subscription and query operations over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"flightledger-service/internal/domain/entity"
	"flightledger-service/pkg/logger"
)

// Subscriber manages flight tracking subscriptions.
type Subscriber interface {
	Subscribe(ctx context.Context, carrier, flightNumber, departureDate, from, to string) (*entity.FlightRecord, error)
	Unsubscribe(ctx context.Context, keys []string) error
}

// StatusReader answers ledger read queries.
type StatusReader interface {
	CurrentStatus(ctx context.Context, key string) ([]string, error)
	FlightHistory(ctx context.Context, key string, from, to time.Time) ([]*entity.FlightSnapshot, error)
}

// FlightHandler handles the flight subscription and query endpoints.
type FlightHandler struct {
	subscriber Subscriber
	reader     StatusReader
	logger     logger.Logger
}

// NewFlightHandler creates a new flight handler.
func NewFlightHandler(subscriber Subscriber, reader StatusReader, log logger.Logger) *FlightHandler {
	return &FlightHandler{
		subscriber: subscriber,
		reader:     reader,
		logger:     log,
	}
}

// Register mounts the handler routes on mux.
func (h *FlightHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/flights/subscriptions", h.handleSubscriptions)
	mux.HandleFunc("/flights/status", h.handleCurrentStatus)
	mux.HandleFunc("/flights/history", h.handleHistory)
}

type subscribeRequest struct {
	CarrierCode      string `json:"carrierCode"`
	FlightNumber     string `json:"flightNumber"`
	DepartureDate    string `json:"departureDate"`
	DepartureAirport string `json:"departureAirport"`
	ArrivalAirport   string `json:"arrivalAirport"`
}

type subscribeResponse struct {
	TrackingKey string `json:"trackingKey"`
	Status      string `json:"status,omitempty"`
	Active      bool   `json:"active"`
}

type unsubscribeRequest struct {
	Keys []string `json:"keys"`
}

func (h *FlightHandler) handleSubscriptions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req subscribeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.CarrierCode == "" || req.FlightNumber == "" || req.DepartureDate == "" || req.DepartureAirport == "" {
			writeError(w, http.StatusBadRequest, "carrierCode, flightNumber, departureDate and departureAirport are required")
			return
		}

		rec, err := h.subscriber.Subscribe(r.Context(), req.CarrierCode, req.FlightNumber, req.DepartureDate, req.DepartureAirport, req.ArrivalAirport)
		if err != nil {
			h.logger.Error("Subscription failed", "error", err)
			writeError(w, http.StatusInternalServerError, "subscription failed")
			return
		}
		writeJSON(w, http.StatusCreated, subscribeResponse{
			TrackingKey: rec.TrackingKey,
			Status:      rec.Status,
			Active:      rec.Active,
		})

	case http.MethodDelete:
		var req unsubscribeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := h.subscriber.Unsubscribe(r.Context(), req.Keys); err != nil {
			h.logger.Error("Unsubscription failed", "error", err)
			writeError(w, http.StatusInternalServerError, "unsubscription failed")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *FlightHandler) handleCurrentStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "key query parameter is required")
		return
	}

	fields, err := h.reader.CurrentStatus(r.Context(), key)
	if err != nil {
		h.logger.Error("Current status query failed", "key", key, "error", err)
		writeError(w, http.StatusBadGateway, "ledger query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"trackingKey":  key,
		"statusFields": fields,
	})
}

func (h *FlightHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	q := r.URL.Query()
	key := q.Get("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "key query parameter is required")
		return
	}

	from, err := parseQueryTime(q.Get("from"), time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from timestamp")
		return
	}
	to, err := parseQueryTime(q.Get("to"), time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to timestamp")
		return
	}

	snapshots, err := h.reader.FlightHistory(r.Context(), key, from, to)
	if err != nil {
		h.logger.Error("History query failed", "key", key, "error", err)
		writeError(w, http.StatusBadGateway, "ledger query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"trackingKey": key,
		"snapshots":   snapshots,
	})
}

func parseQueryTime(value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}
	return time.Parse(time.RFC3339, value)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
