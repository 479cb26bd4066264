package utils

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"flightledger-service/internal/domain/entity"
	"flightledger-service/pkg/secure"
)

// Identity array element positions.
const (
	IdentityFlightNumber = iota
	IdentityDepartureDate
	IdentityCarrierCode
	IdentityArrivalCity
	IdentityDepartureCity
	IdentityArrivalAirport
	IdentityDepartureAirport
	IdentityOperatingAirline
	IdentityArrivalGate
	IdentityDepartureGate
	IdentityStatusCode
	IdentityEquipmentModel
)

// UTC-times array element positions.
const (
	TimeActualArrival = iota
	TimeActualDeparture
	TimeEstimatedArrival
	TimeEstimatedDeparture
	TimeScheduledArrival
	TimeScheduledDeparture
	TimeArrivalDelay
	TimeDepartureDelay
	TimeBaggageClaim
)

// Status array element positions.
const (
	StatusFieldCode = iota
	StatusFieldDescription
	StatusFieldArrivalState
	StatusFieldDepartureState
	StatusFieldOutUTC
	StatusFieldOffUTC
	StatusFieldOnUTC
	StatusFieldInUTC
)

// cleartextIdentity lists the identity array positions that stay unencrypted
// so the ledger can index and look up records by them.
var cleartextIdentity = map[int]bool{
	IdentityFlightNumber:     true,
	IdentityDepartureDate:    true,
	IdentityCarrierCode:      true,
	IdentityDepartureAirport: true,
}

// LedgerTransformer converts a normalized snapshot into the fixed-shape,
// selectively-encrypted arrays the ledger expects.
type LedgerTransformer struct {
	key []byte
}

// NewLedgerTransformer creates a transformer with the given 32-byte
// encryption key.
func NewLedgerTransformer(key []byte) (*LedgerTransformer, error) {
	if err := secure.ValidateKey(key); err != nil {
		return nil, err
	}
	return &LedgerTransformer{key: key}, nil
}

// Build prepares the ledger payload for a snapshot: three fixed arrays, the
// two marketing-segment arrays, and the compressed full snapshot blob. The
// key is revalidated here so a misconfigured pipeline fails before any
// ledger call.
func (t *LedgerTransformer) Build(snap *entity.FlightSnapshot) (*entity.LedgerPayload, error) {
	if err := secure.ValidateKey(t.key); err != nil {
		return nil, err
	}

	identity := []string{
		snap.FlightNumber,
		snap.DepartureDate,
		snap.CarrierCode,
		snap.ArrivalCity,
		snap.DepartureCity,
		snap.ArrivalAirport,
		snap.DepartureAirport,
		snap.OperatingAirline,
		snap.ArrivalGate,
		snap.DepartureGate,
		strings.ToUpper(snap.StatusCode),
		snap.EquipmentModel,
	}

	utcTimes := []string{
		formatUTC(snap.ActualArrival),
		formatUTC(snap.ActualDeparture),
		formatUTC(snap.EstimatedArrival),
		formatUTC(snap.EstimatedDeparture),
		formatUTC(snap.ScheduledArrival),
		formatUTC(snap.ScheduledDeparture),
		strconv.Itoa(snap.ArrivalDelayMinutes),
		strconv.Itoa(snap.DepartureDelayMinutes),
		snap.BaggageClaim,
	}

	statusFields := []string{
		snap.StatusCode,
		snap.StatusDescription,
		snap.ArrivalState,
		snap.DepartureState,
		formatUTC(snap.OutUTC),
		formatUTC(snap.OffUTC),
		formatUTC(snap.OnUTC),
		formatUTC(snap.InUTC),
	}

	for i, v := range identity {
		if cleartextIdentity[i] {
			continue
		}
		enc, err := secure.Encrypt(v, t.key)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt identity field %d: %w", i, err)
		}
		identity[i] = enc
	}
	for i, v := range utcTimes {
		enc, err := secure.Encrypt(v, t.key)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt time field %d: %w", i, err)
		}
		utcTimes[i] = enc
	}
	for i, v := range statusFields {
		enc, err := secure.Encrypt(v, t.key)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt status field %d: %w", i, err)
		}
		statusFields[i] = enc
	}

	airlines := make([]string, len(snap.MarketingSegments))
	flightNumbers := make([]string, len(snap.MarketingSegments))
	for i, seg := range snap.MarketingSegments {
		enc, err := secure.Encrypt(seg.AirlineCode, t.key)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt marketing airline %d: %w", i, err)
		}
		airlines[i] = enc
		enc, err = secure.Encrypt(seg.FlightNumber, t.key)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt marketing flight number %d: %w", i, err)
		}
		flightNumbers[i] = enc
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize snapshot: %w", err)
	}
	blob, err := secure.CompressSnapshot(raw)
	if err != nil {
		return nil, err
	}

	return &entity.LedgerPayload{
		TrackingKey:            snap.TrackingKey(),
		Identity:               identity,
		UTCTimes:               utcTimes,
		StatusFields:           statusFields,
		MarketingAirlines:      airlines,
		MarketingFlightNumbers: flightNumbers,
		SnapshotBlob:           blob,
	}, nil
}

// DecryptPayload returns a copy of the payload with every encrypted element
// restored to cleartext.
func (t *LedgerTransformer) DecryptPayload(p *entity.LedgerPayload) (*entity.LedgerPayload, error) {
	out := &entity.LedgerPayload{
		TrackingKey:  p.TrackingKey,
		SnapshotBlob: p.SnapshotBlob,
	}

	var err error
	if out.Identity, err = t.DecryptFields(p.Identity); err != nil {
		return nil, err
	}
	if out.UTCTimes, err = t.DecryptFields(p.UTCTimes); err != nil {
		return nil, err
	}
	if out.StatusFields, err = t.DecryptFields(p.StatusFields); err != nil {
		return nil, err
	}
	if out.MarketingAirlines, err = t.DecryptFields(p.MarketingAirlines); err != nil {
		return nil, err
	}
	if out.MarketingFlightNumbers, err = t.DecryptFields(p.MarketingFlightNumbers); err != nil {
		return nil, err
	}
	return out, nil
}

// DecryptFields decrypts a slice of ledger field values; already-cleartext
// elements pass through unchanged.
func (t *LedgerTransformer) DecryptFields(values []string) ([]string, error) {
	out := make([]string, len(values))
	for i, v := range values {
		plain, err := secure.Decrypt(v, t.key)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt field %d: %w", i, err)
		}
		out[i] = plain
	}
	return out, nil
}

func formatUTC(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
