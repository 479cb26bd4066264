// internal/domain/entity/ledger_record.go
package entity

// Sizes of the fixed-shape ledger arrays.
const (
	IdentityFieldCount = 12
	UTCTimeFieldCount  = 9
	StatusFieldCount   = 8
)

// LedgerPayload is a prepared, selectively-encrypted flight record ready for
// submission to the ledger. Identity whitelist fields stay cleartext so the
// ledger can index them; every other element is encrypted. SnapshotBlob is
// the compressed full snapshot used by history queries.
type LedgerPayload struct {
	TrackingKey            string   `json:"trackingKey"`
	Identity               []string `json:"identity"`      // len 12
	UTCTimes               []string `json:"utcTimes"`      // len 9
	StatusFields           []string `json:"statusFields"`  // len 8
	MarketingAirlines      []string `json:"marketingAirlines"`
	MarketingFlightNumbers []string `json:"marketingFlightNumbers"`
	SnapshotBlob           string   `json:"snapshotBlob"`
}

// LedgerReceipt identifies an accepted ledger transaction.
type LedgerReceipt struct {
	TxRef       string `json:"txRef"`
	BlockNumber int64  `json:"blockNumber"`
}
