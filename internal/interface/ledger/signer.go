package ledger

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
)

// Signer holds the single signing credential used for ledger transactions.
// The credential is a shared mutable resource (it carries the transaction
// nonce), so signing is serialized.
type Signer struct {
	mu     sync.Mutex
	sender string
	secret []byte
	nonce  uint64
}

// SignedEnvelope is a signed ledger transaction ready for submission.
type SignedEnvelope struct {
	Sender    string          `json:"sender"`
	Nonce     uint64          `json:"nonce"`
	Body      json.RawMessage `json:"body"`
	Signature string          `json:"signature"`
}

// NewSigner creates a signer for the given sender id and secret.
func NewSigner(sender string, secret []byte) *Signer {
	return &Signer{sender: sender, secret: secret}
}

// Sign serializes body, assigns the next nonce and signs the canonical
// bytes with HMAC-SHA256.
func (s *Signer) Sign(body interface{}) (*SignedEnvelope, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize transaction body: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nonce++
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s|%d|", s.sender, s.nonce)
	mac.Write(raw)

	return &SignedEnvelope{
		Sender:    s.sender,
		Nonce:     s.nonce,
		Body:      raw,
		Signature: hex.EncodeToString(mac.Sum(nil)),
	}, nil
}

// ResetNonce aligns the local nonce with the ledger's view, used after a
// nonce-out-of-order failure.
func (s *Signer) ResetNonce(nonce uint64) {
	s.mu.Lock()
	s.nonce = nonce
	s.mu.Unlock()
}
