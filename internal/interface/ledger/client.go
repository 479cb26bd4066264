// Package ledger implements the commit client for the external append-only
// flight ledger, reached through a JSON-RPC gateway.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"flightledger-service/internal/domain/entity"
	"flightledger-service/internal/domain/repository"
	"flightledger-service/pkg/logger"

	"github.com/google/uuid"
)

// feeMargin is the fixed safety margin applied on top of the estimated
// transaction cost.
const feeMargin = 1.2

// Client talks to the ledger gateway. It estimates cost before every write,
// signs with the single shared credential and blocks until the ledger
// confirms inclusion.
type Client struct {
	logger          logger.Logger
	httpClient      *http.Client
	endpoint        string
	signer          *Signer
	submitMu        sync.Mutex // one in-flight submission per signing credential
	confirmInterval time.Duration
	confirmTimeout  time.Duration
}

// NewClient creates a ledger client.
func NewClient(endpoint string, signer *Signer, callTimeout, confirmInterval, confirmTimeout time.Duration, log logger.Logger) repository.LedgerRepository {
	return &Client{
		logger:          log,
		httpClient:      &http.Client{Timeout: callTimeout},
		endpoint:        endpoint,
		signer:          signer,
		confirmInterval: confirmInterval,
		confirmTimeout:  confirmTimeout,
	}
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      string      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

// call performs one JSON-RPC round trip and decodes the result into out.
func (c *Client) call(ctx context.Context, method string, params, out interface{}) error {
	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewBuffer(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: method, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &NetworkError{Op: method, Err: fmt.Errorf("gateway returned status %d", resp.StatusCode)}
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return &NetworkError{Op: method, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if rpcResp.Error != nil {
		return classifyRPCError(rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if out != nil {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return &NetworkError{Op: method, Err: fmt.Errorf("failed to decode result: %w", err)}
		}
	}
	return nil
}

// Exists checks whether a record for the flight key is already anchored on
// the ledger. Best effort; a race between two submitters is tolerated.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := c.call(ctx, "flight_exists", map[string]string{"key": key}, &exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// SubmitRecord inserts a prepared flight record on the ledger and blocks
// until inclusion is confirmed.
func (c *Client) SubmitRecord(ctx context.Context, payload *entity.LedgerPayload) (*entity.LedgerReceipt, error) {
	return c.submitTx(ctx, "insertRecord", payload)
}

// UpdateStatus writes new status fields for an already-anchored flight.
func (c *Client) UpdateStatus(ctx context.Context, key string, statusFields []string) (*entity.LedgerReceipt, error) {
	return c.submitTx(ctx, "updateStatus", map[string]interface{}{
		"key":          key,
		"statusFields": statusFields,
	})
}

// AddSubscription registers a flight subscription on the ledger.
func (c *Client) AddSubscription(ctx context.Context, key string) error {
	_, err := c.submitTx(ctx, "addSubscription", map[string]string{"key": key})
	return err
}

// RemoveSubscriptions removes a batch of flight subscriptions.
func (c *Client) RemoveSubscriptions(ctx context.Context, keys []string) error {
	_, err := c.submitTx(ctx, "removeSubscriptions", map[string][]string{"keys": keys})
	return err
}

// CurrentStatus returns the status fields currently anchored for the key.
func (c *Client) CurrentStatus(ctx context.Context, key string) ([]string, error) {
	var fields []string
	if err := c.call(ctx, "flight_currentStatus", map[string]string{"key": key}, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// History returns the compressed snapshot blobs anchored for the key within
// the date range.
func (c *Client) History(ctx context.Context, key string, from, to time.Time) ([]string, error) {
	var blobs []string
	params := map[string]interface{}{
		"key":  key,
		"from": from.UTC().Unix(),
		"to":   to.UTC().Unix(),
	}
	if err := c.call(ctx, "flight_history", params, &blobs); err != nil {
		return nil, err
	}
	return blobs, nil
}

type txBody struct {
	Op      string      `json:"op"`
	Payload interface{} `json:"payload"`
}

type submitResult struct {
	TxRef string `json:"txRef"`
}

type receiptResult struct {
	Status      string `json:"status"` // pending | included | reverted
	BlockNumber int64  `json:"blockNumber"`
	Reason      string `json:"reason,omitempty"`
}

// submitTx runs the full write path: estimate cost, apply the safety margin,
// sign, submit, await inclusion. Estimation failure is a hard stop; the
// transaction is never submitted.
func (c *Client) submitTx(ctx context.Context, op string, payload interface{}) (*entity.LedgerReceipt, error) {
	body := txBody{Op: op, Payload: payload}

	var estimate struct {
		Units int64 `json:"units"`
	}
	if err := c.call(ctx, "flight_estimateCost", body, &estimate); err != nil {
		return nil, fmt.Errorf("ledger: %w: %v", repository.ErrEstimationFailed, err)
	}
	maxCost := int64(math.Ceil(float64(estimate.Units) * feeMargin))

	// The signing credential carries the nonce, so sign-and-submit is one
	// critical section.
	c.submitMu.Lock()
	envelope, err := c.signer.Sign(body)
	if err != nil {
		c.submitMu.Unlock()
		return nil, err
	}
	var submitted submitResult
	err = c.call(ctx, "flight_submit", map[string]interface{}{
		"envelope": envelope,
		"maxCost":  maxCost,
	}, &submitted)
	c.submitMu.Unlock()
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Transaction submitted",
		"op", op,
		"txRef", submitted.TxRef,
		"estimatedUnits", estimate.Units,
		"maxCost", maxCost)

	return c.awaitInclusion(ctx, submitted.TxRef)
}

// awaitInclusion polls the gateway for the transaction receipt until the
// ledger confirms inclusion or the confirmation window closes.
func (c *Client) awaitInclusion(ctx context.Context, txRef string) (*entity.LedgerReceipt, error) {
	deadline := time.Now().Add(c.confirmTimeout)
	ticker := time.NewTicker(c.confirmInterval)
	defer ticker.Stop()

	for {
		var receipt receiptResult
		err := c.call(ctx, "flight_receipt", map[string]string{"txRef": txRef}, &receipt)
		if err != nil {
			return nil, err
		}

		switch receipt.Status {
		case "included":
			return &entity.LedgerReceipt{TxRef: txRef, BlockNumber: receipt.BlockNumber}, nil
		case "reverted":
			return nil, fmt.Errorf("ledger: %w: %s", repository.ErrReverted, receipt.Reason)
		}

		if time.Now().After(deadline) {
			return nil, &NetworkError{Op: "flight_receipt", Err: fmt.Errorf("no inclusion confirmation for %s within %s", txRef, c.confirmTimeout)}
		}

		select {
		case <-ctx.Done():
			return nil, &NetworkError{Op: "flight_receipt", Err: ctx.Err()}
		case <-ticker.C:
		}
	}
}
