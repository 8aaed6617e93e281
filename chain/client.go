package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/blockberries/relay"
	"github.com/blockberries/relay/types"
)

// maxResponseSize bounds node API response reads.
const maxResponseSize int64 = 1 << 20

// Client talks to a node's HTTP API.
//
// The client has no retry policy of its own. Its timeout is the
// HTTPClient's; a request hangs for at most that long.
type Client struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewClient creates a node client with the given per-request timeout.
// A zero timeout means no client-side bound.
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: timeout},
		Logger:     logger,
	}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient == nil {
		return http.DefaultClient
	}
	return c.HTTPClient
}

// Broadcast posts the encoded transaction to the node.
//
// A transport failure, a 5xx answer or a body that is not JSON is
// returned as an error. Otherwise the body is classified with
// ClassifyBroadcast.
func (c *Client) Broadcast(ctx context.Context, tx *types.Transaction, network types.Network) (types.BroadcastResult, error) {
	data, err := Encode(tx)
	if err != nil {
		return types.BroadcastResult{}, err
	}

	url := network.CoreAPIURL + "/v2/transactions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return types.BroadcastResult{}, fmt.Errorf("broadcast: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return types.BroadcastResult{}, fmt.Errorf("broadcast: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return types.BroadcastResult{}, fmt.Errorf("broadcast: read response: %w", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return types.BroadcastResult{}, fmt.Errorf("broadcast: node returned %s: %s", resp.Status, snippet(body))
	}

	result, err := ClassifyBroadcast(body)
	if err != nil {
		return types.BroadcastResult{}, fmt.Errorf("broadcast: node returned %s: %w", resp.Status, err)
	}
	c.Logger.Debug("broadcast classified",
		"network", network.Name,
		"status", resp.StatusCode,
		"outcome", result.Outcome.String(),
	)
	return result, nil
}

// ClassifyBroadcast turns a node's broadcast answer into exactly one
// BroadcastResult variant.
//
// A JSON string is the accepted transaction id. A JSON object with an
// error (or reason) is a rejection, even if it also names a txid. An
// object with only a txid is accepted. An object with neither yields
// an error wrapping relay.ErrUnclassifiedBroadcast.
func ClassifyBroadcast(body []byte) (types.BroadcastResult, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return types.BroadcastResult{}, fmt.Errorf("%w: empty body", relay.ErrUnclassifiedBroadcast)
	}

	if body[0] == '"' {
		var txid string
		if err := json.Unmarshal(body, &txid); err != nil {
			return types.BroadcastResult{}, fmt.Errorf("decode txid: %w", err)
		}
		if txid == "" {
			return types.BroadcastResult{}, fmt.Errorf("%w: empty txid", relay.ErrUnclassifiedBroadcast)
		}
		return types.Accepted(normalizeTxID(txid)), nil
	}

	var raw struct {
		TxID       string          `json:"txid"`
		Error      string          `json:"error"`
		Reason     string          `json:"reason"`
		ReasonData json.RawMessage `json:"reason_data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return types.BroadcastResult{}, fmt.Errorf("decode broadcast result: %w (body %s)", err, snippet(body))
	}

	switch {
	case raw.Error != "" || raw.Reason != "":
		result := types.Rejected(raw.Error, raw.Reason)
		if len(raw.ReasonData) > 0 && string(raw.ReasonData) != "null" {
			result.ReasonData = []byte(raw.ReasonData)
		}
		return result, nil
	case raw.TxID != "":
		return types.Accepted(normalizeTxID(raw.TxID)), nil
	default:
		return types.BroadcastResult{}, relay.ErrUnclassifiedBroadcast
	}
}

// AccountNonce returns the next nonce of addr.
func (c *Client) AccountNonce(ctx context.Context, addr types.Address, network types.Network) (uint64, error) {
	url := network.CoreAPIURL + "/v2/accounts/" + addr.String() + "?proof=0"
	var account struct {
		Nonce uint64 `json:"nonce"`
	}
	if err := c.getJSON(ctx, url, &account); err != nil {
		return 0, fmt.Errorf("account nonce for %s: %w", addr, err)
	}
	return account.Nonce, nil
}

// FeeRate returns the node's current fee rate per encoded byte.
func (c *Client) FeeRate(ctx context.Context, network types.Network) (uint64, error) {
	var rate uint64
	if err := c.getJSON(ctx, network.CoreAPIURL+"/v2/fees/transfer", &rate); err != nil {
		return 0, fmt.Errorf("fee rate: %w", err)
	}
	return rate, nil
}

func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("node returned %s: %s", resp.Status, snippet(body))
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func normalizeTxID(txid string) string {
	if strings.HasPrefix(txid, "0x") {
		return txid
	}
	return "0x" + txid
}

func snippet(body []byte) string {
	const limit = 256
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "... (" + strconv.Itoa(len(s)-limit) + " more bytes)"
	}
	return s
}
