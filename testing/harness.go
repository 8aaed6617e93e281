package relaytest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/blockberries/relay"
	"github.com/blockberries/relay/chain"
	"github.com/blockberries/relay/pipeline"
	"github.com/blockberries/relay/ratelimit"
	"github.com/blockberries/relay/server"
)

// HarnessConfig configures a Harness. Zero values select a configured
// testnet relay with the default rate limit, an in-memory limiter on
// the harness clock and a MockChain.
type HarnessConfig struct {
	// Config overrides the relay configuration. SponsorCredential is
	// set to SponsorKey unless Unconfigured is true.
	Config       relay.Config
	Unconfigured bool

	Chain   relay.Chain
	Limiter relay.RateLimiter
	Version string
}

// Harness drives the relay HTTP handler in-process.
type Harness struct {
	t *testing.T

	Config  relay.Config
	Chain   *MockChain
	Audit   *Recorder
	Clock   *Clock
	Limiter relay.RateLimiter
	Server  *server.Server

	requests atomic.Int64
}

// NewHarness builds a relay server around mocks.
func NewHarness(t *testing.T, hc HarnessConfig) *Harness {
	t.Helper()

	cfg := hc.Config
	if cfg.NetworkID == "" {
		cfg.NetworkID = "testnet"
	}
	if cfg.Network.Name == "" {
		cfg.Network = chain.SelectNetwork(cfg.NetworkID, "")
	}
	if cfg.RateLimit.Capacity <= 0 {
		cfg.RateLimit.Capacity = relay.DefaultRateLimitCapacity
	}
	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = relay.DefaultRateLimitWindow
	}
	if hc.Unconfigured {
		cfg.SponsorCredential = ""
	} else if cfg.SponsorCredential == "" {
		cfg.SponsorCredential = SponsorKey
	}

	h := &Harness{
		t:      t,
		Config: cfg,
		Chain:  &MockChain{},
		Audit:  &Recorder{},
		Clock:  NewClock(),
	}

	var ch relay.Chain = h.Chain
	if hc.Chain != nil {
		ch = hc.Chain
	}
	h.Limiter = hc.Limiter
	if h.Limiter == nil {
		h.Limiter = ratelimit.NewMemory(cfg.RateLimit, ratelimit.WithClock(h.Clock.Now))
	}

	h.Server = server.New(server.Options{
		Orchestrator: pipeline.NewOrchestrator(cfg, ch),
		Limiter:      h.Limiter,
		Audit:        h.Audit,
		Version:      hc.Version,
		NewRequestID: h.nextRequestID,
	})
	return h
}

func (h *Harness) nextRequestID() string {
	return "req-" + strconv.FormatInt(h.requests.Add(1), 10)
}

// Do sends a request to the handler and returns the recorded response.
func (h *Harness) Do(method, path string, body []byte) *httptest.ResponseRecorder {
	h.t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.Server.Handler().ServeHTTP(rec, req)
	return rec
}

// PostRelay posts {"transaction": txHex} to /relay.
func (h *Harness) PostRelay(txHex string) *httptest.ResponseRecorder {
	h.t.Helper()
	body, err := json.Marshal(server.RelayRequest{Transaction: txHex})
	if err != nil {
		h.t.Fatalf("marshal request: %v", err)
	}
	return h.Do(http.MethodPost, "/relay", body)
}

// DecodeError decodes an error response body.
func DecodeError(t *testing.T, rec *httptest.ResponseRecorder) server.ErrorResponse {
	t.Helper()
	var body server.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body
}

// DecodeJSON decodes a response body into a generic map.
func DecodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body
}
