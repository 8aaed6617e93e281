package relay

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindStatus(t *testing.T) {
	cases := []struct {
		kind   Kind
		status int
	}{
		{KindBadRequest, http.StatusBadRequest},
		{KindMalformed, http.StatusBadRequest},
		{KindNotSponsored, http.StatusBadRequest},
		{KindRateLimited, http.StatusTooManyRequests},
		{KindConfiguration, http.StatusInternalServerError},
		{KindSponsorship, http.StatusInternalServerError},
		{KindBroadcastTransport, http.StatusInternalServerError},
		{KindBroadcastRejected, http.StatusBadRequest},
		{KindInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := tc.kind.Status(); got != tc.status {
			t.Errorf("%s: expected status %d, got %d", tc.kind, tc.status, got)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	err := Errorf(KindNotSponsored, "authorization kind is %s", "standard")
	if err.Message() != "Transaction must be sponsored" {
		t.Errorf("unexpected message: %s", err.Message())
	}
	expected := "NotSponsored: Transaction must be sponsored: authorization kind is standard"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}

	err.Public = "Invalid request body"
	if err.Message() != "Invalid request body" {
		t.Errorf("Public should override message, got %s", err.Message())
	}
}

func TestAsError(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	relayErr := Wrap(KindBroadcastTransport, cause)

	// Direct.
	e, ok := AsError(relayErr)
	if !ok {
		t.Fatal("expected AsError to return true")
	}
	if e.Detail != cause.Error() {
		t.Errorf("expected detail %q, got %q", cause.Error(), e.Detail)
	}
	if !errors.Is(relayErr, cause) {
		t.Error("expected Wrap to keep the cause reachable")
	}

	// Wrapped.
	wrapped := fmt.Errorf("stage broadcast: %w", relayErr)
	if KindOf(wrapped) != KindBroadcastTransport {
		t.Errorf("expected KindBroadcastTransport, got %s", KindOf(wrapped))
	}

	// Unclassified.
	if KindOf(errors.New("boom")) != KindInternal {
		t.Error("expected unclassified error to be internal")
	}

	// Nil.
	if _, ok := AsError(nil); ok {
		t.Fatal("expected AsError to return false for nil")
	}
}

func TestConfigConfigured(t *testing.T) {
	if (Config{}).Configured() {
		t.Error("empty config should not be configured")
	}
	if !(Config{SponsorCredential: "ab"}).Configured() {
		t.Error("config with credential should be configured")
	}
}
