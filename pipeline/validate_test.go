package pipeline_test

import (
	"strings"
	"testing"

	"github.com/blockberries/relay"
	"github.com/blockberries/relay/pipeline"
	relaytest "github.com/blockberries/relay/testing"
)

func TestValidate_Sponsored(t *testing.T) {
	raw := relaytest.SponsoredHex(t, relaytest.AgentKey, 3)
	v, err := pipeline.Validate(raw)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if v.Sender != relaytest.Address(t, relaytest.AgentKey) {
		t.Fatalf("Sender = %s", v.Sender)
	}
	if v.SenderKey() != v.Sender.Hex() || len(v.SenderKey()) != 40 {
		t.Fatalf("SenderKey = %q", v.SenderKey())
	}
}

func TestValidate_PrefixEquivalent(t *testing.T) {
	raw := relaytest.SponsoredHex(t, relaytest.AgentKey, 3)
	with, err1 := pipeline.Validate(raw)
	without, err2 := pipeline.Validate(strings.TrimPrefix(raw, "0x"))
	if err1 != nil || err2 != nil {
		t.Fatalf("Validate: %v / %v", err1, err2)
	}
	if with.SenderKey() != without.SenderKey() {
		t.Fatalf("sender differs: %s vs %s", with.SenderKey(), without.SenderKey())
	}
	if with.Tx.Auth.Origin.Nonce != without.Tx.Auth.Origin.Nonce {
		t.Fatal("decoded transactions differ")
	}

	bad := "0xzz"
	_, e1 := pipeline.Validate(bad)
	_, e2 := pipeline.Validate("zz")
	if relay.KindOf(e1) != relay.KindMalformed || relay.KindOf(e2) != relay.KindMalformed {
		t.Fatalf("kinds = %s / %s", relay.KindOf(e1), relay.KindOf(e2))
	}
}

func TestValidate_Failures(t *testing.T) {
	standard := relaytest.StandardHex(t, relaytest.AgentKey, 1)
	cases := []struct {
		name string
		raw  string
		kind relay.Kind
	}{
		{"empty", "", relay.KindMalformed},
		{"prefix only", "0x", relay.KindMalformed},
		{"not hex", "hello", relay.KindMalformed},
		{"odd length", "0xabc", relay.KindMalformed},
		{"garbage bytes", "0xdeadbeef", relay.KindMalformed},
		{"standard", standard, relay.KindNotSponsored},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := pipeline.Validate(tc.raw)
			if err == nil {
				t.Fatalf("expected error, got %+v", v)
			}
			e, ok := relay.AsError(err)
			if !ok {
				t.Fatalf("error %v is not a *relay.Error", err)
			}
			if e.Kind != tc.kind {
				t.Fatalf("Kind = %s, want %s", e.Kind, tc.kind)
			}
			if e.Detail == "" {
				t.Fatal("missing detail")
			}
		})
	}
}
