package types_test

import (
	"testing"

	"github.com/blockberries/relay/types"
)

func TestAddress(t *testing.T) {
	var a types.Address
	if !a.IsZero() {
		t.Fatal("zero address not IsZero")
	}
	a[19] = 0x0f
	if a.IsZero() {
		t.Fatal("non-zero address IsZero")
	}
	if a.Hex() != "000000000000000000000000000000000000000f" {
		t.Fatalf("Hex = %s", a.Hex())
	}
	if a.String() != "0x"+a.Hex() {
		t.Fatalf("String = %s", a.String())
	}
}

func TestAuthKind_String(t *testing.T) {
	cases := map[types.AuthKind]string{
		types.AuthStandard:   "standard",
		types.AuthSponsored:  "sponsored",
		types.AuthKind(0x09): "unknown(0x09)",
	}
	for k, want := range cases {
		if k.String() != want {
			t.Errorf("%d: got %q, want %q", k, k.String(), want)
		}
	}
}

func TestBroadcastResult(t *testing.T) {
	ok := types.Accepted("0xabc")
	if !ok.OK() || ok.TxID != "0xabc" {
		t.Fatalf("Accepted = %+v", ok)
	}

	r := types.Rejected("transaction rejected", "BadNonce")
	if r.OK() || r.Detail() != "BadNonce" {
		t.Fatalf("Rejected = %+v, detail %q", r, r.Detail())
	}
	r.Reason = ""
	if r.Detail() != "transaction rejected" {
		t.Fatalf("Detail without reason = %q", r.Detail())
	}
}

func TestField(t *testing.T) {
	if f := types.F("n", 12); f.Value != "12" {
		t.Errorf("F(int) = %+v", f)
	}
	if f := types.F("s", "x"); f.Value != "x" {
		t.Errorf("F(string) = %+v", f)
	}
	if types.LevelError.String() != "error" || types.LogLevel(0).String() != "unknown(0)" {
		t.Error("LogLevel.String")
	}
}
