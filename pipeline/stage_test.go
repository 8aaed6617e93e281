package pipeline

import (
	"errors"
	"testing"
)

func TestTrace_Order(t *testing.T) {
	tr := NewTrace()
	tr.Enter(StageParse)
	tr.Enter(StageValidate)
	tr.Enter(StageRateLimit)

	want := []Stage{StageReceived, StageParse, StageValidate, StageRateLimit}
	got := tr.Entered()
	if len(got) != len(want) {
		t.Fatalf("Entered = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Entered = %v, want %v", got, want)
		}
	}
}

func TestTrace_SkipForwardAllowed(t *testing.T) {
	tr := NewTrace()
	tr.Enter(StageConfigure)
	if tr.Stage() != StageConfigure {
		t.Fatalf("Stage = %s", tr.Stage())
	}
}

func expectPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("%s: expected panic", name)
		}
	}()
	fn()
}

func TestTrace_Violations(t *testing.T) {
	expectPanic(t, "backwards", func() {
		tr := NewTrace()
		tr.Enter(StageSponsor)
		tr.Enter(StageValidate)
	})
	expectPanic(t, "repeat", func() {
		tr := NewTrace()
		tr.Enter(StageParse)
		tr.Enter(StageParse)
	})
	expectPanic(t, "after failure", func() {
		tr := NewTrace()
		tr.Enter(StageValidate)
		tr.Abort(errors.New("bad"))
		tr.Enter(StageRateLimit)
	})
}

func TestTrace_Abort(t *testing.T) {
	tr := NewTrace()
	tr.Enter(StageValidate)
	cause := errors.New("decode")
	f := tr.Abort(cause)
	if !tr.Failed() {
		t.Fatal("trace not failed")
	}
	if f.Stage != StageValidate {
		t.Fatalf("Stage = %s, want validate", f.Stage)
	}
	if !errors.Is(f, cause) {
		t.Fatal("failure does not unwrap to cause")
	}
	if f.Error() != "validate: decode" {
		t.Fatalf("Error = %q", f.Error())
	}
}

func TestStage_String(t *testing.T) {
	if StageRateLimit.String() != "rate_limit" {
		t.Errorf("got %q", StageRateLimit.String())
	}
	if Stage(99).String() != "unknown(99)" {
		t.Errorf("got %q", Stage(99).String())
	}
}
