// Package pipeline implements the per-request relay stages:
// transaction validation, and the sponsorship and broadcast
// orchestration that follows rate limiting.
package pipeline

import "fmt"

// Stage is a step of the relay pipeline. Stages run strictly in
// declaration order; a later stage never starts after an earlier one
// failed.
type Stage uint32

const (
	// StageReceived: request accepted by the boundary, body not yet parsed.
	StageReceived Stage = iota
	// StageParse: request body is being decoded.
	StageParse
	// StageValidate: transaction decode and authorization kind check.
	StageValidate
	// StageRateLimit: per-sender admission.
	StageRateLimit
	// StageConfigure: sponsor credential presence check.
	StageConfigure
	// StageSponsor: sponsor signature and fee attached.
	StageSponsor
	// StageBroadcast: submission to the network.
	StageBroadcast
	// StageDone: a transaction id was obtained.
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageReceived:
		return "received"
	case StageParse:
		return "parse"
	case StageValidate:
		return "validate"
	case StageRateLimit:
		return "rate_limit"
	case StageConfigure:
		return "configure"
	case StageSponsor:
		return "sponsor"
	case StageBroadcast:
		return "broadcast"
	case StageDone:
		return "done"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(s))
	}
}

// Trace enforces stage ordering for one request and remembers where
// it stopped. A Trace is owned by a single request and is not safe
// for concurrent use.
type Trace struct {
	stage  Stage
	failed bool
	// entered lists stages in the order they were entered.
	entered []Stage
}

// NewTrace creates a trace in StageReceived.
func NewTrace() *Trace {
	return &Trace{stage: StageReceived, entered: []Stage{StageReceived}}
}

// Enter moves the trace to s. Panics if s does not come after the
// current stage or if the trace has already failed: either would
// mean a stage ran out of order.
func (t *Trace) Enter(s Stage) {
	if t.failed {
		panic(fmt.Sprintf("pipeline: stage %s entered after failure in %s", s, t.stage))
	}
	if s <= t.stage {
		panic(fmt.Sprintf("pipeline: stage %s entered in stage %s", s, t.stage))
	}
	t.stage = s
	t.entered = append(t.entered, s)
}

// Fail marks the current stage as failed.
func (t *Trace) Fail() { t.failed = true }

// Stage returns the current stage.
func (t *Trace) Stage() Stage { return t.stage }

// Failed reports whether the current stage failed.
func (t *Trace) Failed() bool { return t.failed }

// Entered returns the stages entered so far, in order.
func (t *Trace) Entered() []Stage {
	out := make([]Stage, len(t.entered))
	copy(out, t.entered)
	return out
}

// Failure attributes an error to the stage that produced it.
type Failure struct {
	Stage Stage
	Err   error
}

func (f *Failure) Error() string { return fmt.Sprintf("%s: %v", f.Stage, f.Err) }

func (f *Failure) Unwrap() error { return f.Err }

// fail records the failure on the trace and wraps err.
func fail(t *Trace, err error) *Failure {
	t.Fail()
	return &Failure{Stage: t.Stage(), Err: err}
}

// Abort marks the current stage as failed and attributes err to it.
// Used by callers that run stages outside the orchestrator.
func (t *Trace) Abort(err error) *Failure { return fail(t, err) }
