package audit_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/blockberries/relay/audit"
	"github.com/blockberries/relay/types"
	relaytest "github.com/blockberries/relay/testing"
)

func waitDelivered(t *testing.T, sink *relaytest.MockSink, n int) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for i := 0; i < n; i++ {
		select {
		case <-sink.Delivered():
		case <-deadline:
			t.Fatalf("delivered %d of %d events", i, n)
		}
	}
}

func TestDispatcher_DeliversEvents(t *testing.T) {
	sink := relaytest.NewMockSink(16)
	clock := relaytest.NewClock()
	d := audit.NewDispatcher(sink, audit.Config{AppID: "sponsor-relay", Workers: 1, Now: clock.Now})
	defer d.Close(context.Background())

	d.Info("req-1", "Relay request received", types.F("network", "testnet"))
	d.Warn("req-1", "Rate limit exceeded")
	d.Error("req-1", "Relay failed", types.F("stage", "broadcast"))
	d.Debug("req-1", "Transaction validated")
	waitDelivered(t, sink, 4)

	events := sink.Events()
	wantLevels := []types.LogLevel{types.LevelInfo, types.LevelWarn, types.LevelError, types.LevelDebug}
	for i, e := range events {
		if e.Level != wantLevels[i] {
			t.Errorf("event %d level = %s, want %s", i, e.Level, wantLevels[i])
		}
		if e.AppID != "sponsor-relay" || e.RequestID != "req-1" {
			t.Errorf("event %d = %+v", i, e)
		}
		if !e.Time.ToTime().Equal(relaytest.Epoch) {
			t.Errorf("event %d time = %v", i, e.Time.ToTime())
		}
	}
	if events[0].Fields[0] != (types.Field{Key: "network", Value: "testnet"}) {
		t.Errorf("fields = %v", events[0].Fields)
	}
}

func TestDispatcher_DoesNotBlockOnSlowSink(t *testing.T) {
	release := make(chan struct{})
	sink := &relaytest.MockSink{
		EmitFn: func(ctx context.Context, _ types.LogEvent) error {
			select {
			case <-release:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}
	var logs bytes.Buffer
	d := audit.NewDispatcher(sink, audit.Config{
		QueueSize: 2,
		Workers:   1,
		Logger:    slog.New(slog.NewTextHandler(&logs, nil)),
	})

	start := time.Now()
	for i := 0; i < 50; i++ {
		d.Info("req", "event")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("enqueue blocked for %v", elapsed)
	}

	close(release)
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	st := d.Stats()
	if st.Dropped == 0 {
		t.Fatal("expected drops with a full queue")
	}
	if st.Enqueued+st.Dropped != 50 {
		t.Fatalf("stats = %+v, want 50 events accounted for", st)
	}
	if !strings.Contains(logs.String(), "queue full") {
		t.Fatalf("drop not logged locally: %s", logs.String())
	}
}

func TestDispatcher_DeliveryFailureIsLocal(t *testing.T) {
	var mu sync.Mutex
	var logs bytes.Buffer
	sink := &relaytest.MockSink{
		EmitFn: func(context.Context, types.LogEvent) error {
			return errors.New("sink unavailable")
		},
	}
	d := audit.NewDispatcher(sink, audit.Config{
		Logger: slog.New(slog.NewTextHandler(&lockedWriter{mu: &mu, w: &logs}, nil)),
	})
	d.Error("req-9", "Relay failed")
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if st := d.Stats(); st.Failed != 1 || st.Delivered != 0 {
		t.Fatalf("stats = %+v", st)
	}
	mu.Lock()
	defer mu.Unlock()
	if !strings.Contains(logs.String(), "sink unavailable") || !strings.Contains(logs.String(), "req-9") {
		t.Fatalf("failure not logged locally: %s", logs.String())
	}
}

func TestDispatcher_TimeoutBoundsDelivery(t *testing.T) {
	sink := &relaytest.MockSink{
		EmitFn: func(ctx context.Context, _ types.LogEvent) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}
	d := audit.NewDispatcher(sink, audit.Config{
		Timeout: 10 * time.Millisecond,
		Logger:  slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
	})
	d.Info("req", "slow")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if d.Stats().Failed != 1 {
		t.Fatalf("stats = %+v", d.Stats())
	}
}

func TestDispatcher_CloseDrainsAndRejectsLateEvents(t *testing.T) {
	sink := relaytest.NewMockSink(64)
	d := audit.NewDispatcher(sink, audit.Config{
		Workers: 2,
		Logger:  slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
	})
	for i := 0; i < 20; i++ {
		d.Info("req", "event")
	}
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := len(sink.Events()); got != 20 {
		t.Fatalf("delivered %d, want 20", got)
	}

	d.Warn("req", "late")
	if d.Stats().Dropped != 1 {
		t.Fatalf("late event not dropped: %+v", d.Stats())
	}
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestDispatcher_CloseHonorsContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	sink := &relaytest.MockSink{
		EmitFn: func(context.Context, types.LogEvent) error {
			<-block
			return nil
		},
	}
	d := audit.NewDispatcher(sink, audit.Config{Workers: 1, Timeout: time.Hour})
	d.Info("req", "stuck")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.Close(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Close = %v, want deadline exceeded", err)
	}
}

type lockedWriter struct {
	mu *sync.Mutex
	w  *bytes.Buffer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
