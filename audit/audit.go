// Package audit delivers audit events to a log sink without blocking
// the caller.
//
// A Dispatcher implements relay.AuditLogger. Each call enqueues one
// event and returns; background workers hand events to the Sink with
// a per-event timeout. An event that cannot be enqueued (queue full
// or dispatcher closed) or that the sink fails to accept is reported
// to the local slog logger and otherwise dropped. Failures never
// reach the caller.
package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blockberries/relay"
	"github.com/blockberries/relay/types"
)

// Sink accepts audit events. Implementations must be safe for
// concurrent use.
type Sink interface {
	Emit(ctx context.Context, event types.LogEvent) error
}

// Compile-time interface check.
var _ relay.AuditLogger = (*Dispatcher)(nil)

// Config configures a Dispatcher.
type Config struct {
	// AppID identifies this service in every event.
	AppID string
	// QueueSize bounds the number of pending events. Default 1024.
	QueueSize int
	// Workers is the number of concurrent deliveries. Default 2.
	Workers int
	// Timeout bounds each Emit call. Default 5s.
	Timeout time.Duration
	// Logger receives delivery failures. Default slog.Default().
	Logger *slog.Logger
	// Now stamps events. Default time.Now.
	Now func() time.Time
}

// Stats counts dispatcher activity.
type Stats struct {
	Enqueued  uint64
	Delivered uint64
	Failed    uint64
	Dropped   uint64
}

// Dispatcher is an asynchronous, best-effort relay.AuditLogger.
type Dispatcher struct {
	sink   Sink
	cfg    Config
	logger *slog.Logger

	queue chan types.LogEvent
	wg    sync.WaitGroup

	// mu guards closed against concurrent enqueue and Close.
	mu     sync.RWMutex
	closed bool

	enqueued  atomic.Uint64
	delivered atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

// NewDispatcher creates a dispatcher delivering to sink and starts its
// workers. Call Close to drain and stop them.
func NewDispatcher(sink Sink, cfg Config) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	d := &Dispatcher{
		sink:   sink,
		cfg:    cfg,
		logger: cfg.Logger,
		queue:  make(chan types.LogEvent, cfg.QueueSize),
	}
	d.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go d.worker()
	}
	return d
}

func (d *Dispatcher) Info(requestID, message string, fields ...types.Field) {
	d.enqueue(types.LevelInfo, requestID, message, fields)
}

func (d *Dispatcher) Warn(requestID, message string, fields ...types.Field) {
	d.enqueue(types.LevelWarn, requestID, message, fields)
}

func (d *Dispatcher) Error(requestID, message string, fields ...types.Field) {
	d.enqueue(types.LevelError, requestID, message, fields)
}

func (d *Dispatcher) Debug(requestID, message string, fields ...types.Field) {
	d.enqueue(types.LevelDebug, requestID, message, fields)
}

// enqueue submits the event without blocking.
func (d *Dispatcher) enqueue(level types.LogLevel, requestID, message string, fields []types.Field) {
	event := types.LogEvent{
		AppID:     d.cfg.AppID,
		Level:     level,
		Message:   message,
		Time:      types.TimeToTimestamp(d.cfg.Now()),
		RequestID: requestID,
		Fields:    fields,
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(event, "dispatcher closed")
		return
	}
	select {
	case d.queue <- event:
		d.enqueued.Add(1)
	default:
		d.drop(event, "queue full")
	}
}

func (d *Dispatcher) drop(event types.LogEvent, why string) {
	d.dropped.Add(1)
	d.logger.Warn("audit event dropped",
		"reason", why,
		"level", event.Level.String(),
		"message", event.Message,
		"request_id", event.RequestID,
	)
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for event := range d.queue {
		d.deliver(event)
	}
}

func (d *Dispatcher) deliver(event types.LogEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Timeout)
	defer cancel()

	if err := d.sink.Emit(ctx, event); err != nil {
		d.failed.Add(1)
		d.logger.Warn("audit event delivery failed",
			"error", err,
			"level", event.Level.String(),
			"message", event.Message,
			"request_id", event.RequestID,
		)
		return
	}
	d.delivered.Add(1)
}

// Close stops accepting events and waits for queued events to be
// delivered, or for ctx to end. Events still queued when ctx ends are
// abandoned.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("audit: drain interrupted"), ctx.Err())
	}
}

// Stats returns a snapshot of the dispatcher counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Enqueued:  d.enqueued.Load(),
		Delivered: d.delivered.Load(),
		Failed:    d.failed.Load(),
		Dropped:   d.dropped.Load(),
	}
}
