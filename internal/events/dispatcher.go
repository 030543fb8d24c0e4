package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pigeonworks-llc/account-ledger/internal/ledger"
)

// DefaultBufferSize is the queue capacity used when none is configured.
const DefaultBufferSize = 256

// publishTimeout bounds a single sink delivery.
const publishTimeout = 10 * time.Second

// Sink receives every dispatched message.
type Sink interface {
	Name() string
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// Dispatcher queues ledger events and delivers them to its sinks in order.
// It implements ledger.Observer.
type Dispatcher struct {
	sinks  []Sink
	logger *slog.Logger

	mu      sync.RWMutex
	closed  bool
	queue   chan Message
	running atomic.Bool
	done    chan struct{}

	dropped   atomic.Uint64
	delivered atomic.Uint64
}

// NewDispatcher creates a Dispatcher with a queue of the given size.
func NewDispatcher(logger *slog.Logger, bufferSize int, sinks ...Sink) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Dispatcher{
		sinks:  sinks,
		logger: logger.With("component", "events"),
		queue:  make(chan Message, bufferSize),
		done:   make(chan struct{}),
	}
}

// Observe enqueues the event without blocking. When the queue is full the
// event is dropped and counted.
func (d *Dispatcher) Observe(e ledger.Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	msg := NewMessage(e)
	select {
	case d.queue <- msg:
	default:
		n := d.dropped.Add(1)
		d.logger.Warn("event queue full, dropping event",
			"seq", msg.Seq,
			"type", msg.Type,
			"dropped_total", n,
		)
	}
}

// Run delivers queued messages until the dispatcher is closed and the queue
// is drained. ctx is the parent of every sink delivery.
func (d *Dispatcher) Run(ctx context.Context) {
	if !d.running.CompareAndSwap(false, true) {
		return
	}
	defer close(d.done)

	for msg := range d.queue {
		d.deliver(ctx, msg)
	}
}

// Close stops intake, waits for queued messages to be delivered and closes
// every sink.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	if d.running.CompareAndSwap(false, true) {
		// Run was never started; drain here.
		for msg := range d.queue {
			d.deliver(context.Background(), msg)
		}
		close(d.done)
	}
	<-d.done

	var errs []error
	for _, s := range d.sinks {
		if err := s.Close(); err != nil {
			d.logger.Error("failed to close sink", "sink", s.Name(), "error", err)
			errs = append(errs, err)
		}
	}
	d.logger.Info("event dispatcher stopped",
		"delivered", d.delivered.Load(),
		"dropped", d.dropped.Load(),
	)
	return errors.Join(errs...)
}

// Dropped returns the number of events dropped because the queue was full.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Delivered returns the number of messages processed by Run.
func (d *Dispatcher) Delivered() uint64 {
	return d.delivered.Load()
}

func (d *Dispatcher) deliver(ctx context.Context, msg Message) {
	for _, s := range d.sinks {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		if err := s.Publish(pctx, msg); err != nil {
			d.logger.Error("failed to publish event",
				"sink", s.Name(),
				"seq", msg.Seq,
				"type", msg.Type,
				"error", err,
			)
		}
		cancel()
	}
	d.delivered.Add(1)
}
