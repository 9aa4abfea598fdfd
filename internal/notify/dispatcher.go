// Package notify relays interview events to external channels without
// blocking the operations that produced them.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/example/interview-scheduler/internal/application"
)

var (
	// ErrQueueFull is returned when the dispatcher drops an event.
	ErrQueueFull = errors.New("notify: queue full")
	// ErrClosed is returned for events submitted after Close.
	ErrClosed = errors.New("notify: dispatcher closed")
)

// DropRecorder counts events that never reached the sink.
type DropRecorder interface {
	NotificationDropped(reason string)
}

type nopDrops struct{}

func (nopDrops) NotificationDropped(string) {}

// DispatcherConfig sizes the queue and worker pool.
type DispatcherConfig struct {
	QueueSize       int
	Workers         int
	DeliveryTimeout time.Duration
}

// Dispatcher is an application.Notifier that queues events and delivers them
// to the sink from a fixed pool of workers.
type Dispatcher struct {
	sink    application.Notifier
	queue   chan application.Event
	timeout time.Duration
	logger  *slog.Logger
	drops   DropRecorder

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher starts the workers. Call Close to drain them.
func NewDispatcher(sink application.Notifier, cfg DispatcherConfig, drops DropRecorder, logger *slog.Logger) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = 5 * time.Second
	}
	if drops == nil {
		drops = nopDrops{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		sink:    sink,
		queue:   make(chan application.Event, cfg.QueueSize),
		timeout: cfg.DeliveryTimeout,
		logger:  logger.With("component", "notify_dispatcher"),
		drops:   drops,
	}
	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	return d
}

// Notify implements application.Notifier. It never blocks.
func (d *Dispatcher) Notify(ctx context.Context, event application.Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drops.NotificationDropped("closed")
		return ErrClosed
	}

	select {
	case d.queue <- event:
		return nil
	default:
		d.drops.NotificationDropped("queue_full")
		return ErrQueueFull
	}
}

// Close stops accepting events and waits for queued ones to be delivered or
// for ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
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
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for event := range d.queue {
		d.deliver(event)
	}
}

func (d *Dispatcher) deliver(event application.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.sink.Notify(ctx, event); err != nil {
		d.drops.NotificationDropped("delivery_failed")
		d.logger.Warn("event delivery failed",
			"error", err,
			"event_id", event.ID,
			"event", event.Type,
			"application_id", event.ApplicationID,
		)
	}
}
