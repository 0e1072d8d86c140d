package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// ErrUnknownCommand is returned when a command has no subscriber or an event
// name maps to no command.
var ErrUnknownCommand = errors.New("unknown command")

// ErrClosed is returned by queued subscribers once the bus is closed.
var ErrClosed = errors.New("command bus closed")

// ErrQueueFull is returned when a non-blocking queue cannot take a command.
var ErrQueueFull = errors.New("subscriber queue full")

// HandlerFunc processes a command and returns a result.
type HandlerFunc func(Command) (any, error)

// Logger is the logging surface the bus needs.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures a subscription.
type Option func(*subscription)

type subscription struct {
	queueSize int
	blocking  bool
	logged    bool
}

// Buffered runs the handler on its own goroutine behind a queue of size n.
func Buffered(n int) Option {
	return func(s *subscription) { s.queueSize = n }
}

// Blocking makes a buffered subscriber wait for room instead of dropping.
func Blocking() Option {
	return func(s *subscription) { s.blocking = true }
}

// Logged logs every command the subscriber handles.
func Logged() Option {
	return func(s *subscription) { s.logged = true }
}

// Dispatcher routes commands to every subscriber registered for their kind.
type Dispatcher struct {
	mu     sync.RWMutex
	subs   map[Kind][]HandlerFunc
	queues map[Kind][]chan Command
	logger Logger

	done      chan struct{}
	closeOnce sync.Once

	metrics *busMetrics
}

// New creates a Dispatcher. Metrics go to the global OTel meter provider.
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		subs:   make(map[Kind][]HandlerFunc),
		queues: make(map[Kind][]chan Command),
		logger: logger,
		done:   make(chan struct{}),
	}
	m, err := newBusMetrics(d.depth)
	if err != nil {
		return nil, err
	}
	d.metrics = m
	return d, nil
}

// Subscribe adds a handler for kind. Handlers run in registration order.
func (d *Dispatcher) Subscribe(kind Kind, h HandlerFunc, opts ...Option) {
	var s subscription
	for _, opt := range opts {
		opt(&s)
	}

	if s.queueSize > 0 {
		h = d.queued(kind, s.queueSize, s.blocking, h)
	}
	if s.logged {
		h = d.logged(kind, h)
	}

	d.mu.Lock()
	d.subs[kind] = append(d.subs[kind], h)
	d.mu.Unlock()
}

// On subscribes a handler typed to a single command variant.
func On[C Command](d *Dispatcher, h func(C) (any, error), opts ...Option) {
	var zero C
	d.Subscribe(zero.Kind(), func(c Command) (any, error) {
		typed, ok := c.(C)
		if !ok {
			return nil, fmt.Errorf("command %s has unexpected type %T", c.Kind(), c)
		}
		return h(typed)
	}, opts...)
}

// Dispatch runs every subscriber of c's kind and returns their results in
// registration order. Handler errors are joined.
func (d *Dispatcher) Dispatch(c Command) ([]any, error) {
	d.mu.RLock()
	hs := d.subs[c.Kind()]
	d.mu.RUnlock()

	if len(hs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, c.Kind())
	}

	results := make([]any, len(hs))
	var errs []error
	for i, h := range hs {
		r, err := h(c)
		results[i] = r
		if err != nil {
			errs = append(errs, err)
		}
	}
	return results, errors.Join(errs...)
}

// HasHandler reports whether kind has at least one subscriber.
func (d *Dispatcher) HasHandler(kind Kind) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs[kind]) > 0
}

// Close stops queued subscribers. Later commands to them are rejected.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() { close(d.done) })
}

func (d *Dispatcher) depth() map[Kind]int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[Kind]int, len(d.queues))
	for kind, qs := range d.queues {
		for _, q := range qs {
			out[kind] += len(q)
		}
	}
	return out
}

func (d *Dispatcher) queued(kind Kind, size int, blocking bool, h HandlerFunc) HandlerFunc {
	q := make(chan Command, size)
	d.mu.Lock()
	d.queues[kind] = append(d.queues[kind], q)
	d.mu.Unlock()

	attrs := metric.WithAttributes(kindAttr(kind))
	go func() {
		for {
			select {
			case <-d.done:
				return
			case c := <-q:
				if _, err := h(c); err != nil {
					d.logger.Error("Queued command failed", "command", kind, "error", err)
				}
				d.metrics.processed.Add(context.Background(), 1, attrs)
			}
		}
	}()

	return func(c Command) (any, error) {
		select {
		case <-d.done:
			return nil, fmt.Errorf("%s: %w", kind, ErrClosed)
		default:
		}
		if blocking {
			select {
			case q <- c:
				return "queued", nil
			case <-d.done:
				return nil, fmt.Errorf("%s: %w", kind, ErrClosed)
			}
		}
		select {
		case q <- c:
			return "queued", nil
		default:
			d.metrics.dropped.Add(context.Background(), 1, attrs)
			return nil, fmt.Errorf("%s: %w", kind, ErrQueueFull)
		}
	}
}

func (d *Dispatcher) logged(kind Kind, h HandlerFunc) HandlerFunc {
	return func(c Command) (any, error) {
		start := time.Now()
		d.logger.Debug("Handling command", "command", kind)

		result, err := h(c)
		if err != nil {
			d.logger.Error("Command failed", "command", kind, "duration", time.Since(start), "error", err)
			return result, err
		}
		d.logger.Debug("Command complete", "command", kind, "duration", time.Since(start))
		return result, nil
	}
}
