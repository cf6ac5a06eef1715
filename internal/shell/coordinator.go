// Package shell coordinates the single running instance: it serialises OS
// signals (launch, second instance, open-url, timers) through one dispatch
// loop that owns the window slot.
package shell

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"ergosum/internal/deeplink"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const eventBufferSize = 64

var errStopped = errors.New("coordinator stopped")

type barrier struct {
	done chan struct{}
}

func (barrier) event() {}

// Tracer observes link latency from receipt to navigation.
type Tracer interface {
	MarkLinkReceived(traceID string, receivedAt time.Time) error
	MarkLinkApplied(traceID string, appliedAt time.Time) error
}

// Options configures a Coordinator.
type Options struct {
	Policy Policy
	Clock  clockwork.Clock
	Logger *slog.Logger
	Tracer Tracer
	// OnQuit is invoked for a Quit effect. Nil means nothing happens.
	OnQuit func()
}

// Coordinator runs the dispatch loop. Post-style methods are safe to call
// from any goroutine; all state changes happen on the Run goroutine.
type Coordinator struct {
	policy Policy
	clock  clockwork.Clock
	logger *slog.Logger
	tracer Tracer
	onQuit func()

	events   chan Event
	done     chan struct{}
	doneOnce sync.Once

	// Owned by the Run goroutine.
	state  State
	timers []clockwork.Timer
}

// NewCoordinator creates a coordinator. Call Run to start dispatching.
func NewCoordinator(opts Options) *Coordinator {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		policy: opts.Policy,
		clock:  clock,
		logger: logger.With("component", "shell"),
		tracer: opts.Tracer,
		onQuit: opts.OnQuit,
		events: make(chan Event, eventBufferSize),
		done:   make(chan struct{}),
	}
}

// Run dispatches events until ctx is done. Pending timers are stopped on
// return and later posts are discarded.
func (c *Coordinator) Run(ctx context.Context) error {
	defer c.stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-c.events:
			c.dispatch(ev)
		}
	}
}

// Post queues an event. It reports false once the loop has stopped.
func (c *Coordinator) Post(ev Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

// Flush blocks until every event posted before it has been dispatched.
func (c *Coordinator) Flush(ctx context.Context) error {
	b := barrier{done: make(chan struct{})}
	if !c.Post(b) {
		return errStopped
	}
	select {
	case <-b.done:
		return nil
	case <-c.done:
		return errStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Launch posts this process's launch arguments.
func (c *Coordinator) Launch(args []string) bool {
	traceID := c.traceLink(args)
	return c.Post(Launched{Args: args, TraceID: traceID})
}

// Ready posts the process readiness signal.
func (c *Coordinator) Ready() bool {
	return c.Post(Ready{})
}

// AttachWindow fills the window slot.
func (c *Coordinator) AttachWindow(w Window) bool {
	return c.Post(WindowOpened{Window: w})
}

// DetachWindow empties the window slot.
func (c *Coordinator) DetachWindow() bool {
	return c.Post(WindowClosed{})
}

// SecondInstance forwards a redundant launch attempt.
func (c *Coordinator) SecondInstance(args []string, workingDirectory string) bool {
	traceID := c.traceLink(args)
	return c.Post(SecondInstance{Args: args, WorkingDirectory: workingDirectory, TraceID: traceID})
}

// OpenURL forwards an OS open-url event.
func (c *Coordinator) OpenURL(rawURL string) bool {
	traceID := c.traceLink([]string{rawURL})
	return c.Post(URLOpened{URL: rawURL, TraceID: traceID})
}

func (c *Coordinator) traceLink(args []string) string {
	if c.tracer == nil {
		return ""
	}
	if _, ok := deeplink.FindInArgs(args); !ok {
		return ""
	}
	traceID := uuid.NewString()
	if err := c.tracer.MarkLinkReceived(traceID, c.clock.Now()); err != nil {
		c.logger.Debug("trace link received", "error", err)
	}
	return traceID
}

func (c *Coordinator) dispatch(ev Event) {
	if b, ok := ev.(barrier); ok {
		close(b.done)
		return
	}
	next, effects := Handle(c.state, ev, c.policy)
	if next.Role != c.state.Role {
		c.logger.Info("instance role changed", "from", c.state.Role.String(), "to", next.Role.String())
	}
	c.state = next
	for _, effect := range effects {
		c.apply(effect)
	}
}

func (c *Coordinator) apply(effect Effect) {
	switch e := effect.(type) {
	case Navigate:
		c.logger.Info("deep link routed", "decision", e.Decision)
		c.state.Window.LoadURL(e.Target)
		if c.tracer != nil && e.TraceID != "" {
			if err := c.tracer.MarkLinkApplied(e.TraceID, c.clock.Now()); err != nil {
				c.logger.Debug("trace link applied", "error", err)
			}
		}

	case Focus:
		w := c.state.Window
		if w.IsMinimized() {
			w.Restore()
		}
		w.Focus()

	case Schedule:
		c.logger.Debug("deep link deferred", "link", deeplink.Describe(e.URL), "delay", e.Delay)
		timer := c.clock.AfterFunc(e.Delay, func() {
			c.Post(DeferredRoute{URL: e.URL, TraceID: e.TraceID})
		})
		c.timers = append(c.timers, timer)

	case Dropped:
		c.logger.Warn(
			"deep link dropped",
			"link", deeplink.Describe(e.Link),
			"decision", e.Decision,
			"error", e.Err,
		)

	case Quit:
		if c.onQuit != nil {
			c.onQuit()
		}
	}
}

func (c *Coordinator) stop() {
	c.doneOnce.Do(func() {
		close(c.done)
	})
	for _, timer := range c.timers {
		timer.Stop()
	}
	c.timers = nil
}
