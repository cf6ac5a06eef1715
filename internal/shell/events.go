package shell

import (
	"time"

	"ergosum/internal/deeplink"
)

// Window is the slice of the native window the coordinator drives.
type Window interface {
	LoadURL(target string)
	Focus()
	IsMinimized() bool
	Restore()
}

// Event is an external signal consumed by the dispatch loop.
type Event interface {
	event()
}

// Launched is posted once with this process's own launch arguments.
type Launched struct {
	Args      []string
	Secondary bool
	TraceID   string
}

// Ready marks the process as ready to create its window.
type Ready struct{}

// WindowOpened fills the window slot.
type WindowOpened struct {
	Window Window
}

// WindowClosed empties the window slot.
type WindowClosed struct{}

// SecondInstance carries the arguments of a redundant launch attempt.
type SecondInstance struct {
	Args             []string
	WorkingDirectory string
	TraceID          string
}

// URLOpened is the OS open-url event (darwin delivery).
type URLOpened struct {
	URL     string
	TraceID string
}

// DeferredRoute fires when the startup delay for a launch link expires.
type DeferredRoute struct {
	URL     string
	TraceID string
}

func (Launched) event()       {}
func (Ready) event()          {}
func (WindowOpened) event()   {}
func (WindowClosed) event()   {}
func (SecondInstance) event() {}
func (URLOpened) event()      {}
func (DeferredRoute) event()  {}

// Effect is a command produced by a handler and applied by the loop.
type Effect interface {
	effect()
}

// Navigate loads Target into the window.
type Navigate struct {
	Target   string
	Decision deeplink.Decision
	TraceID  string
}

// Focus restores the window if minimised and brings it to the front.
type Focus struct{}

// Schedule posts DeferredRoute{URL} after Delay.
type Schedule struct {
	URL     string
	Delay   time.Duration
	TraceID string
}

// Dropped records a link that produced no navigation.
type Dropped struct {
	Link     string
	Decision deeplink.Decision
	Err      error
	TraceID  string
}

// Quit terminates a secondary process.
type Quit struct{}

func (Navigate) effect() {}
func (Focus) effect()    {}
func (Schedule) effect() {}
func (Dropped) effect()  {}
func (Quit) effect()     {}
