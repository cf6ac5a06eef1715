package shell

import (
	"time"

	"ergosum/internal/deeplink"
)

// DefaultRouteDelay is how long a launch-argument link waits after Ready.
// The window is usually up by then; nothing guarantees it.
const DefaultRouteDelay = time.Second

// Delivery selects how deep links reach a running process.
type Delivery int

const (
	// LaunchArgs: links arrive only as process arguments (Windows, Linux).
	LaunchArgs Delivery = iota
	// OpenURLEvent: the OS delivers links through an open-url event (macOS).
	OpenURLEvent
)

func (d Delivery) String() string {
	if d == OpenURLEvent {
		return "open-url"
	}
	return "launch-args"
}

// DeliveryFor returns the delivery path for a GOOS value.
func DeliveryFor(goos string) Delivery {
	if goos == "darwin" {
		return OpenURLEvent
	}
	return LaunchArgs
}

// Role is the single-instance state of the process.
type Role int

const (
	Unlaunched Role = iota
	Primary
	Secondary
)

func (r Role) String() string {
	switch r {
	case Primary:
		return "primary"
	case Secondary:
		return "secondary"
	default:
		return "unlaunched"
	}
}

// Policy holds the fixed inputs of the handlers.
type Policy struct {
	Delivery   Delivery
	RouteDelay time.Duration
}

// State is owned by the dispatch loop.
type State struct {
	Role   Role
	Window Window

	pendingLink  string
	pendingTrace string
}

// Handle is a pure transition from (state, event) to (state, effects).
func Handle(state State, ev Event, policy Policy) (State, []Effect) {
	if state.Role == Secondary {
		return state, nil
	}

	switch e := ev.(type) {
	case Launched:
		if e.Secondary {
			state.Role = Secondary
			return state, []Effect{Quit{}}
		}
		state.Role = Primary
		if policy.Delivery == LaunchArgs {
			if link, ok := deeplink.FindInArgs(e.Args); ok {
				state.pendingLink = link
				state.pendingTrace = e.TraceID
			}
		}
		return state, nil

	case Ready:
		if state.pendingLink == "" {
			return state, nil
		}
		delay := policy.RouteDelay
		if delay <= 0 {
			delay = DefaultRouteDelay
		}
		effects := []Effect{Schedule{URL: state.pendingLink, Delay: delay, TraceID: state.pendingTrace}}
		state.pendingLink = ""
		state.pendingTrace = ""
		return state, effects

	case WindowOpened:
		state.Window = e.Window
		return state, nil

	case WindowClosed:
		state.Window = nil
		return state, nil

	case SecondInstance:
		if state.Window == nil {
			link, _ := deeplink.FindInArgs(e.Args)
			if link == "" {
				return state, nil
			}
			return state, []Effect{dropped(link, deeplink.Route(link), e.TraceID)}
		}
		effects := []Effect{Focus{}}
		if link, ok := deeplink.FindInArgs(e.Args); ok {
			effects = append(effects, route(state, link, e.TraceID))
		}
		return state, effects

	case URLOpened:
		if !deeplink.IsDeepLink(e.URL) {
			return state, nil
		}
		return state, []Effect{route(state, e.URL, e.TraceID)}

	case DeferredRoute:
		return state, []Effect{route(state, e.URL, e.TraceID)}
	}

	return state, nil
}

func route(state State, link string, traceID string) Effect {
	decision := deeplink.Route(link)
	target, ok := decision.Target()
	if !ok || state.Window == nil {
		return dropped(link, decision, traceID)
	}
	return Navigate{Target: target, Decision: decision, TraceID: traceID}
}

func dropped(link string, decision deeplink.Decision, traceID string) Dropped {
	err := decision.Err
	if _, ok := decision.Target(); ok {
		err = deeplink.ErrNoActiveWindow
	}
	return Dropped{Link: link, Decision: decision, Err: err, TraceID: traceID}
}
