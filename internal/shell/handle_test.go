package shell

import (
	"testing"
	"time"

	"ergosum/internal/deeplink"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var launchArgsPolicy = Policy{Delivery: LaunchArgs, RouteDelay: time.Second}

func TestDeliveryFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, OpenURLEvent, DeliveryFor("darwin"))
	assert.Equal(t, LaunchArgs, DeliveryFor("windows"))
	assert.Equal(t, LaunchArgs, DeliveryFor("linux"))
}

func TestHandleLaunchTransitions(t *testing.T) {
	t.Parallel()

	state, effects := Handle(State{}, Launched{Args: []string{"/opt/ergosum"}}, launchArgsPolicy)
	assert.Equal(t, Primary, state.Role)
	assert.Empty(t, effects)

	state, effects = Handle(State{}, Launched{Secondary: true}, launchArgsPolicy)
	assert.Equal(t, Secondary, state.Role)
	assert.Equal(t, []Effect{Quit{}}, effects)
}

func TestHandleSecondaryIgnoresEverything(t *testing.T) {
	t.Parallel()

	state := State{Role: Secondary}
	for _, ev := range []Event{
		Ready{},
		WindowOpened{Window: &fakeWindow{}},
		SecondInstance{Args: []string{"ergosum://auth/callback?token=abc"}},
		URLOpened{URL: "ergosum://auth/callback?token=abc"},
	} {
		next, effects := Handle(state, ev, launchArgsPolicy)
		assert.Equal(t, state, next)
		assert.Empty(t, effects)
	}
}

func TestHandleLaunchLinkIsScheduledOnReady(t *testing.T) {
	t.Parallel()

	link := "ergosum://auth/callback?token=abc123"
	state, effects := Handle(State{}, Launched{Args: []string{"app", link}, TraceID: "t1"}, launchArgsPolicy)
	require.Empty(t, effects)

	state, effects = Handle(state, Ready{}, launchArgsPolicy)
	require.Equal(t, []Effect{Schedule{URL: link, Delay: time.Second, TraceID: "t1"}}, effects)

	// A second Ready does not reschedule.
	_, effects = Handle(state, Ready{}, launchArgsPolicy)
	assert.Empty(t, effects)
}

func TestHandleDefaultDelay(t *testing.T) {
	t.Parallel()

	state, _ := Handle(State{}, Launched{Args: []string{"ergosum://auth/callback"}}, Policy{Delivery: LaunchArgs})
	_, effects := Handle(state, Ready{}, Policy{Delivery: LaunchArgs})
	require.Len(t, effects, 1)
	assert.Equal(t, DefaultRouteDelay, effects[0].(Schedule).Delay)
}

func TestHandleOpenURLDeliverySkipsLaunchArgs(t *testing.T) {
	t.Parallel()

	policy := Policy{Delivery: OpenURLEvent, RouteDelay: time.Second}
	state, _ := Handle(State{}, Launched{Args: []string{"ergosum://auth/callback?token=abc"}}, policy)
	_, effects := Handle(state, Ready{}, policy)
	assert.Empty(t, effects)
}

func TestHandleURLOpened(t *testing.T) {
	t.Parallel()

	window := &fakeWindow{}
	state := State{Role: Primary, Window: window}
	policy := Policy{Delivery: OpenURLEvent}

	_, effects := Handle(state, URLOpened{URL: "ergosum://auth/callback?token=abc123"}, policy)
	require.Len(t, effects, 1)
	nav, ok := effects[0].(Navigate)
	require.True(t, ok)
	assert.Equal(t, "https://ergosum.cc/auth/callback?token=abc123", nav.Target)
	assert.Equal(t, deeplink.Authenticated, nav.Decision.Kind)

	_, effects = Handle(state, URLOpened{URL: "https://example.com/notarealdeeplink"}, policy)
	assert.Empty(t, effects)
}

func TestHandleSecondInstance(t *testing.T) {
	t.Parallel()

	window := &fakeWindow{}
	state := State{Role: Primary, Window: window}

	tests := []struct {
		name    string
		args    []string
		effects []Effect
	}{
		{
			name:    "no link only focuses",
			args:    []string{"/opt/ergosum", "--flag"},
			effects: []Effect{Focus{}},
		},
		{
			name: "token link focuses then navigates",
			args: []string{"/opt/ergosum", "ergosum://auth/callback?token=abc123"},
			effects: []Effect{
				Focus{},
				Navigate{
					Target:   "https://ergosum.cc/auth/callback?token=abc123",
					Decision: deeplink.Route("ergosum://auth/callback?token=abc123"),
				},
			},
		},
		{
			name: "tokenless link focuses then navigates to login",
			args: []string{"ergosum://auth/callback"},
			effects: []Effect{
				Focus{},
				Navigate{
					Target:   "https://ergosum.cc/login?error=oauth_failed",
					Decision: deeplink.Route("ergosum://auth/callback"),
				},
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			next, effects := Handle(state, SecondInstance{Args: tt.args}, launchArgsPolicy)
			assert.Equal(t, state, next)
			assert.Equal(t, tt.effects, effects)
		})
	}
}

func TestHandleSecondInstanceMalformedLinkOnlyFocuses(t *testing.T) {
	t.Parallel()

	state := State{Role: Primary, Window: &fakeWindow{}}
	_, effects := Handle(state, SecondInstance{Args: []string{"ergosum://%zz?token=abc"}}, launchArgsPolicy)
	require.Len(t, effects, 2)
	assert.Equal(t, Focus{}, effects[0])
	drop, ok := effects[1].(Dropped)
	require.True(t, ok)
	assert.ErrorIs(t, drop.Err, deeplink.ErrMalformedLink)
}

func TestHandleNoWindowDropsDecision(t *testing.T) {
	t.Parallel()

	state := State{Role: Primary}

	_, effects := Handle(state, DeferredRoute{URL: "ergosum://auth/callback?token=abc"}, launchArgsPolicy)
	require.Len(t, effects, 1)
	drop, ok := effects[0].(Dropped)
	require.True(t, ok)
	assert.ErrorIs(t, drop.Err, deeplink.ErrNoActiveWindow)

	_, effects = Handle(state, SecondInstance{Args: []string{"ergosum://auth/callback?token=abc"}}, launchArgsPolicy)
	require.Len(t, effects, 1)
	assert.IsType(t, Dropped{}, effects[0])

	_, effects = Handle(state, SecondInstance{Args: []string{"/opt/ergosum"}}, launchArgsPolicy)
	assert.Empty(t, effects)
}

func TestHandleWindowSlot(t *testing.T) {
	t.Parallel()

	window := &fakeWindow{}
	state, _ := Handle(State{Role: Primary}, WindowOpened{Window: window}, launchArgsPolicy)
	assert.Same(t, window, state.Window)

	state, _ = Handle(state, WindowClosed{}, launchArgsPolicy)
	assert.Nil(t, state.Window)
}
