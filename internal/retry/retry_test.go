package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")
var errFatal = errors.New("fatal")

func classify(err error) Action {
	if errors.Is(err, errFatal) {
		return Stop
	}
	return Retry
}

func TestDoSucceedsAfterRetries(t *testing.T) {
	t.Parallel()

	calls := 0
	var retried []int
	p := Policy{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		OnRetry:        func(attempt int, _ error, _ time.Duration) { retried = append(retried, attempt) },
	}
	got, err := Do(context.Background(), p, classify, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errTransient
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := Do(context.Background(), Policy{MaxAttempts: 5, InitialBackoff: time.Millisecond}, classify,
		func(context.Context) (int, error) {
			calls++
			return 0, errFatal
		})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	var perm *PermanentError
	assert.ErrorAs(t, err, &perm)
	assert.ErrorIs(t, err, errFatal)
}

func TestDoGivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := Do(context.Background(), Policy{MaxAttempts: 2, InitialBackoff: time.Millisecond}, classify,
		func(context.Context) (int, error) {
			calls++
			return 0, errTransient
		})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.ErrorIs(t, err, errTransient)
	assert.Contains(t, err.Error(), "failed after 2 attempts")
}

func TestDoHonoursCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	_, err := Do(ctx, Policy{MaxAttempts: 3, InitialBackoff: time.Hour}, classify,
		func(context.Context) (int, error) {
			cancel()
			return 0, errTransient
		})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoRejectsEmptyPolicy(t *testing.T) {
	t.Parallel()

	_, err := Do(context.Background(), Policy{}, classify, func(context.Context) (int, error) {
		return 1, nil
	})
	assert.ErrorIs(t, err, errNoAttempts)
}
