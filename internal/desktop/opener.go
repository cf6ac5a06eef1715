package desktop

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"ergosum/internal/navigation"

	"golang.org/x/time/rate"
)

var (
	ErrExternalThrottled = errors.New("too many external opens")
	ErrUnsupportedURL    = errors.New("unsupported external url")
)

// externalOpener hands URLs to the system browser. A page stuck in a
// redirect loop cannot spawn an unbounded number of browser tabs.
type externalOpener struct {
	limiter *rate.Limiter
	open    func(ctx context.Context, url string)
}

func newExternalOpener(open func(ctx context.Context, url string)) *externalOpener {
	return &externalOpener{
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 3),
		open:    open,
	}
}

// Open resolves root-relative paths against the app origin and opens the
// result. Only http, https and mailto are opened.
func (o *externalOpener) Open(ctx context.Context, raw string) (string, error) {
	target := navigation.Absolute(strings.TrimSpace(raw))
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedURL, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "mailto":
	default:
		return "", fmt.Errorf("%w: scheme %q", ErrUnsupportedURL, u.Scheme)
	}
	if !o.limiter.Allow() {
		return "", ErrExternalThrottled
	}
	o.open(ctx, target)
	return target, nil
}

// hostOf is what gets logged for an external URL.
func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "<none>"
	}
	return u.Host
}
