// Package deeplink decides what an inbound ergosum:// link means for the
// shell: an authenticated OAuth callback, a failed one, or nothing at all.
package deeplink

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// Scheme is the custom protocol registered with the OS for this application.
const Scheme = "ergosum"

// Prefix is the case-sensitive scheme boundary every deep link starts with.
const Prefix = Scheme + "://"

// Fixed remote endpoints. These are not configurable.
const (
	CallbackURL    = "https://ergosum.cc/auth/callback?token="
	LoginFailedURL = "https://ergosum.cc/login?error=oauth_failed"
)

// FailureReason marks a callback that arrived without a token.
const FailureReason = "oauth_failed"

const tokenParam = "token"

var (
	// ErrMalformedLink marks a link with the scheme prefix that does not parse as a URL.
	ErrMalformedLink = errors.New("malformed deep link")
	// ErrMissingToken marks a callback without a non-empty token parameter.
	ErrMissingToken = errors.New("deep link has no token")
	// ErrNoActiveWindow marks a routable link that arrived while no window existed.
	ErrNoActiveWindow = errors.New("no active window")
)

// Kind classifies a routed link.
type Kind int

const (
	Ignored Kind = iota
	Authenticated
	Failed
)

func (k Kind) String() string {
	switch k {
	case Authenticated:
		return "authenticated"
	case Failed:
		return "failed"
	default:
		return "ignored"
	}
}

// Decision is the outcome of routing one link. The token is only reachable
// through Token and never appears in String or log output.
type Decision struct {
	Kind   Kind
	Reason string
	Err    error

	token string
}

// Token returns the extracted token for Authenticated decisions.
func (d Decision) Token() string {
	return d.token
}

// Target returns the navigation target for the decision. Ignored decisions
// have no target.
func (d Decision) Target() (string, bool) {
	switch d.Kind {
	case Authenticated:
		return CallbackURL + d.token, true
	case Failed:
		return LoginFailedURL, true
	default:
		return "", false
	}
}

func (d Decision) String() string {
	switch d.Kind {
	case Authenticated:
		return "authenticated{token:[redacted]}"
	case Failed:
		return "failed{reason:" + d.Reason + "}"
	default:
		return "ignored"
	}
}

// LogValue implements slog.LogValuer.
func (d Decision) LogValue() slog.Value {
	attrs := []slog.Attr{slog.String("kind", d.Kind.String())}
	if d.Reason != "" {
		attrs = append(attrs, slog.String("reason", d.Reason))
	}
	if d.Err != nil {
		attrs = append(attrs, slog.String("error", d.Err.Error()))
	}
	return slog.GroupValue(attrs...)
}

// IsDeepLink reports whether raw starts with the registered scheme prefix.
func IsDeepLink(raw string) bool {
	return strings.HasPrefix(raw, Prefix)
}

// Route classifies raw. It never fails: unparseable links are Ignored with
// Err wrapping ErrMalformedLink.
func Route(raw string) Decision {
	if !IsDeepLink(raw) {
		return Decision{Kind: Ignored}
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return Decision{Kind: Ignored, Err: fmt.Errorf("%w: %v", ErrMalformedLink, redactURLError(err))}
	}

	token := queryValue(parsed.RawQuery, tokenParam)
	if token == "" {
		return Decision{Kind: Failed, Reason: FailureReason, Err: ErrMissingToken}
	}
	return Decision{Kind: Authenticated, token: token}
}

// Resolve routes raw and returns its navigation target in one step.
func Resolve(raw string) (string, bool) {
	return Route(raw).Target()
}

// FindInArgs returns the first argument carrying the registered scheme.
func FindInArgs(args []string) (string, bool) {
	for _, arg := range args {
		if IsDeepLink(arg) {
			return arg, true
		}
	}
	return "", false
}

// queryValue returns the first value of key in rawQuery. Pairs split on "&"
// only, "+" reads as a space and broken percent escapes are kept verbatim,
// so one bad parameter never hides the others.
func queryValue(rawQuery, key string) string {
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		name, value, _ := strings.Cut(pair, "=")
		if decodeComponent(name) == key {
			return decodeComponent(value)
		}
	}
	return ""
}

func decodeComponent(s string) string {
	s = strings.ReplaceAll(s, "+", " ")
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

// Describe returns a log-safe summary of raw: scheme, host and path only.
func Describe(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" {
		return "<unparseable>"
	}
	return parsed.Scheme + "://" + parsed.Host + parsed.Path
}

// url.Error embeds the full input, which may carry the token.
func redactURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}
