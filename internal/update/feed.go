// Package update checks the release feed, downloads newer builds into a
// staging directory and verifies them. Installing a staged build is left to
// the platform installer.
package update

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ergosum/internal/retry"

	"golang.org/x/mod/semver"
)

const maxFeedBytes = 64 * 1024

var (
	ErrInvalidVersion = errors.New("invalid version")
	ErrInvalidRelease = errors.New("invalid release")
)

// Release is one entry of the latest.json feed.
type Release struct {
	Version     string    `json:"version"`
	URL         string    `json:"url"`
	SHA256      string    `json:"sha256"`
	Size        int64     `json:"size,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	PublishedAt time.Time `json:"publishedAt,omitzero"`
}

func (r Release) validate() error {
	if _, err := canonical(r.Version); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRelease, err)
	}
	if !strings.HasPrefix(r.URL, "https://") && !strings.HasPrefix(r.URL, "http://") {
		return fmt.Errorf("%w: download url must be http(s)", ErrInvalidRelease)
	}
	if len(r.SHA256) != 64 {
		return fmt.Errorf("%w: sha256 must be 64 hex characters", ErrInvalidRelease)
	}
	return nil
}

// FeedURL fills the {os} and {arch} placeholders of a feed template.
func FeedURL(template, goos, goarch string) string {
	return strings.NewReplacer("{os}", goos, "{arch}", goarch).Replace(template)
}

// IsNewer reports whether candidate is a higher semantic version than
// current. A leading "v" is optional on both.
func IsNewer(current, candidate string) (bool, error) {
	cur, err := canonical(current)
	if err != nil {
		return false, err
	}
	next, err := canonical(candidate)
	if err != nil {
		return false, err
	}
	return semver.Compare(next, cur) > 0, nil
}

func canonical(version string) (string, error) {
	v := strings.TrimSpace(version)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return "", fmt.Errorf("%w: %q", ErrInvalidVersion, version)
	}
	return v, nil
}

type statusError struct {
	Code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("feed returned HTTP %d", e.Code)
}

// classifyFeedError retries network failures and server-side statuses.
func classifyFeedError(err error) retry.Action {
	var se *statusError
	if errors.As(err, &se) {
		switch {
		case se.Code == http.StatusTooManyRequests:
			return retry.After
		case se.Code >= 500:
			return retry.Retry
		default:
			return retry.Stop
		}
	}
	if errors.Is(err, ErrInvalidRelease) || errors.Is(err, context.Canceled) {
		return retry.Stop
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return retry.Stop
	}
	return retry.Retry
}

func fetchRelease(ctx context.Context, client *http.Client, feedURL string) (Release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return Release{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return Release{}, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxFeedBytes))
		return Release{}, &statusError{Code: resp.StatusCode}
	}

	var rel Release
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxFeedBytes)).Decode(&rel); err != nil {
		return Release{}, fmt.Errorf("decode feed: %w", err)
	}
	if err := rel.validate(); err != nil {
		return Release{}, err
	}
	return rel, nil
}
