// Package navigation decides which URLs stay inside the shell window and
// which go to the system browser.
package navigation

import (
	"slices"
	"strings"
)

// AppOrigin is the production web application.
const AppOrigin = "https://ergosum.cc"

// In-app origins. Matching is by prefix, like the web app's own redirects.
var allowedPrefixes = []string{
	AppOrigin,
	"https://ergosum-prod.fly.dev",
}

// oauthLaunchPath starts a Google sign-in that must run in the real browser
// so the ergosum:// callback can reach this process.
const oauthLaunchPath = "/api/auth/google"

// desktopMarker tells the backend to answer with a deep link instead of a
// web redirect.
const desktopMarker = "electron=true"

// Action is what the shell does with a navigation request.
type Action int

const (
	Allow Action = iota
	OpenExternal
)

func (a Action) String() string {
	if a == OpenExternal {
		return "open-external"
	}
	return "allow"
}

// Verdict is a classified navigation request. URL is what to open when
// Action is OpenExternal.
type Verdict struct {
	Action Action
	URL    string
}

// Rules is the policy in a form the page-side script evaluates. The script
// decides synchronously inside click handlers, so it cannot ask Go first.
type Rules struct {
	InApp     []string `json:"inApp"`
	OAuthPath string   `json:"oauthPath"`
	Marker    string   `json:"marker"`
}

// PageRules returns the rules Classify applies.
func PageRules() Rules {
	return Rules{
		InApp:     slices.Clone(allowedPrefixes),
		OAuthPath: oauthLaunchPath,
		Marker:    desktopMarker,
	}
}

// Classify applies the navigation policy to rawURL. OAuth launches are
// checked before the in-app origins because they live on the same host.
func Classify(rawURL string) Verdict {
	if strings.Contains(rawURL, oauthLaunchPath) {
		return Verdict{Action: OpenExternal, URL: markDesktop(rawURL)}
	}
	if IsInApp(rawURL) {
		return Verdict{Action: Allow, URL: rawURL}
	}
	return Verdict{Action: OpenExternal, URL: rawURL}
}

// IsInApp reports whether rawURL belongs to the web application.
func IsInApp(rawURL string) bool {
	for _, prefix := range allowedPrefixes {
		if strings.HasPrefix(rawURL, prefix) {
			return true
		}
	}
	return false
}

// Absolute resolves a root-relative path against AppOrigin.
func Absolute(rawURL string) string {
	if strings.HasPrefix(rawURL, "/") && !strings.HasPrefix(rawURL, "//") {
		return AppOrigin + rawURL
	}
	return rawURL
}

func markDesktop(rawURL string) string {
	separator := "?"
	if strings.Contains(rawURL, "?") {
		separator = "&"
	}
	return rawURL + separator + desktopMarker
}
