//go:build !wails

package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRunRedactsTokenByDefault(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"ergosum://auth/callback?token=secret123"}, &stdout, &stderr)

	if code != 0 {
		t.Fatalf("exit code = %d, want 0 (stderr: %s)", code, stderr.String())
	}
	out := stdout.String()
	if !strings.Contains(out, "ergosum://auth/callback\tauthenticated{token:[redacted]}") {
		t.Fatalf("stdout = %q", out)
	}
	if strings.Contains(out, "secret123") {
		t.Fatalf("token leaked: %q", out)
	}
}

func TestRunRevealPrintsTarget(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-reveal", "ergosum://auth/callback?token=secret123"}, &stdout, &stderr)

	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if !strings.Contains(stdout.String(), "https://ergosum.cc/auth/callback?token=secret123") {
		t.Fatalf("stdout = %q", stdout.String())
	}
}

func TestRunReportsFailuresAndNonLinks(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"ergosum://auth/callback", "https://example.com/x"}, &stdout, &stderr)

	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	out := stdout.String()
	if !strings.Contains(out, "failed{reason:oauth_failed}") {
		t.Fatalf("missing failure line: %q", out)
	}
	if !strings.Contains(out, "https://example.com/x\tnot a deep link") {
		t.Fatalf("missing non-link line: %q", out)
	}
}

func TestRunWithoutArgumentsPrintsUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run(nil, &stdout, &stderr); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
	if !strings.Contains(stderr.String(), "usage:") {
		t.Fatalf("stderr = %q", stderr.String())
	}
}
