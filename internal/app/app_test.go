package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"ergosum/internal/settings"
	"ergosum/internal/update"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApplication(t *testing.T, opts Options) *Application {
	t.Helper()
	if opts.DataRoot == "" {
		opts.DataRoot = t.TempDir()
	}
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	application := NewWithOptions(opts)
	if err := application.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		if err := application.Stop(ctx); err != nil {
			t.Errorf("Stop() error = %v", err)
		}
	})
	return application
}

func feedServer(t *testing.T, version string, payload []byte) *httptest.Server {
	t.Helper()
	sum := sha256.Sum256(payload)
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/latest.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(update.Release{
			Version: version,
			URL:     srv.URL + "/dl/ErgoSum.zip",
			SHA256:  hex.EncodeToString(sum[:]),
		})
	})
	mux.HandleFunc("/dl/", func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestApplicationStartBootstrapsStorage(t *testing.T) {
	t.Parallel()

	application := newTestApplication(t, Options{Version: "1.0.0"})

	report, err := application.Health(context.Background())
	if err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	if !report.Ready {
		t.Fatal("storage not ready after Start")
	}
	if application.StartupMetrics().Duration < 0 {
		t.Fatalf("startup duration = %s", application.StartupMetrics().Duration)
	}
	if got := application.Version().Version; got != "1.0.0" {
		t.Fatalf("version = %q, want 1.0.0", got)
	}
}

func TestApplicationSettingsAreValidated(t *testing.T) {
	t.Parallel()

	application := newTestApplication(t, Options{
		Settings: settings.ShellSettings{DeepLink: settings.DeepLinkSettings{RouteDelayMS: 1}},
	})
	if got := application.Settings().DeepLink.RouteDelayMS; got != 250 {
		t.Fatalf("route delay = %d, want clamped 250", got)
	}
	if got := application.Settings().Window.Width; got != settings.DefaultWidth {
		t.Fatalf("width = %d, want default %d", got, settings.DefaultWidth)
	}
}

func TestApplicationCheckForUpdatesStagesRelease(t *testing.T) {
	t.Parallel()

	srv := feedServer(t, "2.0.0", []byte("next build"))
	application := newTestApplication(t, Options{
		Version:    "1.0.0",
		HTTPClient: srv.Client(),
		Settings: settings.ShellSettings{
			Update: settings.UpdateSettings{FeedURL: srv.URL + "/latest.json"},
		},
	})

	var mu sync.Mutex
	var events []string
	result, err := application.CheckForUpdates(context.Background(), func(name string, _ any) {
		mu.Lock()
		defer mu.Unlock()
		if name != update.EventProgress {
			events = append(events, name)
		}
	})
	if err != nil {
		t.Fatalf("CheckForUpdates() error = %v", err)
	}
	if result.Status != update.StatusAvailable {
		t.Fatalf("status = %q, want available", result.Status)
	}
	if len(events) != 2 || events[0] != update.EventAvailable || events[1] != update.EventDownloaded {
		t.Fatalf("events = %v", events)
	}

	status, err := application.UpdateStatus(context.Background())
	if err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	if status.Downloaded == nil || status.Downloaded.Version != "2.0.0" {
		t.Fatalf("downloaded = %+v, want 2.0.0", status.Downloaded)
	}
}

func TestApplicationSkipsUpdatesForDevBuild(t *testing.T) {
	t.Parallel()

	application := newTestApplication(t, Options{Version: "dev"})
	result, err := application.CheckForUpdates(context.Background(), nil)
	if err != nil {
		t.Fatalf("CheckForUpdates() error = %v", err)
	}
	if result.Status != update.StatusSkipped {
		t.Fatalf("status = %q, want skipped", result.Status)
	}
}

func TestApplicationBackgroundCheckStopsWithApplication(t *testing.T) {
	t.Parallel()

	srv := feedServer(t, "1.0.0", []byte("same build"))
	application := NewWithOptions(Options{
		DataRoot:   t.TempDir(),
		Version:    "1.0.0",
		HTTPClient: srv.Client(),
		Logger:     quietLogger(),
		Settings: settings.ShellSettings{
			Update: settings.UpdateSettings{FeedURL: srv.URL + "/latest.json"},
		},
	})
	if err := application.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	emitted := make(chan string, 4)
	if !application.CheckForUpdatesInBackground(func(name string, _ any) { emitted <- name }) {
		t.Fatal("background check refused before Stop")
	}
	select {
	case name := <-emitted:
		if name != update.EventNotAvailable {
			t.Fatalf("event = %q, want %q", name, update.EventNotAvailable)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("background check emitted nothing")
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := application.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if application.CheckForUpdatesInBackground(nil) {
		t.Fatal("background check accepted after Stop")
	}
}
