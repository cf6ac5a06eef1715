package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"ergosum/internal/config"
	"ergosum/internal/settings"
	"ergosum/internal/storage"
	"ergosum/internal/telemetry"
	"ergosum/internal/update"
	"ergosum/internal/version"

	"github.com/jonboulle/clockwork"
)

// DefaultShutdownTimeout controls graceful shutdown time for the app.
const DefaultShutdownTimeout = 5 * time.Second

// Options configures an Application. Zero values take defaults.
type Options struct {
	Settings   settings.ShellSettings
	DataRoot   string
	Version    string
	Clock      clockwork.Clock
	Logger     *slog.Logger
	HTTPClient *http.Client
}

// Application wires the non-window parts of the shell: local state, the
// updater and telemetry.
type Application struct {
	logger         *slog.Logger
	settings       settings.ShellSettings
	version        string
	clock          clockwork.Clock
	store          *storage.Store
	updater        *update.Updater
	telemetry      *telemetry.Recorder
	startupMetrics telemetry.StartupEvent

	checking atomic.Bool
	bgMu     sync.Mutex
	bgCtx    context.Context
	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New creates an application with default local dependencies.
func New(s settings.ShellSettings) *Application {
	return NewWithOptions(Options{Settings: s})
}

// NewWithOptions creates an application from explicit options.
func NewWithOptions(opts Options) *Application {
	if strings.TrimSpace(opts.DataRoot) == "" {
		opts.DataRoot = config.DefaultDir()
	}
	if opts.Version == "" {
		opts.Version = version.Version
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := settings.Validate(settings.WithDefaults(opts.Settings))

	store := storage.NewWithClock(filepath.Join(opts.DataRoot, "state"), opts.Clock)
	bgCtx, bgCancel := context.WithCancel(context.Background())
	return &Application{
		logger:   opts.Logger,
		settings: s,
		version:  opts.Version,
		clock:    opts.Clock,
		store:    store,
		updater: update.New(update.Config{
			FeedURL:        s.Update.FeedURL,
			CurrentVersion: opts.Version,
			Disabled:       s.Update.Disabled,
			Timeout:        time.Duration(s.Update.TimeoutMS) * time.Millisecond,
			StagingDir:     store.StagingDir(),
			HTTPClient:     opts.HTTPClient,
			Logger:         opts.Logger,
		}, store),
		telemetry: telemetry.NewRecorderWithClock(opts.Clock),
		bgCtx:     bgCtx,
		bgCancel:  bgCancel,
	}
}

// Start boots storage and records startup metrics.
func (a *Application) Start(ctx context.Context) error {
	startedAt := a.clock.Now()
	if err := a.store.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap storage: %w", err)
	}
	installID, err := a.store.InstallID(ctx)
	if err != nil {
		return fmt.Errorf("read install id: %w", err)
	}

	a.startupMetrics = a.telemetry.MarkStartupComplete(startedAt)
	a.logger.Info(
		"application started",
		"version", a.version,
		"installId", installID,
		"storagePath", a.store.Path(),
		"startupDurationMs", a.startupMetrics.Duration.Milliseconds(),
	)
	return nil
}

// Stop cancels background update work and waits for it to finish.
func (a *Application) Stop(ctx context.Context) error {
	a.bgMu.Lock()
	a.bgCancel()
	a.bgMu.Unlock()
	a.updater.Downloader().CancelDownload()

	done := make(chan struct{})
	go func() {
		a.bgWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop background work: %w", ctx.Err())
	}
}

// Health checks whether local storage is initialized.
func (a *Application) Health(ctx context.Context) (storage.HealthReport, error) {
	report, err := a.store.Health(ctx)
	if err != nil {
		return storage.HealthReport{}, fmt.Errorf("storage health: %w", err)
	}
	return report, nil
}

// CheckForUpdates runs one check-and-download cycle. A cycle already in
// flight makes this call return a skipped result.
func (a *Application) CheckForUpdates(ctx context.Context, emit update.Emitter) (update.Result, error) {
	if !a.checking.CompareAndSwap(false, true) {
		return update.Result{Status: update.StatusSkipped, Current: a.version, Reason: "check already running"}, nil
	}
	defer a.checking.Store(false)
	return a.updater.CheckAndDownload(ctx, emit)
}

// CheckForUpdatesInBackground starts a cycle bound to the application's
// lifetime. It returns false after Stop.
func (a *Application) CheckForUpdatesInBackground(emit update.Emitter) bool {
	a.bgMu.Lock()
	defer a.bgMu.Unlock()
	if a.bgCtx.Err() != nil {
		return false
	}
	a.bgWG.Add(1)
	go func() {
		defer a.bgWG.Done()
		if _, err := a.CheckForUpdates(a.bgCtx, emit); err != nil {
			a.logger.Debug("background update check ended with error", "error", err)
		}
	}()
	return true
}

// UpdateStatus returns the persisted updater view.
func (a *Application) UpdateStatus(ctx context.Context) (storage.UpdateStatus, error) {
	status, err := a.store.UpdateStatus(ctx)
	if err != nil {
		return storage.UpdateStatus{}, fmt.Errorf("update status: %w", err)
	}
	return status, nil
}

// Telemetry returns the in-memory latency recorder.
func (a *Application) Telemetry() *telemetry.Recorder {
	return a.telemetry
}

// StartupMetrics returns the timing recorded by Start.
func (a *Application) StartupMetrics() telemetry.StartupEvent {
	return a.startupMetrics
}

// Settings returns the validated settings the application runs with.
func (a *Application) Settings() settings.ShellSettings {
	return a.settings
}

// Version returns build information with the running version.
func (a *Application) Version() version.Info {
	info := version.Get()
	info.Version = a.version
	return info
}
