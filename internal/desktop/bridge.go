package desktop

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ergosum/internal/navigation"
	"ergosum/internal/shell"
	"ergosum/internal/storage"
	"ergosum/internal/update"
	"ergosum/internal/version"

	"github.com/jonboulle/clockwork"
	"github.com/wailsapp/wails/v2/pkg/options"
)

const shutdownFlushTimeout = 2 * time.Second

// chromeRefreshInterval is how often the page script is re-run. Wails only
// reports DOM ready for pages it serves, not for the remote app, so every
// remote page load is caught by this refresh instead.
const chromeRefreshInterval = 500 * time.Millisecond

// ApplicationService captures app methods used by Wails bindings.
type ApplicationService interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) (storage.HealthReport, error)
	CheckForUpdates(ctx context.Context, emit update.Emitter) (update.Result, error)
	CheckForUpdatesInBackground(emit update.Emitter) bool
	UpdateStatus(ctx context.Context) (storage.UpdateStatus, error)
	Version() version.Info
}

// Coordinator is the shell dispatch loop as seen from Wails callbacks.
type Coordinator interface {
	Ready() bool
	AttachWindow(w shell.Window) bool
	DetachWindow() bool
	SecondInstance(args []string, workingDirectory string) bool
	OpenURL(rawURL string) bool
	Flush(ctx context.Context) error
}

// WailsBridge connects Wails lifecycle callbacks to the coordinator and
// exposes backend methods to the frontend.
type WailsBridge struct {
	app   ApplicationService
	coord Coordinator
	ops   runtimeOps

	logger *slog.Logger
	opener *externalOpener
	clock  clockwork.Clock

	refreshStop chan struct{}
	refreshDone chan struct{}

	mu          sync.RWMutex
	ctx         context.Context
	started     bool
	shown       bool
	startupErr  error
	shutdownErr error
}

// NewWailsBridge creates a binding bridge for a running app service.
func NewWailsBridge(app ApplicationService, coord Coordinator, logger *slog.Logger) *WailsBridge {
	return newWailsBridge(app, coord, logger, wailsRuntime())
}

func newWailsBridge(app ApplicationService, coord Coordinator, logger *slog.Logger, ops runtimeOps) *WailsBridge {
	if logger == nil {
		logger = slog.Default()
	}
	b := &WailsBridge{
		app:    app,
		coord:  coord,
		ops:    ops,
		logger: logger.With("component", "desktop"),
		clock:  clockwork.NewRealClock(),
		ctx:    context.Background(),
	}
	b.opener = newExternalOpener(ops.openBrowser)
	return b
}

// Startup is called by Wails at app startup. The window exists from here on,
// so the coordinator is told it is ready and handed the window.
func (b *WailsBridge) Startup(ctx context.Context) {
	b.mu.Lock()
	b.ctx = ctx
	b.started = true
	b.startupErr = b.app.Start(ctx)
	startupErr := b.startupErr
	b.mu.Unlock()

	if startupErr != nil {
		b.logger.Error("application startup failed", "error", startupErr)
	}

	b.coord.Ready()
	b.coord.AttachWindow(newWailsWindow(ctx, b.ops))
	b.reveal(ctx)
	b.startChromeRefresh(ctx)

	if startupErr == nil {
		b.app.CheckForUpdatesInBackground(b.emitUpdateEvent)
	}
}

// DomReady is called by Wails after each load of a page it serves. The
// remote app never triggers it.
func (b *WailsBridge) DomReady(ctx context.Context) {
	b.reveal(ctx)
	b.ops.execJS(ctx, chromeScript())
}

// reveal shows the window the first time it is called. The window starts
// hidden so the first paint is not a blank frame.
func (b *WailsBridge) reveal(ctx context.Context) {
	b.mu.Lock()
	first := !b.shown
	b.shown = true
	b.mu.Unlock()

	if first {
		b.ops.show(ctx)
	}
}

func (b *WailsBridge) startChromeRefresh(ctx context.Context) {
	b.mu.Lock()
	if b.refreshStop != nil {
		b.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	b.refreshStop = stop
	b.refreshDone = done
	b.mu.Unlock()

	ticker := b.clock.NewTicker(chromeRefreshInterval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		script := chromeScript()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				b.ops.execJS(ctx, script)
			}
		}
	}()
}

func (b *WailsBridge) stopChromeRefresh() {
	b.mu.Lock()
	stop, done := b.refreshStop, b.refreshDone
	b.refreshStop, b.refreshDone = nil, nil
	b.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// BeforeClose is called by Wails when the window is asked to close. The
// window slot is emptied; closing proceeds.
func (b *WailsBridge) BeforeClose(ctx context.Context) bool {
	b.coord.DetachWindow()
	return false
}

// Shutdown is called by Wails at app shutdown.
func (b *WailsBridge) Shutdown(ctx context.Context) {
	b.stopChromeRefresh()
	b.coord.DetachWindow()

	flushCtx, cancel := context.WithTimeout(ctx, shutdownFlushTimeout)
	defer cancel()
	if err := b.coord.Flush(flushCtx); err != nil {
		b.logger.Debug("coordinator flush on shutdown", "error", err)
	}

	if err := b.app.Stop(ctx); err != nil {
		b.mu.Lock()
		b.shutdownErr = fmt.Errorf("shutdown app: %w", err)
		b.mu.Unlock()
		b.logger.Error("application shutdown failed", "error", err)
	}
}

// SecondInstance receives the arguments of a redundant launch from the
// Wails single-instance lock.
func (b *WailsBridge) SecondInstance(data options.SecondInstanceData) {
	b.coord.SecondInstance(data.Args, data.WorkingDirectory)
}

// OpenURL receives the macOS open-url event.
func (b *WailsBridge) OpenURL(rawURL string) {
	b.coord.OpenURL(rawURL)
}

// StartupError returns the startup error string if startup failed.
func (b *WailsBridge) StartupError() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.startupErr == nil {
		return ""
	}
	return b.startupErr.Error()
}

// ShutdownError returns the shutdown error, if any.
func (b *WailsBridge) ShutdownError() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.shutdownErr
}

// Health returns backend health for frontend readiness checks.
func (b *WailsBridge) Health() (storage.HealthReport, error) {
	ctx, err := b.requestContext()
	if err != nil {
		return storage.HealthReport{}, err
	}
	report, err := b.app.Health(ctx)
	if err != nil {
		return storage.HealthReport{}, fmt.Errorf("health: %w", err)
	}
	return report, nil
}

// OpenExternal opens url in the system browser. Root-relative paths are
// resolved against the web app.
func (b *WailsBridge) OpenExternal(url string) error {
	b.mu.RLock()
	ctx := b.ctx
	b.mu.RUnlock()

	target, err := b.opener.Open(ctx, url)
	if err != nil {
		b.logger.Warn("external open refused", "error", err)
		return fmt.Errorf("open external: %w", err)
	}
	b.logger.Debug("opened external url", "host", hostOf(target))
	return nil
}

// ShouldNavigate applies the navigation policy to a page navigation. It
// returns false after handing the URL to the system browser.
func (b *WailsBridge) ShouldNavigate(url string) bool {
	verdict := navigation.Classify(url)
	if verdict.Action == navigation.Allow {
		return true
	}
	if err := b.OpenExternal(verdict.URL); err != nil {
		b.logger.Debug("navigation blocked", "action", verdict.Action.String(), "error", err)
	}
	return false
}

// CheckForUpdates runs an update cycle on behalf of the frontend. Progress
// is delivered as events.
func (b *WailsBridge) CheckForUpdates() (update.Result, error) {
	ctx, err := b.requestContext()
	if err != nil {
		return update.Result{}, err
	}
	return b.app.CheckForUpdates(ctx, b.emitUpdateEvent)
}

// UpdateStatus returns the persisted updater state.
func (b *WailsBridge) UpdateStatus() (storage.UpdateStatus, error) {
	ctx, err := b.requestContext()
	if err != nil {
		return storage.UpdateStatus{}, err
	}
	return b.app.UpdateStatus(ctx)
}

// AppVersion returns build information.
func (b *WailsBridge) AppVersion() version.Info {
	return b.app.Version()
}

func (b *WailsBridge) emitUpdateEvent(eventName string, payload any) {
	b.mu.RLock()
	ctx := b.ctx
	b.mu.RUnlock()
	b.ops.emit(ctx, eventName, payload)
}

func (b *WailsBridge) requestContext() (context.Context, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.started {
		return nil, fmt.Errorf("wails bridge is not started")
	}
	if b.startupErr != nil {
		return nil, fmt.Errorf("wails bridge startup failed: %w", b.startupErr)
	}
	return b.ctx, nil
}
