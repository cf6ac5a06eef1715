package update

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"ergosum/internal/retry"
	"ergosum/internal/storage"
)

// Status is the outcome of a feed check.
type Status string

const (
	StatusSkipped   Status = "skipped"
	StatusUpToDate  Status = "up-to-date"
	StatusAvailable Status = "available"
)

// Result describes one check.
type Result struct {
	Status  Status   `json:"status"`
	Current string   `json:"current"`
	Release *Release `json:"release,omitempty"`
	Reason  string   `json:"reason,omitempty"`
}

// DownloadedEvent is the payload of update-downloaded.
type DownloadedEvent struct {
	Version string `json:"version"`
	Path    string `json:"path"`
}

// ErrorEvent is the payload of update-error.
type ErrorEvent struct {
	Message string `json:"message"`
}

// StateStore persists updater bookkeeping.
type StateStore interface {
	RecordUpdateCheck(ctx context.Context, seenVersion string) (storage.UpdateStatus, error)
	RecordDownloadedUpdate(ctx context.Context, record storage.UpdateRecord) (storage.UpdateRecord, error)
	UpdateStatus(ctx context.Context) (storage.UpdateStatus, error)
	ClearDownloadedUpdate(ctx context.Context) error
}

// Config configures an Updater. Zero values take defaults.
type Config struct {
	FeedURL        string
	CurrentVersion string
	Disabled       bool
	Timeout        time.Duration
	StagingDir     string
	GOOS           string
	GOARCH         string
	HTTPClient     *http.Client
	Retry          retry.Policy
	Logger         *slog.Logger
}

// DefaultRetryPolicy is used when Config.Retry allows no attempts.
var DefaultRetryPolicy = retry.Policy{
	MaxAttempts:      3,
	InitialBackoff:   2 * time.Second,
	RateLimitBackoff: 30 * time.Second,
}

// Updater checks the feed and stages newer releases.
type Updater struct {
	cfg        Config
	feedURL    string
	feedClient *http.Client
	downloader *Downloader
	store      StateStore
	logger     *slog.Logger
}

// New builds an updater. store may be nil, in which case nothing is persisted.
func New(cfg Config, store StateStore) *Updater {
	if cfg.GOOS == "" {
		cfg.GOOS = runtime.GOOS
	}
	if cfg.GOARCH == "" {
		cfg.GOARCH = runtime.GOARCH
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry = DefaultRetryPolicy
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	feedClient := cfg.HTTPClient
	downloadClient := cfg.HTTPClient
	if feedClient == nil {
		feedClient = &http.Client{Timeout: cfg.Timeout}
		// Payloads are large; the caller's context bounds the download instead.
		downloadClient = &http.Client{}
	}

	u := &Updater{
		cfg:        cfg,
		feedURL:    FeedURL(cfg.FeedURL, cfg.GOOS, cfg.GOARCH),
		feedClient: feedClient,
		downloader: NewDownloader(cfg.StagingDir, downloadClient),
		store:      store,
		logger:     logger.With("component", "update"),
	}
	u.cfg.Retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
		u.logger.Warn("update feed request failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)
	}
	return u
}

// Downloader exposes the download slot, mainly for cancellation.
func (u *Updater) Downloader() *Downloader {
	return u.downloader
}

// Check fetches the feed and compares it with the running version.
func (u *Updater) Check(ctx context.Context) (Result, error) {
	current := strings.TrimSpace(u.cfg.CurrentVersion)
	if u.cfg.Disabled {
		return Result{Status: StatusSkipped, Current: current, Reason: "updates disabled"}, nil
	}
	if current == "" || current == "dev" {
		return Result{Status: StatusSkipped, Current: current, Reason: "development build"}, nil
	}
	if u.feedURL == "" {
		return Result{Status: StatusSkipped, Current: current, Reason: "no update feed configured"}, nil
	}

	rel, err := retry.Do(ctx, u.cfg.Retry, classifyFeedError, func(ctx context.Context) (Release, error) {
		return fetchRelease(ctx, u.feedClient, u.feedURL)
	})
	if err != nil {
		return Result{}, fmt.Errorf("check for updates: %w", err)
	}

	newer, err := IsNewer(current, rel.Version)
	if err != nil {
		return Result{}, fmt.Errorf("compare versions: %w", err)
	}

	if u.store != nil {
		if _, err := u.store.RecordUpdateCheck(ctx, rel.Version); err != nil {
			u.logger.Warn("failed to record update check", "error", err)
		}
	}

	if !newer {
		return Result{Status: StatusUpToDate, Current: current}, nil
	}
	return Result{Status: StatusAvailable, Current: current, Release: &rel}, nil
}

// Download stages rel and records it. A release that is already staged and
// still on disk is not fetched again; any other staged payload is discarded.
func (u *Updater) Download(ctx context.Context, rel Release, onProgress OnProgress) (string, error) {
	if staged, ok := u.alreadyStaged(ctx, rel); ok {
		return staged, nil
	}

	stagedPath, err := u.downloader.Download(ctx, rel, onProgress)
	if err != nil {
		return "", err
	}
	if u.store != nil {
		_, err := u.store.RecordDownloadedUpdate(ctx, storage.UpdateRecord{
			Version: rel.Version,
			Path:    stagedPath,
			SHA256:  strings.ToLower(rel.SHA256),
		})
		if err != nil {
			return stagedPath, fmt.Errorf("record downloaded update: %w", err)
		}
	}
	return stagedPath, nil
}

// CheckAndDownload runs a full cycle and reports each step through emit.
// Errors are emitted as update-error and also returned.
func (u *Updater) CheckAndDownload(ctx context.Context, emit Emitter) (Result, error) {
	if emit == nil {
		emit = func(string, any) {}
	}

	result, err := u.Check(ctx)
	if err != nil {
		u.fail(emit, err)
		return Result{}, err
	}

	switch result.Status {
	case StatusSkipped:
		u.logger.Debug("update check skipped", "reason", result.Reason)
		return result, nil
	case StatusUpToDate:
		u.logger.Info("no update available", "version", result.Current)
		emit(EventNotAvailable, result)
		return result, nil
	}

	rel := *result.Release
	u.logger.Info("update available", "current", result.Current, "version", rel.Version)
	emit(EventAvailable, rel)

	stagedPath, err := u.Download(ctx, rel, func(p Progress) {
		emit(EventProgress, p)
	})
	if err != nil {
		u.fail(emit, err)
		return result, err
	}

	u.logger.Info("update downloaded", "version", rel.Version, "path", stagedPath)
	emit(EventDownloaded, DownloadedEvent{Version: rel.Version, Path: stagedPath})
	return result, nil
}

func (u *Updater) fail(emit Emitter, err error) {
	if errors.Is(err, context.Canceled) {
		u.logger.Debug("update cycle cancelled")
		return
	}
	u.logger.Error("update failed", "error", err)
	emit(EventError, ErrorEvent{Message: err.Error()})
}

func (u *Updater) alreadyStaged(ctx context.Context, rel Release) (string, bool) {
	if u.store == nil {
		return "", false
	}
	status, err := u.store.UpdateStatus(ctx)
	if err != nil || status.Downloaded == nil {
		return "", false
	}
	d := status.Downloaded
	_, statErr := os.Stat(d.Path)
	if d.Version == rel.Version && strings.EqualFold(d.SHA256, rel.SHA256) && statErr == nil {
		return d.Path, true
	}

	u.discardStaged(ctx, *d)
	return "", false
}

// discardStaged drops a staged payload that no longer matches the feed.
func (u *Updater) discardStaged(ctx context.Context, d storage.UpdateRecord) {
	if err := os.Remove(d.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		u.logger.Warn("failed to remove stale update payload", "version", d.Version, "error", err)
	}
	if err := u.store.ClearDownloadedUpdate(ctx); err != nil {
		u.logger.Warn("failed to clear stale update record", "version", d.Version, "error", err)
		return
	}
	u.logger.Info("discarded stale update payload", "version", d.Version)
}
