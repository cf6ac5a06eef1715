package update

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

var (
	ErrDownloadInProgress = errors.New("update download already in progress")
	ErrChecksumMismatch   = errors.New("update checksum mismatch")
)

// Downloader streams release payloads into a staging directory. Only one
// download runs at a time.
type Downloader struct {
	mu         sync.Mutex
	stagingDir string
	client     *http.Client
	cancel     context.CancelFunc
}

// NewDownloader creates a downloader writing into stagingDir.
func NewDownloader(stagingDir string, client *http.Client) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Downloader{
		stagingDir: stagingDir,
		client:     client,
	}
}

// StagingDir returns the directory verified payloads are moved into.
func (d *Downloader) StagingDir() string {
	return d.stagingDir
}

// Download fetches rel, verifies its SHA-256 and returns the staged path. A
// payload that fails verification is removed.
func (d *Downloader) Download(ctx context.Context, rel Release, onProgress OnProgress) (string, error) {
	if err := rel.validate(); err != nil {
		return "", err
	}

	dlCtx, cancel, err := d.startDownload(ctx)
	if err != nil {
		return "", err
	}
	defer cancel()
	defer d.finishDownload()

	if err := os.MkdirAll(d.stagingDir, 0o755); err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}

	req, err := http.NewRequestWithContext(dlCtx, http.MethodGet, rel.URL, nil)
	if err != nil {
		return "", fmt.Errorf("create download request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download update: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	totalBytes := resp.ContentLength
	if totalBytes <= 0 {
		totalBytes = rel.Size
	}

	tmpFile, err := os.CreateTemp(d.stagingDir, "download-*.part")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	keep := false
	defer func() {
		if !keep {
			os.Remove(tmpPath)
		}
	}()

	hash := sha256.New()
	w := io.MultiWriter(tmpFile, hash)

	var received int64
	lastPercent := -1.0
	buf := make([]byte, 32*1024)
	for {
		if err := dlCtx.Err(); err != nil {
			tmpFile.Close()
			return "", err
		}
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				tmpFile.Close()
				return "", fmt.Errorf("write temp file: %w", writeErr)
			}
			received += int64(n)
			percent := calcPercent(received, totalBytes)
			if onProgress != nil && math.Floor(percent) > lastPercent {
				lastPercent = math.Floor(percent)
				onProgress(Progress{
					Version:       rel.Version,
					Stage:         "downloading",
					BytesReceived: received,
					BytesTotal:    totalBytes,
					Percent:       percent,
				})
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			tmpFile.Close()
			return "", fmt.Errorf("read response: %w", readErr)
		}
	}
	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	if onProgress != nil {
		onProgress(Progress{
			Version:       rel.Version,
			Stage:         "verifying",
			BytesReceived: received,
			BytesTotal:    totalBytes,
			Percent:       100,
		})
	}

	sum := hex.EncodeToString(hash.Sum(nil))
	if !strings.EqualFold(sum, rel.SHA256) {
		return "", fmt.Errorf("%w: got %s", ErrChecksumMismatch, sum)
	}

	finalPath := filepath.Join(d.stagingDir, payloadName(rel))
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", fmt.Errorf("stage update: %w", err)
	}
	keep = true
	return finalPath, nil
}

// CancelDownload cancels an in-progress download.
func (d *Downloader) CancelDownload() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
}

// Downloading reports whether a download holds the slot.
func (d *Downloader) Downloading() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancel != nil
}

// startDownload atomically reserves the download slot and returns a cancellable context.
func (d *Downloader) startDownload(ctx context.Context) (context.Context, context.CancelFunc, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		return nil, nil, ErrDownloadInProgress
	}
	dlCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	return dlCtx, cancel, nil
}

func (d *Downloader) finishDownload() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancel = nil
}

// payloadName derives a file name from the download URL, falling back to a
// versioned default. The result never contains a path separator.
func payloadName(rel Release) string {
	fallback := "ErgoSum-" + strings.TrimPrefix(rel.Version, "v")
	u, err := url.Parse(rel.URL)
	if err != nil {
		return fallback
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == ".." || name == "/" || strings.ContainsAny(name, `\:`) {
		return fallback
	}
	return name
}
