package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const (
	stateFileName  = "state.json"
	stagingDirName = "updates"
)

// HealthReport describes storage readiness.
type HealthReport struct {
	Ready         bool
	Path          string
	SchemaVersion int
}

// UpdateStatus is the persisted view of the updater.
type UpdateStatus struct {
	LastCheckAt     time.Time     `json:"lastCheckAt"`
	LastSeenVersion string        `json:"lastSeenVersion"`
	Downloaded      *UpdateRecord `json:"downloaded,omitempty"`
}

// Store owns local on-disk state operations.
type Store struct {
	mu      sync.RWMutex
	rootDir string
	path    string
	clock   clockwork.Clock
}

// New creates a store rooted at the provided directory.
func New(rootDir string) *Store {
	return NewWithClock(rootDir, clockwork.NewRealClock())
}

// NewWithClock creates a store that stamps records using clock.
func NewWithClock(rootDir string, clock clockwork.Clock) *Store {
	return &Store{
		rootDir: rootDir,
		path:    filepath.Join(rootDir, stateFileName),
		clock:   clock,
	}
}

// Path returns the full state file location.
func (s *Store) Path() string {
	return s.path
}

// StagingDir is where downloaded update payloads are kept.
func (s *Store) StagingDir() string {
	return filepath.Join(s.rootDir, stagingDirName)
}

// Bootstrap initializes the storage directory and state file. Calling it
// again keeps the existing install ID.
func (s *Store) Bootstrap(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("bootstrap context: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.rootDir, 0o755); err != nil {
		return fmt.Errorf("create storage directory: %w", err)
	}

	_, err := os.Stat(s.path)
	switch {
	case err == nil:
		snapshot, loadErr := s.loadLocked()
		if loadErr != nil {
			return fmt.Errorf("load existing state: %w", loadErr)
		}
		if snapshot.InstallID == "" {
			snapshot.InstallID = uuid.NewString()
			snapshot.Meta.UpdatedAt = s.now()
			return s.writeLocked(snapshot)
		}
		return nil
	case errors.Is(err, os.ErrNotExist):
		return s.writeLocked(newSnapshot(s.now()))
	default:
		return fmt.Errorf("inspect state file: %w", err)
	}
}

// Health verifies state readability and reports schema information.
func (s *Store) Health(ctx context.Context) (HealthReport, error) {
	snapshot, err := s.Load(ctx)
	if err != nil {
		return HealthReport{}, fmt.Errorf("load state for health: %w", err)
	}
	return HealthReport{
		Ready:         true,
		Path:          s.path,
		SchemaVersion: snapshot.SchemaVersion,
	}, nil
}

// Load returns the current snapshot.
func (s *Store) Load(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("load context: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, err := s.loadLocked()
	if err != nil {
		return Snapshot{}, fmt.Errorf("load state: %w", err)
	}
	return snapshot, nil
}

// InstallID returns the random identifier generated on first bootstrap.
func (s *Store) InstallID(ctx context.Context) (string, error) {
	snapshot, err := s.Load(ctx)
	if err != nil {
		return "", err
	}
	return snapshot.InstallID, nil
}

// RecordUpdateCheck stamps the time of a completed feed check and the latest
// version the feed advertised.
func (s *Store) RecordUpdateCheck(ctx context.Context, seenVersion string) (UpdateStatus, error) {
	var status UpdateStatus
	err := s.mutate(ctx, "record update check", func(snapshot *Snapshot, now time.Time) error {
		snapshot.LastUpdateCheckAt = now
		if v := strings.TrimSpace(seenVersion); v != "" {
			snapshot.LastSeenVersion = v
		}
		status = statusOf(*snapshot)
		return nil
	})
	return status, err
}

// RecordDownloadedUpdate remembers a verified payload in the staging
// directory. It replaces any earlier record.
func (s *Store) RecordDownloadedUpdate(ctx context.Context, record UpdateRecord) (UpdateRecord, error) {
	if strings.TrimSpace(record.Version) == "" {
		return UpdateRecord{}, fmt.Errorf("update version is required")
	}
	if strings.TrimSpace(record.Path) == "" {
		return UpdateRecord{}, fmt.Errorf("update path is required")
	}
	if strings.TrimSpace(record.SHA256) == "" {
		return UpdateRecord{}, fmt.Errorf("update checksum is required")
	}

	err := s.mutate(ctx, "record downloaded update", func(snapshot *Snapshot, now time.Time) error {
		if record.DownloadedAt.IsZero() {
			record.DownloadedAt = now
		}
		record.DownloadedAt = record.DownloadedAt.UTC()
		record.Path = filepath.Clean(record.Path)
		stored := record
		snapshot.DownloadedUpdate = &stored
		return nil
	})
	if err != nil {
		return UpdateRecord{}, err
	}
	return record, nil
}

// ClearDownloadedUpdate forgets the staged payload. The file itself is left
// for the caller to remove.
func (s *Store) ClearDownloadedUpdate(ctx context.Context) error {
	return s.mutate(ctx, "clear downloaded update", func(snapshot *Snapshot, _ time.Time) error {
		snapshot.DownloadedUpdate = nil
		return nil
	})
}

// UpdateStatus returns the persisted updater view.
func (s *Store) UpdateStatus(ctx context.Context) (UpdateStatus, error) {
	snapshot, err := s.Load(ctx)
	if err != nil {
		return UpdateStatus{}, err
	}
	return statusOf(snapshot), nil
}

func statusOf(snapshot Snapshot) UpdateStatus {
	status := UpdateStatus{
		LastCheckAt:     snapshot.LastUpdateCheckAt,
		LastSeenVersion: snapshot.LastSeenVersion,
	}
	if snapshot.DownloadedUpdate != nil {
		downloaded := *snapshot.DownloadedUpdate
		status.Downloaded = &downloaded
	}
	return status
}

func (s *Store) mutate(ctx context.Context, op string, fn func(*Snapshot, time.Time) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s context: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.loadLocked()
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	now := s.now()
	if err := fn(&snapshot, now); err != nil {
		return err
	}
	snapshot.Meta.UpdatedAt = now
	if err := s.writeLocked(snapshot); err != nil {
		return fmt.Errorf("persist %s: %w", op, err)
	}
	return nil
}

func (s *Store) now() time.Time {
	return s.clock.Now().UTC()
}

func (s *Store) loadLocked() (Snapshot, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return Snapshot{}, err
	}

	var snapshot Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("decode state json: %w", err)
	}
	if snapshot.SchemaVersion != SchemaVersionV1 {
		return Snapshot{}, fmt.Errorf("unsupported schema version: %d", snapshot.SchemaVersion)
	}
	return snapshot, nil
}

func (s *Store) writeLocked(snapshot Snapshot) error {
	encoded, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state json: %w", err)
	}

	tempFile, err := os.CreateTemp(s.rootDir, "state-*.json")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tempPath := tempFile.Name()

	if _, err := tempFile.Write(encoded); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return fmt.Errorf("write temp state: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return fmt.Errorf("sync temp state: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("close temp state: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
