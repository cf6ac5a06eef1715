package storage

import (
	"time"

	"github.com/google/uuid"
)

// SchemaVersionV1 is the initial on-disk schema version.
const SchemaVersionV1 = 1

// Snapshot is persisted as one atomic state file. It holds nothing derived
// from deep links; tokens and callback URLs never reach disk.
type Snapshot struct {
	SchemaVersion     int              `json:"schemaVersion"`
	InstallID         string           `json:"installId"`
	LastUpdateCheckAt time.Time        `json:"lastUpdateCheckAt,omitzero"`
	LastSeenVersion   string           `json:"lastSeenVersion,omitempty"`
	DownloadedUpdate  *UpdateRecord    `json:"downloadedUpdate,omitempty"`
	Meta              SnapshotMetadata `json:"meta"`
}

// SnapshotMetadata stores top-level bookkeeping.
type SnapshotMetadata struct {
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UpdateRecord describes an update payload staged on disk and waiting to be
// installed.
type UpdateRecord struct {
	Version      string    `json:"version"`
	Path         string    `json:"path"`
	SHA256       string    `json:"sha256"`
	DownloadedAt time.Time `json:"downloadedAt"`
}

func newSnapshot(now time.Time) Snapshot {
	return Snapshot{
		SchemaVersion: SchemaVersionV1,
		InstallID:     uuid.NewString(),
		Meta: SnapshotMetadata{
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}
