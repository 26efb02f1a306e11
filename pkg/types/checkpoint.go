package types

import "time"

// FileSnapshotKind distinguishes files that existed at capture time from
// files the checkpointed operation is about to create.
type FileSnapshotKind string

const (
	// SnapshotModified means the file existed; restore overwrites it
	// with OriginalContent.
	SnapshotModified FileSnapshotKind = "modified"
	// SnapshotCreated means the file did not exist; restore deletes it.
	SnapshotCreated FileSnapshotKind = "created"
)

// FileSnapshot captures one file inside a checkpoint.
type FileSnapshot struct {
	Path            string           `json:"path"`
	Kind            FileSnapshotKind `json:"kind"`
	OriginalContent string           `json:"original_content,omitempty"`
}

// Checkpoint is a reversible snapshot of file contents taken strictly
// before a mutation. A checkpoint is consumed by restore: after a
// successful restore it is removed from the store.
type Checkpoint struct {
	ID          string         `json:"id"`
	SessionID   string         `json:"session_id"`
	Description string         `json:"description"`
	CreatedAt   time.Time      `json:"created_at"`
	Files       []FileSnapshot `json:"files"`
}
