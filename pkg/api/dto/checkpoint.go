package dto

import "time"

// CheckpointResponse is a checkpoint summary; file contents stay server
// side.
type CheckpointResponse struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	FileCount   int       `json:"file_count"`
}

// CheckpointListResponse contains the checkpoints of one session.
type CheckpointListResponse struct {
	Checkpoints []CheckpointResponse `json:"checkpoints"`
}

// RewindResponse is the result of restoring a checkpoint.
type RewindResponse struct {
	Restored     bool   `json:"restored"`
	CheckpointID string `json:"checkpoint_id"`
}
