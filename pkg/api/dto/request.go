package dto

// SubmitTaskRequest is the request body for submitting a task.
type SubmitTaskRequest struct {
	Request    string `json:"request" binding:"required"`
	SessionID  string `json:"session_id,omitempty"`
	WorkingDir string `json:"working_dir,omitempty"`
	// Wait makes the call synchronous: the response carries the final
	// pipeline result instead of a tracking id.
	Wait bool `json:"wait,omitempty"`
}

// ApprovalResponseRequest answers a pending approval request.
type ApprovalResponseRequest struct {
	Approved bool `json:"approved"`
	// Remember persists the answer as a rule for this request type.
	Remember bool `json:"remember,omitempty"`
}

// RewindRequest restores a session checkpoint.
type RewindRequest struct {
	CheckpointID string `json:"checkpoint_id" binding:"required"`
}
