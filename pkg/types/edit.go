package types

// EditOp enumerates the file mutation kinds the diff editor supports.
type EditOp string

const (
	EditReplace EditOp = "replace"
	EditInsert  EditOp = "insert"
	EditDelete  EditOp = "delete"
	EditAppend  EditOp = "append"
	EditPatch   EditOp = "patch"
)

// EditOperation describes one requested file mutation. Which fields are
// meaningful depends on Op:
//
//	replace: SearchPattern -> Replacement (global substring swap)
//	insert:  Content spliced in as a line at LineNumber (1-based)
//	delete:  inclusive line range [LineNumber, EndLineNumber]
//	append:  Content added with a separating newline
//	patch:   Patch holds unified patch text applied to the file
type EditOperation struct {
	Op            EditOp `json:"op"`
	Path          string `json:"path"`
	SearchPattern string `json:"search_pattern,omitempty"`
	Replacement   string `json:"replacement,omitempty"`
	LineNumber    int    `json:"line_number,omitempty"`
	EndLineNumber int    `json:"end_line_number,omitempty"`
	Content       string `json:"content,omitempty"`
	Patch         string `json:"patch,omitempty"`
}

// EditResult is the outcome of a single edit operation.
type EditResult struct {
	ID           string `json:"id"`
	Path         string `json:"path"`
	Success      bool   `json:"success"`
	Diff         string `json:"diff,omitempty"`
	LinesAdded   int    `json:"lines_added"`
	LinesRemoved int    `json:"lines_removed"`
	Error        string `json:"error,omitempty"`
}

// MultiEditResult aggregates per-file results for a batch and links back
// to the checkpoint taken before the batch started.
type MultiEditResult struct {
	CheckpointID    string       `json:"checkpoint_id,omitempty"`
	Results         []EditResult `json:"results"`
	SuccessfulFiles int          `json:"successful_files"`
	FailedFiles     int          `json:"failed_files"`
	Success         bool         `json:"success"`
}
