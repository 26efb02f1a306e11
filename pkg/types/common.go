package types

import (
	"github.com/oklog/ulid/v2"
)

// RiskLevel classifies how dangerous an operation is. It drives the
// approval gate: low/medium may auto-approve, high/critical require
// confirmation unless policy disables it.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Rank returns a comparable ordering for risk levels. Unknown levels
// rank as high so a typo never silently downgrades safety.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	case RiskCritical:
		return 4
	default:
		return 3
	}
}

// MaxRisk returns the higher of two risk levels.
func MaxRisk(a, b RiskLevel) RiskLevel {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// JSONSchema represents a JSON Schema definition for tool parameters.
type JSONSchema map[string]any

// ID Generation Helpers
//
// ulid.Make() uses crypto/rand entropy and the current time, so ids are
// sortable by creation order within a process.

func GenerateID(prefix string) string {
	return prefix + "_" + ulid.Make().String()
}

func GenerateSessionID() string    { return GenerateID("ses") }
func GenerateTaskID() string       { return GenerateID("tsk") }
func GenerateStepID() string       { return GenerateID("stp") }
func GenerateCheckpointID() string { return GenerateID("ckpt") }
func GenerateApprovalID() string   { return GenerateID("apr") }
func GenerateEditID() string       { return GenerateID("edt") }
func GenerateExecutionID() string  { return GenerateID("exe") }
