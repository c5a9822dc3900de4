package models

import "time"

// StepResult is the outcome of a single step for a single row.
type StepResult struct {
	Success bool              `json:"success"`
	Skipped bool              `json:"skipped,omitempty"`
	Message string            `json:"message,omitempty"`
	Payload map[string]string `json:"payload,omitempty"`
}

// Succeeded returns a successful result with a message.
func Succeeded(message string) StepResult {
	return StepResult{Success: true, Message: message}
}

// Failed returns a failed result with a message.
func Failed(message string) StepResult {
	return StepResult{Success: false, Message: message}
}

// SkippedResult marks a step that did not run for this row.
func SkippedResult(reason string) StepResult {
	return StepResult{Success: true, Skipped: true, Message: reason}
}

// StepOutcome pairs a step name with its result, preserving pipeline order.
type StepOutcome struct {
	Step   string     `json:"step"`
	Result StepResult `json:"result"`
}

// RowResult is the outcome of running the full pipeline over one row.
type RowResult struct {
	TransactionID  string        `json:"transaction_id"`
	Steps          []StepOutcome `json:"steps"`
	OverallSuccess bool          `json:"overall_success"`
	Elapsed        time.Duration `json:"elapsed"`
}

// StepResult returns the recorded result for a step name, if present.
func (r *RowResult) StepResult(name string) (StepResult, bool) {
	for _, o := range r.Steps {
		if o.Step == name {
			return o.Result, true
		}
	}
	return StepResult{}, false
}

// BatchResult aggregates the row results of one batch run.
type BatchResult struct {
	Rows      []RowResult   `json:"rows"`
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Elapsed   time.Duration `json:"elapsed"`
}
