package models

import "time"

// RunStatus is the final state of a pipeline run.
type RunStatus string

const (
	RunDone   RunStatus = "DONE"
	RunFailed RunStatus = "FAILED"
)

// RunRecord is one finished run in the run history.
type RunRecord struct {
	RunID      string    `json:"run_id"`
	TriggerID  string    `json:"trigger_id,omitempty"`
	Status     RunStatus `json:"status"`
	Total      int       `json:"total"`
	Processed  int       `json:"processed"`
	Succeeded  int       `json:"succeeded"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	ErrorText  string    `json:"error_text,omitempty"`
}
