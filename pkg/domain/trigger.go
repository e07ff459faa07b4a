package domain

import (
	"time"
)

// DateLayout is the date format of the collector CSV
const DateLayout = "2006-01-02"

// TriggerRequest holds the parameters of one trigger
type TriggerRequest struct {
	NYTToken  string `json:"nyt_token"`
	StartDate string `json:"start_date"`
}

// TriggerState is a step of the trigger pipeline
type TriggerState string

const (
	TriggerStateIdle          TriggerState = "idle"
	TriggerStateValidating    TriggerState = "validating"
	TriggerStateRefreshing    TriggerState = "refreshing"
	TriggerStatePlotting      TriggerState = "plotting"
	TriggerStateUploadingData TriggerState = "uploading_data"
	TriggerStateUploadingPlot TriggerState = "uploading_plot"
	TriggerStateDone          TriggerState = "done"
	TriggerStateFailed        TriggerState = "failed"
)

// IsTerminal reports whether no further transition can leave the state
func (s TriggerState) IsTerminal() bool {
	return s == TriggerStateDone || s == TriggerStateFailed
}

// TriggerMode selects how collector output reaches the caller
type TriggerMode string

const (
	// TriggerModeBatch waits for the whole pipeline and answers once
	TriggerModeBatch TriggerMode = "batch"
	// TriggerModeStream forwards collector output line by line
	TriggerModeStream TriggerMode = "stream"
)

// ParseTriggerMode converts a configuration or query value to a mode
func ParseTriggerMode(s string) (TriggerMode, bool) {
	switch TriggerMode(s) {
	case TriggerModeBatch:
		return TriggerModeBatch, true
	case TriggerModeStream:
		return TriggerModeStream, true
	default:
		return "", false
	}
}

// Upload describes one object written to the bucket
type Upload struct {
	Bucket    string    `json:"bucket"`
	ObjectKey string    `json:"object_key"`
	LocalPath string    `json:"local_path"`
	Size      int64     `json:"size"`
	At        time.Time `json:"at"`
}

// TriggerRecord is the observable snapshot of one trigger
type TriggerRecord struct {
	ID          string       `json:"id"`
	State       TriggerState `json:"state"`
	Mode        TriggerMode  `json:"mode"`
	StartDate   string       `json:"start_date,omitempty"`
	StartedAt   time.Time    `json:"started_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	FailedStage TriggerState `json:"failed_stage,omitempty"`
	Error       string       `json:"error,omitempty"`
	ExitCode    *int         `json:"exit_code,omitempty"`
	Lines       int          `json:"lines"`
	Uploads     []Upload     `json:"uploads,omitempty"`
}
