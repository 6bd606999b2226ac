package reconciler

import (
	"errors"
	"sync"
	"time"
)

// JobState is the orchestrator's externally visible state. Trigger
// requests arriving while Running get a deterministic "already running"
// answer instead of a second concurrent run.
type JobState string

const (
	JobStateIdle    JobState = "idle"
	JobStateRunning JobState = "running"
)

var ErrRunInProgress = errors.New("run_in_progress")

// RunSummary is the completion report for one reconciliation run.
type RunSummary struct {
	Trigger    string    `json:"trigger"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`

	// Months are the pinned month keys the run covered, newest first.
	Months []string `json:"months"`

	ClientsSucceeded int `json:"clientsSucceeded"`
	ClientsSkipped   int `json:"clientsSkipped"`
	ClientsFailed    int `json:"clientsFailed"`

	// ClientErrors maps a client name to the reason it skipped or failed.
	ClientErrors map[string]string `json:"clientErrors,omitempty"`
}

// JobControl owns the Idle/Running transition and the last summary.
type JobControl struct {
	mu      sync.Mutex
	state   JobState
	last    *RunSummary
	started time.Time
}

func NewJobControl() *JobControl {
	return &JobControl{state: JobStateIdle}
}

// TryStart transitions Idle to Running. It fails with ErrRunInProgress
// when a run is already active.
func (j *JobControl) TryStart(now time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state == JobStateRunning {
		return ErrRunInProgress
	}
	j.state = JobStateRunning
	j.started = now
	return nil
}

// Finish transitions back to Idle and records the run's summary.
func (j *JobControl) Finish(summary *RunSummary) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.state = JobStateIdle
	j.last = summary
}

// Status reports the current state, when the active run started (zero
// when idle), and the last completed summary.
func (j *JobControl) Status() (JobState, time.Time, *RunSummary) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state, j.started, j.last
}
