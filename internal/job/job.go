package job

import (
	"context"
	"time"
)

// State is the lifecycle state of an acquisition job.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Terminal reports whether the state admits no further transitions.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// job is the orchestrator's mutable record of one acquisition run. All
// fields are guarded by the orchestrator's mutex.
type job struct {
	source   string
	seq      int
	state    State
	progress int
	message  string

	newCount     int
	updatedCount int
	skippedCount int
	errorCount   int

	err       string
	startedAt time.Time
	endedAt   *time.Time

	cancel context.CancelFunc
}

// Snapshot is a point-in-time copy of a job's state, safe to hold after
// the orchestrator's lock is released.
type Snapshot struct {
	Source   string `json:"source"`
	Seq      int    `json:"seq"`
	State    State  `json:"state"`
	Running  bool   `json:"running"`
	Progress int    `json:"progress"`
	Message  string `json:"message,omitempty"`

	NewCount     int `json:"new_count"`
	UpdatedCount int `json:"updated_count"`
	SkippedCount int `json:"skipped_count"`
	ErrorCount   int `json:"error_count"`

	Err       string     `json:"error,omitempty"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

func (j *job) snapshot() Snapshot {
	return Snapshot{
		Source:       j.source,
		Seq:          j.seq,
		State:        j.state,
		Running:      !j.state.Terminal(),
		Progress:     j.progress,
		Message:      j.message,
		NewCount:     j.newCount,
		UpdatedCount: j.updatedCount,
		SkippedCount: j.skippedCount,
		ErrorCount:   j.errorCount,
		Err:          j.err,
		StartedAt:    j.startedAt,
		EndedAt:      j.endedAt,
	}
}
