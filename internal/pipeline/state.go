package pipeline

import (
	"sync"
	"sync/atomic"
)

// StopToken signals a cooperative stop request to a running pipeline.
// Stages poll it at source, link and article boundaries; nothing is
// interrupted mid-item.
type StopToken struct {
	stopped atomic.Bool
}

// Stop marks the token. Safe to call from any goroutine, idempotent.
func (t *StopToken) Stop() {
	t.stopped.Store(true)
}

// Stopped reports whether a stop has been requested.
func (t *StopToken) Stopped() bool {
	return t.stopped.Load()
}

// Snapshot is a point-in-time copy of the run state, safe to serialize.
// It never carries the stop token.
type Snapshot struct {
	IsRunning   bool   `json:"is_running"`
	Status      string `json:"status"`
	Progress    int    `json:"progress"`
	Total       int    `json:"total"`
	CurrentTask string `json:"current_task"`
}

const (
	statusIdle     = "Idle"
	statusStarting = "Starting"
	statusStopping = "Stopping..."
	taskNone       = "N/A"
)

// Tracker owns the in-memory state of the single pipeline run. All
// access goes through the mutex; admission control and stop delivery
// are decided under the same lock that guards the state.
type Tracker struct {
	mu    sync.Mutex
	state Snapshot
	stop  *StopToken
}

// NewTracker creates an idle tracker.
func NewTracker() *Tracker {
	return &Tracker{state: idleSnapshot()}
}

func idleSnapshot() Snapshot {
	return Snapshot{Status: statusIdle, CurrentTask: taskNone}
}

// TryStart attempts to admit a new run. At most one run can hold the
// tracker at a time.
// Parameters: none.
// Returns:
//   - *StopToken: fresh token for the admitted run, nil when rejected.
//   - bool: true when the run was admitted.
func (t *Tracker) TryStart() (*StopToken, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.IsRunning {
		return nil, false
	}
	token := &StopToken{}
	t.state = Snapshot{
		IsRunning:   true,
		Status:      statusStarting,
		CurrentTask: taskNone,
	}
	t.stop = token
	return token, true
}

// RequestStop marks the active run's stop token.
// Parameters: none.
// Returns:
//   - bool: true when an active run received the signal.
func (t *Tracker) RequestStop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.state.IsRunning || t.stop == nil {
		return false
	}
	t.stop.Stop()
	t.state.Status = statusStopping
	return true
}

// Reset returns the tracker to idle. Runs call this on every exit path.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = idleSnapshot()
	t.stop = nil
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// SetStage starts a named stage with a fresh progress counter.
// Parameters:
//   - status: stage label shown to status readers.
//   - total: number of items the stage will process.
func (t *Tracker) SetStage(status string, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Status = status
	t.state.Progress = 0
	t.state.Total = total
}

// SetTask updates the current task description.
func (t *Tracker) SetTask(task string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.CurrentTask = task
}

// SetProgress updates the progress counter within the current stage.
func (t *Tracker) SetProgress(progress int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Progress = progress
}

// SetStatus overrides the status label without touching progress.
func (t *Tracker) SetStatus(status string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Status = status
}
