package pipeline

import (
	"sync"
	"time"

	"brandgen/internal/models"
	"brandgen/internal/progress"
)

// State is the lifecycle position of a run.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateProcessing
	StateDone
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateProcessing:
		return "processing"
	case StateDone:
		return "done"
	default:
		return "idle"
	}
}

// guard is the re-entrancy check at the entry of Run.
type guard struct {
	mu      sync.Mutex
	running bool
	current State
}

func (g *guard) acquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running {
		return false
	}
	g.running = true
	g.current = StateIdle
	return true
}

func (g *guard) set(s State) {
	g.mu.Lock()
	g.current = s
	g.mu.Unlock()
}

func (g *guard) release() {
	g.mu.Lock()
	g.running = false
	g.current = StateDone
	g.mu.Unlock()
}

func (g *guard) state() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

func (g *guard) active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}

// RunState holds the counters of one run. It is owned by the Run call and
// only mutated from the goroutine driving the batches.
type RunState struct {
	Total     int
	Processed int
	Succeeded int
	Start     time.Time
}

func (r *RunState) advance(processed, succeeded int) {
	r.Processed += processed
	r.Succeeded += succeeded
}

// Snapshot converts the counters for the progress reporter.
func (r RunState) Snapshot() progress.Snapshot {
	return progress.Snapshot{Processed: r.Processed, Total: r.Total, Succeeded: r.Succeeded}
}

// RenderResult pairs a record with its encoded artifact. A nil Artifact means
// the record failed to render or encode.
type RenderResult struct {
	Record   models.BrandRecord
	Artifact []byte
}

// OK reports whether the record produced an artifact.
func (r RenderResult) OK() bool { return len(r.Artifact) > 0 }

// Summary is what a run reports when it ends.
type Summary struct {
	RunState
	RunID   string
	Elapsed time.Duration
	Batches []progress.BatchStat
	// Err is set when the run aborted before processing any batch.
	Err error
}
