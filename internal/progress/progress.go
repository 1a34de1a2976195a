// Package progress turns pipeline counters into status lines and keeps the
// append-only log a run shows to its operator.
package progress

import (
	"fmt"
	"sync"
	"time"

	"brandgen/internal/pkg/logger"
)

const percentMultiplier = 100

// Severity distinguishes log entries by presentation only.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "info"
}

// Entry is one line of the visible log.
type Entry struct {
	Time     time.Time
	Severity Severity
	Message  string
}

// String renders the entry as "[15:04:05] message".
func (e Entry) String() string {
	return fmt.Sprintf("[%s] %s", e.Time.Format(time.TimeOnly), e.Message)
}

// Snapshot is the (processed, total, succeeded) tuple reported after each batch.
type Snapshot struct {
	Processed int
	Total     int
	Succeeded int
}

// Percent returns min(processed, total) / total * 100, or 0 for an empty run.
func (s Snapshot) Percent() float64 {
	if s.Total <= 0 {
		return 0
	}
	return float64(min(s.Processed, s.Total)) / float64(s.Total) * percentMultiplier
}

// Status is the running status line.
func (s Snapshot) Status() string {
	return fmt.Sprintf("Processed: %d/%d | Succeeded: %d", min(s.Processed, s.Total), s.Total, s.Succeeded)
}

// FinalStatus is the status line shown once a run has ended.
func FinalStatus(succeeded, total int) string {
	return fmt.Sprintf("Done! Succeeded: %d/%d", succeeded, total)
}

// Presenter displays entries and progress as they happen.
type Presenter interface {
	Entry(Entry)
	Progress(s Snapshot, percent float64)
}

// Reporter collects the visible log of the current run and forwards every
// event to its presenters and the structured logger. Safe for concurrent use.
type Reporter struct {
	mu         sync.Mutex
	base       *logger.Logger
	log        *logger.Logger
	presenters []Presenter
	entries    []Entry
	last       Snapshot
	percent    float64
	now        func() time.Time
}

// NewReporter returns a reporter mirroring entries to log.
func NewReporter(log *logger.Logger, presenters ...Presenter) *Reporter {
	if log == nil {
		log = logger.NewDefault()
	}
	log = log.WithComponent("progress")
	return &Reporter{
		base:       log,
		log:        log,
		presenters: presenters,
		now:        time.Now,
	}
}

// Reset clears the log and counters for a new run.
func (r *Reporter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
	r.last = Snapshot{}
	r.percent = 0
}

// StartRun resets the reporter and tags mirrored log lines with runID.
func (r *Reporter) StartRun(runID string) {
	r.Reset()
	r.mu.Lock()
	r.log = r.base.WithRunID(runID)
	r.mu.Unlock()
}

func (r *Reporter) currentLog() *logger.Logger {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.log
}

// Info appends an informational entry.
func (r *Reporter) Info(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.currentLog().Info(msg)
	r.append(SeverityInfo, msg)
}

// Error appends an error entry. err may be nil.
func (r *Reporter) Error(err error, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	r.currentLog().WithError(err).Error(fmt.Sprintf(format, args...))
	r.append(SeverityError, msg)
}

func (r *Reporter) append(sev Severity, msg string) {
	r.mu.Lock()
	e := Entry{Time: r.now(), Severity: sev, Message: msg}
	r.entries = append(r.entries, e)
	presenters := r.presenters
	r.mu.Unlock()

	for _, p := range presenters {
		p.Entry(e)
	}
}

// Update records a new snapshot and returns the percentage shown, which
// never decreases within a run.
func (r *Reporter) Update(s Snapshot) float64 {
	r.mu.Lock()
	if pct := s.Percent(); pct > r.percent {
		r.percent = pct
	}
	r.last = s
	pct := r.percent
	presenters := r.presenters
	r.mu.Unlock()

	r.currentLog().Debug("progress", "processed", s.Processed, "total", s.Total, "succeeded", s.Succeeded, "percent", pct)
	for _, p := range presenters {
		p.Progress(s, pct)
	}
	return pct
}

// Entries returns a copy of the log.
func (r *Reporter) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Last returns the most recent snapshot and its displayed percentage.
func (r *Reporter) Last() (Snapshot, float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.percent
}
