package worker

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"brandgen/internal/models"
	"brandgen/internal/pipeline"
	"brandgen/internal/pkg/logger"
	"brandgen/internal/worker/queue"
)

// scriptedQueue hands out the scripted results. Once drained it reports an
// empty queue and, when cancel is set, stops the worker.
type scriptedQueue struct {
	mu      sync.Mutex
	results []popResult
	cancel  context.CancelFunc
}

type popResult struct {
	trigger queue.Trigger
	err     error
}

func (q *scriptedQueue) Pop(ctx context.Context, _ time.Duration) (queue.Trigger, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.results) == 0 {
		if q.cancel != nil {
			q.cancel()
		}
		time.Sleep(time.Millisecond)
		return queue.Trigger{}, queue.ErrEmpty
	}
	r := q.results[0]
	q.results = q.results[1:]
	return r.trigger, r.err
}

type fakeRunner struct {
	calls   atomic.Int32
	release chan struct{}
	running atomic.Bool
}

func (r *fakeRunner) Run(ctx context.Context) (pipeline.Summary, error) {
	r.calls.Add(1)
	if !r.running.CompareAndSwap(false, true) {
		return pipeline.Summary{}, pipeline.ErrRunInProgress
	}
	defer r.running.Store(false)
	if r.release != nil {
		<-r.release
	}
	return pipeline.Summary{RunID: "run-1"}, nil
}

func bufferLogger() (*logger.Logger, *syncBuffer) {
	buf := &syncBuffer{}
	return logger.New(logger.Config{Level: "debug", Format: "json", Output: buf}), buf
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunStartsPipelinePerTrigger(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := &scriptedQueue{
		cancel: cancel,
		results: []popResult{
			{err: queue.ErrEmpty},
			{trigger: queue.NewTrigger("api")},
		},
	}
	runner := &fakeRunner{}
	log, buf := bufferLogger()

	err := Run(ctx, Deps{Queue: q, Pipeline: runner, Log: log, PopTimeout: time.Millisecond})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if runner.calls.Load() != 1 {
		t.Errorf("expected 1 run, got %d", runner.calls.Load())
	}
	if !strings.Contains(buf.String(), "run completed") {
		t.Errorf("expected completion log, got: %s", buf.String())
	}
}

func TestRunIgnoresTriggersDuringActiveRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := &fakeRunner{release: make(chan struct{})}

	q := &scriptedQueue{results: []popResult{{trigger: queue.NewTrigger("api")}}}
	log, buf := bufferLogger()

	done := make(chan error, 1)
	go func() { done <- Run(ctx, Deps{Queue: q, Pipeline: runner, Log: log}) }()

	waitFor(t, func() bool { return runner.running.Load() })

	// A second trigger while the first run is blocked.
	q.mu.Lock()
	q.results = append(q.results, popResult{trigger: queue.NewTrigger("api")})
	q.cancel = cancel
	q.mu.Unlock()

	waitFor(t, func() bool { return strings.Contains(buf.String(), "trigger ignored") })
	close(runner.release)

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if runner.calls.Load() != 2 {
		t.Errorf("expected 2 run attempts, got %d", runner.calls.Load())
	}
}

func TestRunRetriesAfterPopError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := &scriptedQueue{
		cancel: cancel,
		results: []popResult{
			{err: errors.New("connection reset")},
			{trigger: queue.NewTrigger("api")},
		},
	}
	runner := &fakeRunner{}
	log, buf := bufferLogger()

	_ = Run(ctx, Deps{Queue: q, Pipeline: runner, Log: log, RetryDelay: time.Millisecond})

	if runner.calls.Load() != 1 {
		t.Errorf("expected the trigger after the error to run, got %d runs", runner.calls.Load())
	}
	if !strings.Contains(buf.String(), "queue pop error") {
		t.Errorf("expected pop error to be logged, got: %s", buf.String())
	}
}

func TestRunDropsBadPayloadWithoutBackoff(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, decodeErr := queue.Decode(`{}`)
	q := &scriptedQueue{
		cancel: cancel,
		results: []popResult{
			{err: decodeErr},
			{trigger: queue.NewTrigger("api")},
		},
	}
	runner := &fakeRunner{}
	log, buf := bufferLogger()

	_ = Run(ctx, Deps{Queue: q, Pipeline: runner, Log: log, RetryDelay: time.Hour})

	if runner.calls.Load() != 1 {
		t.Errorf("expected the next trigger to run right away, got %d runs", runner.calls.Load())
	}
	out := buf.String()
	if !strings.Contains(out, "dropping unreadable trigger") || strings.Contains(out, "queue pop error") {
		t.Errorf("expected the payload to be dropped without a retry, got: %s", out)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

type memRuns struct {
	mu   sync.Mutex
	recs []models.RunRecord
}

func (m *memRuns) RecordRun(_ context.Context, rec models.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return nil
}

type failingRunner struct{}

func (failingRunner) Run(context.Context) (pipeline.Summary, error) {
	return pipeline.Summary{RunID: "run-9"}, errors.New("no data to process")
}

func TestRunRecordsHistory(t *testing.T) {
	tests := []struct {
		name       string
		runner     Runner
		wantStatus models.RunStatus
		wantError  string
	}{
		{"completed", &fakeRunner{}, models.RunDone, ""},
		{"failed", failingRunner{}, models.RunFailed, "no data to process"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			trigger := queue.NewTrigger("api")
			q := &scriptedQueue{cancel: cancel, results: []popResult{{trigger: trigger}}}
			runs := &memRuns{}

			_ = Run(ctx, Deps{Queue: q, Pipeline: tt.runner, Runs: runs, Log: logger.Discard()})

			if len(runs.recs) != 1 {
				t.Fatalf("expected 1 run record, got %d", len(runs.recs))
			}
			rec := runs.recs[0]
			if rec.TriggerID != trigger.ID || rec.Status != tt.wantStatus || rec.ErrorText != tt.wantError {
				t.Errorf("unexpected record: %+v", rec)
			}
		})
	}
}
