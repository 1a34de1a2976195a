package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"brandgen/internal/models"
	"brandgen/internal/pipeline"
	"brandgen/internal/pkg/logger"
	"brandgen/internal/ports"
	"brandgen/internal/worker/queue"
)

// Run consumes run triggers until ctx ends. Each trigger starts a pipeline
// run in the background; a trigger that arrives while a run is active is a
// no-op. Run waits for the active run before returning.
func Run(ctx context.Context, d Deps) error {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	log = log.WithComponent("worker")

	popTimeout := d.PopTimeout
	if popTimeout <= 0 {
		popTimeout = 30 * time.Second
	}
	retryDelay := d.RetryDelay
	if retryDelay <= 0 {
		retryDelay = time.Second
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			log.Info("worker context canceled, stopping")
			return ctx.Err()
		default:
		}

		trigger, err := d.Queue.Pop(ctx, popTimeout)
		if errors.Is(err, queue.ErrEmpty) {
			continue
		}
		if errors.Is(err, queue.ErrBadPayload) {
			// Redis respondió bien; se descarta el mensaje sin esperar.
			log.Warn("dropping unreadable trigger", "error", err.Error())
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				log.Info("worker stopping due to context cancellation")
				return ctx.Err()
			}

			log.Warn("queue pop error, retrying", "error", err.Error())
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
			}
			continue
		}

		wg.Add(1)
		go func(t queue.Trigger) {
			defer wg.Done()
			handleTrigger(ctx, log, d, t)
		}(trigger)
	}
}

func handleTrigger(ctx context.Context, log *logger.Logger, d Deps, t queue.Trigger) {
	tlog := &logger.Logger{Logger: log.With("trigger_id", t.ID, "source", t.Source)}
	tlog.Info("run triggered")
	startTime := time.Now()

	summary, err := d.Pipeline.Run(ctx)
	if errors.Is(err, pipeline.ErrRunInProgress) {
		tlog.Info("run already in progress, trigger ignored")
		return
	}
	recordRun(ctx, tlog, d.Runs, t, summary, err)

	if err != nil {
		tlog.Error("run failed",
			"run_id", summary.RunID,
			"error", err.Error(),
			"duration_ms", time.Since(startTime).Milliseconds(),
		)
		return
	}
	tlog.Info("run completed",
		"run_id", summary.RunID,
		"succeeded", summary.Succeeded,
		"total", summary.Total,
		"duration_ms", time.Since(startTime).Milliseconds(),
	)
}

func recordRun(ctx context.Context, log *logger.Logger, runs ports.RunLedger, t queue.Trigger, s pipeline.Summary, runErr error) {
	if runs == nil {
		return
	}
	rec := models.RunRecord{
		RunID:      s.RunID,
		TriggerID:  t.ID,
		Status:     models.RunDone,
		Total:      s.Total,
		Processed:  s.Processed,
		Succeeded:  s.Succeeded,
		StartedAt:  s.Start,
		FinishedAt: s.Start.Add(s.Elapsed),
	}
	if runErr != nil {
		rec.Status = models.RunFailed
		rec.ErrorText = runErr.Error()
	}

	// La corrida ya terminó aunque shutdown haya cancelado ctx.
	if err := runs.RecordRun(context.WithoutCancel(ctx), rec); err != nil {
		log.Warn("run history write failed", "run_id", s.RunID, "error", err.Error())
	}
}
