package worker

import (
	"context"
	"time"

	"brandgen/internal/pipeline"
	"brandgen/internal/pkg/logger"
	"brandgen/internal/ports"
	"brandgen/internal/worker/queue"
)

// Popper is the trigger source; queue.RedisQueue in production.
type Popper interface {
	Pop(ctx context.Context, timeout time.Duration) (queue.Trigger, error)
}

// Runner starts one pipeline run; *pipeline.Pipeline in production.
type Runner interface {
	Run(ctx context.Context) (pipeline.Summary, error)
}

type Deps struct {
	Queue    Popper
	Pipeline Runner
	// Runs es opcional: historial de corridas terminadas.
	Runs       ports.RunLedger
	Log        *logger.Logger
	PopTimeout time.Duration
	// RetryDelay is the pause after a failed pop.
	RetryDelay time.Duration
}
