package handlers

import (
	"net/http"

	"brandgen/internal/httpkit"
	"brandgen/internal/pkg/errors"
	"brandgen/internal/worker/queue"
)

// Generate queues a pipeline run for the worker.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) error {
	if h.triggers == nil {
		return errors.Unavailable("trigger queue")
	}

	t := queue.NewTrigger("api")
	if err := h.triggers.Push(r.Context(), t); err != nil {
		return errors.WrapWithCode(err, errors.CodeUnavailable, "generate.enqueue", "failed to queue run")
	}

	h.log.FromContext(r.Context()).Info("run queued", "trigger_id", t.ID)
	httpkit.WriteJSON(w, http.StatusAccepted, map[string]any{
		"success":    true,
		"trigger_id": t.ID,
	})
	return nil
}
