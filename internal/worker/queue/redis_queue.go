package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrEmpty: Pop expiró sin recibir nada.
var ErrEmpty = errors.New("queue empty")

// ErrBadPayload: el mensaje ya salió de la cola pero no se pudo leer.
var ErrBadPayload = errors.New("bad trigger payload")

// Trigger pide una corrida del pipeline.
type Trigger struct {
	ID          string    `json:"id"`
	RequestedAt time.Time `json:"requested_at"`
	Source      string    `json:"source,omitempty"`
}

// NewTrigger stamps a fresh id and time.
func NewTrigger(source string) Trigger {
	return Trigger{
		ID:          uuid.NewString(),
		RequestedAt: time.Now().UTC(),
		Source:      source,
	}
}

type RedisQueue struct {
	rdb       *redis.Client
	queueName string
}

func NewRedisQueue(rdb *redis.Client, queueName string) *RedisQueue {
	return &RedisQueue{rdb: rdb, queueName: queueName}
}

// Push encola al frente (LPUSH); Pop consume del otro extremo, FIFO.
func (q *RedisQueue) Push(ctx context.Context, t Trigger) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode trigger: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.queueName, raw).Err(); err != nil {
		return fmt.Errorf("redis lpush %s: %w", q.queueName, err)
	}
	return nil
}

// Pop bloquea hasta timeout (BRPOP). Devuelve ErrEmpty si no llegó nada.
func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) (Trigger, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.queueName).Result()
	if errors.Is(err, redis.Nil) {
		return Trigger{}, ErrEmpty
	}
	if err != nil {
		return Trigger{}, err
	}
	if len(res) < 2 {
		return Trigger{}, ErrEmpty
	}
	return Decode(res[1])
}

// Decode parses a queued payload. A bare string is accepted as the id.
// Failures wrap ErrBadPayload.
func Decode(payload string) (Trigger, error) {
	var t Trigger
	if err := json.Unmarshal([]byte(payload), &t); err != nil {
		if payload == "" {
			return Trigger{}, fmt.Errorf("%w: empty payload", ErrBadPayload)
		}
		return Trigger{ID: payload}, nil
	}
	if t.ID == "" {
		return Trigger{}, fmt.Errorf("%w: missing id", ErrBadPayload)
	}
	return t, nil
}
