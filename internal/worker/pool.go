package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"officine/internal/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueEmail = "jobs:email"

	// MaxAttempts is how many times a job runs before it goes to the DLQ.
	MaxAttempts = 3
)

// ErrQueueDisabled is returned when no Redis client is configured.
var ErrQueueDisabled = errors.New("job queue disabled")

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// Handler processes one job payload. A returned error schedules a retry.
type Handler func(ctx context.Context, payload json.RawMessage) error

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueEmail pushes an email job to Redis.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload EmailJobPayload) error {
	return d.enqueue(ctx, QueueEmail, "email", payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload any) error {
	if d == nil || d.rdb == nil {
		return ErrQueueDisabled
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return push(ctx, d.rdb, queue, Job{Type: jobType, Payload: data})
}

func push(ctx context.Context, rdb *redis.Client, queue string, job Job) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return rdb.LPush(ctx, queue, encoded).Err()
}

// Pool consumes job queues with a fixed number of goroutines.
type Pool struct {
	rdb      *redis.Client
	handlers map[string]Handler
	// backoff between a failure and the retry push
	backoff func(attempt int) time.Duration
}

func NewPool(rdb *redis.Client) *Pool {
	return &Pool{
		rdb:      rdb,
		handlers: make(map[string]Handler),
		backoff:  func(attempt int) time.Duration { return time.Duration(attempt) * 2 * time.Second },
	}
}

// Handle registers the handler of one queue.
func (p *Pool) Handle(queue string, h Handler) { p.handlers[queue] = h }

// Start launches numWorkers goroutines consuming every registered queue.
// Each goroutine blocks on BRPOP and is idle when queues are empty.
func (p *Pool) Start(ctx context.Context, numWorkers int) {
	queues := make([]string, 0, len(p.handlers))
	for q := range p.handlers {
		queues = append(queues, q)
	}
	if len(queues) == 0 {
		return
	}
	for i := 0; i < numWorkers; i++ {
		go p.run(ctx, queues, i)
	}
	log.Info().Int("workers", numWorkers).Strs("queues", queues).Msg("worker pool started")
}

func (p *Pool) run(ctx context.Context, queues []string, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Int("worker", id).Msg("worker shutting down")
			return
		default:
			// waits up to 5s then loops to check ctx
			result, err := p.rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil || len(result) < 2 {
				continue
			}
			p.process(ctx, result[0], result[1])
		}
	}
}

func (p *Pool) process(ctx context.Context, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		SendToDLQ(ctx, p.rdb, queue, "unknown", json.RawMessage(raw), "malformed envelope", 0)
		return
	}
	handler, ok := p.handlers[queue]
	if !ok {
		return
	}

	job.Attempts++
	err := handler(ctx, job.Payload)
	if err == nil {
		metrics.JobsProcessed.WithLabelValues(queue, "ok").Inc()
		return
	}

	if job.Attempts >= MaxAttempts || errors.Is(err, ErrPermanent) {
		metrics.JobsProcessed.WithLabelValues(queue, "dead").Inc()
		SendToDLQ(ctx, p.rdb, queue, job.Type, job.Payload, err.Error(), job.Attempts)
		return
	}

	metrics.JobsProcessed.WithLabelValues(queue, "retry").Inc()
	log.Warn().Err(err).Str("queue", queue).Int("attempt", job.Attempts).Msg("job failed, retrying")
	select {
	case <-ctx.Done():
	case <-time.After(p.backoff(job.Attempts)):
	}
	if perr := push(context.WithoutCancel(ctx), p.rdb, queue, job); perr != nil {
		log.Error().Err(perr).Str("queue", queue).Msg("failed to requeue job")
	}
}
