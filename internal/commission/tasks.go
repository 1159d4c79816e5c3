package commission

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// TaskRecompute is the asynq task type for commission recomputation.
const TaskRecompute = "commission:recompute"

// NewRecomputeTask builds a recompute task. The task carries no payload; the
// worker always rebuilds from current inputs.
func NewRecomputeTask() *asynq.Task {
	return asynq.NewTask(TaskRecompute, nil)
}

// Enqueuer schedules recompute tasks after ingestion or configuration changes.
type Enqueuer struct {
	Client *asynq.Client
	Queue  string
	Logger zerolog.Logger
}

// EnqueueRecompute queues a recompute run. Failures are logged, not
// propagated: the read path recomputes lazily on cache miss anyway.
func (e Enqueuer) EnqueueRecompute(ctx context.Context) {
	if e.Client == nil {
		return
	}
	opts := []asynq.Option{asynq.MaxRetry(3)}
	if e.Queue != "" {
		opts = append(opts, asynq.Queue(e.Queue))
	}
	if _, err := e.Client.EnqueueContext(ctx, NewRecomputeTask(), opts...); err != nil {
		e.Logger.Warn().Err(err).Msg("enqueue commission recompute")
	}
}

// HandleRecomputeTask is the asynq handler for TaskRecompute.
func (s *Service) HandleRecomputeTask(ctx context.Context, _ *asynq.Task) error {
	_, err := s.Recompute(ctx)
	return err
}
