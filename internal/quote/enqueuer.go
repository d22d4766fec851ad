package quote

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/backend-printshop/internal/obs"
	"github.com/noah-isme/backend-printshop/internal/pricing"
)

// TaskClient is the subset of *asynq.Client used to enqueue work.
type TaskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer records quotes asynchronously by handing them to the worker.
// It implements pricing.QuoteRecorder.
type Enqueuer struct {
	Client   TaskClient
	Queue    string
	MaxRetry int
}

// Record enqueues rec. The quote ID doubles as the task ID, so enqueueing
// the same record twice is dropped as a duplicate. Retried requests get a
// new quote ID and are only deduplicated by the Idempotency-Key middleware.
func (e *Enqueuer) Record(ctx context.Context, rec pricing.QuoteRecord) error {
	if e == nil || e.Client == nil {
		return errors.New("quote queue not configured")
	}
	task, err := NewRecordTask(rec)
	if err != nil {
		obs.RecordQuote("enqueue", "error")
		return err
	}
	opts := []asynq.Option{asynq.TaskID(rec.ID)}
	if e.Queue != "" {
		opts = append(opts, asynq.Queue(e.Queue))
	}
	if e.MaxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(e.MaxRetry))
	}
	if _, err := e.Client.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			obs.RecordQuote("enqueue", "duplicate")
			return nil
		}
		obs.RecordQuote("enqueue", "error")
		return fmt.Errorf("enqueue quote %s: %w", rec.ID, err)
	}
	obs.RecordQuote("enqueue", "ok")
	return nil
}
