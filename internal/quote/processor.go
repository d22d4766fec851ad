package quote

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-printshop/internal/obs"
)

// Processor is the worker side of quote recording.
type Processor struct {
	Store  *Store
	Logger zerolog.Logger
}

// ProcessTask implements asynq.Handler.
func (p *Processor) ProcessTask(ctx context.Context, t *asynq.Task) error {
	rec, err := DecodeRecordTask(t)
	if err != nil {
		obs.RecordQuote("persist", "invalid")
		p.Logger.Error().Err(err).Str("task_type", t.Type()).Msg("drop malformed quote task")
		return fmt.Errorf("decode quote task: %v: %w", err, asynq.SkipRetry)
	}
	if err := p.Store.Insert(ctx, rec); err != nil {
		if errors.Is(err, ErrInvalidID) {
			obs.RecordQuote("persist", "invalid")
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		obs.RecordQuote("persist", "error")
		return err
	}
	obs.RecordQuote("persist", "ok")
	p.Logger.Debug().Str("quote_id", rec.ID).Str("product_id", rec.ProductID).Msg("quote recorded")
	return nil
}

// Register mounts the processor on mux.
func (p *Processor) Register(mux *asynq.ServeMux) {
	mux.Handle(TypeRecordQuote, p)
}
