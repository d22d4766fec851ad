package quote

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/backend-printshop/internal/pricing"
)

// TypeRecordQuote is the asynq task type carrying a quote to persist.
const TypeRecordQuote = "pricing:quote:record"

// NewRecordTask encodes rec as a quote recording task.
func NewRecordTask(rec pricing.QuoteRecord) (*asynq.Task, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode quote %s: %w", rec.ID, err)
	}
	return asynq.NewTask(TypeRecordQuote, payload), nil
}

// DecodeRecordTask reverses NewRecordTask.
func DecodeRecordTask(t *asynq.Task) (pricing.QuoteRecord, error) {
	var rec pricing.QuoteRecord
	if err := json.Unmarshal(t.Payload(), &rec); err != nil {
		return pricing.QuoteRecord{}, err
	}
	if rec.ID == "" {
		return pricing.QuoteRecord{}, fmt.Errorf("quote task without id")
	}
	return rec, nil
}
