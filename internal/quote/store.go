package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	dbgen "github.com/noah-isme/backend-printshop/internal/db/gen"
	"github.com/noah-isme/backend-printshop/internal/pricing"
)

var (
	// ErrNotFound is returned when no quote exists for an id.
	ErrNotFound = errors.New("quote: not found")
	// ErrInvalidID is returned for ids that are not UUIDs.
	ErrInvalidID = errors.New("quote: invalid id")
)

// Querier lists the generated queries used by Store.
type Querier interface {
	InsertPricingQuote(ctx context.Context, arg dbgen.InsertPricingQuoteParams) error
	GetPricingQuote(ctx context.Context, id pgtype.UUID) (dbgen.PricingQuote, error)
}

// Store persists quote records in Postgres.
type Store struct {
	Q Querier
}

// Insert writes rec. Inserting an existing id is a no-op.
func (s *Store) Insert(ctx context.Context, rec pricing.QuoteRecord) error {
	id, err := parseID(rec.ID)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode quote payload: %w", err)
	}
	return s.Q.InsertPricingQuote(ctx, dbgen.InsertPricingQuoteParams{
		ID:         id,
		UserID:     rec.UserID,
		ProductID:  rec.ProductID,
		CategoryID: rec.CategoryID,
		IsBroker:   rec.IsBroker,
		FinalPrice: rec.Calculation.FinalPrice.StringFixedBank(pricing.MoneyScale),
		Payload:    payload,
		CreatedAt:  pgtype.Timestamptz{Time: rec.CreatedAt, Valid: !rec.CreatedAt.IsZero()},
	})
}

// Get loads the quote stored under id.
func (s *Store) Get(ctx context.Context, id string) (pricing.QuoteRecord, error) {
	pgID, err := parseID(id)
	if err != nil {
		return pricing.QuoteRecord{}, err
	}
	row, err := s.Q.GetPricingQuote(ctx, pgID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pricing.QuoteRecord{}, ErrNotFound
		}
		return pricing.QuoteRecord{}, fmt.Errorf("load quote: %w", err)
	}
	var rec pricing.QuoteRecord
	if err := json.Unmarshal(row.Payload, &rec); err != nil {
		return pricing.QuoteRecord{}, fmt.Errorf("decode quote payload: %w", err)
	}
	if row.CreatedAt.Valid {
		rec.CreatedAt = row.CreatedAt.Time.UTC()
	}
	return rec, nil
}

func parseID(raw string) (pgtype.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return pgtype.UUID{}, fmt.Errorf("%w: %q", ErrInvalidID, raw)
	}
	return pgtype.UUID{Bytes: id, Valid: true}, nil
}
