package gen

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

type Querier interface {
	GetBrokerProfile(ctx context.Context, userID string) (BrokerProfile, error)
	GetPricingQuote(ctx context.Context, id pgtype.UUID) (PricingQuote, error)
	InsertPricingQuote(ctx context.Context, arg InsertPricingQuoteParams) error
	ListBrokerCategoryDiscounts(ctx context.Context, userID string) ([]BrokerCategoryDiscount, error)
	UpsertBrokerCategoryDiscount(ctx context.Context, arg UpsertBrokerCategoryDiscountParams) (BrokerCategoryDiscount, error)
	UpsertBrokerProfile(ctx context.Context, arg UpsertBrokerProfileParams) (BrokerProfile, error)
}

var _ Querier = (*Queries)(nil)
