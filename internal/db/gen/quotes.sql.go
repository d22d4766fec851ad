package gen

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getPricingQuote = `-- name: GetPricingQuote :one
SELECT id, user_id, product_id, category_id, is_broker, final_price::text, payload, created_at
FROM pricing_quotes
WHERE id = $1
`

func (q *Queries) GetPricingQuote(ctx context.Context, id pgtype.UUID) (PricingQuote, error) {
	row := q.db.QueryRow(ctx, getPricingQuote, id)
	var i PricingQuote
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.ProductID,
		&i.CategoryID,
		&i.IsBroker,
		&i.FinalPrice,
		&i.Payload,
		&i.CreatedAt,
	)
	return i, err
}

const insertPricingQuote = `-- name: InsertPricingQuote :exec
INSERT INTO pricing_quotes (id, user_id, product_id, category_id, is_broker, final_price, payload, created_at)
VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8)
ON CONFLICT (id) DO NOTHING
`

type InsertPricingQuoteParams struct {
	ID         pgtype.UUID        `json:"id"`
	UserID     string             `json:"user_id"`
	ProductID  string             `json:"product_id"`
	CategoryID string             `json:"category_id"`
	IsBroker   bool               `json:"is_broker"`
	FinalPrice string             `json:"final_price"`
	Payload    []byte             `json:"payload"`
	CreatedAt  pgtype.Timestamptz `json:"created_at"`
}

func (q *Queries) InsertPricingQuote(ctx context.Context, arg InsertPricingQuoteParams) error {
	_, err := q.db.Exec(ctx, insertPricingQuote,
		arg.ID,
		arg.UserID,
		arg.ProductID,
		arg.CategoryID,
		arg.IsBroker,
		arg.FinalPrice,
		arg.Payload,
		arg.CreatedAt,
	)
	return err
}
