package gen

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getBrokerProfile = `-- name: GetBrokerProfile :one
SELECT user_id, company_name, tier, committed_annual_volume::text, current_annual_volume::text, status, created_at, updated_at
FROM broker_profiles
WHERE user_id = $1
`

func (q *Queries) GetBrokerProfile(ctx context.Context, userID string) (BrokerProfile, error) {
	row := q.db.QueryRow(ctx, getBrokerProfile, userID)
	var i BrokerProfile
	err := row.Scan(
		&i.UserID,
		&i.CompanyName,
		&i.Tier,
		&i.CommittedAnnualVolume,
		&i.CurrentAnnualVolume,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listBrokerCategoryDiscounts = `-- name: ListBrokerCategoryDiscounts :many
SELECT user_id, category_id, category_name, discount_percentage::text, minimum_quantity, volume_multiplier::text, updated_at
FROM broker_category_discounts
WHERE user_id = $1
ORDER BY category_id
`

func (q *Queries) ListBrokerCategoryDiscounts(ctx context.Context, userID string) ([]BrokerCategoryDiscount, error) {
	rows, err := q.db.Query(ctx, listBrokerCategoryDiscounts, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BrokerCategoryDiscount
	for rows.Next() {
		var i BrokerCategoryDiscount
		if err := rows.Scan(
			&i.UserID,
			&i.CategoryID,
			&i.CategoryName,
			&i.DiscountPercentage,
			&i.MinimumQuantity,
			&i.VolumeMultiplier,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertBrokerProfile = `-- name: UpsertBrokerProfile :one
INSERT INTO broker_profiles (user_id, company_name, tier, committed_annual_volume, current_annual_volume, status)
VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6)
ON CONFLICT (user_id) DO UPDATE SET
    company_name = EXCLUDED.company_name,
    tier = EXCLUDED.tier,
    committed_annual_volume = EXCLUDED.committed_annual_volume,
    current_annual_volume = EXCLUDED.current_annual_volume,
    status = EXCLUDED.status,
    updated_at = now()
RETURNING user_id, company_name, tier, committed_annual_volume::text, current_annual_volume::text, status, created_at, updated_at
`

type UpsertBrokerProfileParams struct {
	UserID                string `json:"user_id"`
	CompanyName           string `json:"company_name"`
	Tier                  string `json:"tier"`
	CommittedAnnualVolume string `json:"committed_annual_volume"`
	CurrentAnnualVolume   string `json:"current_annual_volume"`
	Status                string `json:"status"`
}

func (q *Queries) UpsertBrokerProfile(ctx context.Context, arg UpsertBrokerProfileParams) (BrokerProfile, error) {
	row := q.db.QueryRow(ctx, upsertBrokerProfile,
		arg.UserID,
		arg.CompanyName,
		arg.Tier,
		arg.CommittedAnnualVolume,
		arg.CurrentAnnualVolume,
		arg.Status,
	)
	var i BrokerProfile
	err := row.Scan(
		&i.UserID,
		&i.CompanyName,
		&i.Tier,
		&i.CommittedAnnualVolume,
		&i.CurrentAnnualVolume,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const upsertBrokerCategoryDiscount = `-- name: UpsertBrokerCategoryDiscount :one
INSERT INTO broker_category_discounts (user_id, category_id, category_name, discount_percentage, minimum_quantity, volume_multiplier)
VALUES ($1, $2, $3, $4::numeric, $5, $6::numeric)
ON CONFLICT (user_id, category_id) DO UPDATE SET
    category_name = EXCLUDED.category_name,
    discount_percentage = EXCLUDED.discount_percentage,
    minimum_quantity = EXCLUDED.minimum_quantity,
    volume_multiplier = EXCLUDED.volume_multiplier,
    updated_at = now()
RETURNING user_id, category_id, category_name, discount_percentage::text, minimum_quantity, volume_multiplier::text, updated_at
`

type UpsertBrokerCategoryDiscountParams struct {
	UserID             string      `json:"user_id"`
	CategoryID         string      `json:"category_id"`
	CategoryName       string      `json:"category_name"`
	DiscountPercentage string      `json:"discount_percentage"`
	MinimumQuantity    pgtype.Int4 `json:"minimum_quantity"`
	VolumeMultiplier   string      `json:"volume_multiplier"`
}

func (q *Queries) UpsertBrokerCategoryDiscount(ctx context.Context, arg UpsertBrokerCategoryDiscountParams) (BrokerCategoryDiscount, error) {
	row := q.db.QueryRow(ctx, upsertBrokerCategoryDiscount,
		arg.UserID,
		arg.CategoryID,
		arg.CategoryName,
		arg.DiscountPercentage,
		arg.MinimumQuantity,
		arg.VolumeMultiplier,
	)
	var i BrokerCategoryDiscount
	err := row.Scan(
		&i.UserID,
		&i.CategoryID,
		&i.CategoryName,
		&i.DiscountPercentage,
		&i.MinimumQuantity,
		&i.VolumeMultiplier,
		&i.UpdatedAt,
	)
	return i, err
}
