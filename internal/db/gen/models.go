package gen

import (
	"github.com/jackc/pgx/v5/pgtype"
)

// Numeric columns are exchanged as text so callers can parse them without
// losing precision.

type BrokerProfile struct {
	UserID                string             `json:"user_id"`
	CompanyName           string             `json:"company_name"`
	Tier                  string             `json:"tier"`
	CommittedAnnualVolume string             `json:"committed_annual_volume"`
	CurrentAnnualVolume   string             `json:"current_annual_volume"`
	Status                string             `json:"status"`
	CreatedAt             pgtype.Timestamptz `json:"created_at"`
	UpdatedAt             pgtype.Timestamptz `json:"updated_at"`
}

type BrokerCategoryDiscount struct {
	UserID             string             `json:"user_id"`
	CategoryID         string             `json:"category_id"`
	CategoryName       string             `json:"category_name"`
	DiscountPercentage string             `json:"discount_percentage"`
	MinimumQuantity    pgtype.Int4        `json:"minimum_quantity"`
	VolumeMultiplier   string             `json:"volume_multiplier"`
	UpdatedAt          pgtype.Timestamptz `json:"updated_at"`
}

type PricingQuote struct {
	ID         pgtype.UUID        `json:"id"`
	UserID     string             `json:"user_id"`
	ProductID  string             `json:"product_id"`
	CategoryID string             `json:"category_id"`
	IsBroker   bool               `json:"is_broker"`
	FinalPrice string             `json:"final_price"`
	Payload    []byte             `json:"payload"`
	CreatedAt  pgtype.Timestamptz `json:"created_at"`
}
