package broker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	dbgen "github.com/noah-isme/backend-printshop/internal/db/gen"
	"github.com/noah-isme/backend-printshop/internal/obs"
	"github.com/noah-isme/backend-printshop/internal/pricing"
	"github.com/noah-isme/backend-printshop/internal/resilience"
)

// ErrNotFound is returned when a write targets a buyer without a broker profile.
var ErrNotFound = errors.New("broker: profile not found")

// Querier lists the generated queries the store depends on.
type Querier interface {
	GetBrokerProfile(ctx context.Context, userID string) (dbgen.BrokerProfile, error)
	ListBrokerCategoryDiscounts(ctx context.Context, userID string) ([]dbgen.BrokerCategoryDiscount, error)
	UpsertBrokerCategoryDiscount(ctx context.Context, arg dbgen.UpsertBrokerCategoryDiscountParams) (dbgen.BrokerCategoryDiscount, error)
}

// Store resolves broker profiles from Postgres through a Redis cache.
// Every profile leaving the store has passed pricing.ValidateProfile.
// Postgres reads go through Breaker when one is configured.
type Store struct {
	Q       Querier
	Cache   *Cache
	Tiers   *pricing.TierTable
	Breaker *resilience.Breaker
	Logger  zerolog.Logger
}

// Get returns the broker profile of userID, or nil when the user is not a broker.
func (s *Store) Get(ctx context.Context, userID string) (*pricing.BrokerProfile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, nil
	}
	if entry, ok, err := s.Cache.Get(ctx, userID); err != nil {
		s.Logger.Warn().Err(err).Str("user_id", userID).Msg("broker cache read failed")
	} else if ok {
		obs.RecordProfileLookup("cache", "hit")
		if !entry.Found {
			return nil, nil
		}
		return entry.Profile, nil
	}

	profile, err := s.guardedLoad(ctx, userID)
	if err != nil {
		obs.RecordProfileLookup("db", "error")
		return nil, err
	}
	if profile == nil {
		obs.RecordProfileLookup("db", "miss")
	} else {
		obs.RecordProfileLookup("db", "hit")
	}
	if err := s.Cache.Set(ctx, userID, profile); err != nil {
		s.Logger.Warn().Err(err).Str("user_id", userID).Msg("broker cache write failed")
	}
	return profile, nil
}

// UpsertCategoryDiscount validates and stores a negotiated category discount,
// then drops the cached profile so the next lookup sees it.
func (s *Store) UpsertCategoryDiscount(ctx context.Context, userID string, d pricing.CategoryDiscount) (pricing.CategoryDiscount, error) {
	if s.Q == nil {
		return pricing.CategoryDiscount{}, errors.New("broker queries not configured")
	}
	if err := pricing.ValidateCategoryDiscount(d); err != nil {
		return pricing.CategoryDiscount{}, err
	}
	params := dbgen.UpsertBrokerCategoryDiscountParams{
		UserID:             userID,
		CategoryID:         strings.TrimSpace(d.CategoryID),
		CategoryName:       strings.TrimSpace(d.CategoryName),
		DiscountPercentage: d.DiscountPercentage.String(),
		VolumeMultiplier:   d.Multiplier().String(),
	}
	if d.MinimumQuantity != nil {
		params.MinimumQuantity = pgtype.Int4{Int32: int32(*d.MinimumQuantity), Valid: true}
	}
	row, err := s.Q.UpsertBrokerCategoryDiscount(ctx, params)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return pricing.CategoryDiscount{}, ErrNotFound
		}
		return pricing.CategoryDiscount{}, fmt.Errorf("upsert category discount: %w", err)
	}
	if err := s.Cache.Invalidate(ctx, userID); err != nil {
		s.Logger.Warn().Err(err).Str("user_id", userID).Msg("broker cache invalidation failed")
	}
	return categoryFromRow(row)
}

func (s *Store) guardedLoad(ctx context.Context, userID string) (*pricing.BrokerProfile, error) {
	if s.Breaker == nil {
		return s.load(ctx, userID)
	}
	var profile *pricing.BrokerProfile
	err := s.Breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		profile, err = s.load(ctx, userID)
		return err
	}, invalidData)
	if errors.Is(err, resilience.ErrOpenCircuit) {
		return nil, fmt.Errorf("%w: %w", pricing.ErrProfileUnavailable, err)
	}
	return profile, err
}

// invalidData reports errors caused by bad stored rows rather than an unhealthy database.
func invalidData(err error) bool {
	return pricing.IsConfigurationError(err) || errors.Is(err, pricing.ErrUnknownTier)
}

func (s *Store) load(ctx context.Context, userID string) (*pricing.BrokerProfile, error) {
	if s.Q == nil {
		return nil, nil
	}
	row, err := s.Q.GetBrokerProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load broker profile: %w", err)
	}
	categories, err := s.Q.ListBrokerCategoryDiscounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load broker categories: %w", err)
	}
	profile, err := profileFromRows(row, categories)
	if err != nil {
		return nil, err
	}
	if err := pricing.ValidateProfile(s.Tiers, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func profileFromRows(row dbgen.BrokerProfile, categories []dbgen.BrokerCategoryDiscount) (*pricing.BrokerProfile, error) {
	source := "broker profile " + row.UserID
	committed, err := decimal.NewFromString(row.CommittedAnnualVolume)
	if err != nil {
		return nil, &pricing.ConfigurationError{Source: source, Message: "committed_annual_volume", Err: err}
	}
	current, err := decimal.NewFromString(row.CurrentAnnualVolume)
	if err != nil {
		return nil, &pricing.ConfigurationError{Source: source, Message: "current_annual_volume", Err: err}
	}
	profile := &pricing.BrokerProfile{
		UserID:                row.UserID,
		CompanyName:           row.CompanyName,
		Tier:                  pricing.TierName(strings.ToLower(strings.TrimSpace(row.Tier))),
		CommittedAnnualVolume: committed,
		CurrentAnnualVolume:   current,
		Status:                pricing.AccountStatus(row.Status),
		CategoryDiscounts:     make([]pricing.CategoryDiscount, 0, len(categories)),
	}
	for _, c := range categories {
		d, err := categoryFromRow(c)
		if err != nil {
			return nil, &pricing.ConfigurationError{Source: source, Message: "category " + c.CategoryID, Err: err}
		}
		profile.CategoryDiscounts = append(profile.CategoryDiscounts, d)
	}
	return profile, nil
}

func categoryFromRow(row dbgen.BrokerCategoryDiscount) (pricing.CategoryDiscount, error) {
	pct, err := decimal.NewFromString(row.DiscountPercentage)
	if err != nil {
		return pricing.CategoryDiscount{}, fmt.Errorf("discount_percentage: %w", err)
	}
	multiplier, err := decimal.NewFromString(row.VolumeMultiplier)
	if err != nil {
		return pricing.CategoryDiscount{}, fmt.Errorf("volume_multiplier: %w", err)
	}
	d := pricing.CategoryDiscount{
		CategoryID:         row.CategoryID,
		CategoryName:       row.CategoryName,
		DiscountPercentage: pct,
		VolumeMultiplier:   multiplier,
	}
	if row.MinimumQuantity.Valid {
		minQty := int(row.MinimumQuantity.Int32)
		d.MinimumQuantity = &minQty
	}
	return d, nil
}
