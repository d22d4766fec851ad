package broker_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-printshop/internal/broker"
	dbgen "github.com/noah-isme/backend-printshop/internal/db/gen"
	"github.com/noah-isme/backend-printshop/internal/pricing"
	"github.com/noah-isme/backend-printshop/internal/resilience"
)

type stubQueries struct {
	profiles      map[string]dbgen.BrokerProfile
	categories    map[string][]dbgen.BrokerCategoryDiscount
	profileCalls  int
	upserts       []dbgen.UpsertBrokerCategoryDiscountParams
	upsertErr     error
	categoriesErr error
}

func (s *stubQueries) GetBrokerProfile(_ context.Context, userID string) (dbgen.BrokerProfile, error) {
	s.profileCalls++
	row, ok := s.profiles[userID]
	if !ok {
		return dbgen.BrokerProfile{}, pgx.ErrNoRows
	}
	return row, nil
}

func (s *stubQueries) ListBrokerCategoryDiscounts(_ context.Context, userID string) ([]dbgen.BrokerCategoryDiscount, error) {
	if s.categoriesErr != nil {
		return nil, s.categoriesErr
	}
	return s.categories[userID], nil
}

func (s *stubQueries) UpsertBrokerCategoryDiscount(_ context.Context, arg dbgen.UpsertBrokerCategoryDiscountParams) (dbgen.BrokerCategoryDiscount, error) {
	if s.upsertErr != nil {
		return dbgen.BrokerCategoryDiscount{}, s.upsertErr
	}
	s.upserts = append(s.upserts, arg)
	row := dbgen.BrokerCategoryDiscount{
		UserID:             arg.UserID,
		CategoryID:         arg.CategoryID,
		CategoryName:       arg.CategoryName,
		DiscountPercentage: arg.DiscountPercentage,
		MinimumQuantity:    arg.MinimumQuantity,
		VolumeMultiplier:   arg.VolumeMultiplier,
	}
	s.categories[arg.UserID] = append(s.categories[arg.UserID], row)
	return row, nil
}

func newQueries() *stubQueries {
	return &stubQueries{
		profiles: map[string]dbgen.BrokerProfile{
			"broker-1": {
				UserID:                "broker-1",
				CompanyName:           "Acme Print Resale",
				Tier:                  "Silver",
				CommittedAnnualVolume: "30000.00",
				CurrentAnnualVolume:   "12000.50",
				Status:                "active",
			},
		},
		categories: map[string][]dbgen.BrokerCategoryDiscount{
			"broker-1": {{
				UserID:             "broker-1",
				CategoryID:         "business-cards",
				CategoryName:       "Business Cards",
				DiscountPercentage: "5.00",
				MinimumQuantity:    pgtype.Int4{Int32: 250, Valid: true},
				VolumeMultiplier:   "1.0500",
			}},
		},
	}
}

func decimalString(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func newStore(t *testing.T, q *stubQueries) (*broker.Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return &broker.Store{
		Q:      q,
		Cache:  broker.NewCache(rdb, time.Minute),
		Tiers:  pricing.DefaultTierTable(),
		Logger: zerolog.Nop(),
	}, mr
}

func TestStoreGetLoadsAndCaches(t *testing.T) {
	q := newQueries()
	store, mr := newStore(t, q)
	ctx := context.Background()

	profile, err := store.Get(ctx, "broker-1")
	require.NoError(t, err)
	require.NotNil(t, profile)
	require.Equal(t, pricing.TierSilver, profile.Tier)
	require.Equal(t, pricing.StatusActive, profile.Status)
	require.Equal(t, "30000", profile.QualifyingVolume().String())
	require.Len(t, profile.CategoryDiscounts, 1)
	require.Equal(t, 250, *profile.CategoryDiscounts[0].MinimumQuantity)
	require.True(t, mr.Exists("broker:profile:broker-1"))

	again, err := store.Get(ctx, "broker-1")
	require.NoError(t, err)
	require.Equal(t, 1, q.profileCalls)
	require.Equal(t, profile.UserID, again.UserID)
	require.True(t, profile.CategoryDiscounts[0].VolumeMultiplier.Equal(again.CategoryDiscounts[0].VolumeMultiplier))
}

func TestStoreGetCachesAbsence(t *testing.T) {
	q := newQueries()
	store, _ := newStore(t, q)

	for i := 0; i < 3; i++ {
		profile, err := store.Get(context.Background(), "shopper-7")
		require.NoError(t, err)
		require.Nil(t, profile)
	}
	require.Equal(t, 1, q.profileCalls)
}

func TestStoreGetRejectsInvalidStoredData(t *testing.T) {
	q := newQueries()
	q.categories["broker-1"][0].VolumeMultiplier = "0.8000"
	store, mr := newStore(t, q)

	_, err := store.Get(context.Background(), "broker-1")
	require.Error(t, err)
	require.True(t, pricing.IsConfigurationError(err))
	require.False(t, mr.Exists("broker:profile:broker-1"))

	q.profiles["broker-2"] = dbgen.BrokerProfile{UserID: "broker-2", Tier: "diamond", CommittedAnnualVolume: "0", CurrentAnnualVolume: "0", Status: "active"}
	_, err = store.Get(context.Background(), "broker-2")
	require.True(t, errors.Is(err, pricing.ErrUnknownTier))
}

func TestStoreGetPropagatesQueryErrors(t *testing.T) {
	q := newQueries()
	q.categoriesErr = errors.New("connection reset")
	store, _ := newStore(t, q)
	_, err := store.Get(context.Background(), "broker-1")
	require.ErrorContains(t, err, "connection reset")
}

func TestStoreBreakerOpensOnDatabaseFailures(t *testing.T) {
	q := newQueries()
	q.categoriesErr = errors.New("connection reset")
	now := time.Now()
	breaker := resilience.NewBreaker(resilience.BreakerConfig{
		Target:      "broker_profiles",
		MinRequests: 2,
		OpenFor:     time.Minute,
	}, zerolog.Nop()).WithNow(func() time.Time { return now })
	store := &broker.Store{Q: q, Tiers: pricing.DefaultTierTable(), Breaker: breaker, Logger: zerolog.Nop()}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := store.Get(ctx, "broker-1")
		require.ErrorContains(t, err, "connection reset")
	}
	require.Equal(t, resilience.Open, breaker.State())

	_, err := store.Get(ctx, "broker-1")
	require.ErrorIs(t, err, pricing.ErrProfileUnavailable)
	require.Equal(t, 2, q.profileCalls)

	q.categoriesErr = nil
	now = now.Add(2 * time.Minute)
	profile, err := store.Get(ctx, "broker-1")
	require.NoError(t, err)
	require.NotNil(t, profile)
	require.Equal(t, resilience.Closed, breaker.State())
}

func TestStoreBreakerIgnoresBadRows(t *testing.T) {
	q := newQueries()
	q.categories["broker-1"][0].VolumeMultiplier = "0.8000"
	breaker := resilience.NewBreaker(resilience.BreakerConfig{MinRequests: 1}, zerolog.Nop())
	store := &broker.Store{Q: q, Tiers: pricing.DefaultTierTable(), Breaker: breaker, Logger: zerolog.Nop()}

	for i := 0; i < 3; i++ {
		_, err := store.Get(context.Background(), "broker-1")
		require.True(t, pricing.IsConfigurationError(err))
	}
	require.Equal(t, resilience.Closed, breaker.State())
}

func TestStoreWithoutCache(t *testing.T) {
	q := newQueries()
	store := &broker.Store{Q: q, Tiers: pricing.DefaultTierTable(), Logger: zerolog.Nop()}
	_, err := store.Get(context.Background(), "broker-1")
	require.NoError(t, err)
	_, err = store.Get(context.Background(), "broker-1")
	require.NoError(t, err)
	require.Equal(t, 2, q.profileCalls)
}

func TestStoreUpsertInvalidatesCache(t *testing.T) {
	q := newQueries()
	store, mr := newStore(t, q)
	ctx := context.Background()

	_, err := store.Get(ctx, "broker-1")
	require.NoError(t, err)
	require.True(t, mr.Exists("broker:profile:broker-1"))

	saved, err := store.UpsertCategoryDiscount(ctx, "broker-1", pricing.CategoryDiscount{
		CategoryID:         "flyers",
		CategoryName:       "Flyers",
		DiscountPercentage: decimalString(t, "7.5"),
	})
	require.NoError(t, err)
	require.Equal(t, "flyers", saved.CategoryID)
	require.Equal(t, "1", q.upserts[0].VolumeMultiplier)
	require.False(t, mr.Exists("broker:profile:broker-1"))
}

func TestStoreUpsertRejectsLowMultiplier(t *testing.T) {
	q := newQueries()
	store, _ := newStore(t, q)
	_, err := store.UpsertCategoryDiscount(context.Background(), "broker-1", pricing.CategoryDiscount{
		CategoryID:         "flyers",
		DiscountPercentage: decimalString(t, "5"),
		VolumeMultiplier:   decimalString(t, "0.9"),
	})
	var verrs pricing.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	require.Empty(t, q.upserts)
}

func TestStoreUpsertRejectsMinimumQuantityOutOfRange(t *testing.T) {
	q := newQueries()
	store, _ := newStore(t, q)
	for _, minimum := range []int{0, 1 << 31, 1<<32 + 1} {
		_, err := store.UpsertCategoryDiscount(context.Background(), "broker-1", pricing.CategoryDiscount{
			CategoryID:         "flyers",
			DiscountPercentage: decimalString(t, "5"),
			MinimumQuantity:    &minimum,
		})
		var verrs pricing.ValidationErrors
		require.True(t, errors.As(err, &verrs), "minimum %d", minimum)
		require.Equal(t, "minimum_quantity", verrs[0].Field)
	}
	require.Empty(t, q.upserts)

	largest := 1<<31 - 1
	_, err := store.UpsertCategoryDiscount(context.Background(), "broker-1", pricing.CategoryDiscount{
		CategoryID:         "flyers",
		DiscountPercentage: decimalString(t, "5"),
		MinimumQuantity:    &largest,
	})
	require.NoError(t, err)
	require.Len(t, q.upserts, 1)
	require.Equal(t, pgtype.Int4{Int32: 1<<31 - 1, Valid: true}, q.upserts[0].MinimumQuantity)
}

func TestStoreUpsertUnknownBroker(t *testing.T) {
	q := newQueries()
	q.upsertErr = &pgconn.PgError{Code: "23503"}
	store, _ := newStore(t, q)
	_, err := store.UpsertCategoryDiscount(context.Background(), "nobody", pricing.CategoryDiscount{
		CategoryID:         "flyers",
		DiscountPercentage: decimalString(t, "5"),
	})
	require.ErrorIs(t, err, broker.ErrNotFound)
}

func TestAdminHandlerPutCategoryDiscount(t *testing.T) {
	q := newQueries()
	store, _ := newStore(t, q)
	h := &broker.AdminHandler{Store: store, Logger: zerolog.Nop()}
	r := chi.NewRouter()
	r.Put("/api/v1/admin/brokers/{userID}/categories/{categoryID}", h.PutCategoryDiscount)

	put := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/admin/brokers/broker-1/categories/posters", strings.NewReader(body))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := put(`{"category_name":"Posters","discount_percentage":"12.5","minimum_quantity":10,"volume_multiplier":"1.1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"category_id":"posters"`)
	require.Len(t, q.upserts, 1)
	require.Equal(t, pgtype.Int4{Int32: 10, Valid: true}, q.upserts[0].MinimumQuantity)

	rec = put(`{"discount_percentage":"12.5","volume_multiplier":"0.5"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "volume_multiplier")

	rec = put(`{"discount_percentage":"101"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "discount_percentage")

	rec = put(`{"minimum_quantity":5}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Len(t, q.upserts, 1)

	rec = put(`{"discount_percentage":"5","minimum_quantity":4294967297}`)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	require.Len(t, q.upserts, 1)
}
