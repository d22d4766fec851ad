package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/noah-isme/backend-printshop/internal/auth"
	dbgen "github.com/noah-isme/backend-printshop/internal/db/gen"
)

type seedDiscount struct {
	CategoryID string
	Name       string
	Percentage string
	MinQty     int32
	Multiplier string
}

type seedBroker struct {
	UserID    string
	Company   string
	Tier      string
	Committed string
	Current   string
	Status    string
	Discounts []seedDiscount
}

var brokers = []seedBroker{
	{
		UserID: "broker-bronze", Company: "Corner Copy Co", Tier: "bronze",
		Committed: "0", Current: "12000", Status: "active",
		Discounts: []seedDiscount{
			{CategoryID: "business-cards", Name: "Business Cards", Percentage: "5", Multiplier: "1"},
		},
	},
	{
		UserID: "broker-gold", Company: "Gold Line Print", Tier: "gold",
		Committed: "120000", Current: "95000", Status: "active",
		Discounts: []seedDiscount{
			{CategoryID: "business-cards", Name: "Business Cards", Percentage: "10", MinQty: 500, Multiplier: "1.2"},
			{CategoryID: "banners", Name: "Banners", Percentage: "7.5", Multiplier: "1"},
		},
	},
	{
		UserID: "broker-suspended", Company: "Paused Prints", Tier: "platinum",
		Committed: "300000", Current: "0", Status: "suspended",
	},
	{
		UserID: "broker-pending", Company: "New Ink Partners", Tier: "",
		Committed: "0", Current: "0", Status: "pending_verification",
	},
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}
	printToken := flag.Bool("token", false, "print a one-hour admin token signed with JWT_SECRET")
	flag.Parse()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	q := dbgen.New(pool)
	fmt.Println("Seeding broker profiles...")
	for _, b := range brokers {
		if _, err := q.UpsertBrokerProfile(ctx, dbgen.UpsertBrokerProfileParams{
			UserID:                b.UserID,
			CompanyName:           b.Company,
			Tier:                  b.Tier,
			CommittedAnnualVolume: b.Committed,
			CurrentAnnualVolume:   b.Current,
			Status:                b.Status,
		}); err != nil {
			log.Printf("Failed to seed broker %s: %v", b.UserID, err)
			continue
		}
		for _, d := range b.Discounts {
			minQty := pgtype.Int4{Int32: d.MinQty, Valid: d.MinQty > 0}
			if _, err := q.UpsertBrokerCategoryDiscount(ctx, dbgen.UpsertBrokerCategoryDiscountParams{
				UserID:             b.UserID,
				CategoryID:         d.CategoryID,
				CategoryName:       d.Name,
				DiscountPercentage: d.Percentage,
				MinimumQuantity:    minQty,
				VolumeMultiplier:   d.Multiplier,
			}); err != nil {
				log.Printf("Failed to seed discount %s/%s: %v", b.UserID, d.CategoryID, err)
			}
		}
	}
	fmt.Printf("Seeded %d brokers\n", len(brokers))

	if *printToken {
		verifier, err := auth.NewVerifier(auth.VerifierConfig{
			Secret:   os.Getenv("JWT_SECRET"),
			Issuer:   os.Getenv("JWT_ISSUER"),
			Audience: os.Getenv("JWT_AUDIENCE"),
		})
		if err != nil {
			log.Fatalf("Failed to build verifier: %v", err)
		}
		token, err := verifier.Issue("seed-admin", []string{auth.RoleAdmin}, time.Hour)
		if err != nil {
			log.Fatalf("Failed to issue token: %v", err)
		}
		fmt.Println(token)
	}
}
