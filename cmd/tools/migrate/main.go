package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"

	"github.com/noah-isme/backend-printshop/internal/db"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: migrate [up|down|version|force N]")
	}
	flag.Parse()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	m, err := db.NewMigrator(dbURL)
	if err != nil {
		log.Fatalf("init migrator: %v", err)
	}
	defer m.Close()

	cmd := flag.Arg(0)
	switch cmd {
	case "", "up":
		if err := db.RunMigrations(m); err != nil {
			log.Fatalf("migrate up: %v", err)
		}
	case "down":
		if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("migrate down: %v", err)
		}
	case "force":
		version, err := strconv.Atoi(flag.Arg(1))
		if err != nil {
			log.Fatalf("force requires a numeric version: %v", err)
		}
		if err := m.Force(version); err != nil {
			log.Fatalf("migrate force: %v", err)
		}
	case "version":
	default:
		flag.Usage()
		os.Exit(2)
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		fmt.Println("no migrations applied")
	case err != nil:
		log.Fatalf("read version: %v", err)
	default:
		fmt.Printf("schema version %d (dirty=%t)\n", version, dirty)
	}
}
