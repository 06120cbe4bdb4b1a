package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/luvproxy/chat-proxy-api/internal/domain/license"
	licenseRepoImpl "github.com/luvproxy/chat-proxy-api/internal/storage/postgres"
	"github.com/luvproxy/chat-proxy-api/internal/util"
	"go.uber.org/zap"
)

func main() {
	ownerName := flag.String("owner", "", "Owner name for the license")
	planType := flag.String("plan", string(license.PlanTrial), "Plan type: trial, pro or enterprise")
	expiresDays := flag.Int("expires-days", 365, "Days until expiry (0 = non-expiring)")
	maxPerDay := flag.Int("max-per-day", 10, "Daily request limit (trial plans only)")
	flag.Parse()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	key, err := util.GenerateLicenseKey()
	if err != nil {
		log.Fatalf("Failed to generate license key: %v", err)
	}

	fmt.Printf("Generated license key (give this to the customer):\n%s\n\n", key)

	logger, _ := zap.NewDevelopment()
	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}
	defer pool.Close()

	repo := licenseRepoImpl.NewLicenseRepository(pool, logger)

	newLicense := &license.License{
		LicenseKey:        key,
		PlanType:          license.PlanType(*planType),
		IsActive:          true,
		MaxRequestsPerDay: *maxPerDay,
	}
	if *ownerName != "" {
		newLicense.OwnerName = sql.NullString{String: *ownerName, Valid: true}
	}
	if *expiresDays > 0 {
		newLicense.ExpiresAt = sql.NullTime{
			Time:  time.Now().UTC().AddDate(0, 0, *expiresDays),
			Valid: true,
		}
	}

	licenseID, err := repo.Create(context.Background(), newLicense)
	if err != nil {
		log.Fatalf("Failed to save license to database: %v", err)
	}

	fmt.Printf("License saved to database with ID: %s\n", licenseID)
}
