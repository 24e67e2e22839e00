package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/dvloznov/budget-tracker/internal/aggregator"
	"github.com/dvloznov/budget-tracker/internal/logger"
	firestorestore "github.com/dvloznov/budget-tracker/internal/store/firestore"
	syncer "github.com/dvloznov/budget-tracker/internal/sync"
)

func main() {
	// Initialize structured logger
	log := logger.New()

	// Parse CLI flags
	userID := flag.String("user", "", "User ID to sync (required unless --all)")
	allUsers := flag.Bool("all", false, "Sync every user with linked items")
	flag.Parse()

	// Validate flags
	if *userID == "" && !*allUsers {
		log.Fatal().Msg("Error: --user or --all is required")
	}
	if *userID != "" && *allUsers {
		log.Fatal().Msg("Error: --user and --all are mutually exclusive")
	}

	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if projectID == "" {
		log.Fatal().Msg("Error: GOOGLE_CLOUD_PROJECT is required")
	}
	clientID := os.Getenv("PLAID_CLIENT_ID")
	secret := os.Getenv("PLAID_SECRET")
	if clientID == "" || secret == "" {
		log.Fatal().Msg("Error: PLAID_CLIENT_ID and PLAID_SECRET are required")
	}
	baseURL := aggregator.EnvSandbox
	if os.Getenv("PLAID_ENV") == "production" {
		baseURL = aggregator.EnvProduction
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	// Add logger to context
	ctx = logger.WithContext(ctx, log)

	// Initialize store and sync engine
	fs, err := firestorestore.New(ctx, projectID)
	if err != nil {
		log.Fatal().Err(err).Str("project_id", projectID).Msg("Failed to create Firestore store")
	}
	defer fs.Close()

	engine := syncer.NewEngine(fs, fs, aggregator.NewHTTPClient(baseURL, clientID, secret))

	users := []string{*userID}
	if *allUsers {
		users, err = fs.ListUsers(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to list users")
		}
		log.Info().Int("users", len(users)).Msg("Syncing all users")
	}

	failed := 0
	for _, uid := range users {
		res, err := engine.SyncUser(ctx, uid)
		if err != nil {
			log.Error().Err(err).Str("user_id", uid).Msg("Sync failed")
			failed++
			continue
		}

		for _, item := range res.Results {
			if item.Failed() {
				log.Warn().
					Str("user_id", uid).
					Str("item_id", item.ItemID).
					Str("error", item.Error).
					Msg("Item sync failed")
				failed++
				continue
			}
			log.Info().
				Str("user_id", uid).
				Str("item_id", item.ItemID).
				Int("synced", item.Synced).
				Msg("Item synced")
		}

		log.Info().
			Str("user_id", uid).
			Int("total_synced", res.TotalSynced).
			Int("items", len(res.Results)).
			Msg("Sync completed")
	}

	if failed > 0 {
		log.Error().Int("failed", failed).Msg("Sync finished with failures")
		os.Exit(1)
	}
}
