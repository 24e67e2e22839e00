package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dvloznov/budget-tracker/internal/aggregator"
	"github.com/dvloznov/budget-tracker/internal/api/handlers"
	"github.com/dvloznov/budget-tracker/internal/api/middleware"
	"github.com/dvloznov/budget-tracker/internal/logger"
	"github.com/dvloznov/budget-tracker/internal/store"
	firestorestore "github.com/dvloznov/budget-tracker/internal/store/firestore"
	"github.com/dvloznov/budget-tracker/internal/store/inmemory"
	syncer "github.com/dvloznov/budget-tracker/internal/sync"
)

func main() {
	// Parse command-line flags
	var (
		port         = flag.String("port", "8080", "HTTP server port")
		syncInterval = flag.Duration("sync-interval", 6*time.Hour, "Background sync interval (0 disables)")
	)
	flag.Parse()

	// Initialize logger
	log := logger.New()

	ctx := context.Background()
	ctx = logger.WithContext(ctx, log)

	// Initialize stores. Firestore when a project is configured, in-memory
	// otherwise (local development only - nothing survives a restart).
	var (
		items        store.ItemStore
		transactions store.TransactionStore
		budgets      store.BudgetStore
	)
	if projectID := os.Getenv("GOOGLE_CLOUD_PROJECT"); projectID != "" {
		fs, err := firestorestore.New(ctx, projectID)
		if err != nil {
			log.Fatal().Err(err).Str("project_id", projectID).Msg("Failed to create Firestore store")
		}
		defer fs.Close()
		items, transactions, budgets = fs, fs, fs
		log.Info().Str("project_id", projectID).Msg("Using Firestore store")
	} else {
		mem := inmemory.New()
		items, transactions, budgets = mem, mem, mem
		log.Warn().Msg("GOOGLE_CLOUD_PROJECT not set - using in-memory store, data will not persist")
	}

	// Initialize aggregator client
	clientID := os.Getenv("PLAID_CLIENT_ID")
	secret := os.Getenv("PLAID_SECRET")
	if clientID == "" || secret == "" {
		log.Warn().Msg("PLAID_CLIENT_ID / PLAID_SECRET not set - link and sync requests will fail")
	}
	baseURL := aggregator.EnvSandbox
	if os.Getenv("PLAID_ENV") == "production" {
		baseURL = aggregator.EnvProduction
	}
	aggClient := aggregator.NewHTTPClient(baseURL, clientID, secret)

	// Initialize sync engine and background scheduler
	engine := syncer.NewEngine(items, transactions, aggClient)

	var scheduler *syncer.Scheduler
	if *syncInterval > 0 {
		scheduler = syncer.NewScheduler(engine, items, *syncInterval)
		scheduler.Start(ctx)
		log.Info().Dur("interval", *syncInterval).Msg("Background sync scheduler started")
	} else {
		log.Info().Msg("Background sync disabled")
	}

	// Initialize handlers
	linkHandler := handlers.NewLinkHandler(aggClient, items, log)
	accountsHandler := handlers.NewAccountsHandler(items, log)
	syncHandler := handlers.NewSyncHandler(engine, log)
	transactionsHandler := handlers.NewTransactionsHandler(transactions, log)
	budgetsHandler := handlers.NewBudgetsHandler(budgets, transactions, log)

	// Create router
	mux := http.NewServeMux()

	// Link endpoints
	mux.HandleFunc("/api/link/token", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			linkHandler.CreateLinkToken(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/link/exchange", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			linkHandler.Exchange(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Accounts endpoints
	mux.HandleFunc("/api/accounts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			accountsHandler.ListAccounts(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Sync endpoint
	mux.HandleFunc("/api/sync", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			syncHandler.Sync(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Transactions endpoints
	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			transactionsHandler.List(w, r)
		case http.MethodPost:
			transactionsHandler.Create(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
		if id == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Transaction ID is required")
			return
		}
		switch r.Method {
		case http.MethodPut, http.MethodPatch:
			transactionsHandler.Update(w, r, id)
		case http.MethodDelete:
			transactionsHandler.Delete(w, r, id)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Budgets endpoints
	mux.HandleFunc("/api/budgets", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			budgetsHandler.List(w, r)
		case http.MethodPost:
			budgetsHandler.Create(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/budgets/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/budgets/")
		if id == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Budget ID is required")
			return
		}
		switch r.Method {
		case http.MethodPut, http.MethodPatch:
			budgetsHandler.Update(w, r, id)
		case http.MethodDelete:
			budgetsHandler.Delete(w, r, id)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Summary endpoint
	mux.HandleFunc("/api/summary", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			budgetsHandler.Summary(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware. TODO: swap StaticVerifier for a real identity
	// provider before exposing this outside local development.
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(
					middleware.Auth(middleware.StaticVerifier{})(mux),
				),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop scheduler and wait for an in-flight sweep
	if scheduler != nil {
		if err := scheduler.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error stopping sync scheduler")
		}
	}

	log.Info().Msg("Server exited")
}
