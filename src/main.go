package main

import (
	"context"
	"net/http"
	"sync"

	"centsible-server/src/api"
	"centsible-server/src/config"
	"centsible-server/src/db"
	sqldb "centsible-server/src/db/sql"
	"centsible-server/src/engine"
	"centsible-server/src/logger"
	"centsible-server/src/plaid"
)

func main() {
	cfg := config.Load()
	log := logger.New()

	// Connect to database
	pool, err := db.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("DB connection failed")
	}
	defer pool.Close()

	store := sqldb.NewStore(pool)
	accountCache, err := db.NewCachedAccounts(store)
	if err != nil {
		log.Fatal().Err(err).Msg("account cache init failed")
	}

	// One gate serializes Sync and Scan; their per-row read-then-write
	// sequences must not interleave.
	var syncGate sync.Mutex
	reconciler := engine.NewReconciler(store, accountCache, &syncGate, log)
	detector := engine.NewDetector(store, &syncGate, log)

	plaidClient := plaid.NewPlaidClient(cfg.PlaidClientID, cfg.PlaidSecret, cfg.PlaidEnv)

	// Router
	router := api.NewRouter(cfg, log, plaidClient, store, accountCache, reconciler, detector)

	log.Info().Str("port", cfg.Port).Msg("API server running")
	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
