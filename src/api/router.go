package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	plaidapi "github.com/plaid/plaid-go/v41/plaid"
	"github.com/rs/zerolog"

	"centsible-server/src/config"
	"centsible-server/src/db"
	sqldb "centsible-server/src/db/sql"
	"centsible-server/src/engine"
	"centsible-server/src/handlers"
	"centsible-server/src/middleware"
)

func NewRouter(cfg config.Config, log zerolog.Logger, plaidClient *plaidapi.APIClient, store *sqldb.Store, accountCache *db.CachedAccounts, reconciler *engine.Reconciler, detector *engine.Detector) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.CORSMiddleware)
	r.Use(middleware.RequestLogger(log))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		// Feed
		r.Get("/plaid/sync", handlers.RunFeedSync(plaidClient, cfg, store, accountCache, reconciler, detector))

		// Accounts
		r.Get("/accounts", handlers.GetAccounts(store))

		// Transactions
		r.Get("/transactions", handlers.GetAllTransactions(store))
		r.Get("/transactions/unprocessed", handlers.GetUnprocessedTransactions(store))
		r.Get("/transactions/processed", handlers.GetProcessedTransactions(store))
		r.Post("/transactions/update", handlers.UpdateTransactions(store))
		r.Post("/transactions/manual-add", handlers.AddManualTransaction(store))
		r.Post("/transactions/split", handlers.SplitTransaction(store))
		r.Delete("/transactions/{transaction_id}", handlers.DeleteTransaction(store))

		// Duplicates
		r.Post("/duplicates/scan", handlers.ScanDuplicates(detector))
		r.Get("/duplicates/pairs", handlers.GetDuplicatePairs(detector))
		r.Post("/duplicates/confirm", handlers.ConfirmDuplicate(detector))
	})

	return r
}
