package handlers

import (
	"encoding/json"
	"net/http"

	plaidapi "github.com/plaid/plaid-go/v41/plaid"

	"centsible-server/src/config"
	"centsible-server/src/db"
	sqldb "centsible-server/src/db/sql"
	"centsible-server/src/engine"
	"centsible-server/src/logger"
	"centsible-server/src/plaid"
)

type syncResponse struct {
	Accounts int                `json:"accounts"`
	Report   *engine.SyncReport `json:"report"`
	Pairs    int                `json:"duplicate_pairs"`
	Flagged  int                `json:"duplicates_flagged"`
}

// RunFeedSync runs one full pass: account balance snapshots, then
// normalize+reconcile of the trailing transaction window, then a duplicate
// scan. Accounts go first so the reconciler's existence guard sees rows the
// feed is about to reference.
func RunFeedSync(client *plaidapi.APIClient, cfg config.Config, store *sqldb.Store, accountCache *db.CachedAccounts, reconciler *engine.Reconciler, detector *engine.Detector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := logger.FromContext(ctx)

		accounts, err := plaid.FetchAccounts(ctx, client, cfg.PlaidAccessToken)
		if err != nil {
			log.Error().Err(err).Msg("failed to fetch accounts from feed")
			http.Error(w, "failed to fetch accounts", http.StatusBadGateway)
			return
		}
		if err := store.UpsertAccounts(ctx, accounts); err != nil {
			log.Error().Err(err).Msg("failed to store account balances")
			http.Error(w, "failed to store accounts", http.StatusInternalServerError)
			return
		}
		accountCache.Clear()

		raws, err := plaid.FetchTransactions(ctx, client, cfg.PlaidAccessToken, cfg.SyncDays)
		if err != nil {
			log.Error().Err(err).Msg("failed to fetch transactions from feed")
			http.Error(w, "failed to fetch transactions", http.StatusBadGateway)
			return
		}

		drafts, normErrs := engine.NormalizeBatch(raws)
		report, err := reconciler.Sync(ctx, drafts)
		if err != nil {
			log.Error().Err(err).Msg("sync aborted")
			http.Error(w, "sync aborted", http.StatusInternalServerError)
			return
		}
		report.Errors = append(report.Errors, normErrs...)

		pairs, flagged, err := detector.Scan(ctx)
		if err != nil {
			log.Error().Err(err).Msg("duplicate scan after sync failed")
			http.Error(w, "duplicate scan failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(syncResponse{
			Accounts: len(accounts),
			Report:   report,
			Pairs:    pairs,
			Flagged:  flagged,
		})
	}
}
