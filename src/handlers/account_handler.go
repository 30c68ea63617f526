package handlers

import (
	"encoding/json"
	"net/http"

	sqldb "centsible-server/src/db/sql"
	"centsible-server/src/logger"
	"centsible-server/src/models"
)

func GetAccounts(store *sqldb.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		accounts, err := store.GetAccounts(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("failed to get accounts")
			http.Error(w, "failed to get accounts", http.StatusInternalServerError)
			return
		}
		if accounts == nil {
			accounts = []models.Account{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(accounts)
	}
}
