package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	sqldb "centsible-server/src/db/sql"
	"centsible-server/src/logger"
	"centsible-server/src/models"
)

func GetAllTransactions(store *sqldb.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		transactions, err := store.GetAllTransactions(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("failed to get transactions")
			http.Error(w, "failed to get transactions", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(transactions)
	}
}

func GetUnprocessedTransactions(store *sqldb.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		transactions, err := store.GetUnprocessedTransactions(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("failed to get unprocessed transactions")
			http.Error(w, "failed to get transactions", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(transactions)
	}
}

func GetProcessedTransactions(store *sqldb.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		transactions, err := store.GetProcessedTransactions(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("failed to get processed transactions")
			http.Error(w, "failed to get transactions", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(transactions)
	}
}

// UpdateTransactions sets user-owned fields (categories, ignored state) for a
// batch of transactions. These are the fields the sync engine never touches.
func UpdateTransactions(store *sqldb.Store) http.HandlerFunc {
	type updateRequest struct {
		TransactionID     string  `json:"transaction_id"`
		UserCategoryID    *int64  `json:"user_category_id"`
		UserSubcategoryID *int64  `json:"user_subcategory_id"`
		Ignored           *string `json:"ignored"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		var updates []updateRequest
		if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
			log.Error().Err(err).Msg("failed to decode update transactions request")
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		for _, u := range updates {
			if u.TransactionID == "" {
				http.Error(w, "transaction_id is required", http.StatusBadRequest)
				return
			}
			ignored := models.IgnoredActive
			if u.Ignored != nil {
				ignored = models.IgnoredState(*u.Ignored)
				if !ignored.Valid() {
					http.Error(w, "ignored must be one of active, ignored, split", http.StatusBadRequest)
					return
				}
			}
			err := store.UpdateUserFields(r.Context(), u.TransactionID, u.UserCategoryID, u.UserSubcategoryID, ignored)
			if errors.Is(err, pgx.ErrNoRows) {
				http.Error(w, "transaction not found", http.StatusNotFound)
				return
			}
			if err != nil {
				log.Error().Err(err).Str("transaction_id", u.TransactionID).Msg("failed to update transaction")
				http.Error(w, "failed to update transaction", http.StatusInternalServerError)
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "transactions updated"})
	}
}

// AddManualTransaction inserts a user-entered row. Manual rows may have no
// account, and they get a generated transaction id.
func AddManualTransaction(store *sqldb.Store) http.HandlerFunc {
	type manualRequest struct {
		Date              string  `json:"date"`
		Name              string  `json:"name"`
		Amount            float64 `json:"amount"`
		AccountID         *string `json:"account_id"`
		UserCategoryID    *int64  `json:"user_category_id"`
		UserSubcategoryID *int64  `json:"user_subcategory_id"`
		Ignored           bool    `json:"ignored"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		var req manualRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Error().Err(err).Msg("failed to decode manual transaction request")
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if req.Name == "" || req.Date == "" {
			http.Error(w, "name and date are required", http.StatusBadRequest)
			return
		}
		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		ignored := models.IgnoredActive
		if req.Ignored {
			ignored = models.IgnoredYes
		}
		tx := models.Transaction{
			AccountID:         req.AccountID,
			Amount:            decimal.NewFromFloat(req.Amount),
			Date:              date,
			Name:              req.Name,
			UserCategoryID:    req.UserCategoryID,
			UserSubcategoryID: req.UserSubcategoryID,
			Ignored:           ignored,
		}
		created, err := store.InsertManualTransaction(r.Context(), tx)
		if err != nil {
			log.Error().Err(err).Msg("failed to insert manual transaction")
			http.Error(w, "failed to insert transaction", http.StatusInternalServerError)
			return
		}
		log.Info().Str("transaction_id", created.TransactionID).Msg("manual transaction added")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(created)
	}
}

// SplitTransaction decomposes one transaction into children. The original is
// retained but leaves active views for good.
func SplitTransaction(store *sqldb.Store) http.HandlerFunc {
	type splitPart struct {
		Amount            float64 `json:"amount"`
		Name              string  `json:"name"`
		UserCategoryID    *int64  `json:"user_category_id"`
		UserSubcategoryID *int64  `json:"user_subcategory_id"`
	}
	type splitRequest struct {
		TransactionID string      `json:"transaction_id"`
		Splits        []splitPart `json:"splits"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		var req splitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Error().Err(err).Msg("failed to decode split transaction request")
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if req.TransactionID == "" || len(req.Splits) == 0 {
			http.Error(w, "transaction_id and splits are required", http.StatusBadRequest)
			return
		}

		parts := make([]models.Transaction, 0, len(req.Splits))
		for _, s := range req.Splits {
			parts = append(parts, models.Transaction{
				Amount:            decimal.NewFromFloat(s.Amount),
				Name:              s.Name,
				UserCategoryID:    s.UserCategoryID,
				UserSubcategoryID: s.UserSubcategoryID,
			})
		}

		children, err := store.SplitTransaction(r.Context(), req.TransactionID, parts)
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, "transaction not found", http.StatusNotFound)
			return
		}
		if err != nil {
			log.Error().Err(err).Str("transaction_id", req.TransactionID).Msg("failed to split transaction")
			http.Error(w, "failed to split transaction", http.StatusInternalServerError)
			return
		}
		log.Info().Str("transaction_id", req.TransactionID).Int("children", len(children)).Msg("transaction split")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(children)
	}
}

func DeleteTransaction(store *sqldb.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		transactionID := chi.URLParam(r, "transaction_id")

		err := store.DeleteTransaction(r.Context(), transactionID)
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, "transaction not found", http.StatusNotFound)
			return
		}
		if err != nil {
			log.Error().Err(err).Str("transaction_id", transactionID).Msg("failed to delete transaction")
			http.Error(w, "failed to delete transaction", http.StatusInternalServerError)
			return
		}
		log.Info().Str("transaction_id", transactionID).Msg("transaction deleted")
		w.WriteHeader(http.StatusNoContent)
	}
}
