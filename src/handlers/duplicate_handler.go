package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"centsible-server/src/engine"
	"centsible-server/src/logger"
)

func ScanDuplicates(detector *engine.Detector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		pairs, flagged, err := detector.Scan(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("duplicate scan failed")
			http.Error(w, "duplicate scan failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"pairs": pairs, "flagged": flagged})
	}
}

func GetDuplicatePairs(detector *engine.Detector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		pairs, err := detector.Pairs(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("failed to list duplicate pairs")
			http.Error(w, "failed to list duplicate pairs", http.StatusInternalServerError)
			return
		}
		if pairs == nil {
			pairs = []engine.DuplicatePair{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(pairs)
	}
}

func ConfirmDuplicate(detector *engine.Detector) http.HandlerFunc {
	type confirmRequest struct {
		TransactionID string `json:"transaction_id"`
		IsDuplicate   *bool  `json:"is_duplicate"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		var req confirmRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Error().Err(err).Msg("failed to decode confirm duplicate request")
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if req.TransactionID == "" || req.IsDuplicate == nil {
			http.Error(w, "transaction_id and is_duplicate are required", http.StatusBadRequest)
			return
		}

		err := detector.ConfirmDuplicate(r.Context(), req.TransactionID, *req.IsDuplicate)
		var notFound *engine.NotFoundError
		if errors.As(err, &notFound) {
			http.Error(w, "transaction not found", http.StatusNotFound)
			return
		}
		if err != nil {
			log.Error().Err(err).Str("transaction_id", req.TransactionID).Msg("failed to confirm duplicate")
			http.Error(w, "failed to confirm duplicate", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]bool{"success": true})
	}
}
