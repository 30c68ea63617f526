package engine

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"centsible-server/src/models"
)

// SyncReport is the outcome of one reconciliation pass. A Sync call always
// produces a report, even under partial failure.
type SyncReport struct {
	Inserted int         `json:"inserted"`
	Updated  int         `json:"updated"`
	Skipped  int         `json:"skipped"`
	Skips    []SyncSkip  `json:"skips,omitempty"`
	Errors   []SyncError `json:"errors,omitempty"`
}

type SyncSkip struct {
	TransactionID string `json:"transaction_id"`
	Reason        string `json:"reason"`
}

type SyncError struct {
	TransactionID string `json:"transaction_id"`
	Message       string `json:"message"`
}

const (
	skipUnknownAccount = "unknown account"
	skipAlreadyPosted  = "already posted, no-op"
	skipNoChange       = "no change"
	skipSplit          = "split, no-op"
)

// Reconciler merges normalized feed batches into the store. Sync and the
// detector's Scan share one gate so their read-then-write sequences never
// interleave.
type Reconciler struct {
	store    Store
	accounts AccountLookup
	gate     *sync.Mutex
	log      zerolog.Logger
}

func NewReconciler(store Store, accounts AccountLookup, gate *sync.Mutex, log zerolog.Logger) *Reconciler {
	return &Reconciler{store: store, accounts: accounts, gate: gate, log: log}
}

// Sync merges a batch of drafts into the store. It is idempotent: replaying
// the same batch leaves the store unchanged and reports no effective updates.
// Per-draft failures are captured in the report and never abort the batch.
// On context cancellation the partial report is returned with ctx.Err();
// rows already applied stay applied.
func (r *Reconciler) Sync(ctx context.Context, batch []models.Transaction) (*SyncReport, error) {
	r.gate.Lock()
	defer r.gate.Unlock()

	report := &SyncReport{}
	for _, draft := range batch {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := r.syncOne(ctx, draft, report); err != nil {
			r.log.Error().Err(err).Str("transaction_id", draft.TransactionID).Msg("sync item failed")
			report.Errors = append(report.Errors, SyncError{
				TransactionID: draft.TransactionID,
				Message:       err.Error(),
			})
		}
	}

	r.log.Info().
		Int("inserted", report.Inserted).
		Int("updated", report.Updated).
		Int("skipped", report.Skipped).
		Int("errors", len(report.Errors)).
		Msg("transaction sync complete")
	return report, nil
}

func (r *Reconciler) syncOne(ctx context.Context, draft models.Transaction, report *SyncReport) error {
	if draft.AccountID == nil {
		return &ValidationError{Field: "account_id"}
	}
	exists, err := r.accounts.AccountExists(ctx, *draft.AccountID)
	if err != nil {
		return &StoreError{Op: "account lookup", Err: err}
	}
	if !exists {
		r.log.Warn().
			Err(&UnknownAccountError{AccountID: *draft.AccountID}).
			Str("transaction_id", draft.TransactionID).
			Msg("draft rejected")
		report.Skipped++
		report.Skips = append(report.Skips, SyncSkip{draft.TransactionID, skipUnknownAccount})
		return nil
	}

	existing, err := r.store.Get(ctx, draft.TransactionID)
	if err != nil {
		return &StoreError{Op: "get", Err: err}
	}

	// First sight: insert the full draft with user-owned fields at their
	// zero state.
	if existing == nil {
		draft.Ignored = models.IgnoredActive
		draft.UserCategoryID = nil
		draft.UserSubcategoryID = nil
		draft.PotentialDuplicate = false
		draft.ConfirmedDuplicate = nil
		if err := r.store.Insert(ctx, draft); err != nil {
			return &StoreError{Op: "insert", Err: err}
		}
		report.Inserted++
		return nil
	}

	// A split row has been decomposed into children and is out of the feed's
	// hands entirely.
	if existing.Ignored == models.IgnoredSplit {
		report.Skipped++
		report.Skips = append(report.Skips, SyncSkip{draft.TransactionID, skipSplit})
		return nil
	}

	// A posted row is frozen: merchants rewrite name/date on settlement, but
	// user review may already reference the earlier values, and pending never
	// goes back to true.
	if !existing.Pending {
		report.Skipped++
		report.Skips = append(report.Skips, SyncSkip{draft.TransactionID, skipAlreadyPosted})
		return nil
	}

	// Still pending: the feed owns every volatile field. User-owned fields
	// (user categories, ignored, duplicate verdicts) are never written here.
	fields := feedFieldDiff(existing, draft)
	if len(fields) == 0 {
		report.Skipped++
		report.Skips = append(report.Skips, SyncSkip{draft.TransactionID, skipNoChange})
		return nil
	}
	if err := r.store.UpdateFields(ctx, draft.TransactionID, fields); err != nil {
		return &StoreError{Op: "update", Err: err}
	}
	report.Updated++
	return nil
}

// feedFieldDiff returns the feed-owned columns whose stored value differs
// from the draft. An empty map makes the replayed-batch case a clean skip.
func feedFieldDiff(existing *models.Transaction, draft models.Transaction) map[string]any {
	fields := make(map[string]any)
	if !existing.Amount.Equal(draft.Amount) {
		fields["amount"] = draft.Amount
	}
	if existing.Currency != draft.Currency {
		fields["iso_currency_code"] = draft.Currency
	}
	if !existing.Date.Equal(draft.Date) {
		fields["date"] = draft.Date
	}
	if existing.Name != draft.Name {
		fields["name"] = draft.Name
	}
	if !strPtrEqual(existing.MerchantName, draft.MerchantName) {
		fields["merchant_name"] = draft.MerchantName
	}
	if existing.Category != draft.Category {
		fields["category"] = draft.Category
	}
	if existing.Pending != draft.Pending {
		fields["pending"] = draft.Pending
	}
	if !strPtrEqual(existing.Location.Address, draft.Location.Address) {
		fields["location_address"] = draft.Location.Address
	}
	if !strPtrEqual(existing.Location.City, draft.Location.City) {
		fields["location_city"] = draft.Location.City
	}
	if !strPtrEqual(existing.Location.Region, draft.Location.Region) {
		fields["location_region"] = draft.Location.Region
	}
	if !strPtrEqual(existing.Location.PostalCode, draft.Location.PostalCode) {
		fields["location_postal_code"] = draft.Location.PostalCode
	}
	if !strPtrEqual(existing.Location.Country, draft.Location.Country) {
		fields["location_country"] = draft.Location.Country
	}
	return fields
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
