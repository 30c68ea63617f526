package engine

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"centsible-server/src/models"
)

// DuplicatePair is one unordered candidate pair for human review.
type DuplicatePair struct {
	Date         string             `json:"date"`
	Amount       decimal.Decimal    `json:"amount"`
	AccountID    string             `json:"account_id"`
	Transaction1 models.Transaction `json:"transaction1"`
	Transaction2 models.Transaction `json:"transaction2"`
}

// Detector flags rows that plausibly record the same real-world purchase:
// same date, same amount, same account. An authorization hold and its settled
// charge commonly land as two such rows.
type Detector struct {
	store Store
	gate  *sync.Mutex
	log   zerolog.Logger
}

func NewDetector(store Store, gate *sync.Mutex, log zerolog.Logger) *Detector {
	return &Detector{store: store, gate: gate, log: log}
}

type dupKey struct {
	date    string
	amount  string
	account string
}

func keyOf(tx models.Transaction) (dupKey, bool) {
	// Manual rows without an account never join a group; grouping on the
	// absence of an account would pair unrelated cash entries.
	if tx.AccountID == nil {
		return dupKey{}, false
	}
	return dupKey{
		date:    tx.Date.Format(feedDateLayout),
		amount:  tx.Amount.String(),
		account: *tx.AccountID,
	}, true
}

// Scan recomputes potential_duplicate for every row from scratch and returns
// the number of candidate pairs and the number of rows left flagged. Rows a
// human has confirmed as duplicates stay flagged even if their group has
// since dissolved. confirmed_duplicate itself is never written here, which is
// what lets ConfirmDuplicate run concurrently with a scan.
func (d *Detector) Scan(ctx context.Context) (pairCount, flaggedCount int, err error) {
	d.gate.Lock()
	defer d.gate.Unlock()

	rows, err := d.store.ScanAll(ctx)
	if err != nil {
		return 0, 0, &StoreError{Op: "scan", Err: err}
	}

	groups := make(map[dupKey]int)
	for _, tx := range rows {
		if key, ok := keyOf(tx); ok {
			groups[key]++
		}
	}

	for _, tx := range rows {
		flag := false
		if key, ok := keyOf(tx); ok && groups[key] > 1 {
			flag = true
		}
		if tx.ConfirmedDuplicate != nil && *tx.ConfirmedDuplicate {
			flag = true
		}
		if flag {
			flaggedCount++
		}
		if flag == tx.PotentialDuplicate {
			continue
		}
		err := d.store.UpdateFields(ctx, tx.TransactionID, map[string]any{"potential_duplicate": flag})
		if err != nil {
			return 0, 0, &StoreError{Op: "update", Err: err}
		}
	}

	// Every unordered pair within a group counts, so three matching rows
	// make three pairs.
	for _, n := range groups {
		pairCount += n * (n - 1) / 2
	}

	d.log.Info().Int("pairs", pairCount).Int("flagged", flaggedCount).Msg("duplicate scan complete")
	return pairCount, flaggedCount, nil
}

// Pairs lists every candidate pair for review, ordered by date descending
// then amount ascending, with transaction ids breaking remaining ties so the
// order never depends on store iteration.
func (d *Detector) Pairs(ctx context.Context) ([]DuplicatePair, error) {
	rows, err := d.store.ScanAll(ctx)
	if err != nil {
		return nil, &StoreError{Op: "scan", Err: err}
	}

	groups := make(map[dupKey][]models.Transaction)
	for _, tx := range rows {
		if key, ok := keyOf(tx); ok {
			groups[key] = append(groups[key], tx)
		}
	}

	var pairs []DuplicatePair
	for key, members := range groups {
		if len(members) < 2 {
			continue
		}
		sort.Slice(members, func(i, j int) bool {
			return members[i].TransactionID < members[j].TransactionID
		})
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				pairs = append(pairs, DuplicatePair{
					Date:         key.date,
					Amount:       members[i].Amount,
					AccountID:    key.account,
					Transaction1: members[i],
					Transaction2: members[j],
				})
			}
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		a, b := pairs[i], pairs[j]
		if a.Date != b.Date {
			return a.Date > b.Date
		}
		if !a.Amount.Equal(b.Amount) {
			return a.Amount.LessThan(b.Amount)
		}
		if a.Transaction1.TransactionID != b.Transaction1.TransactionID {
			return a.Transaction1.TransactionID < b.Transaction1.TransactionID
		}
		return a.Transaction2.TransactionID < b.Transaction2.TransactionID
	})
	return pairs, nil
}

// ConfirmDuplicate records a human verdict on one transaction. It leaves
// potential_duplicate alone; the next Scan folds the verdict in.
func (d *Detector) ConfirmDuplicate(ctx context.Context, transactionID string, isDuplicate bool) error {
	tx, err := d.store.Get(ctx, transactionID)
	if err != nil {
		return &StoreError{Op: "get", Err: err}
	}
	if tx == nil {
		return &NotFoundError{TransactionID: transactionID}
	}
	err = d.store.UpdateFields(ctx, transactionID, map[string]any{"confirmed_duplicate": isDuplicate})
	if err != nil {
		return &StoreError{Op: "update", Err: err}
	}
	d.log.Info().Str("transaction_id", transactionID).Bool("is_duplicate", isDuplicate).Msg("duplicate verdict recorded")
	return nil
}
