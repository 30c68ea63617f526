package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"centsible-server/src/models"
)

func newTestDetector(store Store) *Detector {
	var gate sync.Mutex
	return NewDetector(store, &gate, zerolog.Nop())
}

func seed(store *memStore, txs ...models.Transaction) {
	for _, tx := range txs {
		store.rows[tx.TransactionID] = tx
	}
}

func TestScanFlagsGroupOfThree(t *testing.T) {
	store := newMemStore()
	seed(store,
		draft("t1", "acc1", -42.00, "2024-01-05", false, "Charge"),
		draft("t2", "acc1", -42.00, "2024-01-05", false, "Charge"),
		draft("t3", "acc1", -42.00, "2024-01-05", true, "Charge Hold"),
		draft("t4", "acc1", -7.00, "2024-01-05", false, "Unrelated"),
	)
	d := newTestDetector(store)

	pairs, flagged, err := d.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if pairs != 3 {
		t.Errorf("pairs = %d, want 3 for a group of three", pairs)
	}
	if flagged != 3 {
		t.Errorf("flagged = %d, want 3", flagged)
	}
	for _, id := range []string{"t1", "t2", "t3"} {
		if !store.rows[id].PotentialDuplicate {
			t.Errorf("%s not flagged", id)
		}
	}
	if store.rows["t4"].PotentialDuplicate {
		t.Error("t4 flagged despite unique amount")
	}

	listed, err := d.Pairs(context.Background())
	if err != nil {
		t.Fatalf("Pairs failed: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("listed %d pairs, want every unordered pair in the group", len(listed))
	}
}

func TestScanIdempotent(t *testing.T) {
	store := newMemStore()
	seed(store,
		draft("t1", "acc1", -42.00, "2024-01-05", false, "Charge"),
		draft("t2", "acc1", -42.00, "2024-01-05", false, "Charge"),
	)
	d := newTestDetector(store)

	if _, _, err := d.Scan(context.Background()); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	updatesAfterFirst := store.updates

	pairs, flagged, err := d.Scan(context.Background())
	if err != nil {
		t.Fatalf("second Scan failed: %v", err)
	}
	if pairs != 1 || flagged != 2 {
		t.Errorf("second scan = (%d, %d), want (1, 2)", pairs, flagged)
	}
	if store.updates != updatesAfterFirst {
		t.Errorf("second scan issued %d writes on unchanged data", store.updates-updatesAfterFirst)
	}
}

func TestScanUnflagsDissolvedGroup(t *testing.T) {
	store := newMemStore()
	stale := draft("t1", "acc1", -10.00, "2024-01-05", false, "Lone")
	stale.PotentialDuplicate = true
	seed(store, stale)
	d := newTestDetector(store)

	_, flagged, err := d.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if flagged != 0 {
		t.Errorf("flagged = %d, want 0", flagged)
	}
	if store.rows["t1"].PotentialDuplicate {
		t.Error("row with no remaining match must be unflagged")
	}
}

func TestScanKeepsConfirmedFlagSticky(t *testing.T) {
	store := newMemStore()
	confirmed := draft("t1", "acc1", -10.00, "2024-01-05", false, "Lone")
	confirmed.PotentialDuplicate = true
	yes := true
	confirmed.ConfirmedDuplicate = &yes
	seed(store, confirmed)
	d := newTestDetector(store)

	_, flagged, err := d.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if flagged != 1 {
		t.Errorf("flagged = %d, want sticky confirmed row counted", flagged)
	}
	tx := store.rows["t1"]
	if !tx.PotentialDuplicate {
		t.Error("confirmed duplicate must stay flagged after its group dissolves")
	}
	if tx.ConfirmedDuplicate == nil || !*tx.ConfirmedDuplicate {
		t.Error("Scan must not alter confirmed_duplicate")
	}
}

func TestScanIgnoresRowsWithoutAccount(t *testing.T) {
	store := newMemStore()
	manual1 := draft("m1", "x", -10.00, "2024-01-05", false, "Cash")
	manual1.AccountID = nil
	manual2 := draft("m2", "x", -10.00, "2024-01-05", false, "Cash")
	manual2.AccountID = nil
	seed(store, manual1, manual2)
	d := newTestDetector(store)

	pairs, flagged, err := d.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if pairs != 0 || flagged != 0 {
		t.Errorf("scan = (%d, %d), accountless rows must never group", pairs, flagged)
	}
}

func TestConfirmDuplicate(t *testing.T) {
	store := newMemStore()
	seed(store,
		draft("t1", "acc1", -42.00, "2024-01-05", false, "Charge"),
	)
	d := newTestDetector(store)

	if err := d.ConfirmDuplicate(context.Background(), "t1", true); err != nil {
		t.Fatalf("ConfirmDuplicate failed: %v", err)
	}
	tx := store.rows["t1"]
	if tx.ConfirmedDuplicate == nil || !*tx.ConfirmedDuplicate {
		t.Error("verdict not recorded")
	}
	if tx.PotentialDuplicate {
		t.Error("ConfirmDuplicate must not touch potential_duplicate")
	}

	if err := d.ConfirmDuplicate(context.Background(), "t1", false); err != nil {
		t.Fatalf("ConfirmDuplicate failed: %v", err)
	}
	if tx := store.rows["t1"]; tx.ConfirmedDuplicate == nil || *tx.ConfirmedDuplicate {
		t.Error("verdict not overwritten")
	}
}

func TestConfirmDuplicateNotFound(t *testing.T) {
	store := newMemStore()
	d := newTestDetector(store)

	err := d.ConfirmDuplicate(context.Background(), "ghost", true)
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("want NotFoundError, got %v", err)
	}
	if notFound.TransactionID != "ghost" {
		t.Errorf("id = %q", notFound.TransactionID)
	}
}

func TestPairsOrdering(t *testing.T) {
	store := newMemStore()
	seed(store,
		// Older group, larger (less negative) amount.
		draft("a1", "acc1", -5.00, "2024-01-03", false, "Old"),
		draft("a2", "acc1", -5.00, "2024-01-03", false, "Old"),
		// Newer date, two groups with different amounts.
		draft("b1", "acc1", -50.00, "2024-01-08", false, "Big"),
		draft("b2", "acc1", -50.00, "2024-01-08", false, "Big"),
		draft("c1", "acc1", -2.00, "2024-01-08", false, "Small"),
		draft("c2", "acc1", -2.00, "2024-01-08", false, "Small"),
	)
	d := newTestDetector(store)

	pairs, err := d.Pairs(context.Background())
	if err != nil {
		t.Fatalf("Pairs failed: %v", err)
	}
	if len(pairs) != 3 {
		t.Fatalf("got %d pairs, want 3", len(pairs))
	}
	// Date descending first, then amount ascending within the same date.
	if pairs[0].Transaction1.TransactionID != "b1" {
		t.Errorf("first pair = %s, want the newer, more negative group", pairs[0].Transaction1.TransactionID)
	}
	if pairs[1].Transaction1.TransactionID != "c1" {
		t.Errorf("second pair = %s, want the newer, less negative group", pairs[1].Transaction1.TransactionID)
	}
	if pairs[2].Transaction1.TransactionID != "a1" {
		t.Errorf("third pair = %s, want the older group last", pairs[2].Transaction1.TransactionID)
	}
}

func TestScanFatalOnStoreFailure(t *testing.T) {
	store := brokenStore{newMemStore()}
	d := newTestDetector(store)

	_, _, err := d.Scan(context.Background())
	var storeErr *StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("want StoreError, got %v", err)
	}
}
