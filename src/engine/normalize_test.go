package engine

import (
	"errors"
	"testing"
)

func float64Ptr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool          { return &v }
func strPtr(v string) *string       { return &v }

func validRaw() RawTransaction {
	return RawTransaction{
		TransactionID: "tx-1",
		AccountID:     "acc-1",
		Amount:        float64Ptr(-12.50),
		Currency:      "EUR",
		Date:          "2024-03-01",
		Name:          "Coffee",
		Category:      []string{"Food and Drink", "Coffee Shop"},
		Pending:       boolPtr(true),
	}
}

func TestNormalizeRequiredFields(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*RawTransaction)
		wantField string
	}{
		{"missing transaction id", func(r *RawTransaction) { r.TransactionID = "" }, "transaction_id"},
		{"missing account id", func(r *RawTransaction) { r.AccountID = "" }, "account_id"},
		{"missing amount", func(r *RawTransaction) { r.Amount = nil }, "amount"},
		{"missing pending", func(r *RawTransaction) { r.Pending = nil }, "pending"},
		{"missing both dates", func(r *RawTransaction) { r.Date = ""; r.AuthorizedDate = "" }, "date"},
		{"garbage date", func(r *RawTransaction) { r.Date = "03/01/2024" }, "date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validRaw()
			tt.mutate(&raw)
			_, err := Normalize(raw)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("want ValidationError, got %v", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("field = %q, want %q", verr.Field, tt.wantField)
			}
		})
	}
}

func TestNormalizeDefaults(t *testing.T) {
	raw := validRaw()
	raw.Currency = ""
	raw.Category = nil
	raw.Name = ""

	tx, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if tx.Currency != "USD" {
		t.Errorf("currency = %q, want USD", tx.Currency)
	}
	if tx.Category != "" {
		t.Errorf("category = %q, want empty", tx.Category)
	}
	if tx.Name != "Unknown" {
		t.Errorf("name = %q, want Unknown", tx.Name)
	}
	if tx.MerchantName != nil {
		t.Errorf("merchant name = %v, want nil", *tx.MerchantName)
	}
	if tx.Location.Address != nil || tx.Location.City != nil {
		t.Error("missing location fields should stay nil")
	}
	if tx.Ignored != "active" {
		t.Errorf("ignored = %q, want active", tx.Ignored)
	}
	if tx.UserCategoryID != nil || tx.ConfirmedDuplicate != nil {
		t.Error("user-owned fields must start unset")
	}
}

func TestNormalizeFields(t *testing.T) {
	raw := validRaw()
	raw.MerchantName = strPtr("Blue Bottle")
	raw.Location.City = strPtr("Oakland")

	tx, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if tx.TransactionID != "tx-1" {
		t.Errorf("transaction id = %q", tx.TransactionID)
	}
	if tx.AccountID == nil || *tx.AccountID != "acc-1" {
		t.Errorf("account id = %v, want acc-1", tx.AccountID)
	}
	if tx.Amount.String() != "-12.5" {
		t.Errorf("amount = %s, want -12.5", tx.Amount)
	}
	if tx.Category != "Food and Drink, Coffee Shop" {
		t.Errorf("category = %q", tx.Category)
	}
	if !tx.Pending {
		t.Error("pending should be true")
	}
	if got := tx.Date.Format("2006-01-02"); got != "2024-03-01" {
		t.Errorf("date = %s", got)
	}
	if tx.MerchantName == nil || *tx.MerchantName != "Blue Bottle" {
		t.Error("merchant name lost")
	}
	if tx.Location.City == nil || *tx.Location.City != "Oakland" {
		t.Error("location city lost")
	}
}

func TestNormalizeAuthorizedDateFallback(t *testing.T) {
	raw := validRaw()
	raw.Date = ""
	raw.AuthorizedDate = "2024-02-28"

	tx, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if got := tx.Date.Format("2006-01-02"); got != "2024-02-28" {
		t.Errorf("date = %s, want authorized date", got)
	}
}

func TestNormalizeBatchCollectsFailures(t *testing.T) {
	good := validRaw()
	bad := validRaw()
	bad.TransactionID = "tx-bad"
	bad.Amount = nil

	drafts, errs := NormalizeBatch([]RawTransaction{good, bad})
	if len(drafts) != 1 || drafts[0].TransactionID != "tx-1" {
		t.Fatalf("drafts = %+v, want only tx-1", drafts)
	}
	if len(errs) != 1 || errs[0].TransactionID != "tx-bad" {
		t.Fatalf("errs = %+v, want one for tx-bad", errs)
	}
}
