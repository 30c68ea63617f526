package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"centsible-server/src/models"
)

// memStore is an in-memory Store + AccountLookup for engine tests. It
// interprets the same column names the Postgres store does, and counts writes
// so idempotence tests can assert that a replay touches nothing.
type memStore struct {
	rows     map[string]models.Transaction
	accounts map[string]bool

	inserts int
	updates int

	failInsertID string
}

func newMemStore() *memStore {
	return &memStore{
		rows:     make(map[string]models.Transaction),
		accounts: make(map[string]bool),
	}
}

func (m *memStore) Get(_ context.Context, transactionID string) (*models.Transaction, error) {
	tx, ok := m.rows[transactionID]
	if !ok {
		return nil, nil
	}
	return &tx, nil
}

func (m *memStore) Insert(_ context.Context, tx models.Transaction) error {
	if m.failInsertID != "" && tx.TransactionID == m.failInsertID {
		return fmt.Errorf("connection reset")
	}
	if _, ok := m.rows[tx.TransactionID]; ok {
		return fmt.Errorf("duplicate key %q", tx.TransactionID)
	}
	m.rows[tx.TransactionID] = tx
	m.inserts++
	return nil
}

func (m *memStore) UpdateFields(_ context.Context, transactionID string, fields map[string]any) error {
	tx, ok := m.rows[transactionID]
	if !ok {
		return fmt.Errorf("no row %q", transactionID)
	}
	for k, v := range fields {
		switch k {
		case "amount":
			tx.Amount = v.(decimal.Decimal)
		case "iso_currency_code":
			tx.Currency = v.(string)
		case "date":
			tx.Date = v.(time.Time)
		case "name":
			tx.Name = v.(string)
		case "merchant_name":
			tx.MerchantName = v.(*string)
		case "category":
			tx.Category = v.(string)
		case "pending":
			tx.Pending = v.(bool)
		case "potential_duplicate":
			tx.PotentialDuplicate = v.(bool)
		case "confirmed_duplicate":
			b := v.(bool)
			tx.ConfirmedDuplicate = &b
		case "location_address":
			tx.Location.Address = v.(*string)
		case "location_city":
			tx.Location.City = v.(*string)
		case "location_region":
			tx.Location.Region = v.(*string)
		case "location_postal_code":
			tx.Location.PostalCode = v.(*string)
		case "location_country":
			tx.Location.Country = v.(*string)
		default:
			return fmt.Errorf("unexpected field %q", k)
		}
	}
	m.rows[transactionID] = tx
	m.updates++
	return nil
}

func (m *memStore) ScanAll(_ context.Context) ([]models.Transaction, error) {
	ids := make([]string, 0, len(m.rows))
	for id := range m.rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]models.Transaction, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.rows[id])
	}
	return out, nil
}

func (m *memStore) AccountExists(_ context.Context, accountID string) (bool, error) {
	return m.accounts[accountID], nil
}

// brokenStore fails every read, for fatal-scan-path tests.
type brokenStore struct{ *memStore }

func (b brokenStore) ScanAll(context.Context) ([]models.Transaction, error) {
	return nil, fmt.Errorf("connection refused")
}
