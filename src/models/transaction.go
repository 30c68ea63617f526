package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// IgnoredState is the processing state of a transaction. The feed only ever
// seeds Active; the other two states are set by user operations.
type IgnoredState string

const (
	IgnoredActive IgnoredState = "active"
	IgnoredYes    IgnoredState = "ignored"
	IgnoredSplit  IgnoredState = "split"
)

func (s IgnoredState) Valid() bool {
	switch s {
	case IgnoredActive, IgnoredYes, IgnoredSplit:
		return true
	}
	return false
}

type Location struct {
	Address    *string `json:"address"`
	City       *string `json:"city"`
	Region     *string `json:"region"`
	PostalCode *string `json:"postal_code"`
	Country    *string `json:"country"`
}

// Transaction is one ledger row, keyed by the feed's stable transaction id.
// AccountID is nil only for manually entered rows.
type Transaction struct {
	TransactionID       string          `json:"transaction_id"`
	AccountID           *string         `json:"account_id"`
	Amount              decimal.Decimal `json:"amount"`
	Currency            string          `json:"iso_currency_code"`
	Date                time.Time       `json:"date"`
	Name                string          `json:"name"`
	MerchantName        *string         `json:"merchant_name"`
	Category            string          `json:"category"`
	Pending             bool            `json:"pending"`
	UserCategoryID      *int64          `json:"user_category_id"`
	UserSubcategoryID   *int64          `json:"user_subcategory_id"`
	Ignored             IgnoredState    `json:"ignored"`
	PotentialDuplicate  bool            `json:"potential_duplicate"`
	ConfirmedDuplicate  *bool           `json:"confirmed_duplicate"`
	ParentTransactionID *string         `json:"parent_transaction_id"`
	Location            Location        `json:"location"`
	CreatedAt           time.Time       `json:"created_at"`
}
