package engine

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"centsible-server/src/models"
)

// RawTransaction is one feed entry as delivered by the aggregator, before any
// typing or defaulting. Pointer fields distinguish absent from zero.
type RawTransaction struct {
	TransactionID  string      `json:"transaction_id"`
	AccountID      string      `json:"account_id"`
	Amount         *float64    `json:"amount"`
	Currency       string      `json:"iso_currency_code"`
	Date           string      `json:"date"`
	AuthorizedDate string      `json:"authorized_date"`
	Name           string      `json:"name"`
	MerchantName   *string     `json:"merchant_name"`
	Category       []string    `json:"category"`
	Pending        *bool       `json:"pending"`
	Location       RawLocation `json:"location"`
}

type RawLocation struct {
	Address    *string `json:"address"`
	City       *string `json:"city"`
	Region     *string `json:"region"`
	PostalCode *string `json:"postal_code"`
	Country    *string `json:"country"`
}

const feedDateLayout = "2006-01-02"

// Normalize converts a raw feed entry into a canonical transaction draft.
// transaction_id, account_id, amount, date and pending are required; the rest
// is defaulted (currency USD, category list flattened to one joined string,
// missing location fields stay nil). While a transaction is pending the feed
// may only carry an authorization date, which is used when date is absent.
func Normalize(raw RawTransaction) (models.Transaction, error) {
	if raw.TransactionID == "" {
		return models.Transaction{}, &ValidationError{Field: "transaction_id"}
	}
	if raw.AccountID == "" {
		return models.Transaction{}, &ValidationError{Field: "account_id"}
	}
	if raw.Amount == nil {
		return models.Transaction{}, &ValidationError{Field: "amount"}
	}
	if raw.Pending == nil {
		return models.Transaction{}, &ValidationError{Field: "pending"}
	}

	dateStr := raw.Date
	if dateStr == "" {
		dateStr = raw.AuthorizedDate
	}
	if dateStr == "" {
		return models.Transaction{}, &ValidationError{Field: "date"}
	}
	date, err := time.Parse(feedDateLayout, dateStr)
	if err != nil {
		return models.Transaction{}, &ValidationError{Field: "date"}
	}

	currency := raw.Currency
	if currency == "" {
		currency = "USD"
	}

	name := raw.Name
	if name == "" {
		name = "Unknown"
	}

	accountID := raw.AccountID
	return models.Transaction{
		TransactionID: raw.TransactionID,
		AccountID:     &accountID,
		Amount:        decimal.NewFromFloat(*raw.Amount),
		Currency:      currency,
		Date:          date,
		Name:          name,
		MerchantName:  raw.MerchantName,
		Category:      strings.Join(raw.Category, ", "),
		Pending:       *raw.Pending,
		Ignored:       models.IgnoredActive,
		Location: models.Location{
			Address:    raw.Location.Address,
			City:       raw.Location.City,
			Region:     raw.Location.Region,
			PostalCode: raw.Location.PostalCode,
			Country:    raw.Location.Country,
		},
	}, nil
}

// NormalizeBatch normalizes every entry it can, collecting per-entry
// validation failures instead of aborting, so one malformed entry never
// blocks the rest of a feed window.
func NormalizeBatch(raws []RawTransaction) ([]models.Transaction, []SyncError) {
	drafts := make([]models.Transaction, 0, len(raws))
	var errs []SyncError
	for _, raw := range raws {
		draft, err := Normalize(raw)
		if err != nil {
			errs = append(errs, SyncError{TransactionID: raw.TransactionID, Message: err.Error()})
			continue
		}
		drafts = append(drafts, draft)
	}
	return drafts, errs
}
