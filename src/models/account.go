package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a balance snapshot for one linked account, upserted on every
// feed sync.
type Account struct {
	AccountID        string           `json:"account_id"`
	Name             string           `json:"name"`
	OfficialName     *string          `json:"official_name"`
	Type             string           `json:"type"`
	Subtype          string           `json:"subtype"`
	BalanceAvailable *decimal.Decimal `json:"balance_available"`
	BalanceCurrent   *decimal.Decimal `json:"balance_current"`
	Currency         string           `json:"iso_currency_code"`
	UpdatedAt        time.Time        `json:"updated_at"`
}
