package db

import (
	"context"

	"centsible-server/src/models"
)

// UpsertAccounts writes one balance snapshot per account, inserting or
// refreshing in place.
func (s *Store) UpsertAccounts(ctx context.Context, accounts []models.Account) error {
	for _, acc := range accounts {
		query := `
			INSERT INTO accounts (account_id, name, official_name, type, subtype, balance_available, balance_current, iso_currency_code, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
			ON CONFLICT (account_id) DO UPDATE SET
				name = $2,
				official_name = $3,
				type = $4,
				subtype = $5,
				balance_available = $6,
				balance_current = $7,
				iso_currency_code = $8,
				updated_at = NOW()
		`
		_, err := s.Pool.Exec(ctx, query,
			acc.AccountID,
			acc.Name,
			acc.OfficialName,
			acc.Type,
			acc.Subtype,
			encodeValue(acc.BalanceAvailable),
			encodeValue(acc.BalanceCurrent),
			acc.Currency,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) GetAccounts(ctx context.Context) ([]models.Account, error) {
	query := `
		SELECT account_id, name, official_name, type, subtype, balance_available::text, balance_current::text, iso_currency_code, updated_at
		FROM accounts
		ORDER BY name
	`
	rows, err := s.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var acc models.Account
		var available, current *string
		err := rows.Scan(&acc.AccountID, &acc.Name, &acc.OfficialName, &acc.Type, &acc.Subtype, &available, &current, &acc.Currency, &acc.UpdatedAt)
		if err != nil {
			return nil, err
		}
		if acc.BalanceAvailable, err = parseNullDecimal(available); err != nil {
			return nil, err
		}
		if acc.BalanceCurrent, err = parseNullDecimal(current); err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}

func (s *Store) AccountExists(ctx context.Context, accountID string) (bool, error) {
	var exists bool
	err := s.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE account_id = $1)`, accountID).Scan(&exists)
	return exists, err
}
