package db

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"centsible-server/src/models"
)

const transactionColumns = `
	transaction_id, account_id, amount::text, iso_currency_code, date, name,
	merchant_name, category, pending, user_category_id, user_subcategory_id,
	ignored, potential_duplicate, confirmed_duplicate, parent_transaction_id,
	location_address, location_city, location_region, location_postal_code,
	location_country, created_at`

// Store implements the engine's Store and AccountLookup interfaces over
// Postgres.
type Store struct {
	Pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (models.Transaction, error) {
	var tx models.Transaction
	var amount, ignored string
	err := row.Scan(
		&tx.TransactionID, &tx.AccountID, &amount, &tx.Currency, &tx.Date, &tx.Name,
		&tx.MerchantName, &tx.Category, &tx.Pending, &tx.UserCategoryID, &tx.UserSubcategoryID,
		&ignored, &tx.PotentialDuplicate, &tx.ConfirmedDuplicate, &tx.ParentTransactionID,
		&tx.Location.Address, &tx.Location.City, &tx.Location.Region, &tx.Location.PostalCode,
		&tx.Location.Country, &tx.CreatedAt,
	)
	if err != nil {
		return models.Transaction{}, err
	}
	tx.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("parse amount for %s: %w", tx.TransactionID, err)
	}
	tx.Ignored = models.IgnoredState(ignored)
	return tx, nil
}

func (s *Store) Get(ctx context.Context, transactionID string) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE transaction_id = $1`
	tx, err := scanTransaction(s.Pool.QueryRow(ctx, query, transactionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (s *Store) Insert(ctx context.Context, tx models.Transaction) error {
	query := `
		INSERT INTO transactions (
			transaction_id, account_id, amount, iso_currency_code, date, name,
			merchant_name, category, pending, user_category_id, user_subcategory_id,
			ignored, potential_duplicate, confirmed_duplicate, parent_transaction_id,
			location_address, location_city, location_region, location_postal_code,
			location_country, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, NOW())
	`
	_, err := s.Pool.Exec(ctx, query,
		tx.TransactionID, tx.AccountID, tx.Amount.String(), tx.Currency, tx.Date, tx.Name,
		tx.MerchantName, tx.Category, tx.Pending, tx.UserCategoryID, tx.UserSubcategoryID,
		string(tx.Ignored), tx.PotentialDuplicate, tx.ConfirmedDuplicate, tx.ParentTransactionID,
		tx.Location.Address, tx.Location.City, tx.Location.Region, tx.Location.PostalCode,
		tx.Location.Country,
	)
	return err
}

// UpdateFields applies a partial update keyed by column name. Keys are
// sorted so the generated SQL is deterministic.
func (s *Store) UpdateFields(ctx context.Context, transactionID string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	set := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys)+1)
	for i, k := range keys {
		set = append(set, fmt.Sprintf("%s = $%d", k, i+1))
		args = append(args, encodeValue(fields[k]))
	}
	args = append(args, transactionID)

	query := fmt.Sprintf("UPDATE transactions SET %s WHERE transaction_id = $%d",
		strings.Join(set, ", "), len(args))
	_, err := s.Pool.Exec(ctx, query, args...)
	return err
}

func (s *Store) ScanAll(ctx context.Context) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions ORDER BY date DESC, transaction_id`
	return s.queryTransactions(ctx, query)
}

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]models.Transaction, error) {
	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

// encodeValue maps model types onto what pgx encodes natively.
func encodeValue(v any) any {
	switch val := v.(type) {
	case decimal.Decimal:
		return val.String()
	case *decimal.Decimal:
		if val == nil {
			return nil
		}
		return val.String()
	case models.IgnoredState:
		return string(val)
	default:
		return v
	}
}

// GetAllTransactions lists every row, most recent first.
func (s *Store) GetAllTransactions(ctx context.Context) ([]models.Transaction, error) {
	return s.ScanAll(ctx)
}

// GetUnprocessedTransactions lists rows a human still has to look at:
// uncategorized and still active.
func (s *Store) GetUnprocessedTransactions(ctx context.Context) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_category_id IS NULL AND ignored = 'active'
		ORDER BY date DESC, transaction_id`
	return s.queryTransactions(ctx, query)
}

// GetProcessedTransactions lists rows that are categorized or ignored.
func (s *Store) GetProcessedTransactions(ctx context.Context) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_category_id IS NOT NULL OR ignored <> 'active'
		ORDER BY date DESC, transaction_id`
	return s.queryTransactions(ctx, query)
}

// UpdateUserFields writes the user-owned columns for one transaction. This
// is the only sync-adjacent path allowed to touch them.
func (s *Store) UpdateUserFields(ctx context.Context, transactionID string, categoryID, subcategoryID *int64, ignored models.IgnoredState) error {
	query := `
		UPDATE transactions
		SET user_category_id = $1, user_subcategory_id = $2, ignored = $3
		WHERE transaction_id = $4
	`
	tag, err := s.Pool.Exec(ctx, query, categoryID, subcategoryID, string(ignored), transactionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// InsertManualTransaction creates a user-entered row with a generated id and
// returns it. Manual rows may have no account.
func (s *Store) InsertManualTransaction(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	tx.TransactionID = uuid.NewString()
	if tx.Currency == "" {
		tx.Currency = "USD"
	}
	if tx.Ignored == "" {
		tx.Ignored = models.IgnoredActive
	}
	if err := s.Insert(ctx, tx); err != nil {
		return models.Transaction{}, err
	}
	return tx, nil
}

// SplitTransaction marks the original as split, clears its user categories,
// and inserts one child per requested part carrying the parent id. Runs in a
// transaction so a failed child insert never leaves the parent ignored with
// no children.
func (s *Store) SplitTransaction(ctx context.Context, transactionID string, parts []models.Transaction) ([]models.Transaction, error) {
	original, err := s.Get(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if original == nil {
		return nil, pgx.ErrNoRows
	}

	dbtx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer dbtx.Rollback(ctx)

	_, err = dbtx.Exec(ctx, `
		UPDATE transactions
		SET ignored = 'split', user_category_id = NULL, user_subcategory_id = NULL
		WHERE transaction_id = $1
	`, transactionID)
	if err != nil {
		return nil, err
	}

	children := make([]models.Transaction, 0, len(parts))
	for _, part := range parts {
		child := *original
		child.TransactionID = uuid.NewString()
		child.ParentTransactionID = &transactionID
		child.Amount = part.Amount
		child.Ignored = models.IgnoredActive
		child.UserCategoryID = part.UserCategoryID
		child.UserSubcategoryID = part.UserSubcategoryID
		child.PotentialDuplicate = false
		child.ConfirmedDuplicate = nil
		if part.Name != "" {
			child.Name = part.Name
		}

		_, err = dbtx.Exec(ctx, `
			INSERT INTO transactions (
				transaction_id, account_id, amount, iso_currency_code, date, name,
				merchant_name, category, pending, user_category_id, user_subcategory_id,
				ignored, potential_duplicate, confirmed_duplicate, parent_transaction_id,
				location_address, location_city, location_region, location_postal_code,
				location_country, created_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, NOW())
		`,
			child.TransactionID, child.AccountID, child.Amount.String(), child.Currency, child.Date, child.Name,
			child.MerchantName, child.Category, child.Pending, child.UserCategoryID, child.UserSubcategoryID,
			string(child.Ignored), child.PotentialDuplicate, child.ConfirmedDuplicate, child.ParentTransactionID,
			child.Location.Address, child.Location.City, child.Location.Region, child.Location.PostalCode,
			child.Location.Country,
		)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	if err := dbtx.Commit(ctx); err != nil {
		return nil, err
	}
	return children, nil
}

// DeleteTransaction hard-deletes one row. The sync engine never calls this.
func (s *Store) DeleteTransaction(ctx context.Context, transactionID string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM transactions WHERE transaction_id = $1`, transactionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
