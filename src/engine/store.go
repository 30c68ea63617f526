package engine

import (
	"context"

	"centsible-server/src/models"
)

// Store is the durable transaction table the engine reconciles into. Get
// returns (nil, nil) when the id has never been seen. UpdateFields applies a
// partial update keyed by column name and only touches the named fields.
type Store interface {
	Get(ctx context.Context, transactionID string) (*models.Transaction, error)
	Insert(ctx context.Context, tx models.Transaction) error
	UpdateFields(ctx context.Context, transactionID string, fields map[string]any) error
	ScanAll(ctx context.Context) ([]models.Transaction, error)
}

// AccountLookup answers whether an account is known. The reconciler consults
// it before admitting any feed draft.
type AccountLookup interface {
	AccountExists(ctx context.Context, accountID string) (bool, error)
}
