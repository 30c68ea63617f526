package db

import (
	"context"

	"github.com/dgraph-io/ristretto"

	"centsible-server/src/engine"
)

// CachedAccounts fronts an AccountLookup with a ristretto cache. The
// reconciler asks about the same handful of accounts for every draft in a
// batch, so positive answers are worth keeping. Negative answers are not
// cached: an account may be created by the balance sync moments later.
type CachedAccounts struct {
	lookup engine.AccountLookup
	cache  *ristretto.Cache
}

func NewCachedAccounts(lookup engine.AccountLookup) (*CachedAccounts, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10000, // number of keys to track frequency of
		MaxCost:     10000,
		BufferItems: 64, // number of keys per Get buffer
	})
	if err != nil {
		return nil, err
	}
	return &CachedAccounts{lookup: lookup, cache: cache}, nil
}

func (c *CachedAccounts) AccountExists(ctx context.Context, accountID string) (bool, error) {
	if _, found := c.cache.Get(accountID); found {
		return true, nil
	}
	exists, err := c.lookup.AccountExists(ctx, accountID)
	if err != nil {
		return false, err
	}
	if exists {
		c.cache.Set(accountID, struct{}{}, 1)
	}
	return exists, nil
}

// Clear drops every cached answer. Called after account syncs so existence
// answers are always re-read from the refreshed accounts table.
func (c *CachedAccounts) Clear() {
	c.cache.Clear()
}
