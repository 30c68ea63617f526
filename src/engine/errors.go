package engine

import "fmt"

// ValidationError marks a feed entry missing a field that later stages depend
// on non-defensively.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid transaction: missing required field %q", e.Field)
}

// UnknownAccountError is a referential-integrity failure: the draft names an
// account the store has never seen. Recorded as a skip, never fatal.
type UnknownAccountError struct {
	AccountID string
}

func (e *UnknownAccountError) Error() string {
	return fmt.Sprintf("unknown account %q", e.AccountID)
}

// NotFoundError is returned when an operation names a transaction id that
// does not exist.
type NotFoundError struct {
	TransactionID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("transaction %q not found", e.TransactionID)
}

// StoreError wraps a backing-store failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
