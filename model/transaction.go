package model

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Transaction is one discrete purchase or restore event reported by a
// purchasing provider. Exactly one Transaction exists per real-world
// purchase event; it is created by an adapter and handed to the caller
// once routed.
type Transaction struct {
	TransactionID         string
	OriginalTransactionID string
	ProductID             string
	Quantity              int
	PurchaseDate          time.Time

	finisher *finisher
}

// finisher is shared by all copies of a Transaction so Finish stays
// idempotent across value copies.
type finisher struct {
	once     sync.Once
	finished atomic.Bool
	fn       func(context.Context) error
	err      error
}

// NewTransaction builds a transaction whose Finish invokes finish once.
// A nil finish makes Finish a no-op, used for already-acknowledged
// events.
func NewTransaction(
	transactionID string,
	originalTransactionID string,
	productID string,
	quantity int,
	purchaseDate time.Time,
	finish func(context.Context) error,
) Transaction {
	return Transaction{
		TransactionID:         transactionID,
		OriginalTransactionID: originalTransactionID,
		ProductID:             productID,
		Quantity:              quantity,
		PurchaseDate:          purchaseDate,
		finisher:              &finisher{fn: finish},
	}
}

// Finish acknowledges the transaction to the provider. Idempotent: the
// provider call runs at most once, later calls return the first result.
func (t Transaction) Finish(ctx context.Context) error {
	if t.finisher == nil || t.finisher.fn == nil {
		return nil
	}

	t.finisher.once.Do(func() {
		t.finisher.err = t.finisher.fn(ctx)
		t.finisher.finished.Store(true)
	})
	return t.finisher.err
}

// Finished reports whether Finish has completed at least once.
func (t Transaction) Finished() bool {
	return t.finisher != nil && t.finisher.finished.Load()
}
