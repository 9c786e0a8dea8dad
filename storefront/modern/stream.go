// Package modern adapts the pull-style async transaction stream
// purchasing generation to the storefront contract. Purchase
// initiation and its result are one call here, so no completion
// registry exists; only the long-lived stream listener needs the
// single-subscriber routing the legacy generation uses for restores.
package modern

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SignedTransaction is one element of the provider's transaction
// stream. Verified reports whether the provider's cryptographic
// signature checked out; unverified elements must never be treated as
// purchases.
type SignedTransaction struct {
	TransactionID         string
	OriginalTransactionID string
	ProductID             string
	Quantity              int
	PurchaseDate          time.Time
	Verified              bool
}

// PurchaseResultKind classifies the direct purchase call outcome.
type PurchaseResultKind uint8

const (
	PurchaseResultUnknown PurchaseResultKind = iota
	PurchaseResultSuccessVerified
	PurchaseResultSuccessUnverified
	PurchaseResultPendingApproval
	PurchaseResultUserCancelled
)

// PurchaseResult is the provider's answer to a purchase call.
// Transaction is set for the two success kinds.
type PurchaseResult struct {
	Kind        PurchaseResultKind
	Transaction SignedTransaction
}

// Product is the stream-side product descriptor.
type Product struct {
	ID                  string
	DisplayName         string
	Description         string
	Price               decimal.Decimal
	CurrencyCode        string
	SubscriptionPeriod  string
	FamilyShareable     bool
	SubscriptionGroupID string
}

// Stream is the modern purchasing provider. Updates is consumed by
// exactly one long-lived listener for the adapter's lifetime; the
// provider closes the channel when ctx is cancelled.
type Stream interface {
	Updates(ctx context.Context) <-chan SignedTransaction
	Products(ctx context.Context, ids []string) ([]Product, error)
	Purchase(ctx context.Context, productID string, quantity int, simulateDeferred bool) (PurchaseResult, error)
	Restore(ctx context.Context) ([]SignedTransaction, error)
	Finish(ctx context.Context, transactionID string) error
	CanMakePayments() bool
}
