// Package legacy adapts the push-style observer/callback purchasing
// generation to the storefront contract. Purchase initiation and
// result delivery are two separate asynchronous events correlated only
// by product id, which is why this adapter carries a completion
// registry; the modern generation needs none.
package legacy

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentState classifies one queue callback element.
type PaymentState uint8

const (
	PaymentStateUnknown PaymentState = iota
	PaymentStateInProgress
	PaymentStatePurchased
	PaymentStateRestored
	PaymentStateDeferred
	PaymentStateFailed
)

func (s PaymentState) String() string {
	switch s {
	case PaymentStateInProgress:
		return "in_progress"
	case PaymentStatePurchased:
		return "purchased"
	case PaymentStateRestored:
		return "restored"
	case PaymentStateDeferred:
		return "deferred"
	case PaymentStateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// PaymentUpdate is one element of a queue observer callback.
type PaymentUpdate struct {
	State PaymentState

	// PaymentID is the queue-side handle used to finish the payment.
	PaymentID string

	ProductID             string
	Quantity              int
	TransactionID         string
	OriginalTransactionID string
	PurchaseDate          time.Time

	// Err is set for PaymentStateFailed.
	Err error
}

// Product is the queue-side product descriptor.
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

// Observer receives push callbacks from the queue. The adapter is the
// only observer; platform glue must deliver callbacks sequentially per
// observer but may do so from any goroutine.
type Observer interface {
	UpdatedPayments(updates []PaymentUpdate)
	RestoreCompleted()
	RestoreFailed(err error)
}

// Queue is the legacy purchasing provider. Operations, once
// dispatched, cannot be cancelled: a terminal callback always arrives.
type Queue interface {
	SetObserver(o Observer)
	FetchProducts(ids []string, completion func([]Product, error))
	AddPayment(productID string, quantity int, simulateDeferred bool)
	RestoreCompletedPayments()
	FinishPayment(paymentID string) error
	CanMakePayments() bool
}
