package model

import (
	"github.com/shopspring/decimal"
)

// Product is the unified descriptor for a purchasable item, regardless
// of which purchasing generation supplied it. Products are immutable
// and compared by ID.
type Product struct {
	ID          string
	DisplayName string
	Description string

	Price        decimal.Decimal
	CurrencyCode string

	// SubscriptionPeriod is an ISO-8601 duration (e.g. "P1M"), empty
	// for non-subscription products.
	SubscriptionPeriod  string
	FamilyShareable     bool
	SubscriptionGroupID string

	// Raw holds the original platform object for advanced callers.
	// Never inspected by the SDK itself.
	Raw any
}

func (p Product) Equal(other Product) bool {
	return p.ID == other.ID
}

func (p Product) IsSubscription() bool {
	return p.SubscriptionPeriod != ""
}

// ProductsByID indexes products for offering joins.
func ProductsByID(products []Product) map[string]Product {
	m := make(map[string]Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return m
}
