// Package storefront defines the version-agnostic contract over the
// platform purchasing API, plus the routing primitives that pair
// initiated purchases with their asynchronous results.
//
// Two incompatible provider generations exist: a legacy push-style
// observer queue and a modern pull-style transaction stream. Each is
// wrapped by an adapter in a subpackage; callers only ever see this
// contract.
package storefront

import (
	"context"

	"github.com/helioapps/purchasekit/errs"
	"github.com/helioapps/purchasekit/model"
)

// PurchaseOptions carries the per-call purchase parameters.
type PurchaseOptions struct {
	Quantity         int
	SimulateDeferred bool
}

// Validate rejects nonsensical quantities with a typed error instead
// of panicking.
func (o PurchaseOptions) Validate() error {
	if o.Quantity < 1 {
		return errs.InvalidArgument("quantity must be at least 1")
	}
	return nil
}

// Adapter is the capability surface shared by both purchasing
// generations. Purchase and Restore block until a terminal outcome;
// Listen installs the single long-lived subscriber for unsolicited
// transaction updates.
type Adapter interface {
	FetchProducts(ctx context.Context, ids []string) ([]model.Product, error)
	Purchase(ctx context.Context, product model.Product, opts PurchaseOptions) (model.Transaction, error)
	Restore(ctx context.Context) ([]model.Transaction, error)
	Listen(fn func(model.Transaction)) (stop func())
	CanMakePayments() bool
	Close() error
}

// Generation identifies which purchasing API generation serves this
// process. Chosen exactly once at startup; never re-probed.
type Generation uint8

const (
	GenerationUnknown Generation = iota
	GenerationLegacy
	GenerationModern
)

func (g Generation) String() string {
	switch g {
	case GenerationLegacy:
		return "legacy"
	case GenerationModern:
		return "modern"
	default:
		return "unknown"
	}
}

// Capabilities probes what the running platform supports.
type Capabilities interface {
	SupportsTransactionStream() bool
}

// DetectGeneration resolves the generation from a capability probe.
func DetectGeneration(c Capabilities) Generation {
	if c != nil && c.SupportsTransactionStream() {
		return GenerationModern
	}
	return GenerationLegacy
}
