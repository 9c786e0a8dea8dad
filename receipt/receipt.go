// Package receipt models the proof-of-purchase handed to the backend
// for reconciliation. Retrieval mechanics are platform glue; the SDK
// only consumes the Provider interface.
package receipt

import (
	"context"

	"github.com/devsisters/go-applereceipt"
	"github.com/devsisters/go-applereceipt/applepki"
	"github.com/pkg/errors"

	"github.com/helioapps/purchasekit/errs"
)

// Provider returns the serialized, provider-issued proof-of-purchase,
// base64-encoded. An error means no receipt is available.
type Provider interface {
	Receipt(ctx context.Context) (string, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context) (string, error)

func (f ProviderFunc) Receipt(ctx context.Context) (string, error) {
	return f(ctx)
}

// Inspector sanity-checks a serialized receipt locally before any
// network submission: the payload must decode against the provider's
// certificate chain and carry the expected bundle identifier. It does
// not replace backend reconciliation.
type Inspector struct {
	bundleID string
}

func NewInspector(bundleID string) *Inspector {
	return &Inspector{bundleID: bundleID}
}

func (i *Inspector) Inspect(encoded string) error {
	decoded, err := applereceipt.DecodeBase64(encoded, applepki.CertPool())
	if err != nil {
		return errs.InvalidReceipt(err)
	}

	if i.bundleID != "" && decoded.BundleIdentifier != i.bundleID {
		return errs.InvalidReceipt(errors.Errorf(
			"receipt issued for %q, expected %q", decoded.BundleIdentifier, i.bundleID))
	}
	return nil
}
