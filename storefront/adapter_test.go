package storefront

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/helioapps/purchasekit/errs"
)

type capabilityProbe bool

func (c capabilityProbe) SupportsTransactionStream() bool { return bool(c) }

func TestDetectGeneration(t *testing.T) {
	require.Equal(t, GenerationModern, DetectGeneration(capabilityProbe(true)))
	require.Equal(t, GenerationLegacy, DetectGeneration(capabilityProbe(false)))
	require.Equal(t, GenerationLegacy, DetectGeneration(nil))
}

func TestPurchaseOptionsValidate(t *testing.T) {
	require.NoError(t, PurchaseOptions{Quantity: 1}.Validate())
	require.NoError(t, PurchaseOptions{Quantity: 3, SimulateDeferred: true}.Validate())

	err := PurchaseOptions{}.Validate()
	require.True(t, errs.IsCode(err, errs.CodeInvalidArgument))

	err = PurchaseOptions{Quantity: -1}.Validate()
	require.True(t, errs.IsCode(err, errs.CodeInvalidArgument))
}
