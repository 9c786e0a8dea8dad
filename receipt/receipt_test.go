package receipt

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/helioapps/purchasekit/errs"
)

func TestProviderFunc(t *testing.T) {
	p := ProviderFunc(func(context.Context) (string, error) {
		return "payload", nil
	})

	got, err := p.Receipt(context.Background())
	require.NoError(t, err)
	require.Equal(t, "payload", got)
}

func TestInspector_RejectsGarbage(t *testing.T) {
	inspector := NewInspector("com.helioapps.sample")

	err := inspector.Inspect("not-base64!!!")
	require.True(t, errs.IsCode(err, errs.CodeInvalidReceipt))
}

func TestInspector_RejectsUnsignedPayload(t *testing.T) {
	inspector := NewInspector("com.helioapps.sample")

	// Valid base64, but not a PKCS#7 receipt signed by the provider.
	payload := base64.StdEncoding.EncodeToString([]byte("plain payload"))
	err := inspector.Inspect(payload)
	require.True(t, errs.IsCode(err, errs.CodeInvalidReceipt))
	require.Error(t, errors.Cause(err))
}
