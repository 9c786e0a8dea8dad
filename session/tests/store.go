package tests

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/helioapps/purchasekit/session"
)

func RunStoreTests(t *testing.T, s session.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s session.Store){
		testSessionStore_Identity,
		testSessionStore_LanguageCode,
	} {
		tf(t, s)
		teardown()
	}
}

func testSessionStore_Identity(t *testing.T, store session.Store) {
	_, err := store.GetIdentity(context.Background())
	require.Equal(t, session.ErrNotFound, err)

	expected := session.Identity{
		UserID:     "user-123",
		DeviceUUID: "b2bc0d0e-3eb7-4e0f-90a5-6f2f9e1a6a10",
	}
	require.NoError(t, store.SetIdentity(context.Background(), expected))

	actual, err := store.GetIdentity(context.Background())
	require.NoError(t, err)
	require.Equal(t, expected, actual)

	// Overwrite is a full replacement.
	expected.UserID = session.AnonymousIDPrefix + "abc"
	require.NoError(t, store.SetIdentity(context.Background(), expected))

	actual, err = store.GetIdentity(context.Background())
	require.NoError(t, err)
	require.Equal(t, expected, actual)
}

func testSessionStore_LanguageCode(t *testing.T, store session.Store) {
	_, err := store.GetLanguageCode(context.Background())
	require.Equal(t, session.ErrNotFound, err)

	require.NoError(t, store.SetLanguageCode(context.Background(), "en"))

	code, err := store.GetLanguageCode(context.Background())
	require.NoError(t, err)
	require.Equal(t, "en", code)
}
