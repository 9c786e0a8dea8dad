package memory

import (
	"testing"

	"github.com/helioapps/purchasekit/session/tests"
)

func TestInMemorySessionStore(t *testing.T) {
	store := NewInMemory()
	tests.RunStoreTests(t, store, store.reset)
}
