package model

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestTransaction_FinishIsIdempotent(t *testing.T) {
	var calls int
	txn := NewTransaction("t1", "", "6m_access", 1, time.Now(), func(context.Context) error {
		calls++
		return nil
	})

	require.False(t, txn.Finished())

	for i := 0; i < 5; i++ {
		require.NoError(t, txn.Finish(context.Background()))
	}
	require.Equal(t, 1, calls)
	require.True(t, txn.Finished())
}

func TestTransaction_FinishSharedAcrossCopies(t *testing.T) {
	var calls int
	txn := NewTransaction("t1", "", "6m_access", 1, time.Now(), func(context.Context) error {
		calls++
		return nil
	})

	cp := txn
	require.NoError(t, cp.Finish(context.Background()))
	require.NoError(t, txn.Finish(context.Background()))

	require.Equal(t, 1, calls)
	require.True(t, txn.Finished())
	require.True(t, cp.Finished())
}

func TestTransaction_FinishReturnsFirstError(t *testing.T) {
	finishErr := errors.New("queue unavailable")
	txn := NewTransaction("t1", "", "6m_access", 1, time.Now(), func(context.Context) error {
		return finishErr
	})

	require.Equal(t, finishErr, txn.Finish(context.Background()))
	require.Equal(t, finishErr, txn.Finish(context.Background()))
}

func TestTransaction_FinishConcurrent(t *testing.T) {
	var calls int
	txn := NewTransaction("t1", "", "6m_access", 1, time.Now(), func(context.Context) error {
		calls++
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = txn.Finish(context.Background())
		}()
	}
	wg.Wait()

	require.Equal(t, 1, calls)
}

func TestTransaction_NilFinisherIsNoop(t *testing.T) {
	txn := Transaction{TransactionID: "t1"}
	require.NoError(t, txn.Finish(context.Background()))
	require.False(t, txn.Finished())
}
