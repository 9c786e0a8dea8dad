package storefronttest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/helioapps/purchasekit/storefront/modern"
)

// FakeStream is a scriptable modern provider. Push feeds the update
// stream; Purchase answers from scripted results, defaulting to a
// verified success.
type FakeStream struct {
	mu sync.Mutex

	products map[string]modern.Product
	fetchErr error

	updates chan modern.SignedTransaction

	purchaseResults map[string]modern.PurchaseResult
	purchaseErr     error

	restoreSet []modern.SignedTransaction
	restoreErr error

	finishErr error
	finished  []string

	paymentsDisabled bool
	seq              int
}

var _ modern.Stream = (*FakeStream)(nil)

func NewFakeStream(products ...modern.Product) *FakeStream {
	byID := make(map[string]modern.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &FakeStream{
		products:        byID,
		updates:         make(chan modern.SignedTransaction, 16),
		purchaseResults: map[string]modern.PurchaseResult{},
	}
}

// Updates hands out the scripted stream. The fake never closes it on
// cancellation so drain-on-cancel behavior stays observable; use
// CloseUpdates to simulate the provider ending the stream.
func (s *FakeStream) Updates(ctx context.Context) <-chan modern.SignedTransaction {
	return s.updates
}

func (s *FakeStream) Products(ctx context.Context, ids []string) ([]modern.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fetchErr != nil {
		return nil, s.fetchErr
	}

	var found []modern.Product
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			found = append(found, p)
		}
	}
	return found, nil
}

func (s *FakeStream) Purchase(ctx context.Context, productID string, quantity int, simulateDeferred bool) (modern.PurchaseResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.purchaseErr != nil {
		return modern.PurchaseResult{}, s.purchaseErr
	}

	if result, ok := s.purchaseResults[productID]; ok {
		return result, nil
	}

	if simulateDeferred {
		return modern.PurchaseResult{Kind: modern.PurchaseResultPendingApproval}, nil
	}

	s.seq++
	return modern.PurchaseResult{
		Kind: modern.PurchaseResultSuccessVerified,
		Transaction: modern.SignedTransaction{
			TransactionID: fmt.Sprintf("txn-%d", s.seq),
			ProductID:     productID,
			Quantity:      quantity,
			PurchaseDate:  time.Now(),
			Verified:      true,
		},
	}, nil
}

func (s *FakeStream) Restore(ctx context.Context) ([]modern.SignedTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.restoreErr != nil {
		return nil, s.restoreErr
	}
	return append([]modern.SignedTransaction(nil), s.restoreSet...), nil
}

func (s *FakeStream) Finish(ctx context.Context, transactionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finishErr != nil {
		return s.finishErr
	}
	s.finished = append(s.finished, transactionID)
	return nil
}

func (s *FakeStream) CanMakePayments() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.paymentsDisabled
}

// Scripting helpers.

func (s *FakeStream) Push(txn modern.SignedTransaction) {
	s.updates <- txn
}

func (s *FakeStream) CloseUpdates() {
	close(s.updates)
}

func (s *FakeStream) SetPurchaseResult(productID string, result modern.PurchaseResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purchaseResults[productID] = result
}

func (s *FakeStream) SetPurchaseError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purchaseErr = err
}

func (s *FakeStream) SetRestoreSet(txns ...modern.SignedTransaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restoreSet = txns
}

func (s *FakeStream) SetRestoreError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restoreErr = err
}

func (s *FakeStream) SetFetchError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchErr = err
}

func (s *FakeStream) DisablePayments() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paymentsDisabled = true
}

func (s *FakeStream) Finished() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.finished...)
}

// StaticCapabilities is a fixed capability probe.
type StaticCapabilities bool

func (c StaticCapabilities) SupportsTransactionStream() bool {
	return bool(c)
}
