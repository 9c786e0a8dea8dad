// Package storefronttest provides hand-rolled fakes for both
// purchasing generations, used by adapter and orchestrator tests.
package storefronttest

import (
	"fmt"
	"sync"
	"time"

	"github.com/helioapps/purchasekit/storefront/legacy"
)

// FakeQueue is a scriptable legacy provider. By default AddPayment
// answers asynchronously with an in-progress update followed by a
// purchased one; Manual mode leaves all callbacks to the test.
type FakeQueue struct {
	mu       sync.Mutex
	observer legacy.Observer

	products map[string]legacy.Product
	fetchErr error

	manual    bool
	nextState legacy.PaymentState
	nextErr   error

	restoreUpdates []legacy.PaymentUpdate
	restoreErr     error

	paymentsDisabled bool

	payments []string
	finished []string
	seq      int
}

var _ legacy.Queue = (*FakeQueue)(nil)

func NewFakeQueue(products ...legacy.Product) *FakeQueue {
	byID := make(map[string]legacy.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &FakeQueue{
		products:  byID,
		nextState: legacy.PaymentStatePurchased,
	}
}

func (q *FakeQueue) SetObserver(o legacy.Observer) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.observer = o
}

func (q *FakeQueue) FetchProducts(ids []string, completion func([]legacy.Product, error)) {
	q.mu.Lock()
	fetchErr := q.fetchErr
	var found []legacy.Product
	for _, id := range ids {
		if p, ok := q.products[id]; ok {
			found = append(found, p)
		}
	}
	q.mu.Unlock()

	if fetchErr != nil {
		completion(nil, fetchErr)
		return
	}
	completion(found, nil)
}

func (q *FakeQueue) AddPayment(productID string, quantity int, simulateDeferred bool) {
	q.mu.Lock()
	q.payments = append(q.payments, productID)
	q.seq++
	seq := q.seq
	observer := q.observer
	manual := q.manual
	state := q.nextState
	err := q.nextErr
	q.nextState = legacy.PaymentStatePurchased
	q.nextErr = nil
	q.mu.Unlock()

	if manual || observer == nil {
		return
	}

	if simulateDeferred {
		state = legacy.PaymentStateDeferred
	}

	go func() {
		observer.UpdatedPayments([]legacy.PaymentUpdate{{
			State:     legacy.PaymentStateInProgress,
			PaymentID: fmt.Sprintf("pay-%d", seq),
			ProductID: productID,
			Quantity:  quantity,
		}})

		observer.UpdatedPayments([]legacy.PaymentUpdate{{
			State:         state,
			PaymentID:     fmt.Sprintf("pay-%d", seq),
			ProductID:     productID,
			Quantity:      quantity,
			TransactionID: fmt.Sprintf("txn-%d", seq),
			PurchaseDate:  time.Now(),
			Err:           err,
		}})
	}()
}

func (q *FakeQueue) RestoreCompletedPayments() {
	q.mu.Lock()
	observer := q.observer
	manual := q.manual
	updates := q.restoreUpdates
	restoreErr := q.restoreErr
	q.mu.Unlock()

	if manual || observer == nil {
		return
	}

	go func() {
		if restoreErr != nil {
			observer.RestoreFailed(restoreErr)
			return
		}
		if len(updates) > 0 {
			observer.UpdatedPayments(updates)
		}
		observer.RestoreCompleted()
	}()
}

func (q *FakeQueue) FinishPayment(paymentID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.finished = append(q.finished, paymentID)
	return nil
}

func (q *FakeQueue) CanMakePayments() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return !q.paymentsDisabled
}

// Scripting helpers.

func (q *FakeQueue) SetManual() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.manual = true
}

func (q *FakeQueue) FailNextPayment(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nextState = legacy.PaymentStateFailed
	q.nextErr = err
}

func (q *FakeQueue) SetFetchError(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.fetchErr = err
}

func (q *FakeQueue) SetRestoreUpdates(updates ...legacy.PaymentUpdate) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.restoreUpdates = updates
}

func (q *FakeQueue) SetRestoreError(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.restoreErr = err
}

func (q *FakeQueue) DisablePayments() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.paymentsDisabled = true
}

// EmitUpdates pushes raw queue callbacks, for Manual-mode tests.
func (q *FakeQueue) EmitUpdates(updates ...legacy.PaymentUpdate) {
	q.mu.Lock()
	observer := q.observer
	q.mu.Unlock()
	if observer != nil {
		observer.UpdatedPayments(updates)
	}
}

func (q *FakeQueue) EmitRestoreCompleted() {
	q.mu.Lock()
	observer := q.observer
	q.mu.Unlock()
	if observer != nil {
		observer.RestoreCompleted()
	}
}

func (q *FakeQueue) Payments() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.payments...)
}

func (q *FakeQueue) Finished() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.finished...)
}
