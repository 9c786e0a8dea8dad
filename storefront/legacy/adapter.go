package legacy

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/helioapps/purchasekit/errs"
	"github.com/helioapps/purchasekit/model"
	"github.com/helioapps/purchasekit/storefront"
)

// Adapter wraps a Queue behind the storefront contract. All registry
// mutation and callback classification funnels through one serial
// dispatch goroutine so queue callbacks never interleave with purchase
// bookkeeping.
type Adapter struct {
	log      *zap.Logger
	queue    Queue
	registry *storefront.Registry

	calls chan func()
	done  chan struct{}

	closeOnce sync.Once

	// restoredBatch accumulates restored transactions between the
	// first restored callback and the restore-completed signal. Only
	// the serial loop touches it.
	restoredBatch []model.Transaction
}

var _ storefront.Adapter = (*Adapter)(nil)

func NewAdapter(log *zap.Logger, queue Queue) *Adapter {
	a := &Adapter{
		log:      log,
		queue:    queue,
		registry: storefront.NewRegistry(log),
		calls:    make(chan func(), 64),
		done:     make(chan struct{}),
	}

	queue.SetObserver(a)
	go a.run()

	return a
}

// run is the dedicated serial execution context.
func (a *Adapter) run() {
	for {
		select {
		case f := <-a.calls:
			f()
		case <-a.done:
			return
		}
	}
}

func (a *Adapter) dispatch(f func()) {
	select {
	case a.calls <- f:
	case <-a.done:
	}
}

// sync runs f on the serial loop and waits for it.
func (a *Adapter) sync(f func()) {
	ran := make(chan struct{})
	a.dispatch(func() {
		f()
		close(ran)
	})

	select {
	case <-ran:
	case <-a.done:
	}
}

func (a *Adapter) FetchProducts(ctx context.Context, ids []string) ([]model.Product, error) {
	if len(ids) == 0 {
		return nil, errs.NoProductIDs()
	}

	type result struct {
		products []Product
		err      error
	}
	resultC := make(chan result, 1)

	a.queue.FetchProducts(ids, func(products []Product, err error) {
		resultC <- result{products: products, err: err}
	})

	select {
	case res := <-resultC:
		if res.err != nil {
			return nil, errs.Wrap(res.err, errs.DomainProvider, errs.CodeStoreProductNotFound, "store products fetch failed")
		}
		products := make([]model.Product, 0, len(res.products))
		for _, qp := range res.products {
			products = append(products, toModelProduct(qp))
		}
		return products, nil
	case <-ctx.Done():
		return nil, errs.FetchFailed(ctx.Err())
	}
}

// Purchase registers a one-shot completion keyed by product id, hands
// the payment to the queue, and suspends until the matching terminal
// callback fires. A second call for an in-flight product waits its
// turn in FIFO order rather than failing.
func (a *Adapter) Purchase(ctx context.Context, product model.Product, opts storefront.PurchaseOptions) (model.Transaction, error) {
	if err := opts.Validate(); err != nil {
		return model.Transaction{}, err
	}

	sink := make(chan storefront.PurchaseOutcome, 1)
	a.sync(func() {
		a.registry.Register(product.ID, sink)
	})

	a.queue.AddPayment(product.ID, opts.Quantity, opts.SimulateDeferred)

	select {
	case outcome := <-sink:
		return outcome.Transaction, outcome.Err
	case <-ctx.Done():
		// The queue cannot cancel a dispatched payment; abandon the
		// sink so the eventual terminal callback routes to the
		// fallback subscriber instead of a dead caller.
		a.sync(func() {
			a.registry.Remove(product.ID, sink)
		})
		return model.Transaction{}, errs.PurchaseFailed(ctx.Err())
	}
}

func (a *Adapter) Restore(ctx context.Context) ([]model.Transaction, error) {
	sink := make(chan storefront.RestoreOutcome, 1)
	a.sync(func() {
		a.registry.AddRestoreWaiter(sink)
	})

	a.queue.RestoreCompletedPayments()

	select {
	case outcome := <-sink:
		return outcome.Transactions, outcome.Err
	case <-ctx.Done():
		return nil, errs.RestoreFailed(ctx.Err())
	}
}

// Listen installs the catch-all subscriber for transactions with no
// pending purchase call (renewals, family-shared purchases).
func (a *Adapter) Listen(fn func(model.Transaction)) (stop func()) {
	a.registry.SetFallback(fn)
	return func() {
		a.registry.SetFallback(nil)
	}
}

func (a *Adapter) CanMakePayments() bool {
	return a.queue.CanMakePayments()
}

func (a *Adapter) Close() error {
	a.closeOnce.Do(func() {
		close(a.done)
		a.registry.FailAll(errs.New(errs.DomainProvider, errs.CodePurchaseFailed, "adapter closed"))
	})
	return nil
}

// UpdatedPayments implements Observer. Classification runs on the
// serial loop: in-progress is ignored, purchased/restored/failed route
// through the registry, deferred and failure detail accumulate in the
// log.
func (a *Adapter) UpdatedPayments(updates []PaymentUpdate) {
	a.dispatch(func() {
		for _, update := range updates {
			a.handleUpdate(update)
		}
	})
}

func (a *Adapter) handleUpdate(update PaymentUpdate) {
	log := a.log.With(
		zap.String("product_id", update.ProductID),
		zap.String("payment_id", update.PaymentID),
		zap.String("state", update.State.String()),
	)

	switch update.State {
	case PaymentStateInProgress:
		// Not terminal; the queue will call back again.

	case PaymentStatePurchased:
		a.registry.Deliver(update.ProductID, storefront.PurchaseOutcome{
			Transaction: a.toTransaction(update),
		})

	case PaymentStateRestored:
		txn := a.toTransaction(update)
		// A pending purchase for the same product may legitimately be
		// satisfied by a restored payment; otherwise the transaction
		// joins the restore batch.
		if a.registry.PendingCount(update.ProductID) > 0 {
			a.registry.Deliver(update.ProductID, storefront.PurchaseOutcome{Transaction: txn})
			return
		}
		a.restoredBatch = append(a.restoredBatch, txn)

	case PaymentStateDeferred:
		log.Info("Payment deferred, awaiting approval")

	case PaymentStateFailed:
		err := update.Err
		if err == nil {
			err = errors.New("payment failed without detail")
		}
		log.Debug("Payment failed", zap.Error(err))
		a.registry.Deliver(update.ProductID, storefront.PurchaseOutcome{
			Err: errs.PurchaseFailed(err),
		})

	default:
		log.Warn("Unrecognized payment state")
	}
}

// RestoreCompleted implements Observer. Flushes the accumulated batch
// to every restore waiter atomically.
func (a *Adapter) RestoreCompleted() {
	a.dispatch(func() {
		batch := a.restoredBatch
		a.restoredBatch = nil
		a.registry.FlushRestoreWaiters(storefront.RestoreOutcome{Transactions: batch})
	})
}

// RestoreFailed implements Observer.
func (a *Adapter) RestoreFailed(err error) {
	a.dispatch(func() {
		a.restoredBatch = nil
		a.registry.FlushRestoreWaiters(storefront.RestoreOutcome{Err: errs.RestoreFailed(err)})
	})
}

func (a *Adapter) toTransaction(update PaymentUpdate) model.Transaction {
	paymentID := update.PaymentID
	quantity := update.Quantity
	if quantity < 1 {
		quantity = 1
	}

	return model.NewTransaction(
		update.TransactionID,
		update.OriginalTransactionID,
		update.ProductID,
		quantity,
		update.PurchaseDate,
		func(context.Context) error {
			return a.queue.FinishPayment(paymentID)
		},
	)
}

func toModelProduct(qp Product) model.Product {
	return model.Product{
		ID:                  qp.ID,
		DisplayName:         qp.DisplayName,
		Description:         qp.Description,
		Price:               qp.Price,
		CurrencyCode:        qp.CurrencyCode,
		SubscriptionPeriod:  qp.SubscriptionPeriod,
		FamilyShareable:     qp.FamilyShareable,
		SubscriptionGroupID: qp.SubscriptionGroupID,
		Raw:                 qp,
	}
}
