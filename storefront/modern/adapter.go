package modern

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/helioapps/purchasekit/errs"
	"github.com/helioapps/purchasekit/model"
	"github.com/helioapps/purchasekit/protect"
	"github.com/helioapps/purchasekit/storefront"
)

type listenerState struct {
	onTransaction func(model.Transaction)
	onError       func(error)
}

// Adapter wraps a Stream behind the storefront contract. One
// background goroutine consumes the transaction stream for the
// adapter's entire lifetime: verify, optionally auto-finish, forward
// to the single subscriber.
type Adapter struct {
	log    *zap.Logger
	stream Stream

	autoFinish bool

	listener *protect.Guarded[listenerState]

	cancel    context.CancelFunc
	listening chan struct{}
	closeOnce sync.Once
}

var _ storefront.Adapter = (*Adapter)(nil)

type Option func(*Adapter)

// WithAutoFinish acknowledges every verified stream element to the
// provider before forwarding it.
func WithAutoFinish() Option {
	return func(a *Adapter) { a.autoFinish = true }
}

// WithVerificationFailureHandler receives the unverified-transaction
// errors the stream listener surfaces. Without one they are logged.
func WithVerificationFailureHandler(fn func(error)) Option {
	return func(a *Adapter) {
		a.listener.Mutate(func(s *listenerState) { s.onError = fn })
	}
}

func NewAdapter(log *zap.Logger, stream Stream, opts ...Option) *Adapter {
	ctx, cancel := context.WithCancel(context.Background())

	a := &Adapter{
		log:       log,
		stream:    stream,
		listener:  protect.New(listenerState{}),
		cancel:    cancel,
		listening: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}

	go a.listen(ctx)

	return a
}

// listen is spawned once per adapter lifetime and cancelled only on
// Close. An element received before cancellation is always delivered
// before the task exits.
func (a *Adapter) listen(ctx context.Context) {
	defer close(a.listening)

	updates := a.stream.Updates(ctx)
	for {
		select {
		case signed, ok := <-updates:
			if !ok {
				return
			}
			a.handleStreamElement(ctx, signed)
		case <-ctx.Done():
			// Drain anything the provider already queued so the final
			// transaction is not dropped.
			for {
				select {
				case signed, ok := <-updates:
					if !ok {
						return
					}
					a.handleStreamElement(ctx, signed)
				default:
					return
				}
			}
		}
	}
}

func (a *Adapter) handleStreamElement(ctx context.Context, signed SignedTransaction) {
	state := a.listener.Load()

	if !signed.Verified {
		err := errs.UnverifiedTransaction(signed.TransactionID)
		if state.onError != nil {
			state.onError(err)
		} else {
			a.log.Warn("Dropping unverified stream transaction",
				zap.String("transaction_id", signed.TransactionID),
				zap.String("product_id", signed.ProductID),
			)
		}
		return
	}

	txn := a.toTransaction(signed)

	if a.autoFinish {
		// Finishing must survive adapter teardown; the element was
		// already verified and owed to the subscriber.
		if err := txn.Finish(context.WithoutCancel(ctx)); err != nil {
			a.log.Warn("Auto-finish failed",
				zap.String("transaction_id", signed.TransactionID),
				zap.Error(err),
			)
		}
	}

	if state.onTransaction != nil {
		state.onTransaction(txn)
	} else {
		a.log.Debug("No transaction listener installed, dropping update",
			zap.String("transaction_id", signed.TransactionID),
		)
	}
}

func (a *Adapter) FetchProducts(ctx context.Context, ids []string) ([]model.Product, error) {
	if len(ids) == 0 {
		return nil, errs.NoProductIDs()
	}

	streamProducts, err := a.stream.Products(ctx, ids)
	if err != nil {
		return nil, errs.Wrap(err, errs.DomainProvider, errs.CodeStoreProductNotFound, "store products fetch failed")
	}

	products := make([]model.Product, 0, len(streamProducts))
	for _, sp := range streamProducts {
		products = append(products, toModelProduct(sp))
	}
	return products, nil
}

// Purchase is a direct request/response call; the provider collapses
// initiation and result into one exchange. Pending-approval and
// user-cancelled are terminal informational outcomes, never retried.
func (a *Adapter) Purchase(ctx context.Context, product model.Product, opts storefront.PurchaseOptions) (model.Transaction, error) {
	if err := opts.Validate(); err != nil {
		return model.Transaction{}, err
	}

	result, err := a.stream.Purchase(ctx, product.ID, opts.Quantity, opts.SimulateDeferred)
	if err != nil {
		return model.Transaction{}, errs.PurchaseFailed(err)
	}

	switch result.Kind {
	case PurchaseResultSuccessVerified:
		return a.toTransaction(result.Transaction), nil
	case PurchaseResultSuccessUnverified:
		return model.Transaction{}, errs.UnverifiedTransaction(result.Transaction.TransactionID)
	case PurchaseResultPendingApproval:
		return model.Transaction{}, errs.PurchasePending()
	case PurchaseResultUserCancelled:
		return model.Transaction{}, errs.PurchaseCancelled()
	default:
		return model.Transaction{}, errs.PurchaseFailed(errors.Errorf("unknown purchase result kind %d", result.Kind))
	}
}

func (a *Adapter) Restore(ctx context.Context) ([]model.Transaction, error) {
	signed, err := a.stream.Restore(ctx)
	if err != nil {
		return nil, errs.RestoreFailed(err)
	}

	transactions := make([]model.Transaction, 0, len(signed))
	for _, st := range signed {
		if !st.Verified {
			a.log.Warn("Skipping unverified restored transaction",
				zap.String("transaction_id", st.TransactionID),
			)
			continue
		}
		transactions = append(transactions, a.toTransaction(st))
	}
	return transactions, nil
}

func (a *Adapter) Listen(fn func(model.Transaction)) (stop func()) {
	a.listener.Mutate(func(s *listenerState) {
		s.onTransaction = fn
	})
	return func() {
		a.listener.Mutate(func(s *listenerState) {
			s.onTransaction = nil
		})
	}
}

func (a *Adapter) CanMakePayments() bool {
	return a.stream.CanMakePayments()
}

func (a *Adapter) Close() error {
	a.closeOnce.Do(func() {
		a.cancel()
		<-a.listening
	})
	return nil
}

func (a *Adapter) toTransaction(signed SignedTransaction) model.Transaction {
	transactionID := signed.TransactionID
	quantity := signed.Quantity
	if quantity < 1 {
		quantity = 1
	}

	return model.NewTransaction(
		transactionID,
		signed.OriginalTransactionID,
		signed.ProductID,
		quantity,
		signed.PurchaseDate,
		func(ctx context.Context) error {
			return a.stream.Finish(ctx, transactionID)
		},
	)
}

func toModelProduct(sp Product) model.Product {
	return model.Product{
		ID:                  sp.ID,
		DisplayName:         sp.DisplayName,
		Description:         sp.Description,
		Price:               sp.Price,
		CurrencyCode:        sp.CurrencyCode,
		SubscriptionPeriod:  sp.SubscriptionPeriod,
		FamilyShareable:     sp.FamilyShareable,
		SubscriptionGroupID: sp.SubscriptionGroupID,
		Raw:                 sp,
	}
}
