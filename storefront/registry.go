package storefront

import (
	"go.uber.org/zap"

	"github.com/helioapps/purchasekit/model"
	"github.com/helioapps/purchasekit/protect"
)

// PurchaseOutcome is the terminal result of one purchase call.
type PurchaseOutcome struct {
	Transaction model.Transaction
	Err         error
}

// RestoreOutcome is the terminal result of one restore call, delivered
// to every waiter registered before the provider signalled completion.
type RestoreOutcome struct {
	Transactions []model.Transaction
	Err          error
}

type registryState struct {
	// pending holds one FIFO sink list per product id. Purchase
	// initiation and result delivery are separate events correlated
	// only by product id, so concurrent purchases of the same product
	// are served strictly in call order.
	pending map[string][]chan<- PurchaseOutcome

	restoreWaiters []chan<- RestoreOutcome

	fallback func(model.Transaction)
}

// Registry pairs initiated purchases with their asynchronous results.
//
// Invariant: a registered sink is resolved at most once, via a matched
// Deliver or FailAll on teardown; a caller that gives up must Remove
// its sink so a late callback cannot resolve an abandoned call. Sinks
// must be buffered (capacity >= 1); sends never block.
type Registry struct {
	log   *zap.Logger
	state *protect.Guarded[registryState]
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		log: log,
		state: protect.New(registryState{
			pending: make(map[string][]chan<- PurchaseOutcome),
		}),
	}
}

// SetFallback installs the catch-all subscriber that receives
// transactions with no matching pending sink (unsolicited updates,
// renewals, out-of-band restores).
func (r *Registry) SetFallback(fn func(model.Transaction)) {
	r.state.Mutate(func(s *registryState) {
		s.fallback = fn
	})
}

// Register appends sink to the FIFO list for productID.
func (r *Registry) Register(productID string, sink chan<- PurchaseOutcome) {
	r.state.Mutate(func(s *registryState) {
		s.pending[productID] = append(s.pending[productID], sink)
	})
}

// Deliver routes outcome to the oldest sink registered for productID,
// removing it. Without a match the transaction goes to the fallback
// subscriber and Deliver reports false.
func (r *Registry) Deliver(productID string, outcome PurchaseOutcome) bool {
	var (
		sink     chan<- PurchaseOutcome
		fallback func(model.Transaction)
	)

	r.state.Mutate(func(s *registryState) {
		queue := s.pending[productID]
		if len(queue) == 0 {
			fallback = s.fallback
			return
		}

		sink = queue[0]
		if len(queue) == 1 {
			delete(s.pending, productID)
		} else {
			s.pending[productID] = queue[1:]
		}
	})

	if sink != nil {
		trySend(sink, outcome)
		return true
	}

	if outcome.Err == nil && fallback != nil {
		fallback(outcome.Transaction)
	} else if outcome.Err != nil {
		r.log.Debug("Dropping unmatched purchase failure",
			zap.String("product_id", productID),
			zap.Error(outcome.Err),
		)
	}
	return false
}

// Remove unregisters a sink that timed out before delivery, so a late
// provider callback cannot resolve an abandoned call. Reports whether
// the sink was still registered.
func (r *Registry) Remove(productID string, sink chan<- PurchaseOutcome) bool {
	removed := false
	r.state.Mutate(func(s *registryState) {
		queue := s.pending[productID]
		for i, candidate := range queue {
			if candidate == sink {
				s.pending[productID] = append(queue[:i:i], queue[i+1:]...)
				if len(s.pending[productID]) == 0 {
					delete(s.pending, productID)
				}
				removed = true
				return
			}
		}
	})
	return removed
}

// AddRestoreWaiter registers sink for the next restore completion.
func (r *Registry) AddRestoreWaiter(sink chan<- RestoreOutcome) {
	r.state.Mutate(func(s *registryState) {
		s.restoreWaiters = append(s.restoreWaiters, sink)
	})
}

// FlushRestoreWaiters delivers outcome to every registered restore
// waiter and clears the list atomically.
func (r *Registry) FlushRestoreWaiters(outcome RestoreOutcome) {
	var waiters []chan<- RestoreOutcome
	r.state.Mutate(func(s *registryState) {
		waiters = s.restoreWaiters
		s.restoreWaiters = nil
	})

	for _, w := range waiters {
		trySend(w, outcome)
	}
}

// FailAll resolves every pending sink and restore waiter with err.
// Used on teardown so no caller is left waiting forever.
func (r *Registry) FailAll(err error) {
	var (
		sinks   []chan<- PurchaseOutcome
		waiters []chan<- RestoreOutcome
	)

	r.state.Mutate(func(s *registryState) {
		for id, queue := range s.pending {
			sinks = append(sinks, queue...)
			delete(s.pending, id)
		}
		waiters = s.restoreWaiters
		s.restoreWaiters = nil
	})

	for _, sink := range sinks {
		trySend(sink, PurchaseOutcome{Err: err})
	}
	for _, w := range waiters {
		trySend(w, RestoreOutcome{Err: err})
	}
}

// PendingCount reports the number of in-flight purchases for productID.
func (r *Registry) PendingCount(productID string) int {
	var n int
	r.state.Read(func(s registryState) {
		n = len(s.pending[productID])
	})
	return n
}

// trySend delivers without blocking. Sinks are one-shot buffered
// channels, so a full buffer means the sink was already resolved.
func trySend[T any](sink chan<- T, value T) {
	select {
	case sink <- value:
	default:
	}
}
