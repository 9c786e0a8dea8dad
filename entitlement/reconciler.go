package entitlement

import (
	"context"

	"go.uber.org/zap"

	"github.com/helioapps/purchasekit/backend"
	"github.com/helioapps/purchasekit/errs"
	"github.com/helioapps/purchasekit/session"
)

// Backend is the slice of the request client the reconciler needs.
type Backend interface {
	Subscriptions(ctx context.Context, typ backend.SubscriptionType) ([]backend.SubscriptionRecord, error)
	UpdateUser(ctx context.Context, userID string) error
}

// Reconciler turns backend subscription state into entitlement
// decisions and keeps backend/local identity linkage from diverging.
type Reconciler struct {
	log      *zap.Logger
	backend  Backend
	sessions *session.Manager
}

func NewReconciler(log *zap.Logger, b Backend, sessions *session.Manager) *Reconciler {
	return &Reconciler{
		log:      log,
		backend:  b,
		sessions: sessions,
	}
}

// FetchEntitlements requests all subscription records for the current
// user and rebuilds the aggregate.
func (r *Reconciler) FetchEntitlements(ctx context.Context) (Entitlements, error) {
	records, err := r.backend.Subscriptions(ctx, backend.SubscriptionsAll)
	if err != nil {
		return Entitlements{}, errs.FetchFailed(err)
	}

	agg := Aggregate(records)

	r.log.Debug("Rebuilt entitlements",
		zap.Int("total", len(agg.All)),
		zap.Int("active", len(agg.Active)),
		zap.Bool("premium", agg.IsPremium()),
	)

	return agg, nil
}

// UpdateUserID links the device to userID. When the requested id
// matches the cached one (including an anonymous identity asked for
// its own id) the backend call is skipped and only local linkage is
// touched. Otherwise the backend is updated first, then the local
// identity, so the two never diverge.
func (r *Reconciler) UpdateUserID(ctx context.Context, userID string) error {
	current := r.sessions.Current()
	if userID == "" || userID == current.UserID {
		_, err := r.sessions.Login(ctx, userID)
		return err
	}

	if err := r.backend.UpdateUser(ctx, userID); err != nil {
		return errs.UserUpdateFailed(err)
	}

	if _, err := r.sessions.Login(ctx, userID); err != nil {
		return errs.UserUpdateFailed(err)
	}
	return nil
}
