// Package purchase is the SDK facade: one version-agnostic API over
// whichever purchasing generation the platform supports, plus the
// backend reconciliation that makes a purchase final.
package purchase

import (
	"context"
	"net/url"
	"sync"

	"go.uber.org/zap"

	"github.com/helioapps/purchasekit/backend"
	"github.com/helioapps/purchasekit/config"
	"github.com/helioapps/purchasekit/entitlement"
	"github.com/helioapps/purchasekit/errs"
	"github.com/helioapps/purchasekit/model"
	"github.com/helioapps/purchasekit/receipt"
	"github.com/helioapps/purchasekit/session"
	"github.com/helioapps/purchasekit/storefront"
	"github.com/helioapps/purchasekit/storefront/legacy"
	"github.com/helioapps/purchasekit/storefront/modern"
)

// manageSubscriptionsURL is where the platform hosts subscription
// management. Opening it is delegated to the host via URLOpener.
const manageSubscriptionsURL = "https://account.store.example.com/subscriptions"

// BackendService is the slice of the request client the facade needs.
// *backend.Client satisfies it.
type BackendService interface {
	CompleteSubscription(ctx context.Context, receipt string) error
	Subscriptions(ctx context.Context, typ backend.SubscriptionType) ([]backend.SubscriptionRecord, error)
	UpdateUser(ctx context.Context, userID string) error
	Paywalls(ctx context.Context) ([]backend.PaywallRecord, error)
}

// URLOpener presents a URL in the host's window context. Platform
// glue implements it; without one ShowManageSubscriptions fails with
// a no-window-context error.
type URLOpener interface {
	Open(rawURL string) error
}

// Deps are the collaborators injected into New. There is no implicit
// global instance: construction either succeeds completely or fails
// with a configuration error.
type Deps struct {
	Logger *zap.Logger

	// Capabilities decides the purchasing generation, probed exactly
	// once in New.
	Capabilities storefront.Capabilities

	// Queue backs the legacy generation, Stream the modern one. Only
	// the selected generation's provider is required.
	Queue  legacy.Queue
	Stream modern.Stream

	Backend  BackendService
	Sessions *session.Manager
	Receipts receipt.Provider

	// URLOpener is optional.
	URLOpener URLOpener
}

// Client is the purchase/restore orchestrator.
type Client struct {
	log *zap.Logger
	cfg *config.Config

	generation storefront.Generation
	adapter    storefront.Adapter

	backend    BackendService
	sessions   *session.Manager
	reconciler *entitlement.Reconciler
	receipts   receipt.Provider
	inspector  *receipt.Inspector
	urls       URLOpener

	offerings *offeringsCache

	listenMu   sync.Mutex
	stopListen func()

	closeOnce sync.Once
}

// New builds the client, probing platform capabilities once to choose
// the adapter generation.
func New(cfg *config.Config, deps Deps) (*Client, error) {
	if cfg == nil {
		return nil, errs.NotInitialized("nil configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Backend == nil {
		return nil, errs.NotInitialized("backend service is required")
	}
	if deps.Sessions == nil {
		return nil, errs.NotInitialized("session manager is required")
	}
	if deps.Receipts == nil {
		return nil, errs.NotInitialized("receipt provider is required")
	}

	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	generation := storefront.DetectGeneration(deps.Capabilities)

	var adapter storefront.Adapter
	switch generation {
	case storefront.GenerationModern:
		if deps.Stream == nil {
			return nil, errs.NotInitialized("platform reports stream support but no stream provider was supplied")
		}
		var opts []modern.Option
		if cfg.AutoFinishTransactions {
			opts = append(opts, modern.WithAutoFinish())
		}
		adapter = modern.NewAdapter(log, deps.Stream, opts...)
	default:
		if deps.Queue == nil {
			return nil, errs.NotInitialized("no payment queue provider was supplied")
		}
		adapter = legacy.NewAdapter(log, deps.Queue)
	}

	var inspector *receipt.Inspector
	if cfg.BundleID != "" {
		inspector = receipt.NewInspector(cfg.BundleID)
	}

	log.Info("Purchase client initialized",
		zap.String("generation", generation.String()),
		zap.String("environment", string(cfg.Environment)),
	)

	return &Client{
		log:        log,
		cfg:        cfg,
		generation: generation,
		adapter:    adapter,
		backend:    deps.Backend,
		sessions:   deps.Sessions,
		reconciler: entitlement.NewReconciler(log, deps.Backend, deps.Sessions),
		receipts:   deps.Receipts,
		inspector:  inspector,
		urls:       deps.URLOpener,
		offerings:  newOfferingsCache(cfg.OfferingsCacheTTL),
	}, nil
}

// Generation reports which purchasing generation serves this process.
func (c *Client) Generation() storefront.Generation {
	return c.generation
}

func (c *Client) CanMakePayments() bool {
	return c.adapter.CanMakePayments()
}

// Purchase buys one product and reconciles it with the backend. The
// returned transaction is valid even when err is a
// payment-completed-with-failure: the provider has recorded the
// purchase and only backend confirmation is missing.
func (c *Client) Purchase(ctx context.Context, product model.Product, opts storefront.PurchaseOptions) (model.Transaction, error) {
	if err := opts.Validate(); err != nil {
		return model.Transaction{}, err
	}
	if !c.adapter.CanMakePayments() {
		return model.Transaction{}, errs.New(errs.DomainProvider, errs.CodePurchaseFailed, "payments are not allowed on this device")
	}

	log := c.log.With(
		zap.String("product_id", product.ID),
		zap.Int("quantity", opts.Quantity),
	)
	log.Debug("Starting purchase")

	txn, err := c.adapter.Purchase(ctx, product, opts)
	if err != nil {
		return model.Transaction{}, err
	}

	if err := c.complete(ctx); err != nil {
		log.Warn("Purchase reconciliation failed", zap.Error(err))
		return txn, err
	}

	log.Info("Purchase reconciled", zap.String("transaction_id", txn.TransactionID))
	return txn, nil
}

// Restore replays prior purchases and reconciles the whole batch with
// one backend submission. Zero prior purchases is a success with an
// empty list, not an error.
func (c *Client) Restore(ctx context.Context) ([]model.Transaction, error) {
	transactions, err := c.adapter.Restore(ctx)
	if err != nil {
		return nil, err
	}

	if len(transactions) > 0 {
		if err := c.complete(ctx); err != nil {
			return transactions, err
		}
	}

	c.log.Info("Restore completed", zap.Int("transactions", len(transactions)))
	return transactions, nil
}

// complete is the completion pipeline: proof-of-purchase, local
// inspection, backend submission. A receipt failure aborts before any
// network call; a backend failure surfaces as
// payment-completed-with-failure because the provider-side purchase
// already happened and must not be retried or rolled back.
func (c *Client) complete(ctx context.Context) error {
	encoded, err := c.receipts.Receipt(ctx)
	if err != nil {
		return errs.InvalidReceipt(err)
	}

	if c.inspector != nil {
		if err := c.inspector.Inspect(encoded); err != nil {
			return err
		}
	}

	if err := c.backend.CompleteSubscription(ctx, encoded); err != nil {
		return errs.PaymentCompletedWithFailure(err)
	}
	return nil
}

// GetOfferings joins backend paywalls with store products, served
// through a short-lived cache.
func (c *Client) GetOfferings(ctx context.Context) ([]model.Offering, error) {
	if cached, ok := c.offerings.get(); ok {
		return cached, nil
	}

	paywalls, err := c.backend.Paywalls(ctx)
	if err != nil {
		return nil, errs.FetchFailed(err)
	}
	if len(paywalls) == 0 {
		return nil, nil
	}

	idSet := map[string]struct{}{}
	var ids []string
	for _, pw := range paywalls {
		for _, pkg := range pw.Packages {
			if _, seen := idSet[pkg.ProductID]; !seen {
				idSet[pkg.ProductID] = struct{}{}
				ids = append(ids, pkg.ProductID)
			}
		}
	}

	products, err := c.adapter.FetchProducts(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := model.ProductsByID(products)

	offerings := make([]model.Offering, 0, len(paywalls))
	for _, pw := range paywalls {
		offering := model.Offering{
			ID:        pw.OfferingID,
			IsCurrent: pw.IsCurrent,
			Packages:  make([]model.Package, 0, len(pw.Packages)),
		}
		for _, pkg := range pw.Packages {
			product, ok := byID[pkg.ProductID]
			if !ok {
				c.log.Warn("Paywall references a product the store did not return",
					zap.String("offering_id", pw.OfferingID),
					zap.String("product_id", pkg.ProductID),
				)
			}
			offering.Packages = append(offering.Packages, model.Package{
				ProductID: pkg.ProductID,
				IsCurrent: pkg.IsCurrent,
				Product:   product,
			})
		}
		offerings = append(offerings, offering)
	}

	c.offerings.set(offerings)
	return offerings, nil
}

// GetProducts fetches unified product descriptors for explicit ids.
func (c *Client) GetProducts(ctx context.Context, ids []string) ([]model.Product, error) {
	return c.adapter.FetchProducts(ctx, ids)
}

// GetEntitlements rebuilds the entitlement aggregate from the backend.
func (c *Client) GetEntitlements(ctx context.Context) (entitlement.Entitlements, error) {
	return c.reconciler.FetchEntitlements(ctx)
}

// Login links the session to userID (empty for anonymous), keeping
// backend and local identity in sync. Identity changes invalidate the
// offerings cache.
func (c *Client) Login(ctx context.Context, userID string) (session.Identity, error) {
	before := c.sessions.Current()
	if err := c.reconciler.UpdateUserID(ctx, userID); err != nil {
		return session.Identity{}, err
	}

	after := c.sessions.Current()
	if after != before {
		c.offerings.purge()
	}
	return after, nil
}

// Logout discards the identity for a fresh anonymous one.
func (c *Client) Logout(ctx context.Context) (session.Identity, error) {
	identity, err := c.sessions.Logout(ctx)
	if err != nil {
		return session.Identity{}, err
	}
	c.offerings.purge()
	return identity, nil
}

// ListenPaymentTransactions installs the process-lifetime transaction
// listener. Installing a new listener replaces the previous one.
func (c *Client) ListenPaymentTransactions(fn func(model.Transaction)) {
	c.listenMu.Lock()
	defer c.listenMu.Unlock()

	if c.stopListen != nil {
		c.stopListen()
	}
	c.stopListen = c.adapter.Listen(fn)
}

// ShowManageSubscriptions opens the platform's subscription management
// surface through the host-provided opener.
func (c *Client) ShowManageSubscriptions() error {
	if c.urls == nil {
		return errs.NoWindowContext()
	}

	parsed, err := url.Parse(manageSubscriptionsURL)
	if err != nil || parsed.Scheme == "" {
		return errs.BadURL(manageSubscriptionsURL)
	}
	return c.urls.Open(parsed.String())
}

// Close tears down the listener and the adapter. In-flight verified
// transactions are delivered before the background task exits.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		// Adapter first: its teardown drains verified in-flight
		// transactions into the still-installed listener.
		err = c.adapter.Close()

		c.listenMu.Lock()
		if c.stopListen != nil {
			c.stopListen()
			c.stopListen = nil
		}
		c.listenMu.Unlock()
	})
	return err
}
