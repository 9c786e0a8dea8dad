package purchase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/helioapps/purchasekit/backend"
	"github.com/helioapps/purchasekit/config"
	"github.com/helioapps/purchasekit/errs"
	"github.com/helioapps/purchasekit/model"
	"github.com/helioapps/purchasekit/receipt"
	"github.com/helioapps/purchasekit/session"
	"github.com/helioapps/purchasekit/session/memory"
	"github.com/helioapps/purchasekit/storefront"
	"github.com/helioapps/purchasekit/storefront/legacy"
	"github.com/helioapps/purchasekit/storefront/modern"
	"github.com/helioapps/purchasekit/storefront/storefronttest"
)

type stubService struct {
	mu sync.Mutex

	completeCalls []string
	completeErr   error

	records []backend.SubscriptionRecord
	subsErr error

	updateCalls []string
	updateErr   error

	paywalls     []backend.PaywallRecord
	paywallCalls int
	paywallsErr  error
}

func (s *stubService) CompleteSubscription(_ context.Context, receipt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completeCalls = append(s.completeCalls, receipt)
	return s.completeErr
}

func (s *stubService) Subscriptions(context.Context, backend.SubscriptionType) ([]backend.SubscriptionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records, s.subsErr
}

func (s *stubService) UpdateUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateCalls = append(s.updateCalls, userID)
	return s.updateErr
}

func (s *stubService) Paywalls(context.Context) ([]backend.PaywallRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paywallCalls++
	return s.paywalls, s.paywallsErr
}

func (s *stubService) completed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.completeCalls...)
}

type recordingOpener struct {
	opened []string
}

func (o *recordingOpener) Open(rawURL string) error {
	o.opened = append(o.opened, rawURL)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		APIKey:                 "pk_test_123",
		BaseURL:                "https://api.example.com/v1",
		Environment:            config.EnvironmentProduction,
		AutoFinishTransactions: false,
		RequestTimeout:         30 * time.Second,
		MaxRetryAttempts:       3,
		OfferingsCacheTTL:      time.Minute,
	}
}

func testSessions(t *testing.T) *session.Manager {
	sessions, err := session.NewManager(context.Background(), zaptest.NewLogger(t), memory.NewInMemory())
	require.NoError(t, err)
	return sessions
}

func staticReceipts(value string) receipt.Provider {
	return receipt.ProviderFunc(func(context.Context) (string, error) {
		return value, nil
	})
}

func newLegacyClient(t *testing.T, queue *storefronttest.FakeQueue, service *stubService) *Client {
	c, err := New(testConfig(), Deps{
		Logger:       zaptest.NewLogger(t),
		Capabilities: storefronttest.StaticCapabilities(false),
		Queue:        queue,
		Backend:      service,
		Sessions:     testSessions(t),
		Receipts:     staticReceipts("receipt-data"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func newModernClient(t *testing.T, stream *storefronttest.FakeStream, service *stubService) *Client {
	c, err := New(testConfig(), Deps{
		Logger:       zaptest.NewLogger(t),
		Capabilities: storefronttest.StaticCapabilities(true),
		Stream:       stream,
		Backend:      service,
		Sessions:     testSessions(t),
		Receipts:     staticReceipts("receipt-data"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNew_FailsFastOnMissingPieces(t *testing.T) {
	_, err := New(nil, Deps{})
	require.True(t, errs.IsCode(err, errs.CodeNotInitialized))

	_, err = New(testConfig(), Deps{})
	require.True(t, errs.IsCode(err, errs.CodeNotInitialized))

	// Modern capability without a stream provider is a config error,
	// not a crash.
	_, err = New(testConfig(), Deps{
		Capabilities: storefronttest.StaticCapabilities(true),
		Backend:      &stubService{},
		Sessions:     testSessions(t),
		Receipts:     staticReceipts("r"),
	})
	require.True(t, errs.IsCode(err, errs.CodeNotInitialized))
}

func TestNew_SelectsGenerationOnce(t *testing.T) {
	legacyClient := newLegacyClient(t, storefronttest.NewFakeQueue(), &stubService{})
	require.Equal(t, storefront.GenerationLegacy, legacyClient.Generation())

	modernClient := newModernClient(t, storefronttest.NewFakeStream(), &stubService{})
	require.Equal(t, storefront.GenerationModern, modernClient.Generation())
}

func TestPurchase_HappyPathLegacy(t *testing.T) {
	queue := storefronttest.NewFakeQueue(legacy.Product{ID: "6m_access"})
	service := &stubService{}
	c := newLegacyClient(t, queue, service)

	txn, err := c.Purchase(context.Background(), model.Product{ID: "6m_access"}, storefront.PurchaseOptions{Quantity: 1})
	require.NoError(t, err)
	require.Equal(t, "6m_access", txn.ProductID)
	require.Equal(t, []string{"receipt-data"}, service.completed())
}

func TestPurchase_HappyPathModern(t *testing.T) {
	stream := storefronttest.NewFakeStream(modern.Product{ID: "6m_access"})
	service := &stubService{}
	c := newModernClient(t, stream, service)

	txn, err := c.Purchase(context.Background(), model.Product{ID: "6m_access"}, storefront.PurchaseOptions{Quantity: 1})
	require.NoError(t, err)
	require.Equal(t, "6m_access", txn.ProductID)
	require.Equal(t, []string{"receipt-data"}, service.completed())
}

func TestPurchase_MissingReceiptAbortsBeforeBackend(t *testing.T) {
	queue := storefronttest.NewFakeQueue(legacy.Product{ID: "6m_access"})
	service := &stubService{}

	c, err := New(testConfig(), Deps{
		Logger:       zaptest.NewLogger(t),
		Capabilities: storefronttest.StaticCapabilities(false),
		Queue:        queue,
		Backend:      service,
		Sessions:     testSessions(t),
		Receipts: receipt.ProviderFunc(func(context.Context) (string, error) {
			return "", errors.New("no receipt file")
		}),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	_, err = c.Purchase(context.Background(), model.Product{ID: "6m_access"}, storefront.PurchaseOptions{Quantity: 1})
	require.True(t, errs.IsCode(err, errs.CodeInvalidReceipt))
	require.Empty(t, service.completed())
}

func TestPurchase_BackendFailureIsCompletedWithFailure(t *testing.T) {
	queue := storefronttest.NewFakeQueue(legacy.Product{ID: "6m_access"})
	service := &stubService{completeErr: errors.New("500")}
	c := newLegacyClient(t, queue, service)

	txn, err := c.Purchase(context.Background(), model.Product{ID: "6m_access"}, storefront.PurchaseOptions{Quantity: 1})
	require.True(t, errs.IsCode(err, errs.CodePaymentCompletedWithFailure))

	// Purchased but unconfirmed: the provider transaction is still
	// handed to the caller.
	require.Equal(t, "6m_access", txn.ProductID)
}

func TestPurchase_InvalidQuantity(t *testing.T) {
	c := newLegacyClient(t, storefronttest.NewFakeQueue(), &stubService{})

	_, err := c.Purchase(context.Background(), model.Product{ID: "6m_access"}, storefront.PurchaseOptions{Quantity: -1})
	require.True(t, errs.IsCode(err, errs.CodeInvalidArgument))
}

func TestPurchase_PaymentsDisabled(t *testing.T) {
	queue := storefronttest.NewFakeQueue(legacy.Product{ID: "6m_access"})
	queue.DisablePayments()
	c := newLegacyClient(t, queue, &stubService{})

	_, err := c.Purchase(context.Background(), model.Product{ID: "6m_access"}, storefront.PurchaseOptions{Quantity: 1})
	require.True(t, errs.IsCode(err, errs.CodePurchaseFailed))
	require.False(t, c.CanMakePayments())
}

func TestRestore_EmptySkipsReconciliation(t *testing.T) {
	service := &stubService{}
	c := newLegacyClient(t, storefronttest.NewFakeQueue(), service)

	transactions, err := c.Restore(context.Background())
	require.NoError(t, err)
	require.Empty(t, transactions)
	require.Empty(t, service.completed())
}

func TestRestore_BatchReconciledOnce(t *testing.T) {
	queue := storefronttest.NewFakeQueue()
	queue.SetRestoreUpdates(
		legacy.PaymentUpdate{
			State: legacy.PaymentStateRestored, ProductID: "6m_access",
			PaymentID: "pay-1", TransactionID: "txn-1", Quantity: 1, PurchaseDate: time.Now(),
		},
		legacy.PaymentUpdate{
			State: legacy.PaymentStateRestored, ProductID: "1y_access",
			PaymentID: "pay-2", TransactionID: "txn-2", Quantity: 1, PurchaseDate: time.Now(),
		},
	)
	service := &stubService{}
	c := newLegacyClient(t, queue, service)

	transactions, err := c.Restore(context.Background())
	require.NoError(t, err)
	require.Len(t, transactions, 2)
	require.Len(t, service.completed(), 1)
}

func TestGetOfferings_JoinsAndCaches(t *testing.T) {
	queue := storefronttest.NewFakeQueue(
		legacy.Product{ID: "6m_access", Price: decimal.RequireFromString("9.99"), CurrencyCode: "USD"},
		legacy.Product{ID: "1y_access", Price: decimal.RequireFromString("17.99"), CurrencyCode: "USD"},
	)
	service := &stubService{paywalls: []backend.PaywallRecord{{
		OfferingID: "default",
		IsCurrent:  true,
		Packages: []backend.PaywallPackage{
			{ProductID: "6m_access", IsCurrent: true},
			{ProductID: "1y_access"},
			{ProductID: "ghost_product"},
		},
	}}}
	c := newLegacyClient(t, queue, service)

	offerings, err := c.GetOfferings(context.Background())
	require.NoError(t, err)
	require.Len(t, offerings, 1)
	require.Len(t, offerings[0].Packages, 3)

	current, ok := offerings[0].CurrentPackage()
	require.True(t, ok)
	require.Equal(t, "6m_access", current.ProductID)
	require.Equal(t, "9.99", current.Product.Price.String())

	// The store returned nothing for ghost_product; its slot survives
	// with a zero product.
	require.Equal(t, "", offerings[0].Packages[2].Product.ID)

	// Second fetch is served from cache.
	_, err = c.GetOfferings(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, service.paywallCalls)
}

func TestGetEntitlements_PremiumDecision(t *testing.T) {
	now := time.Now()
	service := &stubService{records: []backend.SubscriptionRecord{
		{ProductID: "6m_access", Status: 1, PurchaseDate: now, ExpiresDate: now.Add(time.Hour)},
		{ProductID: "1y_access", Status: 0, PurchaseDate: now.Add(-time.Hour), ExpiresDate: now},
	}}
	c := newLegacyClient(t, storefronttest.NewFakeQueue(), service)

	agg, err := c.GetEntitlements(context.Background())
	require.NoError(t, err)
	require.True(t, agg.IsPremium())
	require.Len(t, agg.Active, 1)
	require.Len(t, agg.Expired, 1)
}

func TestLogin_AnonymousToIdentified(t *testing.T) {
	service := &stubService{}
	c := newLegacyClient(t, storefronttest.NewFakeQueue(), service)

	anon, err := c.Login(context.Background(), "")
	require.NoError(t, err)
	require.True(t, anon.IsAnonymous())
	require.Empty(t, service.updateCalls)

	identified, err := c.Login(context.Background(), "user-1")
	require.NoError(t, err)
	require.False(t, identified.IsAnonymous())
	require.Equal(t, []string{"user-1"}, service.updateCalls)
	require.Equal(t, anon.DeviceUUID, identified.DeviceUUID)
}

func TestLogout_MintsFreshAnonymous(t *testing.T) {
	c := newLegacyClient(t, storefronttest.NewFakeQueue(), &stubService{})

	identified, err := c.Login(context.Background(), "user-1")
	require.NoError(t, err)

	anon, err := c.Logout(context.Background())
	require.NoError(t, err)
	require.True(t, anon.IsAnonymous())
	require.NotEqual(t, identified.DeviceUUID, anon.DeviceUUID)
}

func TestListenPaymentTransactions_ModernStream(t *testing.T) {
	stream := storefronttest.NewFakeStream()
	c := newModernClient(t, stream, &stubService{})

	received := make(chan model.Transaction, 1)
	c.ListenPaymentTransactions(func(txn model.Transaction) { received <- txn })

	stream.Push(modern.SignedTransaction{
		TransactionID: "txn-renewal", ProductID: "6m_access",
		Quantity: 1, PurchaseDate: time.Now(), Verified: true,
	})

	select {
	case txn := <-received:
		require.Equal(t, "txn-renewal", txn.TransactionID)
	case <-time.After(time.Second):
		t.Fatal("listener never received the stream transaction")
	}
}

func TestClose_DeliversFinalStreamTransaction(t *testing.T) {
	stream := storefronttest.NewFakeStream()
	c := newModernClient(t, stream, &stubService{})

	received := make(chan model.Transaction, 4)
	c.ListenPaymentTransactions(func(txn model.Transaction) { received <- txn })

	stream.Push(modern.SignedTransaction{
		TransactionID: "txn-final", ProductID: "6m_access",
		Quantity: 1, PurchaseDate: time.Now(), Verified: true,
	})

	require.NoError(t, c.Close())

	select {
	case txn := <-received:
		require.Equal(t, "txn-final", txn.TransactionID)
	default:
		t.Fatal("final transaction was dropped on close")
	}
}

func TestShowManageSubscriptions(t *testing.T) {
	c := newLegacyClient(t, storefronttest.NewFakeQueue(), &stubService{})

	err := c.ShowManageSubscriptions()
	require.True(t, errs.IsCode(err, errs.CodeNoWindowContext))

	opener := &recordingOpener{}
	withOpener, err := New(testConfig(), Deps{
		Logger:       zaptest.NewLogger(t),
		Capabilities: storefronttest.StaticCapabilities(false),
		Queue:        storefronttest.NewFakeQueue(),
		Backend:      &stubService{},
		Sessions:     testSessions(t),
		Receipts:     staticReceipts("r"),
		URLOpener:    opener,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = withOpener.Close() })

	require.NoError(t, withOpener.ShowManageSubscriptions())
	require.Len(t, opener.opened, 1)
}
