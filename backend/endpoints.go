package backend

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// SubscriptionType filters the subscriptions listing.
type SubscriptionType string

const (
	SubscriptionsAll     SubscriptionType = "all"
	SubscriptionsActive  SubscriptionType = "active"
	SubscriptionsExpired SubscriptionType = "expired"
)

// SubscriptionRecord is one backend subscription row. Status is a raw
// service status code; the entitlement package owns its meaning.
type SubscriptionRecord struct {
	ProductID    string          `json:"productId"`
	Status       int             `json:"status"`
	PurchaseDate time.Time       `json:"purchaseDate"`
	ExpiresDate  time.Time       `json:"expiresDate"`
	RenewalDate  *time.Time      `json:"renewalDate,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
}

// PaywallRecord is a backend-curated offering of product slots.
type PaywallRecord struct {
	OfferingID string           `json:"offeringId"`
	IsCurrent  bool             `json:"isCurrent"`
	Packages   []PaywallPackage `json:"packages"`
}

type PaywallPackage struct {
	ProductID string `json:"productId"`
	IsCurrent bool   `json:"isCurrent"`
}

type ack struct {
	Success bool `json:"success"`
}

type subscriptionsData struct {
	Subscriptions []SubscriptionRecord `json:"subscriptions"`
}

type paywallsData struct {
	Paywalls []PaywallRecord `json:"paywalls"`
}

type completeSubscriptionRequest struct {
	Receipt string `json:"receipt"`
}

type updateUserRequest struct {
	UserID string `json:"userId"`
}

// CompleteSubscription submits the proof-of-purchase for backend
// reconciliation.
func (c *Client) CompleteSubscription(ctx context.Context, receipt string) error {
	_, err := sendWithRetry[ack](ctx, c, request{
		method: http.MethodPost,
		path:   "/subscriptions/complete",
		body:   completeSubscriptionRequest{Receipt: receipt},
	})
	return err
}

// Subscriptions lists the current user's subscription records.
func (c *Client) Subscriptions(ctx context.Context, typ SubscriptionType) ([]SubscriptionRecord, error) {
	data, err := sendWithRetry[subscriptionsData](ctx, c, request{
		method: http.MethodGet,
		path:   "/subscriptions",
		query:  url.Values{"type": []string{string(typ)}},
	})
	if err != nil {
		return nil, err
	}
	return data.Subscriptions, nil
}

// UpdateUser links the device to userID on the backend.
func (c *Client) UpdateUser(ctx context.Context, userID string) error {
	_, err := sendWithRetry[ack](ctx, c, request{
		method: http.MethodPut,
		path:   "/users",
		body:   updateUserRequest{UserID: userID},
	})
	return err
}

// Paywalls fetches the backend-described offerings.
func (c *Client) Paywalls(ctx context.Context) ([]PaywallRecord, error) {
	data, err := sendWithRetry[paywallsData](ctx, c, request{
		method: http.MethodGet,
		path:   "/paywalls",
	})
	if err != nil {
		return nil, err
	}
	return data.Paywalls, nil
}
