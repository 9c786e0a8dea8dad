// Package entitlement converts backend subscription records into
// access-right decisions.
package entitlement

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/helioapps/purchasekit/backend"
)

// ServiceStatus is the derived state of one entitlement. Unknown or
// out-of-range backend status codes degrade to passive, never crash.
type ServiceStatus uint8

const (
	StatusPassive ServiceStatus = iota
	StatusActive
)

func (s ServiceStatus) String() string {
	if s == StatusActive {
		return "active"
	}
	return "passive"
}

// serviceStatusActive is the only backend status code granting access.
const serviceStatusActive = 1

func statusFromCode(code int) ServiceStatus {
	if code == serviceStatusActive {
		return StatusActive
	}
	return StatusPassive
}

// Entitlement is one derived access-right record.
type Entitlement struct {
	ProductID     string
	ServiceStatus ServiceStatus
	PurchaseDate  time.Time
	ExpiresDate   time.Time
	RenewalDate   *time.Time
	Price         decimal.Decimal
	Currency      string
}

// Entitlements is the full aggregate, recomputed wholesale on every
// fetch and never incrementally mutated.
type Entitlements struct {
	All     []Entitlement
	Active  []Entitlement
	Expired []Entitlement
}

// IsPremium reports whether any entitlement is active. By
// construction IsPremium == (len(Active) > 0) after every fetch.
func (e Entitlements) IsPremium() bool {
	return len(e.Active) > 0
}

func fromRecord(record backend.SubscriptionRecord) Entitlement {
	return Entitlement{
		ProductID:     record.ProductID,
		ServiceStatus: statusFromCode(record.Status),
		PurchaseDate:  record.PurchaseDate,
		ExpiresDate:   record.ExpiresDate,
		RenewalDate:   record.RenewalDate,
		Price:         record.Price,
		Currency:      record.Currency,
	}
}

// Aggregate rebuilds the Entitlements aggregate from raw records.
func Aggregate(records []backend.SubscriptionRecord) Entitlements {
	agg := Entitlements{
		All: make([]Entitlement, 0, len(records)),
	}

	for _, record := range records {
		e := fromRecord(record)
		agg.All = append(agg.All, e)
		if e.ServiceStatus == StatusActive {
			agg.Active = append(agg.Active, e)
		} else {
			agg.Expired = append(agg.Expired, e)
		}
	}
	return agg
}
