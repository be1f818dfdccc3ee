package domain

import (
	"encoding/json"
	"time"
)

// ChangeCategory classifies an event in the recent-changes feed.
type ChangeCategory int

const (
	ChangeNew ChangeCategory = iota + 1
	ChangeCanceled
	ChangeUpgraded
	ChangeDowngraded
	ChangePaymentFailed
)

// ChangeCategories lists every category in display order.
var ChangeCategories = []ChangeCategory{
	ChangeNew,
	ChangeUpgraded,
	ChangeDowngraded,
	ChangeCanceled,
	ChangePaymentFailed,
}

func (c ChangeCategory) String() string {
	switch c {
	case ChangeNew:
		return "new"
	case ChangeCanceled:
		return "canceled"
	case ChangeUpgraded:
		return "upgraded"
	case ChangeDowngraded:
		return "downgraded"
	case ChangePaymentFailed:
		return "payment_failed"
	default:
		return "unknown"
	}
}

func (c ChangeCategory) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

type Change struct {
	Category         ChangeCategory `json:"category"`
	OccurredAt       time.Time      `json:"occurred_at"`
	CustomerID       string         `json:"customer_id"`
	CustomerEmail    string         `json:"customer_email,omitempty"`
	SubscriptionID   string         `json:"subscription_id,omitempty"`
	PlanName         string         `json:"plan_name,omitempty"`
	PreviousPlanName string         `json:"previous_plan_name,omitempty"`
	Amount           *int64         `json:"amount,omitempty"`
	PreviousAmount   *int64         `json:"previous_amount,omitempty"`
	Currency         string         `json:"currency,omitempty"`
}

type RecentChanges struct {
	Changes []Change               `json:"changes"`
	Counts  map[ChangeCategory]int `json:"-"`
	Days    int                    `json:"days"`
}

func (r RecentChanges) MarshalJSON() ([]byte, error) {
	counts := make(map[string]int, len(ChangeCategories))
	for _, c := range ChangeCategories {
		counts[c.String()] = r.Counts[c]
	}
	type alias RecentChanges
	return json.Marshal(struct {
		alias
		Counts map[string]int `json:"counts"`
	}{alias: alias(r), Counts: counts})
}
