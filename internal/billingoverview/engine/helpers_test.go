package engine

import (
	"testing"
	"time"

	subscriptiondomain "github.com/smallbiznis/revenuemetrics/internal/subscription/domain"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func daysAgo(days int) time.Time {
	return testNow.Add(-time.Duration(days) * 24 * time.Hour)
}

func timePtr(t time.Time) *time.Time { return &t }

func int64Ptr(v int64) *int64 { return &v }

func lineItem(t *testing.T, plan string, amount, quantity int64, interval subscriptiondomain.Interval, count int64) subscriptiondomain.LineItem {
	t.Helper()
	item, err := subscriptiondomain.NewLineItem(subscriptiondomain.LineItemParams{
		PlanName:      plan,
		UnitAmount:    amount,
		Quantity:      quantity,
		Interval:      interval,
		IntervalCount: count,
	})
	require.NoError(t, err)
	return item
}

func monthly(t *testing.T, plan string, amount int64) subscriptiondomain.LineItem {
	return lineItem(t, plan, amount, 1, subscriptiondomain.IntervalMonth, 1)
}

type subOption func(*subscriptiondomain.Subscription)

func withStatus(status subscriptiondomain.Status) subOption {
	return func(s *subscriptiondomain.Subscription) { s.Status = status }
}

func withCurrency(code string) subOption {
	return func(s *subscriptiondomain.Subscription) { s.Currency = code }
}

func withCreated(t time.Time) subOption {
	return func(s *subscriptiondomain.Subscription) { s.CreatedAt = t }
}

func withCanceled(t time.Time) subOption {
	return func(s *subscriptiondomain.Subscription) {
		s.CanceledAt = timePtr(t)
		s.Status = subscriptiondomain.StatusCanceled
	}
}

func withTrialEnd(t time.Time) subOption {
	return func(s *subscriptiondomain.Subscription) {
		s.TrialEnd = timePtr(t)
		s.Status = subscriptiondomain.StatusTrialing
	}
}

func withDiscount(d subscriptiondomain.Discount) subOption {
	return func(s *subscriptiondomain.Subscription) { s.Discount = &d }
}

func newSub(id string, items []subscriptiondomain.LineItem, opts ...subOption) subscriptiondomain.Subscription {
	sub := subscriptiondomain.Subscription{
		ID:         id,
		CustomerID: "cus_" + id,
		Status:     subscriptiondomain.StatusActive,
		CreatedAt:  daysAgo(90),
		Currency:   "usd",
		Items:      items,
	}
	for _, opt := range opts {
		opt(&sub)
	}
	return sub
}
