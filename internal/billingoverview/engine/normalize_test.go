package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	subscriptiondomain "github.com/smallbiznis/revenuemetrics/internal/subscription/domain"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeToMonthly(t *testing.T) {
	tests := []struct {
		name     string
		amount   int64
		interval subscriptiondomain.Interval
		count    int64
		want     int64
	}{
		{name: "monthly", amount: 2000, interval: subscriptiondomain.IntervalMonth, count: 1, want: 2000},
		{name: "quarterly", amount: 3000, interval: subscriptiondomain.IntervalMonth, count: 3, want: 1000},
		{name: "annual", amount: 12000, interval: subscriptiondomain.IntervalYear, count: 1, want: 1000},
		{name: "bi-annual", amount: 24000, interval: subscriptiondomain.IntervalYear, count: 2, want: 1000},
		{name: "weekly", amount: 500, interval: subscriptiondomain.IntervalWeek, count: 1, want: 2167},
		{name: "daily", amount: 100, interval: subscriptiondomain.IntervalDay, count: 1, want: 3042},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeToMonthly(decimal.NewFromInt(tt.amount), tt.interval, tt.count)
			assert.Equal(t, tt.want, roundMinor(got))
		})
	}
}

func TestNormalizeToMonthlyIsLinear(t *testing.T) {
	intervals := []subscriptiondomain.Interval{
		subscriptiondomain.IntervalDay,
		subscriptiondomain.IntervalWeek,
		subscriptiondomain.IntervalMonth,
		subscriptiondomain.IntervalYear,
	}
	amount := decimal.NewFromInt(1234)
	for _, interval := range intervals {
		for _, count := range []int64{1, 2, 3, 7} {
			for _, k := range []int64{0, 1, 5, 12} {
				factor := decimal.NewFromInt(k)
				scaled := NormalizeToMonthly(amount.Mul(factor), interval, count)
				expected := NormalizeToMonthly(amount, interval, count).Mul(factor)
				assert.True(t, scaled.Round(6).Equal(expected.Round(6)),
					"interval=%s count=%d k=%d: %s != %s", interval, count, k, scaled, expected)
			}
		}
	}
}

func TestItemMonthlyAmountUsesQuantity(t *testing.T) {
	item := lineItem(t, "Pro", 2000, 5, subscriptiondomain.IntervalMonth, 1)
	assert.Equal(t, int64(10000), roundMinor(ItemMonthlyAmount(item)))
}
