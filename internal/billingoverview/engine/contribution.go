package engine

import (
	"github.com/shopspring/decimal"
	subscriptiondomain "github.com/smallbiznis/revenuemetrics/internal/subscription/domain"
)

// SubscriptionContribution is the discounted monthly revenue of one subscription, never below zero.
// Status is not consulted; callers decide which subscriptions are eligible.
func SubscriptionContribution(sub subscriptiondomain.Subscription) decimal.Decimal {
	first, ok := sub.FirstItem()
	if !ok {
		return decimal.Zero
	}

	monthly := decimal.Zero
	for _, item := range sub.Items {
		monthly = monthly.Add(ItemMonthlyAmount(item))
	}

	monthly = applyDiscount(monthly, sub.Discount, first)
	if monthly.IsNegative() {
		return decimal.Zero
	}
	return monthly
}

// MonthlyMinorUnits is SubscriptionContribution rounded to minor units.
func MonthlyMinorUnits(sub subscriptiondomain.Subscription) int64 {
	return roundMinor(SubscriptionContribution(sub))
}

// applyDiscount normalizes amount-off discounts on the cadence of the first item.
func applyDiscount(monthly decimal.Decimal, discount *subscriptiondomain.Discount, reference subscriptiondomain.LineItem) decimal.Decimal {
	if discount == nil {
		return monthly
	}

	switch {
	case discount.PercentOff > 0:
		remaining := hundred.Sub(decimal.NewFromFloat(discount.PercentOff))
		return monthly.Mul(remaining).Div(hundred)
	case discount.AmountOff > 0:
		off := NormalizeToMonthly(decimal.NewFromInt(discount.AmountOff), reference.Interval, reference.IntervalCount)
		return monthly.Sub(off)
	default:
		return monthly
	}
}

func sumContributions(subs []subscriptiondomain.Subscription) decimal.Decimal {
	total := decimal.Zero
	for _, sub := range subs {
		total = total.Add(SubscriptionContribution(sub))
	}
	return total
}
