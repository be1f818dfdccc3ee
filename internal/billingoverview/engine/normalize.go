package engine

import (
	"github.com/shopspring/decimal"
	subscriptiondomain "github.com/smallbiznis/revenuemetrics/internal/subscription/domain"
)

var (
	monthsPerYear = decimal.NewFromInt(12)
	weeksPerYear  = decimal.NewFromInt(52)
	daysPerYear   = decimal.NewFromInt(365)
	hundred       = decimal.NewFromInt(100)
)

// NormalizeToMonthly converts an amount billed every intervalCount intervals into a
// calendar-average monthly amount. intervalCount must be >= 1.
func NormalizeToMonthly(amount decimal.Decimal, interval subscriptiondomain.Interval, intervalCount int64) decimal.Decimal {
	perInterval := amount.Div(decimal.NewFromInt(intervalCount))

	switch interval {
	case subscriptiondomain.IntervalYear:
		return perInterval.Div(monthsPerYear)
	case subscriptiondomain.IntervalWeek:
		return perInterval.Mul(weeksPerYear).Div(monthsPerYear)
	case subscriptiondomain.IntervalDay:
		return perInterval.Mul(daysPerYear).Div(monthsPerYear)
	default:
		return perInterval
	}
}

// ItemMonthlyAmount is the monthly equivalent of unit amount x quantity.
func ItemMonthlyAmount(item subscriptiondomain.LineItem) decimal.Decimal {
	gross := decimal.NewFromInt(item.UnitAmount).Mul(decimal.NewFromInt(item.Quantity))
	return NormalizeToMonthly(gross, item.Interval, item.IntervalCount)
}

func roundMinor(amount decimal.Decimal) int64 {
	return amount.Round(0).IntPart()
}
