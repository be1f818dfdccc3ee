package engine

import (
	"time"

	"github.com/samber/lo"
	overviewdomain "github.com/smallbiznis/revenuemetrics/internal/billingoverview/domain"
	subscriptiondomain "github.com/smallbiznis/revenuemetrics/internal/subscription/domain"
)

// ComputeChurn measures the churned set against subscriptions that were already contributing
// before the period started. churned is trusted as-is; the caller bounds it to the period.
func ComputeChurn(all, churned []subscriptiondomain.Subscription, periodDays int, now time.Time) (overviewdomain.ChurnResult, error) {
	periodDays = normalizePeriodDays(periodDays)
	bounds := periodBounds(now, periodDays)

	result := overviewdomain.ChurnResult{
		Currency: FallbackCurrency,
		Period:   bounds,
	}
	if len(all) == 0 && len(churned) == 0 {
		return result, nil
	}

	currency, err := resolveCurrency(all, churned)
	if err != nil {
		return overviewdomain.ChurnResult{}, err
	}
	result.Currency = currency

	starting := lo.Filter(all, func(sub subscriptiondomain.Subscription, _ int) bool {
		return sub.Status.Contributing() && sub.CreatedAt.Before(bounds.Start)
	})
	startingRevenue := sumContributions(starting)
	churnedRevenue := sumContributions(churned)

	result.StartingCount = len(starting)
	result.StartingRevenue = roundMinor(startingRevenue)
	result.ChurnedCount = len(churned)
	result.ChurnedRevenue = roundMinor(churnedRevenue)

	if result.StartingCount > 0 {
		result.CustomerChurnRate = float64(result.ChurnedCount) / float64(result.StartingCount) * 100
	}
	if startingRevenue.IsPositive() {
		result.RevenueChurnRate = churnedRevenue.Div(startingRevenue).Mul(hundred).InexactFloat64()
	}

	return result, nil
}
