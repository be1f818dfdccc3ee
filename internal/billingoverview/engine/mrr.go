package engine

import (
	"github.com/shopspring/decimal"
	overviewdomain "github.com/smallbiznis/revenuemetrics/internal/billingoverview/domain"
	subscriptiondomain "github.com/smallbiznis/revenuemetrics/internal/subscription/domain"
)

// ComputeMRR sums the monthly contribution of active and past-due subscriptions.
// The currency check covers every input, including subscriptions that do not contribute.
func ComputeMRR(subs []subscriptiondomain.Subscription) (overviewdomain.MRRResult, error) {
	currency, err := resolveCurrency(subs)
	if err != nil {
		return overviewdomain.MRRResult{}, err
	}

	result := overviewdomain.MRRResult{Currency: currency}
	total := decimal.Zero
	for _, sub := range subs {
		switch sub.Status {
		case subscriptiondomain.StatusActive:
			result.Statuses.Active++
		case subscriptiondomain.StatusTrialing:
			result.Statuses.Trialing++
		case subscriptiondomain.StatusPastDue:
			result.Statuses.PastDue++
		}

		if !sub.Status.Contributing() || len(sub.Items) == 0 {
			continue
		}
		result.ContributingCount++
		total = total.Add(SubscriptionContribution(sub))
	}

	result.Total = roundMinor(total)
	return result, nil
}
