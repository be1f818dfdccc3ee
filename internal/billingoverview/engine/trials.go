package engine

import (
	"cmp"
	"math"
	"slices"
	"time"

	overviewdomain "github.com/smallbiznis/revenuemetrics/internal/billingoverview/domain"
	subscriptiondomain "github.com/smallbiznis/revenuemetrics/internal/subscription/domain"
)

const DefaultTrialLookahead = 3 * 24 * time.Hour

// ExpiringTrials lists trials ending after now and no later than now + lookahead,
// valued as if they converted, soonest first.
func ExpiringTrials(subs []subscriptiondomain.Subscription, now time.Time, lookahead time.Duration) []overviewdomain.ExpiringTrial {
	if lookahead <= 0 {
		lookahead = DefaultTrialLookahead
	}
	horizon := now.Add(lookahead)

	trials := make([]overviewdomain.ExpiringTrial, 0)
	for _, sub := range subs {
		if sub.Status != subscriptiondomain.StatusTrialing || sub.TrialEnd == nil {
			continue
		}
		end := *sub.TrialEnd
		if !end.After(now) || end.After(horizon) {
			continue
		}

		trial := overviewdomain.ExpiringTrial{
			SubscriptionID: sub.ID,
			CustomerID:     sub.CustomerID,
			CustomerEmail:  sub.CustomerEmail,
			TrialEnd:       end,
			DaysRemaining:  int(math.Ceil(end.Sub(now).Hours() / 24)),
			MonthlyValue:   roundMinor(SubscriptionContribution(sub)),
			Currency:       normalizeCurrency(sub.Currency),
		}
		if first, ok := sub.FirstItem(); ok {
			trial.PlanName = first.PlanName
		}
		trials = append(trials, trial)
	}

	slices.SortFunc(trials, func(a, b overviewdomain.ExpiringTrial) int {
		if c := cmp.Compare(a.DaysRemaining, b.DaysRemaining); c != 0 {
			return c
		}
		return a.TrialEnd.Compare(b.TrialEnd)
	})
	return trials
}
