package engine

import (
	"testing"

	subscriptiondomain "github.com/smallbiznis/revenuemetrics/internal/subscription/domain"
	"github.com/stretchr/testify/assert"
)

func TestComputeSubscriberStats(t *testing.T) {
	item := func() []subscriptiondomain.LineItem { return []subscriptiondomain.LineItem{monthly(t, "Pro", 1000)} }
	subs := []subscriptiondomain.Subscription{
		newSub("old-active", item()),
		newSub("new-active", item(), withCreated(daysAgo(3))),
		newSub("new-trial", item(), withCreated(daysAgo(1)), withStatus(subscriptiondomain.StatusTrialing)),
		newSub("new-late", item(), withCreated(daysAgo(10)), withStatus(subscriptiondomain.StatusPastDue)),
		newSub("new-incomplete", item(), withCreated(daysAgo(2)), withStatus(subscriptiondomain.StatusIncomplete)),
		newSub("churned", item(), withCreated(daysAgo(100)), withCanceled(daysAgo(4))),
		newSub("churned-long-ago", item(), withCreated(daysAgo(300)), withCanceled(daysAgo(90))),
		// Canceled in the window but reactivated since; still counted as churned.
		newSub("flapping", item(), withCreated(daysAgo(100)), func(s *subscriptiondomain.Subscription) {
			s.CanceledAt = timePtr(daysAgo(2))
		}),
	}

	stats := ComputeSubscriberStats(subs, 30, testNow)
	assert.Equal(t, 4, stats.TotalActive)
	assert.Equal(t, 1, stats.Trialing)
	assert.Equal(t, 1, stats.PastDue)
	assert.Equal(t, 3, stats.NewThisPeriod)
	assert.Equal(t, 2, stats.ChurnedThisPeriod)
	assert.Equal(t, 1, stats.NetChange)
}

func TestComputeSubscriberStatsInvariants(t *testing.T) {
	item := func() []subscriptiondomain.LineItem { return []subscriptiondomain.LineItem{monthly(t, "Pro", 1000)} }
	populations := [][]subscriptiondomain.Subscription{
		nil,
		{newSub("a", item(), withStatus(subscriptiondomain.StatusPastDue), withCreated(daysAgo(1)))},
		{
			newSub("a", item(), withCanceled(daysAgo(1))),
			newSub("b", item(), withCanceled(daysAgo(2))),
			newSub("c", item(), withCreated(daysAgo(1))),
		},
	}
	for _, days := range []int{-1, 0, 1, 7, 30, 365} {
		for _, subs := range populations {
			stats := ComputeSubscriberStats(subs, days, testNow)
			assert.Equal(t, stats.NewThisPeriod-stats.ChurnedThisPeriod, stats.NetChange)
			assert.LessOrEqual(t, stats.PastDue, stats.TotalActive)
			assert.GreaterOrEqual(t, stats.Period.Days, 1)
		}
	}
}
