package engine

import (
	"cmp"
	"slices"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	overviewdomain "github.com/smallbiznis/revenuemetrics/internal/billingoverview/domain"
	subscriptiondomain "github.com/smallbiznis/revenuemetrics/internal/subscription/domain"
)

// UnknownPlan groups contributing subscriptions that have no line items.
const UnknownPlan = "Unknown"

// ComputeRevenueByPlan attributes each contributing subscription, all items included,
// to the plan of its first item.
func ComputeRevenueByPlan(subs []subscriptiondomain.Subscription) (overviewdomain.RevenueByPlanResult, error) {
	contributing := lo.Filter(subs, func(sub subscriptiondomain.Subscription, _ int) bool {
		return sub.Status.Contributing()
	})
	if len(contributing) == 0 {
		return overviewdomain.RevenueByPlanResult{
			Plans:    []overviewdomain.PlanRevenue{},
			Currency: FallbackCurrency,
		}, nil
	}

	currency, err := resolveCurrency(contributing)
	if err != nil {
		return overviewdomain.RevenueByPlanResult{}, err
	}

	type group struct {
		subscribers int
		revenue     decimal.Decimal
	}
	groups := make(map[string]*group)
	grand := decimal.Zero
	for _, sub := range contributing {
		key := UnknownPlan
		if first, ok := sub.FirstItem(); ok {
			key = first.PlanName
		}
		g, ok := groups[key]
		if !ok {
			g = &group{revenue: decimal.Zero}
			groups[key] = g
		}
		contribution := SubscriptionContribution(sub)
		g.subscribers++
		g.revenue = g.revenue.Add(contribution)
		grand = grand.Add(contribution)
	}

	plans := make([]overviewdomain.PlanRevenue, 0, len(groups))
	for name, g := range groups {
		row := overviewdomain.PlanRevenue{
			PlanName:    name,
			Subscribers: g.subscribers,
			Revenue:     roundMinor(g.revenue),
		}
		if grand.IsPositive() {
			row.Percentage = g.revenue.Div(grand).Mul(hundred).InexactFloat64()
		}
		plans = append(plans, row)
	}
	slices.SortFunc(plans, func(a, b overviewdomain.PlanRevenue) int {
		if c := cmp.Compare(b.Revenue, a.Revenue); c != 0 {
			return c
		}
		return cmp.Compare(a.PlanName, b.PlanName)
	})

	return overviewdomain.RevenueByPlanResult{
		Plans:        plans,
		TotalRevenue: roundMinor(grand),
		Currency:     currency,
	}, nil
}
