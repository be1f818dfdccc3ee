package render

import (
	"testing"
	"time"

	overviewdomain "github.com/smallbiznis/revenuemetrics/internal/billingoverview/domain"
	"github.com/stretchr/testify/assert"
)

func TestMoney(t *testing.T) {
	cases := []struct {
		minor    int64
		currency string
		want     string
	}{
		{0, "usd", "0.00 USD"},
		{5, "usd", "0.05 USD"},
		{123456789, "eur", "1,234,567.89 EUR"},
		{-150, "usd", "-1.50 USD"},
		{1000, "", "10.00"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Money(tc.minor, tc.currency))
	}
}

func TestQuickRatio(t *testing.T) {
	assert.Equal(t, "∞ (no churn)", QuickRatio(overviewdomain.QuickRatio{NoChurn: true}))
	assert.Equal(t, "1.67", QuickRatio(overviewdomain.QuickRatio{Ratio: 2500.0 / 1500.0}))
	assert.Equal(t, "0.00", QuickRatio(overviewdomain.QuickRatio{}))
}

func TestRenderMRR(t *testing.T) {
	out := RenderMRR(overviewdomain.MRRResult{
		Total:             1234500,
		Currency:          "usd",
		Statuses:          overviewdomain.StatusBreakdown{Active: 1200, Trialing: 3, PastDue: 4},
		ContributingCount: 1204,
	})
	assert.Contains(t, out, "# Monthly Recurring Revenue")
	assert.Contains(t, out, "**MRR:** 12,345.00 USD")
	assert.Contains(t, out, "| Active | 1,200 |")
	assert.Contains(t, out, "| Contributing | 1,204 |")
}

func TestRenderRevenueByPlan(t *testing.T) {
	out := RenderRevenueByPlan(overviewdomain.RevenueByPlanResult{
		Plans: []overviewdomain.PlanRevenue{
			{PlanName: "Pro", Subscribers: 2, Revenue: 3000, Percentage: 75},
			{PlanName: "Basic", Subscribers: 1, Revenue: 1000, Percentage: 25},
		},
		TotalRevenue: 4000,
		Currency:     "usd",
	})
	assert.Contains(t, out, "| Pro | 2 | 30.00 USD | 75.0% |")
	assert.Contains(t, out, "| **Total** |  | 40.00 USD |  |")

	empty := RenderRevenueByPlan(overviewdomain.RevenueByPlanResult{Currency: "usd"})
	assert.Contains(t, empty, "No contributing subscriptions.")
}

func TestRenderRecentChanges(t *testing.T) {
	amount, prev := int64(2500), int64(2000)
	out := RenderRecentChanges(overviewdomain.RecentChanges{
		Days: 7,
		Changes: []overviewdomain.Change{{
			Category:         overviewdomain.ChangeUpgraded,
			OccurredAt:       time.Date(2025, 6, 12, 8, 0, 0, 0, time.UTC),
			CustomerID:       "cus_1",
			CustomerEmail:    "a@example.com",
			PlanName:         "Pro",
			PreviousPlanName: "Basic",
			Amount:           &amount,
			PreviousAmount:   &prev,
			Currency:         "usd",
		}},
		Counts: map[overviewdomain.ChangeCategory]int{overviewdomain.ChangeUpgraded: 1},
	})
	assert.Contains(t, out, "# Recent Changes (last 7 days)")
	assert.Contains(t, out, "new: 0 · upgraded: 1")
	assert.Contains(t, out, "| 2025-06-12 | upgraded | a@example.com | Basic → Pro | 20.00 USD → 25.00 USD |")
}

func TestRenderDashboard(t *testing.T) {
	start := time.Date(2025, 5, 16, 12, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	out := RenderDashboard(overviewdomain.Dashboard{
		MRR: overviewdomain.MRRResult{Total: 3500, Currency: "usd"},
		Movement: overviewdomain.MovementResult{
			NewRevenue:     2000,
			ChurnedRevenue: 1500,
			NetNewRevenue:  500,
			Currency:       "usd",
			Period:         overviewdomain.PeriodBounds{Start: start, End: end, Days: 30},
		},
		QuickRatio: overviewdomain.QuickRatio{NoChurn: true},
		ExpiringTrials: []overviewdomain.ExpiringTrial{{
			CustomerID:    "cus_t",
			PlanName:      "Pro",
			TrialEnd:      end.Add(24 * time.Hour),
			DaysRemaining: 1,
			MonthlyValue:  3000,
			Currency:      "usd",
		}},
	})
	assert.Contains(t, out, "**Quick ratio:** ∞ (no churn)")
	assert.Contains(t, out, "## Movement, last 30 days (2025-05-16 to 2025-06-15)")
	assert.Contains(t, out, "| Churned | -15.00 USD |")
	assert.Contains(t, out, "No failed payments.")
	assert.Contains(t, out, "| cus_t | Pro | 2025-06-16 | 1 day | 30.00 USD |")
}

func TestRenderSubscriberStatsSignsNetChange(t *testing.T) {
	out := RenderSubscriberStats(overviewdomain.SubscriberStats{NewThisPeriod: 3, ChurnedThisPeriod: 1, NetChange: 2})
	assert.Contains(t, out, "| Net change | +2 |")

	out = RenderSubscriberStats(overviewdomain.SubscriberStats{NetChange: -2})
	assert.Contains(t, out, "| Net change | -2 |")
}

func TestTableCellsEscapePipes(t *testing.T) {
	out := RenderRevenueByPlan(overviewdomain.RevenueByPlanResult{
		Plans: []overviewdomain.PlanRevenue{
			{PlanName: "Pro | Annual", Subscribers: 1, Revenue: 1000, Percentage: 100},
		},
		TotalRevenue: 1000,
		Currency:     "usd",
	})
	assert.Contains(t, out, `| Pro \| Annual | 1 | 10.00 USD | 100.0% |`)
}

func TestRenderExpiringTrialsPluralizesDays(t *testing.T) {
	out := RenderExpiringTrials([]overviewdomain.ExpiringTrial{{
		CustomerID:    "cus_t",
		CustomerEmail: "ops|billing@example.com",
		PlanName:      "Pro",
		TrialEnd:      time.Date(2025, 6, 18, 12, 0, 0, 0, time.UTC),
		DaysRemaining: 3,
		MonthlyValue:  3000,
		Currency:      "usd",
	}})
	assert.Contains(t, out, "| 3 days |")
	assert.Contains(t, out, `ops\|billing@example.com`)

	assert.Contains(t, RenderExpiringTrials(nil), "No trials expiring soon.")
}
