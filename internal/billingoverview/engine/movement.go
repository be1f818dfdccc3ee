package engine

import (
	"time"

	"github.com/shopspring/decimal"
	billingevent "github.com/smallbiznis/revenuemetrics/internal/billingevent/domain"
	overviewdomain "github.com/smallbiznis/revenuemetrics/internal/billingoverview/domain"
	subscriptiondomain "github.com/smallbiznis/revenuemetrics/internal/subscription/domain"
)

// ComputeMRRMovement splits the revenue change over the period into new, expansion,
// contraction and churned components.
func ComputeMRRMovement(
	current, canceled []subscriptiondomain.Subscription,
	events []billingevent.Event,
	periodDays int,
	now time.Time,
) (overviewdomain.MovementResult, error) {
	periodDays = normalizePeriodDays(periodDays)
	bounds := periodBounds(now, periodDays)

	currency, err := resolveCurrency(current, canceled)
	if err != nil {
		return overviewdomain.MovementResult{}, err
	}

	newRevenue := decimal.Zero
	for _, sub := range current {
		if !sub.Status.Contributing() || !onOrAfter(sub.CreatedAt, bounds.Start) {
			continue
		}
		newRevenue = newRevenue.Add(SubscriptionContribution(sub))
	}

	churnedRevenue := decimal.Zero
	for _, sub := range canceled {
		if sub.CanceledAt == nil || !onOrAfter(*sub.CanceledAt, bounds.Start) {
			continue
		}
		churnedRevenue = churnedRevenue.Add(SubscriptionContribution(sub))
	}

	var expansion, contraction int64
	for _, event := range events {
		if event.Type != billingevent.EventSubscriptionUpdated || !onOrAfter(event.OccurredAt, bounds.Start) {
			continue
		}
		if event.Amount == nil || event.PreviousAmount == nil {
			continue
		}
		diff := *event.Amount - *event.PreviousAmount
		switch {
		case diff > 0:
			expansion += diff
		case diff < 0:
			contraction += -diff
		}
	}

	result := overviewdomain.MovementResult{
		NewRevenue:         roundMinor(newRevenue),
		ExpansionRevenue:   expansion,
		ContractionRevenue: contraction,
		ChurnedRevenue:     roundMinor(churnedRevenue),
		Currency:           currency,
		Period:             bounds,
	}
	result.NetNewRevenue = result.NewRevenue + result.ExpansionRevenue - result.ContractionRevenue - result.ChurnedRevenue
	return result, nil
}
