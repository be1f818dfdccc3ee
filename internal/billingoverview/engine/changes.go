package engine

import (
	"slices"
	"time"

	billingevent "github.com/smallbiznis/revenuemetrics/internal/billingevent/domain"
	overviewdomain "github.com/smallbiznis/revenuemetrics/internal/billingoverview/domain"
)

// Classify maps an event onto its change category. Update events without a strict amount
// change, and unknown event types, are not classified.
func Classify(event billingevent.Event) (overviewdomain.ChangeCategory, bool) {
	switch event.Type {
	case billingevent.EventSubscriptionCreated:
		return overviewdomain.ChangeNew, true
	case billingevent.EventSubscriptionDeleted:
		return overviewdomain.ChangeCanceled, true
	case billingevent.EventSubscriptionUpdated:
		if event.Amount == nil || event.PreviousAmount == nil {
			return 0, false
		}
		switch {
		case *event.Amount > *event.PreviousAmount:
			return overviewdomain.ChangeUpgraded, true
		case *event.Amount < *event.PreviousAmount:
			return overviewdomain.ChangeDowngraded, true
		default:
			return 0, false
		}
	case billingevent.EventInvoicePaymentFailed:
		return overviewdomain.ChangePaymentFailed, true
	default:
		return 0, false
	}
}

// ComputeRecentChanges builds the categorized feed of events from the last days, newest first.
func ComputeRecentChanges(events []billingevent.Event, days int, now time.Time) overviewdomain.RecentChanges {
	days = normalizePeriodDays(days)
	bounds := periodBounds(now, days)

	result := overviewdomain.RecentChanges{
		Changes: make([]overviewdomain.Change, 0, len(events)),
		Counts:  make(map[overviewdomain.ChangeCategory]int, len(overviewdomain.ChangeCategories)),
		Days:    days,
	}
	for _, event := range events {
		if !onOrAfter(event.OccurredAt, bounds.Start) {
			continue
		}
		category, ok := Classify(event)
		if !ok {
			continue
		}
		result.Counts[category]++
		result.Changes = append(result.Changes, overviewdomain.Change{
			Category:         category,
			OccurredAt:       event.OccurredAt,
			CustomerID:       event.CustomerID,
			CustomerEmail:    event.CustomerEmail,
			SubscriptionID:   event.SubscriptionID,
			PlanName:         event.PlanName,
			PreviousPlanName: event.PreviousPlanName,
			Amount:           event.Amount,
			PreviousAmount:   event.PreviousAmount,
			Currency:         normalizeCurrency(event.Currency),
		})
	}

	slices.SortStableFunc(result.Changes, func(a, b overviewdomain.Change) int {
		return b.OccurredAt.Compare(a.OccurredAt)
	})
	return result
}
