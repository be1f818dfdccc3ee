// Package domain defines the read-only view of the billing provider used by the metrics service.
package domain

import (
	"context"
	"errors"
	"time"

	billingevent "github.com/smallbiznis/revenuemetrics/internal/billingevent/domain"
	subscriptiondomain "github.com/smallbiznis/revenuemetrics/internal/subscription/domain"
)

var (
	ErrUnauthorized  = errors.New("billing_source_unauthorized")
	ErrUnavailable   = errors.New("billing_source_unavailable")
	ErrInvalidRecord = errors.New("billing_source_invalid_record")
)

// ListSubscriptionsRequest filters subscriptions by status.
// CanceledSince, when set, keeps only canceled subscriptions whose cancellation is on or after it.
type ListSubscriptionsRequest struct {
	Statuses      []subscriptiondomain.Status `json:"statuses,omitempty"`
	CanceledSince *time.Time                  `json:"canceled_since,omitempty"`
}

type ListEventsRequest struct {
	Since time.Time                `json:"since"`
	Types []billingevent.EventType `json:"types,omitempty"`
}

// Source lists billing records. Implementations return fully paginated results.
type Source interface {
	ListSubscriptions(ctx context.Context, req ListSubscriptionsRequest) ([]subscriptiondomain.Subscription, error)
	ListEvents(ctx context.Context, req ListEventsRequest) ([]billingevent.Event, error)
	ListFailedPayments(ctx context.Context, since time.Time) ([]billingevent.FailedPayment, error)
}

// Matches reports whether a subscription passes the request filters.
func (r ListSubscriptionsRequest) Matches(sub subscriptiondomain.Subscription) bool {
	if len(r.Statuses) > 0 {
		found := false
		for _, status := range r.Statuses {
			if sub.Status == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if r.CanceledSince != nil {
		if sub.CanceledAt == nil || sub.CanceledAt.Before(*r.CanceledSince) {
			return false
		}
	}
	return true
}

// Accepts reports whether an event passes the request filters.
func (r ListEventsRequest) Accepts(event billingevent.Event) bool {
	if event.OccurredAt.Before(r.Since) {
		return false
	}
	if len(r.Types) == 0 {
		return true
	}
	for _, t := range r.Types {
		if event.Type == t {
			return true
		}
	}
	return false
}
