package domain

import (
	"strings"
	"time"
)

// EventType is the closed set of provider notifications the metrics care about.
type EventType string

const (
	EventSubscriptionCreated  EventType = "customer.subscription.created"
	EventSubscriptionUpdated  EventType = "customer.subscription.updated"
	EventSubscriptionDeleted  EventType = "customer.subscription.deleted"
	EventInvoicePaymentFailed EventType = "invoice.payment_failed"
)

// KnownEventTypes lists every EventType, in provider filter order.
var KnownEventTypes = []EventType{
	EventSubscriptionCreated,
	EventSubscriptionUpdated,
	EventSubscriptionDeleted,
	EventInvoicePaymentFailed,
}

func ParseEventType(raw string) (EventType, bool) {
	value := EventType(strings.TrimSpace(raw))
	for _, t := range KnownEventTypes {
		if t == value {
			return t, true
		}
	}
	return "", false
}

// Event is a normalized billing-provider notification.
// Previous values are only populated for update events.
type Event struct {
	ID               string    `json:"id"`
	Type             EventType `json:"type"`
	OccurredAt       time.Time `json:"occurred_at"`
	CustomerID       string    `json:"customer_id"`
	CustomerEmail    string    `json:"customer_email,omitempty"`
	SubscriptionID   string    `json:"subscription_id,omitempty"`
	Currency         string    `json:"currency,omitempty"`
	PlanName         string    `json:"plan_name,omitempty"`
	PreviousPlanName string    `json:"previous_plan_name,omitempty"`
	Amount           *int64    `json:"amount,omitempty"`
	PreviousAmount   *int64    `json:"previous_amount,omitempty"`
}

// FailedPayment is an invoice whose collection attempt failed.
type FailedPayment struct {
	InvoiceID      string     `json:"invoice_id"`
	CustomerID     string     `json:"customer_id"`
	CustomerEmail  string     `json:"customer_email,omitempty"`
	SubscriptionID string     `json:"subscription_id,omitempty"`
	AmountDue      int64      `json:"amount_due"`
	Currency       string     `json:"currency"`
	AttemptCount   int64      `json:"attempt_count"`
	FailedAt       time.Time  `json:"failed_at"`
	NextAttemptAt  *time.Time `json:"next_attempt_at,omitempty"`
}
