package stripesource

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	billingevent "github.com/smallbiznis/revenuemetrics/internal/billingevent/domain"
	"github.com/smallbiznis/revenuemetrics/internal/billingoverview/engine"
	sourcedomain "github.com/smallbiznis/revenuemetrics/internal/billingsource/domain"
	subscriptiondomain "github.com/smallbiznis/revenuemetrics/internal/subscription/domain"
	"github.com/stripe/stripe-go/v82"
)

func mapSubscription(raw *stripe.Subscription, products map[string]string) (subscriptiondomain.Subscription, error) {
	if raw == nil {
		return subscriptiondomain.Subscription{}, fmt.Errorf("%w: nil subscription", sourcedomain.ErrInvalidRecord)
	}
	status, ok := subscriptiondomain.ParseStatus(string(raw.Status))
	if !ok {
		return subscriptiondomain.Subscription{}, fmt.Errorf("%w: subscription %s has unknown status %q", sourcedomain.ErrInvalidRecord, raw.ID, raw.Status)
	}

	sub := subscriptiondomain.Subscription{
		ID:        raw.ID,
		Status:    status,
		CreatedAt: unixTime(raw.Created),
		TrialEnd:  optionalUnixTime(raw.TrialEnd),
		Currency:  strings.ToLower(string(raw.Currency)),
		Discount:  mapDiscount(raw.Discounts),
	}
	if raw.Customer != nil {
		sub.CustomerID = raw.Customer.ID
		sub.CustomerEmail = raw.Customer.Email
	}
	// A scheduled cancellation keeps the subscription contributing until it ends.
	if status == subscriptiondomain.StatusCanceled {
		sub.CanceledAt = optionalUnixTime(raw.EndedAt)
		if sub.CanceledAt == nil {
			sub.CanceledAt = optionalUnixTime(raw.CanceledAt)
		}
	}

	if raw.Items != nil {
		items, err := mapItems(raw.ID, raw.Items.Data, products)
		if err != nil {
			return subscriptiondomain.Subscription{}, err
		}
		sub.Items = items
	}
	return sub, nil
}

func mapItems(subscriptionID string, data []*stripe.SubscriptionItem, products map[string]string) ([]subscriptiondomain.LineItem, error) {
	items := make([]subscriptiondomain.LineItem, 0, len(data))
	for _, raw := range data {
		if raw == nil || raw.Price == nil || raw.Price.Recurring == nil {
			return nil, fmt.Errorf("%w: subscription %s has an item without a recurring price", sourcedomain.ErrInvalidRecord, subscriptionID)
		}
		price := raw.Price
		interval, ok := subscriptiondomain.ParseInterval(string(price.Recurring.Interval))
		if !ok {
			return nil, fmt.Errorf("%w: price %s has unknown interval %q", sourcedomain.ErrInvalidRecord, price.ID, price.Recurring.Interval)
		}

		item, err := subscriptiondomain.NewLineItem(subscriptiondomain.LineItemParams{
			PriceID:       price.ID,
			PlanName:      planName(price, products),
			ProductName:   productName(price, products),
			UnitAmount:    unitAmount(price),
			Quantity:      raw.Quantity,
			Interval:      interval,
			IntervalCount: price.Recurring.IntervalCount,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: price %s: %v", sourcedomain.ErrInvalidRecord, price.ID, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// unitAmount prefers the integer amount; decimal-only prices are rounded to minor units.
func unitAmount(price *stripe.Price) int64 {
	if price.UnitAmount != 0 || price.UnitAmountDecimal == 0 {
		return price.UnitAmount
	}
	return decimal.NewFromFloat(price.UnitAmountDecimal).Round(0).IntPart()
}

func planName(price *stripe.Price, products map[string]string) string {
	if name := strings.TrimSpace(price.Nickname); name != "" {
		return name
	}
	if name := productName(price, products); name != "" {
		return name
	}
	return price.ID
}

func productName(price *stripe.Price, products map[string]string) string {
	if price.Product == nil {
		return ""
	}
	if name := products[price.Product.ID]; name != "" {
		return name
	}
	return strings.TrimSpace(price.Product.Name)
}

// mapDiscount keeps the first coupon-backed discount.
func mapDiscount(discounts []*stripe.Discount) *subscriptiondomain.Discount {
	for _, d := range discounts {
		if d == nil || d.Coupon == nil {
			continue
		}
		return &subscriptiondomain.Discount{
			PercentOff: d.Coupon.PercentOff,
			AmountOff:  d.Coupon.AmountOff,
			Currency:   strings.ToLower(string(d.Coupon.Currency)),
		}
	}
	return nil
}

// mapEvent normalizes a provider event. The boolean is false for event types the metrics ignore.
func mapEvent(raw *stripe.Event, products map[string]string) (billingevent.Event, bool, error) {
	if raw == nil {
		return billingevent.Event{}, false, nil
	}
	eventType, ok := billingevent.ParseEventType(string(raw.Type))
	if !ok {
		return billingevent.Event{}, false, nil
	}
	if raw.Data == nil || len(raw.Data.Raw) == 0 {
		return billingevent.Event{}, false, fmt.Errorf("%w: event %s has no payload", sourcedomain.ErrInvalidRecord, raw.ID)
	}

	event := billingevent.Event{
		ID:         raw.ID,
		Type:       eventType,
		OccurredAt: unixTime(raw.Created),
	}

	if eventType == billingevent.EventInvoicePaymentFailed {
		var invoice stripe.Invoice
		if err := json.Unmarshal(raw.Data.Raw, &invoice); err != nil {
			return billingevent.Event{}, false, fmt.Errorf("%w: event %s: %v", sourcedomain.ErrInvalidRecord, raw.ID, err)
		}
		event.CustomerID, event.CustomerEmail = invoiceCustomer(&invoice)
		event.SubscriptionID = invoiceSubscriptionID(&invoice)
		event.Currency = strings.ToLower(string(invoice.Currency))
		amount := invoice.AmountDue
		event.Amount = &amount
		return event, true, nil
	}

	var payload stripe.Subscription
	if err := json.Unmarshal(raw.Data.Raw, &payload); err != nil {
		return billingevent.Event{}, false, fmt.Errorf("%w: event %s: %v", sourcedomain.ErrInvalidRecord, raw.ID, err)
	}
	sub, err := mapSubscription(&payload, products)
	if err != nil {
		return billingevent.Event{}, false, err
	}

	event.CustomerID = sub.CustomerID
	event.CustomerEmail = sub.CustomerEmail
	event.SubscriptionID = sub.ID
	event.Currency = sub.Currency
	if first, ok := sub.FirstItem(); ok {
		event.PlanName = first.PlanName
	}
	if eventType != billingevent.EventSubscriptionUpdated {
		return event, true, nil
	}

	amount := engine.MonthlyMinorUnits(sub)
	event.Amount = &amount

	prevItems, found, err := previousItems(raw.Data.PreviousAttributes, sub.ID, products)
	if err != nil {
		return billingevent.Event{}, false, fmt.Errorf("event %s: %w", raw.ID, err)
	}
	if found {
		previous := sub
		previous.Items = prevItems
		previousAmount := engine.MonthlyMinorUnits(previous)
		event.PreviousAmount = &previousAmount
		if first, ok := previous.FirstItem(); ok {
			event.PreviousPlanName = first.PlanName
		}
	}
	return event, true, nil
}

// previousItems decodes the item list recorded before an update, if the update touched items.
func previousItems(attributes map[string]interface{}, subscriptionID string, products map[string]string) ([]subscriptiondomain.LineItem, bool, error) {
	value, ok := attributes["items"]
	if !ok || value == nil {
		return nil, false, nil
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, false, fmt.Errorf("%w: previous items: %v", sourcedomain.ErrInvalidRecord, err)
	}
	var list stripe.SubscriptionItemList
	if err := json.Unmarshal(encoded, &list); err != nil {
		return nil, false, fmt.Errorf("%w: previous items: %v", sourcedomain.ErrInvalidRecord, err)
	}
	items, err := mapItems(subscriptionID, list.Data, products)
	if err != nil {
		return nil, false, err
	}
	return items, true, nil
}

// mapFailedPayment keeps open invoices whose collection was attempted and failed.
func mapFailedPayment(invoice *stripe.Invoice) (billingevent.FailedPayment, bool) {
	if invoice == nil || !invoice.Attempted || invoice.AttemptCount == 0 || invoice.AmountDue <= 0 {
		return billingevent.FailedPayment{}, false
	}

	payment := billingevent.FailedPayment{
		InvoiceID:      invoice.ID,
		SubscriptionID: invoiceSubscriptionID(invoice),
		AmountDue:      invoice.AmountDue,
		Currency:       strings.ToLower(string(invoice.Currency)),
		AttemptCount:   invoice.AttemptCount,
		FailedAt:       unixTime(invoice.Created),
		NextAttemptAt:  optionalUnixTime(invoice.NextPaymentAttempt),
	}
	payment.CustomerID, payment.CustomerEmail = invoiceCustomer(invoice)
	if invoice.StatusTransitions != nil && invoice.StatusTransitions.FinalizedAt > 0 {
		payment.FailedAt = unixTime(invoice.StatusTransitions.FinalizedAt)
	}
	return payment, true
}

func invoiceCustomer(invoice *stripe.Invoice) (string, string) {
	email := strings.TrimSpace(invoice.CustomerEmail)
	if invoice.Customer == nil {
		return "", email
	}
	if email == "" {
		email = invoice.Customer.Email
	}
	return invoice.Customer.ID, email
}

func invoiceSubscriptionID(invoice *stripe.Invoice) string {
	if invoice.Parent == nil || invoice.Parent.SubscriptionDetails == nil || invoice.Parent.SubscriptionDetails.Subscription == nil {
		return ""
	}
	return invoice.Parent.SubscriptionDetails.Subscription.ID
}

func unixTime(seconds int64) time.Time {
	return time.Unix(seconds, 0).UTC()
}

func optionalUnixTime(seconds int64) *time.Time {
	if seconds <= 0 {
		return nil
	}
	t := unixTime(seconds)
	return &t
}
