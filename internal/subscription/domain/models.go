// Package domain contains the normalized subscription entities consumed by the metrics engine.
package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Status represents lifecycle states for a subscription.
type Status string

const (
	StatusActive            Status = "active"
	StatusTrialing          Status = "trialing"
	StatusPastDue           Status = "past_due"
	StatusCanceled          Status = "canceled"
	StatusIncomplete        Status = "incomplete"
	StatusIncompleteExpired Status = "incomplete_expired"
	StatusUnpaid            Status = "unpaid"
	StatusPaused            Status = "paused"
)

var allStatuses = []Status{
	StatusActive,
	StatusTrialing,
	StatusPastDue,
	StatusCanceled,
	StatusIncomplete,
	StatusIncompleteExpired,
	StatusUnpaid,
	StatusPaused,
}

// ParseStatus maps a provider status string onto the closed status set.
func ParseStatus(raw string) (Status, bool) {
	value := Status(strings.ToLower(strings.TrimSpace(raw)))
	for _, s := range allStatuses {
		if s == value {
			return s, true
		}
	}
	return "", false
}

// Contributing reports whether the status counts toward recurring revenue.
func (s Status) Contributing() bool {
	return s == StatusActive || s == StatusPastDue
}

// Interval is a billing cadence unit.
type Interval string

const (
	IntervalDay   Interval = "day"
	IntervalWeek  Interval = "week"
	IntervalMonth Interval = "month"
	IntervalYear  Interval = "year"
)

func ParseInterval(raw string) (Interval, bool) {
	switch Interval(strings.ToLower(strings.TrimSpace(raw))) {
	case IntervalDay:
		return IntervalDay, true
	case IntervalWeek:
		return IntervalWeek, true
	case IntervalMonth:
		return IntervalMonth, true
	case IntervalYear:
		return IntervalYear, true
	default:
		return "", false
	}
}

// LineItem is one priced component of a subscription.
// Build it with NewLineItem; the normalizer relies on IntervalCount >= 1.
type LineItem struct {
	PriceID       string   `json:"price_id,omitempty"`
	PlanName      string   `json:"plan_name"`
	ProductName   string   `json:"product_name,omitempty"`
	UnitAmount    int64    `json:"unit_amount" validate:"gte=0"`
	Quantity      int64    `json:"quantity" validate:"gte=0"`
	Interval      Interval `json:"interval" validate:"oneof=day week month year"`
	IntervalCount int64    `json:"interval_count" validate:"gte=1"`
}

type LineItemParams struct {
	PriceID       string
	PlanName      string
	ProductName   string
	UnitAmount    int64
	Quantity      int64
	Interval      Interval
	IntervalCount int64
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewLineItem rejects items the normalizer cannot handle, such as a non-positive interval count.
func NewLineItem(p LineItemParams) (LineItem, error) {
	item := LineItem{
		PriceID:       strings.TrimSpace(p.PriceID),
		PlanName:      strings.TrimSpace(p.PlanName),
		ProductName:   strings.TrimSpace(p.ProductName),
		UnitAmount:    p.UnitAmount,
		Quantity:      p.Quantity,
		Interval:      p.Interval,
		IntervalCount: p.IntervalCount,
	}
	if err := item.Validate(); err != nil {
		return LineItem{}, err
	}
	return item, nil
}

func (i LineItem) Validate() error {
	if err := validate.Struct(i); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %s (got %v)", ErrInvalidLineItem, fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("%w: %v", ErrInvalidLineItem, err)
	}
	return nil
}

// Discount is either percent-off (0-100) or a fixed amount-off in minor units.
type Discount struct {
	PercentOff float64 `json:"percent_off,omitempty"`
	AmountOff  int64   `json:"amount_off,omitempty"`
	Currency   string  `json:"currency,omitempty"`
}

// Subscription captures a customer's billing agreement.
type Subscription struct {
	ID            string     `json:"id"`
	CustomerID    string     `json:"customer_id"`
	CustomerEmail string     `json:"customer_email,omitempty"`
	Status        Status     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	CanceledAt    *time.Time `json:"canceled_at,omitempty"`
	TrialEnd      *time.Time `json:"trial_end,omitempty"`
	Currency      string     `json:"currency"`
	Discount      *Discount  `json:"discount,omitempty"`
	Items         []LineItem `json:"items"`
}

// FirstItem returns the item used for plan attribution and amount-off cadence.
func (s Subscription) FirstItem() (LineItem, bool) {
	if len(s.Items) == 0 {
		return LineItem{}, false
	}
	return s.Items[0], true
}

// Validate checks every line item; used when decoding subscriptions from untrusted storage.
func (s Subscription) Validate() error {
	for idx, item := range s.Items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("subscription %s item %d: %w", s.ID, idx, err)
		}
	}
	return nil
}
