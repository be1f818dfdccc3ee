package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLineItemRejectsNonPositiveIntervalCount(t *testing.T) {
	for _, count := range []int64{0, -1} {
		_, err := NewLineItem(LineItemParams{
			PlanName:      "Pro",
			UnitAmount:    2000,
			Quantity:      1,
			Interval:      IntervalMonth,
			IntervalCount: count,
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidLineItem))
		assert.Contains(t, err.Error(), "IntervalCount")
	}
}

func TestNewLineItemRejectsUnknownInterval(t *testing.T) {
	_, err := NewLineItem(LineItemParams{UnitAmount: 100, Quantity: 1, Interval: "fortnight", IntervalCount: 1})
	require.ErrorIs(t, err, ErrInvalidLineItem)
}

func TestNewLineItemTrimsNames(t *testing.T) {
	item, err := NewLineItem(LineItemParams{
		PlanName:      "  Starter ",
		UnitAmount:    900,
		Quantity:      3,
		Interval:      IntervalYear,
		IntervalCount: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "Starter", item.PlanName)
}

func TestParseStatus(t *testing.T) {
	s, ok := ParseStatus(" PAST_DUE ")
	require.True(t, ok)
	assert.Equal(t, StatusPastDue, s)
	assert.True(t, s.Contributing())

	_, ok = ParseStatus("expired")
	assert.False(t, ok)

	assert.False(t, StatusTrialing.Contributing())
	assert.False(t, StatusCanceled.Contributing())
}

func TestSubscriptionValidateReportsBadItem(t *testing.T) {
	sub := Subscription{
		ID:    "sub_1",
		Items: []LineItem{{UnitAmount: 100, Quantity: 1, Interval: IntervalMonth, IntervalCount: 0}},
	}
	err := sub.Validate()
	require.ErrorIs(t, err, ErrInvalidLineItem)
	assert.Contains(t, err.Error(), "sub_1")
}
