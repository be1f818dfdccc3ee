package engine

import (
	"testing"

	overviewdomain "github.com/smallbiznis/revenuemetrics/internal/billingoverview/domain"
	subscriptiondomain "github.com/smallbiznis/revenuemetrics/internal/subscription/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeChurnEmptyShortCircuits(t *testing.T) {
	result, err := ComputeChurn(nil, nil, 30, testNow)
	require.NoError(t, err)
	assert.Equal(t, FallbackCurrency, result.Currency)
	assert.Zero(t, result.CustomerChurnRate)
	assert.Zero(t, result.RevenueChurnRate)
	assert.Equal(t, daysAgo(30), result.Period.Start)
	assert.Equal(t, testNow, result.Period.End)
}

func TestComputeChurnRates(t *testing.T) {
	all := []subscriptiondomain.Subscription{
		newSub("a", []subscriptiondomain.LineItem{monthly(t, "Pro", 3000)}, withCreated(daysAgo(60))),
		newSub("b", []subscriptiondomain.LineItem{monthly(t, "Pro", 3000)}, withCreated(daysAgo(45))),
		newSub("c", []subscriptiondomain.LineItem{monthly(t, "Basic", 2000)}, withCreated(daysAgo(40)), withStatus(subscriptiondomain.StatusPastDue)),
		// Created inside the window: not part of the starting population.
		newSub("d", []subscriptiondomain.LineItem{monthly(t, "Pro", 3000)}, withCreated(daysAgo(5))),
		// Trialing subscriptions never start as contributing.
		newSub("e", []subscriptiondomain.LineItem{monthly(t, "Pro", 3000)}, withCreated(daysAgo(50)), withStatus(subscriptiondomain.StatusTrialing)),
	}
	churned := []subscriptiondomain.Subscription{
		newSub("x", []subscriptiondomain.LineItem{monthly(t, "Basic", 2000)}, withCreated(daysAgo(100)), withCanceled(daysAgo(3))),
	}

	result, err := ComputeChurn(all, churned, 30, testNow)
	require.NoError(t, err)
	assert.Equal(t, 3, result.StartingCount)
	assert.Equal(t, int64(8000), result.StartingRevenue)
	assert.Equal(t, 1, result.ChurnedCount)
	assert.Equal(t, int64(2000), result.ChurnedRevenue)
	assert.InDelta(t, 33.333, result.CustomerChurnRate, 0.001)
	assert.InDelta(t, 25.0, result.RevenueChurnRate, 0.0001)
	assert.Equal(t, "usd", result.Currency)
}

func TestComputeChurnZeroStartingPopulation(t *testing.T) {
	churned := []subscriptiondomain.Subscription{
		newSub("x", []subscriptiondomain.LineItem{monthly(t, "Pro", 2000)}, withCanceled(daysAgo(1))),
	}
	result, err := ComputeChurn(nil, churned, 30, testNow)
	require.NoError(t, err)
	assert.Zero(t, result.CustomerChurnRate)
	assert.Zero(t, result.RevenueChurnRate)
	assert.Equal(t, 1, result.ChurnedCount)
	assert.GreaterOrEqual(t, result.ChurnedRevenue, int64(0))
}

func TestComputeChurnBoundaryIsStrict(t *testing.T) {
	all := []subscriptiondomain.Subscription{
		newSub("edge", []subscriptiondomain.LineItem{monthly(t, "Pro", 2000)}, withCreated(daysAgo(30))),
	}
	result, err := ComputeChurn(all, nil, 30, testNow)
	require.NoError(t, err)
	assert.Equal(t, 0, result.StartingCount)
}

func TestComputeChurnNormalizesPeriod(t *testing.T) {
	for _, days := range []int{0, -7} {
		result, err := ComputeChurn(nil, nil, days, testNow)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Period.Days)
		assert.Equal(t, daysAgo(1), result.Period.Start)
	}
}

func TestComputeChurnMixedCurrencyAcrossUnion(t *testing.T) {
	all := []subscriptiondomain.Subscription{newSub("a", []subscriptiondomain.LineItem{monthly(t, "Pro", 2000)})}
	churned := []subscriptiondomain.Subscription{
		newSub("x", []subscriptiondomain.LineItem{monthly(t, "Pro", 2000)}, withCurrency("eur"), withCanceled(daysAgo(2))),
	}
	_, err := ComputeChurn(all, churned, 30, testNow)
	var mixed *overviewdomain.MixedCurrencyError
	require.ErrorAs(t, err, &mixed)
	assert.Equal(t, []string{"eur", "usd"}, mixed.Currencies)
}
