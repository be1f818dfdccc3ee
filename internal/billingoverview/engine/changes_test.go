package engine

import (
	"testing"
	"time"

	billingevent "github.com/smallbiznis/revenuemetrics/internal/billingevent/domain"
	overviewdomain "github.com/smallbiznis/revenuemetrics/internal/billingoverview/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		event billingevent.Event
		want  overviewdomain.ChangeCategory
		ok    bool
	}{
		{"created", billingevent.Event{Type: billingevent.EventSubscriptionCreated}, overviewdomain.ChangeNew, true},
		{"deleted", billingevent.Event{Type: billingevent.EventSubscriptionDeleted}, overviewdomain.ChangeCanceled, true},
		{"upgrade", billingevent.Event{Type: billingevent.EventSubscriptionUpdated, Amount: int64Ptr(5000), PreviousAmount: int64Ptr(2000)}, overviewdomain.ChangeUpgraded, true},
		{"downgrade", billingevent.Event{Type: billingevent.EventSubscriptionUpdated, Amount: int64Ptr(1000), PreviousAmount: int64Ptr(2000)}, overviewdomain.ChangeDowngraded, true},
		{"same amount", billingevent.Event{Type: billingevent.EventSubscriptionUpdated, Amount: int64Ptr(2000), PreviousAmount: int64Ptr(2000)}, 0, false},
		{"missing previous", billingevent.Event{Type: billingevent.EventSubscriptionUpdated, Amount: int64Ptr(2000)}, 0, false},
		{"payment failed", billingevent.Event{Type: billingevent.EventInvoicePaymentFailed}, overviewdomain.ChangePaymentFailed, true},
		{"unknown", billingevent.Event{Type: "charge.refunded"}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Classify(tt.event)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeRecentChanges(t *testing.T) {
	events := []billingevent.Event{
		{ID: "evt_1", Type: billingevent.EventSubscriptionCreated, OccurredAt: testNow.Add(-48 * time.Hour), Currency: "USD"},
		{ID: "evt_2", Type: billingevent.EventInvoicePaymentFailed, OccurredAt: testNow.Add(-2 * time.Hour)},
		{ID: "evt_3", Type: billingevent.EventSubscriptionUpdated, OccurredAt: testNow.Add(-24 * time.Hour), Amount: int64Ptr(10), PreviousAmount: int64Ptr(10)},
		{ID: "evt_4", Type: billingevent.EventSubscriptionUpdated, OccurredAt: testNow.Add(-30 * time.Hour), Amount: int64Ptr(50), PreviousAmount: int64Ptr(10)},
		{ID: "evt_5", Type: "customer.created", OccurredAt: testNow.Add(-time.Hour)},
		{ID: "evt_6", Type: billingevent.EventSubscriptionDeleted, OccurredAt: testNow.Add(-20 * 24 * time.Hour)},
		{ID: "evt_7", Type: billingevent.EventSubscriptionDeleted, OccurredAt: testNow.Add(-72 * time.Hour)},
	}

	result := ComputeRecentChanges(events, 7, testNow)
	require.Len(t, result.Changes, 4)
	assert.Equal(t, 7, result.Days)

	gotOrder := make([]overviewdomain.ChangeCategory, 0, len(result.Changes))
	for i, change := range result.Changes {
		gotOrder = append(gotOrder, change.Category)
		if i > 0 {
			assert.False(t, change.OccurredAt.After(result.Changes[i-1].OccurredAt))
		}
	}
	assert.Equal(t, []overviewdomain.ChangeCategory{
		overviewdomain.ChangePaymentFailed,
		overviewdomain.ChangeUpgraded,
		overviewdomain.ChangeNew,
		overviewdomain.ChangeCanceled,
	}, gotOrder)

	assert.Equal(t, 1, result.Counts[overviewdomain.ChangeNew])
	assert.Equal(t, 1, result.Counts[overviewdomain.ChangeUpgraded])
	assert.Equal(t, 0, result.Counts[overviewdomain.ChangeDowngraded])
	assert.Equal(t, 1, result.Counts[overviewdomain.ChangeCanceled])
	assert.Equal(t, "usd", result.Changes[2].Currency)
}

func TestComputeRecentChangesDoesNotReorderInput(t *testing.T) {
	events := []billingevent.Event{
		{ID: "old", Type: billingevent.EventSubscriptionCreated, OccurredAt: testNow.Add(-3 * time.Hour)},
		{ID: "new", Type: billingevent.EventSubscriptionCreated, OccurredAt: testNow.Add(-time.Hour)},
	}
	_ = ComputeRecentChanges(events, 1, testNow)
	assert.Equal(t, "old", events[0].ID)
}
