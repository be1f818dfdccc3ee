// Package stripesource reads subscriptions, events and failed invoices from Stripe
// and normalizes them into the metrics domain.
package stripesource

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	billingevent "github.com/smallbiznis/revenuemetrics/internal/billingevent/domain"
	sourcedomain "github.com/smallbiznis/revenuemetrics/internal/billingsource/domain"
	"github.com/smallbiznis/revenuemetrics/internal/config"
	obsmetrics "github.com/smallbiznis/revenuemetrics/internal/observability/metrics"
	subscriptiondomain "github.com/smallbiznis/revenuemetrics/internal/subscription/domain"
	"github.com/stripe/stripe-go/v82"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const sourceName = "stripe"

var ErrMissingSecretKey = errors.New("stripe secret key is not configured")

type Params struct {
	fx.In

	Cfg           config.Config
	Log           *zap.Logger
	Metrics       *obsmetrics.Metrics       `optional:"true"`
	SourceMetrics *obsmetrics.SourceMetrics `optional:"true"`
}

type Source struct {
	client        *stripe.Client
	log           *zap.Logger
	metrics       *obsmetrics.Metrics
	sourceMetrics *obsmetrics.SourceMetrics
}

func NewSource(p Params) (*Source, error) {
	key := strings.TrimSpace(p.Cfg.Stripe.SecretKey)
	if key == "" {
		return nil, ErrMissingSecretKey
	}
	return &Source{
		client:        newClient(key, p.Cfg.Stripe.APIBase),
		log:           p.Log.Named("billingsource.stripe"),
		metrics:       p.Metrics,
		sourceMetrics: p.SourceMetrics,
	}, nil
}

func newClient(key, apiBase string) *stripe.Client {
	if apiBase == "" {
		return stripe.NewClient(key)
	}
	backends := stripe.NewBackendsWithConfig(&stripe.BackendConfig{URL: stripe.String(apiBase)})
	return stripe.NewClient(key, stripe.WithBackends(backends))
}

func (s *Source) ListSubscriptions(ctx context.Context, req sourcedomain.ListSubscriptionsRequest) (subs []subscriptiondomain.Subscription, err error) {
	started := time.Now()
	defer func() { s.observe(ctx, obsmetrics.ResourceSubscriptions, started, len(subs), err) }()

	products, err := s.productNames(ctx)
	if err != nil {
		return nil, err
	}

	params := &stripe.SubscriptionListParams{Status: stripe.String(statusFilter(req.Statuses))}
	if req.CanceledSince != nil {
		// Cancellation time is filtered locally.
		params.Status = stripe.String(string(stripe.SubscriptionStatusCanceled))
	}
	params.AddExpand("data.customer")
	params.AddExpand("data.discounts")

	skipped := 0
	subs = make([]subscriptiondomain.Subscription, 0)
	for raw, iterErr := range s.client.V1Subscriptions.List(ctx, params) {
		if iterErr != nil {
			return nil, mapStripeError(iterErr)
		}
		sub, mapErr := mapSubscription(raw, products)
		if mapErr != nil {
			skipped++
			s.log.Warn("skipping subscription", zap.String("subscription_id", raw.ID), zap.Error(mapErr))
			continue
		}
		if req.Matches(sub) {
			subs = append(subs, sub)
		}
	}
	s.sourceMetrics.AddSkipped(sourceName, obsmetrics.ResourceSubscriptions, skipped)
	return subs, nil
}

func (s *Source) ListEvents(ctx context.Context, req sourcedomain.ListEventsRequest) (events []billingevent.Event, err error) {
	started := time.Now()
	defer func() { s.observe(ctx, obsmetrics.ResourceEvents, started, len(events), err) }()

	products, err := s.productNames(ctx)
	if err != nil {
		return nil, err
	}

	types := req.Types
	if len(types) == 0 {
		types = billingevent.KnownEventTypes
	}
	params := &stripe.EventListParams{
		Types: stripe.StringSlice(lo.Map(types, func(t billingevent.EventType, _ int) string { return string(t) })),
	}
	if !req.Since.IsZero() {
		params.CreatedRange = &stripe.RangeQueryParams{GreaterThanOrEqual: req.Since.Unix()}
	}

	skipped := 0
	events = make([]billingevent.Event, 0)
	for raw, iterErr := range s.client.V1Events.List(ctx, params) {
		if iterErr != nil {
			return nil, mapStripeError(iterErr)
		}
		event, ok, mapErr := mapEvent(raw, products)
		if mapErr != nil {
			skipped++
			s.log.Warn("skipping event", zap.String("event_id", raw.ID), zap.Error(mapErr))
			continue
		}
		if ok && req.Accepts(event) {
			events = append(events, event)
		}
	}
	s.sourceMetrics.AddSkipped(sourceName, obsmetrics.ResourceEvents, skipped)
	return events, nil
}

func (s *Source) ListFailedPayments(ctx context.Context, since time.Time) (payments []billingevent.FailedPayment, err error) {
	started := time.Now()
	defer func() { s.observe(ctx, obsmetrics.ResourceFailedPayments, started, len(payments), err) }()

	params := &stripe.InvoiceListParams{Status: stripe.String(string(stripe.InvoiceStatusOpen))}
	if !since.IsZero() {
		params.CreatedRange = &stripe.RangeQueryParams{GreaterThanOrEqual: since.Unix()}
	}
	params.AddExpand("data.customer")

	payments = make([]billingevent.FailedPayment, 0)
	for raw, iterErr := range s.client.V1Invoices.List(ctx, params) {
		if iterErr != nil {
			return nil, mapStripeError(iterErr)
		}
		if payment, ok := mapFailedPayment(raw); ok {
			payments = append(payments, payment)
		}
	}
	return payments, nil
}

// productNames resolves product ids to display names; list expansion cannot reach
// subscription item products.
func (s *Source) productNames(ctx context.Context) (map[string]string, error) {
	started := time.Now()
	names := make(map[string]string)
	var err error
	defer func() { s.observe(ctx, obsmetrics.ResourceProducts, started, len(names), err) }()

	for product, iterErr := range s.client.V1Products.List(ctx, &stripe.ProductListParams{}) {
		if iterErr != nil {
			err = mapStripeError(iterErr)
			return nil, err
		}
		names[product.ID] = strings.TrimSpace(product.Name)
	}
	return names, nil
}

func (s *Source) observe(ctx context.Context, resource string, started time.Time, records int, err error) {
	s.metrics.RecordSourceFetch(ctx, sourceName, resource, err)
	s.sourceMetrics.ObserveFetch(sourceName, resource, time.Since(started), records, err)
	if err != nil {
		s.log.Error("stripe list failed",
			zap.String("resource", resource),
			zap.String("reason", obsmetrics.ClassifySourceReason(err)),
			zap.Error(err),
		)
	}
}

// statusFilter returns the provider status filter for a request; more than one status
// needs the unfiltered listing.
func statusFilter(statuses []subscriptiondomain.Status) string {
	if len(statuses) == 1 {
		return string(statuses[0])
	}
	return "all"
}

func mapStripeError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return fmt.Errorf("%w: %v", sourcedomain.ErrUnavailable, err)
	}
	switch {
	case stripeErr.HTTPStatusCode == 401 || stripeErr.HTTPStatusCode == 403:
		return fmt.Errorf("%w: %s", sourcedomain.ErrUnauthorized, stripeErr.Msg)
	case stripeErr.HTTPStatusCode == 429 || stripeErr.HTTPStatusCode >= 500:
		return fmt.Errorf("%w: %s", sourcedomain.ErrUnavailable, stripeErr.Msg)
	default:
		return fmt.Errorf("stripe request failed (%d %s): %s", stripeErr.HTTPStatusCode, stripeErr.Type, stripeErr.Msg)
	}
}
