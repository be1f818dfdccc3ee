package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	overviewdomain "github.com/smallbiznis/revenuemetrics/internal/billingoverview/domain"
	"github.com/smallbiznis/revenuemetrics/internal/billingoverview/engine"
	billingevent "github.com/smallbiznis/revenuemetrics/internal/billingevent/domain"
	sourcedomain "github.com/smallbiznis/revenuemetrics/internal/billingsource/domain"
	"github.com/smallbiznis/revenuemetrics/internal/clock"
	"github.com/smallbiznis/revenuemetrics/internal/config"
	"github.com/smallbiznis/revenuemetrics/internal/observability/metrics"
	subscriptiondomain "github.com/smallbiznis/revenuemetrics/internal/subscription/domain"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	metricMRR         = "mrr"
	metricChurn       = "churn"
	metricPlans       = "revenue_by_plan"
	metricMovement    = "mrr_movement"
	metricSubscribers = "subscriber_stats"
	metricChanges     = "recent_changes"
	metricTrials      = "expiring_trials"
	metricDashboard   = "dashboard"
)

var currentStatuses = []subscriptiondomain.Status{
	subscriptiondomain.StatusActive,
	subscriptiondomain.StatusTrialing,
	subscriptiondomain.StatusPastDue,
}

type Params struct {
	fx.In

	Source  sourcedomain.Source
	Clock   clock.Clock
	Log     *zap.Logger
	Config  *config.MetricsConfigHolder
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	source  sourcedomain.Source
	clock   clock.Clock
	log     *zap.Logger
	cfg     *config.MetricsConfigHolder
	metrics *metrics.Metrics
}

func NewService(p Params) overviewdomain.Service {
	return &Service{
		source:  p.Source,
		clock:   p.Clock,
		log:     p.Log.Named("billingoverview.service"),
		cfg:     p.Config,
		metrics: p.Metrics,
	}
}

func (s *Service) GetMRR(ctx context.Context) (overviewdomain.MRRResult, error) {
	snap, err := s.load(ctx, time.Time{}, fetchCurrent)
	if err != nil {
		return overviewdomain.MRRResult{}, s.done(ctx, metricMRR, err)
	}
	result, err := engine.ComputeMRR(snap.current)
	return result, s.done(ctx, metricMRR, err)
}

func (s *Service) GetChurn(ctx context.Context, req overviewdomain.OverviewRequest) (overviewdomain.ChurnResult, error) {
	days, err := s.periodDays(req)
	if err != nil {
		return overviewdomain.ChurnResult{}, s.done(ctx, metricChurn, err)
	}
	now := s.clock.Now()
	snap, err := s.load(ctx, boundary(now, days), fetchCurrent|fetchCanceled)
	if err != nil {
		return overviewdomain.ChurnResult{}, s.done(ctx, metricChurn, err)
	}
	result, err := engine.ComputeChurn(snap.current, snap.canceled, days, now)
	return result, s.done(ctx, metricChurn, err)
}

func (s *Service) GetRevenueByPlan(ctx context.Context) (overviewdomain.RevenueByPlanResult, error) {
	snap, err := s.load(ctx, time.Time{}, fetchCurrent)
	if err != nil {
		return overviewdomain.RevenueByPlanResult{}, s.done(ctx, metricPlans, err)
	}
	result, err := engine.ComputeRevenueByPlan(snap.current)
	return result, s.done(ctx, metricPlans, err)
}

func (s *Service) GetMRRMovement(ctx context.Context, req overviewdomain.OverviewRequest) (overviewdomain.MovementResult, error) {
	days, err := s.periodDays(req)
	if err != nil {
		return overviewdomain.MovementResult{}, s.done(ctx, metricMovement, err)
	}
	now := s.clock.Now()
	snap, err := s.load(ctx, boundary(now, days), fetchCurrent|fetchCanceled|fetchEvents)
	if err != nil {
		return overviewdomain.MovementResult{}, s.done(ctx, metricMovement, err)
	}
	result, err := engine.ComputeMRRMovement(snap.current, snap.canceled, snap.events, days, now)
	return result, s.done(ctx, metricMovement, err)
}

func (s *Service) GetSubscriberStats(ctx context.Context, req overviewdomain.OverviewRequest) (overviewdomain.SubscriberStats, error) {
	days, err := s.periodDays(req)
	if err != nil {
		return overviewdomain.SubscriberStats{}, s.done(ctx, metricSubscribers, err)
	}
	now := s.clock.Now()
	snap, err := s.load(ctx, boundary(now, days), fetchCurrent|fetchCanceled)
	if err != nil {
		return overviewdomain.SubscriberStats{}, s.done(ctx, metricSubscribers, err)
	}
	all := make([]subscriptiondomain.Subscription, 0, len(snap.current)+len(snap.canceled))
	all = append(all, snap.current...)
	all = append(all, snap.canceled...)
	return engine.ComputeSubscriberStats(all, days, now), s.done(ctx, metricSubscribers, nil)
}

// GetRecentChanges uses the configured feed window unless the request names one.
func (s *Service) GetRecentChanges(ctx context.Context, req overviewdomain.OverviewRequest) (overviewdomain.RecentChanges, error) {
	days := req.PeriodDays
	if days == 0 {
		days = s.cfg.Get().RecentChangesDays
	}
	if days < 0 || days > overviewdomain.MaxPeriodDays {
		return overviewdomain.RecentChanges{}, s.done(ctx, metricChanges, overviewdomain.ErrInvalidPeriod)
	}
	now := s.clock.Now()
	snap, err := s.load(ctx, boundary(now, days), fetchEvents)
	if err != nil {
		return overviewdomain.RecentChanges{}, s.done(ctx, metricChanges, err)
	}
	return engine.ComputeRecentChanges(snap.events, days, now), s.done(ctx, metricChanges, nil)
}

func (s *Service) GetExpiringTrials(ctx context.Context) ([]overviewdomain.ExpiringTrial, error) {
	now := s.clock.Now()
	snap, err := s.load(ctx, time.Time{}, fetchTrialing)
	if err != nil {
		return nil, s.done(ctx, metricTrials, err)
	}
	return engine.ExpiringTrials(snap.current, now, s.trialLookahead()), s.done(ctx, metricTrials, nil)
}

// GetDashboard computes every dashboard section from a single snapshot.
func (s *Service) GetDashboard(ctx context.Context, req overviewdomain.OverviewRequest) (overviewdomain.Dashboard, error) {
	days, err := s.periodDays(req)
	if err != nil {
		return overviewdomain.Dashboard{}, s.done(ctx, metricDashboard, err)
	}
	now := s.clock.Now()
	snap, err := s.load(ctx, boundary(now, days), fetchCurrent|fetchCanceled|fetchEvents|fetchFailed)
	if err != nil {
		return overviewdomain.Dashboard{}, s.done(ctx, metricDashboard, err)
	}

	mrr, err := engine.ComputeMRR(snap.current)
	if err != nil {
		return overviewdomain.Dashboard{}, s.done(ctx, metricDashboard, err)
	}
	movement, err := engine.ComputeMRRMovement(snap.current, snap.canceled, snap.events, days, now)
	if err != nil {
		return overviewdomain.Dashboard{}, s.done(ctx, metricDashboard, err)
	}
	trials := engine.ExpiringTrials(snap.current, now, s.trialLookahead())

	return engine.ComposeDashboard(mrr, movement, snap.failed, trials), s.done(ctx, metricDashboard, nil)
}

func (s *Service) periodDays(req overviewdomain.OverviewRequest) (int, error) {
	days := req.PeriodDays
	if days == 0 {
		days = s.cfg.Get().DefaultPeriodDays
	}
	if days < 1 || days > overviewdomain.MaxPeriodDays {
		return 0, overviewdomain.ErrInvalidPeriod
	}
	return days, nil
}

func (s *Service) trialLookahead() time.Duration {
	return time.Duration(s.cfg.Get().TrialLookaheadDays) * 24 * time.Hour
}

func boundary(now time.Time, days int) time.Time {
	return now.Add(-time.Duration(days) * 24 * time.Hour)
}

// done records the computation outcome. Mixed currency sets are also counted and logged.
func (s *Service) done(ctx context.Context, name string, err error) error {
	if s.metrics != nil {
		s.metrics.RecordComputation(ctx, name, err)
	}
	if err == nil {
		return nil
	}

	var mixed *overviewdomain.MixedCurrencyError
	switch {
	case errors.As(err, &mixed):
		if s.metrics != nil {
			s.metrics.RecordMixedCurrency(ctx, name)
		}
		s.log.Warn("mixed currencies in snapshot",
			zap.String("metric", name),
			zap.Strings("currencies", mixed.Currencies),
		)
	case errors.Is(err, overviewdomain.ErrInvalidPeriod):
	default:
		s.log.Error("metric computation failed", zap.String("metric", name), zap.Error(err))
	}
	return err
}

type fetchMask uint8

const (
	fetchCurrent fetchMask = 1 << iota
	fetchCanceled
	fetchEvents
	fetchFailed
	fetchTrialing
)

// snapshot is one consistent read of the billing source.
type snapshot struct {
	current  []subscriptiondomain.Subscription
	canceled []subscriptiondomain.Subscription
	events   []billingevent.Event
	failed   []billingevent.FailedPayment
}

// load fetches the requested collections in parallel. The first failure cancels the rest.
func (s *Service) load(ctx context.Context, since time.Time, mask fetchMask) (snapshot, error) {
	var snap snapshot
	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()

	if mask&(fetchCurrent|fetchTrialing) != 0 {
		statuses := currentStatuses
		if mask&fetchCurrent == 0 {
			statuses = []subscriptiondomain.Status{subscriptiondomain.StatusTrialing}
		}
		p.Go(func(ctx context.Context) error {
			subs, err := s.source.ListSubscriptions(ctx, sourcedomain.ListSubscriptionsRequest{Statuses: statuses})
			if err != nil {
				return fmt.Errorf("list subscriptions: %w", err)
			}
			snap.current = subs
			return nil
		})
	}
	if mask&fetchCanceled != 0 {
		canceledSince := since
		p.Go(func(ctx context.Context) error {
			subs, err := s.source.ListSubscriptions(ctx, sourcedomain.ListSubscriptionsRequest{
				Statuses:      []subscriptiondomain.Status{subscriptiondomain.StatusCanceled},
				CanceledSince: &canceledSince,
			})
			if err != nil {
				return fmt.Errorf("list canceled subscriptions: %w", err)
			}
			snap.canceled = subs
			return nil
		})
	}
	if mask&fetchEvents != 0 {
		p.Go(func(ctx context.Context) error {
			events, err := s.source.ListEvents(ctx, sourcedomain.ListEventsRequest{
				Since: since,
				Types: billingevent.KnownEventTypes,
			})
			if err != nil {
				return fmt.Errorf("list events: %w", err)
			}
			snap.events = events
			return nil
		})
	}
	if mask&fetchFailed != 0 {
		p.Go(func(ctx context.Context) error {
			failed, err := s.source.ListFailedPayments(ctx, since)
			if err != nil {
				return fmt.Errorf("list failed payments: %w", err)
			}
			snap.failed = failed
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return snapshot{}, err
	}
	return snap, nil
}
