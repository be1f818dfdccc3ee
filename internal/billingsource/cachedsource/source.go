// Package cachedsource memoizes billing source listings so that a burst of metric
// requests costs a single round of provider calls.
package cachedsource

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
	billingevent "github.com/smallbiznis/revenuemetrics/internal/billingevent/domain"
	sourcedomain "github.com/smallbiznis/revenuemetrics/internal/billingsource/domain"
	"github.com/smallbiznis/revenuemetrics/internal/cache"
	obsmetrics "github.com/smallbiznis/revenuemetrics/internal/observability/metrics"
	subscriptiondomain "github.com/smallbiznis/revenuemetrics/internal/subscription/domain"
	"go.uber.org/zap"
)

const (
	refreshLockTTL  = 30 * time.Second
	refreshPollWait = 200 * time.Millisecond
	refreshPolls    = 10
)

// RefreshLocker serializes refreshes of one key across replicas.
type RefreshLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, key, token string) error
}

type Source struct {
	upstream sourcedomain.Source
	store    cache.Store
	ttl      time.Duration
	locker   RefreshLocker
	metrics  *obsmetrics.Metrics
	log      *zap.Logger
}

type Option func(*Source)

func WithLocker(locker RefreshLocker) Option {
	return func(s *Source) { s.locker = locker }
}

func WithMetrics(m *obsmetrics.Metrics) Option {
	return func(s *Source) { s.metrics = m }
}

func New(upstream sourcedomain.Source, store cache.Store, ttl time.Duration, log *zap.Logger, opts ...Option) *Source {
	if ttl <= 0 {
		ttl = time.Minute
	}
	s := &Source{
		upstream: upstream,
		store:    store,
		ttl:      ttl,
		log:      log.Named("billingsource.cache"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Source) ListSubscriptions(ctx context.Context, req sourcedomain.ListSubscriptionsRequest) ([]subscriptiondomain.Subscription, error) {
	widened := req
	if req.CanceledSince != nil {
		since := s.bucket(*req.CanceledSince)
		widened.CanceledSince = &since
	}

	statuses := lo.Map(req.Statuses, func(status subscriptiondomain.Status, _ int) string { return string(status) })
	slices.Sort(statuses)
	key := fmt.Sprintf("subscriptions:%s:%s", strings.Join(statuses, ","), unixKey(widened.CanceledSince))

	subs, err := load(ctx, s, obsmetrics.ResourceSubscriptions, key,
		func(ctx context.Context) ([]subscriptiondomain.Subscription, error) {
			return s.upstream.ListSubscriptions(ctx, widened)
		},
		subscriptiondomain.Subscription.Validate,
	)
	if err != nil {
		return nil, err
	}
	return lo.Filter(subs, func(sub subscriptiondomain.Subscription, _ int) bool { return req.Matches(sub) }), nil
}

func (s *Source) ListEvents(ctx context.Context, req sourcedomain.ListEventsRequest) ([]billingevent.Event, error) {
	widened := req
	widened.Since = s.bucket(req.Since)

	types := lo.Map(req.Types, func(t billingevent.EventType, _ int) string { return string(t) })
	slices.Sort(types)
	key := fmt.Sprintf("events:%s:%d", strings.Join(types, ","), widened.Since.Unix())

	events, err := load(ctx, s, obsmetrics.ResourceEvents, key,
		func(ctx context.Context) ([]billingevent.Event, error) {
			return s.upstream.ListEvents(ctx, widened)
		},
		nil,
	)
	if err != nil {
		return nil, err
	}
	return lo.Filter(events, func(event billingevent.Event, _ int) bool { return req.Accepts(event) }), nil
}

func (s *Source) ListFailedPayments(ctx context.Context, since time.Time) ([]billingevent.FailedPayment, error) {
	widened := s.bucket(since)
	key := fmt.Sprintf("failed_payments:%d", widened.Unix())

	payments, err := load(ctx, s, obsmetrics.ResourceFailedPayments, key,
		func(ctx context.Context) ([]billingevent.FailedPayment, error) {
			return s.upstream.ListFailedPayments(ctx, widened)
		},
		nil,
	)
	if err != nil {
		return nil, err
	}
	return lo.Filter(payments, func(p billingevent.FailedPayment, _ int) bool {
		return !p.FailedAt.Before(since)
	}), nil
}

// bucket widens a lower time bound to the start of its TTL window so that
// requests issued within one window share a cache key.
func (s *Source) bucket(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC().Truncate(s.ttl)
}

func load[T any](
	ctx context.Context,
	s *Source,
	resource, key string,
	fetch func(context.Context) ([]T, error),
	validate func(T) error,
) ([]T, error) {
	if cached, ok := lookup(ctx, s, resource, key, validate); ok {
		return cached, nil
	}

	if s.locker != nil {
		lockKey := "refresh:" + key
		token, acquired, err := s.locker.TryLock(ctx, lockKey, refreshLockTTL)
		switch {
		case err != nil:
			s.log.Warn("refresh lock unavailable", zap.String("key", key), zap.Error(err))
		case acquired:
			defer func() {
				if err := s.locker.Release(context.WithoutCancel(ctx), lockKey, token); err != nil {
					s.log.Warn("refresh lock release failed", zap.String("key", key), zap.Error(err))
				}
			}()
		default:
			if cached, ok := waitFor(ctx, s, resource, key, validate); ok {
				return cached, nil
			}
		}
	}

	fresh, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.store.Set(ctx, key, fresh, s.ttl); err != nil {
		s.log.Warn("snapshot cache write failed", zap.String("key", key), zap.Error(err))
	}
	return fresh, nil
}

// lookup treats unreadable or invalid entries as misses.
func lookup[T any](ctx context.Context, s *Source, resource, key string, validate func(T) error) ([]T, bool) {
	var cached []T
	found, err := s.store.Get(ctx, key, &cached)
	if err != nil {
		s.metrics.RecordSnapshotCache(ctx, resource, obsmetrics.CacheResultError)
		s.log.Warn("snapshot cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !found {
		s.metrics.RecordSnapshotCache(ctx, resource, obsmetrics.CacheResultMiss)
		return nil, false
	}
	if validate != nil {
		for _, item := range cached {
			if err := validate(item); err != nil {
				s.metrics.RecordSnapshotCache(ctx, resource, obsmetrics.CacheResultError)
				s.log.Warn("discarding invalid cached snapshot", zap.String("key", key), zap.Error(err))
				return nil, false
			}
		}
	}
	s.metrics.RecordSnapshotCache(ctx, resource, obsmetrics.CacheResultHit)
	return cached, true
}

// waitFor polls the store while another replica refreshes the key.
func waitFor[T any](ctx context.Context, s *Source, resource, key string, validate func(T) error) ([]T, bool) {
	timer := time.NewTimer(refreshPollWait)
	defer timer.Stop()
	for range refreshPolls {
		select {
		case <-ctx.Done():
			return nil, false
		case <-timer.C:
		}
		if cached, ok := lookup(ctx, s, resource, key, validate); ok {
			return cached, true
		}
		timer.Reset(refreshPollWait)
	}
	return nil, false
}

func unixKey(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return fmt.Sprintf("%d", t.Unix())
}
