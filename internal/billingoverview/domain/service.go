package domain

import (
	"context"
	"errors"
)

// OverviewRequest selects the trailing window a metric is computed over.
// Zero values fall back to the configured defaults.
type OverviewRequest struct {
	PeriodDays int
}

// Service exposes snapshot-based subscription metrics.
type Service interface {
	GetMRR(ctx context.Context) (MRRResult, error)
	GetChurn(ctx context.Context, req OverviewRequest) (ChurnResult, error)
	GetRevenueByPlan(ctx context.Context) (RevenueByPlanResult, error)
	GetMRRMovement(ctx context.Context, req OverviewRequest) (MovementResult, error)
	GetSubscriberStats(ctx context.Context, req OverviewRequest) (SubscriberStats, error)
	GetRecentChanges(ctx context.Context, req OverviewRequest) (RecentChanges, error)
	GetExpiringTrials(ctx context.Context) ([]ExpiringTrial, error)
	GetDashboard(ctx context.Context, req OverviewRequest) (Dashboard, error)
}

const MaxPeriodDays = 365

var (
	ErrInvalidPeriod = errors.New("invalid_period")
)
