// Package scheduler recomputes metrics in the background so the snapshot cache stays warm.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	overviewdomain "github.com/smallbiznis/revenuemetrics/internal/billingoverview/domain"
	"github.com/smallbiznis/revenuemetrics/internal/clock"
	"github.com/smallbiznis/revenuemetrics/internal/config"
	"github.com/smallbiznis/revenuemetrics/internal/revenueexport"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobDashboard = "dashboard"
	JobPlans     = "plans"
	JobChanges   = "changes"
	JobChurn     = "churn"

	defaultJobTimeout = 2 * time.Minute
)

var ErrInvalidConfig = errors.New("scheduler_invalid_config")

type Params struct {
	fx.In

	Log         *zap.Logger
	Clock       clock.Clock
	OverviewSvc overviewdomain.Service
	Cfg         config.Config
	Exporter    *revenueexport.Exporter `optional:"true"`
}

type Scheduler struct {
	log         *zap.Logger
	clock       clock.Clock
	overviewSvc overviewdomain.Service
	exporter    *revenueexport.Exporter
	interval    time.Duration
	enabledJobs []string
	jobTimeout  time.Duration
}

type job struct {
	name string
	run  func(ctx context.Context) error
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.OverviewSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:         p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		clock:       p.Clock,
		overviewSvc: p.OverviewSvc,
		exporter:    p.Exporter,
		interval:    p.Cfg.Warmer.Interval,
		enabledJobs: p.Cfg.Warmer.Jobs,
		jobTimeout:  defaultJobTimeout,
	}, nil
}

func (s *Scheduler) Enabled() bool {
	return s != nil && s.interval > 0
}

func (s *Scheduler) jobs() []job {
	return []job{
		{JobDashboard, func(ctx context.Context) error {
			d, err := s.overviewSvc.GetDashboard(ctx, overviewdomain.OverviewRequest{})
			if err != nil {
				return err
			}
			return s.exporter.Publish(ctx, d)
		}},
		{JobPlans, func(ctx context.Context) error {
			_, err := s.overviewSvc.GetRevenueByPlan(ctx)
			return err
		}},
		{JobChanges, func(ctx context.Context) error {
			_, err := s.overviewSvc.GetRecentChanges(ctx, overviewdomain.OverviewRequest{})
			return err
		}},
		{JobChurn, func(ctx context.Context) error {
			_, err := s.overviewSvc.GetChurn(ctx, overviewdomain.OverviewRequest{})
			return err
		}},
	}
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, s.jobTimeout)
	defer cancel()

	ctx, run := s.startJobRun(ctx, name)
	s.logJobStart(ctx, run)

	err := fn(ctx)
	if err != nil {
		run.IncError()
	}
	s.logJobFinish(ctx, run)
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.logger(ctx).Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", s.jobTimeout),
			zap.Error(err),
		)
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce runs every enabled job in order and joins their errors.
func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error
	for _, j := range s.jobs() {
		if !s.isJobEnabled(j.name) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, j.name, j.run))
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// isJobEnabled treats an empty job list as "dashboard only".
func (s *Scheduler) isJobEnabled(name string) bool {
	if len(s.enabledJobs) == 0 {
		return name == JobDashboard
	}
	for _, enabled := range s.enabledJobs {
		if strings.EqualFold(strings.TrimSpace(enabled), name) {
			return true
		}
	}
	return false
}
