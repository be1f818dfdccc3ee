package main

import (
	"github.com/smallbiznis/revenuemetrics/internal/billingoverview"
	"github.com/smallbiznis/revenuemetrics/internal/billingsource"
	"github.com/smallbiznis/revenuemetrics/internal/cache"
	"github.com/smallbiznis/revenuemetrics/internal/clock"
	"github.com/smallbiznis/revenuemetrics/internal/config"
	"github.com/smallbiznis/revenuemetrics/internal/observability"
	"github.com/smallbiznis/revenuemetrics/internal/ratelimit"
	"github.com/smallbiznis/revenuemetrics/internal/revenueexport"
	"github.com/smallbiznis/revenuemetrics/internal/scheduler"
	"github.com/smallbiznis/revenuemetrics/internal/server"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		clock.Module,
		cache.Module,
		ratelimit.Module,

		// Billing data and metrics
		billingsource.Module,
		billingoverview.Module,
		revenueexport.Module,

		server.Module,
		scheduler.Module,
	)
	app.Run()
}
