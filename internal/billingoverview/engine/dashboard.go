package engine

import overviewdomain "github.com/smallbiznis/revenuemetrics/internal/billingoverview/domain"

// ComposeDashboard merges already computed results; the quick ratio is derived from movement.
func ComposeDashboard(
	mrr overviewdomain.MRRResult,
	movement overviewdomain.MovementResult,
	failed []overviewdomain.FailedPayment,
	trials []overviewdomain.ExpiringTrial,
) overviewdomain.Dashboard {
	if failed == nil {
		failed = []overviewdomain.FailedPayment{}
	}
	if trials == nil {
		trials = []overviewdomain.ExpiringTrial{}
	}
	return overviewdomain.Dashboard{
		MRR:            mrr,
		Movement:       movement,
		QuickRatio:     ComputeQuickRatio(movement),
		FailedPayments: failed,
		ExpiringTrials: trials,
	}
}
