package engine

import overviewdomain "github.com/smallbiznis/revenuemetrics/internal/billingoverview/domain"

// ComputeQuickRatio returns (new + expansion) / (contraction + churned).
func ComputeQuickRatio(m overviewdomain.MovementResult) overviewdomain.QuickRatio {
	growth := m.NewRevenue + m.ExpansionRevenue
	losses := m.ContractionRevenue + m.ChurnedRevenue

	if losses == 0 {
		if growth > 0 {
			return overviewdomain.QuickRatio{NoChurn: true}
		}
		return overviewdomain.QuickRatio{}
	}
	return overviewdomain.QuickRatio{Ratio: float64(growth) / float64(losses)}
}
