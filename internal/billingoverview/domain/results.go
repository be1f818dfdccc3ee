package domain

import "time"

// StatusBreakdown counts subscriptions per status bucket, contributing or not.
type StatusBreakdown struct {
	Active   int `json:"active"`
	Trialing int `json:"trialing"`
	PastDue  int `json:"past_due"`
}

type MRRResult struct {
	Total             int64           `json:"total"`
	Currency          string          `json:"currency"`
	Statuses          StatusBreakdown `json:"statuses"`
	ContributingCount int             `json:"contributing_count"`
}

type PeriodBounds struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Days  int       `json:"days"`
}

type ChurnResult struct {
	CustomerChurnRate float64      `json:"customer_churn_rate"`
	RevenueChurnRate  float64      `json:"revenue_churn_rate"`
	ChurnedCount      int          `json:"churned_count"`
	ChurnedRevenue    int64        `json:"churned_revenue"`
	StartingCount     int          `json:"starting_count"`
	StartingRevenue   int64        `json:"starting_revenue"`
	Currency          string       `json:"currency"`
	Period            PeriodBounds `json:"period"`
}

type PlanRevenue struct {
	PlanName    string  `json:"plan_name"`
	Subscribers int     `json:"subscribers"`
	Revenue     int64   `json:"revenue"`
	Percentage  float64 `json:"percentage"`
}

type RevenueByPlanResult struct {
	Plans        []PlanRevenue `json:"plans"`
	TotalRevenue int64         `json:"total_revenue"`
	Currency     string        `json:"currency"`
}

type MovementResult struct {
	NewRevenue         int64        `json:"new_revenue"`
	ExpansionRevenue   int64        `json:"expansion_revenue"`
	ContractionRevenue int64        `json:"contraction_revenue"`
	ChurnedRevenue     int64        `json:"churned_revenue"`
	NetNewRevenue      int64        `json:"net_new_revenue"`
	Currency           string       `json:"currency"`
	Period             PeriodBounds `json:"period"`
}

// QuickRatio is growth over losses. NoChurn marks a positive numerator over a zero denominator.
type QuickRatio struct {
	Ratio   float64 `json:"ratio"`
	NoChurn bool    `json:"no_churn"`
}

type ExpiringTrial struct {
	SubscriptionID string    `json:"subscription_id"`
	CustomerID     string    `json:"customer_id"`
	CustomerEmail  string    `json:"customer_email,omitempty"`
	PlanName       string    `json:"plan_name"`
	TrialEnd       time.Time `json:"trial_end"`
	DaysRemaining  int       `json:"days_remaining"`
	MonthlyValue   int64     `json:"monthly_value"`
	Currency       string    `json:"currency"`
}

type Dashboard struct {
	MRR            MRRResult       `json:"mrr"`
	Movement       MovementResult  `json:"movement"`
	QuickRatio     QuickRatio      `json:"quick_ratio"`
	FailedPayments []FailedPayment `json:"failed_payments"`
	ExpiringTrials []ExpiringTrial `json:"expiring_trials"`
}

type SubscriberStats struct {
	TotalActive       int          `json:"total_active"`
	Trialing          int          `json:"trialing"`
	PastDue           int          `json:"past_due"`
	NewThisPeriod     int          `json:"new_this_period"`
	ChurnedThisPeriod int          `json:"churned_this_period"`
	NetChange         int          `json:"net_change"`
	Period            PeriodBounds `json:"period"`
}
