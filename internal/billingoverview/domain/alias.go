package domain

import billingevent "github.com/smallbiznis/revenuemetrics/internal/billingevent/domain"

// FailedPayment is supplied by the billing source and merged into the dashboard untouched.
type FailedPayment = billingevent.FailedPayment
