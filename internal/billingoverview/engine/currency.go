package engine

import (
	"strings"

	"github.com/samber/lo"
	overviewdomain "github.com/smallbiznis/revenuemetrics/internal/billingoverview/domain"
	subscriptiondomain "github.com/smallbiznis/revenuemetrics/internal/subscription/domain"
)

// FallbackCurrency is reported when no subscription carries a currency.
const FallbackCurrency = "usd"

func normalizeCurrency(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// resolveCurrency enforces the single-currency invariant across every given set.
// A blank code is a code of its own, so it never merges into a named currency.
func resolveCurrency(sets ...[]subscriptiondomain.Subscription) (string, error) {
	codes := make([]string, 0)
	for _, set := range sets {
		for _, sub := range set {
			codes = append(codes, normalizeCurrency(sub.Currency))
		}
	}
	codes = lo.Uniq(codes)

	switch len(codes) {
	case 0:
		return FallbackCurrency, nil
	case 1:
		if codes[0] == "" {
			return FallbackCurrency, nil
		}
		return codes[0], nil
	default:
		return "", overviewdomain.NewMixedCurrencyError(codes)
	}
}
