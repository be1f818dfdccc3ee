package domain

import (
	"fmt"
	"sort"
	"strings"
)

// MixedCurrencyError is returned when an amount aggregation spans more than one currency.
type MixedCurrencyError struct {
	Currencies []string
}

// NewMixedCurrencyError lower-cases, de-duplicates and sorts the offending codes.
func NewMixedCurrencyError(codes []string) *MixedCurrencyError {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		code = strings.ToLower(strings.TrimSpace(code))
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	sort.Strings(out)
	return &MixedCurrencyError{Currencies: out}
}

func (e *MixedCurrencyError) Error() string {
	return fmt.Sprintf("mixed currencies in subscription set: %s", strings.Join(e.Currencies, ", "))
}
