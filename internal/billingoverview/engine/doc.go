// Package engine turns a snapshot of normalized subscriptions and events into metric results.
//
// Every function is pure: inputs are never mutated, "now" is passed in by the caller and
// fractional amounts are only rounded to minor units when a result is produced.
package engine
