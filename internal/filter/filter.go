// Package filter applies the per-run currency and impact allow-lists to
// candidate events.
//
// An empty allow-list means "allow all", with two deliberate exceptions:
// events with no currency at all, and events whose impact could not be
// mapped to a known category, are rejected unless their sentinel value is
// explicitly listed. Rejections are informational, never fatal; each carries
// a reason that the session aggregator counts.
package filter

import (
	"strings"

	"forexcal/internal/event"
)

// Reason classifies why an event was rejected.
type Reason string

const (
	ReasonCurrency Reason = "currency_not_allowed"
	ReasonImpact   Reason = "impact_not_allowed"
)

// Filter holds the allow-lists for one run. Instances are read-only
// snapshots built at run start; concurrent runs never share one.
type Filter struct {
	currencies map[string]struct{}
	impacts    map[event.Impact]struct{}
}

// New builds a Filter. Currency codes are matched case-insensitively.
func New(currencies []string, impacts []event.Impact) *Filter {
	f := &Filter{
		currencies: make(map[string]struct{}, len(currencies)),
		impacts:    make(map[event.Impact]struct{}, len(impacts)),
	}
	for _, c := range currencies {
		f.currencies[strings.ToUpper(strings.TrimSpace(c))] = struct{}{}
	}
	for _, i := range impacts {
		f.impacts[i] = struct{}{}
	}
	return f
}

// Check decides whether an event passes the allow-lists. The returned reason
// is meaningful only when ok is false.
func (f *Filter) Check(evt *event.EconomicEvent) (Reason, bool) {
	if !f.currencyAllowed(evt.Currency) {
		return ReasonCurrency, false
	}
	if !f.impactAllowed(evt.Impact) {
		return ReasonImpact, false
	}
	return "", true
}

func (f *Filter) currencyAllowed(currency string) bool {
	if _, ok := f.currencies[currency]; ok {
		return true
	}
	// Currency-less rows (holidays and the like) stay out of the output
	// unless the empty code was explicitly allowed.
	if currency == "" {
		return false
	}
	return len(f.currencies) == 0
}

func (f *Filter) impactAllowed(impact event.Impact) bool {
	if _, ok := f.impacts[impact]; ok {
		return true
	}
	// Unknown impact means the marker did not map to any category; it must
	// be opted into, an empty allow-list does not cover it.
	if impact == event.ImpactUnknown {
		return false
	}
	return len(f.impacts) == 0
}
