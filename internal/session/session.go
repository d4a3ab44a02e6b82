// Package session accumulates the accepted events of one scrape run and
// produces the run's immutable summary.
//
// Each run owns exactly one Aggregator; concurrent runs for different scopes
// never share instances, so no locking is needed. Events are appended in
// source document order and that order is preserved in the final sequence.
package session

import (
	"time"

	"forexcal/internal/event"
	"forexcal/internal/filter"
)

// Counters tracks per-run row accounting.
type Counters struct {
	RowsSeen         int `json:"rows_seen"`
	Accepted         int `json:"accepted"`
	RejectedCurrency int `json:"rejected_currency"`
	RejectedImpact   int `json:"rejected_impact"`
	ParseFailures    int `json:"parse_failures"`
}

// Aggregator collects parsed and filtered records for one scrape run.
type Aggregator struct {
	scope     event.Scope
	scrapedAt time.Time
	events    []event.EconomicEvent
	counters  Counters
	partial   bool
	finalized bool
}

// NewAggregator creates the aggregator for one run.
func NewAggregator(scope event.Scope, scrapedAt time.Time) *Aggregator {
	return &Aggregator{scope: scope, scrapedAt: scrapedAt}
}

// RowSeen counts one raw row handed to the parser.
func (a *Aggregator) RowSeen() {
	a.counters.RowsSeen++
}

// RecordParseFailure counts an isolated row-level parse error.
func (a *Aggregator) RecordParseFailure() {
	a.counters.ParseFailures++
}

// RecordRejection counts a filtered-out event by reason.
func (a *Aggregator) RecordRejection(reason filter.Reason) {
	switch reason {
	case filter.ReasonCurrency:
		a.counters.RejectedCurrency++
	case filter.ReasonImpact:
		a.counters.RejectedImpact++
	}
}

// Add appends an accepted event. Events are stored by value; the caller's
// copy cannot mutate the aggregated sequence afterwards.
func (a *Aggregator) Add(evt event.EconomicEvent) {
	if a.finalized {
		return
	}
	a.counters.Accepted++
	a.events = append(a.events, evt)
}

// MarkPartial flags the run as cancelled mid-scan. Partial results are never
// presented as a complete scope.
func (a *Aggregator) MarkPartial() {
	a.partial = true
}

// Counters returns a copy of the current counters.
func (a *Aggregator) Counters() Counters {
	return a.counters
}

// Finalize freezes the aggregator and returns the session summary along with
// the accepted events in source order. Further Adds are ignored.
func (a *Aggregator) Finalize() (event.ScrapeSession, []event.EconomicEvent) {
	a.finalized = true
	return event.ScrapeSession{
		Month:       a.scope.Month,
		Year:        a.scope.Year,
		TotalEvents: len(a.events),
		ScrapedAt:   a.scrapedAt,
		Source:      event.Source,
		Partial:     a.partial,
	}, a.events
}
