package sink

import (
	"context"
	"time"

	"forexcal/internal/event"
)

// Sink is a persistence destination for one finished scrape run.
type Sink interface {
	Name() string
	Persist(ctx context.Context, events []event.EconomicEvent, session event.ScrapeSession) error
}

// Outcome is the per-sink result of one dispatch.
type Outcome struct {
	Sink     string        `json:"sink"`
	OK       bool          `json:"ok"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}
