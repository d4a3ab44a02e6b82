package notifier

import (
	"forexcal/internal/event"
)

// Notifier defines the interface for posting event notifications
type Notifier interface {
	// Notify posts notifications for the given high-impact events
	Notify(events []event.EconomicEvent) error
}

// HighImpact filters a scrape result down to the events worth announcing.
func HighImpact(events []event.EconomicEvent) []event.EconomicEvent {
	var out []event.EconomicEvent
	for _, evt := range events {
		if evt.IsHighImpact {
			out = append(out, evt)
		}
	}
	return out
}
