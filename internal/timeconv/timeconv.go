// Package timeconv converts source-local calendar times into the configured
// target timezone, adjusting the event date when the conversion crosses
// midnight.
package timeconv

import (
	"fmt"
	"strings"
	"time"

	// Zone lookups must resolve even in scratch containers without a
	// system tzdata directory.
	_ "time/tzdata"
)

const (
	dateLayout  = "02/01/2006"
	clockLayout = "3:04pm"
)

// Normalizer converts clock strings between two zones. Instances are
// immutable; one is built per run from the config snapshot and the zone
// detected by the page loader.
type Normalizer struct {
	from *time.Location
	to   *time.Location
}

// New creates a Normalizer converting from the source zone into the target zone.
func New(from, to *time.Location) *Normalizer {
	return &Normalizer{from: from, to: to}
}

// LoadZone resolves an IANA zone name.
func LoadZone(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", name, err)
	}
	return loc, nil
}

// Normalize converts a dd/mm/yyyy date and a source-local clock string into
// the target zone, returning the adjusted date and an HH:MM clock. Non-time
// tokens ("All Day", "Tentative", empty) pass through with the date unchanged.
// A malformed clock string is returned unchanged alongside the error so the
// caller can keep the original value.
func (n *Normalizer) Normalize(date, clock string) (string, string, error) {
	if date == "" || clock == "" {
		return date, clock, nil
	}
	switch strings.ToLower(clock) {
	case "all day", "tentative":
		return date, clock, nil
	}

	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return date, clock, fmt.Errorf("parsing date %q: %w", date, err)
	}
	t, err := time.Parse(clockLayout, strings.ToLower(strings.TrimSpace(clock)))
	if err != nil {
		return date, clock, fmt.Errorf("parsing time %q: %w", clock, err)
	}

	local := time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, n.from)
	converted := local.In(n.to)

	return converted.Format(dateLayout), converted.Format("15:04"), nil
}

// WeekdayLabel returns the three-letter weekday for a dd/mm/yyyy date, used to
// re-derive the day label after a date rollover.
func WeekdayLabel(date string) (string, error) {
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return "", fmt.Errorf("parsing date %q: %w", date, err)
	}
	return day.Format("Mon"), nil
}
