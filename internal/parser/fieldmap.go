package parser

import (
	"fmt"
	"strings"

	"forexcal/internal/event"
)

// Field is the closed set of semantic fields a calendar cell can map to.
type Field string

const (
	FieldDate     Field = "date"
	FieldTime     Field = "time"
	FieldCurrency Field = "currency"
	FieldImpact   Field = "impact"
	FieldEvent    Field = "event"
	FieldActual   Field = "actual"
	FieldForecast Field = "forecast"
	FieldPrevious Field = "previous"
	FieldDetail   Field = "detail"

	// FieldUnknown is returned for class tokens the map does not recognize.
	// Unknown cells are ignored, not fatal, so markup additions on the
	// source site do not break existing scrapes.
	FieldUnknown Field = "unknown"
)

// ParseField converts a config-supplied field name into a Field.
func ParseField(s string) (Field, error) {
	switch Field(strings.ToLower(strings.TrimSpace(s))) {
	case FieldDate:
		return FieldDate, nil
	case FieldTime:
		return FieldTime, nil
	case FieldCurrency:
		return FieldCurrency, nil
	case FieldImpact:
		return FieldImpact, nil
	case FieldEvent:
		return FieldEvent, nil
	case FieldActual:
		return FieldActual, nil
	case FieldForecast:
		return FieldForecast, nil
	case FieldPrevious:
		return FieldPrevious, nil
	case FieldDetail:
		return FieldDetail, nil
	}
	return "", fmt.Errorf("unknown field name: %q", s)
}

// FieldMap resolves markup class tokens to semantic fields and impact marker
// classes to impact categories. It is pure configuration data, loaded once per
// run from a read-only config snapshot.
type FieldMap struct {
	fields  map[string]Field
	impacts map[string]event.Impact
}

// DefaultFieldMap returns the mapping for the source site's current markup.
func DefaultFieldMap() *FieldMap {
	return &FieldMap{
		fields: map[string]Field{
			"calendar__date":     FieldDate,
			"calendar__time":     FieldTime,
			"calendar__currency": FieldCurrency,
			"calendar__impact":   FieldImpact,
			"calendar__event":    FieldEvent,
			"calendar__actual":   FieldActual,
			"calendar__forecast": FieldForecast,
			"calendar__previous": FieldPrevious,
			"calendar__detail":   FieldDetail,
		},
		impacts: map[string]event.Impact{
			"icon--ff-impact-yel": event.ImpactLow,
			"icon--ff-impact-ora": event.ImpactMedium,
			"icon--ff-impact-red": event.ImpactHigh,
			"icon--ff-impact-gra": event.ImpactNonEconomic,
		},
	}
}

// Merge overlays extra class-to-field associations on top of the defaults.
// Values must be recognized field names.
func (m *FieldMap) Merge(extra map[string]string) error {
	for class, name := range extra {
		field, err := ParseField(name)
		if err != nil {
			return fmt.Errorf("element_map entry %q: %w", class, err)
		}
		m.fields[class] = field
	}
	return nil
}

// Field returns the semantic field for a single class token, or FieldUnknown.
func (m *FieldMap) Field(token string) Field {
	if f, ok := m.fields[token]; ok {
		return f
	}
	return FieldUnknown
}

// FieldOf resolves a full class attribute by checking each token.
// The first recognized token wins.
func (m *FieldMap) FieldOf(classAttr string) Field {
	for _, token := range strings.Fields(classAttr) {
		if f, ok := m.fields[token]; ok {
			return f
		}
	}
	return FieldUnknown
}

// Impact returns the category for an impact marker class attribute.
// Markers that match no known class, and absent markers, map to ImpactUnknown.
func (m *FieldMap) Impact(classAttr string) event.Impact {
	for _, token := range strings.Fields(classAttr) {
		if imp, ok := m.impacts[token]; ok {
			return imp
		}
	}
	return event.ImpactUnknown
}
