package event

import (
	"fmt"
	"strings"
	"time"
)

// Scope identifies one unit of scraping work: a calendar month in a year.
// Param is the token used in the source site's URL ("this", "next", or a
// lowercase month name).
type Scope struct {
	Month string `json:"month"` // full month name, e.g. "September"
	Year  int    `json:"year"`
	Param string `json:"-"`
}

var monthNames = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

// ValidScopeParam reports whether param is an accepted month token.
func ValidScopeParam(param string) bool {
	p := strings.ToLower(strings.TrimSpace(param))
	if p == "this" || p == "next" {
		return true
	}
	_, ok := monthNames[p]
	return ok
}

// ResolveScope turns a month token into a concrete scope relative to now.
// "this" and "next" resolve to the current and following calendar month;
// a plain month name resolves to that month in the current year.
func ResolveScope(param string, now time.Time) (Scope, error) {
	p := strings.ToLower(strings.TrimSpace(param))
	switch p {
	case "", "this":
		return Scope{Month: now.Month().String(), Year: now.Year(), Param: "this"}, nil
	case "next":
		year := now.Year()
		next := now.Month() + 1
		if next > time.December {
			next = time.January
			year++
		}
		return Scope{Month: next.String(), Year: year, Param: "next"}, nil
	}
	m, ok := monthNames[p]
	if !ok {
		return Scope{}, fmt.Errorf("invalid month: %q", param)
	}
	return Scope{Month: m.String(), Year: now.Year(), Param: p}, nil
}

// Key returns the scope's identity used for single-flight run tracking and
// session upserts.
func (s Scope) Key() string {
	return fmt.Sprintf("%s_%d", s.Month, s.Year)
}

func (s Scope) String() string {
	return fmt.Sprintf("%s %d", s.Month, s.Year)
}
