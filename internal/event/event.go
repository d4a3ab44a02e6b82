package event

import (
	"crypto/sha1"
	"fmt"
	"strings"
	"time"
)

// Source is the fixed origin identifier for all records produced by this scraper.
const Source = "forex_factory"

// EconomicEvent is one row of the economic calendar after normalization.
// Free-text fields that were missing in the markup are empty strings, never
// absent. An empty Time is a valid value ("all day" and undated rows).
type EconomicEvent struct {
	ScrapedAt time.Time `json:"scraped_at"`
	Source    string    `json:"source"`
	Month     string    `json:"month"`
	Year      int       `json:"year"`

	Date     string `json:"date"` // dd/mm/yyyy
	Day      string `json:"day"`  // weekday label, e.g. "Mon"
	Time     string `json:"time"` // HH:MM in the target zone, or "All Day"/"Tentative"/""
	Currency string `json:"currency"`
	Impact   Impact `json:"impact"`
	Title    string `json:"event"`
	Actual   string `json:"actual"`
	Forecast string `json:"forecast"`
	Previous string `json:"previous"`

	DetailURL string `json:"detail_url"`

	EventKey     string `json:"event_key"`
	IsHighImpact bool   `json:"is_high_impact"`
	HasData      bool   `json:"has_data"`
}

// GenerateKey creates a deterministic identifier for an event based on its
// stable fields. Re-scraping the same logical event yields the same key, so
// sinks can upsert instead of insert.
func GenerateKey(date, timeStr, currency, title string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(title)), " ")
	h := sha1.New()
	h.Write([]byte(date + "|" + timeStr + "|" + strings.ToUpper(currency) + "|" + normalized))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Finalize computes the derived fields (EventKey, IsHighImpact, HasData).
// Called once when an event is accepted; the record is immutable afterwards.
func (e *EconomicEvent) Finalize() {
	e.EventKey = GenerateKey(e.Date, e.Time, e.Currency, e.Title)
	e.IsHighImpact = e.Impact == ImpactHigh
	e.HasData = e.Actual != "" || e.Forecast != "" || e.Previous != ""
}

// ScrapeSession summarizes one scrape run. Partial is set when the run was
// cancelled mid-scan and the event list does not cover the whole scope.
type ScrapeSession struct {
	Month       string    `json:"month"`
	Year        int       `json:"year"`
	TotalEvents int       `json:"total_events"`
	ScrapedAt   time.Time `json:"scraped_at"`
	Source      string    `json:"source"`
	Partial     bool      `json:"partial,omitempty"`
}
