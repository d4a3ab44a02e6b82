// Package event provides the canonical types for scraped economic calendar data.
//
// The event package defines the EconomicEvent record produced by one scrape run,
// the ScrapeSession summary that accompanies it, and the scope (month, year) that
// identifies a unit of scraping work. Each event carries a deterministic SHA1-based
// key generated from its stable fields, enabling upsert-based deduplication across
// repeated scrapes of the same scope.
package event
