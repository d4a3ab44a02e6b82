// Package notifier posts alerts for high-impact calendar events.
//
// The notifier package supports posting scrape notifications to various
// platforms including Twitter. It handles OAuth authentication, rate
// limiting, and message formatting for different notification channels.
package notifier
