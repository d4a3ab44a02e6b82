// Package cli implements the forexcal command line interface.
//
// Two subcommands cover the two ways the scraper runs: "scrape" performs a
// single run and exits, "serve" keeps a trigger API and an optional cron
// schedule alive.
package cli
