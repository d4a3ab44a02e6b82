// Package sink persists finished scrape runs to the configured destinations.
//
// Every sink implements the same Persist contract and is invoked
// independently by the dispatcher: a failure in one sink never prevents
// another from succeeding, and the dispatcher reports a per-sink outcome
// rather than a single combined result. The database sinks upsert by
// event_key so repeated runs of the same scope stay idempotent.
package sink
