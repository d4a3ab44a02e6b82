// Package parser converts raw calendar table rows into candidate economic events.
//
// The source markup identifies cells by class name rather than position, so the
// parser resolves each cell through a declarative field map and tolerates cells
// it does not recognize. Day and date labels appear only on the first row of a
// calendar day; the parser carries them forward across subsequent rows, which is
// the load-bearing behavior for multi-day tables rendered as a flat row list.
package parser
