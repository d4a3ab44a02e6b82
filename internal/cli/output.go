package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"forexcal/internal/pipeline"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// WriteOutput writes the scrape result in the specified format
func WriteOutput(w io.Writer, res *pipeline.Result, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, res)
	case FormatText:
		return writeText(w, res)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func writeJSON(w io.Writer, res *pipeline.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(res)
}

func writeText(w io.Writer, res *pipeline.Result) error {
	s := res.Session
	fmt.Fprintf(w, "Scraped %s %d: %d events", s.Month, s.Year, s.TotalEvents)
	if s.Partial {
		fmt.Fprint(w, " (partial)")
	}
	fmt.Fprintln(w)

	c := res.Counters
	fmt.Fprintf(w, "Rows: %d seen, %d accepted, %d rejected by currency, %d by impact, %d parse failures\n",
		c.RowsSeen, c.Accepted, c.RejectedCurrency, c.RejectedImpact, c.ParseFailures)

	for _, evt := range res.Events {
		line := fmt.Sprintf("  %s %s  %-3s  [%s]  %s", evt.Date, evt.Time, evt.Currency, evt.Impact, evt.Title)
		if evt.Actual != "" {
			line += fmt.Sprintf("  actual=%s", evt.Actual)
		}
		fmt.Fprintln(w, line)
	}

	if len(res.Outcomes) > 0 {
		fmt.Fprintln(w, "Sinks:")
		for _, o := range res.Outcomes {
			if o.OK {
				fmt.Fprintf(w, "  %s: ok (%s)\n", o.Sink, o.Duration.Round(time.Millisecond))
			} else {
				fmt.Fprintf(w, "  %s: FAILED: %s\n", o.Sink, o.Error)
			}
		}
	}
	return nil
}
