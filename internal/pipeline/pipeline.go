// Package pipeline runs one scrape end to end: load rows, parse, normalize
// times, filter, summarize, and fan out to the configured sinks.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"forexcal/internal/event"
	"forexcal/internal/filter"
	"forexcal/internal/loader"
	"forexcal/internal/logger"
	"forexcal/internal/metrics"
	"forexcal/internal/parser"
	"forexcal/internal/session"
	"forexcal/internal/sink"
	"forexcal/internal/timeconv"
)

// Config carries the per-run settings the pipeline needs. It is a snapshot;
// a config reload during a run never changes that run's behavior.
type Config struct {
	Fields *parser.FieldMap
	Filter *filter.Filter

	// SourceZone is the zone calendar times are rendered in, used when the
	// page does not report the browser zone itself.
	SourceZone string
	TargetZone string
}

// Result is the outcome of one run: the accepted events in source order, the
// session summary, per-row accounting, and one outcome per configured sink.
type Result struct {
	Session  event.ScrapeSession   `json:"session"`
	Events   []event.EconomicEvent `json:"events"`
	Counters session.Counters      `json:"counters"`
	Outcomes []sink.Outcome        `json:"outcomes,omitempty"`
}

// Failed reports whether any sink rejected the batch.
func (r *Result) Failed() bool {
	for _, o := range r.Outcomes {
		if !o.OK {
			return true
		}
	}
	return false
}

// Run scrapes one scope and persists the result. Row-level problems (parse
// failures, filtered rows, malformed clock strings) are counted and skipped;
// only structural failures (page load, missing table, bad zone names) abort
// the run. A context cancellation mid-scan finalizes what was collected so
// far and marks the session partial.
func Run(ctx context.Context, scope event.Scope, cfg Config, src loader.RowSource, sinks []sink.Sink, log *logger.Logger) (*Result, error) {
	metrics.RunsStarted.Inc()
	start := time.Now()

	res, err := run(ctx, scope, cfg, src, sinks, log)
	metrics.RunDuration.Observe(time.Since(start).Seconds())
	switch {
	case err != nil:
		metrics.RunsCompleted.WithLabelValues("failed").Inc()
	case res.Failed():
		metrics.RunsCompleted.WithLabelValues("sink_failed").Inc()
	default:
		metrics.RunsCompleted.WithLabelValues("ok").Inc()
	}
	return res, err
}

func run(ctx context.Context, scope event.Scope, cfg Config, src loader.RowSource, sinks []sink.Sink, log *logger.Logger) (*Result, error) {
	page, err := src.Rows(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("loading rows: %w", err)
	}

	norm, err := newNormalizer(page.SourceZone, cfg, log)
	if err != nil {
		return nil, err
	}

	scrapedAt := time.Now().UTC()
	p := parser.New(cfg.Fields, scope, scrapedAt)
	agg := session.NewAggregator(scope, scrapedAt)
	seen := make(map[string]struct{})

	for _, row := range page.Rows {
		if ctx.Err() != nil {
			agg.MarkPartial()
			log.Warn("scrape cancelled mid-scan", logger.Fields{"scope": scope.Key()})
			break
		}

		agg.RowSeen()
		metrics.RowsParsed.Inc()

		evt, err := p.ParseRow(row)
		if err != nil {
			agg.RecordParseFailure()
			log.Warn("skipping unparseable row", logger.Fields{"error": err.Error()})
			continue
		}
		if evt == nil {
			continue
		}

		normalizeTimes(evt, norm, log)

		if reason, ok := cfg.Filter.Check(evt); !ok {
			agg.RecordRejection(reason)
			metrics.RowsRejected.WithLabelValues(string(reason)).Inc()
			continue
		}

		evt.Finalize()
		if _, dup := seen[evt.EventKey]; dup {
			log.Debug("dropping duplicate event", logger.Fields{"event_key": evt.EventKey, "title": evt.Title})
			continue
		}
		seen[evt.EventKey] = struct{}{}

		agg.Add(*evt)
		metrics.EventsAccepted.Inc()
	}

	summary, events := agg.Finalize()
	counters := agg.Counters()

	log.Info("scrape finished", logger.Fields{
		"scope":          scope.Key(),
		"rows_seen":      counters.RowsSeen,
		"accepted":       counters.Accepted,
		"parse_failures": counters.ParseFailures,
		"partial":        summary.Partial,
	})

	outcomes := sink.Dispatch(ctx, sinks, events, summary, log)

	return &Result{
		Session:  summary,
		Events:   events,
		Counters: counters,
		Outcomes: outcomes,
	}, nil
}

// newNormalizer builds the time converter, preferring the zone the browser
// session reported over the configured fallback.
func newNormalizer(detected string, cfg Config, log *logger.Logger) (*timeconv.Normalizer, error) {
	to, err := timeconv.LoadZone(cfg.TargetZone)
	if err != nil {
		return nil, fmt.Errorf("loading target zone: %w", err)
	}

	sourceName := cfg.SourceZone
	if detected != "" {
		if from, err := timeconv.LoadZone(detected); err == nil {
			return timeconv.New(from, to), nil
		}
		log.Warn("detected zone not loadable, using configured source zone", logger.Fields{
			"detected":   detected,
			"configured": sourceName,
		})
	}

	from, err := timeconv.LoadZone(sourceName)
	if err != nil {
		return nil, fmt.Errorf("loading source zone: %w", err)
	}
	return timeconv.New(from, to), nil
}

// normalizeTimes converts the event's clock into the target zone and, when
// the conversion crosses midnight, moves the date and re-derives the day
// label. Malformed values keep their originals.
func normalizeTimes(evt *event.EconomicEvent, norm *timeconv.Normalizer, log *logger.Logger) {
	date, clock, err := norm.Normalize(evt.Date, evt.Time)
	if err != nil {
		log.Warn("keeping unnormalized time", logger.Fields{
			"date":  evt.Date,
			"time":  evt.Time,
			"error": err.Error(),
		})
		return
	}

	if date != evt.Date {
		if day, err := timeconv.WeekdayLabel(date); err == nil {
			evt.Day = day
		}
	}
	evt.Date = date
	evt.Time = clock
}
