package cli

import (
	"context"
	"fmt"

	"forexcal/internal/config"
	"forexcal/internal/event"
	"forexcal/internal/filter"
	"forexcal/internal/loader"
	"forexcal/internal/logger"
	"forexcal/internal/pipeline"
	"forexcal/internal/server"
	"forexcal/internal/sink"
)

// sinkSet bundles the constructed sinks with their cleanup and the database
// handle the HTTP surface pings.
type sinkSet struct {
	sinks   []sink.Sink
	pinger  server.Pinger
	closers []func() error
}

func (s *sinkSet) Close() {
	for _, fn := range s.closers {
		_ = fn()
	}
}

// buildSinks constructs every sink the config names, in config order.
func buildSinks(cfg *config.Config, log *logger.Logger) (*sinkSet, error) {
	set := &sinkSet{}
	for _, name := range cfg.Sinks {
		switch name {
		case config.SinkCSV:
			set.sinks = append(set.sinks, sink.NewCSVSink(cfg.CSVDir, log))
		case config.SinkPostgres:
			pg, err := sink.NewPostgresSink(cfg.DatabaseURL, log)
			if err != nil {
				set.Close()
				return nil, fmt.Errorf("postgres sink: %w", err)
			}
			set.sinks = append(set.sinks, pg)
			set.closers = append(set.closers, pg.Close)
			if set.pinger == nil {
				set.pinger = pg
			}
		case config.SinkSQLite:
			sq, err := sink.NewSQLiteSink(cfg.SQLitePath, log)
			if err != nil {
				set.Close()
				return nil, fmt.Errorf("sqlite sink: %w", err)
			}
			set.sinks = append(set.sinks, sq)
			set.closers = append(set.closers, sq.Close)
			if set.pinger == nil {
				set.pinger = sq
			}
		default:
			set.Close()
			return nil, fmt.Errorf("unknown sink %q", name)
		}
	}
	return set, nil
}

// pipelineConfig snapshots the loaded config into the pipeline's settings.
func pipelineConfig(cfg *config.Config) (pipeline.Config, error) {
	fields, err := cfg.FieldMap()
	if err != nil {
		return pipeline.Config{}, err
	}
	return pipeline.Config{
		Fields:     fields,
		Filter:     filter.New(cfg.AllowedCurrencies, cfg.Impacts()),
		SourceZone: cfg.SourceTimezone,
		TargetZone: cfg.TargetTimezone,
	}, nil
}

// runScrape executes one full scrape for scope against the given sinks.
func runScrape(ctx context.Context, cfg *config.Config, scope event.Scope, sinks []sink.Sink, log *logger.Logger) (*pipeline.Result, error) {
	pcfg, err := pipelineConfig(cfg)
	if err != nil {
		return nil, err
	}
	src := loader.NewChromeLoader(cfg.BaseURL, cfg.PageTimeout(), cfg.MaxRetries, log)
	return pipeline.Run(ctx, scope, pcfg, src, sinks, log)
}
