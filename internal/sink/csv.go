package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"forexcal/internal/event"
	"forexcal/internal/logger"
)

// csvColumns is the stable column order for the file sink. Changing it
// breaks downstream consumers of the per-scope files.
var csvColumns = []string{
	"scraped_at", "source", "month", "year",
	"date", "day", "time", "currency", "impact", "event",
	"actual", "forecast", "previous", "detail_url",
	"event_key", "is_high_impact", "has_data",
}

// CSVSink writes one file per scope, overwriting any previous file for the
// same scope.
type CSVSink struct {
	dir    string
	logger *logger.Logger
}

// NewCSVSink creates a CSV sink writing into dir.
func NewCSVSink(dir string, log *logger.Logger) *CSVSink {
	return &CSVSink{dir: dir, logger: log}
}

func (s *CSVSink) Name() string { return "csv" }

// FilePath returns the output path for a scope: <dir>/<Month>_<Year>_news.csv.
func (s *CSVSink) FilePath(session event.ScrapeSession) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%d_news.csv", session.Month, session.Year))
}

// Persist writes the full field set of every event in stable column order.
func (s *CSVSink) Persist(ctx context.Context, events []event.EconomicEvent, session event.ScrapeSession) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	path := s.FilePath(session)
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(csvColumns); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	for _, evt := range events {
		row := []string{
			evt.ScrapedAt.Format(time.RFC3339),
			evt.Source,
			evt.Month,
			strconv.Itoa(evt.Year),
			evt.Date,
			evt.Day,
			evt.Time,
			evt.Currency,
			string(evt.Impact),
			evt.Title,
			evt.Actual,
			evt.Forecast,
			evt.Previous,
			evt.DetailURL,
			evt.EventKey,
			strconv.FormatBool(evt.IsHighImpact),
			strconv.FormatBool(evt.HasData),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing CSV row for %q: %w", evt.Title, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flushing CSV: %w", err)
	}

	s.logger.Info("events written to CSV", logger.Fields{
		"path": path,
		"rows": len(events),
	})
	return nil
}
