package sink

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"forexcal/internal/event"
	"forexcal/internal/logger"
)

// SQLiteSink stores events and session summaries in an embedded SQLite
// database. It follows the same upsert-by-key contract as the Postgres sink
// and needs no external service, which also makes it the hermetic target for
// idempotence tests.
type SQLiteSink struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewSQLiteSink opens (or creates) the database at path and ensures the
// schema exists. Use ":memory:" for an ephemeral store.
func NewSQLiteSink(path string, log *logger.Logger) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// The pure-Go driver serializes writes; a single connection avoids
	// SQLITE_BUSY on concurrent persist and probe calls.
	db.SetMaxOpenConns(1)

	s := &SQLiteSink{db: db, logger: log}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteSink) Name() string { return "sqlite" }

// Ping verifies the database is reachable.
func (s *SQLiteSink) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

func (s *SQLiteSink) ensureSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS economic_events (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		event_key      TEXT UNIQUE NOT NULL,
		scraped_at     TEXT NOT NULL,
		source         TEXT NOT NULL,
		month          TEXT NOT NULL,
		year           INTEGER NOT NULL,
		date           TEXT NOT NULL,
		day            TEXT,
		time           TEXT,
		currency       TEXT,
		impact         TEXT,
		event          TEXT NOT NULL,
		actual         TEXT,
		forecast       TEXT,
		previous       TEXT,
		detail_url     TEXT,
		is_high_impact INTEGER NOT NULL DEFAULT 0,
		has_data       INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_economic_events_scope ON economic_events (month, year);

	CREATE TABLE IF NOT EXISTS scrape_sessions (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		month        TEXT NOT NULL,
		year         INTEGER NOT NULL,
		total_events INTEGER NOT NULL,
		scraped_at   TEXT NOT NULL,
		source       TEXT NOT NULL,
		partial      INTEGER NOT NULL DEFAULT 0,
		UNIQUE (month, year)
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Persist upserts each event by key and the session by scope inside one
// transaction.
func (s *SQLiteSink) Persist(ctx context.Context, events []event.EconomicEvent, session event.ScrapeSession) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, evt := range events {
		if err := s.upsertEvent(ctx, tx, evt); err != nil {
			return fmt.Errorf("upserting event %q: %w", evt.Title, err)
		}
	}
	if err := s.upsertSession(ctx, tx, session); err != nil {
		return fmt.Errorf("upserting session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Info("events upserted into SQLite", logger.Fields{
		"events": len(events),
		"scope":  fmt.Sprintf("%s %d", session.Month, session.Year),
	})
	return nil
}

func (s *SQLiteSink) upsertEvent(ctx context.Context, tx *sql.Tx, evt event.EconomicEvent) error {
	var id int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM economic_events WHERE event_key = ?`, evt.EventKey).Scan(&id)

	switch {
	case err == sql.ErrNoRows:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO economic_events
				(event_key, scraped_at, source, month, year, date, day, time,
				 currency, impact, event, actual, forecast, previous, detail_url,
				 is_high_impact, has_data)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			evt.EventKey, evt.ScrapedAt.Format(time.RFC3339), evt.Source,
			evt.Month, evt.Year, evt.Date, evt.Day, evt.Time, evt.Currency,
			string(evt.Impact), evt.Title, evt.Actual, evt.Forecast, evt.Previous,
			evt.DetailURL, evt.IsHighImpact, evt.HasData)
		return err
	case err != nil:
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE economic_events SET
			scraped_at = ?, source = ?, month = ?, year = ?, date = ?,
			day = ?, time = ?, currency = ?, impact = ?, event = ?,
			actual = ?, forecast = ?, previous = ?, detail_url = ?,
			is_high_impact = ?, has_data = ?
		WHERE id = ?`,
		evt.ScrapedAt.Format(time.RFC3339), evt.Source, evt.Month,
		evt.Year, evt.Date, evt.Day, evt.Time, evt.Currency, string(evt.Impact),
		evt.Title, evt.Actual, evt.Forecast, evt.Previous, evt.DetailURL,
		evt.IsHighImpact, evt.HasData, id)
	return err
}

func (s *SQLiteSink) upsertSession(ctx context.Context, tx *sql.Tx, sess event.ScrapeSession) error {
	var id int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM scrape_sessions WHERE month = ? AND year = ?`,
		sess.Month, sess.Year).Scan(&id)

	switch {
	case err == sql.ErrNoRows:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO scrape_sessions (month, year, total_events, scraped_at, source, partial)
			VALUES (?, ?, ?, ?, ?, ?)`,
			sess.Month, sess.Year, sess.TotalEvents,
			sess.ScrapedAt.Format(time.RFC3339), sess.Source, sess.Partial)
		return err
	case err != nil:
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE scrape_sessions SET total_events = ?, scraped_at = ?, source = ?, partial = ?
		WHERE id = ?`,
		sess.TotalEvents, sess.ScrapedAt.Format(time.RFC3339),
		sess.Source, sess.Partial, id)
	return err
}
