package sink

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"

	"forexcal/internal/event"
	"forexcal/internal/logger"
)

// PostgresSink stores events and session summaries in PostgreSQL. Events are
// upserted by event_key and sessions by (month, year), so re-running a scope
// updates records in place instead of duplicating them.
type PostgresSink struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewPostgresSink connects to PostgreSQL, retrying the initial ping with
// exponential backoff, and ensures the schema exists.
func NewPostgresSink(connStr string, log *logger.Logger) (*PostgresSink, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ping := func() error { return db.Ping() }
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4)
	if err := backoff.Retry(ping, policy); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &PostgresSink{db: db, logger: log}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}

	log.Info("connected to PostgreSQL", nil)
	return s, nil
}

func (s *PostgresSink) Name() string { return "postgres" }

// Ping verifies database connectivity, used by the /db/test endpoint.
func (s *PostgresSink) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *PostgresSink) Close() error {
	return s.db.Close()
}

func (s *PostgresSink) ensureSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS economic_events (
		id             SERIAL PRIMARY KEY,
		event_key      TEXT UNIQUE NOT NULL,
		scraped_at     TIMESTAMPTZ NOT NULL,
		source         TEXT        NOT NULL,
		month          TEXT        NOT NULL,
		year           INT         NOT NULL,
		date           TEXT        NOT NULL,
		day            TEXT,
		time           TEXT,
		currency       TEXT,
		impact         TEXT,
		event          TEXT        NOT NULL,
		actual         TEXT,
		forecast       TEXT,
		previous       TEXT,
		detail_url     TEXT,
		is_high_impact BOOLEAN     NOT NULL DEFAULT FALSE,
		has_data       BOOLEAN     NOT NULL DEFAULT FALSE
	);

	CREATE INDEX IF NOT EXISTS idx_economic_events_scope    ON economic_events (month, year);
	CREATE INDEX IF NOT EXISTS idx_economic_events_currency ON economic_events (currency);
	CREATE INDEX IF NOT EXISTS idx_economic_events_impact   ON economic_events (impact);

	CREATE TABLE IF NOT EXISTS scrape_sessions (
		id           SERIAL PRIMARY KEY,
		month        TEXT        NOT NULL,
		year         INT         NOT NULL,
		total_events INT         NOT NULL,
		scraped_at   TIMESTAMPTZ NOT NULL,
		source       TEXT        NOT NULL,
		partial      BOOLEAN     NOT NULL DEFAULT FALSE,
		UNIQUE (month, year)
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Persist upserts each event by key and the session by scope inside one
// transaction. Records are queried by event_key first: found rows are
// updated in place, everything else is inserted.
func (s *PostgresSink) Persist(ctx context.Context, events []event.EconomicEvent, session event.ScrapeSession) error {
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

	s.logger.Info("events upserted into PostgreSQL", logger.Fields{
		"events": len(events),
		"scope":  fmt.Sprintf("%s %d", session.Month, session.Year),
	})
	return nil
}

func (s *PostgresSink) upsertEvent(ctx context.Context, tx *sql.Tx, evt event.EconomicEvent) error {
	var id int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM economic_events WHERE event_key = $1`, evt.EventKey).Scan(&id)

	switch {
	case err == sql.ErrNoRows:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO economic_events
				(event_key, scraped_at, source, month, year, date, day, time,
				 currency, impact, event, actual, forecast, previous, detail_url,
				 is_high_impact, has_data)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
			evt.EventKey, evt.ScrapedAt, evt.Source, evt.Month, evt.Year,
			evt.Date, evt.Day, evt.Time, evt.Currency, string(evt.Impact),
			evt.Title, evt.Actual, evt.Forecast, evt.Previous, evt.DetailURL,
			evt.IsHighImpact, evt.HasData)
		return err
	case err != nil:
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE economic_events SET
			scraped_at = $1, source = $2, month = $3, year = $4, date = $5,
			day = $6, time = $7, currency = $8, impact = $9, event = $10,
			actual = $11, forecast = $12, previous = $13, detail_url = $14,
			is_high_impact = $15, has_data = $16
		WHERE id = $17`,
		evt.ScrapedAt, evt.Source, evt.Month, evt.Year, evt.Date,
		evt.Day, evt.Time, evt.Currency, string(evt.Impact), evt.Title,
		evt.Actual, evt.Forecast, evt.Previous, evt.DetailURL,
		evt.IsHighImpact, evt.HasData, id)
	return err
}

func (s *PostgresSink) upsertSession(ctx context.Context, tx *sql.Tx, sess event.ScrapeSession) error {
	var id int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM scrape_sessions WHERE month = $1 AND year = $2`,
		sess.Month, sess.Year).Scan(&id)

	switch {
	case err == sql.ErrNoRows:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO scrape_sessions (month, year, total_events, scraped_at, source, partial)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			sess.Month, sess.Year, sess.TotalEvents, sess.ScrapedAt, sess.Source, sess.Partial)
		return err
	case err != nil:
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE scrape_sessions SET total_events = $1, scraped_at = $2, source = $3, partial = $4
		WHERE id = $5`,
		sess.TotalEvents, sess.ScrapedAt, sess.Source, sess.Partial, id)
	return err
}
