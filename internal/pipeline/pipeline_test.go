package pipeline

import (
	"context"
	"errors"
	"io"
	"testing"

	"forexcal/internal/event"
	"forexcal/internal/filter"
	"forexcal/internal/loader"
	"forexcal/internal/logger"
	"forexcal/internal/parser"
	"forexcal/internal/sink"
)

type fixtureSource struct {
	page *loader.Page
	err  error
}

func (s *fixtureSource) Rows(ctx context.Context, scope event.Scope) (*loader.Page, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.page, nil
}

type memorySink struct {
	name    string
	err     error
	events  []event.EconomicEvent
	session event.ScrapeSession
	calls   int
}

func (m *memorySink) Name() string { return m.name }

func (m *memorySink) Persist(ctx context.Context, events []event.EconomicEvent, session event.ScrapeSession) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.events = append([]event.EconomicEvent(nil), events...)
	m.session = session
	return nil
}

func headerRow(text string) parser.RawRow {
	return parser.RawRow{Cells: []parser.Cell{
		{Class: "calendar__cell calendar__date", Text: text},
	}}
}

func eventRow(clock, currency, marker, title string, actual string) parser.RawRow {
	return parser.RawRow{Cells: []parser.Cell{
		{Class: "calendar__cell calendar__date"},
		{Class: "calendar__cell calendar__time", Text: clock},
		{Class: "calendar__cell calendar__currency", Text: currency},
		{Class: "calendar__cell calendar__impact", Marker: marker},
		{Class: "calendar__cell calendar__event", Text: title},
		{Class: "calendar__cell calendar__actual", Text: actual},
	}}
}

func testScope() event.Scope {
	return event.Scope{Month: "June", Year: 2025, Param: "jun.2025"}
}

func testConfig(currencies []string, impacts []event.Impact) Config {
	return Config{
		Fields:     parser.DefaultFieldMap(),
		Filter:     filter.New(currencies, impacts),
		SourceZone: "Europe/Berlin",
		TargetZone: "UTC",
	}
}

func testLogger() *logger.Logger {
	return logger.New(logger.LevelError, io.Discard)
}

func TestRunAcceptsAndNormalizesOneEvent(t *testing.T) {
	src := &fixtureSource{page: &loader.Page{
		SourceZone: "Europe/Berlin",
		Rows: []parser.RawRow{
			headerRow("Mon Jun 2"),
			eventRow("8:30am", "USD", "icon icon--ff-impact-red", "CPI m/m", "0.3%"),
			eventRow("", "EUR", "icon icon--ff-impact-yel", "German Buba Speech", ""),
		},
	}}
	out := &memorySink{name: "memory"}
	cfg := testConfig([]string{"USD"}, nil)

	res, err := Run(context.Background(), testScope(), cfg, src, []sink.Sink{out}, testLogger())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(res.Events) != 1 {
		t.Fatalf("expected 1 accepted event, got %d", len(res.Events))
	}
	evt := res.Events[0]
	if evt.Title != "CPI m/m" {
		t.Errorf("expected title %q, got %q", "CPI m/m", evt.Title)
	}
	if evt.Date != "02/06/2025" {
		t.Errorf("expected date 02/06/2025, got %q", evt.Date)
	}
	if evt.Time != "06:30" {
		t.Errorf("expected 8:30am Berlin to normalize to 06:30 UTC, got %q", evt.Time)
	}
	if evt.Day != "Mon" {
		t.Errorf("expected day Mon, got %q", evt.Day)
	}
	if !evt.IsHighImpact {
		t.Error("expected red marker to flag high impact")
	}
	if !evt.HasData {
		t.Error("expected event with actual value to report has_data")
	}
	wantKey := event.GenerateKey("02/06/2025", "06:30", "USD", "CPI m/m")
	if evt.EventKey != wantKey {
		t.Errorf("expected key %q, got %q", wantKey, evt.EventKey)
	}

	if res.Counters.RowsSeen != 3 {
		t.Errorf("expected 3 rows seen, got %d", res.Counters.RowsSeen)
	}
	if res.Counters.RejectedCurrency != 1 {
		t.Errorf("expected 1 currency rejection, got %d", res.Counters.RejectedCurrency)
	}

	if out.session.TotalEvents != 1 {
		t.Errorf("expected sink session total 1, got %d", out.session.TotalEvents)
	}
	if len(res.Outcomes) != 1 || !res.Outcomes[0].OK {
		t.Fatalf("expected one successful outcome, got %+v", res.Outcomes)
	}
	if res.Failed() {
		t.Error("expected Failed to be false")
	}
}

func TestRunRollsDateForwardAndRederivesDay(t *testing.T) {
	src := &fixtureSource{page: &loader.Page{
		Rows: []parser.RawRow{
			headerRow("Mon Jun 2"),
			eventRow("11:30pm", "JPY", "icon icon--ff-impact-ora", "BOJ Statement", ""),
		},
	}}
	cfg := Config{
		Fields:     parser.DefaultFieldMap(),
		Filter:     filter.New(nil, nil),
		SourceZone: "UTC",
		TargetZone: "Asia/Tokyo",
	}

	res, err := Run(context.Background(), testScope(), cfg, src, nil, testLogger())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(res.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(res.Events))
	}
	evt := res.Events[0]
	if evt.Date != "03/06/2025" {
		t.Errorf("expected date to roll to 03/06/2025, got %q", evt.Date)
	}
	if evt.Time != "08:30" {
		t.Errorf("expected 08:30 JST, got %q", evt.Time)
	}
	if evt.Day != "Tue" {
		t.Errorf("expected day label re-derived as Tue, got %q", evt.Day)
	}
}

func TestRunPrefersDetectedZoneOverConfigured(t *testing.T) {
	src := &fixtureSource{page: &loader.Page{
		SourceZone: "America/New_York",
		Rows: []parser.RawRow{
			headerRow("Mon Jun 2"),
			eventRow("8:30am", "USD", "icon icon--ff-impact-red", "CPI m/m", ""),
		},
	}}
	// Configured fallback would yield 06:30; the detected zone must win.
	cfg := testConfig(nil, nil)

	res, err := Run(context.Background(), testScope(), cfg, src, nil, testLogger())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.Events[0].Time != "12:30" {
		t.Errorf("expected 8:30am New York to normalize to 12:30 UTC, got %q", res.Events[0].Time)
	}
}

func TestRunFallsBackWhenDetectedZoneInvalid(t *testing.T) {
	src := &fixtureSource{page: &loader.Page{
		SourceZone: "Not/AZone",
		Rows: []parser.RawRow{
			headerRow("Mon Jun 2"),
			eventRow("8:30am", "USD", "icon icon--ff-impact-red", "CPI m/m", ""),
		},
	}}
	cfg := testConfig(nil, nil)

	res, err := Run(context.Background(), testScope(), cfg, src, nil, testLogger())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.Events[0].Time != "06:30" {
		t.Errorf("expected configured Berlin zone fallback, got %q", res.Events[0].Time)
	}
}

func TestRunDropsDuplicateKeys(t *testing.T) {
	row := eventRow("8:30am", "USD", "icon icon--ff-impact-red", "CPI m/m", "0.3%")
	src := &fixtureSource{page: &loader.Page{
		Rows: []parser.RawRow{headerRow("Mon Jun 2"), row, row},
	}}
	cfg := testConfig(nil, nil)

	res, err := Run(context.Background(), testScope(), cfg, src, nil, testLogger())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(res.Events) != 1 {
		t.Fatalf("expected duplicate row to be dropped, got %d events", len(res.Events))
	}
}

func TestRunIsolatesParseFailures(t *testing.T) {
	src := &fixtureSource{page: &loader.Page{
		Rows: []parser.RawRow{
			// Data before any date header fails in isolation.
			eventRow("8:30am", "USD", "icon icon--ff-impact-red", "Orphan Event", ""),
			headerRow("Mon Jun 2"),
			eventRow("9:00am", "USD", "icon icon--ff-impact-red", "CPI m/m", ""),
		},
	}}
	cfg := testConfig(nil, nil)

	res, err := Run(context.Background(), testScope(), cfg, src, nil, testLogger())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.Counters.ParseFailures != 1 {
		t.Errorf("expected 1 parse failure, got %d", res.Counters.ParseFailures)
	}
	if len(res.Events) != 1 || res.Events[0].Title != "CPI m/m" {
		t.Fatalf("expected the later event to survive, got %+v", res.Events)
	}
}

func TestRunReportsSinkFailureWithoutAborting(t *testing.T) {
	src := &fixtureSource{page: &loader.Page{
		Rows: []parser.RawRow{
			headerRow("Mon Jun 2"),
			eventRow("8:30am", "USD", "icon icon--ff-impact-red", "CPI m/m", ""),
		},
	}}
	bad := &memorySink{name: "bad", err: errors.New("connection refused")}
	good := &memorySink{name: "good"}
	cfg := testConfig(nil, nil)

	res, err := Run(context.Background(), testScope(), cfg, src, []sink.Sink{bad, good}, testLogger())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !res.Failed() {
		t.Error("expected Failed to report the sink error")
	}
	if len(good.events) != 1 {
		t.Errorf("expected healthy sink to receive the batch, got %d events", len(good.events))
	}
	if res.Outcomes[0].OK || !res.Outcomes[1].OK {
		t.Errorf("expected outcomes [failed, ok], got %+v", res.Outcomes)
	}
}

func TestRunPropagatesLoaderFailure(t *testing.T) {
	src := &fixtureSource{err: errors.New("page did not render")}

	_, err := Run(context.Background(), testScope(), testConfig(nil, nil), src, nil, testLogger())
	if err == nil {
		t.Fatal("expected loader failure to abort the run")
	}
}

func TestRunMarksPartialOnCancellation(t *testing.T) {
	src := &fixtureSource{page: &loader.Page{
		Rows: []parser.RawRow{
			headerRow("Mon Jun 2"),
			eventRow("8:30am", "USD", "icon icon--ff-impact-red", "CPI m/m", ""),
		},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Run(ctx, testScope(), testConfig(nil, nil), src, nil, testLogger())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !res.Session.Partial {
		t.Error("expected cancelled run to be marked partial")
	}
	if len(res.Events) != 0 {
		t.Errorf("expected no events from a run cancelled before the scan, got %d", len(res.Events))
	}
}
