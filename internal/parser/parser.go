package parser

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"forexcal/internal/event"
)

// Cell is one table cell as observed in the source markup. Marker carries the
// class attribute of the impact icon inside an impact cell; Href carries the
// resolved link target of a detail cell.
type Cell struct {
	Class  string
	Text   string
	Marker string
	Href   string
}

// RawRow is the ephemeral representation of one table row.
type RawRow struct {
	Cells []Cell
}

// datePattern matches the day header text rendered on the first row of each
// calendar day, e.g. "Sun Jun 1".
var datePattern = regexp.MustCompile(
	`\b(Mon|Tue|Wed|Thu|Fri|Sat|Sun)\b\s+(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\b\s+(\d{1,2})\b`)

// Parser folds raw rows into candidate events, carrying the day, date, and
// time labels declared by earlier rows forward to the rows that omit them.
// One Parser serves exactly one run; runs must not share instances.
type Parser struct {
	fields    *FieldMap
	scope     event.Scope
	scrapedAt time.Time

	day  string
	date string
	time string
}

// New creates a Parser for one scrape run. scrapedAt stamps every event the
// run produces.
func New(fields *FieldMap, scope event.Scope, scrapedAt time.Time) *Parser {
	return &Parser{fields: fields, scope: scope, scrapedAt: scrapedAt}
}

// ParseRow converts one raw row into a candidate event.
//
// A nil event with a nil error means the row carried no event data (day
// separators, header and ad rows) and was skipped. A non-nil error means the
// row looked like data but could not be parsed; such failures are isolated
// per row and never abort the run.
func (p *Parser) ParseRow(row RawRow) (*event.EconomicEvent, error) {
	if len(row.Cells) == 0 {
		return nil, nil
	}

	values := make(map[Field]string, len(row.Cells))
	var impactMarker string
	var detailURL string
	sawImpactCell := false

	for _, cell := range row.Cells {
		field := p.fields.FieldOf(cell.Class)
		if field == FieldUnknown {
			continue
		}
		text := strings.TrimSpace(cell.Text)
		switch field {
		case FieldImpact:
			sawImpactCell = true
			impactMarker = cell.Marker
		case FieldDetail:
			detailURL = cell.Href
		default:
			values[field] = text
		}
	}

	if dateText := values[FieldDate]; dateText != "" {
		if day, date, ok := p.extractDateParts(dateText); ok {
			p.day = day
			p.date = date
		}
	}
	if timeText := values[FieldTime]; timeText != "" {
		p.time = timeText
	}

	currency := strings.ToUpper(values[FieldCurrency])
	title := values[FieldEvent]
	if currency == "" && title == "" {
		return nil, nil
	}
	if p.date == "" {
		return nil, fmt.Errorf("data row %q precedes any date header", title)
	}

	// Absent markers and unrecognized marker classes both resolve to the
	// unknown category; the row stays visible to downstream filtering.
	impact := event.ImpactUnknown
	if sawImpactCell {
		impact = p.fields.Impact(impactMarker)
	}

	return &event.EconomicEvent{
		ScrapedAt: p.scrapedAt,
		Source:    event.Source,
		Month:     p.scope.Month,
		Year:      p.scope.Year,
		Date:      p.date,
		Day:       p.day,
		Time:      p.time,
		Currency:  currency,
		Impact:    impact,
		Title:     title,
		Actual:    values[FieldActual],
		Forecast:  values[FieldForecast],
		Previous:  values[FieldPrevious],
		DetailURL: detailURL,
	}, nil
}

// extractDateParts parses a day header like "Sun Jun 1" into the weekday
// label and a dd/mm/yyyy date using the run's scope year.
func (p *Parser) extractDateParts(text string) (day, date string, ok bool) {
	m := datePattern.FindStringSubmatch(text)
	if m == nil {
		return "", "", false
	}
	month, err := time.Parse("Jan", m[2])
	if err != nil {
		return "", "", false
	}
	var dayNum int
	fmt.Sscanf(m[3], "%d", &dayNum)
	return m[1], fmt.Sprintf("%02d/%02d/%d", dayNum, int(month.Month()), p.scope.Year), true
}
