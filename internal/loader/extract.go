package loader

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"forexcal/internal/parser"
)

// ExtractRows parses rendered calendar HTML into raw rows, preserving source
// document order. Cell class attributes are kept verbatim so the field map
// decides what each cell means; the extractor itself knows only enough
// structure to find rows, impact markers, and detail links.
//
// A document without a calendar table is a structural failure: the markup
// has changed and the whole run must fail rather than return an empty month.
func ExtractRows(r io.Reader, baseURL string) ([]parser.RawRow, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	table := doc.Find("table.calendar__table")
	if table.Length() == 0 {
		return nil, fmt.Errorf("no calendar table found: source markup has changed")
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}

	var rows []parser.RawRow
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var row parser.RawRow
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			class, _ := td.Attr("class")
			if class == "" {
				return
			}
			cell := parser.Cell{
				Class: class,
				Text:  strings.TrimSpace(td.Text()),
			}
			if marker := td.Find("span[class]").First(); marker.Length() > 0 {
				cell.Marker, _ = marker.Attr("class")
			}
			if href, ok := td.Find("a[href]").First().Attr("href"); ok {
				cell.Href = absoluteURL(base, href)
			}
			row.Cells = append(row.Cells, cell)
		})
		if len(row.Cells) > 0 {
			rows = append(rows, row)
		}
	})

	return rows, nil
}

func absoluteURL(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
