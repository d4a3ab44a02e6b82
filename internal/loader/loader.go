package loader

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/chromedp/chromedp"

	"forexcal/internal/event"
	"forexcal/internal/logger"
	"forexcal/internal/parser"
)

const (
	DefaultBaseURL = "https://www.forexfactory.com"
	UserAgent      = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Page is the result of loading one calendar scope: the extracted rows plus
// the timezone the browser session rendered times in.
type Page struct {
	Rows       []parser.RawRow
	SourceZone string
}

// RowSource supplies the ordered raw row sequence for a scope. The pipeline
// depends on this interface so tests can substitute fixture-backed sources.
type RowSource interface {
	Rows(ctx context.Context, scope event.Scope) (*Page, error)
}

// ChromeLoader fetches calendar pages with a headless Chrome instance.
type ChromeLoader struct {
	baseURL     string
	pageTimeout time.Duration
	maxRetries  uint64
	logger      *logger.Logger
}

// NewChromeLoader creates a loader for the given site base URL.
func NewChromeLoader(baseURL string, pageTimeout time.Duration, maxRetries int, log *logger.Logger) *ChromeLoader {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &ChromeLoader{
		baseURL:     strings.TrimRight(baseURL, "/"),
		pageTimeout: pageTimeout,
		maxRetries:  uint64(maxRetries),
		logger:      log,
	}
}

// Rows loads the calendar for scope and extracts its table rows. The fetch
// is retried with exponential backoff; a page whose calendar table is
// missing counts as a failed attempt, since transient half-rendered pages
// and real markup redesigns look identical from here.
func (l *ChromeLoader) Rows(ctx context.Context, scope event.Scope) (*Page, error) {
	pageURL := fmt.Sprintf("%s/calendar?month=%s", l.baseURL, scope.Param)

	var page *Page
	fetch := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		p, err := l.fetch(ctx, pageURL)
		if err != nil {
			l.logger.Warn("calendar fetch attempt failed", logger.Fields{
				"url":   pageURL,
				"error": err.Error(),
			})
			return err
		}
		page = p
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), l.maxRetries), ctx)
	if err := backoff.Retry(fetch, policy); err != nil {
		return nil, fmt.Errorf("loading calendar for %s: %w", scope, err)
	}

	l.logger.Info("calendar page loaded", logger.Fields{
		"url":  pageURL,
		"rows": len(page.Rows),
		"zone": page.SourceZone,
	})
	return page, nil
}

func (l *ChromeLoader) fetch(ctx context.Context, pageURL string) (*Page, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.UserAgent(UserAgent),
		chromedp.WindowSize(1280, 900),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()
	runCtx, cancelTimeout := context.WithTimeout(browserCtx, l.pageTimeout)
	defer cancelTimeout()

	var detectedZone string
	var tableHTML string

	err := chromedp.Run(runCtx,
		chromedp.Navigate(pageURL),
		chromedp.Sleep(5*time.Second), // give JS time to render
		chromedp.Evaluate(`Intl.DateTimeFormat().resolvedOptions().timeZone`, &detectedZone),
		chromedp.ActionFunc(l.scrollToEnd),
		chromedp.OuterHTML("table.calendar__table", &tableHTML, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("rendering page: %w", err)
	}

	rows, err := ExtractRows(strings.NewReader(tableHTML), l.baseURL)
	if err != nil {
		return nil, err
	}

	return &Page{Rows: rows, SourceZone: detectedZone}, nil
}

// scrollToEnd scrolls until the document height stops growing, so lazily
// rendered rows at the bottom of long months make it into the DOM.
func (l *ChromeLoader) scrollToEnd(ctx context.Context) error {
	var lastHeight, height int64
	for i := 0; i < 20; i++ {
		if err := chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight); document.body.scrollHeight`, &height).Do(ctx); err != nil {
			return err
		}
		if err := chromedp.Sleep(500 * time.Millisecond).Do(ctx); err != nil {
			return err
		}
		if height == lastHeight {
			return nil
		}
		lastHeight = height
	}
	return nil
}
