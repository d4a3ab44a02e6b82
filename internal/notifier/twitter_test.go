package notifier

import (
	"strings"
	"testing"

	"forexcal/internal/event"
)

func TestFormatTweet(t *testing.T) {
	tests := []struct {
		name     string
		event    *event.EconomicEvent
		contains []string
	}{
		{
			name: "complete event",
			event: &event.EconomicEvent{
				Currency:     "USD",
				Title:        "CPI m/m",
				Date:         "02/06/2025",
				Day:          "Mon",
				Time:         "06:30",
				Forecast:     "0.2%",
				Previous:     "0.1%",
				IsHighImpact: true,
			},
			contains: []string{
				"USD",
				"CPI m/m",
				"02/06/2025",
				"06:30",
				"Forecast: 0.2%",
				"Previous: 0.1%",
				"#forex",
				"🔴",
			},
		},
		{
			name: "event without forecast",
			event: &event.EconomicEvent{
				Currency:     "GBP",
				Title:        "BOE Gov Speaks",
				Date:         "03/06/2025",
				Day:          "Tue",
				Time:         "14:00",
				IsHighImpact: true,
			},
			contains: []string{
				"GBP",
				"BOE Gov Speaks",
				"14:00",
			},
		},
		{
			name: "all-day event keeps time out of the line",
			event: &event.EconomicEvent{
				Currency:     "EUR",
				Title:        "Eurogroup Meetings",
				Date:         "04/06/2025",
				Day:          "Wed",
				Time:         "",
				IsHighImpact: true,
			},
			contains: []string{
				"EUR",
				"Eurogroup Meetings",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tweet := formatTweet(tt.event)
			if len(tweet) > 280 {
				t.Errorf("tweet exceeds 280 characters: %d", len(tweet))
			}
			for _, want := range tt.contains {
				if !strings.Contains(tweet, want) {
					t.Errorf("tweet missing %q:\n%s", want, tweet)
				}
			}
		})
	}
}

func TestFormatTweetTruncates(t *testing.T) {
	evt := &event.EconomicEvent{
		Currency: "USD",
		Title:    strings.Repeat("Very Long Event Name ", 20),
		Date:     "02/06/2025",
		Day:      "Mon",
		Time:     "06:30",
	}

	tweet := formatTweet(evt)
	if len(tweet) > 280 {
		t.Errorf("expected truncation to 280 characters, got %d", len(tweet))
	}
	if !strings.HasSuffix(tweet, "...") {
		t.Error("expected ellipsis on truncated tweet")
	}
}

func TestHighImpactFilter(t *testing.T) {
	events := []event.EconomicEvent{
		{Title: "CPI m/m", IsHighImpact: true},
		{Title: "Buba Speech"},
		{Title: "NFP", IsHighImpact: true},
	}

	got := HighImpact(events)
	if len(got) != 2 {
		t.Fatalf("expected 2 high-impact events, got %d", len(got))
	}
	if got[0].Title != "CPI m/m" || got[1].Title != "NFP" {
		t.Errorf("unexpected selection: %+v", got)
	}
}

func TestNewTwitterNotifierRequiresCredentials(t *testing.T) {
	t.Setenv("TWITTER_API_KEY", "")
	t.Setenv("TWITTER_API_SECRET", "")
	t.Setenv("TWITTER_ACCESS_TOKEN", "")
	t.Setenv("TWITTER_ACCESS_SECRET", "")

	if _, err := NewTwitterNotifier(); err == nil {
		t.Fatal("expected error when credentials are missing")
	}
}
