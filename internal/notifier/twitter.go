package notifier

import (
	"fmt"
	"os"
	"time"

	"github.com/dghubble/go-twitter/twitter" //nolint:staticcheck // Using stable v1.1 API
	"github.com/dghubble/oauth1"

	"forexcal/internal/event"
)

// TwitterNotifier posts high-impact events to Twitter
type TwitterNotifier struct {
	client *twitter.Client
}

// NewTwitterNotifier creates a new Twitter notifier using environment variables
// Required environment variables:
// - TWITTER_API_KEY
// - TWITTER_API_SECRET
// - TWITTER_ACCESS_TOKEN
// - TWITTER_ACCESS_SECRET
func NewTwitterNotifier() (*TwitterNotifier, error) {
	apiKey := os.Getenv("TWITTER_API_KEY")
	apiSecret := os.Getenv("TWITTER_API_SECRET")
	accessToken := os.Getenv("TWITTER_ACCESS_TOKEN")
	accessSecret := os.Getenv("TWITTER_ACCESS_SECRET")

	if apiKey == "" || apiSecret == "" || accessToken == "" || accessSecret == "" {
		return nil, fmt.Errorf("missing required Twitter credentials in environment variables")
	}

	config := oauth1.NewConfig(apiKey, apiSecret)
	token := oauth1.NewToken(accessToken, accessSecret)
	httpClient := config.Client(oauth1.NoContext, token)
	client := twitter.NewClient(httpClient)

	return &TwitterNotifier{client: client}, nil
}

// Notify posts a tweet per event
func (n *TwitterNotifier) Notify(events []event.EconomicEvent) error {
	for i, evt := range events {
		tweet := formatTweet(&evt)

		_, _, err := n.client.Statuses.Update(tweet, nil)
		if err != nil {
			return fmt.Errorf("failed to post tweet for event %s: %w", evt.EventKey, err)
		}

		// Rate limiting: wait between tweets
		if i < len(events)-1 {
			time.Sleep(2 * time.Second)
		}
	}

	return nil
}

// formatTweet formats a high-impact event as a tweet
func formatTweet(evt *event.EconomicEvent) string {
	tweet := "🔴 High-impact economic event\n\n"
	tweet += fmt.Sprintf("%s %s\n", evt.Currency, evt.Title)
	tweet += fmt.Sprintf("📅 %s (%s)", evt.Date, evt.Day)
	if evt.Time != "" {
		tweet += fmt.Sprintf(" at %s", evt.Time)
	}
	tweet += "\n"

	if evt.Forecast != "" {
		tweet += fmt.Sprintf("Forecast: %s", evt.Forecast)
		if evt.Previous != "" {
			tweet += fmt.Sprintf(" | Previous: %s", evt.Previous)
		}
		tweet += "\n"
	}

	tweet += "\n#forex #economiccalendar"

	// Twitter limit is 280 characters
	if len(tweet) > 280 {
		// Truncate and add ellipsis
		tweet = tweet[:277] + "..."
	}

	return tweet
}
