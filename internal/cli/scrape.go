package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"forexcal/internal/event"
	"forexcal/internal/logger"
	"forexcal/internal/notifier"
)

var (
	flagMonth  string
	flagSinks  []string
	flagFormat string
	flagNotify bool
	flagDryRun bool
)

func newScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run one scrape and exit",
		RunE:  runScrapeCmd,
	}

	cmd.Flags().StringVar(&flagMonth, "month", "this", "Month to scrape: 'this', 'next', or a month name")
	cmd.Flags().StringSliceVar(&flagSinks, "sinks", nil, "Override configured sinks (csv, postgres, sqlite)")
	cmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&flagNotify, "notify", false, "Tweet high-impact events after the scrape")
	cmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Print notifications instead of posting them")

	return cmd
}

func runScrapeCmd(cmd *cobra.Command, args []string) error {
	log := setupLogger()

	format := OutputFormat(strings.ToLower(flagFormat))
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", flagFormat)
	}

	if !event.ValidScopeParam(flagMonth) {
		return fmt.Errorf("invalid month: %s (use 'this', 'next', or a month name)", flagMonth)
	}
	scope, err := event.ResolveScope(flagMonth, time.Now())
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if len(flagSinks) > 0 {
		cfg.Sinks = flagSinks
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	set, err := buildSinks(cfg, log)
	if err != nil {
		return err
	}
	defer set.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting scrape", logger.Fields{"scope": scope.Key(), "sinks": cfg.Sinks})

	res, err := runScrape(ctx, cfg, scope, set.sinks, log)
	if err != nil {
		return fmt.Errorf("scrape failed: %w", err)
	}

	if err := WriteOutput(os.Stdout, res, format); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if flagNotify || flagDryRun {
		if err := notify(res.Events, flagDryRun); err != nil {
			return err
		}
	}

	if res.Failed() {
		os.Exit(ExitError)
	}
	return nil
}

func notify(events []event.EconomicEvent, dryRun bool) error {
	high := notifier.HighImpact(events)
	if len(high) == 0 {
		fmt.Println("No high-impact events to announce")
		return nil
	}

	var n notifier.Notifier
	if dryRun {
		n = notifier.NewDryRunNotifier()
		fmt.Printf("DRY RUN MODE - Would tweet %d events:\n\n", len(high))
	} else {
		client, err := notifier.NewTwitterNotifier()
		if err != nil {
			return fmt.Errorf("initializing Twitter client: %w", err)
		}
		n = client
	}

	if err := n.Notify(high); err != nil {
		return fmt.Errorf("posting notifications: %w", err)
	}
	return nil
}
