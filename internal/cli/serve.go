package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"forexcal/internal/config"
	"forexcal/internal/event"
	"forexcal/internal/logger"
	"forexcal/internal/pipeline"
	"forexcal/internal/runner"
	"forexcal/internal/server"
)

var flagAddr string

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scrape trigger API, with an optional schedule",
		RunE:  runServeCmd,
	}

	cmd.Flags().StringVar(&flagAddr, "addr", "", "HTTP listen address (overrides config)")

	return cmd
}

func runServeCmd(cmd *cobra.Command, args []string) error {
	log := setupLogger()

	ldr, err := config.NewLoader(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := ldr.Config()

	set, err := buildSinks(cfg, log)
	if err != nil {
		return err
	}
	defer set.Close()

	// Each run snapshots the config current at trigger time; a reload never
	// changes a run already in flight.
	exec := func(ctx context.Context, scope event.Scope) (*pipeline.Result, error) {
		return runScrape(ctx, ldr.Config(), scope, set.sinks, log)
	}
	runs := runner.New(exec, log)

	stopWatch, err := ldr.Watch()
	if err != nil {
		log.Warn("config watcher unavailable, hot-reload disabled", logger.Fields{"error": err.Error()})
	} else {
		defer stopWatch()
	}

	var sched *cron.Cron
	if cfg.Schedule != "" {
		sched = cron.New()
		_, err := sched.AddFunc(cfg.Schedule, func() {
			scope, err := event.ResolveScope("this", time.Now())
			if err != nil {
				return
			}
			if _, err := runs.Trigger(scope); err != nil && !errors.Is(err, runner.ErrAlreadyRunning) {
				log.Error("scheduled scrape failed to start", logger.Fields{"scope": scope.Key()}, err)
			}
		})
		if err != nil {
			return fmt.Errorf("installing schedule: %w", err)
		}
		sched.Start()
		defer sched.Stop()
		log.Info("schedule installed", logger.Fields{"schedule": cfg.Schedule})
	}

	addr := cfg.ListenAddr
	if flagAddr != "" {
		addr = flagAddr
	}

	handler := server.New(runs, ldr, set.pinger, log)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", logger.Fields{"addr": addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-stop:
		log.Info("shutting down", logger.Fields{"signal": sig.String()})
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown incomplete", logger.Fields{"error": err.Error()})
	}
	runs.Shutdown()

	return nil
}
