// Copyright (c) 2025 Neomantra Corp
//
// nexus-record runs one recorder session over a configured feed, writing
// per-symbol daily event log files until interrupted.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/skywalkerx28/nexus-sub000/eventlog"
	"github.com/skywalkerx28/nexus-sub000/internal/config"
	"github.com/skywalkerx28/nexus-sub000/live"
)

func main() {
	var configPath string
	var showHelp bool

	pflag.StringVarP(&configPath, "config", "c", "configs/nexus.yaml", "Path to the YAML config file")
	pflag.BoolVarP(&showHelp, "help", "h", false, "Show help")
	pflag.Parse()

	if showHelp {
		fmt.Fprintf(os.Stdout, "usage: %s -c <config.yaml>\n\n", os.Args[0])
		pflag.PrintDefaults()
		os.Exit(0)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	logger := makeLogger(cfg.Logging)
	slog.SetDefault(logger)

	// Build the configured feeds. Live preference keeps the delayed poller
	// as an automatic fallback when both endpoints are known.
	var primary, fallback nexus_live.Feed
	var err error
	if cfg.Feed.PreferredFeedMode == "live" {
		primary, err = nexus_live.NewWSFeed(nexus_live.WSFeedConfig{
			URL:    cfg.Feed.WSURL,
			Venue:  cfg.Recorder.Venue,
			Logger: logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create live feed: %w", err)
		}
		if cfg.Feed.SnapshotURL != "" {
			fallback, err = nexus_live.NewDelayedFeed(nexus_live.DelayedFeedConfig{
				URL:          cfg.Feed.SnapshotURL,
				Venue:        cfg.Recorder.Venue,
				PollInterval: time.Duration(cfg.Feed.PollSeconds * float64(time.Second)),
				Logger:       logger,
			})
			if err != nil {
				return fmt.Errorf("failed to create delayed feed: %w", err)
			}
		}
	} else {
		primary, err = nexus_live.NewDelayedFeed(nexus_live.DelayedFeedConfig{
			URL:          cfg.Feed.SnapshotURL,
			Venue:        cfg.Recorder.Venue,
			PollInterval: time.Duration(cfg.Feed.PollSeconds * float64(time.Second)),
			Logger:       logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create delayed feed: %w", err)
		}
	}

	recorder, err := nexus_live.NewRecorder(nexus_live.RecorderConfig{
		BaseDirectory:      cfg.Recorder.BaseDirectory,
		Symbols:            cfg.Recorder.Symbols,
		Source:             cfg.Recorder.Source,
		Venue:              cfg.Recorder.Venue,
		FlushRows:          cfg.Recorder.FlushRows,
		FlushInterval:      cfg.Recorder.FlushInterval(),
		BaseReconnectDelay: cfg.Recorder.BaseReconnectDelay(),
		MaxReconnectDelay:  cfg.Recorder.MaxReconnectDelay(),
		Writer: nexus_eventlog.WriterOptions{
			BatchSize:          cfg.Writer.BatchSize,
			RowGroupTargetRows: cfg.Writer.RowGroupTargetRows,
			CompressionLevel:   cfg.Writer.CompressionLevel,
			Logger:             logger,
		},
		Logger: logger,
	}, primary, fallback)
	if err != nil {
		return fmt.Errorf("failed to create recorder: %w", err)
	}

	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(
			recorder.Metrics().Registry(), promhttp.HandlerOpts{}))
		addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
		go func() {
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.Error("metrics endpoint failed", "addr", addr, "error", err)
			}
		}()
		logger.Info("metrics endpoint up", "addr", addr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("recording", "session", recorder.SessionID(),
		"symbols", cfg.Recorder.Symbols, "base", cfg.Recorder.BaseDirectory)
	if err := recorder.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func makeLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
