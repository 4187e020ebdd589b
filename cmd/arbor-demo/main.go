// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

// arbor-demo is a headless exerciser for the FileSystem Model: it
// loads a directory, logs every published state transition to
// stderr, and optionally live-filters the listing with a fuzzy
// pattern. It carries no widget toolkit or window chrome — those
// remain external collaborators, per the engine's scope.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/arborfs/arbor/lib/filesystem"
	"github.com/arborfs/arbor/lib/fsmodel"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		path       string
		sortField  string
		descending bool
		hidden     bool
		watch      bool
		pattern    string
		logLevel   string
		warmCache  string
	)

	flagSet := pflag.NewFlagSet("arbor-demo", pflag.ContinueOnError)
	flagSet.StringVar(&path, "path", ".", "directory to browse")
	flagSet.StringVar(&sortField, "sort", "name", "sort field: name, size, or modified")
	flagSet.BoolVar(&descending, "desc", false, "sort in descending order")
	flagSet.BoolVar(&hidden, "hidden", false, "include dotfiles")
	flagSet.BoolVar(&watch, "watch", true, "keep the listing live via the platform watcher")
	flagSet.StringVar(&pattern, "search", "", "fuzzy filter applied to the listing")
	flagSet.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, or error")
	flagSet.StringVar(&warmCache, "warm-cache", "", "persist and reload the directory cache from this file across runs")
	flagSet.BoolP("help", "h", false, "show help")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Println("arbor-demo (development build)")
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	sortKey, err := parseSortKey(sortField)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(logLevel)}))

	cfg := filesystem.DefaultConfig()
	cfg.SortKey = sortKey
	if descending {
		cfg.SortOrder = fsmodel.Descending
	}
	cfg.IncludeHidden = hidden
	cfg.Watch = watch
	cfg.WarmCachePath = warmCache

	model := filesystem.New(cfg)
	defer model.Close()

	updates, unsubscribe := model.Subscribe()
	defer unsubscribe()

	model.LoadPath(path)
	if pattern != "" {
		model.SetSearchPattern(pattern)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logCurrentState(logger, model)
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil
		case <-updates:
			logCurrentState(logger, model)
		case <-time.After(5 * time.Second):
			// Periodic heartbeat so a long-idle demo still shows signs
			// of life in the log stream.
			logger.Debug("idle", "path", model.CurrentPath(), "state", model.State().String())
		}
	}
}

func logCurrentState(logger *slog.Logger, model *filesystem.Model) {
	snap := model.Snapshot()
	attrs := []any{"path", snap.Path, "state", snap.State.String(), "entries", len(snap.Entries)}

	switch snap.State.Kind {
	case fsmodel.LoadLoaded:
		attrs = append(attrs, "count", snap.State.Count, "duration", snap.State.Duration)
	case fsmodel.LoadCached:
		attrs = append(attrs, "stale", snap.State.Stale)
	case fsmodel.LoadError:
		attrs = append(attrs, "message", snap.State.Message)
	}
	logger.Info("snapshot", attrs...)

	if search := model.SearchSnapshot(); search.Pattern != "" {
		logger.Info("search", "pattern", search.Pattern, "matches", len(search.Matches), "total", search.TotalItems)
	}
}

func parseSortKey(field string) (fsmodel.SortKey, error) {
	switch field {
	case "name":
		return fsmodel.SortByName, nil
	case "size":
		return fsmodel.SortBySize, nil
	case "modified":
		return fsmodel.SortByModifiedTime, nil
	default:
		return 0, fmt.Errorf("unknown --sort value %q: want name, size, or modified", field)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `arbor-demo — headless exerciser for the FileSystem Model.

Loads a directory, logs each published load-state transition to
stderr, and keeps the listing live via the platform watcher unless
--watch=false is passed.

Usage:
  arbor-demo [flags]

Examples:
  arbor-demo --path ~/Downloads
  arbor-demo --path . --sort size --desc
  arbor-demo --path . --search report
  arbor-demo --path ~/Downloads --warm-cache ~/.cache/arbor-demo.blob

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
