// Command netlens statically analyzes router/switch configuration files:
// it infers the network topology from declared interface addressing,
// validates the result, and exports a structured JSON document.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/HerbHall/netlens/internal/analysis"
	"github.com/HerbHall/netlens/internal/config"
	"github.com/HerbHall/netlens/internal/event"
	"github.com/HerbHall/netlens/internal/export"
	"github.com/HerbHall/netlens/internal/history"
	"github.com/HerbHall/netlens/internal/parser"
	"github.com/HerbHall/netlens/internal/version"
	"github.com/HerbHall/netlens/pkg/models"
	"go.uber.org/zap"
)

func main() {
	// Subcommand dispatch (before flag.Parse).
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "history":
			runHistory(os.Args[2:])
			return
		case "version":
			fmt.Println(version.Info())
			return
		}
	}

	configPath := flag.String("config", "", "path to configuration file")
	output := flag.String("output", "", "output JSON path (default from config)")
	dbPath := flag.String("db", "", "history database path (default from config)")
	quiet := flag.Bool("quiet", false, "suppress progress output")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	dir := flag.Arg(0)
	if dir == "" {
		fmt.Fprintln(os.Stderr, "usage: netlens [flags] <config-dir>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Load configuration (before logger, so log level/format can be configured).
	v, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Debug("netlens starting", zap.String("version", version.Short()))

	ctx := context.Background()
	bus := event.NewBus(logger.Named("event"))
	if !*quiet {
		subscribeProgress(bus, os.Stdout)
	}

	var store *history.Store
	if v.GetBool("history.enabled") {
		path := v.GetString("history.path")
		if *dbPath != "" {
			path = *dbPath
		}
		store, err = history.Open(path, logger.Named("history"))
		if err != nil {
			logger.Fatal("failed to open history database", zap.Error(err))
		}
		defer store.Close()

		if keep := v.GetInt("history.keep_runs"); keep > 0 {
			if n, err := store.PruneRuns(ctx, keep); err != nil {
				logger.Warn("history prune failed", zap.Error(err))
			} else if n > 0 {
				logger.Debug("pruned old runs", zap.Int("deleted", n))
			}
		}
	}

	runner := analysis.NewRunner(
		parser.New(logger.Named("parser")),
		bus,
		store,
		logger.Named("analysis"),
	)

	result, err := runner.Run(ctx, dir)
	if err != nil {
		logger.Fatal("analysis failed", zap.Error(err))
	}

	outPath := v.GetString("output.path")
	if *output != "" {
		outPath = *output
	}
	if err := export.WriteFile(outPath, result.Document); err != nil {
		logger.Fatal("failed to write output", zap.Error(err))
	}
	if !*quiet {
		fmt.Printf("topology written to %s\n", outPath)
	}

	// Findings never abort analysis; they only set the exit code so
	// scripts can gate on configuration errors.
	if models.CountFindings(result.Findings).Errors > 0 {
		os.Exit(2)
	}
}
