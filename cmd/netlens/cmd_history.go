package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/HerbHall/netlens/internal/config"
	"github.com/HerbHall/netlens/internal/history"
)

// runHistory implements the "netlens history" subcommand: list stored
// runs, or dump one run's document with -run.
func runHistory(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	dbPath := fs.String("db", "", "history database path (default from config)")
	limit := fs.Int("limit", 20, "maximum runs to list")
	runID := fs.String("run", "", "print the stored document for one run id")
	_ = fs.Parse(args)

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

	path := v.GetString("history.path")
	if *dbPath != "" {
		path = *dbPath
	}
	store, err := history.Open(path, logger.Named("history"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open history database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()

	if *runID != "" {
		run, err := store.GetRun(ctx, *runID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "get run: %v\n", err)
			os.Exit(1)
		}
		os.Stdout.Write(run.Document)
		fmt.Println()
		return
	}

	runs, err := store.ListRuns(ctx, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list runs: %v\n", err)
		os.Exit(1)
	}
	if len(runs) == 0 {
		fmt.Println("no stored runs")
		return
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tCREATED\tSOURCE\tDEVICES\tLINKS\tERRORS\tWARNINGS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			r.ID, r.CreatedAt.Local().Format(time.DateTime), r.Source,
			r.Devices, r.Links, r.Findings.Errors, r.Findings.Warnings)
	}
	tw.Flush()
}
