// Package analysis orchestrates one run of the pipeline: parse device
// configs, infer the topology, validate it, and assemble the export
// document. The builder and validator stay pure; the runner owns all
// I/O, event publishing, and history recording.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/HerbHall/netlens/internal/event"
	"github.com/HerbHall/netlens/internal/export"
	"github.com/HerbHall/netlens/internal/history"
	"github.com/HerbHall/netlens/internal/parser"
	"github.com/HerbHall/netlens/internal/topology"
	"github.com/HerbHall/netlens/internal/validate"
	"github.com/HerbHall/netlens/pkg/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Result is the outcome of one analysis run.
type Result struct {
	RunID    string
	Graph    *models.TopologyGraph
	Findings []models.Finding
	Document export.Document
}

// Runner wires the pipeline stages for repeated invocations. History is
// optional; a nil store disables run recording.
type Runner struct {
	parser *parser.Parser
	bus    *event.Bus
	store  *history.Store
	logger *zap.Logger
}

// NewRunner creates a Runner. store may be nil.
func NewRunner(p *parser.Parser, bus *event.Bus, store *history.Store, logger *zap.Logger) *Runner {
	return &Runner{parser: p, bus: bus, store: store, logger: logger}
}

// Run analyzes every config file under dir and returns the graph,
// findings, and export document. User-data problems surface as findings,
// never as errors; only I/O failures (unreadable directory, history
// write) are returned.
func (r *Runner) Run(ctx context.Context, dir string) (Result, error) {
	runID := uuid.NewString()
	started := time.Now()

	r.bus.Publish(ctx, event.Event{Topic: event.TopicAnalysisStarted, Payload: dir})

	devices, err := r.parser.ParseDirectory(dir)
	if err != nil {
		return Result{}, fmt.Errorf("parse configs: %w", err)
	}
	if len(devices) == 0 {
		return Result{}, fmt.Errorf("no config files found under %q", dir)
	}
	for _, dev := range devices {
		r.bus.Publish(ctx, event.Event{Topic: event.TopicDeviceParsed, Payload: dev})
	}

	graph := topology.Build(devices)
	r.bus.Publish(ctx, event.Event{Topic: event.TopicTopologyBuilt, Payload: graph})

	findings := validate.Validate(devices, graph)
	r.bus.Publish(ctx, event.Event{Topic: event.TopicValidationDone, Payload: findings})

	doc := export.BuildDocument(dir, graph, findings, started)

	result := Result{
		RunID:    runID,
		Graph:    graph,
		Findings: findings,
		Document: doc,
	}

	if r.store != nil {
		if err := r.record(ctx, runID, dir, started, result); err != nil {
			return Result{}, err
		}
	}

	r.bus.Publish(ctx, event.Event{Topic: event.TopicAnalysisCompleted, Payload: result})

	r.logger.Info("analysis complete",
		zap.String("run_id", runID),
		zap.Int("devices", len(devices)),
		zap.Int("links", len(graph.Links)),
		zap.Int("findings", len(findings)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

func (r *Runner) record(ctx context.Context, runID, dir string, started time.Time, res Result) error {
	raw, err := json.Marshal(res.Document)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	run := history.Run{
		ID:        runID,
		CreatedAt: started,
		Source:    dir,
		Devices:   len(res.Graph.Devices),
		Links:     len(res.Graph.Links),
		Subnets:   len(res.Graph.Subnets),
		Findings:  models.CountFindings(res.Findings),
		Document:  raw,
	}
	if err := r.store.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}
