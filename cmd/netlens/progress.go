package main

import (
	"context"
	"fmt"
	"io"

	"github.com/HerbHall/netlens/internal/analysis"
	"github.com/HerbHall/netlens/internal/event"
	"github.com/HerbHall/netlens/pkg/models"
)

// subscribeProgress prints pipeline progress and the finding summary as
// analysis events arrive.
func subscribeProgress(bus *event.Bus, w io.Writer) {
	bus.Subscribe(event.TopicAnalysisStarted, func(_ context.Context, ev event.Event) {
		fmt.Fprintf(w, "analyzing configs in %v\n", ev.Payload)
	})

	bus.Subscribe(event.TopicDeviceParsed, func(_ context.Context, ev event.Event) {
		dev, ok := ev.Payload.(models.Device)
		if !ok {
			return
		}
		fmt.Fprintf(w, "  parsed %s (%d interfaces)\n", dev.Name, len(dev.Interfaces))
	})

	bus.Subscribe(event.TopicTopologyBuilt, func(_ context.Context, ev event.Event) {
		graph, ok := ev.Payload.(*models.TopologyGraph)
		if !ok {
			return
		}
		fmt.Fprintf(w, "inferred %d links across %d subnets\n", len(graph.Links), len(graph.Subnets))
	})

	bus.Subscribe(event.TopicValidationDone, func(_ context.Context, ev event.Event) {
		findings, ok := ev.Payload.([]models.Finding)
		if !ok {
			return
		}
		counts := models.CountFindings(findings)
		fmt.Fprintf(w, "validation: %d errors, %d warnings\n", counts.Errors, counts.Warnings)
		for _, f := range findings {
			fmt.Fprintf(w, "  [%s] %s: %s\n", f.Severity, f.Rule, f.Message)
		}
	})

	bus.Subscribe(event.TopicAnalysisCompleted, func(_ context.Context, ev event.Event) {
		res, ok := ev.Payload.(analysis.Result)
		if !ok {
			return
		}
		fmt.Fprintf(w, "run %s: %d devices, %d links, %d findings\n",
			res.RunID, len(res.Graph.Devices), len(res.Graph.Links), len(res.Findings))
	})
}
