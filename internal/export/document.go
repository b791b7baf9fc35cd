// Package export serializes an analysis run to a structured document.
// It carries no inference logic: everything here is a lossless projection
// of the graph and findings produced by the core.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/HerbHall/netlens/pkg/models"
)

// Document is the exported form of one analysis run.
type Document struct {
	GeneratedAt time.Time               `json:"generated_at"`
	Source      string                  `json:"source,omitempty"`
	Devices     []models.Device         `json:"devices"`
	Links       []models.Link           `json:"links"`
	Subnets     []models.SubnetGroup    `json:"subnets"`
	Anomalies   []models.AddressAnomaly `json:"anomalies,omitempty"`
	Findings    []models.Finding        `json:"findings"`
	Summary     Summary                 `json:"summary"`
}

// Summary holds the headline counts of a run.
type Summary struct {
	Devices  int                  `json:"devices"`
	Links    int                  `json:"links"`
	Subnets  int                  `json:"subnets"`
	Findings models.FindingCounts `json:"findings"`
}

// BuildDocument assembles the export document for one run.
func BuildDocument(source string, graph *models.TopologyGraph, findings []models.Finding, generatedAt time.Time) Document {
	return Document{
		GeneratedAt: generatedAt.UTC(),
		Source:      source,
		Devices:     graph.Devices,
		Links:       graph.Links,
		Subnets:     graph.Subnets,
		Anomalies:   graph.Anomalies,
		Findings:    findings,
		Summary: Summary{
			Devices:  len(graph.Devices),
			Links:    len(graph.Links),
			Subnets:  len(graph.Subnets),
			Findings: models.CountFindings(findings),
		},
	}
}

// Write serializes the document as indented JSON.
func Write(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return nil
}

// WriteFile serializes the document to path, creating or truncating it.
func WriteFile(path string, doc Document) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %q: %w", path, err)
	}
	if err := Write(f, doc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
