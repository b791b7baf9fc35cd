package export

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/HerbHall/netlens/internal/topology"
	"github.com/HerbHall/netlens/internal/validate"
	"github.com/HerbHall/netlens/pkg/models"
	"github.com/stretchr/testify/require"
)

func testGraph() (*models.TopologyGraph, []models.Finding) {
	devices := []models.Device{
		{Name: "R1", Interfaces: []models.Interface{
			{Device: "R1", Name: "Gi0/0", Address: "10.0.0.1", PrefixLen: 30, AdminState: models.AdminStateUp, MTU: 1500},
			{Device: "R1", Name: "Gi0/1", AdminState: models.AdminStateDown, MTU: 1500},
		}},
		{Name: "R2", Interfaces: []models.Interface{
			{Device: "R2", Name: "Gi0/0", Address: "10.0.0.2", PrefixLen: 30, AdminState: models.AdminStateUp, MTU: 1500},
		}},
	}
	graph := topology.Build(devices)
	return graph, validate.Validate(devices, graph)
}

func TestBuildDocument_Summary(t *testing.T) {
	graph, findings := testGraph()
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	doc := BuildDocument("./configs", graph, findings, now)

	require.Equal(t, now, doc.GeneratedAt)
	require.Equal(t, "./configs", doc.Source)
	require.Equal(t, 2, doc.Summary.Devices)
	require.Equal(t, 1, doc.Summary.Links)
	require.Equal(t, models.CountFindings(findings), doc.Summary.Findings)
}

func TestWrite_LosslessRoundTrip(t *testing.T) {
	graph, findings := testGraph()
	doc := BuildDocument("./configs", graph, findings, time.Now())

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, doc))

	var decoded Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	// Down and unaddressed interfaces survive export.
	require.Len(t, decoded.Devices, 2)
	require.Len(t, decoded.Devices[0].Interfaces, 2)
	require.Equal(t, models.AdminStateDown, decoded.Devices[0].Interfaces[1].AdminState)

	require.Len(t, decoded.Links, 1)
	require.Equal(t, "10.0.0.0/30", decoded.Links[0].Subnet)
	require.Len(t, decoded.Links[0].Endpoints, 2)

	require.Equal(t, len(findings), len(decoded.Findings))
	for i, f := range decoded.Findings {
		require.Equal(t, findings[i].Rule, f.Rule)
		require.Equal(t, findings[i].Severity, f.Severity)
	}
}
