// Package validate runs consistency checks over parsed devices and the
// inferred topology graph. Rules are independent pure functions composed
// by concatenation; adding a rule never touches existing ones.
package validate

import (
	"sort"
	"sync"

	"github.com/HerbHall/netlens/pkg/models"
)

// ruleContext is the shared, read-only input every rule sees.
type ruleContext struct {
	devices []models.Device
	graph   *models.TopologyGraph

	// ifaces indexes interfaces by device name then interface name.
	ifaces map[string]map[string]models.Interface
}

type ruleFunc func(*ruleContext) []models.Finding

// registry order fixes the grouping order of the emitted findings.
var registry = []struct {
	rule models.Rule
	fn   ruleFunc
}{
	{models.RuleDuplicateAddress, checkDuplicateAddress},
	{models.RuleAddressConflict, checkAddressConflict},
	{models.RuleMaskMismatch, checkMaskMismatch},
	{models.RuleOrphanInterface, checkOrphanInterface},
	{models.RuleIsolatedDevice, checkIsolatedDevice},
	{models.RuleVLANMismatch, checkVLANMismatch},
	{models.RuleMalformedAddress, checkMalformedAddress},
	{models.RuleMTUMismatch, checkMTUMismatch},
	{models.RuleReservedAddress, checkReservedAddress},
	{models.RuleVLANNameConflict, checkVLANNameConflict},
	{models.RuleLoopDetected, checkLoops},
	{models.RuleProtocolAdvisory, checkProtocolAdvisory},
	{models.RuleAggregationHint, checkAggregationHint},
}

// Validate runs every rule against the device set and graph and returns
// the full finding list. Validation is total: it never aborts on user
// data, and severity never short-circuits later rules. Rules execute
// concurrently against the shared read-only inputs; the merge below, not
// execution order, fixes the output ordering.
func Validate(devices []models.Device, graph *models.TopologyGraph) []models.Finding {
	ctx := &ruleContext{
		devices: devices,
		graph:   graph,
		ifaces:  indexInterfaces(devices),
	}

	results := make([][]models.Finding, len(registry))
	var wg sync.WaitGroup
	for i, entry := range registry {
		wg.Add(1)
		go func(i int, fn ruleFunc) {
			defer wg.Done()
			results[i] = fn(ctx)
		}(i, entry.fn)
	}
	wg.Wait()

	findings := make([]models.Finding, 0)
	for i, entry := range registry {
		group := results[i]
		sort.Slice(group, func(a, b int) bool {
			return findingLess(group[a], group[b])
		})
		for _, f := range group {
			f.Rule = entry.rule
			findings = append(findings, f)
		}
	}
	return findings
}

// findingLess orders findings within one rule: ascending device, then
// interface, with subnet and message as stable tie-breakers for findings
// that reference no single device.
func findingLess(a, b models.Finding) bool {
	if a.Device != b.Device {
		return a.Device < b.Device
	}
	if a.Interface != b.Interface {
		return a.Interface < b.Interface
	}
	if a.Subnet != b.Subnet {
		return a.Subnet < b.Subnet
	}
	return a.Message < b.Message
}

func indexInterfaces(devices []models.Device) map[string]map[string]models.Interface {
	idx := make(map[string]map[string]models.Interface, len(devices))
	for _, dev := range devices {
		m := make(map[string]models.Interface, len(dev.Interfaces))
		for _, iface := range dev.Interfaces {
			m[iface.Name] = iface
		}
		idx[dev.Name] = m
	}
	return idx
}

func (c *ruleContext) lookup(device, iface string) (models.Interface, bool) {
	m, ok := c.ifaces[device]
	if !ok {
		return models.Interface{}, false
	}
	i, ok := m[iface]
	return i, ok
}
