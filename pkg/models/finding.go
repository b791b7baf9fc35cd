package models

// Severity classifies how serious a finding is.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Rule identifiers are stable across releases; reports and tooling key on
// them, so renames are breaking changes.
const (
	RuleDuplicateAddress Rule = "duplicate-address"
	RuleAddressConflict  Rule = "address-conflict"
	RuleMaskMismatch     Rule = "mask-mismatch"
	RuleOrphanInterface  Rule = "orphan-interface"
	RuleIsolatedDevice   Rule = "isolated-device"
	RuleVLANMismatch     Rule = "vlan-mismatch"
	RuleMalformedAddress Rule = "malformed-address"
	RuleMTUMismatch      Rule = "mtu-mismatch"
	RuleReservedAddress  Rule = "reserved-address"
	RuleVLANNameConflict Rule = "vlan-name-conflict"
	RuleLoopDetected     Rule = "loop-detected"
	RuleProtocolAdvisory Rule = "protocol-advisory"
	RuleAggregationHint  Rule = "aggregation-hint"
)

// Rule is the stable identifier of a validation rule.
type Rule string

// Finding is one validation result: what rule fired, how severe it is,
// and which entities are implicated. Findings are append-only output of
// validation and never mutated afterward.
type Finding struct {
	Severity  Severity   `json:"severity"`
	Rule      Rule       `json:"rule"`
	Message   string     `json:"message"`
	Device    string     `json:"device,omitempty"`
	Interface string     `json:"interface,omitempty"`
	Subnet    string     `json:"subnet,omitempty"`
	Related   []Endpoint `json:"related,omitempty"`
}

// FindingCounts tallies findings by severity.
type FindingCounts struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Infos    int `json:"infos"`
}

// CountFindings tallies a finding list by severity.
func CountFindings(findings []Finding) FindingCounts {
	var c FindingCounts
	for _, f := range findings {
		switch f.Severity {
		case SeverityError:
			c.Errors++
		case SeverityWarning:
			c.Warnings++
		default:
			c.Infos++
		}
	}
	return c
}
