package models

// Endpoint identifies one interface participating in a link or subnet
// group, referencing device and interface by name.
type Endpoint struct {
	Device    string `json:"device"`
	Interface string `json:"interface"`
	Address   string `json:"address"`
}

// Link represents an inferred connection between interfaces of distinct
// devices sharing a subnet. Endpoints are sorted by (device, interface).
type Link struct {
	Subnet    string     `json:"subnet"` // canonical CIDR, e.g. "10.0.0.0/30"
	Endpoints []Endpoint `json:"endpoints"`
}

// Devices returns the distinct device names on the link, in endpoint order.
func (l Link) Devices() []string {
	seen := make(map[string]bool, len(l.Endpoints))
	names := make([]string, 0, len(l.Endpoints))
	for _, ep := range l.Endpoints {
		if !seen[ep.Device] {
			seen[ep.Device] = true
			names = append(names, ep.Device)
		}
	}
	return names
}

// SubnetGroup records every interface whose address falls within one
// canonical subnet, whether or not the group produced a link. Groups are
// how unconnected and conflicted networks stay visible to validation.
type SubnetGroup struct {
	Subnet    string     `json:"subnet"`
	Endpoints []Endpoint `json:"endpoints"`

	// Conflicted marks a group containing the same address on more than
	// one interface; conflicted groups never yield a link.
	Conflicted bool `json:"conflicted,omitempty"`
}

// DeviceCount returns the number of distinct devices in the group.
func (g SubnetGroup) DeviceCount() int {
	seen := make(map[string]bool, len(g.Endpoints))
	for _, ep := range g.Endpoints {
		seen[ep.Device] = true
	}
	return len(seen)
}

// AddressAnomaly records an interface whose declared address could not be
// parsed. Anomalies are carried on the graph so validation can surface
// them without the builder ever failing a run.
type AddressAnomaly struct {
	Device    string `json:"device"`
	Interface string `json:"interface"`
	Raw       string `json:"raw"`
	Reason    string `json:"reason"`
}

// TopologyGraph is the complete inferred topology for one analysis run:
// all devices (nodes), all inferred links (edges), every subnet group,
// and the address anomalies encountered while grouping. Built once,
// then read-only.
type TopologyGraph struct {
	Devices   []Device         `json:"devices"`
	Links     []Link           `json:"links"`
	Subnets   []SubnetGroup    `json:"subnets"`
	Anomalies []AddressAnomaly `json:"anomalies,omitempty"`
}

// LinkCount returns the number of links touching the named device.
func (g *TopologyGraph) LinkCount(device string) int {
	n := 0
	for _, l := range g.Links {
		for _, ep := range l.Endpoints {
			if ep.Device == device {
				n++
				break
			}
		}
	}
	return n
}
