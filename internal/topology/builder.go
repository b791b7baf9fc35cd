// Package topology infers the network topology from declared interface
// addressing. Build is a pure function over parsed device models: no I/O,
// no mutation of inputs, deterministic output ordering.
package topology

import (
	"fmt"
	"net/netip"
	"sort"

	"github.com/HerbHall/netlens/pkg/models"
)

// endpoint pairs a graph endpoint with its parsed address for grouping.
type endpoint struct {
	ep   models.Endpoint
	addr netip.Addr
}

// Build infers links between devices by grouping administratively-up
// interfaces by the canonical subnet their address belongs to. Interfaces
// without an address, or shut down, are excluded from inference but stay
// on their device. Malformed addresses never fail the run; they become
// AddressAnomaly records on the graph for validation to surface.
func Build(devices []models.Device) *models.TopologyGraph {
	graph := &models.TopologyGraph{
		Devices: devices,
	}

	groups := make(map[netip.Prefix][]endpoint)
	var prefixes []netip.Prefix

	for _, dev := range devices {
		for _, iface := range dev.Interfaces {
			if iface.RawAddress != "" {
				graph.Anomalies = append(graph.Anomalies, models.AddressAnomaly{
					Device:    dev.Name,
					Interface: iface.Name,
					Raw:       iface.RawAddress,
					Reason:    "address failed to parse",
				})
				continue
			}
			if !iface.HasAddress() || !iface.IsUp() {
				continue
			}

			addr, prefix, err := canonicalSubnet(iface.Address, iface.PrefixLen)
			if err != nil {
				graph.Anomalies = append(graph.Anomalies, models.AddressAnomaly{
					Device:    dev.Name,
					Interface: iface.Name,
					Raw:       fmt.Sprintf("%s/%d", iface.Address, iface.PrefixLen),
					Reason:    err.Error(),
				})
				continue
			}

			if _, seen := groups[prefix]; !seen {
				prefixes = append(prefixes, prefix)
			}
			groups[prefix] = append(groups[prefix], endpoint{
				ep: models.Endpoint{
					Device:    dev.Name,
					Interface: iface.Name,
					Address:   addr.String(),
				},
				addr: addr,
			})
		}
	}

	// Ascending subnet value, then prefix length. Combined with the
	// per-group endpoint sort below, output ordering is identical for
	// any permutation of the input devices.
	sort.Slice(prefixes, func(i, j int) bool {
		if c := prefixes[i].Addr().Compare(prefixes[j].Addr()); c != 0 {
			return c < 0
		}
		return prefixes[i].Bits() < prefixes[j].Bits()
	})

	for _, prefix := range prefixes {
		members := groups[prefix]
		sort.Slice(members, func(i, j int) bool {
			if members[i].ep.Device != members[j].ep.Device {
				return members[i].ep.Device < members[j].ep.Device
			}
			return members[i].ep.Interface < members[j].ep.Interface
		})

		eps := make([]models.Endpoint, len(members))
		for i, m := range members {
			eps[i] = m.ep
		}

		group := models.SubnetGroup{
			Subnet:     prefix.String(),
			Endpoints:  eps,
			Conflicted: hasDuplicateAddress(members),
		}
		graph.Subnets = append(graph.Subnets, group)

		// A link needs at least two distinct devices and unambiguous
		// addressing. A conflicted group (same address claimed twice)
		// yields no link: the wiring is ambiguous, and validation flags
		// the conflict instead.
		if group.DeviceCount() < 2 || group.Conflicted {
			continue
		}

		link := models.Link{Subnet: prefix.String(), Endpoints: eps}
		if len(link.Devices()) < 2 {
			panic(fmt.Sprintf("topology: link on %s with fewer than two devices", link.Subnet))
		}
		graph.Links = append(graph.Links, link)
	}

	sort.Slice(graph.Anomalies, func(i, j int) bool {
		a, b := graph.Anomalies[i], graph.Anomalies[j]
		if a.Device != b.Device {
			return a.Device < b.Device
		}
		return a.Interface < b.Interface
	})

	return graph
}

// canonicalSubnet parses an address with a prefix length and returns the
// host address plus the masked network prefix. Two interfaces share a
// subnet only when both the network portion and the prefix length match;
// overlapping-but-unequal subnets stay separate groups.
func canonicalSubnet(address string, prefixLen int) (netip.Addr, netip.Prefix, error) {
	addr, err := netip.ParseAddr(address)
	if err != nil {
		return netip.Addr{}, netip.Prefix{}, fmt.Errorf("invalid address %q", address)
	}
	if prefixLen < 0 || prefixLen > addr.BitLen() {
		return netip.Addr{}, netip.Prefix{}, fmt.Errorf("invalid prefix length /%d for %s", prefixLen, address)
	}
	prefix, err := addr.Prefix(prefixLen)
	if err != nil {
		return netip.Addr{}, netip.Prefix{}, fmt.Errorf("invalid network %s/%d", address, prefixLen)
	}
	return addr, prefix, nil
}

func hasDuplicateAddress(members []endpoint) bool {
	seen := make(map[netip.Addr]bool, len(members))
	for _, m := range members {
		if seen[m.addr] {
			return true
		}
		seen[m.addr] = true
	}
	return false
}
