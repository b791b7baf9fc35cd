package validate

import (
	"fmt"
	"net/netip"
	"sort"
	"strings"

	"github.com/HerbHall/netlens/pkg/models"
)

// checkDuplicateAddress flags a device declaring the same address on two
// of its interfaces.
func checkDuplicateAddress(ctx *ruleContext) []models.Finding {
	var findings []models.Finding
	for _, dev := range ctx.devices {
		byAddr := make(map[netip.Addr][]models.Interface)
		for _, iface := range dev.Interfaces {
			if addr, ok := parseAddr(iface); ok {
				byAddr[addr] = append(byAddr[addr], iface)
			}
		}
		for addr, ifaces := range byAddr {
			if len(ifaces) < 2 {
				continue
			}
			names := interfaceNames(ifaces)
			findings = append(findings, models.Finding{
				Severity:  models.SeverityError,
				Message:   fmt.Sprintf("device %s declares %s on multiple interfaces: %s", dev.Name, addr, strings.Join(names, ", ")),
				Device:    dev.Name,
				Interface: names[0],
				Related:   endpoints(dev.Name, ifaces),
			})
		}
	}
	return findings
}

// checkAddressConflict flags the same address claimed by interfaces on
// two or more distinct devices. Identical addresses can never share a
// valid link (the builder refuses to link conflicted groups), so every
// cross-device claim is a conflict.
func checkAddressConflict(ctx *ruleContext) []models.Finding {
	type claim struct {
		device string
		iface  models.Interface
	}
	byAddr := make(map[netip.Addr][]claim)
	for _, dev := range ctx.devices {
		for _, iface := range dev.Interfaces {
			if addr, ok := parseAddr(iface); ok {
				byAddr[addr] = append(byAddr[addr], claim{dev.Name, iface})
			}
		}
	}

	var findings []models.Finding
	for addr, claims := range byAddr {
		devs := make(map[string]bool)
		for _, c := range claims {
			devs[c.device] = true
		}
		if len(devs) < 2 {
			continue
		}
		sort.Slice(claims, func(i, j int) bool {
			if claims[i].device != claims[j].device {
				return claims[i].device < claims[j].device
			}
			return claims[i].iface.Name < claims[j].iface.Name
		})
		refs := make([]models.Endpoint, len(claims))
		parts := make([]string, len(claims))
		for i, c := range claims {
			refs[i] = models.Endpoint{Device: c.device, Interface: c.iface.Name, Address: addr.String()}
			parts[i] = c.device + ":" + c.iface.Name
		}
		findings = append(findings, models.Finding{
			Severity:  models.SeverityError,
			Message:   fmt.Sprintf("address %s claimed by multiple devices: %s", addr, strings.Join(parts, ", ")),
			Device:    claims[0].device,
			Interface: claims[0].iface.Name,
			Related:   refs,
		})
	}
	return findings
}

// checkMaskMismatch flags interfaces sharing a network address while
// declaring different prefix lengths.
func checkMaskMismatch(ctx *ruleContext) []models.Finding {
	type member struct {
		ep     models.Endpoint
		prefix int
	}
	byNetwork := make(map[netip.Addr][]member)
	for _, dev := range ctx.devices {
		for _, iface := range dev.Interfaces {
			addr, ok := parseAddr(iface)
			if !ok {
				continue
			}
			prefix, err := addr.Prefix(iface.PrefixLen)
			if err != nil {
				continue
			}
			byNetwork[prefix.Addr()] = append(byNetwork[prefix.Addr()], member{
				ep:     models.Endpoint{Device: dev.Name, Interface: iface.Name, Address: addr.String()},
				prefix: iface.PrefixLen,
			})
		}
	}

	var findings []models.Finding
	for network, members := range byNetwork {
		lens := make(map[int]bool)
		for _, m := range members {
			lens[m.prefix] = true
		}
		if len(lens) < 2 {
			continue
		}
		sort.Slice(members, func(i, j int) bool {
			if members[i].ep.Device != members[j].ep.Device {
				return members[i].ep.Device < members[j].ep.Device
			}
			return members[i].ep.Interface < members[j].ep.Interface
		})
		refs := make([]models.Endpoint, len(members))
		parts := make([]string, len(members))
		for i, m := range members {
			refs[i] = m.ep
			parts[i] = fmt.Sprintf("%s:%s (/%d)", m.ep.Device, m.ep.Interface, m.prefix)
		}
		findings = append(findings, models.Finding{
			Severity:  models.SeverityError,
			Message:   fmt.Sprintf("network %s declared with mismatched prefix lengths: %s", network, strings.Join(parts, ", ")),
			Device:    members[0].ep.Device,
			Interface: members[0].ep.Interface,
			Related:   refs,
		})
	}
	return findings
}

// checkOrphanInterface flags admin-up addressed interfaces that belong to
// no multi-device subnet group: a possibly broken link, or an
// intentionally unconnected segment.
func checkOrphanInterface(ctx *ruleContext) []models.Finding {
	multiDevice := make(map[string]bool, len(ctx.graph.Subnets))
	for _, g := range ctx.graph.Subnets {
		if g.DeviceCount() >= 2 {
			multiDevice[g.Subnet] = true
		}
	}

	var findings []models.Finding
	for _, g := range ctx.graph.Subnets {
		if multiDevice[g.Subnet] {
			continue
		}
		for _, ep := range g.Endpoints {
			findings = append(findings, models.Finding{
				Severity:  models.SeverityWarning,
				Message:   fmt.Sprintf("interface %s:%s (%s) has no peer on subnet %s", ep.Device, ep.Interface, ep.Address, g.Subnet),
				Device:    ep.Device,
				Interface: ep.Interface,
				Subnet:    g.Subnet,
			})
		}
	}
	return findings
}

// checkIsolatedDevice flags devices with zero inferred links.
func checkIsolatedDevice(ctx *ruleContext) []models.Finding {
	var findings []models.Finding
	for _, dev := range ctx.devices {
		if ctx.graph.LinkCount(dev.Name) > 0 {
			continue
		}
		findings = append(findings, models.Finding{
			Severity: models.SeverityWarning,
			Message:  fmt.Sprintf("device %s has no links to any other device", dev.Name),
			Device:   dev.Name,
		})
	}
	return findings
}

// checkVLANMismatch flags links whose endpoints declare different
// non-zero VLAN tags. Untagged endpoints are not mismatches.
func checkVLANMismatch(ctx *ruleContext) []models.Finding {
	var findings []models.Finding
	for _, link := range ctx.graph.Links {
		tags := make(map[int]bool)
		var parts []string
		for _, ep := range link.Endpoints {
			iface, ok := ctx.lookup(ep.Device, ep.Interface)
			if !ok || iface.VLAN == 0 {
				continue
			}
			tags[iface.VLAN] = true
			parts = append(parts, fmt.Sprintf("%s:%s (vlan %d)", ep.Device, ep.Interface, iface.VLAN))
		}
		if len(tags) < 2 {
			continue
		}
		findings = append(findings, models.Finding{
			Severity:  models.SeverityError,
			Message:   fmt.Sprintf("link on %s has mismatched VLAN tags: %s", link.Subnet, strings.Join(parts, ", ")),
			Device:    link.Endpoints[0].Device,
			Interface: link.Endpoints[0].Interface,
			Subnet:    link.Subnet,
			Related:   link.Endpoints,
		})
	}
	return findings
}

// checkMalformedAddress surfaces the builder's address anomalies, quoting
// the raw offending value.
func checkMalformedAddress(ctx *ruleContext) []models.Finding {
	var findings []models.Finding
	for _, a := range ctx.graph.Anomalies {
		findings = append(findings, models.Finding{
			Severity:  models.SeverityError,
			Message:   fmt.Sprintf("interface %s:%s has malformed address %q: %s", a.Device, a.Interface, a.Raw, a.Reason),
			Device:    a.Device,
			Interface: a.Interface,
		})
	}
	return findings
}

// checkMTUMismatch flags links whose endpoints disagree on MTU.
func checkMTUMismatch(ctx *ruleContext) []models.Finding {
	var findings []models.Finding
	for _, link := range ctx.graph.Links {
		mtus := make(map[int]bool)
		parts := make([]string, 0, len(link.Endpoints))
		for _, ep := range link.Endpoints {
			iface, ok := ctx.lookup(ep.Device, ep.Interface)
			if !ok {
				continue
			}
			mtu := iface.MTU
			if mtu == 0 {
				mtu = models.DefaultMTU
			}
			mtus[mtu] = true
			parts = append(parts, fmt.Sprintf("%s:%s (%d)", ep.Device, ep.Interface, mtu))
		}
		if len(mtus) < 2 {
			continue
		}
		findings = append(findings, models.Finding{
			Severity:  models.SeverityWarning,
			Message:   fmt.Sprintf("link on %s has mismatched MTUs: %s", link.Subnet, strings.Join(parts, ", ")),
			Device:    link.Endpoints[0].Device,
			Interface: link.Endpoints[0].Interface,
			Subnet:    link.Subnet,
			Related:   link.Endpoints,
		})
	}
	return findings
}

// checkReservedAddress flags IPv4 interfaces using their subnet's network
// or broadcast address. /31 point-to-point and /32 host addresses have no
// such reservation.
func checkReservedAddress(ctx *ruleContext) []models.Finding {
	var findings []models.Finding
	for _, dev := range ctx.devices {
		for _, iface := range dev.Interfaces {
			addr, ok := parseAddr(iface)
			if !ok || !addr.Is4() || iface.PrefixLen >= 31 {
				continue
			}
			prefix, err := addr.Prefix(iface.PrefixLen)
			if err != nil {
				continue
			}
			var kind string
			switch addr {
			case prefix.Addr():
				kind = "network"
			case broadcastAddr(prefix):
				kind = "broadcast"
			default:
				continue
			}
			findings = append(findings, models.Finding{
				Severity:  models.SeverityWarning,
				Message:   fmt.Sprintf("interface %s:%s uses the %s address of %s", dev.Name, iface.Name, kind, prefix),
				Device:    dev.Name,
				Interface: iface.Name,
				Subnet:    prefix.String(),
			})
		}
	}
	return findings
}

// checkVLANNameConflict flags a VLAN id named inconsistently across
// devices.
func checkVLANNameConflict(ctx *ruleContext) []models.Finding {
	names := make(map[int]map[string][]string) // vlan id -> name -> devices
	for _, dev := range ctx.devices {
		for id, name := range dev.VLANs {
			if names[id] == nil {
				names[id] = make(map[string][]string)
			}
			names[id][name] = append(names[id][name], dev.Name)
		}
	}

	var findings []models.Finding
	for id, byName := range names {
		if len(byName) < 2 {
			continue
		}
		parts := make([]string, 0, len(byName))
		for name, devs := range byName {
			sort.Strings(devs)
			parts = append(parts, fmt.Sprintf("%q on %s", name, strings.Join(devs, ", ")))
		}
		sort.Strings(parts)
		findings = append(findings, models.Finding{
			Severity: models.SeverityWarning,
			Message:  fmt.Sprintf("VLAN %d has inconsistent names: %s", id, strings.Join(parts, "; ")),
		})
	}
	return findings
}

// Advisory thresholds: beyond this size, link-state flooding costs start
// to favor BGP between segments.
const (
	advisoryDeviceThreshold = 20
	advisoryLinkThreshold   = 30
	advisoryDeviceListMax   = 5
)

// checkLoops flags links that close a redundant path between devices.
// Links are walked in their sorted order, merging each link's devices
// into connected components; a link whose devices already share a
// component closes a loop.
func checkLoops(ctx *ruleContext) []models.Finding {
	parent := make(map[string]string)
	var find func(string) string
	find = func(d string) string {
		p, ok := parent[d]
		if !ok || p == d {
			return d
		}
		root := find(p)
		parent[d] = root
		return root
	}

	var findings []models.Finding
	for _, link := range ctx.graph.Links {
		devs := link.Devices()
		looped := false
		for _, d := range devs[1:] {
			a, b := find(devs[0]), find(d)
			if a == b {
				looped = true
				continue
			}
			parent[b] = a
		}
		if looped {
			findings = append(findings, models.Finding{
				Severity:  models.SeverityWarning,
				Message:   fmt.Sprintf("link on %s closes a loop between %s", link.Subnet, strings.Join(devs, ", ")),
				Device:    link.Endpoints[0].Device,
				Interface: link.Endpoints[0].Interface,
				Subnet:    link.Subnet,
				Related:   link.Endpoints,
			})
		}
	}
	return findings
}

// checkProtocolAdvisory suggests BGP over OSPF once the network outgrows
// link-state flooding. Purely informational.
func checkProtocolAdvisory(ctx *ruleContext) []models.Finding {
	if len(ctx.devices) <= advisoryDeviceThreshold && len(ctx.graph.Links) <= advisoryLinkThreshold {
		return nil
	}

	var ospf []string
	for _, dev := range ctx.devices {
		for _, p := range dev.Protocols {
			if p == models.ProtocolOSPF {
				ospf = append(ospf, dev.Name)
				break
			}
		}
	}
	if len(ospf) == 0 {
		return nil
	}
	sort.Strings(ospf)

	listed := ospf
	suffix := ""
	if len(listed) > advisoryDeviceListMax {
		listed = listed[:advisoryDeviceListMax]
		suffix = ", ..."
	}
	return []models.Finding{{
		Severity: models.SeverityInfo,
		Message: fmt.Sprintf("network has %d devices and %d links; consider BGP instead of OSPF on: %s%s",
			len(ctx.devices), len(ctx.graph.Links), strings.Join(listed, ", "), suffix),
		Device: ospf[0],
	}}
}

// checkAggregationHint points out pass-through devices (exactly two
// neighbors, at most two active interfaces) that could be collapsed into
// their neighbors. Purely informational.
func checkAggregationHint(ctx *ruleContext) []models.Finding {
	neighbors := make(map[string]map[string]bool)
	for _, link := range ctx.graph.Links {
		devs := link.Devices()
		for _, a := range devs {
			for _, b := range devs {
				if a == b {
					continue
				}
				if neighbors[a] == nil {
					neighbors[a] = make(map[string]bool)
				}
				neighbors[a][b] = true
			}
		}
	}

	var findings []models.Finding
	for _, dev := range ctx.devices {
		if len(neighbors[dev.Name]) != 2 {
			continue
		}
		active := 0
		for _, iface := range dev.Interfaces {
			if iface.IsUp() && iface.HasAddress() {
				active++
			}
		}
		if active > 2 {
			continue
		}
		peers := make([]string, 0, 2)
		for n := range neighbors[dev.Name] {
			peers = append(peers, n)
		}
		sort.Strings(peers)
		findings = append(findings, models.Finding{
			Severity: models.SeverityInfo,
			Message:  fmt.Sprintf("device %s might be aggregated with neighbors %s", dev.Name, strings.Join(peers, ", ")),
			Device:   dev.Name,
		})
	}
	return findings
}

// parseAddr returns the canonical parsed address of an interface, or
// false for interfaces without a valid assigned address.
func parseAddr(iface models.Interface) (netip.Addr, bool) {
	if !iface.HasAddress() {
		return netip.Addr{}, false
	}
	addr, err := netip.ParseAddr(iface.Address)
	if err != nil || iface.PrefixLen > addr.BitLen() {
		return netip.Addr{}, false
	}
	return addr, true
}

// broadcastAddr returns the last address of an IPv4 prefix.
func broadcastAddr(prefix netip.Prefix) netip.Addr {
	a4 := prefix.Addr().As4()
	bits := prefix.Bits()
	for i := 0; i < 4; i++ {
		hostBits := 8 * (i + 1)
		if hostBits > bits {
			shift := hostBits - bits
			if shift > 8 {
				shift = 8
			}
			a4[i] |= byte(0xff >> (8 - shift))
		}
	}
	return netip.AddrFrom4(a4)
}

func interfaceNames(ifaces []models.Interface) []string {
	names := make([]string, len(ifaces))
	for i, iface := range ifaces {
		names[i] = iface.Name
	}
	sort.Strings(names)
	return names
}

func endpoints(device string, ifaces []models.Interface) []models.Endpoint {
	eps := make([]models.Endpoint, len(ifaces))
	for i, iface := range ifaces {
		eps[i] = models.Endpoint{Device: device, Interface: iface.Name, Address: iface.Address}
	}
	sort.Slice(eps, func(i, j int) bool { return eps[i].Interface < eps[j].Interface })
	return eps
}
