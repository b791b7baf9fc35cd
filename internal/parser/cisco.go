// Package parser reads Cisco-style device configuration files into the
// normalized device model. It is a thin adapter in front of the analysis
// core: one bad line never fails a run, and unparseable addresses are
// preserved verbatim for validation to report.
package parser

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"net/netip"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/HerbHall/netlens/pkg/models"
	"go.uber.org/zap"
)

var (
	reInterface = regexp.MustCompile(`^interface\s+(\S+)`)
	reIPAddress = regexp.MustCompile(`^ip address\s+(\S+)\s+(\S+)`)
	reIPv6Addr  = regexp.MustCompile(`^ipv6 address\s+(\S+)`)
	reVLAN      = regexp.MustCompile(`^switchport access vlan\s+(\d+)`)
	reMTU       = regexp.MustCompile(`^mtu\s+(\d+)`)
	reBandwidth = regexp.MustCompile(`^bandwidth\s+(\d+)`)
	reVLANDef   = regexp.MustCompile(`^vlan\s+(\d+)(?:\s+name\s+(\S+))?`)
	reRouter    = regexp.MustCompile(`^router\s+(ospf|bgp)\b`)
)

// Parser reads device configurations. Zero value is not usable; use New.
type Parser struct {
	logger *zap.Logger
}

// New creates a Parser.
func New(logger *zap.Logger) *Parser {
	return &Parser{logger: logger}
}

// ParseDirectory walks dir and parses every *.cfg and *.dump file into a
// device model. Devices are returned sorted by name. Files that cannot
// be read are skipped with a log entry; parsing itself never fails.
func (p *Parser) ParseDirectory(dir string) ([]models.Device, error) {
	var devices []models.Device
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isConfigFile(path) {
			return nil
		}
		dev, err := p.ParseFile(path)
		if err != nil {
			p.logger.Warn("skipping unreadable config file",
				zap.String("path", path),
				zap.Error(err),
			)
			return nil
		}
		devices = append(devices, dev)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %q: %w", dir, err)
	}

	sort.Slice(devices, func(i, j int) bool { return devices[i].Name < devices[j].Name })
	return devices, nil
}

// ParseFile parses one configuration file. The device name comes from the
// hostname statement, falling back to the enclosing directory or file name.
func (p *Parser) ParseFile(path string) (models.Device, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Device{}, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	dev, err := p.Parse(f, deviceNameFromPath(path))
	if err != nil {
		return models.Device{}, err
	}
	dev.Source = path
	return dev, nil
}

// Parse reads one device configuration from r. fallbackName is used when
// the config declares no hostname.
func (p *Parser) Parse(r io.Reader, fallbackName string) (models.Device, error) {
	dev := models.Device{Name: fallbackName}

	var cur *models.Interface
	flush := func() {
		if cur != nil {
			dev.Interfaces = append(dev.Interfaces, *cur)
			cur = nil
		}
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		raw := scanner.Text()
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "!") {
			continue
		}

		// A non-indented statement ends any open interface block.
		indented := strings.HasPrefix(raw, " ") || strings.HasPrefix(raw, "\t")
		if cur != nil && !indented && !strings.HasPrefix(line, "interface ") {
			flush()
		}

		switch {
		case strings.HasPrefix(line, "hostname "):
			dev.Name = strings.TrimSpace(strings.TrimPrefix(line, "hostname "))

		case reInterface.MatchString(line):
			flush()
			name := reInterface.FindStringSubmatch(line)[1]
			cur = &models.Interface{
				Device:     dev.Name,
				Name:       name,
				AdminState: models.AdminStateUp,
				MTU:        models.DefaultMTU,
			}

		case cur != nil && reIPAddress.MatchString(line):
			m := reIPAddress.FindStringSubmatch(line)
			applyAddress(cur, m[1], m[2])

		case cur != nil && reIPv6Addr.MatchString(line):
			applyCIDR(cur, reIPv6Addr.FindStringSubmatch(line)[1])

		case cur != nil && reVLAN.MatchString(line):
			cur.VLAN, _ = strconv.Atoi(reVLAN.FindStringSubmatch(line)[1])

		case cur != nil && reMTU.MatchString(line):
			cur.MTU, _ = strconv.Atoi(reMTU.FindStringSubmatch(line)[1])

		case cur != nil && reBandwidth.MatchString(line):
			cur.Bandwidth, _ = strconv.Atoi(reBandwidth.FindStringSubmatch(line)[1])

		case cur != nil && strings.HasPrefix(line, "description "):
			cur.Description = strings.TrimSpace(strings.TrimPrefix(line, "description "))

		case cur != nil && line == "shutdown":
			cur.AdminState = models.AdminStateDown

		case cur != nil && line == "no shutdown":
			cur.AdminState = models.AdminStateUp

		case reRouter.MatchString(line):
			proto := models.RoutingProtocol(reRouter.FindStringSubmatch(line)[1])
			if !hasProtocol(dev.Protocols, proto) {
				dev.Protocols = append(dev.Protocols, proto)
			}

		case cur == nil && reVLANDef.MatchString(line):
			m := reVLANDef.FindStringSubmatch(line)
			id, _ := strconv.Atoi(m[1])
			name := m[2]
			if name == "" {
				name = fmt.Sprintf("VLAN_%d", id)
			}
			if dev.VLANs == nil {
				dev.VLANs = make(map[int]string)
			}
			dev.VLANs[id] = name
		}
	}
	if err := scanner.Err(); err != nil {
		return models.Device{}, fmt.Errorf("read config: %w", err)
	}
	flush()

	// Interface device back-references use the final hostname.
	for i := range dev.Interfaces {
		dev.Interfaces[i].Device = dev.Name
	}

	p.logger.Debug("parsed device config",
		zap.String("device", dev.Name),
		zap.Int("interfaces", len(dev.Interfaces)),
	)
	return dev, nil
}

// applyAddress normalizes "ip address A MASK" statements. The dotted
// mask is converted to a prefix length; anything unparseable lands in
// RawAddress for the malformed-address rule.
func applyAddress(iface *models.Interface, addr, mask string) {
	prefixLen, ok := maskToPrefixLen(mask)
	if !ok {
		iface.RawAddress = addr + " " + mask
		return
	}
	if _, err := netip.ParseAddr(addr); err != nil {
		iface.RawAddress = addr + " " + mask
		return
	}
	iface.Address = addr
	iface.PrefixLen = prefixLen
	iface.RawAddress = ""
}

// applyCIDR normalizes "ipv6 address A/P" statements.
func applyCIDR(iface *models.Interface, cidr string) {
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		iface.RawAddress = cidr
		return
	}
	iface.Address = prefix.Addr().String()
	iface.PrefixLen = prefix.Bits()
	iface.RawAddress = ""
}

// maskToPrefixLen converts a dotted-decimal IPv4 mask to a prefix length.
// Non-contiguous masks are rejected.
func maskToPrefixLen(mask string) (int, bool) {
	addr, err := netip.ParseAddr(mask)
	if err != nil || !addr.Is4() {
		return 0, false
	}
	a4 := addr.As4()
	bits := 0
	seenZero := false
	for _, b := range a4 {
		for i := 7; i >= 0; i-- {
			if b&(1<<i) != 0 {
				if seenZero {
					return 0, false
				}
				bits++
			} else {
				seenZero = true
			}
		}
	}
	return bits, true
}

func deviceNameFromPath(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "config" {
		// Layouts like configs/R1/config.dump name the device by directory.
		if dir := filepath.Base(filepath.Dir(path)); dir != "." && dir != string(filepath.Separator) {
			return dir
		}
	}
	return name
}

func isConfigFile(path string) bool {
	switch filepath.Ext(path) {
	case ".cfg", ".dump":
		return true
	}
	return false
}

func hasProtocol(ps []models.RoutingProtocol, p models.RoutingProtocol) bool {
	for _, q := range ps {
		if q == p {
			return true
		}
	}
	return false
}
