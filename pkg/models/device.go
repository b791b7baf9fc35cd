package models

// AdminState represents the administrative state of an interface.
type AdminState string

const (
	AdminStateUp   AdminState = "up"
	AdminStateDown AdminState = "down"
)

// RoutingProtocol identifies a routing protocol declared on a device.
type RoutingProtocol string

const (
	ProtocolOSPF   RoutingProtocol = "ospf"
	ProtocolBGP    RoutingProtocol = "bgp"
	ProtocolStatic RoutingProtocol = "static"
)

// DefaultMTU is assumed when a config declares no mtu statement.
const DefaultMTU = 1500

// Interface represents one named, addressable port on a device.
// It references its owning device by name only; the device collection
// is the single owner of interface values.
type Interface struct {
	Device      string     `json:"device"`
	Name        string     `json:"name"`
	Address     string     `json:"address,omitempty"`
	PrefixLen   int        `json:"prefix_len,omitempty"`
	AdminState  AdminState `json:"admin_state"`
	VLAN        int        `json:"vlan,omitempty"` // 0 = untagged
	MTU         int        `json:"mtu"`
	Bandwidth   int        `json:"bandwidth,omitempty"` // Mbps
	Description string     `json:"description,omitempty"`

	// RawAddress preserves the address text exactly as declared when it
	// failed to parse, so findings can quote the offending value.
	RawAddress string `json:"raw_address,omitempty"`
}

// HasAddress reports whether the interface has a parseable address assigned.
func (i Interface) HasAddress() bool {
	return i.Address != "" && i.PrefixLen > 0
}

// IsUp reports whether the interface is administratively up.
func (i Interface) IsUp() bool {
	return i.AdminState != AdminStateDown
}

// Device represents one network device built from a parsed configuration.
// Immutable once built; interfaces keep their declaration order.
type Device struct {
	Name       string            `json:"name"`
	Interfaces []Interface       `json:"interfaces"`
	Protocols  []RoutingProtocol `json:"protocols,omitempty"`
	VLANs      map[int]string    `json:"vlans,omitempty"`  // vlan id -> name
	Source     string            `json:"source,omitempty"` // config file path
}

// Interface returns the named interface and whether it exists.
func (d Device) Interface(name string) (Interface, bool) {
	for _, iface := range d.Interfaces {
		if iface.Name == name {
			return iface, true
		}
	}
	return Interface{}, false
}
