package namednumber

import "fmt"

// EtherType is the 16-bit protocol identifier of an Ethernet II frame.
type EtherType uint16

const (
	EtherTypeIPv4  EtherType = 0x0800
	EtherTypeARP   EtherType = 0x0806
	EtherTypeRARP  EtherType = 0x8035
	EtherTypeDot1Q EtherType = 0x8100
	EtherTypeIPv6  EtherType = 0x86dd
	EtherTypePPPoE EtherType = 0x8864
	EtherTypeMPLS  EtherType = 0x8847
	EtherTypeQinQ  EtherType = 0x88a8
	EtherTypeLLDP  EtherType = 0x88cc
)

// etherTypeMaxLength is the largest value of the field that is an IEEE 802.3
// length rather than an EtherType.
const etherTypeMaxLength = 1500

var etherTypes = newRegistry(map[EtherType]string{
	EtherTypeIPv4:  "IPv4",
	EtherTypeARP:   "ARP",
	EtherTypeRARP:  "RARP",
	EtherTypeDot1Q: "IEEE 802.1Q VLAN-tagged frames",
	EtherTypeIPv6:  "IPv6",
	EtherTypePPPoE: "PPPoE Session Stage",
	EtherTypeMPLS:  "MPLS",
	EtherTypeQinQ:  "IEEE 802.1ad QinQ",
	EtherTypeLLDP:  "LLDP",
})

// IsLength reports whether the value is an IEEE 802.3 payload length.
func (t EtherType) IsLength() bool { return t <= etherTypeMaxLength }

// Name returns the symbolic name of t.
func (t EtherType) Name() string {
	if t.IsLength() {
		return "Length"
	}
	return etherTypes.name(t)
}

func (t EtherType) String() string {
	return fmt.Sprintf("0x%04x (%s)", uint16(t), t.Name())
}

// EtherTypeByName returns the EtherType registered under name.
func EtherTypeByName(name string) (EtherType, bool) { return etherTypes.lookup(name) }

// RegisterEtherType adds or replaces the name of an EtherType.
func RegisterEtherType(t EtherType, name string) { etherTypes.register(t, name) }
