package namednumber

import "fmt"

// IPNumber is an IANA assigned internet protocol number, as found in the
// IPv4 protocol field and the IPv6 next header field.
type IPNumber uint8

const (
	IPNumberHopByHop        IPNumber = 0
	IPNumberICMPv4          IPNumber = 1
	IPNumberIGMP            IPNumber = 2
	IPNumberIPv4            IPNumber = 4
	IPNumberTCP             IPNumber = 6
	IPNumberUDP             IPNumber = 17
	IPNumberIPv6            IPNumber = 41
	IPNumberIPv6Routing     IPNumber = 43
	IPNumberIPv6Fragment    IPNumber = 44
	IPNumberGRE             IPNumber = 47
	IPNumberESP             IPNumber = 50
	IPNumberAH              IPNumber = 51
	IPNumberICMPv6          IPNumber = 58
	IPNumberIPv6NoNext      IPNumber = 59
	IPNumberIPv6DestOptions IPNumber = 60
	IPNumberSCTP            IPNumber = 132
)

var ipNumbers = newRegistry(map[IPNumber]string{
	IPNumberHopByHop:        "IPv6 Hop-by-Hop Option",
	IPNumberICMPv4:          "ICMPv4",
	IPNumberIGMP:            "IGMP",
	IPNumberIPv4:            "IPv4",
	IPNumberTCP:             "TCP",
	IPNumberUDP:             "UDP",
	IPNumberIPv6:            "IPv6",
	IPNumberIPv6Routing:     "Routing Header for IPv6",
	IPNumberIPv6Fragment:    "Fragment Header for IPv6",
	IPNumberGRE:             "GRE",
	IPNumberESP:             "ESP",
	IPNumberAH:              "AH",
	IPNumberICMPv6:          "ICMPv6",
	IPNumberIPv6NoNext:      "No Next Header for IPv6",
	IPNumberIPv6DestOptions: "Destination Options for IPv6",
	IPNumberSCTP:            "SCTP",
})

// Name returns the symbolic name of n.
func (n IPNumber) Name() string { return ipNumbers.name(n) }

func (n IPNumber) String() string {
	return fmt.Sprintf("%d (%s)", uint8(n), n.Name())
}

// IPNumberByName returns the protocol number registered under name.
func IPNumberByName(name string) (IPNumber, bool) { return ipNumbers.lookup(name) }

// RegisterIPNumber adds or replaces the name of a protocol number.
func RegisterIPNumber(n IPNumber, name string) { ipNumbers.register(n, name) }
