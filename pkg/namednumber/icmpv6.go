package namednumber

import (
	"fmt"

	"golang.org/x/net/ipv6"
)

// ICMPv6Type is the type field of an ICMPv6 message.
type ICMPv6Type uint8

const (
	ICMPv6TypeDestinationUnreachable ICMPv6Type = 1
	ICMPv6TypePacketTooBig           ICMPv6Type = 2
	ICMPv6TypeTimeExceeded           ICMPv6Type = 3
	ICMPv6TypeParameterProblem       ICMPv6Type = 4
	ICMPv6TypeEchoRequest            ICMPv6Type = 128
	ICMPv6TypeEchoReply              ICMPv6Type = 129
	ICMPv6TypeRouterSolicitation     ICMPv6Type = 133
	ICMPv6TypeRouterAdvertisement    ICMPv6Type = 134
	ICMPv6TypeNeighborSolicitation   ICMPv6Type = 135
	ICMPv6TypeNeighborAdvertisement  ICMPv6Type = 136
	ICMPv6TypeRedirect               ICMPv6Type = 137
)

// icmpv6Types is seeded from the IANA table shipped with x/net.
var icmpv6Types = func() *registry[ICMPv6Type] {
	names := make(map[ICMPv6Type]string)
	for i := 0; i < 256; i++ {
		if s := ipv6.ICMPType(i).String(); s != "<nil>" && s != "" {
			names[ICMPv6Type(i)] = s
		}
	}
	return newRegistry(names)
}()

// Name returns the IANA name of t, e.g. "redirect message".
func (t ICMPv6Type) Name() string { return icmpv6Types.name(t) }

// IsError reports whether t is an error message type (RFC 4443 §2.1).
func (t ICMPv6Type) IsError() bool { return t < 128 }

func (t ICMPv6Type) String() string {
	return fmt.Sprintf("%d (%s)", uint8(t), t.Name())
}

// ICMPv6TypeByName returns the type registered under name.
func ICMPv6TypeByName(name string) (ICMPv6Type, bool) { return icmpv6Types.lookup(name) }

// RegisterICMPv6Type adds or replaces the name of an ICMPv6 type.
func RegisterICMPv6Type(t ICMPv6Type, name string) { icmpv6Types.register(t, name) }

// ICMPv6Code is the code field of an ICMPv6 message. Its meaning depends on
// the message type.
type ICMPv6Code uint8

// ICMPv6CodeNoCode is used by every message type that does not define codes.
const ICMPv6CodeNoCode ICMPv6Code = 0

var icmpv6Codes = map[ICMPv6Type]map[ICMPv6Code]string{
	ICMPv6TypeDestinationUnreachable: {
		0: "no route to destination",
		1: "communication with destination administratively prohibited",
		2: "beyond scope of source address",
		3: "address unreachable",
		4: "port unreachable",
		5: "source address failed ingress/egress policy",
		6: "reject route to destination",
	},
	ICMPv6TypeTimeExceeded: {
		0: "hop limit exceeded in transit",
		1: "fragment reassembly time exceeded",
	},
	ICMPv6TypeParameterProblem: {
		0: "erroneous header field encountered",
		1: "unrecognized Next Header type encountered",
		2: "unrecognized IPv6 option encountered",
	},
}

// NameFor returns the name of c in the context of message type t.
func (c ICMPv6Code) NameFor(t ICMPv6Type) string {
	if codes, ok := icmpv6Codes[t]; ok {
		if n, ok := codes[c]; ok {
			return n
		}
		return unknownName
	}
	if c == ICMPv6CodeNoCode {
		return "No Code"
	}
	return unknownName
}

// Format renders c as "value (name)" for message type t.
func (c ICMPv6Code) Format(t ICMPv6Type) string {
	return fmt.Sprintf("%d (%s)", uint8(c), c.NameFor(t))
}

func (c ICMPv6Code) String() string { return fmt.Sprintf("%d", uint8(c)) }
