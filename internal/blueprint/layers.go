package blueprint

import (
	"firestige.xyz/pktcodec/pkg/namednumber"
	"firestige.xyz/pktcodec/pkg/packet"
)

// Next-protocol values carried by a layer description.
type (
	etherTyped  interface{ etherType() namednumber.EtherType }
	ipNumbered  interface{ ipNumber() namednumber.IPNumber }
	icmpv6Typed interface{ icmpv6Type() namednumber.ICMPv6Type }
)

func nextEtherType(field, explicit string, next layerSpec) (namednumber.EtherType, error) {
	if explicit != "" {
		return parseNamed(field, explicit, 16, namednumber.EtherTypeByName)
	}
	if t, ok := next.(etherTyped); ok {
		return t.etherType(), nil
	}
	return 0, invalid(field, "cannot be derived from the next layer")
}

func nextIPNumber(field, explicit string, next layerSpec) (namednumber.IPNumber, error) {
	if explicit != "" {
		return parseNamed(field, explicit, 8, namednumber.IPNumberByName)
	}
	if t, ok := next.(ipNumbered); ok {
		return t.ipNumber(), nil
	}
	if next == nil {
		return namednumber.IPNumberIPv6NoNext, nil
	}
	return 0, invalid(field, "cannot be derived from the next layer")
}

// Ethernet describes an Ethernet II header.
type Ethernet struct {
	Src  string  `yaml:"src"`
	Dst  string  `yaml:"dst"`
	Type string  `yaml:"type"`
	Pad  *string `yaml:"pad"` // hex; computed when absent
}

func (*Ethernet) layerType() packet.LayerType { return packet.LayerTypeEthernet }

func (l *Ethernet) builder(payload packet.Builder, next layerSpec, _ Options) (packet.Builder, error) {
	src, err := parseMAC("ethernet.src", l.Src)
	if err != nil {
		return nil, err
	}
	dst, err := parseMAC("ethernet.dst", l.Dst)
	if err != nil {
		return nil, err
	}
	t, err := nextEtherType("ethernet.type", l.Type, next)
	if err != nil {
		return nil, err
	}
	b := &packet.EthernetBuilder{SrcAddr: src, DstAddr: dst, Type: t, Payload: payload, PaddingAtBuild: l.Pad == nil}
	if l.Pad != nil {
		if b.Pad, err = parseBytes("ethernet.pad", *l.Pad); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Dot1Q describes an 802.1Q tag.
type Dot1Q struct {
	Priority     uint8  `yaml:"priority"`
	DropEligible bool   `yaml:"drop_eligible"`
	VID          uint16 `yaml:"vid"`
	Type         string `yaml:"type"`
}

func (*Dot1Q) layerType() packet.LayerType      { return packet.LayerTypeDot1Q }
func (*Dot1Q) etherType() namednumber.EtherType { return namednumber.EtherTypeDot1Q }

func (l *Dot1Q) builder(payload packet.Builder, next layerSpec, _ Options) (packet.Builder, error) {
	t, err := nextEtherType("dot1q.type", l.Type, next)
	if err != nil {
		return nil, err
	}
	return &packet.Dot1QBuilder{Priority: l.Priority, DropEligible: l.DropEligible, VID: l.VID, Type: t, Payload: payload}, nil
}

// IPv4 describes an IPv4 header.
type IPv4 struct {
	Src            string  `yaml:"src"`
	Dst            string  `yaml:"dst"`
	TOS            uint8   `yaml:"tos"`
	Identification uint16  `yaml:"identification"`
	DontFragment   bool    `yaml:"dont_fragment"`
	MoreFragments  bool    `yaml:"more_fragments"`
	FragmentOffset uint16  `yaml:"fragment_offset"`
	TTL            *uint8  `yaml:"ttl"`
	Protocol       string  `yaml:"protocol"`
	Options        string  `yaml:"options"` // hex
	TotalLength    *uint16 `yaml:"total_length"`
	Checksum       *uint16 `yaml:"checksum"`
}

func (*IPv4) layerType() packet.LayerType      { return packet.LayerTypeIPv4 }
func (*IPv4) etherType() namednumber.EtherType { return namednumber.EtherTypeIPv4 }
func (*IPv4) ipNumber() namednumber.IPNumber   { return namednumber.IPNumberIPv4 }

func (l *IPv4) builder(payload packet.Builder, next layerSpec, _ Options) (packet.Builder, error) {
	src, err := parseAddr("ipv4.src", l.Src)
	if err != nil {
		return nil, err
	}
	dst, err := parseAddr("ipv4.dst", l.Dst)
	if err != nil {
		return nil, err
	}
	proto, err := nextIPNumber("ipv4.protocol", l.Protocol, next)
	if err != nil {
		return nil, err
	}
	opts, err := parseBytes("ipv4.options", l.Options)
	if err != nil {
		return nil, err
	}
	b := &packet.IPv4Builder{
		Version:                namednumber.IPVersion4,
		TOS:                    l.TOS,
		Identification:         l.Identification,
		FragmentOffset:         l.FragmentOffset,
		TTL:                    64,
		Protocol:               proto,
		SrcAddr:                src,
		DstAddr:                dst,
		Options:                opts,
		Payload:                payload,
		CorrectLengthAtBuild:   l.TotalLength == nil,
		CorrectChecksumAtBuild: l.Checksum == nil,
	}
	if l.DontFragment {
		b.Flags |= packet.IPv4FlagDontFragment
	}
	if l.MoreFragments {
		b.Flags |= packet.IPv4FlagMoreFragments
	}
	if l.TTL != nil {
		b.TTL = *l.TTL
	}
	if l.TotalLength != nil {
		b.TotalLength = *l.TotalLength
		b.IHL = uint8((20 + len(opts)) / 4)
	}
	if l.Checksum != nil {
		b.HeaderChecksum = *l.Checksum
	}
	return b, nil
}

// IPv6 describes an IPv6 header.
type IPv6 struct {
	Src           string  `yaml:"src"`
	Dst           string  `yaml:"dst"`
	TrafficClass  uint8   `yaml:"traffic_class"`
	FlowLabel     uint32  `yaml:"flow_label"`
	HopLimit      *uint8  `yaml:"hop_limit"`
	NextHeader    string  `yaml:"next_header"`
	PayloadLength *uint16 `yaml:"payload_length"`
}

func (*IPv6) layerType() packet.LayerType      { return packet.LayerTypeIPv6 }
func (*IPv6) etherType() namednumber.EtherType { return namednumber.EtherTypeIPv6 }
func (*IPv6) ipNumber() namednumber.IPNumber   { return namednumber.IPNumberIPv6 }

func (l *IPv6) builder(payload packet.Builder, next layerSpec, _ Options) (packet.Builder, error) {
	src, err := parseAddr("ipv6.src", l.Src)
	if err != nil {
		return nil, err
	}
	dst, err := parseAddr("ipv6.dst", l.Dst)
	if err != nil {
		return nil, err
	}
	nh, err := nextIPNumber("ipv6.next_header", l.NextHeader, next)
	if err != nil {
		return nil, err
	}
	b := &packet.IPv6Builder{
		Version:              namednumber.IPVersion6,
		TrafficClass:         l.TrafficClass,
		FlowLabel:            l.FlowLabel,
		NextHeader:           nh,
		HopLimit:             64,
		SrcAddr:              src,
		DstAddr:              dst,
		Payload:              payload,
		CorrectLengthAtBuild: l.PayloadLength == nil,
	}
	if l.HopLimit != nil {
		b.HopLimit = *l.HopLimit
	}
	if l.PayloadLength != nil {
		b.PayloadLength = *l.PayloadLength
	}
	return b, nil
}

// UDP describes a UDP header. The checksum addresses default to those of
// the enclosing IP header.
type UDP struct {
	SrcPort  uint16  `yaml:"src_port"`
	DstPort  uint16  `yaml:"dst_port"`
	Length   *uint16 `yaml:"length"`
	Checksum *uint16 `yaml:"checksum"`
	Src      string  `yaml:"src"`
	Dst      string  `yaml:"dst"`
}

func (*UDP) layerType() packet.LayerType    { return packet.LayerTypeUDP }
func (*UDP) ipNumber() namednumber.IPNumber { return namednumber.IPNumberUDP }

func (l *UDP) builder(payload packet.Builder, _ layerSpec, _ Options) (packet.Builder, error) {
	src, err := parseOptionalAddr("udp.src", l.Src)
	if err != nil {
		return nil, err
	}
	dst, err := parseOptionalAddr("udp.dst", l.Dst)
	if err != nil {
		return nil, err
	}
	b := &packet.UDPBuilder{
		SrcPort:                l.SrcPort,
		DstPort:                l.DstPort,
		SrcAddr:                src,
		DstAddr:                dst,
		Payload:                payload,
		CorrectLengthAtBuild:   l.Length == nil,
		CorrectChecksumAtBuild: l.Checksum == nil,
	}
	if l.Length != nil {
		b.Length = *l.Length
	}
	if l.Checksum != nil {
		b.Checksum = *l.Checksum
	}
	return b, nil
}

// ICMPv6 describes the common ICMPv6 header. The type defaults to that of
// the message body in the next layer.
type ICMPv6 struct {
	Type     string  `yaml:"type"`
	Code     uint8   `yaml:"code"`
	Checksum *uint16 `yaml:"checksum"`
	Src      string  `yaml:"src"`
	Dst      string  `yaml:"dst"`
}

func (*ICMPv6) layerType() packet.LayerType    { return packet.LayerTypeICMPv6 }
func (*ICMPv6) ipNumber() namednumber.IPNumber { return namednumber.IPNumberICMPv6 }

func (l *ICMPv6) builder(payload packet.Builder, next layerSpec, _ Options) (packet.Builder, error) {
	var t namednumber.ICMPv6Type
	switch n, ok := next.(icmpv6Typed); {
	case l.Type != "":
		v, err := parseNamed("icmpv6.type", l.Type, 8, namednumber.ICMPv6TypeByName)
		if err != nil {
			return nil, err
		}
		t = v
	case ok:
		t = n.icmpv6Type()
	default:
		return nil, invalid("icmpv6.type", "cannot be derived from the next layer")
	}
	src, err := parseOptionalAddr("icmpv6.src", l.Src)
	if err != nil {
		return nil, err
	}
	dst, err := parseOptionalAddr("icmpv6.dst", l.Dst)
	if err != nil {
		return nil, err
	}
	b := &packet.ICMPv6CommonBuilder{
		Type:                   t,
		Code:                   namednumber.ICMPv6Code(l.Code),
		SrcAddr:                src,
		DstAddr:                dst,
		Payload:                payload,
		CorrectChecksumAtBuild: l.Checksum == nil,
	}
	if l.Checksum != nil {
		b.Checksum = *l.Checksum
	}
	return b, nil
}

// Echo describes an Echo Request or Echo Reply body.
type Echo struct {
	Reply          bool   `yaml:"reply"`
	Identifier     uint16 `yaml:"identifier"`
	SequenceNumber uint16 `yaml:"sequence_number"`
}

func (l *Echo) layerType() packet.LayerType {
	if l.Reply {
		return packet.LayerTypeICMPv6EchoReply
	}
	return packet.LayerTypeICMPv6EchoRequest
}

func (l *Echo) icmpv6Type() namednumber.ICMPv6Type {
	if l.Reply {
		return namednumber.ICMPv6TypeEchoReply
	}
	return namednumber.ICMPv6TypeEchoRequest
}

func (l *Echo) builder(payload packet.Builder, _ layerSpec, _ Options) (packet.Builder, error) {
	return &packet.ICMPv6EchoBuilder{Reply: l.Reply, Identifier: l.Identifier, SequenceNumber: l.SequenceNumber, Payload: payload}, nil
}

// ICMPv6Error describes the body of an ICMPv6 error message. The layers
// that follow form the invoking packet.
type ICMPv6Error struct {
	Kind  string `yaml:"kind"`  // destination_unreachable, packet_too_big or time_exceeded
	Value uint32 `yaml:"value"` // MTU for packet_too_big, unused otherwise
}

var errorKinds = map[string]struct {
	lt packet.LayerType
	t  namednumber.ICMPv6Type
}{
	"destination_unreachable": {packet.LayerTypeICMPv6DestinationUnreachable, namednumber.ICMPv6TypeDestinationUnreachable},
	"packet_too_big":          {packet.LayerTypeICMPv6PacketTooBig, namednumber.ICMPv6TypePacketTooBig},
	"time_exceeded":           {packet.LayerTypeICMPv6TimeExceeded, namednumber.ICMPv6TypeTimeExceeded},
}

func (l *ICMPv6Error) layerType() packet.LayerType {
	if k, ok := errorKinds[l.Kind]; ok {
		return k.lt
	}
	return packet.LayerTypeICMPv6DestinationUnreachable
}

func (l *ICMPv6Error) icmpv6Type() namednumber.ICMPv6Type {
	if k, ok := errorKinds[l.Kind]; ok {
		return k.t
	}
	return namednumber.ICMPv6TypeDestinationUnreachable
}

func (l *ICMPv6Error) builder(payload packet.Builder, _ layerSpec, _ Options) (packet.Builder, error) {
	k, ok := errorKinds[l.Kind]
	if !ok {
		return nil, invalid("error.kind", "unknown kind %q", l.Kind)
	}
	return &packet.ICMPv6ErrorBuilder{Kind: k.lt, Value: l.Value, Payload: payload}, nil
}

// Raw is opaque data.
type Raw struct {
	Data string `yaml:"data"` // hex
}

func (*Raw) layerType() packet.LayerType { return packet.LayerTypeUnknown }

func (l *Raw) builder(payload packet.Builder, _ layerSpec, _ Options) (packet.Builder, error) {
	if payload != nil {
		return nil, invalid("raw", "must be the innermost layer")
	}
	data, err := parseBytes("raw.data", l.Data)
	if err != nil {
		return nil, err
	}
	return &packet.UnknownBuilder{RawData: data}, nil
}
