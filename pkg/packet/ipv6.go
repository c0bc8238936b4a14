package packet

import (
	"fmt"
	"net/netip"

	"firestige.xyz/pktcodec/pkg/namednumber"
)

const (
	ipv6HeaderLen    = 40
	ipv6MaxFlowLabel = 0xfffff
	ipv6Name         = "IPv6"
)

func init() {
	mustRegisterLayerType(LayerTypeIPv6, LayerTypeMetadata{
		Name:         ipv6Name,
		MinHeaderLen: ipv6HeaderLen,
		Decode:       decodeIPv6,
	})
	RegisterEtherTypeLayer(namednumber.EtherTypeIPv6, LayerTypeIPv6)
	RegisterIPNumberLayer(namednumber.IPNumberIPv6, LayerTypeIPv6)
	RegisterDataLinkLayer(namednumber.DataLinkTypeIPv6, LayerTypeIPv6)
}

// IPv6Header is the fixed IPv6 header of RFC 8200 §3. Extension headers are
// decoded as payloads through the next header field.
type IPv6Header struct {
	Version       namednumber.IPVersion
	TrafficClass  uint8
	FlowLabel     uint32
	PayloadLength uint16
	NextHeader    namednumber.IPNumber
	HopLimit      uint8
	SrcAddr       netip.Addr
	DstAddr       netip.Addr
}

func (h IPv6Header) Len() int { return ipv6HeaderLen }

func (h IPv6Header) RawData() []byte {
	b := make([]byte, ipv6HeaderLen)
	putUint32(b, 0, uint32(h.Version&0x0f)<<28|uint32(h.TrafficClass)<<20|h.FlowLabel&ipv6MaxFlowLabel)
	putUint16(b, 4, h.PayloadLength)
	b[6] = uint8(h.NextHeader)
	b[7] = h.HopLimit
	putAddr16(b, 8, h.SrcAddr)
	putAddr16(b, 24, h.DstAddr)
	return b
}

func (h IPv6Header) Equal(other Header) bool {
	o, ok := other.(IPv6Header)
	return ok && h == o
}

func (h IPv6Header) String() string {
	d := newDump("IPv6 Header", ipv6HeaderLen)
	d.field("Version", h.Version)
	d.field("Traffic Class", fmt.Sprintf("0x%02x", h.TrafficClass))
	d.field("Flow Label", fmt.Sprintf("0x%05x", h.FlowLabel))
	d.field("Payload length", fmt.Sprintf("%d [bytes]", h.PayloadLength))
	d.field("Next Header", h.NextHeader)
	d.field("Hop Limit", h.HopLimit)
	d.field("Source address", h.SrcAddr)
	d.field("Destination address", h.DstAddr)
	return d.String()
}

// IPv6Packet is an IPv6 header and the packet it carries.
type IPv6Packet struct {
	header  IPv6Header
	payload Packet
	raw     []byte
}

func newIPv6Packet(h IPv6Header, payload Packet) *IPv6Packet {
	return &IPv6Packet{header: h, payload: payload, raw: encode(h, payload, nil)}
}

func decodeIPv6(data []byte, opts DecodeOptions) (Packet, error) {
	if err := need(ipv6Name, data, 0, ipv6HeaderLen); err != nil {
		return nil, err
	}
	vtf := getUint32(data, 0)
	h := IPv6Header{
		Version:       namednumber.IPVersion(vtf >> 28),
		TrafficClass:  uint8(vtf >> 20),
		FlowLabel:     vtf & ipv6MaxFlowLabel,
		PayloadLength: getUint16(data, 4),
		NextHeader:    namednumber.IPNumber(data[6]),
		HopLimit:      data[7],
		SrcAddr:       getAddr16(data, 8),
		DstAddr:       getAddr16(data, 24),
	}
	end := ipv6HeaderLen + int(h.PayloadLength)
	if end > len(data) {
		if !opts.Truncated {
			return nil, &MalformedHeaderError{
				Layer:  ipv6Name,
				Reason: "payload length exceeds the data",
				Need:   end,
				Have:   len(data),
			}
		}
		// The payload was cut short; whatever is left stays raw.
		var rest Packet
		if len(data) > ipv6HeaderLen {
			rest = newUnknownPacket(data[ipv6HeaderLen:])
		}
		return newIPv6Packet(h, rest), nil
	}
	payload, err := decodePayload(ipNumberLayers, h.NextHeader, data[ipv6HeaderLen:end], opts, LayerTypeIPv6, true)
	if err != nil {
		return nil, err
	}
	return newIPv6Packet(h, payload), nil
}

func (p *IPv6Packet) LayerType() LayerType { return LayerTypeIPv6 }
func (p *IPv6Packet) Header() Header       { return p.header }
func (p *IPv6Packet) Payload() Packet      { return p.payload }
func (p *IPv6Packet) RawData() []byte      { return clone(p.raw) }
func (p *IPv6Packet) Len() int             { return len(p.raw) }

// IPv6Header returns the header with its concrete type.
func (p *IPv6Packet) IPv6Header() IPv6Header { return p.header }

func (p *IPv6Packet) Builder() Builder {
	return &IPv6Builder{
		Version:       p.header.Version,
		TrafficClass:  p.header.TrafficClass,
		FlowLabel:     p.header.FlowLabel,
		PayloadLength: p.header.PayloadLength,
		NextHeader:    p.header.NextHeader,
		HopLimit:      p.header.HopLimit,
		SrcAddr:       p.header.SrcAddr,
		DstAddr:       p.header.DstAddr,
		Payload:       payloadBuilder(p.payload),
	}
}

func (p *IPv6Packet) Equal(other Packet) bool {
	o, ok := other.(*IPv6Packet)
	return ok && p.header == o.header && packetsEqual(p.payload, o.payload)
}

func (p *IPv6Packet) String() string { return p.header.String() + payloadString(p.payload) }

// Validate checks the version and that the payload length field matches
// the payload.
func (p *IPv6Packet) Validate() error {
	if p.header.Version != namednumber.IPVersion6 {
		return &InvalidFieldError{Layer: ipv6Name, Field: "Version", Reason: fmt.Sprintf("is %d, want 6", p.header.Version)}
	}
	if int(p.header.PayloadLength) != payloadLen(p.payload) {
		return &InvalidFieldError{
			Layer:  ipv6Name,
			Field:  "PayloadLength",
			Reason: fmt.Sprintf("is %d, payload has %d bytes", p.header.PayloadLength, payloadLen(p.payload)),
		}
	}
	return validatePayload(p.payload)
}

// IPv6Builder builds an IPv6Packet. Its addresses are handed to the payload
// builder as checksum context.
type IPv6Builder struct {
	Version       namednumber.IPVersion
	TrafficClass  uint8
	FlowLabel     uint32
	PayloadLength uint16
	NextHeader    namednumber.IPNumber
	HopLimit      uint8
	SrcAddr       netip.Addr
	DstAddr       netip.Addr
	Payload       Builder

	// CorrectLengthAtBuild sets PayloadLength from the built payload.
	CorrectLengthAtBuild bool
}

func (b *IPv6Builder) Build() (Packet, error) {
	if err := ipv6AddrField(ipv6Name, "SrcAddr", b.SrcAddr); err != nil {
		return nil, err
	}
	if err := ipv6AddrField(ipv6Name, "DstAddr", b.DstAddr); err != nil {
		return nil, err
	}
	if b.Version > 0x0f {
		return nil, &InvalidFieldError{Layer: ipv6Name, Field: "Version", Reason: "must fit in 4 bits"}
	}
	if b.FlowLabel > ipv6MaxFlowLabel {
		return nil, &InvalidFieldError{Layer: ipv6Name, Field: "FlowLabel", Reason: "must fit in 20 bits"}
	}
	payload, err := buildPayload(b.Payload, &PseudoHeader{Src: b.SrcAddr, Dst: b.DstAddr})
	if err != nil {
		return nil, err
	}
	h := IPv6Header{
		Version:       b.Version,
		TrafficClass:  b.TrafficClass,
		FlowLabel:     b.FlowLabel,
		PayloadLength: b.PayloadLength,
		NextHeader:    b.NextHeader,
		HopLimit:      b.HopLimit,
		SrcAddr:       b.SrcAddr,
		DstAddr:       b.DstAddr,
	}
	if b.CorrectLengthAtBuild {
		n := payloadLen(payload)
		if n > 0xffff {
			return nil, &InvalidFieldError{Layer: ipv6Name, Field: "PayloadLength", Reason: fmt.Sprintf("payload of %d bytes needs a jumbogram", n)}
		}
		h.PayloadLength = uint16(n)
	}
	return newIPv6Packet(h, payload), nil
}

// ipv6AddrField checks that a is set and is a 16-byte address.
func ipv6AddrField(layer, field string, a netip.Addr) error {
	if !a.IsValid() {
		return &IncompleteBuilderError{Layer: layer, Field: field}
	}
	if a.Is4() {
		return &InvalidFieldError{Layer: layer, Field: field, Reason: "must be an IPv6 address"}
	}
	return nil
}

// validatePayload validates p when it knows how to.
func validatePayload(p Packet) error {
	if v, ok := p.(Validator); ok {
		return v.Validate()
	}
	return nil
}
