package packet

import (
	"fmt"
	"net/netip"

	"firestige.xyz/pktcodec/pkg/namednumber"
)

const (
	udpHeaderLen = 8
	udpName      = "UDP"
)

func init() {
	mustRegisterLayerType(LayerTypeUDP, LayerTypeMetadata{
		Name:         udpName,
		MinHeaderLen: udpHeaderLen,
		Decode:       decodeUDP,
	})
	RegisterIPNumberLayer(namednumber.IPNumberUDP, LayerTypeUDP)
}

// UDPHeader is the UDP header of RFC 768.
type UDPHeader struct {
	SrcPort  uint16
	DstPort  uint16
	Length   uint16
	Checksum uint16
}

func (h UDPHeader) Len() int { return udpHeaderLen }

func (h UDPHeader) RawData() []byte {
	b := make([]byte, udpHeaderLen)
	putUint16(b, 0, h.SrcPort)
	putUint16(b, 2, h.DstPort)
	putUint16(b, 4, h.Length)
	putUint16(b, 6, h.Checksum)
	return b
}

func (h UDPHeader) Equal(other Header) bool {
	o, ok := other.(UDPHeader)
	return ok && h == o
}

func (h UDPHeader) String() string {
	d := newDump("UDP Header", udpHeaderLen)
	d.field("Source port", h.SrcPort)
	d.field("Destination port", h.DstPort)
	d.field("Length", fmt.Sprintf("%d [bytes]", h.Length))
	d.field("Checksum", fmt.Sprintf("0x%04x", h.Checksum))
	return d.String()
}

// UDPPacket is a UDP datagram.
type UDPPacket struct {
	header  UDPHeader
	payload Packet
	raw     []byte
}

func newUDPPacket(h UDPHeader, payload Packet) *UDPPacket {
	return &UDPPacket{header: h, payload: payload, raw: encode(h, payload, nil)}
}

func decodeUDP(data []byte, opts DecodeOptions) (Packet, error) {
	if err := need(udpName, data, 0, udpHeaderLen); err != nil {
		return nil, err
	}
	h := UDPHeader{
		SrcPort:  getUint16(data, 0),
		DstPort:  getUint16(data, 2),
		Length:   getUint16(data, 4),
		Checksum: getUint16(data, 6),
	}
	end := int(h.Length)
	if end < udpHeaderLen {
		return nil, &MalformedHeaderError{Layer: udpName, Reason: fmt.Sprintf("length %d is shorter than the header", h.Length)}
	}
	if end > len(data) {
		if !opts.Truncated {
			return nil, &MalformedHeaderError{Layer: udpName, Reason: "length exceeds the data", Need: end, Have: len(data)}
		}
		var rest Packet
		if len(data) > udpHeaderLen {
			rest = newUnknownPacket(data[udpHeaderLen:])
		}
		return newUDPPacket(h, rest), nil
	}
	port := h.DstPort
	if _, ok := udpPortLayers.lookup(port); !ok {
		port = h.SrcPort
	}
	payload, err := decodePayload(udpPortLayers, port, data[udpHeaderLen:end], opts, LayerTypeUDP, true)
	if err != nil {
		return nil, err
	}
	return newUDPPacket(h, payload), nil
}

func (p *UDPPacket) LayerType() LayerType { return LayerTypeUDP }
func (p *UDPPacket) Header() Header       { return p.header }
func (p *UDPPacket) Payload() Packet      { return p.payload }
func (p *UDPPacket) RawData() []byte      { return clone(p.raw) }
func (p *UDPPacket) Len() int             { return len(p.raw) }

// UDPHeader returns the header with its concrete type.
func (p *UDPPacket) UDPHeader() UDPHeader { return p.header }

func (p *UDPPacket) Builder() Builder {
	return &UDPBuilder{
		SrcPort:  p.header.SrcPort,
		DstPort:  p.header.DstPort,
		Length:   p.header.Length,
		Checksum: p.header.Checksum,
		Payload:  payloadBuilder(p.payload),
	}
}

func (p *UDPPacket) Equal(other Packet) bool {
	o, ok := other.(*UDPPacket)
	return ok && p.header == o.header && packetsEqual(p.payload, o.payload)
}

func (p *UDPPacket) String() string { return p.header.String() + payloadString(p.payload) }

// VerifyChecksum recomputes the checksum for the given addresses. A zero
// checksum over IPv4 means none was computed and is accepted.
func (p *UDPPacket) VerifyChecksum(src, dst netip.Addr) bool {
	if p.header.Checksum == 0 && src.Is4() {
		return true
	}
	return udpChecksum(PseudoHeader{Src: src, Dst: dst}, p.header, p.payload) == p.header.Checksum
}

// Validate checks the length field.
func (p *UDPPacket) Validate() error {
	if int(p.header.Length) != p.Len() {
		return &InvalidFieldError{Layer: udpName, Field: "Length", Reason: fmt.Sprintf("is %d, datagram has %d bytes", p.header.Length, p.Len())}
	}
	return validatePayload(p.payload)
}

// udpChecksum computes the checksum of h and payload, treating the checksum
// field as zero. A computed zero is transmitted as 0xffff.
func udpChecksum(ph PseudoHeader, h UDPHeader, payload Packet) uint16 {
	h.Checksum = 0
	n := h.Len() + payloadLen(payload)
	var body []byte
	if payload != nil {
		body = payload.RawData()
	}
	sum := InternetChecksum(ph.bytes(n, namednumber.IPNumberUDP), h.RawData(), body)
	if sum == 0 {
		return 0xffff
	}
	return sum
}

// UDPBuilder builds a UDPPacket. The checksum fixup uses SrcAddr and DstAddr
// when both are set and the enclosing IP builder's addresses otherwise.
type UDPBuilder struct {
	SrcPort  uint16
	DstPort  uint16
	Length   uint16
	Checksum uint16
	SrcAddr  netip.Addr
	DstAddr  netip.Addr
	Payload  Builder

	// CorrectLengthAtBuild sets Length from the built payload.
	CorrectLengthAtBuild bool
	// CorrectChecksumAtBuild computes Checksum over the pseudo-header.
	CorrectChecksumAtBuild bool
}

func (b *UDPBuilder) Build() (Packet, error) { return b.build(nil) }

func (b *UDPBuilder) BuildWithPseudoHeader(ph PseudoHeader) (Packet, error) { return b.build(&ph) }

func (b *UDPBuilder) build(enclosing *PseudoHeader) (Packet, error) {
	payload, err := buildPayload(b.Payload, nil)
	if err != nil {
		return nil, err
	}
	h := UDPHeader{SrcPort: b.SrcPort, DstPort: b.DstPort, Length: b.Length, Checksum: b.Checksum}
	if b.CorrectLengthAtBuild {
		n := udpHeaderLen + payloadLen(payload)
		if n > 0xffff {
			return nil, &InvalidFieldError{Layer: udpName, Field: "Length", Reason: fmt.Sprintf("datagram of %d bytes is too long", n)}
		}
		h.Length = uint16(n)
	}
	if b.CorrectChecksumAtBuild {
		ph, err := resolvePseudoHeader(udpName, PseudoHeader{Src: b.SrcAddr, Dst: b.DstAddr}, enclosing)
		if err != nil {
			return nil, err
		}
		h.Checksum = udpChecksum(ph, h, payload)
	}
	return newUDPPacket(h, payload), nil
}
