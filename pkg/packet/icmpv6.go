package packet

import (
	"fmt"
	"net/netip"

	"firestige.xyz/pktcodec/pkg/namednumber"
)

const (
	icmpv6CommonHeaderLen = 4
	icmpv6Name            = "ICMPv6"
)

func init() {
	mustRegisterLayerType(LayerTypeICMPv6, LayerTypeMetadata{
		Name:         icmpv6Name,
		MinHeaderLen: icmpv6CommonHeaderLen,
		Decode:       decodeICMPv6Common,
	})
	RegisterIPNumberLayer(namednumber.IPNumberICMPv6, LayerTypeICMPv6)
}

// ICMPv6CommonHeader holds the fields shared by every ICMPv6 message. The
// message body is decoded as the payload, selected by Type.
type ICMPv6CommonHeader struct {
	Type     namednumber.ICMPv6Type
	Code     namednumber.ICMPv6Code
	Checksum uint16
}

func (h ICMPv6CommonHeader) Len() int { return icmpv6CommonHeaderLen }

func (h ICMPv6CommonHeader) RawData() []byte {
	b := make([]byte, icmpv6CommonHeaderLen)
	b[0] = uint8(h.Type)
	b[1] = uint8(h.Code)
	putUint16(b, 2, h.Checksum)
	return b
}

func (h ICMPv6CommonHeader) Equal(other Header) bool {
	o, ok := other.(ICMPv6CommonHeader)
	return ok && h == o
}

func (h ICMPv6CommonHeader) String() string {
	d := newDump("ICMPv6 Common Header", icmpv6CommonHeaderLen)
	d.field("Type", h.Type)
	d.field("Code", h.Code.Format(h.Type))
	d.field("Checksum", fmt.Sprintf("0x%04x", h.Checksum))
	return d.String()
}

// ICMPv6CommonPacket is an ICMPv6 message.
type ICMPv6CommonPacket struct {
	header  ICMPv6CommonHeader
	payload Packet
	raw     []byte
}

func newICMPv6CommonPacket(h ICMPv6CommonHeader, payload Packet) *ICMPv6CommonPacket {
	return &ICMPv6CommonPacket{header: h, payload: payload, raw: encode(h, payload, nil)}
}

func decodeICMPv6Common(data []byte, opts DecodeOptions) (Packet, error) {
	if err := need(icmpv6Name, data, 0, icmpv6CommonHeaderLen); err != nil {
		return nil, err
	}
	h := ICMPv6CommonHeader{
		Type:     namednumber.ICMPv6Type(data[0]),
		Code:     namednumber.ICMPv6Code(data[1]),
		Checksum: getUint16(data, 2),
	}
	payload, err := decodePayload(icmpv6TypeLayers, h.Type, data[icmpv6CommonHeaderLen:], opts, LayerTypeICMPv6, true)
	if err != nil {
		return nil, err
	}
	return newICMPv6CommonPacket(h, payload), nil
}

func (p *ICMPv6CommonPacket) LayerType() LayerType { return LayerTypeICMPv6 }
func (p *ICMPv6CommonPacket) Header() Header       { return p.header }
func (p *ICMPv6CommonPacket) Payload() Packet      { return p.payload }
func (p *ICMPv6CommonPacket) RawData() []byte      { return clone(p.raw) }
func (p *ICMPv6CommonPacket) Len() int             { return len(p.raw) }

// CommonHeader returns the header with its concrete type.
func (p *ICMPv6CommonPacket) CommonHeader() ICMPv6CommonHeader { return p.header }

func (p *ICMPv6CommonPacket) Builder() Builder {
	return &ICMPv6CommonBuilder{
		Type:     p.header.Type,
		Code:     p.header.Code,
		Checksum: p.header.Checksum,
		Payload:  payloadBuilder(p.payload),
	}
}

func (p *ICMPv6CommonPacket) Equal(other Packet) bool {
	o, ok := other.(*ICMPv6CommonPacket)
	return ok && p.header == o.header && packetsEqual(p.payload, o.payload)
}

func (p *ICMPv6CommonPacket) String() string { return p.header.String() + payloadString(p.payload) }

// VerifyChecksum recomputes the checksum for the given IPv6 addresses.
func (p *ICMPv6CommonPacket) VerifyChecksum(src, dst netip.Addr) bool {
	return icmpv6Checksum(src, dst, p.header, p.payload) == p.header.Checksum
}

func (p *ICMPv6CommonPacket) Validate() error { return validatePayload(p.payload) }

// icmpv6Checksum computes the checksum of h and payload over the IPv6
// pseudo-header, treating the checksum field as zero.
func icmpv6Checksum(src, dst netip.Addr, h ICMPv6CommonHeader, payload Packet) uint16 {
	h.Checksum = 0
	var body []byte
	if payload != nil {
		body = payload.RawData()
	}
	n := h.Len() + len(body)
	return InternetChecksum(IPv6PseudoHeader(src, dst, uint32(n), namednumber.IPNumberICMPv6), h.RawData(), body)
}

// ICMPv6CommonBuilder builds an ICMPv6CommonPacket. The checksum fixup uses
// SrcAddr and DstAddr when both are set and the enclosing IPv6 builder's
// addresses otherwise.
type ICMPv6CommonBuilder struct {
	Type     namednumber.ICMPv6Type
	Code     namednumber.ICMPv6Code
	Checksum uint16
	SrcAddr  netip.Addr
	DstAddr  netip.Addr
	Payload  Builder

	// CorrectChecksumAtBuild computes Checksum over the IPv6 pseudo-header.
	CorrectChecksumAtBuild bool
}

func (b *ICMPv6CommonBuilder) Build() (Packet, error) { return b.build(nil) }

func (b *ICMPv6CommonBuilder) BuildWithPseudoHeader(ph PseudoHeader) (Packet, error) {
	return b.build(&ph)
}

func (b *ICMPv6CommonBuilder) build(enclosing *PseudoHeader) (Packet, error) {
	payload, err := buildPayload(b.Payload, nil)
	if err != nil {
		return nil, err
	}
	h := ICMPv6CommonHeader{Type: b.Type, Code: b.Code, Checksum: b.Checksum}
	if b.CorrectChecksumAtBuild {
		ph, err := resolvePseudoHeader(icmpv6Name, PseudoHeader{Src: b.SrcAddr, Dst: b.DstAddr}, enclosing)
		if err != nil {
			return nil, err
		}
		if ph.Src.Is4() {
			return nil, &InvalidFieldError{Layer: icmpv6Name, Field: "SrcAddr/DstAddr", Reason: "checksum needs IPv6 addresses"}
		}
		h.Checksum = icmpv6Checksum(ph.Src, ph.Dst, h, payload)
	}
	return newICMPv6CommonPacket(h, payload), nil
}
