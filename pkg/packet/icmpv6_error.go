package packet

import (
	"fmt"

	"firestige.xyz/pktcodec/pkg/namednumber"
)

const icmpv6ErrorHeaderLen = 4

func init() {
	for _, e := range []struct {
		lt   LayerType
		t    namednumber.ICMPv6Type
		name string
	}{
		{LayerTypeICMPv6DestinationUnreachable, namednumber.ICMPv6TypeDestinationUnreachable, "ICMPv6 Destination Unreachable"},
		{LayerTypeICMPv6PacketTooBig, namednumber.ICMPv6TypePacketTooBig, "ICMPv6 Packet Too Big"},
		{LayerTypeICMPv6TimeExceeded, namednumber.ICMPv6TypeTimeExceeded, "ICMPv6 Time Exceeded"},
	} {
		mustRegisterLayerType(e.lt, LayerTypeMetadata{
			Name:         e.name,
			MinHeaderLen: icmpv6ErrorHeaderLen,
			Decode:       decodeICMPv6Error(e.lt),
		})
		RegisterICMPv6TypeLayer(e.t, e.lt)
	}
}

// ICMPv6ErrorHeader is the body header of the ICMPv6 error messages of
// RFC 4443 §3. Value is the MTU of a Packet Too Big message and the unused
// field of the others. The invoking packet is the payload.
type ICMPv6ErrorHeader struct {
	Value uint32
	kind  LayerType
}

func (h ICMPv6ErrorHeader) Len() int { return icmpv6ErrorHeaderLen }

func (h ICMPv6ErrorHeader) RawData() []byte {
	b := make([]byte, icmpv6ErrorHeaderLen)
	putUint32(b, 0, h.Value)
	return b
}

func (h ICMPv6ErrorHeader) Equal(other Header) bool {
	o, ok := other.(ICMPv6ErrorHeader)
	return ok && h == o
}

func (h ICMPv6ErrorHeader) String() string {
	d := newDump(h.kind.String()+" Header", icmpv6ErrorHeaderLen)
	if h.kind == LayerTypeICMPv6PacketTooBig {
		d.field("MTU", h.Value)
	} else {
		d.field("Unused", h.Value)
	}
	return d.String()
}

// ICMPv6ErrorPacket is the body of an ICMPv6 error message: the error
// header and as much of the invoking packet as fits.
type ICMPv6ErrorPacket struct {
	header  ICMPv6ErrorHeader
	payload Packet
	raw     []byte
}

func newICMPv6ErrorPacket(h ICMPv6ErrorHeader, payload Packet) *ICMPv6ErrorPacket {
	return &ICMPv6ErrorPacket{header: h, payload: payload, raw: encode(h, payload, nil)}
}

func decodeICMPv6Error(kind LayerType) DecodeFunc {
	return func(data []byte, _ DecodeOptions) (Packet, error) {
		if err := need(kind.String(), data, 0, icmpv6ErrorHeaderLen); err != nil {
			return nil, err
		}
		h := ICMPv6ErrorHeader{Value: getUint32(data, 0), kind: kind}
		return newICMPv6ErrorPacket(h, decodeEmbedded(LayerTypeIPv6, data[icmpv6ErrorHeaderLen:])), nil
	}
}

func (p *ICMPv6ErrorPacket) LayerType() LayerType { return p.header.kind }
func (p *ICMPv6ErrorPacket) Header() Header       { return p.header }
func (p *ICMPv6ErrorPacket) Payload() Packet      { return p.payload }
func (p *ICMPv6ErrorPacket) RawData() []byte      { return clone(p.raw) }
func (p *ICMPv6ErrorPacket) Len() int             { return len(p.raw) }

// ErrorHeader returns the header with its concrete type.
func (p *ICMPv6ErrorPacket) ErrorHeader() ICMPv6ErrorHeader { return p.header }

func (p *ICMPv6ErrorPacket) Builder() Builder {
	return &ICMPv6ErrorBuilder{
		Kind:    p.header.kind,
		Value:   p.header.Value,
		Payload: payloadBuilder(p.payload),
	}
}

func (p *ICMPv6ErrorPacket) Equal(other Packet) bool {
	o, ok := other.(*ICMPv6ErrorPacket)
	return ok && p.header == o.header && packetsEqual(p.payload, o.payload)
}

func (p *ICMPv6ErrorPacket) String() string { return p.header.String() + payloadString(p.payload) }

// ICMPv6ErrorBuilder builds the body of an ICMPv6 error message. Kind is
// one of LayerTypeICMPv6DestinationUnreachable, LayerTypeICMPv6PacketTooBig
// or LayerTypeICMPv6TimeExceeded. The built invoking packet is re-decoded as
// a truncated IPv6 packet, so the result matches what decoding the message
// yields.
type ICMPv6ErrorBuilder struct {
	Kind    LayerType
	Value   uint32
	Payload Builder
}

func (b *ICMPv6ErrorBuilder) Build() (Packet, error) {
	switch b.Kind {
	case LayerTypeICMPv6DestinationUnreachable, LayerTypeICMPv6PacketTooBig, LayerTypeICMPv6TimeExceeded:
	default:
		return nil, &InvalidFieldError{Layer: icmpv6Name, Field: "Kind", Reason: fmt.Sprintf("%s is not an error message", b.Kind)}
	}
	payload, err := buildPayload(b.Payload, nil)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		payload = decodeEmbedded(LayerTypeIPv6, payload.RawData())
	}
	return newICMPv6ErrorPacket(ICMPv6ErrorHeader{Value: b.Value, kind: b.Kind}, payload), nil
}
