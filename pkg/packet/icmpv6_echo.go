package packet

import (
	"firestige.xyz/pktcodec/pkg/namednumber"
)

const icmpv6EchoHeaderLen = 4

func init() {
	mustRegisterLayerType(LayerTypeICMPv6EchoRequest, LayerTypeMetadata{
		Name:         "ICMPv6 Echo Request",
		MinHeaderLen: icmpv6EchoHeaderLen,
		Decode:       decodeICMPv6Echo(LayerTypeICMPv6EchoRequest),
	})
	mustRegisterLayerType(LayerTypeICMPv6EchoReply, LayerTypeMetadata{
		Name:         "ICMPv6 Echo Reply",
		MinHeaderLen: icmpv6EchoHeaderLen,
		Decode:       decodeICMPv6Echo(LayerTypeICMPv6EchoReply),
	})
	RegisterICMPv6TypeLayer(namednumber.ICMPv6TypeEchoRequest, LayerTypeICMPv6EchoRequest)
	RegisterICMPv6TypeLayer(namednumber.ICMPv6TypeEchoReply, LayerTypeICMPv6EchoReply)
}

// ICMPv6EchoHeader is the body header of an Echo Request or Echo Reply
// (RFC 4443 §4). The echoed data is the payload.
type ICMPv6EchoHeader struct {
	Identifier     uint16
	SequenceNumber uint16
	kind           LayerType
}

func (h ICMPv6EchoHeader) Len() int { return icmpv6EchoHeaderLen }

func (h ICMPv6EchoHeader) RawData() []byte {
	b := make([]byte, icmpv6EchoHeaderLen)
	putUint16(b, 0, h.Identifier)
	putUint16(b, 2, h.SequenceNumber)
	return b
}

func (h ICMPv6EchoHeader) Equal(other Header) bool {
	o, ok := other.(ICMPv6EchoHeader)
	return ok && h == o
}

func (h ICMPv6EchoHeader) String() string {
	d := newDump(h.kind.String()+" Header", icmpv6EchoHeaderLen)
	d.field("Identifier", h.Identifier)
	d.field("SequenceNumber", h.SequenceNumber)
	return d.String()
}

// ICMPv6EchoPacket is the body of an Echo Request or Echo Reply.
type ICMPv6EchoPacket struct {
	header  ICMPv6EchoHeader
	payload Packet
	raw     []byte
}

func newICMPv6EchoPacket(h ICMPv6EchoHeader, payload Packet) *ICMPv6EchoPacket {
	return &ICMPv6EchoPacket{header: h, payload: payload, raw: encode(h, payload, nil)}
}

func decodeICMPv6Echo(kind LayerType) DecodeFunc {
	return func(data []byte, _ DecodeOptions) (Packet, error) {
		if err := need(kind.String(), data, 0, icmpv6EchoHeaderLen); err != nil {
			return nil, err
		}
		h := ICMPv6EchoHeader{
			Identifier:     getUint16(data, 0),
			SequenceNumber: getUint16(data, 2),
			kind:           kind,
		}
		var payload Packet
		if len(data) > icmpv6EchoHeaderLen {
			payload = newUnknownPacket(data[icmpv6EchoHeaderLen:])
		}
		return newICMPv6EchoPacket(h, payload), nil
	}
}

func (p *ICMPv6EchoPacket) LayerType() LayerType { return p.header.kind }
func (p *ICMPv6EchoPacket) Header() Header       { return p.header }
func (p *ICMPv6EchoPacket) Payload() Packet      { return p.payload }
func (p *ICMPv6EchoPacket) RawData() []byte      { return clone(p.raw) }
func (p *ICMPv6EchoPacket) Len() int             { return len(p.raw) }

// EchoHeader returns the header with its concrete type.
func (p *ICMPv6EchoPacket) EchoHeader() ICMPv6EchoHeader { return p.header }

func (p *ICMPv6EchoPacket) Builder() Builder {
	return &ICMPv6EchoBuilder{
		Reply:          p.header.kind == LayerTypeICMPv6EchoReply,
		Identifier:     p.header.Identifier,
		SequenceNumber: p.header.SequenceNumber,
		Payload:        payloadBuilder(p.payload),
	}
}

func (p *ICMPv6EchoPacket) Equal(other Packet) bool {
	o, ok := other.(*ICMPv6EchoPacket)
	return ok && p.header == o.header && packetsEqual(p.payload, o.payload)
}

func (p *ICMPv6EchoPacket) String() string { return p.header.String() + payloadString(p.payload) }

// ICMPv6EchoBuilder builds an Echo Request, or an Echo Reply if Reply is set.
type ICMPv6EchoBuilder struct {
	Reply          bool
	Identifier     uint16
	SequenceNumber uint16
	Payload        Builder
}

func (b *ICMPv6EchoBuilder) Build() (Packet, error) {
	kind := LayerTypeICMPv6EchoRequest
	if b.Reply {
		kind = LayerTypeICMPv6EchoReply
	}
	payload, err := buildPayload(b.Payload, nil)
	if err != nil {
		return nil, err
	}
	// The echoed data is opaque on the wire.
	if payload != nil && payload.LayerType() != LayerTypeUnknown {
		payload = newUnknownPacket(payload.RawData())
	}
	return newICMPv6EchoPacket(ICMPv6EchoHeader{
		Identifier:     b.Identifier,
		SequenceNumber: b.SequenceNumber,
		kind:           kind,
	}, payload), nil
}
