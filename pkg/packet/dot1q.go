package packet

import (
	"firestige.xyz/pktcodec/pkg/namednumber"
)

const (
	dot1qHeaderLen = 4
	dot1qName      = "IEEE 802.1Q"
)

func init() {
	mustRegisterLayerType(LayerTypeDot1Q, LayerTypeMetadata{
		Name:         dot1qName,
		MinHeaderLen: dot1qHeaderLen,
		Decode:       decodeDot1Q,
	})
	RegisterEtherTypeLayer(namednumber.EtherTypeDot1Q, LayerTypeDot1Q)
	RegisterEtherTypeLayer(namednumber.EtherTypeQinQ, LayerTypeDot1Q)
}

// Dot1QHeader is an 802.1Q VLAN tag: the tag control information and the
// EtherType of the tagged payload.
type Dot1QHeader struct {
	Priority     uint8 // 3 bits
	DropEligible bool
	VID          uint16 // 12 bits
	Type         namednumber.EtherType
}

func (h Dot1QHeader) Len() int { return dot1qHeaderLen }

func (h Dot1QHeader) tci() uint16 {
	tci := uint16(h.Priority&0x07)<<13 | h.VID&0x0fff
	if h.DropEligible {
		tci |= 1 << 12
	}
	return tci
}

func (h Dot1QHeader) RawData() []byte {
	b := make([]byte, dot1qHeaderLen)
	putUint16(b, 0, h.tci())
	putUint16(b, 2, uint16(h.Type))
	return b
}

func (h Dot1QHeader) Equal(other Header) bool {
	o, ok := other.(Dot1QHeader)
	return ok && h == o
}

func (h Dot1QHeader) String() string {
	d := newDump("IEEE802.1Q Tag", dot1qHeaderLen)
	d.field("Priority", h.Priority)
	d.field("DEI", formatFlag(h.DropEligible))
	d.field("VID", h.VID)
	d.field("Type", h.Type)
	return d.String()
}

// Dot1QPacket is a VLAN tag and the packet it carries.
type Dot1QPacket struct {
	header  Dot1QHeader
	payload Packet
	raw     []byte
}

func newDot1QPacket(h Dot1QHeader, payload Packet) *Dot1QPacket {
	return &Dot1QPacket{header: h, payload: payload, raw: encode(h, payload, nil)}
}

func decodeDot1Q(data []byte, opts DecodeOptions) (Packet, error) {
	if err := need(dot1qName, data, 0, dot1qHeaderLen); err != nil {
		return nil, err
	}
	tci := getUint16(data, 0)
	h := Dot1QHeader{
		Priority:     uint8(tci >> 13),
		DropEligible: tci&(1<<12) != 0,
		VID:          tci & 0x0fff,
		Type:         namednumber.EtherType(getUint16(data, 2)),
	}
	// Padding after the payload belongs to the enclosing frame.
	payload, err := decodePayload(etherTypeLayers, h.Type, data[dot1qHeaderLen:], opts, LayerTypeDot1Q, false)
	if err != nil {
		return nil, err
	}
	return newDot1QPacket(h, payload), nil
}

func (p *Dot1QPacket) LayerType() LayerType { return LayerTypeDot1Q }
func (p *Dot1QPacket) Header() Header       { return p.header }
func (p *Dot1QPacket) Payload() Packet      { return p.payload }
func (p *Dot1QPacket) RawData() []byte      { return clone(p.raw) }
func (p *Dot1QPacket) Len() int             { return len(p.raw) }

func (p *Dot1QPacket) Builder() Builder {
	return &Dot1QBuilder{
		Priority:     p.header.Priority,
		DropEligible: p.header.DropEligible,
		VID:          p.header.VID,
		Type:         p.header.Type,
		Payload:      payloadBuilder(p.payload),
	}
}

func (p *Dot1QPacket) Equal(other Packet) bool {
	o, ok := other.(*Dot1QPacket)
	return ok && p.header == o.header && packetsEqual(p.payload, o.payload)
}

func (p *Dot1QPacket) String() string { return p.header.String() + payloadString(p.payload) }

// Dot1QBuilder builds a Dot1QPacket.
type Dot1QBuilder struct {
	Priority     uint8
	DropEligible bool
	VID          uint16
	Type         namednumber.EtherType
	Payload      Builder
}

func (b *Dot1QBuilder) Build() (Packet, error) {
	if b.Priority > 7 {
		return nil, &InvalidFieldError{Layer: dot1qName, Field: "Priority", Reason: "must fit in 3 bits"}
	}
	if b.VID > 0x0fff {
		return nil, &InvalidFieldError{Layer: dot1qName, Field: "VID", Reason: "must fit in 12 bits"}
	}
	payload, err := buildPayload(b.Payload, nil)
	if err != nil {
		return nil, err
	}
	return newDot1QPacket(Dot1QHeader{
		Priority:     b.Priority,
		DropEligible: b.DropEligible,
		VID:          b.VID,
		Type:         b.Type,
	}, payload), nil
}
