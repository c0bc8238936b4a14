package packet

import "bytes"

// UnknownPacket holds bytes no registered decoder claims. It is the terminal
// of every payload chain whose next protocol is not understood.
type UnknownPacket struct {
	raw []byte
}

func newUnknownPacket(data []byte) *UnknownPacket {
	return &UnknownPacket{raw: clone(data)}
}

func decodeUnknown(data []byte, _ DecodeOptions) (Packet, error) {
	return newUnknownPacket(data), nil
}

func (p *UnknownPacket) LayerType() LayerType { return LayerTypeUnknown }
func (p *UnknownPacket) Header() Header       { return nil }
func (p *UnknownPacket) Payload() Packet      { return nil }
func (p *UnknownPacket) RawData() []byte      { return clone(p.raw) }
func (p *UnknownPacket) Len() int             { return len(p.raw) }

func (p *UnknownPacket) Builder() Builder {
	return &UnknownBuilder{RawData: clone(p.raw)}
}

func (p *UnknownPacket) Equal(other Packet) bool {
	o, ok := other.(*UnknownPacket)
	return ok && bytes.Equal(p.raw, o.raw)
}

func (p *UnknownPacket) String() string {
	d := newDump("data", len(p.raw))
	d.field("Hex stream", hexStream(p.raw))
	return d.String()
}

// UnknownBuilder builds an UnknownPacket from raw bytes.
type UnknownBuilder struct {
	RawData []byte
}

func (b *UnknownBuilder) Build() (Packet, error) {
	return newUnknownPacket(b.RawData), nil
}
