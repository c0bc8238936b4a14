package packet

import (
	"net"

	"firestige.xyz/pktcodec/pkg/namednumber"
)

const (
	ethernetHeaderLen  = 14
	ethernetMinPayload = 46
	ethernetName       = "Ethernet"
)

func init() {
	mustRegisterLayerType(LayerTypeEthernet, LayerTypeMetadata{
		Name:         ethernetName,
		MinHeaderLen: ethernetHeaderLen,
		Decode:       decodeEthernet,
	})
	RegisterDataLinkLayer(namednumber.DataLinkTypeEN10MB, LayerTypeEthernet)
}

// EthernetHeader is the Ethernet II header.
type EthernetHeader struct {
	DstAddr [6]byte
	SrcAddr [6]byte
	Type    namednumber.EtherType
}

func (h EthernetHeader) Len() int { return ethernetHeaderLen }

func (h EthernetHeader) RawData() []byte {
	b := make([]byte, ethernetHeaderLen)
	copy(b[0:6], h.DstAddr[:])
	copy(b[6:12], h.SrcAddr[:])
	putUint16(b, 12, uint16(h.Type))
	return b
}

func (h EthernetHeader) Equal(other Header) bool {
	o, ok := other.(EthernetHeader)
	return ok && h == o
}

func (h EthernetHeader) String() string {
	d := newDump("Ethernet Header", ethernetHeaderLen)
	d.field("Destination address", net.HardwareAddr(h.DstAddr[:]))
	d.field("Source address", net.HardwareAddr(h.SrcAddr[:]))
	d.field("Type", h.Type)
	return d.String()
}

// EthernetPacket is an Ethernet II frame. Bytes after the payload, the pad
// that brings short frames to the minimum size, are kept verbatim.
type EthernetPacket struct {
	header  EthernetHeader
	payload Packet
	pad     []byte
	raw     []byte
}

func newEthernetPacket(h EthernetHeader, payload Packet, pad []byte) *EthernetPacket {
	pad = clone(pad)
	return &EthernetPacket{header: h, payload: payload, pad: pad, raw: encode(h, payload, pad)}
}

func decodeEthernet(data []byte, opts DecodeOptions) (Packet, error) {
	if err := need(ethernetName, data, 0, ethernetHeaderLen); err != nil {
		return nil, err
	}
	h := EthernetHeader{
		DstAddr: getMAC(data, 0),
		SrcAddr: getMAC(data, 6),
		Type:    namednumber.EtherType(getUint16(data, 12)),
	}
	payload, err := decodePayload(etherTypeLayers, h.Type, data[ethernetHeaderLen:], opts, LayerTypeEthernet, false)
	if err != nil {
		return nil, err
	}
	return newEthernetPacket(h, payload, data[ethernetHeaderLen+payloadLen(payload):]), nil
}

func (p *EthernetPacket) LayerType() LayerType { return LayerTypeEthernet }
func (p *EthernetPacket) Header() Header       { return p.header }
func (p *EthernetPacket) Payload() Packet      { return p.payload }
func (p *EthernetPacket) RawData() []byte      { return clone(p.raw) }
func (p *EthernetPacket) Len() int             { return len(p.raw) }

// Pad returns the bytes that follow the payload.
func (p *EthernetPacket) Pad() []byte { return clone(p.pad) }

func (p *EthernetPacket) Builder() Builder {
	return &EthernetBuilder{
		DstAddr: net.HardwareAddr(clone(p.header.DstAddr[:])),
		SrcAddr: net.HardwareAddr(clone(p.header.SrcAddr[:])),
		Type:    p.header.Type,
		Payload: payloadBuilder(p.payload),
		Pad:     clone(p.pad),
	}
}

func (p *EthernetPacket) Equal(other Packet) bool {
	o, ok := other.(*EthernetPacket)
	return ok && p.header == o.header && packetsEqual(p.payload, o.payload) && string(p.pad) == string(o.pad)
}

func (p *EthernetPacket) String() string {
	s := p.header.String() + payloadString(p.payload)
	if len(p.pad) > 0 {
		d := newDump("Ethernet Pad", len(p.pad))
		d.field("Hex stream", hexStream(p.pad))
		s += d.String()
	}
	return s
}

// EthernetBuilder builds an EthernetPacket.
type EthernetBuilder struct {
	DstAddr net.HardwareAddr
	SrcAddr net.HardwareAddr
	Type    namednumber.EtherType
	Payload Builder
	Pad     []byte
	// PaddingAtBuild replaces Pad with the zero bytes needed to reach the
	// minimum frame size.
	PaddingAtBuild bool
}

func (b *EthernetBuilder) Build() (Packet, error) {
	dst, err := macField("DstAddr", b.DstAddr)
	if err != nil {
		return nil, err
	}
	src, err := macField("SrcAddr", b.SrcAddr)
	if err != nil {
		return nil, err
	}
	payload, err := buildPayload(b.Payload, nil)
	if err != nil {
		return nil, err
	}
	pad := b.Pad
	if b.PaddingAtBuild {
		pad = nil
		if n := ethernetMinPayload - payloadLen(payload); n > 0 {
			pad = make([]byte, n)
		}
	}
	return newEthernetPacket(EthernetHeader{DstAddr: dst, SrcAddr: src, Type: b.Type}, payload, pad), nil
}

func macField(field string, addr net.HardwareAddr) ([6]byte, error) {
	if addr == nil {
		return [6]byte{}, &IncompleteBuilderError{Layer: ethernetName, Field: field}
	}
	if len(addr) != 6 {
		return [6]byte{}, &InvalidFieldError{Layer: ethernetName, Field: field, Reason: "must be 6 bytes"}
	}
	return [6]byte(addr), nil
}
