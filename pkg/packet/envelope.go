package packet

import (
	"encoding/binary"
	"fmt"
)

const envelopeTagLen = 2

// Envelope is the serialized form of a packet: the bytes on the wire and the
// layer type they start with. It survives storage and transport where the
// typed packet does not.
type Envelope struct {
	LayerType LayerType
	Data      []byte
}

// NewEnvelope captures p.
func NewEnvelope(p Packet) Envelope {
	return Envelope{LayerType: p.LayerType(), Data: p.RawData()}
}

// MarshalBinary encodes the envelope as a 2-byte big-endian layer type
// followed by the data.
func (e Envelope) MarshalBinary() ([]byte, error) {
	b := make([]byte, envelopeTagLen, envelopeTagLen+len(e.Data))
	binary.BigEndian.PutUint16(b, uint16(e.LayerType))
	return append(b, e.Data...), nil
}

func (e *Envelope) UnmarshalBinary(data []byte) error {
	if len(data) < envelopeTagLen {
		return &MalformedHeaderError{Layer: "envelope", Reason: "missing layer type", Need: envelopeTagLen, Have: len(data)}
	}
	lt := LayerType(binary.BigEndian.Uint16(data))
	if _, ok := lookupLayerType(lt); !ok {
		return &InvalidFieldError{Layer: "envelope", Field: "LayerType", Reason: fmt.Sprintf("%d is not registered", uint16(lt))}
	}
	e.LayerType = lt
	e.Data = clone(data[envelopeTagLen:])
	return nil
}

// Packet decodes the envelope. Envelopes hold snapshots, so the data is
// decoded as possibly truncated.
func (e Envelope) Packet() (Packet, error) {
	return DecodeTruncated(e.Data, e.LayerType)
}
