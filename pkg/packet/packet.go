// Package packet models network packets as chains of typed, immutable layers.
//
// A Packet is a Header plus an optional payload Packet. Packets are created
// by decoding bytes (Decode, DecodeLink, DecodeTruncated) or by building them
// from a Builder, and never change afterwards. Decoding and re-encoding is
// lossless: for every accepted input b, Decode(b, t).RawData() equals b.
//
// Builders are plain structs. Their CorrectLengthAtBuild and
// CorrectChecksumAtBuild fields derive length and checksum fields from the
// content; when unset the supplied values are written verbatim, which allows
// building deliberately inconsistent packets.
package packet

// Packet is one decoded or built protocol layer and everything it
// encapsulates.
type Packet interface {
	// LayerType identifies the outermost protocol of the packet.
	LayerType() LayerType
	// Header returns the header of the outermost layer, or nil for raw data.
	Header() Header
	// Payload returns the encapsulated packet, or nil if there is none.
	Payload() Packet
	// RawData returns a fresh copy of the encoded packet.
	RawData() []byte
	// Len returns the encoded length in bytes.
	Len() int
	// Builder returns a builder pre-populated with the fields of the packet.
	// Building it without changes yields a packet equal to this one.
	Builder() Builder
	// Equal reports whether other has the same type and field values,
	// recursively through the payload chain.
	Equal(other Packet) bool
	// String returns a multi-line dump of every layer.
	String() string
}

// Header is the fixed part plus options of one layer.
type Header interface {
	RawData() []byte
	Len() int
	Equal(other Header) bool
	String() string
}

// Builder stages the fields of a packet and produces it on Build. Building
// the same builder twice yields equal, independent packets.
type Builder interface {
	Build() (Packet, error)
}

// ChecksumContextBuilder is implemented by builders whose checksum covers a
// pseudo-header. An enclosing network-layer builder calls
// BuildWithPseudoHeader with its own addresses.
type ChecksumContextBuilder interface {
	Builder
	BuildWithPseudoHeader(ph PseudoHeader) (Packet, error)
}

// Validator is implemented by packets that can check their length and
// reserved fields against protocol constraints.
type Validator interface {
	Validate() error
}

// buildPayload builds b, handing ph to it when it needs a checksum context.
func buildPayload(b Builder, ph *PseudoHeader) (Packet, error) {
	if b == nil {
		return nil, nil
	}
	var (
		p   Packet
		err error
	)
	if cb, ok := b.(ChecksumContextBuilder); ok && ph != nil {
		p, err = cb.BuildWithPseudoHeader(*ph)
	} else {
		p, err = b.Build()
	}
	if err != nil {
		return nil, err
	}
	// An empty payload decodes as no payload at all.
	if u, ok := p.(*UnknownPacket); ok && u.Len() == 0 {
		return nil, nil
	}
	return p, nil
}

func payloadBuilder(p Packet) Builder {
	if p == nil {
		return nil
	}
	return p.Builder()
}

func payloadLen(p Packet) int {
	if p == nil {
		return 0
	}
	return p.Len()
}

func payloadString(p Packet) string {
	if p == nil {
		return ""
	}
	return p.String()
}

// packetsEqual compares two possibly nil packets.
func packetsEqual(a, b Packet) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b)
}

// encode concatenates a header, an optional payload and trailing bytes.
func encode(h Header, payload Packet, trailer []byte) []byte {
	raw := make([]byte, 0, h.Len()+payloadLen(payload)+len(trailer))
	raw = append(raw, h.RawData()...)
	if payload != nil {
		raw = append(raw, payload.RawData()...)
	}
	return append(raw, trailer...)
}
