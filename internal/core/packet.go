// Package core defines the values exchanged between capture sources, the
// decoder and the capture file writer.
package core

import (
	"strings"
	"time"

	"firestige.xyz/pktcodec/pkg/namednumber"
	"firestige.xyz/pktcodec/pkg/packet"
)

// RawPacket is a captured frame as read from a capture file.
type RawPacket struct {
	Data           []byte    // Captured bytes
	Timestamp      time.Time // Capture timestamp
	CaptureLen     uint32    // Actual captured length
	OrigLen        uint32    // Original frame length
	InterfaceIndex int       // Network interface index
	// LinkType of the capture. DataLinkTypeUnset defers to the decoder's
	// configured link type; zero is LINKTYPE_NULL.
	LinkType namednumber.DataLinkType
}

// Truncated reports whether the capture holds less than the frame on the
// wire.
func (r RawPacket) Truncated() bool { return r.CaptureLen < r.OrigLen }

// DecodedPacket is the result of decoding a RawPacket.
type DecodedPacket struct {
	Timestamp  time.Time
	Packet     packet.Packet
	CaptureLen uint32
	OrigLen    uint32
	Truncated  bool // Decoded as a snapshot
}

// Layers returns the layer types from the outermost inwards.
func (d DecodedPacket) Layers() []packet.LayerType {
	var lts []packet.LayerType
	for p := d.Packet; p != nil; p = p.Payload() {
		lts = append(lts, p.LayerType())
	}
	return lts
}

// LayerChain renders Layers as "Ethernet > IPv6 > ...".
func (d DecodedPacket) LayerChain() string {
	lts := d.Layers()
	names := make([]string, len(lts))
	for i, lt := range lts {
		names[i] = lt.String()
	}
	return strings.Join(names, " > ")
}

// Innermost returns the deepest decoded layer.
func (d DecodedPacket) Innermost() packet.Packet {
	p := d.Packet
	for p != nil && p.Payload() != nil {
		p = p.Payload()
	}
	return p
}
