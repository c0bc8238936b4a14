// Package core defines sentinel errors.
package core

import "errors"

// Sentinel errors of the capture-side plumbing. Codec errors live in
// pkg/packet.
var (
	// Packet decoding errors
	ErrPacketTooShort      = errors.New("pktcodec: packet too short")
	ErrUnsupportedLinkType = errors.New("pktcodec: unsupported link type")

	// Capture file errors
	ErrTimestampOrder = errors.New("pktcodec: capture timestamps out of order")

	// Configuration errors
	ErrConfigInvalid    = errors.New("pktcodec: invalid configuration")
	ErrBlueprintInvalid = errors.New("pktcodec: invalid blueprint")
)
