package decoder

import (
	"errors"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/pktcodec/internal/core"
	"firestige.xyz/pktcodec/pkg/namednumber"
	"firestige.xyz/pktcodec/pkg/packet"
)

// Helper function to create a simple IPv4 UDP packet
func makeSimpleUDPPacket() []byte {
	packet := make([]byte, 42) // Ethernet + IPv4 + UDP headers

	// Ethernet header (14 bytes)
	// Dst MAC: 00:11:22:33:44:55
	packet[0], packet[1], packet[2] = 0x00, 0x11, 0x22
	packet[3], packet[4], packet[5] = 0x33, 0x44, 0x55
	// Src MAC: AA:BB:CC:DD:EE:FF
	packet[6], packet[7], packet[8] = 0xAA, 0xBB, 0xCC
	packet[9], packet[10], packet[11] = 0xDD, 0xEE, 0xFF
	// EtherType: IPv4 (0x0800)
	packet[12], packet[13] = 0x08, 0x00

	// IPv4 header (20 bytes)
	packet[14] = 0x45                   // Version 4, IHL 5
	packet[15] = 0x00                   // DSCP, ECN
	packet[16], packet[17] = 0x00, 0x1C // Total Length: 28 bytes
	packet[18], packet[19] = 0x12, 0x34 // Identification
	packet[20], packet[21] = 0x00, 0x00 // Flags, Fragment Offset
	packet[22] = 0x40                   // TTL: 64
	packet[23] = 0x11                   // Protocol: UDP (17)
	packet[24], packet[25] = 0x00, 0x00 // Checksum (not calculated)
	// Src IP: 192.168.1.1
	packet[26], packet[27], packet[28], packet[29] = 192, 168, 1, 1
	// Dst IP: 192.168.1.2
	packet[30], packet[31], packet[32], packet[33] = 192, 168, 1, 2

	// UDP header (8 bytes)
	packet[34], packet[35] = 0x13, 0x88 // Src Port: 5000
	packet[36], packet[37] = 0x13, 0x89 // Dst Port: 5001
	packet[38], packet[39] = 0x00, 0x08 // Length: 8 bytes
	packet[40], packet[41] = 0x00, 0x00 // Checksum (not calculated)

	return packet
}

func rawOf(data []byte) core.RawPacket {
	return core.RawPacket{
		Data:       data,
		Timestamp:  time.Unix(1700000000, 0),
		CaptureLen: uint32(len(data)),
		OrigLen:    uint32(len(data)),
		LinkType:   namednumber.DataLinkTypeUnset,
	}
}

var strictEthernet = Config{LinkType: namednumber.DataLinkTypeEN10MB, Strict: true}

func TestStandardDecoderDecode(t *testing.T) {
	decoder := NewStandardDecoder(strictEthernet)

	decoded, err := decoder.Decode(rawOf(makeSimpleUDPPacket()))
	require.NoError(t, err)

	assert.Equal(t, "Ethernet > IPv4 > UDP", decoded.LayerChain())
	assert.False(t, decoded.Truncated)
	assert.Equal(t, time.Unix(1700000000, 0), decoded.Timestamp)

	eth := decoded.Packet.(*packet.EthernetPacket)
	h := eth.Header().(packet.EthernetHeader)
	assert.Equal(t, namednumber.EtherTypeIPv4, h.Type)
	assert.Equal(t, [6]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}, h.SrcAddr)

	ip := eth.Payload().(*packet.IPv4Packet).IPv4Header()
	assert.Equal(t, namednumber.IPVersion4, ip.Version)
	assert.Equal(t, namednumber.IPNumberUDP, ip.Protocol)
	assert.Equal(t, netip.MustParseAddr("192.168.1.1"), ip.SrcAddr)
	assert.Equal(t, netip.MustParseAddr("192.168.1.2"), ip.DstAddr)

	udp := decoded.Innermost().(*packet.UDPPacket).UDPHeader()
	assert.Equal(t, uint16(5000), udp.SrcPort)
	assert.Equal(t, uint16(5001), udp.DstPort)

	assert.Equal(t, makeSimpleUDPPacket(), decoded.Packet.RawData())
}

func TestStandardDecoderEmpty(t *testing.T) {
	decoder := NewStandardDecoder(DefaultConfig())
	_, err := decoder.Decode(core.RawPacket{})
	assert.ErrorIs(t, err, core.ErrPacketTooShort)
}

func TestStandardDecoderSnapshot(t *testing.T) {
	frame := makeSimpleUDPPacket()
	// The wire frame was longer: the IPv4 total length claims 100 bytes.
	frame[16], frame[17] = 0x00, 0x64

	strict := NewStandardDecoder(strictEthernet)
	_, err := strict.Decode(rawOf(frame))
	assert.True(t, errors.Is(err, packet.ErrMalformedHeader), "got %v", err)

	raw := rawOf(frame)
	raw.OrigLen = 114
	decoded, err := strict.Decode(raw)
	require.NoError(t, err)
	assert.True(t, decoded.Truncated)
	assert.Equal(t, packet.LayerTypeIPv4, decoded.Packet.Payload().LayerType())
	assert.Equal(t, frame, decoded.Packet.RawData())

	lenient := NewStandardDecoder(DefaultConfig())
	decoded, err = lenient.Decode(rawOf(frame))
	require.NoError(t, err)
	assert.False(t, decoded.Truncated)
	assert.Equal(t, frame, decoded.Packet.RawData())
}

func TestStandardDecoderLinkType(t *testing.T) {
	ipOnly := makeSimpleUDPPacket()[14:]

	decoder := NewStandardDecoder(Config{LinkType: namednumber.DataLinkTypeRaw, Strict: true})
	decoded, err := decoder.Decode(rawOf(ipOnly))
	require.NoError(t, err)
	assert.Equal(t, "IPv4 > UDP", decoded.LayerChain())

	// A per-record link type wins over the configured one.
	raw := rawOf(makeSimpleUDPPacket())
	raw.LinkType = namednumber.DataLinkTypeEN10MB
	decoded, err = decoder.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, packet.LayerTypeEthernet, decoded.Packet.LayerType())
}

func TestStandardDecoderUnsupportedLinkType(t *testing.T) {
	raw := rawOf(makeSimpleUDPPacket())
	raw.LinkType = namednumber.DataLinkType(147)

	_, err := NewStandardDecoder(strictEthernet).Decode(raw)
	assert.ErrorIs(t, err, core.ErrUnsupportedLinkType)

	decoded, err := NewStandardDecoder(DefaultConfig()).Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, packet.LayerTypeUnknown, decoded.Packet.LayerType())
	assert.Equal(t, raw.Data, decoded.Packet.RawData())
}

func TestStandardDecoderNullLinkType(t *testing.T) {
	raw := rawOf(make([]byte, 20))
	raw.LinkType = namednumber.DataLinkTypeNull

	_, err := NewStandardDecoder(strictEthernet).Decode(raw)
	assert.ErrorIs(t, err, core.ErrUnsupportedLinkType)

	decoded, err := NewStandardDecoder(DefaultConfig()).Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "Unknown", decoded.LayerChain())

	// A configured NULL link type is kept, not replaced by Ethernet.
	null := NewStandardDecoder(Config{LinkType: namednumber.DataLinkTypeNull, Strict: true})
	assert.Equal(t, namednumber.DataLinkTypeNull, null.config.LinkType)
	_, err = null.Decode(rawOf(make([]byte, 20)))
	assert.ErrorIs(t, err, core.ErrUnsupportedLinkType)
}

func TestStandardDecoderUnsetLinkType(t *testing.T) {
	d := NewStandardDecoder(Config{LinkType: namednumber.DataLinkTypeUnset})
	assert.Equal(t, namednumber.DataLinkTypeEN10MB, d.config.LinkType)

	decoded, err := d.Decode(rawOf(makeSimpleUDPPacket()))
	require.NoError(t, err)
	assert.Equal(t, "Ethernet > IPv4 > UDP", decoded.LayerChain())
}

func TestStandardDecoderRedirect(t *testing.T) {
	p, err := (&packet.EthernetBuilder{
		DstAddr: []byte{0x33, 0x33, 0, 0, 0, 1},
		SrcAddr: []byte{0x02, 0, 0, 0, 0, 1},
		Type:    namednumber.EtherTypeIPv6,
		Payload: &packet.IPv6Builder{
			Version:    namednumber.IPVersion6,
			NextHeader: namednumber.IPNumberICMPv6,
			HopLimit:   255,
			SrcAddr:    netip.MustParseAddr("fe80::1"),
			DstAddr:    netip.MustParseAddr("fe80::2"),
			Payload: &packet.ICMPv6CommonBuilder{
				Type: namednumber.ICMPv6TypeRedirect,
				Payload: &packet.ICMPv6RedirectBuilder{
					TargetAddress:      netip.MustParseAddr("fe80::3"),
					DestinationAddress: netip.MustParseAddr("2001:db8::1"),
				},
				CorrectChecksumAtBuild: true,
			},
			CorrectLengthAtBuild: true,
		},
	}).Build()
	require.NoError(t, err)

	decoded, err := NewStandardDecoder(strictEthernet).Decode(rawOf(p.RawData()))
	require.NoError(t, err)
	assert.Equal(t, "Ethernet > IPv6 > ICMPv6 > ICMPv6 Redirect", decoded.LayerChain())
	assert.True(t, decoded.Packet.Equal(p))
}
