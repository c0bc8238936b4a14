package pcapfile

import (
	"bytes"
	"errors"
	"io"
	"net"
	"net/netip"
	"path/filepath"
	"testing"
	"time"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/pktcodec/internal/core"
	"firestige.xyz/pktcodec/internal/core/decoder"
	"firestige.xyz/pktcodec/pkg/namednumber"
	"firestige.xyz/pktcodec/pkg/packet"
)

func redirectFrame(t *testing.T) packet.Packet {
	t.Helper()
	echo, err := (&packet.IPv6Builder{
		Version:    namednumber.IPVersion6,
		NextHeader: namednumber.IPNumberICMPv6,
		HopLimit:   100,
		SrcAddr:    netip.MustParseAddr("2001:db8::1"),
		DstAddr:    netip.MustParseAddr("2001:db8::2"),
		Payload: &packet.ICMPv6CommonBuilder{
			Type: namednumber.ICMPv6TypeEchoRequest,
			Payload: &packet.ICMPv6EchoBuilder{
				Identifier:     100,
				SequenceNumber: 10,
				Payload:        &packet.UnknownBuilder{RawData: []byte{0, 1, 2}},
			},
			CorrectChecksumAtBuild: true,
		},
		CorrectLengthAtBuild: true,
	}).Build()
	require.NoError(t, err)

	p, err := (&packet.EthernetBuilder{
		DstAddr: net.HardwareAddr{0x02, 0, 0, 0, 0, 2},
		SrcAddr: net.HardwareAddr{0x02, 0, 0, 0, 0, 1},
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
					DestinationAddress: netip.MustParseAddr("2001:db8::2"),
					Options: []packet.NDOptionBuilder{
						&packet.LinkLayerAddressOptionBuilder{
							Type:                 namednumber.NDOptionTypeTargetLinkLayerAddress,
							LinkLayerAddress:     net.HardwareAddr{0x02, 0, 0, 0, 0, 3},
							CorrectLengthAtBuild: true,
						},
						&packet.RedirectedHeaderOptionBuilder{
							Packet:               echo,
							CorrectLengthAtBuild: true,
						},
					},
				},
				CorrectChecksumAtBuild: true,
			},
			CorrectLengthAtBuild: true,
		},
	}).Build()
	require.NoError(t, err)
	return p
}

func TestRoundTripRedirect(t *testing.T) {
	frame := redirectFrame(t)
	ts := time.Date(2024, 3, 1, 12, 0, 0, 123456000, time.UTC)

	var buf bytes.Buffer
	w, err := NewWriter(&buf, namednumber.DataLinkTypeEN10MB, 0)
	require.NoError(t, err)
	require.NoError(t, w.WritePacket(ts, frame))
	require.NoError(t, w.Close())

	r, err := NewReader(&buf)
	require.NoError(t, err)
	assert.Equal(t, namednumber.DataLinkTypeEN10MB, r.LinkType())
	assert.Equal(t, uint32(DefaultSnaplen), r.Snaplen())

	raw, err := r.ReadPacket()
	require.NoError(t, err)
	assert.True(t, ts.Equal(raw.Timestamp))
	assert.Equal(t, frame.RawData(), raw.Data)
	assert.Equal(t, uint32(frame.Len()), raw.CaptureLen)
	assert.Equal(t, uint32(frame.Len()), raw.OrigLen)

	decoded, err := decoder.NewStandardDecoder(decoder.Config{Strict: true}).Decode(raw)
	require.NoError(t, err)
	assert.True(t, frame.Equal(decoded.Packet), "read back:\n%s", decoded.Packet)
	assert.Equal(t, "Ethernet > IPv6 > ICMPv6 > ICMPv6 Redirect", decoded.LayerChain())

	_, err = r.ReadPacket()
	assert.ErrorIs(t, err, io.EOF)
}

// TestFileReadableByGopacket checks the records against an independent
// decoder.
func TestFileReadableByGopacket(t *testing.T) {
	frame := redirectFrame(t)
	path := filepath.Join(t.TempDir(), "redirect.pcap")

	w, err := Create(path, namednumber.DataLinkTypeEN10MB, 0)
	require.NoError(t, err)
	require.NoError(t, w.WritePacket(time.Unix(1700000000, 0), frame))
	require.NoError(t, w.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	raw, err := r.ReadPacket()
	require.NoError(t, err)

	gp := gopacket.NewPacket(raw.Data, layers.LayerTypeEthernet, gopacket.Default)
	require.Nil(t, gp.ErrorLayer())
	redirect, ok := gp.Layer(layers.LayerTypeICMPv6Redirect).(*layers.ICMPv6Redirect)
	require.True(t, ok)
	assert.Equal(t, net.ParseIP("fe80::3"), redirect.TargetAddress)
	assert.Equal(t, net.ParseIP("2001:db8::2"), redirect.DestinationAddress)
	require.Len(t, redirect.Options, 2)
	assert.Equal(t, layers.ICMPv6OptTargetAddress, redirect.Options[0].Type)
	assert.Equal(t, layers.ICMPv6OptRedirectedHeader, redirect.Options[1].Type)
}

func TestWriterTimestampOrder(t *testing.T) {
	frame := redirectFrame(t)
	var buf bytes.Buffer
	w, err := NewWriter(&buf, namednumber.DataLinkTypeEN10MB, 0)
	require.NoError(t, err)

	ts := time.Unix(1700000000, 0)
	require.NoError(t, w.WritePacket(ts, frame))
	require.NoError(t, w.WritePacket(ts, frame))
	err = w.WritePacket(ts.Add(-time.Second), frame)
	assert.True(t, errors.Is(err, core.ErrTimestampOrder), "got %v", err)
	require.NoError(t, w.Close())

	r, err := NewReader(&buf)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err := r.ReadPacket()
		require.NoError(t, err)
	}
	_, err = r.ReadPacket()
	assert.ErrorIs(t, err, io.EOF)
}

func TestWriterSnaplen(t *testing.T) {
	frame := redirectFrame(t)
	var buf bytes.Buffer
	w, err := NewWriter(&buf, namednumber.DataLinkTypeEN10MB, 64)
	require.NoError(t, err)
	require.NoError(t, w.WritePacket(time.Unix(1700000000, 0), frame))
	require.NoError(t, w.Close())

	r, err := NewReader(&buf)
	require.NoError(t, err)
	raw, err := r.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, uint32(64), raw.CaptureLen)
	assert.Equal(t, uint32(frame.Len()), raw.OrigLen)
	assert.True(t, raw.Truncated())
	assert.Equal(t, frame.RawData()[:64], raw.Data)

	// The snapshot still decodes, with the cut ICMPv6 message kept raw.
	decoded, err := decoder.NewStandardDecoder(decoder.Config{Strict: true}).Decode(raw)
	require.NoError(t, err)
	assert.True(t, decoded.Truncated)
	assert.Equal(t, packet.LayerTypeIPv6, decoded.Packet.Payload().LayerType())
	assert.Equal(t, raw.Data, decoded.Packet.RawData())
}

func TestReadNullLinkType(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, namednumber.DataLinkTypeNull, 0)
	require.NoError(t, err)
	require.NoError(t, w.WriteRaw(core.RawPacket{Data: make([]byte, 20), Timestamp: time.Unix(1700000000, 0), CaptureLen: 20, OrigLen: 20}))
	require.NoError(t, w.Close())

	r, err := NewReader(&buf)
	require.NoError(t, err)
	raw, err := r.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, namednumber.DataLinkTypeNull, raw.LinkType)

	_, err = decoder.NewStandardDecoder(decoder.Config{LinkType: namednumber.DataLinkTypeEN10MB, Strict: true}).Decode(raw)
	assert.ErrorIs(t, err, core.ErrUnsupportedLinkType)
}

func TestNewWriterUnsetLinkType(t *testing.T) {
	_, err := NewWriter(io.Discard, namednumber.DataLinkTypeUnset, 0)
	assert.ErrorIs(t, err, core.ErrUnsupportedLinkType)
}

func TestWriterClosed(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, namednumber.DataLinkTypeRaw, 0)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.WriteRaw(core.RawPacket{Data: []byte{0x60}, CaptureLen: 1, OrigLen: 1}), io.ErrClosedPipe)
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.pcap"))
	assert.Error(t, err)
}
