package packet

import (
	"net"
	"net/netip"
	"testing"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/pktcodec/pkg/namednumber"
)

// TestEchoMatchesGopacket serializes the same echo request with gopacket and
// compares the bytes, checksum included.
func TestEchoMatchesGopacket(t *testing.T) {
	ours := redirectedEcho(t)

	ip6 := &layers.IPv6{
		Version:      6,
		TrafficClass: 0x12,
		FlowLabel:    0x12345,
		NextHeader:   layers.IPProtocolICMPv6,
		HopLimit:     100,
		SrcIP:        net.ParseIP("aa:bb:cc::3:2:1"),
		DstIP:        net.ParseIP("aa:bb:cc::3:2:2"),
	}
	icmp := &layers.ICMPv6{
		TypeCode: layers.CreateICMPv6TypeCode(layers.ICMPv6TypeEchoRequest, 0),
	}
	require.NoError(t, icmp.SetNetworkLayerForChecksum(ip6))
	echo := &layers.ICMPv6Echo{Identifier: 100, SeqNumber: 10}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, ip6, icmp, echo, gopacket.Payload{0, 1, 2}))

	assert.Equal(t, buf.Bytes(), ours.RawData())

	decoded, err := Decode(buf.Bytes(), LayerTypeIPv6)
	require.NoError(t, err)
	assert.True(t, ours.Equal(decoded))
}

func TestUDPOverIPv4MatchesGopacket(t *testing.T) {
	ours := udpOverIPv4Frame(t).Payload()

	ip4 := &layers.IPv4{
		Version:  4,
		Id:       0x1234,
		Flags:    layers.IPv4DontFragment,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IP{192, 0, 2, 1},
		DstIP:    net.IP{198, 51, 100, 7},
	}
	udp := &layers.UDP{SrcPort: 5353, DstPort: 53}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip4))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, ip4, udp, gopacket.Payload("ping")))

	assert.Equal(t, buf.Bytes(), ours.RawData())
}

func TestGopacketParsesRedirect(t *testing.T) {
	redirect := buildRedirect(t)
	p, err := (&IPv6Builder{
		Version:    namednumber.IPVersion6,
		NextHeader: namednumber.IPNumberICMPv6,
		HopLimit:   255,
		SrcAddr:    netip.MustParseAddr("fe80::1"),
		DstAddr:    netip.MustParseAddr("fe80::2"),
		Payload: &ICMPv6CommonBuilder{
			Type:                   namednumber.ICMPv6TypeRedirect,
			Payload:                redirect.Builder(),
			CorrectChecksumAtBuild: true,
		},
		CorrectLengthAtBuild: true,
	}).Build()
	require.NoError(t, err)

	pkt := gopacket.NewPacket(p.RawData(), layers.LayerTypeIPv6, gopacket.Default)
	require.Nil(t, pkt.ErrorLayer())
	l := pkt.Layer(layers.LayerTypeICMPv6Redirect)
	require.NotNil(t, l)
	r := l.(*layers.ICMPv6Redirect)
	assert.Equal(t, net.ParseIP("fe80::aaaa:bbbb:0:1"), r.TargetAddress)
	assert.Equal(t, net.ParseIP("fe80::aaaa:bbbb:0:254"), r.DestinationAddress)
	require.Len(t, r.Options, 2)
	assert.Equal(t, layers.ICMPv6OptTargetAddress, r.Options[0].Type)
	assert.Equal(t, layers.ICMPv6OptRedirectedHeader, r.Options[1].Type)

	icmp := pkt.Layer(layers.LayerTypeICMPv6).(*layers.ICMPv6)
	assert.Equal(t, p.Payload().(*ICMPv6CommonPacket).CommonHeader().Checksum, icmp.Checksum)
}

func TestEchoReply(t *testing.T) {
	p, err := (&ICMPv6CommonBuilder{
		Type:    namednumber.ICMPv6TypeEchoReply,
		Payload: &ICMPv6EchoBuilder{Reply: true, Identifier: 7, SequenceNumber: 8},
	}).Build()
	require.NoError(t, err)

	decoded, err := Decode(p.RawData(), LayerTypeICMPv6)
	require.NoError(t, err)
	require.True(t, p.Equal(decoded))
	assert.Equal(t, LayerTypeICMPv6EchoReply, decoded.Payload().LayerType())
	assert.Nil(t, decoded.Payload().Payload())
}

func TestPacketTooBig(t *testing.T) {
	src, dst := netip.MustParseAddr("2001:db8::fe"), netip.MustParseAddr("aa:bb:cc::3:2:1")
	invoking := redirectedEcho(t)
	p, err := (&IPv6Builder{
		Version:    namednumber.IPVersion6,
		NextHeader: namednumber.IPNumberICMPv6,
		HopLimit:   64,
		SrcAddr:    src,
		DstAddr:    dst,
		Payload: &ICMPv6CommonBuilder{
			Type: namednumber.ICMPv6TypePacketTooBig,
			Payload: &ICMPv6ErrorBuilder{
				Kind:    LayerTypeICMPv6PacketTooBig,
				Value:   1280,
				Payload: invoking.Builder(),
			},
			CorrectChecksumAtBuild: true,
		},
		CorrectLengthAtBuild: true,
	}).Build()
	require.NoError(t, err)

	decoded, err := Decode(p.RawData(), LayerTypeIPv6)
	require.NoError(t, err)
	require.True(t, p.Equal(decoded))

	body := decoded.Payload().Payload().(*ICMPv6ErrorPacket)
	assert.Equal(t, LayerTypeICMPv6PacketTooBig, body.LayerType())
	assert.Equal(t, uint32(1280), body.ErrorHeader().Value)
	assert.True(t, invoking.Equal(body.Payload()))
	assert.Contains(t, body.String(), "  MTU: 1280\n")
}

func TestErrorMessageQuotesTruncatedPacket(t *testing.T) {
	quoted := redirectedEcho(t).RawData()[:46]
	p, err := (&ICMPv6ErrorBuilder{
		Kind:    LayerTypeICMPv6DestinationUnreachable,
		Payload: &UnknownBuilder{RawData: quoted},
	}).Build()
	require.NoError(t, err)
	require.Equal(t, LayerTypeIPv6, p.Payload().LayerType())
	assert.Equal(t, quoted, p.Payload().RawData())

	decoded, err := Decode(p.RawData(), LayerTypeICMPv6DestinationUnreachable)
	require.NoError(t, err)
	assert.True(t, p.Equal(decoded))

	_, err = (&ICMPv6ErrorBuilder{Kind: LayerTypeICMPv6Redirect}).Build()
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestICMPv6ChecksumContext(t *testing.T) {
	_, err := (&ICMPv6CommonBuilder{
		Type:                   namednumber.ICMPv6TypeEchoRequest,
		Payload:                &ICMPv6EchoBuilder{},
		CorrectChecksumAtBuild: true,
	}).Build()
	var ce *MissingChecksumContextError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "ICMPv6", ce.Layer)

	_, err = (&IPv4Builder{
		Version:  namednumber.IPVersion4,
		Protocol: namednumber.IPNumberICMPv6,
		SrcAddr:  netip.MustParseAddr("10.0.0.1"),
		DstAddr:  netip.MustParseAddr("10.0.0.2"),
		Payload: &ICMPv6CommonBuilder{
			Type:                   namednumber.ICMPv6TypeEchoRequest,
			CorrectChecksumAtBuild: true,
		},
	}).Build()
	assert.ErrorIs(t, err, ErrInvalidField)

	// The builder's own addresses win over the enclosing header's.
	own := PseudoHeader{Src: netip.MustParseAddr("fe80::a"), Dst: netip.MustParseAddr("fe80::b")}
	p, err := (&ICMPv6CommonBuilder{
		Type:                   namednumber.ICMPv6TypeEchoRequest,
		SrcAddr:                own.Src,
		DstAddr:                own.Dst,
		Payload:                &ICMPv6EchoBuilder{Identifier: 1},
		CorrectChecksumAtBuild: true,
	}).BuildWithPseudoHeader(PseudoHeader{Src: netip.MustParseAddr("fe80::1"), Dst: netip.MustParseAddr("fe80::2")})
	require.NoError(t, err)
	assert.True(t, p.(*ICMPv6CommonPacket).VerifyChecksum(own.Src, own.Dst))
}

func TestICMPv6CommonString(t *testing.T) {
	h := ICMPv6CommonHeader{Type: namednumber.ICMPv6TypeDestinationUnreachable, Code: 4, Checksum: 0xbeef}
	assert.Equal(t, "[ICMPv6 Common Header (4 bytes)]\n"+
		"  Type: 1 (destination unreachable)\n"+
		"  Code: 4 (port unreachable)\n"+
		"  Checksum: 0xbeef\n", h.String())
}
