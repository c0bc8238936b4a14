package packet

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/pktcodec/pkg/namednumber"
)

func TestInternetChecksum(t *testing.T) {
	tests := []struct {
		name  string
		parts [][]byte
		want  uint16
	}{
		{"rfc1071 example", [][]byte{{0x00, 0x01, 0xf2, 0x03, 0xf4, 0xf5, 0xf6, 0xf7}}, 0x220d},
		{"split on odd boundaries", [][]byte{{0x00}, {0x01, 0xf2, 0x03}, {}, {0xf4, 0xf5, 0xf6, 0xf7}}, 0x220d},
		{"odd length", [][]byte{{0x01}}, 0xfeff},
		{"empty", nil, 0xffff},
		{"all ones", [][]byte{{0xff, 0xff}}, 0x0000},
		{"carry folding", [][]byte{{0xff, 0xff, 0xff, 0xff, 0x00, 0x02}}, 0xfffd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InternetChecksum(tt.parts...))
		})
	}
}

func TestIPv6PseudoHeader(t *testing.T) {
	src := netip.MustParseAddr("2001:db8::1")
	dst := netip.MustParseAddr("2001:db8::2")
	b := IPv6PseudoHeader(src, dst, 0x01020304, namednumber.IPNumberICMPv6)
	require.Len(t, b, 40)
	assert.Equal(t, src.AsSlice(), b[0:16])
	assert.Equal(t, dst.AsSlice(), b[16:32])
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04, 0, 0, 0, 58}, b[32:40])
}

func TestIPv4PseudoHeader(t *testing.T) {
	b := IPv4PseudoHeader(netip.MustParseAddr("192.0.2.1"), netip.MustParseAddr("198.51.100.7"), 12, namednumber.IPNumberUDP)
	assert.Equal(t, []byte{192, 0, 2, 1, 198, 51, 100, 7, 0, 17, 0, 12}, b)
}

func TestResolvePseudoHeader(t *testing.T) {
	v6a, v6b := netip.MustParseAddr("fe80::1"), netip.MustParseAddr("fe80::2")
	v4a := netip.MustParseAddr("10.0.0.1")
	enclosing := &PseudoHeader{Src: v6b, Dst: v6a}

	ph, err := resolvePseudoHeader("test", PseudoHeader{Src: v6a, Dst: v6b}, enclosing)
	require.NoError(t, err)
	assert.Equal(t, PseudoHeader{Src: v6a, Dst: v6b}, ph, "own addresses win")

	ph, err = resolvePseudoHeader("test", PseudoHeader{Src: v6a}, enclosing)
	require.NoError(t, err)
	assert.Equal(t, *enclosing, ph, "half-set own addresses fall back to the enclosing layer")

	_, err = resolvePseudoHeader("test", PseudoHeader{}, nil)
	assert.ErrorIs(t, err, ErrMissingChecksumContext)

	_, err = resolvePseudoHeader("test", PseudoHeader{Src: v4a, Dst: v6a}, nil)
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestUDPChecksumZeroIsSentAsOnes(t *testing.T) {
	src, dst := netip.MustParseAddr("2001:db8::1"), netip.MustParseAddr("2001:db8::2")
	build := func(data []byte) *UDPPacket {
		p, err := (&UDPBuilder{
			SrcPort:                1000,
			DstPort:                2000,
			SrcAddr:                src,
			DstAddr:                dst,
			Payload:                &UnknownBuilder{RawData: data},
			CorrectLengthAtBuild:   true,
			CorrectChecksumAtBuild: true,
		}).Build()
		require.NoError(t, err)
		return p.(*UDPPacket)
	}
	// A payload equal to the checksum of the zero payload sums to all ones.
	c0 := build([]byte{0, 0}).UDPHeader().Checksum
	p := build([]byte{byte(c0 >> 8), byte(c0)})
	assert.Equal(t, uint16(0xffff), p.UDPHeader().Checksum)
	assert.True(t, p.VerifyChecksum(src, dst))
}

func TestICMPv6ChecksumZeroIsKept(t *testing.T) {
	src, dst := netip.MustParseAddr("fe80::1"), netip.MustParseAddr("ff02::1")
	build := func(data []byte) *ICMPv6CommonPacket {
		p, err := (&ICMPv6CommonBuilder{
			Type:                   200,
			SrcAddr:                src,
			DstAddr:                dst,
			Payload:                &UnknownBuilder{RawData: data},
			CorrectChecksumAtBuild: true,
		}).Build()
		require.NoError(t, err)
		return p.(*ICMPv6CommonPacket)
	}
	c0 := build([]byte{0, 0}).CommonHeader().Checksum
	p := build([]byte{byte(c0 >> 8), byte(c0)})
	assert.Equal(t, uint16(0), p.CommonHeader().Checksum)
	assert.True(t, p.VerifyChecksum(src, dst))
}

func TestChecksumOddPayload(t *testing.T) {
	src, dst := netip.MustParseAddr("fe80::1"), netip.MustParseAddr("fe80::2")
	for _, n := range []int{0, 1, 2, 3, 7, 8} {
		data := make([]byte, n)
		for i := range data {
			data[i] = byte(0xa0 + i)
		}
		p, err := (&IPv6Builder{
			Version:    namednumber.IPVersion6,
			NextHeader: namednumber.IPNumberUDP,
			HopLimit:   64,
			SrcAddr:    src,
			DstAddr:    dst,
			Payload: &UDPBuilder{
				SrcPort:                53,
				DstPort:                5353,
				Payload:                &UnknownBuilder{RawData: data},
				CorrectLengthAtBuild:   true,
				CorrectChecksumAtBuild: true,
			},
			CorrectLengthAtBuild: true,
		}).Build()
		require.NoError(t, err)
		udp := p.Payload().(*UDPPacket)
		assert.True(t, udp.VerifyChecksum(src, dst), "payload of %d bytes", n)
		assert.NoError(t, p.(*IPv6Packet).Validate())
	}
}
