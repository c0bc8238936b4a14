package core

import (
	"errors"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/pktcodec/pkg/namednumber"
	"firestige.xyz/pktcodec/pkg/packet"
)

func TestRawPacketTruncated(t *testing.T) {
	assert.False(t, RawPacket{CaptureLen: 60, OrigLen: 60}.Truncated())
	assert.True(t, RawPacket{CaptureLen: 40, OrigLen: 60}.Truncated())
}

func TestDecodedPacketLayers(t *testing.T) {
	p, err := (&packet.IPv6Builder{
		Version:    namednumber.IPVersion6,
		NextHeader: namednumber.IPNumberICMPv6,
		SrcAddr:    netip.MustParseAddr("fe80::1"),
		DstAddr:    netip.MustParseAddr("fe80::2"),
		Payload: &packet.ICMPv6CommonBuilder{
			Type:    namednumber.ICMPv6TypeEchoRequest,
			Payload: &packet.ICMPv6EchoBuilder{Identifier: 1},
		},
		CorrectLengthAtBuild: true,
	}).Build()
	require.NoError(t, err)

	d := DecodedPacket{Timestamp: time.Unix(0, 0), Packet: p}
	assert.Equal(t, []packet.LayerType{
		packet.LayerTypeIPv6,
		packet.LayerTypeICMPv6,
		packet.LayerTypeICMPv6EchoRequest,
	}, d.Layers())
	assert.Equal(t, "IPv6 > ICMPv6 > ICMPv6 Echo Request", d.LayerChain())
	assert.Equal(t, packet.LayerTypeICMPv6EchoRequest, d.Innermost().LayerType())
}

func TestDecodedPacketEmpty(t *testing.T) {
	var d DecodedPacket
	assert.Empty(t, d.Layers())
	assert.Equal(t, "", d.LayerChain())
	assert.Nil(t, d.Innermost())
}

func TestSentinelErrors(t *testing.T) {
	errs := []error{ErrPacketTooShort, ErrUnsupportedLinkType, ErrTimestampOrder, ErrConfigInvalid, ErrBlueprintInvalid}
	for i, a := range errs {
		assert.Contains(t, a.Error(), "pktcodec: ")
		for j, b := range errs {
			if i != j {
				assert.False(t, errors.Is(a, b), "%v matches %v", a, b)
			}
		}
	}
}
