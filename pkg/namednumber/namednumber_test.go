package namednumber

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEtherTypeString(t *testing.T) {
	assert.Equal(t, "0x86dd (IPv6)", EtherTypeIPv6.String())
	assert.Equal(t, "0x0800 (IPv4)", EtherTypeIPv4.String())
	assert.Equal(t, "0x1234 (unknown)", EtherType(0x1234).String())
	assert.Equal(t, "Length", EtherType(60).Name())
	assert.True(t, EtherType(1500).IsLength())
	assert.False(t, EtherType(1536).IsLength())
}

func TestReverseLookup(t *testing.T) {
	et, ok := EtherTypeByName("ipv6")
	assert.True(t, ok)
	assert.Equal(t, EtherTypeIPv6, et)

	n, ok := IPNumberByName("ICMPv6")
	assert.True(t, ok)
	assert.Equal(t, IPNumberICMPv6, n)

	typ, ok := ICMPv6TypeByName("redirect message")
	assert.True(t, ok)
	assert.Equal(t, ICMPv6TypeRedirect, typ)

	_, ok = NDOptionTypeByName("no such option")
	assert.False(t, ok)
}

func TestICMPv6TypeNames(t *testing.T) {
	assert.Equal(t, "echo request", ICMPv6TypeEchoRequest.Name())
	assert.Equal(t, "137 (redirect message)", ICMPv6TypeRedirect.String())
	assert.Equal(t, "unknown", ICMPv6Type(255).Name())
	assert.True(t, ICMPv6TypeTimeExceeded.IsError())
	assert.False(t, ICMPv6TypeEchoReply.IsError())
}

func TestICMPv6CodeNameFor(t *testing.T) {
	tests := []struct {
		typ  ICMPv6Type
		code ICMPv6Code
		want string
	}{
		{ICMPv6TypeEchoRequest, 0, "No Code"},
		{ICMPv6TypeEchoRequest, 7, "unknown"},
		{ICMPv6TypeDestinationUnreachable, 4, "port unreachable"},
		{ICMPv6TypeDestinationUnreachable, 42, "unknown"},
		{ICMPv6TypeTimeExceeded, 0, "hop limit exceeded in transit"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.code.NameFor(tt.typ), "type %d code %d", tt.typ, tt.code)
	}
	assert.Equal(t, "4 (port unreachable)", ICMPv6Code(4).Format(ICMPv6TypeDestinationUnreachable))
}

func TestRegister(t *testing.T) {
	RegisterIPNumber(253, "Experimentation")
	assert.Equal(t, "Experimentation", IPNumber(253).Name())
	RegisterIPNumber(253, "Testing")
	_, ok := IPNumberByName("experimentation")
	assert.False(t, ok, "old name must be dropped on re-registration")
	n, ok := IPNumberByName("testing")
	assert.True(t, ok)
	assert.Equal(t, IPNumber(253), n)
}

func TestDataLinkType(t *testing.T) {
	assert.Equal(t, "1 (Ethernet)", DataLinkTypeEN10MB.String())
	dlt, ok := DataLinkTypeByName("raw")
	assert.True(t, ok)
	assert.Equal(t, DataLinkTypeRaw, dlt)
}
