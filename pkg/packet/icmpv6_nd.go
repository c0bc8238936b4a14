package packet

import (
	"fmt"
	"net/netip"

	"firestige.xyz/pktcodec/pkg/namednumber"
)

const (
	routerSolicitationHeaderLen    = 4
	neighborSolicitationHeaderLen  = 20
	neighborAdvertisementHeaderLen = 20
	redirectHeaderLen              = 36
)

func init() {
	for _, e := range []struct {
		lt     LayerType
		t      namednumber.ICMPv6Type
		name   string
		min    int
		decode DecodeFunc
	}{
		{LayerTypeICMPv6RouterSolicitation, namednumber.ICMPv6TypeRouterSolicitation, "ICMPv6 Router Solicitation", routerSolicitationHeaderLen, decodeRouterSolicitation},
		{LayerTypeICMPv6NeighborSolicitation, namednumber.ICMPv6TypeNeighborSolicitation, "ICMPv6 Neighbor Solicitation", neighborSolicitationHeaderLen, decodeNeighborSolicitation},
		{LayerTypeICMPv6NeighborAdvertisement, namednumber.ICMPv6TypeNeighborAdvertisement, "ICMPv6 Neighbor Advertisement", neighborAdvertisementHeaderLen, decodeNeighborAdvertisement},
		{LayerTypeICMPv6Redirect, namednumber.ICMPv6TypeRedirect, "ICMPv6 Redirect", redirectHeaderLen, decodeRedirect},
	} {
		mustRegisterLayerType(e.lt, LayerTypeMetadata{Name: e.name, MinHeaderLen: e.min, Decode: e.decode})
		RegisterICMPv6TypeLayer(e.t, e.lt)
	}
}

// validateNDOptions checks that every option's length field matches its
// encoded size.
func validateNDOptions(layer string, opts []NDOption) error {
	for i, o := range opts {
		if int(o.Length())*ndOptionUnit != o.Len() {
			return &InvalidFieldError{
				Layer:  layer,
				Field:  fmt.Sprintf("Options[%d].Length", i),
				Reason: fmt.Sprintf("is %d, option has %d bytes", o.Length(), o.Len()),
			}
		}
	}
	return nil
}

func copyNDOptions(opts []NDOption) []NDOption {
	if len(opts) == 0 {
		return nil
	}
	return append([]NDOption(nil), opts...)
}

// ICMPv6RouterSolicitationHeader is the body of a Router Solicitation
// (RFC 4861 §4.1).
type ICMPv6RouterSolicitationHeader struct {
	Reserved uint32
	options  []NDOption
}

// Options returns the options in wire order.
func (h ICMPv6RouterSolicitationHeader) Options() []NDOption { return copyNDOptions(h.options) }

func (h ICMPv6RouterSolicitationHeader) Len() int {
	return routerSolicitationHeaderLen + ndOptionsLen(h.options)
}

func (h ICMPv6RouterSolicitationHeader) RawData() []byte {
	b := make([]byte, routerSolicitationHeaderLen, h.Len())
	putUint32(b, 0, h.Reserved)
	return append(b, encodeNDOptions(h.options)...)
}

func (h ICMPv6RouterSolicitationHeader) Equal(other Header) bool {
	o, ok := other.(ICMPv6RouterSolicitationHeader)
	return ok && h.Reserved == o.Reserved && ndOptionsEqual(h.options, o.options)
}

func (h ICMPv6RouterSolicitationHeader) String() string {
	d := newDump("ICMPv6 Router Solicitation Header", h.Len())
	d.field("Reserved", h.Reserved)
	d.options(h.options)
	return d.String()
}

// ICMPv6RouterSolicitationPacket is the body of a Router Solicitation.
type ICMPv6RouterSolicitationPacket struct {
	header ICMPv6RouterSolicitationHeader
	raw    []byte
}

func decodeRouterSolicitation(data []byte, _ DecodeOptions) (Packet, error) {
	layer := LayerTypeICMPv6RouterSolicitation.String()
	if err := need(layer, data, 0, routerSolicitationHeaderLen); err != nil {
		return nil, err
	}
	opts, err := decodeNDOptions(layer, data[routerSolicitationHeaderLen:])
	if err != nil {
		return nil, err
	}
	h := ICMPv6RouterSolicitationHeader{Reserved: getUint32(data, 0), options: opts}
	return &ICMPv6RouterSolicitationPacket{header: h, raw: h.RawData()}, nil
}

func (p *ICMPv6RouterSolicitationPacket) LayerType() LayerType {
	return LayerTypeICMPv6RouterSolicitation
}
func (p *ICMPv6RouterSolicitationPacket) Header() Header  { return p.header }
func (p *ICMPv6RouterSolicitationPacket) Payload() Packet { return nil }
func (p *ICMPv6RouterSolicitationPacket) RawData() []byte { return clone(p.raw) }
func (p *ICMPv6RouterSolicitationPacket) Len() int        { return len(p.raw) }

// RouterSolicitationHeader returns the header with its concrete type.
func (p *ICMPv6RouterSolicitationPacket) RouterSolicitationHeader() ICMPv6RouterSolicitationHeader {
	return p.header
}

func (p *ICMPv6RouterSolicitationPacket) Builder() Builder {
	return &ICMPv6RouterSolicitationBuilder{Reserved: p.header.Reserved, Options: ndOptionBuilders(p.header.options)}
}

func (p *ICMPv6RouterSolicitationPacket) Equal(other Packet) bool {
	o, ok := other.(*ICMPv6RouterSolicitationPacket)
	return ok && p.header.Equal(o.header)
}

func (p *ICMPv6RouterSolicitationPacket) String() string { return p.header.String() }

func (p *ICMPv6RouterSolicitationPacket) Validate() error {
	return validateNDOptions(p.LayerType().String(), p.header.options)
}

// ICMPv6RouterSolicitationBuilder builds the body of a Router Solicitation.
type ICMPv6RouterSolicitationBuilder struct {
	Reserved uint32
	Options  []NDOptionBuilder
}

func (b *ICMPv6RouterSolicitationBuilder) Build() (Packet, error) {
	opts, err := buildNDOptions(LayerTypeICMPv6RouterSolicitation.String(), b.Options)
	if err != nil {
		return nil, err
	}
	h := ICMPv6RouterSolicitationHeader{Reserved: b.Reserved, options: opts}
	return &ICMPv6RouterSolicitationPacket{header: h, raw: h.RawData()}, nil
}

// ICMPv6NeighborSolicitationHeader is the body of a Neighbor Solicitation
// (RFC 4861 §4.3).
type ICMPv6NeighborSolicitationHeader struct {
	Reserved      uint32
	TargetAddress netip.Addr
	options       []NDOption
}

// Options returns the options in wire order.
func (h ICMPv6NeighborSolicitationHeader) Options() []NDOption { return copyNDOptions(h.options) }

func (h ICMPv6NeighborSolicitationHeader) Len() int {
	return neighborSolicitationHeaderLen + ndOptionsLen(h.options)
}

func (h ICMPv6NeighborSolicitationHeader) RawData() []byte {
	b := make([]byte, neighborSolicitationHeaderLen, h.Len())
	putUint32(b, 0, h.Reserved)
	putAddr16(b, 4, h.TargetAddress)
	return append(b, encodeNDOptions(h.options)...)
}

func (h ICMPv6NeighborSolicitationHeader) Equal(other Header) bool {
	o, ok := other.(ICMPv6NeighborSolicitationHeader)
	return ok && h.Reserved == o.Reserved && h.TargetAddress == o.TargetAddress && ndOptionsEqual(h.options, o.options)
}

func (h ICMPv6NeighborSolicitationHeader) String() string {
	d := newDump("ICMPv6 Neighbor Solicitation Header", h.Len())
	d.field("Reserved", h.Reserved)
	d.field("Target Address", h.TargetAddress)
	d.options(h.options)
	return d.String()
}

// ICMPv6NeighborSolicitationPacket is the body of a Neighbor Solicitation.
type ICMPv6NeighborSolicitationPacket struct {
	header ICMPv6NeighborSolicitationHeader
	raw    []byte
}

func decodeNeighborSolicitation(data []byte, _ DecodeOptions) (Packet, error) {
	layer := LayerTypeICMPv6NeighborSolicitation.String()
	if err := need(layer, data, 0, neighborSolicitationHeaderLen); err != nil {
		return nil, err
	}
	opts, err := decodeNDOptions(layer, data[neighborSolicitationHeaderLen:])
	if err != nil {
		return nil, err
	}
	h := ICMPv6NeighborSolicitationHeader{
		Reserved:      getUint32(data, 0),
		TargetAddress: getAddr16(data, 4),
		options:       opts,
	}
	return &ICMPv6NeighborSolicitationPacket{header: h, raw: h.RawData()}, nil
}

func (p *ICMPv6NeighborSolicitationPacket) LayerType() LayerType {
	return LayerTypeICMPv6NeighborSolicitation
}
func (p *ICMPv6NeighborSolicitationPacket) Header() Header  { return p.header }
func (p *ICMPv6NeighborSolicitationPacket) Payload() Packet { return nil }
func (p *ICMPv6NeighborSolicitationPacket) RawData() []byte { return clone(p.raw) }
func (p *ICMPv6NeighborSolicitationPacket) Len() int        { return len(p.raw) }

// NeighborSolicitationHeader returns the header with its concrete type.
func (p *ICMPv6NeighborSolicitationPacket) NeighborSolicitationHeader() ICMPv6NeighborSolicitationHeader {
	return p.header
}

func (p *ICMPv6NeighborSolicitationPacket) Builder() Builder {
	return &ICMPv6NeighborSolicitationBuilder{
		Reserved:      p.header.Reserved,
		TargetAddress: p.header.TargetAddress,
		Options:       ndOptionBuilders(p.header.options),
	}
}

func (p *ICMPv6NeighborSolicitationPacket) Equal(other Packet) bool {
	o, ok := other.(*ICMPv6NeighborSolicitationPacket)
	return ok && p.header.Equal(o.header)
}

func (p *ICMPv6NeighborSolicitationPacket) String() string { return p.header.String() }

func (p *ICMPv6NeighborSolicitationPacket) Validate() error {
	return validateNDOptions(p.LayerType().String(), p.header.options)
}

// ICMPv6NeighborSolicitationBuilder builds the body of a Neighbor
// Solicitation.
type ICMPv6NeighborSolicitationBuilder struct {
	Reserved      uint32
	TargetAddress netip.Addr
	Options       []NDOptionBuilder
}

func (b *ICMPv6NeighborSolicitationBuilder) Build() (Packet, error) {
	layer := LayerTypeICMPv6NeighborSolicitation.String()
	if err := ipv6AddrField(layer, "TargetAddress", b.TargetAddress); err != nil {
		return nil, err
	}
	opts, err := buildNDOptions(layer, b.Options)
	if err != nil {
		return nil, err
	}
	h := ICMPv6NeighborSolicitationHeader{Reserved: b.Reserved, TargetAddress: b.TargetAddress, options: opts}
	return &ICMPv6NeighborSolicitationPacket{header: h, raw: h.RawData()}, nil
}

const (
	naFlagRouter    = 1 << 31
	naFlagSolicited = 1 << 30
	naFlagOverride  = 1 << 29
	naReservedMask  = 1<<29 - 1
)

// ICMPv6NeighborAdvertisementHeader is the body of a Neighbor Advertisement
// (RFC 4861 §4.4). Reserved holds the 29 bits after the flags.
type ICMPv6NeighborAdvertisementHeader struct {
	Router        bool
	Solicited     bool
	Override      bool
	Reserved      uint32
	TargetAddress netip.Addr
	options       []NDOption
}

// Options returns the options in wire order.
func (h ICMPv6NeighborAdvertisementHeader) Options() []NDOption { return copyNDOptions(h.options) }

func (h ICMPv6NeighborAdvertisementHeader) Len() int {
	return neighborAdvertisementHeaderLen + ndOptionsLen(h.options)
}

func (h ICMPv6NeighborAdvertisementHeader) RawData() []byte {
	b := make([]byte, neighborAdvertisementHeaderLen, h.Len())
	v := h.Reserved & naReservedMask
	if h.Router {
		v |= naFlagRouter
	}
	if h.Solicited {
		v |= naFlagSolicited
	}
	if h.Override {
		v |= naFlagOverride
	}
	putUint32(b, 0, v)
	putAddr16(b, 4, h.TargetAddress)
	return append(b, encodeNDOptions(h.options)...)
}

func (h ICMPv6NeighborAdvertisementHeader) Equal(other Header) bool {
	o, ok := other.(ICMPv6NeighborAdvertisementHeader)
	return ok && h.Router == o.Router && h.Solicited == o.Solicited && h.Override == o.Override &&
		h.Reserved == o.Reserved && h.TargetAddress == o.TargetAddress && ndOptionsEqual(h.options, o.options)
}

func (h ICMPv6NeighborAdvertisementHeader) String() string {
	d := newDump("ICMPv6 Neighbor Advertisement Header", h.Len())
	d.field("Router flag", h.Router)
	d.field("Solicited flag", h.Solicited)
	d.field("Override flag", h.Override)
	d.field("Reserved", h.Reserved)
	d.field("Target Address", h.TargetAddress)
	d.options(h.options)
	return d.String()
}

// ICMPv6NeighborAdvertisementPacket is the body of a Neighbor
// Advertisement.
type ICMPv6NeighborAdvertisementPacket struct {
	header ICMPv6NeighborAdvertisementHeader
	raw    []byte
}

func decodeNeighborAdvertisement(data []byte, _ DecodeOptions) (Packet, error) {
	layer := LayerTypeICMPv6NeighborAdvertisement.String()
	if err := need(layer, data, 0, neighborAdvertisementHeaderLen); err != nil {
		return nil, err
	}
	opts, err := decodeNDOptions(layer, data[neighborAdvertisementHeaderLen:])
	if err != nil {
		return nil, err
	}
	v := getUint32(data, 0)
	h := ICMPv6NeighborAdvertisementHeader{
		Router:        v&naFlagRouter != 0,
		Solicited:     v&naFlagSolicited != 0,
		Override:      v&naFlagOverride != 0,
		Reserved:      v & naReservedMask,
		TargetAddress: getAddr16(data, 4),
		options:       opts,
	}
	return &ICMPv6NeighborAdvertisementPacket{header: h, raw: h.RawData()}, nil
}

func (p *ICMPv6NeighborAdvertisementPacket) LayerType() LayerType {
	return LayerTypeICMPv6NeighborAdvertisement
}
func (p *ICMPv6NeighborAdvertisementPacket) Header() Header  { return p.header }
func (p *ICMPv6NeighborAdvertisementPacket) Payload() Packet { return nil }
func (p *ICMPv6NeighborAdvertisementPacket) RawData() []byte { return clone(p.raw) }
func (p *ICMPv6NeighborAdvertisementPacket) Len() int        { return len(p.raw) }

// NeighborAdvertisementHeader returns the header with its concrete type.
func (p *ICMPv6NeighborAdvertisementPacket) NeighborAdvertisementHeader() ICMPv6NeighborAdvertisementHeader {
	return p.header
}

func (p *ICMPv6NeighborAdvertisementPacket) Builder() Builder {
	return &ICMPv6NeighborAdvertisementBuilder{
		Router:        p.header.Router,
		Solicited:     p.header.Solicited,
		Override:      p.header.Override,
		Reserved:      p.header.Reserved,
		TargetAddress: p.header.TargetAddress,
		Options:       ndOptionBuilders(p.header.options),
	}
}

func (p *ICMPv6NeighborAdvertisementPacket) Equal(other Packet) bool {
	o, ok := other.(*ICMPv6NeighborAdvertisementPacket)
	return ok && p.header.Equal(o.header)
}

func (p *ICMPv6NeighborAdvertisementPacket) String() string { return p.header.String() }

func (p *ICMPv6NeighborAdvertisementPacket) Validate() error {
	return validateNDOptions(p.LayerType().String(), p.header.options)
}

// ICMPv6NeighborAdvertisementBuilder builds the body of a Neighbor
// Advertisement.
type ICMPv6NeighborAdvertisementBuilder struct {
	Router        bool
	Solicited     bool
	Override      bool
	Reserved      uint32
	TargetAddress netip.Addr
	Options       []NDOptionBuilder
}

func (b *ICMPv6NeighborAdvertisementBuilder) Build() (Packet, error) {
	layer := LayerTypeICMPv6NeighborAdvertisement.String()
	if err := ipv6AddrField(layer, "TargetAddress", b.TargetAddress); err != nil {
		return nil, err
	}
	if b.Reserved > naReservedMask {
		return nil, &InvalidFieldError{Layer: layer, Field: "Reserved", Reason: "must fit in 29 bits"}
	}
	opts, err := buildNDOptions(layer, b.Options)
	if err != nil {
		return nil, err
	}
	h := ICMPv6NeighborAdvertisementHeader{
		Router:        b.Router,
		Solicited:     b.Solicited,
		Override:      b.Override,
		Reserved:      b.Reserved,
		TargetAddress: b.TargetAddress,
		options:       opts,
	}
	return &ICMPv6NeighborAdvertisementPacket{header: h, raw: h.RawData()}, nil
}

// ICMPv6RedirectHeader is the body of a Redirect message (RFC 4861 §4.5):
// the better first hop for DestinationAddress is TargetAddress.
type ICMPv6RedirectHeader struct {
	Reserved           uint32
	TargetAddress      netip.Addr
	DestinationAddress netip.Addr
	options            []NDOption
}

// Options returns the options in wire order.
func (h ICMPv6RedirectHeader) Options() []NDOption { return copyNDOptions(h.options) }

func (h ICMPv6RedirectHeader) Len() int { return redirectHeaderLen + ndOptionsLen(h.options) }

func (h ICMPv6RedirectHeader) RawData() []byte {
	b := make([]byte, redirectHeaderLen, h.Len())
	putUint32(b, 0, h.Reserved)
	putAddr16(b, 4, h.TargetAddress)
	putAddr16(b, 20, h.DestinationAddress)
	return append(b, encodeNDOptions(h.options)...)
}

func (h ICMPv6RedirectHeader) Equal(other Header) bool {
	o, ok := other.(ICMPv6RedirectHeader)
	return ok && h.Reserved == o.Reserved && h.TargetAddress == o.TargetAddress &&
		h.DestinationAddress == o.DestinationAddress && ndOptionsEqual(h.options, o.options)
}

func (h ICMPv6RedirectHeader) String() string {
	d := newDump("ICMPv6 Redirect Header", h.Len())
	d.field("Reserved", h.Reserved)
	d.field("Target Address", h.TargetAddress)
	d.field("Destination Address", h.DestinationAddress)
	d.options(h.options)
	return d.String()
}

// ICMPv6RedirectPacket is the body of a Redirect message.
type ICMPv6RedirectPacket struct {
	header ICMPv6RedirectHeader
	raw    []byte
}

func decodeRedirect(data []byte, _ DecodeOptions) (Packet, error) {
	layer := LayerTypeICMPv6Redirect.String()
	if err := need(layer, data, 0, redirectHeaderLen); err != nil {
		return nil, err
	}
	opts, err := decodeNDOptions(layer, data[redirectHeaderLen:])
	if err != nil {
		return nil, err
	}
	h := ICMPv6RedirectHeader{
		Reserved:           getUint32(data, 0),
		TargetAddress:      getAddr16(data, 4),
		DestinationAddress: getAddr16(data, 20),
		options:            opts,
	}
	return &ICMPv6RedirectPacket{header: h, raw: h.RawData()}, nil
}

func (p *ICMPv6RedirectPacket) LayerType() LayerType { return LayerTypeICMPv6Redirect }
func (p *ICMPv6RedirectPacket) Header() Header       { return p.header }
func (p *ICMPv6RedirectPacket) Payload() Packet      { return nil }
func (p *ICMPv6RedirectPacket) RawData() []byte      { return clone(p.raw) }
func (p *ICMPv6RedirectPacket) Len() int             { return len(p.raw) }

// RedirectHeader returns the header with its concrete type.
func (p *ICMPv6RedirectPacket) RedirectHeader() ICMPv6RedirectHeader { return p.header }

func (p *ICMPv6RedirectPacket) Builder() Builder {
	return &ICMPv6RedirectBuilder{
		Reserved:           p.header.Reserved,
		TargetAddress:      p.header.TargetAddress,
		DestinationAddress: p.header.DestinationAddress,
		Options:            ndOptionBuilders(p.header.options),
	}
}

func (p *ICMPv6RedirectPacket) Equal(other Packet) bool {
	o, ok := other.(*ICMPv6RedirectPacket)
	return ok && p.header.Equal(o.header)
}

func (p *ICMPv6RedirectPacket) String() string { return p.header.String() }

func (p *ICMPv6RedirectPacket) Validate() error {
	return validateNDOptions(p.LayerType().String(), p.header.options)
}

// ICMPv6RedirectBuilder builds the body of a Redirect message.
type ICMPv6RedirectBuilder struct {
	Reserved           uint32
	TargetAddress      netip.Addr
	DestinationAddress netip.Addr
	Options            []NDOptionBuilder
}

func (b *ICMPv6RedirectBuilder) Build() (Packet, error) {
	layer := LayerTypeICMPv6Redirect.String()
	if err := ipv6AddrField(layer, "TargetAddress", b.TargetAddress); err != nil {
		return nil, err
	}
	if err := ipv6AddrField(layer, "DestinationAddress", b.DestinationAddress); err != nil {
		return nil, err
	}
	opts, err := buildNDOptions(layer, b.Options)
	if err != nil {
		return nil, err
	}
	h := ICMPv6RedirectHeader{
		Reserved:           b.Reserved,
		TargetAddress:      b.TargetAddress,
		DestinationAddress: b.DestinationAddress,
		options:            opts,
	}
	return &ICMPv6RedirectPacket{header: h, raw: h.RawData()}, nil
}
