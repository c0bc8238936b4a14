package packet

import (
	"bytes"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"sync"

	"firestige.xyz/pktcodec/internal/log"
	"firestige.xyz/pktcodec/pkg/namednumber"
)

const (
	ndOptionUnit           = 8
	ndOptionHeaderLen      = 2
	ndOptionMaxUnits       = 0xff
	prefixInformationLen   = 32
	mtuOptionLen           = 8
	redirectedHeaderFixLen = 8
	ndOptionName           = "ND option"
)

// NDOption is an IPv6 Neighbor Discovery option (RFC 4861 §4.6): a type, a
// length in units of 8 octets and a type specific value.
type NDOption interface {
	Type() namednumber.NDOptionType
	// Length returns the length field, in units of 8 octets.
	Length() uint8
	RawData() []byte
	Len() int
	Equal(other NDOption) bool
	// String renders the option on one line; options carrying a packet
	// append its dump on the following lines.
	String() string
	Builder() NDOptionBuilder
}

// NDOptionBuilder stages the fields of an option.
type NDOptionBuilder interface {
	Build() (NDOption, error)
}

// NDOptionDecodeFunc decodes one option from exactly the bytes its length
// field covers.
type NDOptionDecodeFunc func(data []byte) (NDOption, error)

var (
	ndOptionDecodersMu sync.RWMutex
	ndOptionDecoders   = map[namednumber.NDOptionType]NDOptionDecodeFunc{
		namednumber.NDOptionTypeSourceLinkLayerAddress: decodeLinkLayerAddressOption,
		namednumber.NDOptionTypeTargetLinkLayerAddress: decodeLinkLayerAddressOption,
		namednumber.NDOptionTypePrefixInformation:      decodePrefixInformationOption,
		namednumber.NDOptionTypeRedirectedHeader:       decodeRedirectedHeaderOption,
		namednumber.NDOptionTypeMTU:                    decodeMTUOption,
	}
)

// RegisterNDOptionDecoder decodes options of type t with fn. Options of
// unregistered types decode as UnknownNDOption.
func RegisterNDOptionDecoder(t namednumber.NDOptionType, fn NDOptionDecodeFunc) {
	ndOptionDecodersMu.Lock()
	defer ndOptionDecodersMu.Unlock()
	ndOptionDecoders[t] = fn
}

func lookupNDOptionDecoder(t namednumber.NDOptionType) (NDOptionDecodeFunc, bool) {
	ndOptionDecodersMu.RLock()
	defer ndOptionDecodersMu.RUnlock()
	fn, ok := ndOptionDecoders[t]
	return fn, ok
}

// decodeNDOptions decodes the option list that fills data.
func decodeNDOptions(layer string, data []byte) ([]NDOption, error) {
	var opts []NDOption
	for off := 0; off < len(data); {
		if err := need(layer, data, off, ndOptionHeaderLen); err != nil {
			return nil, err
		}
		t := namednumber.NDOptionType(data[off])
		length := int(data[off+1])
		if length == 0 {
			return nil, &MalformedHeaderError{Layer: layer, Reason: fmt.Sprintf("option %s has length 0", t)}
		}
		n := length * ndOptionUnit
		if err := need(layer, data, off, n); err != nil {
			return nil, err
		}
		fn, ok := lookupNDOptionDecoder(t)
		if !ok {
			log.GetLogger().WithField("layer", layer).Debugf("unknown option %s kept raw", t)
			fn = decodeUnknownNDOption
		}
		opt, err := fn(data[off : off+n])
		if err != nil {
			return nil, err
		}
		opts = append(opts, opt)
		off += n
	}
	return opts, nil
}

func encodeNDOptions(opts []NDOption) []byte {
	var b []byte
	for _, o := range opts {
		b = append(b, o.RawData()...)
	}
	return b
}

func ndOptionsLen(opts []NDOption) int {
	n := 0
	for _, o := range opts {
		n += o.Len()
	}
	return n
}

func ndOptionsEqual(a, b []NDOption) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func ndOptionBuilders(opts []NDOption) []NDOptionBuilder {
	if len(opts) == 0 {
		return nil
	}
	bs := make([]NDOptionBuilder, len(opts))
	for i, o := range opts {
		bs[i] = o.Builder()
	}
	return bs
}

func buildNDOptions(layer string, bs []NDOptionBuilder) ([]NDOption, error) {
	if len(bs) == 0 {
		return nil, nil
	}
	opts := make([]NDOption, 0, len(bs))
	for i, b := range bs {
		if b == nil {
			return nil, &IncompleteBuilderError{Layer: layer, Field: fmt.Sprintf("Options[%d]", i)}
		}
		o, err := b.Build()
		if err != nil {
			return nil, err
		}
		opts = append(opts, o)
	}
	return opts, nil
}

// options dumps every option of a list.
func (d *dump) options(opts []NDOption) {
	for _, o := range opts {
		first, rest, _ := strings.Cut(o.String(), "\n")
		d.field("Option", first)
		if rest != "" {
			d.lines(rest)
		}
	}
}

func ndOptionLengthString(length uint8) string {
	return fmt.Sprintf("%d (%d bytes)", length, int(length)*ndOptionUnit)
}

// correctedNDOptionLength returns the length field for an option of n bytes.
func correctedNDOptionLength(t namednumber.NDOptionType, n int) (uint8, error) {
	units := n / ndOptionUnit
	if units > ndOptionMaxUnits {
		return 0, &InvalidFieldError{Layer: ndOptionName, Field: "Length", Reason: fmt.Sprintf("option %s of %d bytes is too long", t, n)}
	}
	return uint8(units), nil
}

// padTo8 returns the number of zero bytes that bring n to a multiple of 8.
func padTo8(n int) int {
	return (ndOptionUnit - n%ndOptionUnit) % ndOptionUnit
}

// LinkLayerAddressOption is a Source or Target Link-layer Address option.
// The address keeps any padding the length field covers.
type LinkLayerAddressOption struct {
	typ     namednumber.NDOptionType
	length  uint8
	address []byte
}

func decodeLinkLayerAddressOption(data []byte) (NDOption, error) {
	return &LinkLayerAddressOption{
		typ:     namednumber.NDOptionType(data[0]),
		length:  data[1],
		address: clone(data[ndOptionHeaderLen:]),
	}, nil
}

func (o *LinkLayerAddressOption) Type() namednumber.NDOptionType { return o.typ }
func (o *LinkLayerAddressOption) Length() uint8                  { return o.length }
func (o *LinkLayerAddressOption) Len() int                       { return ndOptionHeaderLen + len(o.address) }

// LinkLayerAddress returns a copy of the address bytes.
func (o *LinkLayerAddressOption) LinkLayerAddress() []byte { return clone(o.address) }

func (o *LinkLayerAddressOption) RawData() []byte {
	b := make([]byte, o.Len())
	b[0] = uint8(o.typ)
	b[1] = o.length
	copy(b[ndOptionHeaderLen:], o.address)
	return b
}

func (o *LinkLayerAddressOption) Equal(other NDOption) bool {
	x, ok := other.(*LinkLayerAddressOption)
	return ok && o.typ == x.typ && o.length == x.length && bytes.Equal(o.address, x.address)
}

func (o *LinkLayerAddressOption) String() string {
	addr := hexStream(o.address)
	if len(o.address) == 6 {
		addr = net.HardwareAddr(o.address).String()
	}
	return fmt.Sprintf("[Type: %s] [Length: %s] [Link Layer Address: %s]", o.typ, ndOptionLengthString(o.length), addr)
}

func (o *LinkLayerAddressOption) Builder() NDOptionBuilder {
	return &LinkLayerAddressOptionBuilder{
		Type:             o.typ,
		Length:           o.length,
		LinkLayerAddress: clone(o.address),
	}
}

// LinkLayerAddressOptionBuilder builds a LinkLayerAddressOption. Type is
// NDOptionTypeSourceLinkLayerAddress or NDOptionTypeTargetLinkLayerAddress.
type LinkLayerAddressOptionBuilder struct {
	Type             namednumber.NDOptionType
	Length           uint8
	LinkLayerAddress []byte

	// CorrectLengthAtBuild zero-pads the address to an 8-octet boundary
	// and sets Length.
	CorrectLengthAtBuild bool
}

func (b *LinkLayerAddressOptionBuilder) Build() (NDOption, error) {
	if b.Type != namednumber.NDOptionTypeSourceLinkLayerAddress && b.Type != namednumber.NDOptionTypeTargetLinkLayerAddress {
		return nil, &InvalidFieldError{Layer: ndOptionName, Field: "Type", Reason: fmt.Sprintf("%s is not a link-layer address option", b.Type)}
	}
	if b.LinkLayerAddress == nil {
		return nil, &IncompleteBuilderError{Layer: ndOptionName, Field: "LinkLayerAddress"}
	}
	o := &LinkLayerAddressOption{typ: b.Type, length: b.Length, address: clone(b.LinkLayerAddress)}
	if b.CorrectLengthAtBuild {
		o.address = append(o.address, make([]byte, padTo8(ndOptionHeaderLen+len(o.address)))...)
		length, err := correctedNDOptionLength(b.Type, o.Len())
		if err != nil {
			return nil, err
		}
		o.length = length
	}
	return o, nil
}

// PrefixInformationOption is the Prefix Information option of RFC 4861
// §4.6.2.
type PrefixInformationOption struct {
	length            uint8
	PrefixLength      uint8
	OnLink            bool
	Autonomous        bool
	Reserved1         uint8 // 6 bits
	ValidLifetime     uint32
	PreferredLifetime uint32
	Reserved2         uint32
	Prefix            netip.Addr
}

func decodePrefixInformationOption(data []byte) (NDOption, error) {
	if len(data) != prefixInformationLen {
		return nil, &MalformedHeaderError{
			Layer:  ndOptionName,
			Reason: fmt.Sprintf("prefix information option has %d bytes, want 32", len(data)),
		}
	}
	return &PrefixInformationOption{
		length:            data[1],
		PrefixLength:      data[2],
		OnLink:            data[3]&0x80 != 0,
		Autonomous:        data[3]&0x40 != 0,
		Reserved1:         data[3] & 0x3f,
		ValidLifetime:     getUint32(data, 4),
		PreferredLifetime: getUint32(data, 8),
		Reserved2:         getUint32(data, 12),
		Prefix:            getAddr16(data, 16),
	}, nil
}

func (o *PrefixInformationOption) Type() namednumber.NDOptionType {
	return namednumber.NDOptionTypePrefixInformation
}
func (o *PrefixInformationOption) Length() uint8 { return o.length }
func (o *PrefixInformationOption) Len() int      { return prefixInformationLen }

func (o *PrefixInformationOption) RawData() []byte {
	b := make([]byte, prefixInformationLen)
	b[0] = uint8(namednumber.NDOptionTypePrefixInformation)
	b[1] = o.length
	b[2] = o.PrefixLength
	b[3] = o.Reserved1 & 0x3f
	if o.OnLink {
		b[3] |= 0x80
	}
	if o.Autonomous {
		b[3] |= 0x40
	}
	putUint32(b, 4, o.ValidLifetime)
	putUint32(b, 8, o.PreferredLifetime)
	putUint32(b, 12, o.Reserved2)
	putAddr16(b, 16, o.Prefix)
	return b
}

func (o *PrefixInformationOption) Equal(other NDOption) bool {
	x, ok := other.(*PrefixInformationOption)
	return ok && *o == *x
}

func (o *PrefixInformationOption) String() string {
	return fmt.Sprintf("[Type: %s] [Length: %s] [Prefix: %s/%d] [L: %s] [A: %s] [Valid Lifetime: %d] [Preferred Lifetime: %d]",
		o.Type(), ndOptionLengthString(o.length), o.Prefix, o.PrefixLength,
		formatFlag(o.OnLink), formatFlag(o.Autonomous), o.ValidLifetime, o.PreferredLifetime)
}

func (o *PrefixInformationOption) Builder() NDOptionBuilder {
	return &PrefixInformationOptionBuilder{
		Length:            o.length,
		PrefixLength:      o.PrefixLength,
		OnLink:            o.OnLink,
		Autonomous:        o.Autonomous,
		Reserved1:         o.Reserved1,
		ValidLifetime:     o.ValidLifetime,
		PreferredLifetime: o.PreferredLifetime,
		Reserved2:         o.Reserved2,
		Prefix:            o.Prefix,
	}
}

// PrefixInformationOptionBuilder builds a PrefixInformationOption.
type PrefixInformationOptionBuilder struct {
	Length            uint8
	PrefixLength      uint8
	OnLink            bool
	Autonomous        bool
	Reserved1         uint8
	ValidLifetime     uint32
	PreferredLifetime uint32
	Reserved2         uint32
	Prefix            netip.Addr

	// CorrectLengthAtBuild sets Length to 4.
	CorrectLengthAtBuild bool
}

func (b *PrefixInformationOptionBuilder) Build() (NDOption, error) {
	if err := ipv6AddrField(ndOptionName, "Prefix", b.Prefix); err != nil {
		return nil, err
	}
	if b.PrefixLength > 128 {
		return nil, &InvalidFieldError{Layer: ndOptionName, Field: "PrefixLength", Reason: "must not exceed 128"}
	}
	if b.Reserved1 > 0x3f {
		return nil, &InvalidFieldError{Layer: ndOptionName, Field: "Reserved1", Reason: "must fit in 6 bits"}
	}
	o := &PrefixInformationOption{
		length:            b.Length,
		PrefixLength:      b.PrefixLength,
		OnLink:            b.OnLink,
		Autonomous:        b.Autonomous,
		Reserved1:         b.Reserved1,
		ValidLifetime:     b.ValidLifetime,
		PreferredLifetime: b.PreferredLifetime,
		Reserved2:         b.Reserved2,
		Prefix:            b.Prefix,
	}
	if b.CorrectLengthAtBuild {
		o.length = prefixInformationLen / ndOptionUnit
	}
	return o, nil
}

// MTUOption is the MTU option of RFC 4861 §4.6.4.
type MTUOption struct {
	length   uint8
	Reserved uint16
	MTU      uint32
}

func decodeMTUOption(data []byte) (NDOption, error) {
	if len(data) != mtuOptionLen {
		return nil, &MalformedHeaderError{Layer: ndOptionName, Reason: fmt.Sprintf("MTU option has %d bytes, want 8", len(data))}
	}
	return &MTUOption{length: data[1], Reserved: getUint16(data, 2), MTU: getUint32(data, 4)}, nil
}

func (o *MTUOption) Type() namednumber.NDOptionType { return namednumber.NDOptionTypeMTU }
func (o *MTUOption) Length() uint8                  { return o.length }
func (o *MTUOption) Len() int                       { return mtuOptionLen }

func (o *MTUOption) RawData() []byte {
	b := make([]byte, mtuOptionLen)
	b[0] = uint8(namednumber.NDOptionTypeMTU)
	b[1] = o.length
	putUint16(b, 2, o.Reserved)
	putUint32(b, 4, o.MTU)
	return b
}

func (o *MTUOption) Equal(other NDOption) bool {
	x, ok := other.(*MTUOption)
	return ok && *o == *x
}

func (o *MTUOption) String() string {
	return fmt.Sprintf("[Type: %s] [Length: %s] [MTU: %d]", o.Type(), ndOptionLengthString(o.length), o.MTU)
}

func (o *MTUOption) Builder() NDOptionBuilder {
	return &MTUOptionBuilder{Length: o.length, Reserved: o.Reserved, MTU: o.MTU}
}

// MTUOptionBuilder builds an MTUOption.
type MTUOptionBuilder struct {
	Length   uint8
	Reserved uint16
	MTU      uint32

	// CorrectLengthAtBuild sets Length to 1.
	CorrectLengthAtBuild bool
}

func (b *MTUOptionBuilder) Build() (NDOption, error) {
	o := &MTUOption{length: b.Length, Reserved: b.Reserved, MTU: b.MTU}
	if b.CorrectLengthAtBuild {
		o.length = mtuOptionLen / ndOptionUnit
	}
	return o, nil
}

// RedirectedHeaderOption is the Redirected Header option of RFC 4861
// §4.6.3: as much of the redirected packet as fits, followed by zero
// padding to an 8-octet boundary.
type RedirectedHeaderOption struct {
	length   uint8
	Reserved [6]byte
	packet   Packet
	padding  []byte
}

func decodeRedirectedHeaderOption(data []byte) (NDOption, error) {
	if len(data) < redirectedHeaderFixLen {
		return nil, &MalformedHeaderError{Layer: ndOptionName, Reason: "redirected header option is shorter than 8 bytes"}
	}
	o := &RedirectedHeaderOption{length: data[1], Reserved: [6]byte(data[2:8])}
	body := data[redirectedHeaderFixLen:]
	if len(body) == 0 {
		return o, nil
	}
	// The packet is a truncated IPv6 packet; bytes after its declared end
	// are padding.
	p, err := decodeLayer(LayerTypeIPv6, body, DecodeOptions{Truncated: true})
	if err != nil {
		log.GetLogger().WithError(err).Debugf("redirected header kept raw")
		o.packet = newUnknownPacket(body)
		return o, nil
	}
	o.packet = p
	o.padding = clone(body[p.Len():])
	return o, nil
}

func (o *RedirectedHeaderOption) Type() namednumber.NDOptionType {
	return namednumber.NDOptionTypeRedirectedHeader
}
func (o *RedirectedHeaderOption) Length() uint8 { return o.length }

func (o *RedirectedHeaderOption) Len() int {
	return redirectedHeaderFixLen + payloadLen(o.packet) + len(o.padding)
}

// Packet returns the redirected packet, or nil if the option carries none.
func (o *RedirectedHeaderOption) Packet() Packet { return o.packet }

// Padding returns a copy of the bytes after the redirected packet.
func (o *RedirectedHeaderOption) Padding() []byte { return clone(o.padding) }

func (o *RedirectedHeaderOption) RawData() []byte {
	b := make([]byte, redirectedHeaderFixLen, o.Len())
	b[0] = uint8(namednumber.NDOptionTypeRedirectedHeader)
	b[1] = o.length
	copy(b[2:8], o.Reserved[:])
	if o.packet != nil {
		b = append(b, o.packet.RawData()...)
	}
	return append(b, o.padding...)
}

func (o *RedirectedHeaderOption) Equal(other NDOption) bool {
	x, ok := other.(*RedirectedHeaderOption)
	return ok && o.length == x.length && o.Reserved == x.Reserved &&
		packetsEqual(o.packet, x.packet) && bytes.Equal(o.padding, x.padding)
}

func (o *RedirectedHeaderOption) String() string {
	s := fmt.Sprintf("[Type: %s] [Length: %s] [Reserved: %s] [Padding: %s]",
		o.Type(), ndOptionLengthString(o.length), hexStream(o.Reserved[:]), hexStream(o.padding))
	if o.packet != nil {
		s += "\n" + strings.TrimRight(o.packet.String(), "\n")
	}
	return s
}

func (o *RedirectedHeaderOption) Builder() NDOptionBuilder {
	return &RedirectedHeaderOptionBuilder{
		Length:   o.length,
		Reserved: o.Reserved,
		Packet:   o.packet,
		Padding:  clone(o.padding),
	}
}

// RedirectedHeaderOptionBuilder builds a RedirectedHeaderOption. Packet is
// embedded as is; use MakeRedirectedHeaderCopy to fit a packet into the
// option. The embedded bytes are re-decoded the way the option decodes
// them.
type RedirectedHeaderOptionBuilder struct {
	Length   uint8
	Reserved [6]byte
	Packet   Packet
	Padding  []byte

	// CorrectLengthAtBuild replaces Padding with the zero bytes that reach
	// an 8-octet boundary and sets Length.
	CorrectLengthAtBuild bool
}

func (b *RedirectedHeaderOptionBuilder) Build() (NDOption, error) {
	padding := clone(b.Padding)
	if b.CorrectLengthAtBuild {
		padding = nil
		if n := padTo8(redirectedHeaderFixLen + payloadLen(b.Packet)); n > 0 {
			padding = make([]byte, n)
		}
	}
	raw := make([]byte, redirectedHeaderFixLen)
	raw[0] = uint8(namednumber.NDOptionTypeRedirectedHeader)
	raw[1] = b.Length
	copy(raw[2:8], b.Reserved[:])
	if b.Packet != nil {
		raw = append(raw, b.Packet.RawData()...)
	}
	raw = append(raw, padding...)
	if b.CorrectLengthAtBuild {
		length, err := correctedNDOptionLength(namednumber.NDOptionTypeRedirectedHeader, len(raw))
		if err != nil {
			return nil, err
		}
		raw[1] = length
	}
	if o, err := decodeRedirectedHeaderOption(raw); err == nil {
		if ro := o.(*RedirectedHeaderOption); ro.Len() == len(raw) {
			return ro, nil
		}
	}
	return nil, &InvalidFieldError{Layer: ndOptionName, Field: "Packet", Reason: "cannot be embedded"}
}

// UnknownNDOption holds an option of a type without a registered decoder.
type UnknownNDOption struct {
	typ    namednumber.NDOptionType
	length uint8
	data   []byte
}

func decodeUnknownNDOption(data []byte) (NDOption, error) {
	return &UnknownNDOption{
		typ:    namednumber.NDOptionType(data[0]),
		length: data[1],
		data:   clone(data[ndOptionHeaderLen:]),
	}, nil
}

func (o *UnknownNDOption) Type() namednumber.NDOptionType { return o.typ }
func (o *UnknownNDOption) Length() uint8                  { return o.length }
func (o *UnknownNDOption) Len() int                       { return ndOptionHeaderLen + len(o.data) }

// Data returns a copy of the option value.
func (o *UnknownNDOption) Data() []byte { return clone(o.data) }

func (o *UnknownNDOption) RawData() []byte {
	b := make([]byte, o.Len())
	b[0] = uint8(o.typ)
	b[1] = o.length
	copy(b[ndOptionHeaderLen:], o.data)
	return b
}

func (o *UnknownNDOption) Equal(other NDOption) bool {
	x, ok := other.(*UnknownNDOption)
	return ok && o.typ == x.typ && o.length == x.length && bytes.Equal(o.data, x.data)
}

func (o *UnknownNDOption) String() string {
	return fmt.Sprintf("[Type: %s] [Length: %s] [Data: %s]", o.typ, ndOptionLengthString(o.length), hexStream(o.data))
}

func (o *UnknownNDOption) Builder() NDOptionBuilder {
	return &UnknownNDOptionBuilder{Type: o.typ, Length: o.length, Data: clone(o.data)}
}

// UnknownNDOptionBuilder builds an UnknownNDOption.
type UnknownNDOptionBuilder struct {
	Type   namednumber.NDOptionType
	Length uint8
	Data   []byte

	// CorrectLengthAtBuild zero-pads Data to an 8-octet boundary and sets
	// Length.
	CorrectLengthAtBuild bool
}

func (b *UnknownNDOptionBuilder) Build() (NDOption, error) {
	o := &UnknownNDOption{typ: b.Type, length: b.Length, data: clone(b.Data)}
	if b.CorrectLengthAtBuild {
		o.data = append(o.data, make([]byte, padTo8(o.Len()))...)
		length, err := correctedNDOptionLength(b.Type, o.Len())
		if err != nil {
			return nil, err
		}
		o.length = length
	}
	return o, nil
}
