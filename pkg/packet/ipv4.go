package packet

import (
	"bytes"
	"fmt"
	"net/netip"

	"firestige.xyz/pktcodec/pkg/namednumber"
)

const (
	ipv4MinHeaderLen  = 20
	ipv4MaxOptionsLen = 40
	ipv4Name          = "IPv4"
)

func init() {
	mustRegisterLayerType(LayerTypeIPv4, LayerTypeMetadata{
		Name:         ipv4Name,
		MinHeaderLen: ipv4MinHeaderLen,
		Decode:       decodeIPv4,
	})
	RegisterEtherTypeLayer(namednumber.EtherTypeIPv4, LayerTypeIPv4)
	RegisterIPNumberLayer(namednumber.IPNumberIPv4, LayerTypeIPv4)
	RegisterDataLinkLayer(namednumber.DataLinkTypeIPv4, LayerTypeIPv4)
}

// IPv4 flag bits as they appear in the 3-bit Flags field.
const (
	IPv4FlagReserved      uint8 = 0x4
	IPv4FlagDontFragment  uint8 = 0x2
	IPv4FlagMoreFragments uint8 = 0x1
)

// IPv4Header is the IPv4 header of RFC 791. Options are kept as raw bytes.
type IPv4Header struct {
	Version        namednumber.IPVersion
	IHL            uint8
	TOS            uint8
	TotalLength    uint16
	Identification uint16
	Flags          uint8
	FragmentOffset uint16
	TTL            uint8
	Protocol       namednumber.IPNumber
	HeaderChecksum uint16
	SrcAddr        netip.Addr
	DstAddr        netip.Addr
	options        []byte
}

// Options returns a copy of the raw options.
func (h IPv4Header) Options() []byte { return clone(h.options) }

func (h IPv4Header) Len() int { return ipv4MinHeaderLen + len(h.options) }

func (h IPv4Header) RawData() []byte {
	b := make([]byte, h.Len())
	b[0] = uint8(h.Version)<<4 | h.IHL&0x0f
	b[1] = h.TOS
	putUint16(b, 2, h.TotalLength)
	putUint16(b, 4, h.Identification)
	putUint16(b, 6, uint16(h.Flags&0x07)<<13|h.FragmentOffset&0x1fff)
	b[8] = h.TTL
	b[9] = uint8(h.Protocol)
	putUint16(b, 10, h.HeaderChecksum)
	putAddr4(b, 12, h.SrcAddr)
	putAddr4(b, 16, h.DstAddr)
	copy(b[ipv4MinHeaderLen:], h.options)
	return b
}

func (h IPv4Header) Equal(other Header) bool {
	o, ok := other.(IPv4Header)
	if !ok {
		return false
	}
	return h.Version == o.Version &&
		h.IHL == o.IHL &&
		h.TOS == o.TOS &&
		h.TotalLength == o.TotalLength &&
		h.Identification == o.Identification &&
		h.Flags == o.Flags &&
		h.FragmentOffset == o.FragmentOffset &&
		h.TTL == o.TTL &&
		h.Protocol == o.Protocol &&
		h.HeaderChecksum == o.HeaderChecksum &&
		h.SrcAddr == o.SrcAddr &&
		h.DstAddr == o.DstAddr &&
		bytes.Equal(h.options, o.options)
}

func (h IPv4Header) String() string {
	d := newDump("IPv4 Header", h.Len())
	d.field("Version", h.Version)
	d.field("IHL", fmt.Sprintf("%d (%d [bytes])", h.IHL, int(h.IHL)*4))
	d.field("TOS", fmt.Sprintf("0x%02x", h.TOS))
	d.field("Total length", fmt.Sprintf("%d [bytes]", h.TotalLength))
	d.field("Identification", h.Identification)
	d.field("Flags (Reserved, Don't Fragment, More Fragment)", fmt.Sprintf("(%s, %s, %s)",
		formatFlag(h.Flags&IPv4FlagReserved != 0),
		formatFlag(h.Flags&IPv4FlagDontFragment != 0),
		formatFlag(h.Flags&IPv4FlagMoreFragments != 0)))
	d.field("Fragment offset", fmt.Sprintf("%d (%d [bytes])", h.FragmentOffset, int(h.FragmentOffset)*8))
	d.field("Time to live", h.TTL)
	d.field("Protocol", h.Protocol)
	d.field("Header checksum", fmt.Sprintf("0x%04x", h.HeaderChecksum))
	d.field("Source address", h.SrcAddr)
	d.field("Destination address", h.DstAddr)
	if len(h.options) > 0 {
		d.field("Options", hexStream(h.options))
	}
	return d.String()
}

// IPv4Packet is an IPv4 header and the packet it carries.
type IPv4Packet struct {
	header  IPv4Header
	payload Packet
	raw     []byte
}

func newIPv4Packet(h IPv4Header, payload Packet) *IPv4Packet {
	return &IPv4Packet{header: h, payload: payload, raw: encode(h, payload, nil)}
}

func decodeIPv4(data []byte, opts DecodeOptions) (Packet, error) {
	if err := need(ipv4Name, data, 0, ipv4MinHeaderLen); err != nil {
		return nil, err
	}
	ihl := data[0] & 0x0f
	hdrLen := int(ihl) * 4
	if hdrLen < ipv4MinHeaderLen {
		return nil, &MalformedHeaderError{Layer: ipv4Name, Reason: fmt.Sprintf("IHL %d is below the minimum of 5", ihl)}
	}
	if err := need(ipv4Name, data, 0, hdrLen); err != nil {
		return nil, err
	}
	ff := getUint16(data, 6)
	h := IPv4Header{
		Version:        namednumber.IPVersion(data[0] >> 4),
		IHL:            ihl,
		TOS:            data[1],
		TotalLength:    getUint16(data, 2),
		Identification: getUint16(data, 4),
		Flags:          uint8(ff >> 13),
		FragmentOffset: ff & 0x1fff,
		TTL:            data[8],
		Protocol:       namednumber.IPNumber(data[9]),
		HeaderChecksum: getUint16(data, 10),
		SrcAddr:        getAddr4(data, 12),
		DstAddr:        getAddr4(data, 16),
		options:        clone(data[ipv4MinHeaderLen:hdrLen]),
	}
	end := int(h.TotalLength)
	if end < hdrLen {
		return nil, &MalformedHeaderError{
			Layer:  ipv4Name,
			Reason: fmt.Sprintf("total length %d is shorter than the header", h.TotalLength),
		}
	}
	if end > len(data) {
		if !opts.Truncated {
			return nil, &MalformedHeaderError{
				Layer:  ipv4Name,
				Reason: "total length exceeds the data",
				Need:   end,
				Have:   len(data),
			}
		}
		var rest Packet
		if len(data) > hdrLen {
			rest = newUnknownPacket(data[hdrLen:])
		}
		return newIPv4Packet(h, rest), nil
	}
	body := data[hdrLen:end]
	// Only the first fragment starts with the upper-layer header.
	if h.FragmentOffset != 0 {
		var rest Packet
		if len(body) > 0 {
			rest = newUnknownPacket(body)
		}
		return newIPv4Packet(h, rest), nil
	}
	payload, err := decodePayload(ipNumberLayers, h.Protocol, body, opts, LayerTypeIPv4, true)
	if err != nil {
		return nil, err
	}
	return newIPv4Packet(h, payload), nil
}

func (p *IPv4Packet) LayerType() LayerType { return LayerTypeIPv4 }
func (p *IPv4Packet) Header() Header       { return p.header }
func (p *IPv4Packet) Payload() Packet      { return p.payload }
func (p *IPv4Packet) RawData() []byte      { return clone(p.raw) }
func (p *IPv4Packet) Len() int             { return len(p.raw) }

// IPv4Header returns the header with its concrete type.
func (p *IPv4Packet) IPv4Header() IPv4Header { return p.header }

func (p *IPv4Packet) Builder() Builder {
	h := p.header
	return &IPv4Builder{
		Version:        h.Version,
		IHL:            h.IHL,
		TOS:            h.TOS,
		TotalLength:    h.TotalLength,
		Identification: h.Identification,
		Flags:          h.Flags,
		FragmentOffset: h.FragmentOffset,
		TTL:            h.TTL,
		Protocol:       h.Protocol,
		HeaderChecksum: h.HeaderChecksum,
		SrcAddr:        h.SrcAddr,
		DstAddr:        h.DstAddr,
		Options:        h.Options(),
		Payload:        payloadBuilder(p.payload),
	}
}

func (p *IPv4Packet) Equal(other Packet) bool {
	o, ok := other.(*IPv4Packet)
	return ok && p.header.Equal(o.header) && packetsEqual(p.payload, o.payload)
}

func (p *IPv4Packet) String() string { return p.header.String() + payloadString(p.payload) }

// VerifyChecksum reports whether the header checksum is correct.
func (p *IPv4Packet) VerifyChecksum() bool {
	return InternetChecksum(p.header.RawData()) == 0
}

// Validate checks the version and the length fields against the encoded
// packet.
func (p *IPv4Packet) Validate() error {
	h := p.header
	if h.Version != namednumber.IPVersion4 {
		return &InvalidFieldError{Layer: ipv4Name, Field: "Version", Reason: fmt.Sprintf("is %d, want 4", h.Version)}
	}
	if int(h.IHL)*4 != h.Len() {
		return &InvalidFieldError{Layer: ipv4Name, Field: "IHL", Reason: fmt.Sprintf("is %d, header has %d bytes", h.IHL, h.Len())}
	}
	if int(h.TotalLength) != p.Len() {
		return &InvalidFieldError{Layer: ipv4Name, Field: "TotalLength", Reason: fmt.Sprintf("is %d, packet has %d bytes", h.TotalLength, p.Len())}
	}
	return validatePayload(p.payload)
}

// IPv4Builder builds an IPv4Packet. Its addresses are handed to the payload
// builder as checksum context.
type IPv4Builder struct {
	Version        namednumber.IPVersion
	IHL            uint8
	TOS            uint8
	TotalLength    uint16
	Identification uint16
	Flags          uint8
	FragmentOffset uint16
	TTL            uint8
	Protocol       namednumber.IPNumber
	HeaderChecksum uint16
	SrcAddr        netip.Addr
	DstAddr        netip.Addr
	Options        []byte
	Payload        Builder

	// CorrectLengthAtBuild pads Options to a multiple of 4 bytes and sets
	// IHL and TotalLength.
	CorrectLengthAtBuild bool
	// CorrectChecksumAtBuild computes HeaderChecksum.
	CorrectChecksumAtBuild bool
}

func (b *IPv4Builder) Build() (Packet, error) {
	for _, f := range []struct {
		name string
		addr netip.Addr
	}{{"SrcAddr", b.SrcAddr}, {"DstAddr", b.DstAddr}} {
		if !f.addr.IsValid() {
			return nil, &IncompleteBuilderError{Layer: ipv4Name, Field: f.name}
		}
		if !f.addr.Is4() {
			return nil, &InvalidFieldError{Layer: ipv4Name, Field: f.name, Reason: "must be an IPv4 address"}
		}
	}
	if b.Flags > 0x07 {
		return nil, &InvalidFieldError{Layer: ipv4Name, Field: "Flags", Reason: "must fit in 3 bits"}
	}
	if b.FragmentOffset > 0x1fff {
		return nil, &InvalidFieldError{Layer: ipv4Name, Field: "FragmentOffset", Reason: "must fit in 13 bits"}
	}
	opts := clone(b.Options)
	if b.CorrectLengthAtBuild && len(opts)%4 != 0 {
		opts = append(opts, make([]byte, 4-len(opts)%4)...)
	}
	if len(opts) > ipv4MaxOptionsLen {
		return nil, &InvalidFieldError{Layer: ipv4Name, Field: "Options", Reason: fmt.Sprintf("%d bytes exceed the limit of 40", len(opts))}
	}
	payload, err := buildPayload(b.Payload, &PseudoHeader{Src: b.SrcAddr, Dst: b.DstAddr})
	if err != nil {
		return nil, err
	}
	h := IPv4Header{
		Version:        b.Version,
		IHL:            b.IHL,
		TOS:            b.TOS,
		TotalLength:    b.TotalLength,
		Identification: b.Identification,
		Flags:          b.Flags,
		FragmentOffset: b.FragmentOffset,
		TTL:            b.TTL,
		Protocol:       b.Protocol,
		HeaderChecksum: b.HeaderChecksum,
		SrcAddr:        b.SrcAddr,
		DstAddr:        b.DstAddr,
		options:        opts,
	}
	if b.CorrectLengthAtBuild {
		total := h.Len() + payloadLen(payload)
		if total > 0xffff {
			return nil, &InvalidFieldError{Layer: ipv4Name, Field: "TotalLength", Reason: fmt.Sprintf("packet of %d bytes is too long", total)}
		}
		h.IHL = uint8(h.Len() / 4)
		h.TotalLength = uint16(total)
	}
	if b.CorrectChecksumAtBuild {
		h.HeaderChecksum = 0
		h.HeaderChecksum = InternetChecksum(h.RawData())
	}
	return newIPv4Packet(h, payload), nil
}
