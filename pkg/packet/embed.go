package packet

import (
	"firestige.xyz/pktcodec/internal/log"
)

// DefaultRedirectedHeaderSize is the room left for the redirected packet
// when a Redirect message with no other options must fit the IPv6 minimum
// MTU: 1280 bytes minus the IPv6 header, the Redirect body with its ICMPv6
// header and the option header.
const DefaultRedirectedHeaderSize = 1280 - ipv6HeaderLen - (icmpv6CommonHeaderLen + redirectHeaderLen) - redirectedHeaderFixLen

// MakeEmbeddedCopy returns p if it is at most maxTotalSize bytes long, and
// otherwise the packet its first maxTotalSize bytes decode to as a
// truncated packet of the same layer type. The budget must cover the
// outermost header of p, options included.
func MakeEmbeddedCopy(p Packet, maxTotalSize int) (Packet, error) {
	if p == nil {
		return nil, &InvalidFieldError{Layer: "embedded packet", Field: "Packet", Reason: "is nil"}
	}
	lt := p.LayerType()
	floor := lt.MinHeaderLen()
	if h := p.Header(); h != nil && h.Len() > floor {
		floor = h.Len()
	}
	if maxTotalSize < floor {
		return nil, &SizeTooSmallError{Layer: lt.String(), Size: maxTotalSize, Min: floor}
	}
	if p.Len() <= maxTotalSize {
		return p, nil
	}
	return DecodeTruncated(p.RawData()[:maxTotalSize], lt)
}

// MakeRedirectedHeaderCopy fits p into a Redirected Header option. A size
// of zero or less selects DefaultRedirectedHeaderSize.
func MakeRedirectedHeaderCopy(p Packet, size int) (Packet, error) {
	if size <= 0 {
		size = DefaultRedirectedHeaderSize
	}
	return MakeEmbeddedCopy(p, size)
}

// decodeEmbedded decodes data as the leading part of a packet of type lt,
// such as the invoking packet quoted by an ICMPv6 error. It never fails:
// data that does not decode exactly is kept raw.
func decodeEmbedded(lt LayerType, data []byte) Packet {
	if len(data) == 0 {
		return nil
	}
	p, err := decodeLayer(lt, data, DecodeOptions{Truncated: true})
	if err == nil && p.Len() == len(data) {
		return p
	}
	if err != nil {
		log.GetLogger().WithError(err).Debugf("embedded %s kept raw", lt)
	}
	return newUnknownPacket(data)
}
