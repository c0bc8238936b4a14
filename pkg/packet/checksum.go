package packet

import (
	"net/netip"

	"firestige.xyz/pktcodec/pkg/namednumber"
)

const (
	ipv6PseudoHeaderLen = 40
	ipv4PseudoHeaderLen = 12
)

// InternetChecksum returns the RFC 1071 checksum of the concatenation of
// parts: the one's complement of the one's complement sum of all 16-bit
// big-endian words, a trailing odd byte padded with a zero low byte.
//
// A result of zero is returned as is; protocols that transmit 0xffff instead
// apply that themselves.
func InternetChecksum(parts ...[]byte) uint16 {
	var sum uint64
	odd := false
	for _, p := range parts {
		i := 0
		if odd && len(p) > 0 {
			sum += uint64(p[0])
			i = 1
			odd = false
		}
		for ; i+1 < len(p); i += 2 {
			sum += uint64(p[i])<<8 | uint64(p[i+1])
		}
		if i < len(p) {
			sum += uint64(p[i]) << 8
			odd = true
		}
	}
	for sum>>16 != 0 {
		sum = sum&0xffff + sum>>16
	}
	return ^uint16(sum)
}

// IPv6PseudoHeader returns the 40-byte pseudo-header of RFC 8200 §8.1:
// source, destination, 32-bit upper-layer length, three zero bytes and the
// upper-layer protocol number.
func IPv6PseudoHeader(src, dst netip.Addr, upperLen uint32, next namednumber.IPNumber) []byte {
	b := make([]byte, ipv6PseudoHeaderLen)
	putAddr16(b, 0, src)
	putAddr16(b, 16, dst)
	putUint32(b, 32, upperLen)
	b[39] = uint8(next)
	return b
}

// IPv4PseudoHeader returns the 12-byte pseudo-header of RFC 768: source,
// destination, a zero byte, the protocol number and the 16-bit upper-layer
// length.
func IPv4PseudoHeader(src, dst netip.Addr, upperLen uint16, proto namednumber.IPNumber) []byte {
	b := make([]byte, ipv4PseudoHeaderLen)
	putAddr4(b, 0, src)
	putAddr4(b, 4, dst)
	b[9] = uint8(proto)
	putUint16(b, 10, upperLen)
	return b
}

// PseudoHeader carries the enclosing network header's addresses to an
// upper-layer checksum. Upper-layer length and protocol number are supplied
// by the upper layer itself.
type PseudoHeader struct {
	Src netip.Addr
	Dst netip.Addr
}

// valid reports whether both addresses are set and of the same family.
func (ph PseudoHeader) valid() bool {
	return ph.Src.IsValid() && ph.Dst.IsValid() && ph.Src.Is4() == ph.Dst.Is4()
}

// bytes returns the pseudo-header for the family of the addresses.
func (ph PseudoHeader) bytes(upperLen int, proto namednumber.IPNumber) []byte {
	if ph.Src.Is4() {
		return IPv4PseudoHeader(ph.Src, ph.Dst, uint16(upperLen), proto)
	}
	return IPv6PseudoHeader(ph.Src, ph.Dst, uint32(upperLen), proto)
}

// resolvePseudoHeader picks the addresses a checksum fixup uses: the
// builder's own when both are set, the enclosing layer's otherwise.
func resolvePseudoHeader(layer string, own PseudoHeader, enclosing *PseudoHeader) (PseudoHeader, error) {
	if own.Src.IsValid() && own.Dst.IsValid() {
		if !own.valid() {
			return PseudoHeader{}, &InvalidFieldError{Layer: layer, Field: "SrcAddr/DstAddr", Reason: "address families differ"}
		}
		return own, nil
	}
	if enclosing != nil && enclosing.valid() {
		return *enclosing, nil
	}
	return PseudoHeader{}, &MissingChecksumContextError{Layer: layer}
}
