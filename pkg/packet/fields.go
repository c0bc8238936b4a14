package packet

import (
	"encoding/binary"
	"net/netip"
)

// need checks that data holds n bytes starting at off.
func need(layer string, data []byte, off, n int) error {
	if off+n > len(data) {
		return &MalformedHeaderError{
			Layer:  layer,
			Reason: "too few bytes",
			Need:   off + n,
			Have:   len(data),
		}
	}
	return nil
}

func getUint16(data []byte, off int) uint16 { return binary.BigEndian.Uint16(data[off:]) }

func getUint32(data []byte, off int) uint32 { return binary.BigEndian.Uint32(data[off:]) }

func putUint16(buf []byte, off int, v uint16) { binary.BigEndian.PutUint16(buf[off:], v) }

func putUint32(buf []byte, off int, v uint32) { binary.BigEndian.PutUint32(buf[off:], v) }

func getAddr16(data []byte, off int) netip.Addr {
	return netip.AddrFrom16([16]byte(data[off : off+16]))
}

func getAddr4(data []byte, off int) netip.Addr {
	return netip.AddrFrom4([4]byte(data[off : off+4]))
}

// putAddr16 writes a as 16 bytes. IPv4 addresses are written in their
// IPv4-mapped form.
func putAddr16(buf []byte, off int, a netip.Addr) {
	b := a.As16()
	copy(buf[off:off+16], b[:])
}

func putAddr4(buf []byte, off int, a netip.Addr) {
	b := a.As4()
	copy(buf[off:off+4], b[:])
}

func getMAC(data []byte, off int) [6]byte {
	return [6]byte(data[off : off+6])
}

// clone returns a copy of b, or nil when b is empty.
func clone(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
