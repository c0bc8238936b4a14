package blueprint

import (
	"encoding/hex"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"

	"firestige.xyz/pktcodec/internal/core"
)

// ParseHex decodes hex bytes, ignoring whitespace, colons and a 0x prefix.
func ParseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', ':', '-':
			return -1
		}
		return r
	}, s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return b, nil
}

func invalid(field, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s: %s", core.ErrBlueprintInvalid, field, fmt.Sprintf(format, args...))
}

func parseAddr(field, s string) (netip.Addr, error) {
	if s == "" {
		return netip.Addr{}, invalid(field, "address is required")
	}
	a, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, invalid(field, "%v", err)
	}
	return a, nil
}

// parseOptionalAddr returns the zero Addr for an empty string.
func parseOptionalAddr(field, s string) (netip.Addr, error) {
	if s == "" {
		return netip.Addr{}, nil
	}
	return parseAddr(field, s)
}

func parseMAC(field, s string) (net.HardwareAddr, error) {
	if s == "" {
		return nil, invalid(field, "address is required")
	}
	mac, err := net.ParseMAC(s)
	if err != nil {
		return nil, invalid(field, "%v", err)
	}
	return mac, nil
}

func parseBytes(field, s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	b, err := ParseHex(s)
	if err != nil {
		return nil, invalid(field, "%v", err)
	}
	return b, nil
}

// parseNamed resolves a symbolic name through byName, or a number in any
// base strconv accepts.
func parseNamed[T ~uint8 | ~uint16 | ~int](field, s string, bits int, byName func(string) (T, bool)) (T, error) {
	if v, ok := byName(s); ok {
		return v, nil
	}
	n, err := strconv.ParseUint(s, 0, bits)
	if err != nil {
		return 0, invalid(field, "unknown value %q", s)
	}
	return T(n), nil
}

func parsePrefix(field, s string) (netip.Prefix, error) {
	p, err := netip.ParsePrefix(s)
	if err != nil {
		return netip.Prefix{}, invalid(field, "%v", err)
	}
	return p, nil
}
