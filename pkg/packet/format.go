package packet

import (
	"fmt"
	"strings"
)

// dump renders one layer of the hierarchical field dump returned by
// Packet.String.
type dump struct {
	b      strings.Builder
	indent string
}

func newDump(title string, length int) *dump {
	d := &dump{indent: "  "}
	fmt.Fprintf(&d.b, "[%s (%d bytes)]\n", title, length)
	return d
}

func (d *dump) field(name string, value any) {
	fmt.Fprintf(&d.b, "%s%s: %v\n", d.indent, name, value)
}

// lines appends an already formatted block, indented one level deeper.
func (d *dump) lines(block string) {
	for _, l := range strings.Split(strings.TrimRight(block, "\n"), "\n") {
		fmt.Fprintf(&d.b, "%s  %s\n", d.indent, l)
	}
}

func (d *dump) String() string { return d.b.String() }

// hexStream renders b as space separated lowercase hex octets.
func hexStream(b []byte) string {
	var sb strings.Builder
	for i, c := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02x", c)
	}
	return sb.String()
}

func formatFlag(set bool) string {
	if set {
		return "1"
	}
	return "0"
}
