package namednumber

import "fmt"

// IPVersion is the 4-bit version field leading every IP header.
type IPVersion uint8

const (
	IPVersion4 IPVersion = 4
	IPVersion6 IPVersion = 6
)

var ipVersions = newRegistry(map[IPVersion]string{
	IPVersion4: "IPv4",
	IPVersion6: "IPv6",
})

func (v IPVersion) Name() string { return ipVersions.name(v) }

func (v IPVersion) String() string {
	return fmt.Sprintf("%d (%s)", uint8(v), v.Name())
}

// IPVersionByName returns the version registered under name.
func IPVersionByName(name string) (IPVersion, bool) { return ipVersions.lookup(name) }
