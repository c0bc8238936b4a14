package namednumber

import "fmt"

// DataLinkType is the link-layer header type of a captured frame, using the
// LINKTYPE_ values of the pcap file format. It only selects the outermost
// decoder.
type DataLinkType int

const (
	// DataLinkTypeUnset marks a frame or setting that carries no link type.
	// It is not a pcap value and is never written to a capture file.
	DataLinkTypeUnset DataLinkType = -1

	DataLinkTypeNull   DataLinkType = 0
	DataLinkTypeEN10MB DataLinkType = 1
	DataLinkTypeRaw    DataLinkType = 101
	DataLinkTypeIPv4   DataLinkType = 228
	DataLinkTypeIPv6   DataLinkType = 229
)

var dataLinkTypes = newRegistry(map[DataLinkType]string{
	DataLinkTypeNull:   "NULL",
	DataLinkTypeEN10MB: "Ethernet",
	DataLinkTypeRaw:    "RAW",
	DataLinkTypeIPv4:   "IPV4",
	DataLinkTypeIPv6:   "IPV6",
})

func (t DataLinkType) Name() string { return dataLinkTypes.name(t) }

func (t DataLinkType) String() string {
	return fmt.Sprintf("%d (%s)", int(t), t.Name())
}

// DataLinkTypeByName returns the link type registered under name.
func DataLinkTypeByName(name string) (DataLinkType, bool) { return dataLinkTypes.lookup(name) }

// RegisterDataLinkType adds or replaces the name of a link type.
func RegisterDataLinkType(t DataLinkType, name string) { dataLinkTypes.register(t, name) }
