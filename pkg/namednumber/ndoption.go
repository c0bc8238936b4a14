package namednumber

import "fmt"

// NDOptionType is the type field of an IPv6 Neighbor Discovery option
// (RFC 4861 §4.6).
type NDOptionType uint8

const (
	NDOptionTypeSourceLinkLayerAddress NDOptionType = 1
	NDOptionTypeTargetLinkLayerAddress NDOptionType = 2
	NDOptionTypePrefixInformation      NDOptionType = 3
	NDOptionTypeRedirectedHeader       NDOptionType = 4
	NDOptionTypeMTU                    NDOptionType = 5
)

var ndOptionTypes = newRegistry(map[NDOptionType]string{
	NDOptionTypeSourceLinkLayerAddress: "Source Link-layer Address",
	NDOptionTypeTargetLinkLayerAddress: "Target Link-layer Address",
	NDOptionTypePrefixInformation:      "Prefix Information",
	NDOptionTypeRedirectedHeader:       "Redirected Header",
	NDOptionTypeMTU:                    "MTU",
})

func (t NDOptionType) Name() string { return ndOptionTypes.name(t) }

func (t NDOptionType) String() string {
	return fmt.Sprintf("%d (%s)", uint8(t), t.Name())
}

// NDOptionTypeByName returns the option type registered under name.
func NDOptionTypeByName(name string) (NDOptionType, bool) { return ndOptionTypes.lookup(name) }

// RegisterNDOptionType adds or replaces the name of an option type.
func RegisterNDOptionType(t NDOptionType, name string) { ndOptionTypes.register(t, name) }
