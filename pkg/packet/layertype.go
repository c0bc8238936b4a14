package packet

import (
	"fmt"
	"sync"
)

// LayerType identifies a protocol layer. It is the tag stored next to the
// bytes in the serialized form of a packet and selects the decoder.
type LayerType uint16

const (
	LayerTypeUnknown LayerType = iota
	LayerTypeEthernet
	LayerTypeDot1Q
	LayerTypeIPv4
	LayerTypeIPv6
	LayerTypeUDP
	LayerTypeICMPv6
	LayerTypeICMPv6EchoRequest
	LayerTypeICMPv6EchoReply
	LayerTypeICMPv6DestinationUnreachable
	LayerTypeICMPv6PacketTooBig
	LayerTypeICMPv6TimeExceeded
	LayerTypeICMPv6RouterSolicitation
	LayerTypeICMPv6NeighborSolicitation
	LayerTypeICMPv6NeighborAdvertisement
	LayerTypeICMPv6Redirect
)

// DecodeOptions tune a decode call.
type DecodeOptions struct {
	// Truncated decodes a snapshot of a longer packet. Length fields that
	// point past the data keep the header and turn the rest into raw data,
	// and payloads that fail to decode are kept as raw data.
	Truncated bool
}

// DecodeFunc decodes one layer and its payload from the start of data. The
// returned packet may be shorter than data when the layer has a length
// field; the caller owns the remainder.
type DecodeFunc func(data []byte, opts DecodeOptions) (Packet, error)

// LayerTypeMetadata describes a registered layer.
type LayerTypeMetadata struct {
	Name         string
	MinHeaderLen int
	Decode       DecodeFunc
}

var (
	layerTypesMu sync.RWMutex
	layerTypes   = map[LayerType]LayerTypeMetadata{
		LayerTypeUnknown: {Name: "Unknown", Decode: decodeUnknown},
	}
)

// RegisterLayerType adds a layer. Registering a taken value is an error.
func RegisterLayerType(lt LayerType, meta LayerTypeMetadata) error {
	layerTypesMu.Lock()
	defer layerTypesMu.Unlock()
	if old, ok := layerTypes[lt]; ok {
		return fmt.Errorf("layer type %d already registered as %s", lt, old.Name)
	}
	layerTypes[lt] = meta
	return nil
}

func mustRegisterLayerType(lt LayerType, meta LayerTypeMetadata) {
	if err := RegisterLayerType(lt, meta); err != nil {
		panic(err)
	}
}

func lookupLayerType(lt LayerType) (LayerTypeMetadata, bool) {
	layerTypesMu.RLock()
	defer layerTypesMu.RUnlock()
	meta, ok := layerTypes[lt]
	return meta, ok
}

func (lt LayerType) String() string {
	if meta, ok := lookupLayerType(lt); ok {
		return meta.Name
	}
	return fmt.Sprintf("LayerType(%d)", uint16(lt))
}

// MinHeaderLen returns the smallest number of bytes the layer decodes from.
func (lt LayerType) MinHeaderLen() int {
	meta, _ := lookupLayerType(lt)
	return meta.MinHeaderLen
}
