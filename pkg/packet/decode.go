package packet

import (
	"sync"

	"firestige.xyz/pktcodec/internal/log"
	"firestige.xyz/pktcodec/pkg/namednumber"
)

// dispatch maps the next-protocol value of one header class to the layer
// that decodes the payload.
type dispatch[K comparable] struct {
	mu     sync.RWMutex
	layers map[K]LayerType
}

func newDispatch[K comparable]() *dispatch[K] {
	return &dispatch[K]{layers: make(map[K]LayerType)}
}

func (d *dispatch[K]) register(k K, lt LayerType) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.layers[k] = lt
}

func (d *dispatch[K]) lookup(k K) (LayerType, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	lt, ok := d.layers[k]
	return lt, ok
}

var (
	etherTypeLayers  = newDispatch[namednumber.EtherType]()
	ipNumberLayers   = newDispatch[namednumber.IPNumber]()
	icmpv6TypeLayers = newDispatch[namednumber.ICMPv6Type]()
	udpPortLayers    = newDispatch[uint16]()
	dataLinkLayers   = newDispatch[namednumber.DataLinkType]()
)

// RegisterEtherTypeLayer decodes Ethernet and 802.1Q payloads of type t as lt.
func RegisterEtherTypeLayer(t namednumber.EtherType, lt LayerType) { etherTypeLayers.register(t, lt) }

// RegisterIPNumberLayer decodes IPv4 and IPv6 payloads of protocol n as lt.
func RegisterIPNumberLayer(n namednumber.IPNumber, lt LayerType) { ipNumberLayers.register(n, lt) }

// RegisterICMPv6TypeLayer decodes the body of ICMPv6 messages of type t as lt.
func RegisterICMPv6TypeLayer(t namednumber.ICMPv6Type, lt LayerType) {
	icmpv6TypeLayers.register(t, lt)
}

// RegisterUDPPortLayer decodes UDP payloads to or from port as lt. The
// destination port is tried first.
func RegisterUDPPortLayer(port uint16, lt LayerType) { udpPortLayers.register(port, lt) }

// RegisterDataLinkLayer decodes captured frames of link type t as lt.
func RegisterDataLinkLayer(t namednumber.DataLinkType, lt LayerType) { dataLinkLayers.register(t, lt) }

// Decode decodes data as a packet whose outermost layer is lt. Every byte of
// data must belong to the packet. The input is copied; the caller may reuse
// it afterwards.
func Decode(data []byte, lt LayerType) (Packet, error) {
	return decodeAll(data, lt, DecodeOptions{})
}

// DecodeTruncated decodes data as a possibly truncated snapshot of a packet
// whose outermost layer is lt. The outer header must be complete; the rest
// degrades to raw data where it is cut short or cannot be decoded. For input
// that Decode accepts, the result is the same as Decode's.
func DecodeTruncated(data []byte, lt LayerType) (Packet, error) {
	return decodeAll(data, lt, DecodeOptions{Truncated: true})
}

// DecodeLink decodes a captured frame of link type t. Unknown link types
// produce an UnknownPacket.
func DecodeLink(data []byte, t namednumber.DataLinkType) (Packet, error) {
	lt, ok := linkLayer(data, t)
	if !ok {
		return newUnknownPacket(data), nil
	}
	return Decode(data, lt)
}

// DecodeLinkTruncated is DecodeLink for snapshots shorter than the frame on
// the wire.
func DecodeLinkTruncated(data []byte, t namednumber.DataLinkType) (Packet, error) {
	lt, ok := linkLayer(data, t)
	if !ok {
		return newUnknownPacket(data), nil
	}
	return DecodeTruncated(data, lt)
}

// linkLayer selects the outermost layer for a link type. Raw IP frames are
// told apart by the version nibble.
func linkLayer(data []byte, t namednumber.DataLinkType) (LayerType, bool) {
	if t == namednumber.DataLinkTypeRaw {
		if len(data) == 0 {
			return LayerTypeUnknown, false
		}
		switch namednumber.IPVersion(data[0] >> 4) {
		case namednumber.IPVersion4:
			return LayerTypeIPv4, true
		case namednumber.IPVersion6:
			return LayerTypeIPv6, true
		}
		return LayerTypeUnknown, false
	}
	return dataLinkLayers.lookup(t)
}

func decodeAll(data []byte, lt LayerType, opts DecodeOptions) (Packet, error) {
	data = clone(data)
	p, err := decodeLayer(lt, data, opts)
	if err != nil {
		return nil, err
	}
	if p.Len() != len(data) {
		return nil, &MalformedHeaderError{
			Layer:  lt.String(),
			Reason: "trailing bytes after the declared end of the packet",
			Need:   p.Len(),
			Have:   len(data),
		}
	}
	return p, nil
}

func decodeLayer(lt LayerType, data []byte, opts DecodeOptions) (Packet, error) {
	meta, ok := lookupLayerType(lt)
	if !ok || meta.Decode == nil {
		return newUnknownPacket(data), nil
	}
	return meta.Decode(data, opts)
}

// decodePayload decodes the payload of layer from, selected by key. Unknown
// keys yield raw data. If exact is set the payload must consume all of data,
// otherwise it is kept raw; layers that own trailing bytes (Ethernet padding)
// pass exact=false.
func decodePayload[K comparable](d *dispatch[K], key K, data []byte, opts DecodeOptions, from LayerType, exact bool) (Packet, error) {
	if len(data) == 0 {
		return nil, nil
	}
	lt, ok := d.lookup(key)
	if !ok {
		if logger := log.GetLogger(); logger.IsTraceEnabled() {
			logger.WithField("layer", from.String()).Tracef("no decoder for next protocol %v, keeping %d bytes raw", key, len(data))
		}
		return newUnknownPacket(data), nil
	}
	return decodeInner(lt, data, opts, from, exact)
}

func decodeInner(lt LayerType, data []byte, opts DecodeOptions, from LayerType, exact bool) (Packet, error) {
	p, err := decodeLayer(lt, data, opts)
	if err != nil {
		if !opts.Truncated {
			return nil, err
		}
		log.GetLogger().WithField("layer", from.String()).WithError(err).Debugf("truncated %s payload kept raw", lt)
		return newUnknownPacket(data), nil
	}
	if exact && p.Len() != len(data) {
		log.GetLogger().WithField("layer", from.String()).Debugf("%s payload ends %d bytes early, kept raw", lt, len(data)-p.Len())
		return newUnknownPacket(data), nil
	}
	return p, nil
}
