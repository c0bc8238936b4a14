// Package blueprint builds packets from YAML descriptions.
//
// A blueprint lists the layers of a packet from the outermost inwards:
//
//	layers:
//	  - ethernet: {src: "02:00:00:00:00:01", dst: "02:00:00:00:00:02"}
//	  - ipv6: {src: "fe80::1", dst: "fe80::2", hop_limit: 255}
//	  - icmpv6: {}
//	  - redirect:
//	      target: "fe80::3"
//	      destination: "2001:db8::1"
//	      options:
//	        - target_lla: "02:00:00:00:00:03"
//
// Next-protocol fields default to the type of the following layer. Length
// and checksum fields are computed unless given explicitly.
package blueprint

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"firestige.xyz/pktcodec/internal/core"
	"firestige.xyz/pktcodec/internal/metrics"
	"firestige.xyz/pktcodec/pkg/namednumber"
	"firestige.xyz/pktcodec/pkg/packet"
)

// Blueprint describes one packet.
type Blueprint struct {
	Layers []Layer `yaml:"layers"`
}

// Layer holds exactly one layer description.
type Layer struct {
	Ethernet              *Ethernet              `yaml:"ethernet,omitempty"`
	Dot1Q                 *Dot1Q                 `yaml:"dot1q,omitempty"`
	IPv4                  *IPv4                  `yaml:"ipv4,omitempty"`
	IPv6                  *IPv6                  `yaml:"ipv6,omitempty"`
	UDP                   *UDP                   `yaml:"udp,omitempty"`
	ICMPv6                *ICMPv6                `yaml:"icmpv6,omitempty"`
	Echo                  *Echo                  `yaml:"echo,omitempty"`
	Error                 *ICMPv6Error           `yaml:"error,omitempty"`
	RouterSolicitation    *RouterSolicitation    `yaml:"router_solicitation,omitempty"`
	NeighborSolicitation  *NeighborSolicitation  `yaml:"neighbor_solicitation,omitempty"`
	NeighborAdvertisement *NeighborAdvertisement `yaml:"neighbor_advertisement,omitempty"`
	Redirect              *Redirect              `yaml:"redirect,omitempty"`
	Raw                   *Raw                   `yaml:"raw,omitempty"`
}

// Options tune Build.
type Options struct {
	// EmbedMaxSize bounds packets quoted in Redirected Header options that
	// set no max_size of their own. Zero selects the RFC 4861 default.
	EmbedMaxSize int
}

// Load reads a blueprint file.
func Load(path string) (*Blueprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read blueprint %s: %w", path, err)
	}
	bp, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse blueprint %s: %w", path, err)
	}
	return bp, nil
}

// Parse decodes a blueprint. Unknown keys are rejected.
func Parse(data []byte) (*Blueprint, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var bp Blueprint
	if err := dec.Decode(&bp); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", core.ErrBlueprintInvalid)
		}
		return nil, fmt.Errorf("%w: %v", core.ErrBlueprintInvalid, err)
	}
	if len(bp.Layers) == 0 {
		return nil, fmt.Errorf("%w: no layers", core.ErrBlueprintInvalid)
	}
	return &bp, nil
}

// Builder returns the builder chain of the blueprint.
func (bp *Blueprint) Builder(opts Options) (packet.Builder, error) {
	return compileLayers(bp.Layers, opts)
}

// Build builds the packet.
func (bp *Blueprint) Build(opts Options) (packet.Packet, error) {
	layer := "unknown"
	if len(bp.Layers) > 0 {
		if s, err := bp.Layers[0].spec(); err == nil {
			layer = s.layerType().String()
		}
	}
	b, err := bp.Builder(opts)
	if err != nil {
		metrics.ObserveBuild(layer, metrics.ResultError)
		return nil, err
	}
	p, err := b.Build()
	if err != nil {
		metrics.ObserveBuild(layer, metrics.ResultError)
		return nil, err
	}
	metrics.ObserveBuild(layer, metrics.ResultOK)
	return p, nil
}

// LinkType returns the capture link type matching the outermost layer.
func (bp *Blueprint) LinkType() namednumber.DataLinkType {
	if len(bp.Layers) == 0 {
		return namednumber.DataLinkTypeRaw
	}
	s, err := bp.Layers[0].spec()
	if err != nil {
		return namednumber.DataLinkTypeRaw
	}
	switch s.layerType() {
	case packet.LayerTypeEthernet:
		return namednumber.DataLinkTypeEN10MB
	default:
		return namednumber.DataLinkTypeRaw
	}
}

// layerSpec is implemented by every layer description.
type layerSpec interface {
	layerType() packet.LayerType
	// builder wraps payload, the builder of the next layer. next is nil for
	// the innermost layer.
	builder(payload packet.Builder, next layerSpec, opts Options) (packet.Builder, error)
}

func (l Layer) spec() (layerSpec, error) {
	var found []layerSpec
	add := func(ok bool, s layerSpec) {
		if ok {
			found = append(found, s)
		}
	}
	add(l.Ethernet != nil, l.Ethernet)
	add(l.Dot1Q != nil, l.Dot1Q)
	add(l.IPv4 != nil, l.IPv4)
	add(l.IPv6 != nil, l.IPv6)
	add(l.UDP != nil, l.UDP)
	add(l.ICMPv6 != nil, l.ICMPv6)
	add(l.Echo != nil, l.Echo)
	add(l.Error != nil, l.Error)
	add(l.RouterSolicitation != nil, l.RouterSolicitation)
	add(l.NeighborSolicitation != nil, l.NeighborSolicitation)
	add(l.NeighborAdvertisement != nil, l.NeighborAdvertisement)
	add(l.Redirect != nil, l.Redirect)
	add(l.Raw != nil, l.Raw)
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: empty layer", core.ErrBlueprintInvalid)
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("%w: a layer must describe exactly one protocol, got %d", core.ErrBlueprintInvalid, len(found))
	}
}

func compileLayers(layers []Layer, opts Options) (packet.Builder, error) {
	specs := make([]layerSpec, len(layers))
	for i, l := range layers {
		s, err := l.spec()
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		specs[i] = s
	}
	var (
		b    packet.Builder
		next layerSpec
	)
	for i := len(specs) - 1; i >= 0; i-- {
		var err error
		b, err = specs[i].builder(b, next, opts)
		if err != nil {
			return nil, fmt.Errorf("layer %d (%s): %w", i, specs[i].layerType(), err)
		}
		next = specs[i]
	}
	return b, nil
}
