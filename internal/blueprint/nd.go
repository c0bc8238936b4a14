package blueprint

import (
	"firestige.xyz/pktcodec/pkg/namednumber"
	"firestige.xyz/pktcodec/pkg/packet"
)

// RouterSolicitation describes a Router Solicitation body.
type RouterSolicitation struct {
	Reserved uint32   `yaml:"reserved"`
	Options  []Option `yaml:"options"`
}

func (*RouterSolicitation) layerType() packet.LayerType {
	return packet.LayerTypeICMPv6RouterSolicitation
}

func (*RouterSolicitation) icmpv6Type() namednumber.ICMPv6Type {
	return namednumber.ICMPv6TypeRouterSolicitation
}

func (l *RouterSolicitation) builder(payload packet.Builder, _ layerSpec, opts Options) (packet.Builder, error) {
	if err := noPayload("router_solicitation", payload); err != nil {
		return nil, err
	}
	options, err := compileOptions("router_solicitation", l.Options, opts)
	if err != nil {
		return nil, err
	}
	return &packet.ICMPv6RouterSolicitationBuilder{Reserved: l.Reserved, Options: options}, nil
}

// NeighborSolicitation describes a Neighbor Solicitation body.
type NeighborSolicitation struct {
	Reserved uint32   `yaml:"reserved"`
	Target   string   `yaml:"target"`
	Options  []Option `yaml:"options"`
}

func (*NeighborSolicitation) layerType() packet.LayerType {
	return packet.LayerTypeICMPv6NeighborSolicitation
}

func (*NeighborSolicitation) icmpv6Type() namednumber.ICMPv6Type {
	return namednumber.ICMPv6TypeNeighborSolicitation
}

func (l *NeighborSolicitation) builder(payload packet.Builder, _ layerSpec, opts Options) (packet.Builder, error) {
	if err := noPayload("neighbor_solicitation", payload); err != nil {
		return nil, err
	}
	target, err := parseAddr("neighbor_solicitation.target", l.Target)
	if err != nil {
		return nil, err
	}
	options, err := compileOptions("neighbor_solicitation", l.Options, opts)
	if err != nil {
		return nil, err
	}
	return &packet.ICMPv6NeighborSolicitationBuilder{Reserved: l.Reserved, TargetAddress: target, Options: options}, nil
}

// NeighborAdvertisement describes a Neighbor Advertisement body.
type NeighborAdvertisement struct {
	Router    bool     `yaml:"router"`
	Solicited bool     `yaml:"solicited"`
	Override  bool     `yaml:"override"`
	Reserved  uint32   `yaml:"reserved"`
	Target    string   `yaml:"target"`
	Options   []Option `yaml:"options"`
}

func (*NeighborAdvertisement) layerType() packet.LayerType {
	return packet.LayerTypeICMPv6NeighborAdvertisement
}

func (*NeighborAdvertisement) icmpv6Type() namednumber.ICMPv6Type {
	return namednumber.ICMPv6TypeNeighborAdvertisement
}

func (l *NeighborAdvertisement) builder(payload packet.Builder, _ layerSpec, opts Options) (packet.Builder, error) {
	if err := noPayload("neighbor_advertisement", payload); err != nil {
		return nil, err
	}
	target, err := parseAddr("neighbor_advertisement.target", l.Target)
	if err != nil {
		return nil, err
	}
	options, err := compileOptions("neighbor_advertisement", l.Options, opts)
	if err != nil {
		return nil, err
	}
	return &packet.ICMPv6NeighborAdvertisementBuilder{
		Router:        l.Router,
		Solicited:     l.Solicited,
		Override:      l.Override,
		Reserved:      l.Reserved,
		TargetAddress: target,
		Options:       options,
	}, nil
}

// Redirect describes a Redirect body.
type Redirect struct {
	Reserved    uint32   `yaml:"reserved"`
	Target      string   `yaml:"target"`
	Destination string   `yaml:"destination"`
	Options     []Option `yaml:"options"`
}

func (*Redirect) layerType() packet.LayerType        { return packet.LayerTypeICMPv6Redirect }
func (*Redirect) icmpv6Type() namednumber.ICMPv6Type { return namednumber.ICMPv6TypeRedirect }

func (l *Redirect) builder(payload packet.Builder, _ layerSpec, opts Options) (packet.Builder, error) {
	if err := noPayload("redirect", payload); err != nil {
		return nil, err
	}
	target, err := parseAddr("redirect.target", l.Target)
	if err != nil {
		return nil, err
	}
	dst, err := parseAddr("redirect.destination", l.Destination)
	if err != nil {
		return nil, err
	}
	options, err := compileOptions("redirect", l.Options, opts)
	if err != nil {
		return nil, err
	}
	return &packet.ICMPv6RedirectBuilder{Reserved: l.Reserved, TargetAddress: target, DestinationAddress: dst, Options: options}, nil
}

// noPayload rejects layers after a Neighbor Discovery message; its options
// run to the end of the packet.
func noPayload(field string, payload packet.Builder) error {
	if payload != nil {
		return invalid(field, "must be the innermost layer")
	}
	return nil
}
