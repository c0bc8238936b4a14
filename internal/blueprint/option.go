package blueprint

import (
	"fmt"

	"firestige.xyz/pktcodec/pkg/namednumber"
	"firestige.xyz/pktcodec/pkg/packet"
)

// Option holds exactly one Neighbor Discovery option. Length is computed
// unless given.
type Option struct {
	SourceLinkLayerAddress string             `yaml:"source_lla,omitempty"`
	TargetLinkLayerAddress string             `yaml:"target_lla,omitempty"`
	PrefixInformation      *PrefixInformation `yaml:"prefix_information,omitempty"`
	MTU                    *uint32            `yaml:"mtu,omitempty"`
	RedirectedHeader       *RedirectedHeader  `yaml:"redirected_header,omitempty"`
	Unknown                *UnknownOption     `yaml:"unknown,omitempty"`
	Length                 *uint8             `yaml:"length,omitempty"`
}

// PrefixInformation describes a Prefix Information option.
type PrefixInformation struct {
	Prefix            string `yaml:"prefix"` // address/length
	OnLink            bool   `yaml:"on_link"`
	Autonomous        bool   `yaml:"autonomous"`
	ValidLifetime     uint32 `yaml:"valid_lifetime"`
	PreferredLifetime uint32 `yaml:"preferred_lifetime"`
}

// RedirectedHeader quotes the packet described by Layers, cut to MaxSize
// bytes.
type RedirectedHeader struct {
	Layers  []Layer `yaml:"layers"`
	MaxSize int     `yaml:"max_size"`
}

// UnknownOption is an option of any type with opaque data.
type UnknownOption struct {
	Type uint8  `yaml:"type"`
	Data string `yaml:"data"` // hex
}

func compileOptions(field string, specs []Option, opts Options) ([]packet.NDOptionBuilder, error) {
	var out []packet.NDOptionBuilder
	for i, o := range specs {
		b, err := o.builder(opts)
		if err != nil {
			return nil, fmt.Errorf("%s option %d: %w", field, i, err)
		}
		out = append(out, b)
	}
	return out, nil
}

func (o Option) builder(opts Options) (packet.NDOptionBuilder, error) {
	n := 0
	for _, set := range []bool{
		o.SourceLinkLayerAddress != "",
		o.TargetLinkLayerAddress != "",
		o.PrefixInformation != nil,
		o.MTU != nil,
		o.RedirectedHeader != nil,
		o.Unknown != nil,
	} {
		if set {
			n++
		}
	}
	if n != 1 {
		return nil, invalid("option", "must describe exactly one option, got %d", n)
	}

	correct := o.Length == nil
	var length uint8
	if o.Length != nil {
		length = *o.Length
	}

	switch {
	case o.SourceLinkLayerAddress != "", o.TargetLinkLayerAddress != "":
		t, s := namednumber.NDOptionTypeSourceLinkLayerAddress, o.SourceLinkLayerAddress
		if o.TargetLinkLayerAddress != "" {
			t, s = namednumber.NDOptionTypeTargetLinkLayerAddress, o.TargetLinkLayerAddress
		}
		mac, err := parseMAC("option.link_layer_address", s)
		if err != nil {
			return nil, err
		}
		return &packet.LinkLayerAddressOptionBuilder{Type: t, Length: length, LinkLayerAddress: mac, CorrectLengthAtBuild: correct}, nil

	case o.PrefixInformation != nil:
		pi := o.PrefixInformation
		prefix, err := parsePrefix("option.prefix_information.prefix", pi.Prefix)
		if err != nil {
			return nil, err
		}
		return &packet.PrefixInformationOptionBuilder{
			Length:               length,
			PrefixLength:         uint8(prefix.Bits()),
			OnLink:               pi.OnLink,
			Autonomous:           pi.Autonomous,
			ValidLifetime:        pi.ValidLifetime,
			PreferredLifetime:    pi.PreferredLifetime,
			Prefix:               prefix.Addr(),
			CorrectLengthAtBuild: correct,
		}, nil

	case o.MTU != nil:
		return &packet.MTUOptionBuilder{Length: length, MTU: *o.MTU, CorrectLengthAtBuild: correct}, nil

	case o.RedirectedHeader != nil:
		rh := o.RedirectedHeader
		b, err := compileLayers(rh.Layers, opts)
		if err != nil {
			return nil, fmt.Errorf("redirected_header: %w", err)
		}
		quoted, err := b.Build()
		if err != nil {
			return nil, fmt.Errorf("redirected_header: %w", err)
		}
		size := rh.MaxSize
		if size <= 0 {
			size = opts.EmbedMaxSize
		}
		quoted, err = packet.MakeRedirectedHeaderCopy(quoted, size)
		if err != nil {
			return nil, fmt.Errorf("redirected_header: %w", err)
		}
		return &packet.RedirectedHeaderOptionBuilder{Length: length, Packet: quoted, CorrectLengthAtBuild: correct}, nil

	default:
		data, err := parseBytes("option.unknown.data", o.Unknown.Data)
		if err != nil {
			return nil, err
		}
		return &packet.UnknownNDOptionBuilder{
			Type:                 namednumber.NDOptionType(o.Unknown.Type),
			Length:               length,
			Data:                 data,
			CorrectLengthAtBuild: correct,
		}, nil
	}
}
