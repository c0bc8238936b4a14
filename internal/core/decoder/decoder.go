// Package decoder turns captured frames into packet chains.
package decoder

import (
	"fmt"

	"firestige.xyz/pktcodec/internal/core"
	"firestige.xyz/pktcodec/internal/log"
	"firestige.xyz/pktcodec/internal/metrics"
	"firestige.xyz/pktcodec/pkg/namednumber"
	"firestige.xyz/pktcodec/pkg/packet"
)

// Decoder decodes raw packets into structured format.
type Decoder interface {
	Decode(raw core.RawPacket) (core.DecodedPacket, error)
}

// Config controls the standard decoder.
type Config struct {
	// LinkType applies to records whose link type is DataLinkTypeUnset.
	// DataLinkTypeUnset here means Ethernet; zero is LINKTYPE_NULL.
	LinkType namednumber.DataLinkType
	// Strict rejects frames whose layers do not decode completely. Records
	// shorter than their original length are always decoded as snapshots.
	Strict bool
}

// StandardDecoder selects the outermost layer from the link type and
// decodes the whole chain with pkg/packet.
type StandardDecoder struct {
	config Config
}

// DefaultConfig returns a lenient Ethernet configuration.
func DefaultConfig() Config {
	return Config{LinkType: namednumber.DataLinkTypeEN10MB}
}

// NewStandardDecoder creates a new standard decoder.
func NewStandardDecoder(cfg Config) *StandardDecoder {
	if cfg.LinkType == namednumber.DataLinkTypeUnset {
		cfg.LinkType = namednumber.DataLinkTypeEN10MB
	}
	return &StandardDecoder{config: cfg}
}

// Decode implements Decoder.
func (d *StandardDecoder) Decode(raw core.RawPacket) (core.DecodedPacket, error) {
	lt := raw.LinkType
	if lt == namednumber.DataLinkTypeUnset {
		lt = d.config.LinkType
	}
	if len(raw.Data) == 0 {
		metrics.ObserveDecode(lt.Name(), metrics.ResultError, 0)
		return core.DecodedPacket{}, core.ErrPacketTooShort
	}

	snapshot := raw.Truncated() || !d.config.Strict
	var (
		p   packet.Packet
		err error
	)
	if snapshot {
		p, err = packet.DecodeLinkTruncated(raw.Data, lt)
	} else {
		p, err = packet.DecodeLink(raw.Data, lt)
	}
	if err != nil {
		metrics.ObserveDecode(lt.Name(), metrics.ResultError, len(raw.Data))
		return core.DecodedPacket{}, fmt.Errorf("decode %s frame: %w", lt, err)
	}
	if p.LayerType() == packet.LayerTypeUnknown {
		if d.config.Strict {
			metrics.ObserveDecode(lt.Name(), metrics.ResultError, len(raw.Data))
			return core.DecodedPacket{}, fmt.Errorf("%w: %s", core.ErrUnsupportedLinkType, lt)
		}
		log.GetLogger().WithField("link_type", lt.Name()).Debug("no decoder for link type, keeping raw data")
	}

	result := metrics.ResultOK
	if raw.Truncated() {
		result = metrics.ResultTruncated
	}
	metrics.ObserveDecode(p.LayerType().String(), result, len(raw.Data))

	return core.DecodedPacket{
		Timestamp:  raw.Timestamp,
		Packet:     p,
		CaptureLen: raw.CaptureLen,
		OrigLen:    raw.OrigLen,
		Truncated:  raw.Truncated(),
	}, nil
}
