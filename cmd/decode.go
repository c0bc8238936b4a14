package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"firestige.xyz/pktcodec/internal/blueprint"
	"firestige.xyz/pktcodec/internal/config"
	"firestige.xyz/pktcodec/internal/core"
	"firestige.xyz/pktcodec/internal/core/decoder"
	"firestige.xyz/pktcodec/internal/log"
	"firestige.xyz/pktcodec/internal/pcapfile"
	"firestige.xyz/pktcodec/pkg/namednumber"
	"firestige.xyz/pktcodec/pkg/packet"
)

var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decode captured frames and print their layers",
	Long: `Decode frames from a pcap file, a hex string or a packet envelope and
print every layer with its fields.

Examples:
  pktcodec decode -r capture.pcap
  pktcodec decode --hex "60000000 0008 3a40 ..." --link-type RAW
  pktcodec decode --envelope redirect.pkt`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runDecode(decodeOpts, cmd.OutOrStdout()); err != nil {
			exitWithError("decode failed", err)
		}
	},
}

type decodeOptions struct {
	File     string
	Hex      string
	Envelope string
	LinkType string
	Strict   bool
	Count    int
}

var decodeOpts decodeOptions

func init() {
	decodeCmd.Flags().StringVarP(&decodeOpts.File, "read", "r", "", "pcap file to read")
	decodeCmd.Flags().StringVar(&decodeOpts.Hex, "hex", "", "frame bytes as hex")
	decodeCmd.Flags().StringVar(&decodeOpts.Envelope, "envelope", "", "packet envelope file written by build")
	decodeCmd.Flags().StringVar(&decodeOpts.LinkType, "link-type", "", "link type of --hex input (default from config)")
	decodeCmd.Flags().BoolVar(&decodeOpts.Strict, "strict", false, "reject frames whose layers do not decode completely")
	decodeCmd.Flags().IntVarP(&decodeOpts.Count, "count", "n", 0, "stop after this many records (0 = all)")
	decodeCmd.MarkFlagsMutuallyExclusive("read", "hex", "envelope")
	decodeCmd.MarkFlagsOneRequired("read", "hex", "envelope")
}

func runDecode(opts decodeOptions, w io.Writer) error {
	dc := cfg.Decode.DecoderConfig()
	dc.Strict = dc.Strict || opts.Strict
	if opts.LinkType != "" {
		lt, err := config.ParseLinkType(opts.LinkType)
		if err != nil {
			return err
		}
		dc.LinkType = lt
	}
	dec := decoder.NewStandardDecoder(dc)

	switch {
	case opts.Hex != "":
		data, err := blueprint.ParseHex(opts.Hex)
		if err != nil {
			return err
		}
		raw := core.RawPacket{
			Data:       data,
			Timestamp:  time.Now(),
			CaptureLen: uint32(len(data)),
			OrigLen:    uint32(len(data)),
			LinkType:   namednumber.DataLinkTypeUnset,
		}
		return decodeOne(dec, 1, raw, w)

	case opts.Envelope != "":
		data, err := os.ReadFile(opts.Envelope)
		if err != nil {
			return fmt.Errorf("failed to read envelope %s: %w", opts.Envelope, err)
		}
		var env packet.Envelope
		if err := env.UnmarshalBinary(data); err != nil {
			return err
		}
		p, err := env.Packet()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "#1 %d bytes: %s\n", p.Len(), core.DecodedPacket{Packet: p}.LayerChain())
		fmt.Fprint(w, p)
		return nil

	default:
		return decodeFile(dec, opts.File, opts.Count, w)
	}
}

func decodeFile(dec decoder.Decoder, path string, count int, w io.Writer) error {
	r, err := pcapfile.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	failed := 0
	for n := 1; count == 0 || n <= count; n++ {
		raw, err := r.ReadPacket()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if err := decodeOne(dec, n, raw, w); err != nil {
			log.GetLogger().WithField("record", n).WithError(err).Warn("record not decoded")
			fmt.Fprintf(w, "#%d error: %v\n", n, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d record(s) failed to decode", failed)
	}
	return nil
}

func decodeOne(dec decoder.Decoder, n int, raw core.RawPacket, w io.Writer) error {
	d, err := dec.Decode(raw)
	if err != nil {
		return err
	}
	snapshot := ""
	if d.Truncated {
		snapshot = " (snapshot)"
	}
	fmt.Fprintf(w, "#%d %s %d/%d bytes%s: %s\n", n, d.Timestamp.UTC().Format(time.RFC3339Nano), d.CaptureLen, d.OrigLen, snapshot, d.LayerChain())
	fmt.Fprint(w, d.Packet)
	return nil
}
