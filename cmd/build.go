package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"firestige.xyz/pktcodec/internal/blueprint"
	"firestige.xyz/pktcodec/internal/pcapfile"
	"firestige.xyz/pktcodec/pkg/packet"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a packet from a YAML blueprint",
	Long: `Build a packet from a YAML blueprint, print its layers and bytes, and
optionally write it to a pcap file or a packet envelope.

Examples:
  pktcodec build -f redirect.yaml
  pktcodec build -f redirect.yaml -w redirect.pcap
  pktcodec build -f redirect.yaml -e redirect.pkt`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runBuild(buildOpts, cmd.OutOrStdout()); err != nil {
			exitWithError("build failed", err)
		}
	},
}

type buildOptions struct {
	File     string
	Pcap     string
	Envelope string
}

var buildOpts buildOptions

func init() {
	buildCmd.Flags().StringVarP(&buildOpts.File, "file", "f", "", "blueprint file (required)")
	buildCmd.Flags().StringVarP(&buildOpts.Pcap, "write", "w", "", "append the packet to a new pcap file")
	buildCmd.Flags().StringVarP(&buildOpts.Envelope, "envelope", "e", "", "write the packet as an envelope file")
	buildCmd.MarkFlagRequired("file")
}

func blueprintOptions() blueprint.Options {
	return blueprint.Options{EmbedMaxSize: int(cfg.Embed.MaxSize.Bytes())}
}

func runBuild(opts buildOptions, w io.Writer) error {
	bp, err := blueprint.Load(opts.File)
	if err != nil {
		return err
	}
	p, err := bp.Build(blueprintOptions())
	if err != nil {
		return err
	}

	fmt.Fprint(w, p)
	fmt.Fprintf(w, "Hex stream (%d bytes): %s\n", p.Len(), hex.EncodeToString(p.RawData()))

	if opts.Pcap != "" {
		if err := writePcap(opts.Pcap, bp, p); err != nil {
			return err
		}
		fmt.Fprintf(w, "Wrote %s\n", opts.Pcap)
	}
	if opts.Envelope != "" {
		data, err := packet.NewEnvelope(p).MarshalBinary()
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.Envelope, data, 0644); err != nil {
			return fmt.Errorf("failed to write envelope %s: %w", opts.Envelope, err)
		}
		fmt.Fprintf(w, "Wrote %s\n", opts.Envelope)
	}
	return nil
}

func writePcap(path string, bp *blueprint.Blueprint, p packet.Packet) error {
	pw, err := pcapfile.Create(path, bp.LinkType(), cfg.Pcap.Snaplen)
	if err != nil {
		return err
	}
	if err := pw.WritePacket(time.Now(), p); err != nil {
		pw.Close()
		return err
	}
	return pw.Close()
}
