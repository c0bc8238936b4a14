package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"firestige.xyz/pktcodec/internal/blueprint"
	"firestige.xyz/pktcodec/pkg/packet"
)

var checksumCmd = &cobra.Command{
	Use:   "checksum",
	Short: "Compute the Internet checksum of bytes",
	Long: `Compute the RFC 1071 Internet checksum of the given bytes.

Examples:
  pktcodec checksum --hex "0001 f203 f4f5 f6f7"`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runChecksum(checksumHex, cmd.OutOrStdout()); err != nil {
			exitWithError("checksum failed", err)
		}
	},
}

var checksumHex string

func init() {
	checksumCmd.Flags().StringVar(&checksumHex, "hex", "", "bytes as hex (required)")
	checksumCmd.MarkFlagRequired("hex")
}

func runChecksum(s string, w io.Writer) error {
	data, err := blueprint.ParseHex(s)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "0x%04x\n", packet.InternetChecksum(data))
	return nil
}
