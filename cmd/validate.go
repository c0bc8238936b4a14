package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"firestige.xyz/pktcodec/internal/blueprint"
	"firestige.xyz/pktcodec/internal/core"
	"firestige.xyz/pktcodec/pkg/packet"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that a blueprint builds a consistent packet",
	Long: `Build a packet from a blueprint, decode its bytes again and check that
the result is equal to the built packet and that length and reserved fields
are consistent.

Examples:
  pktcodec validate -f redirect.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(validateFile, cmd.OutOrStdout()); err != nil {
			exitWithError("validation failed", err)
		}
	},
}

var validateFile string

// errRoundTrip reports a packet whose bytes decode to a different packet.
var errRoundTrip = errors.New("decoded packet differs from the built packet")

func init() {
	validateCmd.Flags().StringVarP(&validateFile, "file", "f", "",
		"blueprint file to validate (required)")
	validateCmd.MarkFlagRequired("file")
}

func runValidate(path string, w io.Writer) error {
	bp, err := blueprint.Load(path)
	if err != nil {
		return err
	}
	p, err := bp.Build(blueprintOptions())
	if err == nil {
		err = checkPacket(p)
	}
	if err != nil {
		fmt.Fprintf(w, "INVALID: %v\n", err)
		return err
	}
	fmt.Fprintf(w, "VALID: %s, %d bytes\n", core.DecodedPacket{Packet: p}.LayerChain(), p.Len())
	return nil
}

func checkPacket(p packet.Packet) error {
	decoded, err := packet.Decode(p.RawData(), p.LayerType())
	if err != nil {
		return err
	}
	if !decoded.Equal(p) {
		return errRoundTrip
	}
	// Validators check their own payload chain.
	for q := decoded; q != nil; q = q.Payload() {
		if v, ok := q.(packet.Validator); ok {
			return v.Validate()
		}
	}
	return nil
}
