package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/pktcodec/internal/core"
)

const redirectBlueprint = `
layers:
  - ethernet: {src: "02:00:00:00:00:01", dst: "02:00:00:00:00:02"}
  - ipv6: {src: "fe80::1", dst: "fe80::2", hop_limit: 255}
  - icmpv6: {}
  - redirect:
      target: "fe80::3"
      destination: "2001:db8::2"
      options:
        - target_lla: "02:00:00:00:00:03"
        - redirected_header:
            layers:
              - ipv6: {src: "2001:db8::1", dst: "2001:db8::2"}
              - icmpv6: {}
              - echo: {identifier: 1, sequence_number: 2}
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRunChecksum(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, runChecksum("0001 f203 f4f5 f6f7", &buf))
	assert.Equal(t, "0x220d\n", buf.String())

	assert.Error(t, runChecksum("0g", &buf))
}

func TestRunValidate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, runValidate(writeFile(t, "redirect.yaml", redirectBlueprint), &buf))
	assert.Equal(t, "VALID: Ethernet > IPv6 > ICMPv6 > ICMPv6 Redirect, 158 bytes\n", buf.String())
}

func TestRunValidateInconsistent(t *testing.T) {
	path := writeFile(t, "bad.yaml", `
layers:
  - ipv6: {src: "fe80::1", dst: "fe80::2", payload_length: 3}
  - icmpv6: {}
  - echo: {}
`)
	var buf bytes.Buffer
	err := runValidate(path, &buf)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(buf.String(), "INVALID: "), buf.String())
}

func TestRunBuildAndDecode(t *testing.T) {
	dir := t.TempDir()
	opts := buildOptions{
		File:     writeFile(t, "redirect.yaml", redirectBlueprint),
		Pcap:     filepath.Join(dir, "redirect.pcap"),
		Envelope: filepath.Join(dir, "redirect.pkt"),
	}

	var out bytes.Buffer
	require.NoError(t, runBuild(opts, &out))
	assert.Contains(t, out.String(), "[Ethernet Header (14 bytes)]")
	assert.Contains(t, out.String(), "Hex stream (158 bytes): 020000000002")
	assert.Contains(t, out.String(), "Wrote "+opts.Pcap)

	var decoded bytes.Buffer
	require.NoError(t, runDecode(decodeOptions{File: opts.Pcap, Strict: true}, &decoded))
	assert.Contains(t, decoded.String(), "158/158 bytes: Ethernet > IPv6 > ICMPv6 > ICMPv6 Redirect\n")

	// The dump after the summary line is the dump printed by build.
	dump := out.String()[:strings.Index(out.String(), "Hex stream")]
	assert.True(t, strings.HasSuffix(decoded.String(), dump))

	var env bytes.Buffer
	require.NoError(t, runDecode(decodeOptions{Envelope: opts.Envelope}, &env))
	assert.Equal(t, "#1 158 bytes: Ethernet > IPv6 > ICMPv6 > ICMPv6 Redirect\n"+dump, env.String())
}

func TestRunDecodeHex(t *testing.T) {
	var buf bytes.Buffer
	err := runDecode(decodeOptions{
		Hex:      "6000000000083a40 fe800000000000000000000000000001 fe800000000000000000000000000002 8000 0000 0001 0002",
		LinkType: "RAW",
	}, &buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "48/48 bytes")
	assert.Contains(t, buf.String(), ": IPv6 > ICMPv6 > ICMPv6 Echo Request\n")

	assert.Error(t, runDecode(decodeOptions{Hex: "00", LinkType: "token-ring"}, &buf))

	err = runDecode(decodeOptions{Hex: "0000000245000014", LinkType: "NULL", Strict: true}, &buf)
	assert.ErrorIs(t, err, core.ErrUnsupportedLinkType)
}
