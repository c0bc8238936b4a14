package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/c2h5oh/datasize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/pktcodec/internal/core"
	"firestige.xyz/pktcodec/internal/log"
	"firestige.xyz/pktcodec/pkg/namednumber"
	"firestige.xyz/pktcodec/pkg/packet"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
pktcodec:
  log:
    level: debug
    pattern: "%level %msg"
  decode:
    link_type: RAW
    strict: true
  embed:
    max_size: 1000B
  pcap:
    snaplen: 1500
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "%level %msg", cfg.Log.Pattern)
	assert.Equal(t, log.AppenderConsole, cfg.Log.Appender)
	assert.Equal(t, namednumber.DataLinkTypeRaw, cfg.Decode.LinkTypeValue())
	assert.True(t, cfg.Decode.Strict)
	assert.Equal(t, datasize.ByteSize(1000), cfg.Embed.MaxSize)
	assert.Equal(t, uint32(1500), cfg.Pcap.Snaplen)

	dc := cfg.Decode.DecoderConfig()
	assert.Equal(t, namednumber.DataLinkTypeRaw, dc.LinkType)
	assert.True(t, dc.Strict)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "pktcodec: {}\n"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, log.DefaultPattern, cfg.Log.Pattern)
	assert.Equal(t, namednumber.DataLinkTypeEN10MB, cfg.Decode.LinkTypeValue())
	assert.False(t, cfg.Decode.Strict)
	assert.Equal(t, datasize.ByteSize(packet.DefaultRedirectedHeaderSize), cfg.Embed.MaxSize)
	assert.Equal(t, uint32(defaultSnaplen), cfg.Pcap.Snaplen)
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, namednumber.DataLinkTypeEN10MB, cfg.Decode.LinkTypeValue())
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PKTCODEC_LOG_LEVEL", "warn")
	t.Setenv("PKTCODEC_DECODE_LINK_TYPE", "229")

	cfg, err := Load(writeConfig(t, "pktcodec:\n  log:\n    level: debug\n"))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, namednumber.DataLinkTypeIPv6, cfg.Decode.LinkTypeValue())
}

func TestLoadEnvLogFile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "pktcodec.log")
	t.Setenv("PKTCODEC_LOG_FILE_FILENAME", filename)

	cfg, err := Load(writeConfig(t, "pktcodec:\n  log:\n    appender: file\n"))
	require.NoError(t, err)
	assert.Equal(t, filename, cfg.Log.File.Filename)
}

func TestLoadNullLinkType(t *testing.T) {
	cfg, err := Load(writeConfig(t, "pktcodec:\n  decode:\n    link_type: \"NULL\"\n"))
	require.NoError(t, err)
	assert.Equal(t, namednumber.DataLinkTypeNull, cfg.Decode.LinkTypeValue())
	assert.Equal(t, namednumber.DataLinkTypeNull, cfg.Decode.DecoderConfig().LinkType)

	lt, err := ParseLinkType("0")
	require.NoError(t, err)
	assert.Equal(t, namednumber.DataLinkTypeNull, lt)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"log level", "pktcodec:\n  log:\n    level: verbose\n"},
		{"appender", "pktcodec:\n  log:\n    appender: syslog\n"},
		{"file appender without filename", "pktcodec:\n  log:\n    appender: file\n"},
		{"link type", "pktcodec:\n  decode:\n    link_type: token-ring\n"},
		{"embed size", "pktcodec:\n  embed:\n    max_size: 20B\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.ErrorIs(t, err, core.ErrConfigInvalid)
		})
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, namednumber.DataLinkTypeEN10MB, cfg.Decode.LinkTypeValue())
	assert.Equal(t, datasize.ByteSize(packet.DefaultRedirectedHeaderSize), cfg.Embed.MaxSize)
}
