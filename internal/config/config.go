// Package config handles configuration loading using viper.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/c2h5oh/datasize"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"firestige.xyz/pktcodec/internal/core"
	"firestige.xyz/pktcodec/internal/core/decoder"
	"firestige.xyz/pktcodec/internal/log"
	"firestige.xyz/pktcodec/pkg/namednumber"
	"firestige.xyz/pktcodec/pkg/packet"
)

// EnvPrefix prefixes environment overrides, e.g. PKTCODEC_LOG_LEVEL.
const EnvPrefix = "PKTCODEC"

// Config is the top-level configuration. Maps to the `pktcodec:` root key in
// YAML.
type Config struct {
	Log    log.LoggerConfig `mapstructure:"log"`
	Decode DecodeConfig     `mapstructure:"decode"`
	Embed  EmbedConfig      `mapstructure:"embed"`
	Pcap   PcapConfig       `mapstructure:"pcap"`
}

// DecodeConfig selects how captured frames are decoded.
type DecodeConfig struct {
	LinkType string `mapstructure:"link_type"` // name ("Ethernet", "RAW") or number
	Strict   bool   `mapstructure:"strict"`

	linkType namednumber.DataLinkType
}

// LinkTypeValue returns the resolved link type. Valid after
// ValidateAndApplyDefaults.
func (c DecodeConfig) LinkTypeValue() namednumber.DataLinkType { return c.linkType }

// DecoderConfig converts the section to the decoder's configuration.
func (c DecodeConfig) DecoderConfig() decoder.Config {
	return decoder.Config{LinkType: c.linkType, Strict: c.Strict}
}

// EmbedConfig bounds packets quoted inside other packets.
type EmbedConfig struct {
	MaxSize datasize.ByteSize `mapstructure:"max_size"` // 0 = RFC 4861 default
}

// PcapConfig configures capture files written by the tool.
type PcapConfig struct {
	Snaplen uint32 `mapstructure:"snaplen"`
}

// configRoot is the top-level wrapper matching the YAML structure `pktcodec: ...`.
type configRoot struct {
	Pktcodec Config `mapstructure:"pktcodec"`
}

// Load loads configuration from file. An empty path loads defaults and
// environment overrides only.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// The `pktcodec.` key prefix maps to `PKTCODEC_` in env vars via the key
	// replacer, e.g. key "pktcodec.log.level" is read from PKTCODEC_LOG_LEVEL.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := v.Unmarshal(&root, hook); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Pktcodec

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{
		Log:    *log.DefaultConfig(),
		Decode: DecodeConfig{LinkType: "Ethernet"},
		Pcap:   PcapConfig{Snaplen: defaultSnaplen},
	}
	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		panic(err)
	}
	return cfg
}

const defaultSnaplen = 262144

// setDefaults sets default values for configuration.
// All keys use "pktcodec." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("pktcodec.log.level", "info")
	v.SetDefault("pktcodec.log.pattern", log.DefaultPattern)
	v.SetDefault("pktcodec.log.time", log.DefaultTimeLayout)
	v.SetDefault("pktcodec.log.appender", log.AppenderConsole)
	v.SetDefault("pktcodec.log.file.filename", "")
	v.SetDefault("pktcodec.log.file.max_size", 100)
	v.SetDefault("pktcodec.log.file.max_age", 30)
	v.SetDefault("pktcodec.log.file.max_backups", 5)
	v.SetDefault("pktcodec.log.file.compress", true)

	// Decode defaults
	v.SetDefault("pktcodec.decode.link_type", "Ethernet")
	v.SetDefault("pktcodec.decode.strict", false)

	// Embed defaults
	v.SetDefault("pktcodec.embed.max_size", "0B")

	// Pcap defaults
	v.SetDefault("pktcodec.pcap.snaplen", defaultSnaplen)
}

// ValidateAndApplyDefaults validates configuration and resolves derived
// values.
func (cfg *Config) ValidateAndApplyDefaults() error {
	// ── Log validation ──
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("%w: invalid log level: %s (must be trace/debug/info/warn/error)", core.ErrConfigInvalid, cfg.Log.Level)
	}
	switch cfg.Log.Appender {
	case "":
		cfg.Log.Appender = log.AppenderConsole
	case log.AppenderConsole:
	case log.AppenderFile, log.AppenderBoth:
		if cfg.Log.File.Filename == "" {
			return fmt.Errorf("%w: log.file.filename is required for appender %q", core.ErrConfigInvalid, cfg.Log.Appender)
		}
	default:
		return fmt.Errorf("%w: invalid log appender: %s (must be console/file/both)", core.ErrConfigInvalid, cfg.Log.Appender)
	}

	// ── Link type ──
	lt, err := ParseLinkType(cfg.Decode.LinkType)
	if err != nil {
		return err
	}
	cfg.Decode.linkType = lt

	// ── Embedding budget ──
	if cfg.Embed.MaxSize == 0 {
		cfg.Embed.MaxSize = datasize.ByteSize(packet.DefaultRedirectedHeaderSize)
	}
	if minLen := packet.LayerTypeIPv6.MinHeaderLen(); cfg.Embed.MaxSize.Bytes() < uint64(minLen) {
		return fmt.Errorf("%w: embed.max_size %s is below the IPv6 header size of %d bytes", core.ErrConfigInvalid, cfg.Embed.MaxSize, minLen)
	}

	// ── Pcap ──
	if cfg.Pcap.Snaplen == 0 {
		cfg.Pcap.Snaplen = defaultSnaplen
	}

	return nil
}

// ParseLinkType accepts a registered link type name or a decimal number.
func ParseLinkType(s string) (namednumber.DataLinkType, error) {
	if s == "" {
		return namednumber.DataLinkTypeEN10MB, nil
	}
	if lt, ok := namednumber.DataLinkTypeByName(s); ok {
		return lt, nil
	}
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: unknown link type: %s", core.ErrConfigInvalid, s)
	}
	return namednumber.DataLinkType(n), nil
}
