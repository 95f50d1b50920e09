package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/moodclient/owo/telnet"
)

var ErrUnknownKey = errors.New("unknown key")
var ErrInvalidValue = errors.New("invalid value")

const DefaultRefusalMessage = "Your telnet client cannot be put in no-echo single-character mode\r\n" +
	"as needed to play the game. Apologies.\r\n"

// Duration is a time.Duration written as a string such as "100ms"
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}

	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	return d.UnmarshalText([]byte(value.Value))
}

type ServerConfig struct {
	Addr string `toml:"addr" yaml:"addr"`
}

type SessionConfig struct {
	// PollTimeout is how long a player's read waits before the game loop gets a turn
	PollTimeout Duration `toml:"poll_timeout" yaml:"poll_timeout"`
	// NegotiateANSI turns on terminal type detection after the terminal is set up
	NegotiateANSI bool `toml:"negotiate_ansi" yaml:"negotiate_ansi"`
	// ANSITerminals replaces the built-in list of ANSI terminal name prefixes
	ANSITerminals []string `toml:"ansi_terminals" yaml:"ansi_terminals"`
	// RefusalMessage is sent to clients that can't be put in character mode
	RefusalMessage string `toml:"refusal_message" yaml:"refusal_message"`
	// DebugProtocol logs every telnet command in both directions
	DebugProtocol bool `toml:"debug_protocol" yaml:"debug_protocol"`
	// Banner is how many recent games to list when a player connects
	Banner int `toml:"banner" yaml:"banner"`
}

type StoreConfig struct {
	// Path of the results database. Leave empty to keep no records.
	Path string `toml:"path" yaml:"path"`
}

type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

type Config struct {
	Server  ServerConfig  `toml:"server" yaml:"server"`
	Session SessionConfig `toml:"session" yaml:"session"`
	Store   StoreConfig   `toml:"store" yaml:"store"`
	Log     LogConfig     `toml:"log" yaml:"log"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: "0.0.0.0:10001",
		},
		Session: SessionConfig{
			PollTimeout:    Duration{100 * time.Millisecond},
			RefusalMessage: DefaultRefusalMessage,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a configuration file on top of the defaults. Files ending in .yaml or .yml
// are YAML, everything else is TOML. Keys that don't belong to the configuration are
// an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = decodeYAML(data, cfg)
	default:
		err = decodeTOML(data, cfg)
	}

	if err != nil {
		return nil, fmt.Errorf("error loading %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("error loading %s: %w", path, err)
	}

	return cfg, nil
}

func decodeTOML(data []byte, cfg *Config) error {
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return err
	}

	undecoded := md.Undecoded()
	if len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}

		return fmt.Errorf("%w: %s", ErrUnknownKey, strings.Join(keys, ", "))
	}

	return nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	err := dec.Decode(cfg)
	if errors.Is(err, io.EOF) {
		return nil
	}

	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) && strings.Contains(err.Error(), "not found in type") {
		return fmt.Errorf("%w: %v", ErrUnknownKey, err)
	}

	return err
}

// Validate checks values that decoded fine but can't be used
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr is empty", ErrInvalidValue)
	}

	if c.Session.PollTimeout.Duration <= 0 {
		return fmt.Errorf("%w: session.poll_timeout must be positive", ErrInvalidValue)
	}

	if c.Session.Banner < 0 {
		return fmt.Errorf("%w: session.banner must not be negative", ErrInvalidValue)
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q", ErrInvalidValue, c.Log.Format)
	}

	return nil
}

func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("%w: log.level %q", ErrInvalidValue, l.Level)
	}

	return level, nil
}

// NewLogger builds the process logger described by the configuration
func (l LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := l.SlogLevel()
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}

	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// ConnectionConfig is the telnet configuration every player connection is created with
func (s SessionConfig) ConnectionConfig(logger *slog.Logger) telnet.ConnectionConfig {
	return telnet.ConnectionConfig{
		ANSITerminals: s.ANSITerminals,
		Logger:        logger,
	}
}
