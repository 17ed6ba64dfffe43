// Package config loads server settings from a TOML file, a .env file and
// MCSERVER_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/gstoney/mcserver/chat"
)

// Duration is a time.Duration that reads from TOML strings such as "10ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type StatusConfig struct {
	VersionName string `toml:"version_name"`
	Protocol    int32  `toml:"protocol"`
	MaxPlayers  int    `toml:"max_players"`
	MOTD        string `toml:"motd"`
	MOTDColor   string `toml:"motd_color"`
}

type AuthConfig struct {
	SessionURL string   `toml:"session_url"`
	Timeout    Duration `toml:"timeout"`
	MaxPending int      `toml:"max_pending"`
}

type LogConfig struct {
	Level     string `toml:"level"`
	Directory string `toml:"directory"` // empty logs to the console only
	Console   bool   `toml:"console"`
}

type StoreConfig struct {
	Path string `toml:"path"` // empty disables the player ledger
}

type Config struct {
	Addr                 string   `toml:"addr"`
	OnlineMode           bool     `toml:"online_mode"`
	CompressionThreshold int      `toml:"compression_threshold"`
	KeyBits              int      `toml:"key_bits"`
	TickInterval         Duration `toml:"tick_interval"`
	InboundQueue         int      `toml:"inbound_queue"`
	ReadBuffer           int      `toml:"read_buffer"`
	WriteTimeout         Duration `toml:"write_timeout"`
	MaxPacketLen         int32    `toml:"max_packet_len"`
	MaxDecompressedLen   int32    `toml:"max_decompressed_len"`
	ConnectionThrottle   Duration `toml:"connection_throttle"`

	Status StatusConfig `toml:"status"`
	Auth   AuthConfig   `toml:"auth"`
	Log    LogConfig    `toml:"log"`
	Store  StoreConfig  `toml:"store"`
}

func Default() Config {
	return Config{
		Addr:                 "0.0.0.0:25566",
		OnlineMode:           true,
		CompressionThreshold: 256,
		KeyBits:              1024,
		TickInterval:         Duration{10 * time.Millisecond},
		InboundQueue:         64,
		ReadBuffer:           4096,
		WriteTimeout:         Duration{10 * time.Second},
		MaxPacketLen:         2097151,
		MaxDecompressedLen:   8388608,
		Status: StatusConfig{
			VersionName: "1.15.2",
			Protocol:    578,
			MaxPlayers:  20,
			MOTD:        "A Minecraft Server",
			MOTDColor:   string(chat.Gold),
		},
		Auth: AuthConfig{
			SessionURL: "https://sessionserver.mojang.com",
			Timeout:    Duration{10 * time.Second},
			MaxPending: 256,
		},
		Log: LogConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// Load overlays the TOML file at path (skipped when missing), then the
// process environment on top of Default. Variables from a .env file in the
// working directory fill in unset environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return cfg, fmt.Errorf("config: unknown keys in %s: %v", path, undecoded)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("config: load .env: %w", err)
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv("MCSERVER_ADDR"); ok {
		cfg.Addr = v
	}
	if v, ok := os.LookupEnv("MCSERVER_ONLINE_MODE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: MCSERVER_ONLINE_MODE: %w", err)
		}
		cfg.OnlineMode = b
	}
	if v, ok := os.LookupEnv("MCSERVER_COMPRESSION_THRESHOLD"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: MCSERVER_COMPRESSION_THRESHOLD: %w", err)
		}
		cfg.CompressionThreshold = n
	}
	if v, ok := os.LookupEnv("MCSERVER_LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}
	if v, ok := os.LookupEnv("MCSERVER_SESSION_URL"); ok {
		cfg.Auth.SessionURL = v
	}
	if v, ok := os.LookupEnv("MCSERVER_PLAYER_DB"); ok {
		cfg.Store.Path = v
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error

	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		errs = append(errs, fmt.Errorf("addr %q: %w", c.Addr, err))
	}
	if c.KeyBits < 1024 {
		errs = append(errs, fmt.Errorf("key_bits must be at least 1024, got %d", c.KeyBits))
	}
	if c.CompressionThreshold < -1 {
		errs = append(errs, fmt.Errorf("compression_threshold must be -1 or more, got %d", c.CompressionThreshold))
	}
	if c.TickInterval.Duration <= 0 {
		errs = append(errs, errors.New("tick_interval must be positive"))
	}
	if c.WriteTimeout.Duration <= 0 {
		errs = append(errs, errors.New("write_timeout must be positive"))
	}
	if c.Auth.Timeout.Duration <= 0 {
		errs = append(errs, errors.New("auth.timeout must be positive"))
	}
	if c.ConnectionThrottle.Duration < 0 {
		errs = append(errs, errors.New("connection_throttle must not be negative"))
	}
	if c.InboundQueue <= 0 || c.ReadBuffer <= 0 {
		errs = append(errs, errors.New("inbound_queue and read_buffer must be positive"))
	}
	if c.MaxPacketLen <= 0 || c.MaxDecompressedLen <= 0 {
		errs = append(errs, errors.New("packet size limits must be positive"))
	}
	if _, err := chat.ParseColor(c.Status.MOTDColor); err != nil {
		errs = append(errs, fmt.Errorf("status.motd_color: %w", err))
	}
	if c.OnlineMode && !strings.HasPrefix(c.Auth.SessionURL, "http") {
		errs = append(errs, fmt.Errorf("auth.session_url %q is not an http(s) URL", c.Auth.SessionURL))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
