// control/config.go
// Author: momentics <momentics@gmail.com>
//
// TOML-backed configuration with defaults and validation.

package control

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/momentics/hioload-clink/api"
	"github.com/momentics/hioload-clink/core/buffer"
	"github.com/momentics/hioload-clink/core/protocol"
)

// Defaults.
const (
	DefaultWorkers         = 4
	DefaultMaxInFlight     = 1
	DefaultServerPort      = 30401
	DefaultDiscoveryPort   = 30201
	DefaultResponsePort    = 30202
	DefaultSearchTimeout   = 10 * time.Second
	DefaultCacheDirName    = "cache"
	DefaultServerCacheName = "server"
	DefaultClientCacheName = "client"
)

// ReactorConfig sizes the readiness reactor.
type ReactorConfig struct {
	// Workers per direction.
	Workers int `toml:"workers"`
	// ReadCPU and WriteCPU pin the selector threads; -1 leaves them unpinned.
	ReadCPU  int `toml:"read_cpu"`
	WriteCPU int `toml:"write_cpu"`
}

// LinkConfig tunes a single connection.
type LinkConfig struct {
	IoCapacity  int `toml:"io_capacity"`
	MaxInFlight int `toml:"max_in_flight"`
}

// ServerConfig configures the chat server.
type ServerConfig struct {
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	CacheDir      string `toml:"cache_dir"`
	DiscoveryPort int    `toml:"discovery_port"`
}

// ClientConfig configures the chat client.
type ClientConfig struct {
	CacheDir      string   `toml:"cache_dir"`
	ResponsePort  int      `toml:"response_port"`
	SearchTimeout Duration `toml:"search_timeout"`
}

// Config is the full process configuration.
type Config struct {
	Reactor ReactorConfig `toml:"reactor"`
	Link    LinkConfig    `toml:"link"`
	Server  ServerConfig  `toml:"server"`
	Client  ClientConfig  `toml:"client"`
}

// Duration decodes TOML strings such as "10s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// DefaultConfig returns a configuration usable without a file.
func DefaultConfig() Config {
	return Config{
		Reactor: ReactorConfig{Workers: DefaultWorkers, ReadCPU: -1, WriteCPU: -1},
		Link: LinkConfig{
			IoCapacity:  buffer.DefaultCapacity,
			MaxInFlight: DefaultMaxInFlight,
		},
		Server: ServerConfig{
			Port:          DefaultServerPort,
			CacheDir:      DefaultCacheDirName,
			DiscoveryPort: DefaultDiscoveryPort,
		},
		Client: ClientConfig{
			CacheDir:      DefaultCacheDirName,
			ResponsePort:  DefaultResponsePort,
			SearchTimeout: Duration{DefaultSearchTimeout},
		},
	}
}

// LoadConfig reads path over the defaults. An empty path yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return ParseConfig(string(raw))
}

// ParseConfig decodes TOML text over the defaults and validates the result.
func ParseConfig(text string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.Decode(text, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("unknown config key %q: %w", undecoded[0].String(), api.ErrInvalidArgument)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges.
func (c Config) Validate() error {
	switch {
	case c.Reactor.Workers <= 0:
		return fmt.Errorf("reactor.workers must be positive: %w", api.ErrInvalidArgument)
	case c.Reactor.ReadCPU < -1 || c.Reactor.WriteCPU < -1:
		return fmt.Errorf("reactor cpu must be -1 or a cpu index: %w", api.ErrInvalidArgument)
	case c.Link.IoCapacity < protocol.HeaderLength:
		return fmt.Errorf("link.io_capacity must be at least %d: %w", protocol.HeaderLength, api.ErrInvalidArgument)
	case c.Link.MaxInFlight < 1 || c.Link.MaxInFlight > int(protocol.MaxIdentifier):
		return fmt.Errorf("link.max_in_flight must be within 1..%d: %w", protocol.MaxIdentifier, api.ErrInvalidArgument)
	case !validPort(c.Server.Port) || !validPort(c.Server.DiscoveryPort) || !validPort(c.Client.ResponsePort):
		return fmt.Errorf("port out of range: %w", api.ErrInvalidArgument)
	case c.Client.SearchTimeout.Duration <= 0:
		return fmt.Errorf("client.search_timeout must be positive: %w", api.ErrInvalidArgument)
	}
	return nil
}

// validPort accepts 0, which binds an ephemeral port.
func validPort(p int) bool {
	return p >= 0 && p <= 0xFFFF
}
