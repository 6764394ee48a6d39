package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Transport selects how the client reaches the event service.
type Transport string

const (
	// TransportGRPC uses a native gRPC connection (HTTP/2)
	TransportGRPC Transport = "grpc"

	// TransportGRPCWeb uses the grpc-web wire protocol over plain HTTP.
	// This is the only transport available in browser (js/wasm) builds.
	TransportGRPCWeb Transport = "grpc-web"
)

// Default values for the client configuration
const (
	DefaultDialTimeout  = 10 * time.Second
	DefaultIdleTimeout  = 30 * time.Second
	DefaultStreamBuffer = 64
	DefaultMaxFrameSize = 4 << 20 // 4 MiB, matches the gRPC default recv limit
)

// Config holds the full configuration for the event consumer
type Config struct {
	// ServerAddress is the host:port (or URL) of the event service
	ServerAddress string `yaml:"server" mapstructure:"server"`

	// Transport is the wire transport to use: grpc or grpc-web
	Transport Transport `yaml:"transport" mapstructure:"transport"`

	// DialTimeout bounds connection establishment
	DialTimeout time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`

	// IdleTimeout fails a stream that has received no data for this long.
	// Zero disables the watchdog.
	IdleTimeout time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`

	// StreamBuffer is the number of decoded events buffered between the
	// receive loop and the consumer before backpressure applies
	StreamBuffer int `yaml:"stream_buffer" mapstructure:"stream_buffer"`

	// MaxFrameSize rejects frames whose declared body length exceeds it
	MaxFrameSize uint32 `yaml:"max_frame_size" mapstructure:"max_frame_size"`

	// CheckpointPath is the path of the BoltDB cursor store used by --resume
	CheckpointPath string `yaml:"checkpoint_path" mapstructure:"checkpoint_path"`

	// LogLevel sets the zap log level (debug|info|warn|error)
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`

	// TLS configures transport security; nil or mode=disabled means plaintext
	TLS *TLSConfig `yaml:"tls" mapstructure:"tls"`
}

// Default returns a configuration with all defaults applied
func Default() *Config {
	return &Config{
		Transport:    TransportGRPC,
		DialTimeout:  DefaultDialTimeout,
		IdleTimeout:  DefaultIdleTimeout,
		StreamBuffer: DefaultStreamBuffer,
		MaxFrameSize: DefaultMaxFrameSize,
		LogLevel:     "info",
		TLS:          DefaultTLSConfig(),
	}
}

// LoadFromFile loads configuration from a YAML file on top of the defaults
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// ApplyDefaults fills zero-valued fields with their defaults
func (c *Config) ApplyDefaults() {
	d := Default()
	if c.Transport == "" {
		c.Transport = d.Transport
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = d.DialTimeout
	}
	if c.StreamBuffer == 0 {
		c.StreamBuffer = d.StreamBuffer
	}
	if c.MaxFrameSize == 0 {
		c.MaxFrameSize = d.MaxFrameSize
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.TLS == nil {
		c.TLS = DefaultTLSConfig()
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.ServerAddress == "" {
		return fmt.Errorf("server address is required")
	}

	switch c.Transport {
	case TransportGRPC, TransportGRPCWeb:
	default:
		return fmt.Errorf("unknown transport %q (want grpc or grpc-web)", c.Transport)
	}

	if c.StreamBuffer < 0 {
		return fmt.Errorf("stream_buffer must not be negative")
	}

	if c.TLS != nil {
		if err := c.TLS.Validate(); err != nil {
			return fmt.Errorf("invalid tls config: %w", err)
		}
	}

	return nil
}
