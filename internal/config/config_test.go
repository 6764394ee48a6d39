package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Transport != TransportGRPC {
		t.Errorf("Default transport does not match: got %s, want %s", cfg.Transport, TransportGRPC)
	}
	if cfg.DialTimeout != DefaultDialTimeout {
		t.Errorf("Default dial timeout does not match: got %v", cfg.DialTimeout)
	}
	if cfg.StreamBuffer != DefaultStreamBuffer {
		t.Errorf("Default stream buffer does not match: got %d", cfg.StreamBuffer)
	}
	if cfg.TLS == nil || cfg.TLS.Enabled() {
		t.Errorf("Default TLS config must be present and disabled, got %+v", cfg.TLS)
	}
}

func TestApplyDefaults_FillsZeroFields(t *testing.T) {
	cfg := &Config{ServerAddress: "localhost:50051"}
	cfg.ApplyDefaults()

	if cfg.Transport != TransportGRPC {
		t.Errorf("Transport not defaulted: got %s", cfg.Transport)
	}
	if cfg.DialTimeout != DefaultDialTimeout {
		t.Errorf("DialTimeout not defaulted: got %v", cfg.DialTimeout)
	}
	if cfg.MaxFrameSize != DefaultMaxFrameSize {
		t.Errorf("MaxFrameSize not defaulted: got %d", cfg.MaxFrameSize)
	}
	if cfg.TLS == nil {
		t.Errorf("TLS not defaulted")
	}
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{
		ServerAddress: "localhost:50051",
		Transport:     TransportGRPCWeb,
		DialTimeout:   3 * time.Second,
		StreamBuffer:  8,
	}
	cfg.ApplyDefaults()

	if cfg.Transport != TransportGRPCWeb {
		t.Errorf("Explicit transport overwritten: got %s", cfg.Transport)
	}
	if cfg.DialTimeout != 3*time.Second {
		t.Errorf("Explicit dial timeout overwritten: got %v", cfg.DialTimeout)
	}
	if cfg.StreamBuffer != 8 {
		t.Errorf("Explicit stream buffer overwritten: got %d", cfg.StreamBuffer)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing server", mutate: func(c *Config) { c.ServerAddress = "" }, wantErr: true},
		{name: "unknown transport", mutate: func(c *Config) { c.Transport = "carrier-pigeon" }, wantErr: true},
		{name: "negative buffer", mutate: func(c *Config) { c.StreamBuffer = -1 }, wantErr: true},
		{name: "grpc-web transport", mutate: func(c *Config) { c.Transport = TransportGRPCWeb }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.ServerAddress = "localhost:50051"
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Errorf("Expected validation error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("Unexpected validation error: %v", err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir, err := os.MkdirTemp("", "ttp-consumer-config-*")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "config.yaml")
	content := `server: events.example.com:443
transport: grpc-web
idle_timeout: 45s
stream_buffer: 128
tls:
  mode: enabled
  skip_verify: true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.ServerAddress != "events.example.com:443" {
		t.Errorf("ServerAddress does not match: got %s", cfg.ServerAddress)
	}
	if cfg.Transport != TransportGRPCWeb {
		t.Errorf("Transport does not match: got %s", cfg.Transport)
	}
	if cfg.IdleTimeout != 45*time.Second {
		t.Errorf("IdleTimeout does not match: got %v", cfg.IdleTimeout)
	}
	if cfg.StreamBuffer != 128 {
		t.Errorf("StreamBuffer does not match: got %d", cfg.StreamBuffer)
	}
	if !cfg.TLS.Enabled() || !cfg.TLS.SkipVerify {
		t.Errorf("TLS settings not loaded: %+v", cfg.TLS)
	}

	// Fields the file omits keep their defaults
	if cfg.DialTimeout != DefaultDialTimeout {
		t.Errorf("Omitted DialTimeout lost its default: got %v", cfg.DialTimeout)
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	if _, err := LoadFromFile("/nonexistent/config.yaml"); err == nil {
		t.Errorf("Expected error for missing config file, got nil")
	}
}

func TestTLSConfig_Enabled(t *testing.T) {
	var nilCfg *TLSConfig
	if nilCfg.Enabled() {
		t.Errorf("Nil TLS config must report disabled")
	}
	if (&TLSConfig{Mode: TLSModeDisabled}).Enabled() {
		t.Errorf("Disabled mode must report disabled")
	}
	if !(&TLSConfig{Mode: TLSModeEnabled}).Enabled() {
		t.Errorf("Enabled mode must report enabled")
	}
	if !(&TLSConfig{Mode: TLSModeMutual}).Enabled() {
		t.Errorf("Mutual mode must report enabled")
	}
}

func TestTLSConfig_ValidateMutualRequiresCerts(t *testing.T) {
	cfg := &TLSConfig{Mode: TLSModeMutual}
	if err := cfg.Validate(); err == nil {
		t.Errorf("Expected error for mutual TLS without certificates")
	}

	// Plain enabled mode needs no client certificate
	cfg = &TLSConfig{Mode: TLSModeEnabled}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Enabled mode without certs should validate: %v", err)
	}
}

func TestResolveCertPath(t *testing.T) {
	if got := ResolveCertPath("certs/ca.pem", "/etc/ttp"); got != "/etc/ttp/certs/ca.pem" {
		t.Errorf("Relative path not resolved: got %s", got)
	}
	if got := ResolveCertPath("/abs/ca.pem", "/etc/ttp"); got != "/abs/ca.pem" {
		t.Errorf("Absolute path must pass through: got %s", got)
	}
}
