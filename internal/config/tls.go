package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"path/filepath"

	"github.com/withobsrvr/ttp-consumer/internal/utils/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// TLSMode represents the mode of TLS operation
type TLSMode string

const (
	// TLSModeDisabled disables TLS encryption
	TLSModeDisabled TLSMode = "disabled"

	// TLSModeEnabled enables TLS encryption
	TLSModeEnabled TLSMode = "enabled"

	// TLSModeMutual enables mutual TLS (mTLS) with client authentication
	TLSModeMutual TLSMode = "mutual"
)

// TLSConfig contains TLS configuration for the connection to the event service
type TLSConfig struct {
	// Mode specifies the TLS mode: disabled, enabled, or mutual
	Mode TLSMode `yaml:"mode" mapstructure:"mode"`

	// CertFile is the path to the client certificate (mutual mode)
	CertFile string `yaml:"cert_file" mapstructure:"cert_file"`

	// KeyFile is the path to the client private key (mutual mode)
	KeyFile string `yaml:"key_file" mapstructure:"key_file"`

	// CAFile is the path to a certificate authority to trust in addition
	// to the system roots
	CAFile string `yaml:"ca_file" mapstructure:"ca_file"`

	// SkipVerify disables certificate verification if true
	SkipVerify bool `yaml:"skip_verify" mapstructure:"skip_verify"`

	// ServerName is used to verify the hostname on the certificate
	ServerName string `yaml:"server_name" mapstructure:"server_name"`
}

// DefaultTLSConfig returns a default TLS configuration with TLS disabled
func DefaultTLSConfig() *TLSConfig {
	return &TLSConfig{
		Mode:       TLSModeDisabled,
		SkipVerify: false,
	}
}

// Enabled reports whether the connection should use TLS at all
func (c *TLSConfig) Enabled() bool {
	return c != nil && c.Mode != TLSModeDisabled && c.Mode != ""
}

// Validate checks if the TLS configuration is valid
func (c *TLSConfig) Validate() error {
	if !c.Enabled() {
		return nil
	}

	// A client certificate is only needed for mutual TLS
	if c.Mode == TLSModeMutual {
		if c.CertFile == "" {
			return fmt.Errorf("cert_file is required for mutual TLS")
		}
		if c.KeyFile == "" {
			return fmt.Errorf("key_file is required for mutual TLS")
		}
		if _, err := os.Stat(c.CertFile); os.IsNotExist(err) {
			return fmt.Errorf("certificate file does not exist: %s", c.CertFile)
		}
		if _, err := os.Stat(c.KeyFile); os.IsNotExist(err) {
			return fmt.Errorf("key file does not exist: %s", c.KeyFile)
		}
	}

	if c.CAFile != "" {
		if _, err := os.Stat(c.CAFile); os.IsNotExist(err) {
			return fmt.Errorf("CA file does not exist: %s", c.CAFile)
		}
	}

	return nil
}

// ClientTLSConfig builds a crypto/tls configuration for the client side.
// Both the gRPC transport and the grpc-web HTTP transport use this, so the
// two stay in agreement about trust settings.
func (c *TLSConfig) ClientTLSConfig() (*tls.Config, error) {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: c.SkipVerify,
	}

	if c.ServerName != "" {
		tlsConfig.ServerName = c.ServerName
	}

	if c.Mode == TLSModeMutual {
		logger.Info("Loading mutual TLS client certificate",
			zap.String("cert_file", c.CertFile),
			zap.String("key_file", c.KeyFile))

		cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate and key: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	if c.CAFile != "" {
		caCert, err := os.ReadFile(c.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}

		certPool := x509.NewCertPool()
		if !certPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to add CA certificate to pool")
		}
		tlsConfig.RootCAs = certPool
	}

	return tlsConfig, nil
}

// LoadClientCredentials creates gRPC client credentials from the TLS configuration
func (c *TLSConfig) LoadClientCredentials() (grpc.DialOption, error) {
	if !c.Enabled() {
		logger.Debug("TLS disabled for client connection")
		return grpc.WithTransportCredentials(insecure.NewCredentials()), nil
	}

	logger.Info("Loading TLS credentials for client connection",
		zap.String("mode", string(c.Mode)),
		zap.String("server_name", c.ServerName),
		zap.Bool("skip_verify", c.SkipVerify))

	tlsConfig, err := c.ClientTLSConfig()
	if err != nil {
		return nil, err
	}

	return grpc.WithTransportCredentials(credentials.NewTLS(tlsConfig)), nil
}

// ResolveCertPath resolves a certificate path relative to a base directory
func ResolveCertPath(path string, baseDir string) string {
	if !filepath.IsAbs(path) && baseDir != "" {
		return filepath.Join(baseDir, path)
	}
	return path
}
