// Package client implements the event client: a thin, host-agnostic core
// that requests a ledger range of token transfer events from the remote
// event service and yields them incrementally, in server-send order.
package client

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/withobsrvr/ttp-consumer/internal/config"
	"github.com/withobsrvr/ttp-consumer/internal/filter"
	"github.com/withobsrvr/ttp-consumer/internal/transport"
	"github.com/withobsrvr/ttp-consumer/internal/utils/logger"
	"github.com/withobsrvr/ttp-consumer/internal/wire"
)

// EventClient owns one logical connection to the event service. A single
// request is in flight at a time; a second caller blocks until the first
// stream completes or fails.
type EventClient struct {
	addr string
	cfg  *config.Config
	tr   transport.Transport
	log  *zap.Logger

	// reqMu serializes streams on the shared connection so no two
	// requests interleave partially decoded messages
	reqMu sync.Mutex
}

// Option adjusts client construction
type Option func(*EventClient)

// WithTransport substitutes the wire transport. Tests use this to run the
// client against a stub service.
func WithTransport(tr transport.Transport) Option {
	return func(c *EventClient) {
		c.tr = tr
	}
}

// New creates a client for the given server address with default
// configuration
func New(serverAddress string, opts ...Option) (*EventClient, error) {
	cfg := config.Default()
	cfg.ServerAddress = serverAddress
	return NewFromConfig(cfg, opts...)
}

// NewFromConfig creates a client from a full configuration. The connection
// is dialed lazily on the first request.
func NewFromConfig(cfg *config.Config, opts ...Option) (*EventClient, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	cfg.ApplyDefaults()

	if reason := checkAddress(cfg.ServerAddress); reason != "" {
		return nil, &InvalidAddressError{Address: cfg.ServerAddress, Reason: reason}
	}

	c := &EventClient{
		addr: cfg.ServerAddress,
		cfg:  cfg,
		log:  logger.Named("client"),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.tr == nil {
		tr, err := buildTransport(cfg)
		if err != nil {
			return nil, &InvalidAddressError{Address: cfg.ServerAddress, Reason: err.Error()}
		}
		c.tr = tr
	}

	c.log.Info("Event client created",
		zap.String("server", c.addr),
		zap.String("transport", string(cfg.Transport)))
	return c, nil
}

func buildTransport(cfg *config.Config) (transport.Transport, error) {
	switch cfg.Transport {
	case config.TransportGRPCWeb:
		return transport.NewWeb(cfg.ServerAddress, cfg.TLS, cfg.MaxFrameSize)
	default:
		return transport.NewGRPC(dialTarget(cfg.ServerAddress), cfg.TLS, cfg.DialTimeout), nil
	}
}

// dialTarget strips a URL form down to the host:port gRPC wants
func dialTarget(addr string) string {
	if !strings.Contains(addr, "://") {
		return addr
	}
	if u, err := url.Parse(addr); err == nil && u.Host != "" {
		return u.Host
	}
	return addr
}

// checkAddress returns a non-empty reason when the address is unusable.
// Accepted forms are host:port and http(s) URLs with a host.
func checkAddress(addr string) string {
	if addr == "" {
		return "address is empty"
	}
	if strings.ContainsAny(addr, " \t\n") {
		return "address contains whitespace"
	}
	if strings.Contains(addr, "://") {
		u, err := url.Parse(addr)
		if err != nil {
			return "not a valid URL"
		}
		if u.Host == "" {
			return "URL has no host"
		}
		return ""
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "want host:port or a URL"
	}
	if host == "" || port == "" {
		return "want host:port or a URL"
	}
	return ""
}

// Info returns a static description of the client. No side effects.
func (c *EventClient) Info() string {
	return fmt.Sprintf("EventClient connected to: %s", c.addr)
}

// Events requests token transfer events for the inclusive ledger range
// [startLedger, endLedger], optionally filtered to the given accounts.
// The returned stream yields events lazily in server-send order; Recv
// returns io.EOF after a clean completion. Cancelling ctx or calling
// Close abandons the stream and stops reading from the connection.
func (c *EventClient) Events(ctx context.Context, startLedger, endLedger uint32, accountIDs []string) (*Stream, error) {
	if startLedger > endLedger {
		return nil, &InvalidRangeError{Start: startLedger, End: endLedger}
	}

	accounts := filter.NewAccountSet(accountIDs)
	req := wire.NewRequest(startLedger, endLedger, accounts.Slice())

	// Queue behind any stream already in flight
	c.reqMu.Lock()

	streamCtx, cancel := context.WithCancel(ctx)
	ts, err := c.tr.Open(streamCtx, req.Encode())
	if err != nil {
		cancel()
		c.reqMu.Unlock()
		c.log.Error("Failed to open event stream", zap.Error(err))
		return nil, mapOpenError(err)
	}

	c.log.Info("Event stream started",
		zap.Uint32("start_ledger", startLedger),
		zap.Uint32("end_ledger", endLedger),
		zap.Int("account_filters", len(accounts.Slice())))

	s := newStream(streamCtx, cancel, ts, accounts, c.cfg, c.log, c.reqMu.Unlock)
	go s.run()
	return s, nil
}

// Close releases the underlying connection. In-flight streams fail with a
// connection error.
func (c *EventClient) Close() error {
	c.log.Debug("Closing event client", zap.String("server", c.addr))
	return c.tr.Close()
}
