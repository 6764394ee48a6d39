package transport

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/withobsrvr/ttp-consumer/internal/config"
	"github.com/withobsrvr/ttp-consumer/internal/utils/logger"
	"github.com/withobsrvr/ttp-consumer/internal/wire"
)

const grpcWebContentType = "application/grpc-web+proto"

// WebTransport reaches the event service with the grpc-web wire protocol
// over plain HTTP. Response frames arrive as arbitrary body chunks and are
// reassembled with the wire frame scanner, so this transport works wherever
// net/http does, including fetch-backed js/wasm builds.
type WebTransport struct {
	baseURL  string
	client   *http.Client
	maxFrame uint32
	log      *zap.Logger
}

// NewWeb creates a grpc-web transport for the given server address. The
// address may be a bare host:port or carry an explicit http/https scheme.
func NewWeb(addr string, tlsCfg *config.TLSConfig, maxFrame uint32) (*WebTransport, error) {
	baseURL, err := normalizeBaseURL(addr, tlsCfg.Enabled())
	if err != nil {
		return nil, err
	}

	client := http.DefaultClient
	if tlsCfg.Enabled() && (tlsCfg.CAFile != "" || tlsCfg.SkipVerify || tlsCfg.Mode == config.TLSModeMutual || tlsCfg.ServerName != "") {
		tc, err := tlsCfg.ClientTLSConfig()
		if err != nil {
			return nil, err
		}
		client = &http.Client{Transport: &http.Transport{TLSClientConfig: tc}}
	}

	return &WebTransport{
		baseURL:  baseURL,
		client:   client,
		maxFrame: maxFrame,
		log:      logger.Named("transport.web"),
	}, nil
}

func normalizeBaseURL(addr string, useTLS bool) (string, error) {
	if !strings.Contains(addr, "://") {
		scheme := "http"
		if useTLS {
			scheme = "https"
		}
		addr = scheme + "://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid server address %q", addr)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q in server address", u.Scheme)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// Open POSTs the framed request and hands back the response body as a
// message stream
func (t *WebTransport) Open(ctx context.Context, request []byte) (Stream, error) {
	body := wire.AppendFrame(nil, request)
	requestID := uuid.NewString()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+EventsMethod, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build event request: %w", err)
	}
	req.Header.Set("Content-Type", grpcWebContentType)
	req.Header.Set("Accept", grpcWebContentType)
	req.Header.Set("X-Grpc-Web", "1")
	req.Header.Set("X-Request-Id", requestID)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach event service: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("event service returned HTTP %d", resp.StatusCode)
	}

	// Trailers-only responses put the status straight into the headers
	if code := resp.Header.Get("Grpc-Status"); code != "" && code != "0" {
		st := statusFromStrings(code, resp.Header.Get("Grpc-Message"))
		resp.Body.Close()
		return nil, st
	}

	t.log.Debug("Event stream opened",
		zap.String("request_id", requestID),
		zap.Int("request_bytes", len(request)))

	return newWebStream(resp.Body, t.maxFrame), nil
}

// Close is a no-op; the HTTP client holds no long-lived resources beyond
// pooled connections
func (t *WebTransport) Close() error {
	return nil
}

func statusFromStrings(code, message string) *StatusError {
	n, err := strconv.ParseUint(code, 10, 32)
	if err != nil {
		n = 2 // Unknown
	}
	if decoded, err := url.PathUnescape(message); err == nil {
		message = decoded
	}
	return &StatusError{Code: uint32(n), Message: message}
}
