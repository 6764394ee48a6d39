package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"

	"github.com/withobsrvr/ttp-consumer/internal/config"
	"github.com/withobsrvr/ttp-consumer/internal/utils/logger"
)

// GRPCTransport reaches the event service over a native gRPC connection.
// The connection is dialed lazily on the first Open and reused afterwards.
type GRPCTransport struct {
	addr        string
	tls         *config.TLSConfig
	dialTimeout time.Duration
	log         *zap.Logger

	mu   sync.Mutex
	conn *grpc.ClientConn
}

// NewGRPC creates a transport for the given server address
func NewGRPC(addr string, tlsCfg *config.TLSConfig, dialTimeout time.Duration) *GRPCTransport {
	if tlsCfg == nil {
		tlsCfg = config.DefaultTLSConfig()
	}
	return &GRPCTransport{
		addr:        addr,
		tls:         tlsCfg,
		dialTimeout: dialTimeout,
		log:         logger.Named("transport.grpc"),
	}
}

// eventsStreamDesc describes the server-streaming shape of GetTTPEvents.
// Message payloads pass through rawCodec untouched; the wire package owns
// their encoding.
var eventsStreamDesc = &grpc.StreamDesc{
	StreamName:    "GetTTPEvents",
	ServerStreams: true,
}

// connect dials the server if no connection exists yet
func (t *GRPCTransport) connect(ctx context.Context) (*grpc.ClientConn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return t.conn, nil
	}

	creds, err := t.tls.LoadClientCredentials()
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS credentials: %w", err)
	}

	dialCtx := ctx
	if t.dialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, t.dialTimeout)
		defer cancel()
	}

	t.log.Info("Dialing event service", zap.String("address", t.addr))
	conn, err := grpc.DialContext(dialCtx, t.addr, creds, grpc.WithBlock(),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                30 * time.Second,
			Timeout:             10 * time.Second,
			PermitWithoutStream: true,
		}))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to event service at %s: %w", t.addr, err)
	}

	t.conn = conn
	return conn, nil
}

// Open starts the GetTTPEvents stream with the given encoded request
func (t *GRPCTransport) Open(ctx context.Context, request []byte) (Stream, error) {
	conn, err := t.connect(ctx)
	if err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	ctx = metadata.AppendToOutgoingContext(ctx, "x-request-id", requestID)

	cs, err := conn.NewStream(ctx, eventsStreamDesc, EventsMethod, grpc.ForceCodec(rawCodec{}))
	if err != nil {
		return nil, fmt.Errorf("failed to open event stream: %w", err)
	}

	if err := cs.SendMsg(request); err != nil {
		return nil, fmt.Errorf("failed to send event request: %w", err)
	}
	if err := cs.CloseSend(); err != nil {
		return nil, fmt.Errorf("failed to half-close event stream: %w", err)
	}

	t.log.Debug("Event stream opened",
		zap.String("request_id", requestID),
		zap.Int("request_bytes", len(request)))

	return &grpcStream{cs: cs}, nil
}

// Close tears down the shared connection
func (t *GRPCTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

type grpcStream struct {
	cs grpc.ClientStream
}

// Recv returns the next raw message. gRPC status errors pass through for
// the client to classify; io.EOF marks clean completion.
func (s *grpcStream) Recv() ([]byte, error) {
	var msg []byte
	if err := s.cs.RecvMsg(&msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Close stops reading. The stream itself is torn down by cancelling the
// context it was opened with; gRPC has no separate client-side close for
// server streams.
func (s *grpcStream) Close() error {
	return nil
}

// rawCodec passes message bytes through unmodified. It reports the proto
// codec name so the wire-level content type stays application/grpc+proto.
type rawCodec struct{}

func (rawCodec) Marshal(v interface{}) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("rawCodec: cannot marshal %T", v)
	}
	return b, nil
}

func (rawCodec) Unmarshal(data []byte, v interface{}) error {
	out, ok := v.(*[]byte)
	if !ok {
		return fmt.Errorf("rawCodec: cannot unmarshal into %T", v)
	}
	*out = data
	return nil
}

func (rawCodec) Name() string {
	return "proto"
}
