// Package transport carries encoded request and response messages between
// the client and the event service. Two implementations exist: native gRPC
// for ordinary processes and grpc-web over plain HTTP for browser (js/wasm)
// hosts. Both move opaque message bytes; encoding and decoding stay in the
// wire package.
package transport

import (
	"context"
	"fmt"
)

// EventsMethod is the full gRPC method name of the event stream
const EventsMethod = "/event_service.EventService/GetTTPEvents"

// Stream is one in-flight server stream of encoded event messages.
// Recv returns io.EOF on clean completion and *StatusError when the remote
// service reports an explicit failure status.
type Stream interface {
	Recv() ([]byte, error)
	Close() error
}

// Transport opens event streams against a fixed server address. A transport
// may keep a connection alive between requests; Close releases it.
type Transport interface {
	Open(ctx context.Context, request []byte) (Stream, error)
	Close() error
}

// StatusError is a failure status reported by the remote service, as
// opposed to a transport-level failure
type StatusError struct {
	Code    uint32
	Message string
}

// Error implements the error interface
func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.Code)
	}
	return fmt.Sprintf("server returned status %d: %s", e.Code, e.Message)
}
