package client

import (
	"context"
	"errors"
	"fmt"
	"io"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/withobsrvr/ttp-consumer/internal/transport"
	"github.com/withobsrvr/ttp-consumer/internal/wire"
)

// ErrStreamClosed is returned by Recv after the caller abandoned the
// stream with Close
var ErrStreamClosed = errors.New("event stream closed by caller")

// InvalidAddressError reports a server address the client refuses to use.
// Surfaced synchronously from New, before any network activity.
type InvalidAddressError struct {
	Address string
	Reason  string
}

// Error implements the error interface
func (e *InvalidAddressError) Error() string {
	return fmt.Sprintf("invalid server address %q: %s", e.Address, e.Reason)
}

// InvalidRangeError reports a ledger range whose start exceeds its end.
// Surfaced synchronously from Events, before any network activity.
type InvalidRangeError struct {
	Start uint32
	End   uint32
}

// Error implements the error interface
func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid ledger range: start %d > end %d", e.Start, e.End)
}

// ConnKind is the subvariant of a connection failure
type ConnKind string

const (
	// ConnKindDial covers failures to establish the transport
	ConnKindDial ConnKind = "dial"

	// ConnKindDropped covers a transport lost mid-stream
	ConnKindDropped ConnKind = "dropped"

	// ConnKindTimeout covers a stream with no inbound data for longer
	// than the idle timeout
	ConnKindTimeout ConnKind = "timeout"
)

// ConnectionError reports a transport-level failure. It terminates the
// stream; events yielded before it remain valid.
type ConnectionError struct {
	Kind ConnKind
	Err  error
}

// Error implements the error interface
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error (%s): %v", e.Kind, e.Err)
}

// Unwrap exposes the underlying transport error
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// DecodeError reports a malformed frame or message body. It terminates the
// stream; events yielded before it remain valid.
type DecodeError struct {
	Err error
}

// Error implements the error interface
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error: %v", e.Err)
}

// Unwrap exposes the underlying wire error
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ServerError reports an explicit failure status from the event service
type ServerError struct {
	Code    uint32
	Message string
}

// Error implements the error interface
func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error: code %d", e.Code)
	}
	return fmt.Sprintf("server error: code %d: %s", e.Code, e.Message)
}

// mapOpenError classifies a failure to open the stream
func mapOpenError(err error) error {
	var se *transport.StatusError
	if errors.As(err, &se) {
		return &ServerError{Code: se.Code, Message: se.Message}
	}
	return &ConnectionError{Kind: ConnKindDial, Err: err}
}

// mapStreamError classifies a terminal receive error into the client
// taxonomy. io.EOF passes through as the clean-completion marker. timedOut
// reports that the idle watchdog cancelled the stream, which otherwise
// surfaces as an ordinary cancellation.
func mapStreamError(err error, timedOut bool) error {
	if err == nil || errors.Is(err, io.EOF) {
		return io.EOF
	}
	if timedOut {
		return &ConnectionError{Kind: ConnKindTimeout, Err: err}
	}

	var se *transport.StatusError
	if errors.As(err, &se) {
		return &ServerError{Code: se.Code, Message: se.Message}
	}
	if errors.Is(err, wire.ErrMalformed) {
		return &DecodeError{Err: err}
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return &ConnectionError{Kind: ConnKindDropped, Err: err}
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unavailable, codes.Canceled:
			return &ConnectionError{Kind: ConnKindDropped, Err: err}
		case codes.DeadlineExceeded:
			return &ConnectionError{Kind: ConnKindTimeout, Err: err}
		default:
			return &ServerError{Code: uint32(st.Code()), Message: st.Message()}
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &ConnectionError{Kind: ConnKindTimeout, Err: err}
	}
	return &ConnectionError{Kind: ConnKindDropped, Err: err}
}
