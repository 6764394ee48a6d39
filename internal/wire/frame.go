package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Frames follow the gRPC length-prefixed layout: one flag byte, a 4-byte
// big-endian body length, then the body. The trailer flag marks the final
// frame of a stream, whose body carries the status block instead of an
// event message.
const (
	FrameHeaderLen = 5

	frameFlagCompressed = 0x01
	frameFlagTrailer    = 0x80
)

// FrameKind distinguishes event-bearing frames from the stream trailer
type FrameKind uint8

const (
	FrameData FrameKind = iota
	FrameTrailer
)

// Frame is one assembled unit of the response stream
type Frame struct {
	Kind FrameKind
	Body []byte
}

// scanState tracks the assembler through
// awaiting-header -> awaiting-body -> (awaiting-header | closed | errored)
type scanState uint8

const (
	stateAwaitingHeader scanState = iota
	stateAwaitingBody
	stateClosed
	stateErrored
)

// FrameScanner assembles frames from arbitrary byte chunks. It buffers at
// most one frame's header and body at a time; feeding it a whole response
// never makes it hold more than the current frame. A scanner is not safe
// for concurrent use.
type FrameScanner struct {
	maxFrame uint32

	state   scanState
	pending []byte // unconsumed input
	need    int    // body bytes still required in stateAwaitingBody
	trailer bool   // current frame is the trailer
	err     error
}

// NewFrameScanner creates a scanner that rejects frames whose declared
// body length exceeds maxFrame. Zero means no limit.
func NewFrameScanner(maxFrame uint32) *FrameScanner {
	return &FrameScanner{maxFrame: maxFrame}
}

// Feed appends a chunk of raw input. Feeding after the trailer is only an
// error once Next observes the leftover bytes, mirroring how a transport
// notices junk trailing a closed stream.
func (s *FrameScanner) Feed(p []byte) {
	if len(p) == 0 {
		return
	}
	s.pending = append(s.pending, p...)
}

// Next returns the next completed frame. It returns (nil, nil) when more
// input is needed, io.EOF after the trailer frame has been yielded, and a
// terminal error once the stream is corrupt. Frames already returned stay
// valid after an error.
func (s *FrameScanner) Next() (*Frame, error) {
	switch s.state {
	case stateErrored:
		return nil, s.err
	case stateClosed:
		if len(s.pending) > 0 {
			return nil, s.fail(fmt.Errorf("%d bytes after trailer frame: %w", len(s.pending), ErrMalformed))
		}
		return nil, io.EOF
	}

	if s.state == stateAwaitingHeader {
		if len(s.pending) < FrameHeaderLen {
			return nil, nil
		}
		flags := s.pending[0]
		length := binary.BigEndian.Uint32(s.pending[1:FrameHeaderLen])

		if flags&frameFlagCompressed != 0 {
			return nil, s.fail(fmt.Errorf("compressed frames not supported: %w", ErrMalformed))
		}
		if flags&^(frameFlagCompressed|frameFlagTrailer) != 0 {
			return nil, s.fail(fmt.Errorf("unknown frame flags 0x%02x: %w", flags, ErrMalformed))
		}
		if s.maxFrame != 0 && length > s.maxFrame {
			return nil, s.fail(fmt.Errorf("frame of %d bytes exceeds limit %d: %w", length, s.maxFrame, ErrMalformed))
		}

		s.trailer = flags&frameFlagTrailer != 0
		s.need = int(length)
		s.pending = s.pending[FrameHeaderLen:]
		s.state = stateAwaitingBody
	}

	if len(s.pending) < s.need {
		return nil, nil
	}

	body := make([]byte, s.need)
	copy(body, s.pending[:s.need])
	s.pending = s.pending[s.need:]
	s.need = 0

	frame := &Frame{Kind: FrameData, Body: body}
	if s.trailer {
		frame.Kind = FrameTrailer
		s.state = stateClosed
	} else {
		s.state = stateAwaitingHeader
	}
	return frame, nil
}

// Finish signals end of input. A clean stream ends exactly at the trailer;
// anything else is a truncation.
func (s *FrameScanner) Finish() error {
	switch s.state {
	case stateErrored:
		return s.err
	case stateClosed:
		if len(s.pending) > 0 {
			return s.fail(fmt.Errorf("%d bytes after trailer frame: %w", len(s.pending), ErrMalformed))
		}
		return nil
	case stateAwaitingBody:
		return s.fail(fmt.Errorf("stream truncated mid-frame (%d body bytes missing): %w", s.need-len(s.pending), ErrMalformed))
	default:
		if len(s.pending) > 0 {
			return s.fail(fmt.Errorf("stream truncated mid-header: %w", ErrMalformed))
		}
		// Ended without a trailer: the transport layer decides whether
		// that is a clean close or a drop.
		return nil
	}
}

func (s *FrameScanner) fail(err error) error {
	s.state = stateErrored
	s.err = err
	return err
}

// AppendFrame writes a data frame for body onto b. Stub servers and the
// grpc-web transport's request path use this.
func AppendFrame(b, body []byte) []byte {
	b = append(b, 0)
	b = binary.BigEndian.AppendUint32(b, uint32(len(body)))
	return append(b, body...)
}

// AppendTrailerFrame writes a trailer frame carrying the given status block
func AppendTrailerFrame(b, body []byte) []byte {
	b = append(b, frameFlagTrailer)
	b = binary.BigEndian.AppendUint32(b, uint32(len(body)))
	return append(b, body...)
}
