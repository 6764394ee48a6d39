package transport

import (
	"fmt"
	"io"
	"strings"

	"github.com/withobsrvr/ttp-consumer/internal/wire"
)

// webStream pulls grpc-web frames out of an HTTP response body. The body
// arrives in arbitrary chunks; the frame scanner reassembles them and the
// trailer frame closes the stream with the remote status.
type webStream struct {
	body    io.ReadCloser
	scanner *wire.FrameScanner
	buf     []byte
	done    bool
	err     error
}

func newWebStream(body io.ReadCloser, maxFrame uint32) *webStream {
	return &webStream{
		body:    body,
		scanner: wire.NewFrameScanner(maxFrame),
		buf:     make([]byte, 32*1024),
	}
}

// Recv returns the next encoded event message. On the trailer frame it
// closes out with io.EOF (status 0) or a *StatusError.
func (s *webStream) Recv() ([]byte, error) {
	if s.done {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}

	for {
		frame, err := s.scanner.Next()
		if err != nil {
			if err == io.EOF {
				return nil, s.finish(nil)
			}
			return nil, s.finish(err)
		}
		if frame != nil {
			if frame.Kind == wire.FrameData {
				return frame.Body, nil
			}
			return nil, s.finish(trailerStatus(frame.Body))
		}

		// Scanner needs more input
		n, rerr := s.body.Read(s.buf)
		if n > 0 {
			s.scanner.Feed(s.buf[:n])
		}
		if rerr == io.EOF {
			if err := s.scanner.Finish(); err != nil {
				return nil, s.finish(err)
			}
			// Body ended without a trailer frame: the server went away
			// mid-stream rather than closing the RPC.
			if frame, err := s.scanner.Next(); err == nil && frame != nil {
				if frame.Kind == wire.FrameData {
					return frame.Body, nil
				}
				return nil, s.finish(trailerStatus(frame.Body))
			} else if err == io.EOF {
				return nil, s.finish(nil)
			}
			return nil, s.finish(fmt.Errorf("stream closed without trailer: %w", io.ErrUnexpectedEOF))
		}
		if rerr != nil {
			return nil, s.finish(fmt.Errorf("event stream read failed: %w", rerr))
		}
	}
}

// finish records the terminal condition and releases the body. A nil err
// means clean completion.
func (s *webStream) finish(err error) error {
	s.done = true
	s.err = err
	s.body.Close()
	if err == nil {
		return io.EOF
	}
	return err
}

// Close abandons the stream. Closing the body unblocks any in-flight read
// and lets the HTTP layer drop the connection instead of draining it.
func (s *webStream) Close() error {
	s.done = true
	if s.err == nil {
		s.err = io.EOF
	}
	return s.body.Close()
}

// trailerStatus parses the trailer frame's header block. A status of 0 is
// clean completion (nil); anything else becomes a *StatusError.
func trailerStatus(body []byte) error {
	code := ""
	message := ""
	for _, line := range strings.Split(string(body), "\r\n") {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "grpc-status":
			code = strings.TrimSpace(value)
		case "grpc-message":
			message = strings.TrimSpace(value)
		}
	}

	if code == "" {
		return fmt.Errorf("trailer frame missing grpc-status: %w", wire.ErrMalformed)
	}
	if code == "0" {
		return nil
	}
	return statusFromStrings(code, message)
}
