package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/withobsrvr/ttp-consumer/internal/wire"
)

// grpcWebServer runs an httptest server whose handler writes whatever the
// test scripts onto the response body
func grpcWebServer(t *testing.T, handler http.HandlerFunc) (*WebTransport, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)

	tr, err := NewWeb(srv.URL, nil, 0)
	if err != nil {
		srv.Close()
		t.Fatalf("Failed to create web transport: %v", err)
	}
	return tr, srv.Close
}

func okTrailer() []byte {
	return wire.AppendTrailerFrame(nil, []byte("grpc-status: 0\r\n"))
}

func TestWebTransport_StreamsFramesToTrailer(t *testing.T) {
	tr, cleanup := grpcWebServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", grpcWebContentType)

		flusher := w.(http.Flusher)
		w.Write(wire.AppendFrame(nil, []byte("event-1")))
		flusher.Flush()
		w.Write(wire.AppendFrame(nil, []byte("event-2")))
		flusher.Flush()
		w.Write(okTrailer())
	})
	defer cleanup()

	stream, err := tr.Open(context.Background(), []byte("request"))
	if err != nil {
		t.Fatalf("Failed to open stream: %v", err)
	}
	defer stream.Close()

	for i, want := range []string{"event-1", "event-2"} {
		msg, err := stream.Recv()
		if err != nil {
			t.Fatalf("Recv %d failed: %v", i, err)
		}
		if string(msg) != want {
			t.Errorf("Message %d does not match: got %q, want %q", i, msg, want)
		}
	}

	if _, err := stream.Recv(); err != io.EOF {
		t.Errorf("Expected io.EOF after trailer, got %v", err)
	}
	// Recv after completion stays io.EOF
	if _, err := stream.Recv(); err != io.EOF {
		t.Errorf("Expected io.EOF on repeated Recv, got %v", err)
	}
}

func TestWebTransport_SendsFramedRequest(t *testing.T) {
	var gotPath, gotContentType string
	var gotBody []byte

	tr, cleanup := grpcWebServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)

		w.Header().Set("Content-Type", grpcWebContentType)
		w.Write(okTrailer())
	})
	defer cleanup()

	request := wire.NewRequest(100, 200, []string{"GA"}).Encode()
	stream, err := tr.Open(context.Background(), request)
	if err != nil {
		t.Fatalf("Failed to open stream: %v", err)
	}
	defer stream.Close()
	stream.Recv()

	if gotPath != EventsMethod {
		t.Errorf("Request path does not match: got %q, want %q", gotPath, EventsMethod)
	}
	if gotContentType != grpcWebContentType {
		t.Errorf("Content type does not match: got %q", gotContentType)
	}

	// The body must be exactly one data frame wrapping the request
	scanner := wire.NewFrameScanner(0)
	scanner.Feed(gotBody)
	frame, err := scanner.Next()
	if err != nil || frame == nil || frame.Kind != wire.FrameData {
		t.Fatalf("Request body is not a single data frame: frame=%v err=%v", frame, err)
	}

	decoded, err := wire.DecodeRequest(frame.Body)
	if err != nil {
		t.Fatalf("Failed to decode request body: %v", err)
	}
	if decoded.StartLedger != 100 || decoded.EndLedger != 200 {
		t.Errorf("Request range does not match: got %d..%d", decoded.StartLedger, decoded.EndLedger)
	}
}

func TestWebTransport_ErrorStatusInTrailer(t *testing.T) {
	tr, cleanup := grpcWebServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", grpcWebContentType)
		w.Write(wire.AppendFrame(nil, []byte("event-1")))
		w.Write(wire.AppendTrailerFrame(nil, []byte("grpc-status: 13\r\ngrpc-message: ledger not found\r\n")))
	})
	defer cleanup()

	stream, err := tr.Open(context.Background(), nil)
	if err != nil {
		t.Fatalf("Failed to open stream: %v", err)
	}
	defer stream.Close()

	if _, err := stream.Recv(); err != nil {
		t.Fatalf("Recv before trailer failed: %v", err)
	}

	_, err = stream.Recv()
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("Expected StatusError, got %v", err)
	}
	if se.Code != 13 || se.Message != "ledger not found" {
		t.Errorf("Status not carried: got code=%d msg=%q", se.Code, se.Message)
	}
}

func TestWebTransport_TrailersOnlyResponse(t *testing.T) {
	tr, cleanup := grpcWebServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", grpcWebContentType)
		w.Header().Set("Grpc-Status", "7")
		w.Header().Set("Grpc-Message", "permission%20denied")
	})
	defer cleanup()

	_, err := tr.Open(context.Background(), nil)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("Expected StatusError from trailers-only response, got %v", err)
	}
	if se.Code != 7 || se.Message != "permission denied" {
		t.Errorf("Status not carried: got code=%d msg=%q", se.Code, se.Message)
	}
}

func TestWebTransport_NonOKHTTPStatus(t *testing.T) {
	tr, cleanup := grpcWebServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	defer cleanup()

	if _, err := tr.Open(context.Background(), nil); err == nil {
		t.Errorf("Expected error for HTTP 502, got nil")
	}
}

func TestWebTransport_TruncatedBody(t *testing.T) {
	tr, cleanup := grpcWebServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", grpcWebContentType)
		// Declare 100 body bytes but deliver only a few
		frame := wire.AppendFrame(nil, make([]byte, 100))
		w.Write(frame[:20])
	})
	defer cleanup()

	stream, err := tr.Open(context.Background(), nil)
	if err != nil {
		t.Fatalf("Failed to open stream: %v", err)
	}
	defer stream.Close()

	_, err = stream.Recv()
	if !errors.Is(err, wire.ErrMalformed) {
		t.Errorf("Expected ErrMalformed for truncated frame, got %v", err)
	}
}

func TestWebTransport_MissingTrailerIsDroppedConnection(t *testing.T) {
	tr, cleanup := grpcWebServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", grpcWebContentType)
		// Complete frame, then the server goes away without a trailer
		w.Write(wire.AppendFrame(nil, []byte("event-1")))
	})
	defer cleanup()

	stream, err := tr.Open(context.Background(), nil)
	if err != nil {
		t.Fatalf("Failed to open stream: %v", err)
	}
	defer stream.Close()

	if _, err := stream.Recv(); err != nil {
		t.Fatalf("Recv of complete frame failed: %v", err)
	}

	_, err = stream.Recv()
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("Expected ErrUnexpectedEOF for missing trailer, got %v", err)
	}
}

func TestWebTransport_MalformedTrailerBlock(t *testing.T) {
	tr, cleanup := grpcWebServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", grpcWebContentType)
		w.Write(wire.AppendTrailerFrame(nil, []byte("not a header block")))
	})
	defer cleanup()

	stream, err := tr.Open(context.Background(), nil)
	if err != nil {
		t.Fatalf("Failed to open stream: %v", err)
	}
	defer stream.Close()

	_, err = stream.Recv()
	if !errors.Is(err, wire.ErrMalformed) {
		t.Errorf("Expected ErrMalformed for trailer without grpc-status, got %v", err)
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	cases := []struct {
		addr    string
		useTLS  bool
		want    string
		wantErr bool
	}{
		{addr: "localhost:8080", want: "http://localhost:8080"},
		{addr: "localhost:8080", useTLS: true, want: "https://localhost:8080"},
		{addr: "http://example.com", want: "http://example.com"},
		{addr: "https://example.com/", want: "https://example.com"},
		{addr: "grpc://example.com", wantErr: true},
		{addr: "://", wantErr: true},
	}

	for _, tc := range cases {
		got, err := normalizeBaseURL(tc.addr, tc.useTLS)
		if tc.wantErr {
			if err == nil {
				t.Errorf("normalizeBaseURL(%q): expected error, got %q", tc.addr, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("normalizeBaseURL(%q) failed: %v", tc.addr, err)
			continue
		}
		if got != tc.want {
			t.Errorf("normalizeBaseURL(%q): got %q, want %q", tc.addr, got, tc.want)
		}
	}
}
