package wire

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformed is wrapped by every decode failure in this package, so
// callers can classify wire-level corruption with errors.Is.
var ErrMalformed = errors.New("malformed wire data")

// GetEventsRequest field numbers, per proto/event_service/event_service.proto
const (
	reqFieldStartLedger = 1
	reqFieldEndLedger   = 2
	reqFieldAccountIDs  = 3
)

// Request is the validated, encodable form of one event query.
// AccountIDs is deduplicated and order-preserving so the encoding is
// deterministic for a given input.
type Request struct {
	StartLedger uint32
	EndLedger   uint32
	AccountIDs  []string
}

// NewRequest builds a request from caller input. Range validation happens
// in the client before this is reached; NewRequest only normalizes the
// account list.
func NewRequest(startLedger, endLedger uint32, accountIDs []string) *Request {
	return &Request{
		StartLedger: startLedger,
		EndLedger:   endLedger,
		AccountIDs:  dedupe(accountIDs),
	}
}

// dedupe removes duplicate account IDs, case-sensitively, keeping first
// occurrence order
func dedupe(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Encode serializes the request into protobuf wire format
func (r *Request) Encode() []byte {
	var b []byte
	if r.StartLedger != 0 {
		b = protowire.AppendTag(b, reqFieldStartLedger, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(r.StartLedger))
	}
	if r.EndLedger != 0 {
		b = protowire.AppendTag(b, reqFieldEndLedger, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(r.EndLedger))
	}
	for _, id := range r.AccountIDs {
		b = protowire.AppendTag(b, reqFieldAccountIDs, protowire.BytesType)
		b = protowire.AppendString(b, id)
	}
	return b
}

// DecodeRequest parses an encoded GetEventsRequest. The client never needs
// this; stub servers in tests and tooling do.
func DecodeRequest(b []byte) (*Request, error) {
	req := &Request{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("request tag: %w", ErrMalformed)
		}
		b = b[n:]

		switch {
		case num == reqFieldStartLedger && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("start_ledger: %w", ErrMalformed)
			}
			req.StartLedger = uint32(v)
			b = b[n:]
		case num == reqFieldEndLedger && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("end_ledger: %w", ErrMalformed)
			}
			req.EndLedger = uint32(v)
			b = b[n:]
		case num == reqFieldAccountIDs && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, fmt.Errorf("account_ids: %w", ErrMalformed)
			}
			req.AccountIDs = append(req.AccountIDs, v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("request field %d: %w", num, ErrMalformed)
			}
			b = b[n:]
		}
	}
	return req, nil
}
