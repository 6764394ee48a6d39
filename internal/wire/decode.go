package wire

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// TokenTransferEvent field numbers, per
// proto/ingest/processors/token_transfer/token_transfer_event.proto
const (
	evFieldMeta     = 1
	evFieldTransfer = 2
	evFieldMint     = 3
	evFieldBurn     = 4
	evFieldClawback = 5
	evFieldFee      = 6
)

// EventMeta field numbers
const (
	metaFieldLedgerSequence   = 1
	metaFieldClosedAt         = 2
	metaFieldTxHash           = 3
	metaFieldTransactionIndex = 4
	metaFieldOperationIndex   = 5
	metaFieldContractAddress  = 6
)

// Movement field numbers. Transfer carries both endpoints; the single-ended
// movements (mint, burn, clawback, fee) share one layout.
const (
	transferFieldFrom   = 1
	transferFieldTo     = 2
	transferFieldAmount = 3
	transferFieldAsset  = 4

	singleFieldAccount = 1
	singleFieldAmount  = 2
	singleFieldAsset   = 3
)

// Asset field numbers, per proto/ingest/asset/asset.proto
const (
	assetFieldNative = 1
	assetFieldIssued = 2

	issuedFieldCode   = 1
	issuedFieldIssuer = 2
)

// Timestamp field numbers (google.protobuf.Timestamp)
const (
	tsFieldSeconds = 1
	tsFieldNanos   = 2
)

// DecodeEvent parses one TokenTransferEvent message body. Unknown fields
// are skipped; a body with no movement set is malformed.
func DecodeEvent(b []byte) (*TokenTransferEvent, error) {
	ev := &TokenTransferEvent{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("event tag: %w", ErrMalformed)
		}
		b = b[n:]

		if typ != protowire.BytesType || num < evFieldMeta || num > evFieldFee {
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("event field %d: %w", num, ErrMalformed)
			}
			b = b[n:]
			continue
		}

		body, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, fmt.Errorf("event field %d: %w", num, ErrMalformed)
		}
		b = b[n:]

		switch num {
		case evFieldMeta:
			if err := decodeMeta(body, &ev.Meta); err != nil {
				return nil, err
			}
		case evFieldTransfer:
			ev.Type = EventTypeTransfer
			if err := decodeTransfer(body, ev); err != nil {
				return nil, err
			}
		case evFieldMint, evFieldBurn, evFieldClawback, evFieldFee:
			ev.Type = movementType(num)
			if err := decodeSingleEnded(body, ev); err != nil {
				return nil, err
			}
		}
	}

	if ev.Type == EventTypeUnknown {
		return nil, fmt.Errorf("event carries no movement: %w", ErrMalformed)
	}
	return ev, nil
}

func movementType(num protowire.Number) EventType {
	switch num {
	case evFieldMint:
		return EventTypeMint
	case evFieldBurn:
		return EventTypeBurn
	case evFieldClawback:
		return EventTypeClawback
	default:
		return EventTypeFee
	}
}

func decodeMeta(b []byte, meta *EventMeta) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("meta tag: %w", ErrMalformed)
		}
		b = b[n:]

		switch {
		case num == metaFieldLedgerSequence && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("ledger_sequence: %w", ErrMalformed)
			}
			meta.LedgerSequence = uint32(v)
			b = b[n:]
		case num == metaFieldClosedAt && typ == protowire.BytesType:
			body, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("closed_at: %w", ErrMalformed)
			}
			ts, err := decodeTimestamp(body)
			if err != nil {
				return err
			}
			meta.ClosedAt = ts
			b = b[n:]
		case num == metaFieldTxHash && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return fmt.Errorf("tx_hash: %w", ErrMalformed)
			}
			meta.TxHash = v
			b = b[n:]
		case num == metaFieldTransactionIndex && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("transaction_index: %w", ErrMalformed)
			}
			meta.TransactionIndex = uint32(v)
			b = b[n:]
		case num == metaFieldOperationIndex && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("operation_index: %w", ErrMalformed)
			}
			idx := uint32(v)
			meta.OperationIndex = &idx
			b = b[n:]
		case num == metaFieldContractAddress && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return fmt.Errorf("contract_address: %w", ErrMalformed)
			}
			meta.ContractAddress = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("meta field %d: %w", num, ErrMalformed)
			}
			b = b[n:]
		}
	}
	return nil
}

func decodeTimestamp(b []byte) (time.Time, error) {
	var seconds int64
	var nanos int64
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return time.Time{}, fmt.Errorf("timestamp tag: %w", ErrMalformed)
		}
		b = b[n:]

		if typ == protowire.VarintType && (num == tsFieldSeconds || num == tsFieldNanos) {
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return time.Time{}, fmt.Errorf("timestamp value: %w", ErrMalformed)
			}
			if num == tsFieldSeconds {
				seconds = int64(v)
			} else {
				nanos = int64(v)
			}
			b = b[n:]
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return time.Time{}, fmt.Errorf("timestamp field %d: %w", num, ErrMalformed)
		}
		b = b[n:]
	}
	if seconds == 0 && nanos == 0 {
		return time.Time{}, nil
	}
	return time.Unix(seconds, nanos).UTC(), nil
}

func decodeTransfer(b []byte, ev *TokenTransferEvent) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("transfer tag: %w", ErrMalformed)
		}
		b = b[n:]

		switch {
		case typ == protowire.BytesType && num == transferFieldAsset:
			body, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("transfer asset: %w", ErrMalformed)
			}
			if err := decodeAsset(body, &ev.Asset); err != nil {
				return err
			}
			b = b[n:]
		case typ == protowire.BytesType && num <= transferFieldAmount:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return fmt.Errorf("transfer field %d: %w", num, ErrMalformed)
			}
			switch num {
			case transferFieldFrom:
				ev.From = v
			case transferFieldTo:
				ev.To = v
			case transferFieldAmount:
				ev.Amount = v
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("transfer field %d: %w", num, ErrMalformed)
			}
			b = b[n:]
		}
	}
	return nil
}

// decodeSingleEnded handles mint, burn, clawback and fee, which share the
// account/amount/asset layout. Mint credits an account (To); the others
// debit one (From).
func decodeSingleEnded(b []byte, ev *TokenTransferEvent) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%s tag: %w", ev.Type, ErrMalformed)
		}
		b = b[n:]

		switch {
		case typ == protowire.BytesType && num == singleFieldAsset:
			body, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("%s asset: %w", ev.Type, ErrMalformed)
			}
			if err := decodeAsset(body, &ev.Asset); err != nil {
				return err
			}
			b = b[n:]
		case typ == protowire.BytesType && num <= singleFieldAmount:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return fmt.Errorf("%s field %d: %w", ev.Type, num, ErrMalformed)
			}
			switch num {
			case singleFieldAccount:
				if ev.Type == EventTypeMint {
					ev.To = v
				} else {
					ev.From = v
				}
			case singleFieldAmount:
				ev.Amount = v
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("%s field %d: %w", ev.Type, num, ErrMalformed)
			}
			b = b[n:]
		}
	}
	return nil
}

func decodeAsset(b []byte, asset *Asset) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("asset tag: %w", ErrMalformed)
		}
		b = b[n:]

		switch {
		case num == assetFieldNative && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("asset native: %w", ErrMalformed)
			}
			asset.Native = v != 0
			b = b[n:]
		case num == assetFieldIssued && typ == protowire.BytesType:
			body, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("issued asset: %w", ErrMalformed)
			}
			if err := decodeIssuedAsset(body, asset); err != nil {
				return err
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("asset field %d: %w", num, ErrMalformed)
			}
			b = b[n:]
		}
	}
	return nil
}

func decodeIssuedAsset(b []byte, asset *Asset) error {
	asset.Native = false
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("issued asset tag: %w", ErrMalformed)
		}
		b = b[n:]

		if typ == protowire.BytesType && (num == issuedFieldCode || num == issuedFieldIssuer) {
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return fmt.Errorf("issued asset value: %w", ErrMalformed)
			}
			if num == issuedFieldCode {
				asset.Code = v
			} else {
				asset.Issuer = v
			}
			b = b[n:]
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return fmt.Errorf("issued asset field %d: %w", num, ErrMalformed)
		}
		b = b[n:]
	}
	return nil
}
