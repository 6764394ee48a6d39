package wire

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// EncodeEvent serializes a TokenTransferEvent into protobuf wire format.
// The client never sends events; stub servers in tests and local tooling
// use this to stay in lockstep with DecodeEvent.
func EncodeEvent(ev *TokenTransferEvent) []byte {
	var b []byte

	meta := encodeMeta(&ev.Meta)
	b = protowire.AppendTag(b, evFieldMeta, protowire.BytesType)
	b = protowire.AppendBytes(b, meta)

	switch ev.Type {
	case EventTypeTransfer:
		var m []byte
		m = appendStringField(m, transferFieldFrom, ev.From)
		m = appendStringField(m, transferFieldTo, ev.To)
		m = appendStringField(m, transferFieldAmount, ev.Amount)
		m = appendAsset(m, transferFieldAsset, ev.Asset)
		b = protowire.AppendTag(b, evFieldTransfer, protowire.BytesType)
		b = protowire.AppendBytes(b, m)
	case EventTypeMint, EventTypeBurn, EventTypeClawback, EventTypeFee:
		var m []byte
		if ev.Type == EventTypeMint {
			m = appendStringField(m, singleFieldAccount, ev.To)
		} else {
			m = appendStringField(m, singleFieldAccount, ev.From)
		}
		m = appendStringField(m, singleFieldAmount, ev.Amount)
		m = appendAsset(m, singleFieldAsset, ev.Asset)
		b = protowire.AppendTag(b, movementField(ev.Type), protowire.BytesType)
		b = protowire.AppendBytes(b, m)
	}

	return b
}

func movementField(t EventType) protowire.Number {
	switch t {
	case EventTypeMint:
		return evFieldMint
	case EventTypeBurn:
		return evFieldBurn
	case EventTypeClawback:
		return evFieldClawback
	default:
		return evFieldFee
	}
}

func encodeMeta(meta *EventMeta) []byte {
	var b []byte
	if meta.LedgerSequence != 0 {
		b = protowire.AppendTag(b, metaFieldLedgerSequence, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(meta.LedgerSequence))
	}
	if !meta.ClosedAt.IsZero() {
		var ts []byte
		ts = protowire.AppendTag(ts, tsFieldSeconds, protowire.VarintType)
		ts = protowire.AppendVarint(ts, uint64(meta.ClosedAt.Unix()))
		if nanos := meta.ClosedAt.Nanosecond(); nanos != 0 {
			ts = protowire.AppendTag(ts, tsFieldNanos, protowire.VarintType)
			ts = protowire.AppendVarint(ts, uint64(nanos))
		}
		b = protowire.AppendTag(b, metaFieldClosedAt, protowire.BytesType)
		b = protowire.AppendBytes(b, ts)
	}
	b = appendStringField(b, metaFieldTxHash, meta.TxHash)
	if meta.TransactionIndex != 0 {
		b = protowire.AppendTag(b, metaFieldTransactionIndex, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(meta.TransactionIndex))
	}
	if meta.OperationIndex != nil {
		b = protowire.AppendTag(b, metaFieldOperationIndex, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(*meta.OperationIndex))
	}
	b = appendStringField(b, metaFieldContractAddress, meta.ContractAddress)
	return b
}

func appendStringField(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendAsset(b []byte, num protowire.Number, asset Asset) []byte {
	var a []byte
	if asset.Native {
		a = protowire.AppendTag(a, assetFieldNative, protowire.VarintType)
		a = protowire.AppendVarint(a, 1)
	} else if asset.Code != "" || asset.Issuer != "" {
		var issued []byte
		issued = appendStringField(issued, issuedFieldCode, asset.Code)
		issued = appendStringField(issued, issuedFieldIssuer, asset.Issuer)
		a = protowire.AppendTag(a, assetFieldIssued, protowire.BytesType)
		a = protowire.AppendBytes(a, issued)
	} else {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, a)
}
