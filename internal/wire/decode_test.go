package wire

import (
	"errors"
	"testing"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

func testTransferEvent() *TokenTransferEvent {
	opIdx := uint32(2)
	return &TokenTransferEvent{
		Meta: EventMeta{
			LedgerSequence:   417295,
			ClosedAt:         time.Unix(1714000000, 0).UTC(),
			TxHash:           "ab34cd",
			TransactionIndex: 7,
			OperationIndex:   &opIdx,
		},
		Type:   EventTypeTransfer,
		From:   "GAAAA",
		To:     "GBBBB",
		Amount: "123.4567890",
		Asset:  Asset{Code: "USDC", Issuer: "GISSUER"},
	}
}

func TestDecodeEvent_TransferRoundTrip(t *testing.T) {
	ev := testTransferEvent()

	decoded, err := DecodeEvent(EncodeEvent(ev))
	if err != nil {
		t.Fatalf("Failed to decode event: %v", err)
	}

	if decoded.Type != EventTypeTransfer {
		t.Errorf("Type does not match: got %v, want %v", decoded.Type, EventTypeTransfer)
	}
	if decoded.Meta.LedgerSequence != ev.Meta.LedgerSequence {
		t.Errorf("LedgerSequence does not match: got %d, want %d",
			decoded.Meta.LedgerSequence, ev.Meta.LedgerSequence)
	}
	if !decoded.Meta.ClosedAt.Equal(ev.Meta.ClosedAt) {
		t.Errorf("ClosedAt does not match: got %v, want %v", decoded.Meta.ClosedAt, ev.Meta.ClosedAt)
	}
	if decoded.Meta.TxHash != ev.Meta.TxHash {
		t.Errorf("TxHash does not match: got %s, want %s", decoded.Meta.TxHash, ev.Meta.TxHash)
	}
	if decoded.Meta.OperationIndex == nil || *decoded.Meta.OperationIndex != 2 {
		t.Errorf("OperationIndex does not match: got %v, want 2", decoded.Meta.OperationIndex)
	}
	if decoded.From != ev.From || decoded.To != ev.To {
		t.Errorf("Endpoints do not match: got %s->%s, want %s->%s",
			decoded.From, decoded.To, ev.From, ev.To)
	}
	if decoded.Amount != ev.Amount {
		t.Errorf("Amount does not match: got %s, want %s", decoded.Amount, ev.Amount)
	}
	if decoded.Asset.Native || decoded.Asset.Code != "USDC" || decoded.Asset.Issuer != "GISSUER" {
		t.Errorf("Asset does not match: got %+v", decoded.Asset)
	}
}

func TestDecodeEvent_MintCreditsDestination(t *testing.T) {
	ev := &TokenTransferEvent{
		Meta:   EventMeta{LedgerSequence: 10, TxHash: "tx"},
		Type:   EventTypeMint,
		To:     "GDEST",
		Amount: "50",
		Asset:  Asset{Native: true},
	}

	decoded, err := DecodeEvent(EncodeEvent(ev))
	if err != nil {
		t.Fatalf("Failed to decode mint: %v", err)
	}

	if decoded.Type != EventTypeMint {
		t.Errorf("Type does not match: got %v, want %v", decoded.Type, EventTypeMint)
	}
	if decoded.To != "GDEST" || decoded.From != "" {
		t.Errorf("Mint endpoints wrong: from=%q to=%q", decoded.From, decoded.To)
	}
	if !decoded.Asset.Native {
		t.Errorf("Expected native asset, got %+v", decoded.Asset)
	}
}

func TestDecodeEvent_SingleEndedDebitsSource(t *testing.T) {
	for _, typ := range []EventType{EventTypeBurn, EventTypeClawback, EventTypeFee} {
		ev := &TokenTransferEvent{
			Meta:   EventMeta{LedgerSequence: 11, TxHash: "tx"},
			Type:   typ,
			From:   "GSRC",
			Amount: "9",
			Asset:  Asset{Native: true},
		}

		decoded, err := DecodeEvent(EncodeEvent(ev))
		if err != nil {
			t.Fatalf("Failed to decode %v: %v", typ, err)
		}
		if decoded.Type != typ {
			t.Errorf("Type does not match: got %v, want %v", decoded.Type, typ)
		}
		if decoded.From != "GSRC" || decoded.To != "" {
			t.Errorf("%v endpoints wrong: from=%q to=%q", typ, decoded.From, decoded.To)
		}
	}
}

func TestDecodeEvent_SkipsUnknownFields(t *testing.T) {
	b := EncodeEvent(testTransferEvent())

	// Append a field number the decoder has never heard of
	b = protowire.AppendTag(b, 99, protowire.BytesType)
	b = protowire.AppendString(b, "future extension")

	decoded, err := DecodeEvent(b)
	if err != nil {
		t.Fatalf("Decoding with unknown field failed: %v", err)
	}
	if decoded.From != "GAAAA" {
		t.Errorf("Known fields lost while skipping unknown field: %+v", decoded)
	}
}

func TestDecodeEvent_NoMovementIsMalformed(t *testing.T) {
	// Meta only, no transfer/mint/burn/clawback/fee
	var b []byte
	meta := encodeMeta(&EventMeta{LedgerSequence: 5, TxHash: "tx"})
	b = protowire.AppendTag(b, evFieldMeta, protowire.BytesType)
	b = protowire.AppendBytes(b, meta)

	_, err := DecodeEvent(b)
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("Expected ErrMalformed for event without movement, got %v", err)
	}
}

func TestDecodeEvent_TruncatedIsMalformed(t *testing.T) {
	b := EncodeEvent(testTransferEvent())

	_, err := DecodeEvent(b[:len(b)-3])
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("Expected ErrMalformed for truncated event, got %v", err)
	}
}

func TestDecodeEvent_OperationIndexAbsent(t *testing.T) {
	ev := &TokenTransferEvent{
		Meta:   EventMeta{LedgerSequence: 1, TxHash: "tx"},
		Type:   EventTypeBurn,
		From:   "GSRC",
		Amount: "1",
		Asset:  Asset{Native: true},
	}

	decoded, err := DecodeEvent(EncodeEvent(ev))
	if err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if decoded.Meta.OperationIndex != nil {
		t.Errorf("Expected absent operation index, got %v", *decoded.Meta.OperationIndex)
	}
}
