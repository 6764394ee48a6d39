package wire

import (
	"fmt"
	"time"
)

// EventType identifies which movement a TokenTransferEvent carries
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeTransfer
	EventTypeMint
	EventTypeBurn
	EventTypeClawback
	EventTypeFee
)

// String returns the lowercase name of the event type
func (t EventType) String() string {
	switch t {
	case EventTypeTransfer:
		return "transfer"
	case EventTypeMint:
		return "mint"
	case EventTypeBurn:
		return "burn"
	case EventTypeClawback:
		return "clawback"
	case EventTypeFee:
		return "fee"
	default:
		return "unknown"
	}
}

// Asset describes the asset a movement concerns: either the native asset
// or an issued asset identified by code and issuer
type Asset struct {
	Native bool   `json:"native" yaml:"native"`
	Code   string `json:"code,omitempty" yaml:"code,omitempty"`
	Issuer string `json:"issuer,omitempty" yaml:"issuer,omitempty"`
}

// String renders the asset in code:issuer form, or "native"
func (a Asset) String() string {
	if a.Native {
		return "native"
	}
	return fmt.Sprintf("%s:%s", a.Code, a.Issuer)
}

// EventMeta carries the ledger placement of an event
type EventMeta struct {
	LedgerSequence   uint32    `json:"ledger_sequence" yaml:"ledger_sequence"`
	ClosedAt         time.Time `json:"closed_at,omitempty" yaml:"closed_at,omitempty"`
	TxHash           string    `json:"tx_hash" yaml:"tx_hash"`
	TransactionIndex uint32    `json:"transaction_index" yaml:"transaction_index"`
	OperationIndex   *uint32   `json:"operation_index,omitempty" yaml:"operation_index,omitempty"`
	ContractAddress  string    `json:"contract_address,omitempty" yaml:"contract_address,omitempty"`
}

// MarshalJSON renders the type by name rather than ordinal
func (t EventType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// MarshalYAML renders the type by name rather than ordinal
func (t EventType) MarshalYAML() (interface{}, error) {
	return t.String(), nil
}

// TokenTransferEvent is one decoded event record. Immutable once decoded;
// ownership passes to the consumer when it is yielded. From is empty for
// mints, To is empty for burns, clawbacks and fees.
type TokenTransferEvent struct {
	Meta   EventMeta `json:"meta" yaml:"meta"`
	Type   EventType `json:"type" yaml:"type"`
	From   string    `json:"from,omitempty" yaml:"from,omitempty"`
	To     string    `json:"to,omitempty" yaml:"to,omitempty"`
	Amount string    `json:"amount" yaml:"amount"`
	Asset  Asset     `json:"asset" yaml:"asset"`
}
