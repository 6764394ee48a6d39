package filter

import (
	"reflect"
	"testing"

	"github.com/withobsrvr/ttp-consumer/internal/wire"
)

func transferEvent(from, to string) *wire.TokenTransferEvent {
	return &wire.TokenTransferEvent{
		Meta:   wire.EventMeta{LedgerSequence: 1, TxHash: "tx"},
		Type:   wire.EventTypeTransfer,
		From:   from,
		To:     to,
		Amount: "1",
		Asset:  wire.Asset{Native: true},
	}
}

func TestAccountSet_EmptyMatchesEverything(t *testing.T) {
	s := NewAccountSet(nil)

	if !s.Empty() {
		t.Errorf("Expected empty set")
	}
	if !s.Matches(transferEvent("GA", "GB")) {
		t.Errorf("Empty set should match every event")
	}
}

func TestAccountSet_MatchesEitherEndpoint(t *testing.T) {
	s := NewAccountSet([]string{"GX"})

	if !s.Matches(transferEvent("GX", "GB")) {
		t.Errorf("Expected match on source account")
	}
	if !s.Matches(transferEvent("GA", "GX")) {
		t.Errorf("Expected match on destination account")
	}
	if s.Matches(transferEvent("GA", "GB")) {
		t.Errorf("Expected no match when neither endpoint is in the set")
	}
}

func TestAccountSet_SingleEndedEvents(t *testing.T) {
	s := NewAccountSet([]string{"GX"})

	mint := &wire.TokenTransferEvent{Type: wire.EventTypeMint, To: "GX", Amount: "1"}
	if !s.Matches(mint) {
		t.Errorf("Expected mint to match on destination")
	}

	burn := &wire.TokenTransferEvent{Type: wire.EventTypeBurn, From: "GY", Amount: "1"}
	if s.Matches(burn) {
		t.Errorf("Expected burn from another account not to match")
	}
}

func TestAccountSet_CaseSensitive(t *testing.T) {
	s := NewAccountSet([]string{"GABC"})

	if s.Contains("gabc") {
		t.Errorf("Membership must be case-sensitive")
	}
}

func TestAccountSet_DedupePreservesOrder(t *testing.T) {
	s := NewAccountSet([]string{"GC", "GA", "GC", "GB", "GA"})

	want := []string{"GC", "GA", "GB"}
	if !reflect.DeepEqual(s.Slice(), want) {
		t.Errorf("Set order does not match: got %v, want %v", s.Slice(), want)
	}
}

func TestAccountSet_SkipsEmptyIDs(t *testing.T) {
	s := NewAccountSet([]string{"", "GA", ""})

	if !reflect.DeepEqual(s.Slice(), []string{"GA"}) {
		t.Errorf("Expected empty IDs to be dropped, got %v", s.Slice())
	}
	if s.Contains("") {
		t.Errorf("Empty string must never be a member")
	}
}

func TestAccountSet_Fingerprint(t *testing.T) {
	if got := NewAccountSet(nil).Fingerprint(); got != "*" {
		t.Errorf("Empty set fingerprint: got %q, want %q", got, "*")
	}
	if got := NewAccountSet([]string{"GA", "GB"}).Fingerprint(); got != "GA,GB" {
		t.Errorf("Fingerprint does not match: got %q, want %q", got, "GA,GB")
	}

	// Same members, same first-occurrence order, same fingerprint
	a := NewAccountSet([]string{"GA", "GB", "GA"}).Fingerprint()
	b := NewAccountSet([]string{"GA", "GB"}).Fingerprint()
	if a != b {
		t.Errorf("Fingerprints differ for equal sets: %q vs %q", a, b)
	}
}
