// Package filter evaluates account filters against decoded token transfer
// events. The account set is also sent with the request so the service can
// filter at the source; re-checking here keeps the client correct if the
// server ignores the filter.
package filter

import (
	"strings"

	"github.com/withobsrvr/ttp-consumer/internal/wire"
)

// AccountSet is an order-preserving, deduplicated set of account IDs.
// Membership is case-sensitive exact match. The zero-length set means
// "all accounts".
type AccountSet struct {
	members map[string]struct{}
	ordered []string
}

// NewAccountSet builds a set from caller input, dropping duplicates while
// keeping first-occurrence order
func NewAccountSet(ids []string) *AccountSet {
	s := &AccountSet{
		members: make(map[string]struct{}, len(ids)),
	}
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := s.members[id]; ok {
			continue
		}
		s.members[id] = struct{}{}
		s.ordered = append(s.ordered, id)
	}
	return s
}

// Empty reports whether the set matches every account
func (s *AccountSet) Empty() bool {
	return s == nil || len(s.ordered) == 0
}

// Contains reports membership of a single account ID
func (s *AccountSet) Contains(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.members[id]
	return ok
}

// Slice returns the IDs in insertion order. The caller must not mutate it.
func (s *AccountSet) Slice() []string {
	if s == nil {
		return nil
	}
	return s.ordered
}

// Fingerprint returns a stable identifier for the set, used to key resume
// cursors on (server, filter) pairs
func (s *AccountSet) Fingerprint() string {
	if s.Empty() {
		return "*"
	}
	return strings.Join(s.ordered, ",")
}

// Matches reports whether the event touches any account in the set. An
// empty set passes everything. Events are matched on whichever endpoints
// they carry: transfers have both, mints only a destination, the rest only
// a source.
func (s *AccountSet) Matches(ev *wire.TokenTransferEvent) bool {
	if s.Empty() {
		return true
	}
	if ev.From != "" && s.Contains(ev.From) {
		return true
	}
	if ev.To != "" && s.Contains(ev.To) {
		return true
	}
	return false
}
