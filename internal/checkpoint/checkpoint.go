// Package checkpoint persists resume cursors: the last ledger delivered
// for a named (server, account filter) query, so an interrupted stream can
// pick up at the next ledger instead of replaying the range.
package checkpoint

import (
	"context"
	"time"
)

// Cursor records how far a named query has been delivered
type Cursor struct {
	// Name is the caller-chosen identifier of the query
	Name string `json:"name"`
	// Server is the event service address the cursor belongs to
	Server string `json:"server"`
	// Filter is the fingerprint of the account set ("*" for all accounts)
	Filter string `json:"filter"`
	// LastLedger is the sequence of the last delivered event's ledger
	LastLedger uint32 `json:"last_ledger"`
	// UpdatedAt is when the cursor last advanced
	UpdatedAt time.Time `json:"updated_at"`
}

// CursorStore is the persistence interface for resume cursors
type CursorStore interface {
	// Open initializes the store and makes it ready for use
	Open() error

	// Close closes the store and releases any resources
	Close() error

	// Put stores or replaces a cursor by name
	Put(ctx context.Context, cursor *Cursor) error

	// Get retrieves a cursor by name
	Get(ctx context.Context, name string) (*Cursor, error)

	// List retrieves all cursors
	List(ctx context.Context) ([]*Cursor, error)

	// Delete removes a cursor by name
	Delete(ctx context.Context, name string) error
}

// ErrCursorNotFound is returned when no cursor exists under the given name
type ErrCursorNotFound struct {
	Name string
}

// Error implements the error interface
func (e ErrCursorNotFound) Error() string {
	return "cursor not found: " + e.Name
}

// IsNotFound returns true if the error is ErrCursorNotFound
func IsNotFound(err error) bool {
	_, ok := err.(ErrCursorNotFound)
	return ok
}
