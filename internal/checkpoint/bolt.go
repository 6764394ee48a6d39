package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/withobsrvr/ttp-consumer/internal/utils/logger"
	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

const (
	// DefaultBoltFilePath is the default path for the BoltDB file
	DefaultBoltFilePath = "ttp-consumer-cursors.db"

	// DefaultBoltFileMode is the default file mode for the BoltDB file
	DefaultBoltFileMode = 0600

	// DefaultBoltTimeout is the default timeout for BoltDB operations
	DefaultBoltTimeout = 1 * time.Second
)

var cursorBucket = []byte("cursors")

// BoltStore implements CursorStore using BoltDB
type BoltStore struct {
	db      *bolt.DB
	path    string
	options *BoltOptions
}

// BoltOptions configures the BoltDB store
type BoltOptions struct {
	// Path to the BoltDB file
	Path string
	// File mode for the BoltDB file
	FileMode os.FileMode
	// Timeout for BoltDB operations
	Timeout time.Duration
}

// NewBoltStore creates a new BoltStore with the given options
func NewBoltStore(opts *BoltOptions) *BoltStore {
	if opts == nil {
		opts = &BoltOptions{}
	}

	if opts.Path == "" {
		opts.Path = DefaultBoltFilePath
	}
	if opts.FileMode == 0 {
		opts.FileMode = DefaultBoltFileMode
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultBoltTimeout
	}

	return &BoltStore{
		path:    opts.Path,
		options: opts,
	}
}

// Open initializes the BoltDB database
func (s *BoltStore) Open() error {
	logger.Debug("Opening cursor store", zap.String("path", s.path))

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for cursor store: %w", err)
	}

	db, err := bolt.Open(s.path, s.options.FileMode, &bolt.Options{Timeout: s.options.Timeout})
	if err != nil {
		return fmt.Errorf("failed to open cursor store: %w", err)
	}
	s.db = db

	err = s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(cursorBucket)
		if err != nil {
			return fmt.Errorf("failed to create cursors bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		s.db.Close()
		return fmt.Errorf("failed to initialize cursor store: %w", err)
	}

	return nil
}

// Close closes the BoltDB database
func (s *BoltStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put stores or replaces a cursor by name
func (s *BoltStore) Put(ctx context.Context, cursor *Cursor) error {
	logger.Debug("Storing cursor",
		zap.String("name", cursor.Name),
		zap.Uint32("last_ledger", cursor.LastLedger))

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(cursorBucket)
		if b == nil {
			return fmt.Errorf("cursors bucket not found")
		}

		data, err := json.Marshal(cursor)
		if err != nil {
			return fmt.Errorf("failed to marshal cursor: %w", err)
		}

		if err := b.Put([]byte(cursor.Name), data); err != nil {
			return fmt.Errorf("failed to store cursor: %w", err)
		}
		return nil
	})
}

// Get retrieves a cursor by name
func (s *BoltStore) Get(ctx context.Context, name string) (*Cursor, error) {
	var cursor *Cursor
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(cursorBucket)
		if b == nil {
			return fmt.Errorf("cursors bucket not found")
		}

		data := b.Get([]byte(name))
		if data == nil {
			return ErrCursorNotFound{Name: name}
		}

		cursor = &Cursor{}
		if err := json.Unmarshal(data, cursor); err != nil {
			return fmt.Errorf("failed to unmarshal cursor: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cursor, nil
}

// List retrieves all cursors
func (s *BoltStore) List(ctx context.Context) ([]*Cursor, error) {
	var cursors []*Cursor
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(cursorBucket)
		if b == nil {
			return fmt.Errorf("cursors bucket not found")
		}

		return b.ForEach(func(k, v []byte) error {
			cursor := &Cursor{}
			if err := json.Unmarshal(v, cursor); err != nil {
				return fmt.Errorf("failed to unmarshal cursor %s: %w", k, err)
			}
			cursors = append(cursors, cursor)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return cursors, nil
}

// Delete removes a cursor by name
func (s *BoltStore) Delete(ctx context.Context, name string) error {
	logger.Debug("Deleting cursor", zap.String("name", name))

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(cursorBucket)
		if b == nil {
			return fmt.Errorf("cursors bucket not found")
		}

		if b.Get([]byte(name)) == nil {
			return ErrCursorNotFound{Name: name}
		}
		return b.Delete([]byte(name))
	})
}
