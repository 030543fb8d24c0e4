package events

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// BucketEvents holds journaled messages keyed by bucket sequence.
const BucketEvents = "events"

// JournalSink appends every message to a bbolt file. The journal is an audit
// trail only; the ledger never reads it back.
type JournalSink struct {
	db *bolt.DB
}

// NewJournalSink opens (or creates) the journal at path.
func NewJournalSink(path string) (*JournalSink, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(BucketEvents)); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", BucketEvents, err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &JournalSink{db: db}, nil
}

func (s *JournalSink) Name() string { return "journal" }

func (s *JournalSink) Publish(_ context.Context, msg Message) error {
	data, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketEvents))
		if b == nil {
			return fmt.Errorf("bucket %s not found", BucketEvents)
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(itob(seq), data)
	})
}

func (s *JournalSink) Close() error {
	return s.db.Close()
}

// ReadJournal returns every message in the journal at path in the order it
// was written. The file must not be held open by a running server.
func ReadJournal(path string) ([]Message, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to stat journal: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{ReadOnly: true, Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	defer db.Close()

	var msgs []Message
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketEvents))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var msg Message
			if err := json.Unmarshal(v, &msg); err != nil {
				return fmt.Errorf("failed to unmarshal entry %d: %w", binary.BigEndian.Uint64(k), err)
			}
			msgs = append(msgs, msg)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// itob returns an 8-byte big endian representation of v.
func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
