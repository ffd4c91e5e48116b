package dedupe

import (
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Ledger wraps BoltDB to remember which stream entries a consumer has
// already applied. Delivery is at least once: after a crash between apply
// and acknowledge, the redelivered entry is recognized here and skipped
// rather than applied twice.
type Ledger struct {
	db     *bolt.DB
	bucket []byte
}

// Open initializes the BoltDB file and ensures the bucket exists. The
// bucket is usually the consumer group name so one file can serve several
// subscriptions.
func Open(path string, bucket string) (*Ledger, error) {
	if bucket == "" {
		bucket = "applied"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Ledger{
		db:     db,
		bucket: []byte(bucket),
	}, nil
}

// Seen reports whether the entry id was already marked as applied.
func (l *Ledger) Seen(id string) (bool, error) {
	if l == nil || l.db == nil {
		return false, bolt.ErrDatabaseNotOpen
	}
	var seen bool
	err := l.db.View(func(tx *bolt.Tx) error {
		seen = tx.Bucket(l.bucket).Get([]byte(id)) != nil
		return nil
	})
	return seen, err
}

// Mark records the entry id as applied. Marking the same id twice is a no-op.
func (l *Ledger) Mark(id string) error {
	if l == nil || l.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	stamp := []byte(time.Now().UTC().Format(time.RFC3339Nano))
	return l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(l.bucket).Put([]byte(id), stamp)
	})
}

// Close releases the underlying BoltDB handle.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}
