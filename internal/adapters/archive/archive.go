// Package archive keeps every run's payload in a local bbolt database.
package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/okian/compliance-radar/pkg/logger"
)

const (
	bucketRuns  = "runs"
	openTimeout = time.Second
	keyLayout   = "2006-01-02T15:04:05Z"
)

// Run is one archived payload.
type Run struct {
	Key     string
	Payload []byte
}

// Archive is a run store. It is safe for concurrent use.
type Archive struct {
	mu  sync.RWMutex
	db  *bolt.DB
	log logger.Logger
}

// Open opens or creates the database at path, creating parent directories.
// It holds an exclusive lock until Close.
func Open(path string, log logger.Logger) (*Archive, error) {
	if log == nil {
		log = logger.Nop()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create archive dir: %w", err)
		}
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketRuns))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init archive bucket: %w", err)
	}
	return &Archive{db: db, log: log}, nil
}

// OpenReadOnly opens an existing database under a shared lock. The file is
// never created.
func OpenReadOnly(path string, log logger.Logger) (*Archive, error) {
	if log == nil {
		log = logger.Nop()
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrEmpty, path)
		}
		return nil, fmt.Errorf("stat archive %s: %w", path, err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: openTimeout, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	return &Archive{db: db, log: log}, nil
}

// Key returns the storage key for a run. Keys sort chronologically.
func Key(runID string, generatedAt time.Time) string {
	return generatedAt.UTC().Format(keyLayout) + "_" + runID
}

// Save stores payload under the run's key and returns the key.
func (a *Archive) Save(ctx context.Context, runID string, generatedAt time.Time, payload []byte) (string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.db == nil {
		return "", ErrClosed
	}

	key := Key(runID, generatedAt)
	err := a.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketRuns)).Put([]byte(key), payload)
	})
	if err != nil {
		return "", fmt.Errorf("save run %s: %w", key, err)
	}
	a.log.Debug(ctx, "run archived", logger.String("key", key), logger.Int("bytes", len(payload)))
	return key, nil
}

// Latest returns the most recently generated run.
func (a *Archive) Latest(_ context.Context) (Run, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.db == nil {
		return Run{}, ErrClosed
	}

	var run Run
	err := a.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketRuns))
		if b == nil {
			return ErrEmpty
		}
		k, v := b.Cursor().Last()
		if k == nil {
			return ErrEmpty
		}
		run = Run{Key: string(k), Payload: append([]byte(nil), v...)}
		return nil
	})
	return run, err
}

// Get returns the run stored under key.
func (a *Archive) Get(_ context.Context, key string) (Run, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.db == nil {
		return Run{}, ErrClosed
	}

	var run Run
	err := a.db.View(func(tx *bolt.Tx) error {
		var v []byte
		if b := tx.Bucket([]byte(bucketRuns)); b != nil {
			v = b.Get([]byte(key))
		}
		if v == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		run = Run{Key: key, Payload: append([]byte(nil), v...)}
		return nil
	})
	return run, err
}

// Keys lists stored run keys, oldest first.
func (a *Archive) Keys(_ context.Context) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.db == nil {
		return nil, ErrClosed
	}

	keys := []string{}
	err := a.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketRuns))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

// Close releases the database. Further calls return ErrClosed.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}
