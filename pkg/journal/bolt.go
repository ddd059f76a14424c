package journal

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/0xmhha/configmap-watch/pkg/changetoken"
	"github.com/0xmhha/configmap-watch/pkg/logger"
)

// Bucket names.
var (
	bucketChanges = []byte("changes") // Key -> nested bucket of Seq -> Entry
	bucketLatest  = []byte("latest")  // Key -> Entry
)

// boltJournal implements Journal using BoltDB.
type boltJournal struct {
	db     *bolt.DB
	logger logger.Logger
	config Config
	now    func() time.Time
	closed atomic.Bool
}

// Open opens or creates the journal database.
//
// When a retention is configured, expired entries are pruned on open and
// after every recorded change.
func Open(cfg Config, log logger.Logger) (Journal, error) {
	if log == nil {
		log = logger.Noop()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second
	}

	dbPath := expandHome(cfg.DBPath)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	jlog := log.Component("journal")

	if err := db.Update(func(tx *bolt.Tx) error {
		if _, createErr := tx.CreateBucketIfNotExists(bucketChanges); createErr != nil {
			return fmt.Errorf("failed to create changes bucket: %w", createErr)
		}
		if _, createErr := tx.CreateBucketIfNotExists(bucketLatest); createErr != nil {
			return fmt.Errorf("failed to create latest bucket: %w", createErr)
		}
		return nil
	}); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			jlog.Error("failed to close journal after initialization error",
				"error", closeErr)
		}
		return nil, err
	}

	j := &boltJournal{
		db:     db,
		logger: jlog,
		config: cfg,
		now:    time.Now,
	}

	if cfg.Retention > 0 {
		if n, pruneErr := j.Prune(j.now().Add(-cfg.Retention)); pruneErr != nil {
			jlog.Warn("failed to prune journal", "error", pruneErr)
		} else if n > 0 {
			jlog.Info("pruned expired changes", "removed", n)
		}
	}

	jlog.Info("journal opened", "db_path", dbPath)

	return j, nil
}

// RecordChange implements changetoken.Recorder.RecordChange.
func (j *boltJournal) RecordChange(change changetoken.Change) error {
	if j.closed.Load() {
		return ErrClosed
	}
	if change.Key == "" {
		return ErrEmptyKey
	}
	if change.DetectedAt.IsZero() {
		change.DetectedAt = j.now()
	}

	err := j.db.Update(func(tx *bolt.Tx) error {
		keyBucket, err := tx.Bucket(bucketChanges).CreateBucketIfNotExists([]byte(change.Key))
		if err != nil {
			return fmt.Errorf("failed to create bucket for %s: %w", change.Key, err)
		}

		seq, err := keyBucket.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to allocate sequence: %w", err)
		}

		data, err := json.Marshal(Entry{Seq: seq, Change: change})
		if err != nil {
			return fmt.Errorf("failed to marshal entry: %w", err)
		}

		if putErr := keyBucket.Put(seqKey(seq), data); putErr != nil {
			return fmt.Errorf("failed to store entry: %w", putErr)
		}
		if putErr := tx.Bucket(bucketLatest).Put([]byte(change.Key), data); putErr != nil {
			return fmt.Errorf("failed to store latest entry: %w", putErr)
		}

		if j.config.Retention > 0 {
			if _, pruneErr := pruneBucket(keyBucket, j.now().Add(-j.config.Retention)); pruneErr != nil {
				return pruneErr
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	j.logger.Debug("change recorded",
		"key", change.Key,
		"kind", change.Kind)
	return nil
}

// History implements Journal.History.
func (j *boltJournal) History(key string, limit int) ([]Entry, error) {
	if j.closed.Load() {
		return nil, ErrClosed
	}

	var entries []Entry

	err := j.db.View(func(tx *bolt.Tx) error {
		changes := tx.Bucket(bucketChanges)

		if key != "" {
			keyBucket := changes.Bucket([]byte(key))
			if keyBucket == nil {
				return nil
			}
			var err error
			entries, err = readNewest(keyBucket, limit)
			return err
		}

		return changes.ForEach(func(k, v []byte) error {
			if v != nil {
				return nil
			}
			keyEntries, err := readNewest(changes.Bucket(k), limit)
			if err != nil {
				return err
			}
			entries = append(entries, keyEntries...)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if key == "" {
		sortNewestFirst(entries)
		if limit > 0 && len(entries) > limit {
			entries = entries[:limit]
		}
	}

	return entries, nil
}

// Latest implements Journal.Latest.
func (j *boltJournal) Latest(key string) (Entry, error) {
	if j.closed.Load() {
		return Entry{}, ErrClosed
	}

	var entry Entry

	err := j.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketLatest).Get([]byte(key))
		if data == nil {
			return ErrNotFound
		}
		if err := json.Unmarshal(data, &entry); err != nil {
			return fmt.Errorf("failed to unmarshal entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return Entry{}, err
	}

	return entry, nil
}

// Keys implements Journal.Keys.
func (j *boltJournal) Keys() ([]string, error) {
	if j.closed.Load() {
		return nil, ErrClosed
	}

	var keys []string

	err := j.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketLatest).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return keys, nil
}

// Prune implements Journal.Prune.
func (j *boltJournal) Prune(cutoff time.Time) (int, error) {
	if j.closed.Load() {
		return 0, ErrClosed
	}

	removed := 0

	err := j.db.Update(func(tx *bolt.Tx) error {
		changes := tx.Bucket(bucketChanges)

		var names [][]byte
		if err := changes.ForEach(func(k, v []byte) error {
			if v == nil {
				names = append(names, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}

		for _, name := range names {
			n, err := pruneBucket(changes.Bucket(name), cutoff)
			if err != nil {
				return err
			}
			removed += n
		}
		return nil
	})

	return removed, err
}

// Close implements Journal.Close.
func (j *boltJournal) Close() error {
	if !j.closed.CompareAndSwap(false, true) {
		return nil
	}

	if err := j.db.Close(); err != nil {
		return fmt.Errorf("failed to close journal: %w", err)
	}

	j.logger.Info("journal closed")
	return nil
}

// readNewest walks a key bucket backwards.
func readNewest(b *bolt.Bucket, limit int) ([]Entry, error) {
	var entries []Entry

	c := b.Cursor()
	for k, v := c.Last(); k != nil; k, v = c.Prev() {
		var entry Entry
		if err := json.Unmarshal(v, &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
		}
		entries = append(entries, entry)
		if limit > 0 && len(entries) >= limit {
			break
		}
	}

	return entries, nil
}

// pruneBucket deletes entries detected before cutoff. Sequence keys sort
// in insertion order, so the walk stops at the first entry to keep.
func pruneBucket(b *bolt.Bucket, cutoff time.Time) (int, error) {
	var expired [][]byte

	c := b.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var entry Entry
		if err := json.Unmarshal(v, &entry); err != nil {
			return 0, fmt.Errorf("failed to unmarshal entry: %w", err)
		}
		if !entry.DetectedAt.Before(cutoff) {
			break
		}
		expired = append(expired, bytes.Clone(k))
	}

	for _, k := range expired {
		if err := b.Delete(k); err != nil {
			return 0, fmt.Errorf("failed to delete entry: %w", err)
		}
	}

	return len(expired), nil
}

func seqKey(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

func sortNewestFirst(entries []Entry) {
	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].DetectedAt.After(entries[b].DetectedAt)
	})
}

// expandHome expands ~ in file paths to the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}
	if !strings.HasPrefix(path, "~/") {
		return path
	}

	return filepath.Join(homeDir, path[2:])
}
