// Package journal persists detected configuration changes so they can be
// listed after the watcher exits.
//
// The journal implements changetoken.Recorder, so it can be handed to a
// provider directly:
//
//	j, err := journal.Open(journal.Config{
//	    DBPath:    "~/.config/configmap-watch/journal.db",
//	    Retention: 7 * 24 * time.Hour,
//	}, logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer j.Close()
//
//	p, err := provider.New(provider.Config{Root: "/app/config", Recorder: j}, log)
package journal

import (
	"time"

	"github.com/0xmhha/configmap-watch/pkg/changetoken"
)

// Entry is one recorded change.
type Entry struct {
	// Seq increases per key, starting at 1.
	Seq uint64 `json:"seq"`

	changetoken.Change
}

// Journal stores and queries changes.
type Journal interface {
	changetoken.Recorder

	// History returns up to limit entries for key, newest first.
	// An empty key returns entries across all keys. limit <= 0 means
	// no limit.
	History(key string, limit int) ([]Entry, error)

	// Latest returns the newest entry for key.
	//
	// Returns ErrNotFound if nothing was recorded.
	Latest(key string) (Entry, error)

	// Keys returns every key with at least one recorded change, sorted.
	Keys() ([]string, error)

	// Prune deletes history entries detected before cutoff and returns
	// how many were removed. Latest entries are kept.
	Prune(cutoff time.Time) (int, error)

	// Close releases resources.
	Close() error
}

// Config contains journal configuration.
type Config struct {
	// DBPath is the bbolt database file. ~ is expanded.
	DBPath string

	// Timeout for acquiring the database file lock.
	// Default: 1s.
	Timeout time.Duration

	// Retention bounds history age. Zero keeps everything.
	Retention time.Duration
}
