package journal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xmhha/configmap-watch/pkg/changetoken"
	"github.com/0xmhha/configmap-watch/pkg/fingerprint"
	"github.com/0xmhha/configmap-watch/pkg/logger"
)

func openBolt(t *testing.T, retention time.Duration) Journal {
	t.Helper()
	j, err := Open(Config{
		DBPath:    filepath.Join(t.TempDir(), "journal.db"),
		Retention: retention,
	}, logger.Noop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

// implementations runs fn against every Journal implementation.
func implementations(t *testing.T, fn func(t *testing.T, j Journal)) {
	t.Run("bolt", func(t *testing.T) { fn(t, openBolt(t, 0)) })
	t.Run("memory", func(t *testing.T) { fn(t, NewMemory(0)) })
}

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func change(key string, kind changetoken.Kind, at time.Duration) changetoken.Change {
	return changetoken.Change{
		Key:        key,
		Path:       filepath.Join("/cfg", key),
		Kind:       kind,
		Previous:   fingerprint.Fingerprint("sha256:aaaa"),
		Current:    fingerprint.Fingerprint("sha256:bbbb"),
		DetectedAt: base.Add(at),
	}
}

func TestOpen_CreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "journal.db")

	j, err := Open(Config{DBPath: dbPath}, logger.Noop())
	require.NoError(t, err)
	require.NoError(t, j.Close())
	require.NoError(t, j.Close())

	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestRecordChange_Sequences(t *testing.T) {
	implementations(t, func(t *testing.T, j Journal) {
		require.NoError(t, j.RecordChange(change("app.json", changetoken.KindModified, 0)))
		require.NoError(t, j.RecordChange(change("app.json", changetoken.KindDeleted, time.Minute)))
		require.NoError(t, j.RecordChange(change("db.json", changetoken.KindModified, 2*time.Minute)))

		history, err := j.History("app.json", 0)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, uint64(2), history[0].Seq)
		assert.Equal(t, changetoken.KindDeleted, history[0].Kind)
		assert.Equal(t, uint64(1), history[1].Seq)
		assert.Equal(t, fingerprint.Fingerprint("sha256:bbbb"), history[1].Current)
		assert.True(t, history[1].DetectedAt.Equal(base))

		latest, err := j.Latest("db.json")
		require.NoError(t, err)
		assert.Equal(t, uint64(1), latest.Seq)

		keys, err := j.Keys()
		require.NoError(t, err)
		assert.Equal(t, []string{"app.json", "db.json"}, keys)
	})
}

func TestRecordChange_EmptyKey(t *testing.T) {
	implementations(t, func(t *testing.T, j Journal) {
		assert.ErrorIs(t, j.RecordChange(changetoken.Change{}), ErrEmptyKey)
	})
}

func TestRecordChange_StampsDetectedAt(t *testing.T) {
	implementations(t, func(t *testing.T, j Journal) {
		require.NoError(t, j.RecordChange(changetoken.Change{Key: "a.json", Kind: changetoken.KindCreated}))

		latest, err := j.Latest("a.json")
		require.NoError(t, err)
		assert.False(t, latest.DetectedAt.IsZero())
	})
}

func TestHistory_AllKeysNewestFirst(t *testing.T) {
	implementations(t, func(t *testing.T, j Journal) {
		require.NoError(t, j.RecordChange(change("a.json", changetoken.KindModified, 0)))
		require.NoError(t, j.RecordChange(change("b.json", changetoken.KindModified, time.Minute)))
		require.NoError(t, j.RecordChange(change("a.json", changetoken.KindModified, 2*time.Minute)))

		all, err := j.History("", 0)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "a.json", all[0].Key)
		assert.Equal(t, "b.json", all[1].Key)
		assert.Equal(t, "a.json", all[2].Key)

		limited, err := j.History("", 2)
		require.NoError(t, err)
		assert.Len(t, limited, 2)

		one, err := j.History("a.json", 1)
		require.NoError(t, err)
		require.Len(t, one, 1)
		assert.Equal(t, uint64(2), one[0].Seq)

		none, err := j.History("unknown.json", 0)
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestLatest_NotFound(t *testing.T) {
	implementations(t, func(t *testing.T, j Journal) {
		_, err := j.Latest("missing.json")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestPrune(t *testing.T) {
	implementations(t, func(t *testing.T, j Journal) {
		require.NoError(t, j.RecordChange(change("a.json", changetoken.KindModified, 0)))
		require.NoError(t, j.RecordChange(change("a.json", changetoken.KindModified, time.Hour)))
		require.NoError(t, j.RecordChange(change("b.json", changetoken.KindModified, 30*time.Minute)))

		removed, err := j.Prune(base.Add(45 * time.Minute))
		require.NoError(t, err)
		assert.Equal(t, 2, removed)

		history, err := j.History("", 0)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, uint64(2), history[0].Seq)

		// Latest survives pruning.
		latest, err := j.Latest("b.json")
		require.NoError(t, err)
		assert.Equal(t, "b.json", latest.Key)
	})
}

func TestRetention_PrunesOnRecord(t *testing.T) {
	j := openBolt(t, time.Hour)
	old := changetoken.Change{Key: "a.json", Kind: changetoken.KindModified, DetectedAt: time.Now().Add(-2 * time.Hour)}
	require.NoError(t, j.RecordChange(old))
	require.NoError(t, j.RecordChange(changetoken.Change{Key: "a.json", Kind: changetoken.KindModified}))

	history, err := j.History("a.json", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, uint64(2), history[0].Seq)

	mem := NewMemory(time.Hour)
	require.NoError(t, mem.RecordChange(old))
	require.NoError(t, mem.RecordChange(changetoken.Change{Key: "a.json", Kind: changetoken.KindModified}))
	history, err = mem.History("a.json", 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestPersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(Config{DBPath: dbPath}, logger.Noop())
	require.NoError(t, err)
	require.NoError(t, j.RecordChange(change("app.json", changetoken.KindModified, 0)))
	require.NoError(t, j.Close())

	j, err = Open(Config{DBPath: dbPath}, logger.Noop())
	require.NoError(t, err)
	defer j.Close()

	require.NoError(t, j.RecordChange(change("app.json", changetoken.KindModified, time.Minute)))
	latest, err := j.Latest("app.json")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), latest.Seq)
}

func TestClosed(t *testing.T) {
	implementations(t, func(t *testing.T, j Journal) {
		require.NoError(t, j.Close())

		assert.ErrorIs(t, j.RecordChange(change("a.json", changetoken.KindModified, 0)), ErrClosed)
		_, err := j.History("", 0)
		assert.ErrorIs(t, err, ErrClosed)
		_, err = j.Keys()
		assert.ErrorIs(t, err, ErrClosed)
	})
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	assert.Equal(t, home, expandHome("~"))
	assert.Equal(t, filepath.Join(home, "journal.db"), expandHome("~/journal.db"))
	assert.Equal(t, "~other/journal.db", expandHome("~other/journal.db"))
	assert.Equal(t, "/var/lib/journal.db", expandHome("/var/lib/journal.db"))
}
