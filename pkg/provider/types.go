// Package provider exposes a directory, typically a mounted ConfigMap, as
// a read-only file provider with polling change tokens.
//
// Example usage:
//
//	p, err := provider.New(provider.Config{
//	    Root:         "/app/config",
//	    PollInterval: 30 * time.Second,
//	}, logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Close()
//
//	token := p.Watch("appsettings.json")
//	token.RegisterChangeCallback(func(interface{}) { reload() }, nil)
package provider

import (
	"io"
	"os"
	"time"

	"github.com/0xmhha/configmap-watch/pkg/changetoken"
	"github.com/0xmhha/configmap-watch/pkg/fingerprint"
	"github.com/0xmhha/configmap-watch/pkg/scheduler"
)

// FileLister lists and stats files under a root.
type FileLister interface {
	// GetDirectoryContents lists the directory at subpath.
	GetDirectoryContents(subpath string) DirectoryContents

	// GetFileInfo describes the file at subpath.
	GetFileInfo(subpath string) FileInfo
}

// Watcher hands out change tokens for paths under a root.
type Watcher interface {
	// Watch returns a change token for filter.
	Watch(filter string) changetoken.ChangeToken
}

// FileProvider combines listing and watching.
type FileProvider interface {
	FileLister
	Watcher
}

// FileInfo describes one file or directory. A zero Exists means the path
// was missing or could not be stat'ed; the other fields are then empty
// apart from Name and PhysicalPath.
type FileInfo struct {
	Name         string    `json:"name"`
	PhysicalPath string    `json:"physical_path"`
	Exists       bool      `json:"exists"`
	IsDir        bool      `json:"is_dir"`
	Size         int64     `json:"size"`
	ModTime      time.Time `json:"mod_time"`
}

// Open opens the file for reading.
func (f FileInfo) Open() (io.ReadCloser, error) {
	if !f.Exists || f.IsDir {
		return nil, ErrNotFound
	}
	return os.Open(f.PhysicalPath) //nolint:gosec // Path is resolved under the provider root
}

// DirectoryContents is the result of listing a directory.
type DirectoryContents struct {
	// Exists is false when the directory is missing or unreadable.
	Exists bool `json:"exists"`

	// Entries are sorted by name.
	Entries []FileInfo `json:"entries"`
}

// Config contains provider configuration.
type Config struct {
	// Root is the directory all subpaths resolve against. Required.
	Root string

	// PollInterval is the poll period of every monitor.
	// Default: 30s.
	PollInterval time.Duration

	// Algorithm is the fingerprint algorithm.
	// Default: sha256.
	Algorithm fingerprint.Algorithm

	// Scheduler runs poll tasks for every monitor.
	// Default: a shared runtime timer scheduler.
	Scheduler scheduler.Scheduler

	// Recorder, if set, receives every change any monitor detects.
	Recorder changetoken.Recorder
}
