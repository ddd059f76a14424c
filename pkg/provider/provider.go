package provider

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/0xmhha/configmap-watch/pkg/changetoken"
	"github.com/0xmhha/configmap-watch/pkg/logger"
	"github.com/0xmhha/configmap-watch/pkg/scheduler"
	"github.com/0xmhha/configmap-watch/pkg/watch"
)

// Provider serves files under a root directory and watches them by
// polling. Each Provider owns its own watch registry.
type Provider struct {
	root     string
	config   Config
	logger   logger.Logger
	registry *watch.Registry
}

var _ FileProvider = (*Provider)(nil)

// New creates a provider rooted at cfg.Root.
//
// Returns ErrInvalidRoot when the root is empty or blank. The root is not
// required to exist.
func New(cfg Config, log logger.Logger) (*Provider, error) {
	if strings.TrimSpace(cfg.Root) == "" {
		return nil, ErrInvalidRoot
	}
	if log == nil {
		log = logger.Noop()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = changetoken.DefaultInterval
	}

	root := expandHome(cfg.Root)
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}

	plog := log.Component("provider").With("root", root)
	if cfg.Scheduler == nil {
		cfg.Scheduler = scheduler.New(func(r interface{}) {
			plog.Error("poll task panicked", "panic", r)
		})
	}

	p := &Provider{
		root:   root,
		config: cfg,
		logger: plog,
	}
	p.registry = watch.NewRegistry(p.newMonitor, log)

	plog.Info("file provider created",
		"poll_interval", cfg.PollInterval,
		"algorithm", cfg.Algorithm)

	return p, nil
}

// FromRelativePath creates a provider rooted at subPath resolved against
// the directory of the running executable.
//
// Returns ErrRootNotFound if that directory does not exist.
func FromRelativePath(subPath string, cfg Config, log logger.Logger) (*Provider, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to locate executable: %w", err)
	}

	dir := filepath.Join(filepath.Dir(exe), subPath)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRootNotFound, dir)
	}

	cfg.Root = dir
	return New(cfg, log)
}

func (p *Provider) newMonitor(key string) *changetoken.Monitor {
	return changetoken.New(changetoken.Config{
		Root:      p.root,
		Key:       key,
		Interval:  p.config.PollInterval,
		Algorithm: p.config.Algorithm,
		Scheduler: p.config.Scheduler,
		Recorder:  p.config.Recorder,
	}, p.logger)
}

// Root returns the absolute root directory.
func (p *Provider) Root() string {
	return p.root
}

// GetDirectoryContents implements FileLister.GetDirectoryContents.
func (p *Provider) GetDirectoryContents(subpath string) DirectoryContents {
	dir, ok := p.resolve(subpath)
	if !ok {
		return DirectoryContents{}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		p.logger.Debug("directory not readable", "path", dir, "error", err)
		return DirectoryContents{}
	}

	infos := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			p.logger.Warn("failed to get file info",
				"path", filepath.Join(dir, entry.Name()),
				"error", err)
			continue
		}
		infos = append(infos, fileInfoFrom(filepath.Join(dir, entry.Name()), info))
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })

	return DirectoryContents{Exists: true, Entries: infos}
}

// GetFileInfo implements FileLister.GetFileInfo.
func (p *Provider) GetFileInfo(subpath string) FileInfo {
	path, ok := p.resolve(subpath)
	if !ok {
		return FileInfo{Name: filepath.Base(subpath)}
	}

	info, err := os.Stat(path)
	if err != nil {
		return FileInfo{Name: filepath.Base(path), PhysicalPath: path}
	}

	return fileInfoFrom(path, info)
}

// Watch implements Watcher.Watch. The filter is used verbatim as the
// watch key. A closed provider returns changetoken.Null().
func (p *Provider) Watch(filter string) changetoken.ChangeToken {
	m, err := p.Monitor(filter)
	if err != nil {
		p.logger.Warn("watch rejected", "filter", filter, "error", err)
		return changetoken.Null()
	}
	return m
}

// Monitor is Watch with the concrete monitor and the registry error.
func (p *Provider) Monitor(filter string) (*changetoken.Monitor, error) {
	if _, ok := p.resolve(filter); !ok {
		return nil, fmt.Errorf("%w: %s", ErrOutsideRoot, filter)
	}
	return p.registry.Watch(filter)
}

// Watched returns the live monitor for filter, if any.
func (p *Provider) Watched(filter string) (*changetoken.Monitor, bool) {
	return p.registry.Get(filter)
}

// WatchedKeys returns every watched key.
func (p *Provider) WatchedKeys() []string {
	return p.registry.Keys()
}

// Close disposes every monitor. Watch returns inert tokens afterwards.
func (p *Provider) Close() error {
	p.registry.Close()
	p.logger.Info("file provider closed")
	return nil
}

// resolve joins subpath onto the root. It reports false for paths that
// escape the root.
func (p *Provider) resolve(subpath string) (string, bool) {
	full := filepath.Join(p.root, subpath)
	rel, err := filepath.Rel(p.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return full, true
}

func fileInfoFrom(path string, info os.FileInfo) FileInfo {
	return FileInfo{
		Name:         info.Name(),
		PhysicalPath: path,
		Exists:       true,
		IsDir:        info.IsDir(),
		Size:         info.Size(),
		ModTime:      info.ModTime(),
	}
}

// expandHome expands a leading ~ to the user's home directory.
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
