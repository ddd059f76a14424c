package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xmhha/configmap-watch/pkg/logger"
	"github.com/0xmhha/configmap-watch/pkg/provider"
	"github.com/0xmhha/configmap-watch/pkg/scheduler"
)

func setup(t *testing.T) (*provider.Provider, *scheduler.Manual, string) {
	t.Helper()
	dir := t.TempDir()
	sched := scheduler.NewManual()
	p, err := provider.New(provider.Config{
		Root:         dir,
		PollInterval: time.Second,
		Scheduler:    sched,
	}, logger.Noop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p, sched, dir
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))
}

func TestSourcesFor(t *testing.T) {
	assert.Equal(t, []Source{
		{Path: "appsettings.json", ReloadOnChange: true},
	}, SourcesFor("", ""))

	assert.Equal(t, []Source{
		{Path: "app.json", ReloadOnChange: true},
		{Path: "app.Production.json", Optional: true, ReloadOnChange: true},
	}, SourcesFor("app", "Production"))
}

func TestLoad_NoSources(t *testing.T) {
	p, _, _ := setup(t)
	_, err := Load(p, nil, logger.Noop())
	assert.ErrorIs(t, err, ErrNoSources)
}

func TestLoad_MissingRequiredSource(t *testing.T) {
	p, _, _ := setup(t)
	_, err := Load(p, SourcesFor("appsettings", ""), logger.Noop())
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

func TestLoad_InvalidSource(t *testing.T) {
	p, _, dir := setup(t)
	writeFile(t, dir, "appsettings.json", `{not json`)

	_, err := Load(p, SourcesFor("appsettings", ""), logger.Noop())
	assert.ErrorIs(t, err, ErrInvalidSource)
}

func TestLoad_LayeredMerge(t *testing.T) {
	p, _, dir := setup(t)
	writeFile(t, dir, "appsettings.json", `{
		"Logging": {"Level": "Information", "Console": true},
		"Database": {"Host": "localhost", "Port": 5432},
		"Hosts": ["a", "b"]
	}`)
	writeFile(t, dir, "appsettings.Production.json", `{
		"logging": {"level": "Warning"},
		"Database": {"Host": "db.internal"},
		"Hosts": ["c"]
	}`)

	s, err := Load(p, SourcesFor("appsettings", "Production"), logger.Noop())
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "Warning", s.String("Logging:Level"))
	assert.Equal(t, "Warning", s.String("LOGGING:LEVEL"))
	assert.Equal(t, "true", s.String("Logging:Console"))
	assert.Equal(t, "db.internal", s.String("Database:Host"))
	assert.Equal(t, "5432", s.String("Database:Port"))
	assert.Equal(t, "c", s.String("Hosts:0"))
	assert.Equal(t, "", s.String("Hosts:1"))
	assert.Equal(t, "", s.String("Database"))

	_, ok := s.Get("Missing:Key")
	assert.False(t, ok)

	assert.Equal(t, []string{
		"Database:Host",
		"Database:Port",
		"Hosts:0",
		"Logging:Console",
		"Logging:Level",
	}, s.Keys())
}

func TestLoad_OptionalEnvironmentMissing(t *testing.T) {
	p, _, dir := setup(t)
	writeFile(t, dir, "appsettings.json", `{"A": 1}`)

	s, err := Load(p, SourcesFor("appsettings", "Staging"), logger.Noop())
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "1", s.String("A"))
}

func TestLoad_YAMLSource(t *testing.T) {
	p, _, dir := setup(t)
	writeFile(t, dir, "base.json", `{"Server": {"Port": 80, "Name": "base"}}`)
	writeFile(t, dir, "override.yaml", "server:\n  port: 8080\nfeatures:\n  - search\n  - export\n")

	s, err := Load(p, []Source{
		{Path: "base.json"},
		{Path: "override.yaml"},
	}, logger.Noop())
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "8080", s.String("Server:Port"))
	assert.Equal(t, "base", s.String("Server:Name"))
	assert.Equal(t, "export", s.String("features:1"))

	for _, key := range []string{"features:1abc", "features:-1", "features: 1", "features:2"} {
		_, ok := s.Get(key)
		assert.False(t, ok, key)
	}
}

func TestBind(t *testing.T) {
	p, _, dir := setup(t)
	writeFile(t, dir, "appsettings.json", `{"Database": {"Host": "db", "Port": 5432, "Tags": ["x"]}}`)

	s, err := Load(p, SourcesFor("", ""), logger.Noop())
	require.NoError(t, err)
	defer s.Close()

	var db struct {
		Host string
		Port int
		Tags []string
	}
	require.NoError(t, s.Bind("Database", &db))
	assert.Equal(t, "db", db.Host)
	assert.Equal(t, 5432, db.Port)
	assert.Equal(t, []string{"x"}, db.Tags)

	assert.ErrorIs(t, s.Bind("Nope", &db), ErrKeyNotFound)
}

func TestGet_ReturnsCopies(t *testing.T) {
	p, _, dir := setup(t)
	writeFile(t, dir, "appsettings.json", `{"Section": {"Key": "v"}}`)

	s, err := Load(p, SourcesFor("", ""), logger.Noop())
	require.NoError(t, err)
	defer s.Close()

	v, ok := s.Get("Section")
	require.True(t, ok)
	v.(map[string]interface{})["Key"] = "mutated"

	assert.Equal(t, "v", s.String("Section:Key"))
}

func TestReloadOnChange(t *testing.T) {
	p, sched, dir := setup(t)
	writeFile(t, dir, "appsettings.json", `{"Feature": {"Enabled": false}}`)

	s, err := Load(p, SourcesFor("", ""), logger.Noop())
	require.NoError(t, err)
	defer s.Close()

	reloaded := 0
	_, err = s.OnReload(func(state interface{}) {
		assert.Same(t, s, state)
		reloaded++
	})
	require.NoError(t, err)

	sched.Tick()
	writeFile(t, dir, "appsettings.json", `{"Feature": {"Enabled": true}}`)
	sched.Tick()

	assert.Equal(t, "true", s.String("Feature:Enabled"))
	assert.Equal(t, 1, reloaded)
	assert.Equal(t, uint64(1), s.Reloads())

	// The re-armed monitor baselines first, then sees the next edit.
	sched.Tick()
	writeFile(t, dir, "appsettings.json", `{"Feature": {"Enabled": false}}`)
	sched.Tick()

	assert.Equal(t, "false", s.String("Feature:Enabled"))
	assert.Equal(t, 2, reloaded)
}

func TestReload_FailureKeepsLastGoodValues(t *testing.T) {
	p, sched, dir := setup(t)
	writeFile(t, dir, "appsettings.json", `{"Mode": "good"}`)

	s, err := Load(p, SourcesFor("", ""), logger.Noop())
	require.NoError(t, err)
	defer s.Close()

	reloaded := 0
	_, err = s.OnReload(func(interface{}) { reloaded++ })
	require.NoError(t, err)

	sched.Tick()
	writeFile(t, dir, "appsettings.json", `{"Mode": `)
	sched.Tick()

	assert.Equal(t, "good", s.String("Mode"))
	assert.Equal(t, 0, reloaded)
	assert.ErrorIs(t, s.LastError(), ErrInvalidSource)

	sched.Tick()
	writeFile(t, dir, "appsettings.json", `{"Mode": "fixed"}`)
	sched.Tick()

	assert.Equal(t, "fixed", s.String("Mode"))
	assert.Equal(t, 1, reloaded)
	assert.NoError(t, s.LastError())
}

func TestClose(t *testing.T) {
	p, sched, dir := setup(t)
	writeFile(t, dir, "appsettings.json", `{"V": 1}`)

	s, err := Load(p, SourcesFor("", ""), logger.Noop())
	require.NoError(t, err)

	h, err := s.OnReload(func(interface{}) {})
	require.NoError(t, err)

	s.Close()
	s.Close()
	assert.False(t, h.Active())

	_, err = s.OnReload(func(interface{}) {})
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Reload(), ErrClosed)

	sched.Tick()
	writeFile(t, dir, "appsettings.json", `{"V": 2}`)
	sched.Tick()
	assert.Equal(t, "1", s.String("V"))
}
