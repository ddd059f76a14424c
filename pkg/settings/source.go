package settings

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/0xmhha/configmap-watch/pkg/provider"
)

// DefaultBaseName is the base name of the layered settings files.
const DefaultBaseName = "appsettings"

// Source is one settings file layered into the merged view. Later sources
// override earlier ones.
type Source struct {
	// Path is relative to the provider root.
	Path string

	// Optional sources may be missing.
	Optional bool

	// ReloadOnChange watches the file and reloads when it changes.
	ReloadOnChange bool
}

// SourcesFor returns the standard layering: "<base>.json" followed by the
// optional "<base>.<env>.json". Both reload on change. An empty base uses
// DefaultBaseName; an empty env yields only the base file.
func SourcesFor(base, env string) []Source {
	if base == "" {
		base = DefaultBaseName
	}

	sources := []Source{
		{Path: base + ".json", ReloadOnChange: true},
	}
	if env = strings.TrimSpace(env); env != "" {
		sources = append(sources, Source{
			Path:           fmt.Sprintf("%s.%s.json", base, env),
			Optional:       true,
			ReloadOnChange: true,
		})
	}
	return sources
}

// readSource reads and parses one source. A missing optional source
// yields an empty map.
func readSource(files provider.FileLister, src Source) (map[string]interface{}, error) {
	info := files.GetFileInfo(src.Path)
	if !info.Exists || info.IsDir {
		if src.Optional {
			return map[string]interface{}{}, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, src.Path)
	}

	rc, err := info.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", src.Path, err)
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", src.Path, err)
	}

	values, err := parse(src.Path, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSource, src.Path, err)
	}
	return values, nil
}

// parse decodes JSON, or YAML for .yaml/.yml files. An empty document is
// an empty map.
func parse(path string, data []byte) (map[string]interface{}, error) {
	values := map[string]interface{}{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return values, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &values); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &values); err != nil {
			return nil, err
		}
	}

	return normalize(values).(map[string]interface{}), nil
}

// normalize converts any map[interface{}]interface{} produced by the YAML
// decoder into map[string]interface{}, recursively.
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, val := range t {
			t[k] = normalize(val)
		}
		return t
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = normalize(val)
		}
		return m
	case []interface{}:
		for i, val := range t {
			t[i] = normalize(val)
		}
		return t
	default:
		return v
	}
}
