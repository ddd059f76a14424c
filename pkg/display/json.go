package display

import (
	"encoding/json"
	"io"

	"github.com/0xmhha/configmap-watch/pkg/changetoken"
	"github.com/0xmhha/configmap-watch/pkg/journal"
	"github.com/0xmhha/configmap-watch/pkg/provider"
)

// jsonFormatter formats output as JSON.
type jsonFormatter struct {
	config Config
}

func (f *jsonFormatter) encode(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	if !f.config.Compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(v)
}

// FormatChange implements Formatter.FormatChange. Changes are always one
// line so a stream of them is valid JSON Lines.
func (f *jsonFormatter) FormatChange(w io.Writer, change changetoken.Change) error {
	return json.NewEncoder(w).Encode(change)
}

// FormatHistory implements Formatter.FormatHistory.
func (f *jsonFormatter) FormatHistory(w io.Writer, entries []journal.Entry) error {
	if entries == nil {
		entries = []journal.Entry{}
	}
	return f.encode(w, entries)
}

// FormatDirectory implements Formatter.FormatDirectory.
func (f *jsonFormatter) FormatDirectory(w io.Writer, dir string, contents provider.DirectoryContents) error {
	if contents.Entries == nil {
		contents.Entries = []provider.FileInfo{}
	}
	return f.encode(w, struct {
		Directory string `json:"directory"`
		provider.DirectoryContents
	}{dir, contents})
}

// FormatFileStatus implements Formatter.FormatFileStatus.
func (f *jsonFormatter) FormatFileStatus(w io.Writer, status FileStatus) error {
	return f.encode(w, status)
}

// FormatSettings implements Formatter.FormatSettings.
func (f *jsonFormatter) FormatSettings(w io.Writer, values map[string]string) error {
	if values == nil {
		values = map[string]string{}
	}
	return f.encode(w, values)
}
