// Package display provides output formatting for watched files, detected
// changes and settings.
//
// It supports multiple output formats (table, JSON, simple text).
package display

import (
	"io"

	"github.com/0xmhha/configmap-watch/pkg/changetoken"
	"github.com/0xmhha/configmap-watch/pkg/fingerprint"
	"github.com/0xmhha/configmap-watch/pkg/journal"
	"github.com/0xmhha/configmap-watch/pkg/provider"
)

// Format represents an output format.
type Format string

const (
	// FormatTable displays output in aligned tables.
	FormatTable Format = "table"

	// FormatJSON displays output as JSON.
	FormatJSON Format = "json"

	// FormatSimple displays output as one line per item.
	FormatSimple Format = "simple"
)

// ParseFormat converts a name to a Format.
//
// Returns ErrUnknownFormat for unrecognized names.
func ParseFormat(name string) (Format, error) {
	switch Format(name) {
	case FormatTable, FormatJSON, FormatSimple:
		return Format(name), nil
	default:
		return "", ErrUnknownFormat
	}
}

// FileStatus is a file together with its current fingerprint and the most
// recent journaled change, if any.
type FileStatus struct {
	provider.FileInfo

	Fingerprint fingerprint.Fingerprint `json:"fingerprint"`
	LastChange  *journal.Entry          `json:"last_change,omitempty"`
}

// Formatter formats configmap-watch output.
type Formatter interface {
	// FormatChange formats one live change event.
	FormatChange(w io.Writer, change changetoken.Change) error

	// FormatHistory formats journaled changes, newest first.
	FormatHistory(w io.Writer, entries []journal.Entry) error

	// FormatDirectory formats a directory listing.
	FormatDirectory(w io.Writer, dir string, contents provider.DirectoryContents) error

	// FormatFileStatus formats a single file.
	FormatFileStatus(w io.Writer, status FileStatus) error

	// FormatSettings formats flattened settings keyed by colon path.
	FormatSettings(w io.Writer, values map[string]string) error
}

// Config contains formatter configuration.
type Config struct {
	// Format specifies the output format.
	// Default: FormatTable.
	Format Format

	// FullFingerprints prints complete digests instead of short ones.
	// Default: false.
	FullFingerprints bool

	// Compact enables compact output (less whitespace).
	// Default: false.
	Compact bool
}
