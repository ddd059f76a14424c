package display

import (
	"fmt"
	"io"

	"github.com/0xmhha/configmap-watch/pkg/changetoken"
	"github.com/0xmhha/configmap-watch/pkg/journal"
	"github.com/0xmhha/configmap-watch/pkg/provider"
)

// simpleFormatter formats output as simple text.
type simpleFormatter struct {
	config Config
}

// FormatChange implements Formatter.FormatChange.
func (f *simpleFormatter) FormatChange(w io.Writer, change changetoken.Change) error {
	_, err := fmt.Fprintf(w, "%s %s %s %s -> %s\n",
		change.DetectedAt.Format(timeLayout),
		change.Kind,
		change.Key,
		formatFingerprint(change.Previous, f.config.FullFingerprints),
		formatFingerprint(change.Current, f.config.FullFingerprints))
	return err
}

// FormatHistory implements Formatter.FormatHistory.
func (f *simpleFormatter) FormatHistory(w io.Writer, entries []journal.Entry) error {
	for _, entry := range entries {
		if _, err := fmt.Fprintf(w, "#%d ", entry.Seq); err != nil {
			return err
		}
		if err := f.FormatChange(w, entry.Change); err != nil {
			return err
		}
	}
	return nil
}

// FormatDirectory implements Formatter.FormatDirectory.
func (f *simpleFormatter) FormatDirectory(w io.Writer, _ string, contents provider.DirectoryContents) error {
	for _, entry := range contents.Entries {
		name := entry.Name
		if entry.IsDir {
			name += "/"
		}
		if _, err := fmt.Fprintln(w, name); err != nil {
			return err
		}
	}
	return nil
}

// FormatFileStatus implements Formatter.FormatFileStatus.
func (f *simpleFormatter) FormatFileStatus(w io.Writer, status FileStatus) error {
	if !status.Exists {
		_, err := fmt.Fprintf(w, "%s: not found\n", status.Name)
		return err
	}

	_, err := fmt.Fprintf(w, "%s | %s bytes | %s | %s\n",
		status.Name,
		formatNumber(status.Size),
		status.ModTime.Format(timeLayout),
		formatFingerprint(status.Fingerprint, f.config.FullFingerprints))
	return err
}

// FormatSettings implements Formatter.FormatSettings.
func (f *simpleFormatter) FormatSettings(w io.Writer, values map[string]string) error {
	for _, key := range sortedKeys(values) {
		if _, err := fmt.Fprintf(w, "%s=%s\n", key, values[key]); err != nil {
			return err
		}
	}
	return nil
}
