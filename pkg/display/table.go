package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/0xmhha/configmap-watch/pkg/changetoken"
	"github.com/0xmhha/configmap-watch/pkg/journal"
	"github.com/0xmhha/configmap-watch/pkg/provider"
)

// tableFormatter formats output as tables.
type tableFormatter struct {
	config Config
}

// FormatChange implements Formatter.FormatChange. A single change is one
// row without a header, so that a live stream stays readable.
func (f *tableFormatter) FormatChange(w io.Writer, change changetoken.Change) error {
	_, err := fmt.Fprintf(w, "%s  %-8s  %s  %s -> %s\n",
		change.DetectedAt.Format(timeLayout),
		change.Kind,
		change.Key,
		formatFingerprint(change.Previous, f.config.FullFingerprints),
		formatFingerprint(change.Current, f.config.FullFingerprints))
	return err
}

// FormatHistory implements Formatter.FormatHistory.
func (f *tableFormatter) FormatHistory(w io.Writer, entries []journal.Entry) error {
	if err := writeHeader(w, "Change History", f.config.Compact); err != nil {
		return err
	}

	header := []string{"Seq", "Detected", "Key", "Kind", "Previous", "Current"}

	rows := make([][]string, len(entries))
	for i, entry := range entries {
		rows[i] = []string{
			fmt.Sprintf("#%d", entry.Seq),
			entry.DetectedAt.Format(timeLayout),
			entry.Key,
			string(entry.Kind),
			formatFingerprint(entry.Previous, f.config.FullFingerprints),
			formatFingerprint(entry.Current, f.config.FullFingerprints),
		}
	}

	return f.writeTable(w, header, rows)
}

// FormatDirectory implements Formatter.FormatDirectory.
func (f *tableFormatter) FormatDirectory(w io.Writer, dir string, contents provider.DirectoryContents) error {
	if err := writeHeader(w, dir, f.config.Compact); err != nil {
		return err
	}

	if !contents.Exists {
		_, err := fmt.Fprintln(w, "Directory not found")
		return err
	}

	header := []string{"Name", "Type", "Size", "Modified"}

	rows := make([][]string, len(contents.Entries))
	for i, entry := range contents.Entries {
		kind := "file"
		if entry.IsDir {
			kind = "dir"
		}
		rows[i] = []string{
			entry.Name,
			kind,
			formatNumber(entry.Size),
			entry.ModTime.Format(timeLayout),
		}
	}

	return f.writeTable(w, header, rows)
}

// FormatFileStatus implements Formatter.FormatFileStatus.
func (f *tableFormatter) FormatFileStatus(w io.Writer, status FileStatus) error {
	if err := writeHeader(w, status.Name, f.config.Compact); err != nil {
		return err
	}

	if !status.Exists {
		_, err := fmt.Fprintln(w, "File not found")
		return err
	}

	rows := [][]string{
		{"Path", status.PhysicalPath},
		{"Size", formatNumber(status.Size) + " bytes"},
		{"Modified", status.ModTime.Format(timeLayout)},
		{"Fingerprint", formatFingerprint(status.Fingerprint, f.config.FullFingerprints)},
	}

	if status.LastChange != nil {
		rows = append(rows,
			[]string{"Last Change", fmt.Sprintf("%s (#%d)", status.LastChange.Kind, status.LastChange.Seq)},
			[]string{"Changed At", status.LastChange.DetectedAt.Format(timeLayout)},
		)
	}

	return f.writeTable(w, []string{"Field", "Value"}, rows)
}

// FormatSettings implements Formatter.FormatSettings.
func (f *tableFormatter) FormatSettings(w io.Writer, values map[string]string) error {
	if err := writeHeader(w, "Settings", f.config.Compact); err != nil {
		return err
	}

	keys := sortedKeys(values)
	rows := make([][]string, len(keys))
	for i, key := range keys {
		rows[i] = []string{key, values[key]}
	}

	return f.writeTable(w, []string{"Key", "Value"}, rows)
}

// writeTable writes a formatted table.
func (f *tableFormatter) writeTable(w io.Writer, header []string, rows [][]string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No data")
		return err
	}

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	if err := f.writeRow(w, header, widths); err != nil {
		return err
	}

	if !f.config.Compact {
		separator := make([]string, len(header))
		for i, width := range widths {
			separator[i] = strings.Repeat("-", width)
		}
		if err := f.writeRow(w, separator, widths); err != nil {
			return err
		}
	}

	for _, row := range rows {
		if err := f.writeRow(w, row, widths); err != nil {
			return err
		}
	}

	if !f.config.Compact {
		_, err := fmt.Fprintln(w)
		return err
	}

	return nil
}

// writeRow writes a single table row. The last column is not padded.
func (f *tableFormatter) writeRow(w io.Writer, cells []string, widths []int) error {
	gap := "  "
	if f.config.Compact {
		gap = " "
	}

	var b strings.Builder
	for i, cell := range cells {
		if i > 0 {
			b.WriteString(gap)
		}
		if i == len(cells)-1 {
			b.WriteString(cell)
			continue
		}
		fmt.Fprintf(&b, "%-*s", widths[i], cell)
	}
	b.WriteByte('\n')

	_, err := io.WriteString(w, b.String())
	return err
}
