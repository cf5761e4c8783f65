package export

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// ExportImportText writes a readable text summary of an import.
func ExportImportText(src Source, w io.Writer) error {
	md, err := src.ReadMetadata()
	if err != nil {
		return fmt.Errorf("get metadata: %w", err)
	}
	index, err := src.ReadBookmarkIndex()
	if err != nil {
		return fmt.Errorf("list bookmarks: %w", err)
	}
	creds, err := src.ReadPasswordIndex()
	if err != nil {
		return fmt.Errorf("list passwords: %w", err)
	}

	fmt.Fprintf(w, "Import: %s\n", md.ImportID)
	fmt.Fprintf(w, "Source: %s profile %q (%s)\n", md.Source, md.SourceProfile.Name, md.SourceProfile.Path)
	fmt.Fprintf(w, "Imported: %s\n", md.ImportedAt.UTC().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Counts: %d bookmarks, %d history entries, %d passwords\n", md.Stats.BookmarksCount, md.Stats.HistoryCount, md.Stats.PasswordsCount)
	fmt.Fprintf(w, "Homepage: %s\n\n", md.Settings.Homepage)

	fmt.Fprintln(w, "Bookmarks:")
	if len(index) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  Title\tURL")
		for _, e := range index {
			fmt.Fprintf(tw, "  %s%s\t%s\n", strings.Repeat("  ", e.Depth), e.Title, e.URL)
		}
		tw.Flush()
	} else {
		fmt.Fprintln(w, "  No bookmarks found.")
	}
	fmt.Fprintln(w, "")

	fmt.Fprintln(w, "Passwords:")
	if len(creds) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  Host\tUsername\tUsed")
		for _, c := range creds {
			fmt.Fprintf(tw, "  %s\t%s\t%d\n", c.Hostname, c.Username, c.TimesUsed)
		}
		tw.Flush()
	} else {
		fmt.Fprintln(w, "  No passwords found.")
	}

	return nil
}
