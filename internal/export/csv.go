package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// ExportBookmarksCSV writes the flat bookmark index, one row per node.
func ExportBookmarksCSV(src Source, w io.Writer) error {
	index, err := src.ReadBookmarkIndex()
	if err != nil {
		return fmt.Errorf("list bookmarks: %w", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "type", "title", "url", "path", "depth", "date_added"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, e := range index {
		row := []string{
			strconv.FormatInt(e.ID, 10),
			string(e.Type),
			e.Title,
			e.URL,
			e.Path,
			strconv.Itoa(e.Depth),
			formatTime(e.DateAdded),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// ExportHistoryCSV writes every stored history entry, newest first.
func ExportHistoryCSV(src Source, w io.Writer) error {
	entries, err := src.History().Read(0)
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "url", "title", "visit_count", "last_visit_time", "typed"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, e := range entries {
		row := []string{
			strconv.FormatInt(e.ID, 10),
			e.URL,
			e.Title,
			strconv.FormatInt(e.VisitCount, 10),
			formatTime(e.LastVisitTime),
			boolToString(e.Typed),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func boolToString(value bool) string {
	if value {
		return "true"
	}
	return "false"
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}
