package stats

import (
	"bufio"
	"fmt"
	"io"
)

// WriteText renders s for a terminal.
func (s *Stats) WriteText(w io.Writer) error {
	b := bufio.NewWriter(w)

	fmt.Fprintln(b, "=== Application Statistics ===")
	fmt.Fprintf(b, "Timestamp: %s\n\n", s.Timestamp.Format("2006-01-02 15:04:05"))

	fmt.Fprintln(b, "--- Memory Statistics ---")
	fmt.Fprintf(b, "Allocated:        %s\n", FormatBytes(s.Memory.Alloc))
	fmt.Fprintf(b, "Total Allocated:  %s\n", FormatBytes(s.Memory.TotalAlloc))
	fmt.Fprintf(b, "Heap In Use:      %s\n", FormatBytes(s.Memory.HeapInuse))
	fmt.Fprintf(b, "GC Cycles:        %d\n\n", s.Memory.NumGC)

	db := s.Database
	fmt.Fprintln(b, "--- Database Statistics ---")
	fmt.Fprintf(b, "Type:            %s\n", db.Type)
	fmt.Fprintf(b, "Size:            %s\n", FormatBytes(uint64(max(db.SizeBytes, 0))))
	if !db.Migrated {
		fmt.Fprintln(b, "Schema:          not migrated (run cmd/migrate)")
	} else {
		fmt.Fprintf(b, "Schema:          version %d\n", db.SchemaVersion)
		fmt.Fprintf(b, "Cities:          %d\n", db.Cities)
		fmt.Fprintf(b, "Favorites:       %d\n", db.Favorites)
		fmt.Fprintln(b, "Table Statistics:")
		for _, ts := range db.TableStats {
			fmt.Fprintf(b, "  %-25s: %10d rows", ts.Name, ts.RowCount)
			if ts.SizeBytes > 0 {
				fmt.Fprintf(b, " (%s)", FormatBytes(uint64(ts.SizeBytes)))
			}
			fmt.Fprintln(b)
		}
	}
	fmt.Fprintln(b)

	fmt.Fprintln(b, "--- Runtime Statistics ---")
	fmt.Fprintf(b, "Goroutines:      %d\n", s.Runtime.NumGoroutines)
	fmt.Fprintf(b, "CPUs:            %d\n", s.Runtime.NumCPU)
	fmt.Fprintf(b, "Uptime:          %ds\n", s.Runtime.UptimeSeconds)

	return b.Flush()
}

// FormatBytes renders a byte count with a binary unit, e.g. "1.50 KB".
func FormatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
