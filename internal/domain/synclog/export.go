package synclog

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"
)

// ExportTimeLayout is the timestamp format of exported logs.
const ExportTimeLayout = "2006-01-02 15:04:05"

var exportHeader = []string{
	"ID", "Timestamp", "Operation", "Product SKU", "Product Name", "Platform", "Status", "Details",
}

// ExportFileName returns the download name of a log export made on day.
func ExportFileName(day time.Time) string {
	return fmt.Sprintf("sync_logs_%s.csv", day.Format("2006-01-02"))
}

// WriteCSV writes entries as CSV with a header row, in the given order.
func WriteCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, e := range entries {
		row := []string{
			e.ID,
			e.Timestamp.Format(ExportTimeLayout),
			string(e.Operation),
			e.ProductSKU,
			e.ProductName,
			e.Platform.DisplayName(),
			string(e.Status),
			e.Details,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write entry %s: %w", e.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
