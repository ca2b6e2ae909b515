// Package export writes finalized report tables and converts the written artifacts.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"example.com/timereport/internal/report"
)

// WriteCSV writes the header followed by one line per row.
func WriteCSV(w io.Writer, table report.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(table.Header()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range table.Rows() {
		if err := cw.Write(row.Record()); err != nil {
			return fmt.Errorf("write row %s: %w", row.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the table to path atomically.
func WriteCSVFile(path string, table report.Table) error {
	return WriteFileAtomic(path, func(w io.Writer) error {
		return WriteCSV(w, table)
	})
}

func readRecords(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read csv: no header")
	}
	return records, nil
}
