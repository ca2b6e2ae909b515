package export

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/xuri/excelize/v2"

	"example.com/timereport/internal/report"
)

// DefaultSheet is the worksheet name used when none is configured.
const DefaultSheet = "Sheet1"

// ConvertToSpreadsheet copies a UTF-8 CSV into a single xlsx worksheet. Columns whose
// values all parse as numbers are stored as numeric cells, everything else as text.
func ConvertToSpreadsheet(r io.Reader, w io.Writer, sheet string) (err error) {
	records, err := readRecords(r)
	if err != nil {
		return err
	}
	if sheet == "" {
		sheet = DefaultSheet
	}

	f := excelize.NewFile()
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	if sheet != DefaultSheet {
		if err := f.SetSheetName(DefaultSheet, sheet); err != nil {
			return fmt.Errorf("rename sheet: %w", err)
		}
	}

	numeric := numericColumns(records)
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("open sheet writer: %w", err)
	}
	for i, record := range records {
		cells := make([]interface{}, len(record))
		for j, field := range record {
			cells[j] = field
			if i > 0 && numeric[j] {
				v, _ := strconv.ParseFloat(field, 64)
				cells[j] = v
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return fmt.Errorf("write sheet row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	return f.Write(w)
}

// ConvertFile converts the CSV at src into an xlsx file at dst atomically.
func ConvertFile(src, dst, sheet string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	return WriteFileAtomic(dst, func(w io.Writer) error {
		return ConvertToSpreadsheet(in, w, sheet)
	})
}

func numericColumns(records [][]string) []bool {
	width := len(records[0])
	numeric := make([]bool, width)
	if len(records) < 2 {
		return numeric
	}
	for j := range numeric {
		numeric[j] = true
	}
	for _, record := range records[1:] {
		for j := 0; j < width && j < len(record); j++ {
			if !numeric[j] {
				continue
			}
			if !plainNumber(record[j]) {
				numeric[j] = false
			}
		}
	}
	return numeric
}

// plainNumber reports whether field is a finite decimal that a numeric cell renders back
// to the same text. Forms like "NaN", "inf", "1e3" or "1.50" stay text.
func plainNumber(field string) bool {
	v, err := strconv.ParseFloat(field, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return field == strconv.FormatFloat(v, 'f', -1, 64) || field == report.FormatFloat(v)
}
