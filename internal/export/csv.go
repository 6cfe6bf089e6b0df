// Package export renders consolidated harvest results for human consumption.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/ekaval/estate-harvester/internal/record"
)

// WriteCSV writes the records as CSV with one column per known field, in the
// canonical field order. Fields a record never captured render as empty
// cells; boolean fields render as "true"/"false".
func WriteCSV(w io.Writer, records []record.Merged) error {
	fields := record.FieldOrder()
	cw := csv.NewWriter(w)

	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = string(f)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	row := make([]string, len(fields))
	for i := range records {
		for j, f := range fields {
			row[j] = cellValue(&records[i], f)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func cellValue(rec *record.Merged, f record.Field) string {
	if v, ok := rec.Get(f); ok {
		return v
	}
	if b, ok := rec.GetBool(f); ok {
		return strconv.FormatBool(b)
	}
	return ""
}
