package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// ReadAll loads every data row of the ledger. Used by the forecasting
// and export paths, which need the full history; the incremental
// pipeline itself never loads the whole file (see resolver.go).
func ReadAll(path string) ([]DailyRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(Columns)

	header, err := r.Read()
	if err == io.EOF {
		return nil, &ParseError{Field: "header", Value: "", Err: ErrEmptyLedger}
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: read header: %w", err)
	}
	if header[0] != Columns[0] {
		return nil, &ParseError{Field: "header", Value: header[0], Err: fmt.Errorf("want %q", Columns[0])}
	}

	var records []DailyRecord
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ledger: read row: %w", err)
		}
		rec, err := ParseRow(row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
