/*
Package reports handles the dashboard's downloadable sales summaries and
ledger exports.

The payment provider's dashboard exports yearly summaries transposed
relative to the ledger (metrics as rows, periods as columns) with
display formatting ($ signs, thousands separators). Merging turns a set
of those exports into one clean table comparable with the ledger.
*/
package reports

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// droppedColumns are summary columns with no ledger counterpart.
var droppedColumns = map[string]bool{"Payments": true}

var nonAmount = regexp.MustCompile(`[^-\d.]`)

// CleanAmount strips display formatting ("$1,234.56", "(–)", NBSP
// variants) down to a decimal. Empty cells are zero.
func CleanAmount(s string) (decimal.Decimal, error) {
	cleaned := nonAmount.ReplaceAllString(s, "")
	if cleaned == "" || cleaned == "-" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("reports: cannot parse amount %q: %w", s, err)
	}
	return d, nil
}

// AddSuffix inserts a suffix before the file extension:
// sales-summary-2023.csv + "t" -> sales-summary-2023_t.csv.
func AddSuffix(path, suffix string) string {
	dir, file := filepath.Split(path)
	ext := filepath.Ext(file)
	name := strings.TrimSuffix(file, ext)
	return filepath.Join(dir, fmt.Sprintf("%s_%s%s", name, suffix, ext))
}

// Transpose rewrites a summary CSV with rows and columns swapped. An
// empty outPath derives one next to the input with a "_t" suffix.
func Transpose(inPath, outPath string) (string, error) {
	f, err := os.Open(inPath)
	if err != nil {
		return "", fmt.Errorf("reports: open %s: %w", inPath, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	data, err := r.ReadAll()
	if err != nil {
		return "", fmt.Errorf("reports: read %s: %w", inPath, err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("reports: %s is empty", inPath)
	}

	width := 0
	for _, row := range data {
		if len(row) > width {
			width = len(row)
		}
	}

	transposed := make([][]string, width)
	for c := 0; c < width; c++ {
		transposed[c] = make([]string, len(data))
		for rIdx, row := range data {
			if c < len(row) {
				transposed[c][rIdx] = row[c]
			}
		}
	}

	if outPath == "" {
		outPath = AddSuffix(inPath, "t")
	}
	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("reports: create %s: %w", outPath, err)
	}
	defer out.Close()

	w := csv.NewWriter(out)
	if err := w.WriteAll(transposed); err != nil {
		return "", fmt.Errorf("reports: write %s: %w", outPath, err)
	}
	return outPath, nil
}

// Combine concatenates transposed summaries into one table: the first
// file's header wins, unnamed and dropped columns are removed, and
// every non-date cell is cleaned to plain decimal text.
func Combine(files []string, outPath string) error {
	if len(files) == 0 {
		return fmt.Errorf("reports: no files to combine")
	}

	var (
		header []string
		keep   []int
		rows   [][]string
	)

	for i, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("reports: open %s: %w", path, err)
		}
		r := csv.NewReader(f)
		r.FieldsPerRecord = -1
		data, err := r.ReadAll()
		f.Close()
		if err != nil {
			return fmt.Errorf("reports: read %s: %w", path, err)
		}
		if len(data) == 0 {
			continue
		}

		if i == 0 {
			for c, name := range data[0] {
				if name == "" || strings.HasPrefix(name, "Unnamed") || droppedColumns[name] {
					continue
				}
				keep = append(keep, c)
				header = append(header, name)
			}
		}

		for _, row := range data[1:] {
			out := make([]string, 0, len(keep))
			for j, c := range keep {
				var cell string
				if c < len(row) {
					cell = row[c]
				}
				if j == 0 {
					// Date column passes through untouched.
					out = append(out, cell)
					continue
				}
				d, err := CleanAmount(cell)
				if err != nil {
					return err
				}
				out = append(out, d.String())
			}
			rows = append(rows, out)
		}
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("reports: create %s: %w", outPath, err)
	}
	defer out.Close()

	w := csv.NewWriter(out)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return nil
}
