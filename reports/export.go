package reports

import (
	"fmt"
	"sort"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/sunrise/sales-engine/ledger"
)

// ExportXLSX writes the full ledger to a spreadsheet, one row per day,
// same column order as the CSV.
func ExportXLSX(records []ledger.DailyRecord, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"

	header := make([]interface{}, len(ledger.Columns))
	for i, c := range ledger.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("reports: write header: %w", err)
	}

	for i, rec := range records {
		row := rec.Row()
		cells := make([]interface{}, len(row))
		cells[0] = row[0]
		for j := 1; j < len(row); j++ {
			// Amounts go in as numbers so the sheet can sum them.
			v, _ := decimal.RequireFromString(row[j]).Float64()
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("reports: write row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("reports: save %s: %w", path, err)
	}
	return nil
}

// monthTotal is one month's rollup for the PDF summary.
type monthTotal struct {
	month    string // YYYY-MM
	gross    decimal.Decimal
	netSales decimal.Decimal
	fees     decimal.Decimal
	netTotal decimal.Decimal
	days     int // open days (non-zero gross)
}

// MonthlyPDF writes a one-page month-by-month summary of the ledger.
func MonthlyPDF(records []ledger.DailyRecord, path string) error {
	totals := map[string]*monthTotal{}
	for _, rec := range records {
		key := rec.Date.Format("2006-01")
		mt, ok := totals[key]
		if !ok {
			mt = &monthTotal{month: key}
			totals[key] = mt
		}
		mt.gross = mt.gross.Add(rec.GrossSales)
		mt.netSales = mt.netSales.Add(rec.NetSales)
		mt.fees = mt.fees.Add(rec.Fees)
		mt.netTotal = mt.netTotal.Add(rec.NetTotal)
		if !rec.GrossSales.IsZero() {
			mt.days++
		}
	}

	months := make([]*monthTotal, 0, len(totals))
	for _, mt := range totals {
		months = append(months, mt)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].month < months[j].month })

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 10, "Monthly Sales Summary")
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 10)
	colW := []float64{25, 33, 33, 33, 33, 20}
	headers := []string{"Month", "Gross Sales", "Net Sales", "Fees", "Net Total", "Open Days"}
	for i, h := range headers {
		pdf.CellFormat(colW[i], 7, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	for _, mt := range months {
		cells := []string{
			mt.month,
			mt.gross.StringFixed(2),
			mt.netSales.StringFixed(2),
			mt.fees.StringFixed(2),
			mt.netTotal.StringFixed(2),
			fmt.Sprintf("%d", mt.days),
		}
		for i, c := range cells {
			align := "R"
			if i == 0 {
				align = "L"
			}
			pdf.CellFormat(colW[i], 6, c, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("reports: save %s: %w", path, err)
	}
	return nil
}
