/*
Package ledger owns the persisted daily sales ledger.

PURPOSE:
  The ledger is the single source of truth for aggregated daily sales.
  It is a CSV file with a fixed 17-column schema: one header row, then
  exactly one row per calendar date, in strictly increasing date order.
  The file is both input (to resolve the next date to fetch) and output
  (appended to, one day at a time).

CRITICAL INVARIANTS:
  1. APPEND-ONLY: rows are never updated or deleted; a refresh rewrites
     the whole file, an update only appends.
  2. ONE ROW PER DATE: once fully populated there are no gaps and no
     duplicate dates.
  3. SINGLE CONVERSION: every monetary field is accumulated as integer
     cents and converted to major units exactly once, when the record
     is built. Rows never carry per-transaction rounding drift.

COLUMN ORDER:
  The column order is fixed and significant; downstream consumers
  (forecast preparation, report export) address columns by name but the
  file is written positionally.

SEE ALSO:
  - resolver.go: locating the next unrecorded date
  - writer.go:   appending rows / rebuilding the file
  - aggregate:   produces one DailyRecord per day from payment data
*/
package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the ledger's date format for the Sales column.
const DateLayout = "01/02/2006"

// Columns is the fixed, order-significant header of the ledger file.
var Columns = []string{
	"Sales",
	"Gross Sales",
	"Returns",
	"Discounts & Comps",
	"Net Sales",
	"Gift Card Sales",
	"Tax",
	"Tip",
	"Refunds by Amount",
	"Total",
	"Total Collected",
	"Cash",
	"Card",
	"Other",
	"Gift Card",
	"Fees",
	"Net Total",
}

// =============================================================================
// CENTS - Integer minor-unit accumulators for one day
// =============================================================================

// Cents holds the raw per-day accumulators in integer minor units.
// Fields are summed across every countable payment of the day; the
// derived fields (net sales, net total, tender split) are computed in
// FromCents, not here.
type Cents struct {
	Gross    int64
	Tip      int64
	Refunded int64
	Total    int64
	Fees     int64 // sum of all processing-fee line items, positive sign
}

// Add accumulates another day's partial totals (used across pages).
func (c *Cents) Add(o Cents) {
	c.Gross += o.Gross
	c.Tip += o.Tip
	c.Refunded += o.Refunded
	c.Total += o.Total
	c.Fees += o.Fees
}

// =============================================================================
// DAILY RECORD - One fully-derived ledger row
// =============================================================================

// DailyRecord is one day's aggregate in major currency units.
//
// INVARIANTS (enforced by FromCents):
//   - NetTotal  = Total - Fees (fees accumulate with positive sign)
//   - NetSales  = GrossSales - RefundsByAmount
//   - TotalCollected = Card = Total (all recorded tenders treated as card)
//   - Returns, DiscountsComps, GiftCardSales, Tax, Cash, Other, GiftCard
//     are never computed by this pipeline; they stay zero and are
//     reserved for manual entry. (The payments source reports tax at the
//     order level, which this pipeline does not fetch.)
type DailyRecord struct {
	Date            time.Time
	GrossSales      decimal.Decimal
	Returns         decimal.Decimal
	DiscountsComps  decimal.Decimal
	NetSales        decimal.Decimal
	GiftCardSales   decimal.Decimal
	Tax             decimal.Decimal
	Tip             decimal.Decimal
	RefundsByAmount decimal.Decimal
	Total           decimal.Decimal
	TotalCollected  decimal.Decimal
	Cash            decimal.Decimal
	Card            decimal.Decimal
	Other           decimal.Decimal
	GiftCard        decimal.Decimal
	Fees            decimal.Decimal
	NetTotal        decimal.Decimal
}

// FromCents derives a complete DailyRecord from one day's accumulators.
// This is the single point where minor units become major units:
// decimal.New(cents, -2) is an exact scale shift, so no precision is
// lost regardless of how many payments were summed.
func FromCents(date time.Time, c Cents) DailyRecord {
	usd := func(cents int64) decimal.Decimal { return decimal.New(cents, -2) }

	netTotal := c.Total - c.Fees
	netSales := c.Gross - c.Refunded

	return DailyRecord{
		Date:            date,
		GrossSales:      usd(c.Gross),
		Returns:         decimal.Zero,
		DiscountsComps:  decimal.Zero,
		NetSales:        usd(netSales),
		GiftCardSales:   decimal.Zero,
		Tax:             decimal.Zero,
		Tip:             usd(c.Tip),
		RefundsByAmount: usd(c.Refunded),
		Total:           usd(c.Total),
		TotalCollected:  usd(c.Total),
		Cash:            decimal.Zero,
		Card:            usd(c.Total),
		Other:           decimal.Zero,
		GiftCard:        decimal.Zero,
		Fees:            usd(c.Fees),
		NetTotal:        usd(netTotal),
	}
}

// Row serializes the record in the fixed column order.
func (r DailyRecord) Row() []string {
	return []string{
		r.Date.Format(DateLayout),
		r.GrossSales.String(),
		r.Returns.String(),
		r.DiscountsComps.String(),
		r.NetSales.String(),
		r.GiftCardSales.String(),
		r.Tax.String(),
		r.Tip.String(),
		r.RefundsByAmount.String(),
		r.Total.String(),
		r.TotalCollected.String(),
		r.Cash.String(),
		r.Card.String(),
		r.Other.String(),
		r.GiftCard.String(),
		r.Fees.String(),
		r.NetTotal.String(),
	}
}

// ParseRow rebuilds a DailyRecord from a ledger row.
func ParseRow(row []string) (DailyRecord, error) {
	if len(row) != len(Columns) {
		return DailyRecord{}, fmt.Errorf("ledger row has %d fields, want %d", len(row), len(Columns))
	}
	date, err := time.Parse(DateLayout, row[0])
	if err != nil {
		return DailyRecord{}, &ParseError{Field: "Sales", Value: row[0], Err: err}
	}

	dec := make([]decimal.Decimal, len(row))
	for i := 1; i < len(row); i++ {
		d, err := decimal.NewFromString(row[i])
		if err != nil {
			return DailyRecord{}, &ParseError{Field: Columns[i], Value: row[i], Err: err}
		}
		dec[i] = d
	}

	return DailyRecord{
		Date:            date,
		GrossSales:      dec[1],
		Returns:         dec[2],
		DiscountsComps:  dec[3],
		NetSales:        dec[4],
		GiftCardSales:   dec[5],
		Tax:             dec[6],
		Tip:             dec[7],
		RefundsByAmount: dec[8],
		Total:           dec[9],
		TotalCollected:  dec[10],
		Cash:            dec[11],
		Card:            dec[12],
		Other:           dec[13],
		GiftCard:        dec[14],
		Fees:            dec[15],
		NetTotal:        dec[16],
	}, nil
}
