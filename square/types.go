/*
Package square is the payments-source client.

PURPOSE:
  Wraps the payments API's ListPayments endpoint: time-windowed listing
  of payment records with opaque-cursor pagination. The aggregate
  package consumes this through the PaymentLister interface, so tests
  substitute a fake without any HTTP.

WIRE FORMAT:
  JSON as served by the API. Every monetary sub-field is optional; an
  absent field contributes zero to aggregation. Amounts are integer
  minor units (cents).

SEE ALSO:
  - client.go:  HTTP implementation
  - aggregate:  reduces pages of payments into one daily record
*/
package square

import "time"

// Payment statuses that count toward aggregation. Anything else
// (FAILED, CANCELED, PENDING, ...) is excluded entirely.
const (
	StatusCompleted = "COMPLETED"
	StatusApproved  = "APPROVED"
)

// Money is an integer amount in minor currency units.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency,omitempty"`
}

// ProcessingFee is one fee line item attached to a payment.
type ProcessingFee struct {
	AmountMoney *Money `json:"amount_money,omitempty"`
	Type        string `json:"type,omitempty"`
}

// Payment is one payment event as returned by ListPayments. All
// monetary sub-fields are optional.
type Payment struct {
	ID            string          `json:"id"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	AmountMoney   *Money          `json:"amount_money,omitempty"`
	TipMoney      *Money          `json:"tip_money,omitempty"`
	RefundedMoney *Money          `json:"refunded_money,omitempty"`
	TotalMoney    *Money          `json:"total_money,omitempty"`
	ProcessingFee []ProcessingFee `json:"processing_fee,omitempty"`
}

// Countable reports whether the payment's status contributes to the
// daily aggregate.
func (p Payment) Countable() bool {
	return p.Status == StatusCompleted || p.Status == StatusApproved
}

// Amount helpers: absent sub-fields are zero.

func (p Payment) Gross() int64    { return amount(p.AmountMoney) }
func (p Payment) Tip() int64      { return amount(p.TipMoney) }
func (p Payment) Refunded() int64 { return amount(p.RefundedMoney) }
func (p Payment) Total() int64    { return amount(p.TotalMoney) }

// FeeTotal sums every processing-fee line item.
func (p Payment) FeeTotal() int64 {
	var total int64
	for _, fee := range p.ProcessingFee {
		total += amount(fee.AmountMoney)
	}
	return total
}

func amount(m *Money) int64 {
	if m == nil {
		return 0
	}
	return m.Amount
}

// Page is one response from ListPayments. A non-empty Cursor means more
// results exist for the same window.
type Page struct {
	Payments []Payment `json:"payments"`
	Cursor   string    `json:"cursor,omitempty"`
}
