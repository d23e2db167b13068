package returns

import (
	"github.com/Kwoolford/pos-terminal/internal/common"
)

// Candidate is an order line eligible for return, annotated with the
// clerk's in-progress selection.
type Candidate struct {
	OrderItemID int64
	ProductID   int64
	ProductName string
	UnitPrice   float64
	OriginalQty int
	LineTotal   float64
	Requested   int
	Damaged     bool
}

// SetRequested sets the quantity the customer is returning, clamped to the
// range [0, OriginalQty].
func (c *Candidate) SetRequested(qty int) {
	if qty < 0 {
		qty = 0
	}
	if qty > c.OriginalQty {
		qty = c.OriginalQty
	}
	c.Requested = qty
}

// Refund returns the prorated refund for the requested quantity. Proration
// works from the line total so line discounts reduce the per-unit refund.
func (c Candidate) Refund() float64 {
	if c.Requested <= 0 || c.OriginalQty <= 0 {
		return 0
	}
	return c.LineTotal / float64(c.OriginalQty) * float64(c.Requested)
}

// ErrNoItemsSelected is returned when a return is submitted with every
// quantity at zero.
var ErrNoItemsSelected = common.ValidationError("select at least one item to return")

// Selection is the set of candidates for one original order.
type Selection struct {
	OrderID    int64
	Candidates []Candidate
}

// TotalRefund sums the prorated refunds across all candidates.
func (s Selection) TotalRefund() float64 {
	total := 0.0
	for _, c := range s.Candidates {
		total += c.Refund()
	}
	return total
}

// Selected returns only the candidates with a requested quantity above zero.
func (s Selection) Selected() []Candidate {
	out := make([]Candidate, 0, len(s.Candidates))
	for _, c := range s.Candidates {
		if c.Requested > 0 {
			out = append(out, c)
		}
	}
	return out
}

// Validate checks that at least one item has been selected.
func (s Selection) Validate() error {
	if len(s.Selected()) == 0 {
		return ErrNoItemsSelected
	}
	return nil
}
