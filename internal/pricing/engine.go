package pricing

// TaxRate is the fixed sales tax applied at the whole-cart level (8.5%).
// The backend recomputes totals with the same constant at order creation
// and its result is authoritative on any mismatch.
const TaxRate = 0.085

// Line describes one cart line used for totals calculation.
type Line struct {
	Qty       int
	UnitPrice float64
	Discount  float64
}

// Summary aggregates computed pricing components.
type Summary struct {
	Subtotal      float64
	DiscountTotal float64
	Tax           float64
	Total         float64
}

// Compute derives cart totals from the provided lines and cart-level
// discount. Line discounts are netted inside the subtotal; the cart
// discount is applied once, at the whole-cart level, before tax:
//
//	subtotal      = sum(unit_price*qty - line_discount)
//	discountTotal = sum(line_discount) + cartDiscount
//	tax           = (subtotal - cartDiscount) * TaxRate
//	total         = subtotal - cartDiscount + tax
//
// Nothing is clamped to zero: discounts exceeding line or cart value
// produce negative components. Callers validate discount inputs before
// accepting them.
func Compute(lines []Line, cartDiscount float64) Summary {
	var subtotal, lineDiscounts float64
	for _, l := range lines {
		if l.Qty <= 0 {
			continue
		}
		subtotal += float64(l.Qty)*l.UnitPrice - l.Discount
		lineDiscounts += l.Discount
	}
	taxable := subtotal - cartDiscount
	tax := taxable * TaxRate
	return Summary{
		Subtotal:      subtotal,
		DiscountTotal: lineDiscounts + cartDiscount,
		Tax:           tax,
		Total:         taxable + tax,
	}
}
