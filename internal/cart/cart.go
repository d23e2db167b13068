package cart

import (
	"github.com/Kwoolford/pos-terminal/internal/common"
	"github.com/Kwoolford/pos-terminal/internal/pricing"
)

// Item is a single cart line. A product appears at most once; adding the same
// product again increments the quantity on its existing line.
type Item struct {
	ProductID      int64
	Name           string
	SKU            string
	UnitPrice      float64
	Qty            int
	Discount       float64
	DiscountReason string
}

// Cart holds the in-progress sale for one terminal session. It is the local
// working copy; pricing shown here is advisory until the backend confirms the
// order.
type Cart struct {
	items        []Item
	index        map[int64]int
	discount     float64
	discountCode string
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{index: make(map[int64]int)}
}

// AddItem adds qty units of the product. If the product is already in the
// cart the existing line quantity is incremented. A qty below 1 defaults
// to 1.
func (c *Cart) AddItem(productID int64, name, sku string, unitPrice float64, qty int) {
	if qty < 1 {
		qty = 1
	}
	if pos, ok := c.index[productID]; ok {
		c.items[pos].Qty += qty
		return
	}
	c.index[productID] = len(c.items)
	c.items = append(c.items, Item{
		ProductID: productID,
		Name:      name,
		SKU:       sku,
		UnitPrice: unitPrice,
		Qty:       qty,
	})
}

// RemoveItem removes the product's line. Removing an absent product is a
// no-op.
func (c *Cart) RemoveItem(productID int64) {
	pos, ok := c.index[productID]
	if !ok {
		return
	}
	c.items = append(c.items[:pos], c.items[pos+1:]...)
	delete(c.index, productID)
	for i := pos; i < len(c.items); i++ {
		c.index[c.items[i].ProductID] = i
	}
}

// UpdateQuantity sets the line quantity. A quantity of zero or less removes
// the line entirely.
func (c *Cart) UpdateQuantity(productID int64, qty int) {
	if qty <= 0 {
		c.RemoveItem(productID)
		return
	}
	if pos, ok := c.index[productID]; ok {
		c.items[pos].Qty = qty
	}
}

// UpdateItemDiscount applies a flat dollar discount to the line along with an
// optional reason shown on the receipt.
func (c *Cart) UpdateItemDiscount(productID int64, amount float64, reason string) error {
	if amount < 0 {
		return common.ValidationError("discount cannot be negative")
	}
	pos, ok := c.index[productID]
	if !ok {
		return common.ValidationError("item not in cart")
	}
	c.items[pos].Discount = amount
	c.items[pos].DiscountReason = reason
	return nil
}

// SetCartDiscount applies a flat dollar discount across the whole order.
// The code is a free-text label for the discount; empty means none.
func (c *Cart) SetCartDiscount(amount float64, code string) error {
	if amount < 0 {
		return common.ValidationError("discount cannot be negative")
	}
	c.discount = amount
	c.discountCode = code
	return nil
}

// CartDiscount returns the order-level discount.
func (c *Cart) CartDiscount() float64 {
	return c.discount
}

// CartDiscountCode returns the label attached to the order-level discount.
func (c *Cart) CartDiscountCode() string {
	return c.discountCode
}

// Clear empties the cart and resets the order-level discount. Clearing an
// already empty cart is a no-op.
func (c *Cart) Clear() {
	c.items = nil
	c.index = make(map[int64]int)
	c.discount = 0
	c.discountCode = ""
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// ItemCount returns the total unit count across all lines.
func (c *Cart) ItemCount() int {
	n := 0
	for _, it := range c.items {
		n += it.Qty
	}
	return n
}

// Totals computes the advisory pricing summary for the current cart contents.
func (c *Cart) Totals() pricing.Summary {
	lines := make([]pricing.Line, 0, len(c.items))
	for _, it := range c.items {
		lines = append(lines, pricing.Line{
			Qty:       it.Qty,
			UnitPrice: it.UnitPrice,
			Discount:  it.Discount,
		})
	}
	return pricing.Compute(lines, c.discount)
}
