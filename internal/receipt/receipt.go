package receipt

import (
	"fmt"
	"strings"

	"github.com/Kwoolford/pos-terminal/internal/api"
)

// Width is the character width of the register tape.
const Width = 40

// StoreInfo holds the header lines printed at the top of every receipt.
type StoreInfo struct {
	Name    string
	Address string
	Phone   string
}

// Render formats a receipt as register tape text.
func Render(r *api.Receipt, store StoreInfo) string {
	var b strings.Builder

	rule := strings.Repeat("=", Width)
	dashed := strings.Repeat("-", Width)

	b.WriteString(center(store.Name) + "\n")
	if store.Address != "" {
		b.WriteString(center(store.Address) + "\n")
	}
	if store.Phone != "" {
		b.WriteString(center("Phone: "+store.Phone) + "\n")
	}
	b.WriteString(rule + "\n")

	row(&b, "Order Number:", r.OrderNumber)
	row(&b, "Date:", r.Date.Local().Format("01/02/2006 3:04 PM"))
	if r.Cashier != "" {
		row(&b, "Cashier:", r.Cashier)
	}
	b.WriteString(dashed + "\n")

	for _, item := range r.Items {
		row(&b, item.Name, money(item.LineTotal))
		detail := fmt.Sprintf("  %d x %s", item.Qty, money(item.UnitPrice))
		if item.Discount > 0 {
			detail += fmt.Sprintf(" (Discount: -%s)", money(item.Discount))
		}
		b.WriteString(detail + "\n")
	}
	b.WriteString(dashed + "\n")

	row(&b, "Subtotal:", money(r.Subtotal))
	if r.DiscountTotal > 0 {
		row(&b, "Discount:", "-"+money(r.DiscountTotal))
	}
	row(&b, "Tax:", money(r.TaxTotal))
	row(&b, "TOTAL:", money(r.Total))
	b.WriteString(dashed + "\n")

	row(&b, "Payment Method:", capitalize(r.PaymentMethod))
	b.WriteString(rule + "\n")
	b.WriteString(center("Thank you for shopping with us!") + "\n")
	b.WriteString(center("Please retain this receipt") + "\n")

	return b.String()
}

func row(b *strings.Builder, label, value string) {
	pad := Width - len(label) - len(value)
	if pad < 1 {
		pad = 1
	}
	b.WriteString(label + strings.Repeat(" ", pad) + value + "\n")
}

func center(s string) string {
	if len(s) >= Width {
		return s
	}
	left := (Width - len(s)) / 2
	return strings.Repeat(" ", left) + s
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func money(v float64) string {
	if v < 0 {
		return fmt.Sprintf("-$%.2f", -v)
	}
	return fmt.Sprintf("$%.2f", v)
}
