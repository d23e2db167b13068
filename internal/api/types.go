package api

import (
	"time"

	"github.com/Kwoolford/pos-terminal/internal/payment"
)

// Product is the catalog record as served by the backend.
type Product struct {
	ID               int64     `json:"id"`
	SKU              string    `json:"sku"`
	Barcode          string    `json:"barcode,omitempty"`
	Name             string    `json:"name"`
	Description      string    `json:"description,omitempty"`
	Category         string    `json:"category,omitempty"`
	Price            float64   `json:"price"`
	Cost             float64   `json:"cost"`
	Taxable          bool      `json:"taxable"`
	ReorderThreshold int       `json:"reorder_threshold"`
	ReorderQty       int       `json:"reorder_qty"`
	Location         string    `json:"location,omitempty"`
	Status           string    `json:"status"`
	OnHand           int       `json:"on_hand"`
	CreatedAt        time.Time `json:"created_at"`
}

// ProductCreate is the payload for registering a new product.
type ProductCreate struct {
	SKU              string  `json:"sku" validate:"required"`
	Barcode          string  `json:"barcode,omitempty"`
	Name             string  `json:"name" validate:"required"`
	Description      string  `json:"description,omitempty"`
	Category         string  `json:"category,omitempty"`
	Price            float64 `json:"price" validate:"gte=0"`
	Cost             float64 `json:"cost" validate:"gte=0"`
	Taxable          bool    `json:"taxable"`
	ReorderThreshold int     `json:"reorder_threshold" validate:"gte=0"`
	ReorderQty       int     `json:"reorder_qty" validate:"gte=0"`
	Location         string  `json:"location,omitempty"`
}

// ProductUpdate carries a partial update; nil fields are left untouched.
type ProductUpdate struct {
	Name             *string  `json:"name,omitempty"`
	Description      *string  `json:"description,omitempty"`
	Category         *string  `json:"category,omitempty"`
	Price            *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	Cost             *float64 `json:"cost,omitempty" validate:"omitempty,gte=0"`
	Taxable          *bool    `json:"taxable,omitempty"`
	ReorderThreshold *int     `json:"reorder_threshold,omitempty" validate:"omitempty,gte=0"`
	ReorderQty       *int     `json:"reorder_qty,omitempty" validate:"omitempty,gte=0"`
	Location         *string  `json:"location,omitempty"`
}

// StockAdjustment records a manual on-hand correction.
type StockAdjustment struct {
	Delta  int    `json:"delta" validate:"required"`
	Reason string `json:"reason" validate:"required"`
}

// ListProductsParams are the paging and filter knobs for the catalog listing.
type ListProductsParams struct {
	Skip     int
	Limit    int
	Category string
	Search   string
}

// OrderItemCreate is one sale line inside an order submission.
type OrderItemCreate struct {
	ProductID int64   `json:"product_id" validate:"required"`
	Qty       int     `json:"qty" validate:"gt=0"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
	Discount  float64 `json:"discount" validate:"gte=0"`
}

// OrderCreate is the checkout payload. Totals are computed locally and
// re-verified server side; on mismatch the server totals win.
type OrderCreate struct {
	CustomerID     *int64            `json:"customer_id,omitempty"`
	Items          []OrderItemCreate `json:"items" validate:"required,min=1,dive"`
	Subtotal       float64           `json:"subtotal"`
	DiscountTotal  float64           `json:"discount_total"`
	TaxTotal       float64           `json:"tax_total"`
	Total          float64           `json:"total"`
	PaymentDetails payment.Details   `json:"payment_details" validate:"required"`
}

// OrderItem is a persisted sale line.
type OrderItem struct {
	ID        int64   `json:"id"`
	ProductID int64   `json:"product_id"`
	Qty       int     `json:"qty"`
	UnitPrice float64 `json:"unit_price"`
	Discount  float64 `json:"discount"`
	LineTotal float64 `json:"line_total"`
}

// Order is a completed sale as returned by the backend.
type Order struct {
	ID            int64       `json:"id"`
	OrderNumber   string      `json:"order_number"`
	CustomerID    *int64      `json:"customer_id,omitempty"`
	Subtotal      float64     `json:"subtotal"`
	DiscountTotal float64     `json:"discount_total"`
	TaxTotal      float64     `json:"tax_total"`
	Total         float64     `json:"total"`
	Items         []OrderItem `json:"items"`
	CreatedAt     time.Time   `json:"created_at"`
}

// CartValidationItem names a product and quantity to verify before checkout.
type CartValidationItem struct {
	ProductID int64 `json:"product_id"`
	Qty       int   `json:"qty"`
}

// CartValidationRequest asks the backend to confirm availability and pricing.
type CartValidationRequest struct {
	Items []CartValidationItem `json:"items" validate:"required,min=1"`
}

// CartTotals are the authoritative server-computed totals.
type CartTotals struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// CartValidationResult reports stock problems and server totals.
type CartValidationResult struct {
	Valid  bool       `json:"valid"`
	Errors []string   `json:"errors"`
	Totals CartTotals `json:"totals"`
}

// LookupItem is an order line in a returns lookup, including the derived
// line total used for refund proration.
type LookupItem struct {
	ID          int64   `json:"id"`
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	Qty         int     `json:"qty"`
	UnitPrice   float64 `json:"unit_price"`
	Discount    float64 `json:"discount"`
	LineTotal   float64 `json:"line_total"`
}

// OrderLookup is the order summary returned when a clerk searches by order
// or receipt number.
type OrderLookup struct {
	ID            int64        `json:"id"`
	OrderNumber   string       `json:"order_number"`
	CreatedAt     time.Time    `json:"created_at"`
	Subtotal      float64      `json:"subtotal"`
	DiscountTotal float64      `json:"discount_total"`
	TaxTotal      float64      `json:"tax_total"`
	Total         float64      `json:"total"`
	PaymentMethod string       `json:"payment_method"`
	CashierID     int64        `json:"cashier_id"`
	Items         []LookupItem `json:"items"`
}

// ReturnItemCreate selects one order line and quantity for refund.
type ReturnItemCreate struct {
	OrderItemID int64 `json:"order_item_id" validate:"required"`
	Qty         int   `json:"qty" validate:"gt=0"`
	Damaged     bool  `json:"damaged"`
}

// ReturnCreate is the refund submission payload. Lines with zero quantity
// are never included.
type ReturnCreate struct {
	OrderID int64              `json:"order_id" validate:"required"`
	Items   []ReturnItemCreate `json:"items" validate:"required,min=1,dive"`
	Reason  string             `json:"reason,omitempty"`
}

// ReturnedItem echoes one processed refund line.
type ReturnedItem struct {
	OrderItemID  int64   `json:"order_item_id"`
	ProductID    int64   `json:"product_id"`
	Qty          int     `json:"qty"`
	Damaged      bool    `json:"damaged"`
	RefundAmount float64 `json:"refund_amount"`
}

// ReturnResult is the backend's record of a processed refund.
type ReturnResult struct {
	OrderID       int64          `json:"order_id"`
	OrderNumber   string         `json:"order_number"`
	RefundAmount  float64        `json:"refund_amount"`
	RefundMethod  string         `json:"refund_method"`
	ItemsReturned []ReturnedItem `json:"items_returned"`
	ProcessedAt   time.Time      `json:"processed_at"`
	ProcessedBy   string         `json:"processed_by"`
}

// ReceiptLine is one printable receipt row.
type ReceiptLine struct {
	Name      string  `json:"name"`
	Qty       int     `json:"qty"`
	UnitPrice float64 `json:"unit_price"`
	Discount  float64 `json:"discount"`
	LineTotal float64 `json:"line_total"`
}

// Receipt is the printable view of a completed order.
type Receipt struct {
	OrderNumber   string        `json:"order_number"`
	Date          time.Time     `json:"date"`
	Items         []ReceiptLine `json:"items"`
	Subtotal      float64       `json:"subtotal"`
	DiscountTotal float64       `json:"discount_total"`
	TaxTotal      float64       `json:"tax_total"`
	Total         float64       `json:"total"`
	PaymentMethod string        `json:"payment_method"`
	Cashier       string        `json:"cashier"`
}
