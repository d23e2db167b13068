package payment

import (
	"math"

	"github.com/Kwoolford/pos-terminal/internal/common"
)

// Method identifies how the customer pays.
type Method string

const (
	MethodCash   Method = "cash"
	MethodCredit Method = "credit"
	MethodSplit  Method = "split"
)

// Valid reports whether the method is one of the supported tender types.
func (m Method) Valid() bool {
	switch m {
	case MethodCash, MethodCredit, MethodSplit:
		return true
	}
	return false
}

// SplitTolerance is the maximum rounding drift allowed when checking that a
// split payment covers the order total.
const SplitTolerance = 0.01

// Details is the tender breakdown submitted with an order. Cash and credit
// amounts are only meaningful for split payments.
type Details struct {
	Method       Method  `json:"method" validate:"required,oneof=cash credit split"`
	CashAmount   float64 `json:"cash_amount,omitempty" validate:"gte=0"`
	CreditAmount float64 `json:"credit_amount,omitempty" validate:"gte=0"`
}

// Validate checks the tender against the order total. Single-tender payments
// always cover the total; split payments must add up within SplitTolerance.
func (d Details) Validate(orderTotal float64) error {
	if !d.Method.Valid() {
		return common.ValidationError("unsupported payment method")
	}
	if d.Method != MethodSplit {
		return nil
	}
	if d.CashAmount < 0 || d.CreditAmount < 0 {
		return common.ValidationError("payment amounts cannot be negative")
	}
	if math.Abs(d.CashAmount+d.CreditAmount-orderTotal) > SplitTolerance {
		return common.ValidationError("cash and credit amounts must equal the order total")
	}
	return nil
}
