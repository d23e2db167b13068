package cart_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Kwoolford/pos-terminal/internal/cart"
	"github.com/Kwoolford/pos-terminal/internal/common"
)

func TestAddItemIncrementsExistingLine(t *testing.T) {
	c := cart.New()
	c.AddItem(1, "Widget", "WID-1", 10.00, 1)
	c.AddItem(1, "Widget", "WID-1", 10.00, 2)

	lines := c.Lines()
	require.Len(t, lines, 1, "same product must stay on one line")
	require.Equal(t, 3, lines[0].Qty)
	require.Equal(t, 3, c.ItemCount())
}

func TestAddItemDefaultsQuantityToOne(t *testing.T) {
	c := cart.New()
	c.AddItem(1, "Widget", "WID-1", 10.00, 0)
	require.Equal(t, 1, c.Lines()[0].Qty)
}

func TestUpdateQuantityZeroRemovesLine(t *testing.T) {
	c := cart.New()
	c.AddItem(1, "Widget", "WID-1", 10.00, 2)
	c.AddItem(2, "Gadget", "GAD-1", 5.00, 1)

	c.UpdateQuantity(1, 0)
	lines := c.Lines()
	require.Len(t, lines, 1)
	require.EqualValues(t, 2, lines[0].ProductID)

	// index must stay consistent after removal
	c.AddItem(2, "Gadget", "GAD-1", 5.00, 1)
	require.Equal(t, 2, c.Lines()[0].Qty)
}

func TestRemoveAbsentItemIsNoOp(t *testing.T) {
	c := cart.New()
	c.AddItem(1, "Widget", "WID-1", 10.00, 1)
	c.RemoveItem(99)
	require.Len(t, c.Lines(), 1)
}

func TestDiscountsFeedTotals(t *testing.T) {
	c := cart.New()
	c.AddItem(1, "Widget", "WID-1", 10.00, 3)

	require.NoError(t, c.UpdateItemDiscount(1, 2.00, "price match"))
	require.NoError(t, c.SetCartDiscount(5.00, ""))

	got := c.Totals()
	require.InDelta(t, 28.00, got.Subtotal, 1e-9)
	require.InDelta(t, 7.00, got.DiscountTotal, 1e-9)
	require.InDelta(t, 1.955, got.Tax, 1e-9)
	require.InDelta(t, 24.955, got.Total, 1e-9)
}

func TestNegativeDiscountRejected(t *testing.T) {
	c := cart.New()
	c.AddItem(1, "Widget", "WID-1", 10.00, 1)

	err := c.UpdateItemDiscount(1, -1, "")
	require.Error(t, err)
	require.Equal(t, common.CodeValidation, common.CodeOf(err))

	err = c.SetCartDiscount(-0.01, "")
	require.Error(t, err)
}

func TestCartDiscountCodeTracked(t *testing.T) {
	c := cart.New()
	c.AddItem(1, "Widget", "WID-1", 10.00, 1)

	require.NoError(t, c.SetCartDiscount(2.00, "MANAGER10"))
	require.Equal(t, "MANAGER10", c.CartDiscountCode())

	// replacing the discount replaces the code too
	require.NoError(t, c.SetCartDiscount(1.00, ""))
	require.Empty(t, c.CartDiscountCode())
}

func TestClearIsIdempotent(t *testing.T) {
	c := cart.New()
	c.AddItem(1, "Widget", "WID-1", 10.00, 1)
	require.NoError(t, c.SetCartDiscount(2.00, "MANAGER10"))

	c.Clear()
	require.True(t, c.IsEmpty())
	require.Zero(t, c.CartDiscount())
	require.Empty(t, c.CartDiscountCode(), "clearing resets the discount code")

	c.Clear()
	require.True(t, c.IsEmpty())
}
