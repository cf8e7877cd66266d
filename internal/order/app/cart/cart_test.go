package cart

import (
	"strconv"
	"testing"

	"restaurant-orders/internal/order/app/core"
	"restaurant-orders/internal/order/domain/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCart() *Cart {
	c := New()
	n := 0
	c.newID = func() string {
		n++
		return "line-" + strconv.Itoa(n)
	}
	return c
}

var (
	pizza = models.MenuItemRef{ID: "pizza", Name: "Margherita", UnitPrice: decimal.RequireFromString("25.00"), Available: true}
	cola  = models.MenuItemRef{ID: "cola", Name: "Cola", UnitPrice: decimal.RequireFromString("2.50"), Available: true}

	extraCheese = models.Customization{Name: "cheese", Value: "extra", PriceDelta: decimal.RequireFromString("3.00")}
	largeSize   = models.Customization{Name: "size", Value: "large", PriceDelta: decimal.RequireFromString("4.00")}
)

func TestAddItem_MergesIdenticalLines(t *testing.T) {
	c := newTestCart()

	_, err := c.AddItem(pizza, WithCustomizations(extraCheese))
	require.NoError(t, err)
	line, err := c.AddItem(pizza, WithCustomizations(extraCheese))
	require.NoError(t, err)

	require.Equal(t, 1, c.Len())
	assert.Equal(t, 2, line.Quantity)
	assert.Equal(t, "line-1", line.ID)
}

func TestAddItem_CustomizationsAreAnUnorderedSet(t *testing.T) {
	c := newTestCart()

	_, err := c.AddItem(pizza, WithCustomizations(extraCheese, largeSize))
	require.NoError(t, err)
	_, err = c.AddItem(pizza, WithCustomizations(largeSize, extraCheese))
	require.NoError(t, err)

	require.Equal(t, 1, c.Len())
	assert.Equal(t, 2, c.Lines()[0].Quantity)
}

func TestAddItem_DifferentCustomizationsMakeNewLine(t *testing.T) {
	c := newTestCart()

	_, err := c.AddItem(pizza)
	require.NoError(t, err)
	_, err = c.AddItem(pizza, WithCustomizations(extraCheese))
	require.NoError(t, err)
	_, err = c.AddItem(cola, WithQuantity(3), WithNotes("no ice"))
	require.NoError(t, err)

	lines := c.Lines()
	require.Len(t, lines, 3)
	assert.Equal(t, 3, lines[2].Quantity)
	assert.Equal(t, "no ice", lines[2].Notes)
}

func TestAddItem_Rejects(t *testing.T) {
	c := newTestCart()

	soldOut := cola
	soldOut.Available = false
	_, err := c.AddItem(soldOut)
	assert.ErrorIs(t, err, core.ErrItemUnavailable)

	_, err = c.AddItem(cola, WithQuantity(0))
	assert.ErrorIs(t, err, core.ErrInvalidQuantity)

	negative := cola
	negative.UnitPrice = decimal.RequireFromString("-1.00")
	_, err = c.AddItem(negative)
	assert.ErrorIs(t, err, core.ErrInvalidPrice)

	bigDiscount := models.Customization{Name: "coupon", Value: "ten-off", PriceDelta: decimal.RequireFromString("-10.00")}
	cheap := models.MenuItemRef{ID: "bread", Name: "Bread", UnitPrice: decimal.RequireFromString("5.00"), Available: true}
	_, err = c.AddItem(cheap, WithCustomizations(bigDiscount))
	assert.ErrorIs(t, err, core.ErrInvalidPrice)

	assert.Zero(t, c.Len())
	assert.NotPanics(t, func() { c.Totals(decimal.NewFromInt(15)) })
}

func TestAddItem_DiscountUpToUnitPrice(t *testing.T) {
	c := newTestCart()
	free := models.Customization{Name: "coupon", Value: "free", PriceDelta: decimal.RequireFromString("-2.50")}

	_, err := c.AddItem(cola, WithCustomizations(free))
	require.NoError(t, err)
	assert.True(t, c.Totals(decimal.NewFromInt(15)).Total.IsZero())
}

func TestUpdateQuantity(t *testing.T) {
	c := newTestCart()
	line, err := c.AddItem(pizza)
	require.NoError(t, err)

	require.NoError(t, c.UpdateQuantity(line.ID, 4))
	assert.Equal(t, 4, c.Lines()[0].Quantity)

	assert.ErrorIs(t, c.UpdateQuantity("missing", 2), core.ErrLineNotFound)
}

func TestUpdateQuantityZeroEqualsRemove(t *testing.T) {
	a, b := newTestCart(), newTestCart()
	for _, c := range []*Cart{a, b} {
		_, err := c.AddItem(pizza)
		require.NoError(t, err)
		_, err = c.AddItem(cola)
		require.NoError(t, err)
	}

	require.NoError(t, a.UpdateQuantity("line-1", 0))
	b.RemoveItem("line-1")

	assert.Equal(t, a.Lines(), b.Lines())
	assert.NoError(t, a.UpdateQuantity("line-1", -3))
}

func TestTotals_RecomputedAfterMutation(t *testing.T) {
	c := newTestCart()
	rate := decimal.NewFromInt(15)

	line, err := c.AddItem(pizza, WithQuantity(2), WithCustomizations(extraCheese))
	require.NoError(t, err)
	assert.Equal(t, "64.40", c.Totals(rate).Total.StringFixed(2))

	require.NoError(t, c.UpdateQuantity(line.ID, 1))
	assert.Equal(t, "32.20", c.Totals(rate).Total.StringFixed(2))

	c.RemoveItem(line.ID)
	assert.True(t, c.Totals(rate).Total.IsZero())
}

func TestToOrderItems_SnapshotsPrices(t *testing.T) {
	c := newTestCart()
	item := pizza
	_, err := c.AddItem(item, WithQuantity(2), WithCustomizations(extraCheese))
	require.NoError(t, err)

	items := c.ToOrderItems()
	item.UnitPrice = decimal.RequireFromString("99")

	require.Len(t, items, 1)
	assert.Equal(t, "pizza", items[0].MenuItemID)
	assert.True(t, items[0].UnitPrice.Equal(decimal.RequireFromString("25")))
	assert.True(t, items[0].LineTotal.Equal(decimal.RequireFromString("56")))
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Zero(t, c.Len())
}

func TestLines_ReturnsCopies(t *testing.T) {
	c := newTestCart()
	_, err := c.AddItem(pizza, WithCustomizations(extraCheese))
	require.NoError(t, err)

	lines := c.Lines()
	lines[0].Quantity = 50
	lines[0].Customizations[0].Value = "none"

	assert.Equal(t, 1, c.Lines()[0].Quantity)
	assert.Equal(t, "extra", c.Lines()[0].Customizations[0].Value)
}
