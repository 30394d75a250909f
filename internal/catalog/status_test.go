package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusAfterStock(t *testing.T) {
	cases := []struct {
		from  VariantStatus
		stock int
		want  VariantStatus
	}{
		{StatusActive, 0, StatusOutOfStock},
		{StatusActive, 3, StatusActive},
		{StatusOutOfStock, 5, StatusActive},
		{StatusOutOfStock, 0, StatusOutOfStock},
		{StatusInactive, 0, StatusInactive},
		{StatusInactive, 9, StatusInactive},
		{StatusDiscontinued, 9, StatusDiscontinued},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, StatusAfterStock(c.from, c.stock), "%s with %d", c.from, c.stock)
	}
}

func TestManualTransition(t *testing.T) {
	got, err := ManualTransition(StatusActive, StatusInactive, 4)
	require.NoError(t, err)
	assert.Equal(t, StatusInactive, got)

	got, err = ManualTransition(StatusInactive, StatusActive, 4)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, got)

	got, err = ManualTransition(StatusInactive, StatusActive, 0)
	require.NoError(t, err)
	assert.Equal(t, StatusOutOfStock, got)

	got, err = ManualTransition(StatusOutOfStock, StatusDiscontinued, 0)
	require.NoError(t, err)
	assert.Equal(t, StatusDiscontinued, got)
}

func TestManualTransitionRejects(t *testing.T) {
	for _, to := range []VariantStatus{StatusActive, StatusInactive, StatusOutOfStock} {
		_, err := ManualTransition(StatusDiscontinued, to, 10)
		assert.ErrorIs(t, err, ErrInvalidTransition, "DISCONTINUED -> %s", to)
	}
	_, err := ManualTransition(StatusActive, StatusOutOfStock, 0)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = ManualTransition(StatusActive, "ARCHIVED", 0)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestManualTransitionSameStatusIsNoop(t *testing.T) {
	got, err := ManualTransition(StatusDiscontinued, StatusDiscontinued, 0)
	require.NoError(t, err)
	assert.Equal(t, StatusDiscontinued, got)
}

func TestInitialStatus(t *testing.T) {
	assert.Equal(t, StatusActive, InitialStatus(false))
	assert.Equal(t, StatusInactive, InitialStatus(true))
}

func TestOfferable(t *testing.T) {
	for status, want := range map[VariantStatus]bool{
		StatusActive: true, StatusOutOfStock: true, StatusInactive: false, StatusDiscontinued: false,
	} {
		v := Variant{Status: status}
		assert.Equal(t, want, v.Offerable(), status)
		assert.Equal(t, want, StockLevel{Status: status}.Offerable(), status)
	}
}

func TestProductSetPricing(t *testing.T) {
	var p Product
	require.NoError(t, p.SetPricing(decimal.RequireFromString("19.90"), 15))
	assert.True(t, p.FinalPrice.Equal(decimal.RequireFromString("16.915")))

	assert.ErrorIs(t, p.SetPricing(decimal.RequireFromString("-1"), 0), ErrInvalidProduct)
	assert.ErrorIs(t, p.SetPricing(decimal.RequireFromString("10"), 101), ErrInvalidProduct)
	assert.ErrorIs(t, p.SetPricing(decimal.RequireFromString("10"), -5), ErrInvalidProduct)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("19.90")), "failed updates keep the old pricing")
}

func TestSortUnits(t *testing.T) {
	refs := []UnitRef{VariantUnit("b"), ProductUnit("z"), VariantUnit("a"), ProductUnit("a")}
	SortUnits(refs)
	assert.Equal(t, []UnitRef{ProductUnit("a"), ProductUnit("z"), VariantUnit("a"), VariantUnit("b")}, refs)
	assert.Equal(t, "variant:a", VariantUnit("a").String())
	assert.False(t, UnitRef{Kind: "bundle", ID: "x"}.Valid())
}
