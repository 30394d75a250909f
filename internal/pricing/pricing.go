// Package pricing holds the money rules shared by the catalog and the cart
// engine. All amounts are decimal.Decimal; nothing here rounds.
package pricing

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// FinalPrice applies a percentage discount to price. A discount <= 0 leaves
// the price untouched; anything above 100 is treated as 100.
func FinalPrice(price decimal.Decimal, discountPercent int) decimal.Decimal {
	if discountPercent <= 0 {
		return price
	}
	if discountPercent > 100 {
		discountPercent = 100
	}
	return price.Sub(DiscountAmount(price, discountPercent))
}

func DiscountAmount(price decimal.Decimal, discountPercent int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(discountPercent))).Div(hundred)
}

func LineTotal(unitPrice decimal.Decimal, qty int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(qty)))
}

func ValidDiscount(discountPercent int) bool {
	return discountPercent >= 0 && discountPercent <= 100
}
