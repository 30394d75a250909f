package pricing

import (
	"github.com/leekchan/accounting"
	"github.com/shopspring/decimal"
)

// Formatter renders amounts for display (R$ 1.234,50 by default).
type Formatter struct {
	ac accounting.Accounting
}

func NewFormatter(symbol string) Formatter {
	return Formatter{ac: accounting.Accounting{Symbol: symbol, Precision: 2, Thousand: ".", Decimal: ","}}
}

func (f Formatter) Format(amount decimal.Decimal) string {
	return f.ac.FormatMoney(amount.Rat())
}
