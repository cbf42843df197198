package domain

import "github.com/shopspring/decimal"

// MoneyPlaces is the number of decimal places kept for currency amounts.
const MoneyPlaces = 2

// RoundMoney rounds half away from zero to MoneyPlaces.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// MinorUnits converts a currency amount to its integer minor unit count
// (cents), which is what payment gateways expect.
func MinorUnits(d decimal.Decimal) int64 {
	return d.Shift(MoneyPlaces).Round(0).IntPart()
}

// LineTotal prices qty units at unitPrice after rounding the unit price.
func LineTotal(unitPrice decimal.Decimal, qty int) decimal.Decimal {
	return RoundMoney(unitPrice).Mul(decimal.NewFromInt(int64(qty)))
}
