package loan

import "github.com/shopspring/decimal"

// moneyPrecision is the number of significant digits carried through
// intermediate EMI math. Only final amounts are rounded to currency units.
const moneyPrecision = 28

// RoundMoney rounds a monetary value to two decimal places using
// round-half-up, so 100.455 becomes 100.46. Every amount stored or exposed
// externally goes through this.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// EqualMoney compares two amounts at currency precision.
func EqualMoney(a, b decimal.Decimal) bool {
	return RoundMoney(a).Equal(RoundMoney(b))
}
