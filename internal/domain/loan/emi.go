package loan

import (
	"fmt"

	"github.com/shopspring/decimal"

	"loanfriend/internal/pkg/apperrors"
)

var (
	decimalOne     = decimal.NewFromInt(1)
	decimalHundred = decimal.NewFromInt(100)
	decimalTwelve  = decimal.NewFromInt(12)
)

// CalculateEMI computes the equated monthly installment for an amortizing
// loan using EMI = P * r * (1+r)^n / ((1+r)^n - 1), where r is the monthly
// rate. It returns the installment, the total payable over the full tenure
// and the total interest, all rounded to currency precision. Intermediate
// math keeps 28 significant digits so the exponentiation does not compound
// rounding error.
func CalculateEMI(principal decimal.Decimal, tenureMonths int, annualRatePercent decimal.Decimal) (emi, totalPayable, totalInterest decimal.Decimal, err error) {
	if principal.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, decimal.Zero, decimal.Zero,
			fmt.Errorf("%w: principal must be positive", apperrors.ErrInvalidArgument)
	}
	if tenureMonths < 1 {
		return decimal.Zero, decimal.Zero, decimal.Zero,
			fmt.Errorf("%w: tenure must be at least one month", apperrors.ErrInvalidArgument)
	}
	if annualRatePercent.IsNegative() {
		return decimal.Zero, decimal.Zero, decimal.Zero,
			fmt.Errorf("%w: interest rate cannot be negative", apperrors.ErrInvalidArgument)
	}

	tenure := decimal.NewFromInt(int64(tenureMonths))
	monthlyRate := monthlyRateFromAnnual(annualRatePercent)

	if monthlyRate.IsZero() {
		emi = principal.DivRound(tenure, moneyPrecision)
		totalPayable = principal
	} else {
		factor := decimalOne.Add(monthlyRate).Pow(tenure)
		emi = principal.Mul(monthlyRate).Mul(factor).DivRound(factor.Sub(decimalOne), moneyPrecision)
		totalPayable = emi.Mul(tenure)
	}

	totalInterest = totalPayable.Sub(principal)

	return RoundMoney(emi), RoundMoney(totalPayable), RoundMoney(totalInterest), nil
}

func monthlyRateFromAnnual(annualRatePercent decimal.Decimal) decimal.Decimal {
	return annualRatePercent.DivRound(decimalHundred.Mul(decimalTwelve), moneyPrecision)
}
