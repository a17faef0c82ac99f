package loan

import (
	"time"

	"github.com/shopspring/decimal"
)

// ScheduleEntry is one month of the amortization breakdown. Entries are
// embedded in the loan's cached schedule, never persisted on their own,
// and immutable until the schedule is regenerated.
type ScheduleEntry struct {
	EMINumber        int             `json:"emi_number"`
	DueDate          time.Time       `json:"due_date"`
	EMIAmount        decimal.Decimal `json:"emi_amount"`
	Principal        decimal.Decimal `json:"principal"`
	Interest         decimal.Decimal `json:"interest"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
}

// GenerateSchedule produces the month-by-month amortization breakdown for
// the given terms, anchored at startDate. The first installment falls due
// one month after startDate. The final entry overrides its principal
// component with whatever balance remains, so the schedule always closes at
// exactly zero regardless of intermediate rounding. The output depends only
// on the inputs.
func GenerateSchedule(principal decimal.Decimal, tenureMonths int, annualRatePercent decimal.Decimal, startDate time.Time) ([]ScheduleEntry, error) {
	emi, _, _, err := CalculateEMI(principal, tenureMonths, annualRatePercent)
	if err != nil {
		return nil, err
	}

	monthlyRate := monthlyRateFromAnnual(annualRatePercent)
	remaining := principal

	schedule := make([]ScheduleEntry, 0, tenureMonths)
	for month := 1; month <= tenureMonths; month++ {
		interest := RoundMoney(remaining.Mul(monthlyRate))
		principalPart := RoundMoney(emi.Sub(interest))
		emiAmount := emi

		if month == tenureMonths {
			// Absorb the accumulated rounding drift into the last installment.
			principalPart = remaining
			emiAmount = RoundMoney(principalPart.Add(interest))
		}

		remaining = RoundMoney(remaining.Sub(principalPart))

		schedule = append(schedule, ScheduleEntry{
			EMINumber:        month,
			DueDate:          AddMonths(startDate, month),
			EMIAmount:        emiAmount,
			Principal:        principalPart,
			Interest:         interest,
			RemainingBalance: remaining,
		})
	}

	return schedule, nil
}
