package loan

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"loanfriend/internal/pkg/apperrors"
)

// Business rules of the lending product. The rate is fixed by policy but
// the math below works for any positive rate.
var (
	MinLoanAmount = decimal.NewFromInt(1_000)
	MaxLoanAmount = decimal.NewFromInt(100_000)

	// MaxTotalExposure caps the sum of a user's PENDING and APPROVED
	// principal. The cap itself is a valid total: exactly 100,000 is allowed.
	MaxTotalExposure = decimal.NewFromInt(100_000)

	DefaultAnnualRate = decimal.NewFromInt(10)
)

const (
	MinTenureMonths = 3
	MaxTenureMonths = 24
)

type LoanStatus string

const (
	StatusPending       LoanStatus = "PENDING"
	StatusApproved      LoanStatus = "APPROVED"
	StatusRejected      LoanStatus = "REJECTED"
	StatusRejectedLimit LoanStatus = "REJECTED_LIMIT"
	StatusForeclosed    LoanStatus = "FORECLOSED"
	StatusRepaid        LoanStatus = "REPAID"
)

// Closed reports whether the status is terminal for the loan's lifecycle.
func (s LoanStatus) Closed() bool {
	switch s {
	case StatusRejected, StatusRejectedLimit, StatusForeclosed, StatusRepaid:
		return true
	}
	return false
}

// Terms is the (amount, tenure, rate) triple the financial fields and the
// cached schedule are derived from. The schedule is regenerated only when
// the loan's current terms differ from the triple it was last generated for.
type Terms struct {
	Amount             decimal.Decimal `json:"amount"`
	TenureMonths       int             `json:"tenure_months"`
	AnnualInterestRate decimal.Decimal `json:"annual_interest_rate"`
}

func (t Terms) Equal(o Terms) bool {
	return t.Amount.Equal(o.Amount) &&
		t.TenureMonths == o.TenureMonths &&
		t.AnnualInterestRate.Equal(o.AnnualInterestRate)
}

type Loan struct {
	ID     int64
	UserID int64

	Amount             decimal.Decimal
	TenureMonths       int
	AnnualInterestRate decimal.Decimal

	// Derived via RecomputeFinancials; always consistent with the terms above.
	MonthlyInstallment decimal.Decimal
	TotalPayable       decimal.Decimal
	TotalInterest      decimal.Decimal

	Status   LoanStatus
	IsClosed bool

	AppliedAt       time.Time
	ApprovedAt      *time.Time
	ApprovedBy      *int64
	RejectionReason string

	ForeclosedAt      *time.Time
	ForeclosureAmount *decimal.Decimal

	// Cached amortization schedule and the terms it was generated for.
	Schedule      []ScheduleEntry
	ScheduleTerms *Terms

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateTerms checks the hard range rules on amount and tenure.
func ValidateTerms(amount decimal.Decimal, tenureMonths int) error {
	if amount.LessThan(MinLoanAmount) || amount.GreaterThan(MaxLoanAmount) {
		return apperrors.NewValidationError("amount",
			fmt.Sprintf("amount must be between %s and %s", MinLoanAmount, MaxLoanAmount))
	}
	if tenureMonths < MinTenureMonths || tenureMonths > MaxTenureMonths {
		return apperrors.NewValidationError("tenure",
			fmt.Sprintf("tenure must be between %d and %d months", MinTenureMonths, MaxTenureMonths))
	}
	return nil
}

// NewLoan builds a PENDING loan application. Financial fields are computed
// eagerly so applicants see the installment before approval.
func NewLoan(userID int64, amount decimal.Decimal, tenureMonths int, annualRatePercent decimal.Decimal, appliedAt time.Time) (*Loan, error) {
	if err := ValidateTerms(amount, tenureMonths); err != nil {
		return nil, err
	}
	if annualRatePercent.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.NewValidationError("interest_rate", "interest rate must be a positive number")
	}

	l := &Loan{
		UserID:             userID,
		Amount:             RoundMoney(amount),
		TenureMonths:       tenureMonths,
		AnnualInterestRate: annualRatePercent,
		Status:             StatusPending,
		AppliedAt:          appliedAt,
	}
	if err := l.RecomputeFinancials(); err != nil {
		return nil, err
	}
	return l, nil
}

// Terms returns the current (amount, tenure, rate) triple.
func (l *Loan) Terms() Terms {
	return Terms{
		Amount:             l.Amount,
		TenureMonths:       l.TenureMonths,
		AnnualInterestRate: l.AnnualInterestRate,
	}
}

// RecomputeFinancials refreshes the installment, total payable and total
// interest from the current terms. It must be called explicitly whenever
// amount, tenure or rate is set; nothing recomputes these on persistence.
func (l *Loan) RecomputeFinancials() error {
	emi, totalPayable, totalInterest, err := CalculateEMI(l.Amount, l.TenureMonths, l.AnnualInterestRate)
	if err != nil {
		return err
	}
	l.MonthlyInstallment = emi
	l.TotalPayable = totalPayable
	l.TotalInterest = totalInterest
	return nil
}

// EnsureSchedule generates the amortization schedule anchored at startDate,
// or leaves the cached one alone when it was already generated for the
// loan's current terms.
func (l *Loan) EnsureSchedule(startDate time.Time) error {
	current := l.Terms()
	if l.ScheduleTerms != nil && l.ScheduleTerms.Equal(current) && len(l.Schedule) > 0 {
		return nil
	}

	schedule, err := GenerateSchedule(l.Amount, l.TenureMonths, l.AnnualInterestRate, startDate)
	if err != nil {
		return err
	}
	l.Schedule = schedule
	l.ScheduleTerms = &current
	return nil
}

// NextPaymentEntry returns the schedule entry covering the next installment
// due, given how many installments have already succeeded. Nil when the
// loan is not APPROVED or the tenure is exhausted.
func (l *Loan) NextPaymentEntry(successPayments int) *ScheduleEntry {
	if l.Status != StatusApproved {
		return nil
	}
	if successPayments < 0 || successPayments >= len(l.Schedule) {
		return nil
	}
	entry := l.Schedule[successPayments]
	return &entry
}

// Outstanding derives the foreclosure payoff from the cached schedule and
// the count of successful installments. The borrower owes only the
// remaining principal, never interest on installments not yet due.
func (l *Loan) Outstanding(successPayments int) decimal.Decimal {
	if l.Status != StatusApproved {
		return decimal.Zero.Round(2)
	}
	if l.TenureMonths-successPayments <= 0 {
		return decimal.Zero.Round(2)
	}
	if successPayments == 0 {
		return RoundMoney(l.Amount)
	}
	if successPayments <= len(l.Schedule) {
		return RoundMoney(l.Schedule[successPayments-1].RemainingBalance)
	}
	return decimal.Zero.Round(2)
}
