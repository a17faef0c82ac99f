package loan

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type Repository interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)

	CommitTx(ctx context.Context, tx pgx.Tx) error

	RollbackTx(ctx context.Context, tx pgx.Tx) error

	CreateLoan(ctx context.Context, l *Loan) (*Loan, error)

	GetLoanByID(ctx context.Context, loanID int64) (*Loan, error)

	// GetLoanByIDForUpdate locks the loan row for the duration of the
	// transaction, serializing concurrent state transitions per loan.
	GetLoanByIDForUpdate(ctx context.Context, tx pgx.Tx, loanID int64) (*Loan, error)

	ListLoans(ctx context.Context) ([]Loan, error)

	ListLoansByUser(ctx context.Context, userID int64) ([]Loan, error)

	ListApprovedLoans(ctx context.Context) ([]Loan, error)

	// SumUserLoanAmounts totals the principal of the user's loans in the
	// given statuses, excluding excludeLoanID (zero excludes nothing).
	SumUserLoanAmounts(ctx context.Context, userID int64, excludeLoanID int64, statuses []LoanStatus) (decimal.Decimal, error)

	UpdateLoanInTx(ctx context.Context, tx pgx.Tx, l *Loan) error

	CountPayments(ctx context.Context, loanID int64) (int, error)

	CountSuccessfulPaymentsInTx(ctx context.Context, tx pgx.Tx, loanID int64) (int, error)

	CountSuccessfulPayments(ctx context.Context, loanID int64) (int, error)

	ListPaymentsByLoan(ctx context.Context, loanID int64) ([]Payment, error)

	InsertPaymentInTx(ctx context.Context, tx pgx.Tx, p *Payment) (*Payment, error)

	DeleteLoanInTx(ctx context.Context, tx pgx.Tx, loanID int64) error
}
