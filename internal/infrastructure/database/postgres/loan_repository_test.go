package postgres

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanfriend/internal/domain/loan"
	"loanfriend/internal/pkg/apperrors"
)

// The mock pool must keep satisfying the same interface the production
// pool does, or these tests stop meaning anything.
var _ DBPool = (pgxmock.PgxPoolIface)(nil)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var loanColumnNames = []string{
	"id", "user_id", "amount", "tenure_months", "annual_interest_rate",
	"monthly_installment", "total_payable", "total_interest", "status", "is_closed",
	"applied_at", "approved_at", "approved_by", "rejection_reason",
	"foreclosed_at", "foreclosure_amount", "schedule", "schedule_terms",
	"created_at", "updated_at",
}

func pendingLoanRow(id int64) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows(loanColumnNames).AddRow(
		id, int64(42), decimal.RequireFromString("10000"), 12, decimal.RequireFromString("10"),
		decimal.RequireFromString("879.16"), decimal.RequireFromString("10549.91"), decimal.RequireFromString("549.91"),
		loan.StatusPending, false,
		now, (*time.Time)(nil), (*int64)(nil), "",
		(*time.Time)(nil), (*decimal.Decimal)(nil), []byte(nil), []byte(nil),
		now, now,
	)
}

func TestLoanRepository_GetLoanByID(t *testing.T) {
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := NewLoanRepository(mockPool, testLogger())

		mockPool.ExpectQuery(`SELECT (.+) FROM loans WHERE id = \$1`).
			WithArgs(int64(1)).
			WillReturnRows(pendingLoanRow(1))

		l, err := repo.GetLoanByID(ctx, 1)

		require.NoError(t, err)
		assert.Equal(t, int64(1), l.ID)
		assert.Equal(t, loan.StatusPending, l.Status)
		assert.Equal(t, "879.16", l.MonthlyInstallment.StringFixed(2))
		assert.Nil(t, l.Schedule)
		assert.Nil(t, l.ScheduleTerms)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := NewLoanRepository(mockPool, testLogger())

		mockPool.ExpectQuery(`SELECT (.+) FROM loans WHERE id = \$1`).
			WithArgs(int64(404)).
			WillReturnError(pgx.ErrNoRows)

		_, err = repo.GetLoanByID(ctx, 404)

		require.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("UnmarshalsCachedSchedule", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := NewLoanRepository(mockPool, testLogger())

		now := time.Now()
		scheduleJSON := []byte(`[{"emi_number":1,"due_date":"2024-07-01T00:00:00Z","emi_amount":"879.16","principal":"795.83","interest":"83.33","remaining_balance":"9204.17"}]`)
		termsJSON := []byte(`{"amount":"10000","tenure_months":12,"annual_interest_rate":"10"}`)

		rows := pgxmock.NewRows(loanColumnNames).AddRow(
			int64(2), int64(42), decimal.RequireFromString("10000"), 12, decimal.RequireFromString("10"),
			decimal.RequireFromString("879.16"), decimal.RequireFromString("10549.91"), decimal.RequireFromString("549.91"),
			loan.StatusApproved, false,
			now, &now, func() *int64 { v := int64(99); return &v }(), "",
			(*time.Time)(nil), (*decimal.Decimal)(nil), scheduleJSON, termsJSON,
			now, now,
		)
		mockPool.ExpectQuery(`SELECT (.+) FROM loans WHERE id = \$1`).
			WithArgs(int64(2)).
			WillReturnRows(rows)

		l, err := repo.GetLoanByID(ctx, 2)

		require.NoError(t, err)
		require.Len(t, l.Schedule, 1)
		assert.Equal(t, 1, l.Schedule[0].EMINumber)
		assert.Equal(t, "9204.17", l.Schedule[0].RemainingBalance.StringFixed(2))
		require.NotNil(t, l.ScheduleTerms)
		assert.Equal(t, 12, l.ScheduleTerms.TenureMonths)
	})
}

func TestLoanRepository_CreateLoan(t *testing.T) {
	ctx := context.Background()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()
	repo := NewLoanRepository(mockPool, testLogger())

	newLoan := &loan.Loan{
		UserID:             42,
		Amount:             decimal.RequireFromString("10000"),
		TenureMonths:       12,
		AnnualInterestRate: decimal.RequireFromString("10"),
		MonthlyInstallment: decimal.RequireFromString("879.16"),
		TotalPayable:       decimal.RequireFromString("10549.91"),
		TotalInterest:      decimal.RequireFromString("549.91"),
		Status:             loan.StatusPending,
		AppliedAt:          time.Now(),
	}

	mockPool.ExpectQuery(`INSERT INTO loans`).
		WithArgs(newLoan.UserID, newLoan.Amount, newLoan.TenureMonths, newLoan.AnnualInterestRate,
			newLoan.MonthlyInstallment, newLoan.TotalPayable, newLoan.TotalInterest,
			newLoan.Status, newLoan.IsClosed, newLoan.AppliedAt, newLoan.RejectionReason).
		WillReturnRows(pendingLoanRow(1))

	created, err := repo.CreateLoan(ctx, newLoan)

	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestLoanRepository_SumUserLoanAmounts(t *testing.T) {
	ctx := context.Background()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()
	repo := NewLoanRepository(mockPool, testLogger())

	mockPool.ExpectQuery(`SELECT COALESCE\(SUM\(amount\), 0.00\)`).
		WithArgs(int64(42), int64(0), []string{"PENDING", "APPROVED"}).
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(decimal.RequireFromString("60000")))

	total, err := repo.SumUserLoanAmounts(ctx, 42, 0, []loan.LoanStatus{loan.StatusPending, loan.StatusApproved})

	require.NoError(t, err)
	assert.Equal(t, "60000.00", total.StringFixed(2))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestLoanRepository_CountSuccessfulPayments(t *testing.T) {
	ctx := context.Background()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()
	repo := NewLoanRepository(mockPool, testLogger())

	mockPool.ExpectQuery(`SELECT COUNT\(\*\) FROM payments WHERE loan_id = \$1 AND status = \$2`).
		WithArgs(int64(7), loan.PaymentStatusSuccess).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountSuccessfulPayments(ctx, 7)

	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestLoanRepository_InsertPaymentInTx(t *testing.T) {
	ctx := context.Background()

	t.Run("DuplicateEMITranslatesToAlreadyExists", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := NewLoanRepository(mockPool, testLogger())

		mockPool.ExpectBegin()
		mockPool.ExpectQuery(`INSERT INTO payments`).
			WithArgs(int64(7), decimal.RequireFromString("879.16"), 1,
				loan.PaymentStatusSuccess, loan.PaymentTypeEMI, "", pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "payments_loan_id_emi_number_key"})

		tx, err := repo.BeginTx(ctx)
		require.NoError(t, err)

		p := &loan.Payment{
			LoanID:    7,
			Amount:    decimal.RequireFromString("879.16"),
			EMINumber: 1,
			Status:    loan.PaymentStatusSuccess,
			Type:      loan.PaymentTypeEMI,
			PaidAt:    time.Now(),
		}
		_, err = repo.InsertPaymentInTx(ctx, tx, p)

		require.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	})
}

func TestLoanRepository_UpdateLoanInTx(t *testing.T) {
	ctx := context.Background()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()
	repo := NewLoanRepository(mockPool, testLogger())

	l := &loan.Loan{
		ID:                 5,
		Amount:             decimal.RequireFromString("10000"),
		TenureMonths:       12,
		AnnualInterestRate: decimal.RequireFromString("10"),
		Status:             loan.StatusRejected,
		RejectionReason:    "insufficient income",
		IsClosed:           true,
	}

	mockPool.ExpectBegin()
	mockPool.ExpectExec(`UPDATE loans`).
		WithArgs(l.Amount, l.TenureMonths, l.AnnualInterestRate,
			l.MonthlyInstallment, l.TotalPayable, l.TotalInterest,
			loan.StatusRejected, true, (*time.Time)(nil), (*int64)(nil),
			"insufficient income", (*time.Time)(nil), (*decimal.Decimal)(nil),
			[]byte(nil), []byte(nil), int64(5)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mockPool.ExpectCommit()

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateLoanInTx(ctx, tx, l))
	require.NoError(t, repo.CommitTx(ctx, tx))

	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestLoanRepository_DeleteLoanInTx(t *testing.T) {
	ctx := context.Background()

	t.Run("Deletes", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := NewLoanRepository(mockPool, testLogger())

		mockPool.ExpectBegin()
		mockPool.ExpectExec(`DELETE FROM loans WHERE id = \$1`).
			WithArgs(int64(5)).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		tx, err := repo.BeginTx(ctx)
		require.NoError(t, err)
		assert.NoError(t, repo.DeleteLoanInTx(ctx, tx, 5))
	})

	t.Run("ZeroRowsIsAnError", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := NewLoanRepository(mockPool, testLogger())

		mockPool.ExpectBegin()
		mockPool.ExpectExec(`DELETE FROM loans WHERE id = \$1`).
			WithArgs(int64(6)).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		tx, err := repo.BeginTx(ctx)
		require.NoError(t, err)
		assert.ErrorIs(t, repo.DeleteLoanInTx(ctx, tx, 6), apperrors.ErrDatabase)
	})
}

func TestLoanRepository_ListLoansByUser(t *testing.T) {
	ctx := context.Background()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()
	repo := NewLoanRepository(mockPool, testLogger())

	rows := pendingLoanRow(1)
	mockPool.ExpectQuery(`SELECT (.+) FROM loans WHERE user_id = \$1 ORDER BY applied_at DESC`).
		WithArgs(int64(42)).
		WillReturnRows(rows)

	loans, err := repo.ListLoansByUser(ctx, 42)

	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, int64(42), loans[0].UserID)
}
