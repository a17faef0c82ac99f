package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"loanfriend/internal/domain/loan"
	"loanfriend/internal/infrastructure/monitoring"
	"loanfriend/internal/pkg/apperrors"
)

type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Acquire(ctx context.Context) (*pgxpool.Conn, error)
	Close()
}

var _ DBPool = (*pgxpool.Pool)(nil)

var errMsgFormat = "%w: %w"

type LoanRepository struct {
	db     DBPool
	logger *slog.Logger
}

func NewLoanRepository(db DBPool, logger *slog.Logger) *LoanRepository {
	return &LoanRepository{db: db, logger: logger.With("component", "LoanRepository")}
}

func (r *LoanRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return tx, nil
}

func (r *LoanRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		r.logger.ErrorContext(ctx, "Failed to commit transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *LoanRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	err := tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		r.logger.ErrorContext(ctx, "Failed to rollback transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

const loanColumns = `id, user_id, amount, tenure_months, annual_interest_rate,
       monthly_installment, total_payable, total_interest, status, is_closed,
       applied_at, approved_at, approved_by, rejection_reason,
       foreclosed_at, foreclosure_amount, schedule, schedule_terms,
       created_at, updated_at`

type loanRow interface {
	Scan(dest ...any) error
}

func scanLoan(row loanRow) (*loan.Loan, error) {
	var l loan.Loan
	var scheduleJSON, termsJSON []byte

	err := row.Scan(
		&l.ID, &l.UserID, &l.Amount, &l.TenureMonths, &l.AnnualInterestRate,
		&l.MonthlyInstallment, &l.TotalPayable, &l.TotalInterest, &l.Status, &l.IsClosed,
		&l.AppliedAt, &l.ApprovedAt, &l.ApprovedBy, &l.RejectionReason,
		&l.ForeclosedAt, &l.ForeclosureAmount, &scheduleJSON, &termsJSON,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(scheduleJSON) > 0 {
		if err := json.Unmarshal(scheduleJSON, &l.Schedule); err != nil {
			return nil, fmt.Errorf("corrupt cached schedule for loan %d: %w", l.ID, err)
		}
	}
	if len(termsJSON) > 0 {
		var terms loan.Terms
		if err := json.Unmarshal(termsJSON, &terms); err != nil {
			return nil, fmt.Errorf("corrupt schedule terms for loan %d: %w", l.ID, err)
		}
		l.ScheduleTerms = &terms
	}
	return &l, nil
}

func marshalScheduleFields(l *loan.Loan) (scheduleJSON, termsJSON []byte, err error) {
	if len(l.Schedule) > 0 {
		scheduleJSON, err = json.Marshal(l.Schedule)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal schedule: %w", err)
		}
	}
	if l.ScheduleTerms != nil {
		termsJSON, err = json.Marshal(l.ScheduleTerms)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal schedule terms: %w", err)
		}
	}
	return scheduleJSON, termsJSON, nil
}

func (r *LoanRepository) CreateLoan(ctx context.Context, newLoan *loan.Loan) (*loan.Loan, error) {
	sql := `
        INSERT INTO loans (user_id, amount, tenure_months, annual_interest_rate,
                           monthly_installment, total_payable, total_interest, status, is_closed,
                           applied_at, rejection_reason, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
        RETURNING ` + loanColumns

	row := r.db.QueryRow(ctx, sql,
		newLoan.UserID, newLoan.Amount, newLoan.TenureMonths, newLoan.AnnualInterestRate,
		newLoan.MonthlyInstallment, newLoan.TotalPayable, newLoan.TotalInterest,
		newLoan.Status, newLoan.IsClosed, newLoan.AppliedAt, newLoan.RejectionReason,
	)
	created, err := scanLoan(row)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert loan", "error", err)
		return nil, translateDBError(err, r.logger)
	}

	r.logger.InfoContext(ctx, "Loan created in DB", "loan_id", created.ID)
	return created, nil
}

func (r *LoanRepository) GetLoanByID(ctx context.Context, loanID int64) (*loan.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`
	status := "success"
	startTime := time.Now()

	l, err := scanLoan(r.db.QueryRow(ctx, query, loanID))

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("GetLoanByID", status, time.Since(startTime))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Loan not found", "loan_id", loanID)
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get loan by ID", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return l, nil
}

func (r *LoanRepository) GetLoanByIDForUpdate(ctx context.Context, tx pgx.Tx, loanID int64) (*loan.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1 FOR UPDATE`

	l, err := scanLoan(tx.QueryRow(ctx, query, loanID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Loan not found for update", "loan_id", loanID)
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to lock loan row", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return l, nil
}

func (r *LoanRepository) queryLoans(ctx context.Context, query string, args ...any) ([]loan.Loan, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query loans", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	loans := make([]loan.Loan, 0)
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan loan row", "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		loans = append(loans, *l)
	}
	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating loan rows", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return loans, nil
}

func (r *LoanRepository) ListLoans(ctx context.Context) ([]loan.Loan, error) {
	return r.queryLoans(ctx, `SELECT `+loanColumns+` FROM loans ORDER BY applied_at DESC`)
}

func (r *LoanRepository) ListLoansByUser(ctx context.Context, userID int64) ([]loan.Loan, error) {
	return r.queryLoans(ctx, `SELECT `+loanColumns+` FROM loans WHERE user_id = $1 ORDER BY applied_at DESC`, userID)
}

func (r *LoanRepository) ListApprovedLoans(ctx context.Context) ([]loan.Loan, error) {
	return r.queryLoans(ctx, `SELECT `+loanColumns+` FROM loans WHERE status = $1 ORDER BY id`, loan.StatusApproved)
}

func (r *LoanRepository) SumUserLoanAmounts(ctx context.Context, userID int64, excludeLoanID int64, statuses []loan.LoanStatus) (decimal.Decimal, error) {
	query := `
        SELECT COALESCE(SUM(amount), 0.00)
        FROM loans
        WHERE user_id = $1 AND id != $2 AND status = ANY($3)`

	statusStrings := make([]string, len(statuses))
	for i, s := range statuses {
		statusStrings[i] = string(s)
	}

	var total decimal.Decimal
	err := r.db.QueryRow(ctx, query, userID, excludeLoanID, statusStrings).Scan(&total)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to sum user loan amounts", "user_id", userID, "error", err)
		return decimal.Zero, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return total, nil
}

func (r *LoanRepository) UpdateLoanInTx(ctx context.Context, tx pgx.Tx, l *loan.Loan) error {
	scheduleJSON, termsJSON, err := marshalScheduleFields(l)
	if err != nil {
		return fmt.Errorf(errMsgFormat, apperrors.ErrInternalServer, err)
	}

	sql := `
        UPDATE loans
        SET amount = $1, tenure_months = $2, annual_interest_rate = $3,
            monthly_installment = $4, total_payable = $5, total_interest = $6,
            status = $7, is_closed = $8, approved_at = $9, approved_by = $10,
            rejection_reason = $11, foreclosed_at = $12, foreclosure_amount = $13,
            schedule = $14, schedule_terms = $15, updated_at = NOW()
        WHERE id = $16`

	cmdTag, err := tx.Exec(ctx, sql,
		l.Amount, l.TenureMonths, l.AnnualInterestRate,
		l.MonthlyInstallment, l.TotalPayable, l.TotalInterest,
		l.Status, l.IsClosed, l.ApprovedAt, l.ApprovedBy,
		l.RejectionReason, l.ForeclosedAt, l.ForeclosureAmount,
		scheduleJSON, termsJSON, l.ID,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update loan", "loan_id", l.ID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() != 1 {
		r.logger.ErrorContext(ctx, "Loan update affected zero rows", "loan_id", l.ID)
		return fmt.Errorf("%w: loan update affected zero rows", apperrors.ErrDatabase)
	}
	r.logger.InfoContext(ctx, "Loan updated in DB", "loan_id", l.ID, "status", l.Status)
	return nil
}

func (r *LoanRepository) CountPayments(ctx context.Context, loanID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE loan_id = $1`, loanID).Scan(&count)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to count payments", "loan_id", loanID, "error", err)
		return 0, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return count, nil
}

func (r *LoanRepository) CountSuccessfulPayments(ctx context.Context, loanID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM payments WHERE loan_id = $1 AND status = $2`,
		loanID, loan.PaymentStatusSuccess,
	).Scan(&count)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to count successful payments", "loan_id", loanID, "error", err)
		return 0, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return count, nil
}

func (r *LoanRepository) CountSuccessfulPaymentsInTx(ctx context.Context, tx pgx.Tx, loanID int64) (int, error) {
	var count int
	err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM payments WHERE loan_id = $1 AND status = $2`,
		loanID, loan.PaymentStatusSuccess,
	).Scan(&count)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to count successful payments in tx", "loan_id", loanID, "error", err)
		return 0, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return count, nil
}

const paymentColumns = `id, loan_id, amount, emi_number, status, payment_type, gateway_reference, paid_at, created_at`

func (r *LoanRepository) ListPaymentsByLoan(ctx context.Context, loanID int64) ([]loan.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE loan_id = $1 ORDER BY paid_at ASC`

	rows, err := r.db.Query(ctx, query, loanID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query payments", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	payments := make([]loan.Payment, 0)
	for rows.Next() {
		var p loan.Payment
		err := rows.Scan(
			&p.ID, &p.LoanID, &p.Amount, &p.EMINumber, &p.Status,
			&p.Type, &p.GatewayReference, &p.PaidAt, &p.CreatedAt,
		)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan payment row", "loan_id", loanID, "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		payments = append(payments, p)
	}
	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating payment rows", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return payments, nil
}

func (r *LoanRepository) InsertPaymentInTx(ctx context.Context, tx pgx.Tx, p *loan.Payment) (*loan.Payment, error) {
	sql := `
        INSERT INTO payments (loan_id, amount, emi_number, status, payment_type, gateway_reference, paid_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
        RETURNING ` + paymentColumns

	var created loan.Payment
	err := tx.QueryRow(ctx, sql,
		p.LoanID, p.Amount, p.EMINumber, p.Status, p.Type, p.GatewayReference, p.PaidAt,
	).Scan(
		&created.ID, &created.LoanID, &created.Amount, &created.EMINumber, &created.Status,
		&created.Type, &created.GatewayReference, &created.PaidAt, &created.CreatedAt,
	)
	if err != nil {
		// A unique violation on (loan_id, emi_number) means the installment
		// was already recorded by a concurrent request.
		r.logger.ErrorContext(ctx, "Failed to insert payment", "loan_id", p.LoanID, "emi_number", p.EMINumber, "error", err)
		return nil, translateDBError(err, r.logger)
	}

	r.logger.InfoContext(ctx, "Payment inserted in DB", "payment_id", created.ID, "loan_id", created.LoanID, "emi_number", created.EMINumber)
	return &created, nil
}

func (r *LoanRepository) DeleteLoanInTx(ctx context.Context, tx pgx.Tx, loanID int64) error {
	cmdTag, err := tx.Exec(ctx, `DELETE FROM loans WHERE id = $1`, loanID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to delete loan", "loan_id", loanID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() != 1 {
		r.logger.ErrorContext(ctx, "Loan delete affected zero rows", "loan_id", loanID)
		return fmt.Errorf("%w: loan delete affected zero rows", apperrors.ErrDatabase)
	}
	r.logger.InfoContext(ctx, "Loan deleted from DB", "loan_id", loanID)
	return nil
}

func translateDBError(err error, contextLogger *slog.Logger) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" {
			contextLogger.Warn("Database unique constraint violation", "detail", pgErr.Detail, "constraint", pgErr.ConstraintName)
			return fmt.Errorf("%w: %s", apperrors.ErrAlreadyExists, pgErr.ConstraintName)
		}

		contextLogger.Error("PostgreSQL specific error", "code", pgErr.Code, "message", pgErr.Message, "detail", pgErr.Detail)
		return fmt.Errorf("%w: db error code %s", apperrors.ErrDatabase, pgErr.Code)
	}

	contextLogger.Error("Generic database error", "error", err)
	return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
}
