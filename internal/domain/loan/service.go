package loan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"loanfriend/internal/event"
	"loanfriend/internal/infrastructure/monitoring"
	"loanfriend/internal/pkg/apperrors"
)

// Policy carries the tunable business rules applied by the service.
type Policy struct {
	AnnualInterestRate decimal.Decimal
	MaxTotalExposure   decimal.Decimal
}

func DefaultPolicy() Policy {
	return Policy{
		AnnualInterestRate: DefaultAnnualRate,
		MaxTotalExposure:   MaxTotalExposure,
	}
}

type LoanService interface {
	ApplyForLoan(ctx context.Context, userID int64, amount decimal.Decimal, tenureMonths int) (*Loan, error)

	GetLoan(ctx context.Context, loanID int64) (*Loan, error)

	ListAllLoans(ctx context.Context) ([]Loan, error)

	ListUserLoans(ctx context.Context, userID int64) ([]Loan, error)

	GetSchedule(ctx context.Context, loanID int64) ([]ScheduleEntry, error)

	NextPayment(ctx context.Context, loanID int64) (*ScheduleEntry, error)

	GetOutstanding(ctx context.Context, loanID int64) (decimal.Decimal, error)

	ListPayments(ctx context.Context, loanID int64) ([]Payment, error)

	ApproveLoan(ctx context.Context, loanID, approverID int64) (*Loan, error)

	RejectLoan(ctx context.Context, loanID int64, reason string) (*Loan, error)

	RecordPayment(ctx context.Context, loanID int64, emiNumber int, amount decimal.Decimal) (*Payment, error)

	ForecloseLoan(ctx context.Context, loanID int64) (*Loan, *Payment, error)

	DeleteLoan(ctx context.Context, loanID int64) error
}

type loanServiceImpl struct {
	repo     Repository
	notifier Notifier
	events   event.Publisher
	policy   Policy
	logger   *slog.Logger
	now      func() time.Time
}

func NewLoanService(r Repository, n Notifier, ev event.Publisher, policy Policy, logger *slog.Logger) LoanService {
	if n == nil {
		n = NopNotifier{}
	}
	if ev == nil {
		ev = event.NopPublisher{}
	}
	return &loanServiceImpl{
		repo:     r,
		notifier: n,
		events:   ev,
		policy:   policy,
		logger:   logger.With("component", "LoanService"),
		now:      time.Now,
	}
}

func (s *loanServiceImpl) ApplyForLoan(ctx context.Context, userID int64, amount decimal.Decimal, tenureMonths int) (*Loan, error) {
	s.logger.InfoContext(ctx, "New loan application", "userID", userID, "amount", amount, "tenure", tenureMonths)

	if err := ValidateTerms(amount, tenureMonths); err != nil {
		return nil, err
	}

	// Creation-time hard stop: the applicant's combined pending+approved
	// principal plus this application must stay within the cap.
	existing, err := s.repo.SumUserLoanAmounts(ctx, userID, 0, []LoanStatus{StatusPending, StatusApproved})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to total user's open loans", "userID", userID, "error", err)
		return nil, fmt.Errorf("%w: failed to total open loans: %v", apperrors.ErrInternalServer, err)
	}
	if existing.Add(amount).GreaterThan(s.policy.MaxTotalExposure) {
		s.logger.WarnContext(ctx, "Loan application over exposure cap", "userID", userID, "existing", existing, "requested", amount)
		return nil, fmt.Errorf("%w: you already have %s in pending/approved loans", apperrors.ErrLimitExceeded, existing.StringFixed(2))
	}

	l, err := NewLoan(userID, amount, tenureMonths, s.policy.AnnualInterestRate, s.now())
	if err != nil {
		return nil, err
	}

	created, err := s.repo.CreateLoan(ctx, l)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist loan application", "userID", userID, "error", err)
		return nil, fmt.Errorf("%w: failed to save loan application: %v", apperrors.ErrInternalServer, err)
	}

	s.logger.InfoContext(ctx, "Loan application created", "loanID", created.ID, "userID", userID)
	return created, nil
}

func (s *loanServiceImpl) GetLoan(ctx context.Context, loanID int64) (*Loan, error) {
	l, err := s.repo.GetLoanByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: loan with ID %d not found", apperrors.ErrNotFound, loanID)
		}
		s.logger.ErrorContext(ctx, "Failed to get loan", "loanID", loanID, "error", err)
		return nil, fmt.Errorf("%w: failed to get loan %d: %v", apperrors.ErrInternalServer, loanID, err)
	}
	return l, nil
}

func (s *loanServiceImpl) ListAllLoans(ctx context.Context) ([]Loan, error) {
	loans, err := s.repo.ListLoans(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list loans", "error", err)
		return nil, fmt.Errorf("%w: failed to list loans: %v", apperrors.ErrInternalServer, err)
	}
	return loans, nil
}

func (s *loanServiceImpl) ListUserLoans(ctx context.Context, userID int64) ([]Loan, error) {
	loans, err := s.repo.ListLoansByUser(ctx, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list user loans", "userID", userID, "error", err)
		return nil, fmt.Errorf("%w: failed to list loans for user %d: %v", apperrors.ErrInternalServer, userID, err)
	}
	return loans, nil
}

func (s *loanServiceImpl) GetSchedule(ctx context.Context, loanID int64) ([]ScheduleEntry, error) {
	l, err := s.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if len(l.Schedule) > 0 {
		return l.Schedule, nil
	}

	// Not yet approved: generate a preview anchored at the application date,
	// without caching it against the loan.
	anchor := l.AppliedAt
	if l.ApprovedAt != nil {
		anchor = *l.ApprovedAt
	}
	return GenerateSchedule(l.Amount, l.TenureMonths, l.AnnualInterestRate, anchor)
}

func (s *loanServiceImpl) NextPayment(ctx context.Context, loanID int64) (*ScheduleEntry, error) {
	l, err := s.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	paid, err := s.repo.CountSuccessfulPayments(ctx, loanID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to count payments", "loanID", loanID, "error", err)
		return nil, fmt.Errorf("%w: failed to count payments for loan %d: %v", apperrors.ErrInternalServer, loanID, err)
	}
	return l.NextPaymentEntry(paid), nil
}

func (s *loanServiceImpl) GetOutstanding(ctx context.Context, loanID int64) (decimal.Decimal, error) {
	l, err := s.GetLoan(ctx, loanID)
	if err != nil {
		return decimal.Zero, err
	}
	paid, err := s.repo.CountSuccessfulPayments(ctx, loanID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to count payments", "loanID", loanID, "error", err)
		return decimal.Zero, fmt.Errorf("%w: failed to count payments for loan %d: %v", apperrors.ErrInternalServer, loanID, err)
	}
	return l.Outstanding(paid), nil
}

func (s *loanServiceImpl) ListPayments(ctx context.Context, loanID int64) ([]Payment, error) {
	if _, err := s.GetLoan(ctx, loanID); err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPaymentsByLoan(ctx, loanID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list payments", "loanID", loanID, "error", err)
		return nil, fmt.Errorf("%w: failed to list payments for loan %d: %v", apperrors.ErrInternalServer, loanID, err)
	}
	return payments, nil
}

func (s *loanServiceImpl) ApproveLoan(ctx context.Context, loanID, approverID int64) (l *Loan, err error) {
	s.logger.InfoContext(ctx, "Approving loan", "loanID", loanID, "approverID", approverID)

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = s.repo.RollbackTx(ctx, tx)
			panic(p)
		} else if err != nil {
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	l, err = s.repo.GetLoanByIDForUpdate(ctx, tx, loanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: loan with ID %d not found", apperrors.ErrNotFound, loanID)
		}
		return nil, fmt.Errorf("%w: could not lock loan %d: %v", apperrors.ErrInternalServer, loanID, err)
	}

	if l.Status != StatusPending {
		return nil, fmt.Errorf("%w: cannot approve a %s loan", apperrors.ErrInvalidTransition, l.Status)
	}

	// Approval-time limit check considers only the user's other APPROVED
	// loans, mirroring the asymmetry with the creation-time check.
	approved, err := s.repo.SumUserLoanAmounts(ctx, l.UserID, l.ID, []LoanStatus{StatusApproved})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to total approved loans: %v", apperrors.ErrInternalServer, err)
	}

	now := s.now()
	if approved.Add(l.Amount).GreaterThan(s.policy.MaxTotalExposure) {
		// Soft reject: the decision is recorded, not reported as an error.
		l.Status = StatusRejectedLimit
		l.RejectionReason = fmt.Sprintf("Loan limit exceeded: %s already approved", approved.StringFixed(2))
		l.IsClosed = true
		if err = s.repo.UpdateLoanInTx(ctx, tx, l); err != nil {
			return nil, fmt.Errorf("%w: could not update loan: %v", apperrors.ErrInternalServer, err)
		}
		if err = s.repo.CommitTx(ctx, tx); err != nil {
			return nil, fmt.Errorf("%w: could not commit transaction: %v", apperrors.ErrInternalServer, err)
		}

		monitoring.RecordLoanDecision("rejected_limit")
		s.logger.WarnContext(ctx, "Loan over limit at approval, recorded as REJECTED_LIMIT", "loanID", l.ID, "approvedTotal", approved)
		s.afterRejection(ctx, l, approverID)
		return l, nil
	}

	l.Status = StatusApproved
	l.ApprovedAt = &now
	l.ApprovedBy = &approverID
	if err = l.RecomputeFinancials(); err != nil {
		return nil, err
	}
	if err = l.EnsureSchedule(now); err != nil {
		return nil, err
	}
	if err = s.repo.UpdateLoanInTx(ctx, tx, l); err != nil {
		return nil, fmt.Errorf("%w: could not update loan: %v", apperrors.ErrInternalServer, err)
	}
	if err = s.repo.CommitTx(ctx, tx); err != nil {
		return nil, fmt.Errorf("%w: could not commit transaction: %v", apperrors.ErrInternalServer, err)
	}

	monitoring.RecordLoanDecision("approved")
	s.logger.InfoContext(ctx, "Loan approved", "loanID", l.ID, "approverID", approverID)

	if nerr := s.notifier.LoanApproved(ctx, l); nerr != nil {
		s.logger.WarnContext(ctx, "Approval notification failed", "loanID", l.ID, "error", nerr)
	}
	if perr := s.events.PublishLoanApproved(ctx, event.LoanDecisionEvent{
		LoanID:     l.ID,
		UserID:     l.UserID,
		Amount:     l.Amount.StringFixed(2),
		Status:     string(l.Status),
		DecidedBy:  &approverID,
		OccurredAt: now,
	}); perr != nil {
		s.logger.WarnContext(ctx, "Approval event publish failed", "loanID", l.ID, "error", perr)
	}
	return l, nil
}

func (s *loanServiceImpl) RejectLoan(ctx context.Context, loanID int64, reason string) (l *Loan, err error) {
	s.logger.InfoContext(ctx, "Rejecting loan", "loanID", loanID)

	if reason == "" {
		return nil, apperrors.NewValidationError("reason", "a rejection reason is required")
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}
	defer func() {
		if err != nil {
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	l, err = s.repo.GetLoanByIDForUpdate(ctx, tx, loanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: loan with ID %d not found", apperrors.ErrNotFound, loanID)
		}
		return nil, fmt.Errorf("%w: could not lock loan %d: %v", apperrors.ErrInternalServer, loanID, err)
	}
	if l.Status != StatusPending {
		return nil, fmt.Errorf("%w: cannot reject a %s loan", apperrors.ErrInvalidTransition, l.Status)
	}

	l.Status = StatusRejected
	l.RejectionReason = reason
	l.IsClosed = true
	if err = s.repo.UpdateLoanInTx(ctx, tx, l); err != nil {
		return nil, fmt.Errorf("%w: could not update loan: %v", apperrors.ErrInternalServer, err)
	}
	if err = s.repo.CommitTx(ctx, tx); err != nil {
		return nil, fmt.Errorf("%w: could not commit transaction: %v", apperrors.ErrInternalServer, err)
	}

	monitoring.RecordLoanDecision("rejected")
	s.logger.InfoContext(ctx, "Loan rejected", "loanID", l.ID)
	s.afterRejection(ctx, l, 0)
	return l, nil
}

func (s *loanServiceImpl) afterRejection(ctx context.Context, l *Loan, decidedBy int64) {
	if nerr := s.notifier.LoanRejected(ctx, l); nerr != nil {
		s.logger.WarnContext(ctx, "Rejection notification failed", "loanID", l.ID, "error", nerr)
	}
	ev := event.LoanDecisionEvent{
		LoanID:     l.ID,
		UserID:     l.UserID,
		Amount:     l.Amount.StringFixed(2),
		Status:     string(l.Status),
		Reason:     l.RejectionReason,
		OccurredAt: s.now(),
	}
	if decidedBy != 0 {
		ev.DecidedBy = &decidedBy
	}
	if perr := s.events.PublishLoanRejected(ctx, ev); perr != nil {
		s.logger.WarnContext(ctx, "Rejection event publish failed", "loanID", l.ID, "error", perr)
	}
}

func (s *loanServiceImpl) RecordPayment(ctx context.Context, loanID int64, emiNumber int, amount decimal.Decimal) (p *Payment, err error) {
	s.logger.InfoContext(ctx, "Recording payment", "loanID", loanID, "emiNumber", emiNumber, "amount", amount)

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}

	defer func() {
		status := "success"
		switch {
		case err == nil:
		case errors.Is(err, apperrors.ErrInvalidPaymentAmount):
			status = "failure_amount"
		case errors.Is(err, apperrors.ErrLoanFullyPaid):
			status = "failure_fully_paid"
		case errors.Is(err, apperrors.ErrInvalidTransition):
			status = "failure_order"
		case errors.Is(err, apperrors.ErrNotFound):
			status = "failure_not_found"
		default:
			status = "failure_internal"
		}
		monitoring.RecordPayment(status)

		if r := recover(); r != nil {
			_ = s.repo.RollbackTx(ctx, tx)
			panic(r)
		} else if err != nil {
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	l, err := s.repo.GetLoanByIDForUpdate(ctx, tx, loanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: cannot make payment, loan ID %d not found", apperrors.ErrNotFound, loanID)
		}
		return nil, fmt.Errorf("%w: could not lock loan %d: %v", apperrors.ErrInternalServer, loanID, err)
	}

	if l.Status != StatusApproved {
		err = fmt.Errorf("%w: cannot pay a %s loan", apperrors.ErrInvalidTransition, l.Status)
		return nil, err
	}

	paid, err := s.repo.CountSuccessfulPaymentsInTx(ctx, tx, loanID)
	if err != nil {
		return nil, fmt.Errorf("%w: could not count payments: %v", apperrors.ErrInternalServer, err)
	}
	if paid >= l.TenureMonths {
		err = apperrors.ErrLoanFullyPaid
		return nil, err
	}

	next := paid + 1
	if emiNumber != next {
		if emiNumber <= paid {
			err = fmt.Errorf("%w: EMI %d has already been paid", apperrors.ErrInvalidTransition, emiNumber)
		} else {
			err = fmt.Errorf("%w: EMI %d is not due yet, next is %d", apperrors.ErrInvalidTransition, emiNumber, next)
		}
		return nil, err
	}

	if !EqualMoney(amount, l.MonthlyInstallment) {
		err = fmt.Errorf("%w: payment amount %s does not match EMI %s",
			apperrors.ErrInvalidPaymentAmount, amount.StringFixed(2), l.MonthlyInstallment.StringFixed(2))
		return nil, err
	}

	now := s.now()
	payment := &Payment{
		LoanID:           loanID,
		Amount:           RoundMoney(amount),
		EMINumber:        next,
		Status:           PaymentStatusSuccess,
		Type:             PaymentTypeEMI,
		GatewayReference: uuid.NewString(),
		PaidAt:           now,
	}
	p, err = s.repo.InsertPaymentInTx(ctx, tx, payment)
	if err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			err = fmt.Errorf("%w: EMI %d has already been paid", apperrors.ErrInvalidTransition, next)
			return nil, err
		}
		return nil, fmt.Errorf("%w: could not insert payment: %v", apperrors.ErrInternalServer, err)
	}

	repaid := next == l.TenureMonths
	if repaid {
		l.Status = StatusRepaid
		l.IsClosed = true
		if err = s.repo.UpdateLoanInTx(ctx, tx, l); err != nil {
			return nil, fmt.Errorf("%w: could not mark loan repaid: %v", apperrors.ErrInternalServer, err)
		}
	}

	if err = s.repo.CommitTx(ctx, tx); err != nil {
		return nil, fmt.Errorf("%w: could not commit transaction: %v", apperrors.ErrInternalServer, err)
	}

	s.logger.InfoContext(ctx, "Payment recorded", "loanID", loanID, "emiNumber", next, "repaid", repaid)

	if nerr := s.notifier.PaymentReceived(ctx, l, p); nerr != nil {
		s.logger.WarnContext(ctx, "Payment notification failed", "loanID", loanID, "error", nerr)
	}
	if perr := s.events.PublishPaymentRecorded(ctx, event.PaymentRecordedEvent{
		LoanID:           loanID,
		PaymentID:        p.ID,
		EMINumber:        p.EMINumber,
		Amount:           p.Amount.StringFixed(2),
		PaymentType:      string(p.Type),
		GatewayReference: p.GatewayReference,
		OccurredAt:       now,
	}); perr != nil {
		s.logger.WarnContext(ctx, "Payment event publish failed", "loanID", loanID, "error", perr)
	}
	if repaid {
		if perr := s.events.PublishLoanRepaid(ctx, event.LoanClosedEvent{
			LoanID:     l.ID,
			UserID:     l.UserID,
			Status:     string(l.Status),
			OccurredAt: now,
		}); perr != nil {
			s.logger.WarnContext(ctx, "Repaid event publish failed", "loanID", loanID, "error", perr)
		}
	}
	return p, nil
}

func (s *loanServiceImpl) ForecloseLoan(ctx context.Context, loanID int64) (l *Loan, p *Payment, err error) {
	s.logger.InfoContext(ctx, "Foreclosing loan", "loanID", loanID)

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}
	defer func() {
		if err != nil {
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	l, err = s.repo.GetLoanByIDForUpdate(ctx, tx, loanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: loan with ID %d not found", apperrors.ErrNotFound, loanID)
		}
		return nil, nil, fmt.Errorf("%w: could not lock loan %d: %v", apperrors.ErrInternalServer, loanID, err)
	}

	if l.Status != StatusApproved {
		return nil, nil, fmt.Errorf("%w: cannot foreclose a %s loan", apperrors.ErrInvalidTransition, l.Status)
	}

	paid, err := s.repo.CountSuccessfulPaymentsInTx(ctx, tx, loanID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: could not count payments: %v", apperrors.ErrInternalServer, err)
	}

	outstanding := l.Outstanding(paid)
	if outstanding.LessThanOrEqual(decimal.Zero) {
		return nil, nil, fmt.Errorf("%w: nothing outstanding to foreclose", apperrors.ErrLoanFullyPaid)
	}

	now := s.now()
	payment := &Payment{
		LoanID:           loanID,
		Amount:           outstanding,
		EMINumber:        paid + 1,
		Status:           PaymentStatusSuccess,
		Type:             PaymentTypeForeclosure,
		GatewayReference: uuid.NewString(),
		PaidAt:           now,
	}
	p, err = s.repo.InsertPaymentInTx(ctx, tx, payment)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: could not insert foreclosure payment: %v", apperrors.ErrInternalServer, err)
	}

	l.Status = StatusForeclosed
	l.ForeclosedAt = &now
	l.ForeclosureAmount = &outstanding
	l.IsClosed = true
	if err = s.repo.UpdateLoanInTx(ctx, tx, l); err != nil {
		return nil, nil, fmt.Errorf("%w: could not update loan: %v", apperrors.ErrInternalServer, err)
	}
	if err = s.repo.CommitTx(ctx, tx); err != nil {
		return nil, nil, fmt.Errorf("%w: could not commit transaction: %v", apperrors.ErrInternalServer, err)
	}

	monitoring.RecordForeclosure()
	s.logger.InfoContext(ctx, "Loan foreclosed", "loanID", loanID, "amount", outstanding)

	if nerr := s.notifier.LoanForeclosed(ctx, l, p); nerr != nil {
		s.logger.WarnContext(ctx, "Foreclosure notification failed", "loanID", loanID, "error", nerr)
	}
	if perr := s.events.PublishLoanForeclosed(ctx, event.LoanClosedEvent{
		LoanID:           l.ID,
		UserID:           l.UserID,
		Status:           string(l.Status),
		SettlementAmount: outstanding.StringFixed(2),
		OccurredAt:       now,
	}); perr != nil {
		s.logger.WarnContext(ctx, "Foreclosure event publish failed", "loanID", loanID, "error", perr)
	}
	return l, p, nil
}

func (s *loanServiceImpl) DeleteLoan(ctx context.Context, loanID int64) (err error) {
	s.logger.InfoContext(ctx, "Deleting loan", "loanID", loanID)

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}
	defer func() {
		if err != nil {
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	if _, err = s.repo.GetLoanByIDForUpdate(ctx, tx, loanID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("%w: loan with ID %d not found", apperrors.ErrNotFound, loanID)
		}
		return fmt.Errorf("%w: could not lock loan %d: %v", apperrors.ErrInternalServer, loanID, err)
	}

	// Payments of any status block deletion; history is never discarded.
	count, err := s.repo.CountPayments(ctx, loanID)
	if err != nil {
		return fmt.Errorf("%w: could not count payments: %v", apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return fmt.Errorf("%w: loan %d has %d recorded payment(s)", apperrors.ErrDeletionBlocked, loanID, count)
	}

	if err = s.repo.DeleteLoanInTx(ctx, tx, loanID); err != nil {
		return fmt.Errorf("%w: could not delete loan: %v", apperrors.ErrInternalServer, err)
	}
	if err = s.repo.CommitTx(ctx, tx); err != nil {
		return fmt.Errorf("%w: could not commit transaction: %v", apperrors.ErrInternalServer, err)
	}

	s.logger.InfoContext(ctx, "Loan deleted", "loanID", loanID)
	return nil
}
