package loan

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"loanfriend/internal/event"
	"loanfriend/internal/pkg/apperrors"
)

type MockRepository struct {
	mock.Mock
}

func (_m *MockRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	ret := _m.Called(ctx)
	tx, _ := ret.Get(0).(pgx.Tx)
	return tx, ret.Error(1)
}

func (_m *MockRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	return _m.Called(ctx, tx).Error(0)
}

func (_m *MockRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	return _m.Called(ctx, tx).Error(0)
}

func (_m *MockRepository) CreateLoan(ctx context.Context, l *Loan) (*Loan, error) {
	ret := _m.Called(ctx, l)
	created, _ := ret.Get(0).(*Loan)
	return created, ret.Error(1)
}

func (_m *MockRepository) GetLoanByID(ctx context.Context, loanID int64) (*Loan, error) {
	ret := _m.Called(ctx, loanID)
	l, _ := ret.Get(0).(*Loan)
	return l, ret.Error(1)
}

func (_m *MockRepository) GetLoanByIDForUpdate(ctx context.Context, tx pgx.Tx, loanID int64) (*Loan, error) {
	ret := _m.Called(ctx, tx, loanID)
	l, _ := ret.Get(0).(*Loan)
	return l, ret.Error(1)
}

func (_m *MockRepository) ListLoans(ctx context.Context) ([]Loan, error) {
	ret := _m.Called(ctx)
	loans, _ := ret.Get(0).([]Loan)
	return loans, ret.Error(1)
}

func (_m *MockRepository) ListLoansByUser(ctx context.Context, userID int64) ([]Loan, error) {
	ret := _m.Called(ctx, userID)
	loans, _ := ret.Get(0).([]Loan)
	return loans, ret.Error(1)
}

func (_m *MockRepository) ListApprovedLoans(ctx context.Context) ([]Loan, error) {
	ret := _m.Called(ctx)
	loans, _ := ret.Get(0).([]Loan)
	return loans, ret.Error(1)
}

func (_m *MockRepository) SumUserLoanAmounts(ctx context.Context, userID int64, excludeLoanID int64, statuses []LoanStatus) (decimal.Decimal, error) {
	ret := _m.Called(ctx, userID, excludeLoanID, statuses)
	total, _ := ret.Get(0).(decimal.Decimal)
	return total, ret.Error(1)
}

func (_m *MockRepository) UpdateLoanInTx(ctx context.Context, tx pgx.Tx, l *Loan) error {
	return _m.Called(ctx, tx, l).Error(0)
}

func (_m *MockRepository) CountPayments(ctx context.Context, loanID int64) (int, error) {
	ret := _m.Called(ctx, loanID)
	return ret.Int(0), ret.Error(1)
}

func (_m *MockRepository) CountSuccessfulPayments(ctx context.Context, loanID int64) (int, error) {
	ret := _m.Called(ctx, loanID)
	return ret.Int(0), ret.Error(1)
}

func (_m *MockRepository) CountSuccessfulPaymentsInTx(ctx context.Context, tx pgx.Tx, loanID int64) (int, error) {
	ret := _m.Called(ctx, tx, loanID)
	return ret.Int(0), ret.Error(1)
}

func (_m *MockRepository) ListPaymentsByLoan(ctx context.Context, loanID int64) ([]Payment, error) {
	ret := _m.Called(ctx, loanID)
	payments, _ := ret.Get(0).([]Payment)
	return payments, ret.Error(1)
}

func (_m *MockRepository) InsertPaymentInTx(ctx context.Context, tx pgx.Tx, p *Payment) (*Payment, error) {
	ret := _m.Called(ctx, tx, p)
	created, _ := ret.Get(0).(*Payment)
	return created, ret.Error(1)
}

func (_m *MockRepository) DeleteLoanInTx(ctx context.Context, tx pgx.Tx, loanID int64) error {
	return _m.Called(ctx, tx, loanID).Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (_m *MockNotifier) LoanApproved(ctx context.Context, l *Loan) error {
	return _m.Called(ctx, l).Error(0)
}

func (_m *MockNotifier) LoanRejected(ctx context.Context, l *Loan) error {
	return _m.Called(ctx, l).Error(0)
}

func (_m *MockNotifier) PaymentReceived(ctx context.Context, l *Loan, p *Payment) error {
	return _m.Called(ctx, l, p).Error(0)
}

func (_m *MockNotifier) LoanForeclosed(ctx context.Context, l *Loan, p *Payment) error {
	return _m.Called(ctx, l, p).Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newServiceWithMocks(t *testing.T) (LoanService, *MockRepository, *MockNotifier) {
	t.Helper()
	repo := new(MockRepository)
	notifier := new(MockNotifier)
	svc := NewLoanService(repo, notifier, event.NopPublisher{}, DefaultPolicy(), testLogger())
	return svc, repo, notifier
}

func approvedTestLoan(t *testing.T, id int64, amount string, tenure int) *Loan {
	t.Helper()
	l := newTestLoan(t, amount, tenure)
	l.ID = id
	require.NoError(t, l.EnsureSchedule(testAppliedAt))
	l.Status = StatusApproved
	return l
}

func TestApplyForLoan(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		svc, repo, _ := newServiceWithMocks(t)

		repo.On("SumUserLoanAmounts", ctx, int64(42), int64(0), []LoanStatus{StatusPending, StatusApproved}).
			Return(decimal.Zero, nil).Once()
		repo.On("CreateLoan", ctx, mock.AnythingOfType("*loan.Loan")).
			Return(func() *Loan {
				l := newTestLoan(t, "10000", 12)
				l.ID = 1
				return l
			}(), nil).Once()

		created, err := svc.ApplyForLoan(ctx, 42, d("10000"), 12)

		require.NoError(t, err)
		assert.Equal(t, int64(1), created.ID)
		assert.Equal(t, StatusPending, created.Status)
		repo.AssertExpectations(t)
	})

	t.Run("ExactlyAtCapIsAllowed", func(t *testing.T) {
		svc, repo, _ := newServiceWithMocks(t)

		repo.On("SumUserLoanAmounts", ctx, int64(42), int64(0), mock.Anything).
			Return(d("60000"), nil).Once()
		repo.On("CreateLoan", ctx, mock.Anything).
			Return(newTestLoan(t, "40000", 12), nil).Once()

		_, err := svc.ApplyForLoan(ctx, 42, d("40000"), 12)

		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("OverCapIsRefused", func(t *testing.T) {
		svc, repo, _ := newServiceWithMocks(t)

		repo.On("SumUserLoanAmounts", ctx, int64(42), int64(0), mock.Anything).
			Return(d("60000.01"), nil).Once()

		_, err := svc.ApplyForLoan(ctx, 42, d("40000"), 12)

		require.ErrorIs(t, err, apperrors.ErrLimitExceeded)
		repo.AssertNotCalled(t, "CreateLoan", mock.Anything, mock.Anything)
	})

	t.Run("InvalidTermsSkipRepository", func(t *testing.T) {
		svc, repo, _ := newServiceWithMocks(t)

		_, err := svc.ApplyForLoan(ctx, 42, d("500"), 12)
		assert.Error(t, err)

		_, err = svc.ApplyForLoan(ctx, 42, d("10000"), 36)
		assert.Error(t, err)

		repo.AssertNotCalled(t, "SumUserLoanAmounts", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestApproveLoan(t *testing.T) {
	ctx := context.Background()

	t.Run("Approves", func(t *testing.T) {
		svc, repo, notifier := newServiceWithMocks(t)
		l := newTestLoan(t, "10000", 12)
		l.ID = 7

		repo.On("BeginTx", ctx).Return(nil, nil).Once()
		repo.On("GetLoanByIDForUpdate", ctx, nil, int64(7)).Return(l, nil).Once()
		repo.On("SumUserLoanAmounts", ctx, int64(42), int64(7), []LoanStatus{StatusApproved}).
			Return(decimal.Zero, nil).Once()
		repo.On("UpdateLoanInTx", ctx, nil, l).Return(nil).Once()
		repo.On("CommitTx", ctx, nil).Return(nil).Once()
		notifier.On("LoanApproved", ctx, l).Return(nil).Once()

		approved, err := svc.ApproveLoan(ctx, 7, 99)

		require.NoError(t, err)
		assert.Equal(t, StatusApproved, approved.Status)
		require.NotNil(t, approved.ApprovedAt)
		require.NotNil(t, approved.ApprovedBy)
		assert.Equal(t, int64(99), *approved.ApprovedBy)
		assert.Len(t, approved.Schedule, 12, "approval generates the schedule")
		repo.AssertExpectations(t)
		notifier.AssertExpectations(t)
	})

	t.Run("OverCapBecomesRejectedLimit", func(t *testing.T) {
		svc, repo, notifier := newServiceWithMocks(t)
		l := newTestLoan(t, "50000", 12)
		l.ID = 8

		repo.On("BeginTx", ctx).Return(nil, nil).Once()
		repo.On("GetLoanByIDForUpdate", ctx, nil, int64(8)).Return(l, nil).Once()
		repo.On("SumUserLoanAmounts", ctx, int64(42), int64(8), []LoanStatus{StatusApproved}).
			Return(d("60000"), nil).Once()
		repo.On("UpdateLoanInTx", ctx, nil, l).Return(nil).Once()
		repo.On("CommitTx", ctx, nil).Return(nil).Once()
		notifier.On("LoanRejected", ctx, l).Return(nil).Once()

		decided, err := svc.ApproveLoan(ctx, 8, 99)

		// The decision is recorded, not surfaced as an error.
		require.NoError(t, err)
		assert.Equal(t, StatusRejectedLimit, decided.Status)
		assert.True(t, decided.IsClosed)
		assert.NotEmpty(t, decided.RejectionReason)
		repo.AssertExpectations(t)
		notifier.AssertExpectations(t)
	})

	t.Run("NonPendingIsRefused", func(t *testing.T) {
		svc, repo, _ := newServiceWithMocks(t)
		l := approvedTestLoan(t, 9, "10000", 12)

		repo.On("BeginTx", ctx).Return(nil, nil).Once()
		repo.On("GetLoanByIDForUpdate", ctx, nil, int64(9)).Return(l, nil).Once()
		repo.On("RollbackTx", ctx, nil).Return(nil).Once()

		_, err := svc.ApproveLoan(ctx, 9, 99)

		require.ErrorIs(t, err, apperrors.ErrInvalidTransition)
		repo.AssertNotCalled(t, "UpdateLoanInTx", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("NotFound", func(t *testing.T) {
		svc, repo, _ := newServiceWithMocks(t)

		repo.On("BeginTx", ctx).Return(nil, nil).Once()
		repo.On("GetLoanByIDForUpdate", ctx, nil, int64(404)).Return(nil, apperrors.ErrNotFound).Once()
		repo.On("RollbackTx", ctx, nil).Return(nil).Once()

		_, err := svc.ApproveLoan(ctx, 404, 99)

		require.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestRejectLoan(t *testing.T) {
	ctx := context.Background()

	t.Run("Rejects", func(t *testing.T) {
		svc, repo, notifier := newServiceWithMocks(t)
		l := newTestLoan(t, "10000", 12)
		l.ID = 10

		repo.On("BeginTx", ctx).Return(nil, nil).Once()
		repo.On("GetLoanByIDForUpdate", ctx, nil, int64(10)).Return(l, nil).Once()
		repo.On("UpdateLoanInTx", ctx, nil, l).Return(nil).Once()
		repo.On("CommitTx", ctx, nil).Return(nil).Once()
		notifier.On("LoanRejected", ctx, l).Return(nil).Once()

		rejected, err := svc.RejectLoan(ctx, 10, "insufficient income")

		require.NoError(t, err)
		assert.Equal(t, StatusRejected, rejected.Status)
		assert.Equal(t, "insufficient income", rejected.RejectionReason)
		assert.True(t, rejected.IsClosed)
		repo.AssertExpectations(t)
	})

	t.Run("ReasonIsMandatory", func(t *testing.T) {
		svc, repo, _ := newServiceWithMocks(t)

		_, err := svc.RejectLoan(ctx, 10, "")

		var vErr *apperrors.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "reason", vErr.Field)
		repo.AssertNotCalled(t, "BeginTx", mock.Anything)
	})

	t.Run("NonPendingIsRefused", func(t *testing.T) {
		svc, repo, _ := newServiceWithMocks(t)
		l := approvedTestLoan(t, 11, "10000", 12)

		repo.On("BeginTx", ctx).Return(nil, nil).Once()
		repo.On("GetLoanByIDForUpdate", ctx, nil, int64(11)).Return(l, nil).Once()
		repo.On("RollbackTx", ctx, nil).Return(nil).Once()

		_, err := svc.RejectLoan(ctx, 11, "anything")

		require.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	})
}

func TestRecordPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("FirstInstallment", func(t *testing.T) {
		svc, repo, notifier := newServiceWithMocks(t)
		l := approvedTestLoan(t, 20, "10000", 12)

		repo.On("BeginTx", ctx).Return(nil, nil).Once()
		repo.On("GetLoanByIDForUpdate", ctx, nil, int64(20)).Return(l, nil).Once()
		repo.On("CountSuccessfulPaymentsInTx", ctx, nil, int64(20)).Return(0, nil).Once()
		repo.On("InsertPaymentInTx", ctx, nil, mock.MatchedBy(func(p *Payment) bool {
			return p.EMINumber == 1 && p.Type == PaymentTypeEMI && p.Status == PaymentStatusSuccess
		})).Return(&Payment{ID: 100, LoanID: 20, EMINumber: 1, Status: PaymentStatusSuccess, Type: PaymentTypeEMI}, nil).Once()
		repo.On("CommitTx", ctx, nil).Return(nil).Once()
		notifier.On("PaymentReceived", ctx, l, mock.Anything).Return(nil).Once()

		p, err := svc.RecordPayment(ctx, 20, 1, l.MonthlyInstallment)

		require.NoError(t, err)
		assert.Equal(t, 1, p.EMINumber)
		assert.Equal(t, StatusApproved, l.Status, "loan is still open mid-tenure")
		repo.AssertExpectations(t)
	})

	t.Run("OutOfOrderIsRefused", func(t *testing.T) {
		svc, repo, _ := newServiceWithMocks(t)
		l := approvedTestLoan(t, 21, "10000", 12)

		repo.On("BeginTx", ctx).Return(nil, nil).Once()
		repo.On("GetLoanByIDForUpdate", ctx, nil, int64(21)).Return(l, nil).Once()
		repo.On("CountSuccessfulPaymentsInTx", ctx, nil, int64(21)).Return(0, nil).Once()
		repo.On("RollbackTx", ctx, nil).Return(nil).Once()

		_, err := svc.RecordPayment(ctx, 21, 2, l.MonthlyInstallment)

		require.ErrorIs(t, err, apperrors.ErrInvalidTransition)
		assert.Contains(t, err.Error(), "not due yet")
		repo.AssertNotCalled(t, "InsertPaymentInTx", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("DuplicateIsRefused", func(t *testing.T) {
		svc, repo, _ := newServiceWithMocks(t)
		l := approvedTestLoan(t, 22, "10000", 12)

		repo.On("BeginTx", ctx).Return(nil, nil).Once()
		repo.On("GetLoanByIDForUpdate", ctx, nil, int64(22)).Return(l, nil).Once()
		repo.On("CountSuccessfulPaymentsInTx", ctx, nil, int64(22)).Return(1, nil).Once()
		repo.On("RollbackTx", ctx, nil).Return(nil).Once()

		_, err := svc.RecordPayment(ctx, 22, 1, l.MonthlyInstallment)

		require.ErrorIs(t, err, apperrors.ErrInvalidTransition)
		assert.Contains(t, err.Error(), "already been paid")
	})

	t.Run("WrongAmountIsRefused", func(t *testing.T) {
		svc, repo, _ := newServiceWithMocks(t)
		l := approvedTestLoan(t, 23, "10000", 12)

		repo.On("BeginTx", ctx).Return(nil, nil).Once()
		repo.On("GetLoanByIDForUpdate", ctx, nil, int64(23)).Return(l, nil).Once()
		repo.On("CountSuccessfulPaymentsInTx", ctx, nil, int64(23)).Return(0, nil).Once()
		repo.On("RollbackTx", ctx, nil).Return(nil).Once()

		_, err := svc.RecordPayment(ctx, 23, 1, d("100.00"))

		require.ErrorIs(t, err, apperrors.ErrInvalidPaymentAmount)
	})

	t.Run("FinalInstallmentMarksRepaid", func(t *testing.T) {
		svc, repo, notifier := newServiceWithMocks(t)
		l := approvedTestLoan(t, 24, "10000", 12)

		repo.On("BeginTx", ctx).Return(nil, nil).Once()
		repo.On("GetLoanByIDForUpdate", ctx, nil, int64(24)).Return(l, nil).Once()
		repo.On("CountSuccessfulPaymentsInTx", ctx, nil, int64(24)).Return(11, nil).Once()
		repo.On("InsertPaymentInTx", ctx, nil, mock.MatchedBy(func(p *Payment) bool {
			return p.EMINumber == 12
		})).Return(&Payment{ID: 101, LoanID: 24, EMINumber: 12, Status: PaymentStatusSuccess, Type: PaymentTypeEMI}, nil).Once()
		repo.On("UpdateLoanInTx", ctx, nil, l).Return(nil).Once()
		repo.On("CommitTx", ctx, nil).Return(nil).Once()
		notifier.On("PaymentReceived", ctx, l, mock.Anything).Return(nil).Once()

		_, err := svc.RecordPayment(ctx, 24, 12, l.MonthlyInstallment)

		require.NoError(t, err)
		assert.Equal(t, StatusRepaid, l.Status)
		assert.True(t, l.IsClosed)
		repo.AssertExpectations(t)
	})

	t.Run("FullyPaidIsRefused", func(t *testing.T) {
		svc, repo, _ := newServiceWithMocks(t)
		l := approvedTestLoan(t, 25, "10000", 12)

		repo.On("BeginTx", ctx).Return(nil, nil).Once()
		repo.On("GetLoanByIDForUpdate", ctx, nil, int64(25)).Return(l, nil).Once()
		repo.On("CountSuccessfulPaymentsInTx", ctx, nil, int64(25)).Return(12, nil).Once()
		repo.On("RollbackTx", ctx, nil).Return(nil).Once()

		_, err := svc.RecordPayment(ctx, 25, 13, l.MonthlyInstallment)

		require.ErrorIs(t, err, apperrors.ErrLoanFullyPaid)
	})

	t.Run("NonApprovedIsRefused", func(t *testing.T) {
		svc, repo, _ := newServiceWithMocks(t)
		l := newTestLoan(t, "10000", 12)
		l.ID = 26

		repo.On("BeginTx", ctx).Return(nil, nil).Once()
		repo.On("GetLoanByIDForUpdate", ctx, nil, int64(26)).Return(l, nil).Once()
		repo.On("RollbackTx", ctx, nil).Return(nil).Once()

		_, err := svc.RecordPayment(ctx, 26, 1, l.MonthlyInstallment)

		require.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	})

	t.Run("NotificationFailureDoesNotFailPayment", func(t *testing.T) {
		svc, repo, notifier := newServiceWithMocks(t)
		l := approvedTestLoan(t, 27, "10000", 12)

		repo.On("BeginTx", ctx).Return(nil, nil).Once()
		repo.On("GetLoanByIDForUpdate", ctx, nil, int64(27)).Return(l, nil).Once()
		repo.On("CountSuccessfulPaymentsInTx", ctx, nil, int64(27)).Return(0, nil).Once()
		repo.On("InsertPaymentInTx", ctx, nil, mock.Anything).
			Return(&Payment{ID: 102, LoanID: 27, EMINumber: 1, Status: PaymentStatusSuccess, Type: PaymentTypeEMI}, nil).Once()
		repo.On("CommitTx", ctx, nil).Return(nil).Once()
		notifier.On("PaymentReceived", ctx, l, mock.Anything).Return(assert.AnError).Once()

		_, err := svc.RecordPayment(ctx, 27, 1, l.MonthlyInstallment)

		require.NoError(t, err)
	})
}

func TestForecloseLoan(t *testing.T) {
	ctx := context.Background()

	t.Run("SettlesOutstandingBalance", func(t *testing.T) {
		svc, repo, notifier := newServiceWithMocks(t)
		l := approvedTestLoan(t, 30, "10000", 12)
		wantPayoff := l.Schedule[2].RemainingBalance

		repo.On("BeginTx", ctx).Return(nil, nil).Once()
		repo.On("GetLoanByIDForUpdate", ctx, nil, int64(30)).Return(l, nil).Once()
		repo.On("CountSuccessfulPaymentsInTx", ctx, nil, int64(30)).Return(3, nil).Once()
		repo.On("InsertPaymentInTx", ctx, nil, mock.MatchedBy(func(p *Payment) bool {
			return p.Type == PaymentTypeForeclosure && p.EMINumber == 4 && p.Amount.Equal(wantPayoff)
		})).Return(&Payment{ID: 103, LoanID: 30, EMINumber: 4, Amount: wantPayoff, Type: PaymentTypeForeclosure}, nil).Once()
		repo.On("UpdateLoanInTx", ctx, nil, l).Return(nil).Once()
		repo.On("CommitTx", ctx, nil).Return(nil).Once()
		notifier.On("LoanForeclosed", ctx, l, mock.Anything).Return(nil).Once()

		closed, p, err := svc.ForecloseLoan(ctx, 30)

		require.NoError(t, err)
		assert.Equal(t, StatusForeclosed, closed.Status)
		assert.True(t, closed.IsClosed)
		require.NotNil(t, closed.ForeclosureAmount)
		assert.True(t, closed.ForeclosureAmount.Equal(wantPayoff))
		assert.Equal(t, 4, p.EMINumber)
		repo.AssertExpectations(t)
		notifier.AssertExpectations(t)
	})

	t.Run("NonApprovedIsRefused", func(t *testing.T) {
		svc, repo, _ := newServiceWithMocks(t)
		l := newTestLoan(t, "10000", 12)
		l.ID = 31

		repo.On("BeginTx", ctx).Return(nil, nil).Once()
		repo.On("GetLoanByIDForUpdate", ctx, nil, int64(31)).Return(l, nil).Once()
		repo.On("RollbackTx", ctx, nil).Return(nil).Once()

		_, _, err := svc.ForecloseLoan(ctx, 31)

		require.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	})

	t.Run("NothingOutstandingIsRefused", func(t *testing.T) {
		svc, repo, _ := newServiceWithMocks(t)
		l := approvedTestLoan(t, 32, "10000", 12)

		repo.On("BeginTx", ctx).Return(nil, nil).Once()
		repo.On("GetLoanByIDForUpdate", ctx, nil, int64(32)).Return(l, nil).Once()
		repo.On("CountSuccessfulPaymentsInTx", ctx, nil, int64(32)).Return(12, nil).Once()
		repo.On("RollbackTx", ctx, nil).Return(nil).Once()

		_, _, err := svc.ForecloseLoan(ctx, 32)

		require.ErrorIs(t, err, apperrors.ErrLoanFullyPaid)
	})
}

func TestDeleteLoan(t *testing.T) {
	ctx := context.Background()

	t.Run("DeletesLoanWithoutPayments", func(t *testing.T) {
		svc, repo, _ := newServiceWithMocks(t)
		l := newTestLoan(t, "10000", 12)
		l.ID = 40

		repo.On("BeginTx", ctx).Return(nil, nil).Once()
		repo.On("GetLoanByIDForUpdate", ctx, nil, int64(40)).Return(l, nil).Once()
		repo.On("CountPayments", ctx, int64(40)).Return(0, nil).Once()
		repo.On("DeleteLoanInTx", ctx, nil, int64(40)).Return(nil).Once()
		repo.On("CommitTx", ctx, nil).Return(nil).Once()

		err := svc.DeleteLoan(ctx, 40)

		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("PaymentsBlockDeletion", func(t *testing.T) {
		svc, repo, _ := newServiceWithMocks(t)
		l := approvedTestLoan(t, 41, "10000", 12)

		repo.On("BeginTx", ctx).Return(nil, nil).Once()
		repo.On("GetLoanByIDForUpdate", ctx, nil, int64(41)).Return(l, nil).Once()
		repo.On("CountPayments", ctx, int64(41)).Return(2, nil).Once()
		repo.On("RollbackTx", ctx, nil).Return(nil).Once()

		err := svc.DeleteLoan(ctx, 41)

		require.ErrorIs(t, err, apperrors.ErrDeletionBlocked)
		repo.AssertNotCalled(t, "DeleteLoanInTx", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestReadOperations(t *testing.T) {
	ctx := context.Background()

	t.Run("GetSchedulePreviewForPendingLoan", func(t *testing.T) {
		svc, repo, _ := newServiceWithMocks(t)
		l := newTestLoan(t, "10000", 12)
		l.ID = 50

		repo.On("GetLoanByID", ctx, int64(50)).Return(l, nil).Once()

		schedule, err := svc.GetSchedule(ctx, 50)

		require.NoError(t, err)
		require.Len(t, schedule, 12)
		// Preview must not be cached against the loan.
		assert.Nil(t, l.Schedule)
		assert.Equal(t, AddMonths(l.AppliedAt, 1), schedule[0].DueDate)
	})

	t.Run("NextPayment", func(t *testing.T) {
		svc, repo, _ := newServiceWithMocks(t)
		l := approvedTestLoan(t, 51, "10000", 12)

		repo.On("GetLoanByID", ctx, int64(51)).Return(l, nil).Once()
		repo.On("CountSuccessfulPayments", ctx, int64(51)).Return(2, nil).Once()

		entry, err := svc.NextPayment(ctx, 51)

		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, 3, entry.EMINumber)
	})

	t.Run("GetOutstanding", func(t *testing.T) {
		svc, repo, _ := newServiceWithMocks(t)
		l := approvedTestLoan(t, 52, "10000", 12)

		repo.On("GetLoanByID", ctx, int64(52)).Return(l, nil).Once()
		repo.On("CountSuccessfulPayments", ctx, int64(52)).Return(2, nil).Once()

		outstanding, err := svc.GetOutstanding(ctx, 52)

		require.NoError(t, err)
		assert.Equal(t, "8401.71", outstanding.StringFixed(2))
	})

	t.Run("GetLoanNotFound", func(t *testing.T) {
		svc, repo, _ := newServiceWithMocks(t)

		repo.On("GetLoanByID", ctx, int64(404)).Return(nil, apperrors.ErrNotFound).Once()

		_, err := svc.GetLoan(ctx, 404)

		require.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}
