package loan

import "context"

// Notifier is the outbound notification sink. Delivery happens after a
// state transition has committed; a delivery failure is reported by the
// implementation's error but never rolls the transition back.
type Notifier interface {
	LoanApproved(ctx context.Context, l *Loan) error

	LoanRejected(ctx context.Context, l *Loan) error

	PaymentReceived(ctx context.Context, l *Loan, p *Payment) error

	LoanForeclosed(ctx context.Context, l *Loan, p *Payment) error
}

// NopNotifier discards every notification. Used when SMTP is not configured.
type NopNotifier struct{}

func (NopNotifier) LoanApproved(context.Context, *Loan) error {
	return nil
}

func (NopNotifier) LoanRejected(context.Context, *Loan) error {
	return nil
}

func (NopNotifier) PaymentReceived(context.Context, *Loan, *Payment) error {
	return nil
}

func (NopNotifier) LoanForeclosed(context.Context, *Loan, *Payment) error {
	return nil
}
