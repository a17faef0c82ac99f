package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"

	"github.com/jordan-wright/email"
	"github.com/shopspring/decimal"

	"loanfriend/internal/config"
	"loanfriend/internal/domain/loan"
	"loanfriend/internal/domain/user"
)

// EmailNotifier delivers lifecycle notifications to the borrower over
// SMTP. Recipient addresses come from the user store; a loan only knows
// its owner's ID.
type EmailNotifier struct {
	cfg    config.SMTPConfig
	users  user.Repository
	send   func(e *email.Email) error
	logger *slog.Logger
}

func NewEmailNotifier(cfg config.SMTPConfig, users user.Repository, logger *slog.Logger) *EmailNotifier {
	n := &EmailNotifier{
		cfg:    cfg,
		users:  users,
		logger: logger.With("component", "EmailNotifier"),
	}
	n.send = n.sendSMTP
	return n
}

func (n *EmailNotifier) sendSMTP(e *email.Email) error {
	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	auth := smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	return e.Send(addr, auth)
}

func (n *EmailNotifier) deliver(ctx context.Context, userID int64, subject, body string) error {
	u, err := n.users.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to resolve recipient for user %d: %w", userID, err)
	}
	if u.Email == "" {
		n.logger.WarnContext(ctx, "User has no email address, skipping notification", "user_id", userID)
		return nil
	}

	e := email.NewEmail()
	e.From = n.cfg.SenderEmail
	e.To = []string{u.Email}
	e.Subject = subject
	e.Text = []byte(fmt.Sprintf("Dear %s,\n\n%s\nBest regards,\nLoanFriend", u.Username, body))

	if err := n.send(e); err != nil {
		n.logger.ErrorContext(ctx, "Failed to send email", "user_id", userID, "subject", subject, "error", err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	n.logger.InfoContext(ctx, "Email sent", "user_id", userID, "subject", subject)
	return nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func (n *EmailNotifier) LoanApproved(ctx context.Context, l *loan.Loan) error {
	body := fmt.Sprintf(
		"Your loan application #%d for %s has been approved.\n"+
			"Monthly installment: %s over %d months.\n"+
			"Total payable: %s (interest %s).\n",
		l.ID, money(l.Amount), money(l.MonthlyInstallment), l.TenureMonths,
		money(l.TotalPayable), money(l.TotalInterest),
	)
	return n.deliver(ctx, l.UserID, fmt.Sprintf("Loan #%d Approved", l.ID), body)
}

func (n *EmailNotifier) LoanRejected(ctx context.Context, l *loan.Loan) error {
	reason := l.RejectionReason
	if reason == "" {
		reason = "not specified"
	}
	body := fmt.Sprintf(
		"Your loan application #%d for %s has been rejected.\nReason: %s\n",
		l.ID, money(l.Amount), reason,
	)
	return n.deliver(ctx, l.UserID, fmt.Sprintf("Loan #%d Rejected", l.ID), body)
}

func (n *EmailNotifier) PaymentReceived(ctx context.Context, l *loan.Loan, p *loan.Payment) error {
	body := fmt.Sprintf(
		"We have received your payment of %s for loan #%d (installment %d of %d).\n",
		money(p.Amount), l.ID, p.EMINumber, l.TenureMonths,
	)
	if l.Status == loan.StatusRepaid {
		body += "Congratulations, your loan is now fully repaid.\n"
	}
	return n.deliver(ctx, l.UserID, fmt.Sprintf("Payment Received for Loan #%d", l.ID), body)
}

func (n *EmailNotifier) LoanForeclosed(ctx context.Context, l *loan.Loan, p *loan.Payment) error {
	body := fmt.Sprintf(
		"Your loan #%d has been foreclosed with a settlement payment of %s.\n"+
			"No further installments are due.\n",
		l.ID, money(p.Amount),
	)
	return n.deliver(ctx, l.UserID, fmt.Sprintf("Loan #%d Foreclosed", l.ID), body)
}

// EMIDueReminder is sent by the reminder batch job ahead of an upcoming
// installment due date.
func (n *EmailNotifier) EMIDueReminder(ctx context.Context, l *loan.Loan, entry *loan.ScheduleEntry) error {
	body := fmt.Sprintf(
		"This is a reminder that installment %d of %d for loan #%d is due on %s.\n"+
			"Amount due: %s.\n",
		entry.EMINumber, l.TenureMonths, l.ID,
		entry.DueDate.Format("2006-01-02"), money(entry.EMIAmount),
	)
	return n.deliver(ctx, l.UserID, fmt.Sprintf("Upcoming EMI for Loan #%d", l.ID), body)
}

var _ loan.Notifier = (*EmailNotifier)(nil)

// SetSendFunc overrides SMTP delivery, for tests.
func (n *EmailNotifier) SetSendFunc(f func(e *email.Email) error) { n.send = f }
