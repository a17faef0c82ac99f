package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"loanfriend/internal/domain/loan"
	"loanfriend/internal/infrastructure/monitoring"
	"loanfriend/internal/notify"
)

// EMIReminderJob scans approved loans once a day and emails borrowers
// whose next installment falls due within the configured window.
type EMIReminderJob struct {
	loanRepo loan.Repository
	notifier *notify.EmailNotifier
	daysOut  int
	logger   *slog.Logger

	now func() time.Time
}

func NewEMIReminderJob(loanRepo loan.Repository, notifier *notify.EmailNotifier, daysOut int, logger *slog.Logger) *EMIReminderJob {
	if loanRepo == nil || notifier == nil || logger == nil {
		panic("EMIReminderJob dependencies cannot be nil")
	}
	if daysOut <= 0 {
		daysOut = 3
	}
	return &EMIReminderJob{
		loanRepo: loanRepo,
		notifier: notifier,
		daysOut:  daysOut,
		logger:   logger.With("job", "EMIReminder"),
		now:      time.Now,
	}
}

func (j *EMIReminderJob) Run(ctx context.Context) error {
	startTime := time.Now()
	j.logger.InfoContext(ctx, "Starting EMI due reminder job.", slog.Int("days_out", j.daysOut))

	loans, err := j.loanRepo.ListApprovedLoans(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to list approved loans, aborting job.", slog.Any("error", err))
		return fmt.Errorf("cannot run job, failed to list approved loans: %w", err)
	}
	j.logger.InfoContext(ctx, "Fetched approved loans.", slog.Int("count", len(loans)))

	if len(loans) == 0 {
		j.logger.InfoContext(ctx, "No approved loans to process.", slog.Duration("duration", time.Since(startTime)))
		return nil
	}

	windowStart := j.now().Truncate(24 * time.Hour)
	windowEnd := windowStart.AddDate(0, 0, j.daysOut)

	var wg sync.WaitGroup
	var remindedCount, skippedCount, errorCount int32

	for i := range loans {
		wg.Add(1)
		go func(l loan.Loan) {
			defer wg.Done()

			logCtx := j.logger.With(slog.Int64("loan_id", l.ID))

			paid, err := j.loanRepo.CountSuccessfulPayments(ctx, l.ID)
			if err != nil {
				logCtx.ErrorContext(ctx, "Failed to count payments for loan", slog.Any("error", err))
				atomic.AddInt32(&errorCount, 1)
				return
			}

			entry := l.NextPaymentEntry(paid)
			if entry == nil {
				logCtx.DebugContext(ctx, "Loan has no pending installment, skipping.")
				atomic.AddInt32(&skippedCount, 1)
				return
			}

			if entry.DueDate.Before(windowStart) || entry.DueDate.After(windowEnd) {
				atomic.AddInt32(&skippedCount, 1)
				return
			}

			if err := j.notifier.EMIDueReminder(ctx, &l, entry); err != nil {
				logCtx.ErrorContext(ctx, "Failed to send EMI reminder", slog.Any("error", err))
				atomic.AddInt32(&errorCount, 1)
				return
			}

			monitoring.RecordReminderSent()
			logCtx.InfoContext(ctx, "EMI reminder sent.",
				slog.Int("emi_number", entry.EMINumber),
				slog.Time("due_date", entry.DueDate))
			atomic.AddInt32(&remindedCount, 1)
		}(loans[i])
	}

	wg.Wait()

	j.logger.InfoContext(ctx, "EMI due reminder job finished.",
		slog.Int("reminded", int(atomic.LoadInt32(&remindedCount))),
		slog.Int("skipped", int(atomic.LoadInt32(&skippedCount))),
		slog.Int("errors", int(atomic.LoadInt32(&errorCount))),
		slog.Duration("duration", time.Since(startTime)))

	if errorCount > 0 {
		return fmt.Errorf("emi reminder job finished with %d errors", errorCount)
	}
	return nil
}
