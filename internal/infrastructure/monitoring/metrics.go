package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type BusinessMetrics struct {
	PaymentsTotal      *prometheus.CounterVec
	LoanDecisionsTotal *prometheus.CounterVec
	ForeclosuresTotal  prometheus.Counter
	RemindersTotal     prometheus.Counter
}

var (
	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "loanfriend_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Business = BusinessMetrics{
		PaymentsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanfriend_payments_total",
				Help: "Total number of payment attempts, by outcome.",
			},
			[]string{"status"},
		),
		LoanDecisionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanfriend_loan_decisions_total",
				Help: "Total number of loan approval decisions, by outcome.",
			},
			[]string{"decision"},
		),
		ForeclosuresTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "loanfriend_foreclosures_total",
				Help: "Total number of loans settled through foreclosure.",
			},
		),
		RemindersTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "loanfriend_emi_reminders_total",
				Help: "Total number of EMI reminder emails sent.",
			},
		),
	}
)

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

func RecordPayment(status string) {
	Business.PaymentsTotal.WithLabelValues(status).Inc()
}

func RecordLoanDecision(decision string) {
	Business.LoanDecisionsTotal.WithLabelValues(decision).Inc()
}

func RecordForeclosure() {
	Business.ForeclosuresTotal.Inc()
}

func RecordReminderSent() {
	Business.RemindersTotal.Inc()
}
