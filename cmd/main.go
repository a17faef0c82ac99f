package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	_ "loanfriend/docs"
	"loanfriend/internal/api"
	"loanfriend/internal/batch"
	"loanfriend/internal/config"
	"loanfriend/internal/domain/loan"
	"loanfriend/internal/domain/user"
	"loanfriend/internal/event"
	"loanfriend/internal/infrastructure/database/postgres"
	"loanfriend/internal/infrastructure/logging"
	"loanfriend/internal/notify"
)

// @title LoanFriend API
// @version 1.0
// @description Loan management service: applications, approvals, amortization schedules, EMI payments and foreclosure.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, logger := initializeApp()

	dbPool := initializeDatabase(cfg, logger)
	defer closeDatabase(dbPool, logger)

	amqpConn, events := initializeEvents(cfg, logger)
	if amqpConn != nil {
		defer amqpConn.Close()
	}

	loanService, userService, loanRepo, emailNotifier := initializeServices(dbPool, events, cfg, logger)

	cronScheduler := startBatchJobs(cfg, logger, loanRepo, emailNotifier)
	router := api.SetupRouter(loanService, userService, cfg, logger)

	srv, serverErrors, shutdownChan := startServer(cfg, router, logger)
	handleShutdown(srv, cronScheduler, shutdownChan, serverErrors, logger)
}

func initializeApp() (*config.Config, *slog.Logger) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.Logger)
	slog.SetDefault(logger)
	logger.Info("Application starting...", "config_source", viper.ConfigFileUsed())

	return cfg, logger
}

func initializeDatabase(cfg *config.Config, logger *slog.Logger) *pgxpool.Pool {
	logger.Info("Initializing database connection pool...")
	dbPool, err := postgres.NewConnectionPool(context.Background(), cfg.Database, logger)
	if err != nil {
		logger.Error("Failed to initialize database connection pool", "error", err)
		os.Exit(1)
	}
	return dbPool
}

func closeDatabase(dbPool *pgxpool.Pool, logger *slog.Logger) {
	logger.Info("Closing database connection pool...")
	dbPool.Close()
}

// initializeEvents connects to RabbitMQ when configured. The service runs
// fine without a broker; lifecycle events are simply dropped.
func initializeEvents(cfg *config.Config, logger *slog.Logger) (*amqp.Connection, event.Publisher) {
	if !cfg.RabbitMQ.Enabled {
		logger.Info("RabbitMQ disabled, lifecycle events will not be published.")
		return nil, event.NopPublisher{}
	}

	conn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ, continuing without events", "error", err)
		return nil, event.NopPublisher{}
	}

	publisher, err := event.NewRabbitMQEventPublisher(conn, cfg.RabbitMQ.ExchangeName, logger)
	if err != nil {
		logger.Error("Failed to set up event publisher, continuing without events", "error", err)
		conn.Close()
		return nil, event.NopPublisher{}
	}

	logger.Info("RabbitMQ event publisher initialized.", "exchange", cfg.RabbitMQ.ExchangeName)
	return conn, publisher
}

func initializeServices(dbPool *pgxpool.Pool, events event.Publisher, cfg *config.Config, logger *slog.Logger) (loan.LoanService, user.UserService, loan.Repository, *notify.EmailNotifier) {
	logger.Info("Initializing application components...")

	loanRepo := postgres.NewLoanRepository(dbPool, logger)
	userRepo := postgres.NewUserRepository(dbPool, logger)

	userService := user.NewUserService(userRepo, logger)

	var notifier loan.Notifier = loan.NopNotifier{}
	var emailNotifier *notify.EmailNotifier
	if cfg.SMTP.Enabled {
		emailNotifier = notify.NewEmailNotifier(cfg.SMTP, userRepo, logger)
		notifier = emailNotifier
	} else {
		logger.Info("SMTP disabled, borrower emails will not be sent.")
	}

	policy := loan.DefaultPolicy()
	if cfg.Lending.AnnualInterestRate > 0 {
		policy.AnnualInterestRate = decimal.NewFromFloat(cfg.Lending.AnnualInterestRate)
	}
	if cfg.Lending.MaxTotalExposure > 0 {
		policy.MaxTotalExposure = decimal.NewFromFloat(cfg.Lending.MaxTotalExposure)
	}

	loanService := loan.NewLoanService(loanRepo, notifier, events, policy, logger)
	return loanService, userService, loanRepo, emailNotifier
}

func startServer(cfg *config.Config, router http.Handler, logger *slog.Logger) (*http.Server, <-chan error, <-chan os.Signal) {
	logger.Info("Setting up HTTP server...", "port", cfg.Server.Port)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("Server listening on port %d", cfg.Server.Port))
		err := srv.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			serverErrors <- err
		} else {
			logger.Info("Server closed gracefully.")
			serverErrors <- nil
		}
	}()
	return srv, serverErrors, shutdownChan
}

func handleShutdown(srv *http.Server, cronScheduler *cron.Cron, shutdownChan <-chan os.Signal, serverErrors <-chan error, logger *slog.Logger) {
	logger.Info("Shutdown handler started. Waiting for signal or server error...")

	var triggerReason string
	select {
	case sig := <-shutdownChan:
		triggerReason = "signal: " + sig.String()
		logger.Info("Shutdown signal received.", "signal", sig.String())
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server exited unexpectedly before signal", "error", err)
			os.Exit(1)
		}
		triggerReason = "server exited"
		logger.Info("Server goroutine finished before signal.", "error", err)
	}

	logger.Info("Starting graceful shutdown...", "trigger", triggerReason)

	logger.Info("Stopping cron scheduler...")
	cronCtx := cronScheduler.Stop()
	select {
	case <-cronCtx.Done():
		logger.Info("Cron scheduler stopped gracefully.")
	case <-time.After(15 * time.Second):
		logger.Warn("Cron scheduler shutdown timed out.")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	logger.Info("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server graceful shutdown failed", "error", err)
		} else {
			logger.Info("HTTP server shutdown initiated.")
		}
		if err := srv.Close(); err != nil {
			logger.Error("HTTP server forced close failed", "error", err)
		}
	} else {
		logger.Info("HTTP server gracefully stopped.")
	}

	logger.Info("Waiting for server goroutine to confirm exit...")
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Server goroutine exited with unexpected error after shutdown", "error", err)
		} else {
			logger.Info("Server goroutine confirmed exit.")
		}
	case <-time.After(5 * time.Second):
		logger.Warn("Timed out waiting for server goroutine confirmation.")
	}

	logger.Info("Application shutdown process complete.")
}

func startBatchJobs(cfg *config.Config, logger *slog.Logger, loanRepo loan.Repository, emailNotifier *notify.EmailNotifier) *cron.Cron {
	logger.Info("Initializing batch job scheduler...")
	c := cron.New()

	if emailNotifier == nil {
		logger.Info("SMTP disabled, EMI reminder job not scheduled.")
		c.Start()
		return c
	}

	scheduleSpec := cfg.Batch.ReminderSchedule
	if scheduleSpec == "" {
		scheduleSpec = "0 8 * * *"
		logger.Warn("EMI reminder schedule not configured, using default", "schedule", scheduleSpec)
	}
	jobTimeout := cfg.Batch.ReminderTimeout
	if jobTimeout <= 0 {
		jobTimeout = 30 * time.Minute
	}

	reminderJob := batch.NewEMIReminderJob(loanRepo, emailNotifier, cfg.Batch.ReminderDaysOut, logger)

	jobID, err := c.AddJob(scheduleSpec, cron.FuncJob(func() {
		jobLogger := logger.With("job_name", "EMIReminder")
		jobLogger.Info("Cron triggered: Running EMI reminder job.")

		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		if runErr := reminderJob.Run(ctx); runErr != nil {
			jobLogger.Error("EMI reminder job finished with error", slog.Any("error", runErr))
		} else {
			jobLogger.Info("EMI reminder job finished successfully.")
		}
	}))

	if err != nil {
		logger.Error("Failed to schedule EMI reminder job", "schedule", scheduleSpec, slog.Any("error", err))
	} else {
		logger.Info("Scheduled EMI reminder job", "schedule", scheduleSpec, "job_id", jobID)
	}

	c.Start()
	logger.Info("Cron scheduler started.")
	return c
}
