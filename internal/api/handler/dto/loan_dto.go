package dto

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"loanfriend/internal/domain/loan"
)

type CreateLoanRequest struct {
	Amount       float64 `json:"amount"`
	TenureMonths int     `json:"tenureMonths"`
}

func (r *CreateLoanRequest) Validate() error {
	if r.Amount <= 0 {
		return fmt.Errorf("amount must be greater than zero")
	}
	if r.TenureMonths <= 0 {
		return fmt.Errorf("tenureMonths must be positive")
	}
	return nil
}

type RejectLoanRequest struct {
	Reason string `json:"reason"`
}

func (r *RejectLoanRequest) Validate() error {
	if r.Reason == "" {
		return fmt.Errorf("reason is required")
	}
	return nil
}

type MakePaymentRequest struct {
	EMINumber int    `json:"emiNumber"`
	Amount    string `json:"amount"`
}

func (r *MakePaymentRequest) Validate() error {
	if r.EMINumber <= 0 {
		return fmt.Errorf("emiNumber must be positive")
	}
	if _, err := decimal.NewFromString(r.Amount); err != nil || r.Amount == "" {
		return fmt.Errorf("invalid payment amount: %w", err)
	}
	return nil
}

type LoanResponse struct {
	ID                 string                  `json:"id"`
	UserID             string                  `json:"userId"`
	Amount             string                  `json:"amount"`
	TenureMonths       int                     `json:"tenureMonths"`
	AnnualInterestRate string                  `json:"annualInterestRate"`
	MonthlyInstallment string                  `json:"monthlyInstallment"`
	TotalPayable       string                  `json:"totalPayable"`
	TotalInterest      string                  `json:"totalInterest"`
	Status             string                  `json:"status"`
	IsClosed           bool                    `json:"isClosed"`
	AppliedAt          time.Time               `json:"appliedAt"`
	ApprovedAt         *time.Time              `json:"approvedAt,omitempty"`
	RejectionReason    string                  `json:"rejectionReason,omitempty"`
	ForeclosedAt       *time.Time              `json:"foreclosedAt,omitempty"`
	ForeclosureAmount  *string                 `json:"foreclosureAmount,omitempty"`
	CreatedAt          time.Time               `json:"createdAt"`
	UpdatedAt          time.Time               `json:"updatedAt"`
	Schedule           []ScheduleEntryResponse `json:"schedule,omitempty"`
}

type ScheduleEntryResponse struct {
	EMINumber        int    `json:"emiNumber"`
	DueDate          string `json:"dueDate"`
	EMIAmount        string `json:"emiAmount"`
	Principal        string `json:"principal"`
	Interest         string `json:"interest"`
	RemainingBalance string `json:"remainingBalance"`
}

type OutstandingResponse struct {
	LoanID            string `json:"loanId"`
	OutstandingAmount string `json:"outstandingAmount"`
}

type PaymentResponse struct {
	ID               string    `json:"id"`
	LoanID           string    `json:"loanId"`
	Amount           string    `json:"amount"`
	EMINumber        int       `json:"emiNumber"`
	Status           string    `json:"status"`
	Type             string    `json:"type"`
	GatewayReference string    `json:"gatewayReference"`
	PaidAt           time.Time `json:"paidAt"`
}

type ErrorDetail struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

func formatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func NewScheduleEntryResponse(entry loan.ScheduleEntry) ScheduleEntryResponse {
	return ScheduleEntryResponse{
		EMINumber:        entry.EMINumber,
		DueDate:          entry.DueDate.Format(time.RFC3339[:10]),
		EMIAmount:        formatMoney(entry.EMIAmount),
		Principal:        formatMoney(entry.Principal),
		Interest:         formatMoney(entry.Interest),
		RemainingBalance: formatMoney(entry.RemainingBalance),
	}
}

func NewScheduleResponse(entries []loan.ScheduleEntry) []ScheduleEntryResponse {
	out := make([]ScheduleEntryResponse, len(entries))
	for i, entry := range entries {
		out[i] = NewScheduleEntryResponse(entry)
	}
	return out
}

func NewLoanResponse(domainLoan *loan.Loan, includeSchedule bool) LoanResponse {
	resp := LoanResponse{
		ID:                 strconv.FormatInt(domainLoan.ID, 10),
		UserID:             strconv.FormatInt(domainLoan.UserID, 10),
		Amount:             formatMoney(domainLoan.Amount),
		TenureMonths:       domainLoan.TenureMonths,
		AnnualInterestRate: domainLoan.AnnualInterestRate.String(),
		MonthlyInstallment: formatMoney(domainLoan.MonthlyInstallment),
		TotalPayable:       formatMoney(domainLoan.TotalPayable),
		TotalInterest:      formatMoney(domainLoan.TotalInterest),
		Status:             string(domainLoan.Status),
		IsClosed:           domainLoan.IsClosed,
		AppliedAt:          domainLoan.AppliedAt,
		ApprovedAt:         domainLoan.ApprovedAt,
		RejectionReason:    domainLoan.RejectionReason,
		ForeclosedAt:       domainLoan.ForeclosedAt,
		CreatedAt:          domainLoan.CreatedAt,
		UpdatedAt:          domainLoan.UpdatedAt,
	}

	if domainLoan.ForeclosureAmount != nil {
		amt := formatMoney(*domainLoan.ForeclosureAmount)
		resp.ForeclosureAmount = &amt
	}

	if includeSchedule && domainLoan.Schedule != nil {
		resp.Schedule = NewScheduleResponse(domainLoan.Schedule)
	}

	return resp
}

func NewLoanListResponse(loans []loan.Loan) []LoanResponse {
	out := make([]LoanResponse, len(loans))
	for i := range loans {
		out[i] = NewLoanResponse(&loans[i], false)
	}
	return out
}

func NewPaymentResponse(p *loan.Payment) PaymentResponse {
	return PaymentResponse{
		ID:               strconv.FormatInt(p.ID, 10),
		LoanID:           strconv.FormatInt(p.LoanID, 10),
		Amount:           formatMoney(p.Amount),
		EMINumber:        p.EMINumber,
		Status:           string(p.Status),
		Type:             string(p.Type),
		GatewayReference: p.GatewayReference,
		PaidAt:           p.PaidAt,
	}
}

func NewPaymentListResponse(payments []loan.Payment) []PaymentResponse {
	out := make([]PaymentResponse, len(payments))
	for i := range payments {
		out[i] = NewPaymentResponse(&payments[i])
	}
	return out
}
