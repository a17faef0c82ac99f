package loan

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

type PaymentType string

const (
	PaymentTypeEMI         PaymentType = "EMI"
	PaymentTypeForeclosure PaymentType = "FORECLOSURE"
)

// Payment records one settled installment (or a foreclosure settlement)
// against a loan. EMI numbers are 1-based, unique per loan and strictly
// sequential: the next number is always count(SUCCESS)+1.
type Payment struct {
	ID               int64
	LoanID           int64
	Amount           decimal.Decimal
	EMINumber        int
	Status           PaymentStatus
	Type             PaymentType
	GatewayReference string
	PaidAt           time.Time
	CreatedAt        time.Time
}
