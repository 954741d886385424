package payments

import (
	"time"
)

// InstallmentStatus enumerates installment states.
type InstallmentStatus string

const (
	StatusPaid     InstallmentStatus = "paid"
	StatusUpcoming InstallmentStatus = "upcoming"
	StatusOverdue  InstallmentStatus = "overdue"
)

// Installment is one scheduled partial payment within a plan. Amounts are in
// minor units (cents) so redistribution sums stay exact.
type Installment struct {
	ID     int64
	PlanID int64
	Seq    int
	Amount int64
	DueAt  time.Time
	Status InstallmentStatus
	PaidAt *time.Time
}

// Paid reports whether the installment has been settled. Paid installments
// are immutable: reallocation never rewrites them.
func (i Installment) Paid() bool {
	return i.Status == StatusPaid
}

// PaymentPlan schedules a contract total across installments.
type PaymentPlan struct {
	ID           int64
	ContractID   int64
	BuyerName    string
	BuyerEmail   string
	Currency     string
	TotalAmount  int64
	PaidAmount   int64
	Installments []Installment
	CreatedBy    int64
	UpdatedBy    int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Outstanding returns the unpaid balance, clamped at zero.
func (p PaymentPlan) Outstanding() int64 {
	remaining := p.TotalAmount - p.PaidAmount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CreatePlanInput describes a new payment plan.
type CreatePlanInput struct {
	ContractID   int64
	BuyerName    string
	BuyerEmail   string
	Currency     string
	TotalAmount  int64
	Installments int
	FirstDueAt   time.Time
	CreatedBy    int64
}

// UpdateTotalsInput carries renegotiated contract figures.
type UpdateTotalsInput struct {
	PlanID      int64
	TotalAmount int64
	PaidAmount  int64
	UpdatedBy   int64
}

// RecordPaymentInput settles a single installment.
type RecordPaymentInput struct {
	PlanID        int64
	InstallmentID int64
	PaidAt        time.Time
	RecordedBy    int64
}

// ListPlansRequest filters plan listings.
type ListPlansRequest struct {
	ContractID int64
	Page       int
	PerPage    int
}

// DueReminder is one upcoming installment surfaced to the reminder job.
type DueReminder struct {
	PlanID        int64
	InstallmentID int64
	BuyerName     string
	BuyerEmail    string
	Currency      string
	Amount        int64
	DueAt         time.Time
}
