package payments

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Sentinel errors for the payments domain.
var (
	ErrPlanNotFound        = errors.New("payments: plan not found")
	ErrInstallmentNotFound = errors.New("payments: installment not found")
	ErrAlreadyPaid         = errors.New("payments: installment already paid")
)

// RepositoryPort defines data access methods for payment plans.
type RepositoryPort interface {
	CreatePlan(ctx context.Context, plan PaymentPlan) (*PaymentPlan, error)
	GetPlan(ctx context.Context, id int64) (*PaymentPlan, error)
	ListPlans(ctx context.Context, req ListPlansRequest) ([]PaymentPlan, int, error)
	SavePlan(ctx context.Context, plan *PaymentPlan) error
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
	ListDueReminders(ctx context.Context, from, to time.Time) ([]DueReminder, error)
}

// Service handles payment plan business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// CreatePlan creates a payment plan with an even installment split. Monthly
// due dates starting at FirstDueAt.
func (s *Service) CreatePlan(ctx context.Context, input CreatePlanInput) (*PaymentPlan, error) {
	if input.ContractID == 0 {
		return nil, errors.New("contract ID required")
	}
	if input.TotalAmount <= 0 {
		return nil, errors.New("total amount must be positive")
	}
	if input.Installments <= 0 {
		return nil, errors.New("installment count must be positive")
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "USD"
	}
	firstDue := input.FirstDueAt
	if firstDue.IsZero() {
		firstDue = time.Now().AddDate(0, 1, 0)
	}

	shares := SplitEven(input.TotalAmount, input.Installments)
	installments := make([]Installment, len(shares))
	for i, amount := range shares {
		installments[i] = Installment{
			Seq:    i + 1,
			Amount: amount,
			DueAt:  firstDue.AddDate(0, i, 0),
			Status: StatusUpcoming,
		}
	}

	now := time.Now()
	plan := PaymentPlan{
		ContractID:   input.ContractID,
		BuyerName:    strings.TrimSpace(input.BuyerName),
		BuyerEmail:   strings.TrimSpace(input.BuyerEmail),
		Currency:     currency,
		TotalAmount:  input.TotalAmount,
		Installments: installments,
		CreatedBy:    input.CreatedBy,
		UpdatedBy:    input.CreatedBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return s.repo.CreatePlan(ctx, plan)
}

// UpdateTotals applies renegotiated contract figures and redistributes the
// outstanding balance across the remaining installments.
func (s *Service) UpdateTotals(ctx context.Context, input UpdateTotalsInput) (*PaymentPlan, error) {
	if input.TotalAmount <= 0 {
		return nil, errors.New("total amount must be positive")
	}
	if input.PaidAmount < 0 {
		return nil, errors.New("paid amount must not be negative")
	}
	plan, err := s.repo.GetPlan(ctx, input.PlanID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, ErrPlanNotFound
	}

	plan.TotalAmount = input.TotalAmount
	plan.PaidAmount = input.PaidAmount
	plan.Installments = Reallocate(plan.Installments, plan.TotalAmount, plan.PaidAmount)
	plan.UpdatedBy = input.UpdatedBy
	plan.UpdatedAt = time.Now()

	if err := s.repo.SavePlan(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// RecordPayment marks an installment paid and rebalances the rest of the
// plan. A paid installment can never be paid again.
func (s *Service) RecordPayment(ctx context.Context, input RecordPaymentInput) (*PaymentPlan, error) {
	plan, err := s.repo.GetPlan(ctx, input.PlanID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, ErrPlanNotFound
	}

	idx := -1
	for i := range plan.Installments {
		if plan.Installments[i].ID == input.InstallmentID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, ErrInstallmentNotFound
	}
	if plan.Installments[idx].Paid() {
		return nil, ErrAlreadyPaid
	}

	paidAt := input.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now()
	}
	plan.Installments[idx].Status = StatusPaid
	plan.Installments[idx].PaidAt = &paidAt
	plan.PaidAmount += plan.Installments[idx].Amount

	plan.Installments = Reallocate(plan.Installments, plan.TotalAmount, plan.PaidAmount)
	plan.UpdatedBy = input.RecordedBy
	plan.UpdatedAt = time.Now()

	if err := s.repo.SavePlan(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// GetPlan fetches one plan with its installments.
func (s *Service) GetPlan(ctx context.Context, id int64) (*PaymentPlan, error) {
	plan, err := s.repo.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, ErrPlanNotFound
	}
	return plan, nil
}

// ListPlans returns plans matching the request plus the total count.
func (s *Service) ListPlans(ctx context.Context, req ListPlansRequest) ([]PaymentPlan, int, error) {
	return s.repo.ListPlans(ctx, req)
}

// MarkOverdue flips past-due upcoming installments to overdue and returns
// how many changed.
func (s *Service) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	if asOf.IsZero() {
		asOf = time.Now()
	}
	return s.repo.MarkOverdue(ctx, asOf)
}

// DueReminders lists non-paid installments falling due inside the window.
func (s *Service) DueReminders(ctx context.Context, from, to time.Time) ([]DueReminder, error) {
	return s.repo.ListDueReminders(ctx, from, to)
}
