package payments

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// CreatePlan inserts a plan and its installments in one transaction.
func (r *Repository) CreatePlan(ctx context.Context, plan PaymentPlan) (*PaymentPlan, error) {
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `INSERT INTO payment_plans (contract_id, buyer_name, buyer_email, currency, total_amount, paid_amount, created_by, updated_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, 0), NULLIF($8, 0), $9, $10) RETURNING id`,
			plan.ContractID, plan.BuyerName, plan.BuyerEmail, plan.Currency, plan.TotalAmount, plan.PaidAmount, plan.CreatedBy, plan.UpdatedBy, plan.CreatedAt, plan.UpdatedAt).Scan(&plan.ID)
		if err != nil {
			return err
		}
		for i := range plan.Installments {
			inst := &plan.Installments[i]
			inst.PlanID = plan.ID
			if err := tx.QueryRow(ctx, `INSERT INTO installments (plan_id, seq, amount, due_at, status, paid_at)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
				inst.PlanID, inst.Seq, inst.Amount, inst.DueAt, inst.Status, inst.PaidAt).Scan(&inst.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// GetPlan fetches one plan with installments ordered by sequence. Returns
// nil when the plan does not exist.
func (r *Repository) GetPlan(ctx context.Context, id int64) (*PaymentPlan, error) {
	var plan PaymentPlan
	err := r.pool.QueryRow(ctx, `SELECT id, contract_id, buyer_name, buyer_email, currency, total_amount, paid_amount, COALESCE(created_by, 0), COALESCE(updated_by, 0), created_at, updated_at
FROM payment_plans WHERE id = $1`, id).Scan(
		&plan.ID, &plan.ContractID, &plan.BuyerName, &plan.BuyerEmail, &plan.Currency, &plan.TotalAmount, &plan.PaidAmount, &plan.CreatedBy, &plan.UpdatedBy, &plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT id, plan_id, seq, amount, due_at, status, paid_at
FROM installments WHERE plan_id = $1 ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var inst Installment
		if err := rows.Scan(&inst.ID, &inst.PlanID, &inst.Seq, &inst.Amount, &inst.DueAt, &inst.Status, &inst.PaidAt); err != nil {
			return nil, err
		}
		plan.Installments = append(plan.Installments, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &plan, nil
}

// ListPlans returns one page of plans (without installments) plus the total
// count.
func (r *Repository) ListPlans(ctx context.Context, req ListPlansRequest) ([]PaymentPlan, int, error) {
	perPage := req.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := req.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * perPage

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM payment_plans WHERE ($1 = 0 OR contract_id = $1)`, req.ContractID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `SELECT id, contract_id, buyer_name, buyer_email, currency, total_amount, paid_amount, COALESCE(created_by, 0), COALESCE(updated_by, 0), created_at, updated_at
FROM payment_plans WHERE ($1 = 0 OR contract_id = $1) ORDER BY id DESC LIMIT $2 OFFSET $3`, req.ContractID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var plans []PaymentPlan
	for rows.Next() {
		var plan PaymentPlan
		if err := rows.Scan(&plan.ID, &plan.ContractID, &plan.BuyerName, &plan.BuyerEmail, &plan.Currency, &plan.TotalAmount, &plan.PaidAmount, &plan.CreatedBy, &plan.UpdatedBy, &plan.CreatedAt, &plan.UpdatedAt); err != nil {
			return nil, 0, err
		}
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return plans, total, nil
}

// SavePlan persists plan totals and every installment row in one
// repeatable-read transaction.
func (r *Repository) SavePlan(ctx context.Context, plan *PaymentPlan) error {
	if plan == nil {
		return errors.New("payments: nil plan")
	}
	return r.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE payment_plans SET total_amount = $1, paid_amount = $2, updated_by = NULLIF($3, 0), updated_at = $4 WHERE id = $5`,
			plan.TotalAmount, plan.PaidAmount, plan.UpdatedBy, plan.UpdatedAt, plan.ID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrPlanNotFound
		}
		for i := range plan.Installments {
			inst := plan.Installments[i]
			if _, err := tx.Exec(ctx, `UPDATE installments SET amount = $1, status = $2, paid_at = $3 WHERE id = $4 AND plan_id = $5`,
				inst.Amount, inst.Status, inst.PaidAt, inst.ID, plan.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

// MarkOverdue flips past-due upcoming installments to overdue.
func (r *Repository) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE installments SET status = $1 WHERE status = $2 AND due_at < $3`,
		StatusOverdue, StatusUpcoming, asOf)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListDueReminders lists non-paid installments due inside the window.
func (r *Repository) ListDueReminders(ctx context.Context, from, to time.Time) ([]DueReminder, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, i.id, p.buyer_name, p.buyer_email, p.currency, i.amount, i.due_at
FROM installments i JOIN payment_plans p ON p.id = i.plan_id
WHERE i.status <> $1 AND i.due_at >= $2 AND i.due_at < $3
ORDER BY i.due_at`, StatusPaid, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var reminders []DueReminder
	for rows.Next() {
		var rem DueReminder
		if err := rows.Scan(&rem.PlanID, &rem.InstallmentID, &rem.BuyerName, &rem.BuyerEmail, &rem.Currency, &rem.Amount, &rem.DueAt); err != nil {
			return nil, err
		}
		reminders = append(reminders, rem)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reminders, nil
}
