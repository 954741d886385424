package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/estateman/estateman/internal/payments"
	_ "github.com/estateman/estateman/testing"
)

type fakePlanRepo struct {
	plans []*payments.PaymentPlan
}

func (r *fakePlanRepo) CreatePlan(ctx context.Context, plan payments.PaymentPlan) (*payments.PaymentPlan, error) {
	plan.ID = int64(len(r.plans) + 1)
	for i := range plan.Installments {
		plan.Installments[i].ID = int64(i + 1)
		plan.Installments[i].PlanID = plan.ID
	}
	stored := plan
	r.plans = append(r.plans, &stored)
	return &plan, nil
}

func (r *fakePlanRepo) GetPlan(ctx context.Context, id int64) (*payments.PaymentPlan, error) {
	for _, plan := range r.plans {
		if plan.ID == id {
			clone := *plan
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakePlanRepo) ListPlans(ctx context.Context, req payments.ListPlansRequest) ([]payments.PaymentPlan, int, error) {
	return nil, 0, nil
}

func (r *fakePlanRepo) SavePlan(ctx context.Context, plan *payments.PaymentPlan) error {
	return nil
}

func (r *fakePlanRepo) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	var count int64
	for _, plan := range r.plans {
		for i := range plan.Installments {
			inst := &plan.Installments[i]
			if inst.Status == payments.StatusUpcoming && inst.DueAt.Before(asOf) {
				inst.Status = payments.StatusOverdue
				count++
			}
		}
	}
	return count, nil
}

func (r *fakePlanRepo) ListDueReminders(ctx context.Context, from, to time.Time) ([]payments.DueReminder, error) {
	var out []payments.DueReminder
	for _, plan := range r.plans {
		for _, inst := range plan.Installments {
			if inst.Paid() || inst.DueAt.Before(from) || !inst.DueAt.Before(to) {
				continue
			}
			out = append(out, payments.DueReminder{
				PlanID:        plan.ID,
				InstallmentID: inst.ID,
				BuyerName:     plan.BuyerName,
				BuyerEmail:    plan.BuyerEmail,
				Currency:      plan.Currency,
				Amount:        inst.Amount,
				DueAt:         inst.DueAt,
			})
		}
	}
	return out, nil
}

type captureEnqueuer struct {
	sent []SendEmailPayload
}

func (c *captureEnqueuer) EnqueueSendEmail(ctx context.Context, payload SendEmailPayload) (*asynq.TaskInfo, error) {
	c.sent = append(c.sent, payload)
	return &asynq.TaskInfo{}, nil
}

func TestOverdueScanFlipsAndQueuesReminders(t *testing.T) {
	ctx := context.Background()
	repo := &fakePlanRepo{}
	svc := payments.NewService(repo)

	now := time.Date(2026, 6, 10, 8, 0, 0, 0, time.UTC)

	// One installment already past due, one falling due tomorrow.
	_, err := svc.CreatePlan(ctx, payments.CreatePlanInput{
		ContractID:   1,
		BuyerName:    "Dana Whitfield",
		BuyerEmail:   "dana@example.com",
		TotalAmount:  20000,
		Installments: 2,
		FirstDueAt:   time.Date(2026, 5, 11, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	emails := &captureEnqueuer{}
	job := NewOverdueScanJob(svc, emails, nil, nil)
	job.clock = func() time.Time { return now }

	task, err := NewOverdueScanTask(OverdueScanPayload{ReminderDays: 3})
	require.NoError(t, err)
	require.NoError(t, job.Handle(ctx, task))

	plan, err := svc.GetPlan(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, payments.StatusOverdue, plan.Installments[0].Status)
	require.Equal(t, payments.StatusUpcoming, plan.Installments[1].Status)

	require.Len(t, emails.sent, 1)
	require.Equal(t, "dana@example.com", emails.sent[0].To)
	require.Contains(t, emails.sent[0].Subject, "USD 100.00")
}

func TestOverdueScanBadPayloadSkipsRetry(t *testing.T) {
	job := NewOverdueScanJob(payments.NewService(&fakePlanRepo{}), nil, nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskOverdueScan, []byte("{broken")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestSnapshotRefreshBadPayloadSkipsRetry(t *testing.T) {
	job := NewSnapshotRefreshJob(stubUserSource{}, stubRefresher{}, nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskSnapshotRefresh, []byte("{broken")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}
