package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/estateman/estateman/internal/jobs"
	"github.com/estateman/estateman/internal/payments"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// EmailEnqueuer submits reminder emails to the queue.
type EmailEnqueuer interface {
	EnqueueSendEmail(ctx context.Context, payload SendEmailPayload) (*asynq.TaskInfo, error)
}

// OverdueScanJob flips past-due installments to overdue and queues payment
// reminders for installments falling due soon.
type OverdueScanJob struct {
	Payments *payments.Service
	Emails   EmailEnqueuer
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewOverdueScanJob initialises the overdue scan handler.
func NewOverdueScanJob(svc *payments.Service, emails EmailEnqueuer, logger *slog.Logger, metrics *jobmetrics.Metrics) *OverdueScanJob {
	return &OverdueScanJob{
		Payments: svc,
		Emails:   emails,
		Logger:   logger,
		Metrics:  metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the overdue scan logic.
func (j *OverdueScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Payments == nil {
		return errors.New("overdue scan: handler not configured")
	}
	var payload OverdueScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.ReminderDays <= 0 {
		payload.ReminderDays = 3
	}

	tracker := j.metrics().Track(TaskOverdueScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	now := j.now()
	logger := j.logger().With(slog.Int("reminder_days", payload.ReminderDays))
	logger.Info("starting overdue scan")

	flipped, err := j.Payments.MarkOverdue(ctx, now)
	if err != nil {
		resultErr = err
		logger.Error("mark overdue", slog.Any("error", err))
		return resultErr
	}
	j.metrics().AddOverdue(flipped)

	reminders, err := j.Payments.DueReminders(ctx, now, now.AddDate(0, 0, payload.ReminderDays))
	if err != nil {
		resultErr = err
		logger.Error("list due reminders", slog.Any("error", err))
		return resultErr
	}

	var queued int
	for _, reminder := range reminders {
		if reminder.BuyerEmail == "" || j.Emails == nil {
			continue
		}
		amount := payments.FormatAmount(reminder.Amount, reminder.Currency)
		body := fmt.Sprintf("Dear %s,\n\nyour installment of %s is due on %s.",
			reminder.BuyerName, amount, reminder.DueAt.Format("2006-01-02"))
		if _, err := j.Emails.EnqueueSendEmail(ctx, SendEmailPayload{
			To:      reminder.BuyerEmail,
			Subject: fmt.Sprintf("Installment due: %s", amount),
			Body:    body,
		}); err != nil {
			logger.Warn("enqueue reminder",
				slog.Int64("plan_id", reminder.PlanID),
				slog.Int64("installment_id", reminder.InstallmentID),
				slog.Any("error", err),
			)
			continue
		}
		queued++
	}

	logger.Info("completed overdue scan",
		slog.Int64("flipped", flipped),
		slog.Int("reminders", queued),
		slog.Duration("duration", time.Since(now)),
	)
	return resultErr
}

func (j *OverdueScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

func (j *OverdueScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *OverdueScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
