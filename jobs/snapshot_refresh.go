package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/estateman/estateman/internal/authz"
	jobmetrics "github.com/estateman/estateman/internal/jobs"
)

// SnapshotUserSource lists the users whose snapshots should stay warm.
type SnapshotUserSource interface {
	ListActiveUserIDs(ctx context.Context) ([]int64, error)
}

// SnapshotRefresher rebuilds one cached snapshot.
type SnapshotRefresher interface {
	Refresh(ctx context.Context, userID int64) (authz.Snapshot, error)
}

// SnapshotRefreshJob periodically rebuilds authorization snapshots so role
// edits propagate without waiting for cache expiry.
type SnapshotRefreshJob struct {
	Users   SnapshotUserSource
	Cache   SnapshotRefresher
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewSnapshotRefreshJob initialises the snapshot warmup handler.
func NewSnapshotRefreshJob(users SnapshotUserSource, cache SnapshotRefresher, logger *slog.Logger, metrics *jobmetrics.Metrics) *SnapshotRefreshJob {
	return &SnapshotRefreshJob{Users: users, Cache: cache, Logger: logger, Metrics: metrics}
}

// Handle executes the snapshot warmup.
func (j *SnapshotRefreshJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Users == nil || j.Cache == nil {
		return errors.New("snapshot refresh: handler not configured")
	}
	var payload SnapshotRefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Concurrency <= 0 {
		payload.Concurrency = 4
	}

	tracker := j.metrics().Track(TaskSnapshotRefresh)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	start := time.Now()
	ids, err := j.Users.ListActiveUserIDs(ctx)
	if err != nil {
		resultErr = err
		j.logger().Error("list active users", slog.Any("error", err))
		return resultErr
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(payload.Concurrency)
	for _, id := range ids {
		group.Go(func() error {
			if _, err := j.Cache.Refresh(groupCtx, id); err != nil {
				j.logger().Warn("refresh snapshot", slog.Int64("user_id", id), slog.Any("error", err))
			}
			return nil
		})
	}
	resultErr = group.Wait()

	j.logger().Info("snapshot refresh completed",
		slog.Int("users", len(ids)),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

func (j *SnapshotRefreshJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *SnapshotRefreshJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
