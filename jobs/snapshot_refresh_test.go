package jobs

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/estateman/estateman/internal/authz"
)

type stubUserSource struct {
	ids []int64
}

func (s stubUserSource) ListActiveUserIDs(ctx context.Context) ([]int64, error) {
	return s.ids, nil
}

type stubRefresher struct{}

func (s stubRefresher) Refresh(ctx context.Context, userID int64) (authz.Snapshot, error) {
	return authz.Snapshot{}, nil
}

type recordingRefresher struct {
	mu        sync.Mutex
	refreshed []int64
}

func (r *recordingRefresher) Refresh(ctx context.Context, userID int64) (authz.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshed = append(r.refreshed, userID)
	return authz.Snapshot{}, nil
}

func TestSnapshotRefreshWarmsAllUsers(t *testing.T) {
	refresher := &recordingRefresher{}
	job := NewSnapshotRefreshJob(stubUserSource{ids: []int64{1, 2, 3, 4, 5}}, refresher, nil, nil)

	task, err := NewSnapshotRefreshTask(SnapshotRefreshPayload{Concurrency: 2})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	require.ElementsMatch(t, []int64{1, 2, 3, 4, 5}, refresher.refreshed)
}
