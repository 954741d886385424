package rbac

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/estateman/estateman/internal/authz"
	_ "github.com/estateman/estateman/testing"
)

type stubLoader struct {
	role  string
	perms []string
	calls int
}

func (l *stubLoader) UserRole(ctx context.Context, userID int64) (string, error) {
	l.calls++
	return l.role, nil
}

func (l *stubLoader) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	return l.perms, nil
}

func newTestCache(t *testing.T, loader SnapshotLoader) (*SnapshotCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSnapshotCache(loader, client, slog.Default(), 5*time.Minute), mr
}

func TestSnapshotCacheLoadsAndCaches(t *testing.T) {
	ctx := context.Background()
	loader := &stubLoader{role: "realtor", perms: []string{"properties:read", "payments:read"}}
	cache, mr := newTestCache(t, loader)

	snapshot, err := cache.Snapshot(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, authz.RoleRealtor, snapshot.Role)
	require.True(t, snapshot.HasPermission("properties", "read"))
	require.True(t, mr.Exists("authz:snapshot:7"))

	// Second read comes from redis, not the loader.
	_, err = cache.Snapshot(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, 1, loader.calls)
}

func TestSnapshotCacheExpiry(t *testing.T) {
	ctx := context.Background()
	loader := &stubLoader{role: "manager", perms: []string{"payments:edit"}}
	cache, mr := newTestCache(t, loader)

	_, err := cache.Snapshot(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, 1, loader.calls)

	mr.FastForward(6 * time.Minute)

	_, err = cache.Snapshot(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, 2, loader.calls)
}

func TestSnapshotCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	loader := &stubLoader{role: "admin", perms: []string{"roles:edit"}}
	cache, mr := newTestCache(t, loader)

	_, err := cache.Snapshot(ctx, 9)
	require.NoError(t, err)
	require.True(t, mr.Exists("authz:snapshot:9"))

	require.NoError(t, cache.Invalidate(ctx, 9))
	require.False(t, mr.Exists("authz:snapshot:9"))

	loader.role = "superadmin"
	snapshot, err := cache.Snapshot(ctx, 9)
	require.NoError(t, err)
	require.True(t, snapshot.Role.IsSuperAdmin())
}

func TestSnapshotCacheRebuildsCorruptEntry(t *testing.T) {
	ctx := context.Background()
	loader := &stubLoader{role: "client", perms: nil}
	cache, mr := newTestCache(t, loader)

	require.NoError(t, mr.Set("authz:snapshot:4", "not json"))

	snapshot, err := cache.Snapshot(ctx, 4)
	require.NoError(t, err)
	require.Equal(t, authz.RoleClient, snapshot.Role)
	require.Equal(t, 1, loader.calls)
}
