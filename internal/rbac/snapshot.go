package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/estateman/estateman/internal/authz"
)

const snapshotKeyPrefix = "authz:snapshot:"

// SnapshotLoader provides the role and permission names backing a user
// snapshot. *Service satisfies it.
type SnapshotLoader interface {
	UserRole(ctx context.Context, userID int64) (string, error)
	EffectivePermissions(ctx context.Context, userID int64) ([]string, error)
}

// SnapshotCache caches authorization snapshots in redis so request
// middleware does not hit postgres on every call. It implements
// authz.SnapshotSource.
type SnapshotCache struct {
	loader SnapshotLoader
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

// NewSnapshotCache constructs a SnapshotCache with the given TTL.
func NewSnapshotCache(loader SnapshotLoader, client *redis.Client, logger *slog.Logger, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SnapshotCache{loader: loader, client: client, logger: logger, ttl: ttl}
}

type snapshotRecord struct {
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// Snapshot returns the cached snapshot for a user, loading and caching
// it on a miss.
func (c *SnapshotCache) Snapshot(ctx context.Context, userID int64) (authz.Snapshot, error) {
	key := snapshotKey(userID)
	raw, err := c.client.Get(ctx, key).Result()
	if err == nil {
		var rec snapshotRecord
		if jsonErr := json.Unmarshal([]byte(raw), &rec); jsonErr == nil {
			return authz.NewSnapshot(userID, authz.Role(rec.Role), rec.Permissions), nil
		}
		// Corrupt entry, fall through and rebuild.
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("snapshot cache read", slog.Int64("user_id", userID), slog.Any("error", err))
	}

	return c.Refresh(ctx, userID)
}

// Refresh rebuilds the snapshot from the loader and caches it.
func (c *SnapshotCache) Refresh(ctx context.Context, userID int64) (authz.Snapshot, error) {
	role, err := c.loader.UserRole(ctx, userID)
	if err != nil {
		return authz.Snapshot{}, fmt.Errorf("load user role: %w", err)
	}
	perms, err := c.loader.EffectivePermissions(ctx, userID)
	if err != nil {
		return authz.Snapshot{}, fmt.Errorf("load user permissions: %w", err)
	}

	snapshot := authz.NewSnapshot(userID, authz.Role(role), perms)
	payload, err := json.Marshal(snapshotRecord{Role: role, Permissions: snapshot.Permissions()})
	if err != nil {
		return authz.Snapshot{}, err
	}
	if err := c.client.Set(ctx, snapshotKey(userID), payload, c.ttl).Err(); err != nil {
		c.logger.Warn("snapshot cache write", slog.Int64("user_id", userID), slog.Any("error", err))
	}
	return snapshot, nil
}

// Invalidate drops the cached snapshot so the next request reloads it.
func (c *SnapshotCache) Invalidate(ctx context.Context, userID int64) error {
	return c.client.Del(ctx, snapshotKey(userID)).Err()
}

func snapshotKey(userID int64) string {
	return fmt.Sprintf("%s%d", snapshotKeyPrefix, userID)
}
