package trigger

import (
	"context"
	"time"

	"github.com/lyzr/workflow-engine/common/redis"
)

// redisClient is the subset of common/redis.Client RedisState needs.
type redisClient interface {
	Get(ctx context.Context, key string) (string, error)
	SetWithExpiry(ctx context.Context, key, value string, expiry time.Duration) error
}

// RedisState is the optional multi-process StateStore, backed by the
// common/redis wrapper client, so that several workflowd replicas behind a
// load balancer share one trigger scheduler's nextRun/lastRun bookkeeping
// instead of each independently re-firing cron entries. Entries are stored
// with a generous TTL so a stale key cannot pin a workflow as permanently
// idle-blocked if workflowd is redeployed.
type RedisState struct {
	client redisClient
	ttl    time.Duration
}

// NewRedisState wires an existing common/redis.Client as the trigger
// state backend.
func NewRedisState(client *redis.Client, ttl time.Duration) *RedisState {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &RedisState{client: client, ttl: ttl}
}

func (r *RedisState) NextRun(ctx context.Context, entryKey string) (time.Time, bool) {
	return r.getTime(ctx, "trigger:next:"+entryKey)
}

func (r *RedisState) SetNextRun(ctx context.Context, entryKey string, t time.Time) {
	r.setTime(ctx, "trigger:next:"+entryKey, t)
}

func (r *RedisState) LastRun(ctx context.Context, workspace, workflowPath string) (time.Time, bool) {
	return r.getTime(ctx, "trigger:last:"+workspace+":"+workflowPath)
}

func (r *RedisState) SetLastRun(ctx context.Context, workspace, workflowPath string, t time.Time) {
	r.setTime(ctx, "trigger:last:"+workspace+":"+workflowPath, t)
}

func (r *RedisState) getTime(ctx context.Context, key string) (time.Time, bool) {
	val, err := r.client.Get(ctx, key)
	if err != nil || val == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (r *RedisState) setTime(ctx context.Context, key string, t time.Time) {
	_ = r.client.SetWithExpiry(ctx, key, t.Format(time.RFC3339Nano), r.ttl)
}
