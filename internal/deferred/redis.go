package deferred

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/weaver-helpdesk/internal/domain"
)

const (
	scheduleKey = "deferred:jobs"
	payloadKey  = "deferred:payloads"
)

// RedisStore keeps job ids in a sorted set scored by due time in unix
// milliseconds, with payloads in a hash keyed by id.
type RedisStore struct {
	client redis.Cmdable
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

// Schedule implements Store.
func (s *RedisStore) Schedule(ctx context.Context, job domain.DeferredJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("deferred: encode job %s: %w", job.ID, err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, payloadKey, job.ID, payload)
		pipe.ZAdd(ctx, scheduleKey, redis.Z{Score: float64(job.DueAt.UnixMilli()), Member: job.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("deferred: schedule job %s: %w", job.ID, err)
	}
	return nil
}

// Due implements Store. Ids whose payload vanished are removed from the set.
func (s *RedisStore) Due(ctx context.Context, now time.Time, limit int) ([]domain.DeferredJob, error) {
	opt := &redis.ZRangeBy{Min: "-inf", Max: strconv.FormatInt(now.UnixMilli(), 10)}
	if limit > 0 {
		opt.Count = int64(limit)
	}
	ids, err := s.client.ZRangeByScore(ctx, scheduleKey, opt).Result()
	if err != nil {
		return nil, fmt.Errorf("deferred: list due: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	payloads, err := s.client.HMGet(ctx, payloadKey, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("deferred: load payloads: %w", err)
	}

	jobs := make([]domain.DeferredJob, 0, len(ids))
	for i, raw := range payloads {
		str, ok := raw.(string)
		if !ok {
			_ = s.client.ZRem(ctx, scheduleKey, ids[i]).Err()
			continue
		}
		var job domain.DeferredJob
		if err := json.Unmarshal([]byte(str), &job); err != nil {
			return nil, fmt.Errorf("deferred: decode job %s: %w", ids[i], err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// Complete implements Store.
func (s *RedisStore) Complete(ctx context.Context, id string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, scheduleKey, id)
		pipe.HDel(ctx, payloadKey, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("deferred: complete job %s: %w", id, err)
	}
	return nil
}
