package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	dueSetKey        = "notification_jobs"
	payloadKeyPrefix = "notification_job:"
)

// RedisJobStore keeps deferred jobs in Redis: a sorted set indexed by
// fire time plus one payload entry per job ID. Payload entries carry a
// generous TTL as a safety net against orphans left by crashed workers.
type RedisJobStore struct {
	client     *redis.Client
	payloadTTL time.Duration
}

func NewRedisJobStore(client *redis.Client) *RedisJobStore {
	return &RedisJobStore{
		client:     client,
		payloadTTL: 30 * 24 * time.Hour,
	}
}

func (s *RedisJobStore) Enqueue(ctx context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job %s: %v", job.ID, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, payloadKeyPrefix+job.ID, data, s.payloadTTL)
	pipe.ZAdd(ctx, dueSetKey, redis.Z{Score: float64(job.FireAt.Unix()), Member: job.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: enqueue %s: %v", ErrStoreUnavailable, job.ID, err)
	}
	return nil
}

func (s *RedisJobStore) Cancel(ctx context.Context, jobID string) (bool, error) {
	removed, err := s.client.ZRem(ctx, dueSetKey, jobID).Result()
	if err != nil {
		return false, fmt.Errorf("%w: cancel %s: %v", ErrStoreUnavailable, jobID, err)
	}
	if removed == 0 {
		return false, nil
	}
	if err := s.client.Del(ctx, payloadKeyPrefix+jobID).Err(); err != nil {
		// The due-set entry is gone, so the job can no longer fire;
		// the payload entry expires via TTL.
		return true, nil
	}
	return true, nil
}

// ClaimDue pages through due members and claims each one with ZREM, so
// a job won by this worker is lost by every other concurrent worker.
func (s *RedisJobStore) ClaimDue(ctx context.Context, now time.Time, limit int64) ([]Job, error) {
	ids, err := s.client.ZRangeByScore(ctx, dueSetKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%d", now.Unix()),
		Count: limit,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: range due jobs: %v", ErrStoreUnavailable, err)
	}

	var jobs []Job
	for _, id := range ids {
		removed, err := s.client.ZRem(ctx, dueSetKey, id).Result()
		if err != nil {
			return jobs, fmt.Errorf("%w: claim %s: %v", ErrStoreUnavailable, id, err)
		}
		if removed == 0 {
			continue // another worker claimed it first
		}

		data, err := s.client.GetDel(ctx, payloadKeyPrefix+id).Bytes()
		if err == redis.Nil {
			continue // cancelled between range and claim
		}
		if err != nil {
			return jobs, fmt.Errorf("%w: load payload %s: %v", ErrStoreUnavailable, id, err)
		}

		var job Job
		if err := json.Unmarshal(data, &job); err != nil {
			// Unreadable payloads are dropped; the dispatcher would have
			// nothing to re-validate against anyway.
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
