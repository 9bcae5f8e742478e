package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// RunLock marks a reward day as taken across replicas with SET NX PX.
// The key is kept after a successful run and expires on its own, so it
// also tells late replicas that the day is done.
type RunLock struct {
	rdb   *redis.Client
	ttl   time.Duration
	owner string
}

// NewRunLock returns a RunLock.  A nil client yields a lock that is
// always granted, which is right for a single replica.
func NewRunLock(rdb *redis.Client, ttl time.Duration) *RunLock {
	if ttl <= 0 {
		ttl = 26 * time.Hour
	}
	host, _ := os.Hostname()
	return &RunLock{rdb: rdb, ttl: ttl, owner: fmt.Sprintf("%s:%d", host, os.Getpid())}
}

func runKey(day time.Time) string { return "scheduler:daily:" + day.Format("2006-01-02") }

// Acquire claims day.  It reports false when another replica holds it.
func (l *RunLock) Acquire(ctx context.Context, day time.Time) (bool, error) {
	if l == nil || l.rdb == nil {
		return true, nil
	}
	return l.rdb.SetNX(ctx, runKey(day), l.owner, l.ttl).Result()
}

// Release gives day back so that a failed run can be retried.
func (l *RunLock) Release(ctx context.Context, day time.Time) error {
	if l == nil || l.rdb == nil {
		return nil
	}
	return l.rdb.Del(ctx, runKey(day)).Err()
}
