package ranking

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/event-booking-engine/internal/model"
)

// Board caches computed leaderboards in Redis sorted sets scored by rank.
// A nil *Board or a Board without a client is a permanent miss.
type Board struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewBoard returns a Board; rdb may be nil when Redis is unavailable.
func NewBoard(rdb *redis.Client, ttl time.Duration) *Board {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Board{rdb: rdb, ttl: ttl}
}

// DailyKey names the board of the day starting at from.
func DailyKey(from time.Time) string { return "leaderboard:daily:" + from.Format("2006-01-02") }

// MonthlyKey names the board of the month starting at from.
func MonthlyKey(from time.Time) string { return "leaderboard:monthly:" + from.Format("2006-01") }

// Load returns the cached entries for key in rank order.
func (b *Board) Load(ctx context.Context, key string) ([]model.LeaderboardEntry, bool) {
	if b == nil || b.rdb == nil {
		return nil, false
	}
	members, err := b.rdb.ZRange(ctx, key, 0, -1).Result()
	if err != nil || len(members) == 0 {
		return nil, false
	}
	out := make([]model.LeaderboardEntry, 0, len(members))
	for _, m := range members {
		var en model.LeaderboardEntry
		if err := json.Unmarshal([]byte(m), &en); err != nil {
			return nil, false
		}
		out = append(out, en)
	}
	return out, true
}

// Store replaces the board at key.  Empty leaderboards are not cached.
func (b *Board) Store(ctx context.Context, key string, entries []model.LeaderboardEntry) error {
	if b == nil || b.rdb == nil {
		return errors.New("redis not configured")
	}
	if len(entries) == 0 {
		return nil
	}
	zs := make([]redis.Z, 0, len(entries))
	for _, en := range entries {
		bs, err := json.Marshal(en)
		if err != nil {
			return err
		}
		zs = append(zs, redis.Z{Score: float64(en.Rank), Member: string(bs)})
	}
	pipe := b.rdb.TxPipeline()
	pipe.Del(ctx, key)
	pipe.ZAdd(ctx, key, zs...)
	pipe.Expire(ctx, key, b.ttl)
	_, err := pipe.Exec(ctx)
	return err
}
