package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReportCache stores computed reports per trainee. Ledger writes invalidate
// the trainee's entry.
type ReportCache interface {
	Get(ctx context.Context, traineeID uint) (*Report, bool)
	Set(ctx context.Context, traineeID uint, report *Report)
	Invalidate(ctx context.Context, traineeID uint)
}

// NewReportCache returns a Redis-backed cache, or a cache that stores
// nothing when rdb is nil.
func NewReportCache(rdb *redis.Client, ttl time.Duration) ReportCache {
	if rdb == nil {
		return noopReportCache{}
	}
	return &redisReportCache{rdb: rdb, ttl: ttl}
}

type redisReportCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func reportKey(traineeID uint) string {
	return fmt.Sprintf("report:trainee:%d", traineeID)
}

func (c *redisReportCache) Get(ctx context.Context, traineeID uint) (*Report, bool) {
	data, err := c.rdb.Get(ctx, reportKey(traineeID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Error("report cache get failed", "trainee_id", traineeID, "error", err)
		}
		return nil, false
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		slog.Warn("report cache entry unreadable", "trainee_id", traineeID, "error", err)
		return nil, false
	}
	return &report, true
}

func (c *redisReportCache) Set(ctx context.Context, traineeID uint, report *Report) {
	data, err := json.Marshal(report)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, reportKey(traineeID), data, c.ttl).Err(); err != nil {
		slog.Error("report cache set failed", "trainee_id", traineeID, "error", err)
	}
}

func (c *redisReportCache) Invalidate(ctx context.Context, traineeID uint) {
	if err := c.rdb.Del(ctx, reportKey(traineeID)).Err(); err != nil {
		slog.Error("report cache invalidate failed", "trainee_id", traineeID, "error", err)
	}
}

type noopReportCache struct{}

func (noopReportCache) Get(context.Context, uint) (*Report, bool) { return nil, false }
func (noopReportCache) Set(context.Context, uint, *Report)        {}
func (noopReportCache) Invalidate(context.Context, uint)          {}
