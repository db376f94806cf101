// Package cache keeps scored reports in Redis so the report endpoint can
// answer without touching Postgres. The cache is optional: callers hold a
// ReportCache that may be nil.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nyashahama/mystery-shopper-backend/internal/store"
)

const DefaultReportTTL = 24 * time.Hour

type ReportCache interface {
	Set(ctx context.Context, report *store.StoredReport) error
	// Get returns (nil, nil) on a cache miss.
	Get(ctx context.Context, submissionID int64) (*store.StoredReport, error)
	Delete(ctx context.Context, submissionID int64) error
}

type reportCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewReportCache(client *redis.Client, ttl time.Duration) ReportCache {
	if ttl <= 0 {
		ttl = DefaultReportTTL
	}
	return &reportCache{
		client: client,
		ttl:    ttl,
	}
}

// ReportKey is the Redis key for a submission's report.
func ReportKey(submissionID int64) string {
	return "report:submission:" + strconv.FormatInt(submissionID, 10)
}

func (c *reportCache) Set(ctx context.Context, report *store.StoredReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("cache: marshal report %d: %w", report.SubmissionID, err)
	}
	return c.client.Set(ctx, ReportKey(report.SubmissionID), data, c.ttl).Err()
}

func (c *reportCache) Get(ctx context.Context, submissionID int64) (*store.StoredReport, error) {
	data, err := c.client.Get(ctx, ReportKey(submissionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var report store.StoredReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("cache: decode report %d: %w", submissionID, err)
	}
	return &report, nil
}

func (c *reportCache) Delete(ctx context.Context, submissionID int64) error {
	return c.client.Del(ctx, ReportKey(submissionID)).Err()
}

// NewClient parses a redis:// URL and verifies the connection.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("cache: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: ping redis: %w", err)
	}
	return client, nil
}
