package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/senirlioglu/envanter-risk-analizi/internal/config"
	"github.com/senirlioglu/envanter-risk-analizi/internal/domain"
)

const (
	summaryKeyPrefix = "analysis:summary"
	rollupKeyPrefix  = "analysis:rollup"
	analysisPrefix   = "analysis:"
)

// ReportCache caches persisted store summaries and roll-ups per filter.
type ReportCache interface {
	GetSummaries(ctx context.Context, filter domain.ReportFilter) ([]domain.StoreRiskSummary, bool, error)
	SetSummaries(ctx context.Context, filter domain.ReportFilter, summaries []domain.StoreRiskSummary) error
	GetRollups(ctx context.Context, filter domain.ReportFilter) ([]domain.RollupSummary, bool, error)
	SetRollups(ctx context.Context, filter domain.ReportFilter, rollups []domain.RollupSummary) error
	InvalidateAll(ctx context.Context) error
}

type redisReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopReportCache struct{}

func NewReportCache(cfg config.CacheConfig) (ReportCache, error) {
	if !cfg.Enabled {
		return &noopReportCache{}, nil
	}

	client, err := NewRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	return NewRedisReportCache(client, reportTTL(cfg)), nil
}

func NewRedisReportCache(client *redis.Client, ttl time.Duration) ReportCache {
	return &redisReportCache{client: client, ttl: ttl}
}

func NewNoopReportCache() ReportCache {
	return &noopReportCache{}
}

func (c *redisReportCache) get(ctx context.Context, key string, dest any) (bool, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get failed: %w", err)
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (c *redisReportCache) set(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisReportCache) GetSummaries(ctx context.Context, filter domain.ReportFilter) ([]domain.StoreRiskSummary, bool, error) {
	var out []domain.StoreRiskSummary
	ok, err := c.get(ctx, SummaryKey(filter), &out)
	return out, ok, err
}

func (c *redisReportCache) SetSummaries(ctx context.Context, filter domain.ReportFilter, summaries []domain.StoreRiskSummary) error {
	return c.set(ctx, SummaryKey(filter), summaries)
}

func (c *redisReportCache) GetRollups(ctx context.Context, filter domain.ReportFilter) ([]domain.RollupSummary, bool, error) {
	var out []domain.RollupSummary
	ok, err := c.get(ctx, RollupKey(filter), &out)
	return out, ok, err
}

func (c *redisReportCache) SetRollups(ctx context.Context, filter domain.ReportFilter, rollups []domain.RollupSummary) error {
	return c.set(ctx, RollupKey(filter), rollups)
}

func (c *redisReportCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, analysisPrefix, scanBatchSize)
}

func (n *noopReportCache) GetSummaries(ctx context.Context, filter domain.ReportFilter) ([]domain.StoreRiskSummary, bool, error) {
	return nil, false, nil
}

func (n *noopReportCache) SetSummaries(ctx context.Context, filter domain.ReportFilter, summaries []domain.StoreRiskSummary) error {
	return nil
}

func (n *noopReportCache) GetRollups(ctx context.Context, filter domain.ReportFilter) ([]domain.RollupSummary, bool, error) {
	return nil, false, nil
}

func (n *noopReportCache) SetRollups(ctx context.Context, filter domain.ReportFilter, rollups []domain.RollupSummary) error {
	return nil
}

func (n *noopReportCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func SummaryKey(filter domain.ReportFilter) string {
	return fmt.Sprintf("%s:%s", summaryKeyPrefix, filterHash(filter))
}

func RollupKey(filter domain.ReportFilter) string {
	return fmt.Sprintf("%s:%s", rollupKeyPrefix, filterHash(filter))
}

// filterHash is stable under reordering and case changes of the filter.
func filterHash(filter domain.ReportFilter) string {
	parts := []string{}

	if filter.RunID != "" {
		parts = append(parts, "run_id="+strings.TrimSpace(filter.RunID))
	}
	if filter.Period != "" {
		parts = append(parts, "period="+strings.TrimSpace(filter.Period))
	}
	if filter.GroupBy != "" {
		parts = append(parts, "group_by="+strings.ToLower(string(filter.GroupBy)))
	}
	if filter.Level != "" {
		parts = append(parts, "level="+strings.ToLower(strings.TrimSpace(filter.Level)))
	}
	if len(filter.StoreIDs) > 0 {
		parts = append(parts, "store_ids="+joinStrings(filter.StoreIDs))
	}

	if len(parts) == 0 {
		return "default"
	}

	sort.Strings(parts)
	raw := strings.Join(parts, "|")
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func joinStrings(values []string) string {
	c := append([]string(nil), values...)
	for i := range c {
		c[i] = strings.TrimSpace(strings.ToLower(c[i]))
	}
	sort.Strings(c)
	return strings.Join(c, ",")
}
