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

	"github.com/sopstack/inventory-backend/internal/aging"
	"github.com/sopstack/inventory-backend/internal/config"
	"github.com/sopstack/inventory-backend/internal/domain"
)

const (
	categoryReportKeyPrefix = "report:category"
	reportScanBatchSize     = 100
)

type ReportCache interface {
	GetCategoryReport(ctx context.Context, filter domain.ReportFilter) (*aging.CategoryQuarterTable, bool, error)
	SetCategoryReport(ctx context.Context, filter domain.ReportFilter, table *aging.CategoryQuarterTable) error
	InvalidateCategoryReport(ctx context.Context, filter domain.ReportFilter) error
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

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisReportCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopReportCache() ReportCache {
	return &noopReportCache{}
}

func (c *redisReportCache) GetCategoryReport(ctx context.Context, filter domain.ReportFilter) (*aging.CategoryQuarterTable, bool, error) {
	key := buildCategoryReportKey(filter)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var table aging.CategoryQuarterTable
	if err := json.Unmarshal(payload, &table); err != nil {
		return nil, false, fmt.Errorf("decode category report cache: %w", err)
	}

	return &table, true, nil
}

func (c *redisReportCache) SetCategoryReport(ctx context.Context, filter domain.ReportFilter, table *aging.CategoryQuarterTable) error {
	key := buildCategoryReportKey(filter)
	payload, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("encode category report cache: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisReportCache) InvalidateCategoryReport(ctx context.Context, filter domain.ReportFilter) error {
	key := buildCategoryReportKey(filter)
	return c.client.Del(ctx, key).Err()
}

func (c *redisReportCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, categoryReportKeyPrefix, reportScanBatchSize)
}

func (n *noopReportCache) GetCategoryReport(ctx context.Context, filter domain.ReportFilter) (*aging.CategoryQuarterTable, bool, error) {
	return nil, false, nil
}

func (n *noopReportCache) SetCategoryReport(ctx context.Context, filter domain.ReportFilter, table *aging.CategoryQuarterTable) error {
	return nil
}

func (n *noopReportCache) InvalidateCategoryReport(ctx context.Context, filter domain.ReportFilter) error {
	return nil
}

func (n *noopReportCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildCategoryReportKey(filter domain.ReportFilter) string {
	return fmt.Sprintf("%s:%s", categoryReportKeyPrefix, reportFilterHash(filter))
}

func reportFilterHash(filter domain.ReportFilter) string {
	parts := []string{}

	if filter.Year > 0 {
		parts = append(parts, fmt.Sprintf("year=%d", filter.Year))
	}
	if filter.Month > 0 {
		parts = append(parts, fmt.Sprintf("month=%d", filter.Month))
	}
	if filter.Variant != "" {
		parts = append(parts, "variant="+strings.ToLower(strings.TrimSpace(filter.Variant)))
	}
	if filter.Scope != "" {
		parts = append(parts, "scope="+strings.ToLower(strings.TrimSpace(filter.Scope)))
	}
	if filter.MajorCategory != "" {
		parts = append(parts, "major="+strings.ToLower(strings.TrimSpace(filter.MajorCategory)))
	}
	if len(filter.Owners) > 0 {
		owners := append([]string(nil), filter.Owners...)
		for i := range owners {
			owners[i] = strings.TrimSpace(strings.ToLower(owners[i]))
		}
		sort.Strings(owners)
		parts = append(parts, "owners="+strings.Join(owners, ","))
	}

	if len(parts) == 0 {
		return "default"
	}

	sort.Strings(parts)
	raw := strings.Join(parts, "|")
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}
