// Package redis caches comparison results. Compare is deterministic per
// (candidate text, corpus version), so a cached result keyed on both is
// always safe to serve.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/arca-compliance/backend/internal/domain"
	"github.com/arca-compliance/backend/pkg/logger"
)

type Client struct {
	client *redis.Client
	ttl    time.Duration
}

func NewClient(host string, port int, password string, db int, ttl time.Duration) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client, ttl: ttl}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func comparisonKey(textHash string, corpusVersion uint64) string {
	return fmt.Sprintf("compare:%d:%s", corpusVersion, textHash)
}

func (c *Client) SetComparison(ctx context.Context, textHash string, corpusVersion uint64, result *domain.ComparisonResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if err := c.client.Set(ctx, comparisonKey(textHash, corpusVersion), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set comparison cache: %w", err)
	}

	logger.Debug("Comparison cached",
		zap.String("text_hash", textHash),
		zap.Uint64("corpus_version", corpusVersion),
	)
	return nil
}

func (c *Client) GetComparison(ctx context.Context, textHash string, corpusVersion uint64) (*domain.ComparisonResult, bool, error) {
	data, err := c.client.Get(ctx, comparisonKey(textHash, corpusVersion)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get comparison cache: %w", err)
	}

	var result domain.ComparisonResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal result: %w", err)
	}

	return &result, true, nil
}
