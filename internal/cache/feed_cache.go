package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"portfolio-agent/internal/model"
)

const (
	feedKey      = "audit:feed"
	feedDirtyKey = "audit:feed:dirty"
	feedGenKey   = "audit:feed:gen"
)

// FeedCache keeps rendered audit feeds in one Redis hash, one field per
// window size. An append clears the hash, bumps the generation counter and
// sets a short dirty marker. Set only stores a feed read under the current
// generation, so a read racing with an append cannot repopulate stale data.
type FeedCache struct {
	client         *redisv9.Client
	feedTTL        time.Duration
	dirtyMarkerTTL time.Duration
}

func NewFeedCache(client *redisv9.Client, feedTTL, dirtyMarkerTTL time.Duration) *FeedCache {
	if feedTTL <= 0 {
		feedTTL = 60 * time.Second
	}
	if dirtyMarkerTTL <= 0 {
		dirtyMarkerTTL = 5 * time.Second
	}
	return &FeedCache{
		client:         client,
		feedTTL:        feedTTL,
		dirtyMarkerTTL: dirtyMarkerTTL,
	}
}

func (c *FeedCache) Get(ctx context.Context, days int) ([]model.AuditEntry, bool, error) {
	raw, err := c.client.HGet(ctx, feedKey, strconv.Itoa(days)).Result()
	if errors.Is(err, redisv9.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get feed failed: %w", err)
	}

	var items []model.AuditEntry
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached feed failed: %w", err)
	}
	return items, true, nil
}

// Generation returns the invalidation counter; zero before the first append.
func (c *FeedCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, feedGenKey).Int64()
	if errors.Is(err, redisv9.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get feed generation failed: %w", err)
	}
	return gen, nil
}

// Set stores items for the window when generation is still current. It
// reports false without error when an append happened since generation was read.
func (c *FeedCache) Set(ctx context.Context, days int, generation int64, items []model.AuditEntry) (bool, error) {
	payload, err := json.Marshal(items)
	if err != nil {
		return false, fmt.Errorf("marshal feed cache failed: %w", err)
	}

	stored := false
	err = c.client.Watch(ctx, func(tx *redisv9.Tx) error {
		current, err := tx.Get(ctx, feedGenKey).Int64()
		if err != nil && !errors.Is(err, redisv9.Nil) {
			return err
		}
		if current != generation {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
			pipe.HSet(ctx, feedKey, strconv.Itoa(days), payload)
			pipe.Expire(ctx, feedKey, c.feedTTL)
			return nil
		})
		if err == nil {
			stored = true
		}
		return err
	}, feedGenKey)
	if errors.Is(err, redisv9.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis set feed failed: %w", err)
	}
	return stored, nil
}

// Invalidate drops every cached window, bumps the generation and marks the
// feed dirty.
func (c *FeedCache) Invalidate(ctx context.Context) error {
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, feedGenKey)
	pipe.Del(ctx, feedKey)
	pipe.Set(ctx, feedDirtyKey, "1", c.dirtyMarkerTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis invalidate feed failed: %w", err)
	}
	return nil
}

func (c *FeedCache) IsDirty(ctx context.Context) (bool, error) {
	exists, err := c.client.Exists(ctx, feedDirtyKey).Result()
	if err != nil {
		return false, fmt.Errorf("redis check dirty marker failed: %w", err)
	}
	return exists > 0, nil
}
