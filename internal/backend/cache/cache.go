package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	thumbnailTTL = time.Hour
	countTTL     = 30 * time.Second
	countKey     = "image-count"
)

// Client is an optional read-through cache for thumbnail bytes and the
// record count. A nil or disabled client is safe to call; every operation
// becomes a no-op and reads report a miss. Cache failures are logged and
// degrade to the backing stores, never surfaced to requests.
type Client struct {
	rdb *redis.Client
}

func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	slog.Info("connected to redis cache", "addr", addr)
	return &Client{rdb: rdb}, nil
}

// Nop returns a disabled client.
func Nop() *Client {
	return &Client{}
}

func (c *Client) Enabled() bool {
	return c != nil && c.rdb != nil
}

func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Close()
}

func (c *Client) GetThumbnail(ctx context.Context, id int64) ([]byte, bool) {
	if !c.Enabled() {
		return nil, false
	}
	data, err := c.rdb.Get(ctx, thumbnailKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("thumbnail cache read failed", "image_id", id, "error", err)
		}
		return nil, false
	}
	return data, true
}

func (c *Client) SetThumbnail(ctx context.Context, id int64, data []byte) {
	if !c.Enabled() {
		return
	}
	if err := c.rdb.Set(ctx, thumbnailKey(id), data, thumbnailTTL).Err(); err != nil {
		slog.Warn("thumbnail cache write failed", "image_id", id, "error", err)
	}
}

// InvalidateThumbnail drops a cached thumbnail after a re-derivation
// overwrote the artifact on disk.
func (c *Client) InvalidateThumbnail(ctx context.Context, id int64) {
	if !c.Enabled() {
		return
	}
	if err := c.rdb.Del(ctx, thumbnailKey(id)).Err(); err != nil {
		slog.Warn("thumbnail cache invalidation failed", "image_id", id, "error", err)
	}
}

func (c *Client) GetCount(ctx context.Context) (int64, bool) {
	if !c.Enabled() {
		return 0, false
	}
	value, err := c.rdb.Get(ctx, countKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("count cache read failed", "error", err)
		}
		return 0, false
	}
	count, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false
	}
	return count, true
}

func (c *Client) SetCount(ctx context.Context, count int64) {
	if !c.Enabled() {
		return
	}
	if err := c.rdb.Set(ctx, countKey, strconv.FormatInt(count, 10), countTTL).Err(); err != nil {
		slog.Warn("count cache write failed", "error", err)
	}
}

// InvalidateCount drops the cached count after an insert.
func (c *Client) InvalidateCount(ctx context.Context) {
	if !c.Enabled() {
		return
	}
	if err := c.rdb.Del(ctx, countKey).Err(); err != nil {
		slog.Warn("count cache invalidation failed", "error", err)
	}
}

func thumbnailKey(id int64) string {
	return fmt.Sprintf("thumb:%d", id)
}
