// Package redis stores partition snapshots as Redis string values.
package redis

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/blockprice/internal/infra/storage"
)

// DefaultKeyPrefix namespaces snapshot keys.
const DefaultKeyPrefix = "blockprice:"

const scanBatch = 200

// Client implements storage.SnapshotStore on Redis.
type Client struct {
	rdb    *redis.Client
	prefix string
}

// Config holds Redis connection configuration.
type Config struct {
	URL       string `yaml:"url"`
	Password  string `yaml:"password"`
	KeyPrefix string `yaml:"key_prefix"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return newClient(rdb, cfg.KeyPrefix), nil
}

func newClient(rdb *redis.Client, prefix string) *Client {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Client{rdb: rdb, prefix: prefix}
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) key(partition string) string {
	return c.prefix + partition
}

// Read returns the snapshot for a partition.
func (c *Client) Read(ctx context.Context, partition string) ([]byte, error) {
	data, err := c.rdb.Get(ctx, c.key(partition)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s failed: %w", partition, err)
	}
	return data, nil
}

// Write replaces a partition snapshot. SET is atomic, so readers see either
// the old or the new snapshot.
func (c *Client) Write(ctx context.Context, partition string, data []byte) error {
	if err := c.rdb.Set(ctx, c.key(partition), data, 0).Err(); err != nil {
		return fmt.Errorf("set %s failed: %w", partition, err)
	}
	return nil
}

// List returns every stored partition, sorted.
func (c *Client) List(ctx context.Context) ([]string, error) {
	var names []string
	iter := c.rdb.Scan(ctx, 0, c.prefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		names = append(names, strings.TrimPrefix(iter.Val(), c.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}
