package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/orvilledev/smw-spd-formatter/config"
)

// RedisCache holds generated report artifacts so the download endpoint can
// serve them after the run response has been sent.
type RedisCache struct {
	client  *redis.Client
	enabled bool
	ttl     time.Duration
}

// ErrNotFound is returned when an artifact has expired or never existed.
var ErrNotFound = errors.New("artifact not found in cache")

// NewRedisCache creates a new Redis cache
func NewRedisCache(cfg config.RedisConfig) (*RedisCache, error) {
	if !cfg.Enabled {
		return &RedisCache{enabled: false}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}

	return &RedisCache{
		client:  client,
		enabled: true,
		ttl:     cfg.ArtifactTTL,
	}, nil
}

// StoreArtifact caches the workbook bytes for one run under its TTL.
func (c *RedisCache) StoreArtifact(ctx context.Context, runID uuid.UUID, name string, data []byte) error {
	if c == nil || !c.enabled {
		return errors.New("cache is disabled")
	}

	if err := c.client.Set(ctx, artifactKey(runID), data, c.ttl).Err(); err != nil {
		return errors.Wrap(err, "failed to store artifact in Redis")
	}
	if err := c.client.Set(ctx, artifactNameKey(runID), name, c.ttl).Err(); err != nil {
		return errors.Wrap(err, "failed to store artifact name in Redis")
	}
	return nil
}

// GetArtifact retrieves cached workbook bytes and the artifact name.
func (c *RedisCache) GetArtifact(ctx context.Context, runID uuid.UUID) ([]byte, string, error) {
	if c == nil || !c.enabled {
		return nil, "", errors.New("cache is disabled")
	}

	data, err := c.client.Get(ctx, artifactKey(runID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, "", ErrNotFound
		}
		return nil, "", errors.Wrap(err, "failed to get artifact from Redis")
	}
	name, err := c.client.Get(ctx, artifactNameKey(runID)).Result()
	if err != nil && err != redis.Nil {
		return nil, "", errors.Wrap(err, "failed to get artifact name from Redis")
	}
	return data, name, nil
}

func artifactKey(id uuid.UUID) string {
	return fmt.Sprintf("artifact:%s", id.String())
}

func artifactNameKey(id uuid.UUID) string {
	return fmt.Sprintf("artifact:%s:name", id.String())
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	if c == nil || !c.enabled || c.client == nil {
		return nil
	}

	return c.client.Close()
}
