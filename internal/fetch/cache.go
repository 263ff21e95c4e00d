package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPhotoCacheTTL is how long fetched photos stay cached.
const DefaultPhotoCacheTTL = 24 * time.Hour

// PhotoCache stores photos fetched from remote URLs.
type PhotoCache interface {
	Get(ctx context.Context, rawURL string, circular bool) (*Photo, bool, error)
	Set(ctx context.Context, rawURL string, circular bool, photo *Photo) error
}

// RedisCache is a PhotoCache backed by Redis.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

type cachedPhoto struct {
	MIME string `json:"mime"`
	Data []byte `json:"data"`
}

// NewRedisClient parses a redis:// or rediss:// URL and returns a client.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	return redis.NewClient(opts), nil
}

// NewRedisCache wraps client. A zero ttl uses DefaultPhotoCacheTTL.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl == 0 {
		ttl = DefaultPhotoCacheTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

// Get implements PhotoCache. A missing key is not an error.
func (c *RedisCache) Get(ctx context.Context, rawURL string, circular bool) (*Photo, bool, error) {
	raw, err := c.client.Get(ctx, photoKey(rawURL, circular)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached photo: %w", err)
	}

	var cached cachedPhoto
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached photo: %w", err)
	}
	photo, err := NewPhoto(cached.Data, cached.MIME)
	if err != nil {
		return nil, false, fmt.Errorf("cached photo is invalid: %w", err)
	}
	return photo, true, nil
}

// Set implements PhotoCache.
func (c *RedisCache) Set(ctx context.Context, rawURL string, circular bool, photo *Photo) error {
	raw, err := json.Marshal(cachedPhoto{MIME: photo.MIME, Data: photo.Data})
	if err != nil {
		return fmt.Errorf("failed to encode photo: %w", err)
	}
	if err := c.client.Set(ctx, photoKey(rawURL, circular), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache photo: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func photoKey(rawURL string, circular bool) string {
	sum := sha256.Sum256([]byte(rawURL + "|" + strconv.FormatBool(circular)))
	return "cv:photo:" + hex.EncodeToString(sum[:])
}
