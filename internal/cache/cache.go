package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/avren/tasklist-be/internal/models"
)

// TodoCache is an optional cache-aside layer in front of per-user todo
// list queries. It soft-fails: any Redis problem degrades reads to the
// database, it never surfaces errors to callers.
type TodoCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a TodoCache. An empty redisURL returns a disabled cache;
// so does an unreachable Redis, after logging the reason.
func New(redisURL string, ttl time.Duration) *TodoCache {
	c := &TodoCache{ttl: ttl}
	if redisURL == "" {
		return c
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Error().Err(err).Msg("Invalid REDIS_URL, todo cache disabled")
		return c
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("Redis unreachable, todo cache disabled")
		return c
	}
	c.client = client
	log.Info().Msg("Todo list cache enabled")
	return c
}

// Enabled reports whether the cache has a live Redis connection.
func (c *TodoCache) Enabled() bool {
	return c != nil && c.client != nil
}

func listKey(userID string) string {
	return "todos:user:" + userID
}

// GetList reads a user's todo list from the cache. Returns (nil, false)
// on miss or any error.
func (c *TodoCache) GetList(ctx context.Context, userID string) ([]models.Todo, bool) {
	if !c.Enabled() {
		return nil, false
	}
	b, err := c.client.Get(ctx, listKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Debug().Err(err).Msg("Redis get todos failed")
		return nil, false
	}
	var todos []models.Todo
	if err := json.Unmarshal(b, &todos); err != nil {
		log.Debug().Err(err).Msg("Redis unmarshal todos failed")
		return nil, false
	}
	return todos, true
}

// SetList writes a user's todo list to the cache with the configured TTL.
func (c *TodoCache) SetList(ctx context.Context, userID string, todos []models.Todo) {
	if !c.Enabled() {
		return
	}
	b, err := json.Marshal(todos)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, listKey(userID), b, c.ttl).Err(); err != nil {
		log.Debug().Err(err).Msg("Redis set todos failed")
	}
}

// Invalidate deletes a user's cached list so the next read goes to the
// database. Called after every mutation of that user's todos.
func (c *TodoCache) Invalidate(ctx context.Context, userID string) {
	if !c.Enabled() {
		return
	}
	if err := c.client.Del(ctx, listKey(userID)).Err(); err != nil {
		log.Debug().Err(err).Msg("Redis invalidate todos failed")
	}
}
