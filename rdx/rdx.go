package rdx

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"edabot/models"

	"github.com/redis/go-redis/v9"
)

const profileTTL = 24 * time.Hour

// Cache wraps the Redis connection used for the client-profile
// read-through cache and the order-event pub/sub channel.
type Cache struct {
	conn *redis.Client
}

// Open connects to Redis and verifies the connection.
func Open(ctx context.Context, addr string) (*Cache, error) {
	conn := redis.NewClient(&redis.Options{Addr: addr})
	if err := conn.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Cache{conn: conn}, nil
}

// Close releases the connection.
func (c *Cache) Close() error { return c.conn.Close() }

func profileKey(userID int64) string {
	return "client:" + strconv.FormatInt(userID, 10)
}

// GetProfile returns the cached client profile, or nil on miss. Cache
// errors are logged and treated as misses.
func (c *Cache) GetProfile(ctx context.Context, userID int64) *models.Client {
	raw, err := c.conn.Get(ctx, profileKey(userID)).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		log.Println("Redis get profile error:", err)
		return nil
	}
	var client models.Client
	if err := json.Unmarshal([]byte(raw), &client); err != nil {
		log.Println("Cached profile unmarshal error:", err)
		return nil
	}
	return &client
}

// SetProfile caches a client profile. Best-effort.
func (c *Cache) SetProfile(ctx context.Context, client *models.Client) {
	data, err := json.Marshal(client)
	if err != nil {
		log.Println("Profile marshal error:", err)
		return
	}
	if err := c.conn.Set(ctx, profileKey(client.UserID), data, profileTTL).Err(); err != nil {
		log.Println("Redis set profile error:", err)
	}
}

// DelProfile drops the cached profile so the next read hits Mongo.
func (c *Cache) DelProfile(ctx context.Context, userID int64) {
	if err := c.conn.Del(ctx, profileKey(userID)).Err(); err != nil {
		log.Println("Redis del profile error:", err)
	}
}

// Publish sends a payload to a pub/sub channel.
func (c *Cache) Publish(ctx context.Context, channel string, payload []byte) error {
	return c.conn.Publish(ctx, channel, payload).Err()
}

// Subscribe returns a message channel for a pub/sub channel.
func (c *Cache) Subscribe(ctx context.Context, channel string) <-chan *redis.Message {
	return c.conn.Subscribe(ctx, channel).Channel()
}
