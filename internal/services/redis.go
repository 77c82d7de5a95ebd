package services

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var RedisClient *redis.Client

// Presence keys carry a TTL so a crashed server cannot leave users marked
// online forever; active connections refresh it from the hub's ping loop.
const presenceTTL = 2 * time.Minute

// InitRedis initializes the Redis client
func InitRedis() error {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://redis:6379" // Default Redis address for Docker
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %v", err)
	}

	RedisClient = redis.NewClient(opt)

	// Test the connection
	ctx := context.Background()
	_, err = RedisClient.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return nil
}

func presenceKey(userID uint) string {
	return fmt.Sprintf("presence:user:%d", userID)
}

// SetUserOnline marks a user as having at least one live connection.
func SetUserOnline(ctx context.Context, userID uint) error {
	if RedisClient == nil {
		return nil
	}
	return RedisClient.Set(ctx, presenceKey(userID), "1", presenceTTL).Err()
}

// RefreshUserOnline extends the presence TTL for a connected user.
func RefreshUserOnline(ctx context.Context, userID uint) error {
	if RedisClient == nil {
		return nil
	}
	return RedisClient.Expire(ctx, presenceKey(userID), presenceTTL).Err()
}

// SetUserOffline clears a user's presence key once their last connection drops.
func SetUserOffline(ctx context.Context, userID uint) error {
	if RedisClient == nil {
		return nil
	}
	return RedisClient.Del(ctx, presenceKey(userID)).Err()
}

// IsUserOnline reports whether the user currently has a live connection.
func IsUserOnline(ctx context.Context, userID uint) (bool, error) {
	if RedisClient == nil {
		return false, nil
	}
	n, err := RedisClient.Exists(ctx, presenceKey(userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
