package database

import (
	"context"
	"log"

	"github.com/nemoguigrat/uralintern/internal/config"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis returns nil when REDIS_ADDR is unset or the server does not
// answer, in which case report caching is disabled.
func ConnectRedis(ctx context.Context, cfg *config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		log.Println("REDIS_ADDR not set, report cache disabled")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("redis unavailable, report cache disabled: %v", err)
		rdb.Close()
		return nil
	}

	log.Println("redis connected")
	return rdb
}
