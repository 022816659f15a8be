package redis

import (
	redisv8 "github.com/go-redis/redis/v8"
	redisv9 "github.com/redis/go-redis/v9"
)

// NewStreamClient creates the Redis client used by the telemetry stream
func NewStreamClient(addr string) *redisv8.Client {
	return redisv8.NewClient(&redisv8.Options{Addr: addr})
}

// NewClient creates the Redis client used for sessions and caches
func NewClient(addr string) *redisv9.Client {
	return redisv9.NewClient(&redisv9.Options{Addr: addr})
}
