// Package cache 管理可选的 Redis 连接。未启用或连接失败时各调用方降级为进程内实现。
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"snowtricks-server/internal/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	redisMu     sync.Mutex
	redisClient *redis.Client
	redisPrefix = "snowtricks"
)

// Init 按配置连接 Redis；未启用或不可用时返回 nil 客户端且不报错。
func Init(cfg config.RedisConfig, log *zap.Logger) *redis.Client {
	redisMu.Lock()
	defer redisMu.Unlock()

	if cfg.Prefix != "" {
		redisPrefix = cfg.Prefix
	}
	if !cfg.Enabled {
		redisClient = nil
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		log.Warn("redis unavailable, falling back to in-memory mode", zap.String("addr", cfg.Addr), zap.Error(err))
		redisClient = nil
		return nil
	}

	log.Info("redis connected", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	redisClient = client
	return client
}

// Client 返回当前 Redis 客户端；未启用或不可用时返回 nil。
func Client() *redis.Client {
	redisMu.Lock()
	defer redisMu.Unlock()
	return redisClient
}

// SetClient 替换当前客户端，主要供测试使用。
func SetClient(client *redis.Client) {
	redisMu.Lock()
	defer redisMu.Unlock()
	redisClient = client
}

// Key 基于配置前缀拼接 Redis 键名。
func Key(parts ...string) string {
	redisMu.Lock()
	prefix := redisPrefix
	redisMu.Unlock()

	if len(parts) == 0 {
		return prefix
	}
	return prefix + ":" + strings.Join(parts, ":")
}

// Close 关闭 Redis 客户端连接。
func Close() error {
	redisMu.Lock()
	defer redisMu.Unlock()

	if redisClient == nil {
		return nil
	}
	err := redisClient.Close()
	redisClient = nil
	if err != nil {
		return fmt.Errorf("close redis failed: %w", err)
	}
	return nil
}
