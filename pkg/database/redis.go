package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/yourusername/portfolio-api/internal/config"
)

// NewUniversalRedisClient создает новый клиент Redis на основе унифицированной конфигурации.
// Поддерживает режимы single, sentinel, cluster.
// Если ping не прошел, клиент все равно возвращается вместе с ошибкой: брокер может
// подняться позже, а доставка уведомлений умеет работать без него.
func NewUniversalRedisClient(cfg config.RedisConfig) (redis.UniversalClient, error) {
	options, redisMode, err := universalOptions(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewUniversalClient(options)

	// Проверка подключения
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return client, fmt.Errorf("failed to connect to Redis (mode: %s, addrs: %v): %w", redisMode, options.Addrs, err)
	}

	return client, nil
}

func universalOptions(cfg config.RedisConfig) (*redis.UniversalOptions, string, error) {
	// Определяем адреса
	addresses := cfg.Addrs
	if len(addresses) == 0 {
		if cfg.Addr != "" {
			addresses = []string{cfg.Addr}
		} else {
			return nil, "", fmt.Errorf("redis configuration error: Addrs or Addr must be provided")
		}
	}

	options := &redis.UniversalOptions{
		Addrs:    addresses,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	// Настраиваем ретраи, если указаны
	if cfg.MaxRetries != 0 {
		options.MaxRetries = cfg.MaxRetries
	}
	if cfg.MinRetryBackoff != 0 {
		options.MinRetryBackoff = time.Duration(cfg.MinRetryBackoff) * time.Millisecond
	}
	if cfg.MaxRetryBackoff != 0 {
		options.MaxRetryBackoff = time.Duration(cfg.MaxRetryBackoff) * time.Millisecond
	}

	redisMode := cfg.Mode
	if redisMode == "" {
		redisMode = "single"
	}

	switch redisMode {
	case "sentinel":
		if cfg.MasterName == "" {
			return nil, "", fmt.Errorf("redis sentinel mode requires MasterName")
		}
		options.MasterName = cfg.MasterName
	case "cluster", "single":
		// NewUniversalClient сам определит режим по количеству адресов
	default:
		return nil, "", fmt.Errorf("unsupported redis mode: %s", redisMode)
	}

	return options, redisMode, nil
}
