package builder

import (
	"context"
	"crypto/tls"

	"github.com/futig/medrag/internal/config"
	"github.com/futig/medrag/internal/pkg/retry"
	"github.com/futig/medrag/internal/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// setupHistory returns the session store, or nil when it cannot be reached.
// A nil store disables the chat endpoints; stateless ones keep working.
func setupHistory(ctx context.Context, cfg config.SessionConfig, logger *zap.Logger) repository.HistoryRepository {
	if cfg.Store == "memory" {
		logger.Info("Using in-memory session store", zap.Duration("ttl", cfg.TTL))
		return repository.NewHistoryMemory(cfg.TTL)
	}

	opts := &redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  cfg.RedisTimeout,
		ReadTimeout:  cfg.RedisTimeout,
		WriteTimeout: cfg.RedisTimeout,
	}
	if cfg.RedisSSL {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	history := repository.NewHistoryRedis(redis.NewClient(opts), cfg.KeyPrefix, cfg.TTL)

	if err := retry.WaitFor(ctx, "redis", cfg.Retry, logger, history.Ping); err != nil {
		logger.Warn("Session store unavailable, chat endpoints disabled",
			zap.String("addr", cfg.RedisAddr),
			zap.Error(err),
		)
		history.Close()
		return nil
	}

	logger.Info("Connected to Redis session store",
		zap.String("addr", cfg.RedisAddr),
		zap.Int("db", cfg.RedisDB),
		zap.Duration("ttl", cfg.TTL),
	)

	return history
}
