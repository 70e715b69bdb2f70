package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/peerwire/signaling/config"
	"github.com/redis/go-redis/v9"
)

// The in-memory registry is authoritative; Redis only mirrors the
// online peer set so external collaborators can observe presence.
const (
	presenceKey = "signaling:peers"
	presenceTTL = 24 * time.Hour
)

var client *redis.Client
var ctx = context.Background()

// Connect initializes the Redis client. A missing address disables
// the mirror entirely.
func Connect(cfg config.RedisConfig) error {
	if cfg.Addr == "" {
		return nil
	}

	client = redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client = nil
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func Close() error {
	if client != nil {
		return client.Close()
	}
	return nil
}

// Enabled reports whether the presence mirror is active.
func Enabled() bool {
	return client != nil
}

// AddPeer mirrors a registration into the online set. Best-effort:
// failures are logged and never affect the session.
func AddPeer(id string) {
	if client == nil {
		return
	}
	if err := client.SAdd(ctx, presenceKey, id).Err(); err != nil {
		slog.Warn("presence mirror add failed", "peer", id, "error", err)
		return
	}
	client.Expire(ctx, presenceKey, presenceTTL)
}

// RemovePeer mirrors a removal out of the online set.
func RemovePeer(id string) {
	if client == nil {
		return
	}
	if err := client.SRem(ctx, presenceKey, id).Err(); err != nil {
		slog.Warn("presence mirror remove failed", "peer", id, "error", err)
	}
}
