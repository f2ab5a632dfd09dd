package store

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/nhle/guest-review/internal/model"
)

// Keys of the client-side state persisted between sessions.
const (
	KeyNotifiedReviewIDs      = "notifiedReviewIds"
	KeyNotifiedBirthdayTitles = "notifiedBirthdayTitles"
	KeyNotifiedMailIDs        = "notifiedMailIds"
	KeyNotifications          = "notifications"
	KeyUnreadCount            = "unreadCount"
	KeyToken                  = "token"
	KeyUser                   = "user"
)

// KV is a durable string key-value store that survives restarts.
//
// Get never fails: an unavailable or corrupt medium is reported as an
// absent key and logged by the implementation.
type KV interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// GetJSON decodes the value stored at key into v. It reports false when
// the key is absent or its value is not valid JSON for v.
func GetJSON(ctx context.Context, kv KV, key string, v interface{}) bool {
	raw, ok := kv.Get(ctx, key)
	if !ok || raw == "" {
		return false
	}
	return json.Unmarshal([]byte(raw), v) == nil
}

// SetJSON encodes v and stores it at key.
func SetJSON(ctx context.Context, kv KV, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return kv.Set(ctx, key, string(data))
}

// Open returns the KV backend selected by cfg.Backend.
func Open(cfg model.StorageConfig, log *zap.Logger) (KV, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch cfg.Backend {
	case model.BackendSQLite, "":
		return NewSQLiteStore(cfg.Path, log)
	case model.BackendRedis:
		return NewRedisStore(cfg.RedisURL, log)
	case model.BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
