package notify

import (
	"context"
	gosync "sync"

	"go.uber.org/zap"

	"github.com/nhle/guest-review/internal/store"
)

// SeenSet remembers which record identifiers already produced a
// notification. It is hydrated once from its KV key and written back on
// every change.
type SeenSet struct {
	kv  store.KV
	key string
	log *zap.Logger

	mu    gosync.Mutex
	ids   map[string]struct{}
	order []string
}

// NewSeenSet loads the set stored at key. A missing or corrupt value
// yields an empty set.
func NewSeenSet(ctx context.Context, kv store.KV, key string, log *zap.Logger) *SeenSet {
	if log == nil {
		log = zap.NewNop()
	}
	s := &SeenSet{
		kv:  kv,
		key: key,
		log: log.Named("seen").With(zap.String("key", key)),
		ids: make(map[string]struct{}),
	}

	var stored []string
	if store.GetJSON(ctx, kv, key, &stored) {
		for _, id := range stored {
			if _, dup := s.ids[id]; dup {
				continue
			}
			s.ids[id] = struct{}{}
			s.order = append(s.order, id)
		}
	}
	return s
}

// Contains reports whether id has been seen.
func (s *SeenSet) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// Add records id and reports whether it was new. The updated set is
// written to the store before Add returns, so the caller may emit a
// notification only when Add returns true.
func (s *SeenSet) Add(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	s.order = append(s.order, id)

	if err := store.SetJSON(ctx, s.kv, s.key, s.order); err != nil {
		s.log.Warn("persisting seen set", zap.String("id", id), zap.Error(err))
	}
	return true
}

// Reset forgets every identifier.
func (s *SeenSet) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ids = make(map[string]struct{})
	s.order = nil
	if err := s.kv.Delete(ctx, s.key); err != nil {
		s.log.Warn("resetting seen set", zap.Error(err))
	}
}

// Snapshot returns the identifiers in insertion order.
func (s *SeenSet) Snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of identifiers.
func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}
