package repository

import (
	"context"
	"sync"
	"time"

	"github.com/futig/medrag/internal/entity"
	"github.com/patrickmn/go-cache"
)

// HistoryMemory keeps sessions in process memory. History is lost on
// restart and not shared between replicas.
type HistoryMemory struct {
	mu    sync.Mutex
	cache *cache.Cache
	ttl   time.Duration
}

func NewHistoryMemory(ttl time.Duration) *HistoryMemory {
	return &HistoryMemory{
		cache: cache.New(ttl, ttl/2+time.Minute),
		ttl:   ttl,
	}
}

func (r *HistoryMemory) Get(_ context.Context, sessionID string) ([]entity.ConversationTurn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.load(sessionID), nil
}

func (r *HistoryMemory) Append(_ context.Context, sessionID string, turns ...entity.ConversationTurn) ([]entity.ConversationTurn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	history := append(r.load(sessionID), turns...)
	r.cache.Set(sessionID, history, r.ttl)

	return copyTurns(history), nil
}

func (r *HistoryMemory) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cache.Delete(sessionID)
	return nil
}

func (r *HistoryMemory) Ping(context.Context) error {
	return nil
}

func (r *HistoryMemory) Close() error {
	r.cache.Flush()
	return nil
}

// load returns a private copy so callers never alias the cached slice.
func (r *HistoryMemory) load(sessionID string) []entity.ConversationTurn {
	v, ok := r.cache.Get(sessionID)
	if !ok {
		return []entity.ConversationTurn{}
	}
	return copyTurns(v.([]entity.ConversationTurn))
}

func copyTurns(turns []entity.ConversationTurn) []entity.ConversationTurn {
	out := make([]entity.ConversationTurn, len(turns))
	copy(out, turns)
	return out
}
