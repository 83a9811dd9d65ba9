package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/futig/medrag/internal/entity"
	"github.com/redis/go-redis/v9"
)

// HistoryRedis keeps each session as a Redis list of JSON encoded turns.
type HistoryRedis struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

func NewHistoryRedis(client redis.UniversalClient, keyPrefix string, ttl time.Duration) *HistoryRedis {
	return &HistoryRedis{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

func (r *HistoryRedis) key(sessionID string) string {
	return r.keyPrefix + sessionID
}

func (r *HistoryRedis) Get(ctx context.Context, sessionID string) ([]entity.ConversationTurn, error) {
	raw, err := r.client.LRange(ctx, r.key(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: read history: %w", entity.ErrSessionUnavailable, err)
	}

	return decodeTurns(raw)
}

// Append pushes turns, refreshes the TTL and reads the list back inside one
// MULTI/EXEC so concurrent appends to the same session never interleave.
func (r *HistoryRedis) Append(ctx context.Context, sessionID string, turns ...entity.ConversationTurn) ([]entity.ConversationTurn, error) {
	key := r.key(sessionID)

	values := make([]any, 0, len(turns))
	for _, t := range turns {
		data, err := json.Marshal(t)
		if err != nil {
			return nil, fmt.Errorf("encode turn: %w", err)
		}
		values = append(values, data)
	}

	var lrange *redis.StringSliceCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(values) > 0 {
			pipe.RPush(ctx, key, values...)
			pipe.Expire(ctx, key, r.ttl)
		}
		lrange = pipe.LRange(ctx, key, 0, -1)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: append history: %w", entity.ErrSessionUnavailable, err)
	}

	return decodeTurns(lrange.Val())
}

func (r *HistoryRedis) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: delete history: %w", entity.ErrSessionUnavailable, err)
	}
	return nil
}

func (r *HistoryRedis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: ping redis: %w", entity.ErrSessionUnavailable, err)
	}
	return nil
}

func (r *HistoryRedis) Close() error {
	return r.client.Close()
}

func decodeTurns(raw []string) ([]entity.ConversationTurn, error) {
	turns := make([]entity.ConversationTurn, 0, len(raw))
	for _, item := range raw {
		var t entity.ConversationTurn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return nil, fmt.Errorf("decode turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}
