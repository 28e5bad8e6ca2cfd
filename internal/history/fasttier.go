// Package history implements the tiered session-history store: a capacity-bounded
// fast tier for a session's leading messages and an unbounded durable archive
// for everything that lands beyond it.
package history

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/kaiyuanwei/chatgate/internal/domain"
	"github.com/kaiyuanwei/chatgate/internal/observability"
)

const sessionKeyPrefix = "sess:"

// FastTier stores the leading messages of each session. When a shared Redis
// backing is configured it holds one list per session; otherwise (or whenever a
// Redis call fails) a process-local map serves the same contract. The local map
// is non-durable: a restart loses it.
type FastTier struct {
	rdb redis.UniversalClient // nil when no shared cache is configured

	mu    sync.Mutex
	local map[string][]domain.Message

	degradedOnce sync.Once
}

// NewFastTier creates a fast tier. rdb may be nil, in which case only the
// in-process store is used.
func NewFastTier(rdb redis.UniversalClient) *FastTier {
	return &FastTier{
		rdb:   rdb,
		local: make(map[string][]domain.Message),
	}
}

// FirstN returns the oldest n messages of the session, oldest first. An unknown
// session yields an empty slice.
func (f *FastTier) FirstN(ctx context.Context, sessionID string, n int) []domain.Message {
	if f.rdb != nil {
		items, err := f.rdb.LRange(ctx, sessionKeyPrefix+sessionID, 0, int64(n-1)).Result()
		if err == nil {
			msgs := make([]domain.Message, 0, len(items))
			for _, item := range items {
				var m domain.Message
				if err := json.Unmarshal([]byte(item), &m); err != nil {
					observability.FromContext(ctx).Warn("cache_decode_error", "session_id", sessionID, "error", err.Error())
					continue
				}
				msgs = append(msgs, m)
			}
			return msgs
		}
		f.degrade(ctx, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.local[sessionID]
	if len(msgs) > n {
		msgs = msgs[:n]
	}
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out
}

// Push appends a message to the session's list.
func (f *FastTier) Push(ctx context.Context, sessionID string, msg domain.Message) {
	if f.rdb != nil {
		payload, err := json.Marshal(msg)
		if err == nil {
			if err = f.rdb.RPush(ctx, sessionKeyPrefix+sessionID, payload).Err(); err == nil {
				return
			}
		}
		f.degrade(ctx, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.local[sessionID] = append(f.local[sessionID], msg)
}

// TrimToFirstN drops everything beyond index n-1, keeping the oldest n entries.
// The trim keeps "first n since insertion", not "most recent n"; that literal
// semantics is part of the tier contract.
func (f *FastTier) TrimToFirstN(ctx context.Context, sessionID string, n int) {
	if f.rdb != nil {
		err := f.rdb.LTrim(ctx, sessionKeyPrefix+sessionID, 0, int64(n-1)).Err()
		if err == nil {
			return
		}
		f.degrade(ctx, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if msgs := f.local[sessionID]; len(msgs) > n {
		f.local[sessionID] = msgs[:n]
	}
}

// degrade logs the shared-cache failure once per process; every failing call
// falls back to the local store for that call cycle.
func (f *FastTier) degrade(ctx context.Context, err error) {
	f.degradedOnce.Do(func() {
		reason := "unknown"
		if err != nil {
			reason = err.Error()
		}
		observability.FromContext(ctx).Warn("cache_degraded", "error", reason)
	})
}
