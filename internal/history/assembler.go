package history

import (
	"context"
	"sync"

	"github.com/kaiyuanwei/chatgate/internal/domain"
)

// DefaultFastCapacity is the fixed cutover point between the tiers.
const DefaultFastCapacity = 10

// Assembler composes the full ordered conversation from both tiers and decides,
// on each new message, which tier receives it. Placement happens at write time:
// a message that lands in a tier is never migrated later.
//
// Once a session has accumulated capacity messages, every later message lands in
// the archive; the fast tier keeps the session's *first* capacity messages, not
// the most recent ones. That is the inherited contract of the store and callers
// rely on the concatenation invariant it produces.
type Assembler struct {
	fast     *FastTier
	archive  *Archive
	capacity int

	mu       sync.Mutex
	sessions map[string]*sync.Mutex
}

// NewAssembler creates an assembler over the two tiers. capacity must be a
// positive constant; DefaultFastCapacity is the reference value.
func NewAssembler(fast *FastTier, archive *Archive, capacity int) *Assembler {
	if capacity <= 0 {
		capacity = DefaultFastCapacity
	}
	return &Assembler{
		fast:     fast,
		archive:  archive,
		capacity: capacity,
		sessions: make(map[string]*sync.Mutex),
	}
}

// Read returns the session's full history: fast tier (capped at capacity,
// oldest first) followed by the archive (oldest first). An unknown session
// yields an empty slice.
func (a *Assembler) Read(ctx context.Context, sessionID string) []domain.Message {
	first := a.fast.FirstN(ctx, sessionID, a.capacity)
	rest := a.archive.Read(ctx, sessionID)
	out := make([]domain.Message, 0, len(first)+len(rest))
	out = append(out, first...)
	out = append(out, rest...)
	return out
}

// Append stores a message in exactly one tier: the fast tier while the total
// history is still shorter than capacity, the archive afterwards. The whole
// read-length-check-write sequence holds the session's lock so concurrent
// appends to one session cannot misplace a message.
func (a *Assembler) Append(ctx context.Context, sessionID string, msg domain.Message) {
	lock := a.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	if len(a.Read(ctx, sessionID)) < a.capacity {
		a.fast.Push(ctx, sessionID, msg)
		a.fast.TrimToFirstN(ctx, sessionID, a.capacity)
		return
	}
	a.archive.Append(ctx, sessionID, []domain.Message{msg})
}

func (a *Assembler) sessionLock(sessionID string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	lock, ok := a.sessions[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		a.sessions[sessionID] = lock
	}
	return lock
}
