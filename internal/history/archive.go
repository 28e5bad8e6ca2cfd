package history

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/kaiyuanwei/chatgate/internal/domain"
	"github.com/kaiyuanwei/chatgate/internal/observability"
)

// Archive is the durable tier: an append-only per-session log of messages that
// aged out of the fast tier, kept in a single local JSON file. Every operation
// reads or writes the whole file; that caps scalability but keeps the state
// trivially inspectable. A crash mid-write can lose the latest update.
type Archive struct {
	path string
	mu   sync.Mutex
}

type archiveEntry struct {
	Beyond []domain.Message `json:"beyond10"`
}

// NewArchive creates an archive backed by the given file path. The file is
// created lazily on first append.
func NewArchive(path string) *Archive {
	return &Archive{path: path}
}

// Append adds messages to the session's durable log. Write failures are logged
// and absorbed.
func (a *Archive) Append(ctx context.Context, sessionID string, msgs []domain.Message) {
	a.mu.Lock()
	defer a.mu.Unlock()

	db := a.load(ctx)
	entry := db[sessionID]
	entry.Beyond = append(entry.Beyond, msgs...)
	db[sessionID] = entry
	a.save(ctx, db)
}

// Read returns the session's durable log, oldest first. An unknown session or
// an unreadable file yields an empty slice.
func (a *Archive) Read(ctx context.Context, sessionID string) []domain.Message {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.load(ctx)[sessionID].Beyond
}

// load reads the whole archive file. Missing file means empty state; a corrupt
// or unreadable file is treated as empty and logged.
func (a *Archive) load(ctx context.Context) map[string]archiveEntry {
	db := make(map[string]archiveEntry)
	raw, err := os.ReadFile(a.path)
	if err != nil {
		if !os.IsNotExist(err) {
			observability.FromContext(ctx).Warn("archive_load_error", "path", a.path, "error", err.Error())
		}
		return db
	}
	if err := json.Unmarshal(raw, &db); err != nil {
		observability.FromContext(ctx).Warn("archive_load_error", "path", a.path, "error", err.Error())
		return make(map[string]archiveEntry)
	}
	return db
}

// save writes the whole archive file back.
func (a *Archive) save(ctx context.Context, db map[string]archiveEntry) {
	raw, err := json.MarshalIndent(db, "", "  ")
	if err != nil {
		observability.FromContext(ctx).Warn("archive_save_error", "path", a.path, "error", err.Error())
		return
	}
	if err := os.WriteFile(a.path, raw, 0o644); err != nil {
		observability.FromContext(ctx).Warn("archive_save_error", "path", a.path, "error", err.Error())
	}
}
