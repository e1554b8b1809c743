package chat

import (
	"encoding/json"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tandelhq/tandel/backend/internal/model/chat"
	"github.com/tandelhq/tandel/backend/internal/store"
)

// Registry holds the ordered session list and mirrors every mutation to the
// persistence adapter. Mutations on unknown ids are silent no-ops.
type Registry struct {
	mu       sync.RWMutex
	store    store.Store
	sessions []chat.Session
}

// NewRegistry loads any persisted session list from st. A corrupt record is
// logged and treated as an empty registry.
func NewRegistry(st store.Store) *Registry {
	r := &Registry{store: st}

	raw, ok, err := st.Get(store.SessionsKey)
	if err != nil {
		log.Printf("[registry] failed to read session list: %v", err)
		return r
	}
	if !ok {
		return r
	}

	if err := json.Unmarshal(raw, &r.sessions); err != nil {
		log.Printf("[registry] discarding corrupt session list: %v", err)
		r.sessions = nil
	}
	return r
}

// CreateSession provisions a session and prepends it to the registry.
func (r *Registry) CreateSession(title, preview string) chat.Session {
	session := chat.Session{
		ID:        uuid.NewString(),
		Title:     title,
		Preview:   preview,
		UpdatedAt: time.Now().UTC(),
	}

	r.mu.Lock()
	r.sessions = append([]chat.Session{session}, r.sessions...)
	r.persistLocked()
	r.mu.Unlock()

	return session
}

// RenameSession replaces the session title. UpdatedAt is left untouched.
func (r *Registry) RenameSession(id, title string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.sessions {
		if r.sessions[i].ID == id {
			r.sessions[i].Title = title
			r.persistLocked()
			return
		}
	}
}

// TogglePin flips the pinned flag. UpdatedAt is left untouched.
func (r *Registry) TogglePin(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.sessions {
		if r.sessions[i].ID == id {
			r.sessions[i].Pinned = !r.sessions[i].Pinned
			r.persistLocked()
			return
		}
	}
}

// DeleteSession removes the session and drops its persisted message log.
func (r *Registry) DeleteSession(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.sessions {
		if r.sessions[i].ID == id {
			r.sessions = append(r.sessions[:i], r.sessions[i+1:]...)
			r.persistLocked()
			break
		}
	}

	if err := r.store.Delete(store.MessageKey(id)); err != nil {
		log.Printf("[registry] failed to drop message log for session=%s: %v", id, err)
	}
}

// Get returns the session by id.
func (r *Registry) Get(id string) (chat.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, session := range r.sessions {
		if session.ID == id {
			return session, true
		}
	}
	return chat.Session{}, false
}

// List returns the sessions in display order: pinned first, then UpdatedAt
// descending, ties keeping insertion order.
func (r *Registry) List() []chat.Session {
	r.mu.RLock()
	copied := make([]chat.Session, len(r.sessions))
	copy(copied, r.sessions)
	r.mu.RUnlock()

	sort.SliceStable(copied, func(i, j int) bool {
		if copied[i].Pinned != copied[j].Pinned {
			return copied[i].Pinned
		}
		return copied[i].UpdatedAt.After(copied[j].UpdatedAt)
	})
	return copied
}

// persistLocked writes the full registry through to the store. An empty
// registry is never written, so stale store data survives deleting the last
// session; existing clients rely on that.
func (r *Registry) persistLocked() {
	if len(r.sessions) == 0 {
		return
	}

	raw, err := json.Marshal(r.sessions)
	if err != nil {
		log.Printf("[registry] failed to encode session list: %v", err)
		return
	}
	if err := r.store.Put(store.SessionsKey, raw); err != nil {
		log.Printf("[registry] failed to persist session list: %v", err)
	}
}
