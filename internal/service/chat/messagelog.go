package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tandelhq/tandel/backend/internal/model/chat"
	"github.com/tandelhq/tandel/backend/internal/store"
)

// ErrStreamingInProgress rejects a second streaming placeholder in the same
// session; at most one message per session may stream at a time.
var ErrStreamingInProgress = errors.New("a reply is already streaming for this session")

// MessageLog keeps per-session message sequences. Logs are append-only except
// for in-place mutation of the single currently-streaming message.
// Persistence is explicit: callers decide when the in-memory log is written
// through to the store.
type MessageLog struct {
	mu    sync.RWMutex
	store store.Store
	logs  map[string][]chat.Message
}

// NewMessageLog creates an empty log cache backed by st.
func NewMessageLog(st store.Store) *MessageLog {
	return &MessageLog{
		store: st,
		logs:  make(map[string][]chat.Message),
	}
}

// Load returns the messages for sessionID, reading the store on first access.
// A corrupt record yields an empty log, never an error.
func (l *MessageLog) Load(sessionID string) []chat.Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	messages, ok := l.logs[sessionID]
	if !ok {
		messages = l.readStoreLocked(sessionID)
		l.logs[sessionID] = messages
	}

	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	return copied
}

// Append adds a message to the end of the in-memory log, assigning an id and
// timestamp when absent, and returns the stored message.
func (l *MessageLog) Append(sessionID string, message chat.Message) (chat.Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if message.IsStreaming {
		for _, existing := range l.logs[sessionID] {
			if existing.IsStreaming {
				return chat.Message{}, ErrStreamingInProgress
			}
		}
	}

	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now().UTC()
	}

	l.logs[sessionID] = append(l.logs[sessionID], message)
	return message, nil
}

// AppendAndPersist appends and immediately writes the log through to the
// store. Used for the first message of a brand-new session so the record
// exists before the asynchronous title generation settles.
func (l *MessageLog) AppendAndPersist(sessionID string, message chat.Message) (chat.Message, error) {
	stored, err := l.Append(sessionID, message)
	if err != nil {
		return chat.Message{}, err
	}
	if err := l.Persist(sessionID); err != nil {
		return chat.Message{}, err
	}
	return stored, nil
}

// ReplaceStreamingText overwrites the text of the identified message with the
// latest cumulative snapshot. Unknown ids are a silent no-op; that only
// happens when orchestration is broken, and a lost snapshot is harmless.
func (l *MessageLog) ReplaceStreamingText(sessionID, messageID, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	messages := l.logs[sessionID]
	for i := range messages {
		if messages[i].ID == messageID {
			messages[i].Text = text
			return
		}
	}
}

// FinalizeStreaming marks the identified message as no longer streaming.
func (l *MessageLog) FinalizeStreaming(sessionID, messageID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	messages := l.logs[sessionID]
	for i := range messages {
		if messages[i].ID == messageID {
			messages[i].IsStreaming = false
			return
		}
	}
}

// Persist writes the full in-memory log for sessionID to the store. An empty
// log is never written (same non-destructive-on-empty rule as the registry).
func (l *MessageLog) Persist(sessionID string) error {
	l.mu.RLock()
	messages := l.logs[sessionID]
	l.mu.RUnlock()

	if len(messages) == 0 {
		return nil
	}

	raw, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to encode message log: %w", err)
	}
	if err := l.store.Put(store.MessageKey(sessionID), raw); err != nil {
		return fmt.Errorf("failed to persist message log: %w", err)
	}
	return nil
}

// Reload discards the in-memory log for sessionID and re-reads the store.
// Used on session switches so the transcript reflects what was persisted.
func (l *MessageLog) Reload(sessionID string) {
	l.mu.Lock()
	l.logs[sessionID] = l.readStoreLocked(sessionID)
	l.mu.Unlock()
}

// Forget drops the in-memory log for sessionID. The persisted record is owned
// by the registry's delete path.
func (l *MessageLog) Forget(sessionID string) {
	l.mu.Lock()
	delete(l.logs, sessionID)
	l.mu.Unlock()
}

func (l *MessageLog) readStoreLocked(sessionID string) []chat.Message {
	raw, ok, err := l.store.Get(store.MessageKey(sessionID))
	if err != nil {
		log.Printf("[messagelog] failed to read log for session=%s: %v", sessionID, err)
		return nil
	}
	if !ok {
		return nil
	}

	var messages []chat.Message
	if err := json.Unmarshal(raw, &messages); err != nil {
		log.Printf("[messagelog] discarding corrupt log for session=%s: %v", sessionID, err)
		return nil
	}
	return messages
}
