package store

// Store is the persistence adapter for conversation state. Records are opaque
// serialized blobs under string keys; the services own the encoding.
type Store interface {
	// Get returns the record for key; the second result is false when no
	// record exists.
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte) error
	Delete(key string) error
	Close() error
}

const (
	// SessionsKey holds the full session registry as one record.
	SessionsKey = "sessions"
	// MessagePrefix is concatenated with a session id to key that session's
	// message log.
	MessagePrefix = "msg:"
)

// MessageKey derives the store key for a session's message log.
func MessageKey(sessionID string) string {
	return MessagePrefix + sessionID
}
