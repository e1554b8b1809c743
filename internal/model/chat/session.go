package chat

import "time"

// Session is one named conversation thread shown in the sidebar.
type Session struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Preview string `json:"preview"`
	// UpdatedAt is set once at creation and deliberately never bumped on later
	// messages, matching the records already written by existing clients.
	UpdatedAt time.Time `json:"updatedAt"`
	Pinned    bool      `json:"pinned"`
}
