package chat

import (
	"encoding/json"
	"testing"
	"time"

	chatmodel "github.com/tandelhq/tandel/backend/internal/model/chat"
	"github.com/tandelhq/tandel/backend/internal/store"
)

func TestCreateSessionPrepends(t *testing.T) {
	r := NewRegistry(store.NewMemoryStore())

	first := r.CreateSession("First", "hello")
	second := r.CreateSession("Second", "world")

	if first.ID == second.ID {
		t.Fatal("session ids must be unique")
	}
	if first.Pinned || second.Pinned {
		t.Fatal("new sessions must start unpinned")
	}

	got, ok := r.Get(second.ID)
	if !ok || got.Title != "Second" {
		t.Fatalf("Get returned ok=%v session=%+v", ok, got)
	}
}

func TestListOrdering(t *testing.T) {
	st := store.NewMemoryStore()
	now := time.Now().UTC()
	seed := []chatmodel.Session{
		{ID: "a", Title: "A", UpdatedAt: now.Add(-3 * time.Hour)},
		{ID: "b", Title: "B", UpdatedAt: now.Add(-1 * time.Hour)},
		{ID: "c", Title: "C", UpdatedAt: now.Add(-2 * time.Hour), Pinned: true},
		{ID: "d", Title: "D", UpdatedAt: now.Add(-2 * time.Hour)},
	}
	raw, _ := json.Marshal(seed)
	if err := st.Put(store.SessionsKey, raw); err != nil {
		t.Fatalf("seed err: %v", err)
	}

	r := NewRegistry(st)
	got := r.List()

	want := []string{"c", "b", "d", "a"}
	if len(got) != len(want) {
		t.Fatalf("expected %d sessions, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
}

func TestListStableOnEqualKeys(t *testing.T) {
	st := store.NewMemoryStore()
	ts := time.Now().UTC().Truncate(time.Second)
	seed := []chatmodel.Session{
		{ID: "x", UpdatedAt: ts},
		{ID: "y", UpdatedAt: ts},
		{ID: "z", UpdatedAt: ts},
	}
	raw, _ := json.Marshal(seed)
	if err := st.Put(store.SessionsKey, raw); err != nil {
		t.Fatalf("seed err: %v", err)
	}

	got := NewRegistry(st).List()
	for i, id := range []string{"x", "y", "z"} {
		if got[i].ID != id {
			t.Fatalf("equal keys must keep insertion order, position %d got %s", i, got[i].ID)
		}
	}
}

func TestRenameSession(t *testing.T) {
	r := NewRegistry(store.NewMemoryStore())
	session := r.CreateSession("Old", "")

	r.RenameSession(session.ID, "New")
	got, _ := r.Get(session.ID)
	if got.Title != "New" {
		t.Fatalf("expected renamed title, got %q", got.Title)
	}
	if !got.UpdatedAt.Equal(session.UpdatedAt) {
		t.Fatal("rename must not touch UpdatedAt")
	}

	// Unknown id is a silent no-op.
	r.RenameSession("missing", "whatever")
}

func TestTogglePinRoundTrip(t *testing.T) {
	r := NewRegistry(store.NewMemoryStore())
	session := r.CreateSession("Pinnable", "")

	r.TogglePin(session.ID)
	got, _ := r.Get(session.ID)
	if !got.Pinned {
		t.Fatal("expected pinned after first toggle")
	}

	r.TogglePin(session.ID)
	got, _ = r.Get(session.ID)
	if got.Pinned {
		t.Fatal("expected unpinned after second toggle")
	}
	if !got.UpdatedAt.Equal(session.UpdatedAt) {
		t.Fatal("pin toggles must not touch UpdatedAt")
	}
}

func TestDeleteSessionDropsMessageLog(t *testing.T) {
	st := store.NewMemoryStore()
	r := NewRegistry(st)
	session := r.CreateSession("Doomed", "")
	if err := st.Put(store.MessageKey(session.ID), []byte(`[{"id":"m"}]`)); err != nil {
		t.Fatalf("seed err: %v", err)
	}

	r.DeleteSession(session.ID)

	if _, ok := r.Get(session.ID); ok {
		t.Fatal("expected session removed from registry")
	}
	if _, ok, _ := st.Get(store.MessageKey(session.ID)); ok {
		t.Fatal("expected message log record dropped")
	}
}

func TestRegistryPersistRoundTrip(t *testing.T) {
	st := store.NewMemoryStore()
	r := NewRegistry(st)
	session := r.CreateSession("Persisted", "preview text")
	r.TogglePin(session.ID)

	reloaded := NewRegistry(st)
	got, ok := reloaded.Get(session.ID)
	if !ok {
		t.Fatal("expected session after reload")
	}
	want, _ := r.Get(session.ID)
	if got != want {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, want)
	}
}

func TestRegistryCorruptRecordYieldsEmpty(t *testing.T) {
	st := store.NewMemoryStore()
	if err := st.Put(store.SessionsKey, []byte("{not json")); err != nil {
		t.Fatalf("seed err: %v", err)
	}

	r := NewRegistry(st)
	if got := r.List(); len(got) != 0 {
		t.Fatalf("expected empty registry, got %d sessions", len(got))
	}
}

func TestEmptyRegistryNeverPersisted(t *testing.T) {
	st := store.NewMemoryStore()
	r := NewRegistry(st)
	session := r.CreateSession("Only", "")

	r.DeleteSession(session.ID)

	// Deleting the last session must leave the previous record untouched.
	raw, ok, err := st.Get(store.SessionsKey)
	if err != nil {
		t.Fatalf("Get err: %v", err)
	}
	if !ok {
		t.Fatal("expected stale session record to survive")
	}
	var stale []chatmodel.Session
	if err := json.Unmarshal(raw, &stale); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if len(stale) != 1 || stale[0].ID != session.ID {
		t.Fatalf("unexpected stale record: %+v", stale)
	}
}
