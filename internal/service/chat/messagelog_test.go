package chat

import (
	"errors"
	"reflect"
	"testing"

	chatmodel "github.com/tandelhq/tandel/backend/internal/model/chat"
	"github.com/tandelhq/tandel/backend/internal/store"
)

func TestAppendAssignsIDAndTimestamp(t *testing.T) {
	l := NewMessageLog(store.NewMemoryStore())

	stored, err := l.Append("s1", chatmodel.Message{Role: chatmodel.RoleUser, Text: "Hi"})
	if err != nil {
		t.Fatalf("Append err: %v", err)
	}
	if stored.ID == "" {
		t.Fatal("expected generated id")
	}
	if stored.Timestamp.IsZero() {
		t.Fatal("expected assigned timestamp")
	}

	messages := l.Load("s1")
	if len(messages) != 1 || messages[0].Text != "Hi" {
		t.Fatalf("unexpected log: %+v", messages)
	}
}

func TestAppendRejectsSecondStreamingMessage(t *testing.T) {
	l := NewMessageLog(store.NewMemoryStore())

	if _, err := l.Append("s1", chatmodel.Message{Role: chatmodel.RoleModel, IsStreaming: true}); err != nil {
		t.Fatalf("first streaming append err: %v", err)
	}
	_, err := l.Append("s1", chatmodel.Message{Role: chatmodel.RoleModel, IsStreaming: true})
	if !errors.Is(err, ErrStreamingInProgress) {
		t.Fatalf("expected ErrStreamingInProgress, got %v", err)
	}

	// A different session is unaffected.
	if _, err := l.Append("s2", chatmodel.Message{Role: chatmodel.RoleModel, IsStreaming: true}); err != nil {
		t.Fatalf("other session append err: %v", err)
	}
}

func TestReplaceStreamingTextOverwritesWholesale(t *testing.T) {
	l := NewMessageLog(store.NewMemoryStore())
	placeholder, _ := l.Append("s1", chatmodel.Message{Role: chatmodel.RoleModel, IsStreaming: true})

	l.ReplaceStreamingText("s1", placeholder.ID, "Hel")
	l.ReplaceStreamingText("s1", placeholder.ID, "Hello there")

	messages := l.Load("s1")
	if messages[0].Text != "Hello there" {
		t.Fatalf("expected latest snapshot, got %q", messages[0].Text)
	}
	if !messages[0].IsStreaming {
		t.Fatal("message must still be streaming before finalize")
	}

	// Unknown message id is a silent no-op.
	l.ReplaceStreamingText("s1", "missing", "ignored")
}

func TestFinalizeStreaming(t *testing.T) {
	l := NewMessageLog(store.NewMemoryStore())
	placeholder, _ := l.Append("s1", chatmodel.Message{Role: chatmodel.RoleModel, IsStreaming: true})

	l.FinalizeStreaming("s1", placeholder.ID)

	messages := l.Load("s1")
	if messages[0].IsStreaming {
		t.Fatal("expected IsStreaming cleared")
	}
}

func TestPersistRoundTrip(t *testing.T) {
	st := store.NewMemoryStore()
	l := NewMessageLog(st)

	l.Append("s1", chatmodel.Message{Role: chatmodel.RoleUser, Text: "Hi", Attachments: []chatmodel.Attachment{
		{Base64: "data:image/png;base64,AAAA", MimeType: "image/png"},
	}})
	l.Append("s1", chatmodel.Message{Role: chatmodel.RoleModel, Text: "Hello!"})
	if err := l.Persist("s1"); err != nil {
		t.Fatalf("Persist err: %v", err)
	}

	reloaded := NewMessageLog(st)
	got := reloaded.Load("s1")
	want := l.Load("s1")
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestPersistSkipsEmptyLog(t *testing.T) {
	st := store.NewMemoryStore()
	if err := st.Put(store.MessageKey("s1"), []byte(`[{"id":"old"}]`)); err != nil {
		t.Fatalf("seed err: %v", err)
	}

	l := NewMessageLog(st)
	if err := l.Persist("s1"); err != nil {
		t.Fatalf("Persist err: %v", err)
	}

	// Existing record untouched by the empty write.
	if _, ok, _ := st.Get(store.MessageKey("s1")); !ok {
		t.Fatal("expected stale record to survive")
	}
}

func TestLoadCorruptRecordYieldsEmpty(t *testing.T) {
	st := store.NewMemoryStore()
	if err := st.Put(store.MessageKey("s1"), []byte("[broken")); err != nil {
		t.Fatalf("seed err: %v", err)
	}

	l := NewMessageLog(st)
	if got := l.Load("s1"); len(got) != 0 {
		t.Fatalf("expected empty log, got %+v", got)
	}
}

func TestAppendAndPersistWritesThrough(t *testing.T) {
	st := store.NewMemoryStore()
	l := NewMessageLog(st)

	if _, err := l.AppendAndPersist("s1", chatmodel.Message{Role: chatmodel.RoleUser, Text: "First"}); err != nil {
		t.Fatalf("AppendAndPersist err: %v", err)
	}

	if _, ok, _ := st.Get(store.MessageKey("s1")); !ok {
		t.Fatal("expected record written synchronously")
	}
}

func TestForgetDropsCacheOnly(t *testing.T) {
	st := store.NewMemoryStore()
	l := NewMessageLog(st)
	l.Append("s1", chatmodel.Message{Role: chatmodel.RoleUser, Text: "Hi"})
	if err := l.Persist("s1"); err != nil {
		t.Fatalf("Persist err: %v", err)
	}

	l.Forget("s1")

	// The store record remains; Load re-reads it.
	if got := l.Load("s1"); len(got) != 1 {
		t.Fatalf("expected reload from store, got %+v", got)
	}
}
