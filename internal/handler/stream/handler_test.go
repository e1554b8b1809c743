package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	chatmodel "github.com/tandelhq/tandel/backend/internal/model/chat"
	chatservice "github.com/tandelhq/tandel/backend/internal/service/chat"
	"github.com/tandelhq/tandel/backend/internal/service/conversation"
	"github.com/tandelhq/tandel/backend/internal/store"
)

type scriptedReplier struct {
	snapshots []string
	failWith  error
}

func (s scriptedReplier) StreamReply(_ context.Context, _ string, _ []chatmodel.Attachment, _ []chatmodel.Message, onSnapshot func(string)) (string, error) {
	if s.failWith != nil {
		return "", s.failWith
	}
	var last string
	for _, snapshot := range s.snapshots {
		last = snapshot
		onSnapshot(snapshot)
	}
	return last, nil
}

func (s scriptedReplier) GenerateTitle(context.Context, string) (string, error) {
	return "Title", nil
}

func setupRouter(replier conversation.Replier) *chi.Mux {
	st := store.NewMemoryStore()
	conv := conversation.NewService(chatservice.NewRegistry(st), chatservice.NewMessageLog(st), replier)

	r := chi.NewRouter()
	New(conv).RegisterRoutes(r)
	return r
}

func decodeEvents(t *testing.T, body string) []conversation.Event {
	t.Helper()

	var events []conversation.Event
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event conversation.Event
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
			t.Fatalf("decode event err: %v (line %q)", err, line)
		}
		events = append(events, event)
	}
	return events
}

func TestSendStreamsLifecycle(t *testing.T) {
	r := setupRouter(scriptedReplier{snapshots: []string{"He", "Hello"}})

	payload, _ := json.Marshal(map[string]any{"text": "Hi"})
	req := httptest.NewRequest(http.MethodPost, "/stream", bytes.NewReader(payload))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if got := resp.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("expected SSE content type, got %q", got)
	}

	events := decodeEvents(t, resp.Body.String())
	if len(events) < 3 {
		t.Fatalf("expected start/snapshot/end, got %+v", events)
	}
	if events[0].Type != conversation.EventStart {
		t.Fatalf("expected start first, got %s", events[0].Type)
	}
	last := events[len(events)-1]
	if last.Type != conversation.EventEnd || last.Text != "Hello" {
		t.Fatalf("unexpected final event: %+v", last)
	}
}

func TestSendProviderFailureEmitsTerminalError(t *testing.T) {
	r := setupRouter(scriptedReplier{failWith: errors.New("provider down")})

	payload, _ := json.Marshal(map[string]any{"text": "Hi"})
	req := httptest.NewRequest(http.MethodPost, "/stream", bytes.NewReader(payload))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	events := decodeEvents(t, resp.Body.String())
	last := events[len(events)-1]
	if last.Type != conversation.EventError {
		t.Fatalf("expected terminal error event, got %+v", last)
	}
	if !strings.Contains(last.Text, "Error") {
		t.Fatalf("expected the fixed error text, got %q", last.Text)
	}
}

func TestSendInvalidBody(t *testing.T) {
	r := setupRouter(scriptedReplier{})

	req := httptest.NewRequest(http.MethodPost, "/stream", bytes.NewReader([]byte("{broken")))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
