package conversation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/tandelhq/tandel/backend/internal/model/chat"
	chatservice "github.com/tandelhq/tandel/backend/internal/service/chat"
)

const (
	// ImageOutputMarker flags an outgoing text as a generated-image result:
	// the marker is stripped and the attachments are shown as the model turn
	// without contacting the language model.
	ImageOutputMarker = "[IMAGE_OUTPUT]"

	// streamFailureText is the terminal text of a reply whose stream failed.
	streamFailureText = "**Error:** Failed to generate response. Please try again."

	// fallbackTitle is used provisionally and whenever title generation fails.
	fallbackTitle = "New Chat"

	// imageTitleSeed seeds title generation when the first prompt is
	// attachment-only.
	imageTitleSeed = "New Image Chat"

	previewRunes = 30

	titleTimeout = 30 * time.Second
)

// ErrEmptyMessage rejects a send with neither text nor attachments.
var ErrEmptyMessage = errors.New("message requires text or attachments")

// ErrNoReplier rejects a text send when no language model is configured. The
// image-output path does not need one and is not affected.
var ErrNoReplier = errors.New("no language model configured")

// Replier is the language-model collaborator.
type Replier interface {
	// StreamReply delivers cumulative full-text snapshots to onSnapshot and
	// returns the final text.
	StreamReply(ctx context.Context, prompt string, attachments []chat.Attachment, history []chat.Message, onSnapshot func(string)) (string, error)
	GenerateTitle(ctx context.Context, seed string) (string, error)
}

// EventType labels a streaming lifecycle notification.
type EventType string

const (
	EventStart    EventType = "start"
	EventSnapshot EventType = "snapshot"
	EventEnd      EventType = "end"
	EventError    EventType = "error"
)

// Event is one streaming lifecycle notification delivered to the send sink.
type Event struct {
	Type      EventType `json:"event"`
	SessionID string    `json:"sessionId,omitempty"`
	MessageID string    `json:"messageId,omitempty"`
	Text      string    `json:"text,omitempty"`
}

// creationState tracks an in-flight session creation so a session switch does
// not reload-and-wipe the freshly appended messages before they are all
// persisted.
type creationState int

const (
	creationIdle creationState = iota
	creationPending
)

// Service is the conversation orchestrator: it receives UI intents, mutates
// the session registry and message logs, and drives the streaming reply
// lifecycle.
type Service struct {
	registry *chatservice.Registry
	messages *chatservice.MessageLog
	replier  Replier

	mu        sync.Mutex
	activeID  string
	creation  creationState
	pendingID string
}

// NewService wires the orchestrator over its collaborators.
func NewService(registry *chatservice.Registry, messages *chatservice.MessageLog, replier Replier) *Service {
	return &Service{
		registry: registry,
		messages: messages,
		replier:  replier,
	}
}

// NewChat clears the active session; the next send creates a fresh one.
func (s *Service) NewChat() {
	s.mu.Lock()
	s.activeID = ""
	s.mu.Unlock()
}

// SelectSession switches the active session, reloading its log from the
// store. The reload is skipped while that session's creation is still in
// flight, so the just-appended messages survive the switch.
func (s *Service) SelectSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == s.activeID {
		return
	}
	s.activeID = id

	if s.creation == creationPending && id == s.pendingID {
		return
	}
	s.messages.Reload(id)
}

// ActiveSession returns the active session id, empty when none.
func (s *Service) ActiveSession() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Sessions returns the registry in display order.
func (s *Service) Sessions() []chat.Session {
	return s.registry.List()
}

// Messages returns the transcript of the active session.
func (s *Service) Messages() []chat.Message {
	s.mu.Lock()
	id := s.activeID
	s.mu.Unlock()

	if id == "" {
		return nil
	}
	return s.messages.Load(id)
}

// RenameSession replaces a session title; blank titles are ignored.
func (s *Service) RenameSession(id, title string) {
	title = strings.TrimSpace(title)
	if title == "" {
		return
	}
	s.registry.RenameSession(id, title)
}

// TogglePin flips a session's pinned flag.
func (s *Service) TogglePin(id string) {
	s.registry.TogglePin(id)
}

// DeleteSession removes the session and its message log. Deleting the active
// session falls back to a new chat.
func (s *Service) DeleteSession(id string) {
	s.registry.DeleteSession(id)
	s.messages.Forget(id)

	s.mu.Lock()
	if s.activeID == id {
		s.activeID = ""
	}
	s.mu.Unlock()
}

// SendMessage runs one send through the streaming reply lifecycle. Lifecycle
// events are delivered to emit (which may be nil). The user message always
// survives, even when the reply fails; a failed reply is finalized with a
// fixed error text rather than retried.
func (s *Service) SendMessage(ctx context.Context, text string, attachments []chat.Attachment, emit func(Event)) error {
	if emit == nil {
		emit = func(Event) {}
	}

	if strings.TrimSpace(text) == "" && len(attachments) == 0 {
		return ErrEmptyMessage
	}

	if strings.HasPrefix(text, ImageOutputMarker) {
		return s.appendImageOutput(strings.TrimPrefix(text, ImageOutputMarker), attachments, emit)
	}

	if s.replier == nil {
		return ErrNoReplier
	}

	sessionID, created, err := s.appendUserMessage(text, attachments)
	if err != nil {
		return err
	}
	if created {
		defer s.commitCreation(sessionID)
		go s.backfillTitle(sessionID, text)
	}

	history := s.messages.Load(sessionID)
	history = history[:len(history)-1] // the live prompt rides the call itself

	placeholder, err := s.messages.Append(sessionID, chat.Message{
		Role:        chat.RoleModel,
		IsStreaming: true,
	})
	if err != nil {
		return fmt.Errorf("failed to open reply placeholder: %w", err)
	}

	emit(Event{Type: EventStart, SessionID: sessionID, MessageID: placeholder.ID})

	final, streamErr := s.replier.StreamReply(ctx, text, attachments, history, func(snapshot string) {
		s.messages.ReplaceStreamingText(sessionID, placeholder.ID, snapshot)
		emit(Event{Type: EventSnapshot, SessionID: sessionID, MessageID: placeholder.ID, Text: snapshot})
	})

	if streamErr != nil {
		s.messages.ReplaceStreamingText(sessionID, placeholder.ID, streamFailureText)
		s.messages.FinalizeStreaming(sessionID, placeholder.ID)
		s.persist(sessionID)
		emit(Event{Type: EventError, SessionID: sessionID, MessageID: placeholder.ID, Text: streamFailureText})
		return fmt.Errorf("reply stream failed: %w", streamErr)
	}

	s.messages.ReplaceStreamingText(sessionID, placeholder.ID, final)
	s.messages.FinalizeStreaming(sessionID, placeholder.ID)
	s.persist(sessionID)
	emit(Event{Type: EventEnd, SessionID: sessionID, MessageID: placeholder.ID, Text: final})
	return nil
}

// appendImageOutput handles the generated-image path: a synthetic user turn
// with the stripped prompt and an attachment-only model turn, appended
// directly with no streaming state. This path never contacts the language
// model, so a session created here keeps its fallback title.
func (s *Service) appendImageOutput(prompt string, attachments []chat.Attachment, emit func(Event)) error {
	sessionID, created, err := s.appendUserMessage(prompt, nil)
	if err != nil {
		return err
	}
	if created {
		defer s.commitCreation(sessionID)
	}

	output, err := s.messages.Append(sessionID, chat.Message{
		Role:        chat.RoleModel,
		Attachments: attachments,
	})
	if err != nil {
		return err
	}
	s.persist(sessionID)

	emit(Event{Type: EventEnd, SessionID: sessionID, MessageID: output.ID})
	return nil
}

// appendUserMessage appends the user turn, creating a provisional session
// when none is active. The first message of a new session is persisted
// synchronously so the record exists before title generation settles.
func (s *Service) appendUserMessage(text string, attachments []chat.Attachment) (string, bool, error) {
	sessionID, created := s.ensureSession(text)

	message := chat.Message{Role: chat.RoleUser, Text: text, Attachments: attachments}
	var err error
	if created {
		_, err = s.messages.AppendAndPersist(sessionID, message)
	} else {
		_, err = s.messages.Append(sessionID, message)
	}
	if err != nil {
		return "", false, err
	}
	return sessionID, created, nil
}

// ensureSession returns the active session id, creating a provisional session
// when none is active and marking the creation pending until the send
// settles.
func (s *Service) ensureSession(text string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeID != "" {
		return s.activeID, false
	}

	session := s.registry.CreateSession(fallbackTitle, preview(text))
	s.activeID = session.ID
	s.creation = creationPending
	s.pendingID = session.ID
	return session.ID, true
}

func (s *Service) commitCreation(sessionID string) {
	s.mu.Lock()
	if s.pendingID == sessionID {
		s.creation = creationIdle
		s.pendingID = ""
	}
	s.mu.Unlock()
}

// backfillTitle resolves the asynchronous title call and replaces the
// provisional title. Failures keep the fallback; the session id is captured
// before the goroutine starts so a concurrent switch cannot redirect it.
func (s *Service) backfillTitle(sessionID, seed string) {
	if strings.TrimSpace(seed) == "" {
		seed = imageTitleSeed
	}

	ctx, cancel := context.WithTimeout(context.Background(), titleTimeout)
	defer cancel()

	title, err := s.replier.GenerateTitle(ctx, seed)
	if err != nil {
		log.Printf("[conversation] title generation failed for session=%s: %v", sessionID, err)
		return
	}
	s.registry.RenameSession(sessionID, title)
}

func (s *Service) persist(sessionID string) {
	if err := s.messages.Persist(sessionID); err != nil {
		log.Printf("[conversation] failed to persist log for session=%s: %v", sessionID, err)
	}
}

// preview derives the sidebar excerpt from the first prompt.
func preview(text string) string {
	runes := []rune(text)
	if len(runes) > previewRunes {
		runes = runes[:previewRunes]
	}
	return string(runes) + "..."
}
