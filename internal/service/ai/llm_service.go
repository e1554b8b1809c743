package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/tandelhq/tandel/backend/internal/config"
	"github.com/tandelhq/tandel/backend/internal/model/chat"
)

// Service fronts the hosted language model: streaming replies and one-shot
// session titles.
type Service struct {
	chatModel  model.ChatModel
	cfg        config.AIConfig
	titleChain compose.Runnable[map[string]any, *schema.Message]
}

// NewService creates the model client and compiles the title chain.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	titleTemplate := prompt.FromMessages(
		schema.FString,
		schema.UserMessage(titleUserPrompt),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(titleTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile title chain: %w", err)
	}

	return &Service{
		chatModel:  chatModel,
		cfg:        cfg,
		titleChain: runnable,
	}, nil
}

// StreamReply streams a model reply for the prompt. Each delta from the model
// is folded into the text accumulated so far and the cumulative snapshot is
// delivered to onSnapshot; the final full text is returned. Attachments ride
// the live call only, never the replayed history.
func (s *Service) StreamReply(ctx context.Context, promptText string, attachments []chat.Attachment, history []chat.Message, onSnapshot func(string)) (string, error) {
	messages := s.buildMessages(promptText, attachments, history)

	stream, err := s.chatModel.Stream(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("failed to start model stream: %w", err)
	}
	defer stream.Close()

	var builder strings.Builder
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return "", fmt.Errorf("model stream failed: %w", recvErr)
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}

		builder.WriteString(chunk.Content)
		if onSnapshot != nil {
			onSnapshot(builder.String())
		}
	}

	final := builder.String()
	log.Printf("[ai] streamed reply, length=%d", len(final))
	return final, nil
}

// GenerateTitle derives a short session title from the first prompt. Callers
// substitute a fixed fallback when it fails.
func (s *Service) GenerateTitle(ctx context.Context, seed string) (string, error) {
	response, err := s.titleChain.Invoke(ctx, map[string]any{"seed": seed})
	if err != nil {
		return "", fmt.Errorf("failed to generate title: %w", err)
	}

	title := strings.Trim(strings.TrimSpace(response.Content), `"`)
	if title == "" {
		return "", errors.New("model returned an empty title")
	}
	return title, nil
}

// buildMessages assembles system prompt, replayed history and the live user
// turn. History replays text only; the current turn carries image parts when
// attachments are present.
func (s *Service) buildMessages(promptText string, attachments []chat.Attachment, history []chat.Message) []*schema.Message {
	messages := make([]*schema.Message, 0, len(history)+2)
	messages = append(messages, schema.SystemMessage(systemPrompt))

	for _, msg := range history {
		switch msg.Role {
		case chat.RoleUser:
			messages = append(messages, schema.UserMessage(msg.Text))
		case chat.RoleModel:
			messages = append(messages, schema.AssistantMessage(msg.Text, nil))
		}
	}

	if len(attachments) == 0 {
		return append(messages, schema.UserMessage(promptText))
	}

	parts := make([]schema.ChatMessagePart, 0, len(attachments)+1)
	for _, att := range attachments {
		parts = append(parts, schema.ChatMessagePart{
			Type: schema.ChatMessagePartTypeImageURL,
			ImageURL: &schema.ChatMessageImageURL{
				URL:      att.Base64,
				MIMEType: att.MimeType,
			},
		})
	}
	if promptText != "" {
		parts = append(parts, schema.ChatMessagePart{
			Type: schema.ChatMessagePartTypeText,
			Text: promptText,
		})
	}

	return append(messages, &schema.Message{
		Role:         schema.User,
		MultiContent: parts,
	})
}
