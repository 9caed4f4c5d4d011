package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a minimal persisted view of a chat turn.
type Message struct {
	Role string `json:"role"`
	Text string `json:"text,omitempty"`
}

// LoadConversation reads a saved transcript. A missing file yields nil, nil.
func LoadConversation(path string) ([]Message, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	var msgs []Message
	if err := json.Unmarshal(b, &msgs); err != nil {
		return nil, fmt.Errorf("load conversation %s: %w", path, err)
	}
	for i, m := range msgs {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			return nil, fmt.Errorf("load conversation %s: message %d has unknown role %q", path, i, m.Role)
		}
	}
	return msgs, nil
}

// SaveConversation writes msgs to path via a temp file and rename, creating
// the parent directory when needed.
func SaveConversation(path string, msgs []Message) error {
	b, err := json.MarshalIndent(msgs, "", " ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".conversation-*.json")
	if err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("save conversation: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// AppendTurn records a user line and, when non-blank, the assistant reply.
func AppendTurn(msgs []Message, user, assistant string) []Message {
	msgs = append(msgs, Message{Role: RoleUser, Text: user})
	if strings.TrimSpace(assistant) != "" {
		msgs = append(msgs, Message{Role: RoleAssistant, Text: assistant})
	}
	return msgs
}

// ToParams rebuilds SDK messages from a saved transcript.
func ToParams(msgs []Message) []anthropic.MessageParam {
	conv := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == RoleUser {
			conv = append(conv, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Text)))
		} else {
			conv = append(conv, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Text)))
		}
	}
	return conv
}
