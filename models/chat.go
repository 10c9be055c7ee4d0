package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Chat roles as understood by the model runtime
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is one tool invocation requested by the model
type ToolCall struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// ToolCallList is stored as a JSON text column
type ToolCallList []ToolCall

// Value implements driver.Valuer interface
func (l ToolCallList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner interface
func (l *ToolCallList) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported tool call column type %T", value)
	}

	if len(raw) == 0 {
		*l = nil
		return nil
	}
	var calls ToolCallList
	if err := json.Unmarshal(raw, &calls); err != nil {
		return err
	}
	*l = calls
	return nil
}

// ChatMessage is one persisted turn of a conversation thread
type ChatMessage struct {
	ID        uuid.UUID    `json:"id" db:"id"`
	ThreadID  string       `json:"thread_id" db:"thread_id"`
	Seq       int64        `json:"seq" db:"seq"`
	Role      string       `json:"role" db:"role"`
	Content   string       `json:"content" db:"content"`
	ToolName  string       `json:"tool_name,omitempty" db:"tool_name"`
	ToolCalls ToolCallList `json:"tool_calls,omitempty" db:"tool_calls"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}

// NewChatMessage creates a message with a fresh ID
func NewChatMessage(role, content string) ChatMessage {
	return ChatMessage{
		ID:        uuid.New(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}
