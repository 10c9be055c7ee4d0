package ports

import (
	"context"

	"casedesk/models"
)

// CheckpointRepository persists conversation history per thread
type CheckpointRepository interface {
	// Append stores messages at the end of a thread
	Append(ctx context.Context, threadID string, messages ...models.ChatMessage) error

	// History returns the thread's messages, oldest first
	History(ctx context.Context, threadID string) ([]models.ChatMessage, error)

	// Clear removes every message of a thread
	Clear(ctx context.Context, threadID string) error
}
