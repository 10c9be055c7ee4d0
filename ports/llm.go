package ports

import "context"

// TokenFunc receives streamed model output; returning an error stops the stream
type TokenFunc func(token string) error

// Agent answers a user message on a conversation thread, streaming tokens as they arrive
type Agent interface {
	Stream(ctx context.Context, threadID, input string, onToken TokenFunc) error
}
