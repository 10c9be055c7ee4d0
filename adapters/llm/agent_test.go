package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"casedesk/internal/config"
	"casedesk/internal/errors"
	"casedesk/models"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// scriptedChat replays one list of stream chunks per Chat call
type scriptedChat struct {
	turns    [][]api.ChatResponse
	requests []*api.ChatRequest
	err      error
}

func (c *scriptedChat) Chat(ctx context.Context, req *api.ChatRequest, fn api.ChatResponseFunc) error {
	c.requests = append(c.requests, req)
	if c.err != nil {
		return c.err
	}
	if len(c.turns) == 0 {
		return fmt.Errorf("unexpected chat call")
	}
	turn := c.turns[0]
	c.turns = c.turns[1:]
	for _, chunk := range turn {
		if err := fn(chunk); err != nil {
			return err
		}
	}
	return nil
}

type fakeTools struct {
	calls []mcp.CallToolRequest
	lists int
}

func (f *fakeTools) ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error) {
	f.lists++
	return &mcp.ListToolsResult{Tools: []mcp.Tool{
		mcp.NewTool("get_list_sheet_name", mcp.WithDescription("List sheets")),
		mcp.NewTool("analyze_case_data",
			mcp.WithDescription("Query cases"),
			mcp.WithString("sheet_name", mcp.Required(), mcp.Description("sheet")),
			mcp.WithString("query", mcp.Required(), mcp.Description("sql"))),
	}}, nil
}

func (f *fakeTools) CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f.calls = append(f.calls, req)
	switch req.Params.Name {
	case "get_list_sheet_name":
		return mcp.NewToolResultText(`{"0":"Hình sự"}`), nil
	default:
		return mcp.NewToolResultError("QUERY_ERROR: no such column: x"), nil
	}
}

type memoryCheckpoints struct {
	mu      sync.Mutex
	threads map[string][]models.ChatMessage
}

func newMemoryCheckpoints() *memoryCheckpoints {
	return &memoryCheckpoints{threads: map[string][]models.ChatMessage{}}
}

func (m *memoryCheckpoints) Append(ctx context.Context, threadID string, messages ...models.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threads[threadID] = append(m.threads[threadID], messages...)
	return nil
}

func (m *memoryCheckpoints) History(ctx context.Context, threadID string) ([]models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ChatMessage(nil), m.threads[threadID]...), nil
}

func (m *memoryCheckpoints) Clear(ctx context.Context, threadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.threads, threadID)
	return nil
}

func textChunk(s string) api.ChatResponse {
	return api.ChatResponse{Message: api.Message{Role: models.RoleAssistant, Content: s}}
}

func toolCallChunk(t *testing.T, name string, args map[string]interface{}) api.ChatResponse {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{
		"message": map[string]interface{}{
			"role": models.RoleAssistant,
			"tool_calls": []interface{}{
				map[string]interface{}{"function": map[string]interface{}{"name": name, "arguments": args}},
			},
		},
	})
	require.NoError(t, err)
	var resp api.ChatResponse
	require.NoError(t, json.Unmarshal(raw, &resp))
	return resp
}

func collect(tokens *[]string) func(string) error {
	return func(token string) error {
		*tokens = append(*tokens, token)
		return nil
	}
}

func TestStreamRelaysToolCalls(t *testing.T) {
	chat := &scriptedChat{turns: [][]api.ChatResponse{
		{toolCallChunk(t, "get_list_sheet_name", nil)},
		{toolCallChunk(t, "analyze_case_data", map[string]interface{}{"sheet_name": "Hình sự", "query": "SELECT x FROM self"})},
		{textChunk("Có "), textChunk("3 vụ án.")},
	}}
	tools := &fakeTools{}
	checkpoints := newMemoryCheckpoints()
	agent := NewAgent(chat, tools, checkpoints, config.AgentConfig{Model: "gpt-oss", RecursionLimit: 10}, nil)

	var tokens []string
	require.NoError(t, agent.Stream(context.Background(), "2", "Có bao nhiêu vụ án?", collect(&tokens)))

	assert.Equal(t, []string{"Có ", "3 vụ án."}, tokens)

	require.Len(t, tools.calls, 2)
	assert.Equal(t, "analyze_case_data", tools.calls[1].Params.Name)
	assert.Equal(t, map[string]interface{}{"sheet_name": "Hình sự", "query": "SELECT x FROM self"}, tools.calls[1].Params.Arguments)

	// tool errors are fed back to the model as text
	last := chat.requests[2].Messages
	assert.Equal(t, models.RoleTool, last[len(last)-1].Role)
	assert.Equal(t, "QUERY_ERROR: no such column: x", last[len(last)-1].Content)
	assert.Equal(t, "analyze_case_data", last[len(last)-1].ToolName)

	// tool results carry the tool's name on the following turn
	second := chat.requests[1].Messages
	assert.Equal(t, models.RoleTool, second[len(second)-1].Role)
	assert.Equal(t, "get_list_sheet_name", second[len(second)-1].ToolName)

	require.Len(t, chat.requests[0].Tools, 2)
	assert.Equal(t, "analyze_case_data", chat.requests[0].Tools[1].Function.Name)
	assert.Equal(t, "gpt-oss", chat.requests[0].Model)
	require.NotNil(t, chat.requests[0].Stream)
	assert.True(t, *chat.requests[0].Stream)

	history := checkpoints.threads["2"]
	var roles []string
	for _, msg := range history {
		roles = append(roles, msg.Role)
	}
	assert.Equal(t, []string{"user", "assistant", "tool", "assistant", "tool", "assistant"}, roles)
	assert.Equal(t, "Có 3 vụ án.", history[5].Content)
	assert.Equal(t, "get_list_sheet_name", history[2].ToolName)
	assert.Equal(t, 1, tools.lists)
}

func TestStreamReplaysThreadHistory(t *testing.T) {
	checkpoints := newMemoryCheckpoints()
	require.NoError(t, checkpoints.Append(context.Background(), "2",
		models.NewChatMessage(models.RoleUser, "xin chào"),
		models.NewChatMessage(models.RoleAssistant, "Chào bạn")))

	chat := &scriptedChat{turns: [][]api.ChatResponse{{textChunk("ok")}}}
	agent := NewAgent(chat, &fakeTools{}, checkpoints, config.AgentConfig{SystemPrompt: "be brief"}, nil)

	require.NoError(t, agent.Stream(context.Background(), "2", "tiếp", func(string) error { return nil }))

	msgs := chat.requests[0].Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, api.Message{Role: "system", Content: "be brief"}, msgs[0])
	assert.Equal(t, "Chào bạn", msgs[2].Content)
	assert.Equal(t, "tiếp", msgs[3].Content)
	assert.Len(t, checkpoints.threads["2"], 4)
}

func TestStreamStopsAtRecursionLimit(t *testing.T) {
	call := toolCallChunk(t, "get_list_sheet_name", nil)
	chat := &scriptedChat{turns: [][]api.ChatResponse{{call}, {call}, {call}}}
	checkpoints := newMemoryCheckpoints()
	agent := NewAgent(chat, &fakeTools{}, checkpoints, config.AgentConfig{RecursionLimit: 2}, nil)

	err := agent.Stream(context.Background(), "t", "loop", func(string) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recursion limit of 2")
	assert.Len(t, chat.requests, 2)
	assert.Len(t, checkpoints.threads["t"], 5)
}

func TestStreamModelFailure(t *testing.T) {
	chat := &scriptedChat{err: fmt.Errorf("connection refused")}
	checkpoints := newMemoryCheckpoints()
	agent := NewAgent(chat, &fakeTools{}, checkpoints, config.AgentConfig{}, nil)

	err := agent.Stream(context.Background(), "t", "hi", func(string) error { return nil })
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeExternalService))
	assert.Empty(t, checkpoints.threads["t"])
}

func TestStreamStopsWhenConsumerFails(t *testing.T) {
	chat := &scriptedChat{turns: [][]api.ChatResponse{{textChunk("a"), textChunk("b")}}}
	agent := NewAgent(chat, &fakeTools{}, newMemoryCheckpoints(), config.AgentConfig{}, nil)

	closed := fmt.Errorf("socket closed")
	err := agent.Stream(context.Background(), "t", "hi", func(string) error { return closed })
	assert.ErrorIs(t, err, closed)
}

func TestToolCallConversionKeepsArguments(t *testing.T) {
	calls, err := fromAPIToolCalls(toolCallChunk(t, "analyze_case_data", map[string]interface{}{"query": "SELECT 1"}).Message.ToolCalls)
	require.NoError(t, err)
	assert.Equal(t, models.ToolCallList{{Name: "analyze_case_data", Arguments: map[string]interface{}{"query": "SELECT 1"}}}, calls)

	msg := models.NewChatMessage(models.RoleAssistant, "")
	msg.ToolCalls = calls
	back, err := toAPIMessage(msg)
	require.NoError(t, err)
	require.Len(t, back.ToolCalls, 1)
	assert.Equal(t, "analyze_case_data", back.ToolCalls[0].Function.Name)
}

func TestToolResultKeepsToolName(t *testing.T) {
	msg := models.NewChatMessage(models.RoleTool, `{"0":"Hình sự"}`)
	msg.ToolName = "get_list_sheet_name"

	out, err := toAPIMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, models.RoleTool, out.Role)
	assert.Equal(t, "get_list_sheet_name", out.ToolName)
}

func TestUndecodableToolCallsAreLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	checkpoints := newMemoryCheckpoints()

	broken := models.NewChatMessage(models.RoleAssistant, "")
	broken.ToolCalls = models.ToolCallList{{Name: "analyze_case_data", Arguments: map[string]interface{}{"query": make(chan int)}}}
	require.NoError(t, checkpoints.Append(context.Background(), "t", models.NewChatMessage(models.RoleUser, "hi"), broken))

	chat := &scriptedChat{turns: [][]api.ChatResponse{{textChunk("ok")}}}
	agent := NewAgent(chat, &fakeTools{}, checkpoints, config.AgentConfig{}, zap.New(core))

	require.NoError(t, agent.Stream(context.Background(), "t", "again", func(string) error { return nil }))

	msgs := chat.requests[0].Messages
	require.Len(t, msgs, 4)
	assert.Empty(t, msgs[2].ToolCalls)

	entries := logs.FilterMessage("dropping undecodable tool calls").All()
	require.Len(t, entries, 1)
	assert.Equal(t, broken.ID.String(), entries[0].ContextMap()["message_id"])
}
