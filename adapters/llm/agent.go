package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"casedesk/internal/config"
	"casedesk/internal/errors"
	"casedesk/models"
	"casedesk/ports"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

// DefaultSystemPrompt steers the model through the data tools
const DefaultSystemPrompt = `You answer questions about court case registers and an email export.
List the sheets before querying case data and pick the sheet that matches the request.
Look at the data with SELECT * FROM self before writing a narrower query.
Answer in the user's language and show only the final result.`

// ChatClient is the part of the model runtime client the agent uses
type ChatClient interface {
	Chat(ctx context.Context, req *api.ChatRequest, fn api.ChatResponseFunc) error
}

// ToolCaller is the part of a tool protocol client the agent uses
type ToolCaller interface {
	ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// Agent relays a conversation between the model and the tool server. Each model
// turn is streamed to the caller; requested tool calls are executed and fed back
// until the model answers without calling tools.
type Agent struct {
	chat           ChatClient
	tools          ToolCaller
	checkpoints    ports.CheckpointRepository
	model          string
	systemPrompt   string
	recursionLimit int
	logger         *zap.Logger

	mu       sync.Mutex
	toolDefs api.Tools
}

// NewAgent creates an agent for the configured model
func NewAgent(chat ChatClient, tools ToolCaller, checkpoints ports.CheckpointRepository, cfg config.AgentConfig, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	prompt := cfg.SystemPrompt
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultSystemPrompt
	}
	limit := cfg.RecursionLimit
	if limit <= 0 {
		limit = 100
	}
	return &Agent{
		chat:           chat,
		tools:          tools,
		checkpoints:    checkpoints,
		model:          cfg.Model,
		systemPrompt:   prompt,
		recursionLimit: limit,
		logger:         logger.Named("agent"),
	}
}

// Stream answers input on the given thread. The thread's history is loaded from
// the checkpoint store and the new turns are appended once the answer is complete.
func (a *Agent) Stream(ctx context.Context, threadID, input string, onToken ports.TokenFunc) error {
	startTime := time.Now()

	defs, err := a.toolDefinitions(ctx)
	if err != nil {
		return err
	}

	past, err := a.checkpoints.History(ctx, threadID)
	if err != nil {
		return err
	}

	pending := []models.ChatMessage{models.NewChatMessage(models.RoleUser, input)}
	messages := make([]api.Message, 0, len(past)+2)
	messages = append(messages, api.Message{Role: models.RoleSystem, Content: a.systemPrompt})
	for _, msg := range past {
		messages = append(messages, a.apiMessage(msg))
	}
	messages = append(messages, a.apiMessage(pending[0]))

	for step := 0; step < a.recursionLimit; step++ {
		reply, err := a.turn(ctx, messages, defs, onToken)
		if err != nil {
			return err
		}
		pending = append(pending, reply)
		messages = append(messages, a.apiMessage(reply))

		if len(reply.ToolCalls) == 0 {
			a.logger.Debug("answer complete",
				zap.String("thread_id", threadID),
				zap.Int("steps", step+1),
				zap.Duration("elapsed", time.Since(startTime)))
			return a.checkpoints.Append(ctx, threadID, pending...)
		}

		for _, call := range reply.ToolCalls {
			result := models.NewChatMessage(models.RoleTool, a.callTool(ctx, call))
			result.ToolName = call.Name
			pending = append(pending, result)
			messages = append(messages, a.apiMessage(result))
		}
	}

	if err := a.checkpoints.Append(ctx, threadID, pending...); err != nil {
		a.logger.Warn("failed to store unfinished thread", zap.String("thread_id", threadID), zap.Error(err))
	}
	return errors.Newf(errors.CodeInternalError, "recursion limit of %d reached without a final answer", a.recursionLimit)
}

// turn runs one streamed model call and collects the assistant message
func (a *Agent) turn(ctx context.Context, messages []api.Message, defs api.Tools, onToken ports.TokenFunc) (models.ChatMessage, error) {
	stream := true
	req := &api.ChatRequest{
		Model:    a.model,
		Messages: messages,
		Stream:   &stream,
		Tools:    defs,
	}

	var content strings.Builder
	var calls []api.ToolCall
	var callbackErr error
	err := a.chat.Chat(ctx, req, func(resp api.ChatResponse) error {
		if token := resp.Message.Content; token != "" {
			content.WriteString(token)
			if err := onToken(token); err != nil {
				callbackErr = err
				return err
			}
		}
		calls = append(calls, resp.Message.ToolCalls...)
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.ChatMessage{}, ctxErr
		}
		if callbackErr != nil {
			return models.ChatMessage{}, callbackErr
		}
		return models.ChatMessage{}, errors.ExternalServiceError("ollama", err)
	}

	reply := models.NewChatMessage(models.RoleAssistant, content.String())
	reply.ToolCalls, err = fromAPIToolCalls(calls)
	if err != nil {
		return models.ChatMessage{}, errors.Wrap(err, "failed to decode tool calls")
	}
	return reply, nil
}

// callTool runs one tool call. Failures are reported back to the model as text.
func (a *Agent) callTool(ctx context.Context, call models.ToolCall) string {
	req := mcp.CallToolRequest{}
	req.Params.Name = call.Name
	req.Params.Arguments = call.Arguments

	res, err := a.tools.CallTool(ctx, req)
	if err != nil {
		a.logger.Warn("tool call failed", zap.String("tool", call.Name), zap.Error(err))
		return fmt.Sprintf("error calling %s: %v", call.Name, err)
	}

	var parts []string
	for _, c := range res.Content {
		if text, ok := mcp.AsTextContent(c); ok {
			parts = append(parts, text.Text)
		}
	}
	a.logger.Debug("tool called",
		zap.String("tool", call.Name),
		zap.Bool("is_error", res.IsError))
	return strings.Join(parts, "\n")
}

// toolDefinitions lists the server's tools once and caches them
func (a *Agent) toolDefinitions(ctx context.Context) (api.Tools, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.toolDefs != nil {
		return a.toolDefs, nil
	}

	listed, err := a.tools.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, errors.ExternalServiceError("tool server", err)
	}
	defs, err := toAPITools(listed.Tools)
	if err != nil {
		return nil, errors.Wrap(err, "failed to convert tool definitions")
	}
	a.toolDefs = defs
	return defs, nil
}

// toAPITools converts tool protocol definitions into model function definitions.
// Both sides speak JSON schema, so the conversion goes through JSON.
func toAPITools(tools []mcp.Tool) (api.Tools, error) {
	type function struct {
		Name        string              `json:"name"`
		Description string              `json:"description"`
		Parameters  mcp.ToolInputSchema `json:"parameters"`
	}
	type tool struct {
		Type     string   `json:"type"`
		Function function `json:"function"`
	}

	wire := make([]tool, len(tools))
	for i, t := range tools {
		wire[i] = tool{
			Type:     "function",
			Function: function{Name: t.Name, Description: t.Description, Parameters: t.InputSchema},
		}
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return nil, err
	}
	var defs api.Tools
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, err
	}
	return defs, nil
}

type wireToolCall struct {
	Function struct {
		Name      string                 `json:"name"`
		Arguments map[string]interface{} `json:"arguments"`
	} `json:"function"`
}

func fromAPIToolCalls(calls []api.ToolCall) (models.ToolCallList, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(calls)
	if err != nil {
		return nil, err
	}
	var wire []wireToolCall
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, err
	}

	out := make(models.ToolCallList, len(wire))
	for i, w := range wire {
		args := w.Function.Arguments
		if args == nil {
			args = map[string]interface{}{}
		}
		out[i] = models.ToolCall{Name: w.Function.Name, Arguments: args}
	}
	return out, nil
}

// apiMessage converts msg for the model. Tool calls that cannot be encoded are
// dropped from the message and logged.
func (a *Agent) apiMessage(msg models.ChatMessage) api.Message {
	out, err := toAPIMessage(msg)
	if err != nil {
		a.logger.Warn("dropping undecodable tool calls",
			zap.String("message_id", msg.ID.String()),
			zap.Int("tool_calls", len(msg.ToolCalls)),
			zap.Error(err))
	}
	return out
}

func toAPIMessage(msg models.ChatMessage) (api.Message, error) {
	out := api.Message{Role: msg.Role, Content: msg.Content, ToolName: msg.ToolName}
	if len(msg.ToolCalls) == 0 {
		return out, nil
	}

	wire := make([]wireToolCall, len(msg.ToolCalls))
	for i, call := range msg.ToolCalls {
		wire[i].Function.Name = call.Name
		wire[i].Function.Arguments = call.Arguments
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return out, err
	}
	var calls []api.ToolCall
	if err := json.Unmarshal(data, &calls); err != nil {
		return out, err
	}
	out.ToolCalls = calls
	return out, nil
}
