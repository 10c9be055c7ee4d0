package container

import (
	"context"
	"fmt"

	"casedesk/adapters/csvsource"
	"casedesk/adapters/excel"
	"casedesk/adapters/llm"
	"casedesk/adapters/sqlengine"
	"casedesk/adapters/store"
	"casedesk/app"
	"casedesk/internal/config"

	"github.com/mark3labs/mcp-go/client"
	"go.uber.org/zap"
)

// Container holds the application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	// Data access
	Service *app.Service

	// Conversation state
	Checkpoints *store.CheckpointStore

	tools *client.Client
}

// New creates a container and builds the data service from the configured sources
func New(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Container{
		Config: cfg,
		Logger: logger,
	}
	c.initService()
	return c, nil
}

// initService wires the workbook, the email CSV and the query engine
func (c *Container) initService() {
	workbook := excel.NewWorkbookReader(c.Config.Data.WorkbookFile, c.Logger)
	cases := app.NewCaseLoader(workbook, c.Config.Data.AnchorToken, nil, c.Logger)
	email := csvsource.NewReader(c.Config.Data.EmailFile, "mail", c.Logger)
	engine := sqlengine.NewEngine(c.Logger)

	c.Service = app.NewService(cases, email, engine, c.Logger)
	c.Logger.Info("data service initialized",
		zap.String("workbook", c.Config.Data.WorkbookFile),
		zap.String("email", c.Config.Data.EmailFile))
}

// OpenCheckpoints opens the conversation history store
func (c *Container) OpenCheckpoints(ctx context.Context) (*store.CheckpointStore, error) {
	if c.Checkpoints != nil {
		return c.Checkpoints, nil
	}
	checkpoints, err := store.Open(ctx, c.Config.Checkpoint, c.Logger)
	if err != nil {
		return nil, err
	}
	c.Checkpoints = checkpoints
	return checkpoints, nil
}

// BuildAgent connects to the tool server and the model runtime and returns a
// ready agent. The checkpoint store must already be open.
func (c *Container) BuildAgent(ctx context.Context) (*llm.Agent, error) {
	if c.Checkpoints == nil {
		return nil, fmt.Errorf("checkpoint store not opened")
	}

	chat, err := llm.NewOllamaClient(c.Config.Agent)
	if err != nil {
		return nil, err
	}
	tools, err := llm.ConnectTools(ctx, c.Config.Agent, c.Config.Tools.Version)
	if err != nil {
		return nil, err
	}
	c.tools = tools

	c.Logger.Info("agent connected",
		zap.String("model", c.Config.Agent.Model),
		zap.String("tools", c.Config.Agent.MCPURL))
	return llm.NewAgent(chat, tools, c.Checkpoints, c.Config.Agent, c.Logger), nil
}

// Shutdown releases the tool session and the checkpoint store
func (c *Container) Shutdown(ctx context.Context) error {
	if c.tools != nil {
		if err := c.tools.Close(); err != nil {
			c.Logger.Warn("tool session close failed", zap.Error(err))
		}
	}
	if c.Checkpoints != nil {
		return c.Checkpoints.Close()
	}
	return nil
}
