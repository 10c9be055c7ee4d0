package llm

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"casedesk/internal/config"
	"casedesk/internal/errors"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/ollama/ollama/api"
)

const clientName = "casedesk-agent"

// NewOllamaClient creates a model runtime client based on config
func NewOllamaClient(cfg config.AgentConfig) (*api.Client, error) {
	base := strings.TrimSpace(cfg.OllamaURL)
	if base == "" {
		return api.ClientFromEnvironment()
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, errors.ConfigInvalid("invalid OLLAMA_URL: " + err.Error())
	}
	return api.NewClient(u, http.DefaultClient), nil
}

// ConnectTools opens an initialized session with the tool server over streamable HTTP
func ConnectTools(ctx context.Context, cfg config.AgentConfig, version string) (*client.Client, error) {
	c, err := client.NewStreamableHttpClient(cfg.MCPURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create tool client")
	}
	if err := c.Start(ctx); err != nil {
		c.Close()
		return nil, errors.ExternalServiceError("tool server", err)
	}

	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{Name: clientName, Version: version}
	if _, err := c.Initialize(ctx, req); err != nil {
		c.Close()
		return nil, errors.ExternalServiceError("tool server", err)
	}
	return c, nil
}
