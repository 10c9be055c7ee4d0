package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"casedesk/adapters/sqlengine"
	"casedesk/app"
	"casedesk/internal/errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// Tool names exposed to agents
const (
	ToolListSheets      = "get_list_sheet_name"
	ToolCaseSchema      = "get_schema_case_data"
	ToolAnalyzeCases    = "analyze_case_data"
	ToolAnalyzeEmail    = "analyze_email_data"
	ToolEmailSchema     = "get_schema_email_data"
	ToolCurrentTime     = "get_current_time"
	ToolCurrentTimeInTZ = "get_current_time_with_timezone"
)

// DefaultEndpointPath is where the streamable HTTP transport is mounted
const DefaultEndpointPath = "/mcp"

const sheetArgDescription = "Name of the sheet to read. A position from get_list_sheet_name is accepted too."

const queryUsageGuidelines = `Usage guidelines:
1. Only show the final result to the user.
2. ALWAYS run "SELECT * FROM self" first to understand the structure.
3. Study the schema and the sample rows.
4. Then write the query for the request. When an exact match returns nothing, try LIKE.
5. Check that the result is plausible.`

// QueryDescription documents the query argument: the table alias and the functions available
func QueryDescription() string {
	var b strings.Builder
	b.WriteString("The SQL query to execute (SELECT only).\n")
	fmt.Fprintf(&b, "The query must use the table name `%s` to refer to the source data.\n", sqlengine.TableAlias)
	b.WriteString("Supported functions are:\n")
	b.WriteString(sqlengine.FunctionsDoc())
	return b.String()
}

// Server exposes the case and email data as MCP tools
type Server struct {
	service *app.Service
	mcp     *server.MCPServer
	logger  *zap.Logger
}

// NewServer creates the tool server and registers every tool
func NewServer(name, version string, service *app.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		service: service,
		mcp:     server.NewMCPServer(name, version, server.WithToolCapabilities(false), server.WithRecovery()),
		logger:  logger.Named("mcp"),
	}
	s.registerTools()
	return s
}

// Handler serves the tools over streamable HTTP
func (s *Server) Handler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcp, server.WithEndpointPath(DefaultEndpointPath))
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool(ToolListSheets,
		mcp.WithDescription("List the sheet names of the case workbook, keyed by position. Call this first to pick the sheet the user is asking about."),
	), s.handleListSheets)

	s.mcp.AddTool(mcp.NewTool(ToolCaseSchema,
		mcp.WithDescription("Get the column names and data types of the case table built from a sheet."),
		mcp.WithString("sheet_name", mcp.Required(), mcp.Description(sheetArgDescription)),
	), s.handleCaseSchema)

	s.mcp.AddTool(mcp.NewTool(ToolAnalyzeCases,
		mcp.WithDescription("Query the cases of one sheet with SQL. Every row of a sheet is the same kind of case, "+
			"so list the sheets first and choose the one matching the request.\n"+queryUsageGuidelines),
		mcp.WithString("sheet_name", mcp.Required(), mcp.Description(sheetArgDescription)),
		mcp.WithString("query", mcp.Required(), mcp.Description(QueryDescription())),
	), s.handleAnalyzeCases)

	s.mcp.AddTool(mcp.NewTool(ToolAnalyzeEmail,
		mcp.WithDescription("Query the email export with SQL. Run "+ToolEmailSchema+" before writing the query.\n"+queryUsageGuidelines),
		mcp.WithString("query", mcp.Required(), mcp.Description(QueryDescription())),
	), s.handleAnalyzeEmail)

	s.mcp.AddTool(mcp.NewTool(ToolEmailSchema,
		mcp.WithDescription("Get the column names and data types of the email table."),
	), s.handleEmailSchema)

	s.mcp.AddTool(mcp.NewTool(ToolCurrentTime,
		mcp.WithDescription("Get the current system time as YYYY-MM-DD HH:MM:SS."),
	), s.handleCurrentTime)

	s.mcp.AddTool(mcp.NewTool(ToolCurrentTimeInTZ,
		mcp.WithDescription("Get the current time in a named timezone."),
		mcp.WithString("timezone",
			mcp.DefaultString(app.DefaultTimezone),
			mcp.Description("IANA timezone name, e.g. 'Asia/Ho_Chi_Minh', 'UTC', 'US/Eastern'")),
	), s.handleCurrentTimeInTZ)
}

func (s *Server) handleListSheets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sheets, err := s.service.ListSheets(ctx)
	if err != nil {
		return s.toolError(req, err), nil
	}
	return jsonResult(sheets)
}

func (s *Server) handleCaseSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sheet, err := req.RequireString("sheet_name")
	if err != nil {
		return s.toolError(req, errors.InvalidInput(err.Error())), nil
	}
	schema, err := s.service.GetSchema(ctx, sheet)
	if err != nil {
		return s.toolError(req, err), nil
	}
	return jsonResult(schema)
}

func (s *Server) handleAnalyzeCases(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sheet, err := req.RequireString("sheet_name")
	if err != nil {
		return s.toolError(req, errors.InvalidInput(err.Error())), nil
	}
	query, err := req.RequireString("query")
	if err != nil {
		return s.toolError(req, errors.InvalidInput(err.Error())), nil
	}
	rows, err := s.service.QueryCaseData(ctx, sheet, query)
	if err != nil {
		return s.toolError(req, err), nil
	}
	return jsonResult(rows)
}

func (s *Server) handleAnalyzeEmail(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return s.toolError(req, errors.InvalidInput(err.Error())), nil
	}
	rows, err := s.service.QueryEmailData(ctx, query)
	if err != nil {
		return s.toolError(req, err), nil
	}
	return jsonResult(rows)
}

func (s *Server) handleEmailSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	schema, err := s.service.GetEmailSchema(ctx)
	if err != nil {
		return s.toolError(req, err), nil
	}
	return jsonResult(schema)
}

func (s *Server) handleCurrentTime(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.service.CurrentTime()), nil
}

func (s *Server) handleCurrentTimeInTZ(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tz := req.GetString("timezone", app.DefaultTimezone)
	return mcp.NewToolResultText(s.service.CurrentTimeIn(tz)), nil
}

// toolError reports err to the agent as a tool failure it can react to
func (s *Server) toolError(req mcp.CallToolRequest, err error) *mcp.CallToolResult {
	code := errors.GetCode(err)
	fields := []zap.Field{
		zap.String("tool", req.Params.Name),
		zap.String("code", code),
		zap.Error(err),
	}
	// uncoded failures are bugs or environment problems, not bad queries
	if !errors.IsAppError(err) {
		s.logger.Error("tool call failed", fields...)
	} else {
		s.logger.Info("tool call failed", fields...)
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s: %s", code, err.Error()))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode tool result")
	}
	return mcp.NewToolResultText(string(data)), nil
}
