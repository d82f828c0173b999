package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"office-tools-server/internal/errors"
	"office-tools-server/internal/models"
	"office-tools-server/internal/observability"
	"office-tools-server/internal/service"
)

// ProtocolVersion is the MCP revision the server speaks.
const ProtocolVersion = "2024-11-05"

// ServerName identifies the server in the initialize response.
const ServerName = "office-tools-server"

// MCPProcessor handles MCP requests.
type MCPProcessor struct {
	tools     []tool
	byName    map[string]tool
	logger    zerolog.Logger
	metrics   *observability.Metrics
	version   string
	maxSizeMB int
}

// Options configure an MCPProcessor.
type Options struct {
	Version       string
	MaxFileSizeMB int
	Logger        zerolog.Logger
	Metrics       *observability.Metrics
}

// NewMCPProcessor creates a new MCPProcessor serving the tools of svc.
func NewMCPProcessor(svc service.OfficeService, opts Options) *MCPProcessor {
	if opts.Version == "" {
		opts.Version = "dev"
	}
	p := &MCPProcessor{
		tools:     buildTools(svc),
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		version:   opts.Version,
		maxSizeMB: opts.MaxFileSizeMB,
	}
	p.byName = make(map[string]tool, len(p.tools))
	for _, t := range p.tools {
		p.byName[t.def.Name] = t
	}
	return p
}

// ToolNames lists the registered tools in registration order.
func (p *MCPProcessor) ToolNames() []string {
	names := make([]string, 0, len(p.tools))
	for _, t := range p.tools {
		names = append(names, t.def.Name)
	}
	return names
}

// ProcessRequest handles one JSON-RPC request and returns its result or a
// JSON-RPC error. Notifications are processed like any other request; the
// caller decides not to answer them.
func (p *MCPProcessor) ProcessRequest(ctx context.Context, req models.JSONRPCRequest) (interface{}, *models.JSONRPCError) {
	switch {
	case req.Method == "initialize":
		return p.initialize(req.Params), nil
	case req.Method == "ping":
		return struct{}{}, nil
	case req.Method == "tools/list":
		return p.listTools(), nil
	case req.Method == "tools/call":
		var params models.ToolCallParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, errors.ToJSONRPCError(errors.NewInvalidParamsError("Invalid parameters for tools/call: "+err.Error(), nil))
		}
		result, rpcErr := p.callTool(ctx, params)
		if rpcErr != nil {
			return nil, rpcErr
		}
		return result, nil
	case strings.HasPrefix(req.Method, "notifications/"):
		p.logger.Debug().Str("method", req.Method).Msg("notification received")
		return nil, nil
	default:
		return nil, errors.ToJSONRPCError(errors.NewMethodNotFoundError(req.Method))
	}
}

func (p *MCPProcessor) initialize(raw json.RawMessage) models.InitializeResponse {
	var params models.InitializeParams
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			p.logger.Warn().Err(err).Msg("ignoring malformed initialize params")
		}
	}
	p.logger.Info().
		Str("client", params.ClientInfo.Name).
		Str("client_version", params.ClientInfo.Version).
		Str("protocol_version", params.ProtocolVersion).
		Msg("client initialized")

	return models.InitializeResponse{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    models.Capabilities{Tools: models.ToolsCapabilities{}},
		ServerInfo: models.ServerInfo{
			Name:        ServerName,
			Version:     p.version,
			Description: "Office automation tools: documents, files, email and time",
		},
	}
}

func (p *MCPProcessor) listTools() models.ToolsListResponse {
	defs := make([]models.ToolDefinition, 0, len(p.tools))
	for _, t := range p.tools {
		defs = append(defs, t.def)
	}
	return models.ToolsListResponse{Tools: defs}
}

func (p *MCPProcessor) callTool(ctx context.Context, params models.ToolCallParams) (*models.MCPToolResult, *models.JSONRPCError) {
	t, ok := p.byName[params.Name]
	if !ok {
		return nil, errors.ToJSONRPCError(errors.NewInvalidParamsError(
			fmt.Sprintf("Unknown tool '%s'", params.Name),
			map[string]string{"name": "available tools: " + strings.Join(p.ToolNames(), ", ")},
		))
	}

	callID := uuid.NewString()
	logger := p.logger.With().Str("call_id", callID).Str("tool", params.Name).Logger()
	logger.Debug().RawJSON("arguments", rawOrEmpty(params.Arguments)).Msg("tool call started")

	start := time.Now()
	res, err := t.handle(ctx, params.Arguments)
	duration := time.Since(start)
	if err != nil {
		logger.Warn().Err(err).Msg("tool call rejected")
		return nil, errors.ToJSONRPCError(errors.NewInvalidParamsError(
			fmt.Sprintf("Invalid arguments for %s: %v", params.Name, err), nil))
	}
	p.metrics.RecordToolCall(params.Name, res.Outcome.Success, duration)

	event := logger.Info()
	if !res.Outcome.Success {
		event = logger.Warn()
	}
	event.
		Bool("success", res.Outcome.Success).
		Str("path", res.Path).
		Dur("duration", duration).
		Str("message", truncate(res.Outcome.Message, 200)).
		Msg("tool call finished")

	return p.toolResult(params.Name, res), nil
}

// toolResult renders a service Result: the Outcome message is the text
// content, the payload (or the Outcome) the structured content, and a
// failure's classified error goes into _meta.
func (p *MCPProcessor) toolResult(name string, res service.Result) *models.MCPToolResult {
	out := models.TextResult(res.Outcome.Message, !res.Outcome.Success)
	if res.Payload != nil {
		out.StructuredContent = res.Payload
	} else {
		out.StructuredContent = res.Outcome
	}
	if detail := errors.FromToolError(res.Path, name, p.maxSizeMB, res.Err); detail != nil {
		out.Meta = map[string]interface{}{
			"code":    detail.Code,
			"message": detail.Message,
			"data":    detail.Data,
		}
	}
	return out
}

func rawOrEmpty(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return []byte("{}")
	}
	return raw
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
