package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"office-tools-server/internal/editor"
	"office-tools-server/internal/errors"
	"office-tools-server/internal/models"
	"office-tools-server/internal/observability"
	"office-tools-server/internal/service"
)

// MockOfficeService is a mock implementation of service.OfficeService.
type MockOfficeService struct {
	WordInsertFunc func(req models.WordInsertRequest) service.Result
	WordEditFunc   func(req models.WordEditRequest) service.Result
	WordReadFunc   func(req models.WordReadRequest) service.Result
	SendEmailFunc  func(req models.SendEmailRequest) service.Result
}

func ok(msg string) service.Result {
	return service.Result{Outcome: models.Outcome{Success: true, Message: msg}}
}

func (m *MockOfficeService) WordInsert(_ context.Context, req models.WordInsertRequest) service.Result {
	if m.WordInsertFunc != nil {
		return m.WordInsertFunc(req)
	}
	return ok("inserted")
}

func (m *MockOfficeService) WordEdit(_ context.Context, req models.WordEditRequest) service.Result {
	if m.WordEditFunc != nil {
		return m.WordEditFunc(req)
	}
	return ok("edited")
}

func (m *MockOfficeService) WordCreate(context.Context, models.WordCreateRequest) service.Result {
	return ok("created")
}

func (m *MockOfficeService) WordRead(_ context.Context, req models.WordReadRequest) service.Result {
	if m.WordReadFunc != nil {
		return m.WordReadFunc(req)
	}
	return ok("")
}

func (m *MockOfficeService) FileOpen(context.Context, models.FileOpenRequest) service.Result {
	return ok("opened")
}

func (m *MockOfficeService) SendEmail(_ context.Context, req models.SendEmailRequest) service.Result {
	if m.SendEmailFunc != nil {
		return m.SendEmailFunc(req)
	}
	return ok("sent")
}

func (m *MockOfficeService) CurrentDatetime(context.Context) service.Result {
	return service.Result{
		Outcome: models.Outcome{Success: true, Message: "2024-01-02T03:04:05.000000"},
		Payload: models.DatetimeResponse{Datetime: "2024-01-02T03:04:05.000000"},
	}
}

func newProcessor(svc service.OfficeService, metrics *observability.Metrics) *MCPProcessor {
	return NewMCPProcessor(svc, Options{Version: "1.2.3", MaxFileSizeMB: 10, Logger: zerolog.Nop(), Metrics: metrics})
}

// toolCallCount reads office_tools_tool_calls_total{tool,outcome}.
func toolCallCount(t *testing.T, m *observability.Metrics, tool, outcome string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != "office_tools_tool_calls_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			labels := map[string]string{}
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			if labels["tool"] == tool && labels["outcome"] == outcome {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func call(t *testing.T, p *MCPProcessor, name string, args interface{}) *models.MCPToolResult {
	t.Helper()
	rawArgs, err := json.Marshal(args)
	require.NoError(t, err)
	params, err := json.Marshal(models.ToolCallParams{Name: name, Arguments: rawArgs})
	require.NoError(t, err)

	result, rpcErr := p.ProcessRequest(context.Background(), models.JSONRPCRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: params})
	require.Nil(t, rpcErr)
	toolResult, isResult := result.(*models.MCPToolResult)
	require.True(t, isResult, "unexpected result type %T", result)
	return toolResult
}

func TestMCPProcessor_Initialize(t *testing.T) {
	p := newProcessor(&MockOfficeService{}, nil)
	params := json.RawMessage(`{"protocolVersion":"2024-11-05","clientInfo":{"name":"agent","version":"0.1"}}`)

	result, rpcErr := p.ProcessRequest(context.Background(), models.JSONRPCRequest{JSONRPC: "2.0", ID: "1", Method: "initialize", Params: params})
	require.Nil(t, rpcErr)

	initResp, isInit := result.(models.InitializeResponse)
	require.True(t, isInit)
	assert.Equal(t, ProtocolVersion, initResp.ProtocolVersion)
	assert.Equal(t, ServerName, initResp.ServerInfo.Name)
	assert.Equal(t, "1.2.3", initResp.ServerInfo.Version)

	raw, err := json.Marshal(initResp)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"capabilities":{"tools":{"listChanged":false}}`)
}

func TestMCPProcessor_Ping(t *testing.T) {
	p := newProcessor(&MockOfficeService{}, nil)
	result, rpcErr := p.ProcessRequest(context.Background(), models.JSONRPCRequest{JSONRPC: "2.0", ID: 7, Method: "ping"})
	require.Nil(t, rpcErr)
	raw, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(raw))
}

func TestMCPProcessor_Notification(t *testing.T) {
	p := newProcessor(&MockOfficeService{}, nil)
	result, rpcErr := p.ProcessRequest(context.Background(), models.JSONRPCRequest{JSONRPC: "2.0", Method: "notifications/initialized"})
	assert.Nil(t, rpcErr)
	assert.Nil(t, result)
}

func TestMCPProcessor_MethodNotFound(t *testing.T) {
	p := newProcessor(&MockOfficeService{}, nil)
	_, rpcErr := p.ProcessRequest(context.Background(), models.JSONRPCRequest{JSONRPC: "2.0", ID: 1, Method: "resources/list"})
	require.NotNil(t, rpcErr)
	assert.Equal(t, errors.CodeMethodNotFound, rpcErr.Code)
}

func TestMCPProcessor_ToolsList(t *testing.T) {
	p := newProcessor(&MockOfficeService{}, nil)
	result, rpcErr := p.ProcessRequest(context.Background(), models.JSONRPCRequest{JSONRPC: "2.0", ID: 2, Method: "tools/list"})
	require.Nil(t, rpcErr)
	listResp, isList := result.(models.ToolsListResponse)
	require.True(t, isList)

	expectedRequired := map[string][]string{
		ToolWordInsert:      {"file_path", "text", "insert_flag"},
		ToolWordEdit:        {"file_path", "text", "target"},
		ToolWordCreate:      {"file_path"},
		ToolWordRead:        {"file_path"},
		ToolFileOpen:        {"file_path"},
		ToolSendEmail:       {"to", "sub", "message"},
		ToolCurrentDatetime: nil,
	}
	require.Len(t, listResp.Tools, len(expectedRequired))
	for _, tool := range listResp.Tools {
		want, known := expectedRequired[tool.Name]
		require.True(t, known, "unexpected tool %s", tool.Name)
		require.NotNil(t, tool.InputSchema, tool.Name)
		assert.Equal(t, "object", tool.InputSchema.Type, tool.Name)
		assert.ElementsMatch(t, want, tool.InputSchema.Required, tool.Name)
		assert.NotEmpty(t, tool.Description, tool.Name)
		assert.NotEmpty(t, tool.Annotations.Title, tool.Name)
	}

	raw, err := json.Marshal(listResp)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"$ref"`)
}

func TestMCPProcessor_ToolAnnotations(t *testing.T) {
	p := newProcessor(&MockOfficeService{}, nil)
	defs := map[string]models.ToolDefinition{}
	for _, tl := range p.tools {
		defs[tl.def.Name] = tl.def
	}
	assert.True(t, defs[ToolWordRead].Annotations.ReadOnlyHint)
	assert.True(t, defs[ToolWordInsert].Annotations.DestructiveHint)
	assert.True(t, defs[ToolSendEmail].Annotations.OpenWorldHint)
	assert.False(t, defs[ToolWordCreate].Annotations.DestructiveHint)
}

func TestMCPProcessor_CallSuccess(t *testing.T) {
	var got models.WordInsertRequest
	svc := &MockOfficeService{WordInsertFunc: func(req models.WordInsertRequest) service.Result {
		got = req
		return ok(editor.MsgInsertDone)
	}}
	metrics := observability.NewMetrics()
	p := newProcessor(svc, metrics)

	flag := models.InsertAtEnd
	res := call(t, p, ToolWordInsert, models.WordInsertRequest{FilePath: "/tmp/a.docx", Text: "hi", InsertFlag: &flag})

	assert.False(t, res.IsError)
	require.Len(t, res.Content, 1)
	assert.Equal(t, "text", res.Content[0].Type)
	assert.Equal(t, editor.MsgInsertDone, res.Content[0].Text)
	assert.Equal(t, models.Outcome{Success: true, Message: editor.MsgInsertDone}, res.StructuredContent)
	assert.Nil(t, res.Meta)
	assert.Equal(t, "/tmp/a.docx", got.FilePath)
	require.NotNil(t, got.InsertFlag)
	assert.Equal(t, models.InsertAtEnd, *got.InsertFlag)

	assert.Equal(t, float64(1), toolCallCount(t, metrics, ToolWordInsert, "success"))
}

func TestMCPProcessor_CallFailureCarriesCode(t *testing.T) {
	svc := &MockOfficeService{WordEditFunc: func(req models.WordEditRequest) service.Result {
		err := editor.NotFound("replace", 5, "world")
		return service.Result{
			Outcome: models.Outcome{Success: false, Message: "not found: " + err.Error()},
			Path:    req.FilePath,
			Err:     err,
		}
	}}
	metrics := observability.NewMetrics()
	p := newProcessor(svc, metrics)

	res := call(t, p, ToolWordEdit, models.WordEditRequest{FilePath: "/tmp/a.txt", Text: "there", Target: &models.EditTarget{LineNum: 5, TarText: "world"}})
	assert.True(t, res.IsError)
	assert.Equal(t, `not found: no match for "world" on line 5`, res.Content[0].Text)
	require.NotNil(t, res.Meta)
	assert.Equal(t, errors.CodeTargetNotFound, res.Meta["code"])
	assert.Equal(t, float64(1), toolCallCount(t, metrics, ToolWordEdit, "failure"))
}

func TestMCPProcessor_PayloadIsStructuredContent(t *testing.T) {
	p := newProcessor(&MockOfficeService{}, nil)
	res := call(t, p, ToolCurrentDatetime, map[string]interface{}{})
	assert.False(t, res.IsError)
	assert.Equal(t, "2024-01-02T03:04:05.000000", res.Content[0].Text)
	assert.Equal(t, models.DatetimeResponse{Datetime: "2024-01-02T03:04:05.000000"}, res.StructuredContent)

	raw, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"structuredContent":{"datetime":"2024-01-02T03:04:05.000000"}`)
	assert.NotContains(t, string(raw), `"_meta"`)
}

func TestMCPProcessor_MissingArgumentsDecodeToZeroRequest(t *testing.T) {
	called := false
	svc := &MockOfficeService{SendEmailFunc: func(req models.SendEmailRequest) service.Result {
		called = true
		assert.Empty(t, req.To)
		return ok("validated")
	}}
	p := newProcessor(svc, nil)
	params := json.RawMessage(`{"name":"send_email"}`)
	_, rpcErr := p.ProcessRequest(context.Background(), models.JSONRPCRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: params})
	assert.Nil(t, rpcErr)
	assert.True(t, called)
}

func TestMCPProcessor_CallErrors(t *testing.T) {
	p := newProcessor(&MockOfficeService{}, nil)
	tests := []struct {
		name   string
		params string
	}{
		{"params not an object", `[1,2]`},
		{"unknown tool", `{"name":"delete_everything","arguments":{}}`},
		{"arguments of the wrong type", `{"name":"word_read","arguments":{"file_path":42}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, rpcErr := p.ProcessRequest(context.Background(), models.JSONRPCRequest{
				JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: json.RawMessage(tt.params),
			})
			require.NotNil(t, rpcErr)
			assert.Equal(t, errors.CodeInvalidParams, rpcErr.Code)
		})
	}
}

func TestMCPProcessor_ToolNames(t *testing.T) {
	p := newProcessor(&MockOfficeService{}, nil)
	assert.Equal(t, []string{
		ToolWordInsert, ToolWordEdit, ToolWordCreate, ToolWordRead,
		ToolFileOpen, ToolSendEmail, ToolCurrentDatetime,
	}, p.ToolNames())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "新建...", truncate("新建文档", 2))
	assert.Equal(t, "", truncate("", 1))
}
