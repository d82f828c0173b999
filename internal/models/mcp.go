package models

import "encoding/json"

// MCPToolContent is one content block of a tool result.
type MCPToolContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// MCPToolResult represents the result of a tool call.
type MCPToolResult struct {
	Content []MCPToolContent `json:"content"`
	// StructuredContent carries the machine-readable form of the result.
	StructuredContent interface{} `json:"structuredContent,omitempty"`
	IsError           bool        `json:"isError"`
	// Meta holds the classified error of a failed call ("code", "data").
	Meta map[string]interface{} `json:"_meta,omitempty"`
}

// TextResult wraps text in a single-block tool result.
func TextResult(text string, isError bool) *MCPToolResult {
	return &MCPToolResult{
		Content: []MCPToolContent{{Type: "text", Text: text}},
		IsError: isError,
	}
}

// ToolCallParams are the params of a "tools/call" request.
type ToolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// InitializeParams are the params of an "initialize" request. Only the
// fields the server logs are decoded.
type InitializeParams struct {
	ProtocolVersion string `json:"protocolVersion"`
	ClientInfo      struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"clientInfo"`
}
