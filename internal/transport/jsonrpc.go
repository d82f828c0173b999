package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"office-tools-server/internal/errors"
	"office-tools-server/internal/models"
)

// Processor answers decoded JSON-RPC requests.
type Processor interface {
	ProcessRequest(ctx context.Context, req models.JSONRPCRequest) (interface{}, *models.JSONRPCError)
}

func errorResponse(id interface{}, detail *models.ErrorDetail) *models.JSONRPCResponse {
	return &models.JSONRPCResponse{
		JSONRPC: models.JSONRPCVersion,
		ID:      id,
		Error:   errors.ToJSONRPCError(detail),
	}
}

// handleMessage decodes and processes one JSON-RPC message. It returns nil
// when the message is a notification and no response is due.
func handleMessage(ctx context.Context, p Processor, raw []byte) *models.JSONRPCResponse {
	if !json.Valid(raw) {
		return errorResponse(nil, errors.NewParseError("Invalid JSON received"))
	}

	var req models.JSONRPCRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return errorResponse(nil, errors.NewInvalidRequestError(fmt.Sprintf("Request must be a JSON-RPC object: %v", err)))
	}
	if req.JSONRPC != models.JSONRPCVersion {
		return errorResponse(req.ID, errors.NewInvalidRequestError("Invalid JSON-RPC version. Must be '2.0'."))
	}
	if req.Method == "" {
		return errorResponse(req.ID, errors.NewInvalidRequestError("Method not specified."))
	}

	result, rpcErr := p.ProcessRequest(ctx, req)
	if req.IsNotification() {
		return nil
	}
	resp := &models.JSONRPCResponse{JSONRPC: models.JSONRPCVersion, ID: req.ID}
	if rpcErr != nil {
		if rpcErr.Data != nil && rpcErr.Data.Operation == "" {
			rpcErr.Data.Operation = req.Method
		}
		resp.Error = rpcErr
		return resp
	}
	if result == nil {
		result = struct{}{}
	}
	resp.Result = result
	return resp
}

// marshalResponse encodes resp, falling back to an internal error response
// when the result cannot be encoded.
func marshalResponse(resp *models.JSONRPCResponse) []byte {
	b, err := json.Marshal(resp)
	if err == nil {
		return b
	}
	fallback := errorResponse(resp.ID, errors.NewInternalError("Server error: failed to marshal response: "+err.Error()))
	b, _ = json.Marshal(fallback)
	return b
}
