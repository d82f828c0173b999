package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"office-tools-server/internal/document"
	"office-tools-server/internal/editor"
	"office-tools-server/internal/lock"
	"office-tools-server/internal/models"
)

// JSON-RPC Error Codes (as per JSON-RPC 2.0 Specification)
const (
	CodeParseError     = -32700 // Invalid JSON was received by the server.
	CodeInvalidRequest = -32600 // The JSON sent is not a valid Request object.
	CodeMethodNotFound = -32601 // The method does not exist / is not available.
	CodeInvalidParams  = -32602 // Invalid method parameter(s).
	CodeInternalError  = -32603 // Internal JSON-RPC error.
)

// Application Specific Error Codes
const (
	// CodeFileSystemError is a generic code for file system related issues.
	// Specific issues like file not found or permission denied use this code
	// with a "type" entry in the data.
	CodeFileSystemError = -32001

	// CodeOperationLockFailed indicates that the per-document lock could not be acquired.
	CodeOperationLockFailed = -32002

	// CodeFileTooLarge indicates the document exceeds the configured size limit.
	CodeFileTooLarge = -32003

	// CodeTargetNotFound indicates the search text was not found where requested.
	CodeTargetNotFound = -32004

	// CodeAutomationFailed covers every other document host failure (open, parse, save).
	CodeAutomationFailed = -32005
)

// --- Helper functions to create models.ErrorDetail ---

// NewErrorDetail creates a new ErrorDetail.
func NewErrorDetail(code int, message string, data interface{}) *models.ErrorDetail {
	return &models.ErrorDetail{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// NewParseError creates an ErrorDetail for JSON parsing errors.
// JSON-RPC: -32700
func NewParseError(details string) *models.ErrorDetail {
	return NewErrorDetail(CodeParseError, "Parse error", map[string]interface{}{"details": details})
}

// NewInvalidRequestError creates an ErrorDetail for invalid JSON-RPC Request objects.
// JSON-RPC: -32600
func NewInvalidRequestError(details string) *models.ErrorDetail {
	return NewErrorDetail(CodeInvalidRequest, "Invalid Request", map[string]interface{}{"details": details})
}

// NewMethodNotFoundError creates an ErrorDetail when a JSON-RPC method is not found.
// JSON-RPC: -32601
func NewMethodNotFoundError(methodName string) *models.ErrorDetail {
	return NewErrorDetail(CodeMethodNotFound, "Method not found", map[string]interface{}{
		"operation": methodName,
		"details":   fmt.Sprintf("method '%s' is not supported", methodName),
	})
}

// NewInvalidParamsError creates an ErrorDetail for invalid method parameters.
// JSON-RPC: -32602
// paramIssues maps parameter names to what was wrong with them.
func NewInvalidParamsError(summaryMessage string, paramIssues map[string]string) *models.ErrorDetail {
	message := "Invalid params"
	if summaryMessage != "" {
		message = summaryMessage
	}
	data := map[string]interface{}{"details": message}
	if len(paramIssues) > 0 {
		data["param_issues"] = paramIssues
	}
	return NewErrorDetail(CodeInvalidParams, message, data)
}

// NewInternalError creates an ErrorDetail for unexpected server errors.
// JSON-RPC: -32603
func NewInternalError(details string) *models.ErrorDetail {
	return NewErrorDetail(CodeInternalError, "Internal error", map[string]interface{}{"details": details})
}

// NewFileSystemError creates a generic file system ErrorDetail.
// App specific: -32001
func NewFileSystemError(path, operation, details string) *models.ErrorDetail {
	return NewErrorDetail(CodeFileSystemError, "File system error", map[string]interface{}{
		"path":      path,
		"operation": operation,
		"details":   details,
	})
}

// NewFileNotFoundError creates an ErrorDetail for file not found errors.
// App specific: -32001. HTTP status: 404.
func NewFileNotFoundError(path, operation string) *models.ErrorDetail {
	return NewErrorDetail(CodeFileSystemError, fmt.Sprintf("File '%s' not found", path), map[string]interface{}{
		"path":      path,
		"operation": operation,
		"type":      "file_not_found",
	})
}

// NewPermissionDeniedError creates an ErrorDetail for permission denied errors.
// App specific: -32001. HTTP status: 403.
func NewPermissionDeniedError(path, operation string) *models.ErrorDetail {
	return NewErrorDetail(CodeFileSystemError, fmt.Sprintf("Permission denied for file '%s'", path), map[string]interface{}{
		"path":      path,
		"operation": operation,
		"type":      "permission_denied",
	})
}

// NewFileTooLargeError creates an ErrorDetail for documents exceeding size limits.
// App specific: -32003. HTTP status: 413.
func NewFileTooLargeError(path string, maxSizeMB int) *models.ErrorDetail {
	return NewErrorDetail(CodeFileTooLarge,
		fmt.Sprintf("File '%s' exceeds maximum allowed size of %d MB", path, maxSizeMB),
		map[string]interface{}{
			"path":        path,
			"max_size_mb": maxSizeMB,
			"type":        "file_too_large",
		})
}

// NewOperationLockFailedError creates an ErrorDetail for failures to acquire a lock.
// App specific: -32002. HTTP status: 409.
func NewOperationLockFailedError(path, operation string, details string) *models.ErrorDetail {
	return NewErrorDetail(CodeOperationLockFailed,
		fmt.Sprintf("Could not acquire lock for operation '%s' on file '%s'", operation, path),
		map[string]interface{}{
			"path":      path,
			"operation": operation,
			"details":   details,
		})
}

// NewTargetNotFoundError creates an ErrorDetail for a search text missing from its line.
// App specific: -32004. HTTP status: 404.
func NewTargetNotFoundError(path, operation string, line int, target string) *models.ErrorDetail {
	return NewErrorDetail(CodeTargetNotFound,
		fmt.Sprintf("Text '%s' not found at line %d", target, line),
		map[string]interface{}{
			"path":      path,
			"operation": operation,
			"line":      line,
			"target":    target,
			"type":      "target_not_found",
		})
}

// NewAutomationError creates an ErrorDetail for document host failures.
// App specific: -32005. HTTP status: 500.
func NewAutomationError(path, operation, details string) *models.ErrorDetail {
	return NewErrorDetail(CodeAutomationFailed, "Document automation failed", map[string]interface{}{
		"path":      path,
		"operation": operation,
		"details":   details,
	})
}

// FromToolError classifies the error behind a failed tool call.
func FromToolError(path, operation string, maxSizeMB int, err error) *models.ErrorDetail {
	if err == nil {
		return nil
	}
	var edErr *editor.Error
	switch {
	case stdErrors.Is(err, lock.ErrLockTimeout):
		return NewOperationLockFailedError(path, operation, err.Error())
	case stdErrors.Is(err, document.ErrFileTooLarge):
		return NewFileTooLargeError(path, maxSizeMB)
	case stdErrors.Is(err, os.ErrNotExist):
		return NewFileNotFoundError(path, operation)
	case stdErrors.Is(err, os.ErrPermission):
		return NewPermissionDeniedError(path, operation)
	case stdErrors.As(err, &edErr) && edErr.Kind == editor.KindNotFound:
		return NewTargetNotFoundError(path, operation, edErr.Line, edErr.Target)
	case editor.IsValidation(err):
		return NewInvalidParamsError(err.Error(), nil)
	default:
		return NewAutomationError(path, operation, err.Error())
	}
}

// --- Conversion to HTTP and JSON-RPC Error Structures ---

// ToErrorResponse converts an ErrorDetail to an HTTP models.ErrorResponse.
func ToErrorResponse(errDetail *models.ErrorDetail) *models.ErrorResponse {
	if errDetail == nil {
		return nil
	}
	return &models.ErrorResponse{Error: *errDetail}
}

// ToJSONRPCError converts an ErrorDetail to a models.JSONRPCError.
// Known keys of a map Data are lifted into JSONRPCErrorData.
func ToJSONRPCError(errDetail *models.ErrorDetail) *models.JSONRPCError {
	if errDetail == nil {
		return nil
	}
	rpcErr := &models.JSONRPCError{
		Code:    errDetail.Code,
		Message: errDetail.Message,
	}
	if errDetail.Data == nil {
		return rpcErr
	}

	data := &models.JSONRPCErrorData{Timestamp: time.Now().UTC().Format(time.RFC3339)}
	if dataMap, ok := errDetail.Data.(map[string]interface{}); ok {
		if val, ok := dataMap["path"].(string); ok {
			data.Path = val
		}
		if val, ok := dataMap["operation"].(string); ok {
			data.Operation = val
		}
		if pi, ok := dataMap["param_issues"]; ok {
			data.Details = fmt.Sprintf("Parameter issues: %v. Summary: %v", pi, dataMap["details"])
		} else if val, ok := dataMap["details"].(string); ok {
			data.Details = val
		}
	} else {
		data.Details = fmt.Sprintf("%v", errDetail.Data)
	}
	rpcErr.Data = data
	return rpcErr
}

// --- HTTP Status Mapping ---

// MapErrorToHTTPStatus maps an internal error code to an HTTP status code.
// CodeFileSystemError is refined by the "type" entry of the detail's data.
func MapErrorToHTTPStatus(errorCode int, errDetail *models.ErrorDetail) int {
	switch errorCode {
	case CodeParseError, CodeInvalidRequest, CodeInvalidParams:
		return http.StatusBadRequest
	case CodeMethodNotFound:
		return http.StatusNotFound
	case CodeInternalError:
		return http.StatusInternalServerError
	case CodeFileSystemError:
		if errDetail != nil {
			if dataMap, ok := errDetail.Data.(map[string]interface{}); ok {
				switch dataMap["type"] {
				case "file_not_found":
					return http.StatusNotFound
				case "permission_denied":
					return http.StatusForbidden
				}
			}
		}
		return http.StatusInternalServerError
	case CodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeOperationLockFailed:
		return http.StatusConflict
	case CodeTargetNotFound:
		return http.StatusNotFound
	case CodeAutomationFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
