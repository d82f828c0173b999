package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"office-tools-server/internal/models"
	"office-tools-server/internal/service"
)

// Tool names.
const (
	ToolWordInsert      = "word_insert"
	ToolWordEdit        = "word_edit"
	ToolWordCreate      = "word_create"
	ToolWordRead        = "word_read"
	ToolFileOpen        = "file_open"
	ToolSendEmail       = "send_email"
	ToolCurrentDatetime = "retrieve_current_datetime"
)

// toolHandler decodes raw arguments and runs one tool.
type toolHandler func(ctx context.Context, args json.RawMessage) (service.Result, error)

type tool struct {
	def    models.ToolDefinition
	handle toolHandler
}

// generateSchema reflects the input schema of a request type.
func generateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  true,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	return reflector.Reflect(&v)
}

// bind adapts a typed service method to a toolHandler. Missing or null
// arguments decode to the zero request.
func bind[T any](fn func(context.Context, T) service.Result) toolHandler {
	return func(ctx context.Context, args json.RawMessage) (service.Result, error) {
		var req T
		if len(args) > 0 && string(args) != "null" {
			if err := json.Unmarshal(args, &req); err != nil {
				return service.Result{}, fmt.Errorf("invalid arguments: %w", err)
			}
		}
		return fn(ctx, req), nil
	}
}

func newTool[T any](name, title, description string, hints models.ToolAnnotations, fn func(context.Context, T) service.Result) tool {
	hints.Title = title
	return tool{
		def: models.ToolDefinition{
			Name:        name,
			Description: description,
			InputSchema: generateSchema[T](),
			Annotations: hints,
		},
		handle: bind(fn),
	}
}

func buildTools(svc service.OfficeService) []tool {
	return []tool{
		newTool(ToolWordInsert, "Insert text into a document",
			"Inserts text into a Word (.docx) or text document. insert_flag -1 adds a new first paragraph, "+
				"1 adds a new last paragraph, 0 places the text right before or after tar_text, searched "+
				"case-insensitively starting at line_num.",
			models.ToolAnnotations{DestructiveHint: true},
			svc.WordInsert),
		newTool(ToolWordEdit, "Replace text on one line",
			"Replaces the first case-sensitive occurrence of tar_text on line line_num with text. "+
				"Nothing is saved when the text is not on that line.",
			models.ToolAnnotations{DestructiveHint: true},
			svc.WordEdit),
		newTool(ToolWordCreate, "Create a blank document",
			"Creates an empty document named file_name in the folder file_path. Existing files are never overwritten.",
			models.ToolAnnotations{},
			svc.WordCreate),
		newTool(ToolWordRead, "Read a document",
			"Returns the text of a document, one paragraph per line, optionally limited to start_line..end_line.",
			models.ToolAnnotations{ReadOnlyHint: true, IdempotentHint: true},
			svc.WordRead),
		newTool(ToolFileOpen, "Open a file",
			"Opens a file with the default application of the operating system.",
			models.ToolAnnotations{OpenWorldHint: true},
			svc.FileOpen),
		newTool(ToolSendEmail, "Send an email",
			"Sends a plain-text email. The first call must leave is_ok unset so the user can review the mail; "+
				"repeat the call with is_ok=true only after the user confirmed sending.",
			models.ToolAnnotations{OpenWorldHint: true},
			svc.SendEmail),
		newTool(ToolCurrentDatetime, "Current date and time",
			"Returns the current local date and time in ISO-8601 format.",
			models.ToolAnnotations{ReadOnlyHint: true},
			func(ctx context.Context, _ models.DatetimeRequest) service.Result { return svc.CurrentDatetime(ctx) }),
	}
}
