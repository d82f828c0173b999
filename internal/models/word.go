package models

// Insert flag values accepted by word_insert.
const (
	InsertAtStart  = -1
	InsertAtTarget = 0
	InsertAtEnd    = 1
)

// Anchor flag values of an insert target.
const (
	AnchorBefore = 0
	AnchorAfter  = 1
)

// DefaultDocumentName is used by word_create when no file name is given.
const DefaultDocumentName = "新建文档.docx"

// InsertTarget locates a word_insert position by line number and search text.
type InsertTarget struct {
	LineNum int    `json:"line_num" validate:"min=1" jsonschema:"required,minimum=1" jsonschema_description:"1-based line to start searching from."`
	TarText string `json:"tar_text" validate:"required" jsonschema:"required,minLength=1" jsonschema_description:"Text to search for (case-insensitive)."`
	// Flag is 0 to insert before the match and 1 to insert after it.
	Flag *int `json:"flag" validate:"required,oneof=0 1" jsonschema:"required,enum=0,enum=1" jsonschema_description:"0 inserts before the matched text; 1 inserts after it."`
}

// WordInsertRequest is the argument object of word_insert.
type WordInsertRequest struct {
	FilePath string `json:"file_path" validate:"required" jsonschema:"required" jsonschema_description:"Absolute path of the document to edit."`
	Text     string `json:"text" validate:"required" jsonschema:"required,minLength=1" jsonschema_description:"Text to insert. Newlines start new paragraphs."`
	// InsertFlag is -1 for the start, 1 for the end and 0 for Target.
	InsertFlag *int          `json:"insert_flag" validate:"required" jsonschema:"required,enum=-1,enum=0,enum=1" jsonschema_description:"-1 inserts a new first paragraph; 1 inserts a new last paragraph; 0 inserts next to target."`
	Target     *InsertTarget `json:"target,omitempty" jsonschema_description:"Required when insert_flag is 0."`
}

// EditTarget addresses the text replaced by word_edit.
type EditTarget struct {
	LineNum int    `json:"line_num" validate:"min=1" jsonschema:"required,minimum=1" jsonschema_description:"1-based line holding the text to replace."`
	TarText string `json:"tar_text" validate:"required" jsonschema:"required,minLength=1" jsonschema_description:"Exact text to replace (case-sensitive; first occurrence on the line)."`
}

// WordEditRequest is the argument object of word_edit.
type WordEditRequest struct {
	FilePath string      `json:"file_path" validate:"required" jsonschema:"required" jsonschema_description:"Absolute path of the document to edit."`
	Text     string      `json:"text" jsonschema:"required" jsonschema_description:"Replacement text; empty deletes the matched text. Must not contain line breaks."`
	Target   *EditTarget `json:"target" validate:"required" jsonschema:"required" jsonschema_description:"Line and text to replace."`
}

// WordCreateRequest is the argument object of word_create.
type WordCreateRequest struct {
	FilePath string `json:"file_path" validate:"required" jsonschema:"required" jsonschema_description:"Absolute path of the folder to create the document in."`
	FileName string `json:"file_name,omitempty" jsonschema_description:"File name including extension. Defaults to 新建文档.docx."`
}

// WordReadRequest is the argument object of word_read.
type WordReadRequest struct {
	FilePath  string `json:"file_path" validate:"required" jsonschema:"required" jsonschema_description:"Absolute path of the document to read."`
	StartLine int    `json:"start_line,omitempty" validate:"omitempty,min=1" jsonschema:"minimum=1" jsonschema_description:"Optional 1-based first line to return."`
	EndLine   int    `json:"end_line,omitempty" validate:"omitempty,min=1" jsonschema:"minimum=1" jsonschema_description:"Optional 1-based last line to return (inclusive)."`
}

// RangeRequested echoes the line range a partial read returned.
type RangeRequested struct {
	StartLine int `json:"start_line,omitempty"`
	EndLine   int `json:"end_line,omitempty"`
}

// WordReadResponse is the result of word_read.
type WordReadResponse struct {
	Content        string          `json:"content"`
	TotalLines     int             `json:"total_lines"`
	RangeRequested *RangeRequested `json:"range_requested,omitempty"`
}
