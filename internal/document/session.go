// Package document provides live document sessions: an opened document
// with a cursor that can be moved by line, searched forward, typed into and
// saved in place. Hosts open sessions for one family of file formats.
package document

import "errors"

var (
	// ErrLineOutOfRange is returned when a line number does not exist.
	ErrLineOutOfRange = errors.New("line number out of range")
	// ErrLineBreak is returned when a single-line write contains a line break.
	ErrLineBreak = errors.New("text must not contain line breaks")
	// ErrSessionClosed is returned when a closed session is used.
	ErrSessionClosed = errors.New("document session is closed")
	// ErrUnsupportedFormat is returned for file extensions no host handles.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrFileTooLarge is returned when a document exceeds the size limit.
	ErrFileTooLarge = errors.New("document exceeds maximum size")
	// ErrInvalidEncoding is returned when a text document is not valid UTF-8.
	ErrInvalidEncoding = errors.New("document is not valid UTF-8")
	// ErrAlreadyExists is returned by Create when the target already exists.
	ErrAlreadyExists = errors.New("document already exists")
	// ErrCorruptDocument is returned when a package cannot be parsed.
	ErrCorruptDocument = errors.New("document is corrupt")
)

// Position is a cursor location. Line is 1-based, Column counts characters
// (runes) from the start of the line.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// FindOptions controls Session.Find.
type FindOptions struct {
	// MatchCase makes the search case-sensitive.
	MatchCase bool
	// WholeWord only accepts matches bounded by non-word characters.
	WholeWord bool
	// LineOnly stops the search at the end of the cursor's line instead of
	// continuing to the end of the document.
	LineOnly bool
}

// Session is one open document. A session is owned by a single caller
// and is not safe for concurrent use.
type Session interface {
	// Path returns the file the session was opened from.
	Path() string
	// LineCount returns the number of addressable lines (always >= 1).
	LineCount() int
	// Cursor returns the current cursor position.
	Cursor() Position
	// GotoStart moves the cursor to the first position of the document.
	GotoStart()
	// GotoEnd moves the cursor to the last position of the document.
	GotoEnd()
	// GotoLine moves the cursor to the start of line n.
	GotoLine(n int) error
	// Find searches forward from the cursor and, on success, moves the
	// cursor to the start of the match. The search never wraps around.
	Find(text string, opts FindOptions) (Position, bool)
	// MoveRight moves the cursor n characters forward, crossing line ends,
	// and returns how many characters it actually moved.
	MoveRight(n int) int
	// ReadLine returns the text of line n without its terminator.
	ReadLine(n int) (string, error)
	// WriteLine replaces the text of line n.
	WriteLine(n int, text string) error
	// InsertText types text at the cursor and leaves the cursor after it.
	// Newlines in text become paragraph breaks.
	InsertText(text string) error
	// InsertParagraphBreak splits the line at the cursor and moves the
	// cursor to the start of the new following line.
	InsertParagraphBreak() error
	// Text returns the whole document, lines joined with "\n".
	Text() string
	// Modified reports whether any mutation happened since open.
	Modified() bool
	// Save writes the document back to Path, overwriting it.
	Save() error
	// Close releases the session without saving.
	Close() error
}

// Host opens sessions for the file extensions it supports.
type Host interface {
	// Name identifies the host in messages and logs.
	Name() string
	// Extensions lists lower-case file extensions including the dot.
	Extensions() []string
	// Open attaches a session to an existing document.
	Open(path string) (Session, error)
}

// Creator is implemented by hosts that can create empty documents.
type Creator interface {
	Create(path string) error
}
