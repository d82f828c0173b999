package document

import (
	"fmt"
	"os"

	"office-tools-server/internal/filesystem"
)

// TextHost opens plain text documents. A line is a newline-delimited
// line of the file and a paragraph break is a newline.
type TextHost struct {
	fs      filesystem.Adapter
	maxSize int64
}

// NewTextHost creates a TextHost. maxSize is the largest file size in
// bytes the host will open; zero disables the check.
func NewTextHost(fs filesystem.Adapter, maxSize int64) *TextHost {
	return &TextHost{fs: fs, maxSize: maxSize}
}

var (
	_ Host    = (*TextHost)(nil)
	_ Creator = (*TextHost)(nil)
)

func (h *TextHost) Name() string { return "text" }

func (h *TextHost) Extensions() []string {
	return []string{".txt", ".text", ".md", ".log", ".csv"}
}

// Open reads path and returns a session over its lines.
func (h *TextHost) Open(path string) (Session, error) {
	stats, err := h.fs.GetFileStats(path)
	if err != nil {
		return nil, err
	}
	if stats.IsDir {
		return nil, fmt.Errorf("path is a directory: %s", path)
	}
	if h.maxSize > 0 && stats.Size > h.maxSize {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrFileTooLarge, path, stats.Size, h.maxSize)
	}

	content, err := h.fs.ReadFileBytes(path)
	if err != nil {
		return nil, err
	}
	if !filesystem.IsValidUTF8(content) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidEncoding, path)
	}

	return &textSession{
		buffer: newBuffer(filesystem.SplitLines(content)),
		path:   path,
		layout: filesystem.DetectLayout(content),
		perm:   stats.Mode,
		fs:     h.fs,
	}, nil
}

// Create writes an empty file at path. It refuses to overwrite.
func (h *TextHost) Create(path string) error {
	exists, err := h.fs.FileExists(path)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, path)
	}
	return h.fs.WriteFileBytesAtomic(path, []byte{}, 0644)
}

type textSession struct {
	*buffer
	path   string
	layout filesystem.TextLayout
	perm   os.FileMode
	fs     filesystem.Adapter
}

func (s *textSession) Path() string { return s.path }

func (s *textSession) Save() error {
	if s.closed {
		return ErrSessionClosed
	}
	return s.fs.WriteFileBytesAtomic(s.path, filesystem.JoinLines(s.texts(), s.layout), s.perm)
}

func (s *textSession) Close() error {
	s.closed = true
	return nil
}
