package filesystem

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// FileStats holds basic statistics about a file.
type FileStats struct {
	Size    int64
	IsDir   bool
	ModTime time.Time
	Mode    os.FileMode
}

// Adapter abstracts the file system calls the document hosts need.
// It keeps the hosts testable and keeps every write atomic.
type Adapter interface {
	ReadFileBytes(filePath string) ([]byte, error)
	WriteFileBytesAtomic(filePath string, content []byte, perm os.FileMode) error
	FileExists(filePath string) (bool, error)
	GetFileStats(filePath string) (*FileStats, error)
	EvalSymlinks(path string) (string, error)
}

// TextLayout records how a text file delimits its lines so that a rewrite
// can reproduce the original bytes for untouched lines.
type TextLayout struct {
	// Newline is "\n" or "\r\n".
	Newline string
	// TrailingNewline is true when the content ends with a newline.
	TrailingNewline bool
}

// CheckDirectoryIsWritable reports whether files can be created in path by
// creating and removing a scratch file in it.
func CheckDirectoryIsWritable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("path does not exist: %s: %w", path, err)
		}
		return fmt.Errorf("could not stat path %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	scratch := filepath.Join(path, fmt.Sprintf(".writable_%s.tmp", uuid.NewString()))
	file, err := os.Create(scratch)
	if err != nil {
		if os.IsPermission(err) {
			return fmt.Errorf("permission denied to write in directory %s: %w", path, err)
		}
		return fmt.Errorf("error creating scratch file in %s: %w", path, err)
	}
	_ = file.Close()
	_ = os.Remove(scratch)
	return nil
}

// OSAdapter is the Adapter backed by the os package.
type OSAdapter struct{}

// NewOSAdapter creates a new OSAdapter.
func NewOSAdapter() *OSAdapter {
	return &OSAdapter{}
}

var _ Adapter = (*OSAdapter)(nil)

// ReadFileBytes reads the entire file into a byte slice.
func (fs *OSAdapter) ReadFileBytes(filePath string) ([]byte, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s: %w", filePath, err)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("permission denied reading file: %s: %w", filePath, err)
		}
		return nil, fmt.Errorf("failed to read file: %s: %w", filePath, err)
	}
	return content, nil
}

// WriteFileBytesAtomic writes content to a temporary file in the same
// directory and renames it over filePath, then applies finalPerm.
func (fs *OSAdapter) WriteFileBytesAtomic(filePath string, content []byte, finalPerm os.FileMode) error {
	dir := filepath.Dir(filePath)

	tempFile, err := os.CreateTemp(dir, filepath.Base(filePath)+".tmp.*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file in %s: %w", dir, err)
	}
	// Harmless after a successful rename.
	defer os.Remove(tempFile.Name())

	if _, errWrite := tempFile.Write(content); errWrite != nil {
		tempFile.Close()
		return fmt.Errorf("failed to write to temporary file %s: %w", tempFile.Name(), errWrite)
	}
	if errSync := tempFile.Sync(); errSync != nil {
		tempFile.Close()
		return fmt.Errorf("failed to sync temporary file %s: %w", tempFile.Name(), errSync)
	}
	if errClose := tempFile.Close(); errClose != nil {
		return fmt.Errorf("failed to close temporary file %s: %w", tempFile.Name(), errClose)
	}
	if errRename := os.Rename(tempFile.Name(), filePath); errRename != nil {
		return fmt.Errorf("failed to rename temporary file %s to %s: %w", tempFile.Name(), filePath, errRename)
	}
	if errChmod := os.Chmod(filePath, finalPerm); errChmod != nil {
		return fmt.Errorf("file written to %s, but failed to set permissions to %o: %w", filePath, finalPerm, errChmod)
	}
	return nil
}

// FileExists checks if a file exists.
func (fs *OSAdapter) FileExists(filePath string) (bool, error) {
	_, err := os.Stat(filePath)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("error checking if file exists %s: %w", filePath, err)
}

// GetFileStats retrieves statistics for a given file.
func (fs *OSAdapter) GetFileStats(filePath string) (*FileStats, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found for stats: %s: %w", filePath, err)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("permission denied getting stats for file: %s: %w", filePath, err)
		}
		return nil, fmt.Errorf("failed to get file stats for %s: %w", filePath, err)
	}
	return &FileStats{
		Size:    info.Size(),
		IsDir:   info.IsDir(),
		ModTime: info.ModTime(),
		Mode:    info.Mode().Perm(),
	}, nil
}

// EvalSymlinks evaluates symbolic links for the given path.
func (fs *OSAdapter) EvalSymlinks(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", fmt.Errorf("failed to evaluate symlinks for %s: %w", path, err)
	}
	return resolved, nil
}

// IsValidUTF8 checks if the byte slice is valid UTF-8.
func IsValidUTF8(content []byte) bool {
	return utf8.Valid(content)
}

// DetectLayout inspects content and reports its newline style and whether
// it ends with a newline. Files without any newline default to "\n".
func DetectLayout(content []byte) TextLayout {
	layout := TextLayout{Newline: "\n"}
	if idx := bytes.IndexByte(content, '\n'); idx > 0 && content[idx-1] == '\r' {
		layout.Newline = "\r\n"
	}
	layout.TrailingNewline = len(content) > 0 && (content[len(content)-1] == '\n' || content[len(content)-1] == '\r')
	return layout
}

// NormalizeNewlines converts all newline variations (\r\n and \r) to \n.
func NormalizeNewlines(content []byte) []byte {
	if len(content) == 0 {
		return []byte{}
	}
	normalized := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	return bytes.ReplaceAll(normalized, []byte("\r"), []byte("\n"))
}

// SplitLines splits content into lines after normalizing newlines.
// A trailing newline does not produce an extra empty line, and empty
// content yields no lines.
func SplitLines(content []byte) []string {
	if len(content) == 0 {
		return []string{}
	}
	s := string(NormalizeNewlines(content))
	lines := strings.Split(s, "\n")
	if strings.HasSuffix(s, "\n") {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// JoinLines joins lines with the layout's newline and restores the
// trailing newline when the layout had one.
func JoinLines(lines []string, layout TextLayout) []byte {
	nl := layout.Newline
	if nl == "" {
		nl = "\n"
	}
	if len(lines) == 0 {
		return []byte{}
	}
	joined := strings.Join(lines, nl)
	if layout.TrailingNewline {
		joined += nl
	}
	return []byte(joined)
}
