package document

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"

	"office-tools-server/internal/filesystem"
)

const documentPart = "word/document.xml"

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`

const packageRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/></Relationships>`

const blankDocumentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p/><w:sectPr><w:pgSz w:w="11906" w:h="16838"/><w:pgMar w:top="1440" w:right="1800" w:bottom="1440" w:left="1800" w:header="851" w:footer="992" w:gutter="0"/></w:sectPr></w:body></w:document>`

type packagePart struct {
	name    string
	content string
}

func buildPackage(parts []packagePart) ([]byte, error) {
	var out bytes.Buffer
	zw := zip.NewWriter(&out)
	for _, part := range parts {
		w, err := zw.Create(part.name)
		if err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", part.name, err)
		}
		if _, err := io.WriteString(w, part.content); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", part.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish package: %w", err)
	}
	return out.Bytes(), nil
}

// DocxHost opens WordprocessingML packages. Each paragraph of the main
// document part is one line.
type DocxHost struct {
	fs      filesystem.Adapter
	maxSize int64
}

// NewDocxHost creates a DocxHost. maxSize is the largest package size in
// bytes the host will open; zero disables the check.
func NewDocxHost(fs filesystem.Adapter, maxSize int64) *DocxHost {
	return &DocxHost{fs: fs, maxSize: maxSize}
}

var (
	_ Host    = (*DocxHost)(nil)
	_ Creator = (*DocxHost)(nil)
)

func (h *DocxHost) Name() string { return "docx" }

func (h *DocxHost) Extensions() []string { return []string{".docx"} }

func (h *DocxHost) Open(path string) (Session, error) {
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

	data, err := h.fs.ReadFileBytes(path)
	if err != nil {
		return nil, err
	}
	pkg, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptDocument, path, err)
	}
	raw, err := readPart(pkg, documentPart)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptDocument, path, err)
	}
	body, err := parseWordBody(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &docxSession{
		buffer: newBuffer(body.texts()),
		path:   path,
		perm:   stats.Mode,
		fs:     h.fs,
		pkg:    pkg,
		body:   body,
	}, nil
}

// Create writes a blank document package at path. It refuses to overwrite.
func (h *DocxHost) Create(path string) error {
	exists, err := h.fs.FileExists(path)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, path)
	}
	data, err := buildPackage([]packagePart{
		{name: "[Content_Types].xml", content: contentTypesXML},
		{name: "_rels/.rels", content: packageRelsXML},
		{name: documentPart, content: blankDocumentXML},
	})
	if err != nil {
		return err
	}
	return h.fs.WriteFileBytesAtomic(path, data, 0644)
}

func readPart(pkg *zip.Reader, name string) ([]byte, error) {
	for _, f := range pkg.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("missing part %s", name)
}

type docxSession struct {
	*buffer
	path string
	perm os.FileMode
	fs   filesystem.Adapter
	pkg  *zip.Reader
	body *wordBody
}

func (s *docxSession) Path() string { return s.path }

// Save rewrites the package. Every part except the main document part is
// copied without recompression.
func (s *docxSession) Save() error {
	if s.closed {
		return ErrSessionClosed
	}
	var out bytes.Buffer
	zw := zip.NewWriter(&out)
	for _, f := range s.pkg.File {
		if f.Name == documentPart {
			w, err := zw.CreateHeader(&zip.FileHeader{Name: f.Name, Method: zip.Deflate, Modified: f.Modified})
			if err != nil {
				return fmt.Errorf("failed to add %s: %w", f.Name, err)
			}
			if _, err := w.Write(s.body.serialize(s.lines)); err != nil {
				return fmt.Errorf("failed to write %s: %w", f.Name, err)
			}
			continue
		}
		if err := copyRawPart(zw, f); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish package: %w", err)
	}
	return s.fs.WriteFileBytesAtomic(s.path, out.Bytes(), s.perm)
}

func copyRawPart(zw *zip.Writer, f *zip.File) error {
	header := f.FileHeader
	w, err := zw.CreateRaw(&header)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", f.Name, err)
	}
	r, err := f.OpenRaw()
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", f.Name, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("failed to copy %s: %w", f.Name, err)
	}
	return nil
}

func (s *docxSession) Close() error {
	s.closed = true
	return nil
}
