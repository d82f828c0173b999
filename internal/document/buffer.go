package document

import (
	"fmt"
	"strings"
	"unicode"
)

// bufferLine is one addressable line. origin ties the line to the stored
// element it was loaded from so hosts can write untouched lines back
// verbatim; dirty marks lines whose stored form must be regenerated.
// src maps each rune to its index in the origin's loaded text, -1 for
// typed runes. fresh lines were opened by a paragraph break and own none
// of the origin's stored content.
type bufferLine struct {
	text   []rune
	src    []int
	origin int
	fresh  bool
	dirty  bool
}

// buffer is the cursor engine shared by every host. Rows and columns are
// 0-based internally; the Session API is 1-based for lines.
type buffer struct {
	lines    []bufferLine
	row      int
	col      int
	modified bool
	closed   bool
}

func newBuffer(texts []string) *buffer {
	if len(texts) == 0 {
		texts = []string{""}
	}
	b := &buffer{lines: make([]bufferLine, len(texts))}
	for i, t := range texts {
		text := []rune(t)
		src := make([]int, len(text))
		for j := range src {
			src[j] = j
		}
		b.lines[i] = bufferLine{text: text, src: src, origin: i}
	}
	return b
}

func (b *buffer) LineCount() int {
	return len(b.lines)
}

func (b *buffer) Cursor() Position {
	return Position{Line: b.row + 1, Column: b.col}
}

func (b *buffer) GotoStart() {
	b.row, b.col = 0, 0
}

func (b *buffer) GotoEnd() {
	b.row = len(b.lines) - 1
	b.col = len(b.lines[b.row].text)
}

func (b *buffer) checkLine(n int) error {
	if n < 1 || n > len(b.lines) {
		return fmt.Errorf("%w: line %d (document has %d lines)", ErrLineOutOfRange, n, len(b.lines))
	}
	return nil
}

func (b *buffer) GotoLine(n int) error {
	if err := b.checkLine(n); err != nil {
		return err
	}
	b.row, b.col = n-1, 0
	return nil
}

func (b *buffer) Find(text string, opts FindOptions) (Position, bool) {
	if text == "" {
		return Position{}, false
	}
	needle := []rune(text)
	if !opts.MatchCase {
		needle = foldRunes(needle)
	}
	for r := b.row; r < len(b.lines); r++ {
		from := 0
		if r == b.row {
			from = b.col
		}
		hay := b.lines[r].text
		if !opts.MatchCase {
			hay = foldRunes(hay)
		}
		if idx := indexRunes(hay, needle, from, opts.WholeWord); idx >= 0 {
			b.row, b.col = r, idx
			return b.Cursor(), true
		}
		if opts.LineOnly {
			break
		}
	}
	return Position{}, false
}

func (b *buffer) MoveRight(n int) int {
	moved := 0
	for moved < n {
		if b.col < len(b.lines[b.row].text) {
			b.col++
		} else if b.row < len(b.lines)-1 {
			b.row++
			b.col = 0
		} else {
			break
		}
		moved++
	}
	return moved
}

func (b *buffer) ReadLine(n int) (string, error) {
	if err := b.checkLine(n); err != nil {
		return "", err
	}
	return string(b.lines[n-1].text), nil
}

func (b *buffer) WriteLine(n int, text string) error {
	if b.closed {
		return ErrSessionClosed
	}
	if err := b.checkLine(n); err != nil {
		return err
	}
	if strings.ContainsAny(text, "\r\n") {
		return ErrLineBreak
	}
	l := &b.lines[n-1]
	if string(l.text) == text {
		return nil
	}
	runes := []rune(text)
	prefix, suffix := commonAffixes(l.text, runes)
	src := make([]int, 0, len(runes))
	src = append(src, l.src[:prefix]...)
	src = append(src, typed(len(runes)-prefix-suffix)...)
	src = append(src, l.src[len(l.src)-suffix:]...)
	l.text = runes
	l.src = src
	l.dirty = true
	b.modified = true
	if b.row == n-1 && b.col > len(l.text) {
		b.col = len(l.text)
	}
	return nil
}

func (b *buffer) InsertText(text string) error {
	if b.closed {
		return ErrSessionClosed
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	for i, part := range strings.Split(text, "\n") {
		if i > 0 {
			if err := b.InsertParagraphBreak(); err != nil {
				return err
			}
		}
		if part == "" {
			continue
		}
		runes := []rune(part)
		l := &b.lines[b.row]
		merged := make([]rune, 0, len(l.text)+len(runes))
		merged = append(merged, l.text[:b.col]...)
		merged = append(merged, runes...)
		merged = append(merged, l.text[b.col:]...)
		src := make([]int, 0, len(merged))
		src = append(src, l.src[:b.col]...)
		src = append(src, typed(len(runes))...)
		src = append(src, l.src[b.col:]...)
		l.text = merged
		l.src = src
		l.dirty = true
		b.col += len(runes)
		b.modified = true
	}
	return nil
}

func (b *buffer) InsertParagraphBreak() error {
	if b.closed {
		return ErrSessionClosed
	}
	cur := b.lines[b.row]
	switch {
	case b.col == 0:
		// New empty line before; the current line keeps its identity.
		b.insertLine(b.row, bufferLine{origin: cur.origin, fresh: true, dirty: true})
	case b.col == len(cur.text):
		b.insertLine(b.row+1, bufferLine{origin: cur.origin, fresh: true, dirty: true})
	default:
		left := bufferLine{
			text:   append([]rune(nil), cur.text[:b.col]...),
			src:    append([]int(nil), cur.src[:b.col]...),
			origin: cur.origin,
			fresh:  cur.fresh,
			dirty:  true,
		}
		right := bufferLine{
			text:   append([]rune(nil), cur.text[b.col:]...),
			src:    append([]int(nil), cur.src[b.col:]...),
			origin: cur.origin,
			fresh:  cur.fresh,
			dirty:  true,
		}
		b.lines[b.row] = left
		b.insertLine(b.row+1, right)
	}
	b.row++
	b.col = 0
	b.modified = true
	return nil
}

func (b *buffer) insertLine(at int, l bufferLine) {
	b.lines = append(b.lines, bufferLine{})
	copy(b.lines[at+1:], b.lines[at:])
	b.lines[at] = l
}

func (b *buffer) Text() string {
	return strings.Join(b.texts(), "\n")
}

func (b *buffer) texts() []string {
	parts := make([]string, len(b.lines))
	for i, l := range b.lines {
		parts[i] = string(l.text)
	}
	return parts
}

func (b *buffer) Modified() bool {
	return b.modified
}

// typed returns n source markers for runes that were not loaded.
func typed(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = -1
	}
	return out
}

// commonAffixes returns the lengths of the longest common prefix and
// suffix of a and b that do not overlap in either slice.
func commonAffixes(a, b []rune) (int, int) {
	limit := min(len(a), len(b))
	prefix := 0
	for prefix < limit && a[prefix] == b[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < limit-prefix && a[len(a)-1-suffix] == b[len(b)-1-suffix] {
		suffix++
	}
	return prefix, suffix
}

// foldRunes lower-cases rune by rune so indexes stay aligned with the
// original text.
func foldRunes(rs []rune) []rune {
	out := make([]rune, len(rs))
	for i, r := range rs {
		out[i] = unicode.ToLower(r)
	}
	return out
}

func indexRunes(hay, needle []rune, from int, wholeWord bool) int {
	if len(needle) == 0 || from < 0 {
		return -1
	}
	for i := from; i+len(needle) <= len(hay); i++ {
		if !equalRunes(hay[i:i+len(needle)], needle) {
			continue
		}
		if wholeWord && !isWordBoundary(hay, i, i+len(needle)) {
			continue
		}
		return i
	}
	return -1
}

func equalRunes(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func isWordBoundary(hay []rune, start, end int) bool {
	if start > 0 && isWordRune(hay[start-1]) {
		return false
	}
	if end < len(hay) && isWordRune(hay[end]) {
		return false
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
