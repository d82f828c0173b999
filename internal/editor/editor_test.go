package editor

import (
	stdErrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"office-tools-server/internal/document"
	"office-tools-server/internal/filesystem"
)

// recordingSession wraps a real session and records saves. SaveFunc, when
// set, replaces the real save.
type recordingSession struct {
	document.Session
	saves    int
	SaveFunc func() error
}

func (r *recordingSession) Save() error {
	r.saves++
	if r.SaveFunc != nil {
		return r.SaveFunc()
	}
	return r.Session.Save()
}

func openText(t *testing.T, content string) (*recordingSession, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	s, err := document.NewTextHost(filesystem.NewOSAdapter(), 0).Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return &recordingSession{Session: s}, path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

const fiveLines = "intro\nsecond\n3. TODO write tests\nfourth\nHello world\n"

func TestInsertAtStartAddsFirstParagraph(t *testing.T) {
	s, path := openText(t, "first\nsecond\n")
	msg, err := NewExecutor(nil).Apply(s, InsertOp("new", AtStart()))
	require.NoError(t, err)
	assert.Equal(t, MsgInsertDone, msg)
	assert.Equal(t, "new\nfirst\nsecond\n", readFile(t, path))
}

func TestInsertAtEndAddsLastParagraph(t *testing.T) {
	s, path := openText(t, "first\nsecond\n")
	_, err := NewExecutor(nil).Apply(s, InsertOp("new", AtEnd()))
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\nnew\n", readFile(t, path))
	assert.Equal(t, 1, s.saves)
}

func TestInsertAfterTarget(t *testing.T) {
	s, path := openText(t, fiveLines)
	_, err := NewExecutor(nil).Apply(s, InsertOp(" [done]", AtLineTarget(3, "TODO", After)))
	require.NoError(t, err)

	lines := strings.Split(readFile(t, path), "\n")
	assert.Equal(t, "3. TODO [done] write tests", lines[2])
	assert.Equal(t, strings.Split(fiveLines, "\n")[3:], lines[3:])
}

func TestInsertBeforeTargetIsCaseInsensitive(t *testing.T) {
	s, path := openText(t, fiveLines)
	_, err := NewExecutor(nil).Apply(s, InsertOp(">>", AtLineTarget(5, "WORLD", Before)))
	require.NoError(t, err)
	assert.Contains(t, readFile(t, path), "Hello >>world\n")
}

func TestInsertTargetMissingLeavesDocumentUnchanged(t *testing.T) {
	for _, scope := range []SearchScope{ScopeLine, ScopeForward} {
		t.Run(string(scope), func(t *testing.T) {
			s, path := openText(t, fiveLines)
			_, err := NewExecutor(NewResolver(scope)).Apply(s, InsertOp(" [done]", AtLineTarget(3, "FIXME", After)))
			require.Error(t, err)
			assert.True(t, IsNotFound(err))

			var e *Error
			require.True(t, stdErrors.As(err, &e))
			assert.Equal(t, 3, e.Line)
			assert.Equal(t, "FIXME", e.Target)
			assert.Contains(t, err.Error(), "line 3")
			assert.Contains(t, err.Error(), `"FIXME"`)

			assert.Zero(t, s.saves)
			assert.False(t, s.Modified())
			assert.Equal(t, fiveLines, readFile(t, path))
		})
	}
}

func TestSearchScope(t *testing.T) {
	loc := AtLineTarget(2, "hello", Before)

	s, _ := openText(t, fiveLines)
	pos, err := NewResolver(ScopeForward).Resolve(s, loc)
	require.NoError(t, err)
	assert.Equal(t, document.Position{Line: 5, Column: 0}, pos)

	s, _ = openText(t, fiveLines)
	_, err = NewResolver(ScopeLine).Resolve(s, loc)
	assert.True(t, IsNotFound(err))
}

func TestSearchNeverWraps(t *testing.T) {
	s, _ := openText(t, fiveLines)
	_, err := NewResolver(ScopeForward).Resolve(s, AtLineTarget(4, "intro", Before))
	assert.True(t, IsNotFound(err))
}

func TestResolveAfterAdvancesByTargetLength(t *testing.T) {
	s, _ := openText(t, "价格：一百元\n")
	pos, err := NewResolver("").Resolve(s, AtLineTarget(1, "一百", After))
	require.NoError(t, err)
	assert.Equal(t, document.Position{Line: 1, Column: 5}, pos)
}

func TestResolveValidation(t *testing.T) {
	tests := []struct {
		name string
		loc  Location
		want string
	}{
		{"empty target", AtLineTarget(1, "", Before), "search text must not be empty"},
		{"zero line", AtLineTarget(0, "x", Before), "positive integer"},
		{"line past end", AtLineTarget(9, "x", Before), "line 9 is out of range, document has 5 lines"},
		{"unknown kind", Location{}, "unknown location kind"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := openText(t, fiveLines)
			_, err := NewResolver(ScopeForward).Resolve(s, tt.loc)
			require.Error(t, err)
			assert.True(t, IsValidation(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReplaceRoundTrip(t *testing.T) {
	s, path := openText(t, fiveLines)
	x := NewExecutor(nil)

	msg, err := x.Apply(s, ReplaceOp(5, "world", "there"))
	require.NoError(t, err)
	assert.Equal(t, "line 5 occurrence replaced", msg)

	changed := readFile(t, path)
	assert.Equal(t, strings.Replace(fiveLines, "Hello world", "Hello there", 1), changed)

	_, err = x.Apply(s, ReplaceOp(5, "there", "world"))
	require.NoError(t, err)
	assert.Equal(t, fiveLines, readFile(t, path))
}

func TestReplaceOnlyFirstOccurrenceCaseSensitive(t *testing.T) {
	s, path := openText(t, "a World world world\n")
	_, err := NewExecutor(nil).Apply(s, ReplaceOp(1, "world", "X"))
	require.NoError(t, err)
	assert.Equal(t, "a World X world\n", readFile(t, path))
}

func TestReplaceIsLineScoped(t *testing.T) {
	s, path := openText(t, fiveLines)
	_, err := NewExecutor(nil).Apply(s, ReplaceOp(4, "world", "there"))
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, `no match for "world" on line 4`, err.Error())
	assert.Zero(t, s.saves)
	assert.Equal(t, fiveLines, readFile(t, path))
}

func TestReplaceValidation(t *testing.T) {
	tests := []struct {
		name string
		op   Operation
	}{
		{"empty target", ReplaceOp(1, "", "x")},
		{"line break in replacement", ReplaceOp(1, "intro", "a\nb")},
		{"line out of range", ReplaceOp(6, "intro", "x")},
		{"negative line", ReplaceOp(-1, "intro", "x")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, path := openText(t, fiveLines)
			_, err := NewExecutor(nil).Apply(s, tt.op)
			require.Error(t, err)
			assert.True(t, IsValidation(err))
			assert.Zero(t, s.saves)
			assert.Equal(t, fiveLines, readFile(t, path))
		})
	}
}

func TestApplyRejectsUnknownOperation(t *testing.T) {
	s, _ := openText(t, fiveLines)
	_, err := NewExecutor(nil).Apply(s, Operation{Kind: OpKind(42)})
	assert.True(t, IsValidation(err))

	_, err = NewExecutor(nil).Apply(s, InsertOp("x", Location{Kind: LocationKind(9)}))
	assert.True(t, IsValidation(err))

	_, err = NewExecutor(nil).Apply(s, InsertOp("", AtEnd()))
	assert.True(t, IsValidation(err))
	assert.Zero(t, s.saves)
}

func TestApplySaveFailureIsAutomationError(t *testing.T) {
	s, _ := openText(t, fiveLines)
	s.SaveFunc = func() error { return stdErrors.New("disk full") }

	_, err := NewExecutor(nil).Apply(s, InsertOp("x", AtEnd()))
	require.Error(t, err)
	assert.Equal(t, KindAutomation, KindOf(err))
	assert.Contains(t, err.Error(), "disk full")
}
