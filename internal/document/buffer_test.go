package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferEmptyHasOneLine(t *testing.T) {
	b := newBuffer(nil)
	assert.Equal(t, 1, b.LineCount())
	assert.Equal(t, "", b.Text())
}

func TestBufferGotoLine(t *testing.T) {
	b := newBuffer([]string{"a", "b", "c"})

	require.NoError(t, b.GotoLine(3))
	assert.Equal(t, Position{Line: 3, Column: 0}, b.Cursor())

	assert.ErrorIs(t, b.GotoLine(0), ErrLineOutOfRange)
	assert.ErrorIs(t, b.GotoLine(4), ErrLineOutOfRange)
	assert.Equal(t, Position{Line: 3, Column: 0}, b.Cursor(), "failed goto must not move the cursor")
}

func TestBufferGotoEnd(t *testing.T) {
	b := newBuffer([]string{"first", "last line"})
	b.GotoEnd()
	assert.Equal(t, Position{Line: 2, Column: 9}, b.Cursor())
}

func TestBufferFind(t *testing.T) {
	tests := []struct {
		name    string
		lines   []string
		from    int
		text    string
		opts    FindOptions
		want    Position
		wantHit bool
	}{
		{"case-insensitive on the same line", []string{"Hello World"}, 1, "world", FindOptions{}, Position{1, 6}, true},
		{"match case misses", []string{"Hello World"}, 1, "world", FindOptions{MatchCase: true}, Position{}, false},
		{"continues to later lines", []string{"alpha", "beta", "gamma"}, 1, "GAM", FindOptions{}, Position{3, 0}, true},
		{"never looks backwards", []string{"target", "other"}, 2, "target", FindOptions{}, Position{}, false},
		{"line only stops at line end", []string{"alpha", "beta"}, 1, "beta", FindOptions{LineOnly: true}, Position{}, false},
		{"whole word skips partial", []string{"concat cat"}, 1, "cat", FindOptions{WholeWord: true}, Position{1, 7}, true},
		{"whole word rejects embedded", []string{"concatenate"}, 1, "cat", FindOptions{WholeWord: true}, Position{}, false},
		{"multibyte columns are runes", []string{"你好，世界"}, 1, "世界", FindOptions{}, Position{1, 3}, true},
		{"does not span lines", []string{"foo", "bar"}, 1, "foobar", FindOptions{}, Position{}, false},
		{"empty needle", []string{"foo"}, 1, "", FindOptions{}, Position{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBuffer(tt.lines)
			require.NoError(t, b.GotoLine(tt.from))
			before := b.Cursor()

			got, ok := b.Find(tt.text, tt.opts)
			assert.Equal(t, tt.wantHit, ok)
			if tt.wantHit {
				assert.Equal(t, tt.want, got)
				assert.Equal(t, tt.want, b.Cursor())
			} else {
				assert.Equal(t, before, b.Cursor(), "a miss must not move the cursor")
			}
		})
	}
}

func TestBufferFindFromCursorColumn(t *testing.T) {
	b := newBuffer([]string{"ab ab"})
	_, ok := b.Find("ab", FindOptions{})
	require.True(t, ok)
	b.MoveRight(1)

	pos, ok := b.Find("ab", FindOptions{})
	require.True(t, ok)
	assert.Equal(t, Position{Line: 1, Column: 3}, pos)
}

func TestBufferMoveRight(t *testing.T) {
	b := newBuffer([]string{"ab", "c"})
	assert.Equal(t, 2, b.MoveRight(2))
	assert.Equal(t, Position{1, 2}, b.Cursor())

	assert.Equal(t, 1, b.MoveRight(1))
	assert.Equal(t, Position{2, 0}, b.Cursor())

	assert.Equal(t, 1, b.MoveRight(5), "stops at the end of the document")
	assert.Equal(t, Position{2, 1}, b.Cursor())
}

func TestBufferWriteLine(t *testing.T) {
	b := newBuffer([]string{"one", "two"})

	require.NoError(t, b.WriteLine(2, "TWO"))
	assert.Equal(t, "one\nTWO", b.Text())
	assert.True(t, b.Modified())
	assert.True(t, b.lines[1].dirty)
	assert.False(t, b.lines[0].dirty)

	assert.ErrorIs(t, b.WriteLine(3, "x"), ErrLineOutOfRange)
	assert.ErrorIs(t, b.WriteLine(1, "a\nb"), ErrLineBreak)
}

func TestBufferWriteLineUnchangedIsClean(t *testing.T) {
	b := newBuffer([]string{"same"})
	require.NoError(t, b.WriteLine(1, "same"))
	assert.False(t, b.Modified())
	assert.False(t, b.lines[0].dirty)
}

func TestBufferInsertParagraphBreak(t *testing.T) {
	t.Run("at line start keeps the original line clean", func(t *testing.T) {
		b := newBuffer([]string{"first", "second"})
		require.NoError(t, b.InsertParagraphBreak())

		assert.Equal(t, []string{"", "first", "second"}, b.texts())
		assert.Equal(t, Position{2, 0}, b.Cursor())
		assert.True(t, b.lines[0].dirty)
		assert.False(t, b.lines[1].dirty)
		assert.Equal(t, 0, b.lines[0].origin)
		assert.True(t, b.lines[0].fresh)
		assert.False(t, b.lines[1].fresh)
	})

	t.Run("at line end adds a line after", func(t *testing.T) {
		b := newBuffer([]string{"first", "second"})
		b.GotoEnd()
		require.NoError(t, b.InsertParagraphBreak())

		assert.Equal(t, []string{"first", "second", ""}, b.texts())
		assert.Equal(t, Position{3, 0}, b.Cursor())
		assert.False(t, b.lines[1].dirty)
		assert.True(t, b.lines[2].dirty)
	})

	t.Run("mid line splits", func(t *testing.T) {
		b := newBuffer([]string{"helloworld"})
		b.MoveRight(5)
		require.NoError(t, b.InsertParagraphBreak())

		assert.Equal(t, []string{"hello", "world"}, b.texts())
		assert.Equal(t, Position{2, 0}, b.Cursor())
		assert.True(t, b.lines[0].dirty)
		assert.True(t, b.lines[1].dirty)
		assert.Equal(t, []int{0, 1, 2, 3, 4}, b.lines[0].src)
		assert.Equal(t, []int{5, 6, 7, 8, 9}, b.lines[1].src)
		assert.False(t, b.lines[1].fresh)
	})
}

func TestBufferTracksSourceRunes(t *testing.T) {
	t.Run("write line keeps common prefix and suffix", func(t *testing.T) {
		b := newBuffer([]string{"Hello link world"})
		require.NoError(t, b.WriteLine(1, "Hello site world"))
		assert.Equal(t, []int{0, 1, 2, 3, 4, 5, -1, -1, -1, -1, 10, 11, 12, 13, 14, 15}, b.lines[0].src)
	})

	t.Run("write line with nothing in common", func(t *testing.T) {
		b := newBuffer([]string{"abc"})
		require.NoError(t, b.WriteLine(1, "xyz"))
		assert.Equal(t, []int{-1, -1, -1}, b.lines[0].src)
	})

	t.Run("insert marks typed runes", func(t *testing.T) {
		b := newBuffer([]string{"ab"})
		b.MoveRight(1)
		require.NoError(t, b.InsertText("xy"))
		assert.Equal(t, []int{0, -1, -1, 1}, b.lines[0].src)
	})

	t.Run("split of a fresh line stays fresh", func(t *testing.T) {
		b := newBuffer([]string{"ab"})
		b.GotoEnd()
		require.NoError(t, b.InsertText("\ncd"))
		require.NoError(t, b.GotoLine(2))
		b.MoveRight(1)
		require.NoError(t, b.InsertParagraphBreak())

		assert.Equal(t, []string{"ab", "c", "d"}, b.texts())
		assert.False(t, b.lines[0].fresh)
		assert.True(t, b.lines[1].fresh)
		assert.True(t, b.lines[2].fresh)
		assert.Equal(t, []int{-1}, b.lines[2].src)
	})
}

func TestCommonAffixes(t *testing.T) {
	prefix, suffix := commonAffixes([]rune("aaa"), []rune("aa"))
	assert.Equal(t, 2, prefix)
	assert.Equal(t, 0, suffix)

	prefix, suffix = commonAffixes([]rune("one two"), []rune("one 2 two"))
	assert.Equal(t, 4, prefix)
	assert.Equal(t, 3, suffix)
}

func TestBufferInsertText(t *testing.T) {
	b := newBuffer([]string{"Hello world"})
	b.MoveRight(5)
	require.NoError(t, b.InsertText(","))
	assert.Equal(t, "Hello, world", b.Text())
	assert.Equal(t, Position{1, 6}, b.Cursor())
}

func TestBufferInsertTextWithNewlines(t *testing.T) {
	b := newBuffer([]string{"ab"})
	b.MoveRight(1)
	require.NoError(t, b.InsertText("1\r\n2\n3"))
	assert.Equal(t, []string{"a1", "2", "3b"}, b.texts())
	assert.Equal(t, Position{3, 1}, b.Cursor())
}

func TestBufferClosedRejectsMutation(t *testing.T) {
	b := newBuffer([]string{"x"})
	b.closed = true
	assert.ErrorIs(t, b.InsertText("y"), ErrSessionClosed)
	assert.ErrorIs(t, b.InsertParagraphBreak(), ErrSessionClosed)
	assert.ErrorIs(t, b.WriteLine(1, "y"), ErrSessionClosed)
}
