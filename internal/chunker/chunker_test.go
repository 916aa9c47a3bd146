package chunker

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDefault(t *testing.T) *Chunker {
	t.Helper()
	c, err := New(DefaultSize, DefaultOverlap)
	require.NoError(t, err)
	return c
}

// sentences builds text of n distinct sentences.
func sentences(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString("Sentence number ")
		b.WriteString(strings.Repeat("x", i%7+1))
		b.WriteString(" talks about topic ")
		b.WriteString(string(rune('a' + i%26)))
		b.WriteString(".")
	}
	return b.String()
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name          string
		size, overlap int
		wantErr       bool
	}{
		{"defaults", 800, 120, false},
		{"no overlap", 100, 0, false},
		{"zero size", 0, 0, true},
		{"negative overlap", 100, -1, true},
		{"overlap equals size", 100, 100, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.size, tt.overlap)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.size, c.Size())
			assert.Equal(t, tt.overlap, c.Overlap())
		})
	}
}

func TestSplit_EmptyInput(t *testing.T) {
	c := newDefault(t)

	chunks, err := c.Split(nil)
	require.NoError(t, err)
	assert.NotNil(t, chunks)
	assert.Empty(t, chunks)

	chunks, err = c.Split([]Document{{Content: "  \n\n ", Source: "blank.txt"}})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplit_ShortDocumentsOneChunkEach(t *testing.T) {
	c := newDefault(t)
	docs := []Document{
		{Content: "The sky is blue.", Source: "/data/notes.txt"},
		{Content: "Grass is green.", Source: "/data/plants.md"},
		{Content: strings.Repeat("a", DefaultSize-DefaultOverlap-1), Source: "/data/long.txt"},
	}

	chunks, err := c.Split(docs)
	require.NoError(t, err)
	require.Len(t, chunks, len(docs))
	for i, ch := range chunks {
		assert.Equal(t, docs[i].Source, ch.Source)
		assert.Equal(t, 0, ch.Index)
	}
	assert.Equal(t, "The sky is blue.", chunks[0].Content)
}

func TestSplit_LongDocumentRespectsSize(t *testing.T) {
	c := newDefault(t)
	text := sentences(120)
	require.Greater(t, len(text), DefaultSize)

	chunks, err := c.Split([]Document{{Content: text, Source: "big.txt"}})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i, ch := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(ch.Content), DefaultSize)
		assert.Equal(t, "big.txt", ch.Source)
		assert.Equal(t, i, ch.Index)
	}
}

func TestSplit_ConsecutiveChunksOverlap(t *testing.T) {
	c, err := New(100, 40)
	require.NoError(t, err)

	words := make([]string, 80)
	for i := range words {
		words[i] = fmt.Sprintf("w%03d", i)
	}
	chunks, err := c.Split([]Document{{Content: strings.Join(words, " "), Source: "w.txt"}})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 2)

	for i := 1; i < len(chunks); i++ {
		prev := strings.Fields(chunks[i-1].Content)
		first := strings.Fields(chunks[i].Content)[0]
		assert.Contains(t, prev[1:], first, "chunk %d should start inside chunk %d", i, i-1)
	}
}

func TestSplit_PrefersParagraphBreaks(t *testing.T) {
	c, err := New(60, 10)
	require.NoError(t, err)

	para1 := "First paragraph talks about apples and pears."
	para2 := "Second paragraph talks about rivers and lakes."
	chunks, err := c.Split([]Document{{Content: para1 + "\n\n" + para2, Source: "p.md"}})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, para1, chunks[0].Content)
	assert.Equal(t, para2, chunks[1].Content)
}

func TestSplit_UnbrokenTextFallsBackToCharacters(t *testing.T) {
	c, err := New(50, 10)
	require.NoError(t, err)

	chunks, err := c.Split([]Document{{Content: strings.Repeat("z", 200), Source: "z.txt"}})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 3)
	for _, ch := range chunks {
		assert.LessOrEqual(t, len(ch.Content), 50)
	}
}

func TestSplit_MultipleSourcesKeepOrder(t *testing.T) {
	c, err := New(100, 20)
	require.NoError(t, err)

	chunks, err := c.Split([]Document{
		{Content: sentences(10), Source: "a.txt"},
		{Content: "tiny", Source: "b.txt"},
	})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 2)

	last := chunks[len(chunks)-1]
	assert.Equal(t, "b.txt", last.Source)
	assert.Equal(t, "tiny", last.Content)
	for _, ch := range chunks[:len(chunks)-1] {
		assert.Equal(t, "a.txt", ch.Source)
	}
}
