package translation

import (
	"errors"
	"math/rand"
	"reflect"
	"strings"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParagraphChunkerScenarios(t *testing.T) {
	chunker, err := NewParagraphChunker(5000)
	require.NoError(t, err)

	t.Run("two paragraphs split in two chunks", func(t *testing.T) {
		first := strings.Repeat("a", 3000)
		second := strings.Repeat("b", 4000)
		chunks, err := chunker.Chunk(first + "\n\n" + second)
		require.NoError(t, err)
		require.Len(t, chunks, 2)
		assert.Equal(t, first+"\n\n", chunks[0])
		assert.Equal(t, 3002, CodepointLength(chunks[0]))
		assert.Equal(t, second, chunks[1])
	})

	t.Run("oversized paragraph", func(t *testing.T) {
		_, err := chunker.Chunk("short\n\n" + strings.Repeat("x", 6000))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrChunkOverflow))

		var overflow *ChunkOverflowError
		require.ErrorAs(t, err, &overflow)
		assert.Equal(t, 2, overflow.Paragraph)
		assert.Equal(t, 6000, overflow.Size)
		assert.Equal(t, 5000, overflow.MaxSize)
		assert.Contains(t, err.Error(), "paragraph 2 has 6000 codepoints")
	})

	t.Run("codepoints not bytes", func(t *testing.T) {
		// 3000 个汉字约 9000 字节，但只算 3000 个码点
		para := strings.Repeat("中", 3000)
		chunks, err := chunker.Chunk(para)
		require.NoError(t, err)
		assert.Equal(t, []string{para}, chunks)
	})

	t.Run("empty text", func(t *testing.T) {
		chunks, err := chunker.Chunk("")
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})
}

func TestParagraphChunkerPacking(t *testing.T) {
	chunker, err := NewParagraphChunker(10)
	require.NoError(t, err)

	chunks, err := chunker.Chunk("aaa\n\nbbb\n\ncccccccc\n\nd")
	require.NoError(t, err)
	assert.Equal(t, []string{"aaa\n\nbbb\n\n", "cccccccc\n\n", "d"}, chunks)
}

func TestParagraphChunkerSeparatorCountsTowardsLimit(t *testing.T) {
	chunker, err := NewParagraphChunker(4)
	require.NoError(t, err)

	// "abc\n\n" 共 5 个码点
	_, err = chunker.Chunk("abc\n\nd")
	var overflow *ChunkOverflowError
	require.ErrorAs(t, err, &overflow)
	assert.Equal(t, 1, overflow.Paragraph)
	assert.Equal(t, 5, overflow.Size)
}

func TestNewParagraphChunkerRejectsNonPositive(t *testing.T) {
	for _, size := range []int{0, -1} {
		_, err := NewParagraphChunker(size)
		assert.ErrorIs(t, err, ErrInvalidChunkSize)
	}
}

func TestSplitParagraphs(t *testing.T) {
	assert.Equal(t, []string{"a"}, SplitParagraphs("a"))
	assert.Equal(t, []string{"a\n\n", "b"}, SplitParagraphs("a\n\nb"))
	assert.Equal(t, []string{"a\n\n", "\n\n", "b"}, SplitParagraphs("a\n\n\n\nb"))
	assert.Equal(t, []string{"a\n\n", ""}, SplitParagraphs("a\n\n"))
}

type paragraphText string

func (paragraphText) Generate(rnd *rand.Rand, size int) reflect.Value {
	pieces := []string{"word ", "句子。", "\n", "\n\n", "@3@ ", "x"}
	var b strings.Builder
	n := rnd.Intn(size*2 + 1)
	for i := 0; i < n; i++ {
		b.WriteString(pieces[rnd.Intn(len(pieces))])
	}
	return reflect.ValueOf(paragraphText(b.String()))
}

func TestChunkLosslessAndBoundedProperty(t *testing.T) {
	property := func(text paragraphText, size uint8) bool {
		maxSize := int(size)%64 + 1
		chunker, err := NewParagraphChunker(maxSize)
		if err != nil {
			return false
		}
		chunks, err := chunker.Chunk(string(text))
		if err != nil {
			// 只有存在超长段落时才允许失败
			var overflow *ChunkOverflowError
			return errors.As(err, &overflow) && overflow.Size > maxSize
		}
		for _, c := range chunks {
			if CodepointLength(c) > maxSize {
				return false
			}
		}
		return strings.Join(chunks, "") == string(text)
	}

	require.NoError(t, quick.Check(property, &quick.Config{MaxCount: 500}))
}
