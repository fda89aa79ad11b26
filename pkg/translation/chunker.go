package translation

import (
	"strings"
	"unicode/utf8"
)

// ParagraphSeparator 段落分隔符：一个空行
const ParagraphSeparator = "\n\n"

// DefaultChunkSize 默认分块上限（码点）
const DefaultChunkSize = 5000

// ParagraphChunker 按段落把文本打包成不超过上限的分块
//
// 分块边界只落在段落之间；按序拼接全部分块可得到原文，不增不减。
type ParagraphChunker struct {
	maxSize int
}

// NewParagraphChunker 创建分块器，maxSize 以码点计
func NewParagraphChunker(maxSize int) (*ParagraphChunker, error) {
	if maxSize <= 0 {
		return nil, ErrInvalidChunkSize
	}
	return &ParagraphChunker{maxSize: maxSize}, nil
}

// MaxSize 返回分块上限
func (c *ParagraphChunker) MaxSize() int {
	return c.maxSize
}

// Chunk 将文本分块
//
// 任一段落（含其后的分隔符）单独超过上限时返回 *ChunkOverflowError，不做截断。
// 空文本返回空序列。
func (c *ParagraphChunker) Chunk(text string) ([]string, error) {
	if text == "" {
		return []string{}, nil
	}

	paragraphs := SplitParagraphs(text)
	for i, p := range paragraphs {
		if size := utf8.RuneCountInString(p); size > c.maxSize {
			return nil, &ChunkOverflowError{Paragraph: i + 1, Size: size, MaxSize: c.maxSize}
		}
	}

	var chunks []string
	var current strings.Builder
	currentSize := 0

	for _, p := range paragraphs {
		size := utf8.RuneCountInString(p)
		if currentSize+size > c.maxSize {
			chunks = append(chunks, current.String())
			current.Reset()
			currentSize = 0
		}
		current.WriteString(p)
		currentSize += size
	}
	chunks = append(chunks, current.String())

	return chunks, nil
}

// SplitParagraphs 按空行切分文本，除最后一段外每段都带上分隔符
//
// 连续多个空行会产生只含分隔符的段落，保证拼接后与原文一致。
func SplitParagraphs(text string) []string {
	parts := strings.Split(text, ParagraphSeparator)
	for i := 0; i < len(parts)-1; i++ {
		parts[i] += ParagraphSeparator
	}
	return parts
}

// CodepointLength 文本长度（码点）
func CodepointLength(text string) int {
	return utf8.RuneCountInString(text)
}
