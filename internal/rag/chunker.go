package rag

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 150
)

// A unit ends at one or more terminators; trailing text without one is its own unit.
// Terminators with no text before them (leading "...", a bare "?!") still form a unit.
var sentenceRe = regexp.MustCompile(`[^.!?]*[.!?]+|[^.!?]+$`)

// ChunkText splits text into sentence-aligned chunks of roughly targetChunkSize
// characters. Each chunk after the first starts with the last overlap characters
// of the previous one. Sentences are never split, so one long sentence can
// produce a chunk above the target.
func ChunkText(text string, targetChunkSize, overlap int) []string {
	if targetChunkSize <= 0 {
		targetChunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}

	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return nil
	}

	var chunks []string
	var buf strings.Builder
	bufLen := 0
	for _, sentence := range sentenceRe.FindAllString(normalized, -1) {
		sentenceLen := utf8.RuneCountInString(sentence)
		if bufLen+sentenceLen > targetChunkSize && bufLen > 0 {
			chunk := strings.TrimSpace(buf.String())
			chunks = append(chunks, chunk)

			seed := lastRunes(chunk, overlap)
			buf.Reset()
			buf.WriteString(seed)
			bufLen = utf8.RuneCountInString(seed)
		}
		buf.WriteString(sentence)
		bufLen += sentenceLen
	}
	if rest := strings.TrimSpace(buf.String()); rest != "" {
		chunks = append(chunks, rest)
	}
	return chunks
}

func lastRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
