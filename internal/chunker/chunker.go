package chunker

import (
	"strings"

	"github.com/doclibre/ragline/internal/model"
)

// Splitter cuts raw text into bounded-size sections. Size is a character
// budget; Overlap is the number of trailing characters repeated at the start
// of the next chunk in plain mode. Heading and page modes never overlap.
type Splitter struct {
	Size    int
	Overlap int
}

func New(size, overlap int) *Splitter {
	if size <= 0 {
		size = 512
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	return &Splitter{Size: size, Overlap: overlap}
}

// Split cuts text into plain chunks of at most s.Size characters with
// s.Overlap characters carried between consecutive chunks. Empty input yields
// an empty slice. No chunk is ever empty.
func (s *Splitter) Split(text string) []string {
	text = normalize(text)
	if text == "" {
		return nil
	}
	runes := []rune(text)
	if len(runes) <= s.Size {
		return []string{text}
	}
	step := s.Size - s.Overlap
	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + s.Size
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}

// SplitPages runs one split per page with the section counter carried across
// pages. Page numbers are 1-based; splitter state resets per page, so there
// is no overlap across a page boundary.
func (s *Splitter) SplitPages(document string, pages []string) []model.Chunk {
	page := Splitter{Size: s.Size}
	var chunks []model.Chunk
	section := 0
	for pageNo, text := range pages {
		for _, part := range page.Split(text) {
			section++
			chunks = append(chunks, model.Chunk{
				Document: document,
				Section:  section,
				Text:     part,
				Page:     pageNo + 1,
			})
		}
	}
	return chunks
}

// Chunks wraps Split output into sequenced records for one document.
func (s *Splitter) Chunks(document, text string) []model.Chunk {
	parts := s.Split(text)
	chunks := make([]model.Chunk, 0, len(parts))
	for i, part := range parts {
		chunks = append(chunks, model.Chunk{
			Document: document,
			Section:  i + 1,
			Text:     part,
		})
	}
	return chunks
}

// normalize collapses embedded newlines into single spaces, matching what the
// index stores and what the ranker concatenates.
func normalize(text string) string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == '\r'
	})
	for i, f := range fields {
		fields[i] = strings.TrimRight(f, " \t")
	}
	return strings.TrimSpace(strings.Join(fields, " "))
}
