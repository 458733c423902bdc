package chunker

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/doclibre/ragline/internal/model"
)

// SplitHeadings cuts markdown into sections, preferring boundaries at
// headings so a chunk never straddles one. Each chunk is tagged with the
// nearest preceding heading. No overlap; oversized blocks between headings
// fall back to plain splitting.
func (s *Splitter) SplitHeadings(document, markdown string) []model.Chunk {
	md := goldmark.New()
	reader := text.NewReader([]byte(markdown))
	doc := md.Parser().Parse(reader)

	plain := Splitter{Size: s.Size}

	var chunks []model.Chunk
	var current []string
	var currentLen int
	var heading string
	section := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		body := strings.Join(current, " ")
		for _, part := range plain.Split(body) {
			section++
			chunks = append(chunks, model.Chunk{
				Document: document,
				Section:  section,
				Text:     part,
				Heading:  heading,
			})
		}
		current = nil
		currentLen = 0
	}

	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		switch n := node.(type) {
		case *ast.Heading:
			flush()
			heading = string(n.Text(reader.Source()))
			txt := normalize(heading)
			if txt != "" {
				current = append(current, txt)
				currentLen += len(txt)
			}
		default:
			txt := normalize(blockText(node, reader.Source()))
			if txt == "" {
				continue
			}
			if currentLen+len(txt) > s.Size {
				flush()
			}
			current = append(current, txt)
			currentLen += len(txt)
		}
	}
	flush()
	return chunks
}

func blockText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if node.Kind() == ast.KindText {
			sb.Write(node.(*ast.Text).Segment.Value(source))
			sb.WriteByte(' ')
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
