package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"strings"
	"time"

	appErr "github.com/doclibre/ragline/internal/pkg/errors"
)

type docxExtractor struct{}

type docxBody struct {
	Paragraphs []docxParagraph `xml:"body>p"`
}

type docxParagraph struct {
	Runs []docxRun `xml:"r"`
}

type docxRun struct {
	Text []string `xml:"t"`
}

type docxCoreProps struct {
	Created string `xml:"created"`
}

// Extract pulls paragraph text out of word/document.xml and the creation
// date out of docProps/core.xml. Tables and headers are not walked; the
// paragraph stream is what gets indexed.
func (docxExtractor) Extract(ctx context.Context, data []byte) (*Content, error) {
	_ = ctx
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, appErr.ErrInvalid
	}
	text, err := docxDocumentText(reader)
	if err != nil {
		return nil, err
	}
	content := &Content{Text: text}
	if created, ok := docxCreatedDate(reader); ok {
		content.Date = created
	}
	return content, nil
}

func docxDocumentText(reader *zip.Reader) (string, error) {
	raw, err := readZipFile(reader, "word/document.xml")
	if err != nil {
		return "", err
	}
	var body docxBody
	if err := xml.Unmarshal(raw, &body); err != nil {
		return "", appErr.ErrInvalid
	}
	var sb strings.Builder
	for _, para := range body.Paragraphs {
		for _, run := range para.Runs {
			for _, t := range run.Text {
				sb.WriteString(t)
			}
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func docxCreatedDate(reader *zip.Reader) (time.Time, bool) {
	raw, err := readZipFile(reader, "docProps/core.xml")
	if err != nil {
		return time.Time{}, false
	}
	var props docxCoreProps
	if err := xml.Unmarshal(raw, &props); err != nil {
		return time.Time{}, false
	}
	created, err := time.Parse(time.RFC3339, strings.TrimSpace(props.Created))
	if err != nil {
		return time.Time{}, false
	}
	return created, true
}

func readZipFile(reader *zip.Reader, name string) ([]byte, error) {
	for _, f := range reader.File {
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
	return nil, appErr.ErrNotFound
}
