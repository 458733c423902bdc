package extract

import (
	"context"
	"time"

	"github.com/doclibre/ragline/internal/model"
	appErr "github.com/doclibre/ragline/internal/pkg/errors"
)

// Content is the format-independent result of text extraction. Pages is set
// only for paginated formats; Date is zero when the format carries no
// creation metadata (callers fall back to the store's modified time).
type Content struct {
	Text  string
	Pages []string
	Date  time.Time
}

type Extractor interface {
	Extract(ctx context.Context, data []byte) (*Content, error)
}

// ForFormat selects the extractor for a document format.
func ForFormat(format model.Format) (Extractor, error) {
	switch format {
	case model.FormatMarkdown:
		return markdownExtractor{}, nil
	case model.FormatDocx:
		return docxExtractor{}, nil
	case model.FormatPDF:
		return NewPDFExtractor(), nil
	default:
		return nil, appErr.ErrUnsupportedFormat
	}
}

type markdownExtractor struct{}

func (markdownExtractor) Extract(ctx context.Context, data []byte) (*Content, error) {
	_ = ctx
	return &Content{Text: string(data)}, nil
}
