package model

import (
	"path"
	"strings"
	"time"

	appErr "github.com/doclibre/ragline/internal/pkg/errors"
)

type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatPDF      Format = "pdf"
	FormatDocx     Format = "docx"
)

// Document describes one stored object, identified by its storage key.
type Document struct {
	Key    string    `json:"key"`
	Format Format    `json:"format"`
	Size   int64     `json:"size"`
	Date   time.Time `json:"date"`
}

// FormatForKey maps a storage key to a document format by extension.
func FormatForKey(key string) (Format, error) {
	switch strings.ToLower(path.Ext(key)) {
	case ".md", ".markdown":
		return FormatMarkdown, nil
	case ".pdf":
		return FormatPDF, nil
	case ".docx":
		return FormatDocx, nil
	default:
		return "", appErr.ErrUnsupportedFormat
	}
}

// SupportedKey reports whether the key carries a recognized extension.
func SupportedKey(key string) bool {
	_, err := FormatForKey(key)
	return err == nil
}
