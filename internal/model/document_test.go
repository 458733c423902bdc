package model

import (
	"testing"

	"github.com/stretchr/testify/assert"

	appErr "github.com/doclibre/ragline/internal/pkg/errors"
)

func TestFormatForKey(t *testing.T) {
	tests := []struct {
		key  string
		want Format
	}{
		{"report.md", FormatMarkdown},
		{"docs/README.markdown", FormatMarkdown},
		{"scan.PDF", FormatPDF},
		{"minutes.docx", FormatDocx},
	}
	for _, tt := range tests {
		got, err := FormatForKey(tt.key)
		assert.NoError(t, err, tt.key)
		assert.Equal(t, tt.want, got, tt.key)
	}
}

func TestFormatForKeyUnsupported(t *testing.T) {
	for _, key := range []string{"archive.tar.gz", "image.png", "noext", "legacy.doc"} {
		_, err := FormatForKey(key)
		assert.ErrorIs(t, err, appErr.ErrUnsupportedFormat, key)
	}
}

func TestSupportedKey(t *testing.T) {
	assert.True(t, SupportedKey("a.md"))
	assert.False(t, SupportedKey("a.txt"))
}
