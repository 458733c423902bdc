package reference

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/doclibre/ragline/internal/model"
)

func TestFormatPlain(t *testing.T) {
	f := NewFormatter(Options{})
	refs := []model.Reference{
		{Document: "report.pdf", Page: 3},
		{Document: "guide.md", Heading: "Setup"},
		{Document: "notes.docx"},
	}
	got := f.Format(refs)
	want := "\n- report.pdf page: 3" +
		"\n- guide.md heading: Setup" +
		"\n- notes.docx"
	assert.Equal(t, want, got)
}

func TestFormatWeblinkRewrite(t *testing.T) {
	f := NewFormatter(Options{
		Rewrite:   true,
		KeyPrefix: "website",
		URLPrefix: "https://internal-site.us",
		KeySuffix: ".md",
		URLSuffix: ".html",
	})
	refs := []model.Reference{
		{Document: "website/report.md"},
		{Document: "website/guide.md", Heading: "Getting Started"},
		{Document: "archive/old.pdf", Page: 7},
	}
	got := f.Format(refs)
	want := "\n- https://internal-site.us/report.html" +
		"\n- https://internal-site.us/guide.html#Getting%20Started" +
		"\n- archive/old.pdf page: 7"
	assert.Equal(t, want, got)
}

func TestFormatEmpty(t *testing.T) {
	f := NewFormatter(Options{})
	assert.Empty(t, f.Format(nil))
}
