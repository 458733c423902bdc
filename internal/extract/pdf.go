package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ErrPDFToolNotFound is returned when poppler's pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH (install poppler-utils)")

// CommandRunner abstracts subprocess execution so tests can stub pdftotext.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

type pdfExtractor struct {
	runner CommandRunner
}

func NewPDFExtractor() *pdfExtractor {
	return &pdfExtractor{runner: execRunner{}}
}

func NewPDFExtractorWithRunner(runner CommandRunner) *pdfExtractor {
	return &pdfExtractor{runner: runner}
}

// CheckPDFAvailable reports whether the pdftotext binary is installed.
func CheckPDFAvailable() error {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// Extract shells out to pdftotext and splits the output on form feeds, one
// segment per page. The creation date comes from pdfinfo when available.
func (e *pdfExtractor) Extract(ctx context.Context, data []byte) (*Content, error) {
	tmp, err := writeTempPDF(data)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp)

	out, err := e.runner.Run(ctx, "pdftotext", "-enc", "UTF-8", tmp, "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	pages := strings.Split(strings.TrimRight(string(out), "\f"), "\f")
	content := &Content{
		Text:  strings.Join(pages, "\n"),
		Pages: pages,
	}
	if date, ok := e.creationDate(ctx, tmp); ok {
		content.Date = date
	}
	return content, nil
}

func (e *pdfExtractor) creationDate(ctx context.Context, path string) (time.Time, bool) {
	out, err := e.runner.Run(ctx, "pdfinfo", "-isodates", path)
	if err != nil {
		return time.Time{}, false
	}
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.HasPrefix(line, "CreationDate:") {
			continue
		}
		value := strings.TrimSpace(strings.TrimPrefix(line, "CreationDate:"))
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
			if t, err := time.Parse(layout, value); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func writeTempPDF(data []byte) (string, error) {
	f, err := os.CreateTemp("", "ragline-*.pdf")
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return filepath.Clean(f.Name()), nil
}
