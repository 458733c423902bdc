package summarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/doclibre/ragline/internal/ai"
	"github.com/doclibre/ragline/internal/chunker"
)

const defaultRefusalMarker = "Sorry - this model is unable to"

// Options tunes the compression loop. CoarseSize is deliberately much larger
// than the indexing chunk size; one round compresses each coarse chunk down
// to at most MaxSentences sentences.
type Options struct {
	CoarseSize    int
	CoarseOverlap int
	MaxSentences  int
	RefusalMarker string
}

func (o Options) withDefaults() Options {
	if o.CoarseSize <= 0 {
		o.CoarseSize = 15000
	}
	if o.CoarseOverlap < 0 {
		o.CoarseOverlap = 100
	}
	if o.MaxSentences <= 0 {
		o.MaxSentences = 4
	}
	if o.RefusalMarker == "" {
		o.RefusalMarker = defaultRefusalMarker
	}
	return o
}

// Summarizer compresses document text through repeated LLM rounds until it
// fits a target length.
type Summarizer struct {
	gen  ai.IGenerator
	opts Options
}

func New(gen ai.IGenerator, opts Options) *Summarizer {
	return &Summarizer{gen: gen, opts: opts.withDefaults()}
}

// Summarize loops until len(text) <= targetMax. Input already under the
// target is returned unchanged with no model calls. A chunk whose output
// contains the refusal marker is dropped from the round, which loses its
// content; a round that produces nothing at all terminates the loop with an
// empty summary rather than spinning on a zero-length comparison.
func (s *Summarizer) Summarize(ctx context.Context, text string, targetMax int) (string, error) {
	logger := logutil.GetLogger(ctx)
	if targetMax <= 0 {
		return "", fmt.Errorf("target max length must be positive, got %d", targetMax)
	}
	coarse := chunker.New(s.opts.CoarseSize, s.opts.CoarseOverlap)

	round := 0
	for len(text) > targetMax {
		round++
		sections := coarse.Split(text)
		if len(sections) == 0 {
			return "", nil
		}
		var sb strings.Builder
		refused := 0
		for _, section := range sections {
			prompt := fmt.Sprintf(
				"The following is a document:\n%s\nSummarize the key points of the document in no more than %d sentences.",
				section, s.opts.MaxSentences,
			)
			out, err := s.gen.Generate(ctx, prompt)
			if err != nil {
				return "", fmt.Errorf("summarize round %d: %w", round, err)
			}
			if strings.Contains(out, s.opts.RefusalMarker) {
				refused++
				logger.Warn("model refused summary chunk",
					zap.Int("round", round),
					zap.Int("section_length", len(section)),
				)
				continue
			}
			sb.WriteString(out)
			sb.WriteString(" ")
		}
		next := strings.TrimSpace(sb.String())
		logger.Info("summarization round finished",
			zap.Int("round", round),
			zap.Int("sections", len(sections)),
			zap.Int("refused", refused),
			zap.Int("before", len(text)),
			zap.Int("after", len(next)),
		)
		if next == "" {
			return "", nil
		}
		text = next
	}
	return text, nil
}
