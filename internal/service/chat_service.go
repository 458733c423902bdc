package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/doclibre/ragline/internal/ai"
	"github.com/doclibre/ragline/internal/model"
	"github.com/doclibre/ragline/internal/reference"
	"github.com/doclibre/ragline/internal/retrieve"
)

// Answer is one chat turn. References is empty when the model returned the
// configured blocked sentinel, which must not leak source citations.
type Answer struct {
	Text       string `json:"answer"`
	References string `json:"references,omitempty"`
}

// Options shapes the prompt and the blocked-answer handling. The template's
// {context} and {question} markers are replaced verbatim.
type Options struct {
	PromptTemplate string
	BlockedMessage string
	CacheSize      int
	CacheTTL       time.Duration
	Retrieve       retrieve.Options
}

// ChatService answers free-text questions with retrieved context.
type ChatService struct {
	ranker    *retrieve.Ranker
	gen       ai.IGenerator
	formatter *reference.Formatter
	opts      Options
	cache     *expirable.LRU[string, Answer]
}

func NewChatService(ranker *retrieve.Ranker, gen ai.IGenerator, formatter *reference.Formatter, opts Options) *ChatService {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 1000
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Minute
	}
	return &ChatService{
		ranker:    ranker,
		gen:       gen,
		formatter: formatter,
		opts:      opts,
		cache:     expirable.NewLRU[string, Answer](opts.CacheSize, nil, opts.CacheTTL),
	}
}

// Ask retrieves context for the question, prompts the model with it and
// returns the answer plus a rendered reference block.
func (s *ChatService) Ask(ctx context.Context, question string) (*Answer, error) {
	logger := logutil.GetLogger(ctx)
	key := cacheKey(question)
	if cached, ok := s.cache.Get(key); ok {
		logger.Debug("answer served from cache")
		out := cached
		return &out, nil
	}

	result, err := s.ranker.Retrieve(ctx, question, s.opts.Retrieve)
	if err != nil {
		return nil, err
	}
	prompt := strings.NewReplacer(
		"{context}", result.Context,
		"{question}", question,
	).Replace(s.opts.PromptTemplate)

	text, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	answer := Answer{Text: text}
	if text != s.opts.BlockedMessage {
		answer.References = s.formatter.Format(result.References)
	} else {
		logger.Warn("answer blocked, suppressing references")
	}
	s.cache.Add(key, answer)
	logger.Info("question answered",
		zap.Int("context_length", len(result.Context)),
		zap.Int("references", len(result.References)),
		zap.Bool("blocked", text == s.opts.BlockedMessage),
	)
	return &answer, nil
}

// Retrieve exposes raw retrieval for callers that assemble their own prompt.
func (s *ChatService) Retrieve(ctx context.Context, query string) (*model.RetrievalResult, error) {
	return s.ranker.Retrieve(ctx, query, s.opts.Retrieve)
}

func cacheKey(question string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(question)))
	return hex.EncodeToString(sum[:])
}
