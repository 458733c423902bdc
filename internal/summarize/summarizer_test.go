package summarize

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	replies []string
	calls   int
	prompts []string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	reply := f.replies[f.calls%len(f.replies)]
	f.calls++
	return reply, nil
}

func TestSummarizeShortInputUntouched(t *testing.T) {
	gen := &fakeGenerator{replies: []string{"should never be called"}}
	s := New(gen, Options{})

	out, err := s.Summarize(context.Background(), "short text", 100)
	require.NoError(t, err)
	assert.Equal(t, "short text", out)
	assert.Zero(t, gen.calls)
}

func TestSummarizeSingleRound(t *testing.T) {
	gen := &fakeGenerator{replies: []string{"a short summary"}}
	s := New(gen, Options{CoarseSize: 1000})

	out, err := s.Summarize(context.Background(), strings.Repeat("x", 500), 100)
	require.NoError(t, err)
	assert.Equal(t, "a short summary", out)
	assert.Equal(t, 1, gen.calls)
	assert.Contains(t, gen.prompts[0], "The following is a document:")
	assert.Contains(t, gen.prompts[0], "no more than 4 sentences")
}

func TestSummarizeMultiSection(t *testing.T) {
	gen := &fakeGenerator{replies: []string{"part summary"}}
	s := New(gen, Options{CoarseSize: 300, CoarseOverlap: 0})

	out, err := s.Summarize(context.Background(), strings.Repeat("x", 700), 100)
	require.NoError(t, err)
	// 3 coarse sections in round one, their concatenation fits the target
	assert.Equal(t, 3, gen.calls)
	assert.Equal(t, "part summary part summary part summary", out)
}

func TestSummarizeRefusedChunkDropped(t *testing.T) {
	gen := &fakeGenerator{replies: []string{
		"Sorry - this model is unable to help with that.",
		"kept summary",
	}}
	s := New(gen, Options{CoarseSize: 300})

	out, err := s.Summarize(context.Background(), strings.Repeat("x", 500), 100)
	require.NoError(t, err)
	assert.Equal(t, "kept summary", out)
}

func TestSummarizeAllRefused(t *testing.T) {
	gen := &fakeGenerator{replies: []string{"Sorry - this model is unable to answer."}}
	s := New(gen, Options{CoarseSize: 300})

	out, err := s.Summarize(context.Background(), strings.Repeat("x", 500), 100)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSummarizeInvalidTarget(t *testing.T) {
	gen := &fakeGenerator{replies: []string{"unused"}}
	s := New(gen, Options{})

	_, err := s.Summarize(context.Background(), "anything at all", 0)
	assert.Error(t, err)
}
