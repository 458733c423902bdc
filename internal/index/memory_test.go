package index

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doclibre/ragline/internal/model"
	appErr "github.com/doclibre/ragline/internal/pkg/errors"
)

type unitEmbedder struct{}

// Embed maps each known word onto its own axis so cosine similarity is 1 for
// a matching word and 0 otherwise.
func (unitEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	axes := map[string]int{"alpha": 0, "beta": 1, "gamma": 2}
	vec := make([]float32, 3)
	if i, ok := axes[text]; ok {
		vec[i] = 1
	} else {
		vec[0], vec[1], vec[2] = 1, 1, 1
	}
	return vec, nil
}

func (unitEmbedder) ModelName() string { return "unit" }

func TestMemorySearchRanksBySimilarity(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(unitEmbedder{})

	_, err := store.InsertRecords(ctx, "idx", []model.Chunk{
		{Document: "a.md", Section: 1, Text: "alpha"},
		{Document: "b.md", Section: 1, Text: "beta"},
		{Document: "c.md", Section: 1, Text: "gamma"},
	})
	require.NoError(t, err)

	hits, err := store.Search(ctx, "idx", "beta", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "b.md", hits[0].Document)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestMemoryGetSection(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(unitEmbedder{})
	_, err := store.InsertRecords(ctx, "idx", []model.Chunk{
		{Document: "a.md", Section: 2, Text: "alpha"},
	})
	require.NoError(t, err)

	text, err := store.GetSection(ctx, "idx", "a.md", 2)
	require.NoError(t, err)
	assert.Equal(t, "alpha", text)

	_, err = store.GetSection(ctx, "idx", "a.md", 99)
	assert.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestMemoryDeleteByDocument(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(unitEmbedder{})
	_, err := store.InsertRecords(ctx, "idx", []model.Chunk{
		{Document: "a.md", Section: 1, Text: "alpha"},
		{Document: "a.md", Section: 2, Text: "beta"},
		{Document: "b.md", Section: 1, Text: "gamma"},
	})
	require.NoError(t, err)
	require.NoError(t, store.InsertDate(ctx, "idx", "a.md", time.Now()))

	removed, err := store.DeleteByDocument(ctx, "idx", "a.md")
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	counts, err := store.CountByDocument(ctx, "idx")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"b.md": 1}, counts)

	// deleting an absent document is not an error
	removed, err = store.DeleteByDocument(ctx, "idx", "missing.md")
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestMemoryDates(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(unitEmbedder{})
	date := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertDate(ctx, "dates", "a.md", date))

	got, err := store.GetDocumentDate(ctx, "dates", "a.md")
	require.NoError(t, err)
	assert.Equal(t, date, got)

	_, err = store.GetDocumentDate(ctx, "dates", "missing.md")
	assert.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestNamesWithDefaults(t *testing.T) {
	names := Names{}.WithDefaults()
	assert.Equal(t, "ragline-full-text", names.FullText)
	assert.Equal(t, "ragline-summary", names.Summary)
	assert.Equal(t, "ragline-date", names.Date)

	custom := Names{FullText: "ft", Summary: "sm", Date: "dt"}.WithDefaults()
	assert.Equal(t, "ft", custom.FullText)
	assert.Equal(t, "sm", custom.Summary)
	assert.Equal(t, "dt", custom.Date)
}
