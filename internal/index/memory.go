package index

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/doclibre/ragline/internal/ai"
	"github.com/doclibre/ragline/internal/model"
	appErr "github.com/doclibre/ragline/internal/pkg/errors"
)

// memoryStore is an in-process Store for tests and local experiments.
// Search is brute-force cosine similarity over the injected embedder's
// vectors, so ordering is fully deterministic for a deterministic embedder.
type memoryStore struct {
	mu       sync.RWMutex
	records  map[string][]memoryRecord
	dates    map[string]map[string]time.Time
	embedder ai.IEmbedder
}

type memoryRecord struct {
	chunk model.Chunk
	emb   []float32
}

func init() {
	Register("memory", func(args interface{}, embedder ai.IEmbedder) (Store, error) {
		return NewMemory(embedder), nil
	})
}

func NewMemory(embedder ai.IEmbedder) *memoryStore {
	return &memoryStore{
		records:  map[string][]memoryRecord{},
		dates:    map[string]map[string]time.Time{},
		embedder: embedder,
	}
}

func (s *memoryStore) InsertRecords(ctx context.Context, index string, records []model.Chunk) (model.WriteResult, error) {
	var result model.WriteResult
	for _, rec := range records {
		emb, err := s.embedder.Embed(ctx, rec.Text, taskDocument)
		if err != nil {
			return result, err
		}
		s.mu.Lock()
		s.records[index] = append(s.records[index], memoryRecord{chunk: rec, emb: emb})
		s.mu.Unlock()
		result.Success++
	}
	return result, nil
}

func (s *memoryStore) InsertDate(ctx context.Context, index string, document string, date time.Time) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dates[index] == nil {
		s.dates[index] = map[string]time.Time{}
	}
	s.dates[index][document] = date
	return nil
}

func (s *memoryStore) DeleteByDocument(ctx context.Context, index string, document string) (int, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	kept := s.records[index][:0]
	for _, rec := range s.records[index] {
		if rec.chunk.Document == document {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	s.records[index] = kept
	if dates, ok := s.dates[index]; ok {
		if _, exists := dates[document]; exists {
			delete(dates, document)
			removed++
		}
	}
	return removed, nil
}

func (s *memoryStore) Search(ctx context.Context, index string, query string, k int) ([]model.Hit, error) {
	if k <= 0 {
		k = 10
	}
	vector, err := s.embedder.Embed(ctx, query, taskQuery)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	hits := make([]model.Hit, 0, len(s.records[index]))
	for _, rec := range s.records[index] {
		hits = append(hits, model.Hit{
			Document: rec.chunk.Document,
			Section:  rec.chunk.Section,
			Page:     rec.chunk.Page,
			Heading:  rec.chunk.Heading,
			Text:     rec.chunk.Text,
			Score:    float64(cosineSimilarity(vector, rec.emb)),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (s *memoryStore) GetSection(ctx context.Context, index string, document string, section int) (string, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records[index] {
		if rec.chunk.Document == document && rec.chunk.Section == section {
			return rec.chunk.Text, nil
		}
	}
	return "", appErr.ErrNotFound
}

func (s *memoryStore) GetDocumentDate(ctx context.Context, index string, document string) (time.Time, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	if dates, ok := s.dates[index]; ok {
		if date, exists := dates[document]; exists {
			return date, nil
		}
	}
	return time.Time{}, appErr.ErrNotFound
}

func (s *memoryStore) CountByDocument(ctx context.Context, index string) (map[string]int, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := map[string]int{}
	for _, rec := range s.records[index] {
		counts[rec.chunk.Document]++
	}
	for doc := range s.dates[index] {
		counts[doc]++
	}
	return counts, nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
