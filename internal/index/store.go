package index

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/doclibre/ragline/internal/ai"
	"github.com/doclibre/ragline/internal/model"
)

// Names carries the three logical index names used by the pipeline.
type Names struct {
	FullText string `json:"full_text"`
	Summary  string `json:"summary"`
	Date     string `json:"date"`
}

func (n Names) WithDefaults() Names {
	if n.FullText == "" {
		n.FullText = "ragline-full-text"
	}
	if n.Summary == "" {
		n.Summary = "ragline-summary"
	}
	if n.Date == "" {
		n.Date = "ragline-date"
	}
	return n
}

// Store is the search index surface the pipeline depends on. Uniqueness is
// not enforced by any backend; callers delete by document key before
// re-inserting. Embedding happens inside the backend via the injected
// embedder, so all backends do client-side vectors.
type Store interface {
	// InsertRecords indexes chunks one by one, reporting per-record counts.
	// A partial failure is a result, not an error.
	InsertRecords(ctx context.Context, index string, records []model.Chunk) (model.WriteResult, error)
	// InsertDate writes the one date record for a document.
	InsertDate(ctx context.Context, index string, document string, date time.Time) error
	// DeleteByDocument removes every record for the key. Deleting an absent
	// document succeeds with zero affected records.
	DeleteByDocument(ctx context.Context, index string, document string) (int, error)
	// Search runs a semantic top-k query.
	Search(ctx context.Context, index string, query string, k int) ([]model.Hit, error)
	// GetSection fetches the indexed text for one (document, section) pair.
	GetSection(ctx context.Context, index string, document string, section int) (string, error)
	// GetDocumentDate reads a document's date record.
	GetDocumentDate(ctx context.Context, index string, document string) (time.Time, error)
	// CountByDocument reports record counts per document key.
	CountByDocument(ctx context.Context, index string) (map[string]int, error)
}

type Factory func(args interface{}, embedder ai.IEmbedder) (Store, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(name string, args interface{}, embedder ai.IEmbedder) (Store, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("index.type is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported index type: %s", name)
	}
	return factory(args, embedder)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("index config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode index config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode index config: %w", err)
	}
	return nil
}

// Embedding task types follow the gemini API convention; providers without
// task types ignore them.
const (
	taskDocument = "RETRIEVAL_DOCUMENT"
	taskQuery    = "RETRIEVAL_QUERY"
)
