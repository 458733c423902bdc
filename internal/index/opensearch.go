package index

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/doclibre/ragline/internal/ai"
	"github.com/doclibre/ragline/internal/model"
	appErr "github.com/doclibre/ragline/internal/pkg/errors"
)

const vectorField = "text_embedding"

type openSearchConfig struct {
	Endpoint    string `json:"endpoint"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	Insecure    bool   `json:"insecure"`
	TimeoutSecs int    `json:"timeout_secs"`
}

// openSearchStore is a minimal REST client against an OpenSearch-compatible
// engine: index one doc, delete by query, knn search, filtered fetch.
type openSearchStore struct {
	endpoint string
	username string
	password string
	client   *http.Client
	embedder ai.IEmbedder
}

func init() {
	Register("opensearch", createOpenSearchStore)
}

func createOpenSearchStore(args interface{}, embedder ai.IEmbedder) (Store, error) {
	cfg := &openSearchConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("index.opensearch endpoint is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("opensearch index requires an embedder")
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	client := &http.Client{Timeout: timeout}
	if cfg.Insecure {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return &openSearchStore{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		username: cfg.Username,
		password: cfg.Password,
		client:   client,
		embedder: embedder,
	}, nil
}

type osDoc struct {
	Document  string    `json:"document"`
	Section   int       `json:"section,omitempty"`
	Page      int       `json:"page,omitempty"`
	Heading   string    `json:"section_heading,omitempty"`
	Text      string    `json:"text,omitempty"`
	Date      string    `json:"document_date,omitempty"`
	Embedding []float32 `json:"text_embedding,omitempty"`
}

type osSearchResponse struct {
	Hits struct {
		MaxScore float64 `json:"max_score"`
		Hits     []struct {
			Score  float64 `json:"_score"`
			Source osDoc   `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (s *openSearchStore) InsertRecords(ctx context.Context, index string, records []model.Chunk) (model.WriteResult, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("index", index))
	var result model.WriteResult
	for _, rec := range records {
		emb, err := s.embedder.Embed(ctx, rec.Text, taskDocument)
		if err != nil {
			return result, fmt.Errorf("embed record: %w", err)
		}
		doc := osDoc{
			Document:  rec.Document,
			Section:   rec.Section,
			Page:      rec.Page,
			Heading:   rec.Heading,
			Text:      rec.Text,
			Embedding: emb,
		}
		if err := s.do(ctx, http.MethodPost, "/"+url.PathEscape(index)+"/_doc?refresh=true", doc, nil); err != nil {
			result.Failed++
			logger.Warn("index record failed",
				zap.String("document", rec.Document),
				zap.Int("section", rec.Section),
				zap.Error(err),
			)
			continue
		}
		result.Success++
	}
	return result, nil
}

func (s *openSearchStore) InsertDate(ctx context.Context, index string, document string, date time.Time) error {
	doc := osDoc{Document: document, Date: date.UTC().Format(time.RFC3339)}
	return s.do(ctx, http.MethodPost, "/"+url.PathEscape(index)+"/_doc?refresh=true", doc, nil)
}

func (s *openSearchStore) DeleteByDocument(ctx context.Context, index string, document string) (int, error) {
	body := map[string]any{
		"query": map[string]any{
			"match_phrase": map[string]any{"document": document},
		},
	}
	var out struct {
		Deleted int `json:"deleted"`
	}
	err := s.do(ctx, http.MethodPost, "/"+url.PathEscape(index)+"/_delete_by_query?refresh=true", body, &out)
	if err != nil {
		return 0, err
	}
	return out.Deleted, nil
}

func (s *openSearchStore) Search(ctx context.Context, index string, query string, k int) ([]model.Hit, error) {
	if k <= 0 {
		k = 10
	}
	vector, err := s.embedder.Embed(ctx, query, taskQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	body := map[string]any{
		"size": k,
		"_source": map[string]any{
			"excludes": []string{vectorField},
		},
		"query": map[string]any{
			"knn": map[string]any{
				vectorField: map[string]any{
					"vector": vector,
					"k":      k,
				},
			},
		},
	}
	var out osSearchResponse
	if err := s.do(ctx, http.MethodPost, "/"+url.PathEscape(index)+"/_search", body, &out); err != nil {
		return nil, err
	}
	hits := make([]model.Hit, 0, len(out.Hits.Hits))
	for _, h := range out.Hits.Hits {
		hits = append(hits, model.Hit{
			Document: h.Source.Document,
			Section:  h.Source.Section,
			Page:     h.Source.Page,
			Heading:  h.Source.Heading,
			Text:     h.Source.Text,
			Score:    h.Score,
		})
	}
	return hits, nil
}

func (s *openSearchStore) GetSection(ctx context.Context, index string, document string, section int) (string, error) {
	body := map[string]any{
		"size": 1,
		"query": map[string]any{
			"bool": map[string]any{
				"must": []any{
					map[string]any{"match": map[string]any{"document": document}},
					map[string]any{"match": map[string]any{"section": section}},
				},
			},
		},
	}
	var out osSearchResponse
	if err := s.do(ctx, http.MethodPost, "/"+url.PathEscape(index)+"/_search", body, &out); err != nil {
		return "", err
	}
	if len(out.Hits.Hits) == 0 {
		return "", appErr.ErrNotFound
	}
	return out.Hits.Hits[0].Source.Text, nil
}

func (s *openSearchStore) GetDocumentDate(ctx context.Context, index string, document string) (time.Time, error) {
	body := map[string]any{
		"size": 1,
		"query": map[string]any{
			"match_phrase": map[string]any{"document": document},
		},
	}
	var out osSearchResponse
	if err := s.do(ctx, http.MethodPost, "/"+url.PathEscape(index)+"/_search", body, &out); err != nil {
		return time.Time{}, err
	}
	if len(out.Hits.Hits) == 0 {
		return time.Time{}, appErr.ErrNotFound
	}
	date, err := time.Parse(time.RFC3339, out.Hits.Hits[0].Source.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse document date: %w", err)
	}
	return date, nil
}

func (s *openSearchStore) CountByDocument(ctx context.Context, index string) (map[string]int, error) {
	body := map[string]any{
		"size": 0,
		"aggs": map[string]any{
			"docs": map[string]any{
				"terms": map[string]any{
					"field": "document.keyword",
					"size":  10000,
				},
			},
		},
	}
	var out struct {
		Aggregations struct {
			Docs struct {
				Buckets []struct {
					Key   string `json:"key"`
					Count int    `json:"doc_count"`
				} `json:"buckets"`
			} `json:"docs"`
		} `json:"aggregations"`
	}
	if err := s.do(ctx, http.MethodPost, "/"+url.PathEscape(index)+"/_search", body, &out); err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(out.Aggregations.Docs.Buckets))
	for _, b := range out.Aggregations.Docs.Buckets {
		counts[b.Key] = b.Count
	}
	return counts, nil
}

func (s *openSearchStore) do(ctx context.Context, method, path string, in interface{}, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.endpoint+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.username != "" {
		req.SetBasicAuth(s.username, s.password)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("opensearch %s %s: %s: %s", method, path, resp.Status, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
