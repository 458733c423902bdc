package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/doclibre/ragline/internal/ai"
	"github.com/doclibre/ragline/internal/model"
	appErr "github.com/doclibre/ragline/internal/pkg/errors"
)

type pgvectorConfig struct {
	DSN       string `json:"dsn"`
	Dimension int    `json:"dimension"`
}

// pgvectorStore keeps each logical index in its own table, cosine distance
// over a pgvector column. Queries are built with the gendry builder ('?'
// placeholders) and rebound to $N through sqlx.
type pgvectorStore struct {
	db        *sqlx.DB
	dimension int
	embedder  ai.IEmbedder

	mu      sync.Mutex
	ensured map[string]string
}

func init() {
	Register("pgvector", createPgvectorStore)
}

func createPgvectorStore(args interface{}, embedder ai.IEmbedder) (Store, error) {
	cfg := &pgvectorConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("index.pgvector dsn is required")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("index.pgvector dimension is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("pgvector index requires an embedder")
	}
	db, err := sqlx.Connect("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return nil, fmt.Errorf("ensure vector extension: %w", err)
	}
	return &pgvectorStore{
		db:        db,
		dimension: cfg.Dimension,
		embedder:  embedder,
		ensured:   map[string]string{},
	}, nil
}

var tableNameSanitizer = regexp.MustCompile(`[^a-z0-9_]+`)

// table maps a logical index name onto an ensured table, creating it on
// first use.
func (s *pgvectorStore) table(ctx context.Context, index string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name, ok := s.ensured[index]; ok {
		return name, nil
	}
	name := "idx_" + tableNameSanitizer.ReplaceAllString(index, "_")
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id BIGSERIAL PRIMARY KEY,
		document TEXT NOT NULL,
		section INT NOT NULL DEFAULT 0,
		page INT NOT NULL DEFAULT 0,
		section_heading TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		document_date TIMESTAMPTZ,
		embedding vector(%d)
	)`, name, s.dimension)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return "", fmt.Errorf("ensure table %s: %w", name, err)
	}
	ddlIdx := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_document ON %s (document)", name, name)
	if _, err := s.db.ExecContext(ctx, ddlIdx); err != nil {
		return "", fmt.Errorf("ensure document index on %s: %w", name, err)
	}
	s.ensured[index] = name
	return name, nil
}

func (s *pgvectorStore) InsertRecords(ctx context.Context, index string, records []model.Chunk) (model.WriteResult, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("index", index))
	var result model.WriteResult
	table, err := s.table(ctx, index)
	if err != nil {
		return result, err
	}
	for _, rec := range records {
		emb, err := s.embedder.Embed(ctx, rec.Text, taskDocument)
		if err != nil {
			return result, fmt.Errorf("embed record: %w", err)
		}
		row := map[string]interface{}{
			"document":        rec.Document,
			"section":         rec.Section,
			"page":            rec.Page,
			"section_heading": rec.Heading,
			"content":         rec.Text,
			"embedding":       pgvector.NewVector(emb),
		}
		sqlStr, args, err := builder.BuildInsert(table, []map[string]interface{}{row})
		if err != nil {
			return result, err
		}
		if _, err := s.db.ExecContext(ctx, s.db.Rebind(sqlStr), args...); err != nil {
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

func (s *pgvectorStore) InsertDate(ctx context.Context, index string, document string, date time.Time) error {
	table, err := s.table(ctx, index)
	if err != nil {
		return err
	}
	row := map[string]interface{}{
		"document":      document,
		"document_date": date.UTC(),
	}
	sqlStr, args, err := builder.BuildInsert(table, []map[string]interface{}{row})
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.db.Rebind(sqlStr), args...)
	return err
}

func (s *pgvectorStore) DeleteByDocument(ctx context.Context, index string, document string) (int, error) {
	table, err := s.table(ctx, index)
	if err != nil {
		return 0, err
	}
	sqlStr, args, err := builder.BuildDelete(table, map[string]interface{}{"document": document})
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind(sqlStr), args...)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (s *pgvectorStore) Search(ctx context.Context, index string, query string, k int) ([]model.Hit, error) {
	if k <= 0 {
		k = 10
	}
	table, err := s.table(ctx, index)
	if err != nil {
		return nil, err
	}
	vector, err := s.embedder.Embed(ctx, query, taskQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	sqlStr := fmt.Sprintf(`SELECT document, section, page, section_heading, content,
		1 - (embedding <=> $1) AS score
		FROM %s WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1 LIMIT $2`, table)
	rows, err := s.db.QueryContext(ctx, sqlStr, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var hits []model.Hit
	for rows.Next() {
		var h model.Hit
		if err := rows.Scan(&h.Document, &h.Section, &h.Page, &h.Heading, &h.Text, &h.Score); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func (s *pgvectorStore) GetSection(ctx context.Context, index string, document string, section int) (string, error) {
	table, err := s.table(ctx, index)
	if err != nil {
		return "", err
	}
	where := map[string]interface{}{
		"document": document,
		"section":  section,
		"_limit":   []uint{1},
	}
	sqlStr, args, err := builder.BuildSelect(table, where, []string{"content"})
	if err != nil {
		return "", err
	}
	var text string
	if err := s.db.QueryRowContext(ctx, s.db.Rebind(sqlStr), args...).Scan(&text); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErr.ErrNotFound
		}
		return "", err
	}
	return text, nil
}

func (s *pgvectorStore) GetDocumentDate(ctx context.Context, index string, document string) (time.Time, error) {
	table, err := s.table(ctx, index)
	if err != nil {
		return time.Time{}, err
	}
	where := map[string]interface{}{
		"document": document,
		"_limit":   []uint{1},
	}
	sqlStr, args, err := builder.BuildSelect(table, where, []string{"document_date"})
	if err != nil {
		return time.Time{}, err
	}
	var date sql.NullTime
	if err := s.db.QueryRowContext(ctx, s.db.Rebind(sqlStr), args...).Scan(&date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, appErr.ErrNotFound
		}
		return time.Time{}, err
	}
	if !date.Valid {
		return time.Time{}, appErr.ErrNotFound
	}
	return date.Time, nil
}

func (s *pgvectorStore) CountByDocument(ctx context.Context, index string) (map[string]int, error) {
	table, err := s.table(ctx, index)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT document, COUNT(*) FROM %s GROUP BY document", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := map[string]int{}
	for rows.Next() {
		var doc string
		var n int
		if err := rows.Scan(&doc, &n); err != nil {
			return nil, err
		}
		counts[doc] = n
	}
	return counts, rows.Err()
}
