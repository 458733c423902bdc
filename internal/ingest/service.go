package ingest

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/doclibre/ragline/internal/chunker"
	"github.com/doclibre/ragline/internal/extract"
	"github.com/doclibre/ragline/internal/filestore"
	"github.com/doclibre/ragline/internal/index"
	"github.com/doclibre/ragline/internal/model"
	"github.com/doclibre/ragline/internal/summarize"
)

// Options bounds one ingestion run. ChunkSize is the indexing budget shared
// by full-text and summary records; the summarizer's own coarse budget lives
// in summarize.Options.
type Options struct {
	MaxFileSize      int64
	ChunkSize        int
	ChunkOverlap     int
	SummaryMaxLength int
}

func (o Options) withDefaults() Options {
	if o.MaxFileSize <= 0 {
		o.MaxFileSize = 25000000
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = 512
	}
	if o.ChunkOverlap < 0 {
		o.ChunkOverlap = 0
	}
	if o.SummaryMaxLength <= 0 {
		o.SummaryMaxLength = 5000
	}
	return o
}

// Report summarizes one ingestion run for a key. Partial index failures
// show up in the write counts, not as errors; re-running ingestion for the
// key is the recovery path.
type Report struct {
	Key      string            `json:"key"`
	Skipped  bool              `json:"skipped,omitempty"`
	Reason   string            `json:"reason,omitempty"`
	Sections int               `json:"sections,omitempty"`
	FullText model.WriteResult `json:"full_text"`
	Summary  model.WriteResult `json:"summary"`
	Purged   int               `json:"purged_record_count"`
}

// Service runs the ingestion pipeline: event classification, size gating,
// extraction, chunking, summarization and delete-then-insert indexing.
type Service struct {
	store      filestore.Store
	idx        index.Store
	summarizer *summarize.Summarizer
	names      index.Names
	opts       Options
}

func NewService(store filestore.Store, idx index.Store, summarizer *summarize.Summarizer, names index.Names, opts Options) *Service {
	return &Service{
		store:      store,
		idx:        idx,
		summarizer: summarizer,
		names:      names.WithDefaults(),
		opts:       opts.withDefaults(),
	}
}

// HandleEvent processes one notification payload. Unknown events and
// malformed payloads succeed without touching the indices. Oversized
// creations skip extraction but still purge prior records for the key.
func (s *Service) HandleEvent(ctx context.Context, payload []byte) (*Report, error) {
	logger := logutil.GetLogger(ctx)
	ev := ParseEvent(payload)
	switch ev.Action {
	case ActionCreate:
		if ev.HasSize && ev.Size > s.opts.MaxFileSize {
			logger.Warn("object exceeds maximum file size, purging stale records only",
				zap.String("key", ev.Key),
				zap.Int64("size", ev.Size),
				zap.Int64("max", s.opts.MaxFileSize),
			)
			purged, err := s.purge(ctx, ev.Key)
			if err != nil {
				return nil, err
			}
			return &Report{Key: ev.Key, Skipped: true, Reason: "file too large", Purged: purged}, nil
		}
		return s.Ingest(ctx, ev.Key)
	case ActionRemove:
		return s.Remove(ctx, ev.Key)
	default:
		logger.Info("ignoring event", zap.String("event_name", ev.Name))
		return &Report{Skipped: true, Reason: "unhandled event"}, nil
	}
}

// Ingest runs the full pipeline for one key. Each index is purged right
// before its insert pass, so re-running after a partial failure converges.
func (s *Service) Ingest(ctx context.Context, key string) (*Report, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("key", key))

	format, err := model.FormatForKey(key)
	if err != nil {
		logger.Warn("not a supported file type, purging stale records only")
		purged, purgeErr := s.purge(ctx, key)
		if purgeErr != nil {
			return nil, purgeErr
		}
		return &Report{Key: key, Skipped: true, Reason: "unsupported file type", Purged: purged}, nil
	}

	data, err := filestore.ReadAll(ctx, s.store, key)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	info, err := s.store.Stat(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("stat object %s: %w", key, err)
	}

	extractor, err := extract.ForFormat(format)
	if err != nil {
		return nil, err
	}
	content, err := extractor.Extract(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", key, err)
	}

	split := chunker.New(s.opts.ChunkSize, s.opts.ChunkOverlap)
	var chunks []model.Chunk
	switch format {
	case model.FormatMarkdown:
		chunks = split.SplitHeadings(key, content.Text)
	case model.FormatPDF:
		chunks = split.SplitPages(key, content.Pages)
	default:
		chunks = split.Chunks(key, content.Text)
	}

	summaryText, err := s.summarizer.Summarize(ctx, content.Text, s.opts.SummaryMaxLength)
	if err != nil {
		return nil, fmt.Errorf("summarize %s: %w", key, err)
	}
	summaryChunks := chunker.New(s.opts.ChunkSize, 0).Chunks(key, summaryText)

	date := content.Date
	if date.IsZero() {
		date = info.ModTime
	}

	report := &Report{Key: key, Sections: len(chunks)}

	if report.Purged, err = s.upsert(ctx, s.names.Summary, key, summaryChunks, &report.Summary); err != nil {
		return nil, err
	}
	purged, err := s.upsert(ctx, s.names.FullText, key, chunks, &report.FullText)
	if err != nil {
		return nil, err
	}
	report.Purged += purged

	deleted, err := s.idx.DeleteByDocument(ctx, s.names.Date, key)
	if err != nil {
		return nil, fmt.Errorf("purge date index for %s: %w", key, err)
	}
	report.Purged += deleted
	if err := s.idx.InsertDate(ctx, s.names.Date, key, date); err != nil {
		return nil, fmt.Errorf("index date for %s: %w", key, err)
	}

	logger.Info("document ingested",
		zap.Int("sections", report.Sections),
		zap.Int("full_text_success", report.FullText.Success),
		zap.Int("full_text_failed", report.FullText.Failed),
		zap.Int("summary_success", report.Summary.Success),
		zap.Int("summary_failed", report.Summary.Failed),
		zap.Int("purged", report.Purged),
		zap.Time("document_date", date),
	)
	return report, nil
}

// Remove purges every index for a key. Removing an unknown key succeeds.
func (s *Service) Remove(ctx context.Context, key string) (*Report, error) {
	purged, err := s.purge(ctx, key)
	if err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("document records purged",
		zap.String("key", key),
		zap.Int("purged", purged),
	)
	return &Report{Key: key, Purged: purged}, nil
}

// ResyncReport aggregates one bucket sweep.
type ResyncReport struct {
	Scanned  int       `json:"scanned"`
	Ingested int       `json:"ingested"`
	Skipped  int       `json:"skipped"`
	Failed   int       `json:"failed"`
	Reports  []*Report `json:"reports,omitempty"`
}

// Resync lists the store and re-ingests every eligible object. Per-key
// failures are logged and counted so one bad object cannot stall the sweep.
func (s *Service) Resync(ctx context.Context, prefix string) (*ResyncReport, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("prefix", prefix))
	objects, err := s.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list store: %w", err)
	}
	report := &ResyncReport{Scanned: len(objects)}
	for _, obj := range objects {
		if !model.SupportedKey(obj.Key) || obj.Size > s.opts.MaxFileSize {
			report.Skipped++
			continue
		}
		rep, err := s.Ingest(ctx, obj.Key)
		if err != nil {
			report.Failed++
			logger.Error("resync ingest failed", zap.String("key", obj.Key), zap.Error(err))
			continue
		}
		report.Ingested++
		report.Reports = append(report.Reports, rep)
	}
	logger.Info("resync finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("ingested", report.Ingested),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

func (s *Service) upsert(ctx context.Context, indexName, key string, records []model.Chunk, result *model.WriteResult) (int, error) {
	deleted, err := s.idx.DeleteByDocument(ctx, indexName, key)
	if err != nil {
		return 0, fmt.Errorf("purge %s for %s: %w", indexName, key, err)
	}
	written, err := s.idx.InsertRecords(ctx, indexName, records)
	if err != nil {
		return deleted, fmt.Errorf("index %s for %s: %w", indexName, key, err)
	}
	*result = written
	return deleted, nil
}

func (s *Service) purge(ctx context.Context, key string) (int, error) {
	total := 0
	for _, name := range []string{s.names.Summary, s.names.FullText, s.names.Date} {
		deleted, err := s.idx.DeleteByDocument(ctx, name, key)
		if err != nil {
			return total, fmt.Errorf("purge %s for %s: %w", name, key, err)
		}
		total += deleted
	}
	return total, nil
}
