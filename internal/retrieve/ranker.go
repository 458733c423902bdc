package retrieve

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/doclibre/ragline/internal/index"
	"github.com/doclibre/ragline/internal/model"
	appErr "github.com/doclibre/ragline/internal/pkg/errors"
)

// Ranker turns a free-text query into a bounded context string plus
// traceable references, combining the summary and full-text indices.
type Ranker struct {
	store index.Store
	names index.Names
	now   func() time.Time
}

func NewRanker(store index.Store, names index.Names) *Ranker {
	return &Ranker{store: store, names: names.WithDefaults(), now: time.Now}
}

// windowEntry is one candidate section after window expansion. It inherits
// the generating hit's page, heading and combined score.
type windowEntry struct {
	document string
	page     int
	heading  string
	section  int
	score    float64
}

// Retrieve runs the full ranking pipeline: summary-index boosting, full-text
// search, recency penalty, score-floor filtering, window expansion,
// deterministic sort, dedupe, and cap-checked context assembly.
func (r *Ranker) Retrieve(ctx context.Context, query string, opts Options) (*model.RetrievalResult, error) {
	opts = opts.Clamped()
	logger := logutil.GetLogger(ctx)

	summaryScores, err := r.summaryHighScores(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	hits, err := r.store.Search(ctx, r.names.FullText, query, opts.FullTextTopK)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		logger.Info("full-text search returned no hits", zap.String("query", query))
		return &model.RetrievalResult{}, nil
	}

	if opts.UseDate {
		if err := r.applyDatePenalty(ctx, hits, opts); err != nil {
			return nil, err
		}
	}

	minHitScore := opts.FullTextScoreThreshold * basisScore(hits, opts)
	entries := expandWindows(hits, summaryScores, minHitScore, opts)
	sortEntries(entries)
	entries = dedupeBySection(entries)

	result, err := r.assemble(ctx, entries, opts.MaxContextLength)
	if err != nil {
		return nil, err
	}
	logger.Info("retrieval finished",
		zap.Int("full_text_hits", len(hits)),
		zap.Int("summary_documents", len(summaryScores)),
		zap.Int("window_entries", len(entries)),
		zap.Int("context_length", len(result.Context)),
		zap.Int("references", len(result.References)),
	)
	return result, nil
}

// summaryHighScores queries the summary index and keeps, per document, the
// best score among hits at or above the threshold fraction of the top score.
// An empty map with UseSummary set means no document qualifies for boosting,
// which later excludes every full-text hit.
func (r *Ranker) summaryHighScores(ctx context.Context, query string, opts Options) (map[string]float64, error) {
	scores := map[string]float64{}
	if !opts.UseSummary {
		return scores, nil
	}
	hits, err := r.store.Search(ctx, r.names.Summary, query, opts.SummaryTopK)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return scores, nil
	}
	maxScore := hits[0].Score
	for _, h := range hits {
		if h.Score > maxScore {
			maxScore = h.Score
		}
	}
	floor := opts.SummaryScoreThreshold * maxScore
	for _, h := range hits {
		if h.Score < floor {
			continue
		}
		if h.Score > scores[h.Document] {
			scores[h.Document] = h.Score
		}
	}
	return scores, nil
}

// applyDatePenalty deducts PointsPerDayOld per day of document age from each
// hit, floored at zero. Date lookups are cached per document for the call;
// documents without a date record keep their raw score.
func (r *Ranker) applyDatePenalty(ctx context.Context, hits []model.Hit, opts Options) error {
	type cached struct {
		date time.Time
		ok   bool
	}
	dates := map[string]cached{}
	now := r.now()
	for i := range hits {
		doc := hits[i].Document
		entry, seen := dates[doc]
		if !seen {
			date, err := r.store.GetDocumentDate(ctx, r.names.Date, doc)
			switch {
			case err == nil:
				entry = cached{date: date, ok: true}
			case appErr.IsNotFound(err):
				entry = cached{}
			default:
				return err
			}
			dates[doc] = entry
		}
		if !entry.ok {
			continue
		}
		ageDays := now.Sub(entry.date).Hours() / 24
		if ageDays < 0 {
			ageDays = 0
		}
		score := hits[i].Score - opts.PointsPerDayOld*ageDays
		if score < 0 {
			score = 0
		}
		hits[i].Score = score
	}
	return nil
}

func basisScore(hits []model.Hit, opts Options) float64 {
	basis := opts.FullTextBasis
	if basis == BasisAuto {
		basis = BasisMax
		if opts.UseDate {
			basis = BasisMin
		}
	}
	score := hits[0].Score
	for _, h := range hits[1:] {
		if basis == BasisMax && h.Score > score {
			score = h.Score
		}
		if basis == BasisMin && h.Score < score {
			score = h.Score
		}
	}
	return score
}

// expandWindows turns each surviving hit into a window of neighboring
// sections. When summary boosting is on, a hit whose document has no
// qualifying summary score is excluded entirely; otherwise the weighted
// summary score is added to the hit score. Sections at or below zero are
// dropped.
func expandWindows(hits []model.Hit, summaryScores map[string]float64, minHitScore float64, opts Options) []windowEntry {
	radius := opts.FullTextWindowRadius
	if opts.UseSummary {
		radius = opts.SummaryWindowRadius
	}
	var entries []windowEntry
	for _, hit := range hits {
		if hit.Score < minHitScore {
			continue
		}
		score := hit.Score
		if opts.UseSummary {
			best, ok := summaryScores[hit.Document]
			if !ok {
				continue
			}
			score += opts.SummaryWeight * best
		}
		for section := hit.Section - radius; section <= hit.Section+radius; section++ {
			if section <= 0 {
				continue
			}
			entries = append(entries, windowEntry{
				document: hit.Document,
				page:     hit.Page,
				heading:  hit.Heading,
				section:  section,
				score:    score,
			})
		}
	}
	return entries
}

// sortEntries orders by score descending, then document, page, heading and
// section ascending. Score ties resolve identically across runs.
func sortEntries(entries []windowEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.document != b.document {
			return a.document < b.document
		}
		if a.page != b.page {
			return a.page < b.page
		}
		if a.heading != b.heading {
			return a.heading < b.heading
		}
		return a.section < b.section
	})
}

// dedupeBySection keeps the first (highest-ranked) entry per
// (document, section) pair. Must run after sorting.
func dedupeBySection(entries []windowEntry) []windowEntry {
	type key struct {
		document string
		section  int
	}
	seen := map[key]struct{}{}
	out := entries[:0]
	for _, e := range entries {
		k := key{document: e.document, section: e.section}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, e)
	}
	return out
}

// assemble fetches each entry's indexed text in rank order and appends it
// while the cap holds. The cap check happens before appending, so the
// context never exceeds maxLength, and an entry earns a reference if and
// only if its text was appended. Entries whose section was produced by
// window expansion and never indexed are skipped.
func (r *Ranker) assemble(ctx context.Context, entries []windowEntry, maxLength int) (*model.RetrievalResult, error) {
	var sb strings.Builder
	var refs []model.Reference
	for _, e := range entries {
		text, err := r.store.GetSection(ctx, r.names.FullText, e.document, e.section)
		if err != nil {
			if appErr.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		if sb.Len()+len(text) >= maxLength {
			continue
		}
		sb.WriteString(text)
		refs = append(refs, model.Reference{
			Document: e.document,
			Page:     e.page,
			Heading:  e.heading,
		})
	}
	return &model.RetrievalResult{
		Context:    sb.String(),
		References: dedupeReferences(refs),
	}, nil
}

// dedupeReferences removes exact (document, page, heading) duplicates,
// preserving first-occurrence order.
func dedupeReferences(refs []model.Reference) []model.Reference {
	seen := map[model.Reference]struct{}{}
	var out []model.Reference
	for _, ref := range refs {
		if _, dup := seen[ref]; dup {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}
	return out
}
