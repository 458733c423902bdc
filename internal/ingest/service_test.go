package ingest

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doclibre/ragline/internal/ai"
	"github.com/doclibre/ragline/internal/filestore"
	"github.com/doclibre/ragline/internal/index"
	appErr "github.com/doclibre/ragline/internal/pkg/errors"
	"github.com/doclibre/ragline/internal/summarize"
)

type fakeFileStore struct {
	objects map[string][]byte
	modTime time.Time
}

func (f *fakeFileStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeFileStore) Stat(ctx context.Context, key string) (filestore.ObjectInfo, error) {
	data, ok := f.objects[key]
	if !ok {
		return filestore.ObjectInfo{}, appErr.ErrNotFound
	}
	return filestore.ObjectInfo{Key: key, Size: int64(len(data)), ModTime: f.modTime}, nil
}

func (f *fakeFileStore) List(ctx context.Context, prefix string) ([]filestore.ObjectInfo, error) {
	var out []filestore.ObjectInfo
	for key, data := range f.objects {
		out = append(out, filestore.ObjectInfo{Key: key, Size: int64(len(data)), ModTime: f.modTime})
	}
	return out, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	// deterministic toy vector so cosine ranking is stable
	vec := make([]float32, 8)
	for i, r := range text {
		vec[i%8] += float32(r)
	}
	return vec, nil
}

func (fakeEmbedder) ModelName() string { return "fake" }

type echoGenerator struct{}

func (echoGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return "summary text", nil
}

func newTestService(store filestore.Store, idx index.Store) *Service {
	summarizer := summarize.New(echoGenerator{}, summarize.Options{})
	return NewService(store, idx, summarizer, index.Names{}, Options{
		MaxFileSize:      1000,
		ChunkSize:        64,
		SummaryMaxLength: 5000,
	})
}

var _ ai.IEmbedder = fakeEmbedder{}

func TestIngestMarkdown(t *testing.T) {
	files := &fakeFileStore{
		objects: map[string][]byte{
			"guide.md": []byte("# Intro\n\nSome intro text.\n\n# Usage\n\nHow to use the thing."),
		},
		modTime: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	idx := index.NewMemory(fakeEmbedder{})
	svc := newTestService(files, idx)

	report, err := svc.Ingest(context.Background(), "guide.md")
	require.NoError(t, err)
	assert.False(t, report.Skipped)
	assert.Greater(t, report.Sections, 0)
	assert.Equal(t, report.Sections, report.FullText.Success)
	assert.Greater(t, report.Summary.Success, 0)

	names := index.Names{}.WithDefaults()
	counts, err := idx.CountByDocument(context.Background(), names.FullText)
	require.NoError(t, err)
	assert.Equal(t, report.Sections, counts["guide.md"])

	// content has no embedded date, so the store mod time is used
	date, err := idx.GetDocumentDate(context.Background(), names.Date, "guide.md")
	require.NoError(t, err)
	assert.Equal(t, files.modTime, date)
}

func TestIngestIdempotent(t *testing.T) {
	files := &fakeFileStore{
		objects: map[string][]byte{"a.md": []byte("# One\n\nbody text")},
		modTime: time.Now(),
	}
	idx := index.NewMemory(fakeEmbedder{})
	svc := newTestService(files, idx)

	first, err := svc.Ingest(context.Background(), "a.md")
	require.NoError(t, err)
	second, err := svc.Ingest(context.Background(), "a.md")
	require.NoError(t, err)

	assert.Equal(t, first.Sections, second.Sections)
	// the second run purges exactly what the first one wrote plus the date record
	assert.Equal(t, first.FullText.Success+first.Summary.Success+1, second.Purged)

	names := index.Names{}.WithDefaults()
	counts, err := idx.CountByDocument(context.Background(), names.FullText)
	require.NoError(t, err)
	assert.Equal(t, first.Sections, counts["a.md"])
}

func TestIngestUnsupportedKeyPurges(t *testing.T) {
	files := &fakeFileStore{
		objects: map[string][]byte{"a.md": []byte("# T\n\nbody")},
		modTime: time.Now(),
	}
	idx := index.NewMemory(fakeEmbedder{})
	svc := newTestService(files, idx)

	_, err := svc.Ingest(context.Background(), "a.md")
	require.NoError(t, err)

	// same key re-uploaded under an unsupported name: nothing to do; but a
	// formerly supported key turned unsupported must still be purgeable
	report, err := svc.Ingest(context.Background(), "archive.tar.gz")
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Equal(t, "unsupported file type", report.Reason)
	assert.Zero(t, report.Purged)
}

func TestHandleEventOversizedCreatePurges(t *testing.T) {
	files := &fakeFileStore{
		objects: map[string][]byte{"big.md": []byte("# T\n\nbody")},
		modTime: time.Now(),
	}
	idx := index.NewMemory(fakeEmbedder{})
	svc := newTestService(files, idx)

	// index it once at a valid size
	_, err := svc.Ingest(context.Background(), "big.md")
	require.NoError(t, err)

	payload := []byte(`{"Records":[{"eventName":"ObjectCreated:Put","s3":{"object":{"key":"big.md","size":5000}}}]}`)
	report, err := svc.HandleEvent(context.Background(), payload)
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Equal(t, "file too large", report.Reason)
	assert.Greater(t, report.Purged, 0)

	names := index.Names{}.WithDefaults()
	counts, err := idx.CountByDocument(context.Background(), names.FullText)
	require.NoError(t, err)
	assert.Zero(t, counts["big.md"])
}

func TestHandleEventRemove(t *testing.T) {
	files := &fakeFileStore{
		objects: map[string][]byte{"a.md": []byte("# T\n\nbody")},
		modTime: time.Now(),
	}
	idx := index.NewMemory(fakeEmbedder{})
	svc := newTestService(files, idx)

	_, err := svc.Ingest(context.Background(), "a.md")
	require.NoError(t, err)

	payload := []byte(`{"Records":[{"eventName":"ObjectRemoved:Delete","s3":{"object":{"key":"a.md"}}}]}`)
	report, err := svc.HandleEvent(context.Background(), payload)
	require.NoError(t, err)
	assert.Greater(t, report.Purged, 0)

	names := index.Names{}.WithDefaults()
	counts, err := idx.CountByDocument(context.Background(), names.FullText)
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestHandleEventUnknownIsNoOp(t *testing.T) {
	idx := index.NewMemory(fakeEmbedder{})
	svc := newTestService(&fakeFileStore{}, idx)

	report, err := svc.HandleEvent(context.Background(), []byte(`{"Records":[{"eventName":"ObjectRestore:Completed"}]}`))
	require.NoError(t, err)
	assert.True(t, report.Skipped)
}

func TestResyncSkipsAndContinues(t *testing.T) {
	files := &fakeFileStore{
		objects: map[string][]byte{
			"good.md":  []byte("# T\n\nbody"),
			"skip.txt": []byte("not supported"),
		},
		modTime: time.Now(),
	}
	idx := index.NewMemory(fakeEmbedder{})
	svc := newTestService(files, idx)

	report, err := svc.Resync(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 1, report.Ingested)
	assert.Equal(t, 1, report.Skipped)
	assert.Zero(t, report.Failed)
}
