package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `{
  "file_store": {"type": "local", "data": {"dir": "/tmp/docs"}},
  "index": {"type": "memory"},
  "ai": {
    "generator": {"provider": "gemini", "model": "gemini-2.0-flash", "data": {"key": "k"}},
    "embedder": {"provider": "gemini", "model": "text-embedding-004", "data": {"key": "k"}}
  }
}`

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, 8180, cfg.Port)
	assert.Equal(t, "info", cfg.LogConfig.Level)
	assert.Equal(t, int64(25000000), cfg.Ingest.MaxFileSize)
	assert.Equal(t, 512, cfg.Ingest.ChunkSize)
	assert.Equal(t, 5000, cfg.Ingest.SummaryMaxLength)
	assert.Equal(t, 1000, cfg.Chat.AnswerCacheSize)
	assert.Equal(t, 30, cfg.Chat.AnswerCacheTTLMins)
	assert.Contains(t, cfg.Chat.PromptTemplate, "{context}")
	assert.Contains(t, cfg.Chat.PromptTemplate, "{question}")
	assert.NotEmpty(t, cfg.Chat.BlockedMessage)

	// retrieval tunables default and clamp
	assert.True(t, cfg.Retrieve.UseSummary)
	assert.Equal(t, 0.9, cfg.Retrieve.SummaryScoreThreshold)
	assert.Equal(t, 15000, cfg.Retrieve.MaxContextLength)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{
      "port": 9100,
      "file_store": {"type": "s3", "data": {"bucket": "docs"}},
      "index": {"type": "opensearch", "names": {"full_text": "ft"}},
      "ai": {
        "generator": {"provider": "openai", "model": "gpt-4o", "data": {}},
        "embedder": {"provider": "openai", "model": "text-embedding-3-small", "data": {}}
      },
      "retrieve": {"summary_weight_over_full_text": 99, "use_summary": false},
      "ingest": {"max_file_size": 1000}
    }`))
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, "ft", cfg.Index.Names.FullText)
	assert.Equal(t, int64(1000), cfg.Ingest.MaxFileSize)
	assert.False(t, cfg.Retrieve.UseSummary)
	// weight is forced back into its documented range
	assert.Equal(t, 5.0, cfg.Retrieve.SummaryWeight)
}

func TestLoadMissingRequired(t *testing.T) {
	for name, content := range map[string]string{
		"no file store": `{"index":{"type":"memory"},"ai":{"generator":{"provider":"p","model":"m"},"embedder":{"provider":"p","model":"m"}}}`,
		"no index":      `{"file_store":{"type":"local"},"ai":{"generator":{"provider":"p","model":"m"},"embedder":{"provider":"p","model":"m"}}}`,
		"no generator":  `{"file_store":{"type":"local"},"index":{"type":"memory"},"ai":{"embedder":{"provider":"p","model":"m"}}}`,
		"no embedder":   `{"file_store":{"type":"local"},"index":{"type":"memory"},"ai":{"generator":{"provider":"p","model":"m"}}}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestLoadBadJSON(t *testing.T) {
	_, err := Load(writeConfig(t, "{not json"))
	assert.Error(t, err)
}
