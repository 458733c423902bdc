package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"

	"github.com/doclibre/ragline/internal/reference"
	"github.com/doclibre/ragline/internal/retrieve"
)

type Config struct {
	Port              int               `json:"port"`
	LogConfig         logger.LogConfig  `json:"log_config"`
	CORSAllowlist     []string          `json:"cors_allowlist"`
	RateLimitWindowMS int               `json:"rate_limit_window_ms"`
	FileStore         PluginConfig      `json:"file_store"`
	Index             IndexConfig       `json:"index"`
	AI                AIConfig          `json:"ai"`
	Ingest            IngestConfig      `json:"ingest"`
	Retrieve          retrieve.Options  `json:"retrieve"`
	Links             reference.Options `json:"links"`
	Chat              ChatConfig        `json:"chat"`
	Resync            ResyncConfig      `json:"resync"`
}

// PluginConfig selects a registry-backed implementation; Data is decoded by
// the chosen factory.
type PluginConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type IndexConfig struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data"`
	Names IndexNames  `json:"names"`
}

type IndexNames struct {
	FullText string `json:"full_text"`
	Summary  string `json:"summary"`
	Date     string `json:"date"`
}

type AIConfig struct {
	Generator ProviderConfig `json:"generator"`
	Embedder  ProviderConfig `json:"embedder"`
}

type ProviderConfig struct {
	Provider string      `json:"provider"`
	Model    string      `json:"model"`
	Data     interface{} `json:"data"`
}

type IngestConfig struct {
	MaxFileSize      int64         `json:"max_file_size"`
	ChunkSize        int           `json:"chunk_size"`
	ChunkOverlap     int           `json:"chunk_overlap"`
	SummaryMaxLength int           `json:"summary_max_length"`
	Summary          SummaryConfig `json:"summary"`
}

type SummaryConfig struct {
	CoarseSize    int    `json:"coarse_size"`
	CoarseOverlap int    `json:"coarse_overlap"`
	MaxSentences  int    `json:"max_sentences"`
	RefusalMarker string `json:"refusal_marker"`
}

type ChatConfig struct {
	BlockedMessage     string `json:"blocked_message"`
	PromptTemplate     string `json:"prompt_template"`
	AnswerCacheSize    int    `json:"answer_cache_size"`
	AnswerCacheTTLMins int    `json:"answer_cache_ttl_minutes"`
}

type ResyncConfig struct {
	Cron   string `json:"cron"`
	Prefix string `json:"prefix"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	cfg := &Config{Retrieve: retrieve.DefaultOptions()}
	if err := json.NewDecoder(file).Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) applyDefaults() error {
	if cfg.Port == 0 {
		cfg.Port = 8180
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.FileStore.Type == "" {
		return fmt.Errorf("file_store.type is required")
	}
	if cfg.Index.Type == "" {
		return fmt.Errorf("index.type is required")
	}
	if cfg.AI.Generator.Provider == "" || cfg.AI.Generator.Model == "" {
		return fmt.Errorf("ai.generator provider and model are required")
	}
	if cfg.AI.Embedder.Provider == "" || cfg.AI.Embedder.Model == "" {
		return fmt.Errorf("ai.embedder provider and model are required")
	}
	if cfg.Ingest.MaxFileSize <= 0 {
		cfg.Ingest.MaxFileSize = 25000000
	}
	if cfg.Ingest.ChunkSize <= 0 {
		cfg.Ingest.ChunkSize = 512
	}
	if cfg.Ingest.ChunkOverlap < 0 {
		cfg.Ingest.ChunkOverlap = 0
	}
	if cfg.Ingest.SummaryMaxLength <= 0 {
		cfg.Ingest.SummaryMaxLength = 5000
	}
	if cfg.Chat.BlockedMessage == "" {
		cfg.Chat.BlockedMessage = "Sorry, the model cannot answer this question."
	}
	if cfg.Chat.PromptTemplate == "" {
		cfg.Chat.PromptTemplate = "Context - {context}\n\nBased only on the above context, answer this question - {question}"
	}
	if cfg.Chat.AnswerCacheSize <= 0 {
		cfg.Chat.AnswerCacheSize = 1000
	}
	if cfg.Chat.AnswerCacheTTLMins <= 0 {
		cfg.Chat.AnswerCacheTTLMins = 30
	}
	// Retrieval tunables come from an operator-editable file; force them
	// back into their documented ranges rather than failing startup.
	cfg.Retrieve = cfg.Retrieve.Clamped()
	return nil
}
