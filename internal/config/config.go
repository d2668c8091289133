// Package config defines the enumerated configuration record for tiny-agents
// and loads it from YAML with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	ragerr "github.com/soberm258/tiny-agents/internal/errors"
)

// Retrieval strategies.
const (
	StrategyAnswerAugmented = "answer_augmented"
	StrategyHyDE            = "hyde"
)

// Fusion methods.
const (
	FusionRRF   = "rrf"
	FusionDedup = "dedup"
)

// Config is the complete tiny-agents configuration.
type Config struct {
	DBRootDir  string `yaml:"db_root_dir" json:"db_root_dir"`
	DBName     string `yaml:"db_name" json:"db_name"`
	SourcePath string `yaml:"source_path" json:"source_path"`

	LLM       LLMConfig       `yaml:"llm" json:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding" json:"embedding"`
	Reranker  RerankerConfig  `yaml:"reranker" json:"reranker"`
	Chunking  ChunkingConfig  `yaml:"chunking" json:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval" json:"retrieval"`
	Agent     AgentConfig     `yaml:"agent" json:"agent"`
	MultiDB   MultiDBConfig   `yaml:"multi_db" json:"multi_db"`
}

// LLMConfig configures the external text-generation collaborator.
// APIKey, ModelID and BaseURL fall back to LLM_API_KEY, LLM_MODEL_ID and
// LLM_BASE_URL (environment or .env).
type LLMConfig struct {
	ModelID    string `yaml:"model_id" json:"model_id"`
	BaseURL    string `yaml:"base_url" json:"base_url"`
	APIKey     string `yaml:"api_key" json:"api_key"`
	TimeoutSec int    `yaml:"timeout_sec" json:"timeout_sec"`
}

// EmbeddingConfig configures the text-embedding collaborator.
type EmbeddingConfig struct {
	Model   string `yaml:"model" json:"model"`
	BaseURL string `yaml:"base_url" json:"base_url"`
	APIKey  string `yaml:"api_key" json:"api_key"`

	// Device selects the batch-size default: 96 on an accelerator, 16 on CPU.
	// TINYRAG_EMB_BATCH_SIZE overrides both.
	Device    string `yaml:"device" json:"device"`
	BatchSize int    `yaml:"batch_size" json:"batch_size"`
}

// RerankerConfig configures the cross-encoder scoring collaborator.
// An empty BaseURL disables reranking (results keep fusion order).
type RerankerConfig struct {
	Model   string `yaml:"model" json:"model"`
	BaseURL string `yaml:"base_url" json:"base_url"`
	APIKey  string `yaml:"api_key" json:"api_key"`
}

// ChunkingConfig configures document splitting.
type ChunkingConfig struct {
	SentenceSize int    `yaml:"sentence_size" json:"sentence_size"`
	MinChunkLen  int    `yaml:"min_chunk_len" json:"min_chunk_len"`
	JSONTextKey  string `yaml:"json_text_key" json:"json_text_key"`
}

// RetrievalConfig configures the recall and fusion pipeline.
type RetrievalConfig struct {
	// Strategy is "answer_augmented" or "hyde".
	Strategy string `yaml:"strategy" json:"strategy"`
	// Fusion is "rrf" or "dedup".
	Fusion       string  `yaml:"fusion" json:"fusion"`
	RecallFactor int     `yaml:"recall_factor" json:"recall_factor"`
	RRFK         int     `yaml:"rrf_k" json:"rrf_k"`
	BM25Weight   float64 `yaml:"bm25_weight" json:"bm25_weight"`
	EmbWeight    float64 `yaml:"emb_weight" json:"emb_weight"`
	TopN         int     `yaml:"top_n" json:"top_n"`
	// HydeUseAsAnswer reuses the hypothetical answer as the draft answer
	// instead of generating a second draft.
	HydeUseAsAnswer bool `yaml:"hyde_use_as_answer" json:"hyde_use_as_answer"`
}

// AgentConfig configures the ReAct loop budgets.
type AgentConfig struct {
	MaxSteps      int `yaml:"max_steps" json:"max_steps"`
	MaxToolCalls  int `yaml:"max_tool_calls" json:"max_tool_calls"`
	LLMTimeoutSec int `yaml:"llm_timeout_sec" json:"llm_timeout_sec"`
	DefaultTopK   int `yaml:"default_topk" json:"default_topk"`
}

// MultiDBConfig configures multi-database fan-out.
type MultiDBConfig struct {
	Enabled bool     `yaml:"enabled" json:"enabled"`
	Names   []string `yaml:"names" json:"names"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		DBRootDir: "data/db",
		LLM: LLMConfig{
			TimeoutSec: 180,
		},
		Embedding: EmbeddingConfig{
			Device: "cpu",
		},
		Chunking: ChunkingConfig{
			SentenceSize: 2048,
			MinChunkLen:  20,
			JSONTextKey:  "completion",
		},
		Retrieval: RetrievalConfig{
			Strategy:     StrategyAnswerAugmented,
			Fusion:       FusionRRF,
			RecallFactor: 2,
			RRFK:         60,
			BM25Weight:   1.0,
			EmbWeight:    1.0,
			TopN:         3,
		},
		Agent: AgentConfig{
			MaxSteps:      6,
			MaxToolCalls:  2,
			LLMTimeoutSec: 180,
			DefaultTopK:   5,
		},
	}
}

// Load reads the YAML config at path, merges defaults, applies environment
// overrides and validates. An empty path yields the defaults; a path that
// cannot be read is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, ragerr.ConfigError(fmt.Sprintf("读取配置失败：%s", path), err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, ragerr.ConfigError(fmt.Sprintf("解析配置失败：%s", path), err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv merges process environment and .env values into the config.
// Explicit YAML values win over .env file values; real environment
// variables win over both.
func (c *Config) applyEnv() {
	// .env values are a fallback only, never an override.
	dotenv, _ := godotenv.Read(".env")
	get := func(key string, unset bool) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		if unset {
			return dotenv[key]
		}
		return ""
	}

	if v := get("LLM_API_KEY", c.LLM.APIKey == ""); v != "" {
		c.LLM.APIKey = v
	}
	if v := get("LLM_MODEL_ID", c.LLM.ModelID == ""); v != "" {
		c.LLM.ModelID = v
	}
	if v := get("LLM_BASE_URL", c.LLM.BaseURL == ""); v != "" {
		c.LLM.BaseURL = v
	}
	if v := get("TINYRAG_EMB_BATCH_SIZE", c.Embedding.BatchSize <= 0); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Embedding.BatchSize = n
		}
	}
}

// EmbeddingBatchSize returns the effective embedding batch size:
// the configured value, else 96 on an accelerator, 16 on CPU.
func (c *Config) EmbeddingBatchSize() int {
	if c.Embedding.BatchSize > 0 {
		return c.Embedding.BatchSize
	}
	if strings.Contains(strings.ToLower(c.Embedding.Device), "cuda") {
		return 96
	}
	return 16
}

// Validate checks enumerated fields and numeric ranges.
func (c *Config) Validate() error {
	switch c.Retrieval.Strategy {
	case StrategyAnswerAugmented, StrategyHyDE:
	default:
		return ragerr.ConfigError(fmt.Sprintf("未知检索策略：%q（可选 answer_augmented/hyde）", c.Retrieval.Strategy), nil)
	}
	switch c.Retrieval.Fusion {
	case FusionRRF, FusionDedup:
	default:
		return ragerr.ConfigError(fmt.Sprintf("未知融合方法：%q（可选 rrf/dedup）", c.Retrieval.Fusion), nil)
	}
	if c.Retrieval.RRFK <= 0 {
		c.Retrieval.RRFK = 60
	}
	if c.Retrieval.RecallFactor <= 0 {
		c.Retrieval.RecallFactor = 2
	}
	if c.Chunking.MinChunkLen <= 0 {
		c.Chunking.MinChunkLen = 20
	}
	if c.Chunking.SentenceSize <= 0 {
		c.Chunking.SentenceSize = 2048
	}
	if c.Agent.MaxSteps <= 0 {
		c.Agent.MaxSteps = 6
	}
	if c.Agent.MaxToolCalls < 0 {
		c.Agent.MaxToolCalls = 0
	}
	if c.Agent.LLMTimeoutSec <= 0 {
		c.Agent.LLMTimeoutSec = 180
	}
	return nil
}

// ResolveDBDir resolves the database directory under the root.
// Naming rule: <db_root>/<db_name>, where db_name defaults to the source
// basename without extension.
func (c *Config) ResolveDBDir() string {
	name := c.DBName
	if name == "" && c.SourcePath != "" {
		base := filepath.Base(c.SourcePath)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if name == "" {
		return ""
	}
	return filepath.Join(c.DBRootDir, name)
}
