// Package cmd provides the CLI commands for tinyrag.
package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/soberm258/tiny-agents/internal/config"
	"github.com/soberm258/tiny-agents/internal/embed"
	"github.com/soberm258/tiny-agents/internal/llm"
	"github.com/soberm258/tiny-agents/internal/logging"
	"github.com/soberm258/tiny-agents/internal/rag"
	"github.com/soberm258/tiny-agents/internal/search"
	"github.com/soberm258/tiny-agents/pkg/version"
)

var (
	configPath     string
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the tinyrag CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tinyrag",
		Short: "Hybrid retrieval QA with a ReAct agent loop",
		Long: `tinyrag builds hybrid (BM25 + vector) retrieval databases over raw
documents and answers questions against them, either through a direct
RAG pass or a tool-using ReAct agent.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("tinyrag version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the YAML config file")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	cmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		logCfg := logging.DefaultConfig()
		if debugMode {
			logCfg = logging.DebugConfig()
		}
		cleanup, err := logging.SetupDefault(logCfg)
		if err != nil {
			return err
		}
		loggingCleanup = cleanup
		return nil
	}
	cmd.PersistentPostRun = func(_ *cobra.Command, _ []string) {
		if loggingCleanup != nil {
			loggingCleanup()
		}
	}

	cmd.AddCommand(newBuildCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// loadConfig loads the config file named by --config.
func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

// buildLLM creates the chat-completions client from config.
func buildLLM(cfg *config.Config) llm.LLM {
	return llm.NewOpenAIChat(llm.Config{
		ModelID: cfg.LLM.ModelID,
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
	})
}

// buildEmbedder creates the embeddings client from config.
func buildEmbedder(cfg *config.Config) embed.Embedder {
	return embed.NewOpenAIEmbedder(embed.OpenAIConfig{
		Model:   cfg.Embedding.Model,
		BaseURL: cfg.Embedding.BaseURL,
		APIKey:  cfg.Embedding.APIKey,
	})
}

// buildRanker creates the cross-encoder client; with no endpoint configured
// results keep fusion order.
func buildRanker(cfg *config.Config) search.Reranker {
	if cfg.Reranker.BaseURL == "" {
		return search.NoOpReranker{}
	}
	return search.NewHTTPReranker(cfg.Reranker.BaseURL, cfg.Reranker.Model, cfg.Reranker.APIKey)
}

// buildPipeline assembles the full pipeline from config.
func buildPipeline(cfg *config.Config) *rag.Pipeline {
	return rag.New(cfg, buildLLM(cfg), buildEmbedder(cfg), buildRanker(cfg))
}

// llmTimeout returns the configured per-call LLM deadline.
func llmTimeout(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Agent.LLMTimeoutSec) * time.Second
}
