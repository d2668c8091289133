package rag

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/soberm258/tiny-agents/internal/chunk"
	"github.com/soberm258/tiny-agents/internal/config"
	"github.com/soberm258/tiny-agents/internal/embed"
	ragerr "github.com/soberm258/tiny-agents/internal/errors"
	"github.com/soberm258/tiny-agents/internal/ingest"
	"github.com/soberm258/tiny-agents/internal/llm"
	"github.com/soberm258/tiny-agents/internal/search"
	"github.com/soberm258/tiny-agents/internal/store"
)

// Pipeline wires ingestion, indexing and strategy-driven search for one
// configuration.
type Pipeline struct {
	Config   *config.Config
	LLM      llm.LLM
	Embedder embed.Embedder
	Ranker   search.Reranker

	searcher *search.Searcher
	multi    *search.MultiDBSearcher
}

// New creates a pipeline.
func New(cfg *config.Config, model llm.LLM, embedder embed.Embedder, ranker search.Reranker) *Pipeline {
	if ranker == nil {
		ranker = search.NoOpReranker{}
	}
	return &Pipeline{Config: cfg, LLM: model, Embedder: embedder, Ranker: ranker}
}

// Searcher returns the single-DB searcher: nil before Load or Build, and
// always nil in multi-DB mode.
func (p *Pipeline) Searcher() *search.Searcher {
	return p.searcher
}

// Multi returns the multi-DB searcher, nil unless multi-DB mode is loaded.
func (p *Pipeline) Multi() *search.MultiDBSearcher {
	return p.multi
}

// Build ingests the configured source, chunks it, writes the manifest and
// builds both indexes under the database directory. The directory is locked
// for the duration so concurrent builds cannot interleave.
func (p *Pipeline) Build(ctx context.Context) error {
	baseDir := p.Config.ResolveDBDir()
	if baseDir == "" {
		return ragerr.ConfigError("无法确定数据库目录（缺少 db_name 与 source_path）", nil)
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return ragerr.IndexError("创建数据库目录失败："+baseDir, err)
	}
	slog.Info("db_dir_resolved", slog.String("dir", baseDir))

	lock := flock.New(filepath.Join(baseDir, ".build.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return ragerr.IndexError("数据库目录加锁失败："+baseDir, err)
	}
	if !locked {
		return ragerr.IndexError("数据库目录正在被其他构建占用："+baseDir, nil)
	}
	defer func() { _ = lock.Unlock() }()

	docs, err := ingest.LoadDocsForBuild(p.Config.SourcePath, ingest.Options{
		JSONTextKey:  p.Config.Chunking.JSONTextKey,
		Recursive:    true,
		SentenceSize: p.Config.Chunking.SentenceSize,
	})
	if err != nil {
		return err
	}
	slog.Info("load_docs_complete", slog.Int("doc_num", len(docs)))

	chunks, err := chunk.ChunkAll(docs, chunk.Options{
		SentenceSize: p.Config.Chunking.SentenceSize,
		MinChunkLen:  p.Config.Chunking.MinChunkLen,
	})
	if err != nil {
		return err
	}
	slog.Info("split_sentence_complete", slog.Int("chunk_num", len(chunks)))
	if len(chunks) == 0 {
		return ragerr.EmptyIndexError()
	}

	if err := store.WriteManifest(baseDir, chunks); err != nil {
		return err
	}

	p.searcher = search.NewSearcher(baseDir, p.Embedder, p.Ranker)
	if err := p.searcher.BuildDB(ctx, chunks, p.Config.EmbeddingBatchSize()); err != nil {
		return err
	}
	if err := p.searcher.SaveDB(); err != nil {
		return err
	}
	slog.Info("build_db_complete", slog.String("dir", baseDir))
	return nil
}

// Load opens the configured database(s) read-only.
func (p *Pipeline) Load() error {
	if p.Config.MultiDB.Enabled {
		dirs := search.DiscoverDBDirs(p.Config.DBRootDir, p.Config.MultiDB.Names)
		p.multi = search.NewMultiDBSearcher(dirs, p.Embedder, p.Ranker)
		return p.multi.LoadAll()
	}

	baseDir := p.Config.ResolveDBDir()
	if baseDir == "" {
		return ragerr.ConfigError("无法确定数据库目录（缺少 db_name 与 source_path）", nil)
	}
	if info, err := os.Stat(baseDir); err != nil || !info.IsDir() {
		return ragerr.New(ragerr.ErrCodeDBNotFound, "数据库目录不存在："+baseDir, err)
	}
	p.searcher = search.NewSearcher(baseDir, p.Embedder, p.Ranker)
	return p.searcher.LoadDB()
}

// Search answers one query with the configured retrieval strategy and
// returns the final answer with its citation appendix.
func (p *Pipeline) Search(ctx context.Context, query string, topN int) (string, error) {
	if topN < 1 {
		topN = 1
	}
	cfg := p.Config
	recallK := cfg.Retrieval.RecallFactor * topN
	if recallK < topN {
		recallK = topN
	}

	var draftAnswer, hydeText string
	if cfg.Retrieval.Strategy == config.StrategyHyDE {
		hydeText = llm.GenerateWithTimeout(ctx, p.LLM, BuildHydePrompt(query), 0)
		if llm.IsFailure(hydeText) {
			hydeText = ""
		}
		if cfg.Retrieval.HydeUseAsAnswer && hydeText != "" {
			draftAnswer = hydeText
		} else {
			draftAnswer = llm.GenerateWithTimeout(ctx, p.LLM, query, 0)
		}
	} else {
		// Answer-augmented: retrieve with query + draft answer + query.
		draftAnswer = llm.GenerateWithTimeout(ctx, p.LLM, query, 0)
	}

	params := search.AdvancedParams{
		RerankQuery: query,
		TopN:        topN,
		RecallK:     recallK,
		Fusion:      cfg.Retrieval.Fusion,
		RRFK:        cfg.Retrieval.RRFK,
		BM25Weight:  cfg.Retrieval.BM25Weight,
		EmbWeight:   cfg.Retrieval.EmbWeight,
	}
	if cfg.Retrieval.Strategy == config.StrategyHyDE && hydeText != "" {
		params.BM25Query = query
		params.EmbQuery = hydeText
	} else {
		searchQuery := query
		if !llm.IsFailure(draftAnswer) {
			searchQuery = query + draftAnswer + query
		}
		params.BM25Query = searchQuery
		params.EmbQuery = searchQuery
	}

	scored, err := p.searchAdvanced(ctx, params)
	if err != nil {
		return "", err
	}

	contextBlock, citeLines := BuildContextAndCitations(scored)
	prompt := BuildRAGPrompt(contextBlock, query, draftAnswer)
	answer := llm.GenerateWithTimeout(ctx, p.LLM, prompt, 0)
	return AppendCitations(answer, citeLines), nil
}

func (p *Pipeline) searchAdvanced(ctx context.Context, params search.AdvancedParams) ([]search.ScoredPassage, error) {
	if p.Config.MultiDB.Enabled {
		if p.multi == nil {
			if err := p.Load(); err != nil {
				return nil, err
			}
		}
		return p.multi.SearchAdvanced(ctx, params)
	}
	if p.searcher == nil || p.searcher.DB() == nil {
		if err := p.Load(); err != nil {
			return nil, err
		}
	}
	return p.searcher.SearchAdvanced(ctx, params)
}
