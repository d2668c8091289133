package search

import (
	"context"
	"log/slog"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/soberm258/tiny-agents/internal/chunk"
	"github.com/soberm258/tiny-agents/internal/embed"
	ragerr "github.com/soberm258/tiny-agents/internal/errors"
	"github.com/soberm258/tiny-agents/internal/store"
)

// DB is one loaded database: its BM25 index and vector index share the
// insertion-index space because both are built from the same chunk stream.
type DB struct {
	BaseDir string
	BM25    *store.BM25Index
	Vector  *store.VectorIndex
}

// AdvancedParams parameterizes one advanced search.
type AdvancedParams struct {
	// RerankQuery scores (query, passage) pairs in the cross-encoder.
	RerankQuery string
	// BM25Query feeds the lexical index.
	BM25Query string
	// EmbQuery is embedded for dense recall (the HyDE text when enabled).
	EmbQuery string

	TopN    int
	RecallK int
	// Fusion is "rrf" or "dedup".
	Fusion     string
	RRFK       int
	BM25Weight float64
	EmbWeight  float64
}

// normalize clamps parameters: top_n >= 1 and recall_k >= top_n
// (defaulting to 2*top_n).
func (p *AdvancedParams) normalize() {
	if p.TopN < 1 {
		p.TopN = 1
	}
	if p.RecallK == 0 {
		p.RecallK = 2 * p.TopN
	}
	if p.RecallK < p.TopN {
		p.RecallK = p.TopN
	}
	if p.RRFK <= 0 {
		p.RRFK = DefaultRRFConstant
	}
	if p.BM25Weight == 0 {
		p.BM25Weight = 1.0
	}
	if p.EmbWeight == 0 {
		p.EmbWeight = 1.0
	}
}

// RunSearchAdvanced is the shared recall -> fuse -> rerank pipeline.
func RunSearchAdvanced(ctx context.Context, provider RecallProvider, ranker Reranker, p AdvancedParams) ([]ScoredPassage, error) {
	p.normalize()

	bm25List, embList, err := provider.Recall(ctx, p.BM25Query, p.EmbQuery, p.RecallK)
	if err != nil {
		return nil, err
	}

	var candidates []*chunk.Passage
	if p.Fusion == "dedup" {
		candidates = DedupFuse(bm25List, embList, p.RecallK)
	} else {
		candidates = RRFFuse(bm25List, embList, p.RecallK, p.RRFK, p.BM25Weight, p.EmbWeight)
	}
	slog.Info("fusion_candidates", slog.Int("num", len(candidates)))

	return ranker.Rank(ctx, p.RerankQuery, candidates, p.TopN)
}

// Searcher owns one database and its query pipeline.
type Searcher struct {
	BaseDir  string
	Embedder embed.Embedder
	Ranker   Reranker

	db *DB
}

// NewSearcher creates a searcher rooted at baseDir. Indexes load lazily via
// LoadDB or get populated by BuildDB.
func NewSearcher(baseDir string, embedder embed.Embedder, ranker Reranker) *Searcher {
	if ranker == nil {
		ranker = NoOpReranker{}
	}
	return &Searcher{BaseDir: baseDir, Embedder: embedder, Ranker: ranker}
}

// DB returns the loaded database, nil before LoadDB/BuildDB.
func (s *Searcher) DB() *DB {
	return s.db
}

// BuildDB indexes the chunk stream into fresh BM25 and vector indexes.
// The two builds run concurrently (they share no state); embedding runs in
// sequential batches to preserve the forward payload's insertion order.
func (s *Searcher) BuildDB(ctx context.Context, chunks []*chunk.Passage, batchSize int) error {
	if len(chunks) == 0 {
		return ragerr.EmptyIndexError()
	}
	if batchSize < 1 {
		batchSize = 16
	}

	bm25, err := store.NewBM25Index(store.DefaultBM25Config())
	if err != nil {
		return err
	}

	dim := s.Embedder.Dimensions()
	if dim == 0 {
		probe, err := s.Embedder.Embed(ctx, "test_dim")
		if err != nil {
			return ragerr.IndexError("嵌入维度探测失败", err)
		}
		dim = len(probe)
	}
	vector, err := store.NewVectorIndex(dim)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		const bmBatch = 1024
		for start := 0; start < len(chunks); start += bmBatch {
			end := start + bmBatch
			if end > len(chunks) {
				end = len(chunks)
			}
			if err := bm25.Add(chunks[start:end]); err != nil {
				return err
			}
		}
		slog.Info("bm25_build_complete", slog.Int("docs", bm25.Len()))
		return nil
	})

	g.Go(func() error {
		for start := 0; start < len(chunks); start += batchSize {
			end := start + batchSize
			if end > len(chunks) {
				end = len(chunks)
			}
			batch := chunks[start:end]
			texts := make([]string, len(batch))
			for i, c := range batch {
				texts[i] = c.Text
			}
			vecs, err := s.Embedder.EmbedBatch(gctx, texts, batchSize)
			if err != nil {
				return ragerr.IndexError("批量嵌入失败", err)
			}
			if err := vector.BatchInsert(vecs, batch); err != nil {
				return err
			}
		}
		slog.Info("vector_build_complete", slog.Int("vectors", vector.Len()))
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	s.db = &DB{BaseDir: s.BaseDir, BM25: bm25, Vector: vector}
	return nil
}

// SaveDB persists both indexes under the database directory.
func (s *Searcher) SaveDB() error {
	if s.db == nil {
		return ragerr.IndexError("数据库尚未构建", nil)
	}
	if err := s.db.BM25.Save(filepath.Join(s.BaseDir, store.BMCorpusDirName)); err != nil {
		return err
	}
	return s.db.Vector.Save(filepath.Join(s.BaseDir, store.VectorDirName))
}

// LoadDB opens the persisted indexes, validating the vector dimension
// against the embedder when it is known.
func (s *Searcher) LoadDB() error {
	bm25, err := store.NewBM25Index(store.DefaultBM25Config())
	if err != nil {
		return err
	}
	if err := bm25.Load(filepath.Join(s.BaseDir, store.BMCorpusDirName)); err != nil {
		return err
	}

	vector, err := store.LoadVectorIndex(filepath.Join(s.BaseDir, store.VectorDirName), s.Embedder.Dimensions())
	if err != nil {
		return err
	}

	s.db = &DB{BaseDir: s.BaseDir, BM25: bm25, Vector: vector}
	slog.Info("db_load_complete", slog.String("dir", s.BaseDir))
	return nil
}

// SearchAdvanced runs the full pipeline against this database.
func (s *Searcher) SearchAdvanced(ctx context.Context, p AdvancedParams) ([]ScoredPassage, error) {
	if s.db == nil {
		return nil, ragerr.IndexError("数据库尚未加载", nil)
	}
	provider := &SingleDBRecall{BM25: s.db.BM25, Vector: s.db.Vector, Embedder: s.Embedder}
	return RunSearchAdvanced(ctx, provider, s.Ranker, p)
}

// Search is the simple entry: same query for all stages, dedup fusion,
// recall_k = 2*top_n.
func (s *Searcher) Search(ctx context.Context, query string, topN int) ([]ScoredPassage, error) {
	return s.SearchAdvanced(ctx, AdvancedParams{
		RerankQuery: query,
		BM25Query:   query,
		EmbQuery:    query,
		TopN:        topN,
		Fusion:      "dedup",
	})
}
