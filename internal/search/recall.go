package search

import (
	"context"
	"log/slog"

	"github.com/soberm258/tiny-agents/internal/embed"
	"github.com/soberm258/tiny-agents/internal/store"
)

// RecallProvider fans a query out to the lexical and dense indexes.
// The two queries may differ: HyDE sends the original query to BM25 and the
// hypothetical answer's embedding to the vector index.
type RecallProvider interface {
	Recall(ctx context.Context, bm25Query, embQuery string, recallK int) (bm25, emb []store.RecallItem, err error)
}

// SingleDBRecall recalls from one database.
type SingleDBRecall struct {
	BM25     *store.BM25Index
	Vector   *store.VectorIndex
	Embedder embed.Embedder
}

// Verify interface implementation at compile time.
var _ RecallProvider = (*SingleDBRecall)(nil)

// Recall runs one BM25 call and one vector call with the same recall_k.
func (s *SingleDBRecall) Recall(ctx context.Context, bm25Query, embQuery string, recallK int) ([]store.RecallItem, []store.RecallItem, error) {
	if recallK < 1 {
		recallK = 1
	}

	bm25List, err := s.BM25.Search(bm25Query, recallK)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("bm25_recall", slog.Int("num", len(bm25List)))

	queryVec, err := s.Embedder.Embed(ctx, embQuery)
	if err != nil {
		return nil, nil, err
	}
	embList, err := s.Vector.Search(queryVec, recallK)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("emb_recall", slog.Int("num", len(embList)))

	return bm25List, embList, nil
}

// MultiDBRecall partitions recall_k across sibling databases as
// ceil(recall_k/N) per database and concatenates the results. A failing
// database is logged and contributes an empty recall.
type MultiDBRecall struct {
	DBs      []*DB
	Embedder embed.Embedder
}

// Verify interface implementation at compile time.
var _ RecallProvider = (*MultiDBRecall)(nil)

// Recall fans out to every database.
func (m *MultiDBRecall) Recall(ctx context.Context, bm25Query, embQuery string, recallK int) ([]store.RecallItem, []store.RecallItem, error) {
	if recallK < 1 {
		recallK = 1
	}
	dbNum := len(m.DBs)
	if dbNum == 0 {
		return nil, nil, nil
	}
	perDBK := (recallK + dbNum - 1) / dbNum
	if perDBK < 1 {
		perDBK = 1
	}

	var bm25All []store.RecallItem
	for _, db := range m.DBs {
		items, err := db.BM25.Search(bm25Query, perDBK)
		if err != nil {
			slog.Error("bm25_recall_failed", slog.String("db", db.BaseDir), slog.String("error", err.Error()))
			continue
		}
		bm25All = append(bm25All, items...)
	}

	queryVec, err := m.Embedder.Embed(ctx, embQuery)
	if err != nil {
		return nil, nil, err
	}
	var embAll []store.RecallItem
	for _, db := range m.DBs {
		items, err := db.Vector.Search(queryVec, perDBK)
		if err != nil {
			slog.Error("emb_recall_failed", slog.String("db", db.BaseDir), slog.String("error", err.Error()))
			continue
		}
		embAll = append(embAll, items...)
	}

	return bm25All, embAll, nil
}
