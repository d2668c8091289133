package search

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/soberm258/tiny-agents/internal/embed"
	ragerr "github.com/soberm258/tiny-agents/internal/errors"
	"github.com/soberm258/tiny-agents/internal/store"
)

// MultiDBSearcher recalls from several sibling databases, fuses the
// concatenated recall lists and reranks once.
type MultiDBSearcher struct {
	Embedder embed.Embedder
	Ranker   Reranker

	dbs []*DB
}

// DiscoverDBDirs lists database directories under root: the named ones when
// names is non-empty, else every subdirectory, sorted.
func DiscoverDBDirs(root string, names []string) []string {
	if root == "" {
		return nil
	}
	if len(names) > 0 {
		dirs := make([]string, 0, len(names))
		for _, n := range names {
			dirs = append(dirs, filepath.Join(root, n))
		}
		return dirs
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(root, e.Name()))
		}
	}
	sort.Strings(dirs)
	return dirs
}

// NewMultiDBSearcher creates a multi-database searcher over baseDirs.
// Directories missing either index subdirectory are skipped with a warning.
func NewMultiDBSearcher(baseDirs []string, embedder embed.Embedder, ranker Reranker) *MultiDBSearcher {
	if ranker == nil {
		ranker = NoOpReranker{}
	}
	m := &MultiDBSearcher{Embedder: embedder, Ranker: ranker}
	for _, dir := range baseDirs {
		bmDir := filepath.Join(dir, store.BMCorpusDirName)
		vecDir := filepath.Join(dir, store.VectorDirName)
		if !isDir(bmDir) || !isDir(vecDir) {
			slog.Warn("incomplete_db_skipped", slog.String("dir", dir))
			continue
		}
		m.dbs = append(m.dbs, &DB{BaseDir: dir})
	}
	slog.Info("multi_db_init", slog.Int("db_num", len(m.dbs)))
	return m
}

// LoadAll loads every database. A database that fails to load is logged
// and dropped; at least one database must survive.
func (m *MultiDBSearcher) LoadAll() error {
	var loaded []*DB
	for _, db := range m.dbs {
		bm25, err := store.NewBM25Index(store.DefaultBM25Config())
		if err != nil {
			return err
		}
		if err := bm25.Load(filepath.Join(db.BaseDir, store.BMCorpusDirName)); err != nil {
			slog.Error("bm25_load_failed", slog.String("db", db.BaseDir), slog.String("error", err.Error()))
			continue
		}
		vector, err := store.LoadVectorIndex(filepath.Join(db.BaseDir, store.VectorDirName), m.Embedder.Dimensions())
		if err != nil {
			slog.Error("vector_load_failed", slog.String("db", db.BaseDir), slog.String("error", err.Error()))
			continue
		}
		db.BM25 = bm25
		db.Vector = vector
		loaded = append(loaded, db)
	}
	if len(loaded) == 0 {
		return ragerr.New(ragerr.ErrCodeDBNotFound, "没有可用的数据库目录", nil)
	}
	m.dbs = loaded
	slog.Info("multi_db_load_complete", slog.Int("db_num", len(loaded)))
	return nil
}

// DBs returns the loaded databases.
func (m *MultiDBSearcher) DBs() []*DB {
	return m.dbs
}

// DBByName returns the database whose directory basename matches name.
func (m *MultiDBSearcher) DBByName(name string) *DB {
	for _, db := range m.dbs {
		if filepath.Base(db.BaseDir) == name {
			return db
		}
	}
	return nil
}

// SearchAdvanced fans recall out across all databases before one fusion and
// one rerank pass.
func (m *MultiDBSearcher) SearchAdvanced(ctx context.Context, p AdvancedParams) ([]ScoredPassage, error) {
	provider := &MultiDBRecall{DBs: m.dbs, Embedder: m.Embedder}
	return RunSearchAdvanced(ctx, provider, m.Ranker, p)
}

// SearchDB runs the pipeline against the single named database.
func (m *MultiDBSearcher) SearchDB(ctx context.Context, name string, p AdvancedParams) ([]ScoredPassage, error) {
	db := m.DBByName(name)
	if db == nil {
		return nil, ragerr.New(ragerr.ErrCodeDBNotFound, "数据库不存在："+name, nil)
	}
	provider := &SingleDBRecall{BM25: db.BM25, Vector: db.Vector, Embedder: m.Embedder}
	return RunSearchAdvanced(ctx, provider, m.Ranker, p)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
