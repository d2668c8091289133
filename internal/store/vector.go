package store

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/coder/hnsw"

	"github.com/soberm258/tiny-agents/internal/chunk"
	ragerr "github.com/soberm258/tiny-agents/internal/errors"
)

const (
	vectorIndexName   = "invert_index.faiss"
	forwardIndexName  = "forward_index.txt"
	vectorIndexPrefix = "index_"
)

// VectorIndex is the dense recall index: an approximate-nearest-neighbor
// graph over L2 distance with a forward payload keyed by insertion index.
// Vectors are inserted in passage order so the insertion-index space is
// shared with the BM25 index.
type VectorIndex struct {
	mu       sync.RWMutex
	graph    *hnsw.Graph[uint64]
	dim      int
	passages []*chunk.Passage
	closed   bool
}

// NewVectorIndex creates an empty index with the embedding dimension
// determined by the embedding model at build time.
func NewVectorIndex(dim int) (*VectorIndex, error) {
	if dim <= 0 {
		return nil, ragerr.IndexError(fmt.Sprintf("非法向量维度：%d", dim), nil)
	}
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.EuclideanDistance
	graph.M = 16
	graph.EfSearch = 20
	graph.Ml = 0.25
	return &VectorIndex{graph: graph, dim: dim}, nil
}

// Dimensions returns the index dimension.
func (v *VectorIndex) Dimensions() int {
	return v.dim
}

// Len returns the number of stored vectors.
func (v *VectorIndex) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.passages)
}

// BatchInsert inserts vectors with their passages, preserving order.
func (v *VectorIndex) BatchInsert(vectors [][]float32, passages []*chunk.Passage) error {
	if len(vectors) != len(passages) {
		return fmt.Errorf("vectors and passages length mismatch: %d vs %d", len(vectors), len(passages))
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return fmt.Errorf("index is closed")
	}

	for i, vec := range vectors {
		if len(vec) != v.dim {
			return ragerr.New(ragerr.ErrCodeDimensionMismatch,
				fmt.Sprintf("向量维度不匹配：期望 %d，实际 %d", v.dim, len(vec)), nil)
		}
		key := uint64(len(v.passages))
		v.graph.Add(hnsw.MakeNode(key, vec))
		v.passages = append(v.passages, passages[i])
	}
	return nil
}

// Search returns at most k recall records sorted by ascending L2 distance.
func (v *VectorIndex) Search(query []float32, k int) ([]RecallItem, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.closed {
		return nil, fmt.Errorf("index is closed")
	}
	if len(query) != v.dim {
		return nil, ragerr.New(ragerr.ErrCodeDimensionMismatch,
			fmt.Sprintf("查询向量维度不匹配：期望 %d，实际 %d", v.dim, len(query)), nil)
	}
	if k <= 0 || v.graph.Len() == 0 {
		return []RecallItem{}, nil
	}

	nodes := v.graph.Search(query, k)
	out := make([]RecallItem, 0, len(nodes))
	for _, node := range nodes {
		idx := int(node.Key)
		if idx >= len(v.passages) {
			continue
		}
		dist := float64(v.graph.Distance(query, node.Value))
		out = append(out, RecallItem{Index: idx, Passage: v.passages[idx], Score: dist})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Score < out[b].Score })
	return out, nil
}

// Save persists the index under dir (the database's faiss_idx/ directory):
// faiss_idx/index_<d>/invert_index.faiss holds the exported graph and
// forward_index.txt the passage payload in insertion order.
func (v *VectorIndex) Save(dir string) error {
	v.mu.RLock()
	defer v.mu.RUnlock()

	sub := filepath.Join(dir, vectorIndexPrefix+strconv.Itoa(v.dim))
	if err := os.MkdirAll(sub, 0o755); err != nil {
		return ragerr.IndexError("创建向量索引目录失败："+sub, err)
	}

	indexPath := filepath.Join(sub, vectorIndexName)
	tmp := indexPath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return ragerr.IndexError("写入向量索引失败："+indexPath, err)
	}
	if err := v.graph.Export(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return ragerr.IndexError("导出向量索引失败："+indexPath, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return ragerr.IndexError("关闭向量索引文件失败："+indexPath, err)
	}
	if err := os.Rename(tmp, indexPath); err != nil {
		os.Remove(tmp)
		return ragerr.IndexError("写入向量索引失败："+indexPath, err)
	}

	if err := WritePassagesJSONL(filepath.Join(sub, forwardIndexName), v.passages); err != nil {
		return err
	}

	slog.Info("vector_save_complete", slog.Int("vectors", len(v.passages)),
		slog.Int("dim", v.dim), slog.String("dir", sub))
	return nil
}

// LoadVectorIndex opens a persisted index from dir and validates the stored
// dimension against expectDim (0 skips the check).
func LoadVectorIndex(dir string, expectDim int) (*VectorIndex, error) {
	dim, sub, err := findIndexDir(dir)
	if err != nil {
		return nil, err
	}
	if expectDim > 0 && dim != expectDim {
		return nil, ragerr.New(ragerr.ErrCodeDimensionMismatch,
			fmt.Sprintf("向量索引维度不匹配：索引为 %d，嵌入模型为 %d", dim, expectDim), nil)
	}

	v, err := NewVectorIndex(dim)
	if err != nil {
		return nil, err
	}

	indexPath := filepath.Join(sub, vectorIndexName)
	f, err := os.Open(indexPath)
	if err != nil {
		return nil, ragerr.New(ragerr.ErrCodeIndexMissing, "向量索引文件缺失："+indexPath, err)
	}
	defer f.Close()

	// coder/hnsw Import requires an io.ByteReader.
	if err := v.graph.Import(bufio.NewReader(f)); err != nil {
		return nil, ragerr.IndexError("向量索引导入失败："+indexPath, err)
	}

	passages, err := ReadPassagesJSONL(filepath.Join(sub, forwardIndexName))
	if err != nil {
		return nil, err
	}
	v.passages = passages

	slog.Info("vector_load_complete", slog.Int("vectors", len(passages)),
		slog.Int("dim", dim), slog.String("dir", sub))
	return v, nil
}

// findIndexDir locates the single index_<d> subdirectory under dir.
func findIndexDir(dir string) (int, string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, "", ragerr.New(ragerr.ErrCodeIndexMissing, "向量索引目录缺失："+dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), vectorIndexPrefix) {
			continue
		}
		dim, err := strconv.Atoi(strings.TrimPrefix(e.Name(), vectorIndexPrefix))
		if err != nil || dim <= 0 {
			continue
		}
		return dim, filepath.Join(dir, e.Name()), nil
	}
	return 0, "", ragerr.New(ragerr.ErrCodeIndexMissing, "向量索引子目录缺失："+dir, nil)
}

// Close releases the index.
func (v *VectorIndex) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	v.graph = nil
	return nil
}
