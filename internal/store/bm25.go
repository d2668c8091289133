package store

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/soberm258/tiny-agents/internal/chunk"
	ragerr "github.com/soberm258/tiny-agents/internal/errors"
)

// Okapi BM25 parameters.
const (
	DefaultBM25K1 = 1.5
	DefaultBM25B  = 0.75
)

const (
	bm25DataName   = "bm25_data.gob"
	bm25CorpusName = "passages.jsonl"
)

// BM25Config configures the lexical index.
type BM25Config struct {
	K1 float64
	B  float64
}

// DefaultBM25Config returns the standard Okapi parameters.
func DefaultBM25Config() BM25Config {
	return BM25Config{K1: DefaultBM25K1, B: DefaultBM25B}
}

// bm25Data is the persisted scoring state: the tokenized corpus in bag
// form, document-frequency statistics and per-document lengths, all in
// insertion order.
type bm25Data struct {
	K1     float64
	B      float64
	DF     map[string]int
	DocTF  []map[string]int
	DocLen []int
}

// BM25Index is the lexical recall index: Okapi BM25 over gse-segmented
// tokens, persisted to the database's bm_corpus/ directory.
type BM25Index struct {
	mu        sync.RWMutex
	tokenizer *Tokenizer
	data      bm25Data
	passages  []*chunk.Passage
	totalLen  int
	closed    bool
}

// NewBM25Index creates an empty index.
func NewBM25Index(cfg BM25Config) (*BM25Index, error) {
	if cfg.K1 <= 0 {
		cfg.K1 = DefaultBM25K1
	}
	if cfg.B <= 0 {
		cfg.B = DefaultBM25B
	}
	tok, err := NewTokenizer()
	if err != nil {
		return nil, ragerr.IndexError("分词器初始化失败", err)
	}
	return &BM25Index{
		tokenizer: tok,
		data: bm25Data{
			K1: cfg.K1,
			B:  cfg.B,
			DF: map[string]int{},
		},
	}, nil
}

// Add indexes a batch of passages in insertion order. The indexed string is
// the passage's index_text when present, else its text.
func (b *BM25Index) Add(passages []*chunk.Passage) error {
	if len(passages) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("index is closed")
	}

	for _, p := range passages {
		tokens := b.tokenizer.Tokenize(p.LexicalText())
		tf := make(map[string]int, len(tokens))
		for _, t := range tokens {
			tf[t]++
		}
		for t := range tf {
			b.data.DF[t]++
		}
		b.data.DocTF = append(b.data.DocTF, tf)
		b.data.DocLen = append(b.data.DocLen, len(tokens))
		b.totalLen += len(tokens)
		b.passages = append(b.passages, p)
	}
	return nil
}

// Len returns the number of indexed passages.
func (b *BM25Index) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.passages)
}

// Search returns at most k recall records sorted by descending BM25 score.
// Ties break by ascending insertion index for determinism.
func (b *BM25Index) Search(query string, k int) ([]RecallItem, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("index is closed")
	}
	if k <= 0 || len(b.passages) == 0 {
		return []RecallItem{}, nil
	}

	queryTokens := b.tokenizer.Tokenize(query)
	if len(queryTokens) == 0 {
		return []RecallItem{}, nil
	}

	n := len(b.passages)
	avgLen := float64(b.totalLen) / float64(n)
	if avgLen == 0 {
		avgLen = 1
	}

	scores := make([]float64, n)
	matched := make([]bool, n)
	for _, t := range queryTokens {
		df := b.data.DF[t]
		if df == 0 {
			continue
		}
		idf := math.Log((float64(n)-float64(df)+0.5)/(float64(df)+0.5) + 1)
		for i, tf := range b.data.DocTF {
			f := float64(tf[t])
			if f == 0 {
				continue
			}
			norm := f + b.data.K1*(1-b.data.B+b.data.B*float64(b.data.DocLen[i])/avgLen)
			scores[i] += idf * f * (b.data.K1 + 1) / norm
			matched[i] = true
		}
	}

	idxs := make([]int, 0, n)
	for i := range scores {
		if matched[i] {
			idxs = append(idxs, i)
		}
	}
	sort.SliceStable(idxs, func(a, c int) bool {
		if scores[idxs[a]] != scores[idxs[c]] {
			return scores[idxs[a]] > scores[idxs[c]]
		}
		return idxs[a] < idxs[c]
	})
	if len(idxs) > k {
		idxs = idxs[:k]
	}

	out := make([]RecallItem, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, RecallItem{Index: i, Passage: b.passages[i], Score: scores[i]})
	}
	return out, nil
}

// Save persists the index under dir (the database's bm_corpus/ directory):
// the scoring state as gob and the passage list as JSONL, both written
// atomically (temp file + rename).
func (b *BM25Index) Save(dir string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ragerr.IndexError("创建 BM25 目录失败："+dir, err)
	}

	dataPath := filepath.Join(dir, bm25DataName)
	if err := writeGobAtomic(dataPath, &b.data); err != nil {
		return err
	}
	if err := WritePassagesJSONL(filepath.Join(dir, bm25CorpusName), b.passages); err != nil {
		return err
	}

	slog.Info("bm25_save_complete", slog.Int("docs", len(b.passages)), slog.String("dir", dir))
	return nil
}

// Load reads a persisted index from dir.
func (b *BM25Index) Load(dir string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	dataPath := filepath.Join(dir, bm25DataName)
	f, err := os.Open(dataPath)
	if err != nil {
		return ragerr.New(ragerr.ErrCodeIndexMissing, "BM25 索引文件缺失："+dataPath, err)
	}
	defer f.Close()

	var data bm25Data
	if err := gob.NewDecoder(bufio.NewReader(f)).Decode(&data); err != nil {
		return ragerr.IndexError("BM25 索引解码失败："+dataPath, err)
	}

	passages, err := ReadPassagesJSONL(filepath.Join(dir, bm25CorpusName))
	if err != nil {
		return err
	}
	if len(passages) != len(data.DocTF) {
		return ragerr.IndexError(
			fmt.Sprintf("BM25 索引不一致：%d 个词袋对应 %d 个片段", len(data.DocTF), len(passages)), nil)
	}

	total := 0
	for _, l := range data.DocLen {
		total += l
	}

	b.data = data
	b.passages = passages
	b.totalLen = total
	b.closed = false

	slog.Info("bm25_load_complete", slog.Int("docs", len(passages)), slog.String("dir", dir))
	return nil
}

// Close releases the index.
func (b *BM25Index) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func writeGobAtomic(path string, v any) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return ragerr.IndexError("写入索引失败："+path, err)
	}
	w := bufio.NewWriter(f)
	if err := gob.NewEncoder(w).Encode(v); err != nil {
		f.Close()
		os.Remove(tmp)
		return ragerr.IndexError("编码索引失败："+path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return ragerr.IndexError("写入索引失败："+path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return ragerr.IndexError("关闭索引文件失败："+path, err)
	}
	return os.Rename(tmp, path)
}

// WritePassagesJSONL writes passages as one JSON object per line, in order,
// atomically.
func WritePassagesJSONL(path string, passages []*chunk.Passage) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return ragerr.IndexError("写入片段清单失败："+path, err)
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, p := range passages {
		if err := enc.Encode(p); err != nil {
			f.Close()
			os.Remove(tmp)
			return ragerr.IndexError("编码片段失败："+path, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return ragerr.IndexError("写入片段清单失败："+path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return ragerr.IndexError("关闭片段清单失败："+path, err)
	}
	return os.Rename(tmp, path)
}

// ReadPassagesJSONL reads a JSONL passage list in file order.
func ReadPassagesJSONL(path string) ([]*chunk.Passage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ragerr.New(ragerr.ErrCodeIndexMissing, "片段清单缺失："+path, err)
	}
	defer f.Close()

	var out []*chunk.Passage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var p chunk.Passage
		if err := json.Unmarshal(line, &p); err != nil {
			return nil, ragerr.IndexError("片段清单解析失败："+path, err)
		}
		out = append(out, &p)
	}
	if err := scanner.Err(); err != nil {
		return nil, ragerr.IndexError("片段清单读取失败："+path, err)
	}
	return out, nil
}
