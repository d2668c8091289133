package store

import (
	"strings"
	"sync"
	"unicode"

	"github.com/go-ego/gse"
)

// Tokenizer produces the bag of tokens fed to the BM25 index.
// CJK content goes through gse word segmentation; other content is
// lowercased and split on non-alphanumeric runs.
type Tokenizer struct {
	seg gse.Segmenter
}

var (
	sharedTokenizer *Tokenizer
	tokenizerOnce   sync.Once
	tokenizerErr    error
)

// NewTokenizer returns the process-wide tokenizer. The gse dictionary load
// is expensive, so the segmenter is shared; Cut is safe for concurrent use.
func NewTokenizer() (*Tokenizer, error) {
	tokenizerOnce.Do(func() {
		t := &Tokenizer{}
		if err := t.seg.LoadDict(); err != nil {
			tokenizerErr = err
			return
		}
		sharedTokenizer = t
	})
	return sharedTokenizer, tokenizerErr
}

// Tokenize splits text into scoring tokens.
func (t *Tokenizer) Tokenize(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if containsHan(text) {
		return t.tokenizeCJK(text)
	}
	return tokenizeLatin(text)
}

func (t *Tokenizer) tokenizeCJK(text string) []string {
	words := t.seg.Cut(text, true)
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" || isPunctOnly(w) {
			continue
		}
		out = append(out, w)
	}
	return out
}

// tokenizeLatin lowercases and splits on non-alphanumeric runs.
func tokenizeLatin(text string) []string {
	var out []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, strings.ToLower(cur.String()))
			cur.Reset()
		}
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return out
}

func containsHan(text string) bool {
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

func isPunctOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
