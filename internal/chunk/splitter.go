package chunk

import (
	"strings"
	"unicode"
)

// DefaultSentenceSize is the soft-break threshold in characters.
const DefaultSentenceSize = 2048

// Hard sentence terminators for CJK text.
var cjkHardBreaks = map[rune]struct{}{
	'。': {}, '！': {}, '？': {}, '；': {}, '…': {},
}

// Soft break marks, honored only once the accumulated segment exceeds the
// configured sentence size.
var cjkSoftBreaks = map[rune]struct{}{
	'，': {}, '、': {}, '：': {},
}

// SentenceSplitter splits raw text into sentence-level segments.
// CJK text uses rule-based splitting; other text uses a prose sentence
// tokenizer with the rule-based splitter as fallback.
type SentenceSplitter struct {
	SentenceSize int
}

// NewSentenceSplitter returns a splitter with the given soft-break size.
// Non-positive sizes fall back to DefaultSentenceSize.
func NewSentenceSplitter(sentenceSize int) *SentenceSplitter {
	if sentenceSize <= 0 {
		sentenceSize = DefaultSentenceSize
	}
	return &SentenceSplitter{SentenceSize: sentenceSize}
}

// ContainsCJK reports whether text contains any CJK character.
func ContainsCJK(text string) bool {
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

// SplitText splits text into trimmed, non-empty segments.
func (s *SentenceSplitter) SplitText(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if ContainsCJK(text) {
		return s.splitRuleBased(text)
	}
	if sents := splitProse(text); len(sents) > 0 {
		return sents
	}
	return s.splitRuleBased(text)
}

// splitRuleBased hard-breaks on 。！？；… and double newlines, and
// soft-breaks on ，、： once the accumulated segment exceeds SentenceSize.
func (s *SentenceSplitter) splitRuleBased(text string) []string {
	var out []string
	var buf []rune

	flush := func() {
		seg := strings.TrimSpace(string(buf))
		if seg != "" {
			out = append(out, seg)
		}
		buf = buf[:0]
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		// Double newline is a paragraph break.
		if r == '\n' && i+1 < len(runes) && runes[i+1] == '\n' {
			flush()
			for i+1 < len(runes) && runes[i+1] == '\n' {
				i++
			}
			continue
		}

		buf = append(buf, r)

		if _, hard := cjkHardBreaks[r]; hard {
			// Keep trailing closing quotes/brackets with the sentence.
			for i+1 < len(runes) && isClosing(runes[i+1]) {
				i++
				buf = append(buf, runes[i])
			}
			flush()
			continue
		}
		if _, soft := cjkSoftBreaks[r]; soft && len(buf) > s.SentenceSize {
			flush()
		}
	}
	flush()
	return out
}

func isClosing(r rune) bool {
	switch r {
	case '”', '’', '」', '』', '）', ')', '"', '\'':
		return true
	}
	return false
}

// splitProse tokenizes non-CJK text into sentences: a terminator (.!?)
// followed by whitespace ends a sentence. Abbreviation-grade accuracy is not
// required; the rule-based splitter remains the fallback.
func splitProse(text string) []string {
	var out []string
	var buf strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		buf.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
				seg := strings.TrimSpace(buf.String())
				if seg != "" {
					out = append(out, seg)
				}
				buf.Reset()
				for i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
					i++
				}
			}
		}
	}
	if seg := strings.TrimSpace(buf.String()); seg != "" {
		out = append(out, seg)
	}
	return out
}

// TextUnitLen measures text in its natural units: runes for CJK text,
// whitespace-delimited words otherwise.
func TextUnitLen(text string) int {
	if ContainsCJK(text) {
		return len([]rune(text))
	}
	return len(strings.Fields(text))
}
