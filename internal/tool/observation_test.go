package tool

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatObservation_PlainItems(t *testing.T) {
	result := map[string]any{
		"items": []map[string]any{
			{"rank": 1, "text": "第一条\n证据", "meta": map[string]any{"source_path": "a.txt"}},
			{"rank": 2, "text": "第二条证据", "meta": map[string]any{"source_path": "b.pdf", "page": 3}},
		},
	}

	obs := FormatObservation(result)

	lines := strings.Split(obs, "\n")
	require.Len(t, lines, 4)
	// Newlines inside items are flattened.
	assert.Equal(t, "[1] 第一条 证据", lines[0])
	assert.Equal(t, "source=a.txt", lines[1])
	assert.Equal(t, "[2] 第二条证据", lines[2])
	assert.Equal(t, "source=b.pdf 第3页", lines[3])
}

func TestFormatObservation_TruncatesLongItems(t *testing.T) {
	long := strings.Repeat("长", 600)
	result := map[string]any{
		"items": []map[string]any{{"text": long, "meta": map[string]any{}}},
	}

	obs := FormatObservation(result)

	assert.Contains(t, obs, "...")
	assert.Less(t, len([]rune(strings.Split(obs, "\n")[0])), 520)
}

func TestFormatObservation_ErrorLine(t *testing.T) {
	result := map[string]any{"items": []any{}, "error": "SERPAPI_API_KEY 未配置"}

	obs := FormatObservation(result)

	assert.True(t, strings.HasPrefix(obs, "error="))
}

func TestFormatObservation_Empty(t *testing.T) {
	assert.Equal(t, "（无结果）", FormatObservation(map[string]any{"items": []any{}}))
	assert.Equal(t, "（无结果）", FormatObservation(nil))
}

func TestFormatObservation_URLWins(t *testing.T) {
	result := map[string]any{
		"items": []map[string]any{
			{"text": "网页摘要", "meta": map[string]any{"url": "https://example.com", "source_path": "online"}},
		},
	}

	obs := FormatObservation(result)

	assert.Contains(t, obs, "source=https://example.com")
}

func TestFormatObservation_LawSource(t *testing.T) {
	result := map[string]any{
		"items": []map[string]any{
			{"text": "条文内容", "meta": map[string]any{
				"source_path": "law.txt",
				"law":         "中华人民共和国民法典",
				"article":     "第四百六十四条",
			}},
		},
	}

	obs := FormatObservation(result)

	assert.Contains(t, obs, "law.txt | 中华人民共和国民法典")
	assert.Contains(t, obs, "未知编")
	assert.Contains(t, obs, "第四百六十四条")
}

func TestFormatObservation_CaseDedupBySource(t *testing.T) {
	// Two case items from the same (missing) PDF: expansion fails so they
	// render as plain items, but the case path is deduplicated per source.
	meta := map[string]any{
		"source_path": "testdata/missing_case.pdf",
		"pdf_mode":    "case",
		"case_title":  "某案",
		"page_start":  1,
		"page_end":    2,
	}
	result := map[string]any{
		"items": []map[string]any{
			{"text": "案情片段一", "meta": meta},
			{"text": "案情片段二", "meta": meta},
		},
	}

	obs := FormatObservation(result)

	assert.Contains(t, obs, "[1]")
	assert.NotContains(t, obs, "[2]")
	assert.Contains(t, obs, "第1~2页")
}
