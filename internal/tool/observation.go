package tool

import (
	"fmt"
	"strings"

	"github.com/soberm258/tiny-agents/internal/chunk"
	"github.com/soberm258/tiny-agents/internal/rag"
)

// maxCharsPerItem truncates plain observation items fed back to the model.
const maxCharsPerItem = 500

// FormatObservation renders a tool result for the model: one [rank] line
// plus a source line per item. Case-PDF items expand to their full section
// blocks (deduplicated per source file); other items compress newlines and
// truncate.
func FormatObservation(result map[string]any) string {
	if result == nil {
		return "（无结果）"
	}

	var lines []string
	if errMsg := asString(result["error"]); errMsg != "" {
		lines = append(lines, "error="+errMsg)
	}

	items := asList(result["items"])
	seenCaseSources := map[string]struct{}{}
	displayRank := 0

	for _, raw := range items {
		item := asMap(raw)
		if item == nil {
			continue
		}
		meta := toMeta(item["meta"])
		url := meta.GetString(chunk.MetaURL)

		if rag.IsCaseItem(meta) {
			sourcePath := strings.TrimSpace(meta.GetString(chunk.MetaSourcePath))
			if sourcePath != "" {
				if _, seen := seenCaseSources[sourcePath]; seen {
					continue
				}
				seenCaseSources[sourcePath] = struct{}{}
			}
			if expanded := rag.ExpandCaseBlocks(meta); expanded != "" {
				displayRank++
				// Case evidence keeps its newlines so the section blocks
				// arrive intact.
				lines = append(lines, fmt.Sprintf("[%d] %s", displayRank, expanded))
				lines = append(lines, "source="+sourceOrURL(url, meta))
				continue
			}
		}

		displayRank++
		text := strings.ReplaceAll(strings.TrimSpace(asString(item["text"])), "\n", " ")
		if runes := []rune(text); len(runes) > maxCharsPerItem {
			text = string(runes[:maxCharsPerItem]) + "..."
		}
		lines = append(lines, fmt.Sprintf("[%d] %s", displayRank, text))
		lines = append(lines, "source="+sourceOrURL(url, meta))
	}

	if len(items) == 0 && asString(result["error"]) == "" {
		lines = append(lines, "（无结果）")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func sourceOrURL(url string, meta chunk.Meta) string {
	if url != "" {
		return url
	}
	return rag.FormatSource(meta)
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func asList(v any) []any {
	switch l := v.(type) {
	case []any:
		return l
	case []map[string]any:
		out := make([]any, len(l))
		for i, m := range l {
			out[i] = m
		}
		return out
	default:
		return nil
	}
}

func asMap(v any) map[string]any {
	switch m := v.(type) {
	case map[string]any:
		return m
	case chunk.Meta:
		return m
	default:
		return nil
	}
}

func toMeta(v any) chunk.Meta {
	if m := asMap(v); m != nil {
		return chunk.Meta(m)
	}
	return chunk.Meta{}
}
