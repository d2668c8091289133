package ingest

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"

	ragerr "github.com/soberm258/tiny-agents/internal/errors"
)

// ExtractTextsFromJSON walks a decoded JSON value collecting the texts a
// record holds: bare strings, lists (recursed) and objects keyed by textKey.
func ExtractTextsFromJSON(obj any, textKey string) []string {
	switch v := obj.(type) {
	case string:
		return []string{v}
	case []any:
		var out []string
		for _, item := range v {
			out = append(out, ExtractTextsFromJSON(item, textKey)...)
		}
		return out
	case map[string]any:
		if s, ok := v[textKey].(string); ok {
			return []string{s}
		}
	}
	return nil
}

// ReadJSONTexts reads a .json file and extracts its record texts.
func ReadJSONTexts(path, textKey string) ([]string, error) {
	raw, err := ReadTextFile(path)
	if err != nil {
		return nil, err
	}
	var obj any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, ragerr.IngestError("JSON 解析失败："+path, err)
	}
	return nonEmpty(ExtractTextsFromJSON(obj, textKey)), nil
}

// ReadJSONLTexts reads a .jsonl file line by line and extracts record texts.
func ReadJSONLTexts(path, textKey string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ragerr.Wrap(ragerr.ErrCodeFileUnreadable, err)
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var obj any
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			return nil, ragerr.IngestError("JSONL 解析失败："+path, err)
		}
		out = append(out, ExtractTextsFromJSON(obj, textKey)...)
	}
	if err := scanner.Err(); err != nil {
		return nil, ragerr.Wrap(ragerr.ErrCodeFileUnreadable, err)
	}
	return nonEmpty(out), nil
}

func nonEmpty(texts []string) []string {
	out := texts[:0]
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			out = append(out, t)
		}
	}
	return out
}
