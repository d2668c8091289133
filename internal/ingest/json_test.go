package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTextsFromJSON(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want []string
	}{
		{"bare string", "hello", []string{"hello"}},
		{"list of strings", []any{"a", "b"}, []string{"a", "b"}},
		{"object with key", map[string]any{"completion": "text", "other": 1}, []string{"text"}},
		{"nested list", []any{map[string]any{"completion": "x"}, "y"}, []string{"x", "y"}},
		{"object missing key", map[string]any{"prompt": "p"}, nil},
		{"nil", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTextsFromJSON(tt.in, "completion"))
		})
	}
}

func TestReadJSONLTexts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "records.jsonl")
	content := `{"completion": "第一条记录"}
{"completion": "第二条记录"}

{"prompt": "no text key"}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	texts, err := ReadJSONLTexts(path, "completion")

	require.NoError(t, err)
	assert.Equal(t, []string{"第一条记录", "第二条记录"}, texts)
}

func TestReadJSONTexts_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := ReadJSONTexts(path, "completion")

	assert.Error(t, err)
}

func TestReadTextFile_BOM(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bom.txt")
	require.NoError(t, os.WriteFile(path, append([]byte{0xEF, 0xBB, 0xBF}, []byte("内容")...), 0o644))

	text, err := ReadTextFile(path)

	require.NoError(t, err)
	assert.Equal(t, "内容", text)
}

func TestMarkdownToText(t *testing.T) {
	md := "# 标题\n\n正文**加粗**段落。\n\n- 列表项一\n- 列表项二\n"

	text := MarkdownToText(md)

	assert.Contains(t, text, "标题")
	assert.Contains(t, text, "正文")
	assert.Contains(t, text, "加粗")
	assert.Contains(t, text, "列表项一")
	assert.NotContains(t, text, "#")
	assert.NotContains(t, text, "**")
}

func TestLoadDocsForBuild_SkipsUnsupported(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("这是一个足够长的文本文件内容。"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.xyz"), []byte("ignored"), 0o644))

	docs, err := LoadDocsForBuild(dir, Options{})

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "txt", docs[0].Meta.GetString("type"))
}

func TestLoadDocsForBuild_MissingPath(t *testing.T) {
	_, err := LoadDocsForBuild(filepath.Join(t.TempDir(), "nope"), Options{})
	assert.Error(t, err)
}

func TestLoadDocsForBuild_JSONRecords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wiki.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"completion":"南京简介"},{"completion":"北京简介"}]`), 0o644))

	docs, err := LoadDocsForBuild(path, Options{})

	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, 0, docs[0].Meta.GetInt("record_index"))
	assert.Equal(t, 1, docs[1].Meta.GetInt("record_index"))
	assert.NotEqual(t, docs[0].ID, docs[1].ID)
}
