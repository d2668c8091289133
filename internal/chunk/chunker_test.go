package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDoc(text string, meta Meta) *Document {
	if meta == nil {
		meta = Meta{MetaSourcePath: "testdata/a.txt", MetaType: "txt"}
	}
	return &Document{
		ID:   MakeDocID(meta.GetString(MetaSourcePath), meta.GetInt(MetaPage), meta.GetInt(MetaRecordIndex)),
		Text: text,
		Meta: meta,
	}
}

func TestChunkDocument_MinChunkLenFilter(t *testing.T) {
	doc := testDoc("短句。这一句足够长可以通过最小长度的过滤检查没有问题。", nil)

	passages := ChunkDocument(doc, Options{SentenceSize: 2048, MinChunkLen: 20})

	require.Len(t, passages, 1)
	for _, p := range passages {
		assert.GreaterOrEqual(t, len([]rune(p.Text)), 20)
	}
}

func TestChunkDocument_ChunkIndexMonotonic(t *testing.T) {
	doc := testDoc(
		"第一句内容足够长可以通过过滤检查这是第一句。第二句内容足够长可以通过过滤检查这是第二句。第三句内容足够长可以通过过滤检查这是第三句。",
		nil,
	)

	passages := ChunkDocument(doc, Options{SentenceSize: 2048, MinChunkLen: 10})

	require.Len(t, passages, 3)
	for i, p := range passages {
		assert.Equal(t, i, p.Meta.GetInt(MetaChunkIndex))
		assert.Equal(t, MakeChunkID(doc.ID, i), p.ID)
	}
}

func TestChunkDocument_Deterministic(t *testing.T) {
	doc := testDoc(
		"第一句内容足够长可以通过过滤检查这是第一句。第二句内容足够长可以通过过滤检查这是第二句。",
		nil,
	)
	opts := Options{SentenceSize: 2048, MinChunkLen: 10}

	a := ChunkDocument(doc, opts)
	b := ChunkDocument(doc, opts)

	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].ID, b[i].ID)
		assert.Equal(t, a[i].Text, b[i].Text)
	}
}

func TestChunkDocument_LawIndexText(t *testing.T) {
	meta := Meta{
		MetaSourcePath: "testdata/civil_code.txt",
		MetaType:       "txt",
		MetaLaw:        "中华人民共和国民法典",
		MetaArticle:    "第四百六十四条",
	}
	doc := testDoc("合同是民事主体之间设立、变更、终止民事法律关系的协议。", meta)

	passages := ChunkDocument(doc, Options{SentenceSize: 2048, MinChunkLen: 10})

	require.Len(t, passages, 1)
	p := passages[0]
	assert.NotEmpty(t, p.IndexText)
	assert.True(t, strings.HasPrefix(p.IndexText, "《中华人民共和国民法典》"))
	assert.Contains(t, p.IndexText, "民法典")
	assert.Contains(t, p.IndexText, p.Text)
	assert.Equal(t, p.IndexText, p.LexicalText())
}

func TestChunkDocument_LawEnumerationMerged(t *testing.T) {
	meta := Meta{
		MetaSourcePath: "testdata/civil_code.txt",
		MetaLaw:        "中华人民共和国民法典",
	}
	doc := testDoc("当事人有下列情形之一的：（一）情形甲甲甲甲；（二）情形乙乙乙乙。", meta)

	passages := ChunkDocument(doc, Options{SentenceSize: 512, MinChunkLen: 10})

	// Enumeration items never stand alone.
	require.Len(t, passages, 1)
	assert.Contains(t, passages[0].Text, "（一）")
	assert.Contains(t, passages[0].Text, "（二）")
}

func TestChunkDocument_PDFPageMerging(t *testing.T) {
	meta := Meta{MetaSourcePath: "testdata/p.pdf", MetaPage: 1, MetaType: "pdf"}
	sent := "这一页的每个句子都相当短小。"
	doc := testDoc(strings.Repeat(sent, 10), meta)

	passages := ChunkDocument(doc, Options{SentenceSize: 2048, MinChunkLen: 10})

	// Ten 14-rune sentences merge toward the ~300-unit target.
	require.Len(t, passages, 1)
}

func TestChunkAll_PreservesDocumentOrder(t *testing.T) {
	var docs []*Document
	for _, src := range []string{"testdata/a.txt", "testdata/b.txt", "testdata/c.txt"} {
		meta := Meta{MetaSourcePath: src, MetaType: "txt"}
		docs = append(docs, testDoc("这一句的内容足够长可以通过最小长度过滤检查。", meta))
	}

	passages, err := ChunkAll(docs, Options{SentenceSize: 2048, MinChunkLen: 10})

	require.NoError(t, err)
	require.Len(t, passages, 3)
	assert.Equal(t, "testdata/a.txt", passages[0].Meta.GetString(MetaSourcePath))
	assert.Equal(t, "testdata/b.txt", passages[1].Meta.GetString(MetaSourcePath))
	assert.Equal(t, "testdata/c.txt", passages[2].Meta.GetString(MetaSourcePath))
}

func TestMakeDocID_Deterministic(t *testing.T) {
	a := MakeDocID("x.pdf", 3, 0)
	b := MakeDocID("x.pdf", 3, 0)
	c := MakeDocID("x.pdf", 4, 0)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
