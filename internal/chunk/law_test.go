package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeLawSentences_EnumerationStaysWithIntroducer(t *testing.T) {
	// Given an introducer ending in ： followed by enumeration items
	sents := []string{"其有下列情形之一的：", "（一）情形甲；", "（二）情形乙。"}

	// When merging with a generous sentence size
	merged := MergeLawSentences(sents, 512)

	// Then one passage contains all three, joined by newlines
	require.Len(t, merged, 1)
	assert.Equal(t, "其有下列情形之一的：\n（一）情形甲；\n（二）情形乙。", merged[0])
}

func TestMergeLawSentences_FlushesAtMaxChars(t *testing.T) {
	long := strings.Repeat("条文内容", 40) + "。" // 161 runes
	sents := []string{long, long, long}

	merged := MergeLawSentences(sents, 200)

	// Each long sentence exceeds the min-merge target, so they stay apart.
	assert.Len(t, merged, 3)
}

func TestMergeLawSentences_ShortItemsAccumulate(t *testing.T) {
	sents := []string{"（一）甲；", "（二）乙；", "（三）丙。"}

	merged := MergeLawSentences(sents, 512)

	require.Len(t, merged, 1)
	assert.Equal(t, 3, strings.Count(merged[0], "（"))
}

func TestIsEnumItem(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"（一）情形甲", true},
		{"(2) 情形乙", true},
		{"（十三）情形丙", true},
		{"第一条 规定", false},
		{"普通句子", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsEnumItem(tt.in), tt.in)
	}
}

func TestLawIndexPrefix_InjectsAlias(t *testing.T) {
	meta := Meta{
		MetaLaw:     "中华人民共和国民法典",
		MetaBook:    "第三编",
		MetaChapter: "第二章",
		MetaSection: "第一节",
		MetaArticle: "第四百六十四条",
	}

	prefix := LawIndexPrefix(meta)

	assert.Contains(t, prefix, "《中华人民共和国民法典》")
	assert.Contains(t, prefix, "（简称：民法典）")
	assert.Contains(t, prefix, "第四百六十四条")
}

func TestLawIndexPrefix_MissingSectionPlaceholder(t *testing.T) {
	meta := Meta{MetaLaw: "中华人民共和国刑法", MetaArticle: "第二条"}

	prefix := LawIndexPrefix(meta)

	assert.Contains(t, prefix, "未分节")
}

func TestIsLawDoc(t *testing.T) {
	assert.True(t, IsLawDoc(Meta{MetaLaw: "民法典"}))
	assert.True(t, IsLawDoc(Meta{MetaArticle: "第一条"}))
	assert.False(t, IsLawDoc(Meta{MetaSourcePath: "a.txt"}))
}
