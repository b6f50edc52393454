package kagome

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myaku-dev/myaku/internal/models"
)

func analyze(t *testing.T, text string) map[string]*models.FoundLexicalItem {
	t.Helper()
	a, err := New()
	require.NoError(t, err)

	items, err := a.AnalyzeText(text)
	require.NoError(t, err)

	byBase := make(map[string]*models.FoundLexicalItem, len(items))
	for _, item := range items {
		_, dup := byBase[item.BaseForm]
		require.False(t, dup, "duplicate base form %q", item.BaseForm)
		byBase[item.BaseForm] = item
	}
	return byBase
}

func TestAnalyzeConjugatedVerb(t *testing.T) {
	// 走った should be indexed under its dictionary base form.
	items := analyze(t, "公園で走った。")

	fli, ok := items["走る"]
	require.True(t, ok, "conjugated verb not reduced to base form, got %v", keys(items))
	require.Len(t, fli.FoundPositions, 1)
	assert.Equal(t, 3, fli.FoundPositions[0].Start)
	require.NotEmpty(t, fli.PossibleInterps)
	interp := fli.PossibleInterps[0]
	require.NotNil(t, interp.MecabTags)
	assert.Contains(t, interp.MecabTags.PartsOfSpeech, "動詞")
	assert.Equal(t, []models.InterpSource{models.InterpSourceMecab}, interp.Sources)
}

func TestAnalyzeOmitsSymbolTokens(t *testing.T) {
	items := analyze(t, "雨、そして風。")
	for base := range items {
		assert.NotContains(t, []string{"、", "。"}, base)
	}
	_, ok := items["雨"]
	assert.True(t, ok)
	_, ok = items["風"]
	assert.True(t, ok)
}

func TestAnalyzeUnionsRepeatedOccurrences(t *testing.T) {
	text := "走って、また走る。"
	items := analyze(t, text)

	fli, ok := items["走る"]
	require.True(t, ok)
	assert.Len(t, fli.FoundPositions, 2)

	textLen := utf8.RuneCountInString(text)
	for i, p := range fli.FoundPositions {
		assert.Positive(t, p.Len)
		assert.GreaterOrEqual(t, p.Start, 0)
		assert.LessOrEqual(t, p.End(), textLen)
		if i > 0 {
			assert.GreaterOrEqual(t, p.Start, fli.FoundPositions[i-1].End(),
				"positions must be ordered and non-overlapping")
		}
	}
}

func TestAnalyzeEmptyText(t *testing.T) {
	a, err := New()
	require.NoError(t, err)

	items, err := a.AnalyzeText("")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func keys(m map[string]*models.FoundLexicalItem) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
