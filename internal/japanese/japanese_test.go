package japanese

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeWidth(t *testing.T) {
	// Fullwidth alphanumerics fold to halfwidth, halfwidth katakana folds to
	// fullwidth.
	assert.Equal(t, "ABC123", NormalizeWidth("ＡＢＣ１２３"))
	assert.Equal(t, "カタカナ", NormalizeWidth("ｶﾀｶﾅ"))
	assert.Equal(t, "走る", NormalizeWidth("走る"))
}

func TestAlnumCount(t *testing.T) {
	assert.Equal(t, 0, AlnumCount(""))
	assert.Equal(t, 0, AlnumCount("。、！？ 　…"))
	assert.Equal(t, 5, AlnumCount("今日は雨だ。"))
	assert.Equal(t, 6, AlnumCount("ＡＢＣ123"))
}

func TestKanaConversion(t *testing.T) {
	assert.Equal(t, "はしる", ToHiragana("ハシル"))
	assert.Equal(t, "ハシル", ToKatakana("はしる"))

	// Kanji, ASCII, and the katakana prolonged sound mark pass through.
	assert.Equal(t, "走るran", ToHiragana("走るran"))
	assert.Equal(t, "こーひー", ToHiragana("コーヒー"))
	assert.Equal(t, "コーヒー", ToKatakana("こーひー"))
}

func TestContainsJapanese(t *testing.T) {
	assert.True(t, ContainsJapanese("run 走る"))
	assert.True(t, ContainsJapanese("カタカナ"))
	assert.True(t, ContainsJapanese("ひらがな"))
	assert.False(t, ContainsJapanese("english only 123"))
}

func TestCollapseWhitespace(t *testing.T) {
	assert.Equal(t, "今日は　晴れ", CollapseWhitespace("今日は \n\t 晴れ"))
	assert.Equal(t, "晴れ", CollapseWhitespace("  晴れ  "))
	assert.Equal(t, "", CollapseWhitespace(" \n "))
}

func TestSplitSentences(t *testing.T) {
	spans := SplitSentences([]rune("雨だ。走った！？まだ続く"))
	assert.Equal(t, []SentenceSpan{
		{Start: 0, End: 3},
		{Start: 3, End: 8}, // terminator run ！？ attaches to its sentence
		{Start: 8, End: 12},
	}, spans)

	assert.Nil(t, SplitSentences([]rune("")))
	assert.Equal(t, []SentenceSpan{{Start: 0, End: 4}}, SplitSentences([]rune("終端なし")))
}
