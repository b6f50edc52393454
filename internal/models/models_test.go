package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewArticleDerivesHashAndCount(t *testing.T) {
	text := "今日はＡＢＣを勉強した。 123"
	a, err := NewArticle(Article{
		SourceURL: "https://example.com/1",
		FullText:  text,
	})
	require.NoError(t, err)

	sum := sha256.Sum256([]byte(text))
	assert.Equal(t, hex.EncodeToString(sum[:]), a.TextHash)

	// 8 Japanese letters + ABC + 123, after width folding; punctuation and
	// whitespace do not count.
	assert.Equal(t, 14, a.AlnumCount)
}

func TestNewArticleRequiredFields(t *testing.T) {
	_, err := NewArticle(Article{FullText: "text"})
	assert.Error(t, err)
	_, err = NewArticle(Article{SourceURL: "https://example.com/1"})
	assert.Error(t, err)
}

func TestTextLengthCountsRunes(t *testing.T) {
	a := &Article{FullText: "あいう"}
	assert.Equal(t, 3, a.TextLength())
}

func TestRankKeyOrdering(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	higherScore := ArticleRankKey{QualityScore: 100, LastUpdated: base, ArticleID: "a"}
	lowerScore := ArticleRankKey{QualityScore: 99, LastUpdated: base.Add(time.Hour), ArticleID: "z"}
	assert.True(t, higherScore.Beats(lowerScore), "quality score dominates")

	newer := ArticleRankKey{QualityScore: 100, LastUpdated: base.Add(time.Hour), ArticleID: "a"}
	older := ArticleRankKey{QualityScore: 100, LastUpdated: base, ArticleID: "z"}
	assert.True(t, newer.Beats(older), "last updated breaks score ties")

	idHigh := ArticleRankKey{QualityScore: 100, LastUpdated: base, ArticleID: "b"}
	idLow := ArticleRankKey{QualityScore: 100, LastUpdated: base, ArticleID: "a"}
	assert.True(t, idHigh.Beats(idLow), "article id breaks full ties")

	same := ArticleRankKey{QualityScore: 100, LastUpdated: base, ArticleID: "a"}
	assert.Zero(t, same.Compare(same))
	assert.False(t, same.Beats(same))
}

func TestRecomputeComposites(t *testing.T) {
	fli := &FoundLexicalItem{QualityScoreMod: 750}
	fli.RecomputeComposites(4000)

	assert.Equal(t, 4000, fli.ArticleQualityScore)
	assert.Equal(t, 4750, fli.QualityScoreExact)
	assert.Equal(t, fli.QualityScoreExact, fli.QualityScoreDefinite)
	assert.Equal(t, fli.QualityScoreExact, fli.QualityScorePossible)
}

func TestInterpEqualIgnoresSourceOrder(t *testing.T) {
	tags := &MecabTags{PartsOfSpeech: []string{"動詞", "自立"}}
	a := LexicalItemInterp{
		Sources:   []InterpSource{InterpSourceMecab, InterpSourceJmdictBaseForm},
		MecabTags: tags,
	}
	b := LexicalItemInterp{
		Sources:   []InterpSource{InterpSourceJmdictBaseForm, InterpSourceMecab},
		MecabTags: &MecabTags{PartsOfSpeech: []string{"動詞", "自立"}},
	}
	assert.True(t, a.Equal(b))

	c := b
	c.JmdictEntryID = "1234"
	assert.False(t, a.Equal(c))

	d := b
	d.MecabTags = &MecabTags{PartsOfSpeech: []string{"名詞"}}
	assert.False(t, a.Equal(d))
}

func TestQueryValidate(t *testing.T) {
	valid := Query{Str: "走る", PageNum: 1, Type: QueryTypeExact}
	assert.NoError(t, valid.Validate(120))

	assert.Error(t, Query{PageNum: 1, Type: QueryTypeExact}.Validate(120))
	assert.Error(t, Query{Str: "走る", PageNum: 0, Type: QueryTypeExact}.Validate(120))
	assert.Error(t, Query{Str: "走る", PageNum: 1, Type: "fuzzy"}.Validate(120))

	long := Query{Str: strings.Repeat("あ", 121), PageNum: 1, Type: QueryTypeExact}
	assert.Error(t, long.Validate(120))
	exact := Query{Str: strings.Repeat("あ", 120), PageNum: 1, Type: QueryTypeExact}
	assert.NoError(t, exact.Validate(120))
}

func TestQuerySameIgnoresUser(t *testing.T) {
	q := Query{Str: "走る", PageNum: 2, Type: QueryTypeExact, UserID: "u1"}
	assert.True(t, q.Same(Query{Str: "走る", PageNum: 2, Type: QueryTypeExact, UserID: "u2"}))
	assert.False(t, q.Same(Query{Str: "走る", PageNum: 3, Type: QueryTypeExact, UserID: "u1"}))
	assert.False(t, q.Same(Query{Str: "歩く", PageNum: 2, Type: QueryTypeExact, UserID: "u1"}))
	assert.False(t, q.Same(Query{Str: "走る", PageNum: 2, Type: QueryTypePossible, UserID: "u1"}))
}

func TestSampleTextLengthExcludesEllipsis(t *testing.T) {
	s := &SampleText{Segments: []Segment{
		{Text: Ellipsis},
		{Text: "あい"},
		{IsQueryMatch: true, Text: "走る"},
		{Text: Ellipsis},
	}}
	assert.Equal(t, 4, s.Length())
}

func TestSkipErrorUnwrap(t *testing.T) {
	var err error = &SkipError{Reason: SkipReasonPaywalled, URL: "https://example.com/1"}
	skip, ok := AsSkip(err)
	require.True(t, ok)
	assert.Equal(t, SkipReasonPaywalled, skip.Reason)

	_, ok = AsSkip(ErrParseFailed)
	assert.False(t, ok)
}

func TestPositionEnd(t *testing.T) {
	assert.Equal(t, 7, Position{Start: 4, Len: 3}.End())
}
