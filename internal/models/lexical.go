package models

import (
	"slices"
	"time"
)

// Position locates one occurrence of a lexical item within an article's
// full text as a half-open rune range [Start, Start+Len).
type Position struct {
	Start int
	Len   int
}

// End returns the exclusive end offset of the position.
func (p Position) End() int {
	return p.Start + p.Len
}

// InterpSource identifies where an interpretation of a surface form came from.
type InterpSource string

// Interpretation sources.
const (
	InterpSourceMecab             InterpSource = "MECAB"
	InterpSourceJmdictMecabDecomp InterpSource = "JMDICT_MECAB_DECOMP"
	InterpSourceJmdictSurfaceForm InterpSource = "JMDICT_SURFACE_FORM"
	InterpSourceJmdictBaseForm    InterpSource = "JMDICT_BASE_FORM"
)

// MecabTags carries the morphological analyzer's tagging for a surface form.
type MecabTags struct {
	PartsOfSpeech  []string
	ConjugatedType string
	ConjugatedForm string
}

// Equal reports whether two tag sets are identical.
func (t *MecabTags) Equal(o *MecabTags) bool {
	if t == nil || o == nil {
		return t == o
	}
	return slices.Equal(t.PartsOfSpeech, o.PartsOfSpeech) &&
		t.ConjugatedType == o.ConjugatedType &&
		t.ConjugatedForm == o.ConjugatedForm
}

// LexicalItemInterp is one possible grammatical or dictionary reading of a
// surface form. At least one of MecabTags and JmdictEntryID is present.
type LexicalItemInterp struct {
	Sources       []InterpSource
	MecabTags     *MecabTags
	JmdictEntryID string
}

// Equal reports whether two interpretations are the same reading,
// disregarding source order.
func (i LexicalItemInterp) Equal(o LexicalItemInterp) bool {
	if !i.MecabTags.Equal(o.MecabTags) || i.JmdictEntryID != o.JmdictEntryID {
		return false
	}
	if len(i.Sources) != len(o.Sources) {
		return false
	}
	for _, s := range i.Sources {
		if !slices.Contains(o.Sources, s) {
			return false
		}
	}
	return true
}

// FoundLexicalItem (FLI) is one (article, base form) entry in the index.
// InterpPositionMap is keyed by index into PossibleInterps and records the
// subset of FoundPositions an interpretation applies to; an absent key means
// the interpretation applies to every position. The Article* fields and the
// three composite scores are denormalized for query performance and must
// stay consistent with the article's current quality score.
type FoundLexicalItem struct {
	ID       string
	BaseForm string

	ArticleID string
	Article   *Article

	FoundPositions    []Position
	PossibleInterps   []LexicalItemInterp
	InterpPositionMap map[int][]Position

	QualityScoreMod int

	ArticleQualityScore int
	ArticleLastUpdated  time.Time

	QualityScoreExact    int
	QualityScoreDefinite int
	QualityScorePossible int
}

// RecomputeComposites refreshes the denormalized composite scores from the
// given article quality score. The definite/possible variants currently
// share the exact composite; alternate-form grouping only changes which
// base-form field a query matches, not how an FLI is scored.
func (f *FoundLexicalItem) RecomputeComposites(articleQualityScore int) {
	f.ArticleQualityScore = articleQualityScore
	composite := articleQualityScore + f.QualityScoreMod
	f.QualityScoreExact = composite
	f.QualityScoreDefinite = composite
	f.QualityScorePossible = composite
}

// RankKey returns the FLI's rank key under the exact-match composite score.
func (f *FoundLexicalItem) RankKey() ArticleRankKey {
	return ArticleRankKey{
		QualityScore: f.QualityScoreExact,
		LastUpdated:  f.ArticleLastUpdated,
		ArticleID:    f.ArticleID,
	}
}
