package models

import (
	"strings"
	"time"
)

// ArticleRankKey is the lexicographic tuple (quality score desc,
// last updated desc, article ID desc) that totally orders search results.
// All ranking and cache invalidation decisions compare rank keys, never raw
// quality scores.
type ArticleRankKey struct {
	QualityScore int
	LastUpdated  time.Time
	ArticleID    string
}

// Compare returns a positive value when k ranks above o, negative when it
// ranks below, and zero when the keys are identical.
func (k ArticleRankKey) Compare(o ArticleRankKey) int {
	if k.QualityScore != o.QualityScore {
		return k.QualityScore - o.QualityScore
	}
	if !k.LastUpdated.Equal(o.LastUpdated) {
		if k.LastUpdated.After(o.LastUpdated) {
			return 1
		}
		return -1
	}
	return strings.Compare(k.ArticleID, o.ArticleID)
}

// Beats reports whether k ranks strictly above o.
func (k ArticleRankKey) Beats(o ArticleRankKey) bool {
	return k.Compare(o) > 0
}
