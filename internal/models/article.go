package models

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/myaku-dev/myaku/internal/japanese"
)

// Article is one crawled article. Identity is the opaque ID assigned at
// first store; articles are also uniquely addressable by SourceURL and
// content-addressable by TextHash. Treat a built article as immutable; the
// store owns QualityScore and LastCrawledDT updates.
type Article struct {
	ID         string
	Title      string
	Author     string
	SourceURL  string
	SourceName string

	// Blog is a one-way reference; the store dereferences it to an ID.
	Blog *Blog

	BlogArticleOrderNum        *int
	BlogSectionName            string
	BlogSectionOrderNum        *int
	BlogSectionArticleOrderNum *int

	PublicationDT time.Time
	LastUpdatedDT time.Time
	LastCrawledDT time.Time

	FullText   string
	TextHash   string
	AlnumCount int
	HasVideo   bool
	Tags       []string

	QualityScore int
}

// NewArticle finalizes a partially filled article: it validates required
// fields and derives TextHash and AlnumCount from FullText.
func NewArticle(a Article) (*Article, error) {
	if a.SourceURL == "" {
		return nil, errors.New("article requires a source URL")
	}
	if a.FullText == "" {
		return nil, errors.New("article requires full text")
	}
	a.TextHash = TextHash(a.FullText)
	a.AlnumCount = japanese.AlnumCount(a.FullText)
	return &a, nil
}

// TextHash returns the SHA-256 hex digest of fullText.
func TextHash(fullText string) string {
	sum := sha256.Sum256([]byte(fullText))
	return hex.EncodeToString(sum[:])
}

// TextLength returns the article text length in runes. Positions and the
// article length cap are measured in runes, not bytes.
func (a *Article) TextLength() int {
	return utf8.RuneCountInString(a.FullText)
}

// RankKey returns the article's rank key under its current quality score.
func (a *Article) RankKey() ArticleRankKey {
	return ArticleRankKey{
		QualityScore: a.QualityScore,
		LastUpdated:  a.LastUpdatedDT,
		ArticleID:    a.ID,
	}
}
