package models

// Segment is one run of preview text, flagged when it overlaps a match
// position for the queried lexical item.
type Segment struct {
	IsQueryMatch bool
	Text         string
}

// SampleText is one preview sample: an ordered list of segments assembled
// around matched positions. TextStartIndex is the rune offset of the sample
// within the article's full text; ArticlePositionLabel is a display label
// for where in the article the sample sits (e.g. "32%").
type SampleText struct {
	Segments             []Segment
	TextStartIndex       int
	ArticlePositionLabel string
}

// Length returns the total rune length of the sample's segments, excluding
// ellipsis markers.
func (s *SampleText) Length() int {
	total := 0
	for _, seg := range s.Segments {
		if seg.Text == Ellipsis {
			continue
		}
		total += runeLen(seg.Text)
	}
	return total
}

// Ellipsis marks a trimmed sample end.
const Ellipsis = "…"

func runeLen(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}

// SearchResult is one ranked article hit for a query, with the union of
// matched base forms and positions across the article's matching FLIs.
type SearchResult struct {
	ArticleID        string
	Article          *Article
	MatchedBaseForms []string
	FoundPositions   []Position
	QualityScore     int

	MainSample  *SampleText
	MoreSamples []*SampleText
}

// InstanceCount returns how many times the queried item occurs in the article.
func (r *SearchResult) InstanceCount() int {
	return len(r.FoundPositions)
}

// RankKey returns the result's rank key.
func (r *SearchResult) RankKey() ArticleRankKey {
	key := ArticleRankKey{QualityScore: r.QualityScore, ArticleID: r.ArticleID}
	if r.Article != nil {
		key.LastUpdated = r.Article.LastUpdatedDT
	}
	return key
}

// SearchResultPage is one page of ranked results for a query.
type SearchResultPage struct {
	Query          Query
	TotalResults   int
	HasNextPage    bool
	MaxPageReached bool
	Results        []*SearchResult

	// Failed flags a user-facing search failure; the page is empty and the
	// internal error kind is never exposed.
	Failed bool
}
