package api

import (
	"time"

	"github.com/myaku-dev/myaku/internal/models"
)

// JSON shapes for the search response. Datetimes are ISO-8601 UTC with a Z
// suffix; absent datetimes serialize as null.

type searchResponseBody struct {
	ConvertedQuery string          `json:"convertedQuery"`
	PageNum        int             `json:"pageNum"`
	MaxPageReached bool            `json:"maxPageReached"`
	TotalResults   int             `json:"totalResults"`
	HasNextPage    bool            `json:"hasNextPage"`
	Failed         bool            `json:"failed"`
	ArticleResults []articleResult `json:"articleResults"`
}

type articleResult struct {
	ArticleID           string       `json:"articleId"`
	Title               string       `json:"title"`
	Author              string       `json:"author,omitempty"`
	SourceName          string       `json:"sourceName"`
	SourceURL           string       `json:"sourceUrl"`
	PublicationDatetime *string      `json:"publicationDatetime"`
	LastUpdatedDatetime *string      `json:"lastUpdatedDatetime"`
	HasVideo            bool         `json:"hasVideo"`
	Tags                []string     `json:"tags,omitempty"`
	MatchedBaseForms    []string     `json:"matchedBaseForms"`
	InstanceCount       int          `json:"instanceCount"`
	MainSample          *sampleText  `json:"mainSampleText"`
	MoreSamples         []sampleText `json:"moreSampleTexts"`
}

type sampleText struct {
	TextStartIndex       int             `json:"textStartIndex"`
	Segments             []sampleSegment `json:"segments"`
	ArticlePositionLabel string          `json:"articlePositionLabel"`
}

type sampleSegment struct {
	IsQueryMatch bool   `json:"isQueryMatch"`
	Text         string `json:"text"`
}

func searchResponse(page *models.SearchResultPage) searchResponseBody {
	body := searchResponseBody{
		ConvertedQuery: page.Query.Str,
		PageNum:        page.Query.PageNum,
		MaxPageReached: page.MaxPageReached,
		TotalResults:   page.TotalResults,
		HasNextPage:    page.HasNextPage,
		Failed:         page.Failed,
		ArticleResults: make([]articleResult, 0, len(page.Results)),
	}
	for _, r := range page.Results {
		body.ArticleResults = append(body.ArticleResults, toArticleResult(r))
	}
	return body
}

func toArticleResult(r *models.SearchResult) articleResult {
	ar := articleResult{
		ArticleID:        r.ArticleID,
		MatchedBaseForms: r.MatchedBaseForms,
		InstanceCount:    r.InstanceCount(),
		MainSample:       toSample(r.MainSample),
		MoreSamples:      make([]sampleText, 0, len(r.MoreSamples)),
	}
	for _, s := range r.MoreSamples {
		if sample := toSample(s); sample != nil {
			ar.MoreSamples = append(ar.MoreSamples, *sample)
		}
	}
	if a := r.Article; a != nil {
		ar.Title = a.Title
		ar.Author = a.Author
		ar.SourceName = a.SourceName
		ar.SourceURL = a.SourceURL
		ar.PublicationDatetime = isoDatetime(a.PublicationDT)
		ar.LastUpdatedDatetime = isoDatetime(a.LastUpdatedDT)
		ar.HasVideo = a.HasVideo
		ar.Tags = a.Tags
	}
	return ar
}

func toSample(s *models.SampleText) *sampleText {
	if s == nil {
		return nil
	}
	sample := &sampleText{
		TextStartIndex:       s.TextStartIndex,
		Segments:             make([]sampleSegment, 0, len(s.Segments)),
		ArticlePositionLabel: s.ArticlePositionLabel,
	}
	for _, seg := range s.Segments {
		sample.Segments = append(sample.Segments, sampleSegment{
			IsQueryMatch: seg.IsQueryMatch,
			Text:         seg.Text,
		})
	}
	return sample
}

func isoDatetime(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.UTC().Format("2006-01-02T15:04:05Z")
	return &s
}
