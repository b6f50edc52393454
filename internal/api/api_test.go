package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myaku-dev/myaku/internal/config"
	"github.com/myaku-dev/myaku/internal/logger"
	"github.com/myaku-dev/myaku/internal/models"
)

type stubSearcher struct {
	got  models.Query
	page *models.SearchResultPage
	err  error
}

func (s *stubSearcher) Search(_ context.Context, query models.Query) (*models.SearchResultPage, error) {
	s.got = query
	if s.page != nil {
		page := *s.page
		page.Query = query
		return &page, s.err
	}
	return &models.SearchResultPage{Query: query}, s.err
}

func newRouter(searcher Searcher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(searcher, config.APIConfig{}, logger.NewNop())
}

func get(router *gin.Engine, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := get(newRouter(&stubSearcher{}), "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestSearchValidation(t *testing.T) {
	router := newRouter(&stubSearcher{})

	cases := []struct {
		name   string
		target string
	}{
		{"missing q", "/search"},
		{"blank q", "/search?q=%20%20"},
		{"too long q", "/search?q=" + strings.Repeat("%E3%81%82", 121)},
		{"bad page", "/search?q=%E8%B5%B0%E3%82%8B&p=0"},
		{"non-numeric page", "/search?q=%E8%B5%B0%E3%82%8B&p=abc"},
		{"bad conv", "/search?q=%E8%B5%B0%E3%82%8B&conv=romaji"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := get(router, tc.target)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestSearchQueryConversion(t *testing.T) {
	searcher := &stubSearcher{}
	router := newRouter(searcher)

	// conv=hira converts katakana to hiragana.
	w := get(router, "/search?q=ハシル&conv=hira")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "はしる", searcher.got.Str)

	// conv=kata converts the other way.
	get(router, "/search?q=はしる&conv=kata")
	assert.Equal(t, "ハシル", searcher.got.Str)

	// Width is normalized even without conversion.
	get(router, "/search?q=ＡＢＣ")
	assert.Equal(t, "ABC", searcher.got.Str)

	// Page defaults to 1, exact query type always.
	assert.Equal(t, 1, searcher.got.PageNum)
	assert.Equal(t, models.QueryTypeExact, searcher.got.Type)
}

func TestSearchIssuesUserIDCookie(t *testing.T) {
	searcher := &stubSearcher{}
	router := newRouter(searcher)

	w := get(router, "/search?q=%E8%B5%B0%E3%82%8B")
	require.Equal(t, http.StatusOK, w.Code)

	var issued string
	for _, c := range w.Result().Cookies() {
		if c.Name == "userId" {
			issued = c.Value
		}
	}
	require.NotEmpty(t, issued, "no userId cookie issued")
	_, err := uuid.Parse(issued)
	require.NoError(t, err)
	assert.Equal(t, issued, searcher.got.UserID)

	// An existing valid cookie is reused without a new Set-Cookie.
	w = get(router, "/search?q=%E8%B5%B0%E3%82%8B", &http.Cookie{Name: "userId", Value: issued})
	assert.Equal(t, issued, searcher.got.UserID)
	for _, c := range w.Result().Cookies() {
		assert.NotEqual(t, "userId", c.Name)
	}

	// A malformed cookie is replaced.
	get(router, "/search?q=%E8%B5%B0%E3%82%8B", &http.Cookie{Name: "userId", Value: "not-a-uuid"})
	assert.NotEqual(t, "not-a-uuid", searcher.got.UserID)
}

func TestSearchResponseBody(t *testing.T) {
	published := time.Date(2026, 7, 30, 12, 30, 0, 0, time.UTC)
	searcher := &stubSearcher{
		page: &models.SearchResultPage{
			TotalResults: 1,
			Results: []*models.SearchResult{{
				ArticleID: "article-1",
				Article: &models.Article{
					ID:            "article-1",
					Title:         "記事",
					SourceName:    "テスト",
					SourceURL:     "https://example.com/1",
					PublicationDT: published,
					LastUpdatedDT: published,
				},
				MatchedBaseForms: []string{"走る"},
				FoundPositions:   []models.Position{{Start: 3, Len: 2}},
				QualityScore:     4200,
				MainSample: &models.SampleText{
					TextStartIndex: 42,
					Segments: []models.Segment{
						{Text: "今日は"},
						{IsQueryMatch: true, Text: "走る"},
						{Text: "ことにした。"},
					},
					ArticlePositionLabel: "12%",
				},
			}},
		},
	}
	w := get(newRouter(searcher), "/search?q=%E8%B5%B0%E3%82%8B")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		ConvertedQuery string `json:"convertedQuery"`
		PageNum        int    `json:"pageNum"`
		TotalResults   int    `json:"totalResults"`
		Failed         bool   `json:"failed"`
		ArticleResults []struct {
			ArticleID           string  `json:"articleId"`
			Title               string  `json:"title"`
			PublicationDatetime *string `json:"publicationDatetime"`
			InstanceCount       int     `json:"instanceCount"`
			MainSample          struct {
				TextStartIndex int `json:"textStartIndex"`
				Segments       []struct {
					IsQueryMatch bool   `json:"isQueryMatch"`
					Text         string `json:"text"`
				} `json:"segments"`
				ArticlePositionLabel string `json:"articlePositionLabel"`
			} `json:"mainSampleText"`
			MoreSamples []struct {
				TextStartIndex int `json:"textStartIndex"`
			} `json:"moreSampleTexts"`
		} `json:"articleResults"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	assert.Equal(t, "走る", body.ConvertedQuery)
	assert.Equal(t, 1, body.PageNum)
	assert.Equal(t, 1, body.TotalResults)
	assert.False(t, body.Failed)
	require.Len(t, body.ArticleResults, 1)

	ar := body.ArticleResults[0]
	assert.Equal(t, "article-1", ar.ArticleID)
	assert.Equal(t, "記事", ar.Title)
	require.NotNil(t, ar.PublicationDatetime)
	assert.Equal(t, "2026-07-30T12:30:00Z", *ar.PublicationDatetime)
	assert.Equal(t, 1, ar.InstanceCount)
	assert.Equal(t, 42, ar.MainSample.TextStartIndex)
	require.Len(t, ar.MainSample.Segments, 3)
	assert.True(t, ar.MainSample.Segments[1].IsQueryMatch)
	assert.Equal(t, "12%", ar.MainSample.ArticlePositionLabel)
}

func TestSearchFailedPage(t *testing.T) {
	searcher := &stubSearcher{page: &models.SearchResultPage{Failed: true}}
	w := get(newRouter(searcher), "/search?q=%E8%B5%B0%E3%82%8B")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Failed         bool  `json:"failed"`
		ArticleResults []any `json:"articleResults"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Failed)
	assert.Empty(t, body.ArticleResults)
}

func TestResourceLinks(t *testing.T) {
	router := newRouter(&stubSearcher{})

	w := get(router, "/resource-links?q=カタカナ&conv=hira")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		ConvertedQuery   string `json:"convertedQuery"`
		ResourceLinkSets []struct {
			SetName       string `json:"setName"`
			ResourceLinks []struct {
				ResourceName string `json:"resourceName"`
				Link         string `json:"link"`
			} `json:"resourceLinks"`
		} `json:"resourceLinkSets"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	assert.Equal(t, "かたかな", body.ConvertedQuery)
	require.NotEmpty(t, body.ResourceLinkSets)
	for _, set := range body.ResourceLinkSets {
		require.NotEmpty(t, set.ResourceLinks)
		for _, link := range set.ResourceLinks {
			assert.Contains(t, link.Link, "%E3%81%8B%E3%81%9F%E3%81%8B%E3%81%AA",
				"link for %s should embed the converted query", link.ResourceName)
		}
	}

	w = get(router, "/resource-links")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCORSHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(&stubSearcher{}, config.APIConfig{
		AllowedOrigins: []string{"https://myaku.example.com"},
	}, logger.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://myaku.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "https://myaku.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/search", nil)
	req.Header.Set("Origin", "https://myaku.example.com")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
