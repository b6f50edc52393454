package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/myaku-dev/myaku/internal/config"
	"github.com/myaku-dev/myaku/internal/japanese"
	"github.com/myaku-dev/myaku/internal/logger"
	"github.com/myaku-dev/myaku/internal/models"
)

const (
	userIDCookie = "userId"
	// Session ids ride along for a year so the next-page cache stays keyed
	// to the same browser.
	userIDCookieMaxAge = 365 * 24 * 60 * 60
)

// handleSearch serves GET /search.
func handleSearch(searcher Searcher, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		queryStr, ok := convertedQuery(c)
		if !ok {
			return
		}

		pageNum := 1
		if p := c.Query("p"); p != "" {
			n, err := strconv.Atoi(p)
			if err != nil || n < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "p must be a positive integer"})
				return
			}
			pageNum = n
		}

		page, err := searcher.Search(c.Request.Context(), models.Query{
			Str:     queryStr,
			PageNum: pageNum,
			Type:    models.QueryTypeExact,
			UserID:  userID(c),
		})
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if page.Failed {
			log.Warn("search failed", logger.String("query", queryStr))
		}

		c.JSON(http.StatusOK, searchResponse(page))
	}
}

// handleResourceLinks serves GET /resource-links: canned external-site search
// links for the converted query.
func handleResourceLinks(c *gin.Context) {
	queryStr, ok := convertedQuery(c)
	if !ok {
		return
	}
	escaped := url.QueryEscape(queryStr)

	c.JSON(http.StatusOK, gin.H{
		"convertedQuery": queryStr,
		"resourceLinkSets": []gin.H{
			{
				"setName": "Jpn-Eng Dictionaries",
				"resourceLinks": []gin.H{
					{
						"resourceName": "Jisho.org",
						"link":         "https://jisho.org/search/" + escaped,
					},
					{
						"resourceName": "Weblio EJJE",
						"link":         "https://ejje.weblio.jp/content/" + escaped,
					},
					{
						"resourceName": "ALC",
						"link":         "https://eow.alc.co.jp/search?q=" + escaped,
					},
				},
			},
			{
				"setName": "Sample Sentences",
				"resourceLinks": []gin.H{
					{
						"resourceName": "Weblio EJJE",
						"link":         "https://ejje.weblio.jp/sentence/content/" + escaped,
					},
					{
						"resourceName": "Tatoeba",
						"link":         "https://tatoeba.org/ja/sentences/search?query=" + escaped + "&from=jpn",
					},
				},
			},
			{
				"setName": "Jpn-Jpn Dictionaries",
				"resourceLinks": []gin.H{
					{
						"resourceName": "goo辞書",
						"link":         "https://dictionary.goo.ne.jp/srch/all/" + escaped + "/m0u/",
					},
					{
						"resourceName": "Weblio",
						"link":         "https://www.weblio.jp/content/" + escaped,
					},
				},
			},
		},
	})
}

// convertedQuery validates the q and conv params and returns the
// width-normalized, kana-converted query string. Writes the error response
// itself when validation fails.
func convertedQuery(c *gin.Context) (string, bool) {
	queryStr := strings.TrimSpace(japanese.NormalizeWidth(c.Query("q")))
	if queryStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return "", false
	}
	if utf8.RuneCountInString(queryStr) > config.DefaultMaxQueryLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is too long"})
		return "", false
	}

	switch c.DefaultQuery("conv", "none") {
	case "none":
	case "hira":
		queryStr = japanese.ToHiragana(queryStr)
	case "kata":
		queryStr = japanese.ToKatakana(queryStr)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "conv must be one of hira, kata, none"})
		return "", false
	}
	return queryStr, true
}

// userID reads the session id cookie, issuing a fresh uuid when the cookie
// is absent or not a uuid.
func userID(c *gin.Context) string {
	if id, err := c.Cookie(userIDCookie); err == nil {
		if _, parseErr := uuid.Parse(id); parseErr == nil {
			return id
		}
	}
	id := uuid.NewString()
	c.SetCookie(userIDCookie, id, userIDCookieMaxAge, "/", "", false, true)
	return id
}
