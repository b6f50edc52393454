package index

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/myaku-dev/myaku/internal/logger"
	"github.com/myaku-dev/myaku/internal/models"
)

// Write-gate errors. The crawl pipeline counts these as skips rather than
// failures.
var (
	// ErrDuplicateText means another article already carries the same text hash.
	ErrDuplicateText = errors.New("article text already indexed")
	// ErrArticleTooLong means the article text exceeds the indexable length.
	ErrArticleTooLong = errors.New("article text exceeds maximum length")
)

// WriteArticle stores the article, replacing any existing document with the
// same source URL and reusing its ID. Articles whose text hash matches a
// different article are rejected with ErrDuplicateText; articles over the
// rune-length cap are rejected with ErrArticleTooLong. On success article.ID
// is set.
func (s *Store) WriteArticle(ctx context.Context, article *models.Article) error {
	if err := s.writable(); err != nil {
		return err
	}
	if article.TextLength() > s.maxArticleLen {
		return fmt.Errorf("%w: %d runes: %s", ErrArticleTooLong, article.TextLength(), article.SourceURL)
	}

	// Same text under a different URL is a repost; keep only the first copy.
	byHash, err := s.findOneByTerm(ctx, s.articlesIndex(), "text_hash", article.TextHash)
	if err != nil {
		return fmt.Errorf("look up article by text hash: %w", err)
	}
	if byHash != nil {
		var existing articleDoc
		if err := json.Unmarshal(byHash.Source, &existing); err != nil {
			return fmt.Errorf("decode article %s: %w", byHash.ID, err)
		}
		if existing.SourceURL != article.SourceURL {
			return fmt.Errorf("%w: matches article %s", ErrDuplicateText, byHash.ID)
		}
	}

	byURL, err := s.findOneByTerm(ctx, s.articlesIndex(), "source_url", article.SourceURL)
	if err != nil {
		return fmt.Errorf("look up article by source URL: %w", err)
	}
	if byURL != nil {
		article.ID = byURL.ID
	} else {
		article.ID = uuid.NewString()
	}

	var blogID string
	if article.Blog != nil {
		blogID = article.Blog.ID
	}

	if err := s.indexDoc(ctx, s.articlesIndex(), article.ID, articleToDoc(article, blogID)); err != nil {
		return err
	}

	s.log.Debug("wrote article",
		logger.String("article_id", article.ID),
		logger.String("source_url", article.SourceURL),
		logger.Int("quality_score", article.QualityScore),
	)
	return nil
}

// GetArticles fetches articles by ID via mget. Missing IDs are absent from
// the result map.
func (s *Store) GetArticles(ctx context.Context, ids []string) (map[string]*models.Article, error) {
	if len(ids) == 0 {
		return map[string]*models.Article{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultOpTimeout)
	defer cancel()

	body, err := json.Marshal(map[string]any{"ids": ids})
	if err != nil {
		return nil, fmt.Errorf("marshal mget body: %w", err)
	}

	res, err := s.client.Mget(
		bytes.NewReader(body),
		s.client.Mget.WithContext(ctx),
		s.client.Mget.WithIndex(s.articlesIndex()),
	)
	if err != nil {
		return nil, fmt.Errorf("mget articles: %w", err)
	}
	defer closeBody(res.Body)

	if res.IsError() {
		return nil, fmt.Errorf("mget articles: %s", res.String())
	}

	var out struct {
		Docs []struct {
			ID     string          `json:"_id"`
			Found  bool            `json:"found"`
			Source json.RawMessage `json:"_source"`
		} `json:"docs"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode mget response: %w", err)
	}

	articles := make(map[string]*models.Article, len(out.Docs))
	for _, d := range out.Docs {
		if !d.Found {
			continue
		}
		var doc articleDoc
		if err := json.Unmarshal(d.Source, &doc); err != nil {
			return nil, fmt.Errorf("decode article %s: %w", d.ID, err)
		}
		articles[d.ID] = docToArticle(d.ID, doc)
	}
	return articles, nil
}

// UpdateArticleScore sets the article's quality score and cascades the new
// score into every FLI of the article, recomputing the denormalized
// composites from each FLI's own score modifier.
func (s *Store) UpdateArticleScore(ctx context.Context, articleID string, score int) error {
	if err := s.writable(); err != nil {
		return err
	}

	if err := s.updateDoc(ctx, s.articlesIndex(), articleID, map[string]any{
		"quality_score": score,
	}); err != nil {
		return err
	}

	err := s.updateByQuery(ctx, s.flisIndex(), map[string]any{
		"query": map[string]any{
			"term": map[string]any{"article_id": articleID},
		},
		"script": map[string]any{
			"lang": "painless",
			"source": `ctx._source.article_quality_score = params.score;
long composite = params.score + ctx._source.quality_score_mod;
ctx._source.quality_score_exact = composite;
ctx._source.quality_score_definite = composite;
ctx._source.quality_score_possible = composite;`,
			"params": map[string]any{"score": score},
		},
	})
	if err != nil {
		return fmt.Errorf("cascade score to FLIs of %s: %w", articleID, err)
	}

	s.log.Debug("updated article score",
		logger.String("article_id", articleID),
		logger.Int("quality_score", score),
	)
	return nil
}

// updateDoc applies a partial document update with refresh.
func (s *Store) updateDoc(ctx context.Context, index, id string, fields map[string]any) error {
	ctx, cancel := context.WithTimeout(ctx, defaultOpTimeout)
	defer cancel()

	body, err := json.Marshal(map[string]any{"doc": fields})
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}

	res, err := s.client.Update(
		index,
		id,
		bytes.NewReader(body),
		s.client.Update.WithContext(ctx),
		s.client.Update.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("update document %s/%s: %w", index, id, err)
	}
	defer closeBody(res.Body)

	if res.IsError() {
		return fmt.Errorf("update document %s/%s: %s", index, id, res.String())
	}
	return nil
}

const scanBatchSize = 1000

// ArticlesUpdatedBetween returns articles whose last-updated datetime lies in
// the half-open window (from, to]. Results are paged internally with
// search_after so the window can exceed one response.
func (s *Store) ArticlesUpdatedBetween(ctx context.Context, from, to time.Time) ([]*models.Article, error) {
	var (
		articles    []*models.Article
		searchAfter []any
	)

	for {
		query := map[string]any{
			"query": map[string]any{
				"range": map[string]any{
					"last_updated_datetime": map[string]any{
						"gt":  from.UTC().Format(time.RFC3339),
						"lte": to.UTC().Format(time.RFC3339),
					},
				},
			},
			"sort": []any{
				map[string]any{"last_updated_datetime": "asc"},
				map[string]any{"_id": "asc"},
			},
			"size": scanBatchSize,
		}
		if searchAfter != nil {
			query["search_after"] = searchAfter
		}

		resp, err := s.search(ctx, s.articlesIndex(), query)
		if err != nil {
			return nil, err
		}
		if len(resp.Hits.Hits) == 0 {
			return articles, nil
		}

		for _, hit := range resp.Hits.Hits {
			var doc articleDoc
			if err := json.Unmarshal(hit.Source, &doc); err != nil {
				return nil, fmt.Errorf("decode article %s: %w", hit.ID, err)
			}
			articles = append(articles, docToArticle(hit.ID, doc))
		}

		last := resp.Hits.Hits[len(resp.Hits.Hits)-1]
		var lastDoc articleDoc
		if err := json.Unmarshal(last.Source, &lastDoc); err != nil {
			return nil, fmt.Errorf("decode article %s: %w", last.ID, err)
		}
		searchAfter = []any{timeVal(lastDoc.LastUpdatedDT).UTC().Format(time.RFC3339), last.ID}

		if len(resp.Hits.Hits) < scanBatchSize {
			return articles, nil
		}
	}
}

// UpdateLastCrawled sets the last-crawled datetime of the article stored
// under the source URL. Returns false when no such article exists.
func (s *Store) UpdateLastCrawled(ctx context.Context, sourceURL string, t time.Time) (bool, error) {
	if err := s.writable(); err != nil {
		return false, err
	}

	hit, err := s.findOneByTerm(ctx, s.articlesIndex(), "source_url", sourceURL)
	if err != nil {
		return false, fmt.Errorf("look up article by source URL: %w", err)
	}
	if hit == nil {
		return false, nil
	}

	err = s.updateDoc(ctx, s.articlesIndex(), hit.ID, map[string]any{
		"last_crawled_datetime": t.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// LookupCrawled returns, for each given source URL that has already been
// stored as an article, its last-crawled datetime.
func (s *Store) LookupCrawled(ctx context.Context, urls []string) (map[string]time.Time, error) {
	return s.lookupURLTimes(ctx, s.articlesIndex(), urls)
}

// lookupURLTimes maps source URLs to last_crawled_datetime for documents in
// the given index whose source_url matches.
func (s *Store) lookupURLTimes(ctx context.Context, index string, urls []string) (map[string]time.Time, error) {
	if len(urls) == 0 {
		return map[string]time.Time{}, nil
	}

	found := make(map[string]time.Time, len(urls))
	// Terms queries are capped well above this batch size; chunk regardless.
	const chunk = 512
	for start := 0; start < len(urls); start += chunk {
		end := min(start+chunk, len(urls))

		resp, err := s.search(ctx, index, map[string]any{
			"query": map[string]any{
				"terms": map[string]any{"source_url": urls[start:end]},
			},
			"_source": []string{"source_url", "last_crawled_datetime"},
			"size":    end - start,
		})
		if err != nil {
			return nil, err
		}

		for _, hit := range resp.Hits.Hits {
			var doc struct {
				SourceURL     string     `json:"source_url"`
				LastCrawledDT *time.Time `json:"last_crawled_datetime"`
			}
			if err := json.Unmarshal(hit.Source, &doc); err != nil {
				return nil, fmt.Errorf("decode crawled lookup hit %s: %w", hit.ID, err)
			}
			found[doc.SourceURL] = timeVal(doc.LastCrawledDT)
		}
	}
	return found, nil
}
