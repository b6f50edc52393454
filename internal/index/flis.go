package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/myaku-dev/myaku/internal/logger"
	"github.com/myaku-dev/myaku/internal/models"
)

// WriteFLIs stores the found lexical items of one article in a single bulk
// request. Each FLI is bound to the article and its denormalized fields
// (article score, last-updated datetime, composite scores) are refreshed
// from the article before writing. On success each FLI's ID is set.
func (s *Store) WriteFLIs(ctx context.Context, article *models.Article, flis []*models.FoundLexicalItem) error {
	if err := s.writable(); err != nil {
		return err
	}
	if article.ID == "" {
		return fmt.Errorf("article must be stored before its lexical items")
	}

	docs := make([]bulkDoc, len(flis))
	for i, fli := range flis {
		fli.ArticleID = article.ID
		fli.ArticleLastUpdated = article.LastUpdatedDT
		fli.RecomputeComposites(article.QualityScore)
		if fli.ID == "" {
			fli.ID = uuid.NewString()
		}
		docs[i] = bulkDoc{ID: fli.ID, Doc: fliToDoc(fli)}
	}

	if err := s.bulkIndex(ctx, s.flisIndex(), docs); err != nil {
		return err
	}

	s.log.Debug("wrote lexical items",
		logger.String("article_id", article.ID),
		logger.Int("count", len(flis)),
	)
	return nil
}

// ReplaceArticleFLIs atomically-enough replaces the article's lexical items:
// existing FLIs are deleted by article ID, then the new set is written. Used
// when a recrawled article's text changed.
func (s *Store) ReplaceArticleFLIs(ctx context.Context, article *models.Article, flis []*models.FoundLexicalItem) error {
	if err := s.writable(); err != nil {
		return err
	}
	if article.ID == "" {
		return fmt.Errorf("article must be stored before its lexical items")
	}

	err := s.deleteByQuery(ctx, s.flisIndex(), map[string]any{
		"query": map[string]any{
			"term": map[string]any{"article_id": article.ID},
		},
	})
	if err != nil {
		return fmt.Errorf("delete FLIs of %s: %w", article.ID, err)
	}

	return s.WriteFLIs(ctx, article, flis)
}

// FLIsForArticle returns every FLI bound to the article.
func (s *Store) FLIsForArticle(ctx context.Context, articleID string) ([]*models.FoundLexicalItem, error) {
	var (
		flis        []*models.FoundLexicalItem
		searchAfter []any
	)

	for {
		query := map[string]any{
			"query": map[string]any{
				"term": map[string]any{"article_id": articleID},
			},
			"sort": []any{map[string]any{"_id": "asc"}},
			"size": scanBatchSize,
		}
		if searchAfter != nil {
			query["search_after"] = searchAfter
		}

		resp, err := s.search(ctx, s.flisIndex(), query)
		if err != nil {
			return nil, err
		}
		if len(resp.Hits.Hits) == 0 {
			return flis, nil
		}

		for _, hit := range resp.Hits.Hits {
			fli, err := decodeFLIHit(hit)
			if err != nil {
				return nil, err
			}
			flis = append(flis, fli)
		}

		searchAfter = []any{resp.Hits.Hits[len(resp.Hits.Hits)-1].ID}
		if len(resp.Hits.Hits) < scanBatchSize {
			return flis, nil
		}
	}
}

// BaseForms returns every distinct base form in the lexical index, paged
// through a composite aggregation.
func (s *Store) BaseForms(ctx context.Context) ([]string, error) {
	var (
		forms []string
		after map[string]any
	)

	for {
		composite := map[string]any{
			"size": scanBatchSize,
			"sources": []any{
				map[string]any{"base_form": map[string]any{
					"terms": map[string]any{"field": "base_form"},
				}},
			},
		}
		if after != nil {
			composite["after"] = after
		}

		body, err := json.Marshal(map[string]any{
			"size": 0,
			"aggs": map[string]any{
				"base_forms": map[string]any{"composite": composite},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("marshal base-form query: %w", err)
		}

		opCtx, cancel := context.WithTimeout(ctx, defaultOpTimeout)
		res, err := s.client.Search(
			s.client.Search.WithContext(opCtx),
			s.client.Search.WithIndex(s.flisIndex()),
			s.client.Search.WithBody(bytes.NewReader(body)),
		)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("scan base forms: %w", err)
		}

		var out struct {
			Aggregations struct {
				BaseForms struct {
					AfterKey map[string]any `json:"after_key"`
					Buckets  []struct {
						Key struct {
							BaseForm string `json:"base_form"`
						} `json:"key"`
					} `json:"buckets"`
				} `json:"base_forms"`
			} `json:"aggregations"`
		}
		if res.IsError() {
			msg := res.String()
			closeBody(res.Body)
			return nil, fmt.Errorf("scan base forms: %s", msg)
		}
		err = json.NewDecoder(res.Body).Decode(&out)
		closeBody(res.Body)
		if err != nil {
			return nil, fmt.Errorf("decode base-form response: %w", err)
		}

		for _, b := range out.Aggregations.BaseForms.Buckets {
			forms = append(forms, b.Key.BaseForm)
		}
		if len(out.Aggregations.BaseForms.Buckets) < scanBatchSize || out.Aggregations.BaseForms.AfterKey == nil {
			return forms, nil
		}
		after = out.Aggregations.BaseForms.AfterKey
	}
}

func decodeFLIHit(hit esHit) (*models.FoundLexicalItem, error) {
	var doc fliDoc
	if err := json.Unmarshal(hit.Source, &doc); err != nil {
		return nil, fmt.Errorf("decode FLI %s: %w", hit.ID, err)
	}
	return docToFLI(hit.ID, doc), nil
}
