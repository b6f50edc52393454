package index

import (
	"context"
	"fmt"

	"github.com/myaku-dev/myaku/internal/models"
)

// queryField returns the base-form field matched by the query type.
func queryField(t models.QueryType) string {
	switch t {
	case models.QueryTypeDefinite:
		return "base_form_definite_group"
	case models.QueryTypePossible:
		return "base_form_possible_group"
	default:
		return "base_form"
	}
}

// scoreField returns the composite score field the query type ranks on.
func scoreField(t models.QueryType) string {
	switch t {
	case models.QueryTypeDefinite:
		return "quality_score_definite"
	case models.QueryTypePossible:
		return "quality_score_possible"
	default:
		return "quality_score_exact"
	}
}

// maxArticleRows bounds how many FLI rows of one article a group carries.
// One article rarely matches a query group under more than a few base forms.
const maxArticleRows = 16

// FLIPage is one page of ranked search results straight from the index:
// FLI rows grouped by article, in rank order, plus the total number of
// distinct matching articles across all pages.
type FLIPage struct {
	// Groups holds one entry per distinct article in rank order; each group
	// holds that article's matching FLI rows, best-ranked first.
	Groups [][]*models.FoundLexicalItem
	// TotalArticles is the distinct article count across the whole result set.
	TotalArticles int
}

// SearchFLIs runs a ranked lexical search for one result page. Rows are
// sorted by the query type's composite score, then article last-updated,
// then article ID, all descending, and collapsed so each article appears
// once per page with its other matching rows attached.
func (s *Store) SearchFLIs(ctx context.Context, query models.Query, pageSize int) (*FLIPage, error) {
	if pageSize < 1 {
		return nil, fmt.Errorf("page size must be at least 1")
	}

	sort := []any{
		map[string]any{scoreField(query.Type): "desc"},
		map[string]any{"article_last_updated_datetime": map[string]any{
			"order":   "desc",
			"missing": 0,
		}},
		map[string]any{"article_id": "desc"},
	}

	body := map[string]any{
		"query": map[string]any{
			"term": map[string]any{queryField(query.Type): query.Str},
		},
		"sort": sort,
		"collapse": map[string]any{
			"field": "article_id",
			"inner_hits": map[string]any{
				"name": "article_rows",
				"size": maxArticleRows,
				"sort": sort,
			},
		},
		"from": (query.PageNum - 1) * pageSize,
		"size": pageSize,
		"aggs": map[string]any{
			"distinct_articles": map[string]any{
				"cardinality": map[string]any{"field": "article_id"},
			},
		},
	}

	resp, err := s.search(ctx, s.flisIndex(), body)
	if err != nil {
		return nil, err
	}

	page := &FLIPage{Groups: make([][]*models.FoundLexicalItem, 0, len(resp.Hits.Hits))}
	if agg, ok := resp.Aggregations["distinct_articles"]; ok {
		page.TotalArticles = int(agg.Value)
	}

	for _, hit := range resp.Hits.Hits {
		group, err := decodeGroup(hit)
		if err != nil {
			return nil, err
		}
		page.Groups = append(page.Groups, group)
	}
	return page, nil
}

// decodeGroup turns one collapsed hit into the article's FLI rows. The
// inner hits cover the collapsed rows including the top hit itself; when
// absent the top hit stands alone.
func decodeGroup(hit esHit) ([]*models.FoundLexicalItem, error) {
	inner, ok := hit.InnerHits["article_rows"]
	if !ok || len(inner.Hits.Hits) == 0 {
		fli, err := decodeFLIHit(hit)
		if err != nil {
			return nil, err
		}
		return []*models.FoundLexicalItem{fli}, nil
	}

	group := make([]*models.FoundLexicalItem, 0, len(inner.Hits.Hits))
	for _, row := range inner.Hits.Hits {
		fli, err := decodeFLIHit(row)
		if err != nil {
			return nil, err
		}
		group = append(group, fli)
	}
	return group, nil
}

// CountArticles returns the number of distinct articles matching the query
// string under the given query type.
func (s *Store) CountArticles(ctx context.Context, queryType models.QueryType, queryStr string) (int, error) {
	resp, err := s.search(ctx, s.flisIndex(), map[string]any{
		"query": map[string]any{
			"term": map[string]any{queryField(queryType): queryStr},
		},
		"size": 0,
		"aggs": map[string]any{
			"distinct_articles": map[string]any{
				"cardinality": map[string]any{"field": "article_id"},
			},
		},
	})
	if err != nil {
		return 0, err
	}
	if agg, ok := resp.Aggregations["distinct_articles"]; ok {
		return int(agg.Value), nil
	}
	return 0, nil
}
