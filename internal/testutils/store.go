// Package testutils provides in-memory fakes mirroring the index store and
// crawl collaborators for package tests.
package testutils

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/myaku-dev/myaku/internal/config"
	"github.com/myaku-dev/myaku/internal/index"
	"github.com/myaku-dev/myaku/internal/models"
)

// FakeStore is an in-memory stand-in for the Elasticsearch store with the
// same write gates and ranking semantics. Safe for concurrent use.
type FakeStore struct {
	mu sync.Mutex

	Blogs    map[string]*models.Blog             // by ID
	Articles map[string]*models.Article          // by ID
	FLIs     map[string]*models.FoundLexicalItem // by ID
	Skips    map[string]*models.CrawlSkip        // by source URL

	// MaxArticleLen mirrors the store's configurable length gate.
	MaxArticleLen int

	lastRescore time.Time
	nextID      int
}

// NewFakeStore creates an empty fake store.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		Blogs:         make(map[string]*models.Blog),
		Articles:      make(map[string]*models.Article),
		FLIs:          make(map[string]*models.FoundLexicalItem),
		Skips:         make(map[string]*models.CrawlSkip),
		MaxArticleLen: config.DefaultMaxArticleLength,
	}
}

func (s *FakeStore) id(kind string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", kind, s.nextID)
}

// UpsertBlog mirrors the store: replace by source URL, reusing the ID.
func (s *FakeStore) UpsertBlog(_ context.Context, blog *models.Blog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.Blogs {
		if existing.SourceURL == blog.SourceURL {
			blog.ID = id
			copied := *blog
			s.Blogs[id] = &copied
			return nil
		}
	}
	blog.ID = s.id("blog")
	copied := *blog
	s.Blogs[blog.ID] = &copied
	return nil
}

// WriteArticle mirrors the store's write gates: over-length and duplicate
// text are rejected, same source URL replaces in place.
func (s *FakeStore) WriteArticle(_ context.Context, article *models.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if article.TextLength() > s.MaxArticleLen {
		return fmt.Errorf("%w: %s", index.ErrArticleTooLong, article.SourceURL)
	}
	for _, existing := range s.Articles {
		if existing.TextHash == article.TextHash && existing.SourceURL != article.SourceURL {
			return fmt.Errorf("%w: matches article %s", index.ErrDuplicateText, existing.ID)
		}
	}

	for id, existing := range s.Articles {
		if existing.SourceURL == article.SourceURL {
			article.ID = id
			copied := *article
			s.Articles[id] = &copied
			return nil
		}
	}
	article.ID = s.id("article")
	copied := *article
	s.Articles[article.ID] = &copied
	return nil
}

// ReplaceArticleFLIs swaps the article's FLIs en bloc, denormalizing the
// article's score and last-updated datetime like the store does.
func (s *FakeStore) ReplaceArticleFLIs(_ context.Context, article *models.Article, flis []*models.FoundLexicalItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if article.ID == "" {
		return fmt.Errorf("article must be stored before its lexical items")
	}
	for id, fli := range s.FLIs {
		if fli.ArticleID == article.ID {
			delete(s.FLIs, id)
		}
	}
	for _, fli := range flis {
		fli.ArticleID = article.ID
		fli.ArticleLastUpdated = article.LastUpdatedDT
		fli.RecomputeComposites(article.QualityScore)
		if fli.ID == "" {
			fli.ID = s.id("fli")
		}
		copied := *fli
		s.FLIs[fli.ID] = &copied
	}
	return nil
}

func (s *FakeStore) LookupCrawled(_ context.Context, urls []string) (map[string]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := make(map[string]time.Time)
	for _, url := range urls {
		for _, a := range s.Articles {
			if a.SourceURL == url {
				found[url] = a.LastCrawledDT
			}
		}
	}
	return found, nil
}

func (s *FakeStore) LookupSkipped(_ context.Context, urls []string) (map[string]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := make(map[string]time.Time)
	for _, url := range urls {
		if skip, ok := s.Skips[url]; ok {
			found[url] = skip.LastCrawledDT
		}
	}
	return found, nil
}

func (s *FakeStore) UpdateLastCrawled(_ context.Context, sourceURL string, t time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.Articles {
		if a.SourceURL == sourceURL {
			a.LastCrawledDT = t
			return true, nil
		}
	}
	return false, nil
}

func (s *FakeStore) InsertCrawlSkip(_ context.Context, skip *models.CrawlSkip) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *skip
	s.Skips[skip.SourceURL] = &copied
	return nil
}

// SearchFLIs mirrors the ranked, collapsed index query.
func (s *FakeStore) SearchFLIs(_ context.Context, query models.Query, pageSize int) (*index.FLIPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []*models.FoundLexicalItem
	for _, fli := range s.FLIs {
		// Group fields mirror base_form, so every query type matches on it.
		if fli.BaseForm == query.Str {
			copied := *fli
			rows = append(rows, &copied)
		}
	}

	composite := func(f *models.FoundLexicalItem) int {
		switch query.Type {
		case models.QueryTypeDefinite:
			return f.QualityScoreDefinite
		case models.QueryTypePossible:
			return f.QualityScorePossible
		default:
			return f.QualityScoreExact
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if composite(rows[i]) != composite(rows[j]) {
			return composite(rows[i]) > composite(rows[j])
		}
		if !rows[i].ArticleLastUpdated.Equal(rows[j].ArticleLastUpdated) {
			return rows[i].ArticleLastUpdated.After(rows[j].ArticleLastUpdated)
		}
		return rows[i].ArticleID > rows[j].ArticleID
	})

	var (
		order  []string
		groups = make(map[string][]*models.FoundLexicalItem)
	)
	for _, row := range rows {
		if _, ok := groups[row.ArticleID]; !ok {
			order = append(order, row.ArticleID)
		}
		groups[row.ArticleID] = append(groups[row.ArticleID], row)
	}

	page := &index.FLIPage{TotalArticles: len(order)}
	start := (query.PageNum - 1) * pageSize
	for i := start; i < len(order) && i < start+pageSize; i++ {
		page.Groups = append(page.Groups, groups[order[i]])
	}
	return page, nil
}

func (s *FakeStore) GetArticles(_ context.Context, ids []string) (map[string]*models.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := make(map[string]*models.Article)
	for _, id := range ids {
		if a, ok := s.Articles[id]; ok {
			copied := *a
			found[id] = &copied
		}
	}
	return found, nil
}

func (s *FakeStore) UpdateArticleScore(_ context.Context, articleID string, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.Articles[articleID]
	if !ok {
		return fmt.Errorf("article %s not found", articleID)
	}
	a.QualityScore = score
	for _, fli := range s.FLIs {
		if fli.ArticleID == articleID {
			fli.RecomputeComposites(score)
		}
	}
	return nil
}

func (s *FakeStore) ArticlesUpdatedBetween(_ context.Context, from, to time.Time) ([]*models.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var articles []*models.Article
	for _, a := range s.Articles {
		if a.LastUpdatedDT.After(from) && !a.LastUpdatedDT.After(to) {
			copied := *a
			articles = append(articles, &copied)
		}
	}
	sort.Slice(articles, func(i, j int) bool { return articles[i].ID < articles[j].ID })
	return articles, nil
}

func (s *FakeStore) FLIsForArticle(_ context.Context, articleID string) ([]*models.FoundLexicalItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var flis []*models.FoundLexicalItem
	for _, fli := range s.FLIs {
		if fli.ArticleID == articleID {
			copied := *fli
			flis = append(flis, &copied)
		}
	}
	sort.Slice(flis, func(i, j int) bool { return flis[i].ID < flis[j].ID })
	return flis, nil
}

func (s *FakeStore) LastRescoreTime(context.Context) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRescore, nil
}

func (s *FakeStore) SetLastRescoreTime(_ context.Context, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRescore = t
	return nil
}

// BaseForms returns the distinct base forms across all stored FLIs.
func (s *FakeStore) BaseForms(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool)
	var forms []string
	for _, fli := range s.FLIs {
		if !seen[fli.BaseForm] {
			seen[fli.BaseForm] = true
			forms = append(forms, fli.BaseForm)
		}
	}
	sort.Strings(forms)
	return forms, nil
}

// FLIsByBaseForm returns stored FLIs for the base form, for assertions.
func (s *FakeStore) FLIsByBaseForm(baseForm string) []*models.FoundLexicalItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	var flis []*models.FoundLexicalItem
	for _, fli := range s.FLIs {
		if fli.BaseForm == baseForm {
			copied := *fli
			flis = append(flis, &copied)
		}
	}
	sort.Slice(flis, func(i, j int) bool { return flis[i].ID < flis[j].ID })
	return flis
}

// ArticleBySourceURL returns the stored article for the URL, or nil.
func (s *FakeStore) ArticleBySourceURL(url string) *models.Article {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.Articles {
		if a.SourceURL == url {
			copied := *a
			return &copied
		}
	}
	return nil
}
