package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/myaku-dev/myaku/internal/config"
	"github.com/myaku-dev/myaku/internal/logger"
	"github.com/myaku-dev/myaku/internal/models"
)

const (
	defaultIndexPrefix = "myaku"
	defaultOpTimeout   = 30 * time.Second
)

// Store is the lexical index backed by Elasticsearch. A store handle is
// either writable or read-only; read-only handles reject every write with
// models.ErrPermissionDenied so the search path can never corrupt the index.
type Store struct {
	client        *es.Client
	prefix        string
	readOnly      bool
	maxArticleLen int
	log           logger.Logger
}

// NewStore creates a store over an existing client. The read-only flag comes
// from config so search deployments get a non-writing handle by default.
func NewStore(client *es.Client, cfg config.ElasticsearchConfig, log logger.Logger) *Store {
	prefix := cfg.IndexPrefix
	if prefix == "" {
		prefix = defaultIndexPrefix
	}
	return &Store{
		client:        client,
		prefix:        prefix,
		readOnly:      cfg.ReadOnly,
		maxArticleLen: config.DefaultMaxArticleLength,
		log:           log,
	}
}

// SetMaxArticleLength overrides the article length gate. Zero or negative
// values keep the current limit.
func (s *Store) SetMaxArticleLength(n int) {
	if n > 0 {
		s.maxArticleLen = n
	}
}

// ReadOnly returns a handle over the same index that rejects writes.
func (s *Store) ReadOnly() *Store {
	ro := *s
	ro.readOnly = true
	return &ro
}

func (s *Store) indexName(suffix string) string {
	return s.prefix + "-" + suffix
}

func (s *Store) blogsIndex() string      { return s.indexName(blogsSuffix) }
func (s *Store) articlesIndex() string   { return s.indexName(articlesSuffix) }
func (s *Store) flisIndex() string       { return s.indexName(flisSuffix) }
func (s *Store) crawlSkipsIndex() string { return s.indexName(crawlSkipsSuffix) }
func (s *Store) metaIndex() string       { return s.indexName(metaSuffix) }

func (s *Store) writable() error {
	if s.readOnly {
		return fmt.Errorf("%w: store handle is read-only", models.ErrPermissionDenied)
	}
	return nil
}

// EnsureIndexes creates any of the five indices that do not exist yet.
// Safe to run on every startup.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if err := s.writable(); err != nil {
		return err
	}

	mappings := map[string]map[string]any{
		s.blogsIndex():      blogsMapping(),
		s.articlesIndex():   articlesMapping(),
		s.flisIndex():       flisMapping(),
		s.crawlSkipsIndex(): crawlSkipsMapping(),
		s.metaIndex():       metaMapping(),
	}

	for name, body := range mappings {
		exists, err := s.indexExists(ctx, name)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if err := s.createIndex(ctx, name, body); err != nil {
			return err
		}
		s.log.Info("created index", logger.String("index", name))
	}
	return nil
}

// DeleteIndexes removes all five indices. Missing indices are ignored.
func (s *Store) DeleteIndexes(ctx context.Context) error {
	if err := s.writable(); err != nil {
		return err
	}

	names := []string{
		s.blogsIndex(), s.articlesIndex(), s.flisIndex(),
		s.crawlSkipsIndex(), s.metaIndex(),
	}
	res, err := s.client.Indices.Delete(
		names,
		s.client.Indices.Delete.WithContext(ctx),
		s.client.Indices.Delete.WithIgnoreUnavailable(true),
	)
	if err != nil {
		return fmt.Errorf("delete indices: %w", err)
	}
	defer closeBody(res.Body)
	if res.IsError() {
		return fmt.Errorf("delete indices: %s", res.String())
	}
	return nil
}

// IndexNames returns the five index names under the configured prefix.
func (s *Store) IndexNames() []string {
	return []string{
		s.blogsIndex(), s.articlesIndex(), s.flisIndex(),
		s.crawlSkipsIndex(), s.metaIndex(),
	}
}

func (s *Store) indexExists(ctx context.Context, name string) (bool, error) {
	res, err := s.client.Indices.Exists(
		[]string{name},
		s.client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return false, fmt.Errorf("check index %s: %w", name, err)
	}
	defer closeBody(res.Body)
	if res.StatusCode == 404 {
		return false, nil
	}
	if res.IsError() {
		return false, fmt.Errorf("check index %s: %s", name, res.String())
	}
	return true, nil
}

func (s *Store) createIndex(ctx context.Context, name string, body map[string]any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal mapping for %s: %w", name, err)
	}
	res, err := s.client.Indices.Create(
		name,
		s.client.Indices.Create.WithContext(ctx),
		s.client.Indices.Create.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", name, err)
	}
	defer closeBody(res.Body)
	if res.IsError() {
		return fmt.Errorf("create index %s: %s", name, res.String())
	}
	return nil
}

// indexDoc writes one document with an immediate refresh so the crawl
// pipeline's idempotency lookups see their own writes.
func (s *Store) indexDoc(ctx context.Context, index, id string, doc any) error {
	ctx, cancel := context.WithTimeout(ctx, defaultOpTimeout)
	defer cancel()

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	res, err := s.client.Index(
		index,
		bytes.NewReader(body),
		s.client.Index.WithContext(ctx),
		s.client.Index.WithDocumentID(id),
		s.client.Index.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("index document: %w", err)
	}
	defer closeBody(res.Body)

	if res.IsError() {
		s.log.Error("index write rejected",
			logger.String("index", index),
			logger.String("doc_id", id),
			logger.String("response", res.String()),
		)
		return fmt.Errorf("index document: %s", res.String())
	}
	return nil
}

// esHit is one search hit with the source left raw for per-index decoding.
type esHit struct {
	ID        string                 `json:"_id"`
	Source    json.RawMessage        `json:"_source"`
	InnerHits map[string]esInnerHits `json:"inner_hits,omitempty"`
}

type esInnerHits struct {
	Hits struct {
		Hits []esHit `json:"hits"`
	} `json:"hits"`
}

type esSearchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []esHit `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]struct {
		Value float64 `json:"value"`
	} `json:"aggregations,omitempty"`
}

// search runs a query against one index and decodes the response envelope.
func (s *Store) search(ctx context.Context, index string, query map[string]any) (*esSearchResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultOpTimeout)
	defer cancel()

	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", index, err)
	}
	defer closeBody(res.Body)

	if res.IsError() {
		return nil, fmt.Errorf("search %s: %s", index, res.String())
	}

	var out esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &out, nil
}

// deleteByQuery removes matching documents with an immediate refresh.
func (s *Store) deleteByQuery(ctx context.Context, index string, query map[string]any) error {
	ctx, cancel := context.WithTimeout(ctx, defaultOpTimeout)
	defer cancel()

	body, err := json.Marshal(query)
	if err != nil {
		return fmt.Errorf("marshal query: %w", err)
	}

	res, err := s.client.DeleteByQuery(
		[]string{index},
		bytes.NewReader(body),
		s.client.DeleteByQuery.WithContext(ctx),
		s.client.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		return fmt.Errorf("delete by query on %s: %w", index, err)
	}
	defer closeBody(res.Body)

	if res.IsError() {
		return fmt.Errorf("delete by query on %s: %s", index, res.String())
	}
	return nil
}

// updateByQuery runs a scripted update over matching documents.
func (s *Store) updateByQuery(ctx context.Context, index string, body map[string]any) error {
	ctx, cancel := context.WithTimeout(ctx, defaultOpTimeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}

	res, err := s.client.UpdateByQuery(
		[]string{index},
		s.client.UpdateByQuery.WithContext(ctx),
		s.client.UpdateByQuery.WithBody(bytes.NewReader(payload)),
		s.client.UpdateByQuery.WithRefresh(true),
	)
	if err != nil {
		return fmt.Errorf("update by query on %s: %w", index, err)
	}
	defer closeBody(res.Body)

	if res.IsError() {
		return fmt.Errorf("update by query on %s: %s", index, res.String())
	}
	return nil
}

// bulkIndex writes a batch of documents in one bulk request with refresh.
type bulkDoc struct {
	ID  string
	Doc any
}

func (s *Store) bulkIndex(ctx context.Context, index string, docs []bulkDoc) error {
	if len(docs) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultOpTimeout)
	defer cancel()

	var buf bytes.Buffer
	for _, d := range docs {
		action := map[string]any{
			"index": map[string]any{"_index": index, "_id": d.ID},
		}
		if err := json.NewEncoder(&buf).Encode(action); err != nil {
			return fmt.Errorf("encode bulk action: %w", err)
		}
		if err := json.NewEncoder(&buf).Encode(d.Doc); err != nil {
			return fmt.Errorf("encode bulk document: %w", err)
		}
	}

	res, err := s.client.Bulk(
		&buf,
		s.client.Bulk.WithContext(ctx),
		s.client.Bulk.WithIndex(index),
		s.client.Bulk.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("bulk index %s: %w", index, err)
	}
	defer closeBody(res.Body)

	if res.IsError() {
		return fmt.Errorf("bulk index %s: %s", index, res.String())
	}

	var out struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int    `json:"status"`
			Error  any    `json:"error"`
			ID     string `json:"_id"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode bulk response: %w", err)
	}
	if out.Errors {
		for _, item := range out.Items {
			for op, detail := range item {
				if detail.Status >= 300 {
					s.log.Error("bulk item failed",
						logger.String("index", index),
						logger.String("op", op),
						logger.String("doc_id", detail.ID),
						logger.Int("status", detail.Status),
					)
				}
			}
		}
		return fmt.Errorf("bulk index %s: one or more items failed", index)
	}
	return nil
}

// findOneByTerm returns the single hit matching field == value, or nil.
func (s *Store) findOneByTerm(ctx context.Context, index, field, value string) (*esHit, error) {
	resp, err := s.search(ctx, index, map[string]any{
		"query": map[string]any{
			"term": map[string]any{field: value},
		},
		"size": 1,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Hits.Hits) == 0 {
		return nil, nil
	}
	return &resp.Hits.Hits[0], nil
}

// getDoc fetches one document by ID. found is false when it does not exist.
func (s *Store) getDoc(ctx context.Context, index, id string) (json.RawMessage, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultOpTimeout)
	defer cancel()

	res, err := s.client.Get(
		index,
		id,
		s.client.Get.WithContext(ctx),
	)
	if err != nil {
		return nil, false, fmt.Errorf("get document %s/%s: %w", index, id, err)
	}
	defer closeBody(res.Body)

	if res.StatusCode == 404 {
		return nil, false, nil
	}
	if res.IsError() {
		return nil, false, fmt.Errorf("get document %s/%s: %s", index, id, res.String())
	}

	var out struct {
		Found  bool            `json:"found"`
		Source json.RawMessage `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, false, fmt.Errorf("decode document %s/%s: %w", index, id, err)
	}
	return out.Source, out.Found, nil
}

func closeBody(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
