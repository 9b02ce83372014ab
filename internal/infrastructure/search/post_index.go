package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-blog/internal/domain/entity"
	"github.com/oksasatya/go-ddd-blog/internal/domain/repository"
)

const requestTimeout = 3 * time.Second

var postsMapping = `{
  "mappings": {
    "properties": {
      "id":         {"type": "keyword"},
      "slug":       {"type": "keyword"},
      "title":      {"type": "text"},
      "content":    {"type": "text"},
      "category":   {"type": "keyword"},
      "published":  {"type": "boolean"},
      "created_at": {"type": "date"},
      "updated_at": {"type": "date"}
    }
  }
}`

// PostIndex keeps posts searchable in Elasticsearch.
type PostIndex struct {
	es     *elasticsearch.Client
	index  string
	logger *logrus.Logger
}

func NewPostIndex(es *elasticsearch.Client, index string, logger *logrus.Logger) *PostIndex {
	return &PostIndex{es: es, index: index, logger: logger}
}

type postDoc struct {
	ID        string `json:"id"`
	Slug      string `json:"slug"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Category  string `json:"category"`
	Published bool   `json:"published"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// EnsureIndex creates the index with its mapping when it does not exist yet.
func (p *PostIndex) EnsureIndex(ctx context.Context) error {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := p.es.Indices.Exists([]string{p.index}, p.es.Indices.Exists.WithContext(c))
	if err != nil {
		return err
	}
	_ = res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	res, err = p.es.Indices.Create(p.index,
		p.es.Indices.Create.WithContext(c),
		p.es.Indices.Create.WithBody(strings.NewReader(postsMapping)),
	)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && !strings.Contains(readAll(res.Body), "resource_already_exists_exception") {
		return fmt.Errorf("create index %s: %s", p.index, res.Status())
	}
	return nil
}

func (p *PostIndex) Index(ctx context.Context, post *entity.Post, categorySlug string) error {
	doc := postDoc{
		ID:        post.ID,
		Slug:      post.Slug,
		Title:     post.Title,
		Content:   post.Content,
		Category:  categorySlug,
		Published: post.Published,
		CreatedAt: post.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt: post.UpdatedAt.Format(time.RFC3339Nano),
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: p.index, DocumentID: post.ID, Body: bytes.NewReader(b), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, p.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("index post %s: %s", post.ID, res.Status())
	}
	return nil
}

// Delete removes documents in one bulk call. Missing documents are ignored.
func (p *PostIndex) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, id := range ids {
		line := map[string]any{"delete": map[string]string{"_index": p.index, "_id": id}}
		if err := enc.Encode(line); err != nil {
			return err
		}
	}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := p.es.Bulk(bytes.NewReader(buf.Bytes()), p.es.Bulk.WithContext(c), p.es.Bulk.WithIndex(p.index))
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("bulk delete: %s", res.Status())
	}
	return nil
}

// Search runs a multi_match over title, content and category.
func (p *PostIndex) Search(ctx context.Context, q string, publishedOnly bool, size int) ([]repository.PostHit, error) {
	boolQuery := map[string]any{
		"must": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"title^3", "content", "category"},
			},
		},
	}
	if publishedOnly {
		boolQuery["filter"] = []any{map[string]any{"term": map[string]any{"published": true}}}
	}
	query := map[string]any{
		"query": map[string]any{"bool": boolQuery},
		"size":  size,
	}
	b, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := p.es.Search(p.es.Search.WithContext(c), p.es.Search.WithIndex(p.index), p.es.Search.WithBody(bytes.NewReader(b)))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = res.Body.Close()
	}()
	if res.IsError() {
		if p.logger != nil {
			p.logger.WithField("status", res.Status()).Warn("es search response error")
		}
		return nil, fmt.Errorf("search posts: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string  `json:"_id"`
				Score  float64 `json:"_score"`
				Source postDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]repository.PostHit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, repository.PostHit{
			ID:           h.ID,
			Slug:         h.Source.Slug,
			Title:        h.Source.Title,
			CategorySlug: h.Source.Category,
			Published:    h.Source.Published,
			Score:        h.Score,
		})
	}
	return out, nil
}

// Ping reports whether the cluster answers.
func (p *PostIndex) Ping(ctx context.Context) error {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := p.es.Ping(p.es.Ping.WithContext(c))
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("es ping: %s", res.Status())
	}
	return nil
}

func readAll(r io.Reader) string {
	b, _ := io.ReadAll(r)
	return string(b)
}
